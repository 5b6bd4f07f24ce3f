package storage

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS companies (
  company_id   TEXT PRIMARY KEY,
  name         TEXT NOT NULL,
  deck_id      TEXT,
  deck_excerpt TEXT,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE TABLE IF NOT EXISTS research_records (
  research_id       UUID PRIMARY KEY,
  company_id        TEXT NOT NULL REFERENCES companies(company_id),
  status            TEXT NOT NULL CHECK (status IN ('pending','completed','failed')),
  assessment_points JSONB NOT NULL,
  provider          TEXT,
  model             TEXT,
  requested_at      TIMESTAMPTZ NOT NULL,
  completed_at      TIMESTAMPTZ,
  raw_text          TEXT,
  structured_items  JSONB NOT NULL DEFAULT '[]'::jsonb,
  sources           JSONB NOT NULL DEFAULT '[]'::jsonb,
  error_message     TEXT,
  CHECK (status <> 'completed' OR (raw_text IS NOT NULL AND completed_at IS NOT NULL)),
  CHECK (status <> 'failed' OR (error_message IS NOT NULL AND raw_text IS NULL)),
  CHECK (status = 'completed' OR completed_at IS NULL)
)`,
	`CREATE INDEX IF NOT EXISTS research_records_company_idx ON research_records (company_id, requested_at DESC)`,
	`CREATE TABLE IF NOT EXISTS llm_calls (
  call_id       UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  operation     TEXT NOT NULL,
  research_id   UUID,
  company_id    TEXT,
  provider_name TEXT NOT NULL,
  model         TEXT,
  status        TEXT NOT NULL,
  error_type    TEXT,
  latency_ms    BIGINT,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
}

// Migrate creates the schema in one transaction. Every statement is
// idempotent, so it is safe to run on each deploy.
func Migrate(ctx context.Context, db DBTX) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx migrate: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for i, stmt := range schema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migrate tx: %w", err)
	}
	return nil
}
