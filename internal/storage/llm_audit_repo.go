package storage

import (
	"context"
	"fmt"
)

type LLMCallRecord struct {
	CallID       string
	Operation    string
	ResearchID   string
	CompanyID    string
	ProviderName string
	Model        string
	Status       string
	ErrorType    string
	LatencyMS    int64
}

type LLMAuditRepo struct {
	db DBTX
}

func NewLLMAuditRepo(db DBTX) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) Insert(ctx context.Context, rec LLMCallRecord) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO llm_calls(call_id, operation, research_id, company_id, provider_name, model, status, error_type, latency_ms)
VALUES (COALESCE(NULLIF($1,'')::uuid, gen_random_uuid()), $2, NULLIF($3,'')::uuid, NULLIF($4,''), $5, NULLIF($6,''), $7, NULLIF($8,''), $9)`,
		rec.CallID, rec.Operation, rec.ResearchID, rec.CompanyID, rec.ProviderName, rec.Model, rec.Status, rec.ErrorType, rec.LatencyMS)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}
