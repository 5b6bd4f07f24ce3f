package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"investorbase/internal/models"
	"investorbase/internal/util"
)

type ResearchRepo struct {
	db DBTX
}

func NewResearchRepo(db DBTX) *ResearchRepo {
	return &ResearchRepo{db: db}
}

// Completion is everything written when a pending record completes.
type Completion struct {
	RawText     string
	Items       []models.StructuredItem
	Sources     []models.Source
	Provider    string
	Model       string
	CompletedAt time.Time
}

// CreatePending inserts a new pending record. Inserting an id twice is a no-op.
func (r *ResearchRepo) CreatePending(ctx context.Context, rec models.ResearchRecord) error {
	points, err := json.Marshal(nonNil(rec.AssessmentPoints))
	if err != nil {
		return fmt.Errorf("encode assessment points: %w", err)
	}
	_, err = r.db.Exec(ctx, `
INSERT INTO research_records (research_id, company_id, status, assessment_points, provider, model, requested_at)
VALUES ($1, $2, 'pending', $3::jsonb, NULLIF($4,''), NULLIF($5,''), $6)
ON CONFLICT (research_id) DO NOTHING`,
		rec.ResearchID, rec.CompanyID, string(points), rec.Provider, rec.Model, rec.RequestedAt,
	)
	if err != nil {
		return fmt.Errorf("insert research record: %w", err)
	}
	return nil
}

// Complete stores the raw text and every derived collection in one statement.
// Only a pending record can complete.
func (r *ResearchRepo) Complete(ctx context.Context, researchID string, c Completion) error {
	items, err := json.Marshal(nonNil(c.Items))
	if err != nil {
		return fmt.Errorf("encode structured items: %w", err)
	}
	sources, err := json.Marshal(nonNil(c.Sources))
	if err != nil {
		return fmt.Errorf("encode sources: %w", err)
	}
	tag, err := r.db.Exec(ctx, `
UPDATE research_records
SET status='completed', raw_text=$2, structured_items=$3::jsonb, sources=$4::jsonb,
    provider=NULLIF($5,''), model=NULLIF($6,''), completed_at=$7, error_message=NULL
WHERE research_id=$1 AND status='pending'`,
		researchID, util.StripNUL(c.RawText), string(items), string(sources), c.Provider, c.Model, c.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("complete research record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete research %s: %w", researchID, ErrRecordTerminal)
	}
	return nil
}

// Fail moves a pending record to failed. Only a pending record can fail.
func (r *ResearchRepo) Fail(ctx context.Context, researchID, message, provider, model string) error {
	if message == "" {
		message = "research failed"
	}
	tag, err := r.db.Exec(ctx, `
UPDATE research_records
SET status='failed', error_message=$2, provider=COALESCE(NULLIF($3,''), provider), model=COALESCE(NULLIF($4,''), model)
WHERE research_id=$1 AND status='pending'`,
		researchID, util.SanitizeText(message), provider, model,
	)
	if err != nil {
		return fmt.Errorf("fail research record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fail research %s: %w", researchID, ErrRecordTerminal)
	}
	return nil
}

const researchColumns = `research_id::text, company_id, status, assessment_points, COALESCE(provider,''), COALESCE(model,''),
       requested_at, completed_at, COALESCE(raw_text,''), structured_items, sources, COALESCE(error_message,'')`

func (r *ResearchRepo) Get(ctx context.Context, researchID string) (models.ResearchRecord, error) {
	row := r.db.QueryRow(ctx, `SELECT `+researchColumns+` FROM research_records WHERE research_id=$1`, researchID)
	rec, err := scanResearch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ResearchRecord{}, fmt.Errorf("research %s: %w", researchID, ErrNotFound)
	}
	if err != nil {
		return models.ResearchRecord{}, fmt.Errorf("get research record: %w", err)
	}
	return rec, nil
}

func (r *ResearchRepo) ListByCompany(ctx context.Context, companyID string, limit int) ([]models.ResearchRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT `+researchColumns+`
FROM research_records
WHERE company_id=$1
ORDER BY requested_at DESC
LIMIT $2`, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("list research records: %w", err)
	}
	defer rows.Close()

	out := make([]models.ResearchRecord, 0)
	for rows.Next() {
		rec, err := scanResearch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan research record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate research records: %w", err)
	}
	return out, nil
}

func scanResearch(row pgx.Row) (models.ResearchRecord, error) {
	var (
		rec                 models.ResearchRecord
		status              string
		points, items, srcs []byte
		completedAt         pgtype.Timestamptz
	)
	if err := row.Scan(&rec.ResearchID, &rec.CompanyID, &status, &points, &rec.Provider, &rec.Model,
		&rec.RequestedAt, &completedAt, &rec.RawText, &items, &srcs, &rec.ErrorMessage); err != nil {
		return models.ResearchRecord{}, err
	}
	rec.Status = models.ResearchStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		rec.CompletedAt = &t
	}
	rec.AssessmentPoints = []string{}
	rec.StructuredItems = []models.StructuredItem{}
	rec.Sources = []models.Source{}
	if err := decodeJSON(points, &rec.AssessmentPoints); err != nil {
		return models.ResearchRecord{}, fmt.Errorf("decode assessment points: %w", err)
	}
	if err := decodeJSON(items, &rec.StructuredItems); err != nil {
		return models.ResearchRecord{}, fmt.Errorf("decode structured items: %w", err)
	}
	if err := decodeJSON(srcs, &rec.Sources); err != nil {
		return models.ResearchRecord{}, fmt.Errorf("decode sources: %w", err)
	}
	return rec, nil
}

func decodeJSON(b []byte, v any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
