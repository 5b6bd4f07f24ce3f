package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"investorbase/internal/models"
)

type CompanyRepo struct {
	db DBTX
}

func NewCompanyRepo(db DBTX) *CompanyRepo {
	return &CompanyRepo{db: db}
}

func (r *CompanyRepo) CreateCompany(ctx context.Context, c models.Company) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO companies (company_id, name)
VALUES ($1, $2)
ON CONFLICT (company_id)
DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()`, c.CompanyID, c.Name)
	if err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

func (r *CompanyRepo) GetCompany(ctx context.Context, companyID string) (models.Company, error) {
	var c models.Company
	err := r.db.QueryRow(ctx, `
SELECT company_id, name, COALESCE(deck_id,''), COALESCE(deck_excerpt,''), created_at
FROM companies
WHERE company_id=$1`, companyID).Scan(&c.CompanyID, &c.Name, &c.DeckID, &c.DeckExcerpt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Company{}, fmt.Errorf("company %s: %w", companyID, ErrNotFound)
	}
	if err != nil {
		return models.Company{}, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}

func (r *CompanyRepo) ListCompanies(ctx context.Context) ([]models.Company, error) {
	rows, err := r.db.Query(ctx, `
SELECT company_id, name, COALESCE(deck_id,''), created_at
FROM companies
ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	out := make([]models.Company, 0)
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.CompanyID, &c.Name, &c.DeckID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return out, nil
}

// UpdateDeck stores the text excerpt of a company's pitch deck.
func (r *CompanyRepo) UpdateDeck(ctx context.Context, companyID, deckID, excerpt string) error {
	tag, err := r.db.Exec(ctx, `
UPDATE companies SET deck_id=$2, deck_excerpt=NULLIF($3,''), updated_at=NOW()
WHERE company_id=$1`, companyID, deckID, excerpt)
	if err != nil {
		return fmt.Errorf("update company deck: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("company %s: %w", companyID, ErrNotFound)
	}
	return nil
}
