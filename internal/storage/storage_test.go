package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"investorbase/internal/models"
)

var researchCols = []string{
	"research_id", "company_id", "status", "assessment_points", "provider", "model",
	"requested_at", "completed_at", "raw_text", "structured_items", "sources", "error_message",
}

func TestMigrateRunsSchemaInTransaction(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE EXTENSION").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS companies").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS research_records").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS research_records_company_idx").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS llm_calls").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCommit()

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateStopsOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE EXTENSION").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err = Migrate(context.Background(), mock)
	require.ErrorContains(t, err, "migrate statement 0")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePendingResearch(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	requested := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO research_records").
		WithArgs("r-1", "co-1", `["market size","team"]`, "perplexity", "sonar", requested).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewResearchRepo(mock)
	err = repo.CreatePending(context.Background(), models.ResearchRecord{
		ResearchID:       "r-1",
		CompanyID:        "co-1",
		AssessmentPoints: []string{"market size", "team"},
		Provider:         "perplexity",
		Model:            "sonar",
		RequestedAt:      requested,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteIsGuardedByPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	pendingGuard := regexp.QuoteMeta("WHERE research_id=$1 AND status='pending'")
	mock.ExpectExec("(?s)SET status='completed'.*" + pendingGuard).
		WithArgs("r-1", "## Latest News", `[{"kind":"news","headline":"h","content":""}]`, `[]`, "perplexity", "sonar", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("(?s)SET status='completed'.*" + pendingGuard).
		WithArgs("r-1", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewResearchRepo(mock)
	c := Completion{
		RawText:     "## Latest News",
		Items:       []models.StructuredItem{{Kind: models.KindNews, Headline: "h"}},
		Provider:    "perplexity",
		Model:       "sonar",
		CompletedAt: time.Now(),
	}
	require.NoError(t, repo.Complete(context.Background(), "r-1", c))
	err = repo.Complete(context.Background(), "r-1", c)
	require.ErrorIs(t, err, ErrRecordTerminal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteStoresRawTextAsReceived(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	raw := "  ## Latest News\r\n\x01Acme\x00 raised\t\n\n"
	mock.ExpectExec("SET status='completed'").
		WithArgs("r-1", "  ## Latest News\r\n\x01Acme raised\t\n\n", `[]`, `[]`, "mock", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewResearchRepo(mock)
	require.NoError(t, repo.Complete(context.Background(), "r-1", Completion{RawText: raw, Provider: "mock", CompletedAt: time.Now()}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailIsGuardedByPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("SET status='failed'").
		WithArgs("r-1", "perplexity generate request failed: timeout", "perplexity", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("SET status='failed'").
		WithArgs("r-1", "research failed", "", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewResearchRepo(mock)
	require.NoError(t, repo.Fail(context.Background(), "r-1", "perplexity generate request failed: timeout", "perplexity", ""))
	require.ErrorIs(t, repo.Fail(context.Background(), "r-1", "", "", ""), ErrRecordTerminal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetResearchDecodesCollections(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	requested := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	completed := requested.Add(30 * time.Second)
	rows := pgxmock.NewRows(researchCols).AddRow(
		"r-1", "co-1", "completed", []byte(`["market size"]`), "perplexity", "sonar",
		requested, completed, "## Latest News",
		[]byte(`[{"kind":"news","headline":"Acme raises","content":"c","url":"https://example.com/a"}]`),
		[]byte(`[{"name":"TechCrunch","url":"https://example.com/a"}]`), "",
	)
	mock.ExpectQuery("SELECT research_id::text").WithArgs("r-1").WillReturnRows(rows)

	rec, err := NewResearchRepo(mock).Get(context.Background(), "r-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, rec.Status)
	require.Equal(t, []string{"market size"}, rec.AssessmentPoints)
	require.NotNil(t, rec.CompletedAt)
	require.True(t, completed.Equal(*rec.CompletedAt))
	require.Len(t, rec.StructuredItems, 1)
	require.Equal(t, models.KindNews, rec.StructuredItems[0].Kind)
	require.Equal(t, []models.Source{{Name: "TechCrunch", URL: "https://example.com/a"}}, rec.Sources)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetResearchNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT research_id::text").WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err = NewResearchRepo(mock).Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByCompany(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now().UTC()
	rows := pgxmock.NewRows(researchCols).
		AddRow("r-2", "co-1", "failed", []byte(`["team"]`), "perplexity", "sonar", now, nil, "", []byte(`[]`), []byte(`[]`), "timeout").
		AddRow("r-1", "co-1", "pending", []byte(`["team"]`), "", "", now.Add(-time.Hour), nil, "", []byte(`[]`), []byte(`[]`), "")
	mock.ExpectQuery("FROM research_records").WithArgs("co-1", 50).WillReturnRows(rows)

	recs, err := NewResearchRepo(mock).ListByCompany(context.Background(), "co-1", 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, models.StatusFailed, recs[0].Status)
	require.Equal(t, "timeout", recs[0].ErrorMessage)
	require.Nil(t, recs[0].CompletedAt)
	require.NotNil(t, recs[1].Sources)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompanyRepo(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Now().UTC()
	mock.ExpectExec("INSERT INTO companies").WithArgs("co-1", "Acme").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("FROM companies").WithArgs("co-1").
		WillReturnRows(pgxmock.NewRows([]string{"company_id", "name", "deck_id", "deck_excerpt", "created_at"}).
			AddRow("co-1", "Acme", "abc", "We build robots.", created))
	mock.ExpectExec("UPDATE companies SET deck_id").WithArgs("co-2", "abc", "text").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("FROM companies").WithArgs("nope").WillReturnError(pgx.ErrNoRows)

	repo := NewCompanyRepo(mock)
	ctx := context.Background()
	require.NoError(t, repo.CreateCompany(ctx, models.Company{CompanyID: "co-1", Name: "Acme"}))

	c, err := repo.GetCompany(ctx, "co-1")
	require.NoError(t, err)
	require.Equal(t, "We build robots.", c.DeckExcerpt)

	require.ErrorIs(t, repo.UpdateDeck(ctx, "co-2", "abc", "text"), ErrNotFound)
	_, err = repo.GetCompany(ctx, "nope")
	require.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLLMAuditInsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO llm_calls").
		WithArgs("", "research", "r-1", "co-1", "perplexity", "sonar", "failed", "transient", int64(1200)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = NewLLMAuditRepo(mock).Insert(context.Background(), LLMCallRecord{
		Operation:    "research",
		ResearchID:   "r-1",
		CompanyID:    "co-1",
		ProviderName: "perplexity",
		Model:        "sonar",
		Status:       "failed",
		ErrorType:    "transient",
		LatencyMS:    1200,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
