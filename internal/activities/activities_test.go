package activities

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"

	"investorbase/internal/logging"
	"investorbase/internal/models"
	"investorbase/internal/render"
	"investorbase/internal/research"
	"investorbase/internal/storage"
)

type fakeSteps struct {
	beginErr    error
	completeErr error
	dispatched  research.Dispatched
}

func (f *fakeSteps) Begin(_ context.Context, req research.Request) (research.Pending, error) {
	if f.beginErr != nil {
		return research.Pending{}, f.beginErr
	}
	return research.Pending{ResearchID: "r-1", CompanyID: req.CompanyID, AssessmentPoints: req.AssessmentPoints}, nil
}

func (f *fakeSteps) Dispatch(context.Context, research.Pending) research.Dispatched {
	return f.dispatched
}

func (f *fakeSteps) Complete(_ context.Context, p research.Pending, d research.Dispatched) (models.ResearchRecord, error) {
	if f.completeErr != nil {
		return models.ResearchRecord{}, f.completeErr
	}
	return models.ResearchRecord{ResearchID: p.ResearchID, Status: models.StatusCompleted, RawText: d.Text}, nil
}

func (f *fakeSteps) Fail(_ context.Context, p research.Pending, d research.Dispatched) (models.ResearchRecord, error) {
	return models.ResearchRecord{ResearchID: p.ResearchID, Status: models.StatusFailed, ErrorMessage: d.Error}, nil
}

type recordMap map[string]models.ResearchRecord

func (m recordMap) Get(_ context.Context, id string) (models.ResearchRecord, error) {
	rec, ok := m[id]
	if !ok {
		return models.ResearchRecord{}, storage.ErrNotFound
	}
	return rec, nil
}

func newActivities(steps ResearchSteps, records recordMap, out string) *Activities {
	return New(steps, records, render.NewRenderer(render.DefaultPalette()), out, logging.Discard())
}

func TestBeginValidationIsNonRetryable(t *testing.T) {
	a := newActivities(&fakeSteps{beginErr: &research.ValidationError{Field: "assessment_points", Reason: "must not be empty"}}, nil, t.TempDir())
	_, err := a.BeginResearchActivity(context.Background(), BeginResearchInput{Request: research.Request{CompanyID: "co-1"}})

	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	require.True(t, appErr.NonRetryable())
	require.Equal(t, ErrTypeValidation, appErr.Type())
}

func TestBeginStoreErrorIsRetryable(t *testing.T) {
	a := newActivities(&fakeSteps{beginErr: errors.New("connection reset")}, nil, t.TempDir())
	_, err := a.BeginResearchActivity(context.Background(), BeginResearchInput{})

	var appErr *temporal.ApplicationError
	require.Error(t, err)
	require.False(t, errors.As(err, &appErr))
}

func TestDispatchNeverErrors(t *testing.T) {
	a := newActivities(&fakeSteps{dispatched: research.Dispatched{ResearchID: "r-1", Error: "research provider mock failed: boom"}}, nil, t.TempDir())
	out, err := a.DispatchResearchActivity(context.Background(), DispatchResearchInput{Pending: research.Pending{ResearchID: "r-1"}})
	require.NoError(t, err)
	require.Equal(t, "research provider mock failed: boom", out.Dispatched.Error)
}

func TestCompleteRetryReturnsStoredRecord(t *testing.T) {
	records := recordMap{"r-1": {ResearchID: "r-1", Status: models.StatusCompleted, RawText: "## Research Summary\nok"}}
	a := newActivities(&fakeSteps{completeErr: storage.ErrRecordTerminal}, records, t.TempDir())

	out, err := a.CompleteResearchActivity(context.Background(), SettleResearchInput{Pending: research.Pending{ResearchID: "r-1"}})
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, out.Record.Status)
	require.Equal(t, "## Research Summary\nok", out.Record.RawText)
}

func TestCompletePassesOtherErrors(t *testing.T) {
	a := newActivities(&fakeSteps{completeErr: errors.New("store completed research: timeout")}, recordMap{}, t.TempDir())
	_, err := a.CompleteResearchActivity(context.Background(), SettleResearchInput{Pending: research.Pending{ResearchID: "r-1"}})
	require.EqualError(t, err, "store completed research: timeout")
}

func TestFailActivity(t *testing.T) {
	a := newActivities(&fakeSteps{}, recordMap{}, t.TempDir())
	out, err := a.FailResearchActivity(context.Background(), SettleResearchInput{
		Pending:    research.Pending{ResearchID: "r-1"},
		Dispatched: research.Dispatched{Error: "research provider mock timed out after 1s: context deadline exceeded"},
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusFailed, out.Record.Status)
	require.Contains(t, out.Record.ErrorMessage, "timed out")
}

func TestWriteResearchArtifacts(t *testing.T) {
	done := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := recordMap{"r-1": {
		ResearchID:  "r-1",
		CompanyID:   "co-1",
		Status:      models.StatusCompleted,
		CompletedAt: &done,
		RawText:     "## Research Summary\nAcme is growing.",
		Sources:     []models.Source{{Name: "TechCrunch", URL: "https://techcrunch.com/a"}},
	}}
	out := t.TempDir()
	a := newActivities(&fakeSteps{}, records, out)

	res, err := a.WriteResearchArtifactsActivity(context.Background(), WriteResearchArtifactsInput{ResearchID: "r-1", CompanyName: "Acme"})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(out, "co-1", "r-1"), res.Dir)

	raw, err := os.ReadFile(filepath.Join(res.Dir, "raw.md"))
	require.NoError(t, err)
	require.Equal(t, "## Research Summary\nAcme is growing.", string(raw))

	memo, err := os.ReadFile(filepath.Join(res.Dir, "memo.html"))
	require.NoError(t, err)
	require.Contains(t, string(memo), "Acme is growing.")
	require.Contains(t, string(memo), "https://techcrunch.com/a")

	_, err = os.Stat(filepath.Join(res.Dir, "research.json"))
	require.NoError(t, err)
}

func TestWriteResearchArtifactsSkipsRawForFailed(t *testing.T) {
	records := recordMap{"r-2": {ResearchID: "r-2", CompanyID: "co-1", Status: models.StatusFailed, ErrorMessage: "boom"}}
	a := newActivities(&fakeSteps{}, records, t.TempDir())

	res, err := a.WriteResearchArtifactsActivity(context.Background(), WriteResearchArtifactsInput{ResearchID: "r-2"})
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(res.Dir, "raw.md"))
	require.True(t, os.IsNotExist(err))
}
