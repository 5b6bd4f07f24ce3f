package activities

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/temporal"

	"investorbase/internal/models"
	"investorbase/internal/render"
	"investorbase/internal/research"
	"investorbase/internal/storage"
	"investorbase/internal/util"
)

const ErrTypeValidation = "ValidationError"

// ResearchSteps are the orchestrator stages a workflow drives one by one.
type ResearchSteps interface {
	Begin(ctx context.Context, req research.Request) (research.Pending, error)
	Dispatch(ctx context.Context, p research.Pending) research.Dispatched
	Complete(ctx context.Context, p research.Pending, d research.Dispatched) (models.ResearchRecord, error)
	Fail(ctx context.Context, p research.Pending, d research.Dispatched) (models.ResearchRecord, error)
}

type Activities struct {
	steps       ResearchSteps
	records     research.RecordGetter
	renderer    *render.Renderer
	dataOutRoot string
	log         logrus.FieldLogger
}

func New(steps ResearchSteps, records research.RecordGetter, renderer *render.Renderer, dataOutRoot string, log logrus.FieldLogger) *Activities {
	return &Activities{
		steps:       steps,
		records:     records,
		renderer:    renderer,
		dataOutRoot: dataOutRoot,
		log:         log,
	}
}

func (a *Activities) BeginResearchActivity(ctx context.Context, in BeginResearchInput) (BeginResearchOutput, error) {
	p, err := a.steps.Begin(ctx, in.Request)
	if err != nil {
		if research.IsValidation(err) {
			return BeginResearchOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeValidation, err)
		}
		return BeginResearchOutput{}, err
	}
	return BeginResearchOutput{Pending: p}, nil
}

// DispatchResearchActivity makes the single provider call. Provider failures
// come back inside the output, never as an activity error.
func (a *Activities) DispatchResearchActivity(ctx context.Context, in DispatchResearchInput) (DispatchResearchOutput, error) {
	return DispatchResearchOutput{Dispatched: a.steps.Dispatch(ctx, in.Pending)}, nil
}

func (a *Activities) CompleteResearchActivity(ctx context.Context, in SettleResearchInput) (SettleResearchOutput, error) {
	rec, err := a.steps.Complete(ctx, in.Pending, in.Dispatched)
	return a.settled(ctx, in.Pending.ResearchID, rec, err)
}

func (a *Activities) FailResearchActivity(ctx context.Context, in SettleResearchInput) (SettleResearchOutput, error) {
	rec, err := a.steps.Fail(ctx, in.Pending, in.Dispatched)
	return a.settled(ctx, in.Pending.ResearchID, rec, err)
}

// settled makes retried settle activities idempotent: when an earlier attempt
// already moved the record out of pending, the stored record is the result.
func (a *Activities) settled(ctx context.Context, researchID string, rec models.ResearchRecord, err error) (SettleResearchOutput, error) {
	if err == nil {
		return SettleResearchOutput{Record: rec}, nil
	}
	if !errors.Is(err, storage.ErrRecordTerminal) {
		return SettleResearchOutput{}, err
	}
	stored, getErr := a.records.Get(ctx, researchID)
	if getErr != nil {
		return SettleResearchOutput{}, fmt.Errorf("load settled research %s: %w", researchID, getErr)
	}
	a.log.WithFields(logrus.Fields{
		"research_id": researchID,
		"status":      stored.Status,
	}).Info("research already settled")
	return SettleResearchOutput{Record: stored}, nil
}

// WriteResearchArtifactsActivity exports a settled record as research.json,
// raw.md and memo.html under <out>/<company>/<research>/.
func (a *Activities) WriteResearchArtifactsActivity(ctx context.Context, in WriteResearchArtifactsInput) (WriteResearchArtifactsOutput, error) {
	rec, err := a.records.Get(ctx, in.ResearchID)
	if err != nil {
		return WriteResearchArtifactsOutput{}, fmt.Errorf("load research %s: %w", in.ResearchID, err)
	}
	base := util.SafeJoin(util.SafeJoin(a.dataOutRoot, rec.CompanyID), rec.ResearchID)
	if err := util.EnsureDir(base); err != nil {
		return WriteResearchArtifactsOutput{}, err
	}
	if err := util.WriteJSONAtomic(filepath.Join(base, "research.json"), rec); err != nil {
		return WriteResearchArtifactsOutput{}, err
	}
	if rec.RawText != "" {
		if err := util.WriteTextAtomic(filepath.Join(base, "raw.md"), rec.RawText); err != nil {
			return WriteResearchArtifactsOutput{}, err
		}
	}
	memo := render.HTML(a.renderer.Memo(rec, in.CompanyName))
	if err := util.WriteTextAtomic(filepath.Join(base, "memo.html"), memo); err != nil {
		return WriteResearchArtifactsOutput{}, err
	}
	return WriteResearchArtifactsOutput{Dir: base}, nil
}
