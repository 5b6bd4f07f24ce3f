package workflows

import (
	"errors"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"investorbase/internal/activities"
	"investorbase/internal/models"
	"investorbase/internal/research"
)

const (
	QueryGetResearchStatus = "GetResearchStatus"
	QueryGetProgress       = "GetProgress"
)

const (
	defaultDispatchTimeout = 5 * time.Minute
	// dispatchMargin covers rate limiter waits and the audit write around
	// the provider call.
	dispatchMargin = time.Minute
)

const (
	statusProcessing = "processing"
	statusRejected   = "rejected"
	stepDone         = "done"
)

// ResearchWorkflowID is the workflow id used for a research record started
// through the API.
func ResearchWorkflowID(researchID string) string {
	return "research-" + sanitizeID(researchID)
}

// DispatchTimeout is the start-to-close timeout of the provider activity for
// a provider call bounded by providerTimeout.
func DispatchTimeout(providerTimeout time.Duration) time.Duration {
	if providerTimeout <= 0 {
		return defaultDispatchTimeout
	}
	return providerTimeout + dispatchMargin
}

func ResearchWorkflow(ctx workflow.Context, input ResearchInput) (string, error) {
	status := ResearchStatus{
		CompanyID:   input.Request.CompanyID,
		CurrentStep: "init",
		Status:      statusProcessing,
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetResearchStatus, func() (ResearchStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	// The provider is called exactly once per record; its own timeout bounds
	// the call inside the activity.
	dispatchTimeout := input.DispatchTimeout
	if dispatchTimeout <= 0 {
		dispatchTimeout = defaultDispatchTimeout
	}
	dispatchCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: dispatchTimeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var pending research.Pending
	if input.Pending != nil {
		pending = *input.Pending
	} else {
		status.CurrentStep = "begin"
		status.Steps[status.CurrentStep] = statusProcessing
		var beginOut activities.BeginResearchOutput
		if err := workflow.ExecuteActivity(ctx, "BeginResearchActivity", activities.BeginResearchInput{Request: input.Request}).Get(ctx, &beginOut); err != nil {
			if isValidationError(err) {
				status.Status = statusRejected
				status.FailReason = err.Error()
				status.Steps[status.CurrentStep] = string(models.StatusFailed)
				return status.Status, nil
			}
			return "", err
		}
		pending = beginOut.Pending
		status.Steps[status.CurrentStep] = stepDone
	}
	status.ResearchID = pending.ResearchID
	status.CompanyID = pending.CompanyID

	status.CurrentStep = "dispatch"
	status.Steps[status.CurrentStep] = statusProcessing
	var dispatchOut activities.DispatchResearchOutput
	if err := workflow.ExecuteActivity(dispatchCtx, "DispatchResearchActivity", activities.DispatchResearchInput{Pending: pending}).Get(ctx, &dispatchOut); err != nil {
		// The worker died mid-call; the record must still leave pending.
		dispatchOut.Dispatched = research.Dispatched{ResearchID: pending.ResearchID, Provider: pending.Provider, Error: "research dispatch failed: " + err.Error()}
	}
	d := dispatchOut.Dispatched
	status.Provider = d.Provider
	status.Steps[status.CurrentStep] = stepDone

	var settled activities.SettleResearchOutput
	if d.Error == "" {
		status.CurrentStep = "complete"
		status.Steps[status.CurrentStep] = statusProcessing
		err := workflow.ExecuteActivity(ctx, "CompleteResearchActivity", activities.SettleResearchInput{Pending: pending, Dispatched: d}).Get(ctx, &settled)
		if err == nil {
			status.Steps[status.CurrentStep] = stepDone
		} else {
			status.Steps[status.CurrentStep] = string(models.StatusFailed)
			d.Error = "store research result: " + err.Error()
		}
	}
	if d.Error != "" {
		status.CurrentStep = "fail"
		status.Steps[status.CurrentStep] = statusProcessing
		if err := workflow.ExecuteActivity(ctx, "FailResearchActivity", activities.SettleResearchInput{Pending: pending, Dispatched: d}).Get(ctx, &settled); err != nil {
			return "", err
		}
		status.Steps[status.CurrentStep] = stepDone
	}
	status.Status = string(settled.Record.Status)
	status.FailReason = settled.Record.ErrorMessage

	if input.WriteArtifacts {
		status.CurrentStep = "write_artifacts"
		status.Steps[status.CurrentStep] = statusProcessing
		err := workflow.ExecuteActivity(ctx, "WriteResearchArtifactsActivity", activities.WriteResearchArtifactsInput{
			ResearchID:  pending.ResearchID,
			CompanyName: pending.CompanyName,
		}).Get(ctx, nil)
		if err != nil {
			// Artifacts are a convenience copy; the record is already settled.
			status.Steps[status.CurrentStep] = string(models.StatusFailed)
		} else {
			status.Steps[status.CurrentStep] = stepDone
		}
	}
	status.CurrentStep = stepDone
	return status.Status, nil
}

// PortfolioResearchWorkflow researches several companies with the same
// assessment points, a bounded number of child workflows at a time.
func PortfolioResearchWorkflow(ctx workflow.Context, input PortfolioResearchInput) (string, error) {
	progress := PortfolioProgress{
		BatchID:       input.BatchID,
		Total:         len(input.CompanyIDs),
		PerCompany:    map[string]string{},
		ChildWorkflow: map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (PortfolioProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	maxChildren := input.MaxConcurrentChildren
	if maxChildren <= 0 {
		maxChildren = 3
	}
	ids := input.CompanyIDs
	for i := 0; i < len(ids); i += maxChildren {
		end := i + maxChildren
		if end > len(ids) {
			end = len(ids)
		}
		futures := make([]workflow.ChildWorkflowFuture, 0, end-i)
		for _, companyID := range ids[i:end] {
			progress.PerCompany[companyID] = statusProcessing
			workflowID := "research-" + sanitizeID(input.BatchID) + "-" + sanitizeID(companyID)
			childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{WorkflowID: workflowID})
			futures = append(futures, workflow.ExecuteChildWorkflow(childCtx, ResearchWorkflow, ResearchInput{
				Request: research.Request{
					CompanyID:        companyID,
					AssessmentPoints: input.AssessmentPoints,
					Provider:         input.Provider,
				},
				WriteArtifacts:  input.WriteArtifacts,
				DispatchTimeout: input.DispatchTimeout,
			}))
			progress.ChildWorkflow[companyID] = workflowID
		}

		for idx, f := range futures {
			companyID := ids[i+idx]
			var childStatus string
			if err := f.Get(ctx, &childStatus); err != nil {
				progress.Failed++
				progress.PerCompany[companyID] = string(models.StatusFailed)
				continue
			}
			if childStatus != string(models.StatusCompleted) {
				progress.Failed++
			}
			progress.Done++
			progress.PerCompany[companyID] = childStatus
		}
	}
	return string(models.StatusCompleted), nil
}

func isValidationError(err error) bool {
	var appErr *temporal.ApplicationError
	return errors.As(err, &appErr) && appErr.Type() == activities.ErrTypeValidation
}

func sanitizeID(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}
