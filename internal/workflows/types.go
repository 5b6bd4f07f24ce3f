package workflows

import (
	"time"

	"investorbase/internal/research"
)

// ResearchInput starts a research workflow. When Pending is set the caller
// already created the pending record and the workflow starts at dispatch.
// DispatchTimeout bounds the provider activity; zero uses the default.
type ResearchInput struct {
	Request         research.Request  `json:"request"`
	Pending         *research.Pending `json:"pending,omitempty"`
	WriteArtifacts  bool              `json:"write_artifacts,omitempty"`
	DispatchTimeout time.Duration     `json:"dispatch_timeout,omitempty"`
}

type ResearchStatus struct {
	ResearchID  string            `json:"research_id"`
	CompanyID   string            `json:"company_id"`
	CurrentStep string            `json:"current_step"`
	Status      string            `json:"status"`
	Provider    string            `json:"provider,omitempty"`
	FailReason  string            `json:"fail_reason,omitempty"`
	Steps       map[string]string `json:"steps"`
}

type PortfolioResearchInput struct {
	BatchID               string        `json:"batch_id"`
	CompanyIDs            []string      `json:"company_ids"`
	AssessmentPoints      []string      `json:"assessment_points"`
	Provider              string        `json:"provider,omitempty"`
	MaxConcurrentChildren int           `json:"max_concurrent_children"`
	WriteArtifacts        bool          `json:"write_artifacts,omitempty"`
	DispatchTimeout       time.Duration `json:"dispatch_timeout,omitempty"`
}

type PortfolioProgress struct {
	BatchID       string            `json:"batch_id"`
	Total         int               `json:"total"`
	Done          int               `json:"done"`
	Failed        int               `json:"failed"`
	PerCompany    map[string]string `json:"per_company_status"`
	ChildWorkflow map[string]string `json:"child_workflow_ids,omitempty"`
}
