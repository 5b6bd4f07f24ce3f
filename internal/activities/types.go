package activities

import (
	"investorbase/internal/models"
	"investorbase/internal/research"
)

type BeginResearchInput struct {
	Request research.Request `json:"request"`
}

type BeginResearchOutput struct {
	Pending research.Pending `json:"pending"`
}

type DispatchResearchInput struct {
	Pending research.Pending `json:"pending"`
}

type DispatchResearchOutput struct {
	Dispatched research.Dispatched `json:"dispatched"`
}

// SettleResearchInput moves a pending record to its terminal state.
type SettleResearchInput struct {
	Pending    research.Pending    `json:"pending"`
	Dispatched research.Dispatched `json:"dispatched"`
}

type SettleResearchOutput struct {
	Record models.ResearchRecord `json:"record"`
}

type WriteResearchArtifactsInput struct {
	ResearchID  string `json:"research_id"`
	CompanyName string `json:"company_name"`
}

type WriteResearchArtifactsOutput struct {
	Dir string `json:"dir"`
}
