package models

import "time"

type ResearchStatus string

const (
	StatusPending   ResearchStatus = "pending"
	StatusCompleted ResearchStatus = "completed"
	StatusFailed    ResearchStatus = "failed"
)

// Terminal reports whether no further transition is allowed from s.
func (s ResearchStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type ItemKind string

const (
	KindNews    ItemKind = "news"
	KindInsight ItemKind = "insight"
)

type Company struct {
	CompanyID   string    `json:"company_id"`
	Name        string    `json:"name"`
	DeckID      string    `json:"deck_id,omitempty"`
	DeckExcerpt string    `json:"deck_excerpt,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Source struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// StructuredItem is one extracted unit of a research section. Headline is the
// only mandatory field.
type StructuredItem struct {
	Kind     ItemKind `json:"kind,omitempty"`
	Section  string   `json:"section,omitempty"`
	Headline string   `json:"headline"`
	Content  string   `json:"content"`
	Source   string   `json:"source,omitempty"`
	URL      string   `json:"url,omitempty"`
}

type ResearchRecord struct {
	ResearchID       string           `json:"research_id"`
	CompanyID        string           `json:"company_id"`
	Status           ResearchStatus   `json:"status"`
	AssessmentPoints []string         `json:"assessment_points"`
	Provider         string           `json:"provider,omitempty"`
	Model            string           `json:"model,omitempty"`
	RequestedAt      time.Time        `json:"requested_at"`
	CompletedAt      *time.Time       `json:"completed_at,omitempty"`
	RawText          string           `json:"raw_text,omitempty"`
	Sources          []Source         `json:"sources"`
	StructuredItems  []StructuredItem `json:"structured_items"`
	ErrorMessage     string           `json:"error_message,omitempty"`
}

// Items returns the structured items of the given kind, in order.
func (r ResearchRecord) Items(kind ItemKind) []StructuredItem {
	out := make([]StructuredItem, 0, len(r.StructuredItems))
	for _, it := range r.StructuredItems {
		if it.Kind == kind {
			out = append(out, it)
		}
	}
	return out
}

// Section is a located span of research text, heading line included.
type Section struct {
	Name    string `json:"name"`
	RawSpan string `json:"raw_span"`
}
