package research

import (
	"context"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"investorbase/internal/extract"
	"investorbase/internal/models"
	"investorbase/internal/render"
)

type RecordGetter interface {
	Get(ctx context.Context, researchID string) (models.ResearchRecord, error)
}

// SectionView is one section of a stored research record, located, extracted
// and rendered.
type SectionView struct {
	models.Section
	ResearchID string                  `json:"research_id"`
	Status     models.ResearchStatus   `json:"status"`
	Found      bool                    `json:"found"`
	Strategy   string                  `json:"strategy,omitempty"`
	Items      []models.StructuredItem `json:"items"`
	Markup     *render.Node            `json:"markup"`
	HTML       string                  `json:"html"`
}

// SectionReader serves section views. Views of completed records never change
// and are kept in an LRU cache.
type SectionReader struct {
	records  RecordGetter
	renderer *render.Renderer
	cache    *lru.Cache[string, SectionView]
}

func NewSectionReader(records RecordGetter, renderer *render.Renderer, cacheSize int) (*SectionReader, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, SectionView](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create section cache: %w", err)
	}
	return &SectionReader{records: records, renderer: renderer, cache: cache}, nil
}

func (s *SectionReader) Section(ctx context.Context, researchID, name, theme string) (SectionView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SectionView{}, &ValidationError{Field: "section", Reason: "must not be empty"}
	}
	key := strings.ToLower(researchID + "|" + name + "|" + strings.TrimSpace(theme))
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}

	rec, err := s.records.Get(ctx, researchID)
	if err != nil {
		return SectionView{}, fmt.Errorf("load research %s: %w", researchID, err)
	}
	view := SectionView{
		Section:    models.Section{Name: name},
		ResearchID: researchID,
		Status:     rec.Status,
		Items:      []models.StructuredItem{},
	}

	switch rec.Status {
	case models.StatusCompleted:
		view.RawSpan = extract.LocateSection(rec.RawText, name)
		view.Found = view.RawSpan != ""
		view.Items, view.Strategy = extract.ExtractFieldsWithStrategy(view.RawSpan)
		kind := kindFor(name)
		for i := range view.Items {
			view.Items[i].Kind = kind
			view.Items[i].Section = name
		}
		view.Markup = s.renderer.RenderSectionAs(name, view.RawSpan, theme)
	default:
		// Pending and failed records have no sections yet.
		view.Markup = s.renderer.Render("", theme)
	}
	view.HTML = render.HTML(view.Markup)

	if rec.Status == models.StatusCompleted {
		s.cache.Add(key, view)
	}
	return view, nil
}

func kindFor(section string) models.ItemKind {
	switch strings.ToLower(section) {
	case strings.ToLower(extract.SectionNews):
		return models.KindNews
	case strings.ToLower(extract.SectionInsights):
		return models.KindInsight
	}
	return ""
}
