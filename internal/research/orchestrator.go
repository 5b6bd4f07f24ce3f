package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"investorbase/internal/config"
	"investorbase/internal/extract"
	"investorbase/internal/models"
	"investorbase/internal/providers"
	"investorbase/internal/storage"
	"investorbase/internal/util"
)

const operationResearch = "research"

type CompanyStore interface {
	GetCompany(ctx context.Context, companyID string) (models.Company, error)
}

type RecordStore interface {
	CreatePending(ctx context.Context, rec models.ResearchRecord) error
	Complete(ctx context.Context, researchID string, c storage.Completion) error
	Fail(ctx context.Context, researchID, message, provider, model string) error
	Get(ctx context.Context, researchID string) (models.ResearchRecord, error)
}

type Auditor interface {
	Insert(ctx context.Context, rec storage.LLMCallRecord) error
}

type ProviderSource interface {
	Preferred() (providers.LLMProvider, providers.ProviderRef)
	FindLLMProviderByName(name string) (providers.LLMProvider, providers.ProviderRef, bool)
}

type Options struct {
	Temperature        float64
	MaxTokens          int
	Recency            string
	Timeout            time.Duration
	SerializeByCompany bool
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Temperature:        cfg.ResearchTemp,
		MaxTokens:          cfg.ResearchMaxTokens,
		Recency:            cfg.ResearchRecency,
		Timeout:            cfg.ProviderTimeout,
		SerializeByCompany: cfg.SerializeByCompany,
	}
}

// Request asks for research on one company. Provider optionally names a
// configured provider instead of the preferred one.
type Request struct {
	CompanyID        string   `json:"company_id"`
	AssessmentPoints []string `json:"assessment_points"`
	Provider         string   `json:"provider,omitempty"`
}

// Pending is a validated request with its freshly created pending record.
type Pending struct {
	ResearchID       string    `json:"research_id"`
	CompanyID        string    `json:"company_id"`
	CompanyName      string    `json:"company_name"`
	DeckExcerpt      string    `json:"deck_excerpt,omitempty"`
	AssessmentPoints []string  `json:"assessment_points"`
	Provider         string    `json:"provider,omitempty"`
	RequestedAt      time.Time `json:"requested_at"`
}

// Dispatched is the outcome of the single provider call. Error is set instead
// of Text when the call failed; a failed call is data, not an error.
type Dispatched struct {
	ResearchID string   `json:"research_id"`
	Provider   string   `json:"provider"`
	Model      string   `json:"model"`
	Text       string   `json:"text,omitempty"`
	Citations  []string `json:"citations,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type Orchestrator struct {
	companies CompanyStore
	records   RecordStore
	audit     Auditor
	providers ProviderSource
	opts      Options
	log       logrus.FieldLogger
	locks     *keyedMutex

	now   func() time.Time
	newID func() string
}

func NewOrchestrator(companies CompanyStore, records RecordStore, audit Auditor, ps ProviderSource, opts Options, log logrus.FieldLogger) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}
	o := &Orchestrator{
		companies: companies,
		records:   records,
		audit:     audit,
		providers: ps,
		opts:      opts,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	if opts.SerializeByCompany {
		o.locks = newKeyedMutex()
	}
	return o
}

// RequestResearch runs a research request end to end. The error is non-nil
// only for validation and storage failures; a provider failure yields a
// failed record.
func (o *Orchestrator) RequestResearch(ctx context.Context, companyID string, assessmentPoints []string) (models.ResearchRecord, error) {
	return o.Run(ctx, Request{CompanyID: companyID, AssessmentPoints: assessmentPoints})
}

func (o *Orchestrator) Run(ctx context.Context, req Request) (models.ResearchRecord, error) {
	if o.locks != nil {
		unlock := o.locks.Lock(strings.TrimSpace(req.CompanyID))
		defer unlock()
	}
	p, err := o.Begin(ctx, req)
	if err != nil {
		return models.ResearchRecord{}, err
	}
	d := o.Dispatch(ctx, p)

	// The terminal write must land even if the caller went away.
	persistCtx := context.WithoutCancel(ctx)
	if d.Error != "" {
		return o.Fail(persistCtx, p, d)
	}
	rec, err := o.Complete(persistCtx, p, d)
	if err == nil || errors.Is(err, storage.ErrRecordTerminal) {
		return rec, err
	}
	d.Error = "store research result: " + err.Error()
	failed, ferr := o.Fail(persistCtx, p, d)
	if ferr != nil {
		return models.ResearchRecord{}, fmt.Errorf("complete research %s: %w", p.ResearchID, err)
	}
	return failed, fmt.Errorf("complete research %s: %w", p.ResearchID, err)
}

// Begin validates the request and creates the pending record.
func (o *Orchestrator) Begin(ctx context.Context, req Request) (Pending, error) {
	companyID := strings.TrimSpace(req.CompanyID)
	if companyID == "" {
		return Pending{}, &ValidationError{Field: "company_id", Reason: "must not be empty"}
	}
	points := make([]string, 0, len(req.AssessmentPoints))
	for _, p := range req.AssessmentPoints {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		return Pending{}, &ValidationError{Field: "assessment_points", Reason: "at least one non-blank point is required"}
	}
	providerName := strings.TrimSpace(req.Provider)
	if providerName != "" {
		if _, _, ok := o.providers.FindLLMProviderByName(providerName); !ok {
			return Pending{}, &ValidationError{Field: "provider", Reason: fmt.Sprintf("%q is not configured", providerName)}
		}
	}

	company, err := o.companies.GetCompany(ctx, companyID)
	if errors.Is(err, storage.ErrNotFound) {
		return Pending{}, fmt.Errorf("%w: %s", ErrCompanyNotFound, companyID)
	}
	if err != nil {
		return Pending{}, fmt.Errorf("lookup company: %w", err)
	}

	p := Pending{
		ResearchID:       o.newID(),
		CompanyID:        companyID,
		CompanyName:      company.Name,
		DeckExcerpt:      company.DeckExcerpt,
		AssessmentPoints: points,
		Provider:         providerName,
		RequestedAt:      o.now(),
	}
	err = o.records.CreatePending(ctx, models.ResearchRecord{
		ResearchID:       p.ResearchID,
		CompanyID:        p.CompanyID,
		Status:           models.StatusPending,
		AssessmentPoints: p.AssessmentPoints,
		Provider:         providerName,
		RequestedAt:      p.RequestedAt,
	})
	if err != nil {
		return Pending{}, fmt.Errorf("create research record: %w", err)
	}
	o.log.WithFields(logrus.Fields{
		"research_id": p.ResearchID,
		"company_id":  p.CompanyID,
		"points":      len(points),
	}).Info("research requested")
	return p, nil
}

// Dispatch makes exactly one provider call for p under the configured timeout.
func (o *Orchestrator) Dispatch(ctx context.Context, p Pending) Dispatched {
	provider, ref := o.providers.Preferred()
	if p.Provider != "" {
		if named, namedRef, ok := o.providers.FindLLMProviderByName(p.Provider); ok {
			provider, ref = named, namedRef
		}
	}
	d := Dispatched{ResearchID: p.ResearchID, Provider: ref.String()}
	logger := o.log.WithFields(logrus.Fields{
		"research_id": p.ResearchID,
		"company_id":  p.CompanyID,
		"provider":    d.Provider,
	})

	callCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()
	temperature := o.opts.Temperature
	start := time.Now()
	resp, info, err := provider.Generate(callCtx, providers.GenerateRequest{
		Operation:     operationResearch,
		System:        systemPrompt,
		Prompt:        BuildPrompt(p.CompanyName, p.AssessmentPoints, p.DeckExcerpt),
		Temperature:   &temperature,
		MaxTokens:     o.opts.MaxTokens,
		SearchRecency: o.opts.Recency,
	})
	latency := time.Since(start)
	d.Model = info.Model

	if err == nil && strings.TrimSpace(extract.Clean(resp.Text)) == "" {
		err = fmt.Errorf("%s returned no research content: %w", d.Provider, providers.ErrShape)
	}
	o.recordCall(ctx, p, d, latency, err)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			d.Error = fmt.Sprintf("research provider %s timed out after %s: %v", d.Provider, o.opts.Timeout, err)
		} else {
			d.Error = fmt.Sprintf("research provider %s failed: %v", d.Provider, err)
		}
		logger.WithError(err).WithField("error_type", providers.ClassifyError(err)).Warn("research provider call failed")
		return d
	}
	d.Text = resp.Text
	d.Citations = resp.Citations
	logger.WithField("latency_ms", latency.Milliseconds()).Info("research provider call completed")
	return d
}

// Complete derives the structured collections from a successful call and
// persists them together with the raw text.
func (o *Orchestrator) Complete(ctx context.Context, p Pending, d Dispatched) (models.ResearchRecord, error) {
	raw := util.StripNUL(d.Text)
	cleaned := extract.Clean(raw)

	var news, insights []models.StructuredItem
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		news = sectionItems(cleaned, extract.SectionNews, models.KindNews)
		return gctx.Err()
	})
	g.Go(func() error {
		insights = sectionItems(cleaned, extract.SectionInsights, models.KindInsight)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return models.ResearchRecord{}, fmt.Errorf("extract research sections: %w", err)
	}

	items := make([]models.StructuredItem, 0, len(news)+len(insights))
	items = append(items, news...)
	items = append(items, insights...)
	sources := extract.HarvestSources(cleaned, items, d.Citations)
	completedAt := o.now()

	err := o.records.Complete(ctx, p.ResearchID, storage.Completion{
		RawText:     raw,
		Items:       items,
		Sources:     sources,
		Provider:    d.Provider,
		Model:       d.Model,
		CompletedAt: completedAt,
	})
	if err != nil {
		return models.ResearchRecord{}, fmt.Errorf("store completed research: %w", err)
	}
	o.log.WithFields(logrus.Fields{
		"research_id": p.ResearchID,
		"company_id":  p.CompanyID,
		"news":        len(news),
		"insights":    len(insights),
		"sources":     len(sources),
	}).Info("research completed")

	return models.ResearchRecord{
		ResearchID:       p.ResearchID,
		CompanyID:        p.CompanyID,
		Status:           models.StatusCompleted,
		AssessmentPoints: p.AssessmentPoints,
		Provider:         d.Provider,
		Model:            d.Model,
		RequestedAt:      p.RequestedAt,
		CompletedAt:      &completedAt,
		RawText:          raw,
		Sources:          sources,
		StructuredItems:  items,
	}, nil
}

// Fail records d.Error on the pending record.
func (o *Orchestrator) Fail(ctx context.Context, p Pending, d Dispatched) (models.ResearchRecord, error) {
	msg := strings.TrimSpace(d.Error)
	if msg == "" {
		msg = "research failed"
	}
	if err := o.records.Fail(ctx, p.ResearchID, msg, d.Provider, d.Model); err != nil {
		return models.ResearchRecord{}, fmt.Errorf("store failed research: %w", err)
	}
	o.log.WithFields(logrus.Fields{
		"research_id": p.ResearchID,
		"company_id":  p.CompanyID,
		"provider":    d.Provider,
	}).Warn("research failed")

	return models.ResearchRecord{
		ResearchID:       p.ResearchID,
		CompanyID:        p.CompanyID,
		Status:           models.StatusFailed,
		AssessmentPoints: p.AssessmentPoints,
		Provider:         d.Provider,
		Model:            d.Model,
		RequestedAt:      p.RequestedAt,
		Sources:          []models.Source{},
		StructuredItems:  []models.StructuredItem{},
		ErrorMessage:     msg,
	}, nil
}

func (o *Orchestrator) recordCall(ctx context.Context, p Pending, d Dispatched, latency time.Duration, callErr error) {
	if o.audit == nil {
		return
	}
	status := "ok"
	if callErr != nil {
		status = "failed"
	}
	err := o.audit.Insert(context.WithoutCancel(ctx), storage.LLMCallRecord{
		Operation:    operationResearch,
		ResearchID:   p.ResearchID,
		CompanyID:    p.CompanyID,
		ProviderName: d.Provider,
		Model:        d.Model,
		Status:       status,
		ErrorType:    string(providers.ClassifyError(callErr)),
		LatencyMS:    latency.Milliseconds(),
	})
	if err != nil {
		o.log.WithError(err).WithField("research_id", p.ResearchID).Warn("llm call audit failed")
	}
}

func sectionItems(text, section string, kind models.ItemKind) []models.StructuredItem {
	items := extract.ExtractFields(extract.LocateSection(text, section))
	for i := range items {
		items[i].Kind = kind
		items[i].Section = section
	}
	return items
}
