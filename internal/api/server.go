package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"

	"investorbase/internal/config"
	"investorbase/internal/deck"
	"investorbase/internal/extract"
	"investorbase/internal/models"
	"investorbase/internal/render"
	"investorbase/internal/research"
	"investorbase/internal/util"
	"investorbase/internal/workflows"
)

const maxDeckBytes = 64 << 20

type CompanyStore interface {
	CreateCompany(ctx context.Context, c models.Company) error
	GetCompany(ctx context.Context, companyID string) (models.Company, error)
	ListCompanies(ctx context.Context) ([]models.Company, error)
	UpdateDeck(ctx context.Context, companyID, deckID, excerpt string) error
}

type ResearchStore interface {
	Get(ctx context.Context, researchID string) (models.ResearchRecord, error)
	ListByCompany(ctx context.Context, companyID string, limit int) ([]models.ResearchRecord, error)
}

type ResearchRunner interface {
	Run(ctx context.Context, req research.Request) (models.ResearchRecord, error)
	Begin(ctx context.Context, req research.Request) (research.Pending, error)
	Fail(ctx context.Context, p research.Pending, d research.Dispatched) (models.ResearchRecord, error)
}

type SectionSource interface {
	Section(ctx context.Context, researchID, name, theme string) (research.SectionView, error)
}

// WorkflowClient is the part of the Temporal client the API uses.
type WorkflowClient interface {
	ExecuteWorkflow(ctx context.Context, options tclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tclient.WorkflowRun, error)
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...interface{}) (converter.EncodedValue, error)
}

// Deps are the collaborators of the HTTP layer. Temporal may be nil, in which
// case research always runs inline.
type Deps struct {
	Config    config.Config
	Companies CompanyStore
	Research  ResearchStore
	Runner    ResearchRunner
	Sections  SectionSource
	Renderer  *render.Renderer
	Temporal  WorkflowClient
	Log       logrus.FieldLogger
}

type Server struct {
	Deps
}

func NewServer(d Deps) *Server {
	return &Server{Deps: d}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.Log))
	r.Use(middleware.Recoverer)
	r.Use(withCORS)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
	})

	r.Get("/healthz", s.handleHealthz)
	r.Route("/companies", func(r chi.Router) {
		r.Get("/", s.handleListCompanies)
		r.Post("/", s.handleCreateCompany)
		r.Route("/{companyID}", func(r chi.Router) {
			r.Get("/", s.handleGetCompany)
			r.Post("/deck", s.handleDeckUpload)
			r.Post("/research", s.handleRequestResearch)
			r.Get("/research", s.handleListResearch)
		})
	})
	r.Route("/research/{researchID}", func(r chi.Router) {
		r.Get("/", s.handleGetResearch)
		r.Get("/progress", s.handleProgress)
		r.Get("/sections/{section}", s.handleSection)
		r.Get("/memo", s.handleMemo)
	})
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type companyView struct {
	models.Company
	DeckSnippet string `json:"deck_snippet,omitempty"`
}

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := s.Companies.ListCompanies(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]companyView, 0, len(companies))
	for _, c := range companies {
		v := companyView{Company: c, DeckSnippet: util.DisplaySnippet(c.DeckExcerpt, 160)}
		v.DeckExcerpt = ""
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"companies": out})
}

func (s *Server) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyID string `json:"company_id"`
		Name      string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}
	companyID := strings.TrimSpace(req.CompanyID)
	if companyID == "" {
		companyID = uuid.NewString()
	}
	c := models.Company{CompanyID: companyID, Name: req.Name}
	if err := s.Companies.CreateCompany(r.Context(), c); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"company_id": companyID, "name": req.Name})
}

func (s *Server) handleGetCompany(w http.ResponseWriter, r *http.Request) {
	c, err := s.Companies.GetCompany(r.Context(), chi.URLParam(r, "companyID"))
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeckUpload(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	if _, err := s.Companies.GetCompany(r.Context(), companyID); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxDeckBytes)
	if err := r.ParseMultipartForm(maxDeckBytes); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	fh, ok := deckFile(r.MultipartForm.File)
	if !ok {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}
	b, err := readUpload(fh)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	d, err := deck.FromBytes(b, s.Config.DeckExcerptRunes)
	if err != nil {
		if errors.Is(err, deck.ErrNoExtractableText) {
			writeErr(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	path, err := deck.Archive(s.Config.DataInRoot, companyID, fh.Filename, b)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.Companies.UpdateDeck(r.Context(), companyID, d.DeckID, d.Excerpt); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	s.Log.WithFields(logrus.Fields{
		"company_id": companyID,
		"deck_id":    d.DeckID,
		"path":       path,
	}).Info("deck stored")
	writeJSON(w, http.StatusOK, map[string]any{
		"company_id":    companyID,
		"deck_id":       d.DeckID,
		"excerpt_runes": len([]rune(d.Excerpt)),
	})
}

type researchRequest struct {
	AssessmentPoints []string `json:"assessment_points"`
	Provider         string   `json:"provider,omitempty"`
}

func (s *Server) handleRequestResearch(w http.ResponseWriter, r *http.Request) {
	var body researchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req := research.Request{
		CompanyID:        chi.URLParam(r, "companyID"),
		AssessmentPoints: body.AssessmentPoints,
		Provider:         body.Provider,
	}
	if s.Config.AsyncResearch && s.Temporal != nil {
		s.startResearch(w, r, req)
		return
	}
	rec, err := s.Runner.Run(r.Context(), req)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// startResearch validates and creates the pending record inline, then hands
// the provider call to the research workflow.
func (s *Server) startResearch(w http.ResponseWriter, r *http.Request, req research.Request) {
	p, err := s.Runner.Begin(r.Context(), req)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	we, err := s.Temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       workflows.ResearchWorkflowID(p.ResearchID),
		TaskQueue:                                s.Config.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.ResearchWorkflow, workflows.ResearchInput{
		Pending:         &p,
		WriteArtifacts:  true,
		DispatchTimeout: workflows.DispatchTimeout(s.Config.ProviderTimeout),
	})
	if err != nil {
		// Nothing will ever settle the record otherwise.
		if _, ferr := s.Runner.Fail(context.WithoutCancel(r.Context()), p, research.Dispatched{
			ResearchID: p.ResearchID,
			Provider:   p.Provider,
			Error:      "start research workflow: " + err.Error(),
		}); ferr != nil {
			s.Log.WithError(ferr).WithFields(logrus.Fields{
				"research_id": p.ResearchID,
				"company_id":  p.CompanyID,
			}).Error("research record left pending after workflow start failure")
		}
		writeErr(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"research_id": p.ResearchID,
		"status":      models.StatusPending,
		"workflow_id": we.GetID(),
		"run_id":      we.GetRunID(),
	})
}

type researchSummary struct {
	ResearchID   string                `json:"research_id"`
	Status       models.ResearchStatus `json:"status"`
	Provider     string                `json:"provider,omitempty"`
	RequestedAt  time.Time             `json:"requested_at"`
	CompletedAt  *time.Time            `json:"completed_at,omitempty"`
	Summary      string                `json:"summary,omitempty"`
	NewsCount    int                   `json:"news_count"`
	InsightCount int                   `json:"insight_count"`
	SourceCount  int                   `json:"source_count"`
	ErrorMessage string                `json:"error_message,omitempty"`
}

func (s *Server) handleListResearch(w http.ResponseWriter, r *http.Request) {
	companyID := chi.URLParam(r, "companyID")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := s.Research.ListByCompany(r.Context(), companyID, limit)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	out := make([]researchSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, s.summarize(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{"company_id": companyID, "research": out})
}

func (s *Server) summarize(rec models.ResearchRecord) researchSummary {
	sum := researchSummary{
		ResearchID:   rec.ResearchID,
		Status:       rec.Status,
		Provider:     rec.Provider,
		RequestedAt:  rec.RequestedAt,
		CompletedAt:  rec.CompletedAt,
		NewsCount:    len(rec.Items(models.KindNews)),
		InsightCount: len(rec.Items(models.KindInsight)),
		SourceCount:  len(rec.Sources),
		ErrorMessage: rec.ErrorMessage,
	}
	if span := extract.LocateSection(rec.RawText, extract.SectionSummary); span != "" {
		sum.Summary = util.DisplaySnippet(s.Renderer.RenderSection(extract.SectionSummary, span).PlainText(), 240)
	}
	return sum
}

func (s *Server) handleGetResearch(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Research.Get(r.Context(), chi.URLParam(r, "researchID"))
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	researchID := chi.URLParam(r, "researchID")
	if s.Temporal != nil {
		resp, err := s.Temporal.QueryWorkflow(r.Context(), workflows.ResearchWorkflowID(researchID), "", workflows.QueryGetResearchStatus)
		if err == nil {
			var st workflows.ResearchStatus
			if err := resp.Get(&st); err != nil {
				writeErr(w, http.StatusInternalServerError, err)
				return
			}
			writeJSON(w, http.StatusOK, st)
			return
		}
	}
	// No queryable workflow: derive progress from the stored record.
	rec, err := s.Research.Get(r.Context(), researchID)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	step := "done"
	if !rec.Status.Terminal() {
		step = "dispatch"
	}
	writeJSON(w, http.StatusOK, workflows.ResearchStatus{
		ResearchID:  rec.ResearchID,
		CompanyID:   rec.CompanyID,
		CurrentStep: step,
		Status:      string(rec.Status),
		Provider:    rec.Provider,
		FailReason:  rec.ErrorMessage,
		Steps:       map[string]string{},
	})
}

func (s *Server) handleSection(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "section"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid section name: %w", err))
		return
	}
	view, err := s.Sections.Section(r.Context(), chi.URLParam(r, "researchID"), name, r.URL.Query().Get("theme"))
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	if strings.EqualFold(r.URL.Query().Get("format"), "html") {
		writeHTML(w, http.StatusOK, view.HTML)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleMemo(w http.ResponseWriter, r *http.Request) {
	rec, err := s.Research.Get(r.Context(), chi.URLParam(r, "researchID"))
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	name := ""
	if c, err := s.Companies.GetCompany(r.Context(), rec.CompanyID); err == nil {
		name = c.Name
	}
	writeHTML(w, http.StatusOK, render.HTML(s.Renderer.Memo(rec, name)))
}

func deckFile(m map[string][]*multipart.FileHeader) (*multipart.FileHeader, bool) {
	if fs := m["file"]; len(fs) > 0 {
		return fs[0], true
	}
	for _, v := range m {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return b, nil
}
