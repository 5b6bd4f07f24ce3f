package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"investorbase/internal/config"
	"investorbase/internal/providers"
	"investorbase/internal/render"
	"investorbase/internal/research"
	"investorbase/internal/storage"
)

// App holds the collaborators shared by the API, the worker and the CLI.
type App struct {
	Config       config.Config
	Log          *logrus.Logger
	DB           *storage.DB
	Companies    *storage.CompanyRepo
	Research     *storage.ResearchRepo
	Audit        *storage.LLMAuditRepo
	Providers    *providers.Manager
	Orchestrator *research.Orchestrator
	Renderer     *render.Renderer
	Sections     *research.SectionReader
}

func Open(ctx context.Context, cfg config.Config, log *logrus.Logger) (*App, error) {
	dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	db, err := storage.NewDB(dbCtx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	a, err := build(cfg, log, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg config.Config, log *logrus.Logger, db *storage.DB) (*App, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, fmt.Errorf("configure providers: %w", err)
	}
	a := &App{
		Config:    cfg,
		Log:       log,
		DB:        db,
		Companies: storage.NewCompanyRepo(db.Pool),
		Research:  storage.NewResearchRepo(db.Pool),
		Audit:     storage.NewLLMAuditRepo(db.Pool),
		Providers: pm,
		Renderer:  render.NewRenderer(render.DefaultPalette()),
	}
	a.Orchestrator = research.NewOrchestrator(a.Companies, a.Research, a.Audit, pm, research.OptionsFromConfig(cfg), log)
	a.Sections, err = research.NewSectionReader(a.Research, a.Renderer, cfg.SectionCacheSize)
	if err != nil {
		return nil, err
	}
	_, ref := pm.Preferred()
	log.WithFields(logrus.Fields{
		"llm_providers": cfg.LLMProviders,
		"preferred":     ref.String(),
	}).Info("research providers configured")
	return a, nil
}

func (a *App) Close() {
	a.DB.Close()
}
