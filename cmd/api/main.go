package main

import (
	"context"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	tclient "go.temporal.io/sdk/client"

	"investorbase/internal/api"
	"investorbase/internal/app"
	"investorbase/internal/config"
	"investorbase/internal/logging"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	log, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		panic(err)
	}

	a, err := app.Open(context.Background(), cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open app")
	}
	defer a.Close()

	deps := api.Deps{
		Config:    cfg,
		Companies: a.Companies,
		Research:  a.Research,
		Runner:    a.Orchestrator,
		Sections:  a.Sections,
		Renderer:  a.Renderer,
		Log:       log,
	}
	if cfg.AsyncResearch {
		tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
		if err != nil {
			log.WithError(err).Fatal("dial temporal")
		}
		defer tc.Close()
		deps.Temporal = tc
	}

	log.WithFields(logrus.Fields{
		"addr":  cfg.APIAddr,
		"async": cfg.AsyncResearch,
	}).Info("investorbase api listening")
	if err := http.ListenAndServe(cfg.APIAddr, api.NewServer(deps).Routes()); err != nil {
		log.WithError(err).Fatal("api server stopped")
	}
}
