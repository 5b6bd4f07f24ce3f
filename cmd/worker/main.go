package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"investorbase/internal/activities"
	"investorbase/internal/app"
	"investorbase/internal/config"
	"investorbase/internal/logging"
	"investorbase/internal/workflows"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	log, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		panic(err)
	}

	c, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.WithError(err).Fatal("dial temporal")
	}
	defer c.Close()

	a, err := app.Open(context.Background(), cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open app")
	}
	defer a.Close()

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(a.Orchestrator, a.Research, a.Renderer, cfg.DataOutRoot, log))

	log.WithFields(logrus.Fields{
		"temporal":      cfg.TemporalAddress,
		"queue":         cfg.TemporalTaskQueue,
		"llm_providers": cfg.LLMProviders,
	}).Info("investorbase worker listening")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.WithError(err).Fatal("worker stopped")
	}
}
