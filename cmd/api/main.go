package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/household-budget/internal/api"
	"github.com/dvloznov/household-budget/internal/bootstrap"
	"github.com/dvloznov/household-budget/internal/config"
	"github.com/dvloznov/household-budget/internal/jobs"
	"github.com/dvloznov/household-budget/internal/jobs/inmemory"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/notionsync"
	"github.com/dvloznov/household-budget/internal/session"
)

// sessionTTL is how long an abandoned import or edit session is kept.
const sessionTTL = 2 * time.Hour

func main() {
	var (
		configPath = flag.String("config", config.DefaultPath(), "Path to config.yaml")
		workers    = flag.Int("workers", 1, "Number of delivery workers")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	log := bootstrap.Logger(cfg.Log)
	ctx := logger.WithContext(context.Background(), log)

	if cfg.API.Password == "" {
		log.Warn().Msg("No API password configured - the API is open to anyone who can reach it")
	}

	app, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open budget")
	}
	defer app.Close()

	// Delivery jobs
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, *workers, jobStore)

	var exporter jobs.Exporter
	if cfg.Notion.Token != "" && cfg.Notion.DatabaseID != "" {
		exporter = jobs.NotionExporter(notionsync.NewNotionClient(cfg.Notion.Token), cfg.Notion.DatabaseID)
	} else {
		log.Warn().Msg("No Notion token or database configured - Notion export jobs will fail")
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		log.Info().Int("workers", *workers).Msg("Starting delivery worker")
		if err := jobQueue.Start(workerCtx, jobs.NewDeliveryHandler(app.Service, exporter)); err != nil {
			log.Error().Err(err).Msg("Delivery worker stopped with error")
		}
	}()

	sessions := session.NewManager()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				if n := sessions.Prune(sessionTTL); n > 0 {
					log.Info().Int("sessions", n).Msg("Pruned idle sessions")
				}
			}
		}
	}()

	handler := api.NewRouter(api.Deps{
		Service:   app.Service,
		Sessions:  sessions,
		Publisher: jobQueue,
		JobStore:  jobStore,
		Suggest:   cfg.Suggest,
		Password:  cfg.API.Password,
		Logger:    log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.API.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.API.Port).Str("store", cfg.Store.Backend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Let queued deliveries finish before the worker context goes away.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping delivery queue")
	}
	cancelWorker()

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close delivery queue")
	}

	log.Info().Msg("Server exited")
}
