package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/household-budget/internal/bootstrap"
	"github.com/dvloznov/household-budget/internal/config"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/jobs"
	"github.com/dvloznov/household-budget/internal/jobs/inmemory"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/notionsync"
	"github.com/rs/zerolog"
)

// previousMonth is the calendar month before the one containing now.
func previousMonth(now time.Time) domain.DateRange {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return domain.DateRange{
		Start: civil.DateOf(first.AddDate(0, -1, 0)),
		End:   civil.DateOf(first.AddDate(0, 0, -1)),
	}
}

// due reports whether the report for the month before now should go out:
// it is on or after day of the month and that month has not been sent yet.
func due(now time.Time, day int, lastSent civil.Date) bool {
	if now.Day() < day {
		return false
	}
	return lastSent != previousMonth(now).Start
}

// deliveryJobs builds the jobs for one reporting window.
func deliveryJobs(window domain.DateRange, notion bool, retries int) []*jobs.DeliveryJob {
	out := []*jobs.DeliveryJob{{
		Type:       jobs.JobTypeSendReport,
		Start:      window.Start.String(),
		End:        window.End.String(),
		MaxRetries: retries,
	}}
	if notion {
		out = append(out, &jobs.DeliveryJob{
			Type:       jobs.JobTypeExportNotion,
			Start:      window.Start.String(),
			End:        window.End.String(),
			MaxRetries: retries,
		})
	}
	return out
}

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to config.yaml")
	day := flag.Int("day", 1, "Day of the month to send the previous month's report")
	interval := flag.Duration("interval", time.Hour, "How often to check whether a report is due")
	once := flag.Bool("once", false, "Send the previous month's report now and exit")
	retries := flag.Int("retries", 0, "Attempts to repeat a failed delivery, with backoff")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log := bootstrap.Logger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	app, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open budget")
	}
	defer app.Close()

	notion := cfg.Notion.Token != "" && cfg.Notion.DatabaseID != ""
	var exporter jobs.Exporter
	if notion {
		exporter = jobs.NotionExporter(notionsync.NewNotionClient(cfg.Notion.Token), cfg.Notion.DatabaseID)
	}

	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(10, 1, jobStore)

	if err := jobQueue.Start(ctx, jobs.NewDeliveryHandler(app.Service, exporter)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start delivery consumer")
	}

	enqueue := func(window domain.DateRange) bool {
		ok := true
		for _, job := range deliveryJobs(window, notion, *retries) {
			if err := jobQueue.Publish(ctx, job); err != nil {
				log.Error().Err(err).Str("type", string(job.Type)).Msg("Failed to enqueue delivery")
				ok = false
				continue
			}
			log.Info().
				Str("job_id", job.JobID).
				Str("type", string(job.Type)).
				Str("window", window.String()).
				Msg("Delivery enqueued")
		}
		return ok
	}

	if *once {
		enqueue(previousMonth(time.Now()))
		waitForJobs(ctx, jobStore, log)
		shutdown(jobQueue, log)
		return
	}

	log.Info().Int("day", *day).Dur("interval", *interval).Msg("Report worker started, waiting for the next report")

	var lastSent civil.Date
	check := func() {
		now := time.Now()
		if !due(now, *day, lastSent) {
			return
		}
		window := previousMonth(now)
		if enqueue(window) {
			lastSent = window.Start
		}
	}
	check()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			check()
		case <-quit:
			log.Info().Msg("Shutting down report worker...")
			shutdown(jobQueue, log)
			return
		}
	}
}

// waitForJobs polls until nothing is pending, running or retrying.
func waitForJobs(ctx context.Context, store jobs.JobStore, log zerolog.Logger) {
	for {
		all, err := store.ListJobs(ctx, jobs.JobFilter{})
		if err != nil {
			log.Error().Err(err).Msg("Failed to list jobs")
			return
		}
		busy := false
		for _, j := range all {
			switch j.Status {
			case jobs.JobStatusCompleted:
			case jobs.JobStatusFailed:
				log.Error().Str("job_id", j.JobID).Str("type", string(j.Type)).Str("error", j.Error).Msg("Delivery failed")
			default:
				busy = true
			}
		}
		if !busy {
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func shutdown(q *inmemory.Queue, log zerolog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop the queue and wait for in-flight jobs
	if err := q.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}
	log.Info().Msg("Report worker exited")
}
