package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/household-budget/internal/bootstrap"
	"github.com/dvloznov/household-budget/internal/config"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/notionsync"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "Path to config.yaml")
	startDateStr := flag.String("start-date", "", "Start date in YYYY-MM-DD format (required)")
	endDateStr := flag.String("end-date", "", "End date in YYYY-MM-DD format (required)")
	notionToken := flag.String("notion-token", "", "Notion API token (defaults to config / NOTION_TOKEN)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (defaults to config)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log := bootstrap.Logger(cfg.Log)

	if *notionToken == "" {
		*notionToken = cfg.Notion.Token
	}
	if *notionDBID == "" {
		*notionDBID = cfg.Notion.DatabaseID
	}

	if *startDateStr == "" {
		log.Fatal().Msg("Error: --start-date is required")
	}
	if *endDateStr == "" {
		log.Fatal().Msg("Error: --end-date is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	startDate, err := civil.ParseDate(*startDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("start_date", *startDateStr).Msg("Error: invalid start-date format, expected YYYY-MM-DD")
	}
	endDate, err := civil.ParseDate(*endDateStr)
	if err != nil {
		log.Fatal().Err(err).Str("end_date", *endDateStr).Msg("Error: invalid end-date format, expected YYYY-MM-DD")
	}
	if endDate.Before(startDate) {
		log.Fatal().
			Str("start_date", startDate.String()).
			Str("end_date", endDate.String()).
			Msg("Error: end-date must be after start-date")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	app, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open budget")
	}
	defer app.Close()

	summary := app.Service.Summary(domain.DateRange{Start: startDate, End: endDate})
	notionClient := notionsync.NewNotionClient(*notionToken)

	res, err := notionsync.ExportSummary(ctx, notionClient, *notionDBID, summary, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}
	if res.Failed > 0 {
		log.Fatal().Int("failed", res.Failed).Msg("Sync finished with failed pages")
	}

	fmt.Printf("Sync completed: %d created, %d updated, %d archived.\n", res.Created, res.Updated, res.Deleted)
}
