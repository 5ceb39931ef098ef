package jobs

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/notionsync"
	"github.com/dvloznov/household-budget/internal/report"
)

// Window parses the job's summary window.
func (j *DeliveryJob) Window() (domain.DateRange, error) {
	var w domain.DateRange
	var err error
	if j.Start != "" {
		if w.Start, err = civil.ParseDate(j.Start); err != nil {
			return w, fmt.Errorf("Window: start %q: %w", j.Start, domain.ErrUnparsableDate)
		}
	}
	if j.End != "" {
		if w.End, err = civil.ParseDate(j.End); err != nil {
			return w, fmt.Errorf("Window: end %q: %w", j.End, domain.ErrUnparsableDate)
		}
	}
	return w, nil
}

// Reporter is the slice of the budget service deliveries need.
type Reporter interface {
	Summary(window domain.DateRange) report.Summary
	SendReport(ctx context.Context, window domain.DateRange) (report.Summary, error)
}

// Exporter writes a summary to Notion. notionsync.ExportSummary bound to a
// client and database satisfies it.
type Exporter func(ctx context.Context, s report.Summary, dryRun bool) (notionsync.ExportResult, error)

// NotionExporter binds ExportSummary to a client and database.
func NotionExporter(client notionsync.NotionService, databaseID string) Exporter {
	return func(ctx context.Context, s report.Summary, dryRun bool) (notionsync.ExportResult, error) {
		return notionsync.ExportSummary(ctx, client, databaseID, s, dryRun)
	}
}

// NewDeliveryHandler returns the handler that runs delivery jobs. export may
// be nil when Notion is not configured; such jobs then fail.
func NewDeliveryHandler(r Reporter, export Exporter) JobHandler {
	return func(ctx context.Context, job *DeliveryJob) error {
		log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Str("type", string(job.Type)).Logger()

		window, err := job.Window()
		if err != nil {
			return err
		}

		switch job.Type {
		case JobTypeSendReport:
			if _, err := r.SendReport(ctx, window); err != nil {
				return err
			}
			log.Info().Msg("Report delivered")
			return nil

		case JobTypeExportNotion:
			if export == nil {
				return fmt.Errorf("export_notion: Notion is not configured")
			}
			res, err := export(ctx, r.Summary(window), job.DryRun)
			if err != nil {
				return err
			}
			if res.Failed > 0 {
				return fmt.Errorf("export_notion: %d pages failed", res.Failed)
			}
			log.Info().Int("created", res.Created).Int("updated", res.Updated).Msg("Summary exported")
			return nil
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}
