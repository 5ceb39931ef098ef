// Package notionsync exports budget summaries to a Notion database so the
// household can read them outside the operator tools.
package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/report"
	"github.com/jomei/notionapi"
)

const (
	// PageSize is the number of pages requested per database query.
	PageSize = 100
)

// ExportResult counts what an export did. Failed pages are logged and
// skipped.
type ExportResult struct {
	Created int
	Updated int
	Deleted int
	Failed  int
}

// ExportSummary writes one page per category line of s, plus a totals page,
// keyed by "<period>|<category>". Existing pages for the same key are
// updated, missing ones created. Pages of this period whose category is no
// longer in the summary are archived; other periods are left alone.
//
// This function:
// 1. Queries all existing pages in the database
// 2. Archives stale pages for this period
// 3. Creates or updates a page for each line
func ExportSummary(ctx context.Context, notionClient NotionService, notionDBID string, s report.Summary, dryRun bool) (ExportResult, error) {
	log := logger.FromContext(ctx)
	period := report.PeriodLabel(s)

	log.Info().
		Str("period", period).
		Bool("dry_run", dryRun).
		Msg("Starting summary export to Notion")

	want := make(map[string]notionapi.Properties)
	var order []string
	add := func(key string, props notionapi.Properties) {
		want[key] = props
		order = append(order, key)
	}
	for _, line := range s.Lines() {
		add(PageKey(period, line.Category), LineToNotionProperties(period, s.Window, line))
	}
	add(PageKey(period, TotalCategory), TotalsToNotionProperties(period, s))

	pages, err := queryAllNotionPages(ctx, notionClient, notionDBID)
	if err != nil {
		return ExportResult{}, fmt.Errorf("ExportSummary: %w", err)
	}
	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	var res ExportResult
	existing := make(map[string]string)
	for _, page := range pages {
		key := extractKey(page)
		if key == "" || periodOf(key) != period {
			continue
		}
		if _, ok := want[key]; ok {
			existing[key] = string(page.ID)
			continue
		}

		if dryRun {
			log.Info().Str("key", key).Msg("[DRY RUN] Would archive stale Notion page")
			res.Deleted++
			continue
		}
		if err := notionClient.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().Err(err).Str("key", key).Str("page_id", string(page.ID)).Msg("Failed to archive stale Notion page")
			res.Failed++
			continue
		}
		res.Deleted++
	}

	for _, key := range order {
		props := want[key]
		pageID, ok := existing[key]

		if dryRun {
			if ok {
				log.Info().Str("key", key).Msg("[DRY RUN] Would update Notion page")
				res.Updated++
			} else {
				log.Info().Str("key", key).Msg("[DRY RUN] Would create Notion page")
				res.Created++
			}
			continue
		}

		if ok {
			if _, err := notionClient.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().Err(err).Str("key", key).Str("page_id", pageID).Msg("Failed to update Notion page")
				res.Failed++
				continue
			}
			res.Updated++
			continue
		}

		page, err := notionClient.CreatePage(ctx, notionDBID, props)
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to create Notion page")
			res.Failed++
			continue
		}
		log.Debug().Str("key", key).Str("page_id", string(page.ID)).Msg("Created Notion page")
		res.Created++
	}

	log.Info().
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("deleted", res.Deleted).
		Int("failed", res.Failed).
		Msg("Summary export completed")
	return res, nil
}

// queryAllNotionPages follows the query cursor until the database is exhausted.
func queryAllNotionPages(ctx context.Context, notionClient NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: PageSize,
		}
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notionClient.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
