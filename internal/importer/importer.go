package importer

import (
	"context"
	"path"

	"github.com/dvloznov/household-budget/internal/logger"
)

// Importer parses a batch of exports from a Source.
type Importer struct {
	source Source
}

// New creates an Importer reading through source.
func New(source Source) *Importer {
	return &Importer{source: source}
}

// ImportFiles parses every uri. A file that cannot be opened or parsed is
// reported in its FileResult.Err; the rest of the batch still runs.
func (im *Importer) ImportFiles(ctx context.Context, uris []string) []FileResult {
	log := logger.FromContext(ctx)
	results := make([]FileResult, 0, len(uris))

	for _, uri := range uris {
		name := path.Base(uri)
		rc, err := im.source.Open(ctx, uri)
		if err != nil {
			log.Error().Err(err).Str("file", uri).Msg("Failed to open export")
			results = append(results, FileResult{Name: name, Err: err})
			continue
		}

		res, err := ParseCSV(name, rc)
		rc.Close()
		if err != nil {
			log.Error().Err(err).Str("file", uri).Msg("Failed to parse export")
			res.Err = err
			res.Transactions = nil
		} else {
			log.Info().
				Str("file", uri).
				Str("layout", res.Layout.String()).
				Int("rows", res.Rows).
				Int("accepted", res.Accepted()).
				Int("bad_amounts", res.BadAmounts).
				Int("bad_dates", res.BadDates).
				Int("sign_dropped", res.SignDropped).
				Msg("Parsed export")
		}
		results = append(results, res)
	}
	return results
}
