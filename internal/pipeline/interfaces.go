package pipeline

import (
	"context"

	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/importer"
	"github.com/dvloznov/household-budget/internal/reconcile"
)

// FileImporter parses bank exports by URI.
type FileImporter interface {
	ImportFiles(ctx context.Context, uris []string) []importer.FileResult
}

// Categorizer assigns categories and review flags to a batch.
type Categorizer interface {
	CategorizeAll(txs []domain.Transaction) ([]domain.Transaction, int)
}

// DuplicateReconciler splits a batch against the existing ledger.
type DuplicateReconciler interface {
	Reconcile(batch, existing []domain.Transaction) reconcile.Result
}
