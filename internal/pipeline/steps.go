package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/importer"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/reconcile"
)

// PipelineStep represents a single step in the import pipeline.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	// URIs are fetched and parsed by ParseFilesStep. Files may also be
	// filled in directly, e.g. from an upload.
	URIs  []string
	Files []importer.FileResult

	// Existing is the ledger the batch is reconciled against.
	Existing []domain.Transaction

	Batch       []domain.Transaction
	Categorized int
	Result      reconcile.Result
}

// Step 1: ParseFilesStep parses every URI and appends the results to Files.
type ParseFilesStep struct {
	Importer FileImporter
}

func (s *ParseFilesStep) Execute(ctx context.Context, state *PipelineState) error {
	if len(state.URIs) == 0 {
		return nil
	}
	if s.Importer == nil {
		return fmt.Errorf("ParseFilesStep: no importer configured")
	}
	state.Files = append(state.Files, s.Importer.ImportFiles(ctx, state.URIs)...)
	return nil
}

// Step 2: CollectBatchStep gathers the rows of every successfully parsed
// file into one batch. Failed files contribute nothing.
type CollectBatchStep struct{}

func (s *CollectBatchStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Batch = state.Batch[:0]
	failed := 0
	for _, f := range state.Files {
		if f.Err != nil {
			failed++
			continue
		}
		state.Batch = append(state.Batch, f.Transactions...)
	}
	log := logger.FromContext(ctx)
	log.Debug().
		Int("files", len(state.Files)).
		Int("failed_files", failed).
		Int("rows", len(state.Batch)).
		Msg("Collected import batch")
	return nil
}

// Step 3: CategorizeStep runs the categorization engine over the batch.
type CategorizeStep struct {
	Engine Categorizer
}

func (s *CategorizeStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Batch, state.Categorized = s.Engine.CategorizeAll(state.Batch)
	return nil
}

// Step 4: ReconcileStep classifies the batch against the existing ledger.
type ReconcileStep struct {
	Reconciler DuplicateReconciler
}

func (s *ReconcileStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Result = s.Reconciler.Reconcile(state.Batch, state.Existing)
	log := logger.FromContext(ctx)
	log.Info().
		Int("clean", len(state.Result.Clean)).
		Int("conflicts", len(state.Result.Conflicts)).
		Int("discarded", len(state.Result.Discarded)).
		Msg("Reconciled import batch")
	return nil
}

// fileError renders a file failure for import summaries.
func fileError(f importer.FileResult) string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}
