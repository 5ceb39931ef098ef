// Package pipeline stages an import: parse bank exports, categorize the
// rows and reconcile them against the ledger. Nothing is written here; the
// result is handed to a conflict queue and committed once that drains.
package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/household-budget/internal/session"
)

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewImportPipeline creates the standard parse, collect, categorize and
// reconcile pipeline. imp may be nil when files are supplied pre-parsed.
func NewImportPipeline(imp FileImporter, engine Categorizer, rec DuplicateReconciler) *Pipeline {
	return NewPipeline(
		&ParseFilesStep{Importer: imp},
		&CollectBatchStep{},
		&CategorizeStep{Engine: engine},
		&ReconcileStep{Reconciler: rec},
	)
}

// Summarize reports what an executed pipeline produced.
func Summarize(state *PipelineState) session.ImportSummary {
	sum := session.ImportSummary{
		Parsed:      len(state.Batch),
		Categorized: state.Categorized,
		Clean:       len(state.Result.Clean),
		Conflicts:   len(state.Result.Conflicts),
		Discarded:   len(state.Result.Discarded),
	}
	for _, f := range state.Files {
		layout := ""
		if f.Err == nil {
			layout = f.Layout.String()
		}
		sum.Files = append(sum.Files, session.FileSummary{
			Name:     f.Name,
			Layout:   layout,
			Rows:     f.Rows,
			Accepted: f.Accepted(),
			Rejected: f.BadAmounts + f.BadDates + f.SignDropped,
			Error:    fileError(f),
		})
	}
	return sum
}
