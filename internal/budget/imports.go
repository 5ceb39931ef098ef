package budget

import (
	"context"
	"fmt"

	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/importer"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/pipeline"
	"github.com/dvloznov/household-budget/internal/reconcile"
	"github.com/dvloznov/household-budget/internal/session"
)

// CommitResult is what an import changed in the ledger.
type CommitResult struct {
	Removed int `json:"removed"`
	Added   int `json:"added"`
}

// Import stages already-parsed files in sess: the rows are categorized and
// reconciled against the ledger, and any fuzzy conflicts wait in the
// session's queue. Nothing is written until Commit.
func (s *Service) Import(ctx context.Context, sess *session.Session, files []importer.FileResult) (session.ImportSummary, error) {
	return s.stage(ctx, sess, &pipeline.PipelineState{Files: files})
}

// ImportURIs parses the exports at uris and stages them like Import.
func (s *Service) ImportURIs(ctx context.Context, sess *session.Session, uris []string) (session.ImportSummary, error) {
	return s.stage(ctx, sess, &pipeline.PipelineState{URIs: uris})
}

func (s *Service) stage(ctx context.Context, sess *session.Session, state *pipeline.PipelineState) (session.ImportSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded("Import"); err != nil {
		return session.ImportSummary{}, err
	}
	if sess.HasPendingImport() {
		return session.ImportSummary{}, fmt.Errorf("Import: session %s already has a staged import: %w", sess.ID, domain.ErrQueueNotDrained)
	}

	state.Existing = s.ledger.Rows()
	p := pipeline.NewImportPipeline(s.importer, s.engine(), s.reconciler)
	if err := p.Execute(ctx, state); err != nil {
		return session.ImportSummary{}, fmt.Errorf("Import: %w", err)
	}

	sum := pipeline.Summarize(state)
	sess.Queue = reconcile.NewQueue(state.Result)
	sess.Import = &sum
	sess.Revision = s.ledger.Revision()
	sess.Touch()

	log := logger.FromContext(ctx)
	log.Info().
		Str("session_id", sess.ID).
		Int("files", len(sum.Files)).
		Int("rows", sum.Parsed).
		Int("clean", sum.Clean).
		Int("conflicts", sum.Conflicts).
		Int("discarded", sum.Discarded).
		Msg("Import staged")
	return sum, nil
}

func pendingQueue(op string, sess *session.Session) (*reconcile.Queue, error) {
	if !sess.HasPendingImport() {
		return nil, fmt.Errorf("%s: session %s has no staged import: %w", op, sess.ID, domain.ErrQueueIdle)
	}
	return sess.Queue, nil
}

// CurrentConflict returns the conflict awaiting a decision.
func (s *Service) CurrentConflict(sess *session.Session) (reconcile.Conflict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := pendingQueue("CurrentConflict", sess)
	if err != nil {
		return reconcile.Conflict{}, err
	}
	return q.Current()
}

// Resolve applies d to the current conflict and reports how many remain.
func (s *Service) Resolve(ctx context.Context, sess *session.Session, d reconcile.Disposition) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := pendingQueue("Resolve", sess)
	if err != nil {
		return 0, err
	}
	c, err := q.Current()
	if err != nil {
		return 0, fmt.Errorf("Resolve: %w", err)
	}
	if err := q.Resolve(d); err != nil {
		return q.Pending(), fmt.Errorf("Resolve: %w", err)
	}
	sess.Touch()

	log := logger.FromContext(ctx)
	log.Info().
		Str("session_id", sess.ID).
		Str("disposition", d.String()).
		Str("description", c.New.Description).
		Int("remaining", q.Pending()).
		Msg("Conflict resolved")
	return q.Pending(), nil
}

// Commit writes a drained import to the ledger as one batch. It fails with
// domain.ErrQueueNotDrained while conflicts remain. If the ledger changed
// after staging, the plan no longer describes it: the import is dropped
// and Commit fails with domain.ErrStaleImport, so the exports must be
// imported again. Once the ledger has been changed in memory the session's
// import is cleared, even if the write then fails; Flush rewrites it.
func (s *Service) Commit(ctx context.Context, sess *session.Session) (CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := pendingQueue("Commit", sess)
	if err != nil {
		return CommitResult{}, err
	}
	plan, err := q.Plan()
	if err != nil {
		return CommitResult{}, fmt.Errorf("Commit: %w", err)
	}
	if rev := s.ledger.Revision(); rev != sess.Revision {
		sess.ClearImport()
		return CommitResult{}, fmt.Errorf("Commit: staged at revision %d, ledger at %d: %w", sess.Revision, rev, domain.ErrStaleImport)
	}

	res := CommitResult{
		Removed: s.ledger.Apply(plan.Removals, plan.Additions),
		Added:   len(plan.Additions),
	}
	sess.ClearImport()

	if err := s.writeLedger(ctx); err != nil {
		return res, fmt.Errorf("Commit: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().
		Str("session_id", sess.ID).
		Int("removed", res.Removed).
		Int("added", res.Added).
		Msg("Import committed")
	return res, nil
}

// DiscardImport abandons a staged import. The ledger is untouched.
func (s *Service) DiscardImport(ctx context.Context, sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.HasPendingImport() {
		log := logger.FromContext(ctx)
		log.Info().
			Str("session_id", sess.ID).
			Int("undecided", sess.Queue.Pending()).
			Msg("Import discarded")
	}
	sess.ClearImport()
}
