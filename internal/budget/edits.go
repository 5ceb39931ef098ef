package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/report"
	"github.com/dvloznov/household-budget/internal/session"
)

// AddManual records one hand-entered expense and returns what is left in
// its category's budget afterwards. The category must exist and the amount
// must be positive.
func (s *Service) AddManual(ctx context.Context, tx domain.Transaction) (report.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded("AddManual"); err != nil {
		return report.Status{}, err
	}
	if !tx.Amount.IsPositive() {
		return report.Status{}, fmt.Errorf("AddManual: amount %s must be positive: %w", tx.Amount, domain.ErrUnparsableAmount)
	}
	if !tx.Date.IsValid() {
		return report.Status{}, fmt.Errorf("AddManual: %w", domain.ErrUnparsableDate)
	}
	cat, err := s.validator().ValidateCategory(tx.Category)
	if err != nil {
		return report.Status{}, fmt.Errorf("AddManual: %w", err)
	}

	tx.Category = cat
	tx.Description = strings.TrimSpace(tx.Description)
	tx.Amount = tx.Amount.Round(2)
	tx.NeedsReview = false
	s.ledger.Append(tx)

	status := report.CategoryStatus(cat, s.ledger.Rows(), s.book.Rules(), domain.DateRange{})
	if err := s.writeLedger(ctx); err != nil {
		return status, fmt.Errorf("AddManual: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().
		Str("category", cat).
		Str("amount", tx.Amount.StringFixed(2)).
		Bool("reimbursable", tx.IsReimbursable).
		Msg("Manual transaction added")
	return status, nil
}

// Teach maps keyword to category for future imports. It reports false when
// the category already had the keyword.
func (s *Service) Teach(ctx context.Context, keyword, category string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat, err := s.validator().ValidateCategory(category)
	if err != nil {
		return false, fmt.Errorf("Teach: %w", err)
	}
	if cat == "" {
		return false, fmt.Errorf("Teach: empty category: %w", domain.ErrUnknownCategory)
	}
	return s.book.Teach(ctx, keyword, cat)
}

// Recategorize runs the engine over uncategorized ledger rows, e.g. after
// teaching, and reports how many picked up a category.
func (s *Service) Recategorize(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireLoaded("Recategorize"); err != nil {
		return 0, err
	}
	rows := s.ledger.Rows()
	eng := s.engine()
	n := 0
	for i, r := range rows {
		if r.IsCategorized() {
			continue
		}
		rows[i] = eng.Categorize(r)
		if rows[i].IsCategorized() {
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	s.ledger.Reset(rows)

	if err := s.writeLedger(ctx); err != nil {
		return n, fmt.Errorf("Recategorize: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Int("rows", n).Msg("Recategorized ledger")
	return n, nil
}

// Split replaces the row identified by key with one row per part.
func (s *Service) Split(ctx context.Context, key domain.TxKey, parts []domain.SplitPart) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.validator()
	checked := make([]domain.SplitPart, len(parts))
	for i, p := range parts {
		cat, err := v.ValidateCategory(p.Category)
		if err != nil {
			return nil, fmt.Errorf("Split: part %d: %w", i+1, err)
		}
		checked[i] = domain.SplitPart{Amount: p.Amount, Category: cat}
	}

	out, err := s.ledger.Split(key, checked)
	if err != nil {
		return nil, err
	}
	if err := s.writeLedger(ctx); err != nil {
		return out, fmt.Errorf("Split: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().
		Str("description", key.Description).
		Int("parts", len(out)).
		Msg("Transaction split")
	return out, nil
}

// Rename relabels every row in category from to category to. The target
// must exist in the rule book; no match is a zero count.
func (s *Service) Rename(ctx context.Context, from, to string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.book.Has(to) {
		return 0, fmt.Errorf("Rename: %q: %w", to, domain.ErrUnknownCategory)
	}
	n := s.ledger.RenameCategory(from, to)
	if n == 0 {
		return 0, nil
	}
	if err := s.writeLedger(ctx); err != nil {
		return n, fmt.Errorf("Rename: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("from", from).Str("to", to).Int("rows", n).Msg("Category renamed")
	return n, nil
}

// OpenEdit snapshots the rows matching f into sess for editing and returns
// them.
func (s *Service) OpenEdit(sess *session.Session, f Filter) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.ledger.Filter(f.match)
	sess.Edit = &session.EditBatch{
		Original: append([]domain.Transaction(nil), rows...),
		OpenedAt: time.Now(),
	}
	sess.Touch()
	return rows
}

// SaveEdits replaces the rows of the session's open edit view with edited.
// Rows outside that view are never touched. Categories in edited must
// exist.
func (s *Service) SaveEdits(ctx context.Context, sess *session.Session, edited []domain.Transaction) (removed, added int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.Edit == nil {
		return 0, 0, fmt.Errorf("SaveEdits: session %s has no open edit view", sess.ID)
	}
	v := s.validator()
	clean := make([]domain.Transaction, len(edited))
	for i, tx := range edited {
		cat, err := v.ValidateCategory(tx.Category)
		if err != nil {
			return 0, 0, fmt.Errorf("SaveEdits: row %d: %w", i+1, err)
		}
		tx.Category = cat
		tx.Amount = tx.Amount.Round(2)
		clean[i] = tx
	}

	removed, added = s.ledger.ReplaceSubset(sess.Edit.Original, clean)
	sess.Edit = nil
	sess.Touch()

	if err := s.writeLedger(ctx); err != nil {
		return removed, added, fmt.Errorf("SaveEdits: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().
		Str("session_id", sess.ID).
		Int("removed", removed).
		Int("added", added).
		Msg("Edits saved")
	return removed, added, nil
}

// Delete removes one row per key and reports how many went.
func (s *Service) Delete(ctx context.Context, keys ...domain.TxKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.ledger.Delete(keys...)
	if n == 0 {
		return 0, nil
	}
	if err := s.writeLedger(ctx); err != nil {
		return n, fmt.Errorf("Delete: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Int("rows", n).Msg("Transactions deleted")
	return n, nil
}
