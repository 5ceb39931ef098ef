package budget

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/gcsuploader"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/report"
	"github.com/dvloznov/household-budget/internal/suggest"
	"github.com/google/uuid"
)

// Filter selects ledger rows. The zero Filter matches everything.
type Filter struct {
	Range          domain.DateRange
	NeedsAttention bool
	Category       string
}

func (f Filter) match(tx domain.Transaction) bool {
	if !f.Range.Contains(tx.Date) {
		return false
	}
	if f.NeedsAttention && !tx.NeedsAttention() {
		return false
	}
	if f.Category != "" && !strings.EqualFold(tx.Category, f.Category) {
		return false
	}
	return true
}

// Transactions returns the ledger rows matching f in ledger order.
func (s *Service) Transactions(f Filter) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Filter(f.match)
}

// ReviewQueue returns rows that are uncategorized or flagged for review.
func (s *Service) ReviewQueue() []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.NeedsAttention()
}

// Income returns the configured income sources.
func (s *Service) Income() []domain.IncomeSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.IncomeSource(nil), s.income...)
}

// ReplaceIncome swaps in a whole edited income table.
func (s *Service) ReplaceIncome(ctx context.Context, income []domain.IncomeSource) error {
	next := make([]domain.IncomeSource, 0, len(income))
	for i, src := range income {
		name := strings.TrimSpace(src.Source)
		if name == "" {
			return fmt.Errorf("ReplaceIncome: row %d: empty source name", i+1)
		}
		if src.Amount.IsNegative() {
			return fmt.Errorf("ReplaceIncome: %q: %w", name, domain.ErrUnparsableAmount)
		}
		next = append(next, domain.IncomeSource{Source: name, Amount: src.Amount.Round(2)})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.income = next
	if err := s.store.WriteIncome(ctx, s.income); err != nil {
		return fmt.Errorf("ReplaceIncome: writing income: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Int("sources", len(next)).Msg("Income updated")
	return nil
}

// Rules returns a copy of the rule set.
func (s *Service) Rules() []domain.CategoryRule {
	return s.book.Rules()
}

// Categories returns every category name in rule order.
func (s *Service) Categories() []string {
	return s.book.Categories()
}

// ReplaceRules swaps in a whole edited rule set.
func (s *Service) ReplaceRules(ctx context.Context, rules []domain.CategoryRule) error {
	if err := s.book.Replace(ctx, rules); err != nil {
		return err
	}
	log := logger.FromContext(ctx)
	log.Info().Int("categories", len(rules)).Msg("Rules updated")
	return nil
}

// UpsertRule adds a category or updates its group and budget.
func (s *Service) UpsertRule(ctx context.Context, rule domain.CategoryRule) error {
	return s.book.Upsert(ctx, rule)
}

// RemoveRule deletes a category from the rule set.
func (s *Service) RemoveRule(ctx context.Context, category string) error {
	return s.book.Remove(ctx, category)
}

// Summary computes budget health over window.
func (s *Service) Summary(window domain.DateRange) report.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary(window)
}

func (s *Service) summary(window domain.DateRange) report.Summary {
	return report.Summarize(report.Input{
		Transactions: s.ledger.Rows(),
		Rules:        s.book.Rules(),
		Income:       s.income,
		Window:       window,
	})
}

// CategoryStatus reports the budget left in one category over window.
func (s *Service) CategoryStatus(category string, window domain.DateRange) (report.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat, err := s.validator().ValidateCategory(category)
	if err != nil {
		return report.Status{}, fmt.Errorf("CategoryStatus: %w", err)
	}
	if cat == "" {
		return report.Status{}, fmt.Errorf("CategoryStatus: empty category: %w", domain.ErrUnknownCategory)
	}
	return report.CategoryStatus(cat, s.ledger.Rows(), s.book.Rules(), window), nil
}

// SendReport renders the summary for window and delivers it to the sink.
// When an archive is configured a copy is uploaded first; an archive
// failure is logged and does not stop delivery. The summary is returned
// even when delivery fails.
func (s *Service) SendReport(ctx context.Context, window domain.DateRange) (report.Summary, error) {
	s.mu.Lock()
	sum := s.summary(window)
	s.mu.Unlock()

	log := logger.FromContext(ctx)

	body, err := report.RenderHTML(sum)
	if err != nil {
		return sum, fmt.Errorf("SendReport: %w", err)
	}
	subject := report.Subject(sum)

	if s.archive != nil && s.archiveBucket != "" {
		uri := gcsuploader.URI(s.archiveBucket, archiveObject(time.Now()))
		if err := s.archive.UploadBytes(ctx, uri, []byte(body), "text/html; charset=utf-8"); err != nil {
			log.Warn().Err(err).Str("uri", uri).Msg("Failed to archive report")
		} else {
			log.Info().Str("uri", uri).Msg("Report archived")
		}
	}

	if err := s.sink.Send(ctx, subject, body); err != nil {
		return sum, fmt.Errorf("SendReport: %w", err)
	}
	log.Info().Str("subject", subject).Msg("Report sent")
	return sum, nil
}

func archiveObject(now time.Time) string {
	return fmt.Sprintf("reports/%s/%s.html", now.Format("2006-01-02"), uuid.New().String())
}

// TrainingSet returns the categorized rows a suggester can learn from.
func (s *Service) TrainingSet() []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Filter(domain.Transaction.IsCategorized)
}

// Suggest asks sg for a category for every uncategorized row. Suggestions
// are advice only; nothing is written.
func (s *Service) Suggest(ctx context.Context, sg suggest.Suggester) ([]suggest.Suggestion, error) {
	s.mu.Lock()
	pending := s.ledger.Filter(func(tx domain.Transaction) bool { return !tx.IsCategorized() })
	cats := s.book.Categories()
	s.mu.Unlock()

	seen := make(map[string]bool)
	var out []suggest.Suggestion
	for _, tx := range pending {
		if seen[tx.Description] {
			continue
		}
		seen[tx.Description] = true

		sug, err := sg.Suggest(ctx, tx.Description, cats)
		if err != nil {
			return out, fmt.Errorf("Suggest: %q: %w", tx.Description, err)
		}
		out = append(out, sug)
	}
	log := logger.FromContext(ctx)
	log.Info().
		Int("uncategorized", len(pending)).
		Int("suggestions", len(out)).
		Msg("Suggestions computed")
	return out, nil
}
