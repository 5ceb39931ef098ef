// Package ledger is the authoritative, ordered set of recorded transactions
// and the bulk operations operators run on it.
package ledger

import (
	"fmt"

	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/shopspring/decimal"
)

// SplitTolerance is how far split parts may drift from the original amount.
var SplitTolerance = decimal.New(1, -2)

// Ledger owns every Transaction. Rows keep insertion order; identity is the
// structural key, so two identical rows are allowed and indistinguishable.
// A Ledger is not safe for concurrent use; the budget service serialises
// access to it.
type Ledger struct {
	rows []domain.Transaction
	rev  uint64
}

// New creates a Ledger holding a copy of rows.
func New(rows []domain.Transaction) *Ledger {
	return &Ledger{rows: append([]domain.Transaction(nil), rows...)}
}

// Revision increases on every change to the rows. Work planned against one
// revision is stale once it moves.
func (l *Ledger) Revision() uint64 {
	return l.rev
}

// Reset swaps in a copy of rows.
func (l *Ledger) Reset(rows []domain.Transaction) {
	l.rows = append([]domain.Transaction(nil), rows...)
	l.rev++
}

// Rows returns a copy of every row in natural order.
func (l *Ledger) Rows() []domain.Transaction {
	return append([]domain.Transaction{}, l.rows...)
}

// Len reports the number of rows.
func (l *Ledger) Len() int {
	return len(l.rows)
}

// Append adds rows at the end with no identity check.
func (l *Ledger) Append(txs ...domain.Transaction) {
	if len(txs) == 0 {
		return
	}
	l.rows = append(l.rows, txs...)
	l.rev++
}

// indexOf returns the first row whose key matches, or -1.
func (l *Ledger) indexOf(k domain.TxKey) int {
	for i, r := range l.rows {
		if r.Key() == k {
			return i
		}
	}
	return -1
}

// Delete removes the first row matching each key and reports how many rows
// went. Missing keys are ignored.
func (l *Ledger) Delete(keys ...domain.TxKey) int {
	n := 0
	for _, k := range keys {
		if i := l.indexOf(k); i >= 0 {
			l.rows = append(l.rows[:i], l.rows[i+1:]...)
			n++
		}
	}
	if n > 0 {
		l.rev++
	}
	return n
}

// Apply commits an import plan as one batch: each removal deletes one row
// with the same key, then additions are appended. It returns how many
// removals found a row.
func (l *Ledger) Apply(removals, additions []domain.Transaction) int {
	keys := make([]domain.TxKey, len(removals))
	for i, r := range removals {
		keys[i] = r.Key()
	}
	removed := l.Delete(keys...)
	l.Append(additions...)
	return removed
}

// Split replaces the row identified by key with one row per part. The parts
// must add up to the original amount within SplitTolerance, otherwise the
// ledger is left untouched. Split rows sit where the original was.
func (l *Ledger) Split(key domain.TxKey, parts []domain.SplitPart) ([]domain.Transaction, error) {
	i := l.indexOf(key)
	if i < 0 {
		return nil, fmt.Errorf("Split: %s %q %s: %w", key.Date, key.Description, key.Amount, domain.ErrTransactionNotFound)
	}
	orig := l.rows[i]

	if len(parts) == 0 {
		return nil, fmt.Errorf("Split: no parts: %w", domain.ErrSplitMismatch)
	}
	sum := decimal.Zero
	for _, p := range parts {
		if p.Amount.IsNegative() {
			return nil, fmt.Errorf("Split: negative part %s: %w", p.Amount.StringFixed(2), domain.ErrSplitMismatch)
		}
		sum = sum.Add(p.Amount)
	}
	if sum.Sub(orig.Amount).Abs().GreaterThan(SplitTolerance) {
		return nil, fmt.Errorf("Split: parts total %s, original %s: %w",
			sum.StringFixed(2), orig.Amount.StringFixed(2), domain.ErrSplitMismatch)
	}

	out := make([]domain.Transaction, len(parts))
	for n, p := range parts {
		out[n] = domain.Transaction{
			Date:           orig.Date,
			Description:    fmt.Sprintf("%s (split %d/%d)", orig.Description, n+1, len(parts)),
			Amount:         p.Amount.Round(2),
			Category:       p.Category,
			IsReimbursable: orig.IsReimbursable,
		}
	}

	rows := make([]domain.Transaction, 0, len(l.rows)-1+len(out))
	rows = append(rows, l.rows[:i]...)
	rows = append(rows, out...)
	rows = append(rows, l.rows[i+1:]...)
	l.rows = rows
	l.rev++
	return out, nil
}

// RenameCategory relabels every row in category from to to and reports how
// many changed. No match is a zero count, not an error.
func (l *Ledger) RenameCategory(from, to string) int {
	n := 0
	for i := range l.rows {
		if l.rows[i].Category == from {
			l.rows[i].Category = to
			n++
		}
	}
	if n > 0 {
		l.rev++
	}
	return n
}

// ReplaceSubset saves an edited view of the ledger. Every row of original is
// removed (one row per key) and edited is appended in its place. Rows that
// were never part of original are not touched. Returns removed and added
// counts.
func (l *Ledger) ReplaceSubset(original, edited []domain.Transaction) (int, int) {
	removed := l.Apply(original, nil)
	l.Append(edited...)
	return removed, len(edited)
}

// Filter returns the rows for which keep is true, in natural order.
func (l *Ledger) Filter(keep func(domain.Transaction) bool) []domain.Transaction {
	out := []domain.Transaction{}
	for _, r := range l.rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// InRange returns the rows dated inside r.
func (l *Ledger) InRange(r domain.DateRange) []domain.Transaction {
	return l.Filter(func(tx domain.Transaction) bool { return r.Contains(tx.Date) })
}

// NeedsAttention returns rows that are uncategorized or flagged for review.
func (l *Ledger) NeedsAttention() []domain.Transaction {
	return l.Filter(domain.Transaction.NeedsAttention)
}

// Total sums every row's amount.
func (l *Ledger) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, r := range l.rows {
		sum = sum.Add(r.Amount)
	}
	return sum
}

// SpentIn sums the non-reimbursable spend in category inside r.
func (l *Ledger) SpentIn(category string, r domain.DateRange) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range l.rows {
		if tx.Category == category && !tx.IsReimbursable && r.Contains(tx.Date) {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum
}
