// Package reconcile classifies an import batch against the existing ledger
// and walks an operator through the fuzzy conflicts one at a time.
package reconcile

import (
	"github.com/dvloznov/household-budget/internal/domain"
)

// DefaultWindowDays is the fuzzy-duplicate window, inclusive on both sides.
const DefaultWindowDays = 2

// Conflict pairs a new row with the existing row it may duplicate.
// ExistingIndex is the existing row's position in the ledger at reconcile time.
type Conflict struct {
	New           domain.Transaction
	Existing      domain.Transaction
	ExistingIndex int
}

// Result partitions a batch. Every input row lands in exactly one of Clean,
// Conflicts (as New) or Discarded.
type Result struct {
	Clean     []domain.Transaction
	Conflicts []Conflict
	Discarded []domain.Transaction
}

// Reconciler compares new rows against the ledger.
type Reconciler struct {
	WindowDays int
}

// New creates a Reconciler with the given window. A negative window is
// treated as zero, which makes fuzzy matching mean "same day, same amount".
func New(windowDays int) *Reconciler {
	if windowDays < 0 {
		windowDays = 0
	}
	return &Reconciler{WindowDays: windowDays}
}

// Reconcile classifies each new row in order. An exact (date, description,
// amount) match is discarded as a re-import. Otherwise the first existing
// row in natural order with the same amount and a date within the window is
// reported as a conflict. Anything else is clean. New rows are only compared
// with the existing ledger, never with each other.
func (r *Reconciler) Reconcile(batch, existing []domain.Transaction) Result {
	exact := make(map[domain.TxKey]bool, len(existing))
	byAmount := make(map[string][]int, len(existing))
	for i, tx := range existing {
		k := tx.Key()
		exact[k] = true
		byAmount[k.Amount] = append(byAmount[k.Amount], i)
	}

	var res Result
	for _, tx := range batch {
		k := tx.Key()
		if exact[k] {
			res.Discarded = append(res.Discarded, tx)
			continue
		}

		if idx, ok := r.firstFuzzy(tx, existing, byAmount[k.Amount]); ok {
			res.Conflicts = append(res.Conflicts, Conflict{
				New:           tx,
				Existing:      existing[idx],
				ExistingIndex: idx,
			})
			continue
		}

		res.Clean = append(res.Clean, tx)
	}
	return res
}

// firstFuzzy scans candidates, which are ascending ledger positions with the
// same amount, and returns the first whose date is within the window.
func (r *Reconciler) firstFuzzy(tx domain.Transaction, existing []domain.Transaction, candidates []int) (int, bool) {
	for _, i := range candidates {
		delta := tx.Date.DaysSince(existing[i].Date)
		if delta < 0 {
			delta = -delta
		}
		if delta <= r.WindowDays {
			return i, true
		}
	}
	return 0, false
}
