package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Transaction is one spending row in the household ledger.
// Amounts are non-negative magnitudes rounded to cents; an empty Category
// means the row has not been categorized yet.
type Transaction struct {
	Date           civil.Date      // calendar date of the purchase
	Description    string          // vendor text as exported by the bank
	Amount         decimal.Decimal // spend magnitude, 2 decimal places
	Category       string          // "" = uncategorized
	IsReimbursable bool            // paid back by a third party, excluded from spending totals
	NeedsReview    bool            // vendor spans several real-world categories
}

// TxKey is the structural identity of a transaction. There is no surrogate
// row ID across reloads, so two rows with the same key are the same purchase.
type TxKey struct {
	Date        civil.Date
	Description string
	Amount      string // fixed 2dp rendering so keys compare with ==
}

// Key returns the structural identity of t.
func (t Transaction) Key() TxKey {
	return TxKey{
		Date:        t.Date,
		Description: t.Description,
		Amount:      t.Amount.StringFixed(2),
	}
}

// IsCategorized reports whether a category has been assigned.
func (t Transaction) IsCategorized() bool {
	return t.Category != ""
}

// NeedsAttention reports whether the row belongs in the review view:
// either it has no category or its vendor was flagged as ambiguous.
func (t Transaction) NeedsAttention() bool {
	return !t.IsCategorized() || t.NeedsReview
}

// SplitPart is one component of a split transaction.
type SplitPart struct {
	Amount   decimal.Decimal
	Category string
}

// IncomeSource is a named monthly income amount.
type IncomeSource struct {
	Source string
	Amount decimal.Decimal
}

// DateRange is an inclusive calendar window. A zero bound is open.
type DateRange struct {
	Start civil.Date
	End   civil.Date
}

// Contains reports whether d falls inside the window.
func (r DateRange) Contains(d civil.Date) bool {
	if r.Start.IsValid() && d.Before(r.Start) {
		return false
	}
	if r.End.IsValid() && d.After(r.End) {
		return false
	}
	return true
}

// IsZero reports whether both bounds are open.
func (r DateRange) IsZero() bool {
	return !r.Start.IsValid() && !r.End.IsValid()
}

// String renders the window as "start..end" with "*" for open bounds.
func (r DateRange) String() string {
	start, end := "*", "*"
	if r.Start.IsValid() {
		start = r.Start.String()
	}
	if r.End.IsValid() {
		end = r.End.String()
	}
	return start + ".." + end
}
