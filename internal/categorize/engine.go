// Package categorize assigns budget categories to transactions by
// case-insensitive keyword containment.
package categorize

import (
	"strings"

	"github.com/dvloznov/household-budget/internal/domain"
)

// Rule maps a lowercase description fragment to a category.
type Rule struct {
	Keyword  string
	Category string
}

// Engine holds a two-tier rule table plus the ambiguous-vendor markers.
// Learned rules are checked before defaults; within a tier the first rule in
// insertion order wins.
type Engine struct {
	learned  []Rule
	defaults []Rule
	markers  []string
}

// NewEngine creates an Engine. Keywords and markers are lowercased; empty
// ones are ignored.
func NewEngine(learned, defaults []Rule, markers []string) *Engine {
	e := &Engine{
		learned:  normalizeRules(learned),
		defaults: normalizeRules(defaults),
	}
	for _, m := range markers {
		if m = domain.NormalizeKeyword(m); m != "" {
			e.markers = append(e.markers, m)
		}
	}
	return e
}

func normalizeRules(in []Rule) []Rule {
	out := make([]Rule, 0, len(in))
	for _, r := range in {
		kw := domain.NormalizeKeyword(r.Keyword)
		if kw == "" || r.Category == "" {
			continue
		}
		out = append(out, Rule{Keyword: kw, Category: r.Category})
	}
	return out
}

// Match returns the category of the first rule whose keyword occurs in the
// description, or "" when nothing matches.
func (e *Engine) Match(description string) string {
	desc := strings.ToLower(description)
	for _, tier := range [][]Rule{e.learned, e.defaults} {
		for _, r := range tier {
			if strings.Contains(desc, r.Keyword) {
				return r.Category
			}
		}
	}
	return ""
}

// IsAmbiguous reports whether the description names a vendor that sells
// across many categories.
func (e *Engine) IsAmbiguous(description string) bool {
	desc := strings.ToLower(description)
	for _, m := range e.markers {
		if strings.Contains(desc, m) {
			return true
		}
	}
	return false
}

// Categorize fills an empty category from the rule table and sets the review
// flag when the vendor is ambiguous. A row that already has a category keeps
// it. The review flag is only ever raised here, never cleared.
func (e *Engine) Categorize(tx domain.Transaction) domain.Transaction {
	if !tx.IsCategorized() {
		tx.Category = e.Match(tx.Description)
	}
	if e.IsAmbiguous(tx.Description) {
		tx.NeedsReview = true
	}
	return tx
}

// CategorizeAll categorizes every row and reports how many uncategorized rows
// picked up a category.
func (e *Engine) CategorizeAll(txs []domain.Transaction) ([]domain.Transaction, int) {
	out := make([]domain.Transaction, len(txs))
	matched := 0
	for i, tx := range txs {
		was := tx.IsCategorized()
		out[i] = e.Categorize(tx)
		if !was && out[i].IsCategorized() {
			matched++
		}
	}
	return out, matched
}

// DefaultKeywords is the built-in fallback tier.
func DefaultKeywords() []Rule {
	return []Rule{
		{Keyword: "donut", Category: "Eating Out"},
		{Keyword: "starbucks", Category: "Eating Out"},
		{Keyword: "shell", Category: "Gas"},
		{Keyword: "heb", Category: "Groceries"},
		{Keyword: "walmart", Category: "Groceries"},
		{Keyword: "netflix", Category: "Entertainment"},
	}
}

// DefaultReviewMarkers names marketplace retailers whose purchases span many
// categories.
func DefaultReviewMarkers() []string {
	return []string{"amazon", "amzn", "target"}
}
