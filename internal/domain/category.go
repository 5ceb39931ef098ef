package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// UncategorizedGroup is the reporting group for spend whose category has no rule.
const UncategorizedGroup = "Uncategorized"

// CategoryRule is a budget category definition together with the keywords
// an operator has taught it. Category names are unique within a rule set.
type CategoryRule struct {
	Category     string
	Group        string
	BudgetAmount decimal.Decimal
	Keywords     []string // lowercase fragments, insertion order, no duplicates
}

// HasKeyword reports whether kw (already normalized) is in the learned list.
func (r CategoryRule) HasKeyword(kw string) bool {
	for _, k := range r.Keywords {
		if k == kw {
			return true
		}
	}
	return false
}

// Clone returns a copy whose keyword slice does not alias r's.
func (r CategoryRule) Clone() CategoryRule {
	out := r
	out.Keywords = append([]string(nil), r.Keywords...)
	return out
}

// NormalizeKeyword lowercases and trims a keyword the way learned rules store it.
func NormalizeKeyword(kw string) string {
	return strings.ToLower(strings.TrimSpace(kw))
}
