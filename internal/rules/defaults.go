package rules

import (
	"github.com/dvloznov/household-budget/internal/categorize"
	"github.com/dvloznov/household-budget/internal/config"
	"github.com/dvloznov/household-budget/internal/domain"
)

// DefaultsFromConfig turns the configured seed categories into rules with no
// learned keywords.
func DefaultsFromConfig(cats []config.CategoryConfig) []domain.CategoryRule {
	out := make([]domain.CategoryRule, 0, len(cats))
	for _, c := range cats {
		out = append(out, domain.CategoryRule{
			Group:        c.Group,
			Category:     c.Category,
			BudgetAmount: c.Amount(),
		})
	}
	return out
}

// KeywordsFromConfig turns the configured built-in keyword list into the
// fallback tier, preserving file order.
func KeywordsFromConfig(kws []config.KeywordConfig) []categorize.Rule {
	out := make([]categorize.Rule, 0, len(kws))
	for _, k := range kws {
		out = append(out, categorize.Rule{Keyword: k.Keyword, Category: k.Category})
	}
	return out
}
