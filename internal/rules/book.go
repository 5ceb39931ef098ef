// Package rules owns the budget categories and the keywords operators have
// taught them.
package rules

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/dvloznov/household-budget/internal/categorize"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/store"
	"github.com/shopspring/decimal"
)

// Book is the in-memory rule set backed by a RuleStore. Every mutation
// writes the whole set back. If that write fails the in-memory change is
// kept and the error is returned; the operator retries.
type Book struct {
	mu       sync.RWMutex
	store    store.RuleStore
	defaults []domain.CategoryRule
	rules    []domain.CategoryRule
}

// NewBook creates a Book. defaults seed an empty store on Load.
func NewBook(rs store.RuleStore, defaults []domain.CategoryRule) *Book {
	return &Book{store: rs, defaults: cloneAll(defaults)}
}

// Load reads the rule set. An empty store is seeded with the defaults and
// written back; a failed read aborts and nothing is seeded over it.
func (b *Book) Load(ctx context.Context) error {
	log := logger.FromContext(ctx)

	rules, err := b.store.ReadRules(ctx)
	if err != nil {
		return fmt.Errorf("Load: reading rules: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(rules) == 0 {
		log.Info().Int("categories", len(b.defaults)).Msg("Rule store empty, seeding default budget")
		b.rules = cloneAll(b.defaults)
		if err := b.store.WriteRules(ctx, b.rules); err != nil {
			return fmt.Errorf("Load: seeding defaults: %w", err)
		}
		return nil
	}

	b.rules = dedupe(ctx, rules)
	log.Debug().Int("categories", len(b.rules)).Msg("Loaded budget rules")
	return nil
}

// dedupe keeps the first rule for each category name.
func dedupe(ctx context.Context, rules []domain.CategoryRule) []domain.CategoryRule {
	seen := make(map[string]bool, len(rules))
	out := make([]domain.CategoryRule, 0, len(rules))
	for _, r := range rules {
		if seen[r.Category] {
			log := logger.FromContext(ctx)
			log.Warn().Str("category", r.Category).Msg("Duplicate category in store, keeping first")
			continue
		}
		seen[r.Category] = true
		out = append(out, r.Clone())
	}
	return out
}

func (b *Book) indexOf(category string) int {
	for i, r := range b.rules {
		if r.Category == category {
			return i
		}
	}
	return -1
}

// Teach appends keyword to category's learned list. It reports false when
// the keyword was already there, in which case nothing is written.
func (b *Book) Teach(ctx context.Context, keyword, category string) (bool, error) {
	kw := domain.NormalizeKeyword(keyword)
	if kw == "" {
		return false, fmt.Errorf("Teach: %w", domain.ErrEmptyKeyword)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(category)
	if i < 0 {
		return false, fmt.Errorf("Teach: %q: %w", category, domain.ErrUnknownCategory)
	}
	if b.rules[i].HasKeyword(kw) {
		return false, nil
	}
	b.rules[i].Keywords = append(b.rules[i].Keywords, kw)

	if err := b.store.WriteRules(ctx, b.rules); err != nil {
		return true, fmt.Errorf("Teach: writing rules: %w", err)
	}
	log := logger.FromContext(ctx)
	log.Info().Str("keyword", kw).Str("category", category).Msg("Learned keyword")
	return true, nil
}

// Learned flattens every rule's keywords, rule order first, keyword order
// second.
func (b *Book) Learned() []categorize.Rule {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []categorize.Rule
	for _, r := range b.rules {
		for _, kw := range r.Keywords {
			out = append(out, categorize.Rule{Keyword: kw, Category: r.Category})
		}
	}
	return out
}

// Rules returns a copy of the rule set in stored order.
func (b *Book) Rules() []domain.CategoryRule {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneAll(b.rules)
}

// Has reports whether category exists.
func (b *Book) Has(category string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.indexOf(category) >= 0
}

// Categories returns category names in stored order.
func (b *Book) Categories() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.rules))
	for i, r := range b.rules {
		out[i] = r.Category
	}
	return out
}

// GroupOf returns the reporting group of category, or UncategorizedGroup.
func (b *Book) GroupOf(category string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if i := b.indexOf(category); i >= 0 {
		return b.rules[i].Group
	}
	return domain.UncategorizedGroup
}

// Upsert adds a category or updates its group and budget. Learned keywords
// on an existing category are kept unless rule carries its own.
func (b *Book) Upsert(ctx context.Context, rule domain.CategoryRule) error {
	if err := validateRule(rule); err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	rule = normalizeRule(rule)

	b.mu.Lock()
	defer b.mu.Unlock()

	if i := b.indexOf(rule.Category); i >= 0 {
		if len(rule.Keywords) == 0 {
			rule.Keywords = b.rules[i].Keywords
		}
		b.rules[i] = rule
	} else {
		b.rules = append(b.rules, rule)
	}

	if err := b.store.WriteRules(ctx, b.rules); err != nil {
		return fmt.Errorf("Upsert: writing rules: %w", err)
	}
	return nil
}

// Remove deletes a category. Transactions keep their label and report under
// the Uncategorized group afterwards.
func (b *Book) Remove(ctx context.Context, category string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.indexOf(category)
	if i < 0 {
		return fmt.Errorf("Remove: %q: %w", category, domain.ErrUnknownCategory)
	}
	b.rules = append(b.rules[:i], b.rules[i+1:]...)

	if err := b.store.WriteRules(ctx, b.rules); err != nil {
		return fmt.Errorf("Remove: writing rules: %w", err)
	}
	return nil
}

// Replace swaps in a whole edited rule set. Category names must be unique;
// on a validation failure nothing changes.
func (b *Book) Replace(ctx context.Context, rules []domain.CategoryRule) error {
	seen := make(map[string]bool, len(rules))
	next := make([]domain.CategoryRule, 0, len(rules))
	for _, r := range rules {
		if err := validateRule(r); err != nil {
			return fmt.Errorf("Replace: %w", err)
		}
		r = normalizeRule(r)
		if seen[r.Category] {
			return fmt.Errorf("Replace: %q: %w", r.Category, domain.ErrDuplicateCategory)
		}
		seen[r.Category] = true
		next = append(next, r)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.rules = next
	if err := b.store.WriteRules(ctx, b.rules); err != nil {
		return fmt.Errorf("Replace: writing rules: %w", err)
	}
	return nil
}

func validateRule(r domain.CategoryRule) error {
	if strings.TrimSpace(r.Category) == "" {
		return fmt.Errorf("category name is required")
	}
	if strings.TrimSpace(r.Group) == "" {
		return fmt.Errorf("category %q needs a group", r.Category)
	}
	if r.BudgetAmount.IsNegative() {
		return fmt.Errorf("category %q has a negative budget", r.Category)
	}
	return nil
}

// normalizeRule trims names, rounds the budget and cleans the keyword list.
func normalizeRule(r domain.CategoryRule) domain.CategoryRule {
	out := domain.CategoryRule{
		Category:     strings.TrimSpace(r.Category),
		Group:        strings.TrimSpace(r.Group),
		BudgetAmount: r.BudgetAmount.Round(2),
	}
	for _, kw := range r.Keywords {
		kw = domain.NormalizeKeyword(kw)
		if kw == "" || out.HasKeyword(kw) {
			continue
		}
		out.Keywords = append(out.Keywords, kw)
	}
	return out
}

func cloneAll(in []domain.CategoryRule) []domain.CategoryRule {
	out := make([]domain.CategoryRule, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

// Targets maps each category to its planned budget.
func (b *Book) Targets() map[string]decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(b.rules))
	for _, r := range b.rules {
		out[r.Category] = r.BudgetAmount
	}
	return out
}
