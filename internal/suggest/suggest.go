// Package suggest proposes categories for uncategorized transactions. A
// suggestion is advice for the operator; nothing here writes to the ledger
// or teaches keywords.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/household-budget/internal/config"
	"github.com/dvloznov/household-budget/internal/domain"
)

// ErrNotEnoughTraining means the ledger has too few categorized rows to
// train a local classifier.
var ErrNotEnoughTraining = errors.New("suggest: need categorized rows in at least two categories")

// Suggestion is a proposed category for one description.
type Suggestion struct {
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	Source      string  `json:"source"`
}

// Suggester proposes one of categories for description. An empty Category
// means no confident guess.
type Suggester interface {
	Suggest(ctx context.Context, description string, categories []string) (Suggestion, error)
}

// New builds the suggester named by cfg.Provider. training feeds the local
// Bayes provider and is ignored by the hosted ones.
func New(ctx context.Context, cfg config.SuggestConfig, training []domain.Transaction) (Suggester, error) {
	switch cfg.Provider {
	case config.ProviderBayes, "":
		return NewBayes(training)
	case config.ProviderGemini:
		return NewGemini(ctx, cfg.APIKey, cfg.Model)
	case config.ProviderClaude:
		return NewClaude(cfg.APIKey, cfg.Model)
	}
	return nil, fmt.Errorf("New: unknown provider %q", cfg.Provider)
}

// terms splits a bank description into lowercase classification terms.
func terms(desc string) []string {
	desc = strings.ToLower(desc)
	desc = strings.Map(func(r rune) rune {
		switch r {
		case '*', '#', '/', ',', '.', '-', '_':
			return ' '
		}
		return r
	}, desc)
	return strings.Fields(desc)
}

// pick returns the category in categories equal to name ignoring case.
func pick(name string, categories []string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range categories {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}
