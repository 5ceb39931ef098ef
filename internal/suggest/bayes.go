package suggest

import (
	"context"
	"math"

	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/jbrukh/bayesian"
)

// Bayes is a naive Bayes classifier trained on the categorized ledger.
type Bayes struct {
	classes []bayesian.Class
	cl      *bayesian.Classifier
}

// NewBayes trains on every categorized row of training. It needs rows in at
// least two categories.
func NewBayes(training []domain.Transaction) (*Bayes, error) {
	seen := make(map[string]bool)
	var classes []bayesian.Class
	for _, tx := range training {
		if !tx.IsCategorized() || seen[tx.Category] {
			continue
		}
		seen[tx.Category] = true
		classes = append(classes, bayesian.Class(tx.Category))
	}
	if len(classes) < 2 {
		return nil, ErrNotEnoughTraining
	}

	cl := bayesian.NewClassifier(classes...)
	for _, tx := range training {
		if !tx.IsCategorized() {
			continue
		}
		if t := terms(tx.Description); len(t) > 0 {
			cl.Learn(t, bayesian.Class(tx.Category))
		}
	}
	return &Bayes{classes: classes, cl: cl}, nil
}

// Suggest picks the highest scoring class among categories. Confidence is
// the softmax of the log scores over the allowed classes.
func (b *Bayes) Suggest(_ context.Context, description string, categories []string) (Suggestion, error) {
	out := Suggestion{Description: description, Source: "bayes"}
	t := terms(description)
	if len(t) == 0 {
		return out, nil
	}

	allowed := make(map[string]bool, len(categories))
	for _, c := range categories {
		allowed[c] = true
	}

	scores, _, _ := b.cl.LogScores(t)
	best, maxScore := -1, math.Inf(-1)
	for i, s := range scores {
		if !allowed[string(b.classes[i])] {
			continue
		}
		if s > maxScore {
			best, maxScore = i, s
		}
	}
	if best < 0 || math.IsInf(maxScore, -1) {
		return out, nil
	}

	var sum float64
	for i, s := range scores {
		if allowed[string(b.classes[i])] {
			sum += math.Exp(s - maxScore)
		}
	}
	out.Category = string(b.classes[best])
	out.Confidence = 1 / sum
	return out, nil
}

var _ Suggester = (*Bayes)(nil)
