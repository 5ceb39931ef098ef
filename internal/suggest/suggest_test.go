package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/household-budget/internal/domain"
)

func TestTerms(t *testing.T) {
	got := terms("AMAZON.COM*AB1CD  Seattle/WA")
	want := "amazon com ab1cd seattle wa"
	if strings.Join(got, " ") != want {
		t.Errorf("terms() = %v, want %q", got, want)
	}
}

func training() []domain.Transaction {
	return []domain.Transaction{
		{Description: "HEB #22 AUSTIN", Category: "Groceries"},
		{Description: "HEB #104 ROUND ROCK", Category: "Groceries"},
		{Description: "WALMART SUPERCENTER", Category: "Groceries"},
		{Description: "SHELL OIL 5512", Category: "Gas"},
		{Description: "SHELL OIL 0042", Category: "Gas"},
		{Description: "EXXON MOBIL", Category: "Gas"},
		{Description: "MYSTERY CHARGE"},
	}
}

func TestBayes_Suggest(t *testing.T) {
	b, err := NewBayes(training())
	if err != nil {
		t.Fatalf("NewBayes() error = %v", err)
	}
	cats := []string{"Groceries", "Gas", "Eating Out"}

	s, err := b.Suggest(context.Background(), "SHELL OIL 7781", cats)
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if s.Category != "Gas" || s.Confidence <= 0.5 || s.Source != "bayes" {
		t.Errorf("Suggest() = %+v, want confident Gas", s)
	}

	// A class the operator does not offer is never proposed.
	s, _ = b.Suggest(context.Background(), "SHELL OIL 7781", []string{"Groceries"})
	if s.Category != "Groceries" {
		t.Errorf("restricted Suggest() = %+v", s)
	}

	s, _ = b.Suggest(context.Background(), "  ", cats)
	if s.Category != "" {
		t.Errorf("empty description gave %+v", s)
	}
}

func TestNewBayes_NotEnoughTraining(t *testing.T) {
	_, err := NewBayes([]domain.Transaction{{Description: "HEB", Category: "Groceries"}})
	if !errors.Is(err, ErrNotEnoughTraining) {
		t.Errorf("NewBayes() error = %v, want ErrNotEnoughTraining", err)
	}
}

func TestLLM_Suggest(t *testing.T) {
	cats := []string{"Groceries", "Eating Out"}

	tests := []struct {
		name     string
		reply    string
		replyErr error
		want     string
		wantErr  bool
	}{
		{
			name:  "plain json",
			reply: `{"category": "Eating Out", "confidence": 0.9}`,
			want:  "Eating Out",
		},
		{
			name:  "fenced json, different case",
			reply: "```json\n{\"category\": \"groceries\", \"confidence\": 0.7}\n```",
			want:  "Groceries",
		},
		{
			name:  "unknown category",
			reply: `{"category": "Vacation", "confidence": 0.8}`,
			want:  "",
		},
		{
			name:    "not json",
			reply:   "I think groceries",
			wantErr: true,
		},
		{
			name:     "transport error",
			replyErr: errors.New("503"),
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var prompt string
			l := &LLM{source: "test", generate: func(_ context.Context, p string) (string, error) {
				prompt = p
				return tt.reply, tt.replyErr
			}}
			s, err := l.Suggest(context.Background(), "STARBUCKS #4102", cats)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Suggest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if s.Category != tt.want {
				t.Errorf("Category = %q, want %q", s.Category, tt.want)
			}
			if !strings.Contains(prompt, "STARBUCKS #4102") || !strings.Contains(prompt, "  - Eating Out") {
				t.Errorf("prompt missing description or categories:\n%s", prompt)
			}
		})
	}
}

func TestNewClaude_RequiresKey(t *testing.T) {
	if _, err := NewClaude("", ""); err == nil {
		t.Error("NewClaude() without a key should fail")
	}
}
