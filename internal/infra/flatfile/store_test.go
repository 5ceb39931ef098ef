package flatfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/shopspring/decimal"
)

func TestStore_EmptyDirectory(t *testing.T) {
	s := NewDir(filepath.Join(t.TempDir(), "not-created-yet"))
	ctx := context.Background()

	txs, err := s.ReadTransactions(ctx)
	if err != nil {
		t.Fatalf("ReadTransactions() error = %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("ReadTransactions() = %v, want empty", txs)
	}
	rules, err := s.ReadRules(ctx)
	if err != nil || len(rules) != 0 {
		t.Errorf("ReadRules() = %v, %v; want empty, nil", rules, err)
	}
}

func TestStore_WriteThenRead(t *testing.T) {
	dir := t.TempDir()
	s := NewDir(dir)
	ctx := context.Background()

	txs := []domain.Transaction{
		{Date: civil.Date{Year: 2024, Month: 6, Day: 1}, Description: `JOE'S "DINER", AUSTIN`, Amount: decimal.RequireFromString("18.40"), Category: "Eating Out"},
		{Date: civil.Date{Year: 2024, Month: 6, Day: 3}, Description: "SHELL", Amount: decimal.RequireFromString("40")},
	}
	if err := s.WriteTransactions(ctx, txs); err != nil {
		t.Fatalf("WriteTransactions() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "Transactions.csv")); err != nil {
		t.Fatalf("expected Transactions.csv: %v", err)
	}

	got, err := s.ReadTransactions(ctx)
	if err != nil {
		t.Fatalf("ReadTransactions() error = %v", err)
	}
	if len(got) != 2 || got[0].Key() != txs[0].Key() || got[1].Key() != txs[1].Key() {
		t.Errorf("ReadTransactions() = %+v", got)
	}

	// A second write replaces the table.
	if err := s.WriteTransactions(ctx, txs[1:]); err != nil {
		t.Fatalf("WriteTransactions() error = %v", err)
	}
	got, _ = s.ReadTransactions(ctx)
	if len(got) != 1 {
		t.Errorf("len = %d after replace, want 1", len(got))
	}
}

func TestStore_RulesAndIncome(t *testing.T) {
	s := NewDir(t.TempDir())
	ctx := context.Background()

	rules := []domain.CategoryRule{{Group: "Food", Category: "Groceries", BudgetAmount: decimal.NewFromInt(600), Keywords: []string{"heb"}}}
	if err := s.WriteRules(ctx, rules); err != nil {
		t.Fatalf("WriteRules() error = %v", err)
	}
	income := []domain.IncomeSource{{Source: "Salary", Amount: decimal.NewFromInt(4000)}}
	if err := s.WriteIncome(ctx, income); err != nil {
		t.Fatalf("WriteIncome() error = %v", err)
	}

	gotRules, err := s.ReadRules(ctx)
	if err != nil || len(gotRules) != 1 || !gotRules[0].HasKeyword("heb") {
		t.Errorf("ReadRules() = %+v, %v", gotRules, err)
	}
	gotIncome, err := s.ReadIncome(ctx)
	if err != nil || len(gotIncome) != 1 || !gotIncome[0].Amount.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("ReadIncome() = %+v, %v", gotIncome, err)
	}
}

type mockBlob struct {
	ReadFunc  func(ctx context.Context, name string) ([]byte, error)
	WriteFunc func(ctx context.Context, name string, data []byte) error
}

func (m *mockBlob) Read(ctx context.Context, name string) ([]byte, error) {
	return m.ReadFunc(ctx, name)
}

func (m *mockBlob) Write(ctx context.Context, name string, data []byte) error {
	return m.WriteFunc(ctx, name, data)
}

func (m *mockBlob) Location() string { return "mock" }

func TestStore_ReadFailureIsNotEmpty(t *testing.T) {
	s := New(&mockBlob{
		ReadFunc: func(ctx context.Context, name string) ([]byte, error) {
			return nil, errors.New("permission denied")
		},
	}, nil)

	_, err := s.ReadRules(context.Background())
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("ReadRules() error = %v, want ErrStoreUnavailable", err)
	}
}

func TestStore_WriteFailure(t *testing.T) {
	s := New(&mockBlob{
		WriteFunc: func(ctx context.Context, name string, data []byte) error {
			return errors.New("disk full")
		},
	}, nil)

	err := s.WriteIncome(context.Background(), nil)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("WriteIncome() error = %v, want ErrStoreUnavailable", err)
	}
}
