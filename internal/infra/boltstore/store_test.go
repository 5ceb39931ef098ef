package boltstore

import (
	"context"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/shopspring/decimal"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_EmptyTables(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	txs, err := s.ReadTransactions(ctx)
	if err != nil || len(txs) != 0 {
		t.Errorf("ReadTransactions() = %v, %v; want empty, nil", txs, err)
	}
	income, err := s.ReadIncome(ctx)
	if err != nil || len(income) != 0 {
		t.Errorf("ReadIncome() = %v, %v; want empty, nil", income, err)
	}
}

func TestStore_PreservesOrderAndReplaces(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	var txs []domain.Transaction
	for i := 1; i <= 12; i++ {
		txs = append(txs, domain.Transaction{
			Date:        civil.Date{Year: 2024, Month: 1, Day: i},
			Description: "ROW",
			Amount:      decimal.NewFromInt(int64(i)),
		})
	}
	if err := s.WriteTransactions(ctx, txs); err != nil {
		t.Fatalf("WriteTransactions() error = %v", err)
	}

	got, err := s.ReadTransactions(ctx)
	if err != nil {
		t.Fatalf("ReadTransactions() error = %v", err)
	}
	if len(got) != 12 {
		t.Fatalf("len = %d, want 12", len(got))
	}
	for i := range got {
		if got[i].Key() != txs[i].Key() {
			t.Fatalf("row %d = %v, want %v (order must survive)", i, got[i].Key(), txs[i].Key())
		}
	}

	if err := s.WriteTransactions(ctx, txs[:3]); err != nil {
		t.Fatalf("WriteTransactions() error = %v", err)
	}
	got, _ = s.ReadTransactions(ctx)
	if len(got) != 3 {
		t.Errorf("len = %d after replace, want 3", len(got))
	}
}

func TestStore_Rules(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	rules := []domain.CategoryRule{
		{Group: "Food", Category: "Groceries", BudgetAmount: decimal.NewFromInt(600), Keywords: []string{"heb", "aldi"}},
		{Group: "Giving", Category: "Tithe", BudgetAmount: decimal.NewFromInt(500)},
	}
	if err := s.WriteRules(ctx, rules); err != nil {
		t.Fatalf("WriteRules() error = %v", err)
	}
	got, err := s.ReadRules(ctx)
	if err != nil {
		t.Fatalf("ReadRules() error = %v", err)
	}
	if len(got) != 2 || len(got[0].Keywords) != 2 || got[1].Category != "Tithe" {
		t.Errorf("ReadRules() = %+v", got)
	}
}
