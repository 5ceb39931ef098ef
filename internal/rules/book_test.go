package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/household-budget/internal/config"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/infra/inmemory"
	"github.com/shopspring/decimal"
)

func seededBook(t *testing.T) (*Book, *inmemory.Store) {
	t.Helper()
	st := inmemory.NewStore()
	b := NewBook(st, DefaultsFromConfig(config.Default().Budget.Defaults))
	if err := b.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return b, st
}

func TestLoad_SeedsEmptyStore(t *testing.T) {
	b, st := seededBook(t)

	if got := len(b.Categories()); got != 8 {
		t.Errorf("len(Categories()) = %d, want 8", got)
	}
	stored, _ := st.ReadRules(context.Background())
	if len(stored) != 8 {
		t.Errorf("seeded rules not written back, store has %d", len(stored))
	}
	if b.GroupOf("Groceries") != "Food" {
		t.Errorf("GroupOf(Groceries) = %q, want Food", b.GroupOf("Groceries"))
	}
}

func TestLoad_ReadFailureDoesNotSeed(t *testing.T) {
	st := inmemory.NewStore()
	st.ReadErr = errors.New("timeout")
	b := NewBook(st, DefaultsFromConfig(config.Default().Budget.Defaults))

	err := b.Load(context.Background())
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("Load() error = %v, want ErrStoreUnavailable", err)
	}
	if st.Writes() != 0 {
		t.Error("a failed read must never be answered by seeding defaults")
	}
	if len(b.Categories()) != 0 {
		t.Error("no rules should be loaded after a failed read")
	}
}

func TestLoad_KeepsExistingRules(t *testing.T) {
	st := inmemory.NewStore()
	st.Seed(nil, []domain.CategoryRule{
		{Group: "Food", Category: "Groceries", Keywords: []string{"aldi"}},
		{Group: "Food", Category: "Groceries", Keywords: []string{"dupe"}},
	}, nil)
	b := NewBook(st, DefaultsFromConfig(config.Default().Budget.Defaults))

	if err := b.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := b.Categories(); len(got) != 1 {
		t.Errorf("Categories() = %v, want only the first Groceries", got)
	}
	if st.Writes() != 0 {
		t.Error("loading existing rules should not write")
	}
}

func TestTeach_Idempotent(t *testing.T) {
	b, st := seededBook(t)
	ctx := context.Background()
	before := st.Writes()

	added, err := b.Teach(ctx, "  Costco ", "Groceries")
	if err != nil || !added {
		t.Fatalf("Teach() = %v, %v; want true, nil", added, err)
	}
	added, err = b.Teach(ctx, "costco", "Groceries")
	if err != nil || added {
		t.Fatalf("second Teach() = %v, %v; want false, nil", added, err)
	}

	count := 0
	for _, r := range b.Learned() {
		if r.Keyword == "costco" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("keyword appears %d times, want 1", count)
	}
	if st.Writes() != before+1 {
		t.Errorf("writes = %d, want exactly one write for the first teach", st.Writes()-before)
	}
}

func TestTeach_Errors(t *testing.T) {
	b, _ := seededBook(t)
	ctx := context.Background()

	if _, err := b.Teach(ctx, "costco", "Warehouse Clubs"); !errors.Is(err, domain.ErrUnknownCategory) {
		t.Errorf("Teach() unknown category error = %v", err)
	}
	if _, err := b.Teach(ctx, "   ", "Groceries"); !errors.Is(err, domain.ErrEmptyKeyword) {
		t.Errorf("Teach() empty keyword error = %v", err)
	}
}

func TestTeach_StoreFailureKeepsMemory(t *testing.T) {
	b, st := seededBook(t)
	st.WriteErr = errors.New("offline")

	_, err := b.Teach(context.Background(), "costco", "Groceries")
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("Teach() error = %v, want ErrStoreUnavailable", err)
	}
	if len(b.Learned()) != 1 {
		t.Error("in-memory keyword should remain after a failed write")
	}
}

func TestLearned_Order(t *testing.T) {
	b, _ := seededBook(t)
	ctx := context.Background()
	b.Teach(ctx, "b-second", "Gas")
	b.Teach(ctx, "a-first", "Tithe")
	b.Teach(ctx, "c-third", "Gas")

	got := b.Learned()
	want := []string{"a-first", "b-second", "c-third"} // Tithe precedes Gas in rule order
	if len(got) != len(want) {
		t.Fatalf("Learned() = %v", got)
	}
	for i := range want {
		if got[i].Keyword != want[i] {
			t.Errorf("Learned()[%d] = %q, want %q", i, got[i].Keyword, want[i])
		}
	}
}

func TestUpsertAndRemove(t *testing.T) {
	b, _ := seededBook(t)
	ctx := context.Background()
	b.Teach(ctx, "heb", "Groceries")

	err := b.Upsert(ctx, domain.CategoryRule{Group: "Food", Category: "Groceries", BudgetAmount: decimal.NewFromInt(700)})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if !b.Targets()["Groceries"].Equal(decimal.NewFromInt(700)) {
		t.Errorf("budget not updated: %v", b.Targets()["Groceries"])
	}
	if len(b.Learned()) != 1 {
		t.Error("Upsert without keywords should keep learned keywords")
	}

	if err := b.Upsert(ctx, domain.CategoryRule{Group: "Kids", Category: "Childcare", BudgetAmount: decimal.NewFromInt(300)}); err != nil {
		t.Fatalf("Upsert() new error = %v", err)
	}
	if !b.Has("Childcare") {
		t.Error("new category missing")
	}

	if err := b.Remove(ctx, "Childcare"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if b.Has("Childcare") {
		t.Error("category still present after Remove")
	}
	if err := b.Remove(ctx, "Childcare"); !errors.Is(err, domain.ErrUnknownCategory) {
		t.Errorf("Remove() twice error = %v", err)
	}
}

func TestReplace_RejectsDuplicates(t *testing.T) {
	b, _ := seededBook(t)
	err := b.Replace(context.Background(), []domain.CategoryRule{
		{Group: "Food", Category: "Groceries"},
		{Group: "Home", Category: "Groceries"},
	})
	if !errors.Is(err, domain.ErrDuplicateCategory) {
		t.Fatalf("Replace() error = %v, want ErrDuplicateCategory", err)
	}
	if len(b.Categories()) != 8 {
		t.Error("failed Replace must leave the rule set untouched")
	}
}
