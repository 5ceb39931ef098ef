package budget_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/household-budget/internal/budget"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/importer"
	"github.com/dvloznov/household-budget/internal/infra/inmemory"
	"github.com/dvloznov/household-budget/internal/reconcile"
	"github.com/dvloznov/household-budget/internal/session"
	"github.com/dvloznov/household-budget/internal/suggest"
	"github.com/shopspring/decimal"
)

// mockSink is a mock implementation of notify.Sink for testing
type mockSink struct {
	SendFunc func(ctx context.Context, subject, html string) error
}

func (m *mockSink) Send(ctx context.Context, subject, html string) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, subject, html)
	}
	return nil
}

// mockArchiver is a mock implementation of budget.Archiver for testing
type mockArchiver struct {
	UploadBytesFunc func(ctx context.Context, uri string, data []byte, contentType string) error
}

func (m *mockArchiver) UploadBytes(ctx context.Context, uri string, data []byte, contentType string) error {
	if m.UploadBytesFunc != nil {
		return m.UploadBytesFunc(ctx, uri, data, contentType)
	}
	return nil
}

func day(d int) civil.Date {
	return civil.Date{Year: 2024, Month: 4, Day: d}
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tx(d int, desc, amount, cat string) domain.Transaction {
	return domain.Transaction{Date: day(d), Description: desc, Amount: money(amount), Category: cat}
}

func fixtureRules() []domain.CategoryRule {
	return []domain.CategoryRule{
		{Category: "Groceries", Group: "Food", BudgetAmount: money("700")},
		{Category: "Eating Out", Group: "Food", BudgetAmount: money("150")},
		{Category: "Gas", Group: "Transportation", BudgetAmount: money("200")},
	}
}

func newService(t *testing.T, opts budget.Options) (*budget.Service, *inmemory.Store) {
	t.Helper()
	st := inmemory.NewStore()
	st.Seed(
		[]domain.Transaction{
			tx(1, "HEB #22", "54.10", "Groceries"),
			tx(3, "SHELL OIL", "40.00", "Gas"),
			tx(4, "MYSTERY CHARGE", "12.00", ""),
		},
		fixtureRules(),
		[]domain.IncomeSource{{Source: "Salary", Amount: money("5000")}},
	)
	svc := budget.New(st, opts)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return svc, st
}

func importBatch() []importer.FileResult {
	return []importer.FileResult{{
		Name:   "checking.csv",
		Layout: importer.LayoutPositional,
		Rows:   3,
		Transactions: []domain.Transaction{
			tx(1, "HEB #22", "54.10", ""),         // re-import
			tx(5, "SHELL OIL 0042", "40.00", ""),  // fuzzy against SHELL OIL
			tx(10, "STARBUCKS #4102", "6.25", ""), // clean
		},
	}}
}

func TestImportResolveCommit(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t, budget.Options{})
	sess := session.NewManager().Create()

	sum, err := svc.Import(ctx, sess, importBatch())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if sum.Clean != 1 || sum.Conflicts != 1 || sum.Discarded != 1 {
		t.Fatalf("Import() summary = %+v", sum)
	}
	if st.Writes() != 0 {
		t.Errorf("staging wrote %d times, want 0", st.Writes())
	}

	if _, err := svc.Commit(ctx, sess); !errors.Is(err, domain.ErrQueueNotDrained) {
		t.Fatalf("Commit() before resolving error = %v, want ErrQueueNotDrained", err)
	}

	c, err := svc.CurrentConflict(sess)
	if err != nil {
		t.Fatalf("CurrentConflict() error = %v", err)
	}
	if c.Existing.Description != "SHELL OIL" {
		t.Errorf("conflict existing = %q, want SHELL OIL", c.Existing.Description)
	}

	remaining, err := svc.Resolve(ctx, sess, reconcile.Replace)
	if err != nil || remaining != 0 {
		t.Fatalf("Resolve() = %d, %v", remaining, err)
	}
	if _, err := svc.Resolve(ctx, sess, reconcile.KeepBoth); !errors.Is(err, domain.ErrQueueIdle) {
		t.Errorf("Resolve() on drained queue error = %v, want ErrQueueIdle", err)
	}

	res, err := svc.Commit(ctx, sess)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if res.Removed != 1 || res.Added != 2 {
		t.Errorf("Commit() = %+v, want 1 removed, 2 added", res)
	}
	if sess.HasPendingImport() {
		t.Error("session still has a pending import after commit")
	}

	stored, _ := st.ReadTransactions(ctx)
	var descs []string
	for _, r := range stored {
		descs = append(descs, r.Description)
	}
	want := "HEB #22|MYSTERY CHARGE|STARBUCKS #4102|SHELL OIL 0042"
	if got := strings.Join(descs, "|"); got != want {
		t.Errorf("stored ledger = %s, want %s", got, want)
	}
	if stored[2].Category != "Eating Out" {
		t.Errorf("STARBUCKS category = %q, want Eating Out", stored[2].Category)
	}

	if _, err := svc.Commit(ctx, sess); !errors.Is(err, domain.ErrQueueIdle) {
		t.Errorf("second Commit() error = %v, want ErrQueueIdle", err)
	}
}

func TestImport_OnePendingPerSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, budget.Options{})
	sess := session.NewManager().Create()

	if _, err := svc.Import(ctx, sess, importBatch()); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if _, err := svc.Import(ctx, sess, importBatch()); !errors.Is(err, domain.ErrQueueNotDrained) {
		t.Errorf("second Import() error = %v, want ErrQueueNotDrained", err)
	}

	svc.DiscardImport(ctx, sess)
	if _, err := svc.Import(ctx, sess, importBatch()); err != nil {
		t.Errorf("Import() after discard error = %v", err)
	}
}

func TestTeachThenRecategorize(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, budget.Options{})

	added, err := svc.Teach(ctx, " Mystery ", "groceries")
	if err != nil || !added {
		t.Fatalf("Teach() = %v, %v", added, err)
	}
	if _, err := svc.Teach(ctx, "x", "Vacation"); !errors.Is(err, domain.ErrUnknownCategory) {
		t.Errorf("Teach() unknown category error = %v", err)
	}

	n, err := svc.Recategorize(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Recategorize() = %d, %v, want 1", n, err)
	}
	if q := svc.ReviewQueue(); len(q) != 0 {
		t.Errorf("ReviewQueue() = %v, want empty", q)
	}
}

func TestAddManual(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, budget.Options{})

	st, err := svc.AddManual(ctx, domain.Transaction{Date: day(12), Description: "Farmers market", Amount: money("20"), Category: "groceries"})
	if err != nil {
		t.Fatalf("AddManual() error = %v", err)
	}
	if st.Category != "Groceries" || !st.Remaining.Equal(money("625.90")) {
		t.Errorf("AddManual() status = %+v, want Groceries with 625.90 left", st)
	}

	tests := []struct {
		name    string
		tx      domain.Transaction
		wantErr error
	}{
		{"zero amount", domain.Transaction{Date: day(1), Amount: decimal.Zero, Category: "Gas"}, domain.ErrUnparsableAmount},
		{"no date", domain.Transaction{Amount: money("5"), Category: "Gas"}, domain.ErrUnparsableDate},
		{"unknown category", domain.Transaction{Date: day(1), Amount: money("5"), Category: "Boats"}, domain.ErrUnknownCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.AddManual(ctx, tt.tx); !errors.Is(err, tt.wantErr) {
				t.Errorf("AddManual() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitAndRename(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, budget.Options{})

	key := tx(1, "HEB #22", "54.10", "").Key()
	parts := []domain.SplitPart{
		{Amount: money("40.00"), Category: "Groceries"},
		{Amount: money("14.10"), Category: "eating out"},
	}
	out, err := svc.Split(ctx, key, parts)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(out) != 2 || out[1].Category != "Eating Out" {
		t.Errorf("Split() = %+v", out)
	}
	if parts[1].Category != "eating out" {
		t.Error("Split() modified the caller's parts")
	}

	if _, err := svc.Split(ctx, key, parts); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Errorf("Split() of removed row error = %v, want ErrTransactionNotFound", err)
	}

	if _, err := svc.Rename(ctx, "Eating Out", "Takeaway"); !errors.Is(err, domain.ErrUnknownCategory) {
		t.Errorf("Rename() to unknown error = %v, want ErrUnknownCategory", err)
	}
	n, err := svc.Rename(ctx, "Eating Out", "Groceries")
	if err != nil || n != 1 {
		t.Errorf("Rename() = %d, %v, want 1", n, err)
	}
	if got := svc.Transactions(budget.Filter{Category: "Eating Out"}); len(got) != 0 {
		t.Errorf("rows still in Eating Out: %v", got)
	}
}

func TestOpenEditSaveEdits(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, budget.Options{})
	sess := session.NewManager().Create()

	rows := svc.OpenEdit(sess, budget.Filter{NeedsAttention: true})
	if len(rows) != 1 || rows[0].Description != "MYSTERY CHARGE" {
		t.Fatalf("OpenEdit() = %v", rows)
	}
	rows[0].Category = "Gas"

	removed, added, err := svc.SaveEdits(ctx, sess, rows)
	if err != nil || removed != 1 || added != 1 {
		t.Fatalf("SaveEdits() = %d, %d, %v", removed, added, err)
	}
	if got := svc.Transactions(budget.Filter{}); len(got) != 3 {
		t.Errorf("ledger has %d rows, want 3", len(got))
	}
	if _, _, err := svc.SaveEdits(ctx, sess, rows); err == nil {
		t.Error("SaveEdits() without an open view should fail")
	}
}

func TestWriteFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t, budget.Options{})

	st.WriteErr = errors.New("connection refused")
	_, err := svc.AddManual(ctx, domain.Transaction{Date: day(2), Description: "Diner", Amount: money("9"), Category: "Eating Out"})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("AddManual() error = %v, want ErrStoreUnavailable", err)
	}
	if got := svc.Transactions(budget.Filter{Category: "Eating Out"}); len(got) != 1 {
		t.Errorf("in-memory ledger lost the row: %v", got)
	}

	st.WriteErr = nil
	if err := svc.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	stored, _ := st.ReadTransactions(ctx)
	if len(stored) != 4 {
		t.Errorf("stored %d rows after Flush, want 4", len(stored))
	}
}

func TestLoad_ReadFailure(t *testing.T) {
	st := inmemory.NewStore()
	st.ReadErr = errors.New("timeout")
	svc := budget.New(st, budget.Options{})

	if err := svc.Load(context.Background()); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("Load() error = %v, want ErrStoreUnavailable", err)
	}
	if _, err := svc.Recategorize(context.Background()); err == nil {
		t.Error("Recategorize() on an unloaded service should fail")
	}
}

func TestSendReport(t *testing.T) {
	ctx := context.Background()

	var subject, body, archived string
	sink := &mockSink{SendFunc: func(_ context.Context, s, h string) error {
		subject, body = s, h
		return nil
	}}
	arch := &mockArchiver{UploadBytesFunc: func(_ context.Context, uri string, _ []byte, _ string) error {
		archived = uri
		return nil
	}}
	svc, _ := newService(t, budget.Options{Sink: sink, Archive: arch, ArchiveBucket: "family-reports"})

	sum, err := svc.SendReport(ctx, domain.DateRange{Start: day(1), End: day(30)})
	if err != nil {
		t.Fatalf("SendReport() error = %v", err)
	}
	if !sum.Spent.Equal(money("106.10")) {
		t.Errorf("Spent = %s, want 106.10", sum.Spent)
	}
	if !strings.Contains(subject, "$106.10 spent") {
		t.Errorf("subject = %q", subject)
	}
	if !strings.Contains(body, "Groceries") {
		t.Error("body does not mention Groceries")
	}
	if !strings.HasPrefix(archived, "gs://family-reports/reports/") {
		t.Errorf("archived to %q", archived)
	}
}

func TestSendReport_DeliveryFailure(t *testing.T) {
	sink := &mockSink{SendFunc: func(context.Context, string, string) error {
		return domain.ErrNotificationDeliveryFailed
	}}
	svc, _ := newService(t, budget.Options{Sink: sink})

	sum, err := svc.SendReport(context.Background(), domain.DateRange{})
	if !errors.Is(err, domain.ErrNotificationDeliveryFailed) {
		t.Fatalf("SendReport() error = %v", err)
	}
	if sum.Transactions != 3 {
		t.Errorf("summary still expected on failure, got %+v", sum)
	}
}

func TestCategoryStatus(t *testing.T) {
	svc, _ := newService(t, budget.Options{})

	st, err := svc.CategoryStatus("gas", domain.DateRange{})
	if err != nil {
		t.Fatalf("CategoryStatus() error = %v", err)
	}
	if !st.Remaining.Equal(money("160")) {
		t.Errorf("Remaining = %s, want 160", st.Remaining)
	}
	if _, err := svc.CategoryStatus("Boats", domain.DateRange{}); !errors.Is(err, domain.ErrUnknownCategory) {
		t.Errorf("CategoryStatus() unknown error = %v", err)
	}
}

func TestReplaceIncome(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t, budget.Options{})

	if err := svc.ReplaceIncome(ctx, []domain.IncomeSource{{Source: " ", Amount: money("1")}}); err == nil {
		t.Error("ReplaceIncome() with empty name should fail")
	}
	err := svc.ReplaceIncome(ctx, []domain.IncomeSource{
		{Source: "Salary", Amount: money("5200")},
		{Source: "Tutoring", Amount: money("300")},
	})
	if err != nil {
		t.Fatalf("ReplaceIncome() error = %v", err)
	}
	stored, _ := st.ReadIncome(ctx)
	if len(stored) != 2 || len(svc.Income()) != 2 {
		t.Errorf("income = %v", stored)
	}
}

type fixedSuggester struct {
	calls int
}

func (f *fixedSuggester) Suggest(_ context.Context, desc string, cats []string) (suggest.Suggestion, error) {
	f.calls++
	return suggest.Suggestion{Description: desc, Category: cats[0], Source: "fixed"}, nil
}

func TestSuggest_OncePerDescription(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, budget.Options{})
	if _, err := svc.AddManual(ctx, domain.Transaction{Date: day(9), Description: "Diner", Amount: money("9"), Category: "Eating Out"}); err != nil {
		t.Fatalf("AddManual() error = %v", err)
	}

	sg := &fixedSuggester{}
	got, err := svc.Suggest(ctx, sg)
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if len(got) != 1 || got[0].Description != "MYSTERY CHARGE" || got[0].Category != "Groceries" {
		t.Errorf("Suggest() = %+v", got)
	}
	if q := svc.ReviewQueue(); len(q) != 1 {
		t.Error("Suggest() must not categorize rows")
	}
	if n := len(svc.TrainingSet()); n != 3 {
		t.Errorf("TrainingSet() has %d rows, want 3", n)
	}
}

func TestNew_FuzzyWindow(t *testing.T) {
	zero := 0
	tests := []struct {
		name          string
		window        *int
		wantConflicts int
		wantClean     int
	}{
		{"unset uses two days", nil, 1, 1},
		{"explicit zero is same day only", &zero, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t, budget.Options{WindowDays: tt.window})
			sess := session.NewManager().Create()

			sum, err := svc.Import(context.Background(), sess, importBatch())
			if err != nil {
				t.Fatalf("Import() error = %v", err)
			}
			if sum.Conflicts != tt.wantConflicts || sum.Clean != tt.wantClean {
				t.Errorf("Import() summary = %+v, want %d conflicts, %d clean", sum, tt.wantConflicts, tt.wantClean)
			}
		})
	}
}

func TestCommit_StaleAcrossSessions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, budget.Options{})
	sessions := session.NewManager()
	a, b := sessions.Create(), sessions.Create()

	batch := []importer.FileResult{{
		Name:         "checking.csv",
		Transactions: []domain.Transaction{tx(20, "STARBUCKS #4102", "6.25", "")},
	}}
	for _, sess := range []*session.Session{a, b} {
		if _, err := svc.Import(ctx, sess, batch); err != nil {
			t.Fatalf("Import() error = %v", err)
		}
	}

	if _, err := svc.Commit(ctx, a); err != nil {
		t.Fatalf("Commit(a) error = %v", err)
	}
	if _, err := svc.Commit(ctx, b); !errors.Is(err, domain.ErrStaleImport) {
		t.Fatalf("Commit(b) error = %v, want ErrStaleImport", err)
	}
	if b.HasPendingImport() {
		t.Error("stale import still staged")
	}

	sum, err := svc.Import(ctx, b, batch)
	if err != nil {
		t.Fatalf("re-Import() error = %v", err)
	}
	if sum.Discarded != 1 || sum.Clean != 0 {
		t.Errorf("re-Import() summary = %+v, want the row discarded as a re-import", sum)
	}
	if res, err := svc.Commit(ctx, b); err != nil || res.Added != 0 {
		t.Fatalf("Commit(b) after restage = %+v, %v", res, err)
	}

	key := tx(20, "STARBUCKS #4102", "6.25", "").Key()
	n := 0
	for _, row := range svc.Transactions(budget.Filter{}) {
		if row.Key() == key {
			n++
		}
	}
	if n != 1 {
		t.Errorf("ledger holds %d rows for %v, want 1", n, key)
	}
}

func TestCommit_StaleAfterEdit(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(t, budget.Options{})
	sess := session.NewManager().Create()

	if _, err := svc.Import(ctx, sess, importBatch()); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if _, err := svc.Resolve(ctx, sess, reconcile.Replace); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	// The row the Replace targets is split away before the commit.
	if _, err := svc.Split(ctx, tx(3, "SHELL OIL", "40.00", "Gas").Key(), []domain.SplitPart{
		{Amount: money("30"), Category: "Gas"},
		{Amount: money("10"), Category: "Groceries"},
	}); err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	writes := st.Writes()

	if _, err := svc.Commit(ctx, sess); !errors.Is(err, domain.ErrStaleImport) {
		t.Fatalf("Commit() error = %v, want ErrStaleImport", err)
	}
	if st.Writes() != writes {
		t.Error("stale commit wrote to the store")
	}
	for _, row := range svc.Transactions(budget.Filter{}) {
		if row.Description == "SHELL OIL 0042" {
			t.Errorf("stale commit added %+v", row)
		}
	}
}
