package importer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dvloznov/household-budget/internal/domain"
)

func TestParseCSV_Positional(t *testing.T) {
	in := `01/15/2024,-45.10,*,,SHELL OIL 1234
01/16/2024,"-1,204.00",*,,HEB #22
01/17/2024,200.00,*,,PAYROLL DEPOSIT
01/18/2024,abc,*,,BROKEN ROW
`
	res, err := ParseCSV("checking.csv", strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if res.Layout != LayoutPositional {
		t.Errorf("Layout = %v, want positional", res.Layout)
	}
	if res.Rows != 4 || res.BadAmounts != 1 || res.SignDropped != 1 {
		t.Errorf("rows=%d bad=%d signDropped=%d, want 4/1/1", res.Rows, res.BadAmounts, res.SignDropped)
	}
	if res.Accepted() != 2 {
		t.Fatalf("Accepted() = %d, want 2", res.Accepted())
	}
	tx := res.Transactions[1]
	if tx.Description != "HEB #22" || tx.Amount.StringFixed(2) != "1204.00" || tx.Date.String() != "2024-01-16" {
		t.Errorf("second row = %+v", tx)
	}
	if tx.Category != "" || tx.NeedsReview {
		t.Errorf("parsed rows must be uncategorized: %+v", tx)
	}
}

func TestParseCSV_Header(t *testing.T) {
	in := `Transaction Date,Description,Amount
2024-02-01,Netflix.com,15.49
2024-02-03,Starbucks,$6.25
bad-date,Somewhere,1.00
`
	res, err := ParseCSV("card.csv", strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if res.Layout != LayoutHeader {
		t.Errorf("Layout = %v, want header", res.Layout)
	}
	if res.Accepted() != 2 || res.BadDates != 1 {
		t.Errorf("accepted=%d badDates=%d, want 2/1", res.Accepted(), res.BadDates)
	}
	// No negatives in the batch: every row is spend.
	if res.Transactions[1].Amount.StringFixed(2) != "6.25" {
		t.Errorf("amount = %s", res.Transactions[1].Amount)
	}
}

func TestParseCSV_Unrecognized(t *testing.T) {
	tests := map[string]string{
		"narrow headerless":     "2024-01-01,5.00,COFFEE\n",
		"header without amount": "Date,Description\n2024-01-01,COFFEE\n",
		"empty":                 "",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCSV("x.csv", strings.NewReader(in))
			if !errors.Is(err, domain.ErrUnrecognizedLayout) {
				t.Errorf("ParseCSV() error = %v, want ErrUnrecognizedLayout", err)
			}
		})
	}
}

func TestParseCSV_BackslashEscapedQuotes(t *testing.T) {
	in := `Date,Description,Amount
2024-03-01,"JOE\"S DINER",-12.00
`
	res, err := ParseCSV("escaped.csv", strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCSV() error = %v", err)
	}
	if res.Accepted() != 1 || res.Transactions[0].Description != "JOES DINER" {
		t.Errorf("transactions = %+v", res.Transactions)
	}
}

type mockSource struct {
	OpenFunc func(ctx context.Context, uri string) (io.ReadCloser, error)
}

func (m *mockSource) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	return m.OpenFunc(ctx, uri)
}

func TestImportFiles_BadFileDoesNotAbortBatch(t *testing.T) {
	files := map[string]string{
		"good.csv": "Date,Description,Amount\n2024-01-01,HEB,-10.00\n",
		"bad.csv":  "just,two\n",
	}
	src := &mockSource{OpenFunc: func(_ context.Context, uri string) (io.ReadCloser, error) {
		body, ok := files[uri]
		if !ok {
			return nil, os.ErrNotExist
		}
		return io.NopCloser(strings.NewReader(body)), nil
	}}

	results := New(src).ImportFiles(context.Background(), []string{"bad.csv", "missing.csv", "good.csv"})
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Err == nil || results[1].Err == nil {
		t.Error("bad and missing files should carry errors")
	}
	if results[2].Err != nil || results[2].Accepted() != 1 {
		t.Errorf("good file = %+v", results[2])
	}
}

func TestMultiSource_LocalFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "export.csv")
	if err := os.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	rc, err := MultiSource{}.Open(context.Background(), p)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "hello" {
		t.Errorf("read %q", b)
	}

	if _, err := (MultiSource{}).Open(context.Background(), "gs://bucket/x.csv"); err == nil {
		t.Error("gs:// without a storage client should fail")
	}
}
