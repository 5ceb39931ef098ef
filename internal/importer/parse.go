// Package importer turns bank-export CSV files into uncategorized
// transactions ready for categorization and reconciliation.
package importer

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/normalize"
	"github.com/pkg/errors"
)

// Layout is how a file's columns were mapped.
type Layout int

const (
	LayoutUnknown Layout = iota
	// LayoutHeader maps columns by their header names.
	LayoutHeader
	// LayoutPositional maps column 0 to Date, 1 to Amount and 4 to Description.
	LayoutPositional
)

func (l Layout) String() string {
	switch l {
	case LayoutHeader:
		return "header"
	case LayoutPositional:
		return "positional"
	}
	return "unknown"
}

// positional mapping for headerless exports
const (
	posDate        = 0
	posAmount      = 1
	posDescription = 4
	posMinColumns  = 5
)

var (
	dateHeaders        = []string{"date", "transaction date", "posting date", "post date"}
	amountHeaders      = []string{"amount"}
	descriptionHeaders = []string{"description", "memo", "payee"}
)

// FileResult is the outcome of parsing one file.
type FileResult struct {
	Name         string
	Layout       Layout
	Transactions []domain.Transaction
	Rows         int // data rows read
	BadAmounts   int // rows dropped for an unparsable amount
	BadDates     int // rows dropped for an unparsable date
	SignDropped  int // credits dropped by the sign heuristic
	Err          error
}

// Accepted is the number of transactions the file produced.
func (f FileResult) Accepted() int {
	return len(f.Transactions)
}

type columns struct {
	date, amount, description int
}

func findColumn(header []string, names []string) int {
	for _, want := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), want) {
				return i
			}
		}
	}
	return -1
}

// detectLayout decides how to read a file from its first record. A header is
// trusted when it names a description column; otherwise wide files are read
// positionally.
func detectLayout(first []string) (Layout, columns, error) {
	if d := findColumn(first, descriptionHeaders); d >= 0 {
		cols := columns{
			date:        findColumn(first, dateHeaders),
			amount:      findColumn(first, amountHeaders),
			description: d,
		}
		if cols.date < 0 || cols.amount < 0 {
			return LayoutUnknown, cols, errors.Wrapf(domain.ErrUnrecognizedLayout,
				"header %q has no date or amount column", strings.Join(first, ","))
		}
		return LayoutHeader, cols, nil
	}
	if len(first) >= posMinColumns {
		return LayoutPositional, columns{date: posDate, amount: posAmount, description: posDescription}, nil
	}
	return LayoutUnknown, columns{}, errors.Wrapf(domain.ErrUnrecognizedLayout,
		"%d columns and no Description header", len(first))
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// ParseCSV reads one bank export. Rows whose amount or date cannot be parsed
// are dropped and counted; the remaining rows go through the batch sign
// heuristic and come back as positive, uncategorized spend.
func ParseCSV(name string, r io.Reader) (FileResult, error) {
	res := FileResult{Name: name}

	cr := csv.NewReader(newUnescapeReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var (
		cols  columns
		raw   []normalize.RawRow
		first = true
		line  int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return res, errors.Wrapf(err, "%s: line %d", name, line)
		}
		if first {
			first = false
			layout, c, err := detectLayout(rec)
			if err != nil {
				return res, errors.Wrapf(err, "%s", name)
			}
			res.Layout, cols = layout, c
			if layout == LayoutHeader {
				continue
			}
		}
		res.Rows++

		amount, err := normalize.ParseAmount(cell(rec, cols.amount))
		if err != nil {
			res.BadAmounts++
			continue
		}
		date, err := normalize.ParseDate(cell(rec, cols.date))
		if err != nil {
			res.BadDates++
			continue
		}
		raw = append(raw, normalize.RawRow{
			Date:        date,
			Description: strings.ReplaceAll(cell(rec, cols.description), `"`, ""),
			Amount:      amount,
		})
	}
	if first {
		return res, errors.Wrapf(domain.ErrUnrecognizedLayout, "%s: empty file", name)
	}

	kept, dropped := normalize.NormalizeSigns(raw)
	res.SignDropped = dropped
	res.Transactions = make([]domain.Transaction, len(kept))
	for i, k := range kept {
		res.Transactions[i] = domain.Transaction{
			Date:        k.Date,
			Description: k.Description,
			Amount:      k.Amount,
		}
	}
	return res, nil
}
