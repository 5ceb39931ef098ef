// Package tablecodec converts the logical tables to and from string records,
// the shape every text-based backend (CSV files, gob'd rows) stores.
//
// Encoding is strict. Decoding is lenient because a single bad historical row
// must not block the ledger from loading: bad amounts read as zero, bad
// booleans as false, bad keyword JSON as no keywords, and rows whose date
// cannot be parsed are skipped.
package tablecodec

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/normalize"
)

// Table names as they appear in every backend.
const (
	TransactionsTable = "Transactions"
	RulesTable        = "BudgetRules"
	IncomeTable       = "Income"
)

var (
	TransactionHeader = []string{"Date", "Description", "Amount", "Category", "Is_Reimbursable", "Needs_Review"}
	RuleHeader        = []string{"Group", "Category", "BudgetAmount", "Keywords"}
	IncomeHeader      = []string{"Source", "Amount"}
)

// Warning describes a persisted row that was repaired or skipped on decode.
type Warning struct {
	Table  string
	Row    int // 1-based data row, header excluded
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s row %d: %s", w.Table, w.Row, w.Reason)
}

// columns maps header names to positions. Lookups are case-insensitive.
type columns map[string]int

func indexHeader(header []string) columns {
	c := make(columns, len(header))
	for i, h := range header {
		c[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return c
}

func (c columns) get(rec []string, name string) string {
	i, ok := c[strings.ToLower(name)]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func (c columns) require(table string, names ...string) error {
	for _, n := range names {
		if _, ok := c[strings.ToLower(n)]; !ok {
			return fmt.Errorf("tablecodec: %s: missing column %q", table, n)
		}
	}
	return nil
}

// EncodeTransactions renders the ledger with its header row first.
func EncodeTransactions(txs []domain.Transaction) [][]string {
	out := make([][]string, 0, len(txs)+1)
	out = append(out, TransactionHeader)
	for _, tx := range txs {
		out = append(out, []string{
			tx.Date.String(),
			tx.Description,
			tx.Amount.StringFixed(2),
			tx.Category,
			strconv.FormatBool(tx.IsReimbursable),
			strconv.FormatBool(tx.NeedsReview),
		})
	}
	return out
}

// DecodeTransactions parses records whose first row is the header. No
// records at all is an empty table.
func DecodeTransactions(records [][]string) ([]domain.Transaction, []Warning, error) {
	if len(records) == 0 {
		return []domain.Transaction{}, nil, nil
	}
	cols := indexHeader(records[0])
	if err := cols.require(TransactionsTable, "Date", "Description", "Amount"); err != nil {
		return nil, nil, err
	}

	var warnings []Warning
	txs := make([]domain.Transaction, 0, len(records)-1)
	for i, rec := range records[1:] {
		date, err := normalize.ParseDate(cols.get(rec, "Date"))
		if err != nil {
			warnings = append(warnings, Warning{Table: TransactionsTable, Row: i + 1, Reason: "unparsable date, row skipped"})
			continue
		}
		rawAmt := cols.get(rec, "Amount")
		amt, err := normalize.ParseAmount(rawAmt)
		if err != nil {
			warnings = append(warnings, Warning{Table: TransactionsTable, Row: i + 1, Reason: fmt.Sprintf("unparsable amount %q read as 0", rawAmt)})
		}
		txs = append(txs, domain.Transaction{
			Date:           date,
			Description:    cols.get(rec, "Description"),
			Amount:         amt.Abs(),
			Category:       cols.get(rec, "Category"),
			IsReimbursable: normalize.ParseBool(cols.get(rec, "Is_Reimbursable")),
			NeedsReview:    normalize.ParseBool(cols.get(rec, "Needs_Review")),
		})
	}
	return txs, warnings, nil
}

// EncodeRules renders the rule set with its header row first.
func EncodeRules(rules []domain.CategoryRule) [][]string {
	out := make([][]string, 0, len(rules)+1)
	out = append(out, RuleHeader)
	for _, r := range rules {
		out = append(out, []string{
			r.Group,
			r.Category,
			r.BudgetAmount.StringFixed(2),
			EncodeKeywords(r.Keywords),
		})
	}
	return out
}

// DecodeRules parses records whose first row is the header.
func DecodeRules(records [][]string) ([]domain.CategoryRule, []Warning, error) {
	if len(records) == 0 {
		return []domain.CategoryRule{}, nil, nil
	}
	cols := indexHeader(records[0])
	if err := cols.require(RulesTable, "Group", "Category"); err != nil {
		return nil, nil, err
	}

	var warnings []Warning
	rules := make([]domain.CategoryRule, 0, len(records)-1)
	for i, rec := range records[1:] {
		name := cols.get(rec, "Category")
		if name == "" {
			warnings = append(warnings, Warning{Table: RulesTable, Row: i + 1, Reason: "empty category, row skipped"})
			continue
		}
		kws, err := DecodeKeywords(cols.get(rec, "Keywords"))
		if err != nil {
			warnings = append(warnings, Warning{Table: RulesTable, Row: i + 1, Reason: "malformed keywords, treated as none"})
		}
		rules = append(rules, domain.CategoryRule{
			Group:        cols.get(rec, "Group"),
			Category:     name,
			BudgetAmount: normalize.LenientAmount(cols.get(rec, "BudgetAmount")).Abs(),
			Keywords:     kws,
		})
	}
	return rules, warnings, nil
}

// EncodeIncome renders the income sources with their header row first.
func EncodeIncome(income []domain.IncomeSource) [][]string {
	out := make([][]string, 0, len(income)+1)
	out = append(out, IncomeHeader)
	for _, s := range income {
		out = append(out, []string{s.Source, s.Amount.StringFixed(2)})
	}
	return out
}

// DecodeIncome parses records whose first row is the header.
func DecodeIncome(records [][]string) ([]domain.IncomeSource, []Warning, error) {
	if len(records) == 0 {
		return []domain.IncomeSource{}, nil, nil
	}
	cols := indexHeader(records[0])
	if err := cols.require(IncomeTable, "Source", "Amount"); err != nil {
		return nil, nil, err
	}

	var warnings []Warning
	out := make([]domain.IncomeSource, 0, len(records)-1)
	for i, rec := range records[1:] {
		raw := cols.get(rec, "Amount")
		amt, err := normalize.ParseAmount(raw)
		if err != nil {
			warnings = append(warnings, Warning{Table: IncomeTable, Row: i + 1, Reason: fmt.Sprintf("unparsable amount %q read as 0", raw)})
		}
		out = append(out, domain.IncomeSource{Source: cols.get(rec, "Source"), Amount: amt})
	}
	return out, warnings, nil
}

// EncodeKeywords renders a keyword list as a JSON array, or "" when empty.
func EncodeKeywords(kws []string) string {
	if len(kws) == 0 {
		return ""
	}
	b, err := json.Marshal(kws)
	if err != nil {
		return ""
	}
	return string(b)
}

// DecodeKeywords parses the Keywords column. Empty input is no keywords. On
// malformed input it returns nil together with the error so the caller can
// log it and carry on.
func DecodeKeywords(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var kws []string
	if err := json.Unmarshal([]byte(raw), &kws); err != nil {
		return nil, fmt.Errorf("DecodeKeywords: %w", err)
	}

	out := kws[:0]
	seen := make(map[string]bool, len(kws))
	for _, k := range kws {
		k = domain.NormalizeKeyword(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out, nil
}
