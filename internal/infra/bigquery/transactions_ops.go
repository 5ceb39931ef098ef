package bigquery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/store/tablecodec"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"
)

// Dataset names the project and dataset the tables live in.
type Dataset struct {
	ProjectID string
	DatasetID string
}

func (d Dataset) table(name string) string {
	return "`" + d.ProjectID + "." + d.DatasetID + "." + name + "`"
}

// ratToDecimal converts a NUMERIC cell. NULL reads as zero.
func ratToDecimal(r *big.Rat) decimal.Decimal {
	if r == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(r.FloatString(2))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// numeric renders a decimal the way a NUMERIC column expects it in a load file.
func numeric(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ReadTransactionsWithClient reads the whole transactions table in natural order.
func ReadTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset) ([]domain.Transaction, error) {
	q := client.Query(`
		SELECT
			position,
			date,
			description,
			amount,
			category,
			is_reimbursable,
			needs_review
		FROM ` + ds.table(transactionsTable) + `
		ORDER BY position
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReadTransactions: query read: %w: %v", domain.ErrStoreUnavailable, err)
	}

	txs := []domain.Transaction{}
	for {
		var r TransactionRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadTransactions: iter next: %w: %v", domain.ErrStoreUnavailable, err)
		}
		if !r.Date.IsValid() {
			log := logger.FromContext(ctx)
			log.Warn().Int64("position", r.Position).Msg("Skipping transaction with invalid date")
			continue
		}
		txs = append(txs, domain.Transaction{
			Date:           r.Date,
			Description:    r.Description,
			Amount:         ratToDecimal(r.Amount).Abs(),
			Category:       r.Category.StringVal,
			IsReimbursable: r.IsReimbursable.Valid && r.IsReimbursable.Bool,
			NeedsReview:    r.NeedsReview.Valid && r.NeedsReview.Bool,
		})
	}

	return txs, nil
}

type transactionLoadRow struct {
	Position       int    `json:"position"`
	Date           string `json:"date"`
	Description    string `json:"description"`
	Amount         string `json:"amount"`
	Category       string `json:"category,omitempty"`
	IsReimbursable bool   `json:"is_reimbursable"`
	NeedsReview    bool   `json:"needs_review"`
}

// WriteTransactionsWithClient replaces the transactions table.
func WriteTransactionsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, txs []domain.Transaction) error {
	rows := make([]any, len(txs))
	for i, tx := range txs {
		rows[i] = transactionLoadRow{
			Position:       i,
			Date:           tx.Date.String(),
			Description:    tx.Description,
			Amount:         numeric(tx.Amount),
			Category:       tx.Category,
			IsReimbursable: tx.IsReimbursable,
			NeedsReview:    tx.NeedsReview,
		}
	}
	if err := replaceTable(ctx, client, ds, transactionsTable, rows); err != nil {
		return fmt.Errorf("WriteTransactions: %w", err)
	}
	return nil
}

// ReadRulesWithClient reads the budget_rules table.
func ReadRulesWithClient(ctx context.Context, client *bigquery.Client, ds Dataset) ([]domain.CategoryRule, error) {
	q := client.Query(`
		SELECT
			position,
			group_name,
			category,
			budget_amount,
			keywords
		FROM ` + ds.table(budgetRulesTable) + `
		ORDER BY position
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReadRules: query read: %w: %v", domain.ErrStoreUnavailable, err)
	}

	rules := []domain.CategoryRule{}
	for {
		var r BudgetRuleRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadRules: iter next: %w: %v", domain.ErrStoreUnavailable, err)
		}
		kws, err := tablecodec.DecodeKeywords(r.Keywords.StringVal)
		if err != nil {
			log := logger.FromContext(ctx)
			log.Warn().Err(err).Str("category", r.Category).Msg("Malformed keywords, treating as none")
		}
		rules = append(rules, domain.CategoryRule{
			Group:        r.GroupName,
			Category:     r.Category,
			BudgetAmount: ratToDecimal(r.BudgetAmount).Abs(),
			Keywords:     kws,
		})
	}

	return rules, nil
}

type budgetRuleLoadRow struct {
	Position     int    `json:"position"`
	GroupName    string `json:"group_name"`
	Category     string `json:"category"`
	BudgetAmount string `json:"budget_amount"`
	Keywords     string `json:"keywords,omitempty"`
}

// WriteRulesWithClient replaces the budget_rules table.
func WriteRulesWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, rules []domain.CategoryRule) error {
	rows := make([]any, len(rules))
	for i, r := range rules {
		rows[i] = budgetRuleLoadRow{
			Position:     i,
			GroupName:    r.Group,
			Category:     r.Category,
			BudgetAmount: numeric(r.BudgetAmount),
			Keywords:     tablecodec.EncodeKeywords(r.Keywords),
		}
	}
	if err := replaceTable(ctx, client, ds, budgetRulesTable, rows); err != nil {
		return fmt.Errorf("WriteRules: %w", err)
	}
	return nil
}

// ReadIncomeWithClient reads the income table.
func ReadIncomeWithClient(ctx context.Context, client *bigquery.Client, ds Dataset) ([]domain.IncomeSource, error) {
	q := client.Query(`
		SELECT position, source, amount
		FROM ` + ds.table(incomeTable) + `
		ORDER BY position
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ReadIncome: query read: %w: %v", domain.ErrStoreUnavailable, err)
	}

	income := []domain.IncomeSource{}
	for {
		var r IncomeRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ReadIncome: iter next: %w: %v", domain.ErrStoreUnavailable, err)
		}
		income = append(income, domain.IncomeSource{Source: r.Source, Amount: ratToDecimal(r.Amount)})
	}

	return income, nil
}

type incomeLoadRow struct {
	Position int    `json:"position"`
	Source   string `json:"source"`
	Amount   string `json:"amount"`
}

// WriteIncomeWithClient replaces the income table.
func WriteIncomeWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, income []domain.IncomeSource) error {
	rows := make([]any, len(income))
	for i, s := range income {
		rows[i] = incomeLoadRow{Position: i, Source: s.Source, Amount: numeric(s.Amount)}
	}
	if err := replaceTable(ctx, client, ds, incomeTable, rows); err != nil {
		return fmt.Errorf("WriteIncome: %w", err)
	}
	return nil
}

// replaceTable swaps the table contents for rows. A non-empty table is
// replaced with a WRITE_TRUNCATE load job so readers never see it half
// written; an empty one is cleared with DML.
func replaceTable(ctx context.Context, client *bigquery.Client, ds Dataset, table string, rows []any) error {
	if len(rows) == 0 {
		return truncateTable(ctx, client, ds, table)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
	}

	src := bigquery.NewReaderSource(&buf)
	src.SourceFormat = bigquery.JSON

	loader := client.DatasetInProject(ds.ProjectID, ds.DatasetID).Table(table).LoaderFrom(src)
	loader.WriteDisposition = bigquery.WriteTruncate
	loader.CreateDisposition = bigquery.CreateNever

	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("run load job: %w: %v", domain.ErrStoreUnavailable, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for load job: %w: %v", domain.ErrStoreUnavailable, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("load job error: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func truncateTable(ctx context.Context, client *bigquery.Client, ds Dataset, table string) error {
	q := client.Query(`DELETE FROM ` + ds.table(table) + ` WHERE TRUE`)

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("run query: %w: %v", domain.ErrStoreUnavailable, err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for job: %w: %v", domain.ErrStoreUnavailable, err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w: %v", domain.ErrStoreUnavailable, err)
	}

	return nil
}
