package bigquery

import (
	"math/big"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

const (
	transactionsTable = "transactions"
	budgetRulesTable  = "budget_rules"
	incomeTable       = "income"
)

// TransactionRow is one row of the transactions table. Position keeps the
// ledger's natural order, which BigQuery does not preserve on its own.
type TransactionRow struct {
	Position int64 `bigquery:"position"` // REQUIRED

	Date        civil.Date `bigquery:"date"`        // REQUIRED DATE
	Description string     `bigquery:"description"` // REQUIRED STRING
	Amount      *big.Rat   `bigquery:"amount"`      // NULLABLE NUMERIC

	Category       bigquery.NullString `bigquery:"category"`        // NULLABLE (empty = uncategorized)
	IsReimbursable bigquery.NullBool   `bigquery:"is_reimbursable"` // NULLABLE
	NeedsReview    bigquery.NullBool   `bigquery:"needs_review"`    // NULLABLE
}

// BudgetRuleRow is one row of the budget_rules table.
type BudgetRuleRow struct {
	Position int64 `bigquery:"position"`

	GroupName    string              `bigquery:"group_name"`    // REQUIRED
	Category     string              `bigquery:"category"`      // REQUIRED, unique
	BudgetAmount *big.Rat            `bigquery:"budget_amount"` // NULLABLE NUMERIC
	Keywords     bigquery.NullString `bigquery:"keywords"`      // NULLABLE JSON array as STRING
}

// IncomeRow is one row of the income table.
type IncomeRow struct {
	Position int64    `bigquery:"position"`
	Source   string   `bigquery:"source"`
	Amount   *big.Rat `bigquery:"amount"`
}
