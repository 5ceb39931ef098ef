// Package store defines the persistence contract for the three logical
// tables: Transactions, BudgetRules and Income. Every backend reads a table
// in full and writes it in full.
package store

import (
	"context"

	"github.com/dvloznov/household-budget/internal/domain"
)

// TransactionStore persists the ledger. ReadTransactions returns rows in
// natural order; an empty slice with a nil error means the table is empty.
type TransactionStore interface {
	ReadTransactions(ctx context.Context) ([]domain.Transaction, error)
	// WriteTransactions replaces the whole table.
	WriteTransactions(ctx context.Context, txs []domain.Transaction) error
}

// RuleStore persists budget categories and their learned keywords.
type RuleStore interface {
	ReadRules(ctx context.Context) ([]domain.CategoryRule, error)
	WriteRules(ctx context.Context, rules []domain.CategoryRule) error
}

// IncomeStore persists the monthly income sources.
type IncomeStore interface {
	ReadIncome(ctx context.Context) ([]domain.IncomeSource, error)
	WriteIncome(ctx context.Context, income []domain.IncomeSource) error
}

// Store is a complete backend.
type Store interface {
	TransactionStore
	RuleStore
	IncomeStore
	Close() error
}
