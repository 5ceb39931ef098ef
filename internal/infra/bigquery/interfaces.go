package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/store"
)

// Repository is the BigQuery implementation of store.Store. It holds a
// shared BigQuery client to avoid creating a new connection for each
// operation.
type Repository struct {
	client *bigquery.Client
	ds     Dataset
}

// NewRepository creates a new Repository with a shared BigQuery client.
func NewRepository(ctx context.Context, projectID, datasetID string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: creating client: %w: %v", domain.ErrStoreUnavailable, err)
	}
	return &Repository{
		client: client,
		ds:     Dataset{ProjectID: projectID, DatasetID: datasetID},
	}, nil
}

// Close closes the BigQuery client connection. This should be called when
// the repository is no longer needed to release resources.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// ReadTransactions delegates to ReadTransactionsWithClient with the shared client.
func (r *Repository) ReadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	return ReadTransactionsWithClient(ctx, r.client, r.ds)
}

// WriteTransactions delegates to WriteTransactionsWithClient with the shared client.
func (r *Repository) WriteTransactions(ctx context.Context, txs []domain.Transaction) error {
	return WriteTransactionsWithClient(ctx, r.client, r.ds, txs)
}

// ReadRules delegates to ReadRulesWithClient with the shared client.
func (r *Repository) ReadRules(ctx context.Context) ([]domain.CategoryRule, error) {
	return ReadRulesWithClient(ctx, r.client, r.ds)
}

// WriteRules delegates to WriteRulesWithClient with the shared client.
func (r *Repository) WriteRules(ctx context.Context, rules []domain.CategoryRule) error {
	return WriteRulesWithClient(ctx, r.client, r.ds, rules)
}

// ReadIncome delegates to ReadIncomeWithClient with the shared client.
func (r *Repository) ReadIncome(ctx context.Context) ([]domain.IncomeSource, error) {
	return ReadIncomeWithClient(ctx, r.client, r.ds)
}

// WriteIncome delegates to WriteIncomeWithClient with the shared client.
func (r *Repository) WriteIncome(ctx context.Context, income []domain.IncomeSource) error {
	return WriteIncomeWithClient(ctx, r.client, r.ds, income)
}

// Ensure Repository implements the store.Store interface.
var _ store.Store = (*Repository)(nil)
