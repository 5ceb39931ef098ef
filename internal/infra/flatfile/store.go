// Package flatfile keeps each logical table as a CSV file in a local
// directory or a GCS prefix.
package flatfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"

	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/store"
	"github.com/dvloznov/household-budget/internal/store/tablecodec"
)

// Store is a CSV-per-table backend over a Blob.
type Store struct {
	blob    Blob
	closeFn func() error
}

// New creates a Store over blob. closeFn, if non-nil, is called by Close.
func New(blob Blob, closeFn func() error) *Store {
	return &Store{blob: blob, closeFn: closeFn}
}

// NewDir creates a Store backed by a local directory.
func NewDir(dir string) *Store {
	return New(DirBlob{Dir: dir}, nil)
}

func fileName(table string) string {
	return table + ".csv"
}

func (s *Store) readTable(ctx context.Context, table string) ([][]string, error) {
	data, err := s.blob.Read(ctx, fileName(table))
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("flatfile: read %s from %s: %w: %v", table, s.blob.Location(), domain.ErrStoreUnavailable, err)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("flatfile: parse %s: %w: %v", table, domain.ErrStoreUnavailable, err)
	}
	return records, nil
}

func (s *Store) writeTable(ctx context.Context, table string, records [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("flatfile: encode %s: %w", table, err)
	}
	if err := s.blob.Write(ctx, fileName(table), buf.Bytes()); err != nil {
		return fmt.Errorf("flatfile: write %s to %s: %w: %v", table, s.blob.Location(), domain.ErrStoreUnavailable, err)
	}
	return nil
}

func logWarnings(ctx context.Context, warnings []tablecodec.Warning) {
	if len(warnings) == 0 {
		return
	}
	log := logger.FromContext(ctx)
	for _, w := range warnings {
		log.Warn().Str("table", w.Table).Int("row", w.Row).Msg(w.Reason)
	}
}

func (s *Store) ReadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	records, err := s.readTable(ctx, tablecodec.TransactionsTable)
	if err != nil {
		return nil, err
	}
	txs, warnings, err := tablecodec.DecodeTransactions(records)
	if err != nil {
		return nil, fmt.Errorf("flatfile: %w: %v", domain.ErrStoreUnavailable, err)
	}
	logWarnings(ctx, warnings)
	return txs, nil
}

func (s *Store) WriteTransactions(ctx context.Context, txs []domain.Transaction) error {
	return s.writeTable(ctx, tablecodec.TransactionsTable, tablecodec.EncodeTransactions(txs))
}

func (s *Store) ReadRules(ctx context.Context) ([]domain.CategoryRule, error) {
	records, err := s.readTable(ctx, tablecodec.RulesTable)
	if err != nil {
		return nil, err
	}
	rules, warnings, err := tablecodec.DecodeRules(records)
	if err != nil {
		return nil, fmt.Errorf("flatfile: %w: %v", domain.ErrStoreUnavailable, err)
	}
	logWarnings(ctx, warnings)
	return rules, nil
}

func (s *Store) WriteRules(ctx context.Context, rules []domain.CategoryRule) error {
	return s.writeTable(ctx, tablecodec.RulesTable, tablecodec.EncodeRules(rules))
}

func (s *Store) ReadIncome(ctx context.Context) ([]domain.IncomeSource, error) {
	records, err := s.readTable(ctx, tablecodec.IncomeTable)
	if err != nil {
		return nil, err
	}
	income, warnings, err := tablecodec.DecodeIncome(records)
	if err != nil {
		return nil, fmt.Errorf("flatfile: %w: %v", domain.ErrStoreUnavailable, err)
	}
	logWarnings(ctx, warnings)
	return income, nil
}

func (s *Store) WriteIncome(ctx context.Context, income []domain.IncomeSource) error {
	return s.writeTable(ctx, tablecodec.IncomeTable, tablecodec.EncodeIncome(income))
}

// Close releases the underlying blob client, if any.
func (s *Store) Close() error {
	if s.closeFn != nil {
		return s.closeFn()
	}
	return nil
}

// Ensure Store implements the store.Store interface.
var _ store.Store = (*Store)(nil)
