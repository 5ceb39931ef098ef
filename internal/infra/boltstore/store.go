// Package boltstore is an embedded single-file store backend. Each logical table
// is a bolt bucket; every record is a gob-encoded string row keyed by its
// position, with the header row at position 0.
package boltstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/logger"
	"github.com/dvloznov/household-budget/internal/store"
	"github.com/dvloznov/household-budget/internal/store/tablecodec"
)

// Store wraps an open bolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the database file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("bolt.Open: %s: %w: %v", path, domain.ErrStoreUnavailable, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func (s *Store) readTable(table string) ([][]string, error) {
	var records [][]string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(table))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec []string
			dec := gob.NewDecoder(bytes.NewBuffer(v))
			if err := dec.Decode(&rec); err != nil {
				return fmt.Errorf("decode record %x: %w", k, err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: read %s: %w: %v", table, domain.ErrStoreUnavailable, err)
	}
	return records, nil
}

// writeTable drops and recreates the bucket in one bolt transaction, so a
// failed write leaves the previous table intact.
func (s *Store) writeTable(table string, records [][]string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(table)) != nil {
			if err := tx.DeleteBucket([]byte(table)); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket([]byte(table))
		if err != nil {
			return err
		}
		for i, rec := range records {
			var val bytes.Buffer
			enc := gob.NewEncoder(&val)
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("encode record %d: %w", i, err)
			}
			if err := b.Put(itob(uint64(i)), val.Bytes()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bolt: write %s: %w: %v", table, domain.ErrStoreUnavailable, err)
	}
	return nil
}

func logWarnings(ctx context.Context, warnings []tablecodec.Warning) {
	log := logger.FromContext(ctx)
	for _, w := range warnings {
		log.Warn().Str("table", w.Table).Int("row", w.Row).Msg(w.Reason)
	}
}

func (s *Store) ReadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	records, err := s.readTable(tablecodec.TransactionsTable)
	if err != nil {
		return nil, err
	}
	txs, warnings, err := tablecodec.DecodeTransactions(records)
	if err != nil {
		return nil, fmt.Errorf("bolt: %w: %v", domain.ErrStoreUnavailable, err)
	}
	logWarnings(ctx, warnings)
	return txs, nil
}

func (s *Store) WriteTransactions(ctx context.Context, txs []domain.Transaction) error {
	return s.writeTable(tablecodec.TransactionsTable, tablecodec.EncodeTransactions(txs))
}

func (s *Store) ReadRules(ctx context.Context) ([]domain.CategoryRule, error) {
	records, err := s.readTable(tablecodec.RulesTable)
	if err != nil {
		return nil, err
	}
	rules, warnings, err := tablecodec.DecodeRules(records)
	if err != nil {
		return nil, fmt.Errorf("bolt: %w: %v", domain.ErrStoreUnavailable, err)
	}
	logWarnings(ctx, warnings)
	return rules, nil
}

func (s *Store) WriteRules(ctx context.Context, rules []domain.CategoryRule) error {
	return s.writeTable(tablecodec.RulesTable, tablecodec.EncodeRules(rules))
}

func (s *Store) ReadIncome(ctx context.Context) ([]domain.IncomeSource, error) {
	records, err := s.readTable(tablecodec.IncomeTable)
	if err != nil {
		return nil, err
	}
	income, warnings, err := tablecodec.DecodeIncome(records)
	if err != nil {
		return nil, fmt.Errorf("bolt: %w: %v", domain.ErrStoreUnavailable, err)
	}
	logWarnings(ctx, warnings)
	return income, nil
}

func (s *Store) WriteIncome(ctx context.Context, income []domain.IncomeSource) error {
	return s.writeTable(tablecodec.IncomeTable, tablecodec.EncodeIncome(income))
}

// Ensure Store implements the store.Store interface.
var _ store.Store = (*Store)(nil)
