// Package inmemory is a process-local store backend for tests and demos.
package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/store"
)

// Store keeps all three tables in memory and is safe for concurrent use.
// Data is lost on restart. Reads return copies so callers cannot mutate the
// stored tables.
type Store struct {
	mu     sync.RWMutex
	txs    []domain.Transaction
	rules  []domain.CategoryRule
	income []domain.IncomeSource

	// ReadErr and WriteErr, when set, are returned by every read or write.
	// They let callers simulate an unreachable backend.
	ReadErr  error
	WriteErr error

	writes int
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Seed replaces the tables without counting as a write.
func (s *Store) Seed(txs []domain.Transaction, rules []domain.CategoryRule, income []domain.IncomeSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append([]domain.Transaction(nil), txs...)
	s.rules = cloneRules(rules)
	s.income = append([]domain.IncomeSource(nil), income...)
}

// SetWriteErr sets WriteErr while other goroutines may be using the store.
func (s *Store) SetWriteErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.WriteErr = err
}

// Writes reports how many successful table writes have happened.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *Store) readErr(op string) error {
	if s.ReadErr != nil {
		return fmt.Errorf("inmemory: %s: %w: %v", op, domain.ErrStoreUnavailable, s.ReadErr)
	}
	return nil
}

func (s *Store) writeErr(op string) error {
	if s.WriteErr != nil {
		return fmt.Errorf("inmemory: %s: %w: %v", op, domain.ErrStoreUnavailable, s.WriteErr)
	}
	return nil
}

func (s *Store) ReadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readErr("ReadTransactions"); err != nil {
		return nil, err
	}
	return append([]domain.Transaction{}, s.txs...), nil
}

func (s *Store) WriteTransactions(ctx context.Context, txs []domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr("WriteTransactions"); err != nil {
		return err
	}
	s.txs = append([]domain.Transaction(nil), txs...)
	s.writes++
	return nil
}

func (s *Store) ReadRules(ctx context.Context) ([]domain.CategoryRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readErr("ReadRules"); err != nil {
		return nil, err
	}
	out := cloneRules(s.rules)
	if out == nil {
		out = []domain.CategoryRule{}
	}
	return out, nil
}

func (s *Store) WriteRules(ctx context.Context, rules []domain.CategoryRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr("WriteRules"); err != nil {
		return err
	}
	s.rules = cloneRules(rules)
	s.writes++
	return nil
}

func (s *Store) ReadIncome(ctx context.Context) ([]domain.IncomeSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.readErr("ReadIncome"); err != nil {
		return nil, err
	}
	return append([]domain.IncomeSource{}, s.income...), nil
}

func (s *Store) WriteIncome(ctx context.Context, income []domain.IncomeSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeErr("WriteIncome"); err != nil {
		return err
	}
	s.income = append([]domain.IncomeSource(nil), income...)
	s.writes++
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func cloneRules(in []domain.CategoryRule) []domain.CategoryRule {
	if in == nil {
		return nil
	}
	out := make([]domain.CategoryRule, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

// Ensure Store implements the store.Store interface.
var _ store.Store = (*Store)(nil)
