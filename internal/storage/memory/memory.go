// Package memory provides an in-process Transaction Store for tests and
// throwaway sessions.
package memory

import (
	"context"
	"sync"

	"cashflow/internal/core"
	"cashflow/internal/storage"
)

type Store struct {
	mu     sync.RWMutex
	nextID int64
	txs    []core.Transaction
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Insert(_ context.Context, t core.Transaction) (int64, error) {
	if err := t.Amount.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	s.txs = append(s.txs, t)
	return t.ID, nil
}

func (s *Store) Query(ctx context.Context, f storage.Filter) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f = f.Normalize()
	s.mu.RLock()
	out := []core.Transaction{}
	for _, t := range s.txs {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	s.mu.RUnlock()
	storage.SortRecentFirst(out)
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

var _ storage.Repository = (*Store)(nil)
