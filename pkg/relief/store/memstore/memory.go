package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/cognicore/relief/pkg/relief/internalerr"
	"github.com/cognicore/relief/pkg/relief/store"
)

// Store is an in-memory implementation of store.Store for tests.
type Store struct {
	mu     sync.RWMutex
	tables map[string]store.Dataset
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{tables: make(map[string]store.Dataset)}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// Put stores a copy of ds under table, replacing any previous dataset.
func (s *Store) Put(table string, ds store.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = ds.Clone()
}

// LoadDataset implements store.Store.
func (s *Store) LoadDataset(ctx context.Context, table string) (store.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return store.Dataset{}, err
	}
	s.mu.RLock()
	ds, ok := s.tables[table]
	s.mu.RUnlock()
	if !ok {
		return store.Dataset{}, fmt.Errorf("table %q: %w", table, internalerr.ErrNotFound)
	}
	if err := ds.Validate(); err != nil {
		return store.Dataset{}, fmt.Errorf("table %q: %w", table, err)
	}
	return ds.Clone(), nil
}
