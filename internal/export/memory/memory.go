// Package memory is an in-process Exporter used by tests and local runs
// without spreadsheet credentials.
package memory

import (
	"context"
	"sync"

	"ledger/internal/storage"
)

type Store struct {
	mu   sync.Mutex
	rows map[int64]storage.ExportTransaction
}

func New() *Store {
	return &Store{rows: make(map[int64]storage.ExportTransaction)}
}

// Append stores the row, replacing any earlier version of the same id.
func (s *Store) Append(_ context.Context, t storage.ExportTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[t.Transaction.ID] = t
	return nil
}

// Delete removes the row for id. Absent rows are not an error.
func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

// Get returns the stored row and whether it exists.
func (s *Store) Get(id int64) (storage.ExportTransaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.rows[id]
	return t, ok
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
