// Package memory provides in-memory store implementations used in
// tests and for ephemeral runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// Ensure StateStore implements the interface.
var _ driven.StateStore = (*StateStore)(nil)

// StateStore is an in-memory implementation of driven.StateStore.
type StateStore struct {
	mu      sync.RWMutex
	entries map[string]domain.StateEntry
}

// NewStateStore creates a new in-memory state store.
func NewStateStore() *StateStore {
	return &StateStore{
		entries: make(map[string]domain.StateEntry),
	}
}

// Get retrieves the ledger entry for a document.
func (s *StateStore) Get(_ context.Context, documentID string) (*domain.StateEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

// Upsert stores or updates an entry, keyed by DocumentID.
func (s *StateStore) Upsert(_ context.Context, entry domain.StateEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.DocumentID] = entry
	return nil
}

// Tombstone marks an entry as deleted without removing the row.
func (s *StateStore) Tombstone(_ context.Context, documentID, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[documentID]
	if !ok {
		return domain.ErrNotFound
	}
	entry.Status = domain.StatusTombstoned
	entry.LastRunID = runID
	entry.UpdatedAt = time.Now().UTC()
	s.entries[documentID] = entry
	return nil
}

// List returns all entries for a (project, source type) pair.
func (s *StateStore) List(_ context.Context, projectID, sourceType string) ([]domain.StateEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.StateEntry
	for _, entry := range s.entries {
		if entry.ProjectID == projectID && entry.SourceType == sourceType {
			out = append(out, entry)
		}
	}
	return out, nil
}

// Ping always succeeds for the in-memory store.
func (s *StateStore) Ping(_ context.Context) error {
	return nil
}

// Len returns the number of entries. Test helper.
func (s *StateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
