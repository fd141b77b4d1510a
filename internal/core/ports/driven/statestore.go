package driven

import (
	"context"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// StateStore persists the fingerprint ledger.
//
// Reads may happen concurrently from multiple classification calls.
// Writes for the same document ID are serialised by the orchestrator
// (a document is never in flight twice within one run); writes for
// different IDs proceed independently, so no global lock is required.
type StateStore interface {
	// Get retrieves the ledger entry for a document.
	// Returns domain.ErrNotFound if no entry exists.
	Get(ctx context.Context, documentID string) (*domain.StateEntry, error)

	// Upsert stores or updates an entry, keyed by DocumentID.
	Upsert(ctx context.Context, entry domain.StateEntry) error

	// Tombstone marks an entry as deleted without removing the row.
	Tombstone(ctx context.Context, documentID, runID string) error

	// List returns all entries for a (project, source type) pair.
	// Used to compute the not-observed-this-run deletion set.
	List(ctx context.Context, projectID, sourceType string) ([]domain.StateEntry, error)

	// Ping verifies the store is reachable. Called before any document
	// is admitted; failure is systemic and aborts the run.
	Ping(ctx context.Context) error
}

// RunStore persists pipeline run reports.
type RunStore interface {
	// SaveRun stores or updates a run report.
	SaveRun(ctx context.Context, run *domain.PipelineRun) error

	// GetRun retrieves a run by ID.
	// Returns domain.ErrNotFound if no run exists.
	GetRun(ctx context.Context, runID string) (*domain.PipelineRun, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]domain.PipelineRun, error)
}
