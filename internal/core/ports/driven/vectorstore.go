package driven

import "context"

// VectorPoint is one upsertable vector with its payload.
type VectorPoint struct {
	// ID is the chunk identifier, derived from (documentID, index).
	ID string

	// Vector is the embedding.
	Vector []float32

	// Payload carries searchable metadata. Always includes document_id
	// so stale chunks can be removed by document.
	Payload map[string]string
}

// VectorStore upserts and deletes vectors by ID in a named collection.
// All operations are idempotent.
type VectorStore interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, collection string, dimensions int) error

	// Upsert inserts or replaces points in the collection.
	Upsert(ctx context.Context, collection string, points []VectorPoint) error

	// Delete removes points by ID.
	Delete(ctx context.Context, collection string, ids []string) error

	// DeleteByDocument removes every point whose payload document_id
	// matches. Used before re-inserting a changed document's chunks so
	// no orphaned stale chunks survive, and on tombstoning.
	DeleteByDocument(ctx context.Context, collection string, documentID string) error

	// Ping verifies the store is reachable before any write is attempted.
	Ping(ctx context.Context) error
}
