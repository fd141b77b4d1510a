package driven

import "github.com/custodia-labs/vecsync/internal/core/domain"

// Chunker splits document text into an ordered chunk sequence.
//
// Implementations must be pure and deterministic: identical input text
// and configuration always yield an identical chunk sequence. The
// hash-based skip logic depends on this holding across runs.
type Chunker interface {
	// Chunk splits text into ordered chunks for the document.
	// Returns an error wrapping domain.ErrChunkLimitExceeded when the
	// sequence would exceed the configured per-document cap.
	Chunk(text string, documentID string) ([]domain.Chunk, error)
}
