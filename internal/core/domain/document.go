package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Document represents one logical document fetched from a source.
// It is ephemeral: it exists only within a single pipeline run.
// The durable record of a document is its StateEntry.
type Document struct {
	// ID is derived from (SourceType, SourceID, URL) via DocumentID.
	// Re-fetching the same logical document always yields the same ID;
	// it is the join key against the state ledger.
	ID string

	// ProjectID groups sources into a project namespace.
	ProjectID string

	// SourceType identifies the connector type (e.g., "filesystem", "github").
	SourceType string

	// SourceID links to the Source that produced this document.
	SourceID string

	// URL is the original location (file path, API URL, etc).
	URL string

	// Title is the human-readable title.
	Title string

	// RawContent is the payload as fetched, before conversion.
	RawContent []byte

	// MIMEType is the declared content type (e.g., "text/markdown").
	MIMEType string

	// ContentHash is a sha256 digest of the normalised content.
	// It is the sole change-detection signal and must be stable
	// across re-fetches of unchanged content.
	ContentHash string

	// Metadata contains connector-specific key-value pairs.
	Metadata map[string]string

	// IsDeleted marks a document the connector reports as removed.
	IsDeleted bool

	// FetchedAt is when the connector produced this document.
	FetchedAt time.Time
}

// Chunk represents one embeddable unit within a document.
// Chunks are always produced as an ordered sequence per document.
type Chunk struct {
	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the ordinal position within the document.
	Index int

	// Text is the chunk content.
	Text string

	// TokenCount is an approximate token count for batching budgets.
	TokenCount int

	// Embedding is the vector representation, set by the embed stage.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]string
}

// ID returns the stable chunk identifier derived from (DocumentID, Index).
func (c *Chunk) ID() string {
	return ChunkID(c.DocumentID, c.Index)
}

// DocumentID derives the deterministic document identifier from the
// (sourceType, sourceID, url) triple. The digest keeps IDs fixed-length
// and safe for use as vector point and ledger keys.
func DocumentID(sourceType, sourceID, url string) string {
	h := sha256.Sum256([]byte(sourceType + "\x00" + sourceID + "\x00" + url))
	return hex.EncodeToString(h[:])
}

// ChunkID derives the stable chunk identifier from (documentID, index).
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s:%d", documentID, index)
}

// HashContent computes the sha256 fingerprint of normalised content.
// Callers must pass normalised content only: no timestamps or
// fetch-order artifacts may enter the hash input.
func HashContent(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}
