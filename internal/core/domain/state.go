package domain

import "time"

// EntryStatus is the terminal outcome recorded for a document.
type EntryStatus string

const (
	// StatusProcessed indicates the full pipeline succeeded for this content.
	StatusProcessed EntryStatus = "processed"

	// StatusFailed indicates the last attempt failed. Failed entries are
	// only ever written for documents that had a prior ledger row; a
	// transient failure never creates one.
	StatusFailed EntryStatus = "failed"

	// StatusTombstoned indicates the document disappeared from its source
	// and its vectors have been removed.
	StatusTombstoned EntryStatus = "tombstoned"
)

// StateEntry is one row of the fingerprint ledger: the durable source of
// truth for "have we already processed this exact content". One entry
// exists per document ID; updates are upserts keyed by DocumentID.
type StateEntry struct {
	// DocumentID is the deterministic document identifier.
	DocumentID string

	// ContentHash is the fingerprint of the content last processed
	// successfully. Equality with a freshly fetched document's hash is
	// necessary and sufficient to skip reprocessing.
	ContentHash string

	// ProjectID groups entries for the deletion-detection range scan.
	ProjectID string

	// SourceType identifies the connector type that produced the document.
	SourceType string

	// Status is the recorded outcome.
	Status EntryStatus

	// LastRunID is the run that last observed this document.
	LastRunID string

	// UpdatedAt is when this entry was last written.
	UpdatedAt time.Time
}
