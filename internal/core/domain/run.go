package domain

import "time"

// Classification is the outcome of diffing a fetched document against
// the state ledger. It drives dispatch: only New and Changed documents
// enter the transformation pools.
type Classification int

const (
	// ClassNew indicates no ledger entry exists for the document.
	ClassNew Classification = iota

	// ClassChanged indicates the content hash differs from the ledger.
	ClassChanged

	// ClassUnchanged indicates the content hash matches the ledger.
	// All downstream stages are skipped; only LastRunID is refreshed.
	ClassUnchanged

	// ClassDeleted indicates the document is gone from its source,
	// either flagged by the connector or absent from the fetch set.
	ClassDeleted
)

// String returns the classification name used in reports and logs.
func (c Classification) String() string {
	switch c {
	case ClassNew:
		return "new"
	case ClassChanged:
		return "changed"
	case ClassUnchanged:
		return "unchanged"
	case ClassDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	// RunRunning indicates the run is in progress.
	RunRunning RunStatus = "running"

	// RunCompleted indicates the run finished, possibly with
	// per-document failures. Partial success is the normal case.
	RunCompleted RunStatus = "completed"

	// RunAborted indicates cancellation stopped the run with partial counts.
	RunAborted RunStatus = "aborted"

	// RunFailed indicates a systemic failure aborted the run with
	// zero committed documents.
	RunFailed RunStatus = "failed"
)

// RunCounts aggregates per-classification totals for one run.
type RunCounts struct {
	Seen      int
	New       int
	Changed   int
	Unchanged int
	Deleted   int
	Failed    int
}

// Failure records one failed document for the run report.
type Failure struct {
	// DocumentID identifies the failed document.
	DocumentID string

	// Stage names the pipeline stage that failed (convert, chunk, embed, store).
	Stage string

	// Kind is the error kind (rate_limited, auth, conversion, ...).
	Kind string

	// Message is the underlying error text.
	Message string
}

// PipelineRun is the report for one orchestrator invocation.
// It is created at run start, mutated only by the orchestrator, and
// immutable once FinishedAt is set.
type PipelineRun struct {
	// RunID uniquely identifies this run.
	RunID string

	// ProjectFilter restricts the run to one project; empty means all.
	ProjectFilter string

	// SourceFilter restricts the run to one source type; empty means all.
	SourceFilter string

	// Status is the run lifecycle state.
	Status RunStatus

	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is when the run completed; zero while running.
	FinishedAt time.Time

	// Counts holds the classification totals.
	Counts RunCounts

	// Failures lists failed documents with their error kinds.
	Failures []Failure
}
