package driving

import (
	"context"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// RunFilter restricts a pipeline run to a project and/or source type.
// Zero values mean no restriction.
type RunFilter struct {
	// ProjectID restricts the run to sources in one project.
	ProjectID string

	// SourceType restricts the run to one connector type.
	SourceType string
}

// PipelineRunner coordinates document synchronisation into the vector index.
type PipelineRunner interface {
	// Run executes one pipeline pass over the filtered sources and
	// returns the run report. Per-document failures are recorded in the
	// report; only systemic failures return a non-nil error.
	Run(ctx context.Context, filter RunFilter) (*domain.PipelineRun, error)

	// Status returns progress for the active run, or nil if idle.
	Status() *RunProgress
}

// RunProgress is a point-in-time snapshot of an active run.
type RunProgress struct {
	// RunID identifies the active run.
	RunID string

	// Seen is the number of documents classified so far.
	Seen int

	// Processed is the number of documents committed so far.
	Processed int

	// Failed is the number of per-document failures so far.
	Failed int
}
