package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/core/ports/driving"
	"github.com/custodia-labs/vecsync/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.PipelineRunner = (*Pipeline)(nil)

// Pipeline coordinates document synchronisation into the vector index.
type Pipeline struct {
	opts     Options
	sources  []domain.Source
	factory  driven.ConnectorFactory
	convert  driven.ConverterRegistry
	chunker  driven.Chunker
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	states   driven.StateStore
	runs     driven.RunStore

	// Progress tracking for the active run.
	mu      sync.Mutex
	current *reporter
	runID   string
}

// NewPipeline creates a pipeline orchestrator.
// The runs store is optional; when nil, run reports are not persisted.
func NewPipeline(
	opts Options,
	sources []domain.Source,
	factory driven.ConnectorFactory,
	convert driven.ConverterRegistry,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	states driven.StateStore,
	runs driven.RunStore,
) *Pipeline {
	opts.normalise()
	return &Pipeline{
		opts:     opts,
		sources:  sources,
		factory:  factory,
		convert:  convert,
		chunker:  chunker,
		embedder: embedder,
		vectors:  vectors,
		states:   states,
		runs:     runs,
	}
}

// groupKey identifies a (project, source type) ledger namespace.
// The deletion sweep runs per group over the union of every member
// source's observed set, so two sources sharing a namespace never
// tombstone each other's documents.
type groupKey struct {
	project    string
	sourceType string
}

// Run executes one pipeline pass over the filtered sources.
//
//nolint:gocognit,gocyclo // Orchestration function with necessary sequential steps
func (p *Pipeline) Run(ctx context.Context, filter driving.RunFilter) (*domain.PipelineRun, error) {
	run := &domain.PipelineRun{
		RunID:         uuid.NewString(),
		ProjectFilter: filter.ProjectID,
		SourceFilter:  filter.SourceType,
		Status:        domain.RunRunning,
		StartedAt:     time.Now().UTC(),
	}

	// Systemic preflight: both stores must be reachable before any
	// document is admitted. Failure here means zero commits.
	if err := p.states.Ping(ctx); err != nil {
		return p.finishRun(ctx, run, nil, domain.RunFailed),
			fmt.Errorf("%w: ping: %v", domain.ErrStateStore, err)
	}
	if err := p.vectors.Ping(ctx); err != nil {
		return p.finishRun(ctx, run, nil, domain.RunFailed),
			fmt.Errorf("vector store unreachable: %w", err)
	}
	if err := p.vectors.EnsureCollection(ctx, p.opts.Collection, p.embedder.Dimensions()); err != nil {
		return p.finishRun(ctx, run, nil, domain.RunFailed),
			fmt.Errorf("ensure collection: %w", err)
	}

	report := newReporter()
	sp, err := newStagePipeline(p.opts, p.convert, p.chunker, p.embedder, p.vectors, p.states, report, run.RunID)
	if err != nil {
		return p.finishRun(ctx, run, report, domain.RunFailed), err
	}

	p.setCurrent(run.RunID, report)
	defer p.clearCurrent()

	logger.Info("run %s started (%d sources)", run.RunID, len(p.filteredSources(filter)))

	observed := make(map[groupKey]map[string]bool)
	complete := make(map[groupKey]bool)
	var (
		aborted  bool
		systemic error
	)

	for _, source := range p.filteredSources(filter) {
		if ctx.Err() != nil {
			aborted = true
			break
		}

		key := groupKey{project: source.ProjectID, sourceType: source.Type}
		if observed[key] == nil {
			observed[key] = make(map[string]bool)
			complete[key] = true
		}

		ok, err := p.fetchSource(ctx, sp, source, observed[key], report, run.RunID)
		if err != nil {
			systemic = err
			break
		}
		if !ok {
			// Incomplete fetch: the unobserved set is meaningless, so
			// the deletion sweep must not run for this namespace.
			complete[key] = false
			if ctx.Err() != nil {
				aborted = true
				break
			}
		}
	}

	// Deletion sweep: tombstone ledger entries not observed this run.
	// Only namespaces whose every source completed cleanly are swept.
	if systemic == nil && !aborted {
		for key, ids := range observed {
			if !complete[key] {
				logger.Warn("skipping deletion sweep for %s/%s: incomplete fetch", key.project, key.sourceType)
				continue
			}
			if err := p.sweepDeleted(ctx, key, ids, report, run.RunID); err != nil {
				systemic = err
				break
			}
		}
	}

	drainCtx := ctx
	if systemic != nil {
		// Stop recording success we can no longer trust, and bound the
		// drain: in-flight work can no longer commit anyway.
		sp.commitsHalted.Store(true)
		var cancel context.CancelFunc
		drainCtx, cancel = context.WithCancel(ctx)
		cancel()
	}

	if drained := sp.drain(drainCtx, p.opts.DrainTimeout); !drained {
		aborted = true
	}

	status := domain.RunCompleted
	switch {
	case systemic != nil:
		status = domain.RunFailed
	case aborted || ctx.Err() != nil:
		status = domain.RunAborted
	}

	finished := p.finishRun(ctx, run, report, status)
	logger.Info("run %s %s: %d seen, %d new, %d changed, %d unchanged, %d deleted, %d failed",
		run.RunID, status, finished.Counts.Seen, finished.Counts.New, finished.Counts.Changed,
		finished.Counts.Unchanged, finished.Counts.Deleted, finished.Counts.Failed)
	return finished, systemic
}

// Status returns progress for the active run, or nil if idle.
func (p *Pipeline) Status() *driving.RunProgress {
	p.mu.Lock()
	report, runID := p.current, p.runID
	p.mu.Unlock()

	if report == nil {
		return nil
	}
	counts, _, committed := report.snapshot()
	return &driving.RunProgress{
		RunID:     runID,
		Seen:      counts.Seen,
		Processed: committed,
		Failed:    counts.Failed,
	}
}

// fetchSource pulls one source's full document stream through
// classification. Returns false when the fetch ended early (connector
// failure or cancellation); a systemic error aborts the run.
func (p *Pipeline) fetchSource(
	ctx context.Context,
	sp *stagePipeline,
	source domain.Source,
	observed map[string]bool,
	report *reporter,
	runID string,
) (bool, error) {
	conn, err := p.factory.Create(ctx, source)
	if err != nil {
		logger.Warn("skipping source %s: %v", source.ID, err)
		return false, nil
	}
	defer conn.Close()

	if conn.Capabilities().SupportsValidation {
		if err := conn.Validate(ctx); err != nil {
			logger.Warn("skipping source %s: validation failed: %v", source.ID, err)
			return false, nil
		}
	}

	logger.Section("fetch " + source.ID)
	docsCh, errsCh := conn.Fetch(ctx)

	clean := true
	for docsCh != nil || errsCh != nil {
		select {
		case <-ctx.Done():
			return false, nil

		case err, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			// Source-level failure: the stream may be incomplete but
			// already-classified documents stay in flight.
			logger.Warn("connector error for %s: %v", source.ID, err)
			clean = false

		case doc, ok := <-docsCh:
			if !ok {
				docsCh = nil
				continue
			}
			doc.ProjectID = source.ProjectID
			if observed[doc.ID] {
				// A connector repeating an ID within one stream must
				// not put the same document in flight twice.
				logger.Debug("duplicate emission of %s, skipping", doc.ID)
				continue
			}
			observed[doc.ID] = true
			if err := p.classify(ctx, sp, doc, report, runID); err != nil {
				if ctx.Err() != nil {
					return false, nil
				}
				return false, err
			}
		}
	}

	return clean, nil
}

// classify diffs one fetched document against the ledger and dispatches
// it. Single pass, no global lock: the classification loop is the only
// reader-then-writer for a document within a run.
func (p *Pipeline) classify(
	ctx context.Context,
	sp *stagePipeline,
	doc domain.Document,
	report *reporter,
	runID string,
) error {
	if doc.IsDeleted {
		report.classified(domain.ClassDeleted)
		return p.tombstone(ctx, doc.ID, report, runID)
	}

	entry, err := p.states.Get(ctx, doc.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		entry = nil
	case err != nil:
		return fmt.Errorf("%w: get %s: %v", domain.ErrStateStore, doc.ID, err)
	}

	var class domain.Classification
	switch {
	case entry == nil:
		class = domain.ClassNew
	case entry.Status != domain.StatusProcessed:
		// Tombstoned entries whose document reappeared, and failed
		// entries, must be fully reprocessed even on a hash match:
		// their vectors are not in the store.
		class = domain.ClassNew
	case entry.ContentHash != doc.ContentHash:
		class = domain.ClassChanged
	default:
		class = domain.ClassUnchanged
	}

	report.classified(class)
	logger.Debug("classified %s as %s", doc.ID, class)

	if class == domain.ClassUnchanged {
		// Skip every stage; only refresh the run marker.
		entry.LastRunID = runID
		entry.UpdatedAt = time.Now().UTC()
		if err := p.states.Upsert(ctx, *entry); err != nil {
			return fmt.Errorf("%w: refresh %s: %v", domain.ErrStateStore, doc.ID, err)
		}
		return nil
	}

	if !sp.admit(ctx, &task{doc: doc, class: class}) {
		// Cancelled before the pools accepted it; stop the fetch so no
		// further documents are classified but never admitted.
		return ctx.Err()
	}
	return nil
}

// tombstone removes a document's vectors and marks its ledger entry.
// A vector store failure is a per-document failure; a ledger failure is
// systemic.
func (p *Pipeline) tombstone(ctx context.Context, docID string, report *reporter, runID string) error {
	_, err := p.opts.Retry.Do(ctx, func(ctx context.Context) error {
		return p.vectors.DeleteByDocument(ctx, p.opts.Collection, docID)
	})
	if err != nil {
		report.failed(docID, "tombstone", err)
		return nil
	}

	if err := p.states.Tombstone(ctx, docID, runID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: tombstone %s: %v", domain.ErrStateStore, docID, err)
	}
	return nil
}

// sweepDeleted tombstones every ledger entry in the namespace whose
// document was not observed this run. This is how source-side removals
// are detected without connectors reporting deletions explicitly.
func (p *Pipeline) sweepDeleted(
	ctx context.Context,
	key groupKey,
	observed map[string]bool,
	report *reporter,
	runID string,
) error {
	entries, err := p.states.List(ctx, key.project, key.sourceType)
	if err != nil {
		return fmt.Errorf("%w: list %s/%s: %v", domain.ErrStateStore, key.project, key.sourceType, err)
	}

	for _, entry := range entries {
		if observed[entry.DocumentID] || entry.Status == domain.StatusTombstoned {
			continue
		}
		report.classified(domain.ClassDeleted)
		logger.Debug("tombstoning %s: absent from fetch set", entry.DocumentID)
		if err := p.tombstone(ctx, entry.DocumentID, report, runID); err != nil {
			return err
		}
	}
	return nil
}

// filteredSources applies the run filter to the configured sources.
func (p *Pipeline) filteredSources(filter driving.RunFilter) []domain.Source {
	out := make([]domain.Source, 0, len(p.sources))
	for _, s := range p.sources {
		if filter.ProjectID != "" && s.ProjectID != filter.ProjectID {
			continue
		}
		if filter.SourceType != "" && s.Type != filter.SourceType {
			continue
		}
		out = append(out, s)
	}
	return out
}

// finishRun stamps the report totals onto the run and persists it.
func (p *Pipeline) finishRun(
	ctx context.Context,
	run *domain.PipelineRun,
	report *reporter,
	status domain.RunStatus,
) *domain.PipelineRun {
	if report != nil {
		counts, failures, _ := report.snapshot()
		run.Counts = counts
		run.Failures = failures
	}
	run.Status = status
	run.FinishedAt = time.Now().UTC()

	if p.runs != nil {
		// Best effort: a report that cannot be persisted is still returned.
		if err := p.runs.SaveRun(context.WithoutCancel(ctx), run); err != nil {
			logger.Warn("save run %s: %v", run.RunID, err)
		}
	}
	return run
}

func (p *Pipeline) setCurrent(runID string, report *reporter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runID = runID
	p.current = report
}

func (p *Pipeline) clearCurrent() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
	p.runID = ""
}
