package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/logger"
)

// task carries one document through the pipeline stages.
type task struct {
	doc    domain.Document
	class  domain.Classification
	text   string
	chunks []domain.Chunk
}

// stagePipeline is the bounded four-stage transformation:
// convert+chunk -> embed -> upsert -> commit.
//
// Each stage owns a fixed-size ants pool fed by a dispatcher goroutine
// reading from a bounded channel. Submit blocks when all workers are
// busy and channel sends block when the queue is full, so a slow
// downstream stage applies backpressure all the way to the connector
// instead of buffering unboundedly.
type stagePipeline struct {
	opts     Options
	convert  driven.ConverterRegistry
	chunker  driven.Chunker
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	states   driven.StateStore
	report   *reporter
	runID    string

	convertCh chan *task
	embedCh   chan *task
	upsertCh  chan *task
	commitCh  chan *task

	pools       []*ants.Pool
	dispatchers sync.WaitGroup
	inflight    sync.WaitGroup

	// quit unblocks workers stuck on a downstream send during a hard
	// shutdown. Tasks released this way are failed, never committed.
	quit     chan struct{}
	quitOnce sync.Once

	// workCtx is cancelled on hard shutdown to abort in-flight external
	// calls. In-flight documents otherwise run to completion even after
	// run cancellation, bounded by the drain timeout.
	workCtx    context.Context
	workCancel context.CancelFunc

	commitsHalted atomic.Bool
}

func newStagePipeline(
	opts Options,
	convert driven.ConverterRegistry,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	states driven.StateStore,
	report *reporter,
	runID string,
) (*stagePipeline, error) {
	sp := &stagePipeline{
		opts:      opts,
		convert:   convert,
		chunker:   chunker,
		embedder:  embedder,
		vectors:   vectors,
		states:    states,
		report:    report,
		runID:     runID,
		convertCh: make(chan *task, opts.QueueDepth),
		embedCh:   make(chan *task, opts.QueueDepth),
		upsertCh:  make(chan *task, opts.QueueDepth),
		commitCh:  make(chan *task, opts.QueueDepth),
		quit:      make(chan struct{}),
	}
	sp.workCtx, sp.workCancel = context.WithCancel(context.Background())

	stages := []struct {
		size int
		ch   chan *task
		work func(*task)
	}{
		{opts.ChunkWorkers, sp.convertCh, sp.convertWork},
		{opts.EmbedWorkers, sp.embedCh, sp.embedWork},
		{opts.UpsertWorkers, sp.upsertCh, sp.upsertWork},
		{opts.CommitWorkers, sp.commitCh, sp.commitWork},
	}

	for _, st := range stages {
		pool, err := ants.NewPool(st.size)
		if err != nil {
			sp.release()
			return nil, fmt.Errorf("create worker pool: %w", err)
		}
		sp.pools = append(sp.pools, pool)

		sp.dispatchers.Add(1)
		go sp.dispatch(st.ch, pool, st.work)
	}

	return sp, nil
}

// dispatch feeds one stage's pool from its queue. Submit blocks while
// all workers are busy, which stops the read loop and lets the queue
// fill; upstream producers then block on their sends.
func (sp *stagePipeline) dispatch(ch chan *task, pool *ants.Pool, work func(*task)) {
	defer sp.dispatchers.Done()
	for t := range ch {
		t := t
		if err := pool.Submit(func() { work(t) }); err != nil {
			// Pool released during hard shutdown.
			sp.fail(t, "shutdown", domain.Transient(err))
		}
	}
}

// admit enqueues a classified document into the first stage.
// Blocks for backpressure; returns false if ctx is cancelled first.
func (sp *stagePipeline) admit(ctx context.Context, t *task) bool {
	sp.inflight.Add(1)
	select {
	case sp.convertCh <- t:
		return true
	case <-ctx.Done():
		sp.inflight.Done()
		return false
	}
}

// drain waits for in-flight documents to reach a terminal state. A
// healthy run waits out its admitted tail however long it takes; the
// timeout starts only once ctx is cancelled. Returns false if the
// timeout forced a hard stop; remaining tasks are failed without any
// state write, which is safe because entries are only written after
// full success.
func (sp *stagePipeline) drain(ctx context.Context, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		sp.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		sp.shutdown()
		return true
	case <-ctx.Done():
	}

	select {
	case <-done:
		sp.shutdown()
		return true
	case <-time.After(timeout):
		logger.Warn("drain timeout after %s, forcing shutdown", timeout)
		sp.workCancel()
		sp.quitOnce.Do(func() { close(sp.quit) })
		<-done
		sp.shutdown()
		return false
	}
}

// shutdown closes the queues and releases the pools. Only called once
// no task is in flight.
func (sp *stagePipeline) shutdown() {
	close(sp.convertCh)
	close(sp.embedCh)
	close(sp.upsertCh)
	close(sp.commitCh)
	sp.dispatchers.Wait()
	sp.release()
}

func (sp *stagePipeline) release() {
	sp.workCancel()
	for _, p := range sp.pools {
		p.Release()
	}
}

// forward hands a task to the next stage, or fails it if a hard
// shutdown is in progress.
func (sp *stagePipeline) forward(t *task, ch chan *task) {
	select {
	case ch <- t:
	case <-sp.quit:
		sp.fail(t, "shutdown", domain.Transient(context.Canceled))
	}
}

// fail records a per-document failure and retires the task. The
// document's prior ledger entry, if any, is untouched, so the hash
// comparison is simply retried next run.
func (sp *stagePipeline) fail(t *task, stage string, err error) {
	sp.report.failed(t.doc.ID, stage, err)
	sp.inflight.Done()
}

// convertWork runs the convert and chunk stages for one document.
func (sp *stagePipeline) convertWork(t *task) {
	ctx := sp.workCtx

	text, err := sp.convert.Convert(ctx, t.doc.RawContent, t.doc.MIMEType)
	if err != nil {
		sp.fail(t, "convert", err)
		return
	}
	t.text = text

	chunks, err := sp.chunker.Chunk(t.text, t.doc.ID)
	if err != nil {
		sp.fail(t, "chunk", err)
		return
	}
	if len(chunks) == 0 {
		// Nothing to embed; commit directly so the hash is remembered
		// and the document is skipped next run.
		sp.forward(t, sp.commitCh)
		return
	}
	t.chunks = chunks

	sp.forward(t, sp.embedCh)
}

// embedWork embeds all of a document's chunks in batches.
func (sp *stagePipeline) embedWork(t *task) {
	ctx := sp.workCtx

	for start := 0; start < len(t.chunks); start += sp.opts.EmbedBatchSize {
		end := start + sp.opts.EmbedBatchSize
		if end > len(t.chunks) {
			end = len(t.chunks)
		}
		if err := sp.embedBatch(ctx, t.chunks[start:end]); err != nil {
			sp.fail(t, "embed", err)
			return
		}
	}

	sp.forward(t, sp.upsertCh)
}

// embedBatch embeds one batch with retry, then degrades to two half
// batches before giving up. The half-batch pass rescues batches where
// only size pushed the API over a limit.
func (sp *stagePipeline) embedBatch(ctx context.Context, chunks []domain.Chunk) error {
	err := sp.embedOnce(ctx, chunks, true)
	if err == nil || !domain.IsTransient(err) || len(chunks) < 2 {
		return err
	}

	logger.Debug("splitting failed embed batch of %d", len(chunks))
	mid := len(chunks) / 2
	if err := sp.embedOnce(ctx, chunks[:mid], false); err != nil {
		return err
	}
	return sp.embedOnce(ctx, chunks[mid:], false)
}

// embedOnce embeds one batch, with backoff retries when withRetry is set.
func (sp *stagePipeline) embedOnce(ctx context.Context, chunks []domain.Chunk, withRetry bool) error {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	embed := func(ctx context.Context) error {
		vectors, err := sp.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: got %d embeddings for %d texts",
				domain.ErrInvalidInput, len(vectors), len(texts))
		}
		for i := range chunks {
			chunks[i].Embedding = vectors[i]
		}
		return nil
	}

	if !withRetry {
		return embed(ctx)
	}
	_, err := sp.opts.Retry.Do(ctx, embed)
	return err
}

// upsertWork writes a document's chunk vectors to the vector store.
// For changed documents the previous chunk set is deleted first so no
// orphaned stale chunks survive a shrinking document.
func (sp *stagePipeline) upsertWork(t *task) {
	ctx := sp.workCtx

	if t.class == domain.ClassChanged {
		_, err := sp.opts.Retry.Do(ctx, func(ctx context.Context) error {
			return sp.vectors.DeleteByDocument(ctx, sp.opts.Collection, t.doc.ID)
		})
		if err != nil {
			sp.fail(t, "store", err)
			return
		}
	}

	points := buildPoints(t)
	for start := 0; start < len(points); start += sp.opts.UpsertBatchSize {
		end := start + sp.opts.UpsertBatchSize
		if end > len(points) {
			end = len(points)
		}
		if err := sp.upsertBatch(ctx, points[start:end]); err != nil {
			sp.fail(t, "store", err)
			return
		}
	}

	sp.forward(t, sp.commitCh)
}

// upsertBatch mirrors embedBatch: retry with backoff, then one
// half-batch pass before a hard failure.
func (sp *stagePipeline) upsertBatch(ctx context.Context, points []driven.VectorPoint) error {
	upsert := func(pts []driven.VectorPoint) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			return sp.vectors.Upsert(ctx, sp.opts.Collection, pts)
		}
	}

	_, err := sp.opts.Retry.Do(ctx, upsert(points))
	if err == nil || !domain.IsTransient(err) || len(points) < 2 {
		return err
	}

	logger.Debug("splitting failed upsert batch of %d", len(points))
	mid := len(points) / 2
	if err := upsert(points[:mid])(ctx); err != nil {
		return err
	}
	return upsert(points[mid:])(ctx)
}

// commitWork writes the ledger entry after the full pipeline succeeded.
// This is the only stage that mutates the state store for processed
// documents, so per-document write serialisation holds structurally.
func (sp *stagePipeline) commitWork(t *task) {
	ctx := sp.workCtx

	if sp.commitsHalted.Load() {
		sp.fail(t, "commit", fmt.Errorf("%w: commits halted", domain.ErrStateStore))
		return
	}

	entry := domain.StateEntry{
		DocumentID:  t.doc.ID,
		ContentHash: t.doc.ContentHash,
		ProjectID:   t.doc.ProjectID,
		SourceType:  t.doc.SourceType,
		Status:      domain.StatusProcessed,
		LastRunID:   sp.runID,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := sp.states.Upsert(ctx, entry); err != nil {
		if domain.IsSystemic(err) {
			// The ledger is gone; later commits would only claim
			// success we cannot record. Stop committing.
			sp.commitsHalted.Store(true)
			logger.Error("state store failed mid-run, halting commits: %v", err)
		}
		sp.fail(t, "commit", err)
		return
	}

	logger.Debug("committed %s (%s)", t.doc.ID, t.class)
	sp.report.committedOne()
	sp.inflight.Done()
}

// buildPoints converts a task's chunks into vector points.
func buildPoints(t *task) []driven.VectorPoint {
	points := make([]driven.VectorPoint, len(t.chunks))
	for i, chunk := range t.chunks {
		points[i] = driven.VectorPoint{
			ID:     chunk.ID(),
			Vector: chunk.Embedding,
			Payload: map[string]string{
				"document_id": chunk.DocumentID,
				"chunk_index": strconv.Itoa(chunk.Index),
				"source_type": t.doc.SourceType,
				"url":         t.doc.URL,
				"title":       t.doc.Title,
				"text":        chunk.Text,
			},
		}
	}
	return points
}
