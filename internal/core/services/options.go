package services

import "time"

// Options configures the pipeline orchestrator.
// An explicit value is passed into NewPipeline and threaded through
// worker pool construction; there is no global configuration state.
type Options struct {
	// Collection is the vector store collection written by this pipeline.
	Collection string

	// Worker pool sizes. Chunking is CPU-bound and cheap; embedding and
	// upserting are external-rate-limited, so the defaults taper:
	// chunk > embed > upsert.
	ChunkWorkers  int
	EmbedWorkers  int
	UpsertWorkers int
	CommitWorkers int

	// QueueDepth bounds each inter-stage queue. Producers block when a
	// queue is full, capping peak memory regardless of source size.
	QueueDepth int

	// EmbedBatchSize is the number of chunks per embedding API call.
	EmbedBatchSize int

	// UpsertBatchSize is the number of points per vector store write.
	UpsertBatchSize int

	// Retry is the backoff policy for transient external failures.
	Retry RetryPolicy

	// DrainTimeout bounds how long cancellation waits for in-flight
	// documents before forcing shutdown.
	DrainTimeout time.Duration
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		Collection:      "documents",
		ChunkWorkers:    8,
		EmbedWorkers:    4,
		UpsertWorkers:   2,
		CommitWorkers:   2,
		QueueDepth:      16,
		EmbedBatchSize:  64,
		UpsertBatchSize: 128,
		Retry:           DefaultRetryPolicy(),
		DrainTimeout:    30 * time.Second,
	}
}

// normalise fills zero values with defaults so partially populated
// options never produce a zero-size pool or queue.
func (o *Options) normalise() {
	def := DefaultOptions()
	if o.Collection == "" {
		o.Collection = def.Collection
	}
	if o.ChunkWorkers <= 0 {
		o.ChunkWorkers = def.ChunkWorkers
	}
	if o.EmbedWorkers <= 0 {
		o.EmbedWorkers = def.EmbedWorkers
	}
	if o.UpsertWorkers <= 0 {
		o.UpsertWorkers = def.UpsertWorkers
	}
	if o.CommitWorkers <= 0 {
		o.CommitWorkers = def.CommitWorkers
	}
	if o.QueueDepth <= 0 {
		o.QueueDepth = def.QueueDepth
	}
	if o.EmbedBatchSize <= 0 {
		o.EmbedBatchSize = def.EmbedBatchSize
	}
	if o.UpsertBatchSize <= 0 {
		o.UpsertBatchSize = def.UpsertBatchSize
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry = def.Retry
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = def.DrainTimeout
	}
}
