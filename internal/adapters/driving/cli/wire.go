package cli

import (
	"fmt"

	"github.com/custodia-labs/vecsync/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/vecsync/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/vecsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/vecsync/internal/adapters/driven/vectorstore/qdrant"
	"github.com/custodia-labs/vecsync/internal/chunker"
	"github.com/custodia-labs/vecsync/internal/config"
	"github.com/custodia-labs/vecsync/internal/connectors"
	"github.com/custodia-labs/vecsync/internal/converters"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
	"github.com/custodia-labs/vecsync/internal/core/services"
	"github.com/custodia-labs/vecsync/internal/logger"
)

// ensureServices builds the pipeline and its adapters from the config
// file. Idempotent; the first caller wins.
func ensureServices() error {
	if pipelineRunner != nil {
		return nil
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	appConfig = cfg
	logger.Debug("loaded config from %s (%d sources)", path, len(cfg.Sources))

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		store.Close()
		return err
	}

	vectors := qdrant.NewStore(qdrant.Config{
		BaseURL: cfg.Qdrant.BaseURL,
		APIKey:  cfg.Qdrant.APIKey,
	})

	connectorFactory = connectors.NewDefaultFactory()

	pipelineRunner = services.NewPipeline(
		pipelineOptions(cfg),
		cfg.DomainSources(),
		connectorFactory,
		converters.NewDefaultRegistry(),
		chunker.New(
			chunker.WithChunkSize(cfg.Chunking.Size),
			chunker.WithOverlap(cfg.Chunking.Overlap),
			chunker.WithMaxChunks(cfg.Chunking.MaxChunks),
		),
		embedder,
		vectors,
		store.StateStore(),
		store.RunStore(),
	)

	runStore = store.RunStore()
	cleanup = func() {
		embedder.Close()
		store.Close()
	}
	return nil
}

// runStore is kept for the history command, connectorFactory for the
// daemon's watch mode.
var (
	runStore         driven.RunStore
	connectorFactory driven.ConnectorFactory
)

func buildEmbedder(cfg *config.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

func pipelineOptions(cfg *config.Config) services.Options {
	return services.Options{
		Collection:      cfg.Collection,
		ChunkWorkers:    cfg.Pipeline.ChunkWorkers,
		EmbedWorkers:    cfg.Pipeline.EmbedWorkers,
		UpsertWorkers:   cfg.Pipeline.UpsertWorkers,
		CommitWorkers:   cfg.Pipeline.CommitWorkers,
		QueueDepth:      cfg.Pipeline.QueueDepth,
		EmbedBatchSize:  cfg.Pipeline.EmbedBatchSize,
		UpsertBatchSize: cfg.Pipeline.UpsertBatchSize,
		Retry: services.RetryPolicy{
			MaxAttempts:  cfg.Pipeline.RetryAttempts,
			InitialDelay: cfg.Pipeline.RetryInitialDelay.Std(),
			MaxDelay:     cfg.Pipeline.RetryMaxDelay.Std(),
		},
		DrainTimeout: cfg.Pipeline.DrainTimeout.Std(),
	}
}
