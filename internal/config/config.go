// Package config loads and validates the vecsync TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// Duration is a time.Duration that unmarshals from TOML strings like
// "500ms" or "15m".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultPath returns the default config file location
// (~/.vecsync/config.toml).
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".vecsync", "config.toml"), nil
}

// Config is the top-level vecsync configuration.
type Config struct {
	// DataDir is where the state database lives (default: ~/.vecsync/data).
	DataDir string `toml:"data_dir"`

	// Collection is the vector store collection name.
	Collection string `toml:"collection"`

	Pipeline  PipelineConfig  `toml:"pipeline"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Qdrant    QdrantConfig    `toml:"qdrant"`
	Daemon    DaemonConfig    `toml:"daemon"`
	Sources   []SourceConfig  `toml:"sources"`
}

// PipelineConfig tunes worker pools, queues, batching and retry.
type PipelineConfig struct {
	ChunkWorkers  int `toml:"chunk_workers"`
	EmbedWorkers  int `toml:"embed_workers"`
	UpsertWorkers int `toml:"upsert_workers"`
	CommitWorkers int `toml:"commit_workers"`

	QueueDepth      int `toml:"queue_depth"`
	EmbedBatchSize  int `toml:"embed_batch_size"`
	UpsertBatchSize int `toml:"upsert_batch_size"`

	RetryAttempts     int           `toml:"retry_attempts"`
	RetryInitialDelay Duration      `toml:"retry_initial_delay"`
	RetryMaxDelay     Duration      `toml:"retry_max_delay"`

	DrainTimeout Duration `toml:"drain_timeout"`
}

// ChunkingConfig tunes the chunker.
type ChunkingConfig struct {
	Size      int `toml:"size"`
	Overlap   int `toml:"overlap"`
	MaxChunks int `toml:"max_chunks"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "openai" or "ollama" (default: ollama).
	Provider string `toml:"provider"`

	// APIKey authenticates against the provider (openai only).
	APIKey string `toml:"api_key"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `toml:"base_url"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// Dimensions overrides the model's vector size.
	Dimensions int `toml:"dimensions"`
}

// QdrantConfig configures the vector store.
type QdrantConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
}

// DaemonConfig configures periodic runs.
type DaemonConfig struct {
	// Interval between scheduled runs (default: 15m).
	Interval Duration `toml:"interval"`

	// WatchDebounce is how long the daemon's watch mode waits after the
	// last change event before triggering a run (default: 2s).
	WatchDebounce Duration `toml:"watch_debounce"`
}

// SourceConfig declares one data source.
type SourceConfig struct {
	ID      string            `toml:"id"`
	Project string            `toml:"project"`
	Type    string            `toml:"type"`
	Name    string            `toml:"name"`
	Config  map[string]string `toml:"config"`
}

// Source converts the config entry into a domain source.
func (s SourceConfig) Source() domain.Source {
	return domain.Source{
		ID:        s.ID,
		ProjectID: s.Project,
		Type:      s.Type,
		Name:      s.Name,
		Config:    s.Config,
	}
}

// Default returns a configuration with every field at its default.
func Default() *Config {
	return &Config{
		Collection: "vecsync",
		Pipeline: PipelineConfig{
			ChunkWorkers:      8,
			EmbedWorkers:      4,
			UpsertWorkers:     2,
			CommitWorkers:     2,
			QueueDepth:        16,
			EmbedBatchSize:    64,
			UpsertBatchSize:   128,
			RetryAttempts:     3,
			RetryInitialDelay: Duration(500 * time.Millisecond),
			RetryMaxDelay:     Duration(30 * time.Second),
			DrainTimeout:      Duration(30 * time.Second),
		},
		Chunking: ChunkingConfig{
			Size:      1000,
			Overlap:   200,
			MaxChunks: 2000,
		},
		Embedding: EmbeddingConfig{
			Provider: "ollama",
		},
		Qdrant: QdrantConfig{
			BaseURL: "http://localhost:6333",
		},
		Daemon: DaemonConfig{
			Interval:      Duration(15 * time.Minute),
			WatchDebounce: Duration(2 * time.Second),
		},
	}
}

// Load reads the TOML file at path, applies defaults for unset fields
// and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing config %s: %v", domain.ErrInvalidInput, path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero values the TOML file left unset.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Collection == "" {
		c.Collection = def.Collection
	}
	if c.Pipeline.ChunkWorkers <= 0 {
		c.Pipeline.ChunkWorkers = def.Pipeline.ChunkWorkers
	}
	if c.Pipeline.EmbedWorkers <= 0 {
		c.Pipeline.EmbedWorkers = def.Pipeline.EmbedWorkers
	}
	if c.Pipeline.UpsertWorkers <= 0 {
		c.Pipeline.UpsertWorkers = def.Pipeline.UpsertWorkers
	}
	if c.Pipeline.CommitWorkers <= 0 {
		c.Pipeline.CommitWorkers = def.Pipeline.CommitWorkers
	}
	if c.Pipeline.QueueDepth <= 0 {
		c.Pipeline.QueueDepth = def.Pipeline.QueueDepth
	}
	if c.Pipeline.EmbedBatchSize <= 0 {
		c.Pipeline.EmbedBatchSize = def.Pipeline.EmbedBatchSize
	}
	if c.Pipeline.UpsertBatchSize <= 0 {
		c.Pipeline.UpsertBatchSize = def.Pipeline.UpsertBatchSize
	}
	if c.Pipeline.RetryAttempts <= 0 {
		c.Pipeline.RetryAttempts = def.Pipeline.RetryAttempts
	}
	if c.Pipeline.RetryInitialDelay <= 0 {
		c.Pipeline.RetryInitialDelay = def.Pipeline.RetryInitialDelay
	}
	if c.Pipeline.RetryMaxDelay <= 0 {
		c.Pipeline.RetryMaxDelay = def.Pipeline.RetryMaxDelay
	}
	if c.Pipeline.DrainTimeout <= 0 {
		c.Pipeline.DrainTimeout = def.Pipeline.DrainTimeout
	}
	if c.Chunking.Size <= 0 {
		c.Chunking.Size = def.Chunking.Size
	}
	if c.Chunking.Overlap < 0 {
		c.Chunking.Overlap = def.Chunking.Overlap
	}
	if c.Chunking.MaxChunks <= 0 {
		c.Chunking.MaxChunks = def.Chunking.MaxChunks
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = def.Embedding.Provider
	}
	if c.Qdrant.BaseURL == "" {
		c.Qdrant.BaseURL = def.Qdrant.BaseURL
	}
	if c.Daemon.Interval <= 0 {
		c.Daemon.Interval = def.Daemon.Interval
	}
	if c.Daemon.WatchDebounce <= 0 {
		c.Daemon.WatchDebounce = def.Daemon.WatchDebounce
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, c.Embedding.Provider)
	}
	if c.Embedding.Provider == "openai" && c.Embedding.APIKey == "" {
		return fmt.Errorf("%w: openai provider requires api_key", domain.ErrInvalidInput)
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("%w: chunk overlap %d must be smaller than size %d",
			domain.ErrInvalidInput, c.Chunking.Overlap, c.Chunking.Size)
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("%w: source %d is missing an id", domain.ErrInvalidInput, i)
		}
		if seen[src.ID] {
			return fmt.Errorf("%w: duplicate source id %q", domain.ErrInvalidInput, src.ID)
		}
		seen[src.ID] = true
		s := src.Source()
		if err := s.Validate(); err != nil {
			return fmt.Errorf("source %q: %w", src.ID, err)
		}
	}
	return nil
}

// DomainSources converts all configured sources into domain sources.
func (c *Config) DomainSources() []domain.Source {
	sources := make([]domain.Source, len(c.Sources))
	for i, s := range c.Sources {
		sources[i] = s.Source()
	}
	return sources
}
