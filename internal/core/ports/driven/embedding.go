package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations wrap rate-limited external APIs and must report
// rate-limit errors (domain.ErrRateLimited) distinguishably from
// permanent errors (domain.ErrAuthFailed, domain.ErrInvalidInput) so
// the retry policy can tell them apart.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//   - Local models via inference servers
type EmbeddingService interface {
	// EmbedBatch generates embeddings for multiple texts in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	// This is determined by the model and must match the vector store
	// collection configuration.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request. Used at startup before any document is admitted.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
