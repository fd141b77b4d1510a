// Package chunker provides a fixed-size text chunking strategy.
package chunker

import (
	"fmt"

	"github.com/custodia-labs/vecsync/internal/core/domain"
	"github.com/custodia-labs/vecsync/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// DefaultMaxChunks is the default per-document chunk cap.
const DefaultMaxChunks = 2000

// Ensure Chunker implements the interface.
var _ driven.Chunker = (*Chunker)(nil)

// Chunker splits text into fixed-size chunks with overlap.
//
// Chunking is pure and deterministic: identical text and configuration
// always produce the identical chunk sequence, so content-hash skip
// logic stays meaningful across runs. Chunk identity comes from the
// (documentID, index) pair, never from random IDs.
type Chunker struct {
	chunkSize int
	overlap   int
	maxChunks int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithMaxChunks sets the hard per-document chunk cap.
func WithMaxChunks(max int) Option {
	return func(c *Chunker) {
		if max > 0 {
			c.maxChunks = max
		}
	}
}

// New creates a new chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		maxChunks: DefaultMaxChunks,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// Chunk splits text into ordered chunks for the document.
//
// Exceeding the chunk cap fails the document instead of silently
// truncating it: a truncated document would commit a content hash that
// claims full coverage of content that was never stored.
func (c *Chunker) Chunk(text string, documentID string) ([]domain.Chunk, error) {
	if text == "" {
		return nil, nil
	}

	// Operate on runes so chunk boundaries never split a UTF-8 sequence.
	runes := []rune(text)
	total := len(runes)
	step := c.chunkSize - c.overlap

	estimated := total/step + 1
	if estimated > c.maxChunks {
		estimated = c.maxChunks
	}
	chunks := make([]domain.Chunk, 0, estimated)

	for start := 0; start < total; start += step {
		if len(chunks) >= c.maxChunks {
			return nil, fmt.Errorf("%w: document %s exceeds %d chunks",
				domain.ErrChunkLimitExceeded, documentID, c.maxChunks)
		}

		end := start + c.chunkSize
		if end > total {
			end = total
		}

		content := string(runes[start:end])
		chunks = append(chunks, domain.Chunk{
			DocumentID: documentID,
			Index:      len(chunks),
			Text:       content,
			TokenCount: estimateTokens(content),
		})

		if end == total {
			break
		}
	}

	return chunks, nil
}

// estimateTokens approximates the token count for batching budgets.
// One token per four characters tracks common BPE vocabularies closely
// enough for batch sizing.
func estimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		n = 1
	}
	return n
}
