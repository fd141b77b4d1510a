package domain

import "errors"

// Domain errors represent the pipeline's error taxonomy.
// Stage boundaries classify failures with errors.Is against these
// sentinels; the retry policy keys off IsTransient.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown connector or converter type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrConnectorClosed indicates the connector has been closed.
	ErrConnectorClosed = errors.New("connector closed")

	// Per-document errors. Caught at the stage boundary, recorded in the
	// run report, never propagated past the document's own pipeline.

	// ErrConversion indicates the converter could not produce text.
	ErrConversion = errors.New("conversion failed")

	// ErrChunkLimitExceeded indicates a document produced more chunks
	// than the configured cap. The document is failed, not truncated.
	ErrChunkLimitExceeded = errors.New("chunk limit exceeded")

	// ErrRateLimited indicates an external API rate limit. Always transient.
	ErrRateLimited = errors.New("rate limited")

	// ErrAuthFailed indicates invalid or expired credentials. Never retried.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrSourceFetch indicates a connector failed to fetch a document.
	ErrSourceFetch = errors.New("source fetch failed")

	// ErrVectorStore indicates a vector store operation failed.
	ErrVectorStore = errors.New("vector store error")

	// Systemic errors. These abort the run: correctness depends on the
	// state ledger, so the orchestrator never works around them.

	// ErrStateStore indicates the state ledger is unreachable or corrupt.
	ErrStateStore = errors.New("state store error")
)

// transientError marks a wrapped error as retryable.
type transientError struct {
	err error
}

func (t *transientError) Error() string { return t.err.Error() }
func (t *transientError) Unwrap() error { return t.err }

// Transient wraps err to mark it retryable (timeouts, 5xx-class errors).
// Rate-limit errors are transient without wrapping.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var t *transientError
	return errors.As(err, &t)
}

// IsSystemic reports whether err must abort the run rather than fail
// a single document.
func IsSystemic(err error) bool {
	return errors.Is(err, ErrStateStore)
}

// ErrorKind maps an error to the kind label used in run reports.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrAuthFailed):
		return "auth"
	case errors.Is(err, ErrChunkLimitExceeded):
		return "chunk_limit_exceeded"
	case errors.Is(err, ErrConversion):
		return "conversion"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrVectorStore):
		return "vector_store"
	case errors.Is(err, ErrSourceFetch):
		return "source_fetch"
	case errors.Is(err, ErrStateStore):
		return "state_store"
	default:
		return "unknown"
	}
}
