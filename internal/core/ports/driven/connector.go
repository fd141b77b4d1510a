package driven

import (
	"context"

	"github.com/custodia-labs/vecsync/internal/core/domain"
)

// Connector fetches documents from a data source.
// Each connector type (filesystem, github, etc.) implements this interface.
type Connector interface {
	// Type returns the connector type identifier.
	Type() string

	// SourceID returns the configured source ID.
	SourceID() string

	// Capabilities returns what this connector supports.
	Capabilities() ConnectorCapabilities

	// Validate checks if the connector is properly configured and authenticated.
	// Performs a lightweight check to verify the connector is ready to fetch.
	// For API connectors, this typically makes a test API call.
	// For filesystem, this checks the path exists and is readable.
	Validate(ctx context.Context) error

	// Fetch produces the finite, unordered sequence of documents for this
	// source. Both channels are closed when the sequence is complete; the
	// document channel closing signals end-of-sequence, which the
	// orchestrator relies on to compute the deletion set. Documents the
	// source reports as removed carry IsDeleted.
	Fetch(ctx context.Context) (<-chan domain.Document, <-chan error)

	// Watch listens for real-time changes.
	// Only available if SupportsWatch is true.
	Watch(ctx context.Context) (<-chan domain.Document, error)

	// Close releases resources.
	Close() error
}

// ConnectorCapabilities describes what a connector supports.
type ConnectorCapabilities struct {
	// SupportsWatch indicates the connector can push real-time events.
	SupportsWatch bool

	// SupportsBinary indicates the connector emits non-text payloads
	// that need conversion.
	SupportsBinary bool

	// RequiresAuth indicates the connector needs authentication.
	// False for local connectors like filesystem.
	RequiresAuth bool

	// SupportsValidation indicates Validate() performs actual validation.
	// When true, Validate() makes a real check (e.g., API call, path check).
	SupportsValidation bool

	// SupportsRateLimiting indicates the connector throttles itself.
	// Informational; pagination and throttling stay inside the connector.
	SupportsRateLimiting bool
}

// ConnectorFactory creates connectors from source configurations.
type ConnectorFactory interface {
	// Create builds a connector for the given source.
	// Returns domain.ErrUnsupportedType for unknown source types.
	Create(ctx context.Context, source domain.Source) (Connector, error)

	// SupportedTypes lists the registered connector types.
	SupportedTypes() []string
}
