// Package domain defines the core business entities for vecsync.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A fetched document as produced by a connector
//   - Chunk: An embeddable unit split from a document
//   - StateEntry: The durable fingerprint ledger row for one document
//   - PipelineRun: The report produced by one pipeline invocation
//   - Source: A configured data source
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
