// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports).
//
// The orchestrator in core/services depends only on these interfaces,
// never on concrete connectors, stores or API clients. Adapters under
// internal/adapters/driven and internal/connectors implement them.
package driven
