// Package driving provides interfaces for user-facing adapters
// (primary/inbound ports). The CLI depends on these, never on the
// concrete services.
package driving
