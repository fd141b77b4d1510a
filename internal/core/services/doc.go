// Package services contains the core pipeline logic.
//
// The Pipeline orchestrator is the only component with cross-cutting
// visibility: it pulls documents from connectors, diffs them against
// the state ledger, drives new and changed documents through bounded
// worker pools (convert+chunk, embed, upsert, commit), tombstones
// removed documents, and emits a run report.
//
// Services depend only on domain types and ports, never on concrete
// adapters.
package services
