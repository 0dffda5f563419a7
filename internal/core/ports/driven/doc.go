// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - GraphStore: Documents, nodes and edges with write-time invariants
//   - GraphTx: One atomic ingest batch
//   - SearchEngine: Full-text search over the node projection (FTS5)
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - Source: Walks and watches a directory tree for ingestable files.
//     Only the watch command needs it.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
