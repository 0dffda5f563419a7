// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements two port interfaces
// over one database file:
//
//   - GraphStore: Documents, nodes and edges with write-time invariants
//   - SearchEngine: FTS5 full-text search with BM25 ranking
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Uniqueness of short ids, single parents and non-branching sibling order are
// enforced by UNIQUE constraints and partial unique indexes; the Go checks in
// front of them produce typed errors.
//
// # Data Location
//
// By default, the database is stored at ~/.weft/data/weft.db
//
// # Thread Safety
//
// All operations are thread-safe. Writes use a single connection with
// BEGIN IMMEDIATE transactions; reads use a pooled set of query-only
// connections and see consistent WAL snapshots. Index entries are written
// in the same transaction as their nodes, so a search never returns a node
// that was rolled back.
package sqlite
