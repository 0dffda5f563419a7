// Package domain defines the core business entities for weft.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: One ingested source and its immutable raw bytes
//   - Node: A structural span within a document
//   - Edge: A relationship between two nodes
//   - IndexEntry: The full-text projection of a node
//   - DocumentTree: A read snapshot used for rendering
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
