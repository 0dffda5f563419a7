package driven

import (
	"context"

	"github.com/custodia-labs/weft/internal/core/domain"
)

// GraphStore persists documents, nodes and edges.
// Backed by SQLite; invariants are enforced at write time.
type GraphStore interface {
	// Begin starts a write transaction. One ingest is one transaction.
	Begin(ctx context.Context) (GraphTx, error)

	// Snapshot reads a document with all its nodes and ordered children
	// in one read transaction.
	Snapshot(ctx context.Context, docID string) (*domain.DocumentTree, error)

	// GetDocument retrieves a document by ID, without its raw bytes.
	GetDocument(ctx context.Context, docID string) (*domain.Document, error)

	// FindDocument returns the document with the given source path and
	// content hash.
	FindDocument(ctx context.Context, sourcePath, contentHash string) (*domain.Document, error)

	// ListDocuments returns every document, oldest first, without raw bytes.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DocumentRaw returns a document's raw bytes.
	DocumentRaw(ctx context.Context, docID string) ([]byte, error)

	// GetNode retrieves a node by short id.
	GetNode(ctx context.Context, shortID string) (*domain.Node, error)

	// GetNodeByKey retrieves a node by its internal key.
	GetNodeByKey(ctx context.Context, key int64) (*domain.Node, error)

	// Children returns the children of a node. When ordered is true they
	// follow the next edges, otherwise key order.
	Children(ctx context.Context, key int64, ordered bool) ([]domain.Node, error)

	// Ancestors returns the ancestors of a node, root first.
	Ancestors(ctx context.Context, key int64) ([]domain.Node, error)

	// DeleteDocument removes a document and everything it owns in one
	// transaction.
	DeleteDocument(ctx context.Context, docID string) error

	// Close releases resources.
	Close() error
}

// GraphTx is one write transaction. Any invariant violation leaves the
// transaction unusable; the caller must Rollback.
type GraphTx interface {
	// PutDocument stores raw bytes as a new document.
	// Returns a *domain.DuplicateContentError if the same source path and
	// content hash already exist.
	PutDocument(ctx context.Context, sourcePath string, raw []byte) (*domain.Document, error)

	// PutNode validates the span and inserts the node, assigning its
	// identifiers. Returns a *domain.SpanError on a bad span.
	PutNode(ctx context.Context, spec domain.NodeSpec) (*domain.Node, error)

	// PutEdge inserts an edge after checking the tree and order rules.
	// Returns a *domain.EdgeError on violation.
	PutEdge(ctx context.Context, edge domain.Edge) error

	// Index upserts the full-text entry of a node.
	Index(ctx context.Context, entry domain.IndexEntry) error

	// Deindex removes the full-text entry of a node.
	Deindex(ctx context.Context, key int64) error

	// DeleteDocument removes a document and everything it owns.
	DeleteDocument(ctx context.Context, docID string) error

	// FindDocuments returns every document with the given source path.
	FindDocuments(ctx context.Context, sourcePath string) ([]domain.Document, error)

	// Commit makes the batch visible.
	Commit() error

	// Rollback discards the batch. It is safe after Commit.
	Rollback() error
}
