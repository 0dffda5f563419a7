package driving

import (
	"context"

	"github.com/custodia-labs/weft/internal/core/domain"
)

// DocumentService manages ingested documents.
type DocumentService interface {
	// Get retrieves a document by ID, without raw bytes.
	Get(ctx context.Context, docID string) (*domain.Document, error)

	// List returns every document.
	List(ctx context.Context) ([]domain.Document, error)

	// Outline returns the structure of a document.
	Outline(ctx context.Context, docID string) (*domain.OutlineNode, error)

	// Delete removes a document with its nodes, edges and index entries.
	Delete(ctx context.Context, docID string) error

	// DeleteBySource removes every document ingested from sourcePath and
	// returns their IDs.
	DeleteBySource(ctx context.Context, sourcePath string) ([]string, error)
}
