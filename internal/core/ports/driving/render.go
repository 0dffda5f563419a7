package driving

import (
	"context"

	"github.com/custodia-labs/weft/internal/core/domain"
)

// RenderService reconstructs documents and filtered views.
type RenderService interface {
	// RenderFull returns the original bytes of a document.
	RenderFull(ctx context.Context, docID string) ([]byte, error)

	// RenderFiltered renders the nodes chosen by sel verbatim and collapses
	// the rest into placeholders. Zero-valued options fall back to the
	// configured defaults.
	RenderFiltered(ctx context.Context, docID string, sel domain.Selection, opts domain.RenderOptions) (*domain.RenderResult, error)

	// Expand returns the exact bytes of one node.
	Expand(ctx context.Context, shortID string) ([]byte, error)
}
