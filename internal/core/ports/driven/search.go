package driven

import (
	"context"

	"github.com/custodia-labs/weft/internal/core/domain"
)

// SearchEngine provides full-text search over node index entries.
// Backed by SQLite FTS5 with BM25 ranking.
type SearchEngine interface {
	// Search parses and runs a query and returns ranked hits.
	// Returns a *domain.QueryError for malformed queries.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error)

	// Reindex rebuilds the entries of one document from its nodes and
	// returns how many were written.
	Reindex(ctx context.Context, docID string) (int, error)
}
