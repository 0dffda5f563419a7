package driven

import (
	"context"

	"github.com/custodia-labs/weft/internal/core/domain"
)

// Source walks and watches a directory tree for ingestable files.
type Source interface {
	// Root returns the watched directory.
	Root() string

	// Validate checks that the root exists and is a readable directory.
	Validate(ctx context.Context) error

	// FullSync emits every ingestable file below the root.
	// Both channels are closed when the walk ends.
	FullSync(ctx context.Context) (<-chan domain.RawDocument, <-chan error)

	// Watch emits changes until ctx is done or Close is called.
	Watch(ctx context.Context) (<-chan domain.SourceChange, error)

	// Close releases resources. It is idempotent.
	Close() error
}
