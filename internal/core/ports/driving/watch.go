package driving

import (
	"context"

	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driven"
)

// WatchService keeps the store in step with a source directory.
type WatchService interface {
	// Sync ingests every file the source holds. Files whose current bytes
	// are already stored are skipped; changed files replace their older
	// versions.
	Sync(ctx context.Context, src driven.Source) ([]IngestResult, error)

	// Watch applies source changes until ctx is done or the source stops.
	// report, when non-nil, is called once per handled change.
	Watch(ctx context.Context, src driven.Source, report func(WatchEvent)) error
}

// WatchEvent is the outcome of one handled change.
type WatchEvent struct {
	Change domain.SourceChange

	// Result is set for created and updated files.
	Result *IngestResult

	// Deleted lists the documents removed for a deleted file.
	Deleted []string

	Err error
}
