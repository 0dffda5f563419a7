package driving

import (
	"context"

	"github.com/custodia-labs/weft/internal/core/domain"
)

// IngestService turns raw bytes into stored document graphs.
type IngestService interface {
	// Ingest parses and stores one document in a single transaction.
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)

	// IngestFile reads and ingests one file.
	IngestFile(ctx context.Context, path string, policy domain.DuplicatePolicy) (*IngestResult, error)

	// IngestPaths ingests files and directories concurrently. One result
	// is returned per file in input order; failures are joined in the
	// error and do not stop the other files.
	IngestPaths(ctx context.Context, paths []string, policy domain.DuplicatePolicy) ([]IngestResult, error)
}

// IngestRequest is the input to Ingest.
type IngestRequest struct {
	// SourcePath identifies where the bytes came from.
	SourcePath string

	// Content is stored verbatim.
	Content []byte

	// OnDuplicate overrides the configured duplicate policy when set.
	OnDuplicate domain.DuplicatePolicy
}

// IngestResult summarises one ingest.
type IngestResult struct {
	// SourcePath is the ingested source.
	SourcePath string `json:"source_path"`

	// DocID is the new or existing document.
	DocID string `json:"doc_id"`

	// Nodes is the number of nodes written, including the root.
	Nodes int `json:"nodes"`

	// Skipped is true when the duplicate policy kept an existing document.
	Skipped bool `json:"skipped,omitempty"`

	// Replaced lists documents deleted by the replace policy.
	Replaced []string `json:"replaced,omitempty"`

	// Err is set in batch results for a failed file.
	Err error `json:"-"`
}
