package domain

import "time"

// Document represents one ingested source unit.
// Its raw bytes are stored exactly once and never modified.
type Document struct {
	// ID is the stable identifier derived from source path and content hash.
	ID string

	// SourcePath is where the bytes came from (file path, URI or label).
	SourcePath string

	// ContentHash is the hex hash of Raw, used for change detection.
	ContentHash string

	// Size is len(Raw). It is populated even when Raw is not loaded.
	Size int64

	// Raw is the entire original byte sequence.
	// Listing operations leave it nil.
	Raw []byte

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time
}

// DuplicatePolicy selects what ingest does when the same source path and
// content hash were already ingested.
type DuplicatePolicy string

// Available duplicate policies.
const (
	// DuplicateFail returns ErrDuplicateContent.
	DuplicateFail DuplicatePolicy = "fail"

	// DuplicateSkip keeps the existing document and returns its ID.
	DuplicateSkip DuplicatePolicy = "skip"

	// DuplicateReplace deletes every document with the same source path
	// and ingests the bytes again.
	DuplicateReplace DuplicatePolicy = "replace"
)

// IsValid returns true if the policy is recognised.
func (p DuplicatePolicy) IsValid() bool {
	switch p {
	case DuplicateFail, DuplicateSkip, DuplicateReplace:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p DuplicatePolicy) String() string {
	return string(p)
}

// RawDocument is the input to ingest: bytes plus where they came from.
type RawDocument struct {
	// SourcePath identifies the origin of the bytes.
	SourcePath string

	// Content is the raw bytes. They are stored verbatim.
	Content []byte
}

// ChangeType describes what happened to a watched source file.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// SourceChange is one filesystem event on an ingestable file.
type SourceChange struct {
	Type ChangeType
	Path string

	// Content holds the file bytes for created and updated files.
	Content []byte
}
