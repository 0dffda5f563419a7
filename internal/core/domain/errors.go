package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Graph invariant errors. Each aborts the enclosing ingest batch.

	// ErrInvalidSpan indicates a span out of bounds or not contained by
	// its parent. It is a programming error and is not retried.
	ErrInvalidSpan = errors.New("invalid span")

	// ErrCycle indicates a contains edge would create a cycle or give a
	// node a second parent.
	ErrCycle = errors.New("containment cycle")

	// ErrOrderingConflict indicates a next edge would branch or loop the
	// sibling order.
	ErrOrderingConflict = errors.New("ordering conflict")

	// ErrCapacity indicates the short id space is exhausted.
	// It requires operator intervention.
	ErrCapacity = errors.New("short id capacity exhausted")

	// Recoverable errors.

	// ErrDuplicateContent indicates the same source path and content were
	// already ingested. The caller chooses to skip or replace.
	ErrDuplicateContent = errors.New("duplicate content")

	// ErrQueryGrammar indicates a malformed search query.
	ErrQueryGrammar = errors.New("query grammar error")
)

// SpanError reports which span violated which bound.
type SpanError struct {
	DocID  string
	Kind   NodeKind
	Start  int64
	End    int64
	Bound  [2]int64
	Reason string
}

func (e *SpanError) Error() string {
	return fmt.Sprintf("%s: %s [%d,%d) of document %s: %s (bound [%d,%d))",
		ErrInvalidSpan, e.Kind, e.Start, e.End, e.DocID, e.Reason, e.Bound[0], e.Bound[1])
}

// Unwrap returns ErrInvalidSpan.
func (e *SpanError) Unwrap() error {
	return ErrInvalidSpan
}

// EdgeError reports a rejected edge. Err is ErrCycle or ErrOrderingConflict.
type EdgeError struct {
	Src    int64
	Dst    int64
	Type   EdgeType
	Reason string
	Err    error
}

func (e *EdgeError) Error() string {
	return fmt.Sprintf("%s: %s edge %d -> %d: %s", e.Err, e.Type, e.Src, e.Dst, e.Reason)
}

// Unwrap returns the sentinel.
func (e *EdgeError) Unwrap() error {
	return e.Err
}

// DuplicateContentError names the document that already holds the bytes.
type DuplicateContentError struct {
	SourcePath string
	DocID      string
}

func (e *DuplicateContentError) Error() string {
	return fmt.Sprintf("%s: %s already ingested as %s", ErrDuplicateContent, e.SourcePath, e.DocID)
}

// Unwrap returns ErrDuplicateContent.
func (e *DuplicateContentError) Unwrap() error {
	return ErrDuplicateContent
}

// QueryError carries the offending query and the byte position of the
// problem.
type QueryError struct {
	Query string
	Pos   int
	Msg   string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s at position %d in %q", ErrQueryGrammar, e.Msg, e.Pos, e.Query)
}

// Unwrap returns ErrQueryGrammar.
func (e *QueryError) Unwrap() error {
	return ErrQueryGrammar
}

// IngestError names the document whose ingest failed.
type IngestError struct {
	SourcePath string
	Err        error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingesting %s: %v", e.SourcePath, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IngestError) Unwrap() error {
	return e.Err
}
