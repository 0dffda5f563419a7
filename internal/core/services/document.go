package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driven"
	"github.com/custodia-labs/weft/internal/core/ports/driving"
	"github.com/custodia-labs/weft/internal/logger"
	"github.com/custodia-labs/weft/internal/render"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages ingested documents.
type DocumentService struct {
	graph driven.GraphStore
	locks *DocLocks
}

// NewDocumentService creates a new document service.
func NewDocumentService(graph driven.GraphStore, locks *DocLocks) *DocumentService {
	if locks == nil {
		locks = NewDocLocks()
	}
	return &DocumentService{graph: graph, locks: locks}
}

// Get retrieves a document by ID, without raw bytes.
func (s *DocumentService) Get(ctx context.Context, docID string) (*domain.Document, error) {
	if strings.TrimSpace(docID) == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	return s.graph.GetDocument(ctx, docID)
}

// List returns every document, oldest first.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.graph.ListDocuments(ctx)
}

// Outline returns the heading and block structure of a document.
func (s *DocumentService) Outline(ctx context.Context, docID string) (*domain.OutlineNode, error) {
	start := time.Now()
	ctx, span := startOperationSpan(ctx, "Outline")

	out, err := s.outline(ctx, docID)

	recordOperationMetrics(ctx, "Outline", start, err)
	endOperationSpan(span, err)
	return out, err
}

func (s *DocumentService) outline(ctx context.Context, docID string) (*domain.OutlineNode, error) {
	unlock := s.locks.RLock(docID)
	defer unlock()

	tree, err := s.graph.Snapshot(ctx, docID)
	if err != nil {
		return nil, err
	}
	return render.Outline(tree)
}

// Delete removes a document with its nodes, edges and index entries.
func (s *DocumentService) Delete(ctx context.Context, docID string) error {
	start := time.Now()
	ctx, span := startOperationSpan(ctx, "Delete")

	err := s.delete(ctx, docID)

	recordOperationMetrics(ctx, "Delete", start, err)
	endOperationSpan(span, err)
	return err
}

func (s *DocumentService) delete(ctx context.Context, docID string) error {
	logger.Section("Delete")
	logger.Debug("Document: %s", docID)

	tx, err := s.graph.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	unlock := s.locks.Lock(docID)
	defer unlock()

	if err := tx.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteBySource removes every document ingested from sourcePath and
// returns their IDs.
func (s *DocumentService) DeleteBySource(ctx context.Context, sourcePath string) ([]string, error) {
	tx, err := s.graph.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	docs, err := tx.FindDocuments(ctx, sourcePath)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	unlock := s.locks.Lock(ids...)
	defer unlock()

	for _, id := range ids {
		if err := tx.DeleteDocument(ctx, id); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	logger.Debug("Deleted %d documents for %s", len(ids), sourcePath)
	return ids, nil
}
