package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driven"
	"github.com/custodia-labs/weft/internal/core/ports/driving"
	"github.com/custodia-labs/weft/internal/identity"
	"github.com/custodia-labs/weft/internal/logger"
	"github.com/custodia-labs/weft/internal/metrics"
)

// Ensure WatchService implements the interface.
var _ driving.WatchService = (*WatchService)(nil)

// WatchService re-ingests source files as they change.
type WatchService struct {
	graph   driven.GraphStore
	ingest  driving.IngestService
	docs    driving.DocumentService
	metrics *metrics.Metrics
}

// NewWatchService creates a new watch service.
// The metrics parameter is optional (can be nil).
func NewWatchService(
	graph driven.GraphStore,
	ingest driving.IngestService,
	docs driving.DocumentService,
	m *metrics.Metrics,
) *WatchService {
	return &WatchService{graph: graph, ingest: ingest, docs: docs, metrics: m}
}

// Sync ingests every file the source currently holds.
func (s *WatchService) Sync(ctx context.Context, src driven.Source) ([]driving.IngestResult, error) {
	logger.Section("Sync")
	logger.Debug("Root: %s", src.Root())

	docs, walkErrs := src.FullSync(ctx)

	var results []driving.IngestResult
	var errs []error
	for docs != nil || walkErrs != nil {
		select {
		case doc, ok := <-docs:
			if !ok {
				docs = nil
				continue
			}
			res, err := s.apply(ctx, doc.SourcePath, doc.Content)
			if err != nil {
				errs = append(errs, err)
				results = append(results, driving.IngestResult{SourcePath: doc.SourcePath, Err: err})
				continue
			}
			results = append(results, *res)
		case err, ok := <-walkErrs:
			if !ok {
				walkErrs = nil
				continue
			}
			errs = append(errs, err)
		}
	}

	logger.Info("Synced %d files from %s", len(results), src.Root())
	return results, errors.Join(errs...)
}

// Watch applies source changes until ctx is done or the source stops.
func (s *WatchService) Watch(ctx context.Context, src driven.Source, report func(driving.WatchEvent)) error {
	changes, err := src.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watching %s: %w", src.Root(), err)
	}
	logger.Info("Watching %s", src.Root())

	for change := range changes {
		event := s.handle(ctx, change)
		s.metrics.ObserveWatchEvent(string(change.Type))
		if event.Err != nil {
			logger.Warn("Applying %s of %s: %v", change.Type, change.Path, event.Err)
		}
		if report != nil {
			report(event)
		}
	}
	return nil
}

func (s *WatchService) handle(ctx context.Context, change domain.SourceChange) driving.WatchEvent {
	event := driving.WatchEvent{Change: change}
	switch change.Type {
	case domain.ChangeDeleted:
		event.Deleted, event.Err = s.docs.DeleteBySource(ctx, change.Path)
	case domain.ChangeCreated, domain.ChangeUpdated:
		event.Result, event.Err = s.apply(ctx, change.Path, change.Content)
	default:
		event.Err = fmt.Errorf("%w: change type %q", domain.ErrInvalidInput, change.Type)
	}
	return event
}

// apply skips bytes that are already stored for path and replaces older
// versions otherwise.
func (s *WatchService) apply(ctx context.Context, path string, content []byte) (*driving.IngestResult, error) {
	existing, err := s.graph.FindDocument(ctx, path, identity.ContentHash(content))
	if err == nil {
		return &driving.IngestResult{SourcePath: path, DocID: existing.ID, Skipped: true}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return s.ingest.Ingest(ctx, driving.IngestRequest{
		SourcePath:  path,
		Content:     content,
		OnDuplicate: domain.DuplicateReplace,
	})
}
