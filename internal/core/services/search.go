package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driven"
	"github.com/custodia-labs/weft/internal/core/ports/driving"
	"github.com/custodia-labs/weft/internal/logger"
	"github.com/custodia-labs/weft/internal/metrics"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService runs keyword queries over the node index.
type SearchService struct {
	engine   driven.SearchEngine
	settings driving.SettingsService
	metrics  *metrics.Metrics
}

// NewSearchService creates a new search service.
// The settings and metrics parameters are optional (can be nil).
func NewSearchService(engine driven.SearchEngine, settings driving.SettingsService, m *metrics.Metrics) *SearchService {
	return &SearchService{engine: engine, settings: settings, metrics: m}
}

// Search runs a keyword query. A blank query returns no hits; a malformed
// query returns a *domain.QueryError.
func (s *SearchService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchHit, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchHit{}, nil
	}

	if opts.Limit <= 0 {
		opts.Limit = currentSettings(s.settings).Search.Limit
	}
	logger.Debug("Limit: %d, document: %q", opts.Limit, opts.DocID)

	start := time.Now()
	ctx, span := startOperationSpan(ctx, "Search", attribute.Int("weft.limit", opts.Limit))

	hits, err := s.engine.Search(ctx, query, opts)

	recordOperationMetrics(ctx, "Search", start, err)
	s.metrics.ObserveSearch(err, len(hits))
	span.SetAttributes(attribute.Int("weft.result_count", len(hits)))
	endOperationSpan(span, err)
	if err != nil {
		logger.Warn("Search failed: %v", err)
		return nil, err
	}

	logger.Info("Final results: %d", len(hits))
	return hits, nil
}
