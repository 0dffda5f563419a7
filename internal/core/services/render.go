package services

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driven"
	"github.com/custodia-labs/weft/internal/core/ports/driving"
	"github.com/custodia-labs/weft/internal/identity"
	"github.com/custodia-labs/weft/internal/logger"
	"github.com/custodia-labs/weft/internal/metrics"
	"github.com/custodia-labs/weft/internal/render"
)

// Ensure RenderService implements the interface.
var _ driving.RenderService = (*RenderService)(nil)

// RenderService reconstructs documents and filtered views from stored
// graphs. Every render reads one snapshot under the document's read lock.
type RenderService struct {
	graph    driven.GraphStore
	engine   driven.SearchEngine
	settings driving.SettingsService
	locks    *DocLocks
	metrics  *metrics.Metrics
}

// NewRenderService creates a new render service.
// The settings, locks and metrics parameters are optional (can be nil).
func NewRenderService(
	graph driven.GraphStore,
	engine driven.SearchEngine,
	settings driving.SettingsService,
	locks *DocLocks,
	m *metrics.Metrics,
) *RenderService {
	if locks == nil {
		locks = NewDocLocks()
	}
	return &RenderService{
		graph:    graph,
		engine:   engine,
		settings: settings,
		locks:    locks,
		metrics:  m,
	}
}

// RenderFull returns the original bytes of a document, rebuilt from its
// node tree.
func (s *RenderService) RenderFull(ctx context.Context, docID string) ([]byte, error) {
	start := time.Now()
	ctx, span := startOperationSpan(ctx, "RenderFull", attribute.String("weft.doc_id", docID))

	out, err := s.renderFull(ctx, docID)

	recordOperationMetrics(ctx, "RenderFull", start, err)
	endOperationSpan(span, err)
	if err == nil {
		s.metrics.ObserveRender("full", 0, false)
	}
	return out, err
}

func (s *RenderService) renderFull(ctx context.Context, docID string) ([]byte, error) {
	unlock := s.locks.RLock(docID)
	defer unlock()

	tree, err := s.graph.Snapshot(ctx, docID)
	if err != nil {
		return nil, err
	}
	return render.Full(ctx, tree)
}

// RenderFiltered renders the selected nodes verbatim and collapses the
// rest into placeholders.
func (s *RenderService) RenderFiltered(
	ctx context.Context, docID string, sel domain.Selection, opts domain.RenderOptions,
) (*domain.RenderResult, error) {
	start := time.Now()
	ctx, span := startOperationSpan(ctx, "RenderFiltered", attribute.String("weft.doc_id", docID))

	logger.Section("Filtered Render")
	opts = s.withDefaults(opts)
	res, err := s.renderFiltered(ctx, docID, sel, opts)

	recordOperationMetrics(ctx, "RenderFiltered", start, err)
	if err != nil {
		endOperationSpan(span, err)
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("weft.placeholders", len(res.Placeholders)),
		attribute.Bool("weft.truncated", res.Truncated),
	)
	endOperationSpan(span, nil)
	s.metrics.ObserveRender("filtered", len(res.Placeholders), res.Truncated)
	if res.Truncated {
		logger.Info("Render of %s truncated at %d bytes", docID, opts.BudgetOr(0))
	}
	return res, nil
}

func (s *RenderService) renderFiltered(
	ctx context.Context, docID string, sel domain.Selection, opts domain.RenderOptions,
) (*domain.RenderResult, error) {
	if sel.IsEmpty() {
		return nil, fmt.Errorf("%w: selection needs a query or short ids", domain.ErrInvalidInput)
	}

	unlock := s.locks.RLock(docID)
	defer unlock()

	tree, err := s.graph.Snapshot(ctx, docID)
	if err != nil {
		return nil, err
	}

	matches, err := s.selectNodes(ctx, tree, sel)
	if err != nil {
		return nil, err
	}
	logger.Debug("Matches: %d, policy: %s, window: %d, budget: %d",
		len(matches), opts.Policy, opts.WindowOr(0), opts.BudgetOr(0))

	return render.Filtered(ctx, tree, matches, opts)
}

// selectNodes resolves a selection to node keys of tree.
func (s *RenderService) selectNodes(ctx context.Context, tree *domain.DocumentTree, sel domain.Selection) ([]int64, error) {
	if len(sel.ShortIDs) > 0 {
		keys := make([]int64, 0, len(sel.ShortIDs))
		for _, raw := range sel.ShortIDs {
			id, ok := identity.Normalize(raw)
			if !ok {
				return nil, fmt.Errorf("%w: malformed short id %q", domain.ErrInvalidInput, raw)
			}
			n := tree.NodeByShortID(id)
			if n == nil {
				return nil, fmt.Errorf("node %s in document %s: %w", id, tree.Document.ID, domain.ErrNotFound)
			}
			keys = append(keys, n.Key)
		}
		return keys, nil
	}

	hits, err := s.engine.Search(ctx, sel.Query, domain.SearchOptions{
		DocID: tree.Document.ID,
		Limit: len(tree.Nodes),
	})
	if err != nil {
		return nil, err
	}
	keys := make([]int64, 0, len(hits))
	for _, h := range hits {
		if tree.Node(h.NodeKey) != nil {
			keys = append(keys, h.NodeKey)
		}
	}
	return keys, nil
}

// withDefaults fills unset options from settings.
func (s *RenderService) withDefaults(opts domain.RenderOptions) domain.RenderOptions {
	cfg := currentSettings(s.settings).Render
	if opts.Policy == "" {
		opts.Policy = cfg.Policy
	}
	if opts.Window == nil {
		opts.Window = domain.Int(cfg.Window)
	}
	if opts.Budget == nil {
		opts.Budget = domain.Int(cfg.Budget)
	}
	return opts
}

// Expand returns the exact bytes of one node.
func (s *RenderService) Expand(ctx context.Context, shortID string) ([]byte, error) {
	start := time.Now()
	ctx, span := startOperationSpan(ctx, "Expand", attribute.String("weft.short_id", shortID))

	out, err := s.expand(ctx, shortID)

	recordOperationMetrics(ctx, "Expand", start, err)
	endOperationSpan(span, err)
	if err == nil {
		s.metrics.ObserveRender("expand", 0, false)
	}
	return out, err
}

func (s *RenderService) expand(ctx context.Context, shortID string) ([]byte, error) {
	id, ok := identity.Normalize(shortID)
	if !ok {
		return nil, fmt.Errorf("%w: malformed short id %q", domain.ErrInvalidInput, shortID)
	}
	node, err := s.graph.GetNode(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", id, err)
	}

	unlock := s.locks.RLock(node.DocID)
	defer unlock()

	// The node may have been deleted before the lock was taken.
	node, err = s.graph.GetNode(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", id, err)
	}
	raw, err := s.graph.DocumentRaw(ctx, node.DocID)
	if err != nil {
		return nil, err
	}
	return render.Expand(node, raw)
}
