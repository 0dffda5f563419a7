package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driven"
	"github.com/custodia-labs/weft/internal/core/ports/driving"
	"github.com/custodia-labs/weft/internal/identity"
	"github.com/custodia-labs/weft/internal/logger"
	"github.com/custodia-labs/weft/internal/metrics"
	"github.com/custodia-labs/weft/internal/parser"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService parses documents and writes their graphs.
type IngestService struct {
	graph    driven.GraphStore
	settings driving.SettingsService
	locks    *DocLocks
	parser   *parser.Parser
	metrics  *metrics.Metrics
}

// NewIngestService creates a new ingest service.
// The settings, locks and metrics parameters are optional (can be nil).
func NewIngestService(
	graph driven.GraphStore,
	settings driving.SettingsService,
	locks *DocLocks,
	m *metrics.Metrics,
) *IngestService {
	if locks == nil {
		locks = NewDocLocks()
	}
	return &IngestService{
		graph:    graph,
		settings: settings,
		locks:    locks,
		parser:   parser.New(),
		metrics:  m,
	}
}

// Ingest parses and stores one document in a single transaction.
// Failures are returned as *domain.IngestError.
func (s *IngestService) Ingest(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	start := time.Now()
	ctx, span := startOperationSpan(ctx, "Ingest", attribute.String("weft.source_path", req.SourcePath))

	logger.Section("Ingest")
	logger.Debug("Source: %s (%d bytes)", req.SourcePath, len(req.Content))

	res, err := s.ingest(ctx, req)

	recordOperationMetrics(ctx, "Ingest", start, err)
	if err != nil {
		endOperationSpan(span, err)
		s.metrics.ObserveIngest("failed", time.Since(start), 0)
		logger.Warn("Ingest of %s failed: %v", req.SourcePath, err)
		return nil, &domain.IngestError{SourcePath: req.SourcePath, Err: err}
	}
	span.SetAttributes(attribute.String("weft.doc_id", res.DocID), attribute.Int("weft.nodes", res.Nodes))
	endOperationSpan(span, nil)

	outcome := "created"
	switch {
	case res.Skipped:
		outcome = "skipped"
	case len(res.Replaced) > 0:
		outcome = "replaced"
	}
	s.metrics.ObserveIngest(outcome, time.Since(start), res.Nodes)
	logger.Info("Ingested %s as %s: %d nodes (%s)", req.SourcePath, res.DocID, res.Nodes, outcome)
	return res, nil
}

func (s *IngestService) ingest(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	if strings.TrimSpace(req.SourcePath) == "" {
		return nil, fmt.Errorf("%w: source path is required", domain.ErrInvalidInput)
	}
	policy := req.OnDuplicate
	if policy == "" {
		policy = currentSettings(s.settings).Ingest.OnDuplicate
	}
	if !policy.IsValid() {
		return nil, fmt.Errorf("%w: duplicate policy %q", domain.ErrInvalidInput, policy)
	}

	tx, err := s.graph.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck

	docID := identity.DocumentID(req.SourcePath, identity.ContentHash(req.Content))
	result := &driving.IngestResult{SourcePath: req.SourcePath, DocID: docID}

	var previous []domain.Document
	if policy == domain.DuplicateReplace {
		previous, err = tx.FindDocuments(ctx, req.SourcePath)
		if err != nil {
			return nil, err
		}
	}

	ids := []string{docID}
	for _, d := range previous {
		ids = append(ids, d.ID)
	}
	unlock := s.locks.Lock(ids...)
	defer unlock()

	for _, d := range previous {
		logger.Debug("Replacing %s", d.ID)
		if err := tx.DeleteDocument(ctx, d.ID); err != nil {
			return nil, fmt.Errorf("replacing document %s: %w", d.ID, err)
		}
		result.Replaced = append(result.Replaced, d.ID)
	}

	doc, err := tx.PutDocument(ctx, req.SourcePath, req.Content)
	if err != nil {
		var dup *domain.DuplicateContentError
		if policy == domain.DuplicateSkip && errors.As(err, &dup) {
			logger.Debug("Skipping %s: already ingested as %s", req.SourcePath, dup.DocID)
			result.DocID = dup.DocID
			result.Skipped = true
			return result, nil
		}
		return nil, err
	}
	result.DocID = doc.ID

	nodes, err := s.writeTree(ctx, tx, doc, req.Content)
	if err != nil {
		return nil, err
	}
	result.Nodes = nodes

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// writeTree stores the root, every parsed block, their contains and next
// edges, and their index entries. It returns the number of nodes written.
func (s *IngestService) writeTree(ctx context.Context, tx driven.GraphTx, doc *domain.Document, raw []byte) (int, error) {
	root, err := tx.PutNode(ctx, domain.NodeSpec{
		DocID: doc.ID,
		Kind:  domain.KindDocument,
		Start: 0,
		End:   int64(len(raw)),
	})
	if err != nil {
		return 0, fmt.Errorf("writing document root: %w", err)
	}

	w := &treeWriter{
		tx:   tx,
		doc:  doc,
		raw:  raw,
		keys: map[int]int64{parser.RootSeq: root.Key},
		last: make(map[int64]int64),
	}
	stats, err := s.parser.Parse(ctx, bytes.NewReader(raw), parser.PreOrder(w))
	if err != nil {
		return 0, err
	}
	logger.Debug("Parsed %d lines into %d blocks", stats.Lines, stats.Blocks)
	return w.nodes + 1, nil
}

// treeWriter is the parser sink that persists blocks in pre-order.
type treeWriter struct {
	tx  driven.GraphTx
	doc *domain.Document
	raw []byte

	// keys maps parser sequence numbers to node keys.
	keys map[int]int64

	// last holds the most recent child key per parent key.
	last map[int64]int64

	nodes int
}

// Block implements parser.Sink.
func (w *treeWriter) Block(ctx context.Context, b parser.Block) error {
	parent, ok := w.keys[b.Parent]
	if !ok {
		return fmt.Errorf("%w: block %d arrived before its parent %d", domain.ErrInvalidInput, b.Seq, b.Parent)
	}

	n, err := w.tx.PutNode(ctx, domain.NodeSpec{
		DocID:     w.doc.ID,
		Kind:      b.Kind,
		Start:     b.Start,
		End:       b.End,
		Title:     b.Title,
		Level:     b.Level,
		ParentKey: &parent,
	})
	if err != nil {
		return err
	}
	w.keys[b.Seq] = n.Key
	w.nodes++

	if err := w.tx.PutEdge(ctx, domain.Edge{Src: parent, Dst: n.Key, Type: domain.EdgeContains}); err != nil {
		return err
	}
	if prev, ok := w.last[parent]; ok {
		if err := w.tx.PutEdge(ctx, domain.Edge{Src: prev, Dst: n.Key, Type: domain.EdgeNext}); err != nil {
			return err
		}
	}
	w.last[parent] = n.Key

	if entry, ok := domain.NewIndexEntry(n, w.raw); ok {
		if err := w.tx.Index(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// IngestFile reads and ingests one file. The source path is the file's
// absolute path.
func (s *IngestService) IngestFile(ctx context.Context, path string, policy domain.DuplicatePolicy) (*driving.IngestResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &domain.IngestError{SourcePath: path, Err: fmt.Errorf("resolving path: %w", err)}
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, &domain.IngestError{SourcePath: abs, Err: fmt.Errorf("reading file: %w", err)}
	}
	return s.Ingest(ctx, driving.IngestRequest{SourcePath: abs, Content: content, OnDuplicate: policy})
}

// IngestPaths ingests files and directories concurrently. Directories are
// walked for files with a configured extension; hidden entries are
// skipped. Each failure is reported in its result and joined into the
// returned error.
func (s *IngestService) IngestPaths(ctx context.Context, paths []string, policy domain.DuplicatePolicy) ([]driving.IngestResult, error) {
	cfg := currentSettings(s.settings)

	files, err := expandPaths(paths, cfg.Watch.Extensions)
	if err != nil {
		return nil, err
	}
	logger.Section("Batch Ingest")
	logger.Debug("Files: %d, concurrency: %d", len(files), cfg.Ingest.Concurrency)

	results := make([]driving.IngestResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Ingest.Concurrency))

	for i, file := range files {
		g.Go(func() error {
			res, err := s.IngestFile(gctx, file, policy)
			if err != nil {
				results[i] = driving.IngestResult{SourcePath: file, Err: err}
				return nil
			}
			results[i] = *res
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return results, errors.Join(errs...)
}

// expandPaths resolves files and directories into a sorted, deduplicated
// file list.
func expandPaths(paths []string, extensions []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != p && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && HasExtension(path, extensions) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
	}
	slices.Sort(files)
	return slices.Compact(files), nil
}

// HasExtension reports whether path ends with one of extensions,
// ignoring case. An empty list accepts every path.
func HasExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// currentSettings reads settings, falling back to defaults when no
// settings service is wired or it fails.
func currentSettings(s driving.SettingsService) domain.AppSettings {
	if s == nil {
		return domain.DefaultAppSettings()
	}
	cfg, err := s.Get()
	if err != nil || cfg == nil {
		logger.Warn("Reading settings failed, using defaults: %v", err)
		return domain.DefaultAppSettings()
	}
	return *cfg
}
