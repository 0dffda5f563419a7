package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/weft/internal/adapters/driven/config/file"
	"github.com/custodia-labs/weft/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driving"
	"github.com/custodia-labs/weft/internal/metrics"
)

const scenario = "# Title\n\nBody text.\n\n```\npy code\n```\n"

// testEnv wires every service over a real store in a temp directory.
type testEnv struct {
	store    *sqlite.Store
	config   *file.ConfigStore
	settings *SettingsService
	locks    *DocLocks
	metrics  *metrics.Metrics
	ingest   *IngestService
	docs     *DocumentService
	search   *SearchService
	render   *RenderService
	watch    *WatchService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	config, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)

	settings := NewSettingsService(config)
	locks := NewDocLocks()
	m := metrics.New()
	graph := store.GraphStore()
	engine := store.SearchEngine()

	ingest := NewIngestService(graph, settings, locks, m)
	docs := NewDocumentService(graph, locks)
	return &testEnv{
		store:    store,
		config:   config,
		settings: settings,
		locks:    locks,
		metrics:  m,
		ingest:   ingest,
		docs:     docs,
		search:   NewSearchService(engine, settings, m),
		render:   NewRenderService(graph, engine, settings, locks, m),
		watch:    NewWatchService(graph, ingest, docs, m),
	}
}

func (e *testEnv) mustIngest(t *testing.T, path, content string) *driving.IngestResult {
	t.Helper()
	res, err := e.ingest.Ingest(context.Background(), driving.IngestRequest{
		SourcePath:  path,
		Content:     []byte(content),
		OnDuplicate: domain.DuplicateFail,
	})
	require.NoError(t, err)
	return res
}

// nodeOf returns the first node of kind in the document's snapshot.
func (e *testEnv) nodeOf(t *testing.T, docID string, kind domain.NodeKind) *domain.Node {
	t.Helper()
	tree, err := e.store.GraphStore().Snapshot(context.Background(), docID)
	require.NoError(t, err)
	var found *domain.Node
	for _, n := range tree.Nodes {
		if n.Kind == kind && (found == nil || n.Start < found.Start) {
			found = n
		}
	}
	require.NotNil(t, found, "no %s node", kind)
	return found
}
