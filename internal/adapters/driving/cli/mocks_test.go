package cli

import (
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driven"
	"github.com/custodia-labs/weft/internal/core/ports/driving"
)

var testCreated = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	gotRequest driving.IngestRequest
	gotPaths   []string
	gotPolicy  domain.DuplicatePolicy

	results []driving.IngestResult
	err     error
}

func (m *mockIngestService) Ingest(_ context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	m.gotRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return &driving.IngestResult{SourcePath: req.SourcePath, DocID: "doc-stdin", Nodes: 4}, nil
}

func (m *mockIngestService) IngestFile(
	_ context.Context,
	path string,
	policy domain.DuplicatePolicy,
) (*driving.IngestResult, error) {
	m.gotPaths = []string{path}
	m.gotPolicy = policy
	if m.err != nil {
		return nil, m.err
	}
	return &driving.IngestResult{SourcePath: path, DocID: "doc-file", Nodes: 4}, nil
}

func (m *mockIngestService) IngestPaths(
	_ context.Context,
	paths []string,
	policy domain.DuplicatePolicy,
) ([]driving.IngestResult, error) {
	m.gotPaths = paths
	m.gotPolicy = policy
	return m.results, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	deleted []string
}

func (m *mockDocumentService) Get(_ context.Context, docID string) (*domain.Document, error) {
	if docID != "doc-1" {
		return nil, domain.ErrNotFound
	}
	return &domain.Document{ID: "doc-1", SourcePath: "notes/a.md", Size: 37, CreatedAt: testCreated}, nil
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return []domain.Document{
		{ID: "doc-1", SourcePath: "notes/a.md", Size: 37, CreatedAt: testCreated},
		{ID: "doc-2", SourcePath: "notes/b.md", Size: 12, CreatedAt: testCreated},
	}, nil
}

func (m *mockDocumentService) Outline(_ context.Context, docID string) (*domain.OutlineNode, error) {
	if docID != "doc-1" {
		return nil, domain.ErrNotFound
	}
	return &domain.OutlineNode{
		ShortID: "a1",
		Kind:    domain.KindDocument,
		Children: []domain.OutlineNode{{
			ShortID: "a2",
			Kind:    domain.KindHeading,
			Title:   "Title",
			Level:   1,
			Children: []domain.OutlineNode{
				{ShortID: "a3", Kind: domain.KindParagraph},
				{ShortID: "a4", Kind: domain.KindCodeBlock},
			},
		}},
	}, nil
}

func (m *mockDocumentService) Delete(_ context.Context, docID string) error {
	if docID != "doc-1" {
		return domain.ErrNotFound
	}
	m.deleted = append(m.deleted, docID)
	return nil
}

func (m *mockDocumentService) DeleteBySource(_ context.Context, sourcePath string) ([]string, error) {
	if sourcePath != "notes/a.md" {
		return nil, nil
	}
	m.deleted = append(m.deleted, "doc-1")
	return []string{"doc-1"}, nil
}

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	gotQuery string
	gotOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	query string,
	opts domain.SearchOptions,
) ([]domain.SearchHit, error) {
	m.gotQuery = query
	m.gotOpts = opts
	return []domain.SearchHit{
		{ShortID: "a2", DocID: "doc-1", Kind: domain.KindHeading, Title: "Title", Score: 2.5, Snippet: "[Title]"},
		{ShortID: "a3", DocID: "doc-1", Kind: domain.KindParagraph, Score: 1.25, Snippet: "[Body] text."},
	}, nil
}

// mockSearchServiceError always fails.
type mockSearchServiceError struct{}

func (m *mockSearchServiceError) Search(
	_ context.Context,
	_ string,
	_ domain.SearchOptions,
) ([]domain.SearchHit, error) {
	return nil, errors.New("index unavailable")
}

// mockRenderService is a mock implementation of driving.RenderService.
type mockRenderService struct {
	gotSel  domain.Selection
	gotOpts domain.RenderOptions

	truncated bool
}

func (m *mockRenderService) RenderFull(_ context.Context, docID string) ([]byte, error) {
	if docID != "doc-1" {
		return nil, domain.ErrNotFound
	}
	return []byte("# Title\n\nBody text.\n"), nil
}

func (m *mockRenderService) RenderFiltered(
	_ context.Context,
	docID string,
	sel domain.Selection,
	opts domain.RenderOptions,
) (*domain.RenderResult, error) {
	if docID != "doc-1" {
		return nil, domain.ErrNotFound
	}
	m.gotSel = sel
	m.gotOpts = opts
	return &domain.RenderResult{
		Text:         "# Title\n\nBody text.\n\n[[weft:a4 code-block 16]]\n",
		Placeholders: []domain.Placeholder{{ShortID: "a4", Kind: domain.KindCodeBlock, Bytes: 16}},
		Expanded:     []string{"a1", "a2", "a3"},
		Truncated:    m.truncated,
	}, nil
}

func (m *mockRenderService) Expand(_ context.Context, shortID string) ([]byte, error) {
	if shortID != "a4" {
		return nil, domain.ErrNotFound
	}
	return []byte("```\npy code\n```\n"), nil
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	saved       *domain.AppSettings
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	m.saved = settings
	return nil
}

func (m *mockSettingsService) SetRenderPolicy(policy domain.ExpansionPolicy) error {
	if !policy.IsValid() {
		return domain.ErrInvalidInput
	}
	m.settings.Render.Policy = policy
	return nil
}

func (m *mockSettingsService) SetDuplicatePolicy(policy domain.DuplicatePolicy) error {
	if !policy.IsValid() {
		return domain.ErrInvalidInput
	}
	m.settings.Ingest.OnDuplicate = policy
	return nil
}

func (m *mockSettingsService) Validate() error {
	return m.validateErr
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// mockWatchService is a mock implementation of driving.WatchService.
type mockWatchService struct {
	gotRoot string
	events  []driving.WatchEvent
}

func (m *mockWatchService) Sync(_ context.Context, src driven.Source) ([]driving.IngestResult, error) {
	m.gotRoot = src.Root()
	return []driving.IngestResult{{SourcePath: src.Root() + "/a.md", DocID: "doc-1", Nodes: 4}}, nil
}

func (m *mockWatchService) Watch(_ context.Context, _ driven.Source, report func(driving.WatchEvent)) error {
	for _, e := range m.events {
		report(e)
	}
	return nil
}

// testMocks exposes the mocks installed by setupTestServices.
type testMocks struct {
	ingest   *mockIngestService
	document *mockDocumentService
	search   *mockSearchService
	render   *mockRenderService
	settings *mockSettingsService
	watch    *mockWatchService
}

var mocks testMocks

// setupTestServices installs mock services and returns a cleanup function
// that removes them and resets command flags.
func setupTestServices() func() {
	mocks = testMocks{
		ingest:   &mockIngestService{},
		document: &mockDocumentService{},
		search:   &mockSearchService{},
		render:   &mockRenderService{},
		settings: newMockSettingsService(),
		watch:    &mockWatchService{},
	}
	SetServices(&Services{
		Ingest:   mocks.ingest,
		Document: mocks.document,
		Search:   mocks.search,
		Render:   mocks.render,
		Settings: mocks.settings,
		Watch:    mocks.watch,
	})

	return func() {
		SetServices(nil)
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}
}

func resetFlags() {
	listJSON, outlineJSON, deleteBySource = false, false, false
	searchLimit, searchDocID, searchJSON = 0, "", false
	renderQuery, renderIDs, renderPolicy = "", nil, ""
	renderWindow, renderBudget, renderJSON = 0, 0, false
	renderCmd.Flags().Lookup("window").Changed = false
	renderCmd.Flags().Lookup("budget").Changed = false
	ingestOnDuplicate, ingestSourcePath, ingestJSON = "", "stdin", false
	watchOnce = false
}
