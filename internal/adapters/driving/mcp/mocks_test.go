package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/weft/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results []domain.SearchHit
	err     error

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
	return m.results, m.err
}

// mockRenderService is a mock implementation of driving.RenderService.
type mockRenderService struct {
	full     []byte
	result   *domain.RenderResult
	expanded []byte
	err      error

	gotDocID   string
	gotSel     domain.Selection
	gotOpts    domain.RenderOptions
	gotShortID string
}

func (m *mockRenderService) RenderFull(_ context.Context, docID string) ([]byte, error) {
	m.gotDocID = docID
	return m.full, m.err
}

func (m *mockRenderService) RenderFiltered(
	_ context.Context,
	docID string,
	sel domain.Selection,
	opts domain.RenderOptions,
) (*domain.RenderResult, error) {
	m.gotDocID = docID
	m.gotSel = sel
	m.gotOpts = opts
	return m.result, m.err
}

func (m *mockRenderService) Expand(_ context.Context, shortID string) ([]byte, error) {
	m.gotShortID = shortID
	return m.expanded, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	outline   *domain.OutlineNode
	deleted   []string
	err       error
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Outline(_ context.Context, _ string) (*domain.OutlineNode, error) {
	return m.outline, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockDocumentService) DeleteBySource(_ context.Context, _ string) ([]string, error) {
	return m.deleted, m.err
}

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	server, err := NewServer(ports)
	require.NoError(t, err)
	return server
}
