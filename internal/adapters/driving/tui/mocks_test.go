package tui

import (
	"context"

	"github.com/custodia-labs/weft/internal/core/domain"
)

type mockSearchService struct {
	hits     []domain.SearchHit
	err      error
	gotQuery string
}

func (m *mockSearchService) Search(_ context.Context, query string, _ domain.SearchOptions) ([]domain.SearchHit, error) {
	m.gotQuery = query
	return m.hits, m.err
}

type mockRenderService struct {
	gotDocID string
	gotSel   domain.Selection
	gotOpts  domain.RenderOptions
}

func (m *mockRenderService) RenderFull(_ context.Context, docID string) ([]byte, error) {
	m.gotDocID = docID
	return []byte("# Title\n\nBody text.\n"), nil
}

func (m *mockRenderService) RenderFiltered(
	_ context.Context, docID string, sel domain.Selection, opts domain.RenderOptions,
) (*domain.RenderResult, error) {
	m.gotDocID = docID
	m.gotSel = sel
	m.gotOpts = opts
	p := domain.Placeholder{ShortID: "c0de", Kind: domain.KindCodeBlock, Bytes: 16}
	return &domain.RenderResult{
		Text:             "# Title\n\nBody text.\n\n" + domain.FormatPlaceholder(p) + "\n",
		Placeholders:     []domain.Placeholder{p},
		PlaceholderLines: []int{4},
	}, nil
}

func (m *mockRenderService) Expand(context.Context, string) ([]byte, error) {
	return []byte("```\ncode\n```\n"), nil
}
