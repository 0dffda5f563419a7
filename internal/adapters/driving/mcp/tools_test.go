package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/weft/internal/core/domain"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		mockSearch := &mockSearchService{
			results: []domain.SearchHit{
				{
					ShortID: "b7",
					DocID:   "doc-1",
					Kind:    domain.KindParagraph,
					Score:   1.5,
					Snippet: "[Body] text.",
				},
			},
		}

		server := newTestServer(t, &Ports{Search: mockSearch, Render: &mockRenderService{}})

		input := SearchInput{Query: "body", Limit: 5, DocumentID: "doc-1"}
		_, output, err := server.handleSearch(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		assert.Equal(t, "b7", output.Results[0].ShortID)
		assert.Equal(t, "doc-1", output.Results[0].DocumentID)
		assert.Equal(t, "paragraph", output.Results[0].Kind)
		assert.Equal(t, 1.5, output.Results[0].Score)
		assert.Equal(t, "[Body] text.", output.Results[0].Snippet)

		assert.Equal(t, "body", mockSearch.gotQuery)
		assert.Equal(t, domain.SearchOptions{Limit: 5, DocID: "doc-1"}, mockSearch.gotOpts)
	})

	t.Run("default limit is 10", func(t *testing.T) {
		mockSearch := &mockSearchService{}
		server := newTestServer(t, &Ports{Search: mockSearch, Render: &mockRenderService{}})

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.NotNil(t, output.Results)
		assert.Equal(t, defaultSearchLimit, mockSearch.gotOpts.Limit)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		mockSearch := &mockSearchService{err: errors.New("search failed")}
		server := newTestServer(t, &Ports{Search: mockSearch, Render: &mockRenderService{}})

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestServer_handleOutline(t *testing.T) {
	ctx := context.Background()

	t.Run("flattens the tree in pre-order", func(t *testing.T) {
		mockDocs := &mockDocumentService{
			outline: &domain.OutlineNode{
				ShortID: "a1",
				Kind:    domain.KindDocument,
				Children: []domain.OutlineNode{
					{
						ShortID: "a2",
						Kind:    domain.KindHeading,
						Title:   "Title",
						Level:   1,
						Children: []domain.OutlineNode{
							{ShortID: "a3", Kind: domain.KindParagraph},
							{ShortID: "a4", Kind: domain.KindCodeBlock},
						},
					},
				},
			},
		}
		server := newTestServer(t, &Ports{
			Search:   &mockSearchService{},
			Render:   &mockRenderService{},
			Document: mockDocs,
		})

		_, output, err := server.handleOutline(ctx, nil, OutlineInput{DocumentID: "doc-1"})

		require.NoError(t, err)
		require.Len(t, output.Nodes, 4)
		assert.Equal(t, OutlineEntry{ShortID: "a1", Kind: "document", Depth: 0}, output.Nodes[0])
		assert.Equal(t, OutlineEntry{ShortID: "a2", Kind: "heading", Title: "Title", Level: 1, Depth: 1}, output.Nodes[1])
		assert.Equal(t, 2, output.Nodes[2].Depth)
		assert.Equal(t, "code-block", output.Nodes[3].Kind)
	})

	t.Run("missing document service", func(t *testing.T) {
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Render: &mockRenderService{}})

		_, _, err := server.handleOutline(ctx, nil, OutlineInput{DocumentID: "doc-1"})

		assert.ErrorIs(t, err, ErrMissingDocumentService)
	})

	t.Run("not found", func(t *testing.T) {
		server := newTestServer(t, &Ports{
			Search:   &mockSearchService{},
			Render:   &mockRenderService{},
			Document: &mockDocumentService{err: domain.ErrNotFound},
		})

		_, _, err := server.handleOutline(ctx, nil, OutlineInput{DocumentID: "nope"})

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestServer_handleRender(t *testing.T) {
	ctx := context.Background()

	t.Run("empty selection renders full document", func(t *testing.T) {
		mockRender := &mockRenderService{full: []byte("# Title\n")}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Render: mockRender})

		_, output, err := server.handleRender(ctx, nil, RenderInput{DocumentID: "doc-1"})

		require.NoError(t, err)
		assert.Equal(t, "# Title\n", output.Text)
		assert.Empty(t, output.Placeholders)
		assert.False(t, output.Truncated)
		assert.Equal(t, "doc-1", mockRender.gotDocID)
	})

	t.Run("filtered render passes options through", func(t *testing.T) {
		mockRender := &mockRenderService{
			result: &domain.RenderResult{
				Text:         "# Title\n\nBody text.\n\n[[weft:c4 code-block 16]]\n",
				Placeholders: []domain.Placeholder{{ShortID: "c4", Kind: domain.KindCodeBlock, Bytes: 16}},
				Expanded:     []string{"a1", "b2", "c3"},
				Truncated:    false,
			},
		}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Render: mockRender})

		input := RenderInput{
			DocumentID: "doc-1",
			Query:      "body",
			Policy:     "direct+ancestors+siblings",
			Window:     domain.Int(2),
			Budget:     domain.Int(100),
		}
		_, output, err := server.handleRender(ctx, nil, input)

		require.NoError(t, err)
		assert.Contains(t, output.Text, "[[weft:c4 code-block 16]]")
		assert.Equal(t, []PlaceholderOutput{{ShortID: "c4", Kind: "code-block", Bytes: 16}}, output.Placeholders)
		assert.Equal(t, []string{"a1", "b2", "c3"}, output.Expanded)

		assert.Equal(t, "body", mockRender.gotSel.Query)
		assert.Equal(t, domain.RenderOptions{
			Policy: domain.PolicySiblings,
			Window: domain.Int(2),
			Budget: domain.Int(100),
		}, mockRender.gotOpts)
	})

	t.Run("short ids select nodes", func(t *testing.T) {
		mockRender := &mockRenderService{result: &domain.RenderResult{Text: "x\n", Truncated: true}}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Render: mockRender})

		_, output, err := server.handleRender(ctx, nil, RenderInput{DocumentID: "doc-1", ShortIDs: []string{"b2"}})

		require.NoError(t, err)
		assert.True(t, output.Truncated)
		assert.Equal(t, []string{"b2"}, mockRender.gotSel.ShortIDs)
	})

	t.Run("omitted window and budget stay unset", func(t *testing.T) {
		mockRender := &mockRenderService{result: &domain.RenderResult{Text: "x\n"}}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Render: mockRender})

		_, _, err := server.handleRender(ctx, nil, RenderInput{DocumentID: "doc-1", Query: "body"})

		require.NoError(t, err)
		assert.Nil(t, mockRender.gotOpts.Window)
		assert.Nil(t, mockRender.gotOpts.Budget)
	})

	t.Run("explicit zero window is passed through", func(t *testing.T) {
		mockRender := &mockRenderService{result: &domain.RenderResult{Text: "x\n"}}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Render: mockRender})

		var input RenderInput
		require.NoError(t, json.Unmarshal([]byte(`{"document_id":"doc-1","query":"body","window":0,"budget":0}`), &input))
		_, _, err := server.handleRender(ctx, nil, input)

		require.NoError(t, err)
		require.NotNil(t, mockRender.gotOpts.Window)
		assert.Equal(t, 0, *mockRender.gotOpts.Window)
		require.NotNil(t, mockRender.gotOpts.Budget)
		assert.Equal(t, 0, *mockRender.gotOpts.Budget)
	})

	t.Run("error is returned", func(t *testing.T) {
		mockRender := &mockRenderService{err: domain.ErrInvalidInput}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Render: mockRender})

		_, _, err := server.handleRender(ctx, nil, RenderInput{DocumentID: "doc-1", Query: "x", Policy: "nope"})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestServer_handleExpand(t *testing.T) {
	ctx := context.Background()

	t.Run("returns node bytes", func(t *testing.T) {
		mockRender := &mockRenderService{expanded: []byte("```\npy code\n```\n")}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Render: mockRender})

		_, output, err := server.handleExpand(ctx, nil, ExpandInput{ShortID: "c4"})

		require.NoError(t, err)
		assert.Equal(t, "c4", output.ShortID)
		assert.Equal(t, "```\npy code\n```\n", output.Text)
		assert.Equal(t, 16, output.Bytes)
		assert.Equal(t, "c4", mockRender.gotShortID)
	})

	t.Run("unknown short id", func(t *testing.T) {
		mockRender := &mockRenderService{err: domain.ErrNotFound}
		server := newTestServer(t, &Ports{Search: &mockSearchService{}, Render: mockRender})

		_, _, err := server.handleExpand(ctx, nil, ExpandInput{ShortID: "zz"})

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
