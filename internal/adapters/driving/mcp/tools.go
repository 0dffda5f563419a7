package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/weft/internal/core/domain"
)

// defaultSearchLimit is used when the search tool gets no limit.
const defaultSearchLimit = 10

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"keyword query; supports phrases in quotes, prefix*, OR, -exclusion and parentheses"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"restrict results to one document"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search hit.
type SearchResultOutput struct {
	ShortID    string  `json:"short_id"`
	DocumentID string  `json:"document_id"`
	Kind       string  `json:"kind"`
	Title      string  `json:"title,omitempty"`
	Score      float64 `json:"score"`
	Snippet    string  `json:"snippet,omitempty"`
}

// OutlineInput is the input schema for the outline tool.
type OutlineInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document to outline"`
}

// OutlineOutput lists the nodes of a document in pre-order.
type OutlineOutput struct {
	Nodes []OutlineEntry `json:"nodes"`
}

// OutlineEntry is one node of an outline. Depth is 0 for the document root.
type OutlineEntry struct {
	ShortID string `json:"short_id"`
	Kind    string `json:"kind"`
	Title   string `json:"title,omitempty"`
	Level   int    `json:"level,omitempty"`
	Depth   int    `json:"depth"`
}

// RenderInput is the input schema for the render tool.
type RenderInput struct {
	DocumentID string   `json:"document_id" jsonschema:"the document to render"`
	Query      string   `json:"query,omitempty" jsonschema:"select nodes matching this keyword query"`
	ShortIDs   []string `json:"short_ids,omitempty" jsonschema:"select nodes by short id"`
	Policy     string   `json:"policy,omitempty" jsonschema:"direct, direct+ancestors or direct+ancestors+siblings"`
	Window     *int     `json:"window,omitempty" jsonschema:"sibling radius for direct+ancestors+siblings, defaults to the configured value"`
	Budget     *int     `json:"budget,omitempty" jsonschema:"maximum output bytes, 0 for unlimited, defaults to the configured value"`
}

// RenderOutput is the output schema for the render tool.
type RenderOutput struct {
	Text         string              `json:"text"`
	Placeholders []PlaceholderOutput `json:"placeholders,omitempty"`
	Expanded     []string            `json:"expanded,omitempty"`
	Truncated    bool                `json:"truncated"`
}

// PlaceholderOutput describes one collapsed node.
type PlaceholderOutput struct {
	ShortID string `json:"short_id"`
	Kind    string `json:"kind"`
	Bytes   int64  `json:"bytes"`
}

// ExpandInput is the input schema for the expand tool.
type ExpandInput struct {
	ShortID string `json:"short_id" jsonschema:"the short id from a placeholder"`
}

// ExpandOutput is the output schema for the expand tool.
type ExpandOutput struct {
	ShortID string `json:"short_id"`
	Text    string `json:"text"`
	Bytes   int    `json:"bytes"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search headings, paragraphs and code blocks across all documents",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "outline",
		Description: "List the nodes of a document with their short ids",
	}, s.handleOutline)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: "render",
		Description: "Render a document. With a query or short ids, unselected content collapses " +
			"into [[weft:<short_id> <kind> <bytes>]] placeholders; without, the original bytes are returned",
	}, s.handleRender)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "expand",
		Description: "Return the exact bytes of the node a placeholder names",
	}, s.handleExpand)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	opts := domain.SearchOptions{Limit: limit, DocID: input.DocumentID}
	results, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}

	for i := range results {
		output.Results[i] = SearchResultOutput{
			ShortID:    results[i].ShortID,
			DocumentID: results[i].DocID,
			Kind:       results[i].Kind.String(),
			Title:      results[i].Title,
			Score:      results[i].Score,
			Snippet:    results[i].Snippet,
		}
	}

	return nil, output, nil
}

// handleOutline handles the outline tool invocation.
func (s *Server) handleOutline(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input OutlineInput,
) (*mcp.CallToolResult, OutlineOutput, error) {
	if s.ports.Document == nil {
		return nil, OutlineOutput{}, ErrMissingDocumentService
	}

	root, err := s.ports.Document.Outline(ctx, input.DocumentID)
	if err != nil {
		return nil, OutlineOutput{}, err
	}

	var output OutlineOutput
	var walk func(n *domain.OutlineNode, depth int)
	walk = func(n *domain.OutlineNode, depth int) {
		output.Nodes = append(output.Nodes, OutlineEntry{
			ShortID: n.ShortID,
			Kind:    n.Kind.String(),
			Title:   n.Title,
			Level:   n.Level,
			Depth:   depth,
		})
		for i := range n.Children {
			walk(&n.Children[i], depth+1)
		}
	}
	walk(root, 0)

	return nil, output, nil
}

// handleRender handles the render tool invocation.
func (s *Server) handleRender(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RenderInput,
) (*mcp.CallToolResult, RenderOutput, error) {
	sel := domain.Selection{Query: input.Query, ShortIDs: input.ShortIDs}

	if sel.IsEmpty() {
		raw, err := s.ports.Render.RenderFull(ctx, input.DocumentID)
		if err != nil {
			return nil, RenderOutput{}, err
		}
		return nil, RenderOutput{Text: string(raw)}, nil
	}

	res, err := s.ports.Render.RenderFiltered(ctx, input.DocumentID, sel, domain.RenderOptions{
		Policy: domain.ExpansionPolicy(input.Policy),
		Window: input.Window,
		Budget: input.Budget,
	})
	if err != nil {
		return nil, RenderOutput{}, err
	}

	output := RenderOutput{
		Text:      res.Text,
		Expanded:  res.Expanded,
		Truncated: res.Truncated,
	}
	for _, p := range res.Placeholders {
		output.Placeholders = append(output.Placeholders, PlaceholderOutput{
			ShortID: p.ShortID,
			Kind:    p.Kind.String(),
			Bytes:   p.Bytes,
		})
	}

	return nil, output, nil
}

// handleExpand handles the expand tool invocation.
func (s *Server) handleExpand(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExpandInput,
) (*mcp.CallToolResult, ExpandOutput, error) {
	raw, err := s.ports.Render.Expand(ctx, input.ShortID)
	if err != nil {
		return nil, ExpandOutput{}, err
	}
	return nil, ExpandOutput{ShortID: input.ShortID, Text: string(raw), Bytes: len(raw)}, nil
}
