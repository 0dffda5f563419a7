package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/weft/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for weft resources.
	uriScheme = "weft://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "List of all ingested documents",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}",
		Name:        "document-content",
		Description: "Original bytes of a document",
		MIMEType:    "text/plain",
	}, s.handleDocumentContentResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "nodes/{shortId}",
		Name:        "node-content",
		Description: "Exact bytes of one node, as named by a placeholder",
		MIMEType:    "text/plain",
	}, s.handleNodeResource)
}

// handleDocumentsResource returns a list of all documents.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Document == nil {
		return textResult(req.Params.URI, "application/json", "[]"), nil
	}

	docs, err := s.ports.Document.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	type docInfo struct {
		ID         string    `json:"id"`
		SourcePath string    `json:"source_path"`
		Size       int64     `json:"size"`
		CreatedAt  time.Time `json:"created_at"`
		URI        string    `json:"uri"`
	}

	infos := make([]docInfo, len(docs))
	for i := range docs {
		infos[i] = docInfo{
			ID:         docs[i].ID,
			SourcePath: docs[i].SourcePath,
			Size:       docs[i].Size,
			CreatedAt:  docs[i].CreatedAt,
			URI:        uriScheme + "documents/" + docs[i].ID,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}

	return textResult(req.Params.URI, "application/json", string(data)), nil
}

// handleDocumentContentResource returns the original bytes of a document.
func (s *Server) handleDocumentContentResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	raw, err := s.ports.Render.RenderFull(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("rendering document: %w", err)
	}

	return textResult(req.Params.URI, "text/plain", string(raw)), nil
}

// handleNodeResource returns the exact bytes of one node.
func (s *Server) handleNodeResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	shortID := extractShortID(req.Params.URI)
	if shortID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	raw, err := s.ports.Render.Expand(ctx, shortID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("expanding node: %w", err)
	}

	return textResult(req.Params.URI, "text/plain", string(raw)), nil
}

func textResult(uri, mimeType, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: mimeType,
			Text:     text,
		}},
	}
}

// extractDocumentID extracts the document ID from a URI like weft://documents/{documentId}.
func extractDocumentID(uri string) string {
	return extractTail(uri, uriScheme+"documents/")
}

// extractShortID extracts the short ID from a URI like weft://nodes/{shortId}.
func extractShortID(uri string) string {
	return extractTail(uri, uriScheme+"nodes/")
}

func extractTail(uri, prefix string) string {
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	tail := strings.TrimPrefix(uri, prefix)
	if strings.Contains(tail, "/") {
		return ""
	}
	return tail
}
