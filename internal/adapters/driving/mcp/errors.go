// Package mcp provides an MCP (Model Context Protocol) server adapter for weft.
// It lets AI assistants search documents and read filtered renders with
// expandable placeholders.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrMissingRenderService is returned when the render service is not provided.
var ErrMissingRenderService = errors.New("mcp: render service is required")

// ErrMissingDocumentService is returned by tools that need the document
// service when it is not provided.
var ErrMissingDocumentService = errors.New("mcp: document service not configured")
