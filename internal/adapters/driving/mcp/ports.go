package mcp

import (
	"github.com/custodia-labs/weft/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides keyword search over nodes.
	Search driving.SearchService

	// Render produces full and filtered renders and expands placeholders.
	Render driving.RenderService

	// Document lists and outlines documents.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Render == nil {
		return ErrMissingRenderService
	}
	// Document is optional; outline and the document list need it.
	return nil
}
