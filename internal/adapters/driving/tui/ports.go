// Package tui provides an interactive terminal browser for weft: search
// nodes, open filtered renders and expand placeholders in place.
package tui

import (
	"github.com/custodia-labs/weft/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI calls.
type Ports struct {
	// Search ranks nodes for a query.
	Search driving.SearchService

	// Render produces filtered renders and expands placeholders.
	Render driving.RenderService
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(search driving.SearchService, render driving.RenderService) *Ports {
	return &Ports{
		Search: search,
		Render: render,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Render == nil {
		return ErrMissingRenderService
	}
	return nil
}
