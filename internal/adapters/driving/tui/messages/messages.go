// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/weft/internal/core/domain"
)

// SearchCompleted carries search hits back to the model.
type SearchCompleted struct {
	Query   string
	Results []domain.SearchHit
	Err     error
}

// HitSelected is sent when a search hit is opened.
type HitSelected struct {
	Hit   domain.SearchHit
	Query string
}

// RenderLoaded carries a render of one document. Full is set for a full
// render and Result for a filtered one.
type RenderLoaded struct {
	DocID  string
	Full   []byte
	Result *domain.RenderResult
	Err    error
}

// NodeExpanded carries the bytes of one expanded placeholder.
type NodeExpanded struct {
	ShortID string
	Bytes   []byte
	Err     error
}

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewSearch is the search input and results view.
	ViewSearch ViewType = iota
	// ViewRender shows a filtered or full render of one document.
	ViewRender
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewSearch:
		return "search"
	case ViewRender:
		return "render"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
