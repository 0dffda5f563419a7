// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/weft/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/weft/internal/core/domain"
)

// ResultList displays search hits in a navigable list.
type ResultList struct {
	results  []domain.SearchHit
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates a new result list component.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ResultList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the result list.
func (r *ResultList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *ResultList) Update(msg tea.Msg) (*ResultList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the result list.
func (r *ResultList) View() string {
	if len(r.results) == 0 {
		return r.styles.Muted.Render("No results")
	}

	lines := make([]string, 0, len(r.results)+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Results (%d)", len(r.results))), "")

	// Each hit takes two lines: header and snippet.
	visibleCount := (r.height - 2) / 2
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if r.selected >= visibleCount {
		start = r.selected - visibleCount + 1
	}
	end := start + visibleCount
	if end > len(r.results) {
		end = len(r.results)
	}

	for i := start; i < end; i++ {
		lines = append(lines, r.renderHit(i, &r.results[i]))
	}

	return strings.Join(lines, "\n")
}

// renderHit formats one hit as "shortid kind title  score" over its snippet.
func (r *ResultList) renderHit(index int, hit *domain.SearchHit) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	label := hit.Title
	if label == "" {
		label = hit.DocID
	}
	maxLabel := r.width - 40
	if maxLabel < 10 {
		maxLabel = 10
	}
	label = truncate(label, maxLabel)

	score := fmt.Sprintf("%.2f", hit.Score)

	var header string
	if index == r.selected {
		header = r.styles.Selected.Render(fmt.Sprintf("%s%s %-10s %-*s  %s",
			indicator, hit.ShortID, hit.Kind, maxLabel, label, score))
	} else {
		header = r.styles.Normal.Render(indicator) +
			r.styles.ShortID.Render(hit.ShortID) + " " +
			r.styles.Kind.Render(fmt.Sprintf("%-10s", hit.Kind)) + " " +
			r.styles.Normal.Render(fmt.Sprintf("%-*s  ", maxLabel, label)) +
			r.styles.Muted.Render(score)
	}

	maxSnippet := r.width - 6
	if maxSnippet < 20 {
		maxSnippet = 20
	}
	snippet := strings.ReplaceAll(hit.Snippet, "\n", " ")
	return header + "\n" + r.styles.Muted.Render("    "+truncate(snippet, maxSnippet))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// SetResults updates the result list.
func (r *ResultList) SetResults(results []domain.SearchHit) {
	r.results = results
	r.selected = 0
}

// Results returns the current results.
func (r *ResultList) Results() []domain.SearchHit {
	return r.results
}

// Selected returns the index of the selected result.
func (r *ResultList) Selected() int {
	return r.selected
}

// SetSelected sets the selected index.
func (r *ResultList) SetSelected(index int) {
	if index >= 0 && index < len(r.results) {
		r.selected = index
	}
}

// SelectedResult returns the currently selected hit, or nil if none.
func (r *ResultList) SelectedResult() *domain.SearchHit {
	if len(r.results) == 0 || r.selected < 0 || r.selected >= len(r.results) {
		return nil
	}
	return &r.results[r.selected]
}

// MoveUp moves selection up.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.results)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Width returns the current width.
func (r *ResultList) Width() int {
	return r.width
}

// Height returns the current height.
func (r *ResultList) Height() int {
	return r.height
}

// Count returns the number of results.
func (r *ResultList) Count() int {
	return len(r.results)
}

// IsEmpty returns whether the list is empty.
func (r *ResultList) IsEmpty() bool {
	return len(r.results) == 0
}
