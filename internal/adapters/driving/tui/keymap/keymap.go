// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the TUI.
type KeyMap struct {
	// Quit exits the application.
	Quit key.Binding

	// Help toggles the help view.
	Help key.Binding

	// Back returns to the previous view.
	Back key.Binding

	// Search submits the query.
	Search key.Binding

	// Up navigates up in a list or scrolls.
	Up key.Binding

	// Down navigates down in a list or scrolls.
	Down key.Binding

	// Open renders the document of the selected hit.
	Open key.Binding

	// NewSearch starts a new search from the results list.
	NewSearch key.Binding

	// NextPlaceholder moves the cursor to the next placeholder.
	NextPlaceholder key.Binding

	// PrevPlaceholder moves the cursor to the previous placeholder.
	PrevPlaceholder key.Binding

	// Expand replaces the placeholder under the cursor with its bytes.
	Expand key.Binding

	// ToggleFull switches between the filtered and the full render.
	ToggleFull key.Binding

	// CyclePolicy switches to the next expansion policy.
	CyclePolicy key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Search: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "search"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		NewSearch: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new search"),
		),
		NextPlaceholder: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next placeholder"),
		),
		PrevPlaceholder: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous placeholder"),
		),
		Expand: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "expand"),
		),
		ToggleFull: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "full/filtered"),
		),
		CyclePolicy: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "policy"),
		),
	}
}

// ShortHelp returns a short list of keybindings for the status bar.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Help}
}

// ResultsHelp returns keybindings for the results list.
func (k *KeyMap) ResultsHelp() []key.Binding {
	return []key.Binding{k.NewSearch, k.Up, k.Open, k.Back}
}

// RenderHelp returns keybindings for the render view.
func (k *KeyMap) RenderHelp() []key.Binding {
	return []key.Binding{k.NextPlaceholder, k.Expand, k.ToggleFull, k.CyclePolicy, k.Back}
}

// FullHelp returns the full list of keybindings for the help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open},
		{k.Search, k.NewSearch, k.Back},
		{k.NextPlaceholder, k.PrevPlaceholder, k.Expand},
		{k.ToggleFull, k.CyclePolicy},
		{k.Help, k.Quit},
	}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}
