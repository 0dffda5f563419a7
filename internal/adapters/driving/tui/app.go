package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/weft/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/weft/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/weft/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/weft/internal/adapters/driving/tui/views/render"
	"github.com/custodia-labs/weft/internal/adapters/driving/tui/views/search"
	"github.com/custodia-labs/weft/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	searchView *search.View
	renderView *render.View

	// currentView tracks which view is active; previousView is restored
	// when the help view closes.
	currentView  messages.ViewType
	previousView messages.ViewType

	err    error
	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, fmt.Errorf("creating app: %w", ErrMissingSearchService)
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		searchView:  search.NewView(s, km, ports.Search),
		renderView:  render.NewView(s, km, ports.Render),
		currentView: messages.ViewSearch,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.searchView.WithContext(ctx)
	a.renderView.WithContext(ctx)
	return a
}

// WithPolicy sets the initial expansion policy of filtered renders.
func (a *App) WithPolicy(policy domain.ExpansionPolicy) *App {
	a.renderView.WithPolicy(policy)
	return a
}

// WithSearchLimit caps the hits per search.
func (a *App) WithSearchLimit(limit int) *App {
	a.searchView.WithLimit(limit)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("weft"),
		a.searchView.Init(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case messages.Quit:
		return a, tea.Quit

	case messages.HitSelected:
		a.currentView = messages.ViewRender
		return a, a.renderView.Open(msg.Hit.DocID, selectionFor(msg))

	case messages.ViewChanged:
		a.currentView = msg.View
		return a, nil

	case messages.SearchCompleted:
		a.searchView, cmd = a.searchView.Update(msg)
		a.err = a.searchView.Err()
		return a, cmd

	case messages.RenderLoaded, messages.NodeExpanded:
		a.renderView, cmd = a.renderView.Update(msg)
		a.err = a.renderView.Err()
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		if a.currentView == messages.ViewRender {
			a.renderView, cmd = a.renderView.Update(msg)
		} else {
			a.searchView, cmd = a.searchView.Update(msg)
		}
		return a, cmd
	}

	// Cursor blink and other component messages belong to the query input.
	a.searchView, cmd = a.searchView.Update(msg)
	return a, cmd
}

func (a *App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	var cmd tea.Cmd
	switch a.currentView {
	case messages.ViewHelp:
		if msg.Type == tea.KeyEsc || keymap.Matches(msg.String(), a.keymap.Help) {
			a.currentView = a.previousView
		}
		return a, nil

	case messages.ViewRender:
		switch {
		case keymap.Matches(msg.String(), a.keymap.Quit):
			return a, tea.Quit
		case keymap.Matches(msg.String(), a.keymap.Help):
			a.showHelp()
			return a, nil
		}
		a.renderView, cmd = a.renderView.Update(msg)
		return a, cmd

	default:
		if !a.searchView.InputFocused() {
			switch {
			case keymap.Matches(msg.String(), a.keymap.Quit):
				return a, tea.Quit
			case keymap.Matches(msg.String(), a.keymap.Help):
				a.showHelp()
				return a, nil
			}
		}
		a.searchView, cmd = a.searchView.Update(msg)
		return a, cmd
	}
}

func (a *App) showHelp() {
	a.previousView = a.currentView
	a.currentView = messages.ViewHelp
}

// selectionFor matches by the hit's query, or by the hit itself when no
// query is known.
func selectionFor(msg messages.HitSelected) domain.Selection {
	if strings.TrimSpace(msg.Query) != "" {
		return domain.Selection{Query: msg.Query}
	}
	if msg.Hit.ShortID != "" {
		return domain.Selection{ShortIDs: []string{msg.Hit.ShortID}}
	}
	return domain.Selection{}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewRender:
		return a.renderView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.searchView.View()
	}
}

func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Help"))
	b.WriteString("\n\n")
	for _, group := range a.keymap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			fmt.Fprintf(&b, "  %-12s %s\n", h.Key, h.Desc)
		}
		b.WriteString("\n")
	}
	b.WriteString(a.styles.Help.Render("[esc] back"))
	return b.String()
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// SearchView returns the search view.
func (a *App) SearchView() *search.View {
	return a.searchView
}

// RenderView returns the render view.
func (a *App) RenderView() *render.View {
	return a.renderView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on every view.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.searchView.SetDimensions(width, height)
	a.renderView.SetDimensions(width, height)
}
