package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/weft/internal/adapters/driving/tui"
)

// newProgram builds the bubbletea program for the TUI. Tests replace it.
var newProgram = func(model tea.Model, opts ...tea.ProgramOption) interface{ Run() (tea.Model, error) } {
	return tea.NewProgram(model, opts...)
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal browser for indexed documents.

Search nodes, open a filtered render of a hit's document, then walk its
placeholders and expand them in place.

Controls:
  Enter        Search / open hit
  ↑/k, ↓/j     Navigate or scroll
  tab          Next placeholder
  e            Expand placeholder
  f            Toggle full / filtered render
  p            Cycle expansion policy
  Esc          Back
  ?            Toggle help
  q            Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\nStack trace:\n%s\n", r, debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	app, err := tui.NewApp(tui.NewPorts(searchService, renderService))
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	app.WithContext(cmd.Context())

	if settingsService != nil {
		if settings, serr := settingsService.Get(); serr == nil && settings != nil {
			app.WithPolicy(settings.Render.Policy).WithSearchLimit(settings.Search.Limit)
		}
	}

	if _, err := newProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
