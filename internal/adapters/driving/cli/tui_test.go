package cli

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/weft/internal/adapters/driving/tui"
	"github.com/custodia-labs/weft/internal/core/domain"
)

type fakeProgram struct {
	model tea.Model
	err   error
}

func (f *fakeProgram) Run() (tea.Model, error) {
	return f.model, f.err
}

func stubProgram(t *testing.T, runErr error) *fakeProgram {
	t.Helper()
	fake := &fakeProgram{err: runErr}
	orig := newProgram
	newProgram = func(model tea.Model, _ ...tea.ProgramOption) interface{ Run() (tea.Model, error) } {
		fake.model = model
		return fake
	}
	t.Cleanup(func() { newProgram = orig })
	return fake
}

func TestTUICmd_Use(t *testing.T) {
	assert.Equal(t, "tui", tuiCmd.Use)
}

func TestTUICmd_RunsApp(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	mocks.settings.settings.Render.Policy = domain.PolicySiblings
	fake := stubProgram(t, nil)

	_, err := execute(t, "tui")

	require.NoError(t, err)
	app, ok := fake.model.(*tui.App)
	require.True(t, ok)
	assert.Equal(t, domain.PolicySiblings, app.RenderView().Policy())
}

func TestTUICmd_ProgramError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	stubProgram(t, errors.New("no tty"))

	_, err := execute(t, "tui")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "TUI error: no tty")
}

func TestTUICmd_MissingServices(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	renderService = nil
	stubProgram(t, nil)

	_, err := execute(t, "tui")

	require.Error(t, err)
	assert.ErrorIs(t, err, tui.ErrMissingRenderService)
}
