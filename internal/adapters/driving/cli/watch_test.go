package cli

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driving"
)

func TestWatchCmd_Once(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	dir := t.TempDir()

	out, err := execute(t, "watch", "--once", dir)

	require.NoError(t, err)
	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, mocks.watch.gotRoot)
	assert.Contains(t, out, "Synchronising "+abs)
	assert.Contains(t, out, "Total: 1 ingested, 0 skipped, 0 failed")
	assert.NotContains(t, out, "Watching")
}

func TestWatchCmd_ReportsEvents(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	dir := t.TempDir()
	mocks.watch.events = []driving.WatchEvent{
		{
			Change: domain.SourceChange{Type: domain.ChangeUpdated, Path: "a.md"},
			Result: &driving.IngestResult{SourcePath: "a.md", DocID: "doc-new", Replaced: []string{"doc-1"}},
		},
		{
			Change: domain.SourceChange{Type: domain.ChangeUpdated, Path: "b.md"},
			Result: &driving.IngestResult{SourcePath: "b.md", DocID: "doc-b", Skipped: true},
		},
		{
			Change:  domain.SourceChange{Type: domain.ChangeDeleted, Path: "c.md"},
			Deleted: []string{"doc-c"},
		},
		{
			Change: domain.SourceChange{Type: domain.ChangeCreated, Path: "d.md"},
			Err:    errors.New("permission denied"),
		},
	}

	out, err := execute(t, "watch", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "Watching ")
	assert.Contains(t, out, "updated  a.md -> doc-new")
	assert.Contains(t, out, "unchanged b.md")
	assert.Contains(t, out, "deleted  c.md (1 documents)")
	assert.Contains(t, out, "d.md: permission denied")
}

func TestWatchCmd_MissingDirectory(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "watch", filepath.Join(t.TempDir(), "missing"))

	require.Error(t, err)
	assert.Empty(t, mocks.watch.gotRoot)
}

func TestWatchCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	watchService = nil

	_, err := execute(t, "watch", t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch service not configured")
}
