package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// List Tests

func TestListCmd_Use(t *testing.T) {
	assert.Equal(t, "list", listCmd.Use)
}

func TestListCmd_RejectsArgs(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "list", "extra")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestListCmd_Table(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "list")

	require.NoError(t, err)
	assert.Contains(t, out, "Documents:")
	assert.Contains(t, out, "doc-1")
	assert.Contains(t, out, "notes/a.md")
	assert.Contains(t, out, "37 bytes")
	assert.Contains(t, out, "2026-03-04 05:06:07")
	assert.Contains(t, out, "Total: 2 documents")
}

func TestListCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "list", "--json")

	require.NoError(t, err)
	var infos []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, "doc-1", infos[0]["id"])
	assert.Equal(t, "notes/a.md", infos[0]["source_path"])
	assert.Equal(t, "2026-03-04T05:06:07Z", infos[0]["created_at"])
}

func TestListCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	documentService = nil

	_, err := execute(t, "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "document service not configured")
}

// Outline Tests

func TestOutlineCmd_RequiresExactlyOneArg(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "outline")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestOutlineCmd_Tree(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "outline", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "a1 document\n")
	assert.Contains(t, out, "  a2 heading Title\n")
	assert.Contains(t, out, "    a3 paragraph\n")
	assert.Contains(t, out, "    a4 code-block\n")
}

func TestOutlineCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "outline", "--json", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, `"short_id": "a2"`)
	assert.Contains(t, out, `"children"`)
}

func TestOutlineCmd_NotFound(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "outline", "nope")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to outline document")
}

// Delete Tests

func TestDeleteCmd_ByID(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "delete", "doc-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Document doc-1 deleted.")
	assert.Equal(t, []string{"doc-1"}, mocks.document.deleted)
}

func TestDeleteCmd_BySource(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "delete", "--source", "notes/a.md", "notes/zzz.md")

	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 documents from notes/a.md.")
	assert.Contains(t, out, "Deleted 0 documents from notes/zzz.md.")
}

func TestDeleteCmd_Unknown(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "delete", "nope")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to delete document")
}
