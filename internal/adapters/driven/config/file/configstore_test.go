package file

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*ConfigStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	return store, dir
}

func TestNewConfigStore_Success(t *testing.T) {
	store, dir := newTestStore(t)

	assert.Equal(t, filepath.Join(dir, ConfigFile), store.Path())
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_DefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".weft", ConfigFile), store.Path())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	_, err := NewConfigStore("/invalid\x00path")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating config directory")
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("invalid [[[ toml"), 0600))

	_, err := NewConfigStore(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestConfigStore_Getters(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.Set("s", "hello"))
	require.NoError(t, store.Set("i", 42))
	require.NoError(t, store.Set("f", 2.5))
	require.NoError(t, store.Set("list", []string{".md", ".txt"}))

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string", store.GetString("s"), "hello"},
		{"string wrong type", store.GetString("i"), ""},
		{"string missing", store.GetString("missing"), ""},
		{"int", store.GetInt("i"), 42},
		{"int wrong type", store.GetInt("s"), 0},
		{"float", store.GetFloat("f"), 2.5},
		{"float from int", store.GetFloat("i"), 42.0},
		{"float missing", store.GetFloat("missing"), 0.0},
		{"slice", store.GetStringSlice("list"), []string{".md", ".txt"}},
		{"slice missing", store.GetStringSlice("missing"), []string(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConfigStore_Persistence_NestedTables(t *testing.T) {
	store, dir := newTestStore(t)

	require.NoError(t, store.Set("render.policy", "direct"))
	require.NoError(t, store.Set("render.window", 2))
	require.NoError(t, store.Set("watch.rate", 1.5))
	require.NoError(t, store.Set("watch.extensions", []string{".md"}))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[render]")
	assert.Contains(t, string(data), "[watch]")
	assert.NotContains(t, string(data), "'render.policy'")

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "direct", reloaded.GetString("render.policy"))
	assert.Equal(t, 2, reloaded.GetInt("render.window"))
	assert.Equal(t, 1.5, reloaded.GetFloat("watch.rate"))
	assert.Equal(t, []string{".md"}, reloaded.GetStringSlice("watch.extensions"))
	assert.Equal(t, []string{"render.policy", "render.window", "watch.extensions", "watch.rate"}, reloaded.Keys())
}

func TestConfigStore_LoadHandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := strings.Join([]string{
		"[render]",
		"policy = 'direct+ancestors+siblings'",
		"budget = 4096",
		"",
		"[search]",
		"limit = 5",
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "direct+ancestors+siblings", store.GetString("render.policy"))
	assert.Equal(t, 4096, store.GetInt("render.budget"))
	assert.Equal(t, 5, store.GetInt("search.limit"))
}

func TestConfigStore_Load_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), nil, 0600))

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.Empty(t, store.Keys())
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, store.Set("key", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestConfigStore_KeyConflict(t *testing.T) {
	store, _ := newTestStore(t)
	require.NoError(t, store.Set("render", "flat"))

	err := store.Set("render.policy", "direct")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicts")
}

func TestConfigStore_Save_WriteError(t *testing.T) {
	store, dir := newTestStore(t)
	require.NoError(t, os.Chmod(dir, 0500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0700) })
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	err := store.Set("key", "value")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing config")
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, _ := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Set("search.limit", i)
			_ = store.GetInt("search.limit")
		}()
	}
	wg.Wait()

	_, ok := store.Get("search.limit")
	assert.True(t, ok)
}

func TestFlattenAndNest(t *testing.T) {
	nested := map[string]any{
		"render": map[string]any{"policy": "direct", "window": int64(1)},
		"top":    true,
	}

	flat := flattenMap(nested, "")
	assert.Equal(t, map[string]any{"render.policy": "direct", "render.window": int64(1), "top": true}, flat)

	back, err := nestMap(flat)
	require.NoError(t, err)
	assert.Equal(t, nested, back)
}
