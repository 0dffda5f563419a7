package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/weft/internal/core/domain"
	"github.com/custodia-labs/weft/internal/core/ports/driving"
	"github.com/custodia-labs/weft/internal/identity"
)

func TestIngest_Scenario(t *testing.T) {
	env := newTestEnv(t)

	res := env.mustIngest(t, "notes.md", scenario)

	want := identity.DocumentID("notes.md", identity.ContentHash([]byte(scenario)))
	assert.Equal(t, want, res.DocID)
	assert.Equal(t, 4, res.Nodes)
	assert.False(t, res.Skipped)
	assert.Empty(t, res.Replaced)

	code := env.nodeOf(t, res.DocID, domain.KindCodeBlock)
	assert.Equal(t, int64(21), code.Start)
	assert.Equal(t, int64(37), code.End)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.IngestsTotal.WithLabelValues("created")))
	assert.Equal(t, 4.0, testutil.ToFloat64(env.metrics.NodesWritten))
}

func TestIngest_RoundTrip(t *testing.T) {
	inputs := map[string]string{
		"scenario":            scenario,
		"empty":               "",
		"no final newline":    "# A\ntext",
		"crlf":                "# A\r\n\r\ntext\r\n\r\n## B\r\nmore\r\n",
		"trailing whitespace": "text   \n\n\t\n   ",
		"unterminated fence":  "# H\n```\n# inside\n\n",
		"deep nesting":        "# 1\n## 2\n### 3\n#### 4\np\n## 2b\nq\n# 1b\n",
		"unicode":             "# Überschrift\n\nnaïve café ✓\n",
	}

	env := newTestEnv(t)
	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			res := env.mustIngest(t, name+".md", input)

			out, err := env.render.RenderFull(context.Background(), res.DocID)
			require.NoError(t, err)
			assert.Equal(t, input, string(out))
		})
	}
}

func TestIngest_DuplicatePolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("fail", func(t *testing.T) {
		env := newTestEnv(t)
		first := env.mustIngest(t, "a.md", scenario)

		_, err := env.ingest.Ingest(ctx, driving.IngestRequest{
			SourcePath: "a.md", Content: []byte(scenario), OnDuplicate: domain.DuplicateFail,
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrDuplicateContent)
		var ingestErr *domain.IngestError
		require.ErrorAs(t, err, &ingestErr)
		assert.Equal(t, "a.md", ingestErr.SourcePath)
		var dup *domain.DuplicateContentError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, first.DocID, dup.DocID)
	})

	t.Run("skip", func(t *testing.T) {
		env := newTestEnv(t)
		first := env.mustIngest(t, "a.md", scenario)

		res, err := env.ingest.Ingest(ctx, driving.IngestRequest{
			SourcePath: "a.md", Content: []byte(scenario), OnDuplicate: domain.DuplicateSkip,
		})

		require.NoError(t, err)
		assert.True(t, res.Skipped)
		assert.Equal(t, first.DocID, res.DocID)
		assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.IngestsTotal.WithLabelValues("skipped")))
	})

	t.Run("replace same content", func(t *testing.T) {
		env := newTestEnv(t)
		first := env.mustIngest(t, "a.md", scenario)
		before, err := env.search.Search(ctx, "body", domain.SearchOptions{})
		require.NoError(t, err)

		res, err := env.ingest.Ingest(ctx, driving.IngestRequest{
			SourcePath: "a.md", Content: []byte(scenario), OnDuplicate: domain.DuplicateReplace,
		})

		require.NoError(t, err)
		assert.Equal(t, []string{first.DocID}, res.Replaced)
		assert.Equal(t, first.DocID, res.DocID)

		after, err := env.search.Search(ctx, "body", domain.SearchOptions{})
		require.NoError(t, err)
		require.Len(t, after, 1)
		assert.Equal(t, before[0].ShortID, after[0].ShortID)
	})

	t.Run("replace new content", func(t *testing.T) {
		env := newTestEnv(t)
		first := env.mustIngest(t, "a.md", scenario)

		res, err := env.ingest.Ingest(ctx, driving.IngestRequest{
			SourcePath: "a.md", Content: []byte("# Other\n\nfresh words\n"), OnDuplicate: domain.DuplicateReplace,
		})

		require.NoError(t, err)
		assert.NotEqual(t, first.DocID, res.DocID)
		assert.Equal(t, []string{first.DocID}, res.Replaced)

		_, err = env.docs.Get(ctx, first.DocID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		docs, err := env.docs.List(ctx)
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("default from settings", func(t *testing.T) {
		env := newTestEnv(t)
		require.NoError(t, env.settings.SetDuplicatePolicy(domain.DuplicateSkip))
		env.mustIngest(t, "a.md", scenario)

		res, err := env.ingest.Ingest(ctx, driving.IngestRequest{SourcePath: "a.md", Content: []byte(scenario)})

		require.NoError(t, err)
		assert.True(t, res.Skipped)
	})
}

func TestIngest_InvalidInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  driving.IngestRequest
	}{
		{"empty source path", driving.IngestRequest{SourcePath: "  ", Content: []byte("x")}},
		{"unknown policy", driving.IngestRequest{SourcePath: "a.md", Content: []byte("x"), OnDuplicate: "merge"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ingest.Ingest(ctx, tt.req)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	docs, err := env.docs.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.IngestsTotal.WithLabelValues("failed")))
}

func TestIngest_Cancelled(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.ingest.Ingest(ctx, driving.IngestRequest{SourcePath: "a.md", Content: []byte(scenario)})

	require.Error(t, err)
	docs, err := env.docs.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs, "a failed ingest leaves nothing behind")
}

func TestIngestFile(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	require.NoError(t, os.WriteFile(path, []byte(scenario), 0600))

	res, err := env.ingest.IngestFile(context.Background(), path, domain.DuplicateFail)

	require.NoError(t, err)
	assert.Equal(t, path, res.SourcePath)
	doc, err := env.docs.Get(context.Background(), res.DocID)
	require.NoError(t, err)
	assert.Equal(t, path, doc.SourcePath)
	assert.Equal(t, int64(len(scenario)), doc.Size)
}

func TestIngestFile_Missing(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ingest.IngestFile(context.Background(), filepath.Join(t.TempDir(), "nope.md"), "")

	var ingestErr *domain.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestIngestPaths(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dir := t.TempDir()

	files := map[string]string{
		"a.md":           "# A\n\nalpha\n",
		"sub/b.txt":      "bravo\n",
		"sub/skip.go":    "package skip\n",
		".hidden/c.md":   "charlie\n",
		"sub/.secret.md": "delta\n",
		"sub/deep/e.MD":  "echo\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}

	results, err := env.ingest.IngestPaths(ctx, []string{dir}, domain.DuplicateFail)

	require.NoError(t, err)
	paths := make([]string, 0, len(results))
	for _, r := range results {
		require.NoError(t, r.Err)
		paths = append(paths, r.SourcePath)
	}
	assert.Equal(t, []string{
		filepath.Join(dir, "a.md"),
		filepath.Join(dir, "sub/b.txt"),
		filepath.Join(dir, "sub/deep/e.MD"),
	}, paths)

	again, err := env.ingest.IngestPaths(ctx, []string{dir, filepath.Join(dir, "a.md")}, domain.DuplicateFail)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateContent)
	assert.Len(t, again, 3)
	for _, r := range again {
		assert.Error(t, r.Err)
	}
}

func TestIngestPaths_MissingPath(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ingest.IngestPaths(context.Background(), []string{filepath.Join(t.TempDir(), "gone")}, "")

	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestHasExtension(t *testing.T) {
	tests := []struct {
		path string
		exts []string
		want bool
	}{
		{"a.md", []string{".md"}, true},
		{"a.MD", []string{".md"}, true},
		{"a.md", []string{".TXT", ".Md"}, true},
		{"a.go", []string{".md"}, false},
		{"noext", []string{".md"}, false},
		{"anything", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, HasExtension(tt.path, tt.exts))
		})
	}
}

func TestCurrentSettings_NilService(t *testing.T) {
	assert.Equal(t, domain.DefaultAppSettings(), currentSettings(nil))
}
