package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/todolens/internal/cache"
	"github.com/ppiankov/todolens/internal/codebase"
	"github.com/ppiankov/todolens/internal/model"
	"github.com/ppiankov/todolens/internal/symbols"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func sampleProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\n// TODO: handle retries\nfunc main() {\n\tpanic(\"not implemented\")\n}\n")
	writeFile(t, root, "docs/README.md", "# Plan\n\n- [ ] Write the guide\n")
	writeFile(t, root, "node_modules/lib/index.js", "// TODO: vendored, must be skipped\n")
	writeFile(t, root, "assets/logo.bin", "PNG\x00\x00binary")
	return root
}

func newCapabilities(t *testing.T) (*Packer, *Searcher) {
	t.Helper()
	store := cache.NewMemoryCache(time.Minute, time.Minute)
	return NewPacker(store, 1<<20), NewSearcher(store)
}

func defaultOptions(compress bool) codebase.PackOptions {
	cfg := model.DefaultConfig()
	return codebase.PackOptions{
		Compress:       compress,
		Include:        cfg.Codebase.Include,
		Exclude:        cfg.Codebase.Exclude,
		TopFilesLength: 2,
	}
}

func TestPacker_RejectsBadRoot(t *testing.T) {
	packer, _ := newCapabilities(t)
	ctx := context.Background()

	_, err := packer.Pack(ctx, filepath.Join(t.TempDir(), "missing"), defaultOptions(false))
	assert.Error(t, err)

	root := t.TempDir()
	writeFile(t, root, "file.txt", "hello")
	_, err = packer.Pack(ctx, filepath.Join(root, "file.txt"), defaultOptions(false))
	assert.Error(t, err)
}

func TestPackAndGrep(t *testing.T) {
	for _, compress := range []bool{false, true} {
		packer, searcher := newCapabilities(t)
		ctx := context.Background()

		res, err := packer.Pack(ctx, sampleProject(t), defaultOptions(compress))
		require.NoError(t, err)
		require.NoError(t, res.Validate())
		assert.Equal(t, 2, res.TotalFiles, "node_modules and binaries are excluded")
		require.Len(t, res.TopFiles, 2)
		assert.Equal(t, "main.go", res.TopFiles[0].Path)

		matches, err := searcher.Grep(ctx, res.ID, `\bTODO\b`, 1)
		require.NoError(t, err)
		require.NoError(t, codebase.ValidateMatches(matches))
		require.Len(t, matches, 1)
		assert.Equal(t, "main.go", matches[0].File)
		assert.Equal(t, 3, matches[0].Line)
		assert.Equal(t, "// TODO: handle retries", matches[0].LineText)
		assert.Equal(t, []string{"", "// TODO: handle retries", "func main() {"}, matches[0].Context)

		checkbox, err := searcher.Grep(ctx, res.ID, `- \[ \]`, 0)
		require.NoError(t, err)
		require.Len(t, checkbox, 1)
		assert.Equal(t, "docs/README.md", checkbox[0].File)
		assert.Equal(t, 3, checkbox[0].Line)
	}
}

func TestGrep_PathHitIsLineZero(t *testing.T) {
	packer, searcher := newCapabilities(t)
	ctx := context.Background()

	res, err := packer.Pack(ctx, sampleProject(t), defaultOptions(false))
	require.NoError(t, err)

	matches, err := searcher.Grep(ctx, res.ID, `docs/README\.md`, 2)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Line)
	assert.NoError(t, matches[0].Validate())
}

func TestGrep_Errors(t *testing.T) {
	packer, searcher := newCapabilities(t)
	ctx := context.Background()

	_, err := searcher.Grep(ctx, "nope", "TODO", 0)
	assert.ErrorIs(t, err, codebase.ErrSnapshotNotFound)

	res, err := packer.Pack(ctx, sampleProject(t), defaultOptions(false))
	require.NoError(t, err)

	_, err = searcher.Grep(ctx, res.ID, "(unclosed", 0)
	assert.Error(t, err)

	packer.Release(res.ID)
	_, err = searcher.Grep(ctx, res.ID, "TODO", 0)
	assert.ErrorIs(t, err, codebase.ErrSnapshotNotFound)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	files := []snapshotFile{
		{Path: "a.txt", Lines: []string{"one", "", "three"}},
		{Path: "b.txt", Lines: []string{"================", "File: fake", "x"}},
		{Path: "empty.txt"},
	}

	parsed := parseSnapshot(renderSnapshot(files))
	require.Len(t, parsed, 3)
	assert.Equal(t, files[0], parsed[0])
	assert.Equal(t, "b.txt", parsed[1].Path)
	assert.Equal(t, "empty.txt", parsed[2].Path)
	assert.Empty(t, parsed[2].Lines)
}

func TestIndex_SearchAndSymbols(t *testing.T) {
	root := sampleProject(t)
	cfg := model.DefaultConfig()
	index := NewIndex(symbols.NewExtractor(), cfg.Codebase.Include, cfg.Codebase.Exclude, 1<<20)
	ctx := context.Background()

	id, err := index.Register(ctx, root)
	require.NoError(t, err)

	hits, err := index.Search(ctx, id, `not implemented`)
	require.NoError(t, err)
	require.NoError(t, codebase.ValidateSymbolMatches(hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "main.go", hits[0].File)
	assert.Equal(t, 5, hits[0].Line)
	assert.Equal(t, 9, hits[0].Column)
	assert.Len(t, hits[0].Context, 3)

	syms, err := index.Symbols(ctx, id, "main.go")
	require.NoError(t, err)
	enclosing, ok := syms.Enclosing(5)
	require.True(t, ok)
	assert.Equal(t, "main", enclosing.Name)

	_, err = index.Symbols(ctx, id, "../outside.go")
	assert.Error(t, err)
}

func TestIndex_Errors(t *testing.T) {
	index := NewIndex(symbols.NewExtractor(), nil, nil, 0)
	ctx := context.Background()

	_, err := index.Register(ctx, filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	_, err = index.Search(ctx, "unknown", "x")
	assert.ErrorIs(t, err, codebase.ErrProjectNotFound)
}
