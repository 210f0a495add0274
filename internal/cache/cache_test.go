package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for the cache manager:
// - First load parses fresh; a second load in the same process is a memory hit
// - A new manager over the same directory restores from disk without parsing
// - Any size or mtime change triggers a transparent rebuild
// - Corrupt and schema-mismatched entries rebuild silently, never error
// - Invalidate forces the next load to reparse
// - Clean empties the directory and Entries reports what is cached

const testDeck = `*Node
1, 0.0, 0.0, 0.0
2, 1.0, 0.0, 0.0
*Element, Type=T3D2, Elset=bar
10, 1, 2
`

func writeDeck(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.inp")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestManager(t *testing.T, dir string) *Manager {
	t.Helper()
	mgr, err := NewManager(dir, nil)
	require.NoError(t, err)
	return mgr
}

func TestLoadOrBuild_FreshThenWarm(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	path := writeDeck(t, testDeck)
	mgr := newTestManager(t, cacheDir)

	ix, fresh, err := mgr.LoadOrBuild(context.Background(), path, nil)
	require.NoError(t, err)
	assert.True(t, fresh, "first load parses the deck")
	require.Len(t, ix.Nodes, 2)
	require.Len(t, ix.Elements, 1)

	ix2, fresh, err := mgr.LoadOrBuild(context.Background(), path, nil)
	require.NoError(t, err)
	assert.False(t, fresh, "second load in-process is a memory hit")
	assert.Same(t, ix, ix2)
}

func TestLoadOrBuild_DiskRestoreAcrossManagers(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	path := writeDeck(t, testDeck)

	_, fresh, err := newTestManager(t, cacheDir).LoadOrBuild(context.Background(), path, nil)
	require.NoError(t, err)
	require.True(t, fresh)

	// A fresh manager has no memory layer state; only disk can satisfy this.
	ix, fresh, err := newTestManager(t, cacheDir).LoadOrBuild(context.Background(), path, nil)
	require.NoError(t, err)
	assert.False(t, fresh, "restored from disk")
	require.Len(t, ix.Nodes, 2)
	assert.Contains(t, ix.Elsets, "bar")
}

func TestLoadOrBuild_RebuildAfterSizeChange(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	path := writeDeck(t, testDeck)
	mgr := newTestManager(t, cacheDir)

	_, _, err := mgr.LoadOrBuild(context.Background(), path, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(testDeck+"*Node\n3, 2.0, 0.0, 0.0\n"), 0644))

	ix, fresh, err := mgr.LoadOrBuild(context.Background(), path, nil)
	require.NoError(t, err)
	assert.True(t, fresh, "size change invalidates both layers")
	assert.Len(t, ix.Nodes, 3)
}

func TestLoadOrBuild_RebuildAfterMtimeChange(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	path := writeDeck(t, testDeck)
	mgr := newTestManager(t, cacheDir)

	_, _, err := mgr.LoadOrBuild(context.Background(), path, nil)
	require.NoError(t, err)

	// Same bytes, new timestamp.
	later := time.Now().Add(2 * time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	_, fresh, err := mgr.LoadOrBuild(context.Background(), path, nil)
	require.NoError(t, err)
	assert.True(t, fresh, "mtime alone invalidates")
}

func TestLoadOrBuild_CorruptEntryRebuilds(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	path := writeDeck(t, testDeck)

	_, _, err := newTestManager(t, cacheDir).LoadOrBuild(context.Background(), path, nil)
	require.NoError(t, err)

	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	entry := filepath.Join(cacheDir, fileName(abs))
	require.NoError(t, os.WriteFile(entry, []byte("{not json"), 0644))

	ix, fresh, err := newTestManager(t, cacheDir).LoadOrBuild(context.Background(), path, nil)
	require.NoError(t, err, "corruption is internal, never surfaced")
	assert.True(t, fresh)
	assert.Len(t, ix.Nodes, 2)
}

func TestLoadOrBuild_SchemaMismatchRebuilds(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	path := writeDeck(t, testDeck)

	_, _, err := newTestManager(t, cacheDir).LoadOrBuild(context.Background(), path, nil)
	require.NoError(t, err)

	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	entry := filepath.Join(cacheDir, fileName(abs))
	data, err := os.ReadFile(entry)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))
	env.Schema = SchemaVersion + 1
	data, err = json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(entry, data, 0644))

	_, fresh, err := newTestManager(t, cacheDir).LoadOrBuild(context.Background(), path, nil)
	require.NoError(t, err)
	assert.True(t, fresh, "future schema versions are rebuilt, not guessed at")
}

func TestInvalidate(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	path := writeDeck(t, testDeck)
	mgr := newTestManager(t, cacheDir)

	_, _, err := mgr.LoadOrBuild(context.Background(), path, nil)
	require.NoError(t, err)

	require.NoError(t, mgr.Invalidate(path))

	_, fresh, err := mgr.LoadOrBuild(context.Background(), path, nil)
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestCleanAndEntries(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	path := writeDeck(t, testDeck)
	mgr := newTestManager(t, cacheDir)

	_, _, err := mgr.LoadOrBuild(context.Background(), path, nil)
	require.NoError(t, err)

	entries, err := mgr.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	abs, _ := filepath.Abs(path)
	assert.Equal(t, abs, entries[0].Source)
	assert.Equal(t, SchemaVersion, entries[0].Schema)
	assert.Positive(t, entries[0].Size)

	require.NoError(t, mgr.Clean())
	entries, err = mgr.Entries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadOrBuild_MissingSource(t *testing.T) {
	t.Parallel()

	mgr := newTestManager(t, t.TempDir())
	_, _, err := mgr.LoadOrBuild(context.Background(), filepath.Join(t.TempDir(), "absent.inp"), nil)
	require.Error(t, err)
}
