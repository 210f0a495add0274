// Package cache persists serialized structural indexes keyed by source file
// identity, so repeated extractions from an unchanged deck skip the parse.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/maypok86/otter"
	"github.com/mvp-joe/submodel/internal/deck"
	"github.com/mvp-joe/submodel/internal/index"
)

// SchemaVersion tags the serialized form. Any mismatch on load triggers a
// transparent rebuild; a stale cache is never misinterpreted. Bump whenever
// the index types change shape.
const SchemaVersion = 2

// envelope is the on-disk cache format.
type envelope struct {
	Schema int          `json:"schema"`
	Key    Key          `json:"key"`
	Index  *index.Index `json:"index"`
}

// memEntry is the in-process layer: a deserialized index plus the key it was
// valid for.
type memEntry struct {
	key Key
	ix  *index.Index
}

// Manager is an explicit cache handle: pass it between calls so multiple
// sources cache independently and tests can point it at a throwaway
// directory. A process-local otter cache fronts the disk layer so a batch
// run deserializes each source at most once.
type Manager struct {
	dir    string
	mem    otter.Cache[string, memEntry]
	logger *slog.Logger
}

// memCapacity bounds the in-process layer. Indexes are large; a handful of
// distinct sources per process is the realistic ceiling.
const memCapacity = 16

// NewManager creates a cache manager rooted at dir. An empty dir defaults to
// ~/.submodel/cache.
func NewManager(dir string, logger *slog.Logger) (*Manager, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locate home directory: %w", err)
		}
		dir = filepath.Join(home, ".submodel", "cache")
	}
	if logger == nil {
		logger = slog.Default()
	}
	mem, err := otter.MustBuilder[string, memEntry](memCapacity).Build()
	if err != nil {
		return nil, fmt.Errorf("build memory cache: %w", err)
	}
	return &Manager{dir: dir, mem: mem, logger: logger}, nil
}

// Dir returns the cache root directory.
func (m *Manager) Dir() string { return m.dir }

// LoadOrBuild returns the structural index for the deck at path, restoring
// it from cache when the stored key matches the file's current identity and
// rebuilding otherwise. The returned bool is true when a fresh parse ran.
// Cache corruption and version mismatches are fully internal: they log at
// debug level and fall through to a rebuild, never an error.
func (m *Manager) LoadOrBuild(ctx context.Context, path string, progress deck.ScanProgress) (*index.Index, bool, error) {
	key, err := KeyFor(path)
	if err != nil {
		return nil, false, err
	}

	if entry, ok := m.mem.Get(key.Path); ok && entry.key == key {
		return entry.ix, false, nil
	}

	if ix := m.loadDisk(key); ix != nil {
		m.mem.Set(key.Path, memEntry{key: key, ix: ix})
		return ix, false, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	blocks, scanWarns, err := deck.ScanFile(key.Path, progress)
	if err != nil {
		return nil, false, err
	}
	ix := index.Build(blocks)
	ix.ScanWarnings = scanWarns

	if err := m.store(key, ix); err != nil {
		// A cache that cannot be written only costs the next run a reparse.
		m.logger.Warn("cache write failed", "path", key.Path, "err", err)
	}
	m.mem.Set(key.Path, memEntry{key: key, ix: ix})
	return ix, true, nil
}

// loadDisk returns the cached index for key, or nil when the cache is
// absent, stale, unreadable, or from another schema version.
func (m *Manager) loadDisk(key Key) *index.Index {
	data, err := os.ReadFile(filepath.Join(m.dir, fileName(key.Path)))
	if err != nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		m.logger.Debug("cache entry corrupt, rebuilding", "path", key.Path, "err", err)
		return nil
	}
	if env.Schema != SchemaVersion {
		m.logger.Debug("cache schema mismatch, rebuilding", "path", key.Path, "have", env.Schema, "want", SchemaVersion)
		return nil
	}
	if env.Key != key {
		return nil
	}
	return env.Index
}

// store persists the index via temp file + atomic rename, so a crash
// mid-write cannot leave a corrupt entry. Concurrent processes racing here
// waste a rebuild but cannot corrupt each other.
func (m *Manager) store(key Key, ix *index.Index) error {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	data, err := json.Marshal(envelope{Schema: SchemaVersion, Key: key, Index: ix})
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}

	tmp, err := os.CreateTemp(m.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close cache: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(m.dir, fileName(key.Path))); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename cache: %w", err)
	}
	return nil
}

// Invalidate drops any cached index for path, in memory and on disk.
func (m *Manager) Invalidate(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	m.mem.Delete(abs)
	if err := os.Remove(filepath.Join(m.dir, fileName(abs))); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clean removes every cache entry under the manager's directory.
func (m *Manager) Clean() error {
	m.mem.Clear()
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// EntryInfo describes one on-disk cache entry for reporting.
type EntryInfo struct {
	Source string
	Size   int64
	Schema int
}

// Entries lists the on-disk cache contents. Unreadable entries are skipped;
// this is a reporting surface, not a correctness one.
func (m *Manager) Entries() ([]EntryInfo, error) {
	dirEntries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var infos []EntryInfo
	for _, e := range dirEntries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.dir, e.Name()))
		if err != nil {
			continue
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		infos = append(infos, EntryInfo{
			Source: env.Key.Path,
			Size:   int64(len(data)),
			Schema: env.Schema,
		})
	}
	return infos, nil
}
