package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Key identifies one cached index by file identity: absolute path, size, and
// modification time. The key does not hash content: a file rewritten with
// identical size and timestamp is an accepted false negative, never a false
// positive (any size or mtime change invalidates).
type Key struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mod_time"` // unix nanoseconds
}

// KeyFor stats path and returns its current cache key.
func KeyFor(path string) (Key, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Key{}, fmt.Errorf("resolve path: %w", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return Key{}, fmt.Errorf("stat source: %w", err)
	}
	return Key{
		Path:    abs,
		Size:    fi.Size(),
		ModTime: fi.ModTime().UnixNano(),
	}, nil
}

// fileName returns the cache file name for a source path: a 16-char hash of
// the absolute path, so multiple sources cache independently in one directory.
func fileName(absPath string) string {
	h := sha256.Sum256([]byte(absPath))
	return hex.EncodeToString(h[:])[:16] + ".json"
}
