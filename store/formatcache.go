// Package store implements the two JSON-file persistence layers: the
// per-handler format cache and the path-recall store.
package store

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/skryldev/chainconv/core"
)

// formatCacheEntry is one element of the persisted file, which is a JSON
// array of {"handler": name, "formats": [...]} objects, one per handler.
// Entries are objects, not two-element [name, formats] arrays; the
// formats are core.Format values written under their Go field names.
type formatCacheEntry struct {
	Handler string       `json:"handler"`
	Formats []core.Format `json:"formats"`
}

// FormatCache is a JSON-file-backed core.FormatCache. An empty path
// disables persistence: Load returns only what Store put in during this
// process, and Flush is a no-op.
type FormatCache struct {
	mu   sync.Mutex
	path string
	data map[string][]core.Format
}

// NewFormatCache loads path if present, tolerating an absent or corrupt
// file (spec.md §6: "absent file is tolerated with a warning"; §7:
// "corrupt JSON is treated as an empty store").
func NewFormatCache(path string, logger core.Logger) *FormatCache {
	fc := &FormatCache{path: path, data: make(map[string][]core.Format)}
	if path == "" {
		return fc
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if logger != nil {
			logger.Warn("format cache: file unavailable, starting empty", "path", path, "error", err)
		}
		return fc
	}
	var entries []formatCacheEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		if logger != nil {
			logger.Warn("format cache: corrupt JSON, starting empty", "path", path, "error", err)
		}
		return fc
	}
	for _, e := range entries {
		fc.data[e.Handler] = e.Formats
	}
	return fc
}

// Load implements core.FormatCache.
func (fc *FormatCache) Load(name string) ([]core.Format, bool) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	f, ok := fc.data[name]
	return f, ok
}

// Store implements core.FormatCache.
func (fc *FormatCache) Store(name string, formats []core.Format) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.data[name] = formats
}

// Flush implements core.FormatCache, writing the cache to disk as a JSON
// array of {handler, formats} entries. A no-op when path is empty.
func (fc *FormatCache) Flush() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.path == "" {
		return nil
	}
	entries := make([]formatCacheEntry, 0, len(fc.data))
	for name, formats := range fc.data {
		entries = append(entries, formatCacheEntry{Handler: name, Formats: formats})
	}
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(fc.path, raw, 0o644)
}

var _ core.FormatCache = (*FormatCache)(nil)
