package store

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/skryldev/chainconv/core"
)

// storedNode mirrors spec.md §6's persisted chain-entry shape.
type storedNode struct {
	HandlerName  string `json:"handlerName"`
	FormatMIME   string `json:"formatMime"`
	FormatFormat string `json:"formatFormat"`
}

// Resolver locates a live (handler, format) option by its identifying
// fields, the lookup Recall uses to rebuild a chain against the current
// registry. core.FormatRegistry satisfies this.
type Resolver interface {
	FindOption(handlerName, mime, code string) (core.Option, bool)
}

// PathStore is a JSON-file-backed core.PathStore.
type PathStore struct {
	mu       sync.Mutex
	path     string
	resolver Resolver
	entries  map[string][]storedNode
}

// NewPathStore loads path if present, tolerating an absent or corrupt
// file exactly as FormatCache does.
func NewPathStore(path string, resolver Resolver, logger core.Logger) *PathStore {
	ps := &PathStore{path: path, resolver: resolver, entries: make(map[string][]storedNode)}
	if path == "" {
		return ps
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if logger != nil {
			logger.Warn("path store: file unavailable, starting empty", "path", path, "error", err)
		}
		return ps
	}
	if err := json.Unmarshal(raw, &ps.entries); err != nil {
		if logger != nil {
			logger.Warn("path store: corrupt JSON, starting empty", "path", path, "error", err)
		}
		ps.entries = make(map[string][]storedNode)
	}
	return ps
}

// Key builds the recall key per spec.md §4.4: "{in}→{out}" in simple
// mode, "{in}→{out}:{outputHandlerName}" in advanced mode.
func Key(inputMIME, outputMIME string, simpleMode bool, outputHandlerName string) string {
	k := inputMIME + "→" + outputMIME
	if !simpleMode {
		k += ":" + outputHandlerName
	}
	return k
}

// Recall implements core.PathStore.
func (ps *PathStore) Recall(key string) (core.Chain, bool) {
	ps.mu.Lock()
	nodes, ok := ps.entries[key]
	ps.mu.Unlock()
	if !ok {
		return nil, false
	}

	chain := make(core.Chain, 0, len(nodes))
	for _, n := range nodes {
		opt, found := ps.resolver.FindOption(n.HandlerName, n.FormatMIME, n.FormatFormat)
		if !found {
			return nil, false
		}
		chain = append(chain, opt)
	}
	return chain, true
}

// Store implements core.PathStore.
func (ps *PathStore) Store(key string, chain core.Chain) {
	nodes := make([]storedNode, len(chain))
	for i, n := range chain {
		nodes[i] = storedNode{HandlerName: n.Handler.Name(), FormatMIME: n.Format.MIME, FormatFormat: n.Format.Code}
	}
	ps.mu.Lock()
	ps.entries[key] = nodes
	ps.mu.Unlock()
}

// Evict implements core.PathStore.
func (ps *PathStore) Evict(key string) {
	ps.mu.Lock()
	delete(ps.entries, key)
	ps.mu.Unlock()
}

// Flush implements core.PathStore, writing the store to disk as the JSON
// object described in spec.md §6. A no-op when path is empty.
func (ps *PathStore) Flush() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(ps.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ps.path, raw, 0o644)
}

var _ core.PathStore = (*PathStore)(nil)
