package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/skryldev/chainconv/core"
	"github.com/skryldev/chainconv/store"
)

// fakeResolver implements store.Resolver over a fixed handler/format.
type fakeResolver struct {
	handler core.Handler
	format  core.Format
}

func (r *fakeResolver) FindOption(handlerName, mime, code string) (core.Option, bool) {
	if handlerName == r.handler.Name() && mime == r.format.MIME && code == r.format.Code {
		return core.Option{Handler: r.handler, Format: r.format}, true
	}
	return core.Option{}, false
}

type noopHandler struct{ name string }

func (h *noopHandler) Name() string                   { return h.name }
func (h *noopHandler) Ready() bool                     { return true }
func (h *noopHandler) Init(_ context.Context) error    { return nil }
func (h *noopHandler) SupportedFormats() []core.Format { return nil }
func (h *noopHandler) SupportsAnyInput() bool          { return false }
func (h *noopHandler) Convert(_ context.Context, f []core.FileData, from, to core.Format) ([]core.FileData, error) {
	return f, nil
}

func TestPathStore_Key(t *testing.T) {
	simple := store.Key("image/jpeg", "image/png", true, "image")
	if simple != "image/jpeg→image/png" {
		t.Errorf("simple mode key: got %q", simple)
	}
	advanced := store.Key("image/jpeg", "image/png", false, "image")
	if advanced != "image/jpeg→image/png:image" {
		t.Errorf("advanced mode key: got %q", advanced)
	}
}

func TestPathStore_RecallRoundTrip(t *testing.T) {
	h := &noopHandler{name: "image"}
	format := core.Format{Code: "png", MIME: "image/png"}
	resolver := &fakeResolver{handler: h, format: format}

	ps := store.NewPathStore("", resolver, nil)
	chain := core.Chain{{Handler: h, Format: format}}
	ps.Store("key1", chain)

	got, ok := ps.Recall("key1")
	if !ok || len(got) != 1 || got[0].Handler.Name() != "image" {
		t.Fatalf("unexpected Recall result: %+v ok=%v", got, ok)
	}
}

func TestPathStore_RecallMissingKey(t *testing.T) {
	ps := store.NewPathStore("", &fakeResolver{}, nil)
	if _, ok := ps.Recall("nope"); ok {
		t.Error("expected no entry for an unknown key")
	}
}

func TestPathStore_RecallFailsWhenNodeUnresolvable(t *testing.T) {
	h := &noopHandler{name: "image"}
	format := core.Format{Code: "png", MIME: "image/png"}
	resolver := &fakeResolver{handler: h, format: format}

	ps := store.NewPathStore("", resolver, nil)
	// Store a chain referencing a handler the resolver no longer knows.
	other := &noopHandler{name: "gone"}
	ps.Store("key1", core.Chain{{Handler: other, Format: format}})

	if _, ok := ps.Recall("key1"); ok {
		t.Error("expected Recall to fail when a node can't be resolved against the live registry")
	}
}

func TestPathStore_EvictRemovesEntry(t *testing.T) {
	h := &noopHandler{name: "image"}
	format := core.Format{Code: "png", MIME: "image/png"}
	resolver := &fakeResolver{handler: h, format: format}

	ps := store.NewPathStore("", resolver, nil)
	ps.Store("key1", core.Chain{{Handler: h, Format: format}})
	ps.Evict("key1")

	if _, ok := ps.Recall("key1"); ok {
		t.Error("expected evicted key to be gone")
	}
}

func TestPathStore_PersistsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paths.json")
	h := &noopHandler{name: "image"}
	format := core.Format{Code: "png", MIME: "image/png"}
	resolver := &fakeResolver{handler: h, format: format}

	ps := store.NewPathStore(path, resolver, nil)
	ps.Store("key1", core.Chain{{Handler: h, Format: format}})
	if err := ps.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reloaded := store.NewPathStore(path, resolver, nil)
	got, ok := reloaded.Recall("key1")
	if !ok || len(got) != 1 {
		t.Fatalf("expected the reloaded store to recall the persisted chain, got %+v ok=%v", got, ok)
	}
}

func TestPathStore_CorruptFileTreatedAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	ps := store.NewPathStore(path, &fakeResolver{}, nil)
	if _, ok := ps.Recall("anything"); ok {
		t.Error("expected a corrupt path store file to be treated as empty")
	}
}
