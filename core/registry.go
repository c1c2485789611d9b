package core

import (
	"context"
	"sync"
)

// Option is one entry in the registry's canonical option pool: a
// (handler, format) pair available for graph construction.
type Option = Node

// FormatRegistry builds and caches the pool of (handler, format) options
// and indexes "handlers that can read from MIME m" for fast neighbour
// expansion during search.
type FormatRegistry struct {
	mu             sync.RWMutex
	handlers       []Handler // construction order; defines BFS tie-breaking
	options        []Option
	byFromMime     map[string][]Handler
	anyInputWriter []Option
	logger         Logger
}

// NewFormatRegistry builds a registry from handlers, consulting cache for
// already-known format lists and invoking Init only for handlers it
// misses. Handlers whose Init fails are skipped silently (a warning is
// emitted via logger, which may be nil).
func NewFormatRegistry(ctx context.Context, handlers []Handler, cache FormatCache, logger Logger) *FormatRegistry {
	reg := &FormatRegistry{
		handlers:   handlers,
		byFromMime: make(map[string][]Handler),
		logger:     logger,
	}
	reg.build(ctx, cache)
	return reg
}

func (reg *FormatRegistry) build(ctx context.Context, cache FormatCache) {
	for _, h := range reg.handlers {
		formats, cached := lookupCache(cache, h.Name())
		if !cached {
			if err := h.Init(ctx); err != nil {
				reg.warn("registry: handler init failed, skipping", "handler", h.Name(), "error", err)
				continue
			}
			formats = h.SupportedFormats()
			if cache != nil {
				cache.Store(h.Name(), formats)
			}
		}

		for _, f := range formats {
			if f.MIME == "" {
				continue
			}
			if !f.From && !f.To {
				continue
			}
			reg.options = append(reg.options, Option{Handler: h, Format: f})
			if f.From {
				reg.byFromMime[f.MIME] = append(reg.byFromMime[f.MIME], h)
			}
			if h.SupportsAnyInput() && f.To {
				reg.anyInputWriter = append(reg.anyInputWriter, Option{Handler: h, Format: f})
			}
		}
	}
	if cache != nil {
		if err := cache.Flush(); err != nil {
			reg.warn("registry: format cache flush failed", "error", err)
		}
	}
}

// lookupCache returns cached formats for name, letting the registry skip
// Init for handlers whose format list is already known (spec.md §4.1
// step 1). Handler.Ready() may still be false afterwards; the executor
// runs Init lazily on first Convert per spec.md §4.2 step 2.
func lookupCache(cache FormatCache, name string) ([]Format, bool) {
	if cache == nil {
		return nil, false
	}
	return cache.Load(name)
}

func (reg *FormatRegistry) warn(msg string, fields ...interface{}) {
	if reg.logger != nil {
		reg.logger.Warn(msg, fields...)
	}
}

// Options returns the canonical option pool in registry construction
// order (the order BFS tie-breaking relies on).
func (reg *FormatRegistry) Options() []Option {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]Option, len(reg.options))
	copy(out, reg.options)
	return out
}

// HandlersByFromMime returns, in stable construction order, every handler
// that declares a from-enabled format with the given MIME.
func (reg *FormatRegistry) HandlersByFromMime(mime string) []Handler {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	hs := reg.byFromMime[mime]
	out := make([]Handler, len(hs))
	copy(out, hs)
	return out
}

// AnyInputWriters returns the flattened set of (handler, format) options
// where the handler supports any input and the format is writable — the
// one-shot fallback search.Searcher injects once per search.
func (reg *FormatRegistry) AnyInputWriters() []Option {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]Option, len(reg.anyInputWriter))
	copy(out, reg.anyInputWriter)
	return out
}

// FindOption locates an option by handler name, format MIME and format
// code — the lookup PathStore.Recall uses to re-resolve a persisted node
// against the live registry.
func (reg *FormatRegistry) FindOption(handlerName, mime, code string) (Option, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	for _, o := range reg.options {
		if o.Handler.Name() == handlerName && o.Format.MIME == mime && o.Format.Code == code {
			return o, true
		}
	}
	return Option{}, false
}

// Handlers returns the registry's handlers in construction order.
func (reg *FormatRegistry) Handlers() []Handler {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]Handler, len(reg.handlers))
	copy(out, reg.handlers)
	return out
}
