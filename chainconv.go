// Package chainconv is the conversion routing engine: it composes
// independently-developed format Handlers into multi-hop conversion
// chains, discovered by bounded breadth-first search and executed
// step by step, with a persistent path-recall cache so a previously
// successful route skips search on replay.
package chainconv

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/skryldev/chainconv/config"
	"github.com/skryldev/chainconv/core"
	apperrors "github.com/skryldev/chainconv/errors"
	"github.com/skryldev/chainconv/executor"
	"github.com/skryldev/chainconv/progress"
	"github.com/skryldev/chainconv/search"
	"github.com/skryldev/chainconv/store"
)

// Status re-exports search.Status so callers never import the search
// package directly.
type Status = search.Status

const (
	StatusSuccess = search.StatusSuccess
	StatusPartial = search.StatusPartial
	StatusTimeout = search.StatusTimeout
	StatusNoRoute = search.StatusNoRoute
)

// ConvertRequest is the UI-facing inbound contract (spec.md §6): an
// input MIME and an output MIME, with optional handler names that pin
// the exact (handler, format) option in advanced (non-SimpleMode)
// routing.
type ConvertRequest struct {
	Files []core.FileData

	InputMIME    string
	InputHandler string // optional; disambiguates when two handlers share InputMIME

	OutputMIME string
	// OutputHandler optionally pins the target option at OutputMIME;
	// empty selects the first handler that writes OutputMIME. In advanced
	// mode only the target's handler may close the chain; in simple mode
	// any handler that writes OutputMIME may.
	OutputHandler string
}

// ConvertResult is what Convert and a completed Job return.
type ConvertResult struct {
	Status Status
	Files  []core.FileData
	Chain  core.Chain
}

// Job is an async unit of work for the worker pool, mirroring the
// teacher's core.Job/JobResult shape.
type Job struct {
	ID       string
	Ctx      context.Context
	Request  ConvertRequest
	ResultCh chan JobResult
}

// JobResult is delivered on a Job's ResultCh.
type JobResult struct {
	JobID  string
	Result ConvertResult
	Err    error
}

// Router is the primary entry point: it owns the format registry, the
// path-recall and format caches, and a bounded worker pool for async
// conversions. Safe for concurrent use.
type Router struct {
	cfg      config.Config
	registry *core.FormatRegistry
	searcher *search.Searcher

	pathStore   *store.PathStore
	formatCache *store.FormatCache

	logger   core.Logger
	metrics  core.MetricsCollector
	observer core.ProgressObserver

	jobQueue chan Job
	wg       sync.WaitGroup
	once     sync.Once
	shutdown chan struct{}
}

// New builds a fully wired Router: it loads the format cache and path
// store from disk (tolerating absence/corruption per spec.md §6/§7),
// runs Init on every handler not already cached, and constructs the
// searcher. cfg zero value is invalid; pass config.Default() or your
// own validated Config.
func New(ctx context.Context, cfg config.Config, handlers []core.Handler, logger core.Logger) (*Router, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "router.new", err)
	}
	if logger == nil {
		logger = progress.NewSlogLogger(slog.Default())
	}

	formatCache := store.NewFormatCache(cfg.FormatCachePath, logger)
	registry := core.NewFormatRegistry(ctx, handlers, formatCache, logger)

	pathStore := store.NewPathStore(cfg.PathStorePath, registry, logger)

	metrics := progress.NewInMemoryMetrics()
	observer := progress.NewLoggingObserver(logger)

	yield := func() { runtime.Gosched() }
	searcher := search.New(registry, cfg.MaxChainLen, observer, metrics, yield)

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}

	return &Router{
		cfg:         cfg,
		registry:    registry,
		searcher:    searcher,
		pathStore:   pathStore,
		formatCache: formatCache,
		logger:      logger,
		metrics:     metrics,
		observer:    observer,
		jobQueue:    make(chan Job, queueSize),
		shutdown:    make(chan struct{}),
	}, nil
}

// Registry exposes the underlying FormatRegistry for advanced callers
// (e.g. tests that want to inspect the option pool directly).
func (r *Router) Registry() *core.FormatRegistry { return r.registry }

// Metrics returns the cumulative in-memory metrics snapshot.
func (r *Router) Metrics() progress.Snapshot { return r.metrics.(*progress.InMemoryMetrics).Snapshot() }

// Convert is the primary synchronous API. It resolves req's input and
// output options, tries the MIME-equality fast path and the
// path-recall cache before falling back to search.Searcher.Find, and
// persists a freshly discovered chain for future calls.
func (r *Router) Convert(ctx context.Context, req ConvertRequest) (ConvertResult, error) {
	input, ok := r.findOption(req.InputMIME, req.InputHandler, true)
	if !ok {
		return ConvertResult{}, apperrors.New(apperrors.CategoryInput, "convert.input",
			apperrors.ErrNoRoute)
	}
	target, ok := r.findOption(req.OutputMIME, req.OutputHandler, false)
	if !ok {
		return ConvertResult{}, apperrors.New(apperrors.CategoryInput, "convert.output",
			apperrors.ErrNoRoute)
	}

	// MIME-equality fast path (spec.md §6): identical input/output MIME
	// never needs a search — the files already satisfy the request.
	if input.Format.MIME == target.Format.MIME {
		return ConvertResult{Status: StatusSuccess, Files: req.Files, Chain: core.Chain{input}}, nil
	}

	key := store.Key(req.InputMIME, req.OutputMIME, r.cfg.SimpleMode, target.Handler.Name())

	if chain, ok := r.pathStore.Recall(key); ok {
		out, err := executor.New(r.observer, r.metrics, func() { runtime.Gosched() }).Attempt(ctx, req.Files, chain)
		if err == nil {
			return ConvertResult{Status: StatusSuccess, Files: out, Chain: chain}, nil
		}
		// A cached path that no longer replays (a handler regressed, or
		// its format list changed) is evicted rather than retried —
		// spec.md §4.4's eviction-on-replay-failure policy.
		r.pathStore.Evict(key)
		r.logger.Warn("path store: cached path failed to replay, evicting", "key", key, "error", err)
	}

	deadline := time.Time{}
	if r.cfg.SearchTimeout > 0 {
		deadline = time.Now().Add(r.cfg.SearchTimeout)
	}

	res := r.searcher.Find(ctx, req.Files, input, target, r.cfg.SimpleMode, deadline)

	switch res.Status {
	case search.StatusSuccess:
		r.pathStore.Store(key, res.Chain)
		if err := r.pathStore.Flush(); err != nil {
			r.logger.Warn("path store: flush failed", "error", err)
		}
		if len(res.Files) > 0 {
			var total int64
			for _, f := range res.Files {
				total += int64(len(f.Bytes))
			}
			r.metrics.RecordThroughput(total)
		}
		return ConvertResult{Status: res.Status, Files: res.Files, Chain: res.Chain}, nil
	case search.StatusPartial:
		return ConvertResult{Status: res.Status, Files: res.Files, Chain: res.Chain},
			apperrors.New(apperrors.CategorySearch, "convert.search", apperrors.ErrSearchTimeout)
	case search.StatusTimeout:
		return ConvertResult{Status: res.Status}, apperrors.New(apperrors.CategorySearch, "convert.search", apperrors.ErrSearchTimeout)
	default:
		return ConvertResult{Status: res.Status}, apperrors.New(apperrors.CategorySearch, "convert.search", apperrors.ErrNoRoute)
	}
}

// findOption locates a registry option by MIME, optionally pinned to a
// handler name. wantFrom selects whether the option must declare
// From or To.
func (r *Router) findOption(mime, handlerName string, wantFrom bool) (core.Node, bool) {
	for _, opt := range r.registry.Options() {
		if opt.Format.MIME != mime {
			continue
		}
		if wantFrom && !opt.Format.From {
			continue
		}
		if !wantFrom && !opt.Format.To {
			continue
		}
		if handlerName != "" && opt.Handler.Name() != handlerName {
			continue
		}
		return opt, true
	}
	return core.Node{}, false
}

// ── cross-request concurrency (NEW-C) ─────────────────────────────────────────

// Batch runs Convert concurrently for every request, mirroring the
// teacher's core.Processor.Batch fan-out/fan-in shape. Each request
// gets its own single-threaded search; nothing here parallelizes a
// single search.
func (r *Router) Batch(ctx context.Context, reqs []ConvertRequest) ([]ConvertResult, []error) {
	results := make([]ConvertResult, len(reqs))
	errs := make([]error, len(reqs))
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(idx int, rq ConvertRequest) {
			defer wg.Done()
			res, err := r.Convert(ctx, rq)
			results[idx] = res
			errs[idx] = err
		}(i, req)
	}
	wg.Wait()
	return results, errs
}

// Start launches the bounded worker pool backing Submit. Idempotent.
func (r *Router) Start() {
	r.once.Do(func() {
		n := r.cfg.WorkerCount
		if n <= 0 {
			n = runtime.NumCPU()
		}
		for i := 0; i < n; i++ {
			r.wg.Add(1)
			go r.worker()
		}
	})
}

// Stop drains in-flight jobs and shuts down all workers, then flushes
// both caches to disk.
func (r *Router) Stop() {
	close(r.shutdown)
	r.wg.Wait()
	if err := r.formatCache.Flush(); err != nil {
		r.logger.Warn("format cache: flush failed", "error", err)
	}
	if err := r.pathStore.Flush(); err != nil {
		r.logger.Warn("path store: flush failed", "error", err)
	}
}

// Submit enqueues an async job for the worker pool. Returns an error
// if the queue is full; callers that need backpressure should retry
// or fall back to a synchronous Convert.
func (r *Router) Submit(job Job) error {
	select {
	case r.jobQueue <- job:
		return nil
	default:
		return apperrors.Transient("router.submit", apperrors.ErrNoRoute)
	}
}

func (r *Router) worker() {
	defer r.wg.Done()
	for {
		select {
		case <-r.shutdown:
			return
		case job, ok := <-r.jobQueue:
			if !ok {
				return
			}
			r.runJob(job)
		}
	}
}

func (r *Router) runJob(job Job) {
	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if r.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.JobTimeout)
		defer cancel()
	}
	res, err := r.Convert(ctx, job.Request)
	if job.ResultCh != nil {
		job.ResultCh <- JobResult{JobID: job.ID, Result: res, Err: err}
	}
}
