// Package search implements the PathSearcher: a bounded breadth-first
// search over the handler-format graph that yields candidate chains,
// executes each through an executor.Executor, and stops on the first
// chain that succeeds end-to-end.
package search

import (
	"container/list"
	"context"
	"time"

	"github.com/skryldev/chainconv/core"
	"github.com/skryldev/chainconv/executor"
)

// Status classifies the outcome of a Find call.
type Status int

const (
	// StatusSuccess: a chain was found and executed end-to-end; Chain's
	// final MIME equals the requested output MIME.
	StatusSuccess Status = iota
	// StatusPartial: the deadline fired after at least one hop executed;
	// Files/Chain describe the longest successfully-executed prefix, and
	// Chain's final MIME does not equal the requested output MIME.
	StatusPartial
	// StatusTimeout: the deadline fired with no hop ever executed.
	StatusTimeout
	// StatusNoRoute: the search queue drained without finding a chain.
	StatusNoRoute
)

// Result is returned by Find.
type Result struct {
	Status Status
	Files  []core.FileData
	Chain  core.Chain
}

// Registry is the subset of core.FormatRegistry the searcher needs,
// expressed as an interface so tests can substitute a synthetic graph.
type Registry interface {
	HandlersByFromMime(mime string) []core.Handler
	AnyInputWriters() []core.Option
}

// Searcher runs one bounded BFS per Find call. It is not safe for
// concurrent use by multiple goroutines against the same call — each
// Find owns its own queue and its own Executor, matching spec.md §5's
// single-threaded-per-search model.
type Searcher struct {
	registry    Registry
	maxChainLen int
	observer    core.ProgressObserver
	metrics     core.MetricsCollector
	yield       func()
}

// New returns a Searcher bound to registry.
func New(registry Registry, maxChainLen int, observer core.ProgressObserver, metrics core.MetricsCollector, yield func()) *Searcher {
	return &Searcher{registry: registry, maxChainLen: maxChainLen, observer: observer, metrics: metrics, yield: yield}
}

// Find searches for a chain from input to a node matching target's MIME,
// starting with files as the initial payload. simpleMode controls the
// target-close phase per spec.md §4.3.
func (s *Searcher) Find(ctx context.Context, files []core.FileData, input, target core.Node, simpleMode bool, deadline time.Time) Result {
	exec := executor.New(s.observer, s.metrics, s.yield)

	queue := list.New()
	queue.PushBack(core.Chain{input})

	anyInputTried := false

	for queue.Len() > 0 {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return s.partialOrTimeout(exec, input)
		}

		front := queue.Remove(queue.Front()).(core.Chain)
		if len(front) > s.maxChainLen {
			continue
		}

		if s.observer != nil {
			s.observer.OnPathAttempt(front)
		}
		if s.metrics != nil {
			s.metrics.RecordPathAttempt(front)
		}

		// Prefix-cache realignment: walk front against the executor's
		// cache and truncate at the first divergence so the next
		// Attempt re-executes from there (spec.md §4.3 step 3).
		exec.Realign(front)

		prev := front[len(front)-1]
		candidates := s.registry.HandlersByFromMime(prev.Format.MIME)

		if res, ok := s.closeChain(ctx, exec, files, front, target, candidates, simpleMode); ok {
			return res
		}

		if !anyInputTried {
			anyInputTried = true
			if res, ok := s.tryAnyInput(ctx, exec, files, front, target); ok {
				return res
			}
		}

		for _, h := range candidates {
			for _, f := range h.SupportedFormats() {
				if !f.To || f.MIME == "" {
					continue
				}
				if front.HasFormat(f) {
					continue
				}
				next := front.Clone()
				next = append(next, core.Node{Handler: h, Format: f})
				queue.PushBack(next)
			}
		}
	}

	return Result{Status: StatusNoRoute}
}

// closeChain tries every candidate that can end the chain at the target
// MIME: in simple mode every handler-producible option at that MIME; in
// advanced mode only the exact (handler, format) the caller selected.
func (s *Searcher) closeChain(ctx context.Context, exec *executor.Executor, files []core.FileData, front core.Chain, target core.Node, candidates []core.Handler, simpleMode bool) (Result, bool) {
	closers := s.closingOptions(candidates, target, simpleMode)
	for _, opt := range closers {
		if front.HasFormat(opt.Format) {
			continue
		}
		candidate := append(front.Clone(), opt)
		if len(candidate) > s.maxChainLen {
			continue
		}
		out, err := exec.Attempt(ctx, files, candidate)
		if err == nil {
			return Result{Status: StatusSuccess, Files: out, Chain: candidate}, true
		}
	}
	return Result{}, false
}

func (s *Searcher) closingOptions(candidates []core.Handler, target core.Node, simpleMode bool) []core.Node {
	if !simpleMode {
		for _, h := range candidates {
			if h.Name() != target.Handler.Name() {
				continue
			}
			for _, f := range h.SupportedFormats() {
				if f.To && f.MIME == target.Format.MIME {
					return []core.Node{{Handler: h, Format: f}}
				}
			}
		}
		return nil
	}

	var out []core.Node
	for _, h := range candidates {
		for _, f := range h.SupportedFormats() {
			if f.To && f.MIME == target.Format.MIME {
				out = append(out, core.Node{Handler: h, Format: f})
			}
		}
	}
	return out
}

// tryAnyInput appends each any-input writer whose format MIME matches
// the target once per search, per spec.md §4.3 step 6.
func (s *Searcher) tryAnyInput(ctx context.Context, exec *executor.Executor, files []core.FileData, front core.Chain, target core.Node) (Result, bool) {
	for _, opt := range s.registry.AnyInputWriters() {
		if opt.Format.MIME != target.Format.MIME {
			continue
		}
		if front.HasFormat(opt.Format) {
			continue
		}
		candidate := append(front.Clone(), opt)
		if len(candidate) > s.maxChainLen {
			continue
		}
		out, err := exec.Attempt(ctx, files, candidate)
		if err == nil {
			return Result{Status: StatusSuccess, Files: out, Chain: candidate}, true
		}
	}
	return Result{}, false
}

func (s *Searcher) partialOrTimeout(exec *executor.Executor, input core.Node) Result {
	if exec.PrefixLen() == 0 {
		return Result{Status: StatusTimeout}
	}
	return Result{
		Status: StatusPartial,
		Files:  exec.PrefixFiles(),
		Chain:  exec.PrefixChain(input),
	}
}
