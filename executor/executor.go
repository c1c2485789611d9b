// Package executor implements the AttemptExecutor: running an ordered
// chain of handlers against a working file set, with a forward-prefix
// cache so speculative re-attempts skip already-computed prefixes.
package executor

import (
	"context"
	"runtime"
	"strconv"
	"time"

	"github.com/skryldev/chainconv/core"
	apperrors "github.com/skryldev/chainconv/errors"
)

// cachedStep is one remembered {files, node} pair from the previous
// attempt's chain, keyed by its position (index 1..len-1 of that chain).
type cachedStep struct {
	node  core.Node
	files []core.FileData
}

// Executor runs chains and remembers the longest prefix of hops it has
// already computed, so that candidates sharing a prefix with the
// previous attempt skip recomputing it. It is owned by exactly one
// search call frame and is not safe for concurrent use — spec.md §5
// describes the router as single-threaded cooperative per search.
type Executor struct {
	progress core.ProgressObserver
	metrics  core.MetricsCollector
	yield    func()

	prefix []cachedStep
}

// New returns an empty Executor. observer and metrics may be nil; yield
// is the repaint-barrier hook called before each hop's CPU-heavy work —
// a nil yield defaults to runtime.Gosched.
func New(observer core.ProgressObserver, metrics core.MetricsCollector, yield func()) *Executor {
	if yield == nil {
		yield = runtime.Gosched
	}
	return &Executor{progress: observer, metrics: metrics, yield: yield}
}

// Reset clears the prefix cache, e.g. at the start of a new search.
func (e *Executor) Reset() {
	e.prefix = nil
}

// Realign truncates the prefix cache to the longest common prefix with
// chain (excluding chain[0], which is never cached — it is the starting
// input, not a computed hop). This is the divergence handling spec.md
// §4.2/§9 describes: on divergence at position i, entries at index ≥ i−1
// are discarded, which is exactly what truncating to the common-prefix
// length achieves when the cache and the new chain are walked in
// lockstep from position 1.
func (e *Executor) Realign(chain core.Chain) {
	p := commonPrefixLen(e.prefix, chain)
	e.prefix = e.prefix[:p]
}

func commonPrefixLen(cache []cachedStep, chain core.Chain) int {
	n := len(cache)
	if len(chain)-1 < n {
		n = len(chain) - 1
	}
	for i := 0; i < n; i++ {
		if !cache[i].node.SameFormat(chain[i+1]) || cache[i].node.Handler.Name() != chain[i+1].Handler.Name() {
			return i
		}
	}
	return n
}

// Attempt runs chain against files, reusing the cached prefix when
// chain's first p hops match the previous attempt's chain. Returns the
// final file set on success, or nil and an error describing the failed
// hop (a convert failure is reported via the error but is an expected,
// per-candidate outcome, not a bug — callers in search treat it as
// "try the next candidate").
func (e *Executor) Attempt(ctx context.Context, files []core.FileData, chain core.Chain) ([]core.FileData, error) {
	if len(chain) < 2 {
		return nil, apperrors.Wrap(apperrors.CategoryConvert, "attempt", apperrors.ErrEmptyChain)
	}

	e.Realign(chain)

	current := files
	start := len(e.prefix)
	if start > 0 {
		current = e.prefix[start-1].files
	}

	for i := start; i < len(chain)-1; i++ {
		node := chain[i+1]

		if e.progress != nil {
			e.progress.OnStepStart(chain, i+1)
		}
		e.yield()

		if !node.Handler.Ready() {
			if err := node.Handler.Init(ctx); err != nil {
				e.record(node.Handler.Name(), 0, err)
				return nil, apperrors.Wrap(apperrors.CategoryInit, "attempt.init", err)
			}
		}

		inputFormat, ok := fromFormatFor(node.Handler, chain[i].Format.MIME)
		if !ok && node.Handler.SupportsAnyInput() {
			// An any-input handler accepts every MIME, declared or not;
			// it receives the previous node's format as its input format.
			inputFormat, ok = chain[i].Format, true
		}
		if !ok {
			// Guaranteed not to happen by chain construction (search
			// only ever appends handlers whose from-format matches the
			// previous node's MIME, or any-input handlers, handled
			// above); this is an invariant violation, not an expected
			// per-hop failure.
			panic("executor: chain adjacency invariant violated at hop " + strconv.Itoa(i+1))
		}

		started := time.Now()
		out, err := node.Handler.Convert(ctx, current, inputFormat, node.Format)
		e.record(node.Handler.Name(), time.Since(started), err)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryConvert, "attempt.convert", err)
		}
		if err := checkNonEmpty(out); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryConvert, "attempt.convert", err)
		}

		current = out
		e.prefix = append(e.prefix, cachedStep{node: node, files: current})
	}

	return current, nil
}

func (e *Executor) record(handlerName string, d time.Duration, err error) {
	if e.metrics != nil {
		e.metrics.RecordAttempt(handlerName, d, err)
	}
}

func fromFormatFor(h core.Handler, mime string) (core.Format, bool) {
	for _, f := range h.SupportedFormats() {
		if f.From && f.MIME == mime {
			return f, true
		}
	}
	return core.Format{}, false
}

func checkNonEmpty(files []core.FileData) error {
	if len(files) == 0 {
		return apperrors.ErrEmptyOutput
	}
	for _, f := range files {
		if len(f.Bytes) == 0 {
			return apperrors.ErrEmptyOutput
		}
	}
	return nil
}

// PrefixLen reports how many hops are currently cached, used by the
// searcher's timeout/partial-result policy to recover the longest
// successfully-executed prefix.
func (e *Executor) PrefixLen() int { return len(e.prefix) }

// PrefixFiles returns the file set after the last cached hop, or nil if
// no hop has executed yet.
func (e *Executor) PrefixFiles() []core.FileData {
	if len(e.prefix) == 0 {
		return nil
	}
	return e.prefix[len(e.prefix)-1].files
}

// PrefixChain reconstructs the chain prefix currently cached, given the
// chain under trial's leading input node (index 0).
func (e *Executor) PrefixChain(input core.Node) core.Chain {
	out := make(core.Chain, 0, len(e.prefix)+1)
	out = append(out, input)
	for _, c := range e.prefix {
		out = append(out, c.node)
	}
	return out
}
