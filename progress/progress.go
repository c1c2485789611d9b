// Package progress provides production-ready core.Logger,
// core.ProgressObserver, and core.MetricsCollector implementations.
package progress

import (
	"log/slog"
	"sync"
	"time"

	"github.com/skryldev/chainconv/core"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

func (s *SlogLogger) Debug(msg string, fields ...interface{}) { s.log.Debug(msg, fields...) }
func (s *SlogLogger) Info(msg string, fields ...interface{})  { s.log.Info(msg, fields...) }
func (s *SlogLogger) Warn(msg string, fields ...interface{})  { s.log.Warn(msg, fields...) }
func (s *SlogLogger) Error(msg string, fields ...interface{}) { s.log.Error(msg, fields...) }

// ── Logging observer ──────────────────────────────────────────────────────────

// LoggingObserver logs each candidate chain and each hop as the searcher
// and executor report them.
type LoggingObserver struct {
	logger core.Logger
}

// NewLoggingObserver creates a LoggingObserver.
func NewLoggingObserver(l core.Logger) *LoggingObserver { return &LoggingObserver{logger: l} }

func (o *LoggingObserver) OnPathAttempt(chain core.Chain) {
	o.logger.Debug("search.path.attempt", "length", len(chain), "path", describeChain(chain))
}

func (o *LoggingObserver) OnStepStart(chain core.Chain, stepIndex int) {
	node := chain[stepIndex]
	handler := ""
	if node.Handler != nil {
		handler = node.Handler.Name()
	}
	o.logger.Debug("search.step.start",
		"handler", handler,
		"format", node.Format.Code,
		"step", stepIndex,
		"of", len(chain)-1,
	)
}

func describeChain(chain core.Chain) string {
	out := make([]byte, 0, 32)
	for i, n := range chain {
		if i > 0 {
			out = append(out, '>')
		}
		out = append(out, n.Format.Code...)
	}
	return string(out)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// InMemoryMetrics accumulates per-handler attempt counters and path
// attempt counts; safe for concurrent use.
type InMemoryMetrics struct {
	mu sync.RWMutex

	handlerAttempts map[string]int64
	handlerFailures map[string]int64
	handlerDuration map[string]time.Duration
	pathAttempts    int64
	totalThroughput int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		handlerAttempts: make(map[string]int64),
		handlerFailures: make(map[string]int64),
		handlerDuration: make(map[string]time.Duration),
	}
}

func (m *InMemoryMetrics) RecordAttempt(handlerName string, d time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlerAttempts[handlerName]++
	m.handlerDuration[handlerName] += d
	if err != nil {
		m.handlerFailures[handlerName]++
	}
}

func (m *InMemoryMetrics) RecordPathAttempt(chain core.Chain) {
	m.mu.Lock()
	m.pathAttempts++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordThroughput(bytes int64) {
	m.mu.Lock()
	m.totalThroughput += bytes
	m.mu.Unlock()
}

// Snapshot is an immutable point-in-time copy of metrics.
type Snapshot struct {
	HandlerAttempts map[string]int64
	HandlerFailures map[string]int64
	HandlerDuration map[string]time.Duration
	PathAttempts    int64
	TotalThroughput int64
}

// Snapshot returns a copy of current metrics.
func (m *InMemoryMetrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := Snapshot{
		HandlerAttempts: make(map[string]int64, len(m.handlerAttempts)),
		HandlerFailures: make(map[string]int64, len(m.handlerFailures)),
		HandlerDuration: make(map[string]time.Duration, len(m.handlerDuration)),
		PathAttempts:    m.pathAttempts,
		TotalThroughput: m.totalThroughput,
	}
	for k, v := range m.handlerAttempts {
		snap.HandlerAttempts[k] = v
	}
	for k, v := range m.handlerFailures {
		snap.HandlerFailures[k] = v
	}
	for k, v := range m.handlerDuration {
		snap.HandlerDuration[k] = v
	}
	return snap
}

var _ core.Logger = (*SlogLogger)(nil)
var _ core.ProgressObserver = (*LoggingObserver)(nil)
var _ core.MetricsCollector = (*InMemoryMetrics)(nil)
