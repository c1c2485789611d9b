package config

import (
	"errors"
	"time"
)

// Config is the top-level configuration struct. Start from Default() and
// override only what you need: the zero value Config{} fails Validate,
// since MaxChainLen, SearchTimeout and QueueSize must be set.
type Config struct {
	// MaxChainLen bounds chain length (node count); default 6, i.e. at
	// most 5 hops, per spec.md's MAX_CHAIN_LEN invariant.
	MaxChainLen int

	// SearchTimeout is the wall-clock deadline polled at the top of each
	// BFS iteration; default 10 minutes (spec.md's SEARCH_TIMEOUT_MS).
	SearchTimeout time.Duration

	// SimpleMode selects routing scope: true lets any handler that can
	// produce the target MIME close the chain; false restricts closure
	// to the UI-selected handler (spec.md §4.3).
	SimpleMode bool

	// Worker pool controls for Router.Submit. Router.Batch does not use
	// the pool; it starts one goroutine per request.
	WorkerCount int // default: runtime.NumCPU()
	QueueSize   int // max queued jobs before backpressure; default: 256
	JobTimeout  time.Duration

	// Persistence locations. Empty disables persistence for that cache.
	FormatCachePath string
	PathStorePath   string

	// Logging.
	LogLevel string // "debug", "info", "warn", "error"
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		MaxChainLen:   6,
		SearchTimeout: 10 * time.Minute,
		SimpleMode:    true,
		WorkerCount:   0, // resolved at runtime to NumCPU
		QueueSize:     256,
		JobTimeout:    30 * time.Second,
		LogLevel:      "info",
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.MaxChainLen < 2 {
		return errors.New("config: MaxChainLen must be at least 2")
	}
	if c.SearchTimeout <= 0 {
		return errors.New("config: SearchTimeout must be positive")
	}
	if c.QueueSize <= 0 {
		return errors.New("config: QueueSize must be positive")
	}
	return nil
}
