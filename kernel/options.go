package kernel

import (
	"github.com/tsdalton/GraKeL/pkg/diagnostics"
	"github.com/tsdalton/GraKeL/pkg/log"
)

// Config holds the options shared by every kernel estimator.
type Config struct {
	// Normalize applies K[i,j] / sqrt(dq[i] * df[j]) to every returned matrix.
	Normalize bool
	// NJobs is the worker pool size of the matrix engine: 0 or 1 sequential,
	// -1 all CPUs, n > 1 n workers.
	NJobs    int
	Logger   log.Logger
	Observer diagnostics.Observer
}

// Option is a function that configures a kernel Config
type Option func(*Config)

// DefaultConfig returns an unnormalized, sequential configuration with no
// logging and no diagnostics.
func DefaultConfig() Config {
	return Config{
		Logger:   log.Nop(),
		Observer: diagnostics.Nop(),
	}
}

// NewConfig applies opts on top of DefaultConfig.
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithNormalize sets whether returned matrices are normalized
func WithNormalize(normalize bool) Option {
	return func(c *Config) {
		c.Normalize = normalize
	}
}

// WithNJobs sets the number of parallel jobs
func WithNJobs(n int) Option {
	return func(c *Config) {
		c.NJobs = n
	}
}

// WithLogger injects the logger used for lifecycle and engine events.
// A nil logger keeps the no-op default.
func WithLogger(logger log.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithObserver injects the diagnostics observer notified by the matrix engine.
// A nil observer keeps the no-op default.
func WithObserver(observer diagnostics.Observer) Option {
	return func(c *Config) {
		if observer != nil {
			c.Observer = observer
		}
	}
}
