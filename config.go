package depspawn

import (
	"runtime"

	"github.com/go-foundations/depspawn/log"
)

// Config holds the tunables for the default runtime, following the
// functional-options shape used across the pack's worker pools.
type Config struct {
	NumThreads     int        // worker goroutines; defaults to runtime.NumCPU()
	TaskQueueLimit int        // ready slots per worker before submitters run tasks inline
	Logger         log.Logger // defaults to log.Discard{}
}

// DefaultConfig returns sensible defaults: one worker per logical CPU and
// depspawn's own Default_Max_Tasks_Per_Thread of 4 queue slots per worker.
func DefaultConfig() Config {
	return Config{
		NumThreads:     runtime.NumCPU(),
		TaskQueueLimit: 4,
		Logger:         log.Discard{},
	}
}

// Option mutates a Config being built by NewConfig.
type Option func(*Config)

// WithThreads overrides the worker count.
func WithThreads(n int) Option {
	return func(c *Config) { c.NumThreads = n }
}

// WithTaskQueueLimit overrides the per-worker ready-queue depth.
func WithTaskQueueLimit(n int) Option {
	return func(c *Config) { c.TaskQueueLimit = n }
}

// WithLogger overrides the logger used by the runtime.
func WithLogger(l log.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// NewConfig builds a Config starting from DefaultConfig and applying opts
// in order.
func NewConfig(opts ...Option) (Config, error) {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	if c.NumThreads < 1 {
		return Config{}, &ConfigError{Field: "NumThreads", Value: c.NumThreads, Msg: "must be >= 1"}
	}
	if c.TaskQueueLimit < 1 {
		return Config{}, &ConfigError{Field: "TaskQueueLimit", Value: c.TaskQueueLimit, Msg: "must be >= 1"}
	}
	if c.Logger == nil {
		c.Logger = log.Discard{}
	}
	return c, nil
}
