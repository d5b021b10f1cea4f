// Package yaoernie is an agentic task-execution engine. Given a user
// request and a set of declared tools, it runs a bounded iterative
// Think/Act/Observe/Reflect loop, invoking tools through a process-based
// request/response protocol and recording every attempt as a CycleRecord.
package yaoernie

import (
	"log/slog"
	"time"
)

const (
	// DefaultMaxRetries is the cycle count ceiling per task execution.
	DefaultMaxRetries = 3

	// DefaultPacing is the delay inserted between consecutive cycles of
	// one task.
	DefaultPacing = 200 * time.Millisecond
)

// Engine is the cycle controller for task executions. One Engine may run
// independently submitted tasks concurrently; within one task, cycles never
// overlap.
type Engine struct {
	reasoner Reasoner

	engineConfig
}

type engineConfig struct {
	maxRetries int
	reflection bool
	pacing     time.Duration

	sources    []ToolSource
	extractors map[string]Extractor

	sink   ProgressSink
	logger *slog.Logger
}

func (c *engineConfig) Clone() *engineConfig {
	extractors := make(map[string]Extractor, len(c.extractors))
	for name, ex := range c.extractors {
		extractors[name] = ex
	}

	return &engineConfig{
		maxRetries: c.maxRetries,
		reflection: c.reflection,
		pacing:     c.pacing,
		sources:    append([]ToolSource(nil), c.sources...),
		extractors: extractors,
		sink:       c.sink,
		logger:     c.logger,
	}
}

// New creates a new engine around a Reasoner.
func New(reasoner Reasoner, options ...Option) *Engine {
	x := &Engine{
		reasoner: reasoner,
		engineConfig: engineConfig{
			maxRetries: DefaultMaxRetries,
			reflection: true,
			pacing:     DefaultPacing,
			extractors: map[string]Extractor{},
			sink:       nopSink{},
			logger:     slog.New(slog.DiscardHandler),
		},
	}

	for _, opt := range options {
		opt(&x.engineConfig)
	}

	x.logger.Info("yaoernie engine created",
		"max_retries", x.maxRetries,
		"reflection", x.reflection,
		"pacing", x.pacing,
		"tool_sources", len(x.sources),
		"extractors", len(x.extractors),
	)

	return x
}

// Option configures an Engine. Options passed to Execute override the
// engine defaults for that execution only.
type Option func(*engineConfig)

// WithMaxRetries sets the cycle count ceiling. The engine bounds total work
// by cycle count, not wall-clock time.
func WithMaxRetries(maxRetries int) Option {
	return func(c *engineConfig) {
		c.maxRetries = maxRetries
	}
}

// WithReflection enables or disables reasoner-driven reflection. When
// disabled, the verdict is derived deterministically from the observation.
func WithReflection(enabled bool) Option {
	return func(c *engineConfig) {
		c.reflection = enabled
	}
}

// WithPacing sets the delay between consecutive cycles. Zero disables
// pacing.
func WithPacing(d time.Duration) Option {
	return func(c *engineConfig) {
		c.pacing = d
	}
}

// WithToolSources attaches tool sources. Their descriptors are merged at
// task start and are read-only for the task's lifetime.
func WithToolSources(sources ...ToolSource) Option {
	return func(c *engineConfig) {
		c.sources = append(c.sources, sources...)
	}
}

// WithExtractor registers an argument extractor for one tool.
func WithExtractor(toolName string, extractor Extractor) Option {
	return func(c *engineConfig) {
		c.extractors[toolName] = extractor
	}
}

// WithProgress attaches a progress sink for the execution's phase
// transitions.
func WithProgress(sink ProgressSink) Option {
	return func(c *engineConfig) {
		if sink != nil {
			c.sink = sink
		}
	}
}

// WithLogger sets the logger. Default is a discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}
