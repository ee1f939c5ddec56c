package agentic

import (
	"log/slog"
	"time"

	"github.com/sweetpotato0/kgpgpt/pkg/metrics"
	"github.com/sweetpotato0/kgpgpt/runner"
)

// LowScoreThreshold is the score under which every retrieved document counts
// as weak local evidence and web search runs as a fallback.
const LowScoreThreshold = 0.3

// Config holds orchestrator settings.
type Config struct {
	Name               string
	GraphMaxVisits     int
	HealthProbeTimeout time.Duration
	LowScoreThreshold  float64

	logger  *slog.Logger
	metrics *metrics.Recorder
	runner  *runner.Runner
}

// Option customises the orchestrator.
type Option func(*Config)

// WithName sets the pipeline name used in logs.
func WithName(name string) Option {
	return func(cfg *Config) {
		if name != "" {
			cfg.Name = name
		}
	}
}

// WithGraphMaxVisits tweaks the safety guard for graph traversal.
func WithGraphMaxVisits(max int) Option {
	return func(cfg *Config) {
		if max > 0 {
			cfg.GraphMaxVisits = max
		}
	}
}

// WithHealthProbeTimeout bounds each health probe.
func WithHealthProbeTimeout(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.HealthProbeTimeout = d
		}
	}
}

// WithLogger overrides the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *Config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithMetrics records stage timings, request outcomes and health.
func WithMetrics(m *metrics.Recorder) Option {
	return func(cfg *Config) {
		cfg.metrics = m
	}
}

// WithRunner bounds concurrent orchestrations with r.
func WithRunner(r *runner.Runner) Option {
	return func(cfg *Config) {
		if r != nil {
			cfg.runner = r
		}
	}
}

func defaultConfig() *Config {
	return &Config{
		Name:               "kgpgpt",
		GraphMaxVisits:     4,
		HealthProbeTimeout: 10 * time.Second,
		LowScoreThreshold:  LowScoreThreshold,
	}
}

func applyOptions(opts []Option) *Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.runner == nil {
		cfg.runner = runner.New(0)
	}
	return cfg
}
