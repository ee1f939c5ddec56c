// Package agent wraps a generative model behind a single prompt-in, text-out
// call with timeouts, tracing and structured logging.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/pkg/logging"
	"github.com/sweetpotato0/kgpgpt/pkg/telemetry"
)

// LLMClient is a generative model backend.
type LLMClient interface {
	// Generate returns the model's text for a single prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Model names the underlying model, for response metadata.
	Model() string
}

// Agent calls an LLMClient on behalf of one pipeline stage.
type Agent struct {
	name    string
	llm     LLMClient
	timeout time.Duration
	logger  *slog.Logger
}

// Option is a function that configures an Agent
type Option func(*Agent)

// WithName sets the agent name used in logs and spans.
func WithName(name string) Option {
	return func(a *Agent) {
		a.name = name
	}
}

// WithProvider sets the LLM backend.
func WithProvider(provider LLMClient) Option {
	return func(a *Agent) {
		a.llm = provider
	}
}

// WithTimeout bounds every model call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(a *Agent) {
		a.timeout = d
	}
}

// WithLogger overrides the component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an agent.
func New(opts ...Option) *Agent {
	a := &Agent{
		name:    "Agent",
		timeout: 25 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logging.WithComponent("agent").With("agent", a.name)
	}
	return a
}

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// Model returns the backend model name, or "none" without a backend.
func (a *Agent) Model() string {
	if a.llm == nil {
		return "none"
	}
	return a.llm.Model()
}

// Run sends prompt to the model. Every failure wraps ErrGeneration.
func (a *Agent) Run(ctx context.Context, prompt string) (text string, err error) {
	if a.llm == nil {
		return "", fmt.Errorf("%w: no LLM provider configured", kgperrors.ErrGeneration)
	}

	ctx, span := telemetry.StartStage(ctx, "llm",
		attribute.String("agent", a.name),
		attribute.String("model", a.llm.Model()),
		attribute.Int("prompt.chars", len(prompt)),
	)
	defer func() { telemetry.End(span, err) }()

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err = a.llm.Generate(ctx, prompt)
	if err != nil {
		a.logger.Warn("model call failed", "error", err, "elapsed", time.Since(start))
		return "", fmt.Errorf("%w: %s: %w", kgperrors.ErrGeneration, a.llm.Model(), err)
	}
	a.logger.Debug("model call finished", "elapsed", time.Since(start), "chars", len(text))
	return text, nil
}

// Ping issues a trivial generation and fails unless text comes back.
func (a *Agent) Ping(ctx context.Context) error {
	text, err := a.Run(ctx, "Hello")
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty ping response", kgperrors.ErrGeneration)
	}
	return nil
}
