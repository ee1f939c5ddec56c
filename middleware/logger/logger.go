// Package logger records each orchestration call with slog.
package logger

import (
	"log/slog"
	"time"

	"github.com/sweetpotato0/kgpgpt/middleware"
	"github.com/sweetpotato0/kgpgpt/pkg/logging"
)

// RequestLogger logs the query on entry and the outcome and duration on exit.
type RequestLogger struct {
	logger *slog.Logger
}

// NewRequestLogger creates a request logging middleware. A nil logger uses
// the process logger.
func NewRequestLogger(logger *slog.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.WithComponent("request")
	}
	return &RequestLogger{logger: logger}
}

// Name returns the middleware name
func (m *RequestLogger) Name() string {
	return "RequestLogger"
}

// Execute logs around the rest of the chain.
func (m *RequestLogger) Execute(ctx *middleware.Context, next middleware.Handler) error {
	start := time.Now()
	m.logger.Info("query received",
		"client", ctx.ClientID,
		"query", logging.Trim(ctx.Query(), 120),
	)

	err := next(ctx)

	attrs := []any{"client", ctx.ClientID, "elapsed", time.Since(start)}
	if err != nil {
		m.logger.Warn("query failed", append(attrs, "error", err)...)
		return err
	}
	if res := ctx.Result; res != nil {
		attrs = append(attrs,
			"intent", res.QueryAnalysis.Intent,
			"simple", res.IsSimpleResponse,
			"confidence", res.Response.Confidence,
		)
	}
	m.logger.Info("query answered", attrs...)
	return nil
}
