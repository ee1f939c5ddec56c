// Package errorhandler normalises failures escaping the chain.
package errorhandler

import (
	"context"
	"errors"
	"fmt"

	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/middleware"
)

// ErrorHandlerFunc observes a normalised error, e.g. to log or count it.
type ErrorHandlerFunc func(error)

// ErrorHandler turns panics and unclassified errors into ErrOrchestration.
// Client errors, rate limiting and context errors pass through unchanged so
// the transport can map them.
type ErrorHandler struct {
	handler ErrorHandlerFunc
}

// NewErrorHandler creates an error handling middleware
func NewErrorHandler(handler ErrorHandlerFunc) *ErrorHandler {
	return &ErrorHandler{handler: handler}
}

// Name returns the middleware name
func (m *ErrorHandler) Name() string {
	return "ErrorHandler"
}

// Execute handles errors from downstream middlewares
func (m *ErrorHandler) Execute(ctx *middleware.Context, next middleware.Handler) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic: %v", kgperrors.ErrOrchestration, p)
		}
		if err != nil {
			err = Normalize(err)
			if m.handler != nil {
				m.handler(err)
			}
		}
	}()
	return next(ctx)
}

var passthrough = []error{
	kgperrors.ErrEmptyQuery,
	kgperrors.ErrInvalidInput,
	kgperrors.ErrNotFound,
	kgperrors.ErrRateLimited,
	kgperrors.ErrOrchestration,
	context.DeadlineExceeded,
	context.Canceled,
}

// Normalize wraps err in ErrOrchestration unless it already carries a known
// classification.
func Normalize(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range passthrough {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", kgperrors.ErrOrchestration, err)
}
