package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps a classified error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, kgperrors.ErrEmptyQuery), errors.Is(err, kgperrors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, kgperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, kgperrors.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		message = "An unexpected error occurred while processing the request"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
