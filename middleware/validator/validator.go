// Package validator normalises and checks inbound queries.
package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/message"
	"github.com/sweetpotato0/kgpgpt/middleware"
)

// MaxQueryRunes caps the query length.
const MaxQueryRunes = 4000

// ValidatorFunc is an extra check run after the built-in ones.
type ValidatorFunc func(query string) error

// InputValidator trims the query and rejects empty or over-long queries and
// history turns with an unknown role.
type InputValidator struct {
	maxRunes int
	extra    []ValidatorFunc
}

// NewInputValidator creates an input validation middleware. maxRunes <= 0
// means MaxQueryRunes.
func NewInputValidator(maxRunes int, extra ...ValidatorFunc) *InputValidator {
	if maxRunes <= 0 {
		maxRunes = MaxQueryRunes
	}
	return &InputValidator{maxRunes: maxRunes, extra: extra}
}

// Name returns the middleware name
func (m *InputValidator) Name() string {
	return "InputValidator"
}

// Execute validates the input
func (m *InputValidator) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if ctx.Request == nil {
		return kgperrors.ErrEmptyQuery
	}
	query := strings.TrimSpace(ctx.Request.Query)
	if query == "" {
		return kgperrors.ErrEmptyQuery
	}
	if n := utf8.RuneCountInString(query); n > m.maxRunes {
		return fmt.Errorf("%w: query is %d characters, the limit is %d", kgperrors.ErrInvalidInput, n, m.maxRunes)
	}
	if err := message.Validate(ctx.Request.History); err != nil {
		return fmt.Errorf("%w: %w", kgperrors.ErrInvalidInput, err)
	}
	for _, check := range m.extra {
		if err := check(query); err != nil {
			return fmt.Errorf("%w: %w", kgperrors.ErrInvalidInput, err)
		}
	}
	ctx.Request.Query = query
	return next(ctx)
}
