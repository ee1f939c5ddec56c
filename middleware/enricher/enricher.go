// Package enricher fills in request data before the pipeline runs.
package enricher

import (
	"context"

	"github.com/sweetpotato0/kgpgpt/conversation"
	"github.com/sweetpotato0/kgpgpt/message"
	"github.com/sweetpotato0/kgpgpt/middleware"
)

// DefaultHistoryTurns bounds the history loaded from a stored conversation.
const DefaultHistoryTurns = 10

// EnricherFunc enriches the context
type EnricherFunc func(*middleware.Context) error

// ContextEnricher adds additional data to the middleware context
type ContextEnricher struct {
	enricher EnricherFunc
}

// NewContextEnricher creates a context enriching middleware
func NewContextEnricher(enricher EnricherFunc) *ContextEnricher {
	return &ContextEnricher{enricher: enricher}
}

// Name returns the middleware name
func (m *ContextEnricher) Name() string {
	return "ContextEnricher"
}

// Execute enriches the context
func (m *ContextEnricher) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.enricher != nil {
		if err := m.enricher(ctx); err != nil {
			return err
		}
	}
	return next(ctx)
}

// historyReader is the part of conversation.Store the loader needs.
type historyReader interface {
	Messages(ctx context.Context, conversationID string) ([]*conversation.Message, error)
}

// LoadHistory returns an EnricherFunc that, when the request names a
// conversation and carries no history of its own, loads the last turns of
// that conversation. An unknown conversation fails the request. The first
// message flag is set when the stored conversation is empty.
func LoadHistory(store historyReader, turns int) EnricherFunc {
	if turns <= 0 {
		turns = DefaultHistoryTurns
	}
	return func(ctx *middleware.Context) error {
		if ctx.ConversationID == "" || ctx.Request == nil || len(ctx.Request.History) > 0 {
			return nil
		}
		msgs, err := store.Messages(ctx.Context(), ctx.ConversationID)
		if err != nil {
			return err
		}
		ctx.Request.History = message.Recent(conversation.History(msgs), turns)
		if len(msgs) == 0 {
			ctx.Request.IsFirstMessage = true
		}
		return nil
	}
}
