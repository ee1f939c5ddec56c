// Package conversation defines chat threads and their persisted turns. The
// orchestration core never writes here; the API layer loads history before a
// query and appends both turns after it.
package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/message"
)

// DefaultTitle names a conversation created without one.
const DefaultTitle = "New conversation"

// Conversation is one chat thread owned by a user.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Active    bool      `json:"isActive"`
}

// Message is a stored turn.
type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversationId"`
	Role           message.Role   `json:"role"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Store persists conversations and their messages.
type Store interface {
	CreateConversation(ctx context.Context, conv *Conversation) error
	// ListConversations returns the user's conversations, most recently
	// updated first.
	ListConversations(ctx context.Context, userID string) ([]*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	// DeleteConversation removes the conversation and all of its messages.
	DeleteConversation(ctx context.Context, id string) error
	// AddMessage appends msg and bumps the conversation's UpdatedAt.
	AddMessage(ctx context.Context, msg *Message) error
	// Messages returns the conversation's messages oldest first.
	Messages(ctx context.Context, conversationID string) ([]*Message, error)
	Close(ctx context.Context) error
}

// NewID returns a random identifier.
func NewID() string {
	return uuid.NewString()
}

// Prepare fills in the ID, title and timestamps of a conversation about to be
// created and checks its owner.
func Prepare(conv *Conversation, now time.Time) error {
	if conv == nil {
		return fmt.Errorf("%w: conversation cannot be nil", kgperrors.ErrInvalidInput)
	}
	if strings.TrimSpace(conv.UserID) == "" {
		return fmt.Errorf("%w: userId is required", kgperrors.ErrInvalidInput)
	}
	if conv.ID == "" {
		conv.ID = NewID()
	}
	if strings.TrimSpace(conv.Title) == "" {
		conv.Title = DefaultTitle
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now
	conv.Active = true
	return nil
}

// PrepareMessage fills in the ID and timestamp of a message about to be
// stored and checks its role and content.
func PrepareMessage(msg *Message, now time.Time) error {
	if msg == nil {
		return fmt.Errorf("%w: message cannot be nil", kgperrors.ErrInvalidInput)
	}
	if msg.ConversationID == "" {
		return fmt.Errorf("%w: conversationId is required", kgperrors.ErrInvalidInput)
	}
	if !msg.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", kgperrors.ErrInvalidInput, msg.Role)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return fmt.Errorf("%w: message content is required", kgperrors.ErrInvalidInput)
	}
	if msg.ID == "" {
		msg.ID = NewID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	if msg.Metadata == nil {
		msg.Metadata = map[string]any{}
	}
	return nil
}

// NotFound returns the error stores report for an unknown conversation.
func NotFound(id string) error {
	return fmt.Errorf("%w: conversation %q", kgperrors.ErrNotFound, id)
}

// History converts stored messages into the pipeline's read-only history,
// keeping only user and assistant turns.
func History(msgs []*Message) []message.Message {
	out := make([]message.Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil || (m.Role != message.RoleUser && m.Role != message.RoleAssistant) {
			continue
		}
		out = append(out, message.New(m.Role, m.Content))
	}
	return out
}
