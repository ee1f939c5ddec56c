// Package message defines conversation turns shared by the pipeline, the
// conversation store and the API layer.
package message

import (
	"fmt"
	"strings"
)

// Role represents who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is one prior turn of a conversation. The pipeline treats a history
// of messages as read-only input.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// New creates a message.
func New(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// Recent returns the last n messages in their original order. The returned
// slice shares no backing array with history.
func Recent(history []Message, n int) []Message {
	if n <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	out := make([]Message, len(history))
	copy(out, history)
	return out
}

// Newest returns up to n messages, most recent first.
func Newest(history []Message, n int) []Message {
	recent := Recent(history, n)
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return recent
}

// Speaker returns the label used when a turn is shown to a model.
func (m Message) Speaker() string {
	switch m.Role {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "You (Assistant)"
	default:
		return "System"
	}
}

// Validate checks every turn has a known role and some content.
func Validate(history []Message) error {
	for i, m := range history {
		if !m.Role.Valid() {
			return fmt.Errorf("history[%d]: unknown role %q", i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("history[%d]: empty content", i)
		}
	}
	return nil
}
