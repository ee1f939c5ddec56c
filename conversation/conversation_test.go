package conversation

import (
	"errors"
	"testing"
	"time"

	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/message"
)

func TestPrepare(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	conv := &Conversation{UserID: "u1"}
	if err := Prepare(conv, now); err != nil {
		t.Fatal(err)
	}
	if conv.ID == "" || conv.Title != DefaultTitle || !conv.Active {
		t.Fatalf("conversation = %+v", conv)
	}
	if !conv.CreatedAt.Equal(now) || !conv.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps not set: %+v", conv)
	}

	if err := Prepare(&Conversation{}, now); !errors.Is(err, kgperrors.ErrInvalidInput) {
		t.Fatalf("missing user: err = %v", err)
	}
}

func TestPrepareMessage(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		msg     *Message
		wantErr bool
	}{
		{"valid", &Message{ConversationID: "c", Role: message.RoleUser, Content: "hi"}, false},
		{"nil", nil, true},
		{"no conversation", &Message{Role: message.RoleUser, Content: "hi"}, true},
		{"bad role", &Message{ConversationID: "c", Role: "bot", Content: "hi"}, true},
		{"blank content", &Message{ConversationID: "c", Role: message.RoleUser, Content: "  "}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PrepareMessage(tt.msg, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (tt.msg.ID == "" || tt.msg.Metadata == nil) {
				t.Fatalf("message not filled in: %+v", tt.msg)
			}
		})
	}
}

func TestHistorySkipsSystemTurns(t *testing.T) {
	msgs := []*Message{
		{Role: message.RoleSystem, Content: "boot"},
		{Role: message.RoleUser, Content: "who is the director"},
		nil,
		{Role: message.RoleAssistant, Content: "Professor X"},
	}
	got := History(msgs)
	if len(got) != 2 || got[0].Role != message.RoleUser || got[1].Content != "Professor X" {
		t.Fatalf("History = %+v", got)
	}
}
