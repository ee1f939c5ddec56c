package enricher

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sweetpotato0/kgpgpt/conversation"
	"github.com/sweetpotato0/kgpgpt/conversation/store"
	kgperrors "github.com/sweetpotato0/kgpgpt/errors"
	"github.com/sweetpotato0/kgpgpt/message"
	"github.com/sweetpotato0/kgpgpt/middleware"
	"github.com/sweetpotato0/kgpgpt/rag/agentic"
)

func TestContextEnricher(t *testing.T) {
	m := NewContextEnricher(func(c *middleware.Context) error {
		c.Metadata["enriched"] = true
		return nil
	})
	ctx := middleware.NewContext(context.Background(), nil)
	if err := m.Execute(ctx, func(*middleware.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if ctx.Metadata["enriched"] != true {
		t.Fatal("enricher not applied")
	}

	boom := errors.New("boom")
	failing := NewContextEnricher(func(*middleware.Context) error { return boom })
	called := false
	err := failing.Execute(ctx, func(*middleware.Context) error { called = true; return nil })
	if !errors.Is(err, boom) || called {
		t.Fatalf("err = %v called = %v", err, called)
	}
}

func TestLoadHistory(t *testing.T) {
	bg := context.Background()
	s := store.NewInMemoryStore()
	conv := &conversation.Conversation{UserID: "u"}
	if err := s.CreateConversation(bg, conv); err != nil {
		t.Fatal(err)
	}
	empty := &conversation.Conversation{UserID: "u"}
	if err := s.CreateConversation(bg, empty); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		role := message.RoleUser
		if i%2 == 1 {
			role = message.RoleAssistant
		}
		if err := s.AddMessage(bg, &conversation.Message{ConversationID: conv.ID, Role: role, Content: fmt.Sprintf("turn %d", i)}); err != nil {
			t.Fatal(err)
		}
	}
	load := LoadHistory(s, 4)

	t.Run("loads the last turns", func(t *testing.T) {
		ctx := middleware.NewContext(bg, &agentic.Request{Query: "q"})
		ctx.ConversationID = conv.ID
		if err := load(ctx); err != nil {
			t.Fatal(err)
		}
		h := ctx.Request.History
		if len(h) != 4 || h[0].Content != "turn 2" || h[3].Content != "turn 5" {
			t.Fatalf("history = %+v", h)
		}
		if ctx.Request.IsFirstMessage {
			t.Fatal("existing conversation flagged as first message")
		}
	})

	t.Run("keeps caller history", func(t *testing.T) {
		own := []message.Message{message.New(message.RoleUser, "mine")}
		ctx := middleware.NewContext(bg, &agentic.Request{Query: "q", History: own})
		ctx.ConversationID = conv.ID
		if err := load(ctx); err != nil {
			t.Fatal(err)
		}
		if len(ctx.Request.History) != 1 {
			t.Fatalf("history replaced: %+v", ctx.Request.History)
		}
	})

	t.Run("empty conversation is a first message", func(t *testing.T) {
		ctx := middleware.NewContext(bg, &agentic.Request{Query: "q"})
		ctx.ConversationID = empty.ID
		if err := load(ctx); err != nil {
			t.Fatal(err)
		}
		if !ctx.Request.IsFirstMessage || len(ctx.Request.History) != 0 {
			t.Fatalf("request = %+v", ctx.Request)
		}
	})

	t.Run("unknown conversation", func(t *testing.T) {
		ctx := middleware.NewContext(bg, &agentic.Request{Query: "q"})
		ctx.ConversationID = "missing"
		if err := load(ctx); !errors.Is(err, kgperrors.ErrNotFound) {
			t.Fatalf("err = %v", err)
		}
	})
}
