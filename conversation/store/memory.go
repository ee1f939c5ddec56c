// Package store provides conversation.Store backends: in-memory, Redis,
// MongoDB and PostgreSQL.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sweetpotato0/kgpgpt/conversation"
)

// InMemoryStore keeps conversations in process memory. It is the default
// backend and loses everything on restart.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*conversation.Conversation
	messages      map[string][]*conversation.Message
}

var _ conversation.Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		conversations: make(map[string]*conversation.Conversation),
		messages:      make(map[string][]*conversation.Message),
	}
}

// CreateConversation stores conv.
func (s *InMemoryStore) CreateConversation(ctx context.Context, conv *conversation.Conversation) error {
	if err := conversation.Prepare(conv, time.Now()); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *conv
	s.conversations[conv.ID] = &stored
	return nil
}

// ListConversations returns userID's conversations, most recently updated first.
func (s *InMemoryStore) ListConversations(ctx context.Context, userID string) ([]*conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*conversation.Conversation, 0)
	for _, c := range s.conversations {
		if c.UserID == userID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// GetConversation returns one conversation.
func (s *InMemoryStore) GetConversation(ctx context.Context, id string) (*conversation.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, conversation.NotFound(id)
	}
	cp := *c
	return &cp, nil
}

// DeleteConversation removes a conversation and its messages.
func (s *InMemoryStore) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return conversation.NotFound(id)
	}
	delete(s.conversations, id)
	delete(s.messages, id)
	return nil
}

// AddMessage appends msg to its conversation.
func (s *InMemoryStore) AddMessage(ctx context.Context, msg *conversation.Message) error {
	now := time.Now()
	if err := conversation.PrepareMessage(msg, now); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[msg.ConversationID]
	if !ok {
		return conversation.NotFound(msg.ConversationID)
	}
	stored := *msg
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], &stored)
	c.UpdatedAt = now
	return nil
}

// Messages returns a conversation's messages oldest first.
func (s *InMemoryStore) Messages(ctx context.Context, conversationID string) ([]*conversation.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return nil, conversation.NotFound(conversationID)
	}
	msgs := s.messages[conversationID]
	out := make([]*conversation.Message, len(msgs))
	for i, m := range msgs {
		cp := *m
		out[i] = &cp
	}
	return out, nil
}

// Close implements conversation.Store.
func (s *InMemoryStore) Close(ctx context.Context) error { return nil }
