package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sweetpotato0/kgpgpt/conversation"
)

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string        // Redis server address (e.g., "localhost:6379")
	Password string        // Redis password (if any)
	DB       int           // Redis database number
	Prefix   string        // Key prefix for namespacing
	TTL      time.Duration // Time-to-live for keys (0 means no expiration)
}

// DefaultRedisConfig returns local development settings.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:   "localhost:6379",
		Prefix: "kgpgpt:",
	}
}

// RedisStore keeps each conversation as a JSON value, its messages as a list
// of JSON values and, per user, a sorted set of conversation IDs scored by
// last update.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ conversation.Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and pings it.
func NewRedisStore(ctx context.Context, config *RedisConfig) (*RedisStore, error) {
	if config == nil {
		config = DefaultRedisConfig()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return &RedisStore{client: client, prefix: config.Prefix, ttl: config.TTL}, nil
}

func (s *RedisStore) conversationKey(id string) string {
	return s.prefix + "conv:" + id
}

func (s *RedisStore) messagesKey(id string) string {
	return s.prefix + "conv:" + id + ":messages"
}

func (s *RedisStore) userKey(userID string) string {
	return s.prefix + "user:" + userID + ":conversations"
}

// CreateConversation stores conv and indexes it under its user.
func (s *RedisStore) CreateConversation(ctx context.Context, conv *conversation.Conversation) error {
	if err := conversation.Prepare(conv, time.Now()); err != nil {
		return err
	}
	return s.saveConversation(ctx, conv)
}

func (s *RedisStore) saveConversation(ctx context.Context, conv *conversation.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.conversationKey(conv.ID), data, s.ttl)
		pipe.ZAdd(ctx, s.userKey(conv.UserID), redis.Z{
			Score:  float64(conv.UpdatedAt.UnixMilli()),
			Member: conv.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store conversation in Redis: %w", err)
	}
	return nil
}

// ListConversations returns userID's conversations, most recently updated
// first. Index entries whose value expired are pruned.
func (s *RedisStore) ListConversations(ctx context.Context, userID string) ([]*conversation.Conversation, error) {
	ids, err := s.client.ZRevRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	out := make([]*conversation.Conversation, 0, len(ids))
	for _, id := range ids {
		conv, err := s.GetConversation(ctx, id)
		if err != nil {
			if errors.Is(err, redis.Nil) || isNotFound(err) {
				s.client.ZRem(ctx, s.userKey(userID), id)
				continue
			}
			return nil, err
		}
		out = append(out, conv)
	}
	return out, nil
}

// GetConversation returns one conversation.
func (s *RedisStore) GetConversation(ctx context.Context, id string) (*conversation.Conversation, error) {
	data, err := s.client.Get(ctx, s.conversationKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, conversation.NotFound(id)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	var conv conversation.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}
	return &conv, nil
}

// DeleteConversation removes a conversation, its messages and its index entry.
func (s *RedisStore) DeleteConversation(ctx context.Context, id string) error {
	conv, err := s.GetConversation(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.conversationKey(id), s.messagesKey(id))
		pipe.ZRem(ctx, s.userKey(conv.UserID), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// AddMessage appends msg and bumps the conversation.
func (s *RedisStore) AddMessage(ctx context.Context, msg *conversation.Message) error {
	now := time.Now()
	if err := conversation.PrepareMessage(msg, now); err != nil {
		return err
	}
	conv, err := s.GetConversation(ctx, msg.ConversationID)
	if err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	key := s.messagesKey(msg.ConversationID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store message in Redis: %w", err)
	}
	conv.UpdatedAt = now
	return s.saveConversation(ctx, conv)
}

// Messages returns a conversation's messages oldest first.
func (s *RedisStore) Messages(ctx context.Context, conversationID string) ([]*conversation.Message, error) {
	exists, err := s.client.Exists(ctx, s.conversationKey(conversationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check conversation: %w", err)
	}
	if exists == 0 {
		return nil, conversation.NotFound(conversationID)
	}
	raw, err := s.client.LRange(ctx, s.messagesKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	out := make([]*conversation.Message, 0, len(raw))
	for _, item := range raw {
		var msg conversation.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		out = append(out, &msg)
	}
	return out, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close(context.Context) error {
	return s.client.Close()
}

// Ping checks if Redis connection is alive
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
