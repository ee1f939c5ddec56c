package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/sweetpotato0/kgpgpt/conversation"
)

// PostgresStore keeps conversations and messages in two tables; message
// metadata is JSONB.
type PostgresStore struct {
	db *sql.DB
}

var _ conversation.Store = (*PostgresStore)(nil)

// NewPostgresStore connects with a lib/pq DSN, pings and creates the tables.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	store := &PostgresStore{db: db}
	if err := store.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) createTables(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS conversations (
		id VARCHAR(64) PRIMARY KEY,
		user_id VARCHAR(255) NOT NULL,
		title TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_user_updated ON conversations(user_id, updated_at DESC);
	CREATE TABLE IF NOT EXISTS conversation_messages (
		id VARCHAR(64) PRIMARY KEY,
		conversation_id VARCHAR(64) NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		role VARCHAR(16) NOT NULL,
		content TEXT NOT NULL,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversation_messages_conv ON conversation_messages(conversation_id, created_at);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

// CreateConversation upserts conv.
func (s *PostgresStore) CreateConversation(ctx context.Context, conv *conversation.Conversation) error {
	if err := conversation.Prepare(conv, time.Now()); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO conversations (id, user_id, title, created_at, updated_at, is_active)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE SET
		title = EXCLUDED.title,
		updated_at = EXCLUDED.updated_at,
		is_active = EXCLUDED.is_active
	`, conv.ID, conv.UserID, conv.Title, conv.CreatedAt, conv.UpdatedAt, conv.Active)
	if err != nil {
		return fmt.Errorf("failed to store conversation in PostgreSQL: %w", err)
	}
	return nil
}

// ListConversations returns userID's conversations, most recently updated first.
func (s *PostgresStore) ListConversations(ctx context.Context, userID string) ([]*conversation.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, user_id, title, created_at, updated_at, is_active
	FROM conversations
	WHERE user_id = $1
	ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	out := make([]*conversation.Conversation, 0)
	for rows.Next() {
		conv := &conversation.Conversation{}
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt, &conv.Active); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		out = append(out, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return out, nil
}

// GetConversation returns one conversation.
func (s *PostgresStore) GetConversation(ctx context.Context, id string) (*conversation.Conversation, error) {
	conv := &conversation.Conversation{}
	err := s.db.QueryRowContext(ctx, `
	SELECT id, user_id, title, created_at, updated_at, is_active
	FROM conversations WHERE id = $1`, id).
		Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt, &conv.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, conversation.NotFound(id)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return conv, nil
}

// DeleteConversation removes a conversation; its messages cascade.
func (s *PostgresStore) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return conversation.NotFound(id)
	}
	return nil
}

// AddMessage inserts msg and bumps the conversation in one transaction.
func (s *PostgresStore) AddMessage(ctx context.Context, msg *conversation.Message) error {
	now := time.Now()
	if err := conversation.PrepareMessage(msg, now); err != nil {
		return err
	}
	metadataJSON, err := json.Marshal(msg.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "UPDATE conversations SET updated_at = $1 WHERE id = $2", now, msg.ConversationID)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return conversation.NotFound(msg.ConversationID)
	}
	_, err = tx.ExecContext(ctx, `
	INSERT INTO conversation_messages (id, conversation_id, role, content, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`,
		msg.ID, msg.ConversationID, string(msg.Role), msg.Content, string(metadataJSON), msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store message in PostgreSQL: %w", err)
	}
	return tx.Commit()
}

// Messages returns a conversation's messages oldest first.
func (s *PostgresStore) Messages(ctx context.Context, conversationID string) ([]*conversation.Message, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, conversation_id, role, content, metadata, created_at
	FROM conversation_messages
	WHERE conversation_id = $1
	ORDER BY created_at ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	out := make([]*conversation.Message, 0)
	for rows.Next() {
		msg := &conversation.Message{}
		var metadataJSON sql.NullString
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Role, &msg.Content, &metadataJSON, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Metadata = make(map[string]any)
		if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "{}" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return out, nil
}

// Close closes the PostgreSQL connection
func (s *PostgresStore) Close(context.Context) error {
	return s.db.Close()
}

// Ping checks if PostgreSQL connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
