// Package pg stores the knowledge base in PostgreSQL using the pgvector
// extension.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"

	"github.com/sweetpotato0/kgpgpt/vector"
)

// Config holds pgvector connection and table settings.
type Config struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	SSLMode   string
	TableName string
}

// DefaultConfig returns local development settings.
func DefaultConfig() *Config {
	return &Config{
		Host:      "127.0.0.1",
		Port:      5432,
		User:      "postgres",
		DBName:    "kgpgpt",
		SSLMode:   "disable",
		TableName: "kgp_knowledge_base",
	}
}

// DSN renders the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Store implements vector.Store on a pgvector table.
type Store struct {
	db    *sql.DB
	table string
}

// New connects and pings the database. The table is created lazily by
// EnsureCollection.
func New(ctx context.Context, config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if !validIdentifier(config.TableName) {
		return nil, fmt.Errorf("invalid table name %q", config.TableName)
	}

	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}
	return &Store{db: db, table: config.TableName}, nil
}

// NewWithDB wraps an existing connection.
func NewWithDB(db *sql.DB, table string) (*Store, error) {
	if !validIdentifier(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{db: db, table: table}, nil
}

// EnsureCollection enables the extension and creates the table.
func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTableSQL := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(255) PRIMARY KEY,
		payload JSONB NOT NULL DEFAULT '{}'::jsonb,
		embedding vector(%d) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`, s.table, dimension)
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

// Upsert writes points in one transaction.
func (s *Store) Upsert(ctx context.Context, points []vector.Point) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
	INSERT INTO %s (id, payload, embedding)
	VALUES ($1, $2::jsonb, $3::vector)
	ON CONFLICT (id) DO UPDATE SET
		payload = EXCLUDED.payload,
		embedding = EXCLUDED.embedding,
		created_at = CURRENT_TIMESTAMP
	`, s.table)

	for _, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload for %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query, p.ID, string(payload), vectorLiteral(p.Vector)); err != nil {
			return fmt.Errorf("failed to upsert point %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// Search orders by cosine distance and reports 1 - distance as the score.
func (s *Store) Search(ctx context.Context, query []float32, limit int) ([]vector.Hit, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}
	if limit <= 0 {
		limit = 10
	}

	sqlText := fmt.Sprintf(`
	SELECT id, payload, 1 - (embedding <=> $1::vector) AS score
	FROM %s
	ORDER BY embedding <=> $1::vector
	LIMIT $2
	`, s.table)

	rows, err := s.db.QueryContext(ctx, sqlText, vectorLiteral(query), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search embeddings: %w", err)
	}
	defer rows.Close()

	hits := make([]vector.Hit, 0, limit)
	for rows.Next() {
		var (
			id      string
			payload []byte
			score   float64
		)
		if err := rows.Scan(&id, &payload, &score); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		hit := vector.Hit{ID: id, Score: score, Payload: map[string]any{}}
		if err := json.Unmarshal(payload, &hit.Payload); err != nil {
			return nil, fmt.Errorf("failed to decode payload for %s: %w", id, err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating hits: %w", err)
	}
	return hits, nil
}

// Status is green when the table exists.
func (s *Store) Status(ctx context.Context) (string, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", s.table).Scan(&exists)
	if err != nil {
		return "", fmt.Errorf("failed to check table: %w", err)
	}
	if !exists {
		return "missing", nil
	}
	return vector.StatusReady, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func vectorLiteral(vec []float32) string {
	parts := make([]string, len(vec))
	for i, v := range vec {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
