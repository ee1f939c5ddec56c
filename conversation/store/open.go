package store

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/kgpgpt/config"
	"github.com/sweetpotato0/kgpgpt/conversation"
)

// Open returns the backend named by cfg.History.Backend.
func Open(ctx context.Context, cfg *config.Config) (conversation.Store, error) {
	switch cfg.History.Backend {
	case "", "memory":
		return NewInMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, &RedisConfig{
			Addr:     cfg.History.RedisAddr,
			Password: cfg.History.RedisPassword,
			DB:       cfg.History.RedisDB,
			Prefix:   cfg.History.RedisPrefix,
		})
	case "mongo":
		return NewMongoStore(ctx, &MongoConfig{
			URI:      cfg.History.MongoURI,
			Database: cfg.History.MongoDatabase,
		})
	case "postgres":
		return NewPostgresStore(ctx, cfg.Vector.Postgres.DSN())
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}
}
