// Package sessionstore keeps quiz sessions between requests.
package sessionstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"yourvocab/internal/quiz"
)

// Store persists sessions and serializes work on a single session
type Store interface {
	Get(ctx context.Context, id string) (*quiz.Session, error)
	Save(ctx context.Context, s *quiz.Session) error
	// Lock blocks until the caller holds the session exclusively or ctx ends
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// Config selects and configures a store
type Config struct {
	Kind          string
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New builds the store named by cfg.Kind ("memory" or "redis")
func New(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "memory":
		return NewMemoryStore(cfg.TTL), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return NewRedisStore(client, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Kind)
	}
}
