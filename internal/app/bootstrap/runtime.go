// Package bootstrap wires configuration into running collaborators. Both
// binaries (the HTTP server and the console agent) share this package so a
// deployment difference is always a config difference.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/smiledental/reception-agent/internal/config"
	"github.com/smiledental/reception-agent/internal/conversation"
	"github.com/smiledental/reception-agent/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildStateStore returns the session state store: Redis-backed when a Redis
// client is available, otherwise in-memory. In-memory sessions do not survive
// a restart.
func BuildStateStore(redisClient *redis.Client, logger *logging.Logger) conversation.StateStore {
	if redisClient != nil {
		return conversation.NewRedisStateStore(redisClient)
	}
	if logger != nil {
		logger.Warn("no redis configured, session state is in-memory only")
	}
	return conversation.NewMemoryStateStore()
}

// BuildPostgres opens and pings the transcript database. A blank DATABASE_URL
// disables persistence and returns nil without error.
func BuildPostgres(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*sql.DB, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	if logger != nil {
		logger.Info("transcript persistence enabled")
	}
	return db, nil
}

// BuildTranscriptStore returns the transcript store, nil when db is nil.
func BuildTranscriptStore(db *sql.DB) *conversation.TranscriptStore {
	return conversation.NewTranscriptStore(db)
}
