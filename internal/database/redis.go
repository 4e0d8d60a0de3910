package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/EgehanKilicarslan/bienesraices/internal/config"
)

// RedisClient wraps the redis client with helper methods for session revocation
type RedisClient struct {
	client *redis.Client
	logger *slog.Logger
	cfg    *config.Config
}

// NewRedisClient creates a new Redis client instance
func NewRedisClient(cfg *config.Config, logger *slog.Logger) (*RedisClient, error) {
	logger.Info("🔌 [Redis] Connecting to Redis...",
		"host", cfg.RedisHost,
		"port", cfg.RedisPort,
		"db", cfg.RedisDB,
	)

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       int(cfg.RedisDB),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("✅ [Redis] Redis connection established")

	return &RedisClient{
		client: client,
		logger: logger,
		cfg:    cfg,
	}, nil
}

// NewRedisClientForTesting creates a Redis client with a provided redis.Client (for testing)
func NewRedisClientForTesting(client *redis.Client, cfg *config.Config, logger *slog.Logger) *RedisClient {
	return &RedisClient{
		client: client,
		logger: logger,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// revokedKey generates a Redis key for a revoked session token
func revokedKey(jti string) string {
	return fmt.Sprintf("session:%s:revoked", jti)
}

// RevokeSession marks a session token as revoked until it would have expired anyway
func (r *RedisClient) RevokeSession(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}

	if err := r.client.Set(ctx, revokedKey(jti), "1", ttl).Err(); err != nil {
		r.logger.Error("❌ [Redis] Failed to revoke session",
			"jti", jti,
			"error", err,
		)
		return err
	}

	r.logger.Debug("🔒 [Redis] Session revoked",
		"jti", jti,
		"ttl", ttl,
	)

	return nil
}

// IsSessionRevoked reports whether the session token was revoked by a logout
func (r *RedisClient) IsSessionRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}

	n, err := r.client.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		r.logger.Error("❌ [Redis] Failed to check session revocation",
			"jti", jti,
			"error", err,
		)
		return false, err
	}

	return n > 0, nil
}

// GetClient returns the underlying Redis client (for advanced use cases)
func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}
