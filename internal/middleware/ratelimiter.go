package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter throttles failed sign-in attempts per email address
type RateLimiter interface {
	// CheckLoginAttempts reports whether another attempt is allowed and how long
	// the caller must wait otherwise
	CheckLoginAttempts(ctx context.Context, email string) (bool, time.Duration, error)

	// RecordFailedLogin counts a failed attempt inside the current window
	RecordFailedLogin(ctx context.Context, email string) error

	// ResetLoginAttempts clears the counter after a successful sign-in
	ResetLoginAttempts(ctx context.Context, email string) error
}

type redisRateLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
	logger      *slog.Logger
}

// NewRateLimiter creates a new Redis-based login limiter on an existing connection
func NewRateLimiter(client *redis.Client, maxAttempts int64, window time.Duration, logger *slog.Logger) RateLimiter {
	logger.Info("✅ [RateLimiter] Login throttling enabled",
		"max_attempts", maxAttempts,
		"window", window,
	)
	return &redisRateLimiter{
		client:      client,
		maxAttempts: maxAttempts,
		window:      window,
		logger:      logger,
	}
}

// recordFailureScript increments the counter and opens the window in one step.
// A counter left without a TTL gets one on the next failure.
var recordFailureScript = redis.NewScript(`
local attempts = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return attempts
`)

// loginKey generates the Redis key for failed attempts
// Format: rate:login:{email}
func loginKey(email string) string {
	return fmt.Sprintf("rate:login:%s", strings.ToLower(strings.TrimSpace(email)))
}

func (r *redisRateLimiter) CheckLoginAttempts(ctx context.Context, email string) (bool, time.Duration, error) {
	if r.maxAttempts <= 0 {
		return true, 0, nil
	}

	key := loginKey(email)
	count, err := r.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return true, 0, nil
	}
	if err != nil {
		r.logger.Error("❌ [RateLimiter] Failed to read login attempts", "error", err)
		// On error, allow the request but log it
		return true, 0, err
	}

	if count < r.maxAttempts {
		return true, 0, nil
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return false, r.window, nil
	}
	if ttl < 0 {
		// A counter without expiry would lock the address out for good
		r.logger.Warn("⚠️ [RateLimiter] Login counter had no expiry, restoring window", "key", key)
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			r.logger.Error("❌ [RateLimiter] Failed to restore login window", "error", err)
		}
		ttl = r.window
	}
	return false, ttl, nil
}

func (r *redisRateLimiter) RecordFailedLogin(ctx context.Context, email string) error {
	attempts, err := recordFailureScript.Run(ctx, r.client, []string{loginKey(email)}, r.window.Milliseconds()).Int64()
	if err != nil {
		r.logger.Error("❌ [RateLimiter] Failed to record login attempt", "error", err)
		return err
	}

	r.logger.Debug("🔒 [RateLimiter] Failed login recorded", "attempts", attempts)
	return nil
}

func (r *redisRateLimiter) ResetLoginAttempts(ctx context.Context, email string) error {
	return r.client.Del(ctx, loginKey(email)).Err()
}

// NoOpRateLimiter is a rate limiter that always allows requests
// Used when Redis is not available
type NoOpRateLimiter struct {
	logger *slog.Logger
}

// NewNoOpRateLimiter creates a no-op rate limiter
func NewNoOpRateLimiter(logger *slog.Logger) RateLimiter {
	logger.Warn("⚠️ [RateLimiter] Using no-op rate limiter - login throttling is disabled")
	return &NoOpRateLimiter{logger: logger}
}

func (r *NoOpRateLimiter) CheckLoginAttempts(ctx context.Context, email string) (bool, time.Duration, error) {
	return true, 0, nil
}

func (r *NoOpRateLimiter) RecordFailedLogin(ctx context.Context, email string) error {
	return nil
}

func (r *NoOpRateLimiter) ResetLoginAttempts(ctx context.Context, email string) error {
	return nil
}
