package database

import (
	"context"
	"log/slog"
	"time"
)

// SessionStore tracks revoked session tokens by their jti claim
type SessionStore interface {
	RevokeSession(ctx context.Context, jti string, ttl time.Duration) error
	IsSessionRevoked(ctx context.Context, jti string) (bool, error)
	Close() error
}

// NoOpSessionStore never revokes anything. Used when Redis is not available;
// logout then only clears the cookie.
type NoOpSessionStore struct{}

// NewNoOpSessionStore creates a no-op session store
func NewNoOpSessionStore(logger *slog.Logger) SessionStore {
	logger.Warn("⚠️ [SessionStore] Using no-op session store - logout will not revoke tokens server-side")
	return &NoOpSessionStore{}
}

func (s *NoOpSessionStore) RevokeSession(ctx context.Context, jti string, ttl time.Duration) error {
	return nil
}

func (s *NoOpSessionStore) IsSessionRevoked(ctx context.Context, jti string) (bool, error) {
	return false, nil
}

func (s *NoOpSessionStore) Close() error {
	return nil
}
