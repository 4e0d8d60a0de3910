package service

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/EgehanKilicarslan/bienesraices/internal/config"
)

// TokenService issues one-time tokens for confirmation/reset links and signed session tokens
type TokenService interface {
	GenerateOneTimeToken() (string, error)
	GenerateSessionToken(userID uint, name string) (string, *SessionClaims, error)
	VerifySessionToken(tokenString string) (*SessionClaims, error)
}

// SessionClaims is the payload of the session cookie
type SessionClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject, 0 if the subject is malformed
func (c *SessionClaims) UserID() uint {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// Remaining returns how long the token stays valid after now
func (c *SessionClaims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

type tokenService struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// NewTokenService creates a new token service instance
func NewTokenService(cfg *config.Config) TokenService {
	return &tokenService{
		secret:     []byte(cfg.JWTSecret),
		expiration: time.Duration(cfg.SessionTokenExpiration) * time.Second,
		now:        time.Now,
	}
}

// GenerateOneTimeToken returns 32 random bytes, URL-safe so it can be embedded in a path
func (s *tokenService) GenerateOneTimeToken() (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(tokenBytes), nil
}

func (s *tokenService) GenerateSessionToken(userID uint, name string) (string, *SessionClaims, error) {
	now := s.now()
	claims := &SessionClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, claims, nil
}

func (s *tokenService) VerifySessionToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID() == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
