package service_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgehanKilicarslan/bienesraices/internal/database/service"
)

func TestTokenService_OneTimeToken(t *testing.T) {
	svc := service.NewTokenService(testConfig())

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		token, err := svc.GenerateOneTimeToken()
		require.NoError(t, err)
		assert.Len(t, token, 43)
		assert.NotContains(t, token, "/")
		assert.NotContains(t, token, "+")
		assert.False(t, seen[token], "token repeated")
		seen[token] = true
	}
}

func TestTokenService_SessionToken(t *testing.T) {
	svc := service.NewTokenService(testConfig())

	token, claims, err := svc.GenerateSessionToken(42, "Alice")
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID())
	assert.NotEmpty(t, claims.ID)

	verified, err := svc.VerifySessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), verified.UserID())
	assert.Equal(t, "Alice", verified.Name)
	assert.Equal(t, claims.ID, verified.ID)
}

func TestTokenService_VerifyRejects(t *testing.T) {
	cfg := testConfig()
	svc := service.NewTokenService(cfg)

	otherCfg := testConfig()
	otherCfg.JWTSecret = "other-secret"
	foreign, _, err := service.NewTokenService(otherCfg).GenerateSessionToken(1, "Mallory")
	require.NoError(t, err)

	expiredCfg := testConfig()
	expiredCfg.SessionTokenExpiration = -60
	expired, _, err := service.NewTokenService(expiredCfg).GenerateSessionToken(1, "Alice")
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "1", "exp": 9999999999}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"wrong secret", foreign},
		{"expired", expired},
		{"unsigned", noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.VerifySessionToken(tt.token)
			assert.ErrorIs(t, err, service.ErrInvalidToken)
		})
	}
}
