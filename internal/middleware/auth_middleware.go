package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EgehanKilicarslan/bienesraices/internal/database/service"
)

// SessionCookie is the cookie carrying the signed session token
const SessionCookie = "_token"

// AuthMiddleware resolves the caller's identity from the session cookie
type AuthMiddleware struct {
	service service.AuthService
	logger  *slog.Logger
}

// NewAuthMiddleware creates a new auth middleware instance
func NewAuthMiddleware(service service.AuthService, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		service: service,
		logger:  logger,
	}
}

// Identify sets userID and userName in context when a valid session cookie is present.
// Anonymous requests pass through untouched.
func (m *AuthMiddleware) Identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(SessionCookie)
		if err != nil || tokenString == "" {
			c.Next()
			return
		}

		claims, err := m.service.ValidateSession(c.Request.Context(), tokenString)
		if err != nil {
			m.logger.Debug("⚠️ [Middleware] Ignoring invalid session cookie", "error", err)
			c.Next()
			return
		}

		c.Set("userID", claims.UserID())
		c.Set("userName", claims.Name)
		c.Next()
	}
}

// RequireAuth redirects anonymous callers to the login page
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUserID(c) == 0 {
			m.logger.Warn("⚠️ [Middleware] Anonymous access to protected page", "path", c.Request.URL.Path)
			c.Redirect(http.StatusFound, "/auth/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUserID returns the authenticated user's ID or 0 for anonymous callers
func CurrentUserID(c *gin.Context) uint {
	if id, ok := c.Get("userID"); ok {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

// CurrentUserName returns the session display name, empty when anonymous
func CurrentUserName(c *gin.Context) string {
	return c.GetString("userName")
}
