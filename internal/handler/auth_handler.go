package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/EgehanKilicarslan/bienesraices/internal/config"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/service"
	"github.com/EgehanKilicarslan/bienesraices/internal/middleware"
)

// AuthHandler handles HTTP requests for authentication
type AuthHandler struct {
	service service.AuthService
	limiter middleware.RateLimiter
	cfg     *config.Config
	logger  *slog.Logger
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(service service.AuthService, limiter middleware.RateLimiter, cfg *config.Config, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}
}

// ==================== Sign In ====================

// LoginForm handles GET /auth/login
func (h *AuthHandler) LoginForm(c *gin.Context) {
	renderPage(c, http.StatusOK, "login", "Iniciar Sesión", gin.H{"Form": service.LoginInput{}})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var input service.LoginInput
	if err := c.ShouldBind(&input); err != nil {
		h.logger.Error("❌ [Handler] Invalid login request", "error", err)
		renderPage(c, http.StatusBadRequest, "login", "Iniciar Sesión", gin.H{"Form": input})
		return
	}

	ctx := c.Request.Context()
	allowed, retryAfter, err := h.limiter.CheckLoginAttempts(ctx, input.Email)
	if err != nil {
		h.logger.Warn("⚠️ [Handler] Login limiter unavailable", "error", err)
	}
	if !allowed {
		minutes := int(math.Ceil(retryAfter.Minutes()))
		h.logger.Warn("🔒 [Handler] Too many login attempts", "email", input.Email)
		c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
		renderPage(c, http.StatusTooManyRequests, "login", "Iniciar Sesión", gin.H{
			"Form":   input,
			"Errors": []string{fmt.Sprintf("Demasiados intentos, intenta de nuevo en %d minutos", minutes)},
		})
		return
	}

	_, token, err := h.service.Authenticate(input)
	if err != nil {
		if messages, ok := validationMessages(err); ok {
			renderPage(c, http.StatusBadRequest, "login", "Iniciar Sesión", gin.H{"Form": input, "Errors": messages})
			return
		}
		if errors.Is(err, service.ErrInvalidCredentials) {
			if recErr := h.limiter.RecordFailedLogin(ctx, input.Email); recErr != nil {
				h.logger.Warn("⚠️ [Handler] Failed to record login attempt", "error", recErr)
			}
			renderPage(c, http.StatusUnauthorized, "login", "Iniciar Sesión", gin.H{
				"Form":   input,
				"Errors": []string{credentialMessage(err)},
			})
			return
		}
		h.logger.Error("❌ [Handler] Login failed", "error", err)
		renderServerError(c)
		return
	}

	if err := h.limiter.ResetLoginAttempts(ctx, input.Email); err != nil {
		h.logger.Warn("⚠️ [Handler] Failed to reset login attempts", "error", err)
	}

	setSessionCookie(c, token, time.Duration(h.cfg.SessionTokenExpiration)*time.Second, h.cfg.IsProduction())
	c.Redirect(http.StatusFound, "/mis-propiedades")
}

// Logout handles POST /auth/cerrar-sesion
func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(middleware.SessionCookie); err == nil && token != "" {
		if err := h.service.Logout(c.Request.Context(), token); err != nil {
			// The cookie is still cleared below
			h.logger.Error("❌ [Handler] Failed to revoke session", "error", err)
		}
	}

	clearSessionCookie(c, h.cfg.IsProduction())
	c.Redirect(http.StatusFound, "/auth/login")
}

// ==================== Registration ====================

// RegisterForm handles GET /auth/registro
func (h *AuthHandler) RegisterForm(c *gin.Context) {
	renderPage(c, http.StatusOK, "register", "Crear Cuenta", gin.H{"Form": service.RegisterInput{}})
}

// Register handles POST /auth/registro
func (h *AuthHandler) Register(c *gin.Context) {
	var input service.RegisterInput
	if err := c.ShouldBind(&input); err != nil {
		h.logger.Error("❌ [Handler] Invalid registration request", "error", err)
		renderPage(c, http.StatusBadRequest, "register", "Crear Cuenta", gin.H{"Form": input})
		return
	}

	if _, err := h.service.Register(c.Request.Context(), input); err != nil {
		if messages, ok := validationMessages(err); ok {
			renderPage(c, http.StatusBadRequest, "register", "Crear Cuenta", gin.H{"Form": input, "Errors": messages})
			return
		}
		if errors.Is(err, service.ErrDuplicateEmail) {
			renderPage(c, http.StatusConflict, "register", "Crear Cuenta", gin.H{
				"Form":   input,
				"Errors": []string{"El usuario ya está registrado"},
			})
			return
		}
		h.logger.Error("❌ [Handler] Registration failed", "error", err)
		renderServerError(c)
		return
	}

	renderNotice(c, http.StatusCreated, "Cuenta Creada Correctamente",
		"Hemos enviado un email de confirmación, presiona en el enlace", false, false)
}

// Confirm handles GET /auth/confirmar/:token
func (h *AuthHandler) Confirm(c *gin.Context) {
	if _, err := h.service.ConfirmAccount(c.Param("token")); err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			renderNotice(c, http.StatusBadRequest, "Confirma tu cuenta",
				"Hubo un error al confirmar tu cuenta, intenta de nuevo", true, false)
			return
		}
		h.logger.Error("❌ [Handler] Account confirmation failed", "error", err)
		renderServerError(c)
		return
	}

	renderNotice(c, http.StatusOK, "Cuenta Confirmada", "La cuenta se confirmó correctamente", false, true)
}

// ==================== Password Reset ====================

// ForgotPasswordForm handles GET /auth/olvide-password
func (h *AuthHandler) ForgotPasswordForm(c *gin.Context) {
	renderPage(c, http.StatusOK, "forgot-password", "Recupera tu acceso a Bienes Raices",
		gin.H{"Form": service.ResetRequestInput{}})
}

// ForgotPassword handles POST /auth/olvide-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	const title = "Recupera tu acceso a Bienes Raices"

	var input service.ResetRequestInput
	if err := c.ShouldBind(&input); err != nil {
		h.logger.Error("❌ [Handler] Invalid password reset request", "error", err)
		renderPage(c, http.StatusBadRequest, "forgot-password", title, gin.H{"Form": input})
		return
	}

	if err := h.service.RequestPasswordReset(c.Request.Context(), input); err != nil {
		if messages, ok := validationMessages(err); ok {
			renderPage(c, http.StatusBadRequest, "forgot-password", title, gin.H{"Form": input, "Errors": messages})
			return
		}
		if errors.Is(err, service.ErrUnknownAccount) {
			renderPage(c, http.StatusNotFound, "forgot-password", title, gin.H{
				"Form":   input,
				"Errors": []string{"El email no pertenece a ningún usuario"},
			})
			return
		}
		h.logger.Error("❌ [Handler] Password reset request failed", "error", err)
		renderServerError(c)
		return
	}

	renderNotice(c, http.StatusOK, "Reestablece tu Password",
		"Hemos enviado un email con las instrucciones", false, false)
}

// ResetPasswordForm handles GET /auth/olvide-password/:token
func (h *AuthHandler) ResetPasswordForm(c *gin.Context) {
	if _, err := h.service.ValidateResetToken(c.Param("token")); err != nil {
		h.invalidResetToken(c, err)
		return
	}

	renderPage(c, http.StatusOK, "reset-password", "Reestablece tu Password", nil)
}

// ResetPassword handles POST /auth/olvide-password/:token
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var input service.NewPasswordInput
	if err := c.ShouldBind(&input); err != nil {
		h.logger.Error("❌ [Handler] Invalid new password request", "error", err)
		renderPage(c, http.StatusBadRequest, "reset-password", "Reestablece tu Password", nil)
		return
	}

	if err := h.service.CompletePasswordReset(c.Param("token"), input); err != nil {
		if messages, ok := validationMessages(err); ok {
			renderPage(c, http.StatusBadRequest, "reset-password", "Reestablece tu Password", gin.H{"Errors": messages})
			return
		}
		h.invalidResetToken(c, err)
		return
	}

	renderNotice(c, http.StatusOK, "Password Reestablecido",
		"El password se guardó correctamente", false, true)
}

func (h *AuthHandler) invalidResetToken(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidToken) {
		renderNotice(c, http.StatusBadRequest, "Reestablece tu Password",
			"Hubo un error al validar tu información, intenta de nuevo", true, false)
		return
	}
	h.logger.Error("❌ [Handler] Password reset failed", "error", err)
	renderServerError(c)
}

// credentialMessage picks the text for a rejected sign-in. The status code is the same for every cause.
func credentialMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrAccountUnconfirmed):
		return "Tu cuenta no ha sido confirmada"
	case errors.Is(err, service.ErrAccountNotFound):
		return "El usuario no existe"
	case errors.Is(err, service.ErrWrongPassword):
		return "El password es incorrecto"
	default:
		return "Credenciales incorrectas"
	}
}
