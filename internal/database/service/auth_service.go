package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/EgehanKilicarslan/bienesraices/internal/config"
	"github.com/EgehanKilicarslan/bienesraices/internal/database"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/models"
	"github.com/EgehanKilicarslan/bienesraices/internal/database/repository"
	"github.com/EgehanKilicarslan/bienesraices/internal/mail"
	"github.com/EgehanKilicarslan/bienesraices/internal/validation"
)

// AuthService defines the interface for authentication business logic
type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	ConfirmAccount(token string) (*models.User, error)
	Authenticate(input LoginInput) (*models.User, string, error)
	Logout(ctx context.Context, sessionToken string) error
	ValidateSession(ctx context.Context, sessionToken string) (*SessionClaims, error)

	// Password reset
	RequestPasswordReset(ctx context.Context, input ResetRequestInput) error
	ValidateResetToken(token string) (*models.User, error)
	CompletePasswordReset(token string, input NewPasswordInput) error
}

// RegisterInput is the sign-up form
type RegisterInput struct {
	Name                 string `form:"nombre" label:"El nombre" validate:"required"`
	Email                string `form:"email" label:"El email" validate:"required,email"`
	Password             string `form:"password" label:"El password" validate:"required,min=6"`
	PasswordConfirmation string `form:"repetir_password" label:"La confirmación del password" validate:"eqfield=Password"`
}

// LoginInput is the sign-in form
type LoginInput struct {
	Email    string `form:"email" label:"El email" validate:"required,email"`
	Password string `form:"password" label:"El password" validate:"required"`
}

// ResetRequestInput is the forgot-password form
type ResetRequestInput struct {
	Email string `form:"email" label:"El email" validate:"required,email"`
}

// NewPasswordInput is the form behind the reset link
type NewPasswordInput struct {
	Password string `form:"password" label:"El password" validate:"required,min=6"`
}

type authService struct {
	userRepo  repository.UserRepository
	tokens    TokenService
	sessions  database.SessionStore
	mailer    mail.Dispatcher
	validator *validation.Validator
	cfg       *config.Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuthService creates a new authentication service instance
func NewAuthService(
	userRepo repository.UserRepository,
	tokens TokenService,
	sessions database.SessionStore,
	mailer mail.Dispatcher,
	validator *validation.Validator,
	cfg *config.Config,
	logger *slog.Logger,
) AuthService {
	return &authService{
		userRepo:  userRepo,
		tokens:    tokens,
		sessions:  sessions,
		mailer:    mailer,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// ==================== Registration ====================

func (s *authService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)

	s.logger.Info("📝 [AuthService] Registration attempt", "email", input.Email)

	if err := newValidationError(s.validator.Struct(input)); err != nil {
		s.logger.Warn("⚠️ [AuthService] Registration input rejected", "email", input.Email)
		return nil, err
	}

	existingUser, err := s.userRepo.FindByEmail(input.Email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return nil, err
	}
	if existingUser != nil {
		s.logger.Warn("⚠️ [AuthService] Email already registered", "email", input.Email)
		return nil, ErrDuplicateEmail
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to hash password", "error", err)
		return nil, err
	}

	user := &models.User{
		Name:     input.Name,
		Email:    input.Email,
		Password: string(hashedPassword),
	}
	if err := s.assignToken(user); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			// Lost a race with a concurrent registration
			return nil, ErrDuplicateEmail
		}
		s.logger.Error("❌ [AuthService] Failed to create user", "error", err)
		return nil, err
	}

	// The account stays even if the email cannot be handed off
	msg, err := mail.ConfirmationMessage(s.cfg.BackendURL, user.Name, user.Email, *user.Token)
	if err == nil {
		err = s.mailer.Dispatch(ctx, msg)
	}
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to dispatch confirmation email", "user_id", user.ID, "error", err)
	}

	s.logger.Info("✅ [AuthService] User registered successfully", "user_id", user.ID)
	return user, nil
}

func (s *authService) ConfirmAccount(token string) (*models.User, error) {
	s.logger.Info("📬 [AuthService] Account confirmation attempt")

	user, err := s.findByPendingToken(token)
	if err != nil {
		return nil, err
	}

	user.Confirmed = true
	user.ClearToken()
	if err := s.userRepo.Update(user); err != nil {
		s.logger.Error("❌ [AuthService] Failed to confirm account", "user_id", user.ID, "error", err)
		return nil, err
	}

	s.logger.Info("✅ [AuthService] Account confirmed", "user_id", user.ID)
	return user, nil
}

// ==================== Sessions ====================

func (s *authService) Authenticate(input LoginInput) (*models.User, string, error) {
	input.Email = strings.TrimSpace(input.Email)

	s.logger.Info("🔐 [AuthService] Login attempt", "email", input.Email)

	if err := newValidationError(s.validator.Struct(input)); err != nil {
		return nil, "", err
	}

	user, err := s.userRepo.FindByEmail(input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Warn("⚠️ [AuthService] User not found", "email", input.Email)
			return nil, "", fmt.Errorf("%w: %w", ErrInvalidCredentials, ErrAccountNotFound)
		}
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return nil, "", err
	}

	if !user.Confirmed {
		s.logger.Warn("⚠️ [AuthService] Account not confirmed", "user_id", user.ID)
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidCredentials, ErrAccountUnconfirmed)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		s.logger.Warn("⚠️ [AuthService] Invalid password", "user_id", user.ID)
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidCredentials, ErrWrongPassword)
	}

	token, _, err := s.tokens.GenerateSessionToken(user.ID, user.Name)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to generate session token", "error", err)
		return nil, "", err
	}

	s.logger.Info("✅ [AuthService] User logged in successfully", "user_id", user.ID)
	return user, token, nil
}

// Logout revokes the session server-side. An invalid token is already unusable, so it is not an error.
func (s *authService) Logout(ctx context.Context, sessionToken string) error {
	claims, err := s.tokens.VerifySessionToken(sessionToken)
	if err != nil {
		return nil
	}

	if err := s.sessions.RevokeSession(ctx, claims.ID, claims.Remaining(s.now())); err != nil {
		s.logger.Error("❌ [AuthService] Failed to revoke session", "user_id", claims.UserID(), "error", err)
		return err
	}

	s.logger.Info("👋 [AuthService] User logged out", "user_id", claims.UserID())
	return nil
}

// ValidateSession verifies the cookie and checks it was not revoked by a logout.
// A failing revocation store does not lock users out.
func (s *authService) ValidateSession(ctx context.Context, sessionToken string) (*SessionClaims, error) {
	claims, err := s.tokens.VerifySessionToken(sessionToken)
	if err != nil {
		return nil, err
	}

	revoked, err := s.sessions.IsSessionRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Warn("⚠️ [AuthService] Could not check session revocation", "error", err)
		return claims, nil
	}
	if revoked {
		return nil, ErrSessionRevoked
	}
	return claims, nil
}

// ==================== Password Reset ====================

func (s *authService) RequestPasswordReset(ctx context.Context, input ResetRequestInput) error {
	input.Email = strings.TrimSpace(input.Email)

	s.logger.Info("🔑 [AuthService] Password reset requested", "email", input.Email)

	if err := newValidationError(s.validator.Struct(input)); err != nil {
		return err
	}

	user, err := s.userRepo.FindByEmail(input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Warn("⚠️ [AuthService] Password reset for unknown email", "email", input.Email)
			return ErrUnknownAccount
		}
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return err
	}

	if err := s.assignToken(user); err != nil {
		return err
	}
	if err := s.userRepo.Update(user); err != nil {
		s.logger.Error("❌ [AuthService] Failed to store reset token", "user_id", user.ID, "error", err)
		return err
	}

	msg, err := mail.PasswordResetMessage(s.cfg.BackendURL, user.Name, user.Email, *user.Token)
	if err == nil {
		err = s.mailer.Dispatch(ctx, msg)
	}
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to dispatch reset email", "user_id", user.ID, "error", err)
	}

	s.logger.Info("✅ [AuthService] Password reset token issued", "user_id", user.ID)
	return nil
}

func (s *authService) ValidateResetToken(token string) (*models.User, error) {
	return s.findByPendingToken(token)
}

func (s *authService) CompletePasswordReset(token string, input NewPasswordInput) error {
	s.logger.Info("🔑 [AuthService] Password reset attempt")

	if err := newValidationError(s.validator.Struct(input)); err != nil {
		return err
	}

	user, err := s.findByPendingToken(token)
	if err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to hash password", "error", err)
		return err
	}

	user.Password = string(hashedPassword)
	user.ClearToken()
	if err := s.userRepo.Update(user); err != nil {
		s.logger.Error("❌ [AuthService] Failed to store new password", "user_id", user.ID, "error", err)
		return err
	}

	s.logger.Info("✅ [AuthService] Password reset completed", "user_id", user.ID)
	return nil
}

// ==================== Helpers ====================

// assignToken sets a fresh one-time token, with an expiry when ONE_TIME_TOKEN_TTL > 0
func (s *authService) assignToken(user *models.User) error {
	token, err := s.tokens.GenerateOneTimeToken()
	if err != nil {
		s.logger.Error("❌ [AuthService] Failed to generate one-time token", "error", err)
		return err
	}

	user.Token = &token
	user.TokenExpiresAt = nil
	if s.cfg.OneTimeTokenTTL > 0 {
		expiresAt := s.now().Add(time.Duration(s.cfg.OneTimeTokenTTL) * time.Second)
		user.TokenExpiresAt = &expiresAt
	}
	return nil
}

func (s *authService) findByPendingToken(token string) (*models.User, error) {
	user, err := s.userRepo.FindByToken(token)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.logger.Warn("⚠️ [AuthService] Unknown one-time token")
			return nil, ErrInvalidToken
		}
		s.logger.Error("❌ [AuthService] Database error", "error", err)
		return nil, err
	}

	if !user.HasPendingToken(token, s.now()) {
		s.logger.Warn("⚠️ [AuthService] Expired one-time token", "user_id", user.ID)
		return nil, ErrInvalidToken
	}
	return user, nil
}
