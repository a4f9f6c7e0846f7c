// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ciclismo-epn/club-backend/internal/config"
	"github.com/ciclismo-epn/club-backend/internal/models"
	"github.com/ciclismo-epn/club-backend/internal/queue"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

const resetCodeTTL = 15 * time.Minute

type AuthService struct {
	db         *gorm.DB
	cfg        *config.Config
	dispatcher queue.Dispatcher
}

type LoginRequest struct {
	Email    string `json:"email" form:"username" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,strong_password"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"max=50"`
	City      string `json:"city" validate:"max=100"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"` // in seconds
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,strong_password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,strong_password"`
}

func NewAuthService(db *gorm.DB, cfg *config.Config, dispatcher queue.Dispatcher) *AuthService {
	return &AuthService{
		db:         db,
		cfg:        cfg,
		dispatcher: dispatcher,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(req *RegisterRequest) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}

	user := &models.User{
		Email:     req.Email,
		Role:      models.UserRoleNormal,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     req.Phone,
		City:      req.City,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// The unique index on email decides; no pre-check.
	if err := s.db.Create(user).Error; err != nil {
		return nil, storeError(err, "user with this email")
	}

	return s.issueTokens(user)
}

func (s *AuthService) Login(req *LoginRequest) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return nil, invalid(err)
	}

	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrUnauthorized, "invalid email or password")
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, newError(ErrUnauthorized, "invalid email or password")
	}

	now := time.Now().UTC()
	if err := s.db.Model(&user).UpdateColumn("last_login_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	user.LastLoginAt = &now

	return s.issueTokens(&user)
}

func (s *AuthService) RefreshToken(refreshToken string) (*AuthResponse, error) {
	userID, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, newError(ErrUnauthorized, "invalid refresh token")
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(ErrUnauthorized, "user no longer exists")
		}
		return nil, err
	}

	return s.issueTokens(user)
}

// ForgotPassword stores a hashed six digit code and mails it. Unknown emails
// succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, req *ForgotPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return invalid(err)
	}

	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("database error: %w", err)
	}

	code, err := utils.GenerateResetCode()
	if err != nil {
		return fmt.Errorf("failed to generate reset code: %w", err)
	}

	expires := time.Now().UTC().Add(resetCodeTTL)
	if err := s.db.Model(&user).Updates(map[string]interface{}{
		"reset_code_hash":       utils.HashString(code),
		"reset_code_expires_at": expires,
	}).Error; err != nil {
		return fmt.Errorf("failed to save reset code: %w", err)
	}

	enqueue(ctx, s.dispatcher, queue.TaskPasswordReset, PasswordResetPayload{
		Email:     user.Email,
		Name:      user.FullName(),
		Code:      code,
		ExpiresIn: "15 minutos",
	})
	return nil
}

func (s *AuthService) ResetPassword(req *ResetPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := utils.ValidateStruct(req); err != nil {
		return invalid(err)
	}

	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newError(ErrValidation, "invalid or expired reset code")
		}
		return fmt.Errorf("database error: %w", err)
	}

	if user.ResetCodeHash == "" || user.ResetCodeExpiresAt == nil ||
		time.Now().After(*user.ResetCodeExpiresAt) ||
		user.ResetCodeHash != utils.HashString(req.Code) {
		return newError(ErrValidation, "invalid or expired reset code")
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.Model(&user).Updates(map[string]interface{}{
		"password_hash":         user.PasswordHash,
		"reset_code_hash":       "",
		"reset_code_expires_at": nil,
	}).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (s *AuthService) ChangePassword(userID uint, req *ChangePasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return invalid(err)
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if err := user.CheckPassword(req.CurrentPassword); err != nil {
		return newError(ErrValidation, "current password is incorrect")
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.Model(user).Update("password_hash", user.PasswordHash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (s *AuthService) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, storeError(err, "user")
	}
	return &user, nil
}

func (s *AuthService) issueTokens(user *models.User) (*AuthResponse, error) {
	accessToken, err := utils.GenerateJWT(user.ID, user.Email, string(user.Role), s.cfg.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := utils.GenerateRefreshToken(user.ID, s.cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.cfg.JWT.AccessTokenTTL * 3600, // Convert hours to seconds
	}, nil
}
