// internal/handlers/auth.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ciclismo-epn/club-backend/internal/i18n"
	"github.com/ciclismo-epn/club-backend/internal/services"
	"github.com/ciclismo-epn/club-backend/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
}

func NewAuthHandler(authService *services.AuthService, userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

func tokenPayload(message string, auth *services.AuthResponse) gin.H {
	return gin.H{
		"message":       message,
		"user":          auth.User,
		"access_token":  auth.AccessToken,
		"refresh_token": auth.RefreshToken,
		"token_type":    auth.TokenType,
		"expires_in":    auth.ExpiresIn,
	}
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	authResponse, err := h.authService.Register(&req)
	if err != nil {
		if errors.Is(err, services.ErrConflict) {
			utils.ConflictResponse(c, i18n.T(lang, i18n.KeyAuthUserExists))
			return
		}
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, tokenPayload(i18n.T(lang, i18n.KeyAuthRegisterSuccess), authResponse))
}

// POST /auth/token
// Accepts JSON {email, password} or an OAuth2 password form (username, password).
func (h *AuthHandler) Login(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	authResponse, err := h.authService.Login(&req)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidCredentials))
			return
		}
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, tokenPayload(i18n.T(lang, i18n.KeyAuthLoginSuccess), authResponse))
}

// POST /auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	authResponse, err := h.authService.RefreshToken(req.RefreshToken)
	if err != nil {
		if errors.Is(err, services.ErrUnauthorized) {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthTokenExpired))
			return
		}
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, tokenPayload("", authResponse))
}

// POST /auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	// Same answer whether or not the account exists.
	if err := h.authService.ForgotPassword(c.Request.Context(), &req); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyAuthResetRequested)})
}

// POST /auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.authService.ResetPassword(&req); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyAuthPasswordChanged)})
}

// PUT /auth/me/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.authService.ChangePassword(userID, &req); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyAuthPasswordChanged)})
}

// GET /auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, user)
}

// PUT /auth/me
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.UpdateUserProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.userService.UpdateProfile(userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyUserProfileUpdated),
		"user":    user,
	})
}

// POST /auth/me/photo
func (h *AuthHandler) UploadPhoto(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyFileRequired), nil)
		return
	}

	user, err := h.userService.UpdateProfilePicture(userID, file)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyUserProfileUpdated),
		"user":    user,
	})
}
