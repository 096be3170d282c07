package handlers

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"medicheck-server/internal/config"
	"medicheck-server/internal/logger"
	"medicheck-server/internal/middleware"
	"medicheck-server/internal/models"
	"medicheck-server/internal/utils"
)

const refreshCookie = "refresh_token"

// AuthHandler handles authentication-related requests.
type AuthHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
	log *logrus.Entry
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, log *logger.Logger) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, log: log.WithComponent("auth")}
}

// RegisterRequest represents the request body for user registration.
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Username string `json:"username" binding:"required,min=3,max=100,alphanum"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register handles user registration.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	taken, err := h.identityTaken(req.Email, req.Username, "")
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if taken != "" {
		utils.Conflict(c, taken)
		return
	}

	user := models.User{
		Name:     strings.TrimSpace(req.Name),
		Username: req.Username,
		Email:    req.Email,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}
	if err := h.DB.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to create user: "+err.Error())
		return
	}

	h.log.WithField("user_id", user.ID).Info("User registered")
	utils.Created(c, "User registered successfully", user.Sanitize())
}

// identityTaken returns a conflict message when the email or username belongs
// to a user other than exceptID.
func (h *AuthHandler) identityTaken(email, username, exceptID string) (string, error) {
	var existing models.User
	err := h.DB.Where("(email = ? OR username = ?) AND id <> ?", email, username, exceptID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", nil
	case err != nil:
		return "", err
	case existing.Email == email:
		return "User with this email already exists", nil
	default:
		return "Username is already taken", nil
	}
}

// LoginRequest accepts either the email address or the username.
type LoginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// LoginResponse represents the response body for successful login.
type LoginResponse struct {
	AccessToken  string               `json:"accessToken"`
	RefreshToken string               `json:"refreshToken"`
	User         models.UserSanitized `json:"user"`
}

// Login handles user login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	identifier := strings.TrimSpace(req.Identifier)
	query := h.DB.Where("username = ?", identifier)
	if strings.Contains(identifier, "@") {
		query = h.DB.Where("email = ?", strings.ToLower(identifier))
	}

	var user models.User
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Invalid credentials")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	if !user.CheckPassword(req.Password) {
		h.log.WithField("user_id", user.ID).Warn("Failed login attempt")
		utils.Unauthorized(c, "Invalid credentials")
		return
	}

	pair, err := h.issueTokens(c, h.DB, &user)
	if err != nil {
		utils.InternalServerError(c, err.Error())
		return
	}

	utils.Success(c, "Login successful", LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         user.Sanitize(),
	})
}

// issueTokens signs a token pair, stores the refresh token and sets it as an
// HTTP-only cookie.
func (h *AuthHandler) issueTokens(c *gin.Context, tx *gorm.DB, user *models.User) (utils.TokenPair, error) {
	pair, err := utils.GenerateTokens(user, h.Cfg)
	if err != nil {
		return utils.TokenPair{}, fmt.Errorf("failed to generate tokens: %w", err)
	}

	stored := models.RefreshToken{
		UserID:    user.ID,
		Token:     pair.RefreshToken,
		ExpiresAt: pair.RefreshExpiresAt.UTC(),
	}
	if err := tx.Create(&stored).Error; err != nil {
		return utils.TokenPair{}, fmt.Errorf("failed to store refresh token: %w", err)
	}

	c.SetCookie(refreshCookie, pair.RefreshToken, h.Cfg.JWTRefreshExpirationHours*60*60, "/", "", h.secureCookies(), true)
	return pair, nil
}

func revoke(tx *gorm.DB, token *models.RefreshToken, now time.Time) error {
	token.Revoke(now)
	return tx.Model(token).Select("IsRevoked", "ExpiresAt").Updates(token).Error
}

func (h *AuthHandler) secureCookies() bool {
	return h.Cfg.Environment != "development"
}

// RefreshTokenRequest represents the request body for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshTokenResponse represents the response body for successful token refresh.
type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshToken exchanges a refresh token, from the cookie or the body, for a
// new pair. The presented token is revoked.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	presented, err := c.Cookie(refreshCookie)
	if err != nil || presented == "" {
		var req RefreshTokenRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		presented = req.RefreshToken
	}

	claims, err := utils.ValidateToken(presented, h.Cfg.JWTRefreshSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid refresh token: "+err.Error())
		return
	}

	var pair utils.TokenPair
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var stored models.RefreshToken
		if err := tx.Where("token = ? AND user_id = ?", presented, claims.UserID).First(&stored).Error; err != nil {
			return err
		}
		now := time.Now()
		if !stored.Active(now) {
			return gorm.ErrRecordNotFound
		}

		var user models.User
		if err := tx.First(&user, "id = ?", claims.UserID).Error; err != nil {
			return err
		}

		if err := revoke(tx, &stored, now); err != nil {
			return err
		}
		issued, err := h.issueTokens(c, tx, &user)
		pair = issued
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Unauthorized(c, "Refresh token not found, expired, or revoked")
		} else {
			utils.InternalServerError(c, err.Error())
		}
		return
	}

	utils.Success(c, "Access token refreshed successfully", RefreshTokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// LogoutRequest represents the request body for user logout.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Logout revokes the caller's refresh token and clears the cookie. An unknown
// or already revoked token still logs out.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	token, err := c.Cookie(refreshCookie)
	if err != nil || token == "" {
		var req LogoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequest(c, "Invalid request payload: "+err.Error())
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		utils.BadRequest(c, "Refresh token is required")
		return
	}

	var stored models.RefreshToken
	err = h.DB.Where("token = ? AND user_id = ? AND is_revoked = ?", token, userID, false).First(&stored).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		utils.InternalServerError(c, "Database error during logout: "+err.Error())
		return
	default:
		if err := revoke(h.DB, &stored, time.Now()); err != nil {
			utils.InternalServerError(c, "Failed to revoke refresh token: "+err.Error())
			return
		}
	}

	c.SetCookie(refreshCookie, "", -1, "/", "", h.secureCookies(), true)
	utils.Success(c, "Logout successful", nil)
}

// GetProfile handles fetching the currently authenticated user's profile.
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	utils.Success(c, "Profile fetched successfully", user.Sanitize())
}

// UpdateProfileRequest represents the request body for updating user profile.
type UpdateProfileRequest struct {
	Name     string `json:"name" binding:"omitempty,max=255"`
	Username string `json:"username" binding:"omitempty,min=3,max=100,alphanum"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// UpdateProfile changes the name, username or email of the current user.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	if req.Name != "" {
		user.Name = strings.TrimSpace(req.Name)
	}
	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Email != "" {
		user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	}

	taken, err := h.identityTaken(user.Email, user.Username, user.ID)
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if taken != "" {
		utils.Conflict(c, taken)
		return
	}

	if err := h.DB.Save(user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update profile: "+err.Error())
		return
	}
	utils.Success(c, "Profile updated successfully", user.Sanitize())
}

// currentUser loads the authenticated user, writing the error response when
// that fails.
func (h *AuthHandler) currentUser(c *gin.Context) (*models.User, bool) {
	return loadCurrentUser(c, h.DB)
}

func loadCurrentUser(c *gin.Context, db *gorm.DB) (*models.User, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return nil, false
	}

	var user models.User
	if err := db.WithContext(c.Request.Context()).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User profile not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}
	return &user, true
}
