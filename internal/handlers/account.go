package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"medicheck-server/internal/logger"
	"medicheck-server/internal/models"
	"medicheck-server/internal/repository"
	"medicheck-server/internal/utils"
)

// AccountHandler lets a user manage their own account.
type AccountHandler struct {
	DB  *gorm.DB
	log *logrus.Entry
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(db *gorm.DB, log *logger.Logger) *AccountHandler {
	return &AccountHandler{DB: db, log: log.WithComponent("account")}
}

// ChangePasswordRequest represents the request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,nefield=CurrentPassword"`
}

// ChangePassword replaces the password after checking the current one. All
// refresh tokens are revoked so other sessions must sign in again.
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	user, ok := loadCurrentUser(c, h.DB)
	if !ok {
		return
	}
	if !user.CheckPassword(req.CurrentPassword) {
		utils.Unauthorized(c, "Current password is incorrect")
		return
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Update("password", user.Password).Error; err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ? AND is_revoked = ?", user.ID, false).
			Update("is_revoked", true).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to update password: "+err.Error())
		return
	}

	h.log.WithField("user_id", user.ID).Info("Password changed")
	utils.Success(c, "Password updated successfully", nil)
}

// DeleteAccountRequest confirms account deletion.
type DeleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

// DeleteAccount removes the user, their appointments and refresh tokens in
// one transaction.
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	var req DeleteAccountRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	user, ok := loadCurrentUser(c, h.DB)
	if !ok {
		return
	}
	if !user.CheckPassword(req.Password) {
		utils.Unauthorized(c, "Password is incorrect")
		return
	}

	ctx := c.Request.Context()
	err := h.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewAppointmentRepository(tx).DeleteByOwner(ctx, user.ID); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", user.ID).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to delete account: "+err.Error())
		return
	}

	c.SetCookie(refreshCookie, "", -1, "/", "", false, true)
	h.log.WithField("user_id", user.ID).Info("Account deleted")
	utils.Success(c, "Account deleted successfully", nil)
}
