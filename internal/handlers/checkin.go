package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"medicheck-server/internal/checkin"
	"medicheck-server/internal/logger"
	"medicheck-server/internal/middleware"
	"medicheck-server/internal/utils"
)

// CheckInHandler exposes the QR check-in flow.
type CheckInHandler struct {
	Service *checkin.Service
	log     *logrus.Entry
}

// NewCheckInHandler creates a new CheckInHandler.
func NewCheckInHandler(svc *checkin.Service, log *logger.Logger) *CheckInHandler {
	return &CheckInHandler{Service: svc, log: log.WithComponent("checkin")}
}

// VerifyRequest is sent after scanning a hospital QR code. Hospital is the
// scanned payload.
type VerifyRequest struct {
	Hospital  string   `json:"hospital" binding:"required"`
	Latitude  *float64 `json:"latitude" binding:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" binding:"required,min=-180,max=180"`
	Override  bool     `json:"override"`
}

// Verify checks the caller is at the scanned hospital and returns today's
// appointments there that can be checked in.
func (h *CheckInHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	presence, err := h.Service.VerifyPresence(c.Request.Context(), userID, req.Hospital, *req.Latitude, *req.Longitude, req.Override)
	if err != nil {
		respondCheckInError(c, err, presence)
		return
	}
	utils.Success(c, "Presence verified", presence)
}

// CheckIn checks in one appointment.
func (h *CheckInHandler) CheckIn(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appt, err := h.Service.CheckIn(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondCheckInError(c, err, nil)
		return
	}
	utils.Success(c, "Checked in successfully", appt)
}

// BatchRequest lists the appointments to check in together.
type BatchRequest struct {
	AppointmentIDs []string `json:"appointmentIds" binding:"max=100,dive,required"`
}

// Batch checks in several appointments. Per-item failures are reported in the
// result; the request itself succeeds.
func (h *CheckInHandler) Batch(c *gin.Context) {
	var req BatchRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	entry := h.log.WithField("user_id", userID)
	result := h.Service.BatchCheckIn(c.Request.Context(), userID, req.AppointmentIDs, func(done, total int) {
		entry.WithFields(logrus.Fields{"done": done, "total": total}).Debug("Batch check-in progress")
	})
	utils.Success(c, "Batch check-in processed", result)
}
