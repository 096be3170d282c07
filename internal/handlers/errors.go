package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medicheck-server/internal/appointments"
	"medicheck-server/internal/checkin"
	"medicheck-server/internal/utils"
)

func respondAppointmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appointments.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, appointments.ErrPermissionDenied):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, appointments.ErrNotEditable):
		utils.Conflict(c, err.Error())
	case errors.Is(err, appointments.ErrInvalidBooking):
		utils.UnprocessableEntity(c, err.Error())
	default:
		utils.InternalServerError(c, "Database error: "+err.Error())
	}
}

// checkInStatus maps a check-in failure kind to its HTTP status.
func checkInStatus(kind checkin.Kind) int {
	switch kind {
	case checkin.KindNotFound:
		return http.StatusNotFound
	case checkin.KindInvalidData:
		return http.StatusUnprocessableEntity
	case checkin.KindPermissionDenied:
		return http.StatusForbidden
	case checkin.KindAlreadyCheckedIn:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondCheckInError(c *gin.Context, err error, data interface{}) {
	switch {
	case errors.Is(err, checkin.ErrUnknownHospital):
		utils.ErrorWithCode(c, http.StatusNotFound, "unknown_hospital", "QR code does not match a known hospital", nil)
	case errors.Is(err, checkin.ErrOutsideGeofence):
		utils.ErrorWithCode(c, http.StatusForbidden, "outside_geofence", "You are not at the hospital", data)
	default:
		var ce *checkin.Error
		if errors.As(err, &ce) {
			utils.ErrorWithCode(c, checkInStatus(ce.Kind), string(ce.Kind), ce.Message, nil)
			return
		}
		utils.InternalServerError(c, err.Error())
	}
}
