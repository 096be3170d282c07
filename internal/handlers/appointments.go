package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"medicheck-server/internal/appointments"
	"medicheck-server/internal/middleware"
	"medicheck-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	Service *appointments.Service
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(svc *appointments.Service) *AppointmentHandler {
	return &AppointmentHandler{Service: svc}
}

// GetAppointmentsForUser lists the caller's appointments by scheduled time.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appts, err := h.Service.FetchByOwner(c.Request.Context(), userID)
	if err != nil {
		respondAppointmentError(c, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", appts)
}

// GetTodayAtHospital lists the caller's upcoming appointments today at the
// hospital named in ?hospital=.
func (h *AppointmentHandler) GetTodayAtHospital(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	hospital := strings.TrimSpace(c.Query("hospital"))
	if hospital == "" {
		utils.BadRequest(c, "hospital query parameter is required")
		return
	}

	appts, err := h.Service.FetchTodayAtLocation(c.Request.Context(), userID, hospital)
	if err != nil {
		respondAppointmentError(c, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", appts)
}

// GetAppointmentByID returns one of the caller's appointments.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appt, err := h.Service.GetForOwner(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondAppointmentError(c, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", appt)
}

// CreateAppointment books an appointment for the caller.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req appointments.BookingRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appt, err := h.Service.Book(c.Request.Context(), userID, req)
	if err != nil {
		respondAppointmentError(c, err)
		return
	}
	utils.Created(c, "Appointment booked successfully", appt)
}

// UpdateAppointment reschedules or changes an upcoming appointment.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	var req appointments.EditRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appt, err := h.Service.Edit(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondAppointmentError(c, err)
		return
	}
	utils.Success(c, "Appointment updated successfully", appt)
}

// DeleteAppointment cancels an upcoming appointment.
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	if err := h.Service.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondAppointmentError(c, err)
		return
	}
	utils.Success(c, "Appointment deleted successfully", nil)
}
