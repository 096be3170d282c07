package handlers

import (
	"github.com/gin-gonic/gin"

	"medicheck-server/internal/appointments"
	"medicheck-server/internal/hospitals"
	"medicheck-server/internal/utils"
)

// CatalogHandler serves the static booking data.
type CatalogHandler struct {
	Appointments *appointments.Service
	Hospitals    *hospitals.Directory
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(appts *appointments.Service, dir *hospitals.Directory) *CatalogHandler {
	return &CatalogHandler{Appointments: appts, Hospitals: dir}
}

// GetCatalog returns the hospitals, services, doctors and time slots a
// booking can choose from.
func (h *CatalogHandler) GetCatalog(c *gin.Context) {
	utils.Success(c, "Catalog fetched successfully", h.Appointments.Catalog())
}

// GetHospitals returns every hospital with its check-in geofence.
func (h *CatalogHandler) GetHospitals(c *gin.Context) {
	utils.Success(c, "Hospitals fetched successfully", h.Hospitals.All())
}
