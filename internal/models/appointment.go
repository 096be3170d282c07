package models

import (
	"time"

	"gorm.io/gorm"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusUpcoming  AppointmentStatus = "upcoming"
	StatusCompleted AppointmentStatus = "completed"
	StatusMissed    AppointmentStatus = "missed"
)

// IsTerminal reports whether no further transition is allowed.
func (s AppointmentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusMissed
}

// Appointment represents a booked hospital visit.
//
// Status is upcoming exactly while CompletionTime is nil; check-in moves it once
// to completed or missed and stamps CompletionTime.
type Appointment struct {
	BaseModel
	OwnerID        string            `gorm:"size:36;index" json:"ownerId"`
	ScheduledAt    *time.Time        `gorm:"index" json:"scheduledAt"`
	Doctor         string            `gorm:"size:100" json:"doctor"`
	Hospital       string            `gorm:"size:255;index" json:"hospital"`
	Type           string            `gorm:"size:100" json:"type"`
	PatientName    string            `gorm:"size:255" json:"patientName"`
	Status         AppointmentStatus `gorm:"size:20;default:'upcoming';index" json:"status"`
	CompletionTime *time.Time        `json:"completionTime"`
}

// IsEditable reports whether hospital, doctor, type and date may still change.
func (a *Appointment) IsEditable() bool {
	return a.Status == StatusUpcoming
}

// BeforeSave stores times in UTC.
func (a *Appointment) BeforeSave(tx *gorm.DB) error {
	if a.ScheduledAt != nil {
		utc := a.ScheduledAt.UTC()
		a.ScheduledAt = &utc
	}
	if a.CompletionTime != nil {
		utc := a.CompletionTime.UTC()
		a.CompletionTime = &utc
	}
	return nil
}
