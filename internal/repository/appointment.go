package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"medicheck-server/internal/models"
)

var (
	// ErrNotFound is returned when no appointment has the requested id.
	ErrNotFound = errors.New("appointment not found")
	// ErrConflict is returned when a conditional write finds the record
	// no longer in the expected state.
	ErrConflict = errors.New("appointment state changed")
)

// AppointmentRepository is the storage seam used by the query service and the
// check-in workflow.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *models.Appointment) error
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Appointment, error)
	ListByOwnerInRange(ctx context.Context, filter RangeFilter) ([]models.Appointment, error)
	UpdateDetails(ctx context.Context, id string, fields DetailFields) error
	CompleteCheckIn(ctx context.Context, id string, status models.AppointmentStatus, at time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, ownerID string) error
}

// RangeFilter selects an owner's appointments at one hospital in one status
// whose scheduled time falls within [From, To], both ends inclusive.
type RangeFilter struct {
	OwnerID  string
	Hospital string
	Status   models.AppointmentStatus
	From     time.Time
	To       time.Time
}

// DetailFields carries the editable columns. Nil fields are left untouched.
type DetailFields struct {
	Hospital    *string
	Doctor      *string
	Type        *string
	ScheduledAt *time.Time
}

func (f DetailFields) columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if f.Hospital != nil {
		cols["hospital"] = *f.Hospital
	}
	if f.Doctor != nil {
		cols["doctor"] = *f.Doctor
	}
	if f.Type != nil {
		cols["type"] = *f.Type
	}
	if f.ScheduledAt != nil {
		cols["scheduled_at"] = f.ScheduledAt.UTC()
	}
	return cols
}

// GormAppointmentRepository implements AppointmentRepository on gorm.
type GormAppointmentRepository struct {
	DB *gorm.DB
}

// NewAppointmentRepository creates a new GormAppointmentRepository.
func NewAppointmentRepository(db *gorm.DB) *GormAppointmentRepository {
	return &GormAppointmentRepository{DB: db}
}

// Create inserts the appointment; the id is assigned by BaseModel.BeforeCreate.
func (r *GormAppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	if err := r.DB.WithContext(ctx).Create(appt).Error; err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// FindByID loads one appointment.
func (r *GormAppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := r.DB.WithContext(ctx).First(&appt, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find appointment %s: %w", id, err)
	}
	return &appt, nil
}

// ListByOwner returns every appointment of the owner, earliest first.
func (r *GormAppointmentRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := r.DB.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("scheduled_at asc").
		Find(&appts).Error
	if err != nil {
		return nil, fmt.Errorf("list appointments for %s: %w", ownerID, err)
	}
	return appts, nil
}

// ListByOwnerInRange applies a RangeFilter.
func (r *GormAppointmentRepository) ListByOwnerInRange(ctx context.Context, filter RangeFilter) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := r.DB.WithContext(ctx).
		Where("owner_id = ? AND hospital = ? AND status = ?", filter.OwnerID, filter.Hospital, filter.Status).
		Where("scheduled_at >= ? AND scheduled_at <= ?", filter.From.UTC(), filter.To.UTC()).
		Order("scheduled_at asc").
		Find(&appts).Error
	if err != nil {
		return nil, fmt.Errorf("list appointments in range: %w", err)
	}
	return appts, nil
}

// UpdateDetails writes the non-nil fields only while the appointment is upcoming.
func (r *GormAppointmentRepository) UpdateDetails(ctx context.Context, id string, fields DetailFields) error {
	cols := fields.columns()
	if len(cols) == 0 {
		return nil
	}

	res := r.DB.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, models.StatusUpcoming).
		Updates(cols)
	if res.Error != nil {
		return fmt.Errorf("update appointment %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

// CompleteCheckIn sets status and completion_time and nothing else. The write
// is conditional on the record still being upcoming, so of two concurrent
// check-ins exactly one succeeds and the other gets ErrConflict.
func (r *GormAppointmentRepository) CompleteCheckIn(ctx context.Context, id string, status models.AppointmentStatus, at time.Time) error {
	res := r.DB.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ? AND status = ?", id, models.StatusUpcoming).
		Updates(map[string]interface{}{
			"status":          status,
			"completion_time": at.UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("check in appointment %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return r.missingOrConflict(ctx, id)
	}
	return nil
}

// Delete removes one appointment.
func (r *GormAppointmentRepository) Delete(ctx context.Context, id string) error {
	res := r.DB.WithContext(ctx).Delete(&models.Appointment{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete appointment %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByOwner removes all of a user's appointments (account deletion).
func (r *GormAppointmentRepository) DeleteByOwner(ctx context.Context, ownerID string) error {
	if err := r.DB.WithContext(ctx).Delete(&models.Appointment{}, "owner_id = ?", ownerID).Error; err != nil {
		return fmt.Errorf("delete appointments for %s: %w", ownerID, err)
	}
	return nil
}

func (r *GormAppointmentRepository) missingOrConflict(ctx context.Context, id string) error {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Appointment{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("find appointment %s: %w", id, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrConflict
}
