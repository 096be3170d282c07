package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"medicheck-server/internal/clock"
	"medicheck-server/internal/hospitals"
	"medicheck-server/internal/logger"
	"medicheck-server/internal/models"
	"medicheck-server/internal/repository"
)

var (
	ErrNotFound         = errors.New("appointment not found")
	ErrPermissionDenied = errors.New("appointment belongs to another user")
	ErrNotEditable      = errors.New("only upcoming appointments can be changed")
	ErrInvalidBooking   = errors.New("invalid booking")
)

// Service answers appointment queries and handles booking, editing and
// cancellation for the owner.
type Service struct {
	repo      repository.AppointmentRepository
	hospitals *hospitals.Directory
	clock     clock.Clock
	zone      *time.Location
	timeout   time.Duration
	log       *logrus.Entry
}

// Options tunes a Service.
type Options struct {
	// TimeZone decides calendar days for "today" and booking slots. Defaults to UTC.
	TimeZone *time.Location
	// Timeout bounds every repository call. Zero leaves it to the caller's context.
	Timeout time.Duration
}

// NewService creates a new appointment Service.
func NewService(repo repository.AppointmentRepository, dir *hospitals.Directory, clk clock.Clock, log *logger.Logger, opts Options) *Service {
	zone := opts.TimeZone
	if zone == nil {
		zone = time.UTC
	}
	return &Service{
		repo:      repo,
		hospitals: dir,
		clock:     clk,
		zone:      zone,
		timeout:   opts.Timeout,
		log:       log.WithComponent("appointments"),
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Catalog returns the booking choices.
func (s *Service) Catalog() Catalog {
	return Catalog{
		Hospitals: s.hospitals.Names(),
		Services:  append([]string(nil), defaultServices...),
		Doctors:   append([]string(nil), defaultDoctors...),
		TimeSlots: timeSlots(),
	}
}

// FetchByOwner returns all of the user's appointments.
func (s *Service) FetchByOwner(ctx context.Context, ownerID string) ([]models.Appointment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.repo.ListByOwner(ctx, ownerID)
}

// FetchByID returns one appointment regardless of owner.
func (s *Service) FetchByID(ctx context.Context, id string) (*models.Appointment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	appt, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return appt, err
}

// GetForOwner is FetchByID restricted to the owner.
func (s *Service) GetForOwner(ctx context.Context, ownerID, id string) (*models.Appointment, error) {
	appt, err := s.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.OwnerID != ownerID {
		return nil, ErrPermissionDenied
	}
	return appt, nil
}

// FetchTodayAtLocation returns the user's upcoming appointments at the
// hospital scheduled anywhere in today's calendar day, both ends inclusive.
func (s *Service) FetchTodayAtLocation(ctx context.Context, ownerID, hospital string) ([]models.Appointment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	from, to := clock.DayBounds(s.clock.Now(), s.zone)
	return s.repo.ListByOwnerInRange(ctx, repository.RangeFilter{
		OwnerID:  ownerID,
		Hospital: hospital,
		Status:   models.StatusUpcoming,
		From:     from,
		To:       to,
	})
}

// BookingRequest is what the booking form submits.
type BookingRequest struct {
	Hospital    string `json:"hospital" binding:"required"`
	Type        string `json:"type" binding:"required"`
	Doctor      string `json:"doctor" binding:"required"`
	Date        string `json:"date" binding:"required"`
	TimeSlot    string `json:"timeSlot" binding:"required"`
	PatientName string `json:"patientName" binding:"required"`
}

// Book creates an upcoming appointment for the owner.
func (s *Service) Book(ctx context.Context, ownerID string, req BookingRequest) (*models.Appointment, error) {
	if err := s.checkChoices(&req.Hospital, &req.Doctor, &req.Type); err != nil {
		return nil, err
	}
	scheduled, err := s.parseFutureSlot(req.Date, req.TimeSlot)
	if err != nil {
		return nil, err
	}

	appt := &models.Appointment{
		OwnerID:     ownerID,
		ScheduledAt: &scheduled,
		Doctor:      req.Doctor,
		Hospital:    req.Hospital,
		Type:        req.Type,
		PatientName: req.PatientName,
		Status:      models.StatusUpcoming,
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.Create(ctx, appt); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": ownerID, "appointment_id": appt.ID}).Info("Appointment booked")
	return appt, nil
}

// EditRequest carries optional changes. Date and TimeSlot go together.
type EditRequest struct {
	Hospital *string `json:"hospital"`
	Doctor   *string `json:"doctor"`
	Type     *string `json:"type"`
	Date     string  `json:"date"`
	TimeSlot string  `json:"timeSlot"`
}

// Edit applies changes to an upcoming appointment the owner holds.
func (s *Service) Edit(ctx context.Context, ownerID, id string, req EditRequest) (*models.Appointment, error) {
	appt, err := s.GetForOwner(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !appt.IsEditable() {
		return nil, ErrNotEditable
	}
	if err := s.checkChoices(req.Hospital, req.Doctor, req.Type); err != nil {
		return nil, err
	}

	fields := repository.DetailFields{Hospital: req.Hospital, Doctor: req.Doctor, Type: req.Type}
	if req.Date != "" || req.TimeSlot != "" {
		scheduled, err := s.parseFutureSlot(req.Date, req.TimeSlot)
		if err != nil {
			return nil, err
		}
		fields.ScheduledAt = &scheduled
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.UpdateDetails(ctx, id, fields); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, ErrNotEditable
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": ownerID, "appointment_id": id}).Info("Appointment updated")
	return s.FetchByID(ctx, id)
}

// Delete cancels an upcoming appointment the owner holds.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	appt, err := s.GetForOwner(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !appt.IsEditable() {
		return ErrNotEditable
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.log.WithFields(logrus.Fields{"user_id": ownerID, "appointment_id": id}).Info("Appointment deleted")
	return nil
}

func (s *Service) checkChoices(hospital, doctor, kind *string) error {
	if hospital != nil {
		if _, ok := s.hospitals.Lookup(*hospital); !ok {
			return fmt.Errorf("%w: unknown hospital %q", ErrInvalidBooking, *hospital)
		}
	}
	if doctor != nil && !contains(defaultDoctors, *doctor) {
		return fmt.Errorf("%w: unknown doctor %q", ErrInvalidBooking, *doctor)
	}
	if kind != nil && !contains(defaultServices, *kind) {
		return fmt.Errorf("%w: unknown service %q", ErrInvalidBooking, *kind)
	}
	return nil
}

func (s *Service) parseFutureSlot(date, slot string) (time.Time, error) {
	if !contains(timeSlots(), slot) {
		return time.Time{}, fmt.Errorf("%w: unknown time slot %q", ErrInvalidBooking, slot)
	}
	scheduled, err := ParseSlot(date, slot, s.zone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidBooking, err)
	}
	if !scheduled.After(s.clock.Now()) {
		return time.Time{}, fmt.Errorf("%w: appointment date must be in the future", ErrInvalidBooking)
	}
	return scheduled, nil
}
