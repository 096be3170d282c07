package checkin

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"medicheck-server/internal/clock"
	"medicheck-server/internal/hospitals"
	"medicheck-server/internal/logger"
	"medicheck-server/internal/metrics"
	"medicheck-server/internal/models"
	"medicheck-server/internal/repository"
)

// TodayLister finds the appointments a patient can check in to at a hospital.
type TodayLister interface {
	FetchTodayAtLocation(ctx context.Context, ownerID, hospital string) ([]models.Appointment, error)
}

// ProgressFunc is told after every batch item how many of total are done.
type ProgressFunc func(done, total int)

// Options tunes a Service.
type Options struct {
	// Timeout bounds every repository call. Zero leaves it to the caller's context.
	Timeout time.Duration
	Metrics *metrics.CheckInMetrics
	// Refresh runs once after every non-empty batch. The list it returns is
	// handed back on BatchResult.Appointments.
	Refresh func(ctx context.Context, ownerID string) ([]models.Appointment, error)
}

// Service runs single and batch check-ins and the QR presence check.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	repo      repository.AppointmentRepository
	today     TodayLister
	hospitals *hospitals.Directory
	clock     clock.Clock
	opts      Options
	log       *logrus.Entry
}

// NewService creates a new check-in Service.
func NewService(repo repository.AppointmentRepository, today TodayLister, dir *hospitals.Directory, clk clock.Clock, log *logger.Logger, opts Options) *Service {
	return &Service{
		repo:      repo,
		today:     today,
		hospitals: dir,
		clock:     clk,
		opts:      opts,
		log:       log.WithComponent("checkin"),
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.Timeout)
}

// CheckIn moves one upcoming appointment to completed or missed.
//
// When ownerID is non-empty the appointment must belong to it. Failures are
// *Error values; repository failures are not retried.
func (s *Service) CheckIn(ctx context.Context, ownerID, appointmentID string) (*models.Appointment, error) {
	appt, err := s.checkInOne(ctx, ownerID, appointmentID)
	s.record(appointmentID, appt, err)
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// BatchResult aggregates a batch check-in. Successful+Failed always equals the
// number of ids submitted. Appointments is the owner's refreshed list, nil when
// no refresh ran or it failed.
type BatchResult struct {
	Successful   int                  `json:"successful"`
	Failed       int                  `json:"failed"`
	Items        []ItemResult         `json:"items"`
	Appointments []models.Appointment `json:"appointments,omitempty"`
}

// ItemResult is the outcome of one batch entry.
type ItemResult struct {
	AppointmentID string                   `json:"appointmentId"`
	Status        models.AppointmentStatus `json:"status,omitempty"`
	Error         string                   `json:"error,omitempty"`
	ErrorKind     Kind                     `json:"errorKind,omitempty"`
}

// BatchCheckIn checks in each id in order. Items are independent: a failure is
// counted and the next id is processed as if it had not happened. progress may
// be nil. An empty batch returns at once without touching the repository.
func (s *Service) BatchCheckIn(ctx context.Context, ownerID string, appointmentIDs []string, progress ProgressFunc) BatchResult {
	result := BatchResult{Items: []ItemResult{}}
	total := len(appointmentIDs)
	if total == 0 {
		return result
	}
	s.opts.Metrics.ObserveBatch(total)

	for i, id := range appointmentIDs {
		appt, err := s.checkInOne(ctx, ownerID, id)
		s.record(id, appt, err)

		item := ItemResult{AppointmentID: id}
		if err != nil {
			result.Failed++
			item.Error = err.Error()
			item.ErrorKind = KindOf(err)
		} else {
			result.Successful++
			item.Status = appt.Status
		}
		result.Items = append(result.Items, item)

		if progress != nil {
			progress(i+1, total)
		}
	}

	if s.opts.Refresh != nil {
		appts, err := s.opts.Refresh(ctx, ownerID)
		if err != nil {
			s.log.WithError(err).WithField("user_id", ownerID).Warn("Failed to refresh appointments after batch")
		} else {
			result.Appointments = appts
		}
	}

	s.log.WithFields(logrus.Fields{
		"user_id":    ownerID,
		"successful": result.Successful,
		"failed":     result.Failed,
	}).Info("Batch check-in finished")
	return result
}

func (s *Service) checkInOne(ctx context.Context, ownerID, id string) (*models.Appointment, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, id, err)
		}
		return nil, newError(KindRepository, id, err)
	}
	if ownerID != "" && appt.OwnerID != ownerID {
		return nil, newError(KindPermissionDenied, id, nil)
	}
	if appt.ScheduledAt == nil || appt.ScheduledAt.IsZero() {
		return nil, newError(KindInvalidData, id, nil)
	}
	if appt.Status.IsTerminal() {
		return nil, newError(KindAlreadyCheckedIn, id, nil)
	}

	outcome := Classify(*appt.ScheduledAt, s.clock.Now())
	if err := s.repo.CompleteCheckIn(ctx, id, outcome.Status, outcome.CompletionTime); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, newError(KindAlreadyCheckedIn, id, err)
		case errors.Is(err, repository.ErrNotFound):
			return nil, newError(KindNotFound, id, err)
		}
		return nil, newError(KindRepository, id, err)
	}

	appt.Status = outcome.Status
	completed := outcome.CompletionTime
	appt.CompletionTime = &completed
	return appt, nil
}

func (s *Service) record(id string, appt *models.Appointment, err error) {
	entry := s.log.WithField("appointment_id", id)
	if err != nil {
		kind := KindOf(err)
		s.opts.Metrics.ObserveCheckIn(string(kind))
		if kind == KindRepository {
			entry.WithError(err).Error("Check-in failed")
		} else {
			entry.WithField("kind", kind).Warn("Check-in rejected")
		}
		return
	}
	s.opts.Metrics.ObserveCheckIn(string(appt.Status))
	entry.WithField("status", appt.Status).Info("Checked in")
}

// Presence is the result of verifying a scanned hospital QR code against the
// patient's position.
type Presence struct {
	Hospital       string               `json:"hospital"`
	DistanceMeters float64              `json:"distanceMeters"`
	RadiusMeters   float64              `json:"radiusMeters"`
	WithinGeofence bool                 `json:"withinGeofence"`
	Overridden     bool                 `json:"overridden"`
	Appointments   []models.Appointment `json:"appointments"`
}

// VerifyPresence checks that the patient is inside the hospital's geofence and
// lists today's upcoming appointments there. The QR code carries the hospital
// name. Outside the geofence it returns the measured Presence together with
// ErrOutsideGeofence unless override is set, in which case it proceeds and
// logs the override.
func (s *Service) VerifyPresence(ctx context.Context, ownerID, hospital string, lat, lng float64, override bool) (*Presence, error) {
	loc, ok := s.hospitals.Lookup(hospital)
	if !ok {
		s.opts.Metrics.ObservePresence("unknown_hospital")
		return nil, ErrUnknownHospital
	}

	distance := loc.DistanceTo(lat, lng)
	presence := &Presence{
		Hospital:       loc.Name,
		DistanceMeters: distance,
		RadiusMeters:   loc.RadiusMeters,
		WithinGeofence: distance <= loc.RadiusMeters,
		Appointments:   []models.Appointment{},
	}

	entry := s.log.WithFields(logrus.Fields{
		"user_id":         ownerID,
		"hospital":        hospital,
		"distance_meters": distance,
	})
	switch {
	case presence.WithinGeofence:
		s.opts.Metrics.ObservePresence("inside")
	case override:
		presence.Overridden = true
		s.opts.Metrics.ObservePresence("override")
		entry.Warn("Geofence check overridden")
	default:
		s.opts.Metrics.ObservePresence("outside")
		entry.Info("Patient outside geofence")
		return presence, ErrOutsideGeofence
	}

	appts, err := s.today.FetchTodayAtLocation(ctx, ownerID, hospital)
	if err != nil {
		return nil, newError(KindRepository, "", err)
	}
	presence.Appointments = appts
	return presence, nil
}
