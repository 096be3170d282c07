package checkin

import (
	"errors"
	"fmt"
)

// Kind classifies a check-in failure.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindInvalidData      Kind = "invalid_data"
	KindRepository       Kind = "repository_error"
	KindPermissionDenied Kind = "permission_denied"
	KindAlreadyCheckedIn Kind = "already_checked_in"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its kind.
var (
	ErrNotFound         = errors.New("appointment not found")
	ErrInvalidData      = errors.New("invalid appointment data")
	ErrRepository       = errors.New("repository error")
	ErrPermissionDenied = errors.New("appointment belongs to another user")
	ErrAlreadyCheckedIn = errors.New("appointment already checked in")

	ErrUnknownHospital = errors.New("unknown hospital")
	ErrOutsideGeofence = errors.New("not at the hospital")
)

var sentinels = map[Kind]error{
	KindNotFound:         ErrNotFound,
	KindInvalidData:      ErrInvalidData,
	KindRepository:       ErrRepository,
	KindPermissionDenied: ErrPermissionDenied,
	KindAlreadyCheckedIn: ErrAlreadyCheckedIn,
}

// Error is a typed check-in failure. Message is shown to the user as is; for
// repository failures it is the underlying error text.
type Error struct {
	Kind          Kind
	AppointmentID string
	Message       string
	Err           error
}

func (e *Error) Error() string {
	if e.AppointmentID == "" {
		return fmt.Sprintf("check-in failed: %s", e.Message)
	}
	return fmt.Sprintf("check-in %s failed: %s", e.AppointmentID, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func newError(kind Kind, id string, cause error) *Error {
	msg := sentinels[kind].Error()
	if kind == KindRepository && cause != nil {
		msg = cause.Error()
	}
	return &Error{Kind: kind, AppointmentID: id, Message: msg, Err: cause}
}

// KindOf returns the Kind of err, or "" when err is not a check-in error.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
