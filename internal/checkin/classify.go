package checkin

import (
	"time"

	"medicheck-server/internal/models"
)

// GracePeriod is how late a patient may arrive and still be marked completed.
const GracePeriod = 5 * time.Minute

// Outcome is the result of classifying a check-in.
type Outcome struct {
	Status         models.AppointmentStatus
	CompletionTime time.Time
}

// Classify decides the status a check-in at now produces for an appointment
// scheduled at scheduledAt.
//
// The minute difference scheduledAt-now is floored toward negative infinity,
// so the appointment is missed exactly when now is strictly more than five
// minutes past scheduledAt: 5m00s late is completed, 5m01s late is missed.
// Early and on-time arrivals are completed. CompletionTime is always now.
func Classify(scheduledAt, now time.Time) Outcome {
	status := models.StatusCompleted
	if now.Sub(scheduledAt) > GracePeriod {
		status = models.StatusMissed
	}
	return Outcome{Status: status, CompletionTime: now}
}
