package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckInMetrics counts check-in workflow outcomes. A nil *CheckInMetrics is
// valid and records nothing.
type CheckInMetrics struct {
	checkIns  *prometheus.CounterVec
	batches   prometheus.Histogram
	presences *prometheus.CounterVec
}

// NewCheckInMetrics creates the collectors and registers them with reg.
func NewCheckInMetrics(reg prometheus.Registerer) *CheckInMetrics {
	m := &CheckInMetrics{
		checkIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medicheck",
			Name:      "checkin_total",
			Help:      "Appointment check-ins by outcome (completed, missed or an error kind).",
		}, []string{"outcome"}),
		batches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "medicheck",
			Name:      "checkin_batch_size",
			Help:      "Number of appointments submitted per batch check-in.",
			Buckets:   []float64{1, 2, 3, 5, 10},
		}),
		presences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medicheck",
			Name:      "checkin_presence_total",
			Help:      "Geofence presence checks by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.checkIns, m.batches, m.presences)
	return m
}

// ObserveCheckIn records one single-appointment outcome.
func (m *CheckInMetrics) ObserveCheckIn(outcome string) {
	if m == nil {
		return
	}
	m.checkIns.WithLabelValues(outcome).Inc()
}

// ObserveBatch records the size of one batch.
func (m *CheckInMetrics) ObserveBatch(size int) {
	if m == nil {
		return
	}
	m.batches.Observe(float64(size))
}

// ObservePresence records a geofence verification result.
func (m *CheckInMetrics) ObservePresence(result string) {
	if m == nil {
		return
	}
	m.presences.WithLabelValues(result).Inc()
}
