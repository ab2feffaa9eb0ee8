// Package metrics exposes Prometheus collectors for the course store.
//
// Collectors are registered with the default registry on first use. The
// /metrics handler is served by the server package.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
)

var (
	registerOnce sync.Once

	loads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coursestore",
			Subsystem: "store",
			Name:      "loads_total",
			Help:      "Full collection loads by outcome.",
		},
		[]string{"outcome"},
	)
	saves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coursestore",
			Subsystem: "store",
			Name:      "saves_total",
			Help:      "Course saves by outcome.",
		},
		[]string{"outcome"},
	)
	transportDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coursestore",
			Subsystem: "transport",
			Name:      "request_duration_seconds",
			Help:      "Remote course API call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "outcome"},
	)
	busy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "coursestore",
			Name:      "busy",
			Help:      "1 while a tracked operation is pending, 0 otherwise.",
		},
	)
	errorBatches = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coursestore",
			Subsystem: "messages",
			Name:      "error_batches_total",
			Help:      "Non-empty error batches published.",
		},
	)
	errorMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coursestore",
			Subsystem: "messages",
			Name:      "error_messages_total",
			Help:      "Error messages published across all batches.",
		},
	)
)

// Register registers all collectors with the default registry. Safe to call
// multiple times.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(loads, saves, transportDuration, busy, errorBatches, errorMessages)
	})
}

// RecordLoad records one full-collection load.
func RecordLoad(outcome string, duration time.Duration) {
	Register()
	loads.WithLabelValues(outcome).Inc()
	transportDuration.WithLabelValues("fetch_all", outcome).Observe(duration.Seconds())
}

// RecordSave records one save. duration is zero when no transport call was made.
func RecordSave(outcome string, duration time.Duration) {
	Register()
	saves.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess || outcome == OutcomeFailure {
		transportDuration.WithLabelValues("update", outcome).Observe(duration.Seconds())
	}
}

// SetBusy mirrors the loading tracker's busy flag.
func SetBusy(b bool) {
	Register()
	if b {
		busy.Set(1)
	} else {
		busy.Set(0)
	}
}

// RecordErrorBatch records a published batch of n messages.
func RecordErrorBatch(n int) {
	Register()
	errorBatches.Inc()
	errorMessages.Add(float64(n))
}

// Handler returns the Prometheus exposition handler for the default registry.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}
