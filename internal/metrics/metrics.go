// Package metrics exposes Prometheus collectors for the pagewatch engine.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checksTotal            *prometheus.CounterVec
	notificationsTotal     *prometheus.CounterVec
	artifactsDeletedTotal  *prometheus.CounterVec
	eventsPublishedTotal   *prometheus.CounterVec
	cycleDurationSeconds   prometheus.Histogram
	captureDurationSeconds prometheus.Histogram
	orphansFoundTotal      prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		checksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagewatch_checks_total",
				Help: "Total page checks, labeled by classification result.",
			},
			[]string{"result"},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagewatch_notifications_total",
				Help: "Total notification attempts, labeled by outcome.",
			},
			[]string{"result"},
		)

		artifactsDeletedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagewatch_artifacts_deleted_total",
				Help: "Total artifacts deleted, labeled by reason.",
			},
			[]string{"reason"},
		)

		eventsPublishedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pagewatch_events_published_total",
				Help: "Total change events published, labeled by outcome.",
			},
			[]string{"result"},
		)

		cycleDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pagewatch_cycle_duration_seconds",
				Help:    "Histogram of full poll cycle durations.",
				Buckets: []float64{1, 5, 15, 60, 120, 300, 600},
			},
		)

		captureDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pagewatch_capture_duration_seconds",
				Help:    "Histogram of capture attempt durations.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 15},
			},
		)

		orphansFoundTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pagewatch_orphans_found_total",
				Help: "Total orphan artifacts found by the reconciler.",
			},
		)
	})
}

// ObserveCheck increments the check counter for a classification result.
func ObserveCheck(result string) {
	checksTotal.WithLabelValues(result).Inc()
}

// ObserveNotification records a notification outcome (sent, failed, suppressed).
func ObserveNotification(result string) {
	notificationsTotal.WithLabelValues(result).Inc()
}

// ObserveArtifactDeleted records an artifact deletion by reason
// (unchanged, retention, orphan).
func ObserveArtifactDeleted(reason string) {
	artifactsDeletedTotal.WithLabelValues(reason).Inc()
}

// ObserveEventPublished records a change-event publish outcome.
func ObserveEventPublished(result string) {
	eventsPublishedTotal.WithLabelValues(result).Inc()
}

// ObserveCycle records how long a full poll cycle took.
func ObserveCycle(d time.Duration) {
	cycleDurationSeconds.Observe(d.Seconds())
}

// ObserveCapture records the duration of a capture attempt.
func ObserveCapture(d time.Duration) {
	captureDurationSeconds.Observe(d.Seconds())
}

// ObserveOrphansFound adds to the orphan counter.
func ObserveOrphansFound(n int) {
	orphansFoundTotal.Add(float64(n))
}
