package prometheus

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the record-store and auth collectors for the service
type Metrics struct {
	StoreOperations     *prometheus.CounterVec
	StoreOperationTimes *prometheus.HistogramVec
	EventsPublished     *prometheus.CounterVec
	LoginCounter        prometheus.Counter
	AuthErrorCounter    *prometheus.CounterVec
	UploadBytes         prometheus.Counter
	FeedClients         prometheus.Gauge
}

// NewMetrics creates the collectors under prefix and registers them with reg
func NewMetrics(prefix string, reg prometheus.Registerer) *Metrics {
	prefix = strings.ReplaceAll(prefix, "-", "_")
	m := &Metrics{
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: prefix,
				Name:      "store_operations_total",
				Help:      "Total number of record store operations",
			},
			[]string{"collection", "operation", "outcome"},
		),
		StoreOperationTimes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: prefix,
				Name:      "store_operation_duration_seconds",
				Help:      "Duration of record store operations in seconds",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"collection", "operation"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: prefix,
				Name:      "change_events_total",
				Help:      "Total number of change events published",
			},
			[]string{"topic"},
		),
		LoginCounter: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: prefix,
				Name:      "auth_login_total",
				Help:      "Total number of login attempts",
			},
		),
		AuthErrorCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: prefix,
				Name:      "auth_errors_total",
				Help:      "Total number of authentication errors",
			},
			[]string{"type"},
		),
		UploadBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: prefix,
				Name:      "upload_bytes_total",
				Help:      "Total bytes accepted by the image upload endpoint",
			},
		),
		FeedClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: prefix,
				Name:      "event_feed_clients",
				Help:      "Number of connected change-feed websocket clients",
			},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.StoreOperations,
			m.StoreOperationTimes,
			m.EventsPublished,
			m.LoginCounter,
			m.AuthErrorCounter,
			m.UploadBytes,
			m.FeedClients,
		)
	}
	return m
}

// RecordOperation tracks one store operation; a nil receiver is a no-op
func (m *Metrics) RecordOperation(collection, operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.StoreOperations.WithLabelValues(collection, operation, outcome).Inc()
	m.StoreOperationTimes.WithLabelValues(collection, operation).Observe(elapsed.Seconds())
}

// RecordEvent counts a published change event
func (m *Metrics) RecordEvent(topic string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(topic).Inc()
}

// RecordLogin counts a login attempt
func (m *Metrics) RecordLogin() {
	if m == nil {
		return
	}
	m.LoginCounter.Inc()
}

// RecordAuthError increments the auth error counter for the given type
func (m *Metrics) RecordAuthError(errorType string) {
	if m == nil {
		return
	}
	m.AuthErrorCounter.WithLabelValues(errorType).Inc()
}

// RecordUpload adds size to the uploaded byte counter
func (m *Metrics) RecordUpload(size int64) {
	if m == nil {
		return
	}
	m.UploadBytes.Add(float64(size))
}

// FeedConnected adjusts the connected client gauge by delta
func (m *Metrics) FeedConnected(delta int) {
	if m == nil {
		return
	}
	m.FeedClients.Add(float64(delta))
}
