package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service's Prometheus collectors.
type Metrics struct {
	// method, path, status_code
	HTTPRequestsTotal *prometheus.CounterVec

	// method, path
	HTTPRequestDuration *prometheus.HistogramVec

	// result: created, slot_unavailable, lock_failed, gateway_error, error
	BookingsCreatedTotal *prometheus.CounterVec

	// from, to, trigger: webhook, sweeper, admin
	BookingTransitionsTotal *prometheus.CounterVec

	// type, outcome
	WebhookEventsTotal *prometheus.CounterVec

	// result: hit, miss, error
	AvailabilityCacheRequests *prometheus.CounterVec

	// operation: acquire/extend/release, status: success/failed
	SlotLockDuration *prometheus.HistogramVec
}

// New registers the collectors with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		BookingsCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookings_created_total",
				Help: "Booking creation attempts by result",
			},
			[]string{"result"},
		),
		BookingTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_transitions_total",
				Help: "Applied booking status transitions",
			},
			[]string{"from", "to", "trigger"},
		),
		WebhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_events_total",
				Help: "Payment gateway webhook events by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		AvailabilityCacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "availability_cache_requests_total",
				Help: "Availability cache lookups by result",
			},
			[]string{"result"},
		),
		SlotLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "slot_lock_duration_seconds",
				Help:    "Time spent on slot lock operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingsCreatedTotal,
		m.BookingTransitionsTotal,
		m.WebhookEventsTotal,
		m.AvailabilityCacheRequests,
		m.SlotLockDuration,
	)

	return m
}

var defaultMetrics *Metrics

// Init creates the default instance on the default registry.
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get returns the default instance, nil before Init.
func Get() *Metrics {
	return defaultMetrics
}

// Nop returns collectors registered with a throwaway registry. Services use
// it when no instance is injected.
func Nop() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}
