/*
Package metrics instruments the allocation engine with Prometheus.

PURPOSE:
  Implements engine.Recorder with a small set of counters. Everything is
  registered on a private registry so tests can construct metrics
  without colliding with the default registry.

EXPOSED SERIES:
  allocation_bookings_confirmed_total{center}   Confirmed bookings
  allocation_overloads_total{center}            Overload signals
  allocation_redistributed_total                Requests moved off a center
  allocation_cancellations_total                Cancelled requests
  allocation_resets_total                       Full-state resets

SEE ALSO:
  - engine/engine.go: The Recorder seam
  - cmd/server/main.go: Mounts the /metrics endpoint
*/
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/allocation-engine/engine"
)

// Metrics implements engine.Recorder over a private registry.
type Metrics struct {
	registry *prometheus.Registry

	bookings      *prometheus.CounterVec
	overloads     *prometheus.CounterVec
	redistributed prometheus.Counter
	cancellations prometheus.Counter
	resets        prometheus.Counter
}

// New creates and registers all counters.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "allocation_bookings_confirmed_total",
			Help: "Confirmed appointment bookings by assigned center.",
		}, []string{"center"}),
		overloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "allocation_overloads_total",
			Help: "Overload signals by the originally preferred center.",
		}, []string{"center"}),
		redistributed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "allocation_redistributed_total",
			Help: "Requests successfully moved off a saturated center.",
		}),
		cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "allocation_cancellations_total",
			Help: "Cancelled appointment requests.",
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "allocation_resets_total",
			Help: "Full-state maintenance resets.",
		}),
	}

	m.registry.MustRegister(m.bookings, m.overloads, m.redistributed, m.cancellations, m.resets)
	return m
}

// Handler returns the HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// engine.Recorder implementation.

func (m *Metrics) BookingConfirmed(center engine.CenterID) {
	m.bookings.WithLabelValues(string(center)).Inc()
}

func (m *Metrics) OverloadSignaled(center engine.CenterID) {
	m.overloads.WithLabelValues(string(center)).Inc()
}

func (m *Metrics) RequestsRedistributed(count int) {
	m.redistributed.Add(float64(count))
}

func (m *Metrics) RequestCancelled() {
	m.cancellations.Inc()
}

func (m *Metrics) ResetPerformed() {
	m.resets.Inc()
}
