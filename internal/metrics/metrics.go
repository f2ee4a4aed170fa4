package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the application counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	paymentsRecorded        *prometheus.CounterVec
	activitiesRecorded      prometheus.Counter
	tripStatusChanges       *prometheus.CounterVec
	forcedTripCloses        prometheus.Counter
	allowanceRecalculations prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		paymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripsaver",
			Name:      "trip_payments_recorded_total",
			Help:      "Payments and refunds appended to trip ledgers.",
		}, []string{"kind"}),
		activitiesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tripsaver",
			Name:      "trip_activities_recorded_total",
			Help:      "Shared activities recorded on trips.",
		}),
		tripStatusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tripsaver",
			Name:      "trip_status_changes_total",
			Help:      "Trip lifecycle transitions by target status.",
		}, []string{"status"}),
		forcedTripCloses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tripsaver",
			Name:      "trip_forced_closes_total",
			Help:      "Trips ended while participants were still unsettled.",
		}),
		allowanceRecalculations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tripsaver",
			Name:      "planner_allowance_recalculations_total",
			Help:      "Daily allowance recalculations.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.paymentsRecorded,
		m.activitiesRecorded,
		m.tripStatusChanges,
		m.forcedTripCloses,
		m.allowanceRecalculations,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) PaymentRecorded(amount float64) {
	if m == nil {
		return
	}
	kind := "payment"
	if amount < 0 {
		kind = "refund"
	}
	m.paymentsRecorded.WithLabelValues(kind).Inc()
}

func (m *Metrics) ActivityRecorded() {
	if m == nil {
		return
	}
	m.activitiesRecorded.Inc()
}

func (m *Metrics) TripStatusChanged(status string, forced bool) {
	if m == nil {
		return
	}
	m.tripStatusChanges.WithLabelValues(status).Inc()
	if forced {
		m.forcedTripCloses.Inc()
	}
}

func (m *Metrics) AllowanceRecalculated() {
	if m == nil {
		return
	}
	m.allowanceRecalculations.Inc()
}
