package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BookingMetrics covers slot queries, reservations, status changes and notifications.
// A nil *BookingMetrics is valid and records nothing.
type BookingMetrics struct {
	reservations   *prometheus.CounterVec
	reserveLatency prometheus.Histogram
	lockWait       *prometheus.HistogramVec
	slotQueries    *prometheus.CounterVec
	slotsReturned  prometheus.Histogram
	statusChanges  *prometheus.CounterVec
	notifications  *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salonbook",
			Subsystem: "booking",
			Name:      "reservations_total",
			Help:      "Reservation attempts by outcome",
		}, []string{"outcome"}),
		reserveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "salonbook",
			Subsystem: "booking",
			Name:      "reserve_duration_seconds",
			Help:      "End to end latency of a reservation attempt",
			Buckets:   prometheus.DefBuckets,
		}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "salonbook",
			Subsystem: "booking",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for the per professional/day lock",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"result"}),
		slotQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salonbook",
			Subsystem: "booking",
			Name:      "slot_queries_total",
			Help:      "Availability queries by result",
		}, []string{"result"}),
		slotsReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "salonbook",
			Subsystem: "booking",
			Name:      "slots_returned",
			Help:      "Number of slots returned per availability query",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salonbook",
			Subsystem: "booking",
			Name:      "status_changes_total",
			Help:      "Appointment status updates by target status and result",
		}, []string{"status", "result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salonbook",
			Subsystem: "booking",
			Name:      "notifications_total",
			Help:      "Notification deliveries by channel and result",
		}, []string{"channel", "result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.reservations, m.reserveLatency, m.lockWait, m.slotQueries, m.slotsReturned, m.statusChanges, m.notifications)
	return m
}

func (m *BookingMetrics) ObserveReservation(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(outcome).Inc()
	m.reserveLatency.Observe(seconds)
}

func (m *BookingMetrics) ObserveLockWait(acquired bool, seconds float64) {
	if m == nil {
		return
	}
	result := "acquired"
	if !acquired {
		result = "timeout"
	}
	m.lockWait.WithLabelValues(result).Observe(seconds)
}

func (m *BookingMetrics) ObserveSlotQuery(err error, slots int) {
	if m == nil {
		return
	}
	if err != nil {
		m.slotQueries.WithLabelValues("error").Inc()
		return
	}
	m.slotQueries.WithLabelValues("ok").Inc()
	m.slotsReturned.Observe(float64(slots))
}

func (m *BookingMetrics) ObserveStatusChange(status, result string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status, result).Inc()
}

func (m *BookingMetrics) ObserveNotification(channel string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.notifications.WithLabelValues(channel, result).Inc()
}

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
