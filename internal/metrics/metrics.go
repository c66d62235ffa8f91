// Package metrics exposes reservation outcomes as Prometheus metrics.
package metrics

import (
    "net/http"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements reservation.Recorder on top of Prometheus counters.
type Collector struct {
    bookings    prometheus.Counter
    seatsBooked prometheus.Counter
    bookingSize prometheus.Histogram
    failures    *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
    c := &Collector{
        bookings: prometheus.NewCounter(prometheus.CounterOpts{
            Name: "stagepass_bookings_total",
            Help: "Confirmed bookings.",
        }),
        seatsBooked: prometheus.NewCounter(prometheus.CounterOpts{
            Name: "stagepass_seats_booked_total",
            Help: "Seats moved from available to booked.",
        }),
        bookingSize: prometheus.NewHistogram(prometheus.HistogramOpts{
            Name:    "stagepass_booking_seats",
            Help:    "Seats per confirmed booking.",
            Buckets: []float64{1, 2, 3, 4, 6, 8, 10},
        }),
        failures: prometheus.NewCounterVec(prometheus.CounterOpts{
            Name: "stagepass_reservation_failures_total",
            Help: "Rejected reservations by reason (validation, not_found, conflict, infrastructure).",
        }, []string{"reason"}),
    }

    reg.MustRegister(
        c.bookings,
        c.seatsBooked,
        c.bookingSize,
        c.failures,
    )
    return c
}

// BookingConfirmed records one committed booking of seats seats.
func (c *Collector) BookingConfirmed(seats int) {
    c.bookings.Inc()
    c.seatsBooked.Add(float64(seats))
    c.bookingSize.Observe(float64(seats))
}

// ReservationFailed records a rejected reservation.
func (c *Collector) ReservationFailed(reason string) {
    c.failures.WithLabelValues(reason).Inc()
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
    return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
