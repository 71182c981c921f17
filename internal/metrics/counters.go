// README: Prometheus counters for fares, bookings and distance lookups.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taxibook"

var faresCalculated = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "fares_calculated_total",
	Help:      "Fares calculated, by mode and vehicle type.",
}, []string{"mode", "vehicle_type"})

var fareErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "fare_errors_total",
	Help:      "Rejected fare calculations, by mode and error kind.",
}, []string{"mode", "kind"})

var bookings = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "bookings_total",
	Help:      "Booking writes, by trip type and resulting status.",
}, []string{"trip_type", "status"})

var distanceLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "distance_lookups_total",
	Help:      "Distance lookups by result (hit, miss, error).",
}, []string{"result"})

func CountFare(mode, vehicleType string) {
	if len(mode) == 0 {
		return
	}
	faresCalculated.With(prometheus.Labels{"mode": mode, "vehicle_type": vehicleType}).Inc()
}

func CountFareError(mode, kind string) {
	if len(mode) == 0 || len(kind) == 0 {
		return
	}
	fareErrors.With(prometheus.Labels{"mode": mode, "kind": kind}).Inc()
}

func CountBooking(tripType, status string) {
	if len(tripType) == 0 || len(status) == 0 {
		return
	}
	bookings.With(prometheus.Labels{"trip_type": tripType, "status": status}).Inc()
}

func CountDistanceLookup(result string) {
	distanceLookups.With(prometheus.Labels{"result": result}).Inc()
}
