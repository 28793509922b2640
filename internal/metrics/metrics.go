// Package metrics exposes the Prometheus instrumentation for the
// reservation core and the HTTP surface.
package metrics

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ReservationsCreated counts successful bookings.
	ReservationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_created_total",
		Help: "Number of reservations created.",
	})

	// ReservationsReleased counts owner/admin releases, including early
	// cancellations of scheduled reservations.
	ReservationsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_released_total",
		Help: "Number of reservations released or cancelled.",
	})

	// ReservationsActivated counts scheduled reservations promoted to active
	// by the reconciliation cycle.
	ReservationsActivated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_activated_total",
		Help: "Number of scheduled reservations activated.",
	})

	// ReservationsExpired counts active reservations that ran out.
	ReservationsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_expired_total",
		Help: "Number of active reservations expired.",
	})

	// ReservationConflicts counts bookings rejected for window overlap or a
	// resource under maintenance.
	ReservationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservation_conflicts_total",
		Help: "Number of bookings rejected due to a conflict.",
	})

	// CommandsEnqueued counts device commands appended to the queue.
	CommandsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "device_commands_enqueued_total",
		Help: "Number of device commands enqueued.",
	})

	// CommandsDelivered counts device commands handed to a polling device.
	CommandsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "device_commands_delivered_total",
		Help: "Number of device commands consumed by a device poll.",
	})

	// ReconcileRuns counts reconciliation cycles.
	ReconcileRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconciliation_runs_total",
		Help: "Number of reconciliation cycles executed.",
	})

	// ReconcileFailures counts reconciliation steps that returned an error.
	ReconcileFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconciliation_failures_total",
		Help: "Number of reconciliation steps that failed.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
)

// Requests is gin middleware counting requests per matched route.
func Requests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler serves the default Prometheus registry.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
