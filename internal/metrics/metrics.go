// Package metrics owns the Prometheus registry and the collectors recorded
// by the HTTP layer and the services.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector exposed on /metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	httpRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventhub_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// EventOps counts event writes by operation (created, updated, deleted).
	EventOps = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_event_operations_total",
			Help: "Event writes by operation",
		},
		[]string{"operation"},
	)

	// ReservationOps counts reservation writes by operation (reserved, registered, cancelled).
	ReservationOps = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_reservation_operations_total",
			Help: "Reservation writes by operation",
		},
		[]string{"operation"},
	)

	// OrphansSwept counts reservations removed because their event was gone.
	OrphansSwept = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "eventhub_orphan_reservations_swept_total",
			Help: "Reservations deleted after their event disappeared",
		},
	)

	// CacheLookups counts response cache lookups by result (hit, miss).
	CacheLookups = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_cache_lookups_total",
			Help: "Response cache lookups by result",
		},
		[]string{"result"},
	)

	// RateLimitDecisions counts limiter outcomes (allowed, blocked, error).
	RateLimitDecisions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_ratelimit_decisions_total",
			Help: "Rate limiter decisions by outcome",
		},
		[]string{"outcome"},
	)

	// BrokerMessages counts published and consumed broker messages.
	BrokerMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_broker_messages_total",
			Help: "Broker messages by queue, direction and outcome",
		},
		[]string{"queue", "direction", "outcome"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Middleware records request count and latency per matched route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			httpRequests.WithLabelValues(method, route, strconv.Itoa(c.Response().Status)).Inc()
			httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
