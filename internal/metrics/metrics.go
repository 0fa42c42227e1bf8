// Package metrics exposes Prometheus collectors for ledger operations and
// HTTP traffic.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors.
type Metrics struct {
	ledgerOps      *prometheus.CounterVec
	ledgerDuration *prometheus.HistogramVec
	httpInFlight   prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ledgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger units of work by operation and result.",
		}, []string{"op", "result"}),
		ledgerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_operation_duration_seconds",
			Help:    "Ledger unit of work latency in seconds, lock waits included.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.ledgerOps, m.ledgerDuration, m.httpInFlight, m.httpRequests, m.httpDuration)
	return m
}

// ObserveOperation records one ledger unit of work.
func (m *Metrics) ObserveOperation(op, result string, seconds float64) {
	m.ledgerOps.WithLabelValues(op, result).Inc()
	m.ledgerDuration.WithLabelValues(op).Observe(seconds)
}

// Instrument measures every request. Routes are labelled by their pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) Instrument() fiber.Handler {
	return func(c *fiber.Ctx) error {
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		labels := []string{c.Method(), route, strconv.Itoa(status)}
		m.httpDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(labels...).Inc()
		return err
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
