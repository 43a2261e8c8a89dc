// Package metrics collects Prometheus metrics for the HTTP layer and the
// inventory workflows, and exposes them for scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what handlers, services and jobs report to.
type Recorder interface {
	ObserveHTTPRequest(method, route string, status int, elapsed time.Duration)
	RecordOrderTransition(from, to string)
	RecordRequestDecision(status string)
	RecordStockMovement(kind string, quantity float64)
	RecordPushDelivery(success bool)
	RecordJobRun(job string, err error)
}

// Collector is the Prometheus backed Recorder.
type Collector struct {
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	orderTransitions *prometheus.CounterVec
	requestDecisions *prometheus.CounterVec
	stockMovements   *prometheus.CounterVec
	stockUnits       *prometheus.CounterVec
	pushDeliveries   *prometheus.CounterVec
	jobRuns          *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordena_http_requests_total",
			Help: "HTTP requests by method, route template and status code.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ordena_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route template.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		orderTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordena_order_transitions_total",
			Help: "Order status transitions.",
		}, []string{"from", "to"}),
		requestDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordena_request_decisions_total",
			Help: "Purchase request approvals and denials.",
		}, []string{"status"}),
		stockMovements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordena_stock_movements_total",
			Help: "Inventory movements by type.",
		}, []string{"type"}),
		stockUnits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordena_stock_units_total",
			Help: "Units moved by inventory movement type.",
		}, []string{"type"}),
		pushDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordena_push_deliveries_total",
			Help: "Push notification deliveries by outcome.",
		}, []string{"outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ordena_job_runs_total",
			Help: "Scheduled job runs by job and outcome.",
		}, []string{"job", "outcome"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.orderTransitions,
		c.requestDecisions,
		c.stockMovements,
		c.stockUnits,
		c.pushDeliveries,
		c.jobRuns,
	)
	return c
}

func (c *Collector) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (c *Collector) RecordOrderTransition(from, to string) {
	c.orderTransitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) RecordRequestDecision(status string) {
	c.requestDecisions.WithLabelValues(status).Inc()
}

func (c *Collector) RecordStockMovement(kind string, quantity float64) {
	c.stockMovements.WithLabelValues(kind).Inc()
	if quantity < 0 {
		quantity = -quantity
	}
	c.stockUnits.WithLabelValues(kind).Add(quantity)
}

func (c *Collector) RecordPushDelivery(success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	c.pushDeliveries.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordJobRun(job string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.jobRuns.WithLabelValues(job, outcome).Inc()
}

// Handler returns the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Used in tests and when METRICS_ENABLED is false.
type Nop struct{}

func (Nop) ObserveHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordOrderTransition(string, string)                 {}
func (Nop) RecordRequestDecision(string)                         {}
func (Nop) RecordStockMovement(string, float64)                  {}
func (Nop) RecordPushDelivery(bool)                              {}
func (Nop) RecordJobRun(string, error)                           {}
