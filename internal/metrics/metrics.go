// Package metrics owns the Prometheus collectors of the service.  A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.  A nil
// *Metrics is safe to use and records nothing.
type Metrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	lifecycle *prometheus.CounterVec
	stockSize prometheus.Gauge
}

// New registers the collectors on a private registry under namespace.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "hotel"
	}
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests processed.",
	}, []string{"route", "method", "status"})
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
	lifecycle := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reservation_operations_total",
		Help:      "Reservation lifecycle operations by outcome.",
	}, []string{"operation", "outcome"})
	stockSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stock_room_types",
		Help:      "Room types in the loaded stock snapshot.",
	})
	registry.MustRegister(requests, durations, lifecycle, stockSize)
	return &Metrics{
		registry:  registry,
		requests:  requests,
		durations: durations,
		lifecycle: lifecycle,
		stockSize: stockSize,
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one finished request under its route template.
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.durations.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// Lifecycle counts one reservation operation.  outcome is "ok" or an error
// code.
func (m *Metrics) Lifecycle(operation, outcome string) {
	if m == nil {
		return
	}
	m.lifecycle.WithLabelValues(operation, outcome).Inc()
}

// SetStockSize publishes how many room types the stock snapshot holds.
func (m *Metrics) SetStockSize(n int) {
	if m == nil {
		return
	}
	m.stockSize.Set(float64(n))
}

// LifecycleCount returns the current value of one lifecycle counter.
func (m *Metrics) LifecycleCount(operation, outcome string) float64 {
	if m == nil {
		return 0
	}
	return counterValue(m.lifecycle.WithLabelValues(operation, outcome))
}
