package metrics

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector encapsulates Prometheus instrumentation for the local surface,
// the upstream transport and the trigger flow.
type Collector struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	upstreamTotal    *prometheus.CounterVec
	triggerTotal     *prometheus.CounterVec
}

// NewCollector registers the core collectors on a private registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of local HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of local HTTP requests",
	}, []string{"method", "path", "status"})

	upstreamDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_request_duration_seconds",
		Help:    "Duration of upstream API calls in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})

	upstreamTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_requests_total",
		Help: "Total number of upstream API calls",
	}, []string{"method", "status"})

	triggerTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "triggers_total",
		Help: "Total number of dispatched triggers",
	}, []string{"entity", "op"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, upstreamDuration, upstreamTotal, triggerTotal, goroutines)

	return &Collector{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		upstreamDuration: upstreamDuration,
		upstreamTotal:    upstreamTotal,
		triggerTotal:     triggerTotal,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return c.handler
}

// ObserveHTTPRequest records a local request.
func (c *Collector) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	c.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	c.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveUpstream records an upstream call; it satisfies transport.Observer.
// A zero status means the upstream was unreachable.
func (c *Collector) ObserveUpstream(method, endpoint string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	c.upstreamDuration.WithLabelValues(method, labelStatus).Observe(duration.Seconds())
	c.upstreamTotal.WithLabelValues(method, labelStatus).Inc()
}

// RecordTrigger counts a dispatched trigger.
func (c *Collector) RecordTrigger(entity, op string) {
	if c == nil {
		return
	}
	c.triggerTotal.WithLabelValues(entity, op).Inc()
}
