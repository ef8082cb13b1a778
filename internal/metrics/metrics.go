// Package metrics exposes Prometheus collectors for the portal.
//
// A nil *Metrics is valid and records nothing, so packages can take one as an
// optional dependency without guarding every call.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rwa"

// Metrics holds the application collectors and their registry.
type Metrics struct {
	registry *prometheus.Registry

	sheetCalls   *prometheus.CounterVec
	sheetLatency *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	payments     *prometheus.CounterVec
	jobRuns      *prometheus.CounterVec
}

// New creates collectors on a fresh registry, including Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		sheetCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sheets",
			Name:      "calls_total",
			Help:      "Spreadsheet API calls by tab, operation and result.",
		}, []string{"tab", "op", "result"}),
		sheetLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sheets",
			Name:      "call_duration_seconds",
			Help:      "Spreadsheet API call latency.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		}, []string{"tab", "op"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Maintenance payments by mode and outcome.",
		}, []string{"mode", "outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Background job runs by job and result.",
		}, []string{"job", "result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sheetCalls, m.sheetLatency,
		m.httpRequests, m.httpLatency,
		m.payments, m.jobRuns,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveSheetCall records one spreadsheet call.
func (m *Metrics) ObserveSheetCall(tab, op string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.sheetCalls.WithLabelValues(tab, op, result(err)).Inc()
	m.sheetLatency.WithLabelValues(tab, op).Observe(d.Seconds())
}

// ObserveHTTP records one HTTP request.
func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(route, method).Observe(d.Seconds())
}

// ObservePayment records a payment outcome, e.g. ("online", "confirmed").
func (m *Metrics) ObservePayment(mode, outcome string) {
	if m == nil {
		return
	}
	m.payments.WithLabelValues(mode, outcome).Inc()
}

// ObserveJob records one background job run.
func (m *Metrics) ObserveJob(job string, err error) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
