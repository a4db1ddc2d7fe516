// Package observability holds the Prometheus metrics exported on /metrics.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nicktill/pingmon/pkg/ping"
)

// Metrics is the set of collectors the probe loop and HTTP layer update.
type Metrics struct {
	ProbesTotal   prometheus.Counter
	ProbesLost    prometheus.Counter
	ProbeLatency  prometheus.Histogram
	LastLatency   prometheus.Gauge
	AppendErrors  prometheus.Counter
	PrunedFiles   prometheus.Counter
	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ProbesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pingmon_probes_total",
			Help: "Total probes run, answered or lost.",
		}),
		ProbesLost: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pingmon_probes_lost_total",
			Help: "Probes that got no answer within the timeout.",
		}),
		ProbeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pingmon_probe_latency_milliseconds",
			Help:    "Round trip time of answered probes.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		LastLatency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pingmon_last_latency_milliseconds",
			Help: "Latency of the most recent probe; 1000 when it was lost.",
		}),
		AppendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pingmon_append_errors_total",
			Help: "Samples that could not be written to the log directory.",
		}),
		PrunedFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pingmon_pruned_files_total",
			Help: "Daily log files removed by retention.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pingmon_http_requests_total",
			Help: "HTTP requests served, by method, route and status.",
		}, []string{"method", "path", "status"}),
		HTTPDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pingmon_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ProbesTotal,
			m.ProbesLost,
			m.ProbeLatency,
			m.LastLatency,
			m.AppendErrors,
			m.PrunedFiles,
			m.HTTPRequests,
			m.HTTPDurations,
		)
	}
	return m
}

// ObserveSample records one probe result.
func (m *Metrics) ObserveSample(s ping.Sample) {
	m.ProbesTotal.Inc()
	m.LastLatency.Set(s.Latency)
	if s.Lost() {
		m.ProbesLost.Inc()
		return
	}
	m.ProbeLatency.Observe(s.Latency)
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, path, status string, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPDurations.WithLabelValues(method, path).Observe(d.Seconds())
}

// ObservePruned counts files removed on day rollover.
func (m *Metrics) ObservePruned(files []string) {
	m.PrunedFiles.Add(float64(len(files)))
}
