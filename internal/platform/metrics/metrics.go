package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the download orchestrator.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry           *prometheus.Registry
	requestsTotal      prometheus.Counter
	errorsTotal        prometheus.Counter
	jobsSubmittedTotal prometheus.Counter
	jobsCompletedTotal prometheus.Counter
	jobsFailedTotal    *prometheus.CounterVec
	pollsTotal         prometheus.Counter
	activeJobs         prometheus.Gauge
	historySize        prometheus.Gauge
}

// New creates and registers Prometheus metrics for the orchestrator.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contentgrab_http_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contentgrab_http_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		jobsSubmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contentgrab_jobs_submitted_total",
			Help: "Total number of download jobs submitted",
		}),
		jobsCompletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contentgrab_jobs_completed_total",
			Help: "Total number of download jobs that completed",
		}),
		jobsFailedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contentgrab_jobs_failed_total",
			Help: "Total number of download jobs that failed, by failure kind",
		}, []string{"kind"}),
		pollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "contentgrab_status_polls_total",
			Help: "Total number of status checks sent for deferred jobs",
		}),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "contentgrab_active_jobs",
			Help: "Number of jobs that have not reached a terminal status",
		}),
		historySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "contentgrab_history_records",
			Help: "Number of records in the download history",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.jobsSubmittedTotal,
		m.jobsCompletedTotal,
		m.jobsFailedTotal,
		m.pollsTotal,
		m.activeJobs,
		m.historySize,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	if m == nil {
		return
	}
	m.requestsTotal.Inc()
}

// IncErrors increments the HTTP errors counter.
func (m *Metrics) IncErrors() {
	if m == nil {
		return
	}
	m.errorsTotal.Inc()
}

// IncJobsSubmitted increments the submitted jobs counter.
func (m *Metrics) IncJobsSubmitted() {
	if m == nil {
		return
	}
	m.jobsSubmittedTotal.Inc()
}

// IncJobsCompleted increments the completed jobs counter.
func (m *Metrics) IncJobsCompleted() {
	if m == nil {
		return
	}
	m.jobsCompletedTotal.Inc()
}

// IncJobsFailed increments the failed jobs counter for the given kind.
func (m *Metrics) IncJobsFailed(kind string) {
	if m == nil {
		return
	}
	m.jobsFailedTotal.WithLabelValues(kind).Inc()
}

// IncPolls increments the status poll counter.
func (m *Metrics) IncPolls() {
	if m == nil {
		return
	}
	m.pollsTotal.Inc()
}

// SetActiveJobs sets the active jobs gauge.
func (m *Metrics) SetActiveJobs(n int) {
	if m == nil {
		return
	}
	m.activeJobs.Set(float64(n))
}

// SetHistorySize sets the history records gauge.
func (m *Metrics) SetHistorySize(n int) {
	if m == nil {
		return
	}
	m.historySize.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
