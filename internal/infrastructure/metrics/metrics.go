// Package metrics exposes Prometheus collectors for the tracker.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLLECTORS
// ══════════════════════════════════════════════════════════════════════════════

// Metrics holds every collector the tracker records into. It satisfies the
// command layer's Recorder interface.
type Metrics struct {
	registry *prometheus.Registry

	sessionsStarted  prometheus.Counter
	sessionsEnded    prometheus.Counter
	secondsCommitted prometheus.Counter
	sessionsSwept    prometheus.Counter
	refreshFailures  prometheus.Counter
	reportsPublished prometheus.Counter
}

// New creates the collectors and registers them, along with the standard Go
// and process collectors, on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studytracker",
			Name:      "sessions_started_total",
			Help:      "Number of study sessions started.",
		}),
		sessionsEnded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studytracker",
			Name:      "sessions_ended_total",
			Help:      "Number of study sessions ended and committed.",
		}),
		secondsCommitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studytracker",
			Name:      "seconds_committed_total",
			Help:      "Total study seconds committed into the leaderboards.",
		}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studytracker",
			Name:      "sessions_swept_total",
			Help:      "Number of day-spanning sessions discarded by the sweeper.",
		}),
		refreshFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studytracker",
			Name:      "report_refresh_failures_total",
			Help:      "Number of live report refresh ticks that failed.",
		}),
		reportsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "studytracker",
			Name:      "reports_published_total",
			Help:      "Number of report messages published or edited.",
		}),
	}

	registry.MustRegister(
		m.sessionsStarted,
		m.sessionsEnded,
		m.secondsCommitted,
		m.sessionsSwept,
		m.refreshFailures,
		m.reportsPublished,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ─────────────────────────────────────────────────────────────────────────────
// Recording
// ─────────────────────────────────────────────────────────────────────────────

// SessionStarted records a started session.
func (m *Metrics) SessionStarted() {
	m.sessionsStarted.Inc()
}

// SessionEnded records an ended session and its committed seconds.
func (m *Metrics) SessionEnded(seconds int64) {
	m.sessionsEnded.Inc()
	m.secondsCommitted.Add(float64(seconds))
}

// SessionsSwept records discarded day-spanning sessions.
func (m *Metrics) SessionsSwept(count int64) {
	m.sessionsSwept.Add(float64(count))
}

// RefreshFailed records a failed live report tick.
func (m *Metrics) RefreshFailed() {
	m.refreshFailures.Inc()
}

// ReportPublished records a published or edited report message.
func (m *Metrics) ReportPublished() {
	m.reportsPublished.Inc()
}
