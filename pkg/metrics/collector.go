// Package metrics exposes Prometheus instrumentation for the bot.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskmate-bot/taskmate/internal/engine"
	"github.com/taskmate-bot/taskmate/internal/session"
)

var (
	botUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of bot updates received labeled by kind and status",
		},
		[]string{"kind", "status"},
	)
	updateDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "update_duration_seconds",
			Help:    "Duration of update handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	dispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fsm_dispatches_total",
			Help: "Total number of conversation engine dispatches by kind and key",
		},
		[]string{"kind", "key"},
	)
	sessionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_store_failures_total",
			Help: "Total number of session store failures by operation",
		},
		[]string{"op"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"code", "severity"},
	)
)

func init() {
	engine.RegisterDispatchRecorder(RecordDispatch)
	session.RegisterFailureRecorder(RecordSessionFailure)
}

// RecordSessionFailure counts a session store failure for an operation.
func RecordSessionFailure(op string) {
	if op == "" {
		op = "unknown"
	}

	sessionFailuresTotal.WithLabelValues(op).Inc()
}

// RecordUpdate increments update counters and records handling duration.
func RecordUpdate(kind, status string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botUpdatesTotal.WithLabelValues(kind, status).Inc()
	updateDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordDispatch tracks engine dispatches per state or action.
func RecordDispatch(kind, key string) {
	if kind == "" {
		kind = "unknown"
	}
	if key == "" {
		key = "unknown"
	}

	dispatchesTotal.WithLabelValues(kind, key).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(code, severity string) {
	if code == "" {
		code = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(code, severity).Inc()
}

// Handler returns the HTTP handler serving the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
