// Package telemetry exposes session lifecycle metrics to Prometheus and
// configures OpenTelemetry tracing.
package telemetry

import (
	"net/http"

	"github.com/flemzord/convo/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "convo"

// Metrics records session and history events on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	created         prometheus.Counter
	resumed         prometheus.Counter
	resumeMisses    prometheus.Counter
	pruned          prometheus.Counter
	persistFailures prometheus.Counter
	live            prometheus.Gauge
}

// Compile-time interface check.
var _ session.Metrics = (*Metrics)(nil)

// NewMetrics registers the convo collectors together with the Go runtime
// and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		created: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Conversations started.",
		}),
		resumed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_resumed_total",
			Help:      "Conversations resumed from history.",
		}),
		resumeMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_resume_misses_total",
			Help:      "Resume requests that matched no history entry.",
		}),
		pruned: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_pruned_total",
			Help:      "Live sessions dropped for inactivity.",
		}),
		persistFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_persist_failures_total",
			Help:      "Failed loads or saves of the history backing store.",
		}),
		live: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions",
			Help:      "Chats with a live session.",
		}),
	}
}

// SessionCreated implements session.Metrics.
func (m *Metrics) SessionCreated() { m.created.Inc() }

// SessionResumed implements session.Metrics.
func (m *Metrics) SessionResumed() { m.resumed.Inc() }

// ResumeMissed implements session.Metrics.
func (m *Metrics) ResumeMissed() { m.resumeMisses.Inc() }

// SessionsPruned implements session.Metrics.
func (m *Metrics) SessionsPruned(n int) { m.pruned.Add(float64(n)) }

// LiveSessions implements session.Metrics.
func (m *Metrics) LiveSessions(n int) { m.live.Set(float64(n)) }

// PersistFailure counts a history persistence failure. It matches the
// history.WithPersistFailureHook signature.
func (m *Metrics) PersistFailure(error) { m.persistFailures.Inc() }

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
