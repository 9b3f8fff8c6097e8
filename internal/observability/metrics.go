// Package observability bundles the Prometheus collectors for the engine
// and exposes the scrape handler. Collectors are read-models only; nothing
// here feeds back into resolution.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type EngineMetrics struct {
	registry *prometheus.Registry

	turnsResolved *prometheus.CounterVec
	turnsAborted  prometheus.Counter
	turnDuration  prometheus.Histogram
	incidents     *prometheus.CounterVec
	nodeStability *prometheus.GaugeVec
	queueOpen     prometheus.Gauge
	queueStaged   prometheus.Gauge
	historyLen    prometheus.Gauge
	dropped       prometheus.Counter
}

func NewEngineMetrics() *EngineMetrics {
	reg := prometheus.NewRegistry()
	m := &EngineMetrics{
		registry: reg,
		turnsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_turns_resolved_total",
			Help: "Resolved turns, labeled by capture kind.",
		}, []string{"kind"}),
		turnsAborted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_turns_aborted_total",
			Help: "Turns aborted by a phase failure.",
		}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_turn_duration_seconds",
			Help:    "Wall time spent resolving and capturing one turn.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		incidents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_power_incidents_total",
			Help: "Power incidents emitted, labeled by kind and severity.",
		}, []string{"kind", "severity"}),
		nodeStability: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "engine_power_node_stability",
			Help: "Latest stability score per power node in [0,1].",
		}, []string{"node", "region"}),
		queueOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_turn_queue_open_orders",
			Help: "Orders accepted for the open turn.",
		}),
		queueStaged: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_turn_queue_staged_orders",
			Help: "Orders staged for the following turn.",
		}),
		historyLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_history_entries",
			Help: "Entries currently retained in the snapshot ring.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_broadcast_dropped_total",
			Help: "Broadcast frames dropped on slow subscriber queues.",
		}),
	}
	reg.MustRegister(
		m.turnsResolved, m.turnsAborted, m.turnDuration, m.incidents,
		m.nodeStability, m.queueOpen, m.queueStaged, m.historyLen, m.dropped,
	)
	return m
}

func (m *EngineMetrics) TurnResolved(kind string, d time.Duration) {
	m.turnsResolved.WithLabelValues(kind).Inc()
	m.turnDuration.Observe(d.Seconds())
}

func (m *EngineMetrics) TurnAborted() {
	m.turnsAborted.Inc()
}

func (m *EngineMetrics) IncidentEmitted(kind, severity string) {
	m.incidents.WithLabelValues(kind, severity).Inc()
}

func (m *EngineMetrics) ObserveStability(node, region string, v float64) {
	m.nodeStability.WithLabelValues(node, region).Set(v)
}

func (m *EngineMetrics) ObserveQueue(open, staged int) {
	m.queueOpen.Set(float64(open))
	m.queueStaged.Set(float64(staged))
}

func (m *EngineMetrics) ObserveHistory(n int) {
	m.historyLen.Set(float64(n))
}

func (m *EngineMetrics) BroadcastDropped() {
	m.dropped.Inc()
}

// Handler serves the metrics endpoint for this registry.
func (m *EngineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
