package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects contraction progress. a nil *Metrics is valid and records nothing.
type Metrics struct {
	VerticesContracted prometheus.Counter
	ShortcutsAdded     prometheus.Counter
	WitnessSearches    prometheus.Counter
	LazyUpdates        prometheus.Counter
	PendingVertices    prometheus.Gauge
	ShortcutsPerVertex prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		VerticesContracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "navigatorx",
			Subsystem: "contraction",
			Name:      "vertices_contracted_total",
			Help:      "Number of vertices removed from the graph by contraction.",
		}),
		ShortcutsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "navigatorx",
			Subsystem: "contraction",
			Name:      "shortcuts_added_total",
			Help:      "Number of shortcut edges created.",
		}),
		WitnessSearches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "navigatorx",
			Subsystem: "contraction",
			Name:      "witness_searches_total",
			Help:      "Number of bounded dijkstra runs made by contraction plans.",
		}),
		LazyUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "navigatorx",
			Subsystem: "contraction",
			Name:      "lazy_updates_total",
			Help:      "Number of stale heap entries re-inserted with their current score.",
		}),
		PendingVertices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "navigatorx",
			Subsystem: "contraction",
			Name:      "pending_vertices",
			Help:      "Number of vertices not yet contracted.",
		}),
		ShortcutsPerVertex: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "navigatorx",
			Subsystem: "contraction",
			Name:      "shortcuts_per_vertex",
			Help:      "Shortcuts created by a single vertex contraction.",
			Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
	}
	reg.MustRegister(m.VerticesContracted, m.ShortcutsAdded, m.WitnessSearches,
		m.LazyUpdates, m.PendingVertices, m.ShortcutsPerVertex)
	return m
}

func (m *Metrics) ObserveContraction(shortcuts int) {
	if m == nil {
		return
	}
	m.VerticesContracted.Inc()
	m.ShortcutsAdded.Add(float64(shortcuts))
	m.ShortcutsPerVertex.Observe(float64(shortcuts))
}

func (m *Metrics) AddWitnessSearches(n int) {
	if m == nil {
		return
	}
	m.WitnessSearches.Add(float64(n))
}

func (m *Metrics) IncLazyUpdate() {
	if m == nil {
		return
	}
	m.LazyUpdates.Inc()
}

func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.PendingVertices.Set(float64(n))
}
