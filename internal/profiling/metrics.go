package profiling

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voxelworld"

// Metrics are the engine's Prometheus instruments. Counters are cumulative
// over the process; gauges describe the last frame.
type Metrics struct {
	ColumnsLoaded   prometheus.Counter
	ColumnsUnloaded prometheus.Counter
	SectionsMeshed  prometheus.Counter
	FallersLanded   prometheus.Counter

	LoadedColumns   prometheus.Gauge
	DirtySections   prometheus.Gauge
	VisibleSections prometheus.Gauge
	LiveFallers     prometheus.Gauge

	FrameSeconds prometheus.Histogram
	PhaseSeconds *prometheus.HistogramVec
}

// NewMetrics builds the instruments and registers them with reg. A nil
// registerer leaves them unregistered, which tests and embedders rely on to
// create several engines in one process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ColumnsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "columns_loaded_total",
			Help:      "Columns generated or restored into the store.",
		}),
		ColumnsUnloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "columns_unloaded_total",
			Help:      "Columns dropped after leaving the streaming radius.",
		}),
		SectionsMeshed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sections_meshed_total",
			Help:      "Section meshes rebuilt and published.",
		}),
		FallersLanded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallers_landed_total",
			Help:      "Falling blocks that came to rest.",
		}),
		LoadedColumns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loaded_columns",
			Help:      "Columns currently held by the store.",
		}),
		DirtySections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dirty_sections",
			Help:      "Sections waiting for a mesh rebuild after the last frame.",
		}),
		VisibleSections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "visible_sections",
			Help:      "Sections marked visible by the last visibility walk.",
		}),
		LiveFallers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_fallers",
			Help:      "Falling blocks currently in flight.",
		}),
		FrameSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_seconds",
			Help:      "Wall time of Engine.Update.",
			Buckets:   []float64{0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.066, 0.1, 0.25},
		}),
		PhaseSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_seconds",
			Help:      "Per-frame time spent in each tracked phase.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.05},
		}, []string{"phase"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.ColumnsLoaded, m.ColumnsUnloaded, m.SectionsMeshed, m.FallersLanded,
			m.LoadedColumns, m.DirtySections, m.VisibleSections, m.LiveFallers,
			m.FrameSeconds, m.PhaseSeconds,
		)
	}
	return m
}

// ObservePhases feeds the current frame totals into PhaseSeconds.
func (m *Metrics) ObservePhases() {
	for name, d := range Snapshot() {
		m.PhaseSeconds.WithLabelValues(name).Observe(d.Seconds())
	}
}
