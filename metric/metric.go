// Package metric exposes prometheus collectors for the media graph: stream
// write/read/drop counters and a gauge of running nodes. The introspection
// server mounts the matching /metrics endpoint.
package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups all graph-level collectors.
type Metrics struct {
	StreamWrites   *prometheus.CounterVec
	StreamRejected *prometheus.CounterVec
	StreamDropped  *prometheus.CounterVec
	StreamReads    *prometheus.CounterVec
	QueueDepth     *prometheus.GaugeVec
	RunningNodes   prometheus.Gauge
}

// NewMetrics creates all collectors, unregistered.
func NewMetrics() *Metrics {
	return &Metrics{
		StreamWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mediagraph",
				Subsystem: "stream",
				Name:      "writes_total",
				Help:      "Successful writes per stream",
			},
			[]string{"stream"},
		),
		StreamRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mediagraph",
				Subsystem: "stream",
				Name:      "writes_rejected_total",
				Help:      "Writes rejected because the stream was closed or the timestamp went back in time",
			},
			[]string{"stream"},
		),
		StreamDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mediagraph",
				Subsystem: "stream",
				Name:      "entries_dropped_total",
				Help:      "Entries evicted by the drop policy before every reader consumed them",
			},
			[]string{"stream"},
		),
		StreamReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mediagraph",
				Subsystem: "stream",
				Name:      "reads_total",
				Help:      "Entries delivered to readers per stream",
			},
			[]string{"stream"},
		),
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "mediagraph",
				Subsystem: "stream",
				Name:      "queue_depth",
				Help:      "Entries currently buffered per stream",
			},
			[]string{"stream"},
		),
		RunningNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "mediagraph",
				Subsystem: "graph",
				Name:      "running_nodes",
				Help:      "Nodes currently running",
			},
		),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.StreamWrites, m.StreamRejected, m.StreamDropped,
		m.StreamReads, m.QueueDepth, m.RunningNodes,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Default is the shared instance the graph packages report into. It is not
// registered anywhere until RegisterDefault is called, so tests can run
// without a prometheus registry.
var Default = NewMetrics()

// RegisterDefault registers the shared instance with the default prometheus
// registry.
func RegisterDefault() error {
	return Default.Register(prometheus.DefaultRegisterer)
}
