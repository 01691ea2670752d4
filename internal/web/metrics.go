package web

import "github.com/prometheus/client_golang/prometheus"

// Reasons a websocket upgrade is refused.
const (
	rejectRate     = "rate"
	rejectCapacity = "capacity"
)

type metrics struct {
	sessions prometheus.Gauge
	intents  *prometheus.CounterVec
	patches  prometheus.Counter
	resyncs  prometheus.Counter
	rejected *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "labtrack",
			Subsystem: "console",
			Name:      "sessions",
			Help:      "Open console sessions.",
		}),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labtrack",
			Subsystem: "console",
			Name:      "intents_total",
			Help:      "Intents received from browsers by action.",
		}, []string{"action"}),
		patches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "labtrack",
			Subsystem: "console",
			Name:      "patches_total",
			Help:      "DOM patches sent to browsers.",
		}),
		resyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "labtrack",
			Subsystem: "console",
			Name:      "resyncs_total",
			Help:      "Full document snapshots sent after a slow client fell behind.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labtrack",
			Subsystem: "console",
			Name:      "rejected_connections_total",
			Help:      "Websocket upgrades refused, by reason.",
		}, []string{"reason"}),
	}
	if reg != nil {
		reg.MustRegister(m.sessions, m.intents, m.patches, m.resyncs, m.rejected)
	}
	return m
}
