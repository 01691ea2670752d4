package apiclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for backend request metrics.
const (
	outcomeOK        = "ok"
	outcomeAPIError  = "api_error"
	outcomeTransport = "transport_error"
	outcomeOther     = "error"
)

// Metrics records backend request counts and latency.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates backend metrics and registers them with reg. A nil
// registerer leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "labtrack",
			Name:      "backend_requests_total",
			Help:      "Backend API requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "labtrack",
			Name:      "backend_request_duration_seconds",
			Help:      "Backend API request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := outcomeOK
	switch {
	case err == nil:
	case IsTransport(err):
		outcome = outcomeTransport
	default:
		if _, ok := AsAPIError(err); ok {
			outcome = outcomeAPIError
		} else {
			outcome = outcomeOther
		}
	}
	m.requests.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
