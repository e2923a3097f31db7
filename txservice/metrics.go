package txservice

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records submission outcomes and estimate latency.
type Metrics interface {
	Submitted(chainID string)
	Succeeded(chainID string)
	Failed(chainID string)
	Estimated(chainID string, d time.Duration)
}

// NopMetrics records nothing.
type NopMetrics struct{}

func (NopMetrics) Submitted(string)                {}
func (NopMetrics) Succeeded(string)                {}
func (NopMetrics) Failed(string)                   {}
func (NopMetrics) Estimated(string, time.Duration) {}

// PrometheusMetrics exports Metrics as prometheus collectors.
type PrometheusMetrics struct {
	submissions *prometheus.CounterVec
	estimates   *prometheus.HistogramVec
}

// NewPrometheusMetrics registers the collectors with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "spektr",
				Name:      "submissions_total",
				Help:      "extrinsic submissions by outcome",
			},
			[]string{"chain_id", "outcome"},
		),
		estimates: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "spektr",
				Name:      "estimate_seconds",
				Help:      "payment info round trip latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"chain_id"},
		),
	}
	for _, c := range []prometheus.Collector{m.submissions, m.estimates} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *PrometheusMetrics) Submitted(chainID string) {
	m.submissions.WithLabelValues(chainID, "submitted").Inc()
}

func (m *PrometheusMetrics) Succeeded(chainID string) {
	m.submissions.WithLabelValues(chainID, "succeeded").Inc()
}

func (m *PrometheusMetrics) Failed(chainID string) {
	m.submissions.WithLabelValues(chainID, "failed").Inc()
}

func (m *PrometheusMetrics) Estimated(chainID string, d time.Duration) {
	m.estimates.WithLabelValues(chainID).Observe(d.Seconds())
}
