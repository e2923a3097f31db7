package txservice

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMetrics(reg)
	require.NoError(t, err)

	m.Submitted("polkadot")
	m.Submitted("polkadot")
	m.Succeeded("polkadot")
	m.Failed("polkadot")
	m.Submitted("kusama")
	m.Estimated("polkadot", 20*time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.submissions.WithLabelValues("polkadot", "submitted")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("polkadot", "succeeded")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("polkadot", "failed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("kusama", "submitted")))
	require.Equal(t, 1, testutil.CollectAndCount(m.estimates))

	_, err = NewPrometheusMetrics(reg)
	require.Error(t, err)
}

func TestNopMetrics(t *testing.T) {
	var m Metrics = NopMetrics{}
	m.Submitted("polkadot")
	m.Estimated("polkadot", time.Second)
}
