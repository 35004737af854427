package metrics_test

import (
	"testing"

	"github.com/jrsteele09/go-crud-session/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.IncrementLoginStarted()
	m.IncrementCallback(metrics.OutcomeSuccess)
	m.IncrementCallback(metrics.OutcomeCSRF)
	m.IncrementCallback(metrics.OutcomeCSRF)
	m.IncrementRefresh(metrics.OutcomeFailure)
	m.IncrementLogout(metrics.LogoutForced)
	m.IncrementIdentityFetchFailure()
	m.IncrementStorageUnavailable()

	require.Equal(t, 1.0, testutil.ToFloat64(m.LoginsStarted))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Callbacks.WithLabelValues(metrics.OutcomeSuccess)))
	require.Equal(t, 2.0, testutil.ToFloat64(m.Callbacks.WithLabelValues(metrics.OutcomeCSRF)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Refreshes.WithLabelValues(metrics.OutcomeFailure)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Logouts.WithLabelValues(metrics.LogoutForced)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.IdentityFetchFailures))
	require.Equal(t, 1.0, testutil.ToFloat64(m.StorageUnavailableSeen))
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	require.NotPanics(t, func() {
		metrics.New(prometheus.NewRegistry())
		metrics.New(prometheus.NewRegistry())
	})
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	require.NotPanics(t, func() {
		m.IncrementLoginStarted()
		m.IncrementCallback(metrics.OutcomeNoop)
		m.IncrementRefresh(metrics.OutcomeSuccess)
		m.IncrementLogout(metrics.LogoutLocal)
		m.IncrementIdentityFetchFailure()
		m.IncrementStorageUnavailable()
	})
}
