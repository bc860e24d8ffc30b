package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("low_stock_scan").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("low_stock_scan").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("low_stock_scan", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("low_stock_scan")))

	m.AddAlerts("sent", 3)
	m.AddAlerts("failed", 0)
	require.Equal(t, 3.0, testutil.ToFloat64(m.alerts.WithLabelValues("sent")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	require.NoError(t, m.Track("x").End(nil))
	m.AddAlerts("sent", 1)
}
