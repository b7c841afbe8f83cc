package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsStatus(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("capture:generate").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("capture:generate").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("capture:generate", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("capture:generate", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("capture:generate")))
}

func TestStageAndSweepCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddStage("analyzed")
	m.AddStage("analyzed")
	m.AddStage("")
	m.AddSwept(3)
	m.AddSwept(0)

	require.Equal(t, 2.0, testutil.ToFloat64(m.stages.WithLabelValues("analyzed")))
	require.Equal(t, 3.0, testutil.ToFloat64(m.swept))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.AddStage("analyzed")
	m.AddSwept(1)
	require.NoError(t, m.Track("x").End(nil))
}
