package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestJobMetricsRecordsRunsAndLastSuccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewJobMetrics(reg)
	finished := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	m.Record("escrow-auto-release", 250*time.Millisecond, nil, finished)
	m.Record("escrow-auto-release", time.Second, errors.New("db down"), finished.Add(time.Hour))

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("escrow-auto-release", resultSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("escrow-auto-release", resultFailure)))
	// a failed run must not move the staleness gauge
	require.Equal(t, float64(finished.Unix()), testutil.ToFloat64(m.lastSuccess.WithLabelValues("escrow-auto-release")))

	mfs, err := reg.Gather()
	require.NoError(t, err)
	hist := findMetricFamily(mfs, "settlement_cron_job_duration_seconds")
	require.NotNil(t, hist)
	require.Len(t, hist.GetMetric(), 1)
	require.Equal(t, uint64(2), hist.GetMetric()[0].GetHistogram().GetSampleCount())
	require.InDelta(t, 1.25, hist.GetMetric()[0].GetHistogram().GetSampleSum(), 1e-9)
}

func TestJobMetricsNilSafe(t *testing.T) {
	var nilMetrics *JobMetrics
	nilMetrics.Record("x", time.Second, nil, time.Now())
	NewJobMetrics(nil).Record("", time.Second, nil, time.Now())
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
