package slo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atarist-core/emucore/slo"
)

func newSampler(t *testing.T) *slo.Sampler {
	t.Helper()
	s, err := slo.New(slo.Config{SamplingIntervalMs: 250, WindowMs: 1000}, 0)
	require.NoError(t, err)
	return s
}

func TestConfigBounds(t *testing.T) {
	_, err := slo.New(slo.Config{SamplingIntervalMs: 50, WindowMs: 1000}, 0)
	assert.Error(t, err)
	_, err = slo.New(slo.Config{SamplingIntervalMs: 250, WindowMs: 500}, 0)
	assert.Error(t, err)
	_, err = slo.New(slo.Config{SamplingIntervalMs: 10000, WindowMs: 60000}, 0)
	assert.NoError(t, err)
}

func TestSamplesAreMonotonicAndNonOverlapping(t *testing.T) {
	s := newSampler(t)

	s.Observe(slo.MetricInputLatencyMs, 10, 100_000)
	s.Observe(slo.MetricInputLatencyMs, 20, 900_000)

	// window not yet elapsed
	samples, _ := s.Sample(500_000)
	assert.Empty(t, samples)

	samples, _ = s.Sample(1_000_000)
	require.Len(t, samples, 1)
	assert.Equal(t, uint64(1), samples[0].SampleSeq)
	assert.Equal(t, int64(0), samples[0].WindowStartUs)
	assert.Equal(t, int64(1_000_000), samples[0].WindowEndUs)
	assert.Equal(t, 15.0, samples[0].Observed)
	assert.Equal(t, 2, samples[0].Count)

	// second window starts exactly where the first ended
	s.Observe(slo.MetricInputLatencyMs, 30, 1_500_000)
	samples, _ = s.Sample(2_000_000)
	require.Len(t, samples, 1)
	assert.Equal(t, uint64(2), samples[0].SampleSeq)
	assert.Equal(t, int64(1_000_000), samples[0].WindowStartUs)
}

func TestObservationPastWindowEndCarriesOver(t *testing.T) {
	s := newSampler(t)

	s.Observe(slo.MetricJitterMs, 5, 500_000)
	s.Observe(slo.MetricJitterMs, 50, 1_200_000) // belongs to the next window

	samples, _ := s.Sample(1_500_000)
	require.Len(t, samples, 1)
	assert.Equal(t, 5.0, samples[0].Observed)

	samples, _ = s.Sample(2_000_000)
	require.Len(t, samples, 1)
	assert.Equal(t, 50.0, samples[0].Observed)
}

func TestAlarmBreachAndSingleRecovery(t *testing.T) {
	s := newSampler(t)

	// breach input latency (default threshold 50ms) at critical severity
	s.Observe(slo.MetricInputLatencyMs, 80, 500_000)
	_, alarms := s.Sample(1_000_000)
	require.Len(t, alarms, 1)
	assert.Equal(t, slo.AlarmBreached, alarms[0].State)
	assert.Equal(t, "critical", alarms[0].Severity) // 80 >= 1.2*50

	// still breached: no repeated alarm
	s.Observe(slo.MetricInputLatencyMs, 70, 1_500_000)
	_, alarms = s.Sample(2_000_000)
	assert.Empty(t, alarms)

	// recovery fires exactly once
	s.Observe(slo.MetricInputLatencyMs, 10, 2_500_000)
	_, alarms = s.Sample(3_000_000)
	require.Len(t, alarms, 1)
	assert.Equal(t, slo.AlarmRecovered, alarms[0].State)

	s.Observe(slo.MetricInputLatencyMs, 10, 3_500_000)
	_, alarms = s.Sample(4_000_000)
	assert.Empty(t, alarms)
}

func TestAlarmWarningSeverity(t *testing.T) {
	s := newSampler(t)
	s.SetThreshold(slo.MetricJitterMs, 30)

	s.Observe(slo.MetricJitterMs, 31, 500_000) // over, but under 1.2x
	_, alarms := s.Sample(1_000_000)
	require.Len(t, alarms, 1)
	assert.Equal(t, "warning", alarms[0].Severity)
}

func TestObservedEqualToThresholdIsHealthy(t *testing.T) {
	s := newSampler(t)

	s.Observe(slo.MetricDroppedFramePct, 1.0, 500_000) // == threshold
	_, alarms := s.Sample(1_000_000)
	assert.Empty(t, alarms)
}
