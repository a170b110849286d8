// Package slo samples the engine's service-level indicators over rolling,
// non-overlapping windows and raises threshold alarms. The emulation task
// feeds raw observations (input latency, frame jitter, dropped frames);
// the sampler aggregates them into monotonically numbered samples and
// compares each against its metric's threshold.
package slo

import (
	"sync"

	"github.com/atarist-core/emucore/curated"
)

// Metric names one service-level indicator.
type Metric string

const (
	MetricInputLatencyMs Metric = "input_latency_ms"
	MetricJitterMs       Metric = "jitter_ms"
	MetricDroppedFramePct Metric = "dropped_frame_pct"
)

// Metrics lists every known metric in a fixed order.
var Metrics = []Metric{MetricInputLatencyMs, MetricJitterMs, MetricDroppedFramePct}

// DefaultThresholds are the engine's hard SLO targets.
var DefaultThresholds = map[Metric]float64{
	MetricInputLatencyMs:  50,
	MetricJitterMs:        30,
	MetricDroppedFramePct: 1,
}

// Config bounds the sampler's cadence and window.
type Config struct {
	SamplingIntervalMs int
	WindowMs           int
}

// Validate enforces the documented cadence and window ranges.
func (c Config) Validate() error {
	if c.SamplingIntervalMs < 100 || c.SamplingIntervalMs > 10000 {
		return curated.New(curated.CategoryRequest, curated.CodeInternalError, false,
			"slo: sampling_interval_ms %d outside [100, 10000]", c.SamplingIntervalMs)
	}
	if c.WindowMs < 1000 || c.WindowMs > 60000 {
		return curated.New(curated.CategoryRequest, curated.CodeInternalError, false,
			"slo: window_ms %d outside [1000, 60000]", c.WindowMs)
	}
	return nil
}

// Sample is one aggregated window for one metric.
type Sample struct {
	SampleSeq     uint64  `json:"sample_seq"`
	Metric        Metric  `json:"metric"`
	WindowStartUs int64   `json:"window_start_us"`
	WindowEndUs   int64   `json:"window_end_us"`
	Observed      float64 `json:"observed"`
	Count         int     `json:"count"`
}

// AlarmState is breached or recovered.
type AlarmState string

const (
	AlarmBreached  AlarmState = "breached"
	AlarmRecovered AlarmState = "recovered"
)

// Alarm is one threshold transition.
type Alarm struct {
	Metric    Metric     `json:"metric"`
	State     AlarmState `json:"state"`
	Severity  string     `json:"severity"`
	Observed  float64    `json:"observed"`
	Threshold float64    `json:"threshold"`
	SampleSeq uint64     `json:"sample_seq"`
}

type observation struct {
	tsUs  int64
	value float64
}

// Sampler aggregates observations into windowed samples.
type Sampler struct {
	mu  sync.Mutex
	cfg Config

	observations map[Metric][]observation
	thresholds   map[Metric]float64
	breached     map[Metric]bool

	sampleSeq     uint64
	windowStartUs int64
}

// New constructs a sampler with the default thresholds. The window origin
// is startUs.
func New(cfg Config, startUs int64) (*Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	thresholds := make(map[Metric]float64, len(DefaultThresholds))
	for m, v := range DefaultThresholds {
		thresholds[m] = v
	}
	return &Sampler{
		cfg:           cfg,
		observations:  make(map[Metric][]observation),
		thresholds:    thresholds,
		breached:      make(map[Metric]bool),
		windowStartUs: startUs,
	}, nil
}

// SetThreshold replaces one metric's alarm threshold.
func (s *Sampler) SetThreshold(m Metric, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds[m] = v
}

// Threshold returns the metric's current threshold.
func (s *Sampler) Threshold(m Metric) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thresholds[m]
}

// Observe records one raw observation at tsUs.
func (s *Sampler) Observe(m Metric, value float64, tsUs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observations[m] = append(s.observations[m], observation{tsUs: tsUs, value: value})
}

// Sample closes the current window if nowUs has passed its end, returning
// the aggregated samples (one per metric with observations) and any alarm
// transitions. Windows never overlap: each emission advances the window
// origin by exactly the window length. A call before the window has
// elapsed returns nothing.
func (s *Sampler) Sample(nowUs int64) ([]Sample, []Alarm) {
	s.mu.Lock()
	defer s.mu.Unlock()

	windowUs := int64(s.cfg.WindowMs) * 1000
	windowEnd := s.windowStartUs + windowUs
	if nowUs < windowEnd {
		return nil, nil
	}

	var samples []Sample
	var alarms []Alarm

	for _, m := range Metrics {
		obs := s.observations[m]
		var inWindow, carry []observation
		for _, o := range obs {
			switch {
			case o.tsUs < s.windowStartUs:
				// before the window: late observation, dropped
			case o.tsUs < windowEnd:
				inWindow = append(inWindow, o)
			default:
				carry = append(carry, o)
			}
		}
		s.observations[m] = carry

		if len(inWindow) == 0 {
			continue
		}

		var sum float64
		for _, o := range inWindow {
			sum += o.value
		}
		observed := sum / float64(len(inWindow))

		s.sampleSeq++
		sample := Sample{
			SampleSeq:     s.sampleSeq,
			Metric:        m,
			WindowStartUs: s.windowStartUs,
			WindowEndUs:   windowEnd,
			Observed:      observed,
			Count:         len(inWindow),
		}
		samples = append(samples, sample)

		if alarm, ok := s.evaluateLocked(m, observed, s.sampleSeq); ok {
			alarms = append(alarms, alarm)
		}
	}

	s.windowStartUs = windowEnd
	return samples, alarms
}

// evaluateLocked fires a breached transition when observed exceeds the
// threshold and the metric was healthy, and exactly one recovered
// transition when it returns within threshold.
func (s *Sampler) evaluateLocked(m Metric, observed float64, seq uint64) (Alarm, bool) {
	threshold := s.thresholds[m]
	over := observed > threshold

	if over == s.breached[m] {
		return Alarm{}, false
	}
	s.breached[m] = over

	alarm := Alarm{
		Metric:    m,
		Observed:  observed,
		Threshold: threshold,
		SampleSeq: seq,
	}
	if over {
		alarm.State = AlarmBreached
		if observed >= 1.2*threshold {
			alarm.Severity = "critical"
		} else {
			alarm.Severity = "warning"
		}
	} else {
		alarm.State = AlarmRecovered
		alarm.Severity = "info"
	}
	return alarm, true
}
