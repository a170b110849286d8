// Package scheduler implements the single authoritative tick loop:
// it drives hardware.Machine one scanline-budget of cycles at a time,
// stamps monotonic tick/cycle/event-timestamp counters, and enforces the
// invariants that make those counters fail-fast on regression. Grounded on
// the CPU core's Execute(budget)→consumed idiom, generalised from a single
// component to the whole machine's per-tick sequence.
package scheduler

import (
	"time"

	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/hardware"
	"github.com/atarist-core/emucore/hardware/arbitration"
	"github.com/atarist-core/emucore/hardware/clocks"
)

// ClockMode selects how the scheduler paces ticks.
type ClockMode int

const (
	ClockRealtime ClockMode = iota
	ClockSlowMotion
	ClockSingleStep
)

// MaxSteps bounds a single step request.
const MaxSteps = 1024

func (m ClockMode) String() string {
	switch m {
	case ClockSlowMotion:
		return "slow_motion"
	case ClockSingleStep:
		return "single_step"
	}
	return "realtime"
}

// ModeTransitionSeq counts committed clock-mode changes; idempotent
// re-issues do not advance it.
func (s *Scheduler) ModeTransitionSeq() uint64 { return s.modeTransitionSeq }

// TickResult carries everything observable about one committed tick.
type TickResult struct {
	TickBefore, TickAfter   uint64
	CycleBefore, CycleAfter uint64
	EventTimestampUs        int64
	EndOfFrame              bool
	Hooks                   []arbitration.Hook
}

// Scheduler owns the tick/cycle/event-timestamp counters and the debug
// clock mode; it never owns lifecycle state (that is package session's
// job) and never blocks on anything slower than memory.
type Scheduler struct {
	machine *hardware.Machine

	tickCounter  uint64
	cycleCounter uint64
	eventTsUs    int64

	mode               ClockMode
	ratio              float64
	modeTransitionSeq  uint64

	now func() int64 // injected wall clock, microseconds since epoch
}

func New(m *hardware.Machine, now func() int64) *Scheduler {
	return &Scheduler{machine: m, mode: ClockRealtime, ratio: 1.0, now: now}
}

func (s *Scheduler) TickCounter() uint64  { return s.tickCounter }
func (s *Scheduler) CycleCounter() uint64 { return s.cycleCounter }
func (s *Scheduler) Mode() ClockMode      { return s.mode }
func (s *Scheduler) Ratio() float64       { return s.ratio }

// SetClockMode applies a debug clock mode change atomically at the next
// tick boundary (the caller is expected to call this between Tick/Step
// calls, which this package's single-threaded contract guarantees).
// Re-issuing the currently active mode/ratio is idempotent and reports
// transitionApplied=false without incrementing mode_transition_seq.
func (s *Scheduler) SetClockMode(mode ClockMode, ratio float64) (transitionApplied bool, err error) {
	if mode == ClockSlowMotion && (ratio <= 0 || ratio > 1) {
		return false, curated.New(curated.CategoryRequest, curated.CodeDebugClockInvalid, false,
			"slow_motion ratio must be in (0, 1]", ratio)
	}
	if mode == s.mode && (mode != ClockSlowMotion || ratio == s.ratio) {
		return false, nil
	}
	s.mode = mode
	s.ratio = ratio
	s.modeTransitionSeq++
	return true, nil
}

func (s *Scheduler) effectiveRatio() float64 {
	if s.mode == ClockSlowMotion {
		return s.ratio
	}
	return 1.0
}

// Tick commits exactly one continuous-mode tick: executes one scanline's
// worth of CPU cycles (clocks.CyclesPerLine, not clamped to what remains of
// the current frame),
// clocks every chip by the cycles actually consumed, steps the arbitration
// fabric, and stamps a monotonically non-decreasing event timestamp.
func (s *Scheduler) Tick() (TickResult, error) {
	if s.mode == ClockSingleStep {
		return TickResult{}, curated.New(curated.CategoryRequest, curated.CodeDebugStepInvalid, false,
			"Tick called while in single_step mode; use Step instead")
	}

	tickBefore, cycleBefore := s.tickCounter, s.cycleCounter

	consumed, hooks := s.machine.Step(clocks.CyclesPerLine)
	endOfFrame := s.machine.EndOfFrame()

	s.tickCounter++
	s.cycleCounter += uint64(consumed)

	ts := s.stampTimestamp()

	if err := s.checkInvariants(tickBefore, cycleBefore); err != nil {
		return TickResult{}, err
	}

	return TickResult{
		TickBefore: tickBefore, TickAfter: s.tickCounter,
		CycleBefore: cycleBefore, CycleAfter: s.cycleCounter,
		EventTimestampUs: ts,
		EndOfFrame:       endOfFrame,
		Hooks:            hooks,
	}, nil
}

// Step commits exactly n ticks in single_step mode and returns the
// aggregated result across all of them.
func (s *Scheduler) Step(n int) (TickResult, error) {
	if s.mode != ClockSingleStep {
		return TickResult{}, curated.New(curated.CategoryRequest, curated.CodeDebugStepInvalid, false,
			"Step called outside single_step mode")
	}
	if n <= 0 || n > MaxSteps {
		return TickResult{}, curated.New(curated.CategoryRequest, curated.CodeDebugStepInvalid, false,
			"step count must be in 1..%d", MaxSteps)
	}

	tickBefore, cycleBefore := s.tickCounter, s.cycleCounter
	var allHooks []arbitration.Hook
	var endOfFrame bool
	var ts int64

	for i := 0; i < n; i++ {
		consumed, hooks := s.machine.Step(clocks.CyclesPerLine)
		endOfFrame = endOfFrame || s.machine.EndOfFrame()
		s.tickCounter++
		s.cycleCounter += uint64(consumed)
		allHooks = append(allHooks, hooks...)
		ts = s.stampTimestamp()
	}

	if err := s.checkInvariants(tickBefore, cycleBefore); err != nil {
		return TickResult{}, err
	}

	return TickResult{
		TickBefore: tickBefore, TickAfter: s.tickCounter,
		CycleBefore: cycleBefore, CycleAfter: s.cycleCounter,
		EventTimestampUs: ts,
		EndOfFrame:       endOfFrame,
		Hooks:            allHooks,
	}, nil
}

func (s *Scheduler) stampTimestamp() int64 {
	raw := s.now()
	scaled := int64(float64(raw) * s.effectiveRatio())
	if scaled < s.eventTsUs {
		scaled = s.eventTsUs
	}
	s.eventTsUs = scaled
	return scaled
}

func (s *Scheduler) checkInvariants(tickBefore, cycleBefore uint64) error {
	if s.tickCounter <= tickBefore {
		return curated.New(curated.CategoryInternal, curated.CodeInternalError, false,
			"tick_counter failed to advance", tickBefore, s.tickCounter)
	}
	if s.cycleCounter < cycleBefore {
		return curated.New(curated.CategoryInternal, curated.CodeInternalError, false,
			"cycle_counter regressed", cycleBefore, s.cycleCounter)
	}
	return nil
}

// SetCounters rehydrates the tick/cycle counters from a snapshot. Only
// the snapshot restore path calls this, under the snapshot gate.
func (s *Scheduler) SetCounters(tick, cycle uint64) {
	s.tickCounter = tick
	s.cycleCounter = cycle
}

// WallClockMicros is the default now() source: real wall-clock time, used
// outside of tests.
func WallClockMicros() int64 {
	return time.Now().UnixMicro()
}
