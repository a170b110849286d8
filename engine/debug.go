package engine

import (
	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/scheduler"
)

// ClockModeRequest names a debug clock mode change.
type ClockModeRequest struct {
	Mode  string  `json:"mode"` // realtime | slow_motion | single_step
	Ratio float64 `json:"ratio,omitempty"`
}

// ClockModeResult reports whether the change took effect.
type ClockModeResult struct {
	TransitionApplied bool   `json:"transition_applied"`
	ModeTransitionSeq uint64 `json:"mode_transition_seq"`
}

// SetClockMode commits a debug clock change at the next tick boundary.
// Re-issuing the active mode is idempotent and reports
// transition_applied=false.
func (e *Engine) SetClockMode(req ClockModeRequest) (ClockModeResult, error) {
	var mode scheduler.ClockMode
	switch req.Mode {
	case "realtime":
		mode = scheduler.ClockRealtime
	case "slow_motion":
		mode = scheduler.ClockSlowMotion
	case "single_step":
		mode = scheduler.ClockSingleStep
	default:
		return ClockModeResult{}, curated.New(curated.CategoryDebug, curated.CodeDebugClockInvalid, false,
			"engine: unknown clock mode %q", req.Mode)
	}
	if mode == scheduler.ClockSlowMotion && (req.Ratio <= 0 || req.Ratio > 1) {
		return ClockModeResult{}, curated.New(curated.CategoryDebug, curated.CodeDebugClockInvalid, false,
			"engine: slow_motion ratio %v outside (0, 1]", req.Ratio)
	}

	var result ClockModeResult
	err := e.do(func() error {
		applied, err := e.sched.SetClockMode(mode, req.Ratio)
		if err != nil {
			return err
		}
		result.TransitionApplied = applied
		result.ModeTransitionSeq = e.sched.ModeTransitionSeq()
		return nil
	})
	return result, err
}

// StepResult aggregates a committed single-step request.
type StepResult struct {
	TickBefore    uint64 `json:"tick_before"`
	TickAfter     uint64 `json:"tick_after"`
	CycleBefore   uint64 `json:"cycle_before"`
	CycleAfter    uint64 `json:"cycle_after"`
	TimestampUs   int64  `json:"timestamp_us"`
	EndOfFrame    bool   `json:"end_of_frame"`
	HookCount     int    `json:"hook_count"`
	CapturedOpcode uint16 `json:"captured_opcode"`
}

// Step commits exactly n ticks while in single_step mode.
func (e *Engine) Step(n int) (StepResult, error) {
	var result StepResult
	err := e.do(func() error {
		res, err := e.sched.Step(n)
		if err != nil {
			return err
		}
		result = StepResult{
			TickBefore:  res.TickBefore,
			TickAfter:   res.TickAfter,
			CycleBefore: res.CycleBefore,
			CycleAfter:  res.CycleAfter,
			TimestampUs: res.EventTimestampUs,
			EndOfFrame:  res.EndOfFrame,
			HookCount:   len(res.Hooks),
			CapturedOpcode: e.machine.CPU.GetState().LastOpcode,
		}
		return nil
	})
	return result, err
}
