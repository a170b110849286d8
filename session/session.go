// Package session implements the lifecycle state machine: the
// guarded transition matrix between stopped/starting/running/paused/
// suspended/faulted/stopping, with deterministic failure-to-error-code
// mapping. The shape is an enumerated run state plus request methods that
// are accepted or rejected against it.
package session

import (
	"sync"

	"github.com/atarist-core/emucore/curated"
)

// State is one of the seven lifecycle states.
type State string

const (
	StateStopped   State = "stopped"
	StateStarting  State = "starting"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateSuspended State = "suspended"
	StateFaulted   State = "faulted"
	StateStopping  State = "stopping"
)

// Identity carries the machine/profile/ROM binding a started session needs
//.
type Identity struct {
	Machine string
	Profile string
	ROMID   string
}

// Session is a single emulation instance's lifecycle state. All mutating
// methods are internally serialised: the scheduler loop and the API
// surface both call through the same Session, never touching state
// directly.
type Session struct {
	mu    sync.Mutex
	state State
	id    Identity
}

// New constructs a session in the stopped state.
func New() *Session {
	return &Session{state: StateStopped}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func guardError(code, guardID, endpoint, message string) error {
	return curated.New(curated.CategoryEngine, code, false, message).
		WithDetail("guard_id", guardID).
		WithDetail("endpoint", endpoint)
}

// Start transitions stopped -> starting -> running, guarded by G-START-01
// (no session already active, i.e. not already past stopped) and
// G-START-02 (machine/profile/rom_id all present).
func (s *Session) Start(id Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStopped {
		return guardError(curated.CodeEngineAlreadyRunning, curated.GuardStart01, "start",
			"a session is already active")
	}
	if id.Machine == "" || id.Profile == "" || id.ROMID == "" {
		return guardError(curated.CodeMachineProfileNotFound, curated.GuardStart02, "start",
			"machine, profile, and rom_id are all required to start")
	}

	s.state = StateStarting
	s.id = id
	s.state = StateRunning
	return nil
}

// Pause transitions running -> paused, guarded by G-PAUSE-01.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rejectTransient("pause"); err != nil {
		return err
	}
	if s.state != StateRunning {
		return guardError(curated.CodeInvalidSessionState, curated.GuardPause01, "pause",
			"pause is only valid from running")
	}
	s.state = StatePaused
	return nil
}

// Resume transitions paused/suspended -> running or paused, guarded by
// G-RESUME-01 (valid source state) and, for a suspended source, G-RESUME-02
// (snapshot must already have been validated by the caller before Resume is
// invoked with target=running).
func (s *Session) Resume(target State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rejectTransient("resume"); err != nil {
		return err
	}
	if s.state != StatePaused && s.state != StateSuspended {
		return guardError(curated.CodeInvalidSessionState, curated.GuardResume01, "resume",
			"resume is only valid from paused or suspended")
	}
	if target != StateRunning && target != StatePaused {
		return guardError(curated.CodeInvalidSessionState, curated.GuardResume02, "resume",
			"resume target must be running or paused")
	}
	s.state = target
	return nil
}

// Reset transitions running/paused -> running, guarded by G-RESET-01.
// Faulted sessions reject reset outright per the lifecycle table.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFaulted {
		return guardError(curated.CodeInvalidSessionState, curated.GuardReset01, "reset",
			"reset is rejected from faulted")
	}
	if err := s.rejectTransient("reset"); err != nil {
		return err
	}
	if s.state != StateRunning && s.state != StatePaused {
		return guardError(curated.CodeInvalidSessionState, curated.GuardReset01, "reset",
			"reset is only valid from running or paused")
	}
	s.state = StateRunning
	return nil
}

// SuspendSave transitions running -> suspended, guarded by G-SUSPEND-01. The
// snapshot must commit (via snapshotFn) before the state transition
// commits; a snapshot failure leaves the session in running.
func (s *Session) SuspendSave(snapshotFn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rejectTransient("suspend_save"); err != nil {
		return err
	}
	if s.state != StateRunning {
		return guardError(curated.CodeInvalidSessionState, curated.GuardSuspend01, "suspend_save",
			"suspend_save is only valid from running")
	}
	if err := snapshotFn(); err != nil {
		return curated.New(curated.CategoryInternal, curated.CodeSnapshotSaveFailed, true,
			"snapshot failed during suspend_save", err)
	}
	s.state = StateSuspended
	return nil
}

// RestoreResume transitions suspended -> running or paused, guarded by
// G-RESTORE-01 plus a caller-supplied snapshot compatibility check. A
// restore failure after the gate is acquired moves the session to
// faulted rather than leaving it inconsistent.
func (s *Session) RestoreResume(target State, compatFn, rehydrateFn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.rejectTransient("restore_resume"); err != nil {
		return err
	}
	if s.state != StateSuspended {
		return guardError(curated.CodeInvalidSessionState, curated.GuardRestore01, "restore_resume",
			"restore_resume is only valid from suspended")
	}
	if target != StateRunning && target != StatePaused {
		return guardError(curated.CodeInvalidSessionState, curated.GuardRestore01, "restore_resume",
			"restore target must be running or paused")
	}

	if err := compatFn(); err != nil {
		return err // already a curated SNAPSHOT_INCOMPATIBLE error with rule_id detail
	}

	if err := rehydrateFn(); err != nil {
		s.state = StateFaulted
		return curated.New(curated.CategoryInternal, curated.CodeSnapshotRestoreFailed, false,
			"rehydration failed after gate acquisition; session marked faulted", err)
	}

	s.state = target
	return nil
}

// Stop transitions running/paused/suspended/faulted -> stopping -> stopped,
// guarded by G-STOP-01.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateRunning, StatePaused, StateSuspended, StateFaulted:
	default:
		return guardError(curated.CodeInvalidSessionState, curated.GuardStop01, "stop",
			"stop is not valid from "+string(s.state))
	}

	s.state = StateStopping
	s.state = StateStopped
	return nil
}

// Fault forces the session into faulted, used by the scheduler when an
// internal invariant check fails.
func (s *Session) Fault() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateFaulted
}

// rejectTransient implements G-COMMON-01: starting/stopping reject every
// action except the ones that drive them out of those states.
func (s *Session) rejectTransient(endpoint string) error {
	if s.state == StateStarting || s.state == StateStopping {
		return guardError(curated.CodeInvalidSessionState, curated.GuardCommon01, endpoint,
			"no action is valid while transiently "+string(s.state))
	}
	return nil
}
