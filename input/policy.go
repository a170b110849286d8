package input

import (
	"sync"

	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/stream"
)

// CaptureMode selects how a browser session acquires input capture.
type CaptureMode string

const (
	ModeMouseOver      CaptureMode = "mouse_over"
	ModeClickToCapture CaptureMode = "click_to_capture"
)

// PolicyState is the capture policy's state.
type PolicyState string

const (
	StateDisabled        PolicyState = "disabled"
	StateEnabledIdle     PolicyState = "enabled_idle"
	StateEnabledCaptured PolicyState = "enabled_captured"
)

// PolicySource attributes a state change.
type PolicySource string

const (
	SourceUserRequest         PolicySource = "user_request"
	SourceSystemGuard         PolicySource = "system_guard"
	SourceLifecycleTransition PolicySource = "lifecycle_transition"
)

// TransitionResult distinguishes state changes from accepted no-ops.
type TransitionResult string

const (
	ResultApplied TransitionResult = "applied"
	ResultNoOp    TransitionResult = "no_op"
)

// EscapeConfig is the key sequence that releases capture in
// click_to_capture mode.
type EscapeConfig struct {
	Sequence  []string
	TimeoutMs int64
}

// DefaultEscape is a double Escape within 600ms.
var DefaultEscape = EscapeConfig{Sequence: []string{"Escape", "Escape"}, TimeoutMs: 600}

// Policy is one browser session's capture policy.
type Policy struct {
	InputEnabled bool
	CaptureMode  CaptureMode
	State        PolicyState
	Source       PolicySource
	ChangedAtUs  int64

	escape         EscapeConfig
	escapeProgress int
	escapeFirstUs  int64
}

// CaptureActive reports whether host events currently translate.
func (p *Policy) CaptureActive() bool { return p.State == StateEnabledCaptured }

// PolicyEvent is published for every accepted policy request, no-ops
// included.
type PolicyEvent struct {
	BrowserSession   string           `json:"browser_session"`
	State            PolicyState      `json:"state"`
	Source           PolicySource     `json:"source"`
	Reason           string           `json:"reason,omitempty"`
	TransitionResult TransitionResult `json:"transition_result"`
	CaptureActive    bool             `json:"capture_active"`
	ChangedAtUs      int64            `json:"changed_at_us"`
}

// PolicyManager owns the per-browser-session policies and the policy
// event publisher.
type PolicyManager struct {
	mu       sync.Mutex
	policies map[string]*Policy
	pub      *stream.Publisher
	now      func() int64
}

// NewPolicyManager constructs a manager publishing policy-change events
// through pub.
func NewPolicyManager(pub *stream.Publisher, now func() int64) *PolicyManager {
	return &PolicyManager{
		policies: make(map[string]*Policy),
		pub:      pub,
		now:      now,
	}
}

// Register creates the policy for a browser session, disabled, in the
// given mode.
func (m *PolicyManager) Register(browserSession string, mode CaptureMode, escape EscapeConfig) error {
	if mode != ModeMouseOver && mode != ModeClickToCapture {
		return curated.New(curated.CategoryInput, curated.CodeInputPolicyModeInvalid, false,
			"input: unknown capture mode %q", mode).
			WithDetail("guard_id", curated.GuardClickToCapturePrefix+"01")
	}
	if len(escape.Sequence) == 0 {
		escape = DefaultEscape
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.policies[browserSession] = &Policy{
		CaptureMode: mode,
		State:       StateDisabled,
		Source:      SourceLifecycleTransition,
		ChangedAtUs: m.now(),
		escape:      escape,
	}
	return nil
}

// Unregister drops a browser session's policy.
func (m *PolicyManager) Unregister(browserSession string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.policies, browserSession)
}

// Get returns a copy of the browser session's policy.
func (m *PolicyManager) Get(browserSession string) (Policy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.lookupLocked(browserSession, "MO-GUARD-02")
	if err != nil {
		return Policy{}, err
	}
	return *p, nil
}

func (m *PolicyManager) lookupLocked(browserSession, guard string) (*Policy, error) {
	p, ok := m.policies[browserSession]
	if !ok {
		return nil, curated.New(curated.CategoryInput, curated.CodeInputPolicySessionInvalid, false,
			"input: unknown browser session %q", browserSession).
			WithDetail("guard_id", guard)
	}
	return p, nil
}

// commitLocked applies (or records a no-op of) a policy change and emits
// the policy event. Callers hold the mutex.
func (m *PolicyManager) commitLocked(browserSession string, p *Policy, next PolicyState, source PolicySource, reason string) PolicyEvent {
	result := ResultApplied
	if p.State == next {
		result = ResultNoOp
	} else {
		p.State = next
		p.Source = source
		p.ChangedAtUs = m.now()
		p.escapeProgress = 0
	}

	ev := PolicyEvent{
		BrowserSession:   browserSession,
		State:            p.State,
		Source:           source,
		Reason:           reason,
		TransitionResult: result,
		CaptureActive:    p.CaptureActive(),
		ChangedAtUs:      p.ChangedAtUs,
	}
	if m.pub != nil {
		m.pub.Publish(m.now(), 0, 0, ev, nil)
	}
	return ev
}

// SetEnabled turns input on or off for the browser session. Disabling
// forces capture_active false; enabling an already-enabled policy is an
// accepted no-op.
func (m *PolicyManager) SetEnabled(browserSession string, enabled bool, source PolicySource) (PolicyEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.lookupLocked(browserSession, "MO-GUARD-02")
	if err != nil {
		return PolicyEvent{}, err
	}

	p.InputEnabled = enabled
	next := p.State
	reason := "input_disabled"
	if enabled {
		reason = "input_enabled"
		if p.State == StateDisabled {
			next = StateEnabledIdle
		}
	} else {
		next = StateDisabled
	}
	return m.commitLocked(browserSession, p, next, source, reason), nil
}

// PointerEnter acquires capture in mouse_over mode.
func (m *PolicyManager) PointerEnter(browserSession string) (PolicyEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.lookupLocked(browserSession, "MO-GUARD-02")
	if err != nil {
		return PolicyEvent{}, err
	}
	if p.CaptureMode != ModeMouseOver {
		return PolicyEvent{}, curated.New(curated.CategoryInput, curated.CodeInputPolicyModeInvalid, false,
			"input: pointer_enter is only valid in mouse_over mode").
			WithDetail("guard_id", curated.GuardMouseOverPrefix+"01")
	}
	if !p.InputEnabled {
		return PolicyEvent{}, curated.New(curated.CategoryInput, curated.CodeInputPolicyViolation, false,
			"input: input is disabled for this browser session").
			WithDetail("guard_id", curated.GuardMouseOverPrefix+"03")
	}
	return m.commitLocked(browserSession, p, StateEnabledCaptured, SourceUserRequest, "pointer_enter"), nil
}

// PointerLeave releases capture in mouse_over mode.
func (m *PolicyManager) PointerLeave(browserSession string) (PolicyEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.lookupLocked(browserSession, "MO-GUARD-02")
	if err != nil {
		return PolicyEvent{}, err
	}
	if p.CaptureMode != ModeMouseOver {
		return PolicyEvent{}, curated.New(curated.CategoryInput, curated.CodeInputPolicyModeInvalid, false,
			"input: pointer_leave is only valid in mouse_over mode").
			WithDetail("guard_id", curated.GuardMouseOverPrefix+"01")
	}
	if p.State == StateDisabled {
		return m.commitLocked(browserSession, p, StateDisabled, SourceUserRequest, "pointer_leave"), nil
	}
	return m.commitLocked(browserSession, p, StateEnabledIdle, SourceUserRequest, "pointer_leave"), nil
}

// CanvasClick acquires capture in click_to_capture mode.
func (m *PolicyManager) CanvasClick(browserSession string) (PolicyEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.lookupLocked(browserSession, "CT-GUARD-02")
	if err != nil {
		return PolicyEvent{}, err
	}
	if p.CaptureMode != ModeClickToCapture {
		return PolicyEvent{}, curated.New(curated.CategoryInput, curated.CodeInputPolicyModeInvalid, false,
			"input: canvas click acquire is only valid in click_to_capture mode").
			WithDetail("guard_id", curated.GuardClickToCapturePrefix+"01")
	}
	if !p.InputEnabled {
		return PolicyEvent{}, curated.New(curated.CategoryInput, curated.CodeInputPolicyViolation, false,
			"input: input is disabled for this browser session").
			WithDetail("guard_id", curated.GuardClickToCapturePrefix+"03")
	}
	return m.commitLocked(browserSession, p, StateEnabledCaptured, SourceUserRequest, "canvas_click"), nil
}

// Release is the explicit release request: a no-op in mouse_over mode,
// captured->idle in click_to_capture mode.
func (m *PolicyManager) Release(browserSession string) (PolicyEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.lookupLocked(browserSession, "ER-GUARD-02")
	if err != nil {
		return PolicyEvent{}, err
	}
	if p.CaptureMode == ModeMouseOver || p.State != StateEnabledCaptured {
		return m.commitLocked(browserSession, p, p.State, SourceUserRequest, "release"), nil
	}
	return m.commitLocked(browserSession, p, StateEnabledIdle, SourceUserRequest, "release"), nil
}

// FocusLost releases capture in click_to_capture mode. Focus regain never
// auto-acquires, so there is no FocusGained counterpart.
func (m *PolicyManager) FocusLost(browserSession string) (PolicyEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.lookupLocked(browserSession, "ER-GUARD-02")
	if err != nil {
		return PolicyEvent{}, err
	}
	if p.State != StateEnabledCaptured {
		return m.commitLocked(browserSession, p, p.State, SourceSystemGuard, "focus_loss"), nil
	}
	return m.commitLocked(browserSession, p, StateEnabledIdle, SourceSystemGuard, "focus_loss"), nil
}

// ObserveKey feeds one key-down into the escape-sequence detector. When
// the configured sequence completes within its timeout while captured, the
// policy releases to enabled_idle; completing it while idle emits a no-op
// event. The returned bool reports whether the key consumed a step of the
// sequence (true also for the completing key).
func (m *PolicyManager) ObserveKey(browserSession, code string, tsUs int64) (PolicyEvent, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.lookupLocked(browserSession, "ER-GUARD-02")
	if err != nil {
		return PolicyEvent{}, false, err
	}
	if p.CaptureMode != ModeClickToCapture || p.State == StateDisabled {
		return PolicyEvent{}, false, nil
	}

	if p.escapeProgress > 0 && tsUs-p.escapeFirstUs > p.escape.TimeoutMs*1000 {
		p.escapeProgress = 0
	}

	if code != p.escape.Sequence[p.escapeProgress] {
		p.escapeProgress = 0
		return PolicyEvent{}, false, nil
	}

	if p.escapeProgress == 0 {
		p.escapeFirstUs = tsUs
	}
	p.escapeProgress++
	if p.escapeProgress < len(p.escape.Sequence) {
		return PolicyEvent{}, true, nil
	}

	p.escapeProgress = 0
	ev := m.commitLocked(browserSession, p, StateEnabledIdle, SourceSystemGuard, "escape_sequence")
	return ev, true, nil
}
