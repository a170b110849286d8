package input_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/input"
	"github.com/atarist-core/emucore/stream"
)

func newPolicyManager(t *testing.T, mode input.CaptureMode) (*input.PolicyManager, *stream.Publisher) {
	t.Helper()
	pub := stream.NewPublisher("input_policy", 64)
	m := input.NewPolicyManager(pub, fixedClock())
	require.NoError(t, m.Register("bs-1", mode, input.EscapeConfig{}))
	return m, pub
}

func TestRegisterRejectsUnknownMode(t *testing.T) {
	m := input.NewPolicyManager(nil, fixedClock())
	err := m.Register("bs-1", "hover_maybe", input.EscapeConfig{})
	assert.Equal(t, curated.CodeInputPolicyModeInvalid, curated.CodeOf(err))
}

func TestUnknownBrowserSession(t *testing.T) {
	m, _ := newPolicyManager(t, input.ModeMouseOver)
	_, err := m.PointerEnter("bs-9")
	assert.Equal(t, curated.CodeInputPolicySessionInvalid, curated.CodeOf(err))
}

func TestMouseOverFlow(t *testing.T) {
	m, _ := newPolicyManager(t, input.ModeMouseOver)

	// acquisition while disabled is a violation
	_, err := m.PointerEnter("bs-1")
	assert.Equal(t, curated.CodeInputPolicyViolation, curated.CodeOf(err))

	ev, err := m.SetEnabled("bs-1", true, input.SourceUserRequest)
	require.NoError(t, err)
	assert.Equal(t, input.StateEnabledIdle, ev.State)
	assert.Equal(t, input.ResultApplied, ev.TransitionResult)

	ev, err = m.PointerEnter("bs-1")
	require.NoError(t, err)
	assert.Equal(t, input.StateEnabledCaptured, ev.State)
	assert.True(t, ev.CaptureActive)

	// explicit release is a no-op in mouse_over
	ev, err = m.Release("bs-1")
	require.NoError(t, err)
	assert.Equal(t, input.ResultNoOp, ev.TransitionResult)
	assert.Equal(t, input.StateEnabledCaptured, ev.State)

	ev, err = m.PointerLeave("bs-1")
	require.NoError(t, err)
	assert.Equal(t, input.StateEnabledIdle, ev.State)
}

func TestEnableIdempotence(t *testing.T) {
	m, pub := newPolicyManager(t, input.ModeMouseOver)

	_, err := m.SetEnabled("bs-1", true, input.SourceUserRequest)
	require.NoError(t, err)
	ev, err := m.SetEnabled("bs-1", true, input.SourceUserRequest)
	require.NoError(t, err)
	assert.Equal(t, input.ResultNoOp, ev.TransitionResult)
	assert.Equal(t, input.StateEnabledIdle, ev.State)

	// both requests emitted events with consecutive sequence numbers
	first, ok := pub.Next()
	require.True(t, ok)
	second, ok := pub.Next()
	require.True(t, ok)
	assert.Equal(t, first.Seq+1, second.Seq)
}

func TestClickToCaptureGuards(t *testing.T) {
	m, _ := newPolicyManager(t, input.ModeClickToCapture)

	// mouse_over verbs are invalid in this mode
	_, err := m.PointerEnter("bs-1")
	assert.Equal(t, curated.CodeInputPolicyModeInvalid, curated.CodeOf(err))

	_, err = m.CanvasClick("bs-1")
	assert.Equal(t, curated.CodeInputPolicyViolation, curated.CodeOf(err))

	_, err = m.SetEnabled("bs-1", true, input.SourceUserRequest)
	require.NoError(t, err)

	ev, err := m.CanvasClick("bs-1")
	require.NoError(t, err)
	assert.Equal(t, input.StateEnabledCaptured, ev.State)

	// focus loss releases; regain never auto-acquires (no verb exists)
	ev, err = m.FocusLost("bs-1")
	require.NoError(t, err)
	assert.Equal(t, input.StateEnabledIdle, ev.State)
	assert.Equal(t, input.SourceSystemGuard, ev.Source)
}

func TestEscapeSequenceRelease(t *testing.T) {
	m, _ := newPolicyManager(t, input.ModeClickToCapture)
	_, err := m.SetEnabled("bs-1", true, input.SourceUserRequest)
	require.NoError(t, err)
	_, err = m.CanvasClick("bs-1")
	require.NoError(t, err)

	// first Escape: consumed, no transition yet
	ev, consumed, err := m.ObserveKey("bs-1", "Escape", 1_000_000)
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.Empty(t, ev.TransitionResult)

	// second Escape within 600ms completes the sequence
	ev, consumed, err = m.ObserveKey("bs-1", "Escape", 1_400_000)
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.Equal(t, input.ResultApplied, ev.TransitionResult)
	assert.Equal(t, input.StateEnabledIdle, ev.State)
	assert.Equal(t, input.SourceSystemGuard, ev.Source)
	assert.Equal(t, "escape_sequence", ev.Reason)

	// the same sequence while idle emits a no_op event
	_, _, err = m.ObserveKey("bs-1", "Escape", 2_000_000)
	require.NoError(t, err)
	ev, _, err = m.ObserveKey("bs-1", "Escape", 2_100_000)
	require.NoError(t, err)
	assert.Equal(t, input.ResultNoOp, ev.TransitionResult)
	assert.Equal(t, input.StateEnabledIdle, ev.State)
}

func TestEscapeSequenceTimesOut(t *testing.T) {
	m, _ := newPolicyManager(t, input.ModeClickToCapture)
	_, err := m.SetEnabled("bs-1", true, input.SourceUserRequest)
	require.NoError(t, err)
	_, err = m.CanvasClick("bs-1")
	require.NoError(t, err)

	_, _, err = m.ObserveKey("bs-1", "Escape", 1_000_000)
	require.NoError(t, err)

	// too late: the second press restarts the sequence instead
	ev, consumed, err := m.ObserveKey("bs-1", "Escape", 1_700_000)
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.Empty(t, ev.TransitionResult)

	pol, err := m.Get("bs-1")
	require.NoError(t, err)
	assert.Equal(t, input.StateEnabledCaptured, pol.State)
}

func TestDisableForcesCaptureInactive(t *testing.T) {
	m, _ := newPolicyManager(t, input.ModeMouseOver)
	_, err := m.SetEnabled("bs-1", true, input.SourceUserRequest)
	require.NoError(t, err)
	_, err = m.PointerEnter("bs-1")
	require.NoError(t, err)

	ev, err := m.SetEnabled("bs-1", false, input.SourceUserRequest)
	require.NoError(t, err)
	assert.Equal(t, input.StateDisabled, ev.State)
	assert.False(t, ev.CaptureActive)
}
