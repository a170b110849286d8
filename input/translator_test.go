package input_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/input"
	"github.com/atarist-core/emucore/stream"
)

func capturingTranslator(t *testing.T) (*input.Translator, *stream.Publisher) {
	t.Helper()

	store := newStore(t)
	_, err := store.Create(defaultProfile())
	require.NoError(t, err)

	policies := input.NewPolicyManager(stream.NewPublisher("input_policy", 64), fixedClock())
	require.NoError(t, policies.Register("bs-1", input.ModeClickToCapture, input.EscapeConfig{}))
	_, err = policies.SetEnabled("bs-1", true, input.SourceUserRequest)
	require.NoError(t, err)
	_, err = policies.CanvasClick("bs-1")
	require.NoError(t, err)

	pub := stream.NewPublisher("input_translated", 64)
	tr := input.NewTranslator(store, policies, pub)

	res, err := tr.Apply("bs-1", "atari_st", "atari_st_default_v1", 1, 100)
	require.NoError(t, err)
	require.Equal(t, "applied", res.Result)
	return tr, pub
}

func TestApplyConflictAndNoOp(t *testing.T) {
	tr, _ := capturingTranslator(t)

	// stale expected revision
	_, err := tr.Apply("bs-1", "atari_st", "atari_st_default_v1", 7, 200)
	require.Error(t, err)
	assert.Equal(t, curated.CodeConflict, curated.CodeOf(err))
	assert.Equal(t, uint64(1), curated.DetailsOf(err)["active_revision"])

	// re-applying the active revision is a no_op and keeps the original
	// cutover tick
	res, err := tr.Apply("bs-1", "atari_st", "atari_st_default_v1", 1, 999)
	require.NoError(t, err)
	assert.Equal(t, "no_op", res.Result)
	assert.Equal(t, uint64(100), res.CutoverTick)
}

func TestApplyUnknownProfile(t *testing.T) {
	tr, _ := capturingTranslator(t)
	_, err := tr.Apply("bs-1", "atari_st", "missing", 1, 100)
	assert.Equal(t, curated.CodeInputMappingNotFound, curated.CodeOf(err))
}

func TestTranslatePublishesWithStrictSequence(t *testing.T) {
	tr, pub := capturingTranslator(t)

	ev, err := tr.Translate("bs-1",
		input.HostEvent{DeviceType: "keyboard", Code: "ArrowUp", Value: 1},
		1000, 10, 5120)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, uint64(1), ev.EventSeq)
	assert.Equal(t, "joystick0.up", ev.VirtualTarget)
	assert.Equal(t, 1, ev.Value)
	assert.True(t, ev.Pressed)

	// a zero host value translates as a release of the same target
	ev, err = tr.Translate("bs-1",
		input.HostEvent{DeviceType: "keyboard", Code: "ArrowUp", Value: 0},
		2000, 11, 5632)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), ev.EventSeq)
	assert.False(t, ev.Pressed)

	first, ok := pub.Next()
	require.True(t, ok)
	second, ok := pub.Next()
	require.True(t, ok)
	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
}

func TestTranslateUnmappedDropsWithoutSeq(t *testing.T) {
	tr, _ := capturingTranslator(t)

	ev, err := tr.Translate("bs-1",
		input.HostEvent{DeviceType: "keyboard", Code: "KeyZ", Value: 1},
		1000, 10, 5120)
	require.NoError(t, err)
	assert.Nil(t, ev)
	assert.Equal(t, uint64(1), tr.Diagnostics().DroppedEvents)

	// next accepted translation still gets seq 1
	ev, err = tr.Translate("bs-1",
		input.HostEvent{DeviceType: "keyboard", Code: "KeyA", Value: 1},
		2000, 11, 5632)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ev.EventSeq)
}

func TestTranslateWhileNotCapturing(t *testing.T) {
	store := newStore(t)
	_, err := store.Create(defaultProfile())
	require.NoError(t, err)

	policies := input.NewPolicyManager(nil, fixedClock())
	require.NoError(t, policies.Register("bs-1", input.ModeClickToCapture, input.EscapeConfig{}))
	_, err = policies.SetEnabled("bs-1", true, input.SourceUserRequest)
	require.NoError(t, err)

	tr := input.NewTranslator(store, policies, nil)
	_, err = tr.Apply("bs-1", "atari_st", "atari_st_default_v1", 1, 100)
	require.NoError(t, err)

	_, err = tr.Translate("bs-1",
		input.HostEvent{DeviceType: "keyboard", Code: "KeyA", Value: 1},
		1000, 10, 5120)
	assert.Equal(t, curated.CodeInputPolicyInvalidState, curated.CodeOf(err))
	assert.Equal(t, uint64(1), tr.Diagnostics().DroppedEvents)
}

func TestSequencingViolationCounters(t *testing.T) {
	tr, _ := capturingTranslator(t)

	_, err := tr.Translate("bs-1",
		input.HostEvent{DeviceType: "keyboard", Code: "ArrowUp", Value: 1},
		2000, 10, 5120)
	require.NoError(t, err)

	// timestamp and tick both regress: two violations recorded, event
	// still published with the next sequence number
	ev, err := tr.Translate("bs-1",
		input.HostEvent{DeviceType: "keyboard", Code: "ArrowDown", Value: 1},
		1000, 9, 5000)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), ev.EventSeq)
	assert.Equal(t, uint64(2), tr.Diagnostics().SequencingViolations)
}

func TestEscapeKeysDoNotTranslate(t *testing.T) {
	tr, pub := capturingTranslator(t)

	// Escape is not in the mapping, but even if it were, keys consumed
	// by the escape detector never translate
	_, err := tr.Translate("bs-1",
		input.HostEvent{DeviceType: "keyboard", Code: "Escape", Value: 1},
		1000, 10, 5120)
	require.NoError(t, err)
	_, err = tr.Translate("bs-1",
		input.HostEvent{DeviceType: "keyboard", Code: "Escape", Value: 1},
		1200, 10, 5200)
	require.NoError(t, err)

	_, ok := pub.Next()
	assert.False(t, ok)

	// the sequence released capture, so ordinary keys now fail
	// eligibility
	_, err = tr.Translate("bs-1",
		input.HostEvent{DeviceType: "keyboard", Code: "KeyA", Value: 1},
		2000, 11, 5632)
	assert.Equal(t, curated.CodeInputPolicyInvalidState, curated.CodeOf(err))
}
