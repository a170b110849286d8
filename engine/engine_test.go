package engine_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/engine"
	"github.com/atarist-core/emucore/input"
	"github.com/atarist-core/emucore/media"
	"github.com/atarist-core/emucore/session"
)

// nopROM is a 192KB image whose reset vectors point the CPU at a NOP sled.
func nopROM(t *testing.T, dir string) string {
	t.Helper()
	rom := make([]byte, 192*1024)
	for i := 8; i+1 < len(rom); i += 2 {
		rom[i] = 0x4E
		rom[i+1] = 0x71
	}
	rom[0], rom[1], rom[2], rom[3] = 0x00, 0x01, 0x00, 0x00 // SSP 0x00010000
	rom[4], rom[5], rom[6], rom[7] = 0x00, 0xFC, 0x00, 0x08 // PC into the ROM sled
	path := filepath.Join(dir, "tos.img")
	require.NoError(t, os.WriteFile(path, rom, 0o644))
	return path
}

func startRequest(t *testing.T, dir string) engine.StartRequest {
	return engine.StartRequest{
		Machine: "atari_st",
		Profile: "st_520_pal",
		ROM:     media.Descriptor{ID: "rom.tos.1.04.uk", Path: nopROM(t, dir)},
	}
}

func startedEngine(t *testing.T) *engine.Engine {
	t.Helper()
	dir := t.TempDir()
	e, err := engine.New(engine.Config{Root: dir, SessionID: "test"})
	require.NoError(t, err)
	require.NoError(t, e.Start(startRequest(t, dir)))
	t.Cleanup(func() { e.Stop() })
	return e
}

func TestStartStop(t *testing.T) {
	dir := t.TempDir()
	e, err := engine.New(engine.Config{Root: dir, SessionID: "test"})
	require.NoError(t, err)

	require.NoError(t, e.Start(startRequest(t, dir)))
	assert.Equal(t, session.StateRunning, e.Session().State())

	// a second start is rejected while a session is active
	err = e.Start(startRequest(t, dir))
	assert.Equal(t, curated.CodeEngineAlreadyRunning, curated.CodeOf(err))

	st := e.Status()
	assert.Equal(t, "test", st.SessionID)
	assert.Equal(t, "atari_st", st.Machine)
	assert.Equal(t, "st_520_pal", st.Profile)

	require.NoError(t, e.Stop())
	assert.Equal(t, session.StateStopped, e.Session().State())

	// stopped engines can start again
	require.NoError(t, e.Start(startRequest(t, dir)))
	require.NoError(t, e.Stop())
}

func TestStartRejectsUnknownProfile(t *testing.T) {
	dir := t.TempDir()
	e, err := engine.New(engine.Config{Root: dir})
	require.NoError(t, err)

	req := startRequest(t, dir)
	req.Profile = "falcon_030"
	err = e.Start(req)
	assert.Equal(t, curated.CodeMachineProfileNotFound, curated.CodeOf(err))
	assert.Equal(t, session.StateStopped, e.Session().State())
}

func TestStartRejectsMissingROM(t *testing.T) {
	dir := t.TempDir()
	e, err := engine.New(engine.Config{Root: dir})
	require.NoError(t, err)

	req := startRequest(t, dir)
	req.ROM.Path = filepath.Join(dir, "missing.img")
	err = e.Start(req)
	assert.Equal(t, curated.CodeMediaAttachFailed, curated.CodeOf(err))
	assert.Equal(t, session.StateStopped, e.Session().State())
}

func TestPauseResume(t *testing.T) {
	e := startedEngine(t)

	require.NoError(t, e.Pause())
	assert.Equal(t, session.StatePaused, e.Session().State())
	assert.Equal(t, "paused", e.Status().RunMode)

	// pausing again is a guard rejection
	err := e.Pause()
	assert.Equal(t, curated.CodeInvalidSessionState, curated.CodeOf(err))
	assert.Equal(t, curated.GuardPause01, curated.DetailsOf(err)["guard_id"])

	require.NoError(t, e.Resume(session.StateRunning))
	assert.Equal(t, session.StateRunning, e.Session().State())
}

func TestTickCounterAdvances(t *testing.T) {
	e := startedEngine(t)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if e.Status().TickCounter > 10 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	st := e.Status()
	assert.Greater(t, st.TickCounter, uint64(10))
	assert.GreaterOrEqual(t, st.CycleCounter, st.TickCounter)
}

func TestSuspendSaveRestoreResume(t *testing.T) {
	e := startedEngine(t)

	id, err := e.SuspendSave("t1")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, session.StateSuspended, e.Session().State())

	saved := e.Status().TickCounter

	entry, err := e.Index().Find(id)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.SHA256)

	require.NoError(t, e.RestoreResume(id, session.StatePaused))
	assert.Equal(t, session.StatePaused, e.Session().State())
	assert.Equal(t, saved, e.Status().TickCounter)
}

func TestRestoreUnknownSnapshot(t *testing.T) {
	e := startedEngine(t)
	_, err := e.SuspendSave("t1")
	require.NoError(t, err)

	err = e.RestoreResume("snap-nope", session.StateRunning)
	assert.Equal(t, curated.CodeSnapshotNotFound, curated.CodeOf(err))
}

func TestClockModes(t *testing.T) {
	e := startedEngine(t)

	// boundary: ratio 1.0 accepts
	res, err := e.SetClockMode(engine.ClockModeRequest{Mode: "slow_motion", Ratio: 1.0})
	require.NoError(t, err)
	assert.True(t, res.TransitionApplied)
	seq := res.ModeTransitionSeq

	// idempotent re-issue
	res, err = e.SetClockMode(engine.ClockModeRequest{Mode: "slow_motion", Ratio: 1.0})
	require.NoError(t, err)
	assert.False(t, res.TransitionApplied)
	assert.Equal(t, seq, res.ModeTransitionSeq)

	// out-of-range ratios reject
	for _, ratio := range []float64{0, -0.5, 1.1} {
		_, err = e.SetClockMode(engine.ClockModeRequest{Mode: "slow_motion", Ratio: ratio})
		assert.Equal(t, curated.CodeDebugClockInvalid, curated.CodeOf(err))
	}

	_, err = e.SetClockMode(engine.ClockModeRequest{Mode: "warp"})
	assert.Equal(t, curated.CodeDebugClockInvalid, curated.CodeOf(err))
}

func TestSingleStep(t *testing.T) {
	e := startedEngine(t)

	_, err := e.SetClockMode(engine.ClockModeRequest{Mode: "single_step"})
	require.NoError(t, err)

	res, err := e.Step(3)
	require.NoError(t, err)
	assert.Equal(t, res.TickBefore+3, res.TickAfter)
	assert.GreaterOrEqual(t, res.CycleAfter, res.CycleBefore)

	for _, n := range []int{0, 1025} {
		_, err = e.Step(n)
		assert.Equal(t, curated.CodeDebugStepInvalid, curated.CodeOf(err))
	}
}

func TestInjectHostEvent(t *testing.T) {
	e := startedEngine(t)

	_, err := e.Store().Create(input.Profile{
		MappingProfileID: "atari_st_default_v1",
		Machine:          "atari_st",
		Profile:          "st_520_pal",
		Entries: []input.Entry{
			{DeviceType: "keyboard", Code: "KeyA", VirtualTarget: "ikbd.scancode", Value: 0x1E},
		},
	})
	require.NoError(t, err)

	require.NoError(t, e.Policies().Register("bs-1", input.ModeClickToCapture, input.EscapeConfig{}))
	_, err = e.Policies().SetEnabled("bs-1", true, input.SourceUserRequest)
	require.NoError(t, err)
	_, err = e.Policies().CanvasClick("bs-1")
	require.NoError(t, err)

	res, err := e.Translator().Apply("bs-1", "atari_st", "atari_st_default_v1", 1, e.Status().TickCounter)
	require.NoError(t, err)
	require.Equal(t, "applied", res.Result)

	require.NoError(t, e.InjectHostEvent("bs-1",
		input.HostEvent{DeviceType: "keyboard", Code: "KeyA", Value: 1}))
	assert.Zero(t, e.Translator().Diagnostics().DroppedEvents)

	// an unmapped key is dropped on diagnostics without failing the call
	require.NoError(t, e.InjectHostEvent("bs-1",
		input.HostEvent{DeviceType: "keyboard", Code: "KeyZ", Value: 1}))
	assert.Equal(t, uint64(1), e.Translator().Diagnostics().DroppedEvents)
}
