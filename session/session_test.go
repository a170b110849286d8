package session_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/session"
)

func validIdentity() session.Identity {
	return session.Identity{Machine: "atari_st", Profile: "st_520_pal", ROMID: "rom.tos.1.04.uk"}
}

func started(t *testing.T) *session.Session {
	t.Helper()
	s := session.New()
	require.NoError(t, s.Start(validIdentity()))
	return s
}

func TestStartGuards(t *testing.T) {
	s := session.New()

	// missing identity fields
	err := s.Start(session.Identity{Machine: "atari_st"})
	assert.Equal(t, curated.CodeMachineProfileNotFound, curated.CodeOf(err))
	assert.Equal(t, curated.GuardStart02, curated.DetailsOf(err)["guard_id"])
	assert.Equal(t, session.StateStopped, s.State())

	require.NoError(t, s.Start(validIdentity()))
	assert.Equal(t, session.StateRunning, s.State())

	// duplicate start
	err = s.Start(validIdentity())
	assert.Equal(t, curated.CodeEngineAlreadyRunning, curated.CodeOf(err))
	assert.Equal(t, curated.GuardStart01, curated.DetailsOf(err)["guard_id"])
}

func TestTransitionMatrix(t *testing.T) {
	// every accepted transition in the table, plus representative
	// rejections
	s := started(t)

	require.NoError(t, s.Pause())
	assert.Equal(t, session.StatePaused, s.State())

	require.NoError(t, s.Resume(session.StateRunning))
	assert.Equal(t, session.StateRunning, s.State())

	require.NoError(t, s.Reset())
	assert.Equal(t, session.StateRunning, s.State())

	require.NoError(t, s.SuspendSave(func() error { return nil }))
	assert.Equal(t, session.StateSuspended, s.State())

	require.NoError(t, s.Resume(session.StatePaused))
	assert.Equal(t, session.StatePaused, s.State())

	require.NoError(t, s.Reset())
	assert.Equal(t, session.StateRunning, s.State())

	require.NoError(t, s.Stop())
	assert.Equal(t, session.StateStopped, s.State())

	// stopped rejects everything but start
	for name, err := range map[string]error{
		"pause":  s.Pause(),
		"resume": s.Resume(session.StateRunning),
		"reset":  s.Reset(),
		"stop":   s.Stop(),
	} {
		assert.Equal(t, curated.CodeInvalidSessionState, curated.CodeOf(err), name)
	}
}

func TestSuspendSaveFailureKeepsRunning(t *testing.T) {
	s := started(t)

	err := s.SuspendSave(func() error { return errors.New("disk full") })
	require.Error(t, err)
	assert.Equal(t, curated.CodeSnapshotSaveFailed, curated.CodeOf(err))
	assert.Equal(t, session.StateRunning, s.State())
}

func TestRestoreResume(t *testing.T) {
	s := started(t)
	require.NoError(t, s.SuspendSave(func() error { return nil }))

	// compatibility failure leaves the session suspended
	compatErr := curated.New(curated.CategorySnapshot, curated.CodeSnapshotIncompatible, false,
		"schema mismatch")
	err := s.RestoreResume(session.StateRunning,
		func() error { return compatErr }, func() error { return nil })
	assert.Equal(t, curated.CodeSnapshotIncompatible, curated.CodeOf(err))
	assert.Equal(t, session.StateSuspended, s.State())

	// rehydration failure faults the session
	err = s.RestoreResume(session.StateRunning,
		func() error { return nil }, func() error { return errors.New("short read") })
	assert.Equal(t, curated.CodeSnapshotRestoreFailed, curated.CodeOf(err))
	assert.Equal(t, session.StateFaulted, s.State())

	// faulted rejects reset but accepts stop
	err = s.Reset()
	assert.Equal(t, curated.CodeInvalidSessionState, curated.CodeOf(err))
	require.NoError(t, s.Stop())
}

func TestRestoreResumeSuccess(t *testing.T) {
	s := started(t)
	require.NoError(t, s.SuspendSave(func() error { return nil }))
	require.NoError(t, s.RestoreResume(session.StatePaused,
		func() error { return nil }, func() error { return nil }))
	assert.Equal(t, session.StatePaused, s.State())
}
