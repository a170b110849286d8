package engine

import (
	"bytes"
	"fmt"
	"os"

	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/session"
	"github.com/atarist-core/emucore/snapshot"
	"github.com/atarist-core/emucore/version"
)

// SuspendSave commits a snapshot at the next tick boundary, then moves the
// session to suspended. The snapshot must persist before the state
// transition commits; any failure leaves the session running and the
// runtime untouched.
func (e *Engine) SuspendSave(name string) (string, error) {
	var snapshotID string
	err := e.do(func() error {
		return e.sess.SuspendSave(func() error {
			id, err := e.saveLocked(name)
			snapshotID = id
			return err
		})
	})
	if err != nil {
		return "", err
	}
	e.markTransition()
	return snapshotID, nil
}

// SaveSnapshot persists a snapshot without changing lifecycle state. The
// session must be paused: the gate is trivially held because the emulation
// goroutine is parked between ticks.
func (e *Engine) SaveSnapshot(name string) (string, error) {
	var snapshotID string
	err := e.do(func() error {
		if e.sess.State() != session.StatePaused {
			return curated.New(curated.CategoryEngine, curated.CodeInvalidSessionState, false,
				"engine: snapshot save requires a paused session").
				WithDetail("guard_id", curated.GuardSuspend01).
				WithDetail("endpoint", "snapshot_save")
		}
		id, err := e.saveLocked(name)
		snapshotID = id
		return err
	})
	return snapshotID, err
}

// saveLocked serialises every component in step order and writes the
// record atomically. It runs on the emulation goroutine between ticks,
// which is the snapshot gate: no bus transaction can interleave.
func (e *Engine) saveLocked(name string) (string, error) {
	rec := &snapshot.Record{Meta: e.snapshotMeta(name)}

	for _, c := range e.machine.Components() {
		var b bytes.Buffer
		if err := c.SaveState(&b); err != nil {
			return "", err
		}
		rec.Components = append(rec.Components, snapshot.ComponentState{
			Name: c.Name(),
			Data: b.Bytes(),
		})
	}

	path, err := snapshot.Write(e.cfg.Root, rec)
	if err != nil {
		return "", err
	}

	size := int64(0)
	if fi, err := os.Stat(path); err == nil {
		size = fi.Size()
	}
	if err := e.index.Add(snapshot.IndexEntry{
		SnapshotID: rec.SnapshotID,
		Name:       name,
		Profile:    rec.Profile,
		SHA256:     rec.SHA256,
		SavedAtUs:  rec.SavedAtUs,
		SizeBytes:  size,
	}); err != nil {
		return "", err
	}
	return rec.SnapshotID, nil
}

func (e *Engine) snapshotMeta(name string) snapshot.Meta {
	return snapshot.Meta{
		SnapshotID:    fmt.Sprintf("snap-%s-%d", e.cfg.SessionID, e.now()),
		Name:          name,
		SchemaVersion: snapshot.SchemaVersion,
		Profile:       e.manifest.Name,
		EngineABI:     version.EngineABI,
		ModuleABI:     e.manifest.Modules.Map(),
		SavedAtUs:     e.now(),
		TickCounter:   e.sched.TickCounter(),
		CycleCounter:  e.sched.CycleCounter(),
		Bindings:      e.slots.Bindings(),
	}
}

// RestoreResume rehydrates the named snapshot under the gate and commits
// the session to resumeMode (running or paused). Compatibility is checked
// before any component state is touched; a rehydration failure after that
// point faults the session rather than leaving it half-restored.
func (e *Engine) RestoreResume(snapshotID string, resumeMode session.State) error {
	err := e.do(func() error {
		rec, err := snapshot.Read(snapshot.Path(e.cfg.Root, snapshotID))
		if err != nil {
			return err
		}

		return e.sess.RestoreResume(resumeMode,
			func() error {
				return snapshot.Validate(rec, e.snapshotMeta(""))
			},
			func() error {
				return e.rehydrateLocked(rec)
			})
	})
	if err == nil {
		e.markTransition()
	}
	return err
}

func (e *Engine) rehydrateLocked(rec *snapshot.Record) error {
	blocks := make(map[string][]byte, len(rec.Components))
	for _, c := range rec.Components {
		blocks[c.Name] = c.Data
	}

	for _, c := range e.machine.Components() {
		data, ok := blocks[c.Name()]
		if !ok {
			return fmt.Errorf("snapshot has no state block for %s", c.Name())
		}
		if err := c.LoadState(bytes.NewReader(data)); err != nil {
			return fmt.Errorf("rehydrating %s: %w", c.Name(), err)
		}
	}

	e.sched.SetCounters(rec.TickCounter, rec.CycleCounter)
	return nil
}
