package engine

import (
	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/media"
)

// AttachFloppy mounts a resolved floppy descriptor into drive 0 or 1 at
// the next tick boundary.
func (e *Engine) AttachFloppy(drive int, desc media.Descriptor, writeProtected bool) error {
	img, err := media.Load(desc)
	if err != nil {
		return err
	}
	floppy, err := media.NewFloppy(img, writeProtected)
	if err != nil {
		return err
	}

	return e.do(func() error {
		if e.machine == nil {
			return curated.New(curated.CategoryEngine, curated.CodeEngineNotRunning, false,
				"engine: no active session").WithDetail("endpoint", "media_attach")
		}
		e.mu.Lock()
		err := e.slots.AttachFloppy(drive, floppy)
		e.mu.Unlock()
		if err != nil {
			return err
		}
		if drive == 0 {
			e.machine.FDC.SetDisk(floppy)
		}
		return nil
	})
}

// EjectFloppy unmounts the named drive at the next tick boundary.
func (e *Engine) EjectFloppy(drive int) error {
	return e.do(func() error {
		if e.machine == nil {
			return curated.New(curated.CategoryEngine, curated.CodeEngineNotRunning, false,
				"engine: no active session").WithDetail("endpoint", "media_eject")
		}
		e.mu.Lock()
		err := e.slots.Eject(drive)
		e.mu.Unlock()
		if err != nil {
			return err
		}
		if drive == 0 {
			e.machine.FDC.SetDisk(nil)
		}
		return nil
	})
}

// Bindings lists the currently mounted media.
func (e *Engine) Bindings() []media.Binding {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slots.Bindings()
}
