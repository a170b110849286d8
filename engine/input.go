package engine

import (
	"strings"

	"github.com/atarist-core/emucore/input"
	"github.com/atarist-core/emucore/slo"
)

// joystick direction/fire bits in the IKBD report mask.
const (
	joyUp    = 1 << 0
	joyDown  = 1 << 1
	joyLeft  = 1 << 2
	joyRight = 1 << 3
	joyFire  = 1 << 7
)

// joystickState tracks each port's current mask so individual
// direction/fire events compose into one report byte.
type joystickState [2]uint8

// InjectHostEvent translates one normalized host event through the
// browser session's active mapping and, when translation succeeds, routes
// the virtual event into the machine's device pipelines at the next tick
// boundary.
func (e *Engine) InjectHostEvent(browserSession string, ev input.HostEvent) error {
	nowUs := e.now()
	if ev.TimestampUs > 0 && ev.TimestampUs <= nowUs {
		e.sampler.Observe(slo.MetricInputLatencyMs, float64(nowUs-ev.TimestampUs)/1000, nowUs)
	}

	translated, err := e.translator.Translate(browserSession, ev, nowUs,
		e.tickCounter(), e.cycleCounter())
	if err != nil || translated == nil {
		return err
	}

	return e.do(func() error {
		e.route(translated)
		return nil
	})
}

// route dispatches a translated event to the owning device pipeline. It
// runs on the emulation goroutine.
func (e *Engine) route(ev *input.TranslatedEvent) {
	if e.machine == nil {
		return
	}

	switch {
	case ev.VirtualTarget == "ikbd.scancode":
		e.machine.IKBD.KeyEvent(uint8(ev.Value), ev.Pressed)

	case strings.HasPrefix(ev.VirtualTarget, "joystick"):
		port := 0
		if strings.HasPrefix(ev.VirtualTarget, "joystick1") {
			port = 1
		}
		var bit uint8
		switch {
		case strings.HasSuffix(ev.VirtualTarget, ".up"):
			bit = joyUp
		case strings.HasSuffix(ev.VirtualTarget, ".down"):
			bit = joyDown
		case strings.HasSuffix(ev.VirtualTarget, ".left"):
			bit = joyLeft
		case strings.HasSuffix(ev.VirtualTarget, ".right"):
			bit = joyRight
		case strings.HasSuffix(ev.VirtualTarget, ".fire"):
			bit = joyFire
		}
		if ev.Pressed {
			e.joysticks[port] |= bit
		} else {
			e.joysticks[port] &^= bit
		}
		e.machine.IKBD.JoystickEvent(port, e.joysticks[port])
	}
}

// InjectMouse feeds a relative mouse report straight into the IKBD at the
// next tick boundary. Mouse motion bypasses the mapping table; only
// eligibility is checked.
func (e *Engine) InjectMouse(browserSession string, dx, dy int8, left, right bool) error {
	pol, err := e.policies.Get(browserSession)
	if err != nil {
		return err
	}
	if !pol.CaptureActive() {
		return nil
	}
	return e.do(func() error {
		if e.machine != nil {
			e.machine.IKBD.MousePacket(dx, dy, left, right)
		}
		return nil
	})
}
