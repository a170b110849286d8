// Package arbitration resolves the highest pending interrupt against the
// CPU's mask at each committed instruction boundary, and records the
// per-tick arbitration hooks the scheduler fires in a fixed order.
// The same ordered-dispatch idea as the bus.Handler registry, generalised
// from address ranges to IRQ sources. memviz renders the resolution order
// as a diagnostic graph.
package arbitration

import "github.com/bradleyjkemp/memviz"
import "io"

// Source is anything that can be asked to acknowledge an interrupt at a
// given level and return the vector to use.
type Source interface {
	Name() string
	AckIRQ(level uint8) (vector uint8, ok bool)
}

// Fabric resolves IRQ levels across a fixed, profile-defined source order:
// MFP, ACIA, FDC/DMA, VBL, HBL (the latter two sourced from GLUE).
type Fabric struct {
	sources []Source

	tickCounter  uint64
	cycleCounter uint64
	round        uint64
}

func New(sources ...Source) *Fabric {
	return &Fabric{sources: sources}
}

// Hook is one step of a tick's arbitration sequence, recorded for
// diagnostics and fail-fast order checking.
type Hook struct {
	TickCounter      uint64
	CycleCounter     uint64
	ArbitrationRound uint64
	SlotIndex        int
	ComponentID      string
	BusOwner         string
	WaitCycles       int
}

// AckIRQ asks each source in profile order to acknowledge an interrupt at
// exactly level and returns the vector of the first one that does; later
// sources are not asked. ok=false means no source had that level pending.
// The mask comparison is made by the CPU before it calls here.
func (f *Fabric) AckIRQ(level uint8) (vector uint8, ok bool) {
	for _, s := range f.sources {
		if v, found := s.AckIRQ(level); found {
			return v, true
		}
	}
	return 0, false
}

// Step advances the fabric's tick/cycle counters and returns the ordered
// hook sequence for this tick: arb_pre_tick, one arb_component_step per
// registered source, then arb_post_tick. Violating the recorded order is a
// caller bug and is intentionally not defended against here: the scheduler
// is the only caller and always replays Step's own returned order.
func (f *Fabric) Step(cycles int) []Hook {
	f.tickCounter++
	f.cycleCounter += uint64(cycles)
	f.round++

	hooks := make([]Hook, 0, len(f.sources)+2)
	hooks = append(hooks, f.hook(-1, "arb_pre_tick", ""))
	for i, s := range f.sources {
		hooks = append(hooks, f.hook(i, s.Name(), s.Name()))
	}
	hooks = append(hooks, f.hook(len(f.sources), "arb_post_tick", ""))
	return hooks
}

func (f *Fabric) hook(slot int, component, owner string) Hook {
	return Hook{
		TickCounter:      f.tickCounter,
		CycleCounter:     f.cycleCounter,
		ArbitrationRound: f.round,
		SlotIndex:        slot,
		ComponentID:      component,
		BusOwner:         owner,
	}
}

func (f *Fabric) TickCounter() uint64  { return f.tickCounter }
func (f *Fabric) CycleCounter() uint64 { return f.cycleCounter }

// DumpGraph renders the source order as a memviz diagnostic graph: nodes
// are the registered sources in priority order, edges show the fixed
// resolution order the fabric checks them in.
func (f *Fabric) DumpGraph(w io.Writer) {
	type node struct {
		Name string
		Next *node
	}
	var head, tail *node
	for _, s := range f.sources {
		n := &node{Name: s.Name()}
		if head == nil {
			head = n
		} else {
			tail.Next = n
		}
		tail = n
	}
	memviz.Map(w, &head)
}
