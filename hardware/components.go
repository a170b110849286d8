package hardware

import "io"

// Component is one snapshottable part of the machine: a name for the
// snapshot block header and the state-block read/write pair.
type Component interface {
	Name() string
	SaveState(w io.Writer) error
	LoadState(r io.Reader) error
}

// component adapts the bus and CPU, which have no Name of their own, into
// the Component shape the chips already satisfy.
type component struct {
	name string
	save func(io.Writer) error
	load func(io.Reader) error
}

func (c component) Name() string                { return c.name }
func (c component) SaveState(w io.Writer) error { return c.save(w) }
func (c component) LoadState(r io.Reader) error { return c.load(r) }

// Components returns the machine's snapshottable parts in the canonical
// step order. The snapshot engine serialises blocks in exactly this order
// and the profile's step_order keys are validated against these names.
func (m *Machine) Components() []Component {
	return []Component{
		component{"bus", m.Bus.SaveState, m.Bus.LoadState},
		component{"cpu", m.CPU.SaveState, m.CPU.LoadState},
		m.GLUE,
		m.Shift,
		m.MFP,
		m.PSG,
		m.ACIAKeyboard,
		m.ACIAMIDI,
		m.FDC,
	}
}
