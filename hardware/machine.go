package hardware

import (
	"github.com/atarist-core/emucore/hardware/arbitration"
	"github.com/atarist-core/emucore/hardware/chips/acia"
	"github.com/atarist-core/emucore/hardware/chips/fdc"
	"github.com/atarist-core/emucore/hardware/chips/glue"
	"github.com/atarist-core/emucore/hardware/chips/mfp"
	"github.com/atarist-core/emucore/hardware/chips/psg"
	"github.com/atarist-core/emucore/hardware/chips/shifter"
	"github.com/atarist-core/emucore/hardware/clocks"
	"github.com/atarist-core/emucore/hardware/cpu"
	"github.com/atarist-core/emucore/hardware/memory/bus"
	"github.com/atarist-core/emucore/hardware/memory/memorymap"
)

// Config carries the machine's construction-time parameters.
type Config struct {
	RAMSize    int
	Region     clocks.Region
	SampleRate int
	ROM        []byte

	MaxFDCRequestsPerWindow int
}

// Machine owns the bus, the CPU, and every chip model, and wires the
// arbitration fabric between them in fixed priority order: MFP, ACIA
// (keyboard), ACIA (MIDI), FDC/DMA, then GLUE's VBL/HBL.
type Machine struct {
	Bus   *bus.Map
	CPU   *cpu.CPU
	GLUE  *glue.GLUE
	Shift *shifter.Shifter
	MFP   *mfp.MFP
	PSG   *psg.PSG
	ACIAKeyboard *acia.ACIA
	ACIAMIDI     *acia.ACIA
	IKBD         *acia.IKBD
	FDC   *fdc.FDC

	Arbitration *arbitration.Fabric
}

// New constructs and wires a full machine: registers every chip into the
// bus map at its documented address window and builds the arbitration
// fabric in priority order.
func New(cfg Config) *Machine {
	m := &Machine{
		Bus:          bus.NewMap(cfg.RAMSize),
		CPU:          cpu.NewCPU(),
		GLUE:         glue.New(cfg.Region),
		MFP:          mfp.New(),
		PSG:          psg.New(cfg.SampleRate),
		ACIAKeyboard: acia.New(),
		ACIAMIDI:     acia.New(),
		FDC:          fdc.New(cfg.MaxFDCRequestsPerWindow),
	}
	m.ACIAKeyboard.SetName("acia-keyboard")
	m.ACIAMIDI.SetName("acia-midi")
	m.ACIAMIDI.SetVector(0x42)
	m.IKBD = acia.NewIKBD(m.ACIAKeyboard)

	m.Shift = shifter.New(func(addr uint32) uint8 {
		v, _ := m.Bus.Peek(addr)
		return v
	})

	if len(cfg.ROM) > 0 {
		m.Bus.LoadROM(cfg.ROM)
	}

	m.Bus.Register(memorymap.MFPBase, memorymap.MFPBase+memorymap.MFPSize-1, m.MFP)
	m.Bus.Register(memorymap.ShifterBase, memorymap.ShifterBase+memorymap.ShifterSize-1, m.Shift)
	m.Bus.Register(memorymap.GlueBase, memorymap.GlueBase+memorymap.GlueSize-1, m.GLUE)
	m.Bus.Register(memorymap.PSGBase, memorymap.PSGBase+memorymap.PSGSize-1, m.PSG)
	m.Bus.Register(memorymap.ACIAKeyboardBase, memorymap.ACIAKeyboardBase+memorymap.ACIASize-1, m.ACIAKeyboard)
	m.Bus.Register(memorymap.ACIAMIDIBase, memorymap.ACIAMIDIBase+memorymap.ACIASize-1, m.ACIAMIDI)
	m.Bus.Register(memorymap.DMABase, memorymap.DMABase+memorymap.DMASize-1, m.FDC)

	m.CPU.SetBus(m.Bus)

	m.Arbitration = arbitration.New(m.MFP, m.ACIAKeyboard, m.ACIAMIDI, m.FDC, m.GLUE)
	m.CPU.Init(cpu.Config{Vectors: m.Arbitration})

	m.MFP.SetIRQSink(m.CPU.SetIRQ)
	m.ACIAKeyboard.SetIRQSink(m.CPU.SetIRQ)
	m.ACIAMIDI.SetIRQSink(m.CPU.SetIRQ)
	m.FDC.SetIRQSink(m.CPU.SetIRQ)
	m.GLUE.SetIRQSink(m.CPU.SetIRQ)

	return m
}

// Reset resets every subsystem and bootstraps the reset vectors from the
// attached ROM image, then loads the CPU's own register reset from
// the now-seeded RAM.
func (m *Machine) Reset() {
	m.Bus.Bootstrap()
	m.GLUE.Reset()
	m.MFP.Reset()
	m.PSG.Reset()
	m.ACIAKeyboard.Reset()
	m.ACIAMIDI.Reset()
	m.FDC.Reset()
	m.CPU.Reset()
}

// Step executes up to budgetCycles CPU cycles, clocks every chip by the
// cycles actually consumed, and steps the arbitration fabric once, per the
// scheduler's per-tick sequence.
func (m *Machine) Step(budgetCycles int) (cyclesConsumed int, hooks []arbitration.Hook) {
	m.Shift.SetResolution(m.GLUE.Resolution())

	m.FDC.BeginWindow()
	cyclesConsumed = m.CPU.Execute(budgetCycles)

	// a halted CPU stops fetching; the chip clocks keep running
	if cyclesConsumed == 0 {
		cyclesConsumed = budgetCycles
	}

	m.GLUE.Clock(cyclesConsumed)
	m.MFP.Clock(cyclesConsumed)
	m.ACIAKeyboard.Clock(cyclesConsumed)
	m.ACIAMIDI.Clock(cyclesConsumed)
	m.FDC.Clock(cyclesConsumed)

	hooks = m.Arbitration.Step(cyclesConsumed)
	return cyclesConsumed, hooks
}

// EndOfFrame reports whether the most recent Step crossed a frame
// boundary.
func (m *Machine) EndOfFrame() bool { return m.GLUE.EndOfFrame() }
