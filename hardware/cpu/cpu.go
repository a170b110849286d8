package cpu

import "github.com/atarist-core/emucore/hardware/memory/bus"

// Bus is the subset of hardware/memory/bus.Map the CPU needs. It is kept as
// an interface (rather than a concrete *bus.Map field) the same way the
// file talking to an interface instead of a
// concrete memory type, so the CPU can be driven by a mock bus in tests.
type Bus interface {
	ReadByte(addr uint32) (uint8, *bus.Fault)
	ReadWord(addr uint32) (uint16, *bus.Fault)
	WriteByte(addr uint32, v uint8) *bus.Fault
	WriteWord(addr uint32, v uint16) *bus.Fault
}

// VectorSource is implemented by the interrupt/arbitration fabric (C4): on
// acknowledgement of an interrupt at the given level, it returns the vector
// number to use, or ok=false for a spurious interrupt.
type VectorSource interface {
	AckIRQ(level uint8) (vector uint8, ok bool)
}

// Config carries the construction-time parameters for Init.
type Config struct {
	// Vectors supplies the interrupt vector on acknowledgement; may be nil
	// if interrupts are not exercised (e.g. in CPU-only unit tests).
	Vectors VectorSource
}

// CPU is the 68000-class execution core.
type CPU struct {
	reg Registers
	bus Bus

	vectors VectorSource

	halted  bool
	stopped bool

	pendingIRQ    uint8 // 0 = none, 1-7 = requested level
	lastFault     *bus.Fault
	lastOpcode    uint16
	instrCount    uint64
}

// NewCPU constructs a CPU that is not yet attached to a bus; call SetBus
// then Reset before Execute.
func NewCPU() *CPU {
	return &CPU{}
}

// SetBus attaches the memory bus the CPU will fetch/execute against.
func (c *CPU) SetBus(b Bus) { c.bus = b }

// Init applies construction-time configuration. It does not reset
// registers; call Reset separately once the bus has been attached.
func (c *CPU) Init(cfg Config) {
	c.vectors = cfg.Vectors
}

// Reset loads SSP from RAM[0:4] and PC from RAM[4:8], enters supervisor
// mode with the interrupt mask at 7, and clears halted/stopped/pending-IRQ
// state.
func (c *CPU) Reset() {
	c.reg = Registers{}
	c.halted = false
	c.stopped = false
	c.pendingIRQ = 0
	c.lastFault = nil
	c.instrCount = 0

	ssp := c.read32(0)
	pc := c.read32(4)

	c.reg.SSP = ssp
	c.reg.A[7] = ssp
	c.reg.PC = pc
	c.reg.SR.Supervisor = true
	c.reg.SR.IntMask = 7
}

// Halted reports the halted flag. Execute stops while it is set, but no
// instruction or fault sets it: bus errors, address errors and illegal
// instructions always enter their exception handlers. Only SetState can
// set it, from a saved State that carries it.
func (c *CPU) Halted() bool { return c.halted }

// Stopped reports whether the CPU is in the STOP-instruction low-power
// wait state, which only an interrupt can clear.
func (c *CPU) Stopped() bool { return c.stopped }

// SetIRQ requests an interrupt at the given priority level: 7 is NMI, 6 is
// MFP, 4 is VBL, 2 is HBL. A higher pending level always replaces a
// lower one; levels are never queued.
func (c *CPU) SetIRQ(level uint8) {
	if level > c.pendingIRQ {
		c.pendingIRQ = level
	}
}

// PendingIRQ reports the currently latched (not yet acknowledged) request,
// or 0 if none.
func (c *CPU) PendingIRQ() uint8 { return c.pendingIRQ }

// LastFault returns the most recent bus/address-error fault observed by the
// CPU, or nil.
func (c *CPU) LastFault() *bus.Fault { return c.lastFault }

// Execute runs whole instructions until at least budgetCycles have been
// consumed, or until the CPU halts/stops, and returns the number of cycles
// actually consumed. Instruction granularity is the unit of commit: the
// CPU never suspends mid-instruction, so the returned value can
// exceed budgetCycles by at most the cost of the final instruction or
// interrupt entry. Taking an interrupt costs interruptCycles and ends at
// the handler's first instruction, which runs on the next pass.
func (c *CPU) Execute(budgetCycles int) int {
	consumed := 0

	for consumed < budgetCycles {
		if c.halted {
			break
		}

		if c.checkInterrupt() {
			consumed += interruptCycles
			continue
		}

		if c.stopped {
			consumed += 4
			continue
		}

		cycles := c.step()
		consumed += cycles

		if cycles == 0 {
			// a step that consumed no cycles (e.g. a fault during fetch)
			// must not spin the scheduler forever.
			break
		}
	}

	return consumed
}

// step fetches, decodes, and executes exactly one instruction, returning
// its cycle cost.
func (c *CPU) step() int {
	if c.reg.PC&1 != 0 {
		c.raiseAddressError(c.reg.PC, false)
		return 0
	}

	opcode, fault := c.bus.ReadWord(c.reg.PC)
	if fault != nil {
		c.lastFault = fault
		c.raiseBusError()
		return 4
	}
	c.reg.PC += 2
	c.lastOpcode = opcode
	c.instrCount++

	h, cycles := decode(opcode)
	if h == nil {
		c.raiseException(vectorIllegalInstruction)
		return cycles
	}

	h(c, opcode)
	return cycles
}

// interruptCycles is the 68000's interrupt-acknowledge exception time.
const interruptCycles = 44

// checkInterrupt takes the pending interrupt if the mask allows it and
// reports whether it did.
func (c *CPU) checkInterrupt() bool {
	if c.pendingIRQ == 0 {
		return false
	}
	if c.pendingIRQ <= c.reg.SR.IntMask && c.pendingIRQ != 7 {
		return false
	}

	level := c.pendingIRQ
	c.pendingIRQ = 0
	c.stopped = false

	var vec uint8
	if c.vectors != nil {
		if v, ok := c.vectors.AckIRQ(level); ok {
			vec = v
		} else {
			vec = vectorSpuriousInterrupt
		}
	} else {
		vec = vectorSpuriousInterrupt
	}

	c.enterException(uint8(vec), level)
	return true
}

// GetState copies the current register file and run state into a State
// struct suitable for inspection endpoints and snapshotting.
func (c *CPU) GetState() State {
	return State{
		Registers:  c.reg,
		Halted:     c.halted,
		Stopped:    c.stopped,
		PendingIRQ: c.pendingIRQ,
		LastOpcode: c.lastOpcode,
		InstrCount: c.instrCount,
	}
}

// SetState rehydrates the register file and run state, used by the
// snapshot engine's restore path.
func (c *CPU) SetState(s State) {
	c.reg = s.Registers
	c.halted = s.Halted
	c.stopped = s.Stopped
	c.pendingIRQ = s.PendingIRQ
	c.lastOpcode = s.LastOpcode
	c.instrCount = s.InstrCount
}
