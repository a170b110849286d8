// Package acia models the pair of 6850-class ACIAs: the keyboard
// ACIA bridging to an IKBD packet parser, and the MIDI ACIA. Both share the
// same control/status/data register shape; only the keyboard instance
// carries IKBD packet framing.
package acia

// Status register bits (6850 layout).
const (
	statusRDRF = 1 << 0 // receive data register full
	statusTDRE = 1 << 1 // transmit data register empty
	statusIRQ  = 1 << 7
)

// cyclesPerByte: at 7812.5 bits/s 8N1 framing: ~1024 CPU cycles (at 8MHz) per
// byte inter-character gap.
const cyclesPerByte = 1024

// IRQSink receives an interrupt assertion (ACIA feeds into GLUE's level-6
// wire alongside the MFP in this engine's wiring).
type IRQSink func(level uint8)

const aciaLevel = 6

// ACIA is one 6850-class serial controller with a receive FIFO.
type ACIA struct {
	control uint8
	status  uint8
	txData  uint8

	rxFIFO    []uint8
	rxBudget  int // cycles until the next FIFO byte may be presented

	irq    IRQSink
	vector uint8
	name   string
}

func New() *ACIA { return &ACIA{status: statusTDRE, vector: 0x46, name: "acia"} }

// SetName distinguishes the keyboard and MIDI ACIA instances in
// diagnostics and arbitration hooks.
func (a *ACIA) SetName(name string) { a.name = name }

// SetVector configures the vector AckIRQ resolves to for this ACIA
// instance (the keyboard and MIDI ACIAs are wired to distinct vectors).
func (a *ACIA) SetVector(v uint8) { a.vector = v }

func (a *ACIA) Name() string { return a.name }

// AckIRQ implements arbitration.Source: pending whenever RDRF is set with
// IRQ enabled in the control register.
func (a *ACIA) AckIRQ(level uint8) (vector uint8, ok bool) {
	if level != aciaLevel {
		return 0, false
	}
	if a.status&statusRDRF != 0 && a.control&0x80 != 0 {
		return a.vector, true
	}
	return 0, false
}

func (a *ACIA) SetIRQSink(sink IRQSink) { a.irq = sink }

func (a *ACIA) Reset() {
	a.control = 0
	a.status = statusTDRE
	a.rxFIFO = a.rxFIFO[:0]
	a.rxBudget = 0
}

// Enqueue appends a host-injected byte (key scancode, mouse packet byte) to
// the receive FIFO, rate-paced by Clock.
func (a *ACIA) Enqueue(b uint8) {
	a.rxFIFO = append(a.rxFIFO, b)
}

// Clock advances the inter-character pacing budget and, when a byte is due
// and the previous one has been read, raises RDRF (and the shared IRQ line,
// if enabled) for the byte at the head of the FIFO; ReadByte pops it.
func (a *ACIA) Clock(cycles int) {
	if len(a.rxFIFO) == 0 {
		return
	}
	a.rxBudget -= cycles
	if a.rxBudget > 0 {
		return
	}
	if a.status&statusRDRF != 0 {
		return // previous byte not yet consumed
	}
	a.rxBudget = cyclesPerByte
	a.status |= statusRDRF
	if a.control&0x80 != 0 && a.irq != nil {
		a.irq(aciaLevel)
	}
}

func (a *ACIA) ReadByte(addr uint32) uint8 {
	if addr&0x2 == 0 {
		return a.status
	}
	if len(a.rxFIFO) == 0 {
		return 0
	}
	b := a.rxFIFO[0]
	a.rxFIFO = a.rxFIFO[1:]
	a.status &^= statusRDRF
	return b
}

func (a *ACIA) WriteByte(addr uint32, v uint8) {
	if addr&0x2 == 0 {
		a.control = v
		return
	}
	a.txData = v
}

func (a *ACIA) ReadWord(addr uint32) uint16  { return uint16(a.ReadByte(addr)) }
func (a *ACIA) WriteWord(addr uint32, v uint16) { a.WriteByte(addr, uint8(v)) }

// PendingRX reports how many bytes are still queued, used by diagnostics
// and tests.
func (a *ACIA) PendingRX() int { return len(a.rxFIFO) }
