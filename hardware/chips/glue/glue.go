// Package glue models the ST GLUE chip: scanline timing, HBL/VBL
// interrupt generation, and the video resolution register. It is grounded
// on the bus.Handler contract established for the address map and on the
// CPU's clocked-execute idiom (a Clock(cycles) entry point advanced by the
// exact cycle count the caller reports, rather than the chip free-running
// on its own goroutine).
package glue

import "github.com/atarist-core/emucore/hardware/clocks"

// Resolution selects the Shifter's pixel mode, set through the GLUE
// resolution register at 0xFF8260.
type Resolution uint8

const (
	ResolutionLow Resolution = iota
	ResolutionMedium
	ResolutionHigh
)

// IRQSink receives an interrupt assertion at the given priority level.
type IRQSink func(level uint8)

const (
	levelHBL = 2
	levelVBL = 4
)

// GLUE owns scanline/frame timing derived from the configured region.
type GLUE struct {
	region clocks.Region

	lineCycles int
	scanline   int

	resolution Resolution

	frameCount  uint64
	endOfFrame  bool
	irq         IRQSink

	pendingHBL bool
	pendingVBL bool
}

// Autovector numbers GLUE resolves HBL/VBL acknowledgement to.
const (
	AutovectorHBL = 26
	AutovectorVBL = 28
)

func New(region clocks.Region) *GLUE {
	return &GLUE{region: region}
}

func (g *GLUE) Name() string { return "glue" }

func (g *GLUE) SetIRQSink(sink IRQSink) { g.irq = sink }

func (g *GLUE) Reset() {
	g.lineCycles = 0
	g.scanline = 0
	g.frameCount = 0
	g.endOfFrame = false
}

// Clock advances GLUE's line/frame counters by cycles CPU cycles, raising
// HBL at the end of each scanline and VBL at the end of each frame.
func (g *GLUE) Clock(cycles int) {
	g.endOfFrame = false
	g.lineCycles += cycles

	for g.lineCycles >= clocks.CyclesPerLine {
		g.lineCycles -= clocks.CyclesPerLine
		g.scanline++

		g.assert(levelHBL)

		if g.scanline >= g.region.LinesPerFrame() {
			g.scanline = 0
			g.frameCount++
			g.endOfFrame = true
			g.assert(levelVBL)
		}
	}
}

func (g *GLUE) assert(level uint8) {
	switch level {
	case levelHBL:
		g.pendingHBL = true
	case levelVBL:
		g.pendingVBL = true
	}
	if g.irq != nil {
		g.irq(level)
	}
}

// AckIRQ implements arbitration.Source: GLUE only answers for the levels it
// owns (HBL=2, VBL=4), resolving to fixed autovectors and clearing the
// matching pending bit.
func (g *GLUE) AckIRQ(level uint8) (vector uint8, ok bool) {
	switch level {
	case levelVBL:
		if g.pendingVBL {
			g.pendingVBL = false
			return AutovectorVBL, true
		}
	case levelHBL:
		if g.pendingHBL {
			g.pendingHBL = false
			return AutovectorHBL, true
		}
	}
	return 0, false
}

// EndOfFrame reports whether the most recent Clock call crossed a frame
// boundary; the scheduler uses this to trigger the video renderer handoff.
func (g *GLUE) EndOfFrame() bool { return g.endOfFrame }

func (g *GLUE) Scanline() int    { return g.scanline }
func (g *GLUE) FrameCount() uint64 { return g.frameCount }

// ReadByte/WriteByte/ReadWord/WriteWord implement bus.Handler for the
// resolution register at 0xFF8260 (byte-wide; only the low two bits are
// meaningful).
func (g *GLUE) ReadByte(addr uint32) uint8 {
	return uint8(g.resolution)
}

func (g *GLUE) WriteByte(addr uint32, v uint8) {
	g.resolution = Resolution(v & 0x3)
}

func (g *GLUE) ReadWord(addr uint32) uint16 {
	return uint16(g.resolution)
}

func (g *GLUE) WriteWord(addr uint32, v uint16) {
	g.resolution = Resolution(v & 0x3)
}

func (g *GLUE) Resolution() Resolution { return g.resolution }

// Dimensions returns the pixel width/height/bits-per-pixel implied by the
// current resolution register.
func (r Resolution) Dimensions() (w, h, bpp int) {
	switch r {
	case ResolutionMedium:
		return 640, 200, 2
	case ResolutionHigh:
		return 640, 400, 1
	default:
		return 320, 200, 4
	}
}
