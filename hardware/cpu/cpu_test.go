package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atarist-core/emucore/hardware/memory/bus"
)

func newTestCPU(t *testing.T) (*CPU, *bus.Map) {
	t.Helper()
	m := bus.NewMap(64 * 1024)
	c := NewCPU()
	c.SetBus(m)
	return c, m
}

func writeResetVectors(m *bus.Map, ssp, pc uint32) {
	m.WriteWord(0, uint16(ssp>>16))
	m.WriteWord(2, uint16(ssp))
	m.WriteWord(4, uint16(pc>>16))
	m.WriteWord(6, uint16(pc))
}

func TestResetLoadsVectors(t *testing.T) {
	c, m := newTestCPU(t)
	writeResetVectors(m, 0x00FF00, 0x400)
	c.Reset()

	assert.Equal(t, uint32(0x00FF00), c.reg.SSP)
	assert.Equal(t, uint32(0x00FF00), c.reg.A[7])
	assert.Equal(t, uint32(0x400), c.reg.PC)
	assert.True(t, c.reg.SR.Supervisor)
	assert.Equal(t, uint8(7), c.reg.SR.IntMask)
}

func TestMOVEQSetsFlags(t *testing.T) {
	c, m := newTestCPU(t)
	writeResetVectors(m, 0x1000, 0x400)
	c.Reset()

	m.WriteWord(0x400, 0x7000) // MOVEQ #0, D0
	cycles := c.Execute(4)

	require.Greater(t, cycles, 0)
	assert.Equal(t, uint32(0), c.reg.D[0])
	assert.True(t, c.reg.SR.Zero)
	assert.False(t, c.reg.SR.Negative)
}

func TestBRAJumpsRelative(t *testing.T) {
	c, m := newTestCPU(t)
	writeResetVectors(m, 0x1000, 0x400)
	c.Reset()

	m.WriteWord(0x400, 0x6002) // BRA +2
	c.Execute(10)

	assert.Equal(t, uint32(0x404), c.reg.PC)
}

func TestJSRRTSRoundTrip(t *testing.T) {
	c, m := newTestCPU(t)
	writeResetVectors(m, 0x2000, 0x400)
	c.Reset()

	// JSR (A0); A0 points at an RTS.
	c.reg.A[0] = 0x500
	m.WriteWord(0x500, 0x4E75) // RTS
	m.WriteWord(0x400, 0x4E90) // JSR (A0)

	c.Execute(16)
	assert.Equal(t, uint32(0x500), c.reg.PC)

	c.Execute(16)
	assert.Equal(t, uint32(0x402), c.reg.PC)
}

type stubVectors struct {
	vector uint8
	ok     bool
}

func (s stubVectors) AckIRQ(level uint8) (uint8, bool) { return s.vector, s.ok }

func TestInterruptEntersExceptionHandler(t *testing.T) {
	c, m := newTestCPU(t)
	writeResetVectors(m, 0x3000, 0x400)
	c.Reset()
	c.Init(Config{Vectors: stubVectors{vector: 26, ok: true}})

	m.WriteWord(26*4, 0)
	m.WriteWord(26*4+2, 0x0800) // handler entry point

	m.WriteWord(0x400, 0x4E71) // NOP
	c.reg.SR.IntMask = 0
	c.SetIRQ(4)

	c.Execute(4)

	assert.Equal(t, uint32(0x800), c.reg.PC)
	assert.Equal(t, uint8(4), c.reg.SR.IntMask)
	assert.Equal(t, uint8(0), c.PendingIRQ())
}

func TestSpuriousInterruptWhenVectorsNil(t *testing.T) {
	c, m := newTestCPU(t)
	writeResetVectors(m, 0x3000, 0x400)
	c.Reset()

	m.WriteWord(vectorSpuriousInterrupt*4, 0)
	m.WriteWord(vectorSpuriousInterrupt*4+2, 0x0900)

	m.WriteWord(0x400, 0x4E71) // NOP
	c.reg.SR.IntMask = 0
	c.SetIRQ(2)
	c.Execute(4)

	assert.Equal(t, uint32(0x900), c.reg.PC)
}

func TestStateRoundTrip(t *testing.T) {
	c, m := newTestCPU(t)
	writeResetVectors(m, 0x1000, 0x400)
	c.Reset()
	c.reg.D[3] = 0xDEADBEEF
	c.reg.PC = 0x600

	snap := c.GetState()

	other, _ := newTestCPU(t)
	other.SetState(snap)

	assert.Equal(t, c.reg, other.reg)
	assert.Equal(t, c.instrCount, other.instrCount)
}

func TestCLRZeroesOperandAndSetsZ(t *testing.T) {
	c, m := newTestCPU(t)
	writeResetVectors(m, 0x1000, 0x400)
	c.Reset()

	c.reg.D[1] = 0xFFFFFFFF
	m.WriteWord(0x400, 0x4281) // CLR.L D1
	c.Execute(8)

	assert.Equal(t, uint32(0), c.reg.D[1])
	assert.True(t, c.reg.SR.Zero)
}
