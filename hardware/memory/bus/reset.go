package bus

import "github.com/atarist-core/emucore/hardware/memory/memorymap"

// ResetVectors is the outcome of bootstrapping the reset vector table,
// reported back to the CPU core so it can seed its own registers without
// re-deriving the same values.
type ResetVectors struct {
	SSP uint32
	PC  uint32
}

// Bootstrap seeds the reset vector table: if the
// attached ROM begins with a plausible supervisor stack pointer, the first
// 1024 bytes of ROM are copied into RAM at address 0 and the real vectors
// take effect; otherwise a synthetic reset SSP/PC pair is constructed and
// the entire 256-entry exception-vector region is filled with the
// synthetic PC so that any unexpected exception loops harmlessly back into
// the synthesized entry point. The ST system variables are seeded either
// way.
func (m *Map) Bootstrap() ResetVectors {
	var rv ResetVectors

	if m.plausibleSSP() {
		n := 1024
		if n > len(m.rom) {
			n = len(m.rom)
		}
		copy(m.ram, m.rom[:n])
		rv.SSP = be32(m.ram[0:4])
		rv.PC = be32(m.ram[4:8])
	} else {
		rv.SSP = (uint32(len(m.ram)) - 4) &^ 1
		rv.PC = memorymap.ROMBase

		putBE32(m.ram[0:4], rv.SSP)
		putBE32(m.ram[4:8], rv.PC)
		for v := 8; v+4 <= 1024 && v+4 <= len(m.ram); v += 4 {
			putBE32(m.ram[v:v+4], rv.PC)
		}
	}

	m.seedSystemVariables()
	return rv
}

func (m *Map) plausibleSSP() bool {
	if len(m.rom) < 8 {
		return false
	}
	ssp := be32(m.rom[0:4])
	// a plausible SSP is non-zero, even (the 68000 stack is word-aligned)
	// and within, or just above, the configured RAM.
	return ssp != 0 && ssp&1 == 0 && ssp <= uint32(len(m.ram))+0x10000
}

func (m *Map) seedSystemVariables() {
	putBE32(m.ram[memorymap.MEMVALID:memorymap.MEMVALID+4], memorymap.MemvalidMagic())
	putBE32(m.ram[memorymap.PHYSTOP:memorymap.PHYSTOP+4], uint32(len(m.ram)))
	putBE32(m.ram[memorymap.MEMBOT:memorymap.MEMBOT+4], 0)
	putBE32(m.ram[memorymap.MEMTOP:memorymap.MEMTOP+4], uint32(len(m.ram)))
	putBE32(m.ram[memorymap.MEMVALID2:memorymap.MEMVALID2+4], memorymap.Memvalid2Magic())
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putBE32(b []byte, v uint32) {
	b[0] = uint8(v >> 24)
	b[1] = uint8(v >> 16)
	b[2] = uint8(v >> 8)
	b[3] = uint8(v)
}
