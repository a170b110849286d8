// Package bus defines the 24-bit big-endian memory bus concept used by
// every component of the emulation core. The same idea of "access patterns
// differ by caller" appears twice over (a CPU-facing interface, a
// debug-facing Peek/Poke interface); the
// address width, endianness, and range-dispatch machinery are built for
// the ST's 24-bit space, since the VCS's 13-bit single-chip bus has no
// equivalent concept of a handler registry.
package bus

import (
	"sort"
	"sync/atomic"

	"github.com/atarist-core/emucore/hardware/memory/memorymap"
)

// Handler is implemented by anything that owns a range of the address
// space: RAM, ROM, and each I/O chip's register window.
type Handler interface {
	Name() string
	ReadByte(addr uint32) uint8
	ReadWord(addr uint32) uint16
	WriteByte(addr uint32, v uint8)
	WriteWord(addr uint32, v uint16)
}

// DebugHandler is the optional meta-interface a Handler can also implement
// to support Peek/Poke without side effects (register latches, FIFO
// advances, and so on).
type DebugHandler interface {
	Peek(addr uint32) (uint8, bool)
	Poke(addr uint32, v uint8) bool
}

// FaultKind distinguishes the two fault conditions the bus can raise.
type FaultKind int

const (
	NoFault FaultKind = iota
	FaultBusError
	FaultAddressError
)

// Fault describes a faulting transaction, surfaced to the CPU via its
// per-cycle fault channel; the CPU decides whether to raise a
// 68000 exception based on its own access-size/alignment rules.
type Fault struct {
	Kind    FaultKind
	Address uint32
	IsWrite bool
}

type ranged struct {
	start, end uint32 // inclusive
	handler    Handler
}

// Map is the bus value that owns RAM/ROM and an ordered handler registry.
// No component ever indexes RAM directly; everything goes through
// ReadByte/ReadWord/WriteByte/WriteWord.
type Map struct {
	ram []byte
	rom []byte

	ranges []ranged

	busErrors        uint64
	lastFaultAddr    uint32
	lastFaultIsWrite bool
	lastFault        FaultKind
}

// NewMap allocates RAM of ramSize bytes and an empty handler registry. RAM
// always occupies 0x000000..ramSize-1.
func NewMap(ramSize int) *Map {
	return &Map{
		ram: make([]byte, ramSize),
	}
}

// LoadROM installs the ROM image at memorymap.ROMBase. Images larger than
// the reserved ROM window are rejected by the caller before this is
// called; LoadROM itself just copies.
func (m *Map) LoadROM(image []byte) {
	m.rom = make([]byte, len(image))
	copy(m.rom, image)
}

// RAMSize returns the configured RAM size in bytes.
func (m *Map) RAMSize() int { return len(m.ram) }

// Register adds a handler for the address range [start, end] (inclusive).
// Ranges must be disjoint; Register panics on overlap since that can only
// be a wiring bug in the profile, never a runtime condition.
func (m *Map) Register(start, end uint32, h Handler) {
	start &= memorymap.AddressMask
	end &= memorymap.AddressMask

	for _, r := range m.ranges {
		if start <= r.end && end >= r.start {
			panic("bus: overlapping range registered for " + h.Name() + " and " + r.handler.Name())
		}
	}

	m.ranges = append(m.ranges, ranged{start: start, end: end, handler: h})
	sort.Slice(m.ranges, func(i, j int) bool { return m.ranges[i].start < m.ranges[j].start })
}

// find locates the handler owning addr, or nil with ok=false.
func (m *Map) find(addr uint32) (Handler, bool) {
	// RAM and ROM are handled inline rather than through the registry so
	// that the hot path (almost every access) avoids the range search.
	if int(addr) < len(m.ram) {
		return nil, false
	}
	if addr >= memorymap.ROMBase && int(addr-memorymap.ROMBase) < len(m.rom) {
		return nil, false
	}

	lo, hi := 0, len(m.ranges)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		r := m.ranges[mid]
		switch {
		case addr < r.start:
			hi = mid - 1
		case addr > r.end:
			lo = mid + 1
		default:
			return r.handler, true
		}
	}
	return nil, false
}

func (m *Map) recordFault(kind FaultKind, addr uint32, isWrite bool) {
	atomic.AddUint64(&m.busErrors, 1)
	m.lastFault = kind
	m.lastFaultAddr = addr
	m.lastFaultIsWrite = isWrite
}

// BusErrors is the monotonically incrementing out-of-range access counter
//.
func (m *Map) BusErrors() uint64 { return atomic.LoadUint64(&m.busErrors) }

// LastFault returns the most recently latched fault, zero-valued if none
// has occurred.
func (m *Map) LastFault() Fault {
	return Fault{Kind: m.lastFault, Address: m.lastFaultAddr, IsWrite: m.lastFaultIsWrite}
}

// ReadByte reads one byte. Out-of-range reads return 0 and latch a bus
// error.
func (m *Map) ReadByte(addr uint32) (uint8, *Fault) {
	addr &= memorymap.AddressMask

	if int(addr) < len(m.ram) {
		return m.ram[addr], nil
	}
	if addr >= memorymap.ROMBase && int(addr-memorymap.ROMBase) < len(m.rom) {
		return m.rom[addr-memorymap.ROMBase], nil
	}
	if h, ok := m.find(addr); ok {
		return h.ReadByte(addr), nil
	}

	m.recordFault(FaultBusError, addr, false)
	return 0, &Fault{Kind: FaultBusError, Address: addr, IsWrite: false}
}

// ReadWord reads one big-endian 16-bit word. An odd address is an address
// error, surfaced to the caller without touching memory.
func (m *Map) ReadWord(addr uint32) (uint16, *Fault) {
	addr &= memorymap.AddressMask

	if addr&1 != 0 {
		return 0, &Fault{Kind: FaultAddressError, Address: addr, IsWrite: false}
	}

	if int(addr)+1 < len(m.ram) {
		return uint16(m.ram[addr])<<8 | uint16(m.ram[addr+1]), nil
	}
	if addr >= memorymap.ROMBase && int(addr-memorymap.ROMBase)+1 < len(m.rom) {
		off := addr - memorymap.ROMBase
		return uint16(m.rom[off])<<8 | uint16(m.rom[off+1]), nil
	}
	if h, ok := m.find(addr); ok {
		return h.ReadWord(addr), nil
	}

	m.recordFault(FaultBusError, addr, false)
	return 0, &Fault{Kind: FaultBusError, Address: addr, IsWrite: false}
}

// WriteByte writes one byte. Out-of-range writes are dropped and latch a
// bus error.
func (m *Map) WriteByte(addr uint32, v uint8) *Fault {
	addr &= memorymap.AddressMask

	if int(addr) < len(m.ram) {
		m.ram[addr] = v
		return nil
	}
	if addr >= memorymap.ROMBase && int(addr-memorymap.ROMBase) < len(m.rom) {
		// ROM is not writable; treat like any other unmapped write.
		m.recordFault(FaultBusError, addr, true)
		return &Fault{Kind: FaultBusError, Address: addr, IsWrite: true}
	}
	if h, ok := m.find(addr); ok {
		h.WriteByte(addr, v)
		return nil
	}

	m.recordFault(FaultBusError, addr, true)
	return &Fault{Kind: FaultBusError, Address: addr, IsWrite: true}
}

// WriteWord writes one big-endian 16-bit word. An odd address is an
// address error.
func (m *Map) WriteWord(addr uint32, v uint16) *Fault {
	addr &= memorymap.AddressMask

	if addr&1 != 0 {
		return &Fault{Kind: FaultAddressError, Address: addr, IsWrite: true}
	}

	if int(addr)+1 < len(m.ram) {
		m.ram[addr] = uint8(v >> 8)
		m.ram[addr+1] = uint8(v)
		return nil
	}
	if addr >= memorymap.ROMBase && int(addr-memorymap.ROMBase)+1 < len(m.rom) {
		m.recordFault(FaultBusError, addr, true)
		return &Fault{Kind: FaultBusError, Address: addr, IsWrite: true}
	}
	if h, ok := m.find(addr); ok {
		h.WriteWord(addr, v)
		return nil
	}

	m.recordFault(FaultBusError, addr, true)
	return &Fault{Kind: FaultBusError, Address: addr, IsWrite: true}
}

// Peek/Poke are debug-only accessors: they behave like ReadByte/WriteByte
// for RAM/ROM, and defer to a handler's DebugHandler implementation (if
// any) for I/O ranges, so that inspection never perturbs chip state (FIFO
// advances, register-latch sequencing) the way a live ReadByte/WriteByte
// would.
func (m *Map) Peek(addr uint32) (uint8, bool) {
	addr &= memorymap.AddressMask
	if int(addr) < len(m.ram) {
		return m.ram[addr], true
	}
	if addr >= memorymap.ROMBase && int(addr-memorymap.ROMBase) < len(m.rom) {
		return m.rom[addr-memorymap.ROMBase], true
	}
	if h, ok := m.find(addr); ok {
		if dh, ok := h.(DebugHandler); ok {
			return dh.Peek(addr)
		}
		return h.ReadByte(addr), true
	}
	return 0, false
}

func (m *Map) Poke(addr uint32, v uint8) bool {
	addr &= memorymap.AddressMask
	if int(addr) < len(m.ram) {
		m.ram[addr] = v
		return true
	}
	if h, ok := m.find(addr); ok {
		if dh, ok := h.(DebugHandler); ok {
			return dh.Poke(addr, v)
		}
		h.WriteByte(addr, v)
		return true
	}
	return false
}
