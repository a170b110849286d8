package bus

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"
)

// SaveState writes the RAM contents and the bus-error latch to w. ROM is
// not part of the block: it is re-mounted from the media binding list on
// restore.
func (m *Map) SaveState(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(m.ram))); err != nil {
		return err
	}
	if _, err := w.Write(m.ram); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, struct {
		BusErrors        uint64
		LastFaultAddr    uint32
		LastFaultIsWrite bool
		LastFault        uint8
	}{
		BusErrors:        atomic.LoadUint64(&m.busErrors),
		LastFaultAddr:    m.lastFaultAddr,
		LastFaultIsWrite: m.lastFaultIsWrite,
		LastFault:        uint8(m.lastFault),
	})
}

// LoadState rehydrates RAM and the bus-error latch from a state block
// written by SaveState. The RAM size must match the active profile's.
func (m *Map) LoadState(r io.Reader) error {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return err
	}
	if int(n) != len(m.ram) {
		return fmt.Errorf("bus: state block is for %d bytes of RAM, machine has %d", n, len(m.ram))
	}
	if _, err := io.ReadFull(r, m.ram); err != nil {
		return err
	}
	var s struct {
		BusErrors        uint64
		LastFaultAddr    uint32
		LastFaultIsWrite bool
		LastFault        uint8
	}
	if err := binary.Read(r, binary.BigEndian, &s); err != nil {
		return err
	}
	atomic.StoreUint64(&m.busErrors, s.BusErrors)
	m.lastFaultAddr = s.LastFaultAddr
	m.lastFaultIsWrite = s.LastFaultIsWrite
	m.lastFault = FaultKind(s.LastFault)
	return nil
}
