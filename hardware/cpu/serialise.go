package cpu

import (
	"encoding/binary"
	"io"
)

// wire-format state block. the status register is packed into its uint16
// form so the block has no Go-level padding ambiguity
type serialisedState struct {
	D          [8]uint32
	A          [8]uint32
	PC         uint32
	SR         uint16
	USP        uint32
	SSP        uint32
	Halted     bool
	Stopped    bool
	PendingIRQ uint8
	LastOpcode uint16
	InstrCount uint64
}

// SaveState writes the CPU's state block to w in its fixed wire format.
func (c *CPU) SaveState(w io.Writer) error {
	s := serialisedState{
		D:          c.reg.D,
		A:          c.reg.A,
		PC:         c.reg.PC,
		SR:         c.reg.SR.ToUint16(),
		USP:        c.reg.USP,
		SSP:        c.reg.SSP,
		Halted:     c.halted,
		Stopped:    c.stopped,
		PendingIRQ: c.pendingIRQ,
		LastOpcode: c.lastOpcode,
		InstrCount: c.instrCount,
	}
	return binary.Write(w, binary.BigEndian, s)
}

// LoadState rehydrates the CPU from a state block written by SaveState.
func (c *CPU) LoadState(r io.Reader) error {
	var s serialisedState
	if err := binary.Read(r, binary.BigEndian, &s); err != nil {
		return err
	}
	c.reg.D = s.D
	c.reg.A = s.A
	c.reg.PC = s.PC
	c.reg.SR = StatusFromUint16(s.SR)
	c.reg.USP = s.USP
	c.reg.SSP = s.SSP
	c.halted = s.Halted
	c.stopped = s.Stopped
	c.pendingIRQ = s.PendingIRQ
	c.lastOpcode = s.LastOpcode
	c.instrCount = s.InstrCount
	return nil
}
