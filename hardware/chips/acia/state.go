package acia

import (
	"encoding/binary"
	"io"
)

type serialisedState struct {
	Control  uint8
	Status   uint8
	TxData   uint8
	RxBudget int32
}

// SaveState writes the ACIA's registers and receive FIFO to w. The FIFO is
// length-prefixed since its depth varies.
func (a *ACIA) SaveState(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, serialisedState{
		Control:  a.control,
		Status:   a.status,
		TxData:   a.txData,
		RxBudget: int32(a.rxBudget),
	}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(a.rxFIFO))); err != nil {
		return err
	}
	_, err := w.Write(a.rxFIFO)
	return err
}

// LoadState rehydrates the ACIA from a state block written by SaveState.
func (a *ACIA) LoadState(r io.Reader) error {
	var s serialisedState
	if err := binary.Read(r, binary.BigEndian, &s); err != nil {
		return err
	}
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return err
	}
	fifo := make([]uint8, n)
	if _, err := io.ReadFull(r, fifo); err != nil {
		return err
	}
	a.control = s.Control
	a.status = s.Status
	a.txData = s.TxData
	a.rxBudget = int(s.RxBudget)
	a.rxFIFO = fifo
	return nil
}
