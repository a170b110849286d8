package mfp

import (
	"encoding/binary"
	"io"
)

type serialisedTimer struct {
	Control   uint8
	Data      uint8
	Counter   uint8
	SubCycles int32
}

type serialisedState struct {
	Timers     [4]serialisedTimer
	IERA, IERB uint8
	IMRA, IMRB uint8
	IPRA, IPRB uint8
	ISRA, ISRB uint8
	VR         uint8
}

// SaveState writes the MFP's register banks and timer channels to w.
func (m *MFP) SaveState(w io.Writer) error {
	var s serialisedState
	for i, t := range m.timers {
		s.Timers[i] = serialisedTimer{
			Control:   t.control,
			Data:      t.data,
			Counter:   t.counter,
			SubCycles: int32(t.subCycles),
		}
	}
	s.IERA, s.IERB = m.iera, m.ierb
	s.IMRA, s.IMRB = m.imra, m.imrb
	s.IPRA, s.IPRB = m.ipra, m.iprb
	s.ISRA, s.ISRB = m.isra, m.isrb
	s.VR = m.vr
	return binary.Write(w, binary.BigEndian, s)
}

// LoadState rehydrates the MFP from a state block written by SaveState.
func (m *MFP) LoadState(r io.Reader) error {
	var s serialisedState
	if err := binary.Read(r, binary.BigEndian, &s); err != nil {
		return err
	}
	for i := range m.timers {
		m.timers[i] = timer{
			control:   s.Timers[i].Control,
			data:      s.Timers[i].Data,
			counter:   s.Timers[i].Counter,
			subCycles: int(s.Timers[i].SubCycles),
		}
	}
	m.iera, m.ierb = s.IERA, s.IERB
	m.imra, m.imrb = s.IMRA, s.IMRB
	m.ipra, m.iprb = s.IPRA, s.IPRB
	m.isra, m.isrb = s.ISRA, s.ISRB
	m.vr = s.VR
	return nil
}
