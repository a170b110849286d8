package fdc

import (
	"encoding/binary"
	"io"
)

type serialisedState struct {
	Status             uint8
	Track              uint8
	Sector             uint8
	Data               uint8
	Command            uint8
	CyclesRemaining    int32
	Terminal           uint8
	RequestsThisWindow int32
	Pending            bool
}

// SaveState writes the FDC's registers and in-flight command state to w.
// The mounted disk is a media binding, restored separately.
func (f *FDC) SaveState(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, serialisedState{
		Status:             f.status,
		Track:              f.track,
		Sector:             f.sector,
		Data:               f.data,
		Command:            uint8(f.command),
		CyclesRemaining:    int32(f.cyclesRemaining),
		Terminal:           uint8(f.terminal),
		RequestsThisWindow: int32(f.requestsThisWindow),
		Pending:            f.pending,
	})
}

// LoadState rehydrates the FDC from a state block written by SaveState.
func (f *FDC) LoadState(r io.Reader) error {
	var s serialisedState
	if err := binary.Read(r, binary.BigEndian, &s); err != nil {
		return err
	}
	f.status = s.Status
	f.track = s.Track
	f.sector = s.Sector
	f.data = s.Data
	f.command = Command(s.Command)
	f.cyclesRemaining = int(s.CyclesRemaining)
	f.terminal = Terminal(s.Terminal)
	f.requestsThisWindow = int(s.RequestsThisWindow)
	f.pending = s.Pending
	return nil
}
