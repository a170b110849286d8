package shifter

import (
	"encoding/binary"
	"io"

	"github.com/atarist-core/emucore/hardware/chips/glue"
)

type serialisedState struct {
	Base       uint32
	Palette    [16]uint16
	Resolution uint8
}

// SaveState writes the Shifter's base pointer, palette, and latched
// resolution to w.
func (s *Shifter) SaveState(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, serialisedState{
		Base:       s.base,
		Palette:    s.palette,
		Resolution: uint8(s.resolution),
	})
}

// LoadState rehydrates the Shifter from a state block written by
// SaveState.
func (s *Shifter) LoadState(r io.Reader) error {
	var st serialisedState
	if err := binary.Read(r, binary.BigEndian, &st); err != nil {
		return err
	}
	s.base = st.Base
	s.palette = st.Palette
	s.resolution = glue.Resolution(st.Resolution)
	return nil
}
