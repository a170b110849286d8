package psg

import (
	"encoding/binary"
	"io"
)

type serialisedState struct {
	Regs       [numRegisters]uint8
	Latched    uint8
	Carry      int32
	TonePhase  [3]uint32
	NoiseLFSR  uint32
	NoisePhase int32
}

// SaveState writes the PSG's register file and generator phase to w. The
// sample rate is construction configuration and is not part of the block.
func (p *PSG) SaveState(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, serialisedState{
		Regs:       p.regs,
		Latched:    p.latched,
		Carry:      int32(p.carry),
		TonePhase:  p.tonePhase,
		NoiseLFSR:  p.noiseLFSR,
		NoisePhase: int32(p.noisePhase),
	})
}

// LoadState rehydrates the PSG from a state block written by SaveState.
func (p *PSG) LoadState(r io.Reader) error {
	var s serialisedState
	if err := binary.Read(r, binary.BigEndian, &s); err != nil {
		return err
	}
	p.regs = s.Regs
	p.latched = s.Latched
	p.carry = int(s.Carry)
	p.tonePhase = s.TonePhase
	p.noiseLFSR = s.NoiseLFSR
	p.noisePhase = int(s.NoisePhase)
	return nil
}
