package glue

import (
	"encoding/binary"
	"io"
)

type serialisedState struct {
	LineCycles int32
	Scanline   int32
	Resolution uint8
	FrameCount uint64
	EndOfFrame bool
	PendingHBL bool
	PendingVBL bool
}

// SaveState writes GLUE's state block to w. The region is construction
// configuration, not state, and is not part of the block.
func (g *GLUE) SaveState(w io.Writer) error {
	return binary.Write(w, binary.BigEndian, serialisedState{
		LineCycles: int32(g.lineCycles),
		Scanline:   int32(g.scanline),
		Resolution: uint8(g.resolution),
		FrameCount: g.frameCount,
		EndOfFrame: g.endOfFrame,
		PendingHBL: g.pendingHBL,
		PendingVBL: g.pendingVBL,
	})
}

// LoadState rehydrates GLUE from a state block written by SaveState.
func (g *GLUE) LoadState(r io.Reader) error {
	var s serialisedState
	if err := binary.Read(r, binary.BigEndian, &s); err != nil {
		return err
	}
	g.lineCycles = int(s.LineCycles)
	g.scanline = int(s.Scanline)
	g.resolution = Resolution(s.Resolution)
	g.frameCount = s.FrameCount
	g.endOfFrame = s.EndOfFrame
	g.pendingHBL = s.PendingHBL
	g.pendingVBL = s.PendingVBL
	return nil
}
