// Package shifter models the ST MMU/Shifter video chip: the video
// base pointer, the 16-entry colour palette, and the scanline renderer
// consumed by the stream fabric (C8), not by the CPU.
package shifter

import "github.com/atarist-core/emucore/hardware/chips/glue"

// Shifter owns the video base pointer and palette registers and renders
// scanlines on demand.
type Shifter struct {
	base    uint32
	palette [16]uint16 // STE-style 0x0RGB values, expanded to RGB565 on render

	resolution glue.Resolution

	mem func(addr uint32) uint8
}

// New constructs a Shifter that reads pixel bytes through read, typically
// the system RAM's raw byte accessor (video fetch bypasses the bus fault
// model: a video DMA fetch never raises a bus error to the CPU).
func New(read func(addr uint32) uint8) *Shifter {
	return &Shifter{mem: read}
}

func (s *Shifter) Name() string { return "shifter" }

func (s *Shifter) Reset() {
	s.base = 0
	s.palette = [16]uint16{}
}

func (s *Shifter) SetResolution(r glue.Resolution) { s.resolution = r }

func (s *Shifter) Base() uint32 { return s.base }

// ReadByte/WriteByte implement bus.Handler over the base-pointer and
// palette register window (0xFF8201..0xFF825E). The base pointer's three
// bytes are addressed individually at offsets 0x01, 0x03, 0x0D from
// 0xFF8200 per the real hardware's register layout; the low bit of the
// low byte is always forced to zero.
func (s *Shifter) ReadByte(addr uint32) uint8 {
	switch off := addr & 0xFF; {
	case off == 0x01:
		return uint8(s.base >> 16)
	case off == 0x03:
		return uint8(s.base >> 8)
	case off == 0x0D:
		return uint8(s.base)
	case off >= 0x40 && off < 0x60:
		idx := (off - 0x40) / 2
		v := s.palette[idx]
		if off%2 == 0 {
			return uint8(v >> 8)
		}
		return uint8(v)
	}
	return 0
}

func (s *Shifter) WriteByte(addr uint32, v uint8) {
	switch off := addr & 0xFF; {
	case off == 0x01:
		s.base = s.base&0x00FFFF | uint32(v)<<16
	case off == 0x03:
		s.base = s.base&0xFF00FF | uint32(v)<<8
	case off == 0x0D:
		s.base = s.base&0xFFFF00 | uint32(v&0xFE)
	case off >= 0x40 && off < 0x60:
		idx := (off - 0x40) / 2
		if off%2 == 0 {
			s.palette[idx] = s.palette[idx]&0x00FF | uint16(v)<<8
		} else {
			s.palette[idx] = s.palette[idx]&0xFF00 | uint16(v)
		}
	}
}

func (s *Shifter) ReadWord(addr uint32) uint16 {
	hi := s.ReadByte(addr)
	lo := s.ReadByte(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func (s *Shifter) WriteWord(addr uint32, v uint16) {
	s.WriteByte(addr, uint8(v>>8))
	s.WriteByte(addr+1, uint8(v))
}

// RenderScanline produces RGB565 pixels for line y into out, using the
// current base pointer, resolution, and palette. It is the only place
// STE-palette-to-RGB565 expansion happens.
func (s *Shifter) RenderScanline(y int, out []uint16) {
	w, _, bpp := s.resolution.Dimensions()
	if len(out) < w {
		w = len(out)
	}

	bytesPerLine := w * bpp / 8
	lineBase := s.base + uint32(y*bytesPerLine)

	switch bpp {
	case 4:
		s.renderChunky4(lineBase, out[:w])
	case 2:
		s.renderChunky2(lineBase, out[:w])
	default:
		s.renderMono(lineBase, out[:w])
	}
}

func (s *Shifter) renderChunky4(base uint32, out []uint16) {
	for x := 0; x < len(out); x += 2 {
		b := s.mem(base + uint32(x/2))
		out[x] = s.expand(s.planarIndex4(b, 0))
		if x+1 < len(out) {
			out[x+1] = s.expand(s.planarIndex4(b, 1))
		}
	}
}

func (s *Shifter) planarIndex4(b uint8, half int) uint16 {
	if half == 0 {
		return uint16(b >> 4)
	}
	return uint16(b & 0xF)
}

func (s *Shifter) renderChunky2(base uint32, out []uint16) {
	for x := 0; x < len(out); x += 4 {
		b := s.mem(base + uint32(x/4))
		for i := 0; i < 4 && x+i < len(out); i++ {
			shift := uint(6 - i*2)
			out[x+i] = s.expand(uint16((b >> shift) & 0x3))
		}
	}
}

func (s *Shifter) renderMono(base uint32, out []uint16) {
	for x := 0; x < len(out); x += 8 {
		b := s.mem(base + uint32(x/8))
		for i := 0; i < 8 && x+i < len(out); i++ {
			bit := (b >> uint(7-i)) & 1
			if bit == 0 {
				out[x+i] = 0xFFFF
			} else {
				out[x+i] = 0x0000
			}
		}
	}
}

// expand widens a 4-bit STE palette channel to RGB565's 5/6/5 channels by
// replicating the top bits into the low bits, the common low-cost way to
// avoid darkened output at the low end of the range.
func (s *Shifter) expand(index uint16) uint16 {
	c := s.palette[index&0xF]
	r4 := (c >> 8) & 0xF
	g4 := (c >> 4) & 0xF
	b4 := c & 0xF

	r5 := r4<<1 | r4>>3
	g6 := g4<<2 | g4>>2
	b5 := b4<<1 | b4>>3

	return r5<<11 | g6<<5 | b5
}
