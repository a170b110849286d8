// Package psg models the YM2149-like Programmable Sound Generator:
// the 16-register file addressed through register-latch-then-data-write,
// three tone channels, noise, and the two 8-bit I/O ports. The envelope
// registers are stored and read back, but no envelope generator runs:
// channel amplitudes come from the fixed amplitude registers only. Audio
// chunks are rendered into a go-audio/audio.IntBuffer, the same buffer type
// the stream fabric's wav capture sink (C8) consumes.
package psg

import (
	"github.com/go-audio/audio"

	"github.com/atarist-core/emucore/hardware/clocks"
)

// Register indices, in PSG register-file order.
const (
	RegToneAFine = iota
	RegToneACoarse
	RegToneBFine
	RegToneBCoarse
	RegToneCFine
	RegToneCCoarse
	RegNoisePeriod
	RegMixer
	RegAmplitudeA
	RegAmplitudeB
	RegAmplitudeC
	RegEnvelopeFine
	RegEnvelopeCoarse
	RegEnvelopeShape
	RegIOPortA
	RegIOPortB
	numRegisters
)

const cpuClockDivisor = 8

// PSG is the YM2149-like sound chip plus its register-latch bus interface.
type PSG struct {
	regs    [numRegisters]uint8
	latched uint8

	sampleRate int
	carry      int // fractional CPU cycles not yet turned into a sample

	tonePhase  [3]uint32
	noiseLFSR  uint32
	noisePhase int

	portAWrite func(v uint8)
}

// New constructs a PSG that renders chunks at sampleRate (typically
// 44100/48000, set by the engine's audio publisher configuration).
func New(sampleRate int) *PSG {
	p := &PSG{sampleRate: sampleRate, noiseLFSR: 1}
	return p
}

func (p *PSG) Name() string { return "psg" }

// SetPortAWriteSink lets the GLUE/FDC wiring observe Port A transitions
// (floppy drive select, parallel strobe).
func (p *PSG) SetPortAWriteSink(sink func(v uint8)) { p.portAWrite = sink }

func (p *PSG) Reset() {
	p.regs = [numRegisters]uint8{}
	p.latched = 0
	p.carry = 0
	p.tonePhase = [3]uint32{}
	p.noiseLFSR = 1
}

// ReadByte/WriteByte implement the register-latch protocol: a write to the
// low address (0xFF8800) selects the active register, a write to the high
// address (0xFF8802) writes data into it; reads at the high address return
// the latched register's value.
func (p *PSG) WriteByte(addr uint32, v uint8) {
	if addr&0x2 == 0 {
		p.latched = v & 0xF
		return
	}
	p.regs[p.latched] = v
	if p.latched == RegIOPortA && p.portAWrite != nil {
		p.portAWrite(v)
	}
}

func (p *PSG) ReadByte(addr uint32) uint8 {
	if addr&0x2 == 0 {
		return p.latched
	}
	return p.regs[p.latched]
}

func (p *PSG) ReadWord(addr uint32) uint16  { return uint16(p.ReadByte(addr)) }
func (p *PSG) WriteWord(addr uint32, v uint16) { p.WriteByte(addr, uint8(v)) }

func (p *PSG) tonePeriod(channel int) uint32 {
	fine := uint32(p.regs[RegToneAFine+channel*2])
	coarse := uint32(p.regs[RegToneACoarse+channel*2] & 0xF)
	period := coarse<<8 | fine
	if period == 0 {
		period = 1
	}
	return period
}

func (p *PSG) channelEnabled(channel int, noise bool) bool {
	mixer := p.regs[RegMixer]
	bit := uint(channel)
	if noise {
		bit += 3
	}
	return mixer&(1<<bit) == 0
}

func (p *PSG) amplitude(channel int) uint8 {
	return p.regs[RegAmplitudeA+channel] & 0xF
}

// RenderAudioChunk advances the generator by frames samples at the PSG
// clock (CPU clock / 8) and writes interleaved mono PCM into out, which
// must back a go-audio/audio.IntBuffer of the configured sample rate.
func (p *PSG) RenderAudioChunk(frames int, out *audio.IntBuffer) {
	if out.Format == nil {
		out.Format = &audio.Format{NumChannels: 1, SampleRate: p.sampleRate}
	}
	if cap(out.Data) < frames {
		out.Data = make([]int, frames)
	} else {
		out.Data = out.Data[:frames]
	}

	psgClock := clocks.CPUHz / cpuClockDivisor
	stepPerSample := psgClock / p.sampleRate
	if stepPerSample == 0 {
		stepPerSample = 1
	}

	for i := 0; i < frames; i++ {
		out.Data[i] = int(p.sampleOne(stepPerSample))
	}
}

func (p *PSG) sampleOne(steps int) int16 {
	var mix int32

	for ch := 0; ch < 3; ch++ {
		period := p.tonePeriod(ch)
		p.tonePhase[ch] = (p.tonePhase[ch] + uint32(steps)) % (period * 2)
		high := p.tonePhase[ch] < period

		if p.channelEnabled(ch, false) && high {
			mix += int32(p.amplitude(ch)) * 1024
		}
	}

	noisePeriod := int(p.regs[RegNoisePeriod]&0x1F) + 1
	p.noisePhase += steps
	for p.noisePhase >= noisePeriod {
		p.noisePhase -= noisePeriod
		bit := (p.noiseLFSR ^ (p.noiseLFSR >> 3)) & 1
		p.noiseLFSR = p.noiseLFSR>>1 | bit<<16
	}
	noiseHigh := p.noiseLFSR&1 != 0
	for ch := 0; ch < 3; ch++ {
		if p.channelEnabled(ch, true) && noiseHigh {
			mix += int32(p.amplitude(ch)) * 512
		}
	}

	if mix > 32767 {
		mix = 32767
	}
	if mix < -32768 {
		mix = -32768
	}
	return int16(mix)
}
