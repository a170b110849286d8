package psg

import (
	"testing"

	"github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLatchWriteRead(t *testing.T) {
	p := New(44100)
	p.WriteByte(0xFF8800, RegAmplitudeA) // latch register
	p.WriteByte(0xFF8802, 0x0F)          // write data

	assert.Equal(t, uint8(0x0F), p.regs[RegAmplitudeA])

	got := p.ReadByte(0xFF8802)
	assert.Equal(t, uint8(0x0F), got)
}

func TestRenderAudioChunkFillsBuffer(t *testing.T) {
	p := New(44100)
	p.WriteByte(0xFF8800, RegToneAFine)
	p.WriteByte(0xFF8802, 100)
	p.WriteByte(0xFF8800, RegAmplitudeA)
	p.WriteByte(0xFF8802, 15)
	p.WriteByte(0xFF8800, RegMixer)
	p.WriteByte(0xFF8802, 0xFE) // enable tone A only

	buf := &audio.IntBuffer{}
	p.RenderAudioChunk(512, buf)

	require.Len(t, buf.Data, 512)
	assert.Equal(t, 44100, buf.Format.SampleRate)
}

func TestPortAWriteSinkObservesTransitions(t *testing.T) {
	p := New(44100)
	var seen uint8
	p.SetPortAWriteSink(func(v uint8) { seen = v })

	p.WriteByte(0xFF8800, RegIOPortA)
	p.WriteByte(0xFF8802, 0x05)

	assert.Equal(t, uint8(0x05), seen)
}
