package stream

import (
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/atarist-core/emucore/curated"
)

// AudioCaptureSink mirrors published PCM chunks to a wav file on disk, for
// support bundles. It is attached alongside the normal transport sink and
// receives the same drained events; non-audio events are ignored.
type AudioCaptureSink struct {
	f   *os.File
	enc *wav.Encoder

	sampleRate int
	channels   int
}

// NewAudioCaptureSink creates the capture file and its encoder.
func NewAudioCaptureSink(path string, sampleRate, channels int) (*AudioCaptureSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, curated.New(curated.CategoryStream, curated.CodeInternalError, false,
			"audio capture: %v", err)
	}
	return &AudioCaptureSink{
		f:          f,
		enc:        wav.NewEncoder(f, sampleRate, 16, channels, 1),
		sampleRate: sampleRate,
		channels:   channels,
	}, nil
}

// WriteEvent appends an audio chunk's samples to the capture file.
func (s *AudioCaptureSink) WriteEvent(ev Event) error {
	meta, ok := ev.Payload.(AudioChunkMeta)
	if !ok || meta.Format != SamplePCMS16LE {
		return nil
	}

	data := make([]int, len(ev.Binary)/2)
	for i := range data {
		data[i] = int(int16(uint16(ev.Binary[i*2]) | uint16(ev.Binary[i*2+1])<<8))
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: s.channels, SampleRate: s.sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	return s.enc.Write(buf)
}

// Close finalises the wav header and closes the file.
func (s *AudioCaptureSink) Close() error {
	if err := s.enc.Close(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
