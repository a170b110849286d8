package stream_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atarist-core/emucore/stream"
)

func TestAudioCaptureSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.wav")
	sink, err := stream.NewAudioCaptureSink(path, 44100, 1)
	require.NoError(t, err)

	a := stream.NewAudioPublisher("sess-1", 44100, 1, 8)
	frames := 441
	require.NoError(t, a.PublishChunk(1000, 1, 512, stream.SamplePCMS16LE, frames,
		make([]byte, frames*2)))

	ev, ok := a.Next()
	require.True(t, ok)
	require.NoError(t, sink.WriteEvent(ev))
	require.NoError(t, sink.Close())

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, fi.Size(), int64(44)) // RIFF header plus samples
}

func TestVideoCaptureSinkSnapshot(t *testing.T) {
	v := stream.NewVideoPublisher("sess-1", 8)
	payload := make([]byte, 320*200*2)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, v.PublishFrame(1000, 1, 512, 320, 200, stream.PixelRGB565, payload))

	var sink stream.VideoCaptureSink

	// snapshot before any frame is an error
	path := filepath.Join(t.TempDir(), "frame.bmp")
	assert.Error(t, sink.Snapshot(path))

	ev, ok := v.Next()
	require.True(t, ok)
	require.NoError(t, sink.WriteEvent(ev))
	require.NoError(t, sink.Snapshot(path))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, fi.Size(), int64(320*200)) // 24bpp BMP of the frame
}
