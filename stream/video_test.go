package stream_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/stream"
)

func TestVideoFramePairing(t *testing.T) {
	v := stream.NewVideoPublisher("sess-1", 8)

	payload := make([]byte, 320*200*2)
	require.NoError(t, v.PublishFrame(1000, 1, 512, 320, 200, stream.PixelRGB565, payload))

	ev, ok := v.Next()
	require.True(t, ok)
	meta := ev.Payload.(stream.VideoFrameMeta)
	assert.Equal(t, "video_frame_meta", meta.Type)
	assert.Equal(t, "video.metadata.v1", meta.Channel)
	assert.Equal(t, "sess-1", meta.SessionID)
	assert.Equal(t, uint64(1), meta.FrameID)
	assert.Equal(t, len(payload), meta.PayloadBytes)
	assert.Len(t, ev.Binary, meta.PayloadBytes)
}

func TestVideoPayloadMismatchFailsFast(t *testing.T) {
	v := stream.NewVideoPublisher("sess-1", 8)

	err := v.PublishFrame(1000, 1, 512, 320, 200, stream.PixelRGB565, make([]byte, 100))
	require.Error(t, err)
	assert.Equal(t, curated.CodeInternalError, curated.CodeOf(err))

	// nothing was published and no sequence number was consumed
	_, ok := v.Next()
	assert.False(t, ok)
	assert.Zero(t, v.Stats().EventSeq)
}

func TestAudioChunkPairing(t *testing.T) {
	a := stream.NewAudioPublisher("sess-1", 44100, 2, 8)

	frames := 441
	payload := make([]byte, frames*2*2)
	require.NoError(t, a.PublishChunk(1000, 1, 512, stream.SamplePCMS16LE, frames, payload))

	ev, ok := a.Next()
	require.True(t, ok)
	meta := ev.Payload.(stream.AudioChunkMeta)
	assert.Equal(t, "audio_chunk_meta", meta.Type)
	assert.Equal(t, 44100, meta.SampleRate)
	assert.Equal(t, 2, meta.Channels)
	assert.Equal(t, frames, meta.Frames)
	assert.Equal(t, len(payload), meta.PayloadBytes)
}

func TestAudioPayloadMismatchFailsFast(t *testing.T) {
	a := stream.NewAudioPublisher("sess-1", 44100, 2, 8)
	err := a.PublishChunk(1000, 1, 512, stream.SamplePCMF32LE, 100, make([]byte, 100))
	require.Error(t, err)
	assert.Equal(t, curated.CodeInternalError, curated.CodeOf(err))
}
