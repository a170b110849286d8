package stream

// SampleFormat names the wire encoding of an audio chunk payload.
type SampleFormat string

const (
	SamplePCMS16LE SampleFormat = "PCM_S16LE"
	SamplePCMF32LE SampleFormat = "PCM_F32LE"
)

// BytesPerSample returns the per-sample payload stride of the format.
func (f SampleFormat) BytesPerSample() int {
	if f == SamplePCMF32LE {
		return 4
	}
	return 2
}

// AudioChunkMeta is the JSON metadata published immediately before each
// binary chunk payload.
type AudioChunkMeta struct {
	Type          string       `json:"type"`
	SchemaVersion int          `json:"schema_version"`
	Channel       string       `json:"channel"`
	SessionID     string       `json:"session_id"`
	ChunkID       uint64       `json:"chunk_id"`
	TimestampUs   int64        `json:"timestamp_us"`
	SampleRate    int          `json:"sample_rate"`
	Channels      int          `json:"channels"`
	Format        SampleFormat `json:"format"`
	Frames        int          `json:"frames"`
	PayloadBytes  int          `json:"payload_bytes"`
}

// AudioPublisher wraps a Publisher with the chunk metadata/binary pairing
// contract.
type AudioPublisher struct {
	*Publisher
	sessionID  string
	sampleRate int
	channels   int
	chunkID    uint64
}

// NewAudioPublisher constructs an audio publisher for one subscription.
func NewAudioPublisher(sessionID string, sampleRate, channels, capacity int) *AudioPublisher {
	return &AudioPublisher{
		Publisher:  NewPublisher("audio", capacity),
		sessionID:  sessionID,
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// PublishChunk publishes one PCM chunk of the given frame count. The
// payload length must equal frames * channels * bytes-per-sample exactly;
// a mismatch fails fast.
func (a *AudioPublisher) PublishChunk(tsUs int64, tick, cycle uint64, format SampleFormat, frames int, payload []byte) error {
	want := frames * a.channels * format.BytesPerSample()
	if len(payload) != want {
		return internalStreamError("audio chunk of %d frames %s: payload is %d bytes, expected %d",
			frames, format, len(payload), want)
	}

	a.chunkID++
	meta := AudioChunkMeta{
		Type:          "audio_chunk_meta",
		SchemaVersion: 1,
		Channel:       "audio.metadata.v1",
		SessionID:     a.sessionID,
		ChunkID:       a.chunkID,
		TimestampUs:   tsUs,
		SampleRate:    a.sampleRate,
		Channels:      a.channels,
		Format:        format,
		Frames:        frames,
		PayloadBytes:  len(payload),
	}
	a.Publish(tsUs, tick, cycle, meta, payload)
	return nil
}
