package stream

// PixelFormat names the wire encoding of a video frame payload.
type PixelFormat string

const (
	PixelRGB565   PixelFormat = "RGB565"
	PixelXRGB8888 PixelFormat = "XRGB8888"
	PixelRGB888   PixelFormat = "RGB888"
)

// BytesPerPixel returns the payload stride of the format.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelXRGB8888:
		return 4
	case PixelRGB888:
		return 3
	default:
		return 2
	}
}

// VideoFrameMeta is the JSON metadata published immediately before each
// binary frame payload.
type VideoFrameMeta struct {
	Type          string      `json:"type"`
	SchemaVersion int         `json:"schema_version"`
	Channel       string      `json:"channel"`
	SessionID     string      `json:"session_id"`
	FrameID       uint64      `json:"frame_id"`
	TimestampUs   int64       `json:"timestamp_us"`
	Width         int         `json:"width"`
	Height        int         `json:"height"`
	PixelFormat   PixelFormat `json:"pixel_format"`
	PayloadBytes  int         `json:"payload_bytes"`
}

// VideoPublisher wraps a Publisher with the frame metadata/binary pairing
// contract: every published frame is one (metadata, binary) event whose
// binary length must equal the declared payload_bytes exactly.
type VideoPublisher struct {
	*Publisher
	sessionID string
	frameID   uint64
}

// NewVideoPublisher constructs a video publisher for one subscription.
func NewVideoPublisher(sessionID string, capacity int) *VideoPublisher {
	return &VideoPublisher{
		Publisher: NewPublisher("video", capacity),
		sessionID: sessionID,
	}
}

// PublishFrame publishes one rendered frame. The payload length is checked
// against the frame geometry; a mismatch is an internal invariant
// violation and fails fast rather than emitting a malformed pair.
func (v *VideoPublisher) PublishFrame(tsUs int64, tick, cycle uint64, width, height int, format PixelFormat, payload []byte) error {
	want := width * height * format.BytesPerPixel()
	if len(payload) != want {
		return internalStreamError("video frame %dx%d %s: payload is %d bytes, expected %d",
			width, height, format, len(payload), want)
	}

	v.frameID++
	meta := VideoFrameMeta{
		Type:          "video_frame_meta",
		SchemaVersion: 1,
		Channel:       "video.metadata.v1",
		SessionID:     v.sessionID,
		FrameID:       v.frameID,
		TimestampUs:   tsUs,
		Width:         width,
		Height:        height,
		PixelFormat:   format,
		PayloadBytes:  len(payload),
	}
	v.Publish(tsUs, tick, cycle, meta, payload)
	return nil
}
