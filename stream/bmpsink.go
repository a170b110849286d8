package stream

import (
	"image"
	"image/color"
	"os"
	"sync"

	"golang.org/x/image/bmp"

	"github.com/atarist-core/emucore/curated"
)

// VideoCaptureSink keeps the most recent published frame and can write it
// out as a BMP snapshot for support bundles. Like AudioCaptureSink it is
// attached alongside the transport sink; non-video events are ignored.
type VideoCaptureSink struct {
	mu     sync.Mutex
	latest VideoFrameMeta
	pixels []byte
}

// WriteEvent retains the frame as the latest snapshot candidate.
func (s *VideoCaptureSink) WriteEvent(ev Event) error {
	meta, ok := ev.Payload.(VideoFrameMeta)
	if !ok || meta.PixelFormat != PixelRGB565 {
		return nil
	}

	s.mu.Lock()
	s.latest = meta
	s.pixels = append(s.pixels[:0], ev.Binary...)
	s.mu.Unlock()
	return nil
}

// Snapshot writes the most recently captured frame to path as a BMP.
func (s *VideoCaptureSink) Snapshot(path string) error {
	s.mu.Lock()
	meta := s.latest
	pixels := append([]byte(nil), s.pixels...)
	s.mu.Unlock()

	if meta.FrameID == 0 {
		return curated.New(curated.CategoryStream, curated.CodeInternalError, false,
			"video capture: no frame seen yet")
	}

	img := image.NewRGBA(image.Rect(0, 0, meta.Width, meta.Height))
	for y := 0; y < meta.Height; y++ {
		for x := 0; x < meta.Width; x++ {
			i := (y*meta.Width + x) * 2
			p := uint16(pixels[i])<<8 | uint16(pixels[i+1])
			img.SetRGBA(x, y, rgb565ToRGBA(p))
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return curated.New(curated.CategoryStream, curated.CodeInternalError, false,
			"video capture: %v", err)
	}
	defer f.Close()
	return bmp.Encode(f, img)
}

func rgb565ToRGBA(p uint16) color.RGBA {
	r := uint8(p>>11) & 0x1F
	g := uint8(p>>5) & 0x3F
	b := uint8(p) & 0x1F
	return color.RGBA{
		R: r<<3 | r>>2,
		G: g<<2 | g>>4,
		B: b<<3 | b>>2,
		A: 0xFF,
	}
}
