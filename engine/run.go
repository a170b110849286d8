package engine

import (
	"time"

	"github.com/go-audio/audio"

	"github.com/atarist-core/emucore/scheduler"
	"github.com/atarist-core/emucore/session"
	"github.com/atarist-core/emucore/slo"
	"github.com/atarist-core/emucore/stream"
)

// pausedPoll is how often a parked emulation goroutine checks for resume,
// stop, or queued commands.
const pausedPoll = 5 * time.Millisecond

// run is the emulation goroutine: the only writer of machine, scheduler,
// and chip state. It exits between ticks when the stop flag is set, and
// drains any still-queued commands on the way out so no caller is left
// waiting.
func (e *Engine) run() error {
	defer func() {
		for {
			select {
			case cmd := <-e.commands:
				cmd()
			default:
				return
			}
		}
	}()

	frame := newFrameAssembler(e)
	lastSampleUs := e.now()

	for !e.stopFlag.Load() {
		// commands commit at tick boundaries, never mid-tick
		select {
		case cmd := <-e.commands:
			cmd()
			continue
		default:
		}

		switch e.sess.State() {
		case session.StateRunning:
			if e.sched.Mode() == scheduler.ClockSingleStep {
				// continuous advancement is blocked; steps arrive as
				// commands
				e.waitCommand()
				continue
			}
			result, err := e.sched.Tick()
			if err != nil {
				e.fault(err)
				continue
			}
			frame.observe(result)

		case session.StatePaused, session.StateSuspended:
			e.waitCommand()

		default:
			// stopping/stopped/faulted: park until stop unwinds the
			// goroutine
			e.waitCommand()
		}

		if nowUs := e.now(); nowUs-lastSampleUs >= 250_000 {
			lastSampleUs = nowUs
			e.sampleSLO(nowUs)
		}
	}
	return nil
}

// waitCommand parks briefly, waking early for a queued command.
func (e *Engine) waitCommand() {
	select {
	case cmd := <-e.commands:
		cmd()
	case <-time.After(pausedPoll):
	}
}

// sampleSLO closes the sampler window if due and publishes alarms on the
// status stream.
func (e *Engine) sampleSLO(nowUs int64) {
	if e.video != nil {
		st := e.video.Stats()
		if st.EventSeq > 0 {
			pct := 100 * float64(st.DroppedEvents) / float64(st.EventSeq)
			e.sampler.Observe(slo.MetricDroppedFramePct, pct, nowUs)
		}
	}

	_, alarms := e.sampler.Sample(nowUs)
	for _, a := range alarms {
		e.publishStatus("alarm_"+string(a.State), a.Severity, "", string(a.Metric))
	}
}

// frameAssembler renders end-of-frame video and audio into publisher
// events and paces the loop against the wall clock.
type frameAssembler struct {
	e *Engine

	pixels []uint16
	packed []byte
	pcm    []byte
	buf    *audio.IntBuffer

	lastFrameUs int64
}

func newFrameAssembler(e *Engine) *frameAssembler {
	return &frameAssembler{e: e}
}

func (f *frameAssembler) observe(result scheduler.TickResult) {
	if !result.EndOfFrame {
		return
	}
	f.publishVideo(result)
	f.publishAudio(result)
	f.pace()
}

func (f *frameAssembler) publishVideo(result scheduler.TickResult) {
	e := f.e
	w, h, _ := e.machine.GLUE.Resolution().Dimensions()

	if len(f.pixels) != w*h {
		f.pixels = make([]uint16, w*h)
		f.packed = make([]byte, w*h*2)
	}

	for y := 0; y < h; y++ {
		e.machine.Shift.RenderScanline(y, f.pixels[y*w:(y+1)*w])
	}
	for i, p := range f.pixels {
		f.packed[i*2] = uint8(p >> 8)
		f.packed[i*2+1] = uint8(p)
	}

	if err := e.video.PublishFrame(result.EventTimestampUs, result.TickAfter, result.CycleAfter,
		w, h, stream.PixelRGB565, f.packed); err != nil {
		e.fault(err)
	}
}

func (f *frameAssembler) publishAudio(result scheduler.TickResult) {
	e := f.e
	frames := e.cfg.SampleRate / int(e.manifest.RegionClocks().FrameHz())

	if f.buf == nil || len(f.buf.Data) != frames {
		f.buf = &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: e.cfg.SampleRate},
			Data:           make([]int, frames),
			SourceBitDepth: 16,
		}
	}
	e.machine.PSG.RenderAudioChunk(frames, f.buf)

	if len(f.pcm) != frames*2 {
		f.pcm = make([]byte, frames*2)
	}
	for i, s := range f.buf.Data {
		f.pcm[i*2] = uint8(s)
		f.pcm[i*2+1] = uint8(s >> 8)
	}

	if err := e.audio.PublishChunk(result.EventTimestampUs, result.TickAfter, result.CycleAfter,
		stream.SamplePCMS16LE, frames, f.pcm); err != nil {
		e.fault(err)
	}
}

// pace sleeps the remainder of the frame period, scaled by the effective
// clock ratio, and feeds the measured jitter to the SLO sampler. It never
// sleeps when the loop is already behind.
func (f *frameAssembler) pace() {
	e := f.e
	nowUs := e.now()
	periodUs := int64(1_000_000 / e.manifest.RegionClocks().FrameHz())
	if e.sched.Mode() == scheduler.ClockSlowMotion {
		periodUs = int64(float64(periodUs) / e.sched.Ratio())
	}

	if f.lastFrameUs != 0 {
		elapsed := nowUs - f.lastFrameUs
		jitter := elapsed - periodUs
		if jitter < 0 {
			jitter = -jitter
		}
		e.sampler.Observe(slo.MetricJitterMs, float64(jitter)/1000, nowUs)

		if remaining := periodUs - elapsed; remaining > 0 {
			time.Sleep(time.Duration(remaining) * time.Microsecond)
		}
	}
	f.lastFrameUs = e.now()
}
