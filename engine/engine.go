// Package engine owns one emulation session end to end: it constructs the
// machine from a profile manifest, drives the scheduler loop on a single
// emulation goroutine, and exposes the lifecycle, debug-clock, snapshot,
// media, and input entry points that the transport collaborator calls.
//
// Every mutation of machine state happens on the emulation goroutine.
// External callers enqueue commands that are committed between ticks; the
// loop is never preempted mid-instruction and never blocks on a stream
// subscriber, a caller, or the filesystem.
package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/hardware"
	"github.com/atarist-core/emucore/input"
	"github.com/atarist-core/emucore/logger"
	"github.com/atarist-core/emucore/media"
	"github.com/atarist-core/emucore/profile"
	"github.com/atarist-core/emucore/scheduler"
	"github.com/atarist-core/emucore/session"
	"github.com/atarist-core/emucore/slo"
	"github.com/atarist-core/emucore/snapshot"
	"github.com/atarist-core/emucore/stream"
)

// Config carries the engine's construction parameters.
type Config struct {
	Root       string // data directory for snapshots and mapping profiles
	SessionID  string
	SampleRate int
	Now        func() int64 // microseconds since epoch; nil means wall clock
}

// Engine is the session context. All fields behind mu are mutated only at
// tick boundaries on the emulation goroutine, or while it is parked.
type Engine struct {
	cfg Config
	now func() int64

	sess *session.Session

	mu       sync.Mutex
	manifest *profile.Manifest
	machine  *hardware.Machine
	sched    *scheduler.Scheduler
	slots    media.Slots

	index *snapshot.Index
	store *input.Store

	policies   *input.PolicyManager
	translator *input.Translator

	video  *stream.VideoPublisher
	audio  *stream.AudioPublisher
	status *stream.Publisher

	sampler *slo.Sampler

	joysticks joystickState

	commands chan func()
	stopFlag atomic.Bool
	group    *errgroup.Group

	startedAtUs      int64
	lastTransitionUs int64
	lastError        string
}

// New constructs a stopped engine rooted at cfg.Root.
func New(cfg Config) (*Engine, error) {
	if cfg.Now == nil {
		cfg.Now = scheduler.WallClockMicros
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.SessionID == "" {
		cfg.SessionID = fmt.Sprintf("sess-%d", cfg.Now())
	}

	index, err := snapshot.LoadIndex(cfg.Root)
	if err != nil {
		return nil, err
	}
	store, err := input.NewStore(cfg.Root, cfg.Now)
	if err != nil {
		return nil, err
	}

	sampler, err := slo.New(slo.Config{SamplingIntervalMs: 250, WindowMs: 1000}, cfg.Now())
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		now:      cfg.Now,
		sess:     session.New(),
		index:    index,
		store:    store,
		status:   stream.NewPublisher("engine_status", stream.DefaultCapacity),
		sampler:  sampler,
		commands: make(chan func(), 64),
	}
	e.policies = input.NewPolicyManager(stream.NewPublisher("input_policy", stream.DefaultCapacity), cfg.Now)
	e.translator = input.NewTranslator(store, e.policies, stream.NewPublisher("input_translated", stream.DefaultCapacity))
	return e, nil
}

// Session exposes the lifecycle state machine for read access.
func (e *Engine) Session() *session.Session { return e.sess }

// Store exposes the mapping-profile store.
func (e *Engine) Store() *input.Store { return e.store }

// Policies exposes the capture-policy manager.
func (e *Engine) Policies() *input.PolicyManager { return e.policies }

// Translator exposes the input translator.
func (e *Engine) Translator() *input.Translator { return e.translator }

// Index exposes the snapshot index.
func (e *Engine) Index() *snapshot.Index { return e.index }

// Sampler exposes the SLO sampler.
func (e *Engine) Sampler() *slo.Sampler { return e.sampler }

// StatusStream exposes the engine status/health publisher.
func (e *Engine) StatusStream() *stream.Publisher { return e.status }

// VideoStream returns the video publisher, nil when no session runs.
func (e *Engine) VideoStream() *stream.VideoPublisher {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.video
}

// AudioStream returns the audio publisher, nil when no session runs.
func (e *Engine) AudioStream() *stream.AudioPublisher {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.audio
}

// StartRequest binds a machine/profile/ROM triple for Start.
type StartRequest struct {
	Machine     string
	Profile     string
	ROM         media.Descriptor
	BootFloppy  *media.Descriptor
	ProfilePath string // optional manifest file overriding the builtin
}

// Start builds the machine from the profile, mounts the ROM, arms the
// scheduler, and launches the emulation goroutine.
func (e *Engine) Start(req StartRequest) error {
	manifest, err := e.resolveManifest(req)
	if err != nil {
		return err
	}

	if err := e.sess.Start(session.Identity{
		Machine: req.Machine,
		Profile: manifest.Name,
		ROMID:   req.ROM.ID,
	}); err != nil {
		return err
	}

	rom, err := media.Load(req.ROM)
	if err != nil {
		e.sess.Stop()
		return err
	}

	e.mu.Lock()
	e.manifest = manifest
	e.slots = media.Slots{}
	if err := e.slots.AttachTOS(rom); err != nil {
		e.mu.Unlock()
		e.sess.Stop()
		return err
	}

	e.machine = hardware.New(hardware.Config{
		RAMSize:                 manifest.RAMBytes(),
		Region:                  manifest.RegionClocks(),
		SampleRate:              e.cfg.SampleRate,
		ROM:                     rom.Data,
		MaxFDCRequestsPerWindow: 8,
	})
	e.machine.Reset()
	e.sched = scheduler.New(e.machine, e.now)

	e.video = stream.NewVideoPublisher(e.cfg.SessionID, stream.DefaultCapacity)
	e.audio = stream.NewAudioPublisher(e.cfg.SessionID, e.cfg.SampleRate, 1, stream.DefaultCapacity)

	e.startedAtUs = e.now()
	e.lastTransitionUs = e.startedAtUs
	e.lastError = ""
	e.stopFlag.Store(false)
	e.mu.Unlock()

	e.group = &errgroup.Group{}
	e.group.Go(e.run)

	if req.BootFloppy != nil {
		if err := e.AttachFloppy(0, *req.BootFloppy, false); err != nil {
			e.Stop()
			return err
		}
	}

	logger.Logf(logger.Allow, "engine", "session %s started (%s/%s)",
		e.cfg.SessionID, req.Machine, manifest.Name)
	return nil
}

func (e *Engine) resolveManifest(req StartRequest) (*profile.Manifest, error) {
	if req.ProfilePath != "" {
		return profile.Load(req.ProfilePath)
	}
	m, ok := profile.Builtin(req.Profile)
	if !ok {
		return nil, curated.New(curated.CategoryEngine, curated.CodeMachineProfileNotFound, false,
			"engine: unknown profile %q", req.Profile).
			WithDetail("guard_id", curated.GuardStart02).
			WithDetail("endpoint", "start")
	}
	return m, nil
}

// do runs fn on the emulation goroutine at the next tick boundary and
// waits for it. With no loop running (stopped/faulted engine) fn runs
// inline, where the lifecycle guards reject it with the right code.
func (e *Engine) do(fn func() error) error {
	switch e.sess.State() {
	case session.StateRunning, session.StatePaused, session.StateSuspended:
		errc := make(chan error, 1)
		e.commands <- func() { errc <- fn() }
		return <-errc
	default:
		// no loop to commit on; the guard failure comes straight from
		// the lifecycle state machine
		return fn()
	}
}

// Pause commits at the next tick boundary.
func (e *Engine) Pause() error {
	return e.do(func() error {
		if err := e.sess.Pause(); err != nil {
			return err
		}
		e.markTransition()
		return nil
	})
}

// Resume transitions paused/suspended back to running or paused.
func (e *Engine) Resume(target session.State) error {
	return e.do(func() error {
		if err := e.sess.Resume(target); err != nil {
			return err
		}
		e.markTransition()
		return nil
	})
}

// Reset performs a warm reset of the machine and resumes running.
func (e *Engine) Reset() error {
	return e.do(func() error {
		if err := e.sess.Reset(); err != nil {
			return err
		}
		e.machine.Reset()
		e.markTransition()
		return nil
	})
}

// Stop halts the emulation goroutine, drains stream writers, and destroys
// the session.
func (e *Engine) Stop() error {
	if err := e.sess.Stop(); err != nil {
		return err
	}
	e.stopFlag.Store(true)

	if e.group != nil {
		e.group.Wait()
		e.group = nil
	}

	e.mu.Lock()
	if e.video != nil {
		e.video.Close()
	}
	if e.audio != nil {
		e.audio.Close()
	}
	e.machine = nil
	e.sched = nil
	e.manifest = nil
	e.slots = media.Slots{}
	e.markTransitionLocked()
	e.mu.Unlock()

	logger.Logf(logger.Allow, "engine", "session %s stopped", e.cfg.SessionID)
	return nil
}

func (e *Engine) markTransition() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.markTransitionLocked()
}

func (e *Engine) markTransitionLocked() {
	e.lastTransitionUs = e.now()
}

// fault records err, moves the session to faulted, and publishes a
// degraded status event. Only stop is accepted afterwards.
func (e *Engine) fault(err error) {
	e.sess.Fault()
	e.mu.Lock()
	e.lastError = err.Error()
	e.markTransitionLocked()
	e.mu.Unlock()

	logger.Logf(logger.Allow, "engine", "session faulted: %v", err)
	e.publishStatus("degraded", "error", curated.CodeOf(err), err.Error())
}

func (e *Engine) publishStatus(state, severity, code, message string) {
	ev := stream.StatusEvent{
		State:    state,
		Severity: severity,
		Code:     code,
		Message:  message,
	}
	// the delivery disclosure describes the status stream itself
	ev.Delivery = stream.DeliveryFor(e.status, stream.Event{}, 0)
	e.status.Publish(e.now(), e.tickCounter(), e.cycleCounter(), ev, nil)
}

func (e *Engine) tickCounter() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sched == nil {
		return 0
	}
	return e.sched.TickCounter()
}

func (e *Engine) cycleCounter() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sched == nil {
		return 0
	}
	return e.sched.CycleCounter()
}

// Status is the session status document served by the transport.
type Status struct {
	SessionID        string `json:"session_id"`
	Machine          string `json:"machine"`
	Profile          string `json:"profile"`
	LifecycleState   string `json:"lifecycle_state"`
	RunMode          string `json:"run_mode"`
	UptimeMs         int64  `json:"uptime_ms"`
	TickCounter      uint64 `json:"tick_counter"`
	CycleCounter     uint64 `json:"cycle_counter"`
	LastTransitionUs int64  `json:"last_transition_at_us"`
	LastError        string `json:"last_error,omitempty"`
	BusErrors        uint64 `json:"bus_errors"`
}

// Status reports the session's current counters and state.
func (e *Engine) Status() Status {
	state := e.sess.State()

	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{
		SessionID:        e.cfg.SessionID,
		LifecycleState:   string(state),
		LastTransitionUs: e.lastTransitionUs,
		LastError:        e.lastError,
	}
	if e.manifest != nil {
		st.Machine = e.manifest.Machine
		st.Profile = e.manifest.Name
	}
	if e.sched != nil {
		st.TickCounter = e.sched.TickCounter()
		st.CycleCounter = e.sched.CycleCounter()
		st.RunMode = e.runModeLocked(state)
		st.UptimeMs = (e.now() - e.startedAtUs) / 1000
	}
	if e.machine != nil {
		st.BusErrors = e.machine.Bus.BusErrors()
	}
	return st
}

func (e *Engine) runModeLocked(state session.State) string {
	if state == session.StatePaused {
		return "paused"
	}
	return e.sched.Mode().String()
}
