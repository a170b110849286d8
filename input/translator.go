package input

import (
	"sync"

	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/stream"
)

// HostEvent is one normalized event from the browser-side capture layer.
type HostEvent struct {
	DeviceType  string   `json:"device_type"`
	Code        string   `json:"code"`
	Modifiers   []string `json:"modifiers,omitempty"`
	Value       int      `json:"value"`
	TimestampUs int64    `json:"timestamp_us"`
}

// TranslatedEvent is the virtual event produced from an accepted host
// event.
type TranslatedEvent struct {
	EventSeq      uint64 `json:"event_seq"`
	TimestampUs   int64  `json:"timestamp_us"`
	Tick          uint64 `json:"tick"`
	Cycle         uint64 `json:"cycle"`
	VirtualTarget string `json:"virtual_target"`
	Value         int    `json:"value"`
	Pressed       bool   `json:"pressed"`
	Phase         string `json:"phase,omitempty"`
}

// ApplyResult reports the outcome of an active-mapping apply.
type ApplyResult struct {
	Result      string `json:"result"` // applied | no_op
	Revision    uint64 `json:"revision"`
	CutoverTick uint64 `json:"cutover_tick"`
}

// Diagnostics counts translation failures and sequencing violations. The
// counters only ever grow; they never rewrite published events.
type Diagnostics struct {
	DroppedEvents        uint64 `json:"dropped_events"`
	SequencingViolations uint64 `json:"sequencing_violations"`
}

type activeMapping struct {
	profile     *Profile
	cutoverTick uint64
}

// Translator maps host events to virtual events through each browser
// session's active mapping profile and publishes them on the
// input_translated stream.
type Translator struct {
	store    *Store
	policies *PolicyManager
	pub      *stream.Publisher

	mu     sync.Mutex
	active map[string]*activeMapping

	seq      uint64
	lastTs   int64
	lastTick uint64
	lastCyc  uint64

	diag Diagnostics
}

// NewTranslator wires the store, policy manager, and the
// input_translated publisher together.
func NewTranslator(store *Store, policies *PolicyManager, pub *stream.Publisher) *Translator {
	return &Translator{
		store:    store,
		policies: policies,
		pub:      pub,
		active:   make(map[string]*activeMapping),
	}
}

// Apply swaps the browser session's active mapping to the named profile.
// The swap is recorded against cutoverTick, the next tick boundary the
// caller has committed to. Re-applying the already-active revision is a
// no_op; a stale expected_revision is a conflict.
func (t *Translator) Apply(browserSession, machine, id string, expectedRevision, cutoverTick uint64) (ApplyResult, error) {
	p, err := t.store.Get(machine, id)
	if err != nil {
		return ApplyResult{}, err
	}

	if p.Revision != expectedRevision {
		return ApplyResult{}, curated.New(curated.CategoryInput, curated.CodeConflict, false,
			"input: expected revision %d, profile %s is at %d",
			expectedRevision, id, p.Revision).
			WithDetail("active_revision", p.Revision)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if cur, ok := t.active[browserSession]; ok &&
		cur.profile.MappingProfileID == id && cur.profile.Revision == p.Revision {
		return ApplyResult{Result: "no_op", Revision: p.Revision, CutoverTick: cur.cutoverTick}, nil
	}

	t.active[browserSession] = &activeMapping{profile: p, cutoverTick: cutoverTick}
	return ApplyResult{Result: "applied", Revision: p.Revision, CutoverTick: cutoverTick}, nil
}

// Active returns the browser session's active profile snapshot.
func (t *Translator) Active(browserSession string) (*Profile, uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.active[browserSession]
	if !ok {
		return nil, 0, curated.New(curated.CategoryInput, curated.CodeInputMappingNotFound, false,
			"input: no active mapping for browser session %q", browserSession)
	}
	return a.profile, a.cutoverTick, nil
}

// Translate validates eligibility, maps the host event through the active
// profile, allocates the next sequence number, and publishes the
// translated event. Ineligible or unmappable events increment the dropped
// counter and never allocate sequence numbers.
func (t *Translator) Translate(browserSession string, ev HostEvent, tsUs int64, tick, cycle uint64) (*TranslatedEvent, error) {
	pol, err := t.policies.Get(browserSession)
	if err != nil {
		return nil, err
	}

	// key-downs feed the escape detector before eligibility, so the
	// release works while capture is active; every key-down the detector
	// consumes is counted as dropped and never translated
	if ev.DeviceType == "keyboard" && ev.Value != 0 {
		if _, consumed, _ := t.policies.ObserveKey(browserSession, ev.Code, tsUs); consumed {
			t.dropped()
			return nil, nil
		}
	}

	if !pol.CaptureActive() {
		t.dropped()
		return nil, curated.New(curated.CategoryInput, curated.CodeInputPolicyInvalidState, false,
			"input: browser session %q is not capturing", browserSession).
			WithDetail("guard_id", curated.GuardClickToCapturePrefix+"04")
	}

	t.mu.Lock()
	a, ok := t.active[browserSession]
	t.mu.Unlock()
	if !ok {
		t.dropped()
		return nil, curated.New(curated.CategoryInput, curated.CodeInputMappingNotFound, false,
			"input: no active mapping for browser session %q", browserSession)
	}

	entry, ok := a.profile.Lookup(ev.DeviceType, ev.Code, ev.Modifiers)
	if !ok {
		t.dropped()
		return nil, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.checkSequencingLocked(tsUs, tick, cycle)

	t.seq++
	out := &TranslatedEvent{
		EventSeq:      t.seq,
		TimestampUs:   tsUs,
		Tick:          tick,
		Cycle:         cycle,
		VirtualTarget: entry.VirtualTarget,
		Value:         entry.Value,
		Pressed:       ev.Value != 0, // a zero host value is a release
		Phase:         entry.Phase,
	}
	if t.pub != nil {
		t.pub.Publish(tsUs, tick, cycle, *out, nil)
	}
	return out, nil
}

// checkSequencingLocked enforces the monotonicity checks: strictly
// increasing sequence numbers are guaranteed by construction, but
// timestamp and (tick, cycle) regressions are surfaced as violations on
// the diagnostics counters without touching already-published events.
func (t *Translator) checkSequencingLocked(tsUs int64, tick, cycle uint64) {
	if tsUs < t.lastTs {
		t.diag.SequencingViolations++
	}
	if tick < t.lastTick || (tick == t.lastTick && cycle < t.lastCyc) {
		t.diag.SequencingViolations++
	}
	t.lastTs = tsUs
	t.lastTick = tick
	t.lastCyc = cycle
}

func (t *Translator) dropped() {
	t.mu.Lock()
	t.diag.DroppedEvents++
	t.mu.Unlock()
}

// Diagnostics copies the translator's failure counters.
func (t *Translator) Diagnostics() Diagnostics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.diag
}
