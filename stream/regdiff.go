package stream

import "strings"

// DiffMode selects whether register diffs are emitted per write event or
// coalesced per sampling interval.
type DiffMode string

const (
	DiffModeEvent    DiffMode = "event"
	DiffModeInterval DiffMode = "interval"
)

// DiffSelector filters which register writes a subscription observes.
// Empty slices match everything.
type DiffSelector struct {
	Components       []string
	Registers        []string
	RegisterPrefixes []string
	ChangedOnly      bool
	Mode             DiffMode
}

// RegisterDiff is the payload of one register-change event.
type RegisterDiff struct {
	Component     string `json:"component"`
	Register      string `json:"register"`
	OldValue      uint32 `json:"old_value"`
	NewValue      uint32 `json:"new_value"`
	ValueEncoding string `json:"value_encoding"`
	ValueBits     int    `json:"value_bits"`
	Tick          uint64 `json:"tick"`
	Cycle         uint64 `json:"cycle"`
}

// RegisterDiffPublisher emits register-change events that pass the
// subscription's selector.
type RegisterDiffPublisher struct {
	*Publisher
	selector DiffSelector
}

// NewRegisterDiffPublisher constructs a register-diff publisher with the
// given selector.
func NewRegisterDiffPublisher(selector DiffSelector, capacity int) *RegisterDiffPublisher {
	if selector.Mode == "" {
		selector.Mode = DiffModeEvent
	}
	return &RegisterDiffPublisher{
		Publisher: NewPublisher("register_diff", capacity),
		selector:  selector,
	}
}

// SetSelector replaces the subscription's filter. The transport applies
// this on a set_filter control message.
func (p *RegisterDiffPublisher) SetSelector(s DiffSelector) {
	if s.Mode == "" {
		s.Mode = DiffModeEvent
	}
	p.selector = s
}

func matchOne(value string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == value {
			return true
		}
	}
	return false
}

func (p *RegisterDiffPublisher) matches(d RegisterDiff) bool {
	if p.selector.ChangedOnly && d.OldValue == d.NewValue {
		return false
	}
	if !matchOne(d.Component, p.selector.Components) {
		return false
	}
	if len(p.selector.Registers) > 0 || len(p.selector.RegisterPrefixes) > 0 {
		if matchOne(d.Register, p.selector.Registers) && len(p.selector.Registers) > 0 {
			return true
		}
		for _, prefix := range p.selector.RegisterPrefixes {
			if strings.HasPrefix(d.Register, prefix) {
				return true
			}
		}
		return false
	}
	return true
}

// Observe publishes the diff if it passes the selector, returning whether
// it was published. Suppressed diffs allocate no sequence number.
func (p *RegisterDiffPublisher) Observe(tsUs int64, d RegisterDiff) bool {
	if !p.matches(d) {
		return false
	}
	p.Publish(tsUs, d.Tick, d.Cycle, d, nil)
	return true
}
