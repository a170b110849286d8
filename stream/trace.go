package stream

// AddressRange is an inclusive address interval. Start must be <= End.
type AddressRange struct {
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// Contains reports whether addr falls in the range.
func (r AddressRange) Contains(addr uint32) bool {
	return addr >= r.Start && addr <= r.End
}

// Valid reports whether the range is well formed.
func (r AddressRange) Valid() bool { return r.Start <= r.End }

// AccessType names the direction of a bus transaction.
type AccessType string

const (
	AccessRead  AccessType = "read"
	AccessWrite AccessType = "write"
)

// TraceFilter selects which bus/memory transactions a subscription
// observes. An event must match every populated field. Regions and
// MappedTargets apply only to memory traces.
type TraceFilter struct {
	AddressRanges []AddressRange
	AccessTypes   []AccessType
	Components    []string
	Level         string
	Regions       []string
	MappedTargets []string
}

// TraceEvent is one observed bus or memory transaction.
type TraceEvent struct {
	Address      uint32     `json:"address"`
	Access       AccessType `json:"access"`
	Value        uint32     `json:"value"`
	SizeBits     int        `json:"size_bits"`
	Component    string     `json:"component"`
	Level        string     `json:"level"`
	Region       string     `json:"region,omitempty"`
	MappedTarget string     `json:"mapped_target,omitempty"`
	Tick         uint64     `json:"tick"`
	Cycle        uint64     `json:"cycle"`
}

func (f TraceFilter) matches(ev TraceEvent) bool {
	if len(f.AddressRanges) > 0 {
		hit := false
		for _, r := range f.AddressRanges {
			if r.Contains(ev.Address) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if len(f.AccessTypes) > 0 {
		hit := false
		for _, a := range f.AccessTypes {
			if a == ev.Access {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if !matchOne(ev.Component, f.Components) {
		return false
	}
	if f.Level != "" && f.Level != ev.Level {
		return false
	}
	if !matchOne(ev.Region, f.Regions) {
		return false
	}
	if !matchOne(ev.MappedTarget, f.MappedTargets) {
		return false
	}
	return true
}

// TracePublisher emits bus/memory transaction events that pass the
// subscription's filter.
type TracePublisher struct {
	*Publisher
	filter TraceFilter
}

// NewTracePublisher constructs a trace publisher named "bus" or "memory"
// with the given filter.
func NewTracePublisher(name string, filter TraceFilter, capacity int) *TracePublisher {
	return &TracePublisher{
		Publisher: NewPublisher(name, capacity),
		filter:    filter,
	}
}

// SetFilter replaces the subscription's filter.
func (p *TracePublisher) SetFilter(f TraceFilter) { p.filter = f }

// Observe publishes the event if it passes the filter, returning whether
// it was published.
func (p *TracePublisher) Observe(tsUs int64, ev TraceEvent) bool {
	if !p.filter.matches(ev) {
		return false
	}
	p.Publish(tsUs, ev.Tick, ev.Cycle, ev, nil)
	return true
}
