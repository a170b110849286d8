// Package input translates normalized host events into virtual machine
// events. It holds the persisted mapping-profile store, the per-browser
// capture policy state machine, and the translated-event emitter with its
// sequencing checks. Translation only ever happens through an immutable
// snapshot of the active profile; profile edits become visible atomically
// at a tick-boundary cutover.
package input

import "slices"

// SchemaVersion is the mapping-profile document version.
const SchemaVersion = 1

// Entry maps one host (device_type, code, modifiers) tuple to one virtual
// (target, value, phase) tuple.
type Entry struct {
	DeviceType    string   `json:"device_type"`
	Code          string   `json:"code"`
	Modifiers     []string `json:"modifiers,omitempty"`
	VirtualTarget string   `json:"virtual_target"`
	Value         int      `json:"value"`
	Phase         string   `json:"phase,omitempty"`
}

// matches reports whether the entry covers the host tuple. Modifier order
// is not significant.
func (e Entry) matches(deviceType, code string, modifiers []string) bool {
	if e.DeviceType != deviceType || e.Code != code {
		return false
	}
	if len(e.Modifiers) != len(modifiers) {
		return false
	}
	for _, m := range e.Modifiers {
		if !slices.Contains(modifiers, m) {
			return false
		}
	}
	return true
}

// Profile is one mapping-profile document. Profiles handed out by the
// store are immutable: mutation goes through Store.Update, which persists
// a fresh copy under a bumped revision.
type Profile struct {
	MappingProfileID string  `json:"mapping_profile_id"`
	SchemaVersion    int     `json:"schema_version"`
	Machine          string  `json:"machine"`
	Profile          string  `json:"profile"`
	Revision         uint64  `json:"revision"`
	UpdatedAtUs      int64   `json:"updated_at_us"`
	Entries          []Entry `json:"entries"`
}

// Lookup finds the first entry covering the host tuple.
func (p *Profile) Lookup(deviceType, code string, modifiers []string) (Entry, bool) {
	for _, e := range p.Entries {
		if e.matches(deviceType, code, modifiers) {
			return e, true
		}
	}
	return Entry{}, false
}

// entriesEqual compares effective maps: same entries in the same order.
func entriesEqual(a, b []Entry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].DeviceType != b[i].DeviceType ||
			a[i].Code != b[i].Code ||
			a[i].VirtualTarget != b[i].VirtualTarget ||
			a[i].Value != b[i].Value ||
			a[i].Phase != b[i].Phase ||
			!slices.Equal(a[i].Modifiers, b[i].Modifiers) {
			return false
		}
	}
	return true
}
