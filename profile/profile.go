// Package profile loads and validates machine profile manifests. A
// manifest is immutable for the lifetime of a session: it declares the
// machine's RAM size, region, scheduler rate and step order, the module
// set a snapshot's ABI map is checked against, and the region-dependent
// ROM selection. The lifecycle start guard refuses to start a session
// without a valid manifest.
package profile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/hardware/clocks"
)

// StepOrderKeys is the set of component keys a manifest's step_order may
// name, matching the machine's snapshottable component names.
var StepOrderKeys = []string{
	"bus", "cpu", "glue", "shifter", "mfp", "psg", "acia-keyboard", "acia-midi", "fdc",
}

// Scheduler is the manifest's scheduler block.
type Scheduler struct {
	TickHz    int      `toml:"tick_hz"`
	StepOrder []string `toml:"step_order"`
}

// Modules names the module implementation selected for each required
// capability. The strings are ABI identifiers ("m68000/1", "shifter/1",
// ...) recorded into snapshots for compatibility checking.
type Modules struct {
	CPU            string `toml:"cpu"`
	Video          string `toml:"video"`
	IO             string `toml:"io"`
	Audio          string `toml:"audio"`
	Storage        string `toml:"storage"`
	MachineProfile string `toml:"machine_profile"`
}

// Map flattens the module block into the name->ABI map recorded in
// snapshot headers.
func (m Modules) Map() map[string]string {
	return map[string]string{
		"cpu":             m.CPU,
		"video":           m.Video,
		"io":              m.IO,
		"audio":           m.Audio,
		"storage":         m.Storage,
		"machine_profile": m.MachineProfile,
	}
}

// Manifest is one machine profile document.
type Manifest struct {
	Name    string `toml:"name"`
	Machine string `toml:"machine"`
	RAMKB   int    `toml:"ram_kb"`
	Region  string `toml:"region"`

	Scheduler Scheduler `toml:"scheduler"`
	Modules   Modules   `toml:"modules"`

	// ROM maps region to the catalog ROM id to mount for it.
	ROM map[string]string `toml:"rom"`
}

// Load reads and validates a manifest from a TOML file.
func Load(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, curated.New(curated.CategoryEngine, curated.CodeMachineProfileNotFound, false,
			"profile: %v", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest's internal consistency. A manifest that
// fails validation is treated the same as a missing one.
func (m *Manifest) Validate() error {
	fail := func(format string, args ...any) error {
		return curated.New(curated.CategoryEngine, curated.CodeMachineProfileNotFound, false,
			"profile: "+fmt.Sprintf(format, args...)).WithDetail("profile", m.Name)
	}

	if m.Name == "" || m.Machine == "" {
		return fail("name and machine are required")
	}
	if m.RAMKB <= 0 || m.RAMKB > 4096 {
		return fail("ram_kb %d out of range", m.RAMKB)
	}
	switch strings.ToUpper(m.Region) {
	case "PAL", "NTSC":
	default:
		return fail("region %q must be PAL or NTSC", m.Region)
	}
	if m.Scheduler.TickHz <= 0 {
		return fail("scheduler.tick_hz must be positive")
	}
	if len(m.Scheduler.StepOrder) == 0 {
		return fail("scheduler.step_order is empty")
	}
	seen := map[string]bool{}
	for _, key := range m.Scheduler.StepOrder {
		if !slices.Contains(StepOrderKeys, key) {
			return fail("unknown step_order key %q", key)
		}
		if seen[key] {
			return fail("duplicate step_order key %q", key)
		}
		seen[key] = true
	}
	for name, abi := range m.Modules.Map() {
		if abi == "" {
			return fail("module %s has no ABI identifier", name)
		}
	}
	if m.ROMID() == "" {
		return fail("no ROM selection for region %s", m.Region)
	}
	return nil
}

// RegionClocks resolves the manifest's region string to the machine's
// timing constants.
func (m *Manifest) RegionClocks() clocks.Region {
	if strings.ToUpper(m.Region) == "NTSC" {
		return clocks.NTSC
	}
	return clocks.PAL
}

// ROMID returns the catalog ROM id selected for the manifest's region.
func (m *Manifest) ROMID() string {
	if id, ok := m.ROM[strings.ToLower(m.Region)]; ok {
		return id
	}
	return m.ROM[strings.ToUpper(m.Region)]
}

// RAMBytes returns the manifest's RAM size in bytes.
func (m *Manifest) RAMBytes() int { return m.RAMKB * 1024 }
