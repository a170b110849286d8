package profile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atarist-core/emucore/curated"
	"github.com/atarist-core/emucore/hardware/clocks"
	"github.com/atarist-core/emucore/profile"
)

const manifestTOML = `
name = "st_520_pal"
machine = "atari_st"
ram_kb = 512
region = "PAL"

[scheduler]
tick_hz = 15625
step_order = ["cpu", "glue", "shifter", "mfp", "psg", "acia-keyboard", "acia-midi", "fdc"]

[modules]
cpu = "m68000/1"
video = "shifter/1"
io = "mfp68901/1"
audio = "ym2149/1"
storage = "wd1772/1"
machine_profile = "atari_st/1"

[rom]
pal = "rom.tos.1.04.uk"
ntsc = "rom.tos.1.04.us"
`

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "st_520_pal.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	m, err := profile.Load(writeManifest(t, manifestTOML))
	require.NoError(t, err)

	assert.Equal(t, "atari_st", m.Machine)
	assert.Equal(t, 512*1024, m.RAMBytes())
	assert.Equal(t, clocks.PAL, m.RegionClocks())
	assert.Equal(t, "rom.tos.1.04.uk", m.ROMID())
	assert.Equal(t, "m68000/1", m.Modules.Map()["cpu"])
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*profile.Manifest)
	}{
		{"no machine", func(m *profile.Manifest) { m.Machine = "" }},
		{"bad region", func(m *profile.Manifest) { m.Region = "SECAM" }},
		{"zero ram", func(m *profile.Manifest) { m.RAMKB = 0 }},
		{"zero tick_hz", func(m *profile.Manifest) { m.Scheduler.TickHz = 0 }},
		{"empty step_order", func(m *profile.Manifest) { m.Scheduler.StepOrder = nil }},
		{"unknown step key", func(m *profile.Manifest) { m.Scheduler.StepOrder = []string{"tia"} }},
		{"duplicate step key", func(m *profile.Manifest) {
			m.Scheduler.StepOrder = []string{"cpu", "cpu"}
		}},
		{"empty module abi", func(m *profile.Manifest) { m.Modules.Audio = "" }},
		{"no rom for region", func(m *profile.Manifest) { m.ROM = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := profile.Load(writeManifest(t, manifestTOML))
			require.NoError(t, err)
			tt.mutate(m)
			err = m.Validate()
			require.Error(t, err)
			assert.Equal(t, curated.CodeMachineProfileNotFound, curated.CodeOf(err))
		})
	}
}

func TestBuiltin(t *testing.T) {
	m, ok := profile.Builtin("st_520_pal")
	require.True(t, ok)
	require.NoError(t, m.Validate())

	_, ok = profile.Builtin("falcon_030")
	assert.False(t, ok)

	assert.Contains(t, profile.BuiltinNames(), "st_1040_pal")
}
