package profile

// builtins are the profiles the engine knows without any manifest file on
// disk. A manifest loaded from disk with the same name replaces the
// builtin.
var builtins = map[string]*Manifest{
	"st_520_pal": {
		Name:    "st_520_pal",
		Machine: "atari_st",
		RAMKB:   512,
		Region:  "PAL",
		Scheduler: Scheduler{
			TickHz: 15625, // one scanline per tick: 8MHz / 512 cycles
			StepOrder: []string{
				"cpu", "glue", "shifter", "mfp", "psg", "acia-keyboard", "acia-midi", "fdc",
			},
		},
		Modules: Modules{
			CPU:            "m68000/1",
			Video:          "shifter/1",
			IO:             "mfp68901/1",
			Audio:          "ym2149/1",
			Storage:        "wd1772/1",
			MachineProfile: "atari_st/1",
		},
		ROM: map[string]string{
			"pal":  "rom.tos.1.04.uk",
			"ntsc": "rom.tos.1.04.us",
		},
	},
	"st_1040_pal": {
		Name:    "st_1040_pal",
		Machine: "atari_st",
		RAMKB:   1024,
		Region:  "PAL",
		Scheduler: Scheduler{
			TickHz: 15625,
			StepOrder: []string{
				"cpu", "glue", "shifter", "mfp", "psg", "acia-keyboard", "acia-midi", "fdc",
			},
		},
		Modules: Modules{
			CPU:            "m68000/1",
			Video:          "shifter/1",
			IO:             "mfp68901/1",
			Audio:          "ym2149/1",
			Storage:        "wd1772/1",
			MachineProfile: "atari_st/1",
		},
		ROM: map[string]string{
			"pal":  "rom.tos.1.04.uk",
			"ntsc": "rom.tos.1.04.us",
		},
	},
}

// Builtin returns the named built-in profile, or false if there is none.
func Builtin(name string) (*Manifest, bool) {
	m, ok := builtins[name]
	return m, ok
}

// BuiltinNames lists the built-in profile names.
func BuiltinNames() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	return out
}
