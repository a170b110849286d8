// Package chips collects the per-component models that plug into the
// memory bus (C3): glue, shifter, mfp, psg, acia, and fdc. Every chip has a
// Reset and implements bus.Handler so it can be registered directly into a
// bus.Map. glue, mfp, acia and fdc also take an IRQ sink (SetIRQSink) and
// have a Clock(cycles) entry point that Machine.Step drives with the exact
// cycle count the CPU reported for the instructions it just executed. psg
// renders audio on request and shifter renders scanlines on request; neither
// has a Clock.
//
// The register-file-as-struct shape is the same one the CPU core's
// Registers type uses: named fields over a chip's control/status/data
// registers rather than a raw byte slice, so the rest of the engine reads
// chip state through named accessors instead of re-deriving bit layouts.
package chips
