// Package hardware is the base package for the machine emulation. It and its
// sub-packages contain everything required for a headless emulation of the
// Atari ST family: the CPU core, the 24-bit bus and its address map, the
// chip models attached to that bus, and the clock constants shared by all of
// them.
//
// The Machine type (machine.go) is the root of the emulation: it owns the
// bus, the CPU, and every chip, and exposes the tick-driven Step entry point
// the scheduler (package scheduler) calls once per scheduling quantum.
package hardware

