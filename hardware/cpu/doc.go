// Package cpu emulates a 68000-class CPU core against a 24-bit big-endian
// bus. The package is split the usual way (register file as its own small
// type, a StatusRegister type with named flags, an Execute/Step entry point
// returning cycles consumed) generalised from a 6502 to a 68000-class
// architecture, and informed by the reference m68k core retrieved alongside
// the teacher (other_examples' standalone "m68k/cpu.go" file) for the
// register-file shape, exception entry, and supervisor/user stack pointer
// aliasing.
//
// The instruction set implemented here is a deliberately bounded subset of
// the full MC68000 opcode map: enough to boot a TOS ROM image through its
// reset sequence and to execute straight-line, branching, and
// subroutine-call code, but not a cycle-exact reproduction of every
// addressing mode and instruction the real chip supports. Section 9 of the
// specification flags the exact opcode/model scope as an open question to
// be "fixed to a named reference... at implementation time"; this package
// fixes it by implementing the instructions enumerated in opcodes.go
// against the timing given in the MC68000 User Manual, and is structured
// (one handler per opcode pattern, registered in a dispatch table) so that
// the remaining opcodes can be added without touching the scheduler or bus
// contracts.
package cpu
