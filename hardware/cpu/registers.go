package cpu

// Registers is the programmer-visible register file of the 68000-class
// core: eight 32-bit data registers, eight 32-bit address registers (A7
// aliases USP/SSP depending on the supervisor bit), a 32-bit program
// counter, and the status register.
//
// Unlike a bit-array register representation (a fit for a 6502 emulator
// built around 8-bit arithmetic), this register file is kept as plain
// fixed-width integers: the 68000 is a 32-bit-internal machine and every
// arithmetic instruction already needs native overflow/carry detection, so
// a bit-array representation would only add overhead with no clarity
// benefit.
type Registers struct {
	D [8]uint32
	A [8]uint32

	PC uint32
	SR StatusRegister

	// USP and SSP shadow the user/supervisor stack pointer that is not
	// currently active in A[7].
	USP uint32
	SSP uint32
}

// ActiveA7 returns the value that A[7] should read as, given the current
// supervisor bit: this is always kept in sync by SetSupervisor, but is
// exposed for state inspection and snapshotting.
func (r *Registers) ActiveA7() uint32 {
	return r.A[7]
}

// SetSupervisor transitions between user and supervisor mode, swapping the
// active A[7] with the shadow stack pointer exactly once, the same way the
// reference m68k core's setSR does it.
func (r *Registers) SetSupervisor(supervisor bool) {
	was := r.SR.Supervisor
	if was == supervisor {
		r.SR.Supervisor = supervisor
		return
	}

	if was && !supervisor {
		r.SSP = r.A[7]
		r.A[7] = r.USP
	} else if !was && supervisor {
		r.USP = r.A[7]
		r.A[7] = r.SSP
	}
	r.SR.Supervisor = supervisor
}
