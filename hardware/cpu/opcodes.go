package cpu

// handler executes the instruction named by opcode once it has been routed
// by decode; it has already been consumed from the instruction stream.
type handler func(c *CPU, opcode uint16)

// decode routes an opcode word to its handler and base cycle cost. It
// implements the bounded instruction subset documented in doc.go: enough to
// run TOS's reset sequence and straight-line/branching/subroutine code.
// Unrecognised opcodes return a nil handler, which the caller turns into an
// illegal-instruction exception.
func decode(opcode uint16) (handler, int) {
	switch {
	case opcode == 0x4E71:
		return opNOP, 4
	case opcode == 0x4E75:
		return opRTS, 16
	case opcode == 0x4E73:
		return opRTE, 20
	case opcode == 0x4E76:
		return opTRAPV, 4
	case opcode == 0x4E72:
		return opSTOP, 4
	case opcode&0xFFF0 == 0x4E40:
		return opTRAP, 34
	case opcode&0xF000 == 0x7000 && opcode&0x0100 == 0:
		return opMOVEQ, 4
	case opcode&0xF1C0 == 0x41C0:
		return opLEA, 4
	case opcode&0xFF00 == 0x4200:
		return opCLR, 8
	case opcode&0xF000 == 0x6000:
		return opBccFamily, 10
	case opcode&0xF0F8 == 0x50C8:
		return opDBcc, 10
	case opcode&0xF000 == 0x5000 && opcode&0x00C0 != 0x00C0:
		return opADDQSUBQ, 8
	case opcode == 0x027C:
		return opANDIToSR, 20
	case opcode == 0x007C:
		return opORIToSR, 20
	case opcode&0xFFC0 == 0x4E80:
		return opJSR, 16
	case opcode&0xFFC0 == 0x4EC0:
		return opJMP, 8
	case opcode&0xF000 == 0x1000 || opcode&0xF000 == 0x2000 || opcode&0xF000 == 0x3000:
		return opMOVE, 4
	}
	return nil, 4
}

func opNOP(c *CPU, _ uint16) {}

func opMOVEQ(c *CPU, opcode uint16) {
	reg := (opcode >> 9) & 7
	data := signExtendByte(uint8(opcode))
	c.reg.D[reg] = data
	c.reg.SR.SetNZ(data, 4)
	c.reg.SR.Overflow = false
	c.reg.SR.Carry = false
}

// opMOVE implements the general two-operand MOVE.b/w/l (opcode bits
// 00ssddd mmmsssmmm, size encoded 01=byte 11=word 10=long), covering the
// addressing-mode subset resolved by eaRead/eaWrite.
func opMOVE(c *CPU, opcode uint16) {
	var size int
	switch (opcode >> 12) & 3 {
	case 1:
		size = 1
	case 3:
		size = 2
	case 2:
		size = 4
	default:
		return
	}

	srcMode := (opcode >> 3) & 7
	srcReg := opcode & 7
	dstReg := (opcode >> 9) & 7
	dstMode := (opcode >> 6) & 7

	v, ok := c.eaRead(srcMode, srcReg, size)
	if !ok {
		c.raiseBusError()
		return
	}
	if dstMode != modeAddrDirect {
		c.reg.SR.SetNZ(signExtendToLong(v, size), size)
		c.reg.SR.Overflow = false
		c.reg.SR.Carry = false
	}
	if !c.eaWrite(dstMode, dstReg, size, v) {
		c.raiseBusError()
	}
}

func opLEA(c *CPU, opcode uint16) {
	mode := (opcode >> 3) & 7
	reg := opcode & 7
	dst := (opcode >> 9) & 7

	addr, ok := c.eaAddress(mode, reg, 4)
	if !ok {
		c.raiseException(vectorIllegalInstruction)
		return
	}
	c.reg.A[dst] = addr
}

func opCLR(c *CPU, opcode uint16) {
	size := sizeField(opcode)
	mode := (opcode >> 3) & 7
	reg := opcode & 7
	if !c.eaWrite(mode, reg, size, 0) {
		c.raiseBusError()
		return
	}
	c.reg.SR.Zero = true
	c.reg.SR.Negative = false
	c.reg.SR.Overflow = false
	c.reg.SR.Carry = false
}

func sizeField(opcode uint16) int {
	switch (opcode >> 6) & 3 {
	case 0:
		return 1
	case 1:
		return 2
	default:
		return 4
	}
}

// condition evaluates the 4-bit condition code field shared by Bcc and
// DBcc against the current status flags.
func (c *CPU) condition(cc uint16) bool {
	sr := c.reg.SR
	switch cc {
	case 0x0: // T
		return true
	case 0x1: // F
		return false
	case 0x2: // HI
		return !sr.Carry && !sr.Zero
	case 0x3: // LS
		return sr.Carry || sr.Zero
	case 0x4: // CC
		return !sr.Carry
	case 0x5: // CS
		return sr.Carry
	case 0x6: // NE
		return !sr.Zero
	case 0x7: // EQ
		return sr.Zero
	case 0x8: // VC
		return !sr.Overflow
	case 0x9: // VS
		return sr.Overflow
	case 0xA: // PL
		return !sr.Negative
	case 0xB: // MI
		return sr.Negative
	case 0xC: // GE
		return sr.Negative == sr.Overflow
	case 0xD: // LT
		return sr.Negative != sr.Overflow
	case 0xE: // GT
		return sr.Negative == sr.Overflow && !sr.Zero
	case 0xF: // LE
		return sr.Negative != sr.Overflow || sr.Zero
	}
	return false
}

func opBccFamily(c *CPU, opcode uint16) {
	cc := (opcode >> 8) & 0xF
	base := c.reg.PC
	var disp uint32
	if lo := uint8(opcode); lo != 0 {
		disp = signExtendByte(lo)
	} else {
		disp = signExtendWord(c.fetchWord())
	}

	switch cc {
	case 0x0: // BRA
		c.reg.PC = base + disp
	case 0x1: // BSR
		c.pushLong(c.reg.PC)
		c.reg.PC = base + disp
	default:
		if c.condition(cc) {
			c.reg.PC = base + disp
		}
	}
}

func opDBcc(c *CPU, opcode uint16) {
	cc := (opcode >> 8) & 0xF
	reg := opcode & 7
	disp := signExtendWord(c.fetchWord())
	base := c.reg.PC - 2

	if c.condition(cc) {
		return
	}
	count := int16(c.reg.D[reg])
	count--
	c.reg.D[reg] = mergeSize(c.reg.D[reg], uint32(uint16(count)), 2)
	if count != -1 {
		c.reg.PC = uint32(int32(base) + int32(disp))
	}
}

func opADDQSUBQ(c *CPU, opcode uint16) {
	data := (opcode >> 9) & 7
	if data == 0 {
		data = 8
	}
	size := sizeField(opcode)
	mode := (opcode >> 3) & 7
	reg := opcode & 7
	isSub := opcode&0x0100 != 0

	v, ok := c.eaRead(mode, reg, size)
	if !ok {
		c.raiseBusError()
		return
	}
	var result uint32
	if isSub {
		result = v - uint32(data)
	} else {
		result = v + uint32(data)
	}
	result = maskSize(result, size)
	if !c.eaWrite(mode, reg, size, result) {
		c.raiseBusError()
		return
	}
	if mode != modeAddrDirect {
		c.reg.SR.SetNZ(signExtendToLong(result, size), size)
	}
}

func opJMP(c *CPU, opcode uint16) {
	mode := (opcode >> 3) & 7
	reg := opcode & 7
	addr, ok := c.eaAddress(mode, reg, 4)
	if !ok {
		c.raiseException(vectorIllegalInstruction)
		return
	}
	c.reg.PC = addr
}

func opJSR(c *CPU, opcode uint16) {
	mode := (opcode >> 3) & 7
	reg := opcode & 7
	addr, ok := c.eaAddress(mode, reg, 4)
	if !ok {
		c.raiseException(vectorIllegalInstruction)
		return
	}
	c.pushLong(c.reg.PC)
	c.reg.PC = addr
}

func opRTS(c *CPU, _ uint16) {
	c.reg.PC = c.popLong()
}

func opRTE(c *CPU, _ uint16) {
	if !c.reg.SR.Supervisor {
		c.raiseException(vectorPrivilegeViolation)
		return
	}
	sr := c.popWord()
	pc := c.popLong()
	c.reg.SR = StatusFromUint16(sr)
	c.reg.SetSupervisor(c.reg.SR.Supervisor)
	c.reg.PC = pc
}

func opTRAP(c *CPU, opcode uint16) {
	c.triggerTrap(uint8(opcode & 0xF))
}

func opTRAPV(c *CPU, _ uint16) {
	if c.reg.SR.Overflow {
		c.raiseException(vectorTrapBase + 7)
	}
}

func opSTOP(c *CPU, _ uint16) {
	if !c.reg.SR.Supervisor {
		c.raiseException(vectorPrivilegeViolation)
		return
	}
	sr := c.fetchWord()
	c.reg.SR = StatusFromUint16(sr)
	c.stopped = true
}

func opANDIToSR(c *CPU, _ uint16) {
	if !c.reg.SR.Supervisor {
		c.raiseException(vectorPrivilegeViolation)
		return
	}
	mask := c.fetchWord()
	cur := c.reg.SR.ToUint16()
	c.reg.SR = StatusFromUint16(cur & mask)
	c.reg.SetSupervisor(c.reg.SR.Supervisor)
}

func opORIToSR(c *CPU, _ uint16) {
	if !c.reg.SR.Supervisor {
		c.raiseException(vectorPrivilegeViolation)
		return
	}
	mask := c.fetchWord()
	cur := c.reg.SR.ToUint16()
	c.reg.SR = StatusFromUint16(cur | mask)
	c.reg.SetSupervisor(c.reg.SR.Supervisor)
}
