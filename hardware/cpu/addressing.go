package cpu

// Effective address modes, as the 3-bit mode field of an instruction word.
const (
	modeDataDirect = iota
	modeAddrDirect
	modeAddrIndirect
	modeAddrPostinc
	modeAddrPredec
	modeAddrDisp
	modeAddrIndex // (d8,An,Xn) - not supported by this bounded core
	modeOther     // reg field selects abs.w/abs.l/immediate/PC-relative
)

const (
	otherAbsWord = iota
	otherAbsLong
	otherPCDisp
	otherPCIndex
	otherImmediate
)

func signExtendByte(v uint8) uint32  { return uint32(int32(int8(v))) }
func signExtendWord(v uint16) uint32 { return uint32(int32(int16(v))) }

// fetchWord reads the word at PC and advances PC by 2, the way the
// opcode decoder consumes instruction extension words.
func (c *CPU) fetchWord() uint16 {
	v, f := c.bus.ReadWord(c.reg.PC)
	if f != nil {
		c.lastFault = f
	}
	c.reg.PC += 2
	return v
}

func (c *CPU) fetchLong() uint32 {
	hi := c.fetchWord()
	lo := c.fetchWord()
	return uint32(hi)<<16 | uint32(lo)
}

// eaAddress resolves an effective address to a memory address for the
// modes that have one (indirect/postinc/predec/displacement/absolute); it
// is not meaningful for register-direct or immediate modes. ok is false for
// the indexed addressing modes this bounded core does not implement.
func (c *CPU) eaAddress(mode, reg uint16, size int) (addr uint32, ok bool) {
	switch mode {
	case modeAddrIndirect:
		return c.reg.A[reg], true
	case modeAddrPostinc:
		addr = c.reg.A[reg]
		inc := uint32(size)
		if reg == 7 && size == 1 {
			inc = 2 // A7 always moves in word steps
		}
		c.reg.A[reg] += inc
		return addr, true
	case modeAddrPredec:
		dec := uint32(size)
		if reg == 7 && size == 1 {
			dec = 2
		}
		c.reg.A[reg] -= dec
		return c.reg.A[reg], true
	case modeAddrDisp:
		disp := signExtendWord(c.fetchWord())
		return c.reg.A[reg] + disp, true
	case modeOther:
		switch reg {
		case otherAbsWord:
			return signExtendWord(c.fetchWord()), true
		case otherAbsLong:
			return c.fetchLong(), true
		}
	}
	return 0, false
}

// eaRead reads an operand of the given size (1, 2, or 4 bytes) from the
// addressing mode/register pair, consuming any extension words or
// immediate data from the instruction stream.
func (c *CPU) eaRead(mode, reg uint16, size int) (uint32, bool) {
	switch mode {
	case modeDataDirect:
		return maskSize(c.reg.D[reg], size), true
	case modeAddrDirect:
		return maskSize(c.reg.A[reg], size), true
	case modeOther:
		if reg == otherImmediate {
			switch size {
			case 1:
				return uint32(uint8(c.fetchWord())), true
			case 2:
				return uint32(c.fetchWord()), true
			default:
				return c.fetchLong(), true
			}
		}
	}

	addr, ok := c.eaAddress(mode, reg, size)
	if !ok {
		return 0, false
	}
	return c.readMem(addr, size)
}

func (c *CPU) readMem(addr uint32, size int) (uint32, bool) {
	switch size {
	case 1:
		v, f := c.bus.ReadByte(addr)
		if f != nil {
			c.lastFault = f
			return 0, false
		}
		return uint32(v), true
	case 2:
		v, f := c.bus.ReadWord(addr)
		if f != nil {
			c.lastFault = f
			return 0, false
		}
		return uint32(v), true
	default:
		return c.read32(addr), true
	}
}

// eaWrite writes value (already masked to size) to the addressing
// mode/register pair.
func (c *CPU) eaWrite(mode, reg uint16, size int, value uint32) bool {
	switch mode {
	case modeDataDirect:
		c.reg.D[reg] = mergeSize(c.reg.D[reg], value, size)
		return true
	case modeAddrDirect:
		c.reg.A[reg] = signExtendToLong(value, size)
		return true
	}

	addr, ok := c.eaAddress(mode, reg, size)
	if !ok {
		return false
	}
	switch size {
	case 1:
		if f := c.bus.WriteByte(addr, uint8(value)); f != nil {
			c.lastFault = f
			return false
		}
	case 2:
		if f := c.bus.WriteWord(addr, uint16(value)); f != nil {
			c.lastFault = f
			return false
		}
	default:
		c.write32(addr, value)
	}
	return true
}

func maskSize(v uint32, size int) uint32 {
	switch size {
	case 1:
		return v & 0xFF
	case 2:
		return v & 0xFFFF
	default:
		return v
	}
}

func mergeSize(old, value uint32, size int) uint32 {
	switch size {
	case 1:
		return old&^0xFF | value&0xFF
	case 2:
		return old&^0xFFFF | value&0xFFFF
	default:
		return value
	}
}

func signExtendToLong(v uint32, size int) uint32 {
	switch size {
	case 1:
		return signExtendByte(uint8(v))
	case 2:
		return signExtendWord(uint16(v))
	default:
		return v
	}
}
