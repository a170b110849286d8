package media

// mini-fingerprints exist only to help the loader make a correct decision
// about how to mount the data. we don't need to know much about the data
// beyond its broad kind

// a TOS image starts either with a BRA.S/BRA.W to the reset entry point
// or, for raw reset-vector images, with a plausible SSP/PC vector pair
func fingerprintTOS(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	if data[0] == 0x60 { // BRA to the reset entry
		return true
	}
	ssp := uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	pc := uint32(data[4])<<24 | uint32(data[5])<<16 | uint32(data[6])<<8 | uint32(data[7])
	return ssp != 0 && ssp&1 == 0 && pc != 0 && pc&1 == 0
}

// raw floppy images are a whole number of 512-byte sectors and at least one
// 9-sector track
func fingerprintFloppy(data []byte) bool {
	if len(data) < sectorSize*9 {
		return false
	}
	return len(data)%sectorSize == 0
}

func fingerprint(data []byte) Kind {
	// documented TOS sizes (192KB/256KB/512KB) are sector multiples too, so
	// they are checked for a TOS header first; then floppy, where the size
	// test discriminates (a boot sector also begins with a 68000 branch);
	// then TOS at any size
	switch len(data) {
	case 192 * 1024, 256 * 1024, 512 * 1024:
		if fingerprintTOS(data) {
			return KindTOS
		}
	}
	if fingerprintFloppy(data) {
		return KindFloppy
	}
	if fingerprintTOS(data) {
		return KindTOS
	}
	return KindUnknown
}

// TOSVersion extracts the version word from a TOS image, eg. 0x0104 for
// TOS 1.04. Returns zero if the image is too short.
func TOSVersion(data []byte) uint16 {
	if len(data) < 4 {
		return 0
	}
	return uint16(data[2])<<8 | uint16(data[3])
}
