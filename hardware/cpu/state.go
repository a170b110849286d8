package cpu

// State is the serialisable run state of the CPU core, used by inspection
// endpoints (C8) and the snapshot engine (C7) to capture and restore a
// session's CPU without reaching into unexported fields.
type State struct {
	Registers  Registers
	Halted     bool
	Stopped    bool
	PendingIRQ uint8
	LastOpcode uint16
	InstrCount uint64
}
