package sano

// CPU is the contract the emulator requires from a 65C816 core. The core
// itself is an external component; w65c816 adapts one, and tests substitute
// scripted stubs.
//
// ExecuteNextInstruction runs one instruction through the core's bus and
// returns the number of clock cycles it consumed. A CPU that is held in RES
// or has RDY deasserted executes nothing and consumes one idle cycle, so the
// caller's cycle budget still drains.
type CPU interface {
	SetRESPin(asserted bool)
	SetRDYPin(ready bool)
	SetIRQPin(asserted bool)
	SetNMIPin(asserted bool)

	// SetProgramAddress forces the program counter to the given bank and
	// offset.
	SetProgramAddress(addr Address)

	ExecuteNextInstruction() int
}
