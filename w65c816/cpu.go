// Package w65c816 adapts the alttpo 65C816 core to the pin-level CPU
// contract the emulator drives. The core executes against its own bus type,
// so the adapter attaches a single pass-through device that forwards every
// access to the system bus it was built for.
package w65c816

import (
	"fmt"

	"github.com/alttpo/snes/emulator/bus"
	"github.com/alttpo/snes/emulator/cpu65c816"

	"github.com/sanoemu/sano/sano"
)

// Interrupt vector locations read through the system bus. The cartridge
// mirrors them out of ROM.
const (
	nmiVector = 0x00FFEA
	irqVector = 0x00FFEE
)

// CPU wraps one cpu65c816 core plus its pin state.
type CPU struct {
	core *cpu65c816.CPU
	abus *bus.Bus
	sys  *sano.Bus

	res bool
	rdy bool

	irqPending bool
	nmiPending bool
	irqLevel   bool
	nmiLevel   bool
}

// New builds a core whose whole 24-bit address space is serviced by the
// given system bus.
func New(sys *sano.Bus) (*CPU, error) {
	abus, err := bus.NewWithSizeHint(1)
	if err != nil {
		return nil, fmt.Errorf("w65c816: create bus: %w", err)
	}
	if err := abus.Attach(&busBridge{sys: sys}, "system", 0x000000, 0xFFFFFF); err != nil {
		return nil, fmt.Errorf("w65c816: attach system bus: %w", err)
	}
	core, err := cpu65c816.New(abus)
	if err != nil {
		return nil, fmt.Errorf("w65c816: create core: %w", err)
	}
	return &CPU{core: core, abus: abus, sys: sys, res: true, rdy: true}, nil
}

// SetRESPin holds or releases the CPU. Releasing resets the core, which
// fetches the reset vector through the bus.
func (c *CPU) SetRESPin(asserted bool) {
	if c.res && !asserted {
		c.core.Reset()
	}
	c.res = asserted
}

// SetRDYPin pauses the CPU while deasserted.
func (c *CPU) SetRDYPin(ready bool) {
	c.rdy = ready
}

// SetIRQPin asserts or deasserts the IRQ line. A rising edge latches a
// pending interrupt that is serviced before the next instruction.
func (c *CPU) SetIRQPin(asserted bool) {
	if asserted && !c.irqLevel {
		c.irqPending = true
	}
	c.irqLevel = asserted
}

// SetNMIPin asserts or deasserts the NMI line; rising edges latch.
func (c *CPU) SetNMIPin(asserted bool) {
	if asserted && !c.nmiLevel {
		c.nmiPending = true
	}
	c.nmiLevel = asserted
}

// SetProgramAddress forces the program counter.
func (c *CPU) SetProgramAddress(addr sano.Address) {
	c.core.RK = addr.Bank
	c.core.PC = addr.Offset
}

// ExecuteNextInstruction services any pending interrupt, runs one
// instruction and returns its cycle count. Held in RES or with RDY low the
// CPU consumes a single idle cycle.
//
// Interrupt entry is simplified: the core does not expose interrupt pins, so
// the adapter vectors directly through the table in bank 0. SANo handlers
// return with a plain jump rather than RTI.
func (c *CPU) ExecuteNextInstruction() int {
	if c.res || !c.rdy {
		return 1
	}
	if c.nmiPending {
		c.nmiPending = false
		c.vector(nmiVector)
	} else if c.irqPending {
		c.irqPending = false
		c.vector(irqVector)
	}
	cycles, _ := c.core.Step()
	return int(cycles)
}

func (c *CPU) vector(at uint32) {
	target := c.sys.Read16(sano.AddressFromFlat(at))
	c.core.RK = 0
	c.core.PC = target
}

// ProgramAddress returns the current program counter.
func (c *CPU) ProgramAddress() sano.Address {
	return sano.NewAddress(c.core.RK, c.core.PC)
}

// busBridge satisfies the core bus's device interface by forwarding to the
// system bus.
type busBridge struct {
	sys *sano.Bus
}

func (b *busBridge) Read(address uint32) byte {
	return b.sys.Read(sano.AddressFromFlat(address))
}

func (b *busBridge) Write(address uint32, value byte) {
	b.sys.Write(sano.AddressFromFlat(address), value)
}

func (b *busBridge) Shutdown() {}

func (b *busBridge) Size() uint32 {
	return 0x1000000
}

func (b *busBridge) Clear() {}

func (b *busBridge) Dump(address uint32) []byte {
	return nil
}
