package sano

// BusDevice is anything that can claim and service byte accesses on a system
// bus: RAM, a mailbox, the cartridge, or a CPLD register file.
type BusDevice interface {
	// Decode reports whether the device claims the address. It must not
	// mutate device state.
	Decode(addr Address) (Address, bool)
	// Read returns the byte at a previously decoded address.
	Read(addr Address) byte
	// Store writes a byte to a previously decoded address.
	Store(addr Address, value byte)
}

// Bus routes byte accesses to registered devices. Devices are consulted in
// registration order and the first one whose Decode accepts the address owns
// the access. Overlapping regions are allowed and resolved by that order; the
// cartridge relies on this, being registered on all three buses.
type Bus struct {
	name    string
	devices []BusDevice
}

// NewBus creates an empty bus.
func NewBus(name string) *Bus {
	return &Bus{name: name}
}

// Register appends a device to the bus.
func (b *Bus) Register(d BusDevice) {
	b.devices = append(b.devices, d)
}

// RegisterFront registers a device ahead of everything already on the bus,
// so it wins overlapping decodes. The cartridge uses this: its bank-0 ROM
// mirror shadows main RAM at $008000-$00FFFF.
func (b *Bus) RegisterFront(d BusDevice) {
	b.devices = append([]BusDevice{d}, b.devices...)
}

// Unregister removes a device from the bus, keeping the order of the rest.
func (b *Bus) Unregister(d BusDevice) {
	for i, dev := range b.devices {
		if dev == d {
			b.devices = append(b.devices[:i], b.devices[i+1:]...)
			return
		}
	}
}

// Read returns the byte at addr, or 0xFF when no device claims it (open bus).
func (b *Bus) Read(addr Address) byte {
	for _, d := range b.devices {
		if decoded, ok := d.Decode(addr); ok {
			return d.Read(decoded)
		}
	}
	return 0xFF
}

// Write stores a byte at addr. Writes to unmapped space are dropped.
func (b *Bus) Write(addr Address, value byte) {
	for _, d := range b.devices {
		if decoded, ok := d.Decode(addr); ok {
			d.Store(decoded, value)
			return
		}
	}
}

// Read16 reads a little-endian 16-bit value.
func (b *Bus) Read16(addr Address) uint16 {
	lo := b.Read(addr)
	hi := b.Read(addr.Next(1))
	return uint16(hi)<<8 | uint16(lo)
}

// Write16 writes a little-endian 16-bit value.
func (b *Bus) Write16(addr Address, value uint16) {
	b.Write(addr, byte(value))
	b.Write(addr.Next(1), byte(value>>8))
}
