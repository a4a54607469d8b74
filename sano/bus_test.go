package sano

import "testing"

func TestBusOpenBusReads(t *testing.T) {
	bus := NewBus("test")
	if got := bus.Read(AddressFromFlat(0x123456)); got != 0xFF {
		t.Errorf("open bus read: got=0x%02x, want=0xff", got)
	}
	// Unmapped writes are dropped without panic.
	bus.Write(AddressFromFlat(0x123456), 0x42)
}

func TestBusRoutesToRAM(t *testing.T) {
	bus := NewBus("test")
	ram := NewRAM(0x1000, 0x100, "test RAM")
	bus.Register(ram)

	bus.Write(AddressFromFlat(0x1020), 0xAB)
	if got := bus.Read(AddressFromFlat(0x1020)); got != 0xAB {
		t.Errorf("read after write: got=0x%02x, want=0xab", got)
	}
	if got := bus.Read(AddressFromFlat(0x0FFF)); got != 0xFF {
		t.Errorf("read below region: got=0x%02x, want=0xff", got)
	}
	if got := bus.Read(AddressFromFlat(0x1100)); got != 0xFF {
		t.Errorf("read above region: got=0x%02x, want=0xff", got)
	}
}

func TestBusReadDeterminism(t *testing.T) {
	bus := NewBus("test")
	ram := NewRAM(0, 0x100, "test RAM")
	bus.Register(ram)
	bus.Write(AddressFromFlat(0x10), 0x5A)

	for i := 0; i < 10; i++ {
		if got := bus.Read(AddressFromFlat(0x10)); got != 0x5A {
			t.Fatalf("read %d: got=0x%02x, want=0x5a", i, got)
		}
	}
}

func TestBusOverlapResolvesByRegistrationOrder(t *testing.T) {
	bus := NewBus("test")
	first := NewRAM(0x2000, 0x100, "first")
	second := NewRAM(0x2000, 0x100, "second")
	bus.Register(first)
	bus.Register(second)

	bus.Write(AddressFromFlat(0x2000), 0x11)
	if got := first.ReadFlat(0x2000); got != 0x11 {
		t.Errorf("first device: got=0x%02x, want=0x11", got)
	}
	if got := second.ReadFlat(0x2000); got != 0x00 {
		t.Errorf("second device should be shadowed: got=0x%02x, want=0x00", got)
	}
}

func TestBus16BitHelpers(t *testing.T) {
	bus := NewBus("test")
	bus.Register(NewRAM(0, 0x100, "test RAM"))

	bus.Write16(AddressFromFlat(0x40), 0xBEEF)
	if got := bus.Read(AddressFromFlat(0x40)); got != 0xEF {
		t.Errorf("low byte: got=0x%02x, want=0xef", got)
	}
	if got := bus.Read(AddressFromFlat(0x41)); got != 0xBE {
		t.Errorf("high byte: got=0x%02x, want=0xbe", got)
	}
	if got := bus.Read16(AddressFromFlat(0x40)); got != 0xBEEF {
		t.Errorf("read16: got=0x%04x, want=0xbeef", got)
	}
}

func TestBusUnregister(t *testing.T) {
	bus := NewBus("test")
	ram := NewRAM(0, 0x100, "test RAM")
	bus.Register(ram)
	bus.Write(AddressFromFlat(0), 0x77)
	bus.Unregister(ram)
	if got := bus.Read(AddressFromFlat(0)); got != 0xFF {
		t.Errorf("read after unregister: got=0x%02x, want=0xff", got)
	}
}
