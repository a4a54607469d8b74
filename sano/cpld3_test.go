package sano

import "testing"

func storeCPLD3(c *CPLD3Raster, offset uint32, value byte) {
	c.Store(AddressFromFlat(cpld3Base+offset), value)
}

func readCPLD3(c *CPLD3Raster, offset uint32) byte {
	return c.Read(AddressFromFlat(cpld3Base + offset))
}

func TestCPLD3RegisterMode(t *testing.T) {
	c := NewCPLD3Raster(nil)
	storeCPLD3(c, 0x00, 0x10) // scroll lo
	storeCPLD3(c, 0x01, 0xFF) // scroll hi -> -240
	storeCPLD3(c, 0x02, 0x03) // palette select

	c.OnHSync(0)
	eff := c.Current()
	if eff.ScrollOffset != -240 {
		t.Errorf("scroll offset: got=%d, want=-240", eff.ScrollOffset)
	}
	if eff.PaletteSelect != 0x03 {
		t.Errorf("palette select: got=%d, want=3", eff.PaletteSelect)
	}
}

func TestCPLD3TableLoadProtocol(t *testing.T) {
	c := NewCPLD3Raster(nil)
	storeCPLD3(c, 0x12, 5) // table pointer -> 5
	storeCPLD3(c, 0x14, 0x34)
	storeCPLD3(c, 0x14, 0x12)
	storeCPLD3(c, 0x14, 0x09)

	if c.table[5].ScrollOffset != 0x1234 {
		t.Errorf("entry 5 scroll: got=%d, want=%d", c.table[5].ScrollOffset, 0x1234)
	}
	if c.table[5].PaletteSelect != 9 {
		t.Errorf("entry 5 palette: got=%d, want=9", c.table[5].PaletteSelect)
	}
	// Pointer auto-advanced to 6 after the third byte.
	if got := uint16(readCPLD3(c, 0x12)) | uint16(readCPLD3(c, 0x13))<<8; got != 6 {
		t.Errorf("table pointer after entry: got=%d, want=6", got)
	}
}

func TestCPLD3TableAdvanceWraps(t *testing.T) {
	c := NewCPLD3Raster(nil)
	storeCPLD3(c, 0x10, 0x01) // table mode, resets index

	for line := 0; line < cpld3TableEntries; line++ {
		if got := c.TableIndex(); got != uint16(line) {
			t.Fatalf("table index before HSync %d: got=%d", line, got)
		}
		c.OnHSync(line)
	}
	if got := c.TableIndex(); got != 0 {
		t.Errorf("table index after 262 HSyncs: got=%d, want=0", got)
	}
}

func TestCPLD3TableReplay(t *testing.T) {
	c := NewCPLD3Raster(nil)
	// Entry 60 -> scroll 16, entry 120 -> scroll 32.
	storeCPLD3(c, 0x12, 60)
	storeCPLD3(c, 0x14, 16)
	storeCPLD3(c, 0x14, 0)
	storeCPLD3(c, 0x14, 0)
	storeCPLD3(c, 0x12, 120)
	storeCPLD3(c, 0x14, 32)
	storeCPLD3(c, 0x14, 0)
	storeCPLD3(c, 0x14, 0)
	storeCPLD3(c, 0x10, 0x01)

	for line := 0; line < 240; line++ {
		c.OnHSync(line)
	}
	for _, tc := range []struct {
		line int
		want int16
	}{{0, 0}, {60, 16}, {120, 32}, {200, 0}} {
		if got := c.LineEffect(tc.line).ScrollOffset; got != tc.want {
			t.Errorf("line %d scroll: got=%d, want=%d", tc.line, got, tc.want)
		}
	}
}

// Split-line IRQ at scanline 120: 120 HSyncs (lines 0-119) stay quiet, the
// 121st fires once, and it stays latched until cleared through $400308.
func TestCPLD3SplitLineIRQ(t *testing.T) {
	sink := &recordingSink{}
	c := NewCPLD3Raster(sink)
	storeCPLD3(c, 0x04, 120)
	storeCPLD3(c, 0x06, 0x01)

	for line := 0; line < 120; line++ {
		c.OnHSync(line)
	}
	if got := sink.count(EventSplitLineIRQ); got != 0 {
		t.Fatalf("IRQ before target line: got=%d events", got)
	}

	c.OnHSync(120)
	if got := sink.count(EventSplitLineIRQ); got != 1 {
		t.Errorf("IRQ at target line: got=%d events, want=1", got)
	}
	if !c.IRQPending() {
		t.Error("IRQ not latched")
	}

	// Still latched: repeat lines do not refire.
	c.OnHSync(120)
	if got := sink.count(EventSplitLineIRQ); got != 1 {
		t.Errorf("IRQ refired while pending: got=%d events", got)
	}

	storeCPLD3(c, 0x08, 0x01)
	if c.IRQPending() {
		t.Error("IRQ pending survived write-1-to-clear")
	}
	c.OnHSync(120)
	if got := sink.count(EventSplitLineIRQ); got != 2 {
		t.Errorf("IRQ after clear: got=%d events, want=2", got)
	}
}

func TestCPLD3IRQScanlineIsNineBits(t *testing.T) {
	c := NewCPLD3Raster(nil)
	storeCPLD3(c, 0x04, 0xFF)
	storeCPLD3(c, 0x05, 0xFF) // only bit 0 of the high byte sticks
	got := uint16(readCPLD3(c, 0x04)) | uint16(readCPLD3(c, 0x05))<<8
	if got != 0x1FF {
		t.Errorf("irq scanline: got=%d, want=%d", got, 0x1FF)
	}
}
