package sano

// CPLD3 register file, offsets from $400300.
const (
	cpld3Base = 0x400300
	cpld3Size = 0x20

	cpld3TableEntries = 262
)

type cpld3Reg int

const (
	cpld3ScrollLo cpld3Reg = iota // $400300
	cpld3ScrollHi
	cpld3PaletteSelect // $400302
	cpld3IRQLineLo     // $400304
	cpld3IRQLineHi     // 9-bit, high byte masked to 1 bit
	cpld3IRQEnable     // $400306
	cpld3IRQStatus     // $400308, write-1-to-clear
	cpld3TableMode     // $400310
	cpld3TableAddrLo   // $400312
	cpld3TableAddrHi
	cpld3TableData   // $400314, 3-byte stride with auto-advance
	cpld3TableIndexLo // $400316, read-only
	cpld3TableIndexHi
)

func decodeCPLD3Reg(offset uint32) (cpld3Reg, bool) {
	switch offset {
	case 0x00:
		return cpld3ScrollLo, true
	case 0x01:
		return cpld3ScrollHi, true
	case 0x02:
		return cpld3PaletteSelect, true
	case 0x04:
		return cpld3IRQLineLo, true
	case 0x05:
		return cpld3IRQLineHi, true
	case 0x06:
		return cpld3IRQEnable, true
	case 0x08:
		return cpld3IRQStatus, true
	case 0x10:
		return cpld3TableMode, true
	case 0x12:
		return cpld3TableAddrLo, true
	case 0x13:
		return cpld3TableAddrHi, true
	case 0x14:
		return cpld3TableData, true
	case 0x16:
		return cpld3TableIndexLo, true
	case 0x17:
		return cpld3TableIndexHi, true
	}
	return 0, false
}

// RasterEffect is the per-scanline output of the raster engine: a horizontal
// scroll offset added to every tile layer and a palette bank override.
type RasterEffect struct {
	ScrollOffset  int16
	PaletteSelect byte
}

// CPLD3Raster is the raster effects engine. Once per scanline (HSync) it
// latches a scroll offset and palette select, either from its registers or by
// replaying a preloaded 262-entry table, and raises the split-line IRQ on the
// configured line. Latched values are kept per line so the frame-end renderer
// can replay them.
type CPLD3Raster struct {
	tableMode bool

	scrollReg  int16
	paletteReg byte

	current RasterEffect

	table      [cpld3TableEntries]RasterEffect
	tableIndex uint16

	tableAddr       uint16
	tableByteOffset int

	irqScanline uint16
	irqEnable   bool
	irqPending  bool

	// What the engine emitted on each HSync of the current frame.
	latched [cpld3TableEntries]RasterEffect

	sink EventSink
}

// NewCPLD3Raster creates the raster CPLD.
func NewCPLD3Raster(sink EventSink) *CPLD3Raster {
	c := &CPLD3Raster{sink: sink}
	c.Reset()
	return c
}

// Reset restores power-on state: register mode, zeroed table, IRQ disabled.
func (c *CPLD3Raster) Reset() {
	c.tableMode = false
	c.scrollReg = 0
	c.paletteReg = 0
	c.current = RasterEffect{}
	c.tableIndex = 0
	c.tableAddr = 0
	c.tableByteOffset = 0
	c.irqScanline = 0
	c.irqEnable = false
	c.irqPending = false
	for i := range c.table {
		c.table[i] = RasterEffect{}
		c.latched[i] = RasterEffect{}
	}
}

func (c *CPLD3Raster) Decode(addr Address) (Address, bool) {
	flat := addr.Flat()
	if flat >= cpld3Base && flat < cpld3Base+cpld3Size {
		return addr, true
	}
	return Address{}, false
}

func (c *CPLD3Raster) Read(addr Address) byte {
	reg, ok := decodeCPLD3Reg(addr.Flat() - cpld3Base)
	if !ok {
		return 0x00
	}
	switch reg {
	case cpld3ScrollLo:
		return byte(c.scrollReg)
	case cpld3ScrollHi:
		return byte(uint16(c.scrollReg) >> 8)
	case cpld3PaletteSelect:
		return c.paletteReg
	case cpld3IRQLineLo:
		return byte(c.irqScanline)
	case cpld3IRQLineHi:
		return byte(c.irqScanline >> 8)
	case cpld3IRQEnable:
		if c.irqEnable {
			return 0x01
		}
		return 0x00
	case cpld3IRQStatus:
		if c.irqPending {
			return 0x01
		}
		return 0x00
	case cpld3TableMode:
		if c.tableMode {
			return 0x01
		}
		return 0x00
	case cpld3TableAddrLo:
		return byte(c.tableAddr)
	case cpld3TableAddrHi:
		return byte(c.tableAddr >> 8)
	case cpld3TableIndexLo:
		return byte(c.tableIndex)
	case cpld3TableIndexHi:
		return byte(c.tableIndex >> 8)
	}
	return 0x00
}

func (c *CPLD3Raster) Store(addr Address, value byte) {
	reg, ok := decodeCPLD3Reg(addr.Flat() - cpld3Base)
	if !ok {
		return
	}
	switch reg {
	case cpld3ScrollLo:
		c.scrollReg = int16(uint16(c.scrollReg)&0xFF00 | uint16(value))
	case cpld3ScrollHi:
		c.scrollReg = int16(uint16(c.scrollReg)&0x00FF | uint16(value)<<8)
	case cpld3PaletteSelect:
		c.paletteReg = value
	case cpld3IRQLineLo:
		c.irqScanline = c.irqScanline&0xFF00 | uint16(value)
	case cpld3IRQLineHi:
		c.irqScanline = c.irqScanline&0x00FF | uint16(value&0x01)<<8
	case cpld3IRQEnable:
		c.irqEnable = value&0x01 != 0
	case cpld3IRQStatus:
		if value&0x01 != 0 {
			c.irqPending = false
		}
	case cpld3TableMode:
		c.tableMode = value&0x01 != 0
		if c.tableMode {
			c.tableIndex = 0
		}
	case cpld3TableAddrLo:
		c.tableAddr = c.tableAddr&0xFF00 | uint16(value)
		c.tableByteOffset = 0
	case cpld3TableAddrHi:
		c.tableAddr = c.tableAddr&0x00FF | uint16(value&0x01)<<8
		c.tableByteOffset = 0
	case cpld3TableData:
		c.storeTableByte(value)
	}
}

// storeTableByte fills one byte of the 3-byte (scroll lo, scroll hi, palette)
// entry at the table pointer, advancing the pointer after the third byte.
func (c *CPLD3Raster) storeTableByte(value byte) {
	if int(c.tableAddr) >= cpld3TableEntries {
		return
	}
	entry := &c.table[c.tableAddr]
	switch c.tableByteOffset {
	case 0:
		entry.ScrollOffset = int16(uint16(entry.ScrollOffset)&0xFF00 | uint16(value))
		c.tableByteOffset = 1
	case 1:
		entry.ScrollOffset = int16(uint16(entry.ScrollOffset)&0x00FF | uint16(value)<<8)
		c.tableByteOffset = 2
	case 2:
		entry.PaletteSelect = value
		c.tableByteOffset = 0
		c.tableAddr++
	}
}

// OnHSync latches the effect values for the given scanline and checks the
// split-line IRQ. In table mode the 262-entry table is replayed with wrap.
func (c *CPLD3Raster) OnHSync(currentLine int) {
	if c.tableMode {
		c.current = c.table[c.tableIndex]
		c.tableIndex++
		if c.tableIndex >= cpld3TableEntries {
			c.tableIndex = 0
		}
	} else {
		c.current = RasterEffect{ScrollOffset: c.scrollReg, PaletteSelect: c.paletteReg}
	}
	if currentLine >= 0 && currentLine < cpld3TableEntries {
		c.latched[currentLine] = c.current
	}
	if c.irqEnable && uint16(currentLine) == c.irqScanline && !c.irqPending {
		c.irqPending = true
		if c.sink != nil {
			c.sink.Dispatch(Event{Kind: EventSplitLineIRQ})
		}
	}
}

// Current returns the most recently latched effect values.
func (c *CPLD3Raster) Current() RasterEffect {
	return c.current
}

// LineEffect returns the effect values latched on the given scanline of the
// current frame. The renderer consults this when compositing at frame end.
func (c *CPLD3Raster) LineEffect(line int) RasterEffect {
	if line < 0 || line >= cpld3TableEntries {
		return RasterEffect{}
	}
	return c.latched[line]
}

// TableIndex returns the replay position within the scanline table.
func (c *CPLD3Raster) TableIndex() uint16 {
	return c.tableIndex
}

// IRQPending reports whether the split-line IRQ is latched.
func (c *CPLD3Raster) IRQPending() bool {
	return c.irqPending
}
