package sano

import "github.com/golang/glog"

// CPLD2 register file, offsets from $400200. The window is wider than the
// timing registers alone: it also carries the renderer's inputs (effects and
// per-layer configuration) so every value the compositor consumes is
// bus-visible.
const (
	cpld2Base = 0x400200
	cpld2Size = 0x60

	// Timing registers.
	Cpld2RegMode        = 0x00 // bit 0: 0=240p, 1=480i
	Cpld2RegLayerEnable = 0x01 // bit per layer, bit 5 = sprites
	Cpld2RegRasterLine  = 0x02 // 16-bit, read-only
	Cpld2RegRasterX     = 0x04 // 16-bit, read-only
	Cpld2RegVBlank      = 0x06 // read-only
	Cpld2RegHBlank      = 0x08 // read-only
	Cpld2RegIRQClear    = 0x0A // write clears VBlank IRQ

	// Effect registers.
	Cpld2RegBrightness = 0x0C // 0-31, reset 31
	Cpld2RegTintR      = 0x0D // signed
	Cpld2RegTintG      = 0x0E // signed
	Cpld2RegTintB      = 0x0F // signed
	Cpld2RegMosaic     = 0x10 // block size - 1, 0 = off
	Cpld2RegWindow     = 0x11 // bit n blanks 80-pixel column band n

	// Per-layer configuration, 8 bytes per layer starting at 0x20:
	// scrollX lo/hi, scrollY lo/hi, control, priority, 2 reserved.
	cpld2LayerConfigBase   = 0x20
	cpld2LayerConfigStride = 8
)

// Raster timing constants (240p unless noted).
const (
	Cpld2PixelsPerLine = 857
	Cpld2Lines240p     = 262
	Cpld2Lines480i     = 525
	cpld2HBlankEnd     = 137
	cpld2VBlankLines   = 22
)

// LayerConfig is the decoded per-layer configuration the renderer consumes.
type LayerConfig struct {
	ScrollX  uint16
	ScrollY  uint16
	BPP      int  // 2, 4 or 8
	TileSize int  // 8 or 16
	MapSize  int  // 32 or 64 tiles square
	PalBank  byte // base palette bank
	Priority byte
}

// CPLD2Video is the video timing generator and VRAM arbiter. It tracks the
// raster position at the 13.5 MHz pixel clock, exposes H/V blanking, raises
// the VBlank IRQ on frame wrap, and handles the mailbox A boot copy into
// graphics RAM.
type CPLD2Video struct {
	interlaced bool
	rasterLine uint16
	rasterX    uint16
	inVBlank   bool
	inHBlank   bool

	vblankIRQPending bool

	// Raw backing store for the effect and layer registers; the timing
	// registers live in the fields above.
	regs [cpld2Size]byte

	graphicsRAM *RAM
	mailboxA    *Mailbox
	sink        EventSink
}

// NewCPLD2Video creates the video CPLD. The graphics RAM is the target of
// mailbox A boot copies.
func NewCPLD2Video(graphicsRAM *RAM, mailboxA *Mailbox, sink EventSink) *CPLD2Video {
	c := &CPLD2Video{graphicsRAM: graphicsRAM, mailboxA: mailboxA, sink: sink}
	c.Reset()
	return c
}

// Reset restores power-on state: raster at (0,0), both blanking flags set,
// brightness full.
func (c *CPLD2Video) Reset() {
	c.interlaced = false
	c.rasterLine = 0
	c.rasterX = 0
	c.inVBlank = true
	c.inHBlank = true
	c.vblankIRQPending = false
	for i := range c.regs {
		c.regs[i] = 0
	}
	c.regs[Cpld2RegBrightness] = 31
}

func (c *CPLD2Video) Decode(addr Address) (Address, bool) {
	flat := addr.Flat()
	if flat >= cpld2Base && flat < cpld2Base+cpld2Size {
		return addr, true
	}
	return Address{}, false
}

func (c *CPLD2Video) Read(addr Address) byte {
	return c.Register(byte(addr.Flat() - cpld2Base))
}

// Register reads a register by offset without going through the bus. The
// renderer polls per-scanline state this way.
func (c *CPLD2Video) Register(offset byte) byte {
	if int(offset) >= cpld2Size {
		return 0x00
	}
	switch offset {
	case Cpld2RegRasterLine:
		return byte(c.rasterLine)
	case Cpld2RegRasterLine + 1:
		return byte(c.rasterLine >> 8)
	case Cpld2RegRasterX:
		return byte(c.rasterX)
	case Cpld2RegRasterX + 1:
		return byte(c.rasterX >> 8)
	case Cpld2RegVBlank:
		if c.inVBlank {
			return 0x01
		}
		return 0x00
	case Cpld2RegHBlank:
		if c.inHBlank {
			return 0x01
		}
		return 0x00
	case Cpld2RegVBlank + 1, Cpld2RegHBlank + 1, Cpld2RegIRQClear:
		return 0x00
	}
	return c.regs[offset]
}

func (c *CPLD2Video) Store(addr Address, value byte) {
	offset := addr.Flat() - cpld2Base
	if offset >= cpld2Size {
		return
	}
	switch byte(offset) {
	case Cpld2RegMode:
		c.interlaced = value&0x01 != 0
		c.regs[Cpld2RegMode] = value
	case Cpld2RegRasterLine, Cpld2RegRasterLine + 1,
		Cpld2RegRasterX, Cpld2RegRasterX + 1,
		Cpld2RegVBlank, Cpld2RegVBlank + 1,
		Cpld2RegHBlank, Cpld2RegHBlank + 1:
		// Read-only timing state.
	case Cpld2RegIRQClear:
		if value != 0 {
			c.vblankIRQPending = false
		}
	default:
		c.regs[offset] = value
	}
}

// Tick advances the raster by one pixel clock. On frame wrap the VBlank IRQ
// latches and the sink is notified once until cleared via $40020A.
func (c *CPLD2Video) Tick() {
	c.rasterX++
	if c.rasterX >= Cpld2PixelsPerLine {
		c.rasterX = 0
		c.rasterLine++
		if c.rasterLine >= c.totalLines() {
			c.rasterLine = 0
			if !c.vblankIRQPending {
				c.vblankIRQPending = true
				if c.sink != nil {
					c.sink.Dispatch(Event{Kind: EventVBlankIRQ})
				}
			}
		}
	}
	c.updateBlanking()
}

func (c *CPLD2Video) totalLines() uint16 {
	if c.interlaced {
		return Cpld2Lines480i
	}
	return Cpld2Lines240p
}

func (c *CPLD2Video) updateBlanking() {
	c.inHBlank = c.rasterX <= cpld2HBlankEnd
	if c.interlaced {
		// Per-field blanking.
		c.inVBlank = c.rasterLine < cpld2VBlankLines ||
			(c.rasterLine >= Cpld2Lines240p && c.rasterLine < Cpld2Lines240p+cpld2VBlankLines)
	} else {
		c.inVBlank = c.rasterLine < cpld2VBlankLines
	}
}

// RasterLine returns the current scanline.
func (c *CPLD2Video) RasterLine() uint16 {
	return c.rasterLine
}

// RasterX returns the current pixel within the scanline.
func (c *CPLD2Video) RasterX() uint16 {
	return c.rasterX
}

// InVBlank reports whether the raster is in vertical blanking.
func (c *CPLD2Video) InVBlank() bool {
	return c.inVBlank
}

// InHBlank reports whether the raster is in horizontal blanking.
func (c *CPLD2Video) InHBlank() bool {
	return c.inHBlank
}

// VBlankIRQPending reports whether the VBlank IRQ is latched.
func (c *CPLD2Video) VBlankIRQPending() bool {
	return c.vblankIRQPending
}

// AllowGCPUVRAMAccess reports whether the graphics CPU may touch VRAM. The
// RAM device does not enforce this; the graphics program is expected to
// confine VRAM writes to blanking periods.
func (c *CPLD2Video) AllowGCPUVRAMAccess() bool {
	return c.inHBlank || c.inVBlank
}

// LayerConfigFor decodes the configuration registers of tile layer n
// (0=BG0, 1=BG1, 2=FG0, 3=FG1, 4=HUD).
func (c *CPLD2Video) LayerConfigFor(n int) LayerConfig {
	base := cpld2LayerConfigBase + n*cpld2LayerConfigStride
	control := c.regs[base+4]
	cfg := LayerConfig{
		ScrollX:  uint16(c.regs[base]) | uint16(c.regs[base+1])<<8,
		ScrollY:  uint16(c.regs[base+2]) | uint16(c.regs[base+3])<<8,
		PalBank:  control >> 4,
		Priority: c.regs[base+5],
	}
	switch control & 0x03 {
	case 0:
		cfg.BPP = 2
	case 1:
		cfg.BPP = 4
	default:
		cfg.BPP = 8
	}
	if control&0x04 != 0 {
		cfg.TileSize = 16
	} else {
		cfg.TileSize = 8
	}
	if control&0x08 != 0 {
		cfg.MapSize = 64
	} else {
		cfg.MapSize = 32
	}
	return cfg
}

// OnMailboxAWrite inspects mailbox A after a write. Command 0x01 is the boot
// copy into graphics RAM, after which the graphics CPU's reset line is
// released. Anything else is forwarded to the graphics CPU as a plain
// mailbox IRQ.
func (c *CPLD2Video) OnMailboxAWrite() {
	if c.mailboxA != nil && c.graphicsRAM != nil && c.mailboxA.Peek(0) == 0x01 {
		dest := uint32(c.mailboxA.Peek(1)) | uint32(c.mailboxA.Peek(2))<<8
		length := int(c.mailboxA.Peek(3)) | int(c.mailboxA.Peek(4))<<8
		glog.V(1).Infof("cpld2: boot command, %d bytes to VRAM $%04x", length, dest)
		for i := 0; i < length; i++ {
			c.graphicsRAM.StoreFlat(dest+uint32(i), c.mailboxA.Peek(5+i))
		}
		if c.sink != nil {
			c.sink.Dispatch(Event{Kind: EventReleaseGraphicsCPU})
		}
		return
	}
	if c.sink != nil {
		c.sink.Dispatch(Event{Kind: EventGraphicsIRQ})
	}
}
