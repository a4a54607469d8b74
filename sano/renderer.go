package sano

// Display dimensions.
const (
	Width  = 320
	Height = 240
)

// VRAM layout, flat addresses in bank 0 of the graphics RAM.
const (
	vramFramebuffer = 0x00000
	vramSpriteOAM   = 0x13000
	vramPalette     = 0x14000
	vramTileData    = 0x20000

	oamEntries      = 512
	oamEntrySize    = 8
	spritesPerLine  = 128
	spriteLayer     = 5
	tileLayerCount  = 5
	layerBufferSize = tileLayerCount + 1
)

var tilemapBases = [tileLayerCount]uint32{0x15000, 0x17000, 0x19000, 0x1B000, 0x1D000}

// lineBuffer holds one scanline of a layer before compositing: palette index,
// layer priority and alpha (0..16, 16 = opaque) per pixel.
type lineBuffer struct {
	color    [Width]byte
	priority [Width]byte
	alpha    [Width]byte
}

type sprite struct {
	x, y     uint16
	tile     byte
	attr     byte // [palBank:4|alpha:4]
	flags    byte // [size:2|vflip:1|hflip:1|rotate:1|enable:1]
	priority byte
}

func (s sprite) enabled() bool  { return s.flags&0x01 != 0 }
func (s sprite) rotate() bool   { return s.flags&0x02 != 0 }
func (s sprite) hflip() bool    { return s.flags&0x04 != 0 }
func (s sprite) vflip() bool    { return s.flags&0x08 != 0 }
func (s sprite) size() int      { return spriteSizes[(s.flags>>4)&0x03] }
func (s sprite) palBank() byte  { return s.attr >> 4 }
func (s sprite) alphaVal() byte { return s.attr & 0x0F }

var spriteSizes = [4]int{8, 16, 32, 64}

// VideoRenderer composites the five tile layers and the sprite layer into a
// 320x240 RGBA framebuffer, one scanline at a time, consulting CPLD2 for
// mode, layer and effect registers and CPLD3 for the per-scanline raster
// effects latched during the frame.
//
// Framebuffer words are packed 0xAABBGGRR so the in-memory byte order is
// R,G,B,A, which is what the GL upload path expects.
type VideoRenderer struct {
	vram  *RAM
	cpld2 *CPLD2Video
	cpld3 *CPLD3Raster

	framebuffer [Width * Height]uint32

	paletteRGBA  [256]uint32
	paletteDirty bool

	sprites     [oamEntries]sprite
	spriteDirty bool

	layers [layerBufferSize]lineBuffer

	// Raster scroll applied on each rendered line, kept for inspection.
	lineScroll [Height]int16
}

// NewVideoRenderer creates a renderer reading from the given graphics RAM.
func NewVideoRenderer(vram *RAM, cpld2 *CPLD2Video, cpld3 *CPLD3Raster) *VideoRenderer {
	r := &VideoRenderer{vram: vram, cpld2: cpld2, cpld3: cpld3}
	r.Reset()
	return r
}

// Reset blanks the framebuffer and installs a grayscale palette until the
// first cache rebuild.
func (r *VideoRenderer) Reset() {
	for i := range r.framebuffer {
		r.framebuffer[i] = 0xFF000000
	}
	for i := range r.paletteRGBA {
		v := uint32(i)
		r.paletteRGBA[i] = 0xFF000000 | v<<16 | v<<8 | v
	}
	r.paletteDirty = true
	r.spriteDirty = true
}

// MarkPaletteDirty schedules a palette cache rebuild before the next
// scanline is rendered.
func (r *VideoRenderer) MarkPaletteDirty() {
	r.paletteDirty = true
}

// MarkSpritesDirty schedules an OAM cache rebuild before the next scanline
// is rendered.
func (r *VideoRenderer) MarkSpritesDirty() {
	r.spriteDirty = true
}

// Framebuffer returns the composited RGBA framebuffer.
func (r *VideoRenderer) Framebuffer() *[Width * Height]uint32 {
	return &r.framebuffer
}

// LineScroll returns the raster scroll offset the compositor applied on the
// given line of the last rendered frame.
func (r *VideoRenderer) LineScroll(line int) int16 {
	if line < 0 || line >= Height {
		return 0
	}
	return r.lineScroll[line]
}

// RenderFrame renders all 240 active scanlines. The palette and OAM caches
// are refreshed once per frame to pick up VRAM writes made since the last
// one.
func (r *VideoRenderer) RenderFrame() {
	r.paletteDirty = true
	r.spriteDirty = true
	for line := 0; line < Height; line++ {
		r.RenderScanline(line)
	}
}

// RenderScanline renders one scanline into the framebuffer.
func (r *VideoRenderer) RenderScanline(line int) {
	if r.vram == nil || r.cpld2 == nil {
		return
	}
	if r.paletteDirty {
		r.updatePaletteCache()
		r.paletteDirty = false
	}

	effect := RasterEffect{}
	if r.cpld3 != nil {
		effect = r.cpld3.LineEffect(line)
	}
	r.lineScroll[line] = effect.ScrollOffset

	mode := r.cpld2.Register(Cpld2RegMode) & 0x03
	if mode == 0 {
		r.renderFramebufferMode(line)
		r.applyEffects(line)
		return
	}

	if r.spriteDirty {
		r.updateSpriteCache()
		r.spriteDirty = false
	}

	r.clearLineBuffers()

	layerEnable := r.cpld2.Register(Cpld2RegLayerEnable)
	for layer := 0; layer < tileLayerCount; layer++ {
		if layerEnable&(1<<layer) != 0 {
			r.renderTileLayer(line, layer, effect)
		}
	}
	if mode == 1 && layerEnable&0x20 != 0 {
		r.renderSpritesOnLine(line)
	}

	r.composite(line)
	r.applyEffects(line)
}

func (r *VideoRenderer) clearLineBuffers() {
	for i := range r.layers {
		buf := &r.layers[i]
		for x := 0; x < Width; x++ {
			buf.color[x] = 0
			buf.priority[x] = 0
			buf.alpha[x] = 16
		}
	}
}

func (r *VideoRenderer) readVRAM(flat uint32) byte {
	if flat >= uint32(r.vram.Size()) {
		return 0
	}
	return r.vram.ReadFlat(flat)
}

func (r *VideoRenderer) readVRAM16(flat uint32) uint16 {
	return uint16(r.readVRAM(flat)) | uint16(r.readVRAM(flat+1))<<8
}

func (r *VideoRenderer) updatePaletteCache() {
	for i := 0; i < 256; i++ {
		r.paletteRGBA[i] = RGB565ToRGBA8888(r.readVRAM16(vramPalette + uint32(i)*2))
	}
}

func (r *VideoRenderer) updateSpriteCache() {
	for i := 0; i < oamEntries; i++ {
		oam := vramSpriteOAM + uint32(i)*oamEntrySize
		r.sprites[i] = sprite{
			x:        r.readVRAM16(oam + 0),
			y:        r.readVRAM16(oam + 2),
			tile:     r.readVRAM(oam + 4),
			attr:     r.readVRAM(oam + 5),
			flags:    r.readVRAM(oam + 6),
			priority: r.readVRAM(oam + 7),
		}
	}
}

// renderFramebufferMode copies one row of 8bpp palette indices straight
// through the palette cache.
func (r *VideoRenderer) renderFramebufferMode(line int) {
	base := uint32(vramFramebuffer + line*Width)
	for x := 0; x < Width; x++ {
		r.framebuffer[line*Width+x] = r.paletteRGBA[r.readVRAM(base+uint32(x))]
	}
}

// renderTileLayer renders one scanline of one tile layer into its line
// buffer. The raster effect's scroll offset shifts the layer horizontally
// and its palette select, when set, overrides the tile palette bank.
func (r *VideoRenderer) renderTileLayer(line, layer int, effect RasterEffect) {
	cfg := r.cpld2.LayerConfigFor(layer)
	buf := &r.layers[layer]

	tileSize := cfg.TileSize
	worldY := (uint16(line) + cfg.ScrollY) & 0x1FF // wrap at 512
	tileY := int(worldY) / tileSize
	pixelY := int(worldY) % tileSize

	bytesPerTile := tileSize * tileSize
	switch cfg.BPP {
	case 4:
		bytesPerTile /= 2
	case 2:
		bytesPerTile /= 4
	}
	bytesPerRow := bytesPerTile / tileSize

	scrollX := int(cfg.ScrollX) + int(effect.ScrollOffset)
	for screenX := 0; screenX < Width; screenX++ {
		worldX := uint16(screenX+scrollX) & 0x1FF
		tileX := int(worldX) / tileSize
		pixelX := int(worldX) % tileSize

		entryAddr := tilemapBases[layer] + uint32(tileY*cfg.MapSize+tileX)*2
		entry := r.readVRAM16(entryAddr)

		tileNum := entry & 0x3FF
		hflip := entry&0x0400 != 0
		vflip := entry&0x0800 != 0
		palBank := byte(entry >> 12)
		if effect.PaletteSelect != 0 {
			palBank = effect.PaletteSelect & 0x0F
		}

		px := pixelX
		py := pixelY
		if hflip {
			px = tileSize - 1 - px
		}
		if vflip {
			py = tileSize - 1 - py
		}

		rowAddr := vramTileData + uint32(tileNum)*uint32(bytesPerTile) + uint32(py*bytesPerRow)
		var colorIndex byte
		switch cfg.BPP {
		case 2:
			b := r.readVRAM(rowAddr + uint32(px/4))
			colorIndex = (b >> ((3 - px%4) * 2)) & 0x03
			colorIndex |= palBank << 4
		case 4:
			b := r.readVRAM(rowAddr + uint32(px/2))
			if px&1 == 0 {
				colorIndex = b >> 4
			} else {
				colorIndex = b & 0x0F
			}
			colorIndex |= palBank << 4
		default: // 8bpp
			colorIndex = r.readVRAM(rowAddr + uint32(px))
		}

		// Palette index 0 is transparent.
		if colorIndex == 0 {
			continue
		}
		buf.color[screenX] = colorIndex
		buf.priority[screenX] = cfg.Priority
		buf.alpha[screenX] = 16
	}
}

// renderSpritesOnLine walks OAM in reverse, accepting at most 128 sprites on
// the scanline, writing only where the sprite's priority is not below what
// is already in the sprite line buffer.
func (r *VideoRenderer) renderSpritesOnLine(line int) {
	buf := &r.layers[spriteLayer]
	accepted := 0
	for i := oamEntries - 1; i >= 0 && accepted < spritesPerLine; i-- {
		spr := &r.sprites[i]
		if !spr.enabled() {
			continue
		}
		size := spr.size()
		if line < int(spr.y) || line >= int(spr.y)+size {
			continue
		}
		accepted++

		sy := line - int(spr.y)
		if spr.vflip() {
			sy = size - 1 - sy
		}
		tileAddr := vramTileData + uint32(spr.tile)*64 // 8x8 base tile, 8bpp

		for sx := 0; sx < size; sx++ {
			screenX := int(spr.x) + sx
			if screenX < 0 || screenX >= Width {
				continue
			}
			px := sx
			if spr.hflip() {
				px = size - 1 - px
			}
			colorIndex := r.readVRAM(tileAddr + uint32(sy%8)*8 + uint32(px%8))
			colorIndex = colorIndex&0x0F | spr.palBank()<<4
			if colorIndex&0x0F == 0 {
				continue
			}
			if spr.priority >= buf.priority[screenX] {
				buf.color[screenX] = colorIndex
				buf.priority[screenX] = spr.priority
				buf.alpha[screenX] = spr.alphaVal()
			}
		}
	}
}

// composite folds the six line buffers into the framebuffer. Layers are
// scanned in index order; a non-transparent pixel wins when its priority is
// at least the current winner's, so priority ties resolve to the higher
// layer index. Opaque pixels replace, partially transparent pixels blend
// against what is below.
func (r *VideoRenderer) composite(line int) {
	for x := 0; x < Width; x++ {
		rgba := r.paletteRGBA[0] // backdrop
		topPriority := byte(0)
		for layer := 0; layer < layerBufferSize; layer++ {
			color := r.layers[layer].color[x]
			if color == 0 {
				continue
			}
			priority := r.layers[layer].priority[x]
			if priority < topPriority {
				continue
			}
			alpha := r.layers[layer].alpha[x]
			if alpha >= 16 {
				rgba = r.paletteRGBA[color]
			} else if alpha > 0 {
				rgba = blendAlpha(r.paletteRGBA[color], rgba, alpha)
			}
			topPriority = priority
		}
		r.framebuffer[line*Width+x] = rgba
	}
}

// applyEffects applies brightness, tint, mosaic and the window mask to the
// finished line.
func (r *VideoRenderer) applyEffects(line int) {
	brightness := r.cpld2.Register(Cpld2RegBrightness)
	tintR := int8(r.cpld2.Register(Cpld2RegTintR))
	tintG := int8(r.cpld2.Register(Cpld2RegTintG))
	tintB := int8(r.cpld2.Register(Cpld2RegTintB))
	mosaic := r.cpld2.Register(Cpld2RegMosaic)
	window := r.cpld2.Register(Cpld2RegWindow)

	row := r.framebuffer[line*Width : (line+1)*Width]

	if brightness != 31 || tintR != 0 || tintG != 0 || tintB != 0 {
		for x := range row {
			c := row[x]
			if brightness != 31 {
				c = applyBrightness(c, brightness)
			}
			c = applyTint(c, tintR, tintG, tintB)
			row[x] = c
		}
	}

	if mosaic > 0 {
		block := int(mosaic) + 1
		for x := 0; x < Width; x += block {
			for i := 1; i < block && x+i < Width; i++ {
				row[x+i] = row[x]
			}
		}
	}

	if window != 0 {
		// Each bit blanks one 80-pixel column band.
		backdrop := r.paletteRGBA[0]
		for x := range row {
			if window&(1<<(x/80)) != 0 {
				row[x] = backdrop
			}
		}
	}
}

// RGB565ToRGBA8888 expands a 16-bit RGB565 color to a 0xAABBGGRR word,
// replicating the top bits into the low bits of each 8-bit component.
func RGB565ToRGBA8888(rgb565 uint16) uint32 {
	r5 := uint32(rgb565>>11) & 0x1F
	g6 := uint32(rgb565>>5) & 0x3F
	b5 := uint32(rgb565) & 0x1F

	r := r5<<3 | r5>>2
	g := g6<<2 | g6>>4
	b := b5<<3 | b5>>2

	return 0xFF000000 | b<<16 | g<<8 | r
}

// applyBrightness scales each component by brightness/31.
func applyBrightness(color uint32, brightness byte) uint32 {
	r := color & 0xFF
	g := color >> 8 & 0xFF
	b := color >> 16 & 0xFF
	a := color & 0xFF000000

	r = r * uint32(brightness) / 31
	g = g * uint32(brightness) / 31
	b = b * uint32(brightness) / 31

	return a | b<<16 | g<<8 | r
}

// applyTint adds a signed offset to each component, clamped to 0..255.
func applyTint(color uint32, tintR, tintG, tintB int8) uint32 {
	r := clampChannel(int(color&0xFF) + int(tintR))
	g := clampChannel(int(color>>8&0xFF) + int(tintG))
	b := clampChannel(int(color>>16&0xFF) + int(tintB))
	return color&0xFF000000 | b<<16 | g<<8 | r
}

func clampChannel(v int) uint32 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint32(v)
}

// blendAlpha mixes fg over bg with a 0..16 alpha, 16 being fully opaque.
func blendAlpha(fg, bg uint32, alpha byte) uint32 {
	a := uint32(alpha)
	r := ((fg&0xFF)*a + (bg&0xFF)*(16-a)) / 16
	g := ((fg>>8&0xFF)*a + (bg>>8&0xFF)*(16-a)) / 16
	b := ((fg>>16&0xFF)*a + (bg>>16&0xFF)*(16-a)) / 16
	return 0xFF000000 | b<<16 | g<<8 | r
}
