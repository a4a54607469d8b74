package sano

import (
	"fmt"

	"github.com/golang/glog"
)

// Cartridge memory map constants.
const (
	ROMWindowStart = 0xC00000
	ROMWindowEnd   = 0xFFFFFF
	BankRegister   = 0x420000
	SaveRAMStart   = 0x700000
	SaveRAMEnd     = 0x70FFFF
	SaveRAMSize    = 0x10000

	BankSize = 0x400000 // 4 MiB per bank
	MaxBanks = 16

	headerSize  = 256
	maxROMBytes = BankSize * MaxBanks
)

// ROMHeader is the 256-byte structure at the start of every SANo ROM: three
// 24-bit entry points, three 24-bit resource pointers, a title and a version
// byte. The resource pointers are documented for tooling but unused here.
type ROMHeader struct {
	MainEntry     uint32
	GraphicsEntry uint32
	SoundEntry    uint32
	PaletteData   uint32
	TileData      uint32
	AudioData     uint32
	Title         string
	Version       byte
}

// Valid reports whether the entry points are plausible. The main entry must
// lie in the ROM window; secondary entries may instead be zero, which means
// the CPU boots through its mailbox.
func (h ROMHeader) Valid() bool {
	inWindow := func(p uint32) bool { return p >= ROMWindowStart && p <= ROMWindowEnd }
	if !inWindow(h.MainEntry) {
		return false
	}
	if h.GraphicsEntry != 0 && !inWindow(h.GraphicsEntry) {
		return false
	}
	if h.SoundEntry != 0 && !inWindow(h.SoundEntry) {
		return false
	}
	return true
}

// Cartridge holds the ROM image, the 4-bit bank register selecting a 4 MiB
// window into it, and optional battery-backed save RAM. The same cartridge is
// registered on all three CPU buses; only the main CPU writes to it.
type Cartridge struct {
	rom     []byte
	saveRAM []byte
	bank    uint8
	header  ROMHeader
}

func read24(data []byte, offset int) uint32 {
	return uint32(data[offset]) | uint32(data[offset+1])<<8 | uint32(data[offset+2])<<16
}

func parseHeader(rom []byte) ROMHeader {
	h := ROMHeader{
		MainEntry:     read24(rom, 0),
		GraphicsEntry: read24(rom, 3),
		SoundEntry:    read24(rom, 6),
		PaletteData:   read24(rom, 9),
		TileData:      read24(rom, 12),
		AudioData:     read24(rom, 15),
		Version:       rom[50],
	}
	title := rom[18:50]
	for i, b := range title {
		if b == 0 {
			title = title[:i]
			break
		}
	}
	h.Title = string(title)
	return h
}

// NewCartridge parses a raw ROM image and creates a cartridge. The image must
// be at least one header long and at most 64 MiB.
func NewCartridge(data []byte) (*Cartridge, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cartridge: ROM image is empty")
	}
	if len(data) > maxROMBytes {
		return nil, fmt.Errorf("cartridge: ROM image too large (%d bytes, max %d)", len(data), maxROMBytes)
	}
	if len(data) < headerSize {
		return nil, fmt.Errorf("cartridge: ROM image too small for header (%d bytes)", len(data))
	}
	c := &Cartridge{rom: data, header: parseHeader(data)}
	if !c.header.Valid() {
		return nil, fmt.Errorf("cartridge: invalid header: main entry $%06x", c.header.MainEntry)
	}
	glog.Infof("cartridge: loaded %q version %d, %d bytes, %d banks",
		c.header.Title, c.header.Version, len(data), c.BankCount())
	return c, nil
}

func (c *Cartridge) Decode(addr Address) (Address, bool) {
	flat := addr.Flat()
	switch {
	case flat >= 0x00FFFC && flat <= 0x00FFFF: // reset vector mirror
		return addr, true
	case flat >= 0x008000 && flat <= 0x00FFFF: // bank-0 ROM mirror
		return addr, true
	case flat >= ROMWindowStart && flat <= ROMWindowEnd:
		return addr, true
	case flat == BankRegister:
		return addr, true
	case flat >= SaveRAMStart && flat <= SaveRAMEnd:
		return addr, true
	}
	return Address{}, false
}

func (c *Cartridge) Read(addr Address) byte {
	flat := addr.Flat()
	switch {
	case flat >= 0x008000 && flat <= 0x00FFFF:
		// Covers the reset vector mirror at $00FFFC-$00FFFF as well.
		if int(flat) < len(c.rom) {
			return c.rom[flat]
		}
		return 0xFF
	case flat >= ROMWindowStart && flat <= ROMWindowEnd:
		romAddr := uint32(c.bank)*BankSize + (flat - ROMWindowStart)
		if int(romAddr) < len(c.rom) {
			return c.rom[romAddr]
		}
		return 0xFF
	case flat >= SaveRAMStart && flat <= SaveRAMEnd:
		offset := flat - SaveRAMStart
		if int(offset) < len(c.saveRAM) {
			return c.saveRAM[offset]
		}
		return 0xFF
	}
	return 0xFF
}

func (c *Cartridge) Store(addr Address, value byte) {
	flat := addr.Flat()
	switch {
	case flat == BankRegister:
		c.SetBank(value & 0x0F)
	case flat >= SaveRAMStart && flat <= SaveRAMEnd:
		offset := flat - SaveRAMStart
		if int(offset) < len(c.saveRAM) {
			c.saveRAM[offset] = value
		}
	}
	// ROM is read-only; other writes are dropped.
}

// SetBank selects the ROM window bank. Banks at or above MaxBanks fall back
// to 0; the bus path masks to 4 bits before calling, so only direct callers
// can hit the clamp.
func (c *Cartridge) SetBank(bank uint8) {
	if bank >= MaxBanks {
		bank = 0
	}
	c.bank = bank
	glog.V(2).Infof("cartridge: bank %d selected", bank)
}

// Bank returns the current bank register value.
func (c *Cartridge) Bank() uint8 {
	return c.bank
}

// BankCount returns the number of 4 MiB banks the ROM occupies.
func (c *Cartridge) BankCount() int {
	return (len(c.rom) + BankSize - 1) / BankSize
}

// Header returns the parsed ROM header.
func (c *Cartridge) Header() ROMHeader {
	return c.header
}

// CreateSaveRAM allocates the 64 KiB save RAM if the cartridge has none.
// Fresh save RAM reads back 0xFF, like unprogrammed flash.
func (c *Cartridge) CreateSaveRAM() {
	if len(c.saveRAM) == 0 {
		c.saveRAM = make([]byte, SaveRAMSize)
		for i := range c.saveRAM {
			c.saveRAM[i] = 0xFF
		}
	}
}

// HasSaveRAM reports whether save RAM has been created or loaded.
func (c *Cartridge) HasSaveRAM() bool {
	return len(c.saveRAM) > 0
}

// LoadSaveRAM installs a previously saved image. Shorter images are accepted
// and padded; the remainder reads 0xFF.
func (c *Cartridge) LoadSaveRAM(data []byte) error {
	if len(data) > SaveRAMSize {
		return fmt.Errorf("cartridge: save image too large (%d bytes, max %d)", len(data), SaveRAMSize)
	}
	c.CreateSaveRAM()
	n := copy(c.saveRAM, data)
	for i := n; i < len(c.saveRAM); i++ {
		c.saveRAM[i] = 0xFF
	}
	glog.Infof("cartridge: loaded %d bytes of save RAM", len(data))
	return nil
}

// SaveRAM returns a copy of the save RAM contents, or nil when none exists.
func (c *Cartridge) SaveRAM() []byte {
	if len(c.saveRAM) == 0 {
		return nil
	}
	out := make([]byte, len(c.saveRAM))
	copy(out, c.saveRAM)
	return out
}
