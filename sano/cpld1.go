package sano

import "github.com/golang/glog"

// CPLD1 register file, offsets from $400100.
const (
	cpld1Base = 0x400100
	cpld1Size = 0x20
)

type cpld1Reg int

const (
	cpld1FIFOWrite cpld1Reg = iota // $400100+2·ch, write enqueues a sample
	cpld1FIFOLevel                 // $400110+ch, read returns fill level
	cpld1IRQStatus                 // $400118
	cpld1IRQClear                  // $40011A, write-1-to-clear
	cpld1IRQThreshold              // $40011C
	cpld1Config                    // $40011E, bit 0 master enable
)

// decodeCPLD1Reg maps a register-file offset to a typed register plus the
// channel index for the per-channel registers. Unknown offsets are rejected
// uniformly: reads return 0x00, writes are dropped.
func decodeCPLD1Reg(offset uint32) (cpld1Reg, int, bool) {
	switch {
	case offset <= 0x0E && offset%2 == 0:
		return cpld1FIFOWrite, int(offset / 2), true
	case offset >= 0x10 && offset <= 0x17:
		return cpld1FIFOLevel, int(offset - 0x10), true
	case offset == 0x18:
		return cpld1IRQStatus, 0, true
	case offset == 0x1A:
		return cpld1IRQClear, 0, true
	case offset == 0x1C:
		return cpld1IRQThreshold, 0, true
	case offset == 0x1E:
		return cpld1Config, 0, true
	}
	return 0, 0, false
}

const fifoDepth = 256

// audioFIFO is a fixed 256-sample ring buffer.
type audioFIFO struct {
	samples    [fifoDepth]int16
	head       int
	count      int
	irqPending bool
}

func (f *audioFIFO) push(s int16) bool {
	if f.count >= fifoDepth {
		return false
	}
	f.samples[(f.head+f.count)%fifoDepth] = s
	f.count++
	return true
}

func (f *audioFIFO) pop() (int16, bool) {
	if f.count == 0 {
		return 0, false
	}
	s := f.samples[f.head]
	f.head = (f.head + 1) % fifoDepth
	f.count--
	return s, true
}

func (f *audioFIFO) front() (int16, bool) {
	if f.count == 0 {
		return 0, false
	}
	return f.samples[f.head], true
}

func (f *audioFIFO) clear() {
	f.head = 0
	f.count = 0
	f.irqPending = false
}

// CPLD1Audio is the audio FIFO serializer: eight 256-sample FIFOs drained at
// 32 kHz, a low-level threshold IRQ per channel, and the boot-copy handler
// for mailbox B. It owns the sound RAM reference and the sound CPU reset line
// (released through the event sink).
type CPLD1Audio struct {
	fifos        [8]audioFIFO
	irqThreshold byte
	irqStatus    byte
	enabled      bool

	soundRAM *RAM
	mailboxB *Mailbox
	sink     EventSink
}

// NewCPLD1Audio creates the audio CPLD. The sound RAM is the target of
// mailbox B boot copies.
func NewCPLD1Audio(soundRAM *RAM, mailboxB *Mailbox, sink EventSink) *CPLD1Audio {
	c := &CPLD1Audio{soundRAM: soundRAM, mailboxB: mailboxB, sink: sink}
	c.Reset()
	return c
}

// Reset restores power-on state: empty FIFOs, threshold 128, enabled.
func (c *CPLD1Audio) Reset() {
	for i := range c.fifos {
		c.fifos[i].clear()
	}
	c.irqThreshold = 128
	c.irqStatus = 0
	c.enabled = true
}

func (c *CPLD1Audio) Decode(addr Address) (Address, bool) {
	flat := addr.Flat()
	if flat >= cpld1Base && flat < cpld1Base+cpld1Size {
		return addr, true
	}
	return Address{}, false
}

func (c *CPLD1Audio) Read(addr Address) byte {
	reg, ch, ok := decodeCPLD1Reg(addr.Flat() - cpld1Base)
	if !ok {
		return 0x00
	}
	switch reg {
	case cpld1FIFOLevel:
		return byte(c.fifos[ch].count)
	case cpld1IRQStatus:
		return c.irqStatus
	case cpld1IRQThreshold:
		return c.irqThreshold
	case cpld1Config:
		if c.enabled {
			return 0x01
		}
		return 0x00
	}
	return 0x00
}

func (c *CPLD1Audio) Store(addr Address, value byte) {
	reg, ch, ok := decodeCPLD1Reg(addr.Flat() - cpld1Base)
	if !ok {
		return
	}
	switch reg {
	case cpld1FIFOWrite:
		// Each byte write carries the high byte of one 16-bit sample;
		// dropped silently when the FIFO is full.
		c.fifos[ch].push(int16(value) << 8)
	case cpld1IRQClear:
		for i := 0; i < 8; i++ {
			if value&(1<<i) != 0 {
				c.fifos[i].irqPending = false
				c.irqStatus &^= 1 << i
			}
		}
		c.updateIRQ()
	case cpld1IRQThreshold:
		c.irqThreshold = value
		c.updateIRQ()
	case cpld1Config:
		c.enabled = value&0x01 != 0
	}
}

// Tick drains one sample from each non-empty FIFO. Called once per 32 kHz
// sample period. A channel whose level drops below the threshold latches its
// IRQ status bit.
func (c *CPLD1Audio) Tick() {
	if !c.enabled {
		return
	}
	for ch := range c.fifos {
		f := &c.fifos[ch]
		if _, ok := f.pop(); !ok {
			continue
		}
		if byte(f.count) < c.irqThreshold && !f.irqPending {
			f.irqPending = true
			c.irqStatus |= 1 << ch
		}
	}
	c.updateIRQ()
}

func (c *CPLD1Audio) updateIRQ() {
	if c.irqStatus != 0 && c.sink != nil {
		c.sink.Dispatch(Event{Kind: EventAudioIRQ})
	}
}

// AudioFrame sums the front sample of each non-empty FIFO into both channels,
// normalized across the 8 channels. It does not pop; the 32 kHz tick does.
func (c *CPLD1Audio) AudioFrame() (left, right int16) {
	var mix int32
	for ch := range c.fifos {
		if s, ok := c.fifos[ch].front(); ok {
			mix += int32(s)
		}
	}
	mix /= 8
	if mix > 32767 {
		mix = 32767
	} else if mix < -32768 {
		mix = -32768
	}
	return int16(mix), int16(mix)
}

// FIFOLevel returns the fill level of a channel's FIFO.
func (c *CPLD1Audio) FIFOLevel(channel int) int {
	if channel < 0 || channel >= 8 {
		return 0
	}
	return c.fifos[channel].count
}

// IRQStatus returns the per-channel IRQ status bits.
func (c *CPLD1Audio) IRQStatus() byte {
	return c.irqStatus
}

// OnMailboxBWrite inspects mailbox B after a write. Command 0x01 is the boot
// copy: [0x01, destLo, destHi, lenLo, lenHi, payload...] is copied into sound
// RAM and the sound CPU's reset line is released. Anything else is forwarded
// to the sound CPU as a plain mailbox IRQ.
func (c *CPLD1Audio) OnMailboxBWrite() {
	if c.mailboxB != nil && c.soundRAM != nil && c.mailboxB.Peek(0) == 0x01 {
		dest := uint32(c.mailboxB.Peek(1)) | uint32(c.mailboxB.Peek(2))<<8
		length := int(c.mailboxB.Peek(3)) | int(c.mailboxB.Peek(4))<<8
		glog.V(1).Infof("cpld1: boot command, %d bytes to sound RAM $%04x", length, dest)
		for i := 0; i < length; i++ {
			c.soundRAM.StoreFlat(dest+uint32(i), c.mailboxB.Peek(5+i))
		}
		if c.sink != nil {
			c.sink.Dispatch(Event{Kind: EventReleaseSoundCPU})
		}
		return
	}
	if c.sink != nil {
		c.sink.Dispatch(Event{Kind: EventSoundIRQ})
	}
}
