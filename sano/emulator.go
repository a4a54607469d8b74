package sano

import (
	"fmt"

	"github.com/golang/glog"
)

// Memory map constants for the fixed system devices.
const (
	mainRAMBase = 0x000000
	mainRAMSize = 128 * 1024

	// Graphics RAM covers the whole VRAM layout, tile data included.
	graphicsRAMBase = 0x000000
	graphicsRAMSize = 512 * 1024

	soundRAMBase = 0x000000
	soundRAMSize = 64 * 1024

	mailboxABase = 0x400000
	mailboxBBase = 0x410000
	mailboxSize  = 1024
)

// Emulator owns every component of the console, wires their events, drives
// the per-frame stepping and routes IRQs to the right CPU pins. It is the
// single EventSink of the system.
type Emulator struct {
	clock *MasterClock

	mainRAM     *RAM
	graphicsRAM *RAM
	soundRAM    *RAM

	mailboxA *Mailbox
	mailboxB *Mailbox

	mainBus     *Bus
	graphicsBus *Bus
	soundBus    *Bus

	cpld1 *CPLD1Audio
	cpld2 *CPLD2Video
	cpld3 *CPLD3Raster

	renderer *VideoRenderer
	mixer    *AudioMixer

	cartridge *Cartridge

	mainCPU     CPU
	graphicsCPU CPU
	soundCPU    CPU

	running bool
	paused  bool
}

// NewEmulator constructs and wires every component. The CPUs are installed
// afterwards with AttachCPUs, since a CPU core needs a bus to be built
// against.
func NewEmulator() *Emulator {
	e := &Emulator{}

	e.clock = NewMasterClock(e)

	e.mainRAM = NewRAM(mainRAMBase, mainRAMSize, "main RAM")
	e.graphicsRAM = NewRAM(graphicsRAMBase, graphicsRAMSize, "graphics RAM")
	e.soundRAM = NewRAM(soundRAMBase, soundRAMSize, "sound RAM")

	e.mailboxA = NewMailbox(mailboxABase, mailboxSize, "mailbox A", EventMailboxAWrite, e)
	e.mailboxB = NewMailbox(mailboxBBase, mailboxSize, "mailbox B", EventMailboxBWrite, e)

	e.cpld1 = NewCPLD1Audio(e.soundRAM, e.mailboxB, e)
	e.cpld2 = NewCPLD2Video(e.graphicsRAM, e.mailboxA, e)
	e.cpld3 = NewCPLD3Raster(e)

	e.renderer = NewVideoRenderer(e.graphicsRAM, e.cpld2, e.cpld3)
	e.mixer = NewAudioMixer(e.cpld1)

	e.mainBus = NewBus("main")
	e.mainBus.Register(e.mainRAM)
	e.mainBus.Register(e.mailboxA)
	e.mainBus.Register(e.mailboxB)
	e.mainBus.Register(e.cpld1)
	e.mainBus.Register(e.cpld2)
	e.mainBus.Register(e.cpld3)

	e.graphicsBus = NewBus("graphics")
	e.graphicsBus.Register(e.graphicsRAM)
	e.graphicsBus.Register(e.mailboxA)
	e.graphicsBus.Register(e.cpld2)
	e.graphicsBus.Register(e.cpld3)

	e.soundBus = NewBus("sound")
	e.soundBus.Register(e.soundRAM)
	e.soundBus.Register(e.mailboxB)
	e.soundBus.Register(e.cpld1)

	return e
}

// AttachCPUs installs the three CPU cores. Any of them may be nil, in which
// case that CPU's frame budget is burned as idle cycles.
func (e *Emulator) AttachCPUs(main, graphics, sound CPU) {
	e.mainCPU = main
	e.graphicsCPU = graphics
	e.soundCPU = sound
}

// MainBus returns the main CPU's bus.
func (e *Emulator) MainBus() *Bus { return e.mainBus }

// GraphicsBus returns the graphics CPU's bus.
func (e *Emulator) GraphicsBus() *Bus { return e.graphicsBus }

// SoundBus returns the sound CPU's bus.
func (e *Emulator) SoundBus() *Bus { return e.soundBus }

// Clock returns the master clock.
func (e *Emulator) Clock() *MasterClock { return e.clock }

// Renderer returns the video renderer.
func (e *Emulator) Renderer() *VideoRenderer { return e.renderer }

// Mixer returns the audio mixer.
func (e *Emulator) Mixer() *AudioMixer { return e.mixer }

// CPLD1 returns the audio CPLD.
func (e *Emulator) CPLD1() *CPLD1Audio { return e.cpld1 }

// CPLD2 returns the video CPLD.
func (e *Emulator) CPLD2() *CPLD2Video { return e.cpld2 }

// CPLD3 returns the raster CPLD.
func (e *Emulator) CPLD3() *CPLD3Raster { return e.cpld3 }

// Cartridge returns the loaded cartridge, or nil.
func (e *Emulator) Cartridge() *Cartridge { return e.cartridge }

// LoadROM builds a cartridge from a raw image and registers it on all three
// buses. A failed load leaves the emulator unchanged.
func (e *Emulator) LoadROM(data []byte) error {
	cart, err := NewCartridge(data)
	if err != nil {
		return fmt.Errorf("load ROM: %w", err)
	}
	e.UnloadROM()
	e.cartridge = cart
	e.mainBus.RegisterFront(cart)
	e.graphicsBus.RegisterFront(cart)
	e.soundBus.RegisterFront(cart)
	return nil
}

// UnloadROM removes the cartridge from all buses.
func (e *Emulator) UnloadROM() {
	if e.cartridge == nil {
		return
	}
	e.mainBus.Unregister(e.cartridge)
	e.graphicsBus.Unregister(e.cartridge)
	e.soundBus.Unregister(e.cartridge)
	e.cartridge = nil
}

// ROMLoaded reports whether a cartridge is present.
func (e *Emulator) ROMLoaded() bool {
	return e.cartridge != nil
}

// Reset pulses every CPU's RES pin and points it at its ROM header entry. A
// CPU whose entry point is zero stays held in reset until its CPLD finishes
// the mailbox boot copy. Peripheral state and the clock restart from power-on
// values.
func (e *Emulator) Reset() {
	e.cpld1.Reset()
	e.cpld2.Reset()
	e.cpld3.Reset()
	e.renderer.Reset()
	e.mailboxA.Clear()
	e.mailboxB.Clear()

	var header ROMHeader
	if e.cartridge != nil {
		header = e.cartridge.Header()
	}
	e.resetCPU(e.mainCPU, header.MainEntry, "main")
	e.resetCPU(e.graphicsCPU, header.GraphicsEntry, "graphics")
	e.resetCPU(e.soundCPU, header.SoundEntry, "sound")

	e.clock.Reset()
	glog.Info("emulator: reset")
}

func (e *Emulator) resetCPU(cpu CPU, entry uint32, name string) {
	if cpu == nil {
		return
	}
	cpu.SetRESPin(true)
	if entry == 0 {
		glog.Infof("emulator: %s CPU held in reset (mailbox boot)", name)
		return
	}
	cpu.SetRESPin(false)
	cpu.SetProgramAddress(AddressFromFlat(entry))
	glog.Infof("emulator: %s CPU entry $%06x", name, entry)
}

// Run marks the emulator as running.
func (e *Emulator) Run() error {
	if !e.ROMLoaded() {
		return fmt.Errorf("cannot run: no ROM loaded")
	}
	e.running = true
	e.paused = false
	return nil
}

// Stop halts frame execution; the per-CPU loops notice between instructions.
func (e *Emulator) Stop() {
	e.running = false
}

// Pause suspends frame execution cooperatively.
func (e *Emulator) Pause() { e.paused = true }

// Resume clears the pause flag.
func (e *Emulator) Resume() { e.paused = false }

// IsRunning reports whether the emulator has been started.
func (e *Emulator) IsRunning() bool { return e.running }

// IsPaused reports whether the emulator is paused.
func (e *Emulator) IsPaused() bool { return e.paused }

// RunFrame executes one 60 Hz frame: each CPU consumes its cycle budget,
// with the graphics CPU's cycles also clocking the CPLD2 raster, then the
// frame is rendered. A no-op while paused or stopped.
func (e *Emulator) RunFrame() {
	if !e.running || e.paused {
		return
	}

	e.clock.RunFrame()

	for e.running && !e.paused && e.clock.ShouldRunMainCPU() {
		e.clock.AddMainCycles(e.stepCPU(e.mainCPU))
	}
	for e.running && !e.paused && e.clock.ShouldRunGraphicsCPU() {
		cycles := e.stepCPU(e.graphicsCPU)
		// The graphics CPU runs at the pixel clock; the raster advances
		// in lockstep.
		for i := 0; i < cycles; i++ {
			e.cpld2.Tick()
		}
		e.clock.AddGraphicsCycles(cycles)
	}
	for e.running && !e.paused && e.clock.ShouldRunSoundCPU() {
		e.clock.AddSoundCycles(e.stepCPU(e.soundCPU))
	}

	e.renderer.RenderFrame()
}

// stepCPU runs one instruction, treating an absent CPU as an idle cycle so
// the budget still drains.
func (e *Emulator) stepCPU(cpu CPU) int {
	if cpu == nil {
		return 1
	}
	cycles := cpu.ExecuteNextInstruction()
	if cycles <= 0 {
		return 1
	}
	return cycles
}

// Step executes a single instruction on the main CPU.
func (e *Emulator) Step() {
	if e.mainCPU != nil {
		e.clock.AddMainCycles(e.stepCPU(e.mainCPU))
	}
}

// Framebuffer returns the renderer's composited frame.
func (e *Emulator) Framebuffer() *[Width * Height]uint32 {
	return e.renderer.Framebuffer()
}

// GenerateSamples fills buf with frames*2 interleaved 32 kHz stereo samples.
func (e *Emulator) GenerateSamples(buf []int16, frames int) {
	e.mixer.GenerateSamples(buf, frames)
}

// EmulationSpeed returns the emulated-to-real time ratio since reset.
func (e *Emulator) EmulationSpeed() float64 {
	return e.clock.EmulationSpeed()
}

// FrameCount returns the number of frames executed since reset.
func (e *Emulator) FrameCount() uint64 {
	return e.clock.FrameCount()
}

// Dispatch routes component events: mailbox traffic to the owning CPLD, IRQ
// requests to CPU pins, reset releases to the secondary CPUs, scanlines to
// the raster engine and audio ticks to the FIFO drain.
func (e *Emulator) Dispatch(ev Event) {
	switch ev.Kind {
	case EventMailboxAWrite:
		e.cpld2.OnMailboxAWrite()
	case EventMailboxBWrite:
		e.cpld1.OnMailboxBWrite()
	case EventGraphicsIRQ, EventSplitLineIRQ:
		if e.graphicsCPU != nil {
			e.graphicsCPU.SetIRQPin(true)
		}
	case EventSoundIRQ, EventAudioIRQ:
		if e.soundCPU != nil {
			e.soundCPU.SetIRQPin(true)
		}
	case EventVBlankIRQ:
		if e.mainCPU != nil {
			e.mainCPU.SetIRQPin(true)
		}
	case EventReleaseGraphicsCPU:
		if e.graphicsCPU != nil {
			glog.V(1).Info("emulator: releasing graphics CPU reset")
			e.graphicsCPU.SetRESPin(false)
			e.graphicsCPU.SetProgramAddress(NewAddress(0, 0))
		}
	case EventReleaseSoundCPU:
		if e.soundCPU != nil {
			glog.V(1).Info("emulator: releasing sound CPU reset")
			e.soundCPU.SetRESPin(false)
			e.soundCPU.SetProgramAddress(NewAddress(0, 0))
		}
	case EventScanline:
		e.cpld3.OnHSync(ev.Line)
	case EventFrameVBlank:
		// Frame boundary; rendering happens at the end of RunFrame.
	case EventAudioTick:
		e.cpld1.Tick()
	}
}
