package sano

import "testing"

// scriptCPU is a scripted stand-in for a 65C816 core: each instruction slot
// runs one closure against the buses. IRQ pin assertions latch for
// assertions.
type scriptCPU struct {
	res, rdy bool
	irqSeen  bool
	nmiSeen  bool
	pc       Address
	script   []func()
	step     int
}

func newScriptCPU() *scriptCPU {
	return &scriptCPU{res: true, rdy: true}
}

func (c *scriptCPU) SetRESPin(asserted bool) { c.res = asserted }
func (c *scriptCPU) SetRDYPin(ready bool)    { c.rdy = ready }

func (c *scriptCPU) SetIRQPin(asserted bool) {
	if asserted {
		c.irqSeen = true
	}
}

func (c *scriptCPU) SetNMIPin(asserted bool) {
	if asserted {
		c.nmiSeen = true
	}
}

func (c *scriptCPU) SetProgramAddress(addr Address) { c.pc = addr }

func (c *scriptCPU) ExecuteNextInstruction() int {
	if c.res || !c.rdy {
		return 1
	}
	if c.step < len(c.script) {
		c.script[c.step]()
		c.step++
	}
	return 2
}

func newTestEmulator(rom []byte) (*Emulator, *scriptCPU, *scriptCPU, *scriptCPU, error) {
	emu := NewEmulator()
	main, graphics, sound := newScriptCPU(), newScriptCPU(), newScriptCPU()
	emu.AttachCPUs(main, graphics, sound)
	err := emu.LoadROM(rom)
	return emu, main, graphics, sound, err
}

// Boot handshake: main entry $C00000, secondaries held in reset; the main
// CPU writes a boot command into mailbox A, CPLD2 copies the payload into
// VRAM and releases the graphics CPU at address (0,0).
func TestEmulatorBootHandshake(t *testing.T) {
	emu, main, graphics, sound, err := newTestEmulator(testROM(0x1000))
	if err != nil {
		t.Fatal(err)
	}
	emu.Reset()

	if main.res {
		t.Fatal("main CPU held in reset")
	}
	if main.pc.Flat() != 0xC00000 {
		t.Fatalf("main CPU entry: got=%v, want=$c0:0000", main.pc)
	}
	if !graphics.res || !sound.res {
		t.Fatal("secondary CPUs not held in reset")
	}

	payload := []byte{0x01, 0x00, 0x00, 0x02, 0x00, 0xAA, 0xBB}
	for i := range payload {
		i := i
		main.script = append(main.script, func() {
			emu.MainBus().Write(AddressFromFlat(uint32(mailboxABase+i)), payload[i])
		})
	}

	if err := emu.Run(); err != nil {
		t.Fatal(err)
	}
	emu.RunFrame()

	if graphics.res {
		t.Error("graphics CPU still in reset after boot command")
	}
	if graphics.pc.Flat() != 0 {
		t.Errorf("graphics CPU program address: got=%v, want=$00:0000", graphics.pc)
	}
	if got := emu.GraphicsBus().Read(AddressFromFlat(0x0000)); got != 0xAA {
		t.Errorf("VRAM[0]: got=0x%02x, want=0xaa", got)
	}
	if got := emu.GraphicsBus().Read(AddressFromFlat(0x0001)); got != 0xBB {
		t.Errorf("VRAM[1]: got=0x%02x, want=0xbb", got)
	}
	if !sound.res {
		t.Error("sound CPU released without a mailbox B command")
	}
}

// Bank switching through the main bus: the ROM window follows the bank
// register at $420000.
func TestEmulatorBankSwitch(t *testing.T) {
	rom := testROM(2 * BankSize)
	rom[0x400000] = 0x5A
	emu, _, _, _, err := newTestEmulator(rom)
	if err != nil {
		t.Fatal(err)
	}
	emu.Reset()

	bus := emu.MainBus()
	bus.Write(AddressFromFlat(BankRegister), 1)
	if got := bus.Read(AddressFromFlat(ROMWindowStart)); got != 0x5A {
		t.Errorf("bank 1 read: got=0x%02x, want=0x5a", got)
	}
	bus.Write(AddressFromFlat(BankRegister), 0)
	if got := bus.Read(AddressFromFlat(ROMWindowStart)); got != rom[0] {
		t.Errorf("bank 0 read: got=0x%02x, want=0x%02x", got, rom[0])
	}
}

func TestEmulatorRunFrameGating(t *testing.T) {
	emu, _, _, _, err := newTestEmulator(testROM(0x1000))
	if err != nil {
		t.Fatal(err)
	}
	emu.Reset()

	// Not running yet: RunFrame is a no-op.
	emu.RunFrame()
	if got := emu.FrameCount(); got != 0 {
		t.Fatalf("frame ran while stopped: count=%d", got)
	}

	if err := emu.Run(); err != nil {
		t.Fatal(err)
	}
	emu.RunFrame()
	if got := emu.FrameCount(); got != 1 {
		t.Fatalf("frame count: got=%d, want=1", got)
	}

	emu.Pause()
	emu.RunFrame()
	if got := emu.FrameCount(); got != 1 {
		t.Errorf("frame ran while paused: count=%d", got)
	}
	emu.Resume()
	emu.RunFrame()
	if got := emu.FrameCount(); got != 2 {
		t.Errorf("frame count after resume: got=%d, want=2", got)
	}
}

func TestEmulatorRunRequiresROM(t *testing.T) {
	emu := NewEmulator()
	if err := emu.Run(); err == nil {
		t.Error("run without ROM accepted")
	}
}

func TestEmulatorFailedLoadKeepsState(t *testing.T) {
	emu, _, _, _, err := newTestEmulator(testROM(0x1000))
	if err != nil {
		t.Fatal(err)
	}
	cart := emu.Cartridge()
	if err := emu.LoadROM(make([]byte, 10)); err == nil {
		t.Fatal("bad ROM accepted")
	}
	if emu.Cartridge() != cart {
		t.Error("failed load replaced the cartridge")
	}
}

// A full frame of graphics cycles wraps the CPLD2 raster, which lands on the
// main CPU's IRQ pin.
func TestEmulatorVBlankIRQRouting(t *testing.T) {
	emu, main, _, _, err := newTestEmulator(testROM(0x1000))
	if err != nil {
		t.Fatal(err)
	}
	emu.Reset()
	if err := emu.Run(); err != nil {
		t.Fatal(err)
	}
	emu.RunFrame()
	if !main.irqSeen {
		t.Error("VBlank IRQ never reached the main CPU")
	}
}

// The clock's 32 kHz ticks drain the CPLD1 FIFOs during the frame.
func TestEmulatorAudioTickDrainsFIFOs(t *testing.T) {
	emu, main, _, _, err := newTestEmulator(testROM(0x1000))
	if err != nil {
		t.Fatal(err)
	}
	emu.Reset()

	main.script = append(main.script, func() {
		for i := 0; i < 100; i++ {
			emu.MainBus().Write(AddressFromFlat(0x400100), 0x10)
		}
	})

	if err := emu.Run(); err != nil {
		t.Fatal(err)
	}
	emu.RunFrame()
	if got := emu.CPLD1().FIFOLevel(0); got != 0 {
		t.Errorf("FIFO not drained over the frame: level=%d", got)
	}
}

func TestEmulatorStep(t *testing.T) {
	emu, main, _, _, err := newTestEmulator(testROM(0x1000))
	if err != nil {
		t.Fatal(err)
	}
	emu.Reset()
	ran := 0
	main.script = []func(){func() { ran++ }, func() { ran++ }}
	emu.Step()
	if ran != 1 {
		t.Errorf("instructions after one step: got=%d, want=1", ran)
	}
}

func TestEmulatorUnloadROM(t *testing.T) {
	emu, _, _, _, err := newTestEmulator(testROM(0x1000))
	if err != nil {
		t.Fatal(err)
	}
	emu.UnloadROM()
	if emu.ROMLoaded() {
		t.Fatal("ROM still loaded")
	}
	if got := emu.MainBus().Read(AddressFromFlat(ROMWindowStart)); got != 0xFF {
		t.Errorf("ROM window after unload: got=0x%02x, want=0xff", got)
	}
}
