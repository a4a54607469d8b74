package sano

import "time"

// Clock frequencies and derived per-frame budgets.
const (
	MainCPUFreq     = 7159000  // 7.159 MHz
	GraphicsCPUFreq = 13500000 // 13.5 MHz, also the pixel clock
	SoundCPUFreq    = 4773000  // 4.773 MHz

	FrameRate         = 60
	PixelsPerScanline = 858
	ScanlinesPerFrame = 240 // active lines
	TotalScanlines    = 262
	AudioSampleRate   = 32000

	CyclesPerFrameMain     = MainCPUFreq / FrameRate
	CyclesPerFrameGraphics = GraphicsCPUFreq / FrameRate
	CyclesPerFrameSound    = SoundCPUFreq / FrameRate

	AudioSamplesPerFrame = AudioSampleRate / FrameRate
)

// MasterClock keeps the three CPUs and the pixel-rate video engine on a
// shared notion of time. The graphics CPU runs at the pixel clock and is the
// master counter; scanline position and the 32 kHz audio tick are both
// derived from it. Scanline, frame-VBlank and audio-tick events go to the
// sink as the counters advance.
type MasterClock struct {
	mainCycles     uint64
	graphicsCycles uint64
	soundCycles    uint64
	masterCycles   uint64

	targetMain     uint64
	targetGraphics uint64
	targetSound    uint64

	frameCount      uint64
	currentScanline int
	currentPixel    int

	audioSamples      uint64
	audioSamplesFrame int

	sink EventSink

	realStart     time.Time
	emulatedStart uint64
}

// NewMasterClock creates a clock with targets set to one frame's worth of
// cycles.
func NewMasterClock(sink EventSink) *MasterClock {
	c := &MasterClock{sink: sink}
	c.Reset()
	return c
}

// Reset zeroes every counter, arms the first frame's targets and snapshots
// real time for the speed measurement.
func (c *MasterClock) Reset() {
	c.mainCycles = 0
	c.graphicsCycles = 0
	c.soundCycles = 0
	c.masterCycles = 0
	c.frameCount = 0
	c.currentScanline = 0
	c.currentPixel = 0
	c.audioSamples = 0
	c.audioSamplesFrame = 0
	c.targetMain = CyclesPerFrameMain
	c.targetGraphics = CyclesPerFrameGraphics
	c.targetSound = CyclesPerFrameSound
	c.realStart = time.Now()
	c.emulatedStart = 0
}

// AddMainCycles credits cycles to the main CPU.
func (c *MasterClock) AddMainCycles(n int) {
	c.mainCycles += uint64(n)
	c.updateVideoTiming()
	c.updateAudioTiming()
}

// AddGraphicsCycles credits cycles to the graphics CPU, which advances the
// master counter and with it the raster position and audio tick.
func (c *MasterClock) AddGraphicsCycles(n int) {
	c.graphicsCycles += uint64(n)
	c.masterCycles = c.graphicsCycles
	c.updateVideoTiming()
	c.updateAudioTiming()
}

// AddSoundCycles credits cycles to the sound CPU.
func (c *MasterClock) AddSoundCycles(n int) {
	c.soundCycles += uint64(n)
	c.updateAudioTiming()
}

func (c *MasterClock) updateVideoTiming() {
	pixels := c.graphicsCycles % (GraphicsCPUFreq / FrameRate)
	oldScanline := c.currentScanline
	c.currentScanline = int(pixels / PixelsPerScanline)
	c.currentPixel = int(pixels % PixelsPerScanline)

	if c.currentScanline != oldScanline && c.sink != nil {
		c.sink.Dispatch(Event{Kind: EventScanline, Line: c.currentScanline})
	}
	if oldScanline < ScanlinesPerFrame && c.currentScanline >= ScanlinesPerFrame && c.sink != nil {
		c.sink.Dispatch(Event{Kind: EventFrameVBlank})
	}
}

func (c *MasterClock) updateAudioTiming() {
	expected := c.masterCycles * AudioSampleRate / GraphicsCPUFreq
	for c.audioSamples < expected {
		if c.sink != nil {
			c.sink.Dispatch(Event{Kind: EventAudioTick})
		}
		c.audioSamples++
		c.audioSamplesFrame++
	}
}

// RunFrame advances every CPU's target by one frame's cycle budget and
// resets the per-frame audio sample count.
func (c *MasterClock) RunFrame() {
	c.targetMain = c.mainCycles + CyclesPerFrameMain
	c.targetGraphics = c.graphicsCycles + CyclesPerFrameGraphics
	c.targetSound = c.soundCycles + CyclesPerFrameSound
	c.audioSamplesFrame = 0
	c.frameCount++
}

// ShouldRunMainCPU reports whether the main CPU is behind its frame target.
func (c *MasterClock) ShouldRunMainCPU() bool {
	return c.mainCycles < c.targetMain
}

// ShouldRunGraphicsCPU reports whether the graphics CPU is behind its frame
// target.
func (c *MasterClock) ShouldRunGraphicsCPU() bool {
	return c.graphicsCycles < c.targetGraphics
}

// ShouldRunSoundCPU reports whether the sound CPU is behind its frame target.
func (c *MasterClock) ShouldRunSoundCPU() bool {
	return c.soundCycles < c.targetSound
}

// MainCycles returns the main CPU's cumulative cycle count.
func (c *MasterClock) MainCycles() uint64 { return c.mainCycles }

// GraphicsCycles returns the graphics CPU's cumulative cycle count.
func (c *MasterClock) GraphicsCycles() uint64 { return c.graphicsCycles }

// SoundCycles returns the sound CPU's cumulative cycle count.
func (c *MasterClock) SoundCycles() uint64 { return c.soundCycles }

// MasterCycles returns the master (graphics) cycle count.
func (c *MasterClock) MasterCycles() uint64 { return c.masterCycles }

// FrameCount returns the number of frames started since reset.
func (c *MasterClock) FrameCount() uint64 { return c.frameCount }

// CurrentScanline returns the raster line derived from the master counter.
func (c *MasterClock) CurrentScanline() int { return c.currentScanline }

// CurrentPixel returns the raster pixel derived from the master counter.
func (c *MasterClock) CurrentPixel() int { return c.currentPixel }

// EmulationSpeed returns the ratio of emulated to real time since reset;
// 1.0 means real-time.
func (c *MasterClock) EmulationSpeed() float64 {
	real := time.Since(c.realStart).Microseconds()
	if real <= 0 {
		return 1.0
	}
	emulated := int64((c.graphicsCycles-c.emulatedStart)*1000000) / GraphicsCPUFreq
	return float64(emulated) / float64(real)
}
