package sano

import "testing"

// loadChannels pushes one sample onto the given channels so AudioFrame
// observes a known mix.
func loadChannels(c *CPLD1Audio, value byte, channels ...int) {
	for _, ch := range channels {
		c.Store(fifoWriteAddr(ch), value)
	}
}

func TestMixerSilenceWhenEmpty(t *testing.T) {
	c, _, _, _ := newTestCPLD1()
	m := NewAudioMixer(c)
	buf := make([]int16, 8)
	m.GenerateSamples(buf, 4)
	for i, s := range buf {
		if s != 0 {
			t.Fatalf("sample %d: got=%d, want=0", i, s)
		}
	}
}

func TestMixerOutputInRange(t *testing.T) {
	c, _, _, _ := newTestCPLD1()
	// Worst case: all channels at full-scale positive, every gain at max.
	loadChannels(c, 0x7F, 0, 1, 2, 3, 4, 5, 6, 7)
	m := NewAudioMixer(c)
	m.SetAutoGainControl(false)
	for ch := 0; ch < 8; ch++ {
		m.SetChannelVolume(ch, 1.0)
	}
	m.SetMasterVolume(1.0)

	buf := make([]int16, 64)
	m.GenerateSamples(buf, 32)
	for i, s := range buf {
		if s > 32767 || s < -32768 {
			t.Fatalf("sample %d out of range: %d", i, s)
		}
	}
	if buf[0] != 32767 {
		t.Errorf("hot mix should clamp at full scale: got=%d", buf[0])
	}
}

func TestMixerMute(t *testing.T) {
	c, _, _, _ := newTestCPLD1()
	loadChannels(c, 0x40, 0)
	m := NewAudioMixer(c)
	m.SetAutoGainControl(false)
	for ch := 0; ch < 8; ch++ {
		m.SetChannelMute(ch, true)
	}
	buf := make([]int16, 2)
	m.GenerateSamples(buf, 1)
	if buf[0] != 0 || buf[1] != 0 {
		t.Errorf("muted mix: got=(%d,%d), want=(0,0)", buf[0], buf[1])
	}
}

func TestMixerPan(t *testing.T) {
	c, _, _, _ := newTestCPLD1()
	loadChannels(c, 0x10, 0)
	m := NewAudioMixer(c)
	m.SetAutoGainControl(false)
	// Only channel 0 contributes; pan it hard right.
	for ch := 1; ch < 8; ch++ {
		m.SetChannelMute(ch, true)
	}
	m.SetChannelPan(0, 1.0)

	buf := make([]int16, 2)
	m.GenerateSamples(buf, 1)
	if buf[0] != 0 {
		t.Errorf("left channel with hard-right pan: got=%d, want=0", buf[0])
	}
	if buf[1] == 0 {
		t.Error("right channel silent with hard-right pan")
	}
}

func TestMixerMasterVolume(t *testing.T) {
	c, _, _, _ := newTestCPLD1()
	loadChannels(c, 0x40, 0)
	m := NewAudioMixer(c)
	m.SetAutoGainControl(false)
	for ch := 1; ch < 8; ch++ {
		m.SetChannelMute(ch, true)
	}

	full := make([]int16, 2)
	m.GenerateSamples(full, 1)

	m.SetMasterVolume(0.5)
	half := make([]int16, 2)
	m.GenerateSamples(half, 1)

	if half[0] != full[0]/2 {
		t.Errorf("half volume: got=%d, want=%d", half[0], full[0]/2)
	}
}

func TestMixerAGCReinsGainIn(t *testing.T) {
	c, _, _, _ := newTestCPLD1()
	// Keep the FIFOs hot so every frame clips without AGC.
	for i := 0; i < fifoDepth; i++ {
		loadChannels(c, 0x7F, 0, 1, 2, 3, 4, 5, 6, 7)
	}
	m := NewAudioMixer(c)

	buf := make([]int16, 2)
	for i := 0; i < 500; i++ {
		m.GenerateSamples(buf, 1)
	}
	if m.currentGain >= 0.5 {
		t.Errorf("AGC gain did not come down on a clipping mix: got=%f", m.currentGain)
	}
}

func TestMixerSettersClamp(t *testing.T) {
	c, _, _, _ := newTestCPLD1()
	m := NewAudioMixer(c)
	m.SetChannelVolume(0, 2.0)
	if m.channels[0].volume != 1.0 {
		t.Errorf("volume not clamped: got=%f", m.channels[0].volume)
	}
	m.SetChannelPan(0, -5)
	if m.channels[0].pan != -1.0 {
		t.Errorf("pan not clamped: got=%f", m.channels[0].pan)
	}
	m.SetMasterVolume(-1)
	if m.masterVolume != 0 {
		t.Errorf("master volume not clamped: got=%f", m.masterVolume)
	}
	// Out-of-range channel indexes are ignored.
	m.SetChannelVolume(8, 0.5)
	m.SetChannelMute(-1, true)
}
