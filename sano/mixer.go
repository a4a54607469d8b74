package sano

// AudioMixer models the DSP stage behind the FIFO serializer: eight channels
// with volume, pan and mute, a master volume, and an automatic gain control
// that tames clipping. It pulls frames from CPLD1 and produces interleaved
// 32 kHz stereo PCM.
type AudioMixer struct {
	channels [8]mixerChannel

	masterVolume float32
	agcEnabled   bool
	currentGain  float32

	cpld1 *CPLD1Audio
}

type mixerChannel struct {
	volume float32
	pan    float32 // -1 left .. +1 right
	muted  bool
}

// NewAudioMixer creates a mixer drawing from the given CPLD.
func NewAudioMixer(cpld1 *CPLD1Audio) *AudioMixer {
	m := &AudioMixer{cpld1: cpld1}
	m.Reset()
	return m
}

// Reset restores unity gain on every channel, centered pan, AGC on.
func (m *AudioMixer) Reset() {
	for i := range m.channels {
		m.channels[i] = mixerChannel{volume: 1.0}
	}
	m.masterVolume = 1.0
	m.agcEnabled = true
	m.currentGain = 1.0
}

// GenerateSamples fills buf with frames*2 interleaved int16 samples.
func (m *AudioMixer) GenerateSamples(buf []int16, frames int) {
	if m.cpld1 == nil {
		for i := 0; i < frames*2; i++ {
			buf[i] = 0
		}
		return
	}
	for i := 0; i < frames; i++ {
		left, right := m.mixFrame()
		if m.agcEnabled {
			left, right = m.applyAGC(left, right)
		}
		buf[i*2] = clampSample(left)
		buf[i*2+1] = clampSample(right)
	}
}

func (m *AudioMixer) mixFrame() (float32, float32) {
	var leftSum, rightSum float32
	for ch := range m.channels {
		if m.channels[ch].muted {
			continue
		}
		frame, _ := m.cpld1.AudioFrame()
		sample := float32(frame) * m.channels[ch].volume

		pan := m.channels[ch].pan
		leftGain := minf(1.0, 1.0-pan)
		rightGain := minf(1.0, 1.0+pan)

		leftSum += sample * leftGain
		rightSum += sample * rightGain
	}
	leftSum *= m.masterVolume
	rightSum *= m.masterVolume
	return leftSum, rightSum
}

// applyAGC pulls the gain down when the mix peaks past full scale and lets
// it recover smoothly toward unity.
func (m *AudioMixer) applyAGC(left, right float32) (float32, float32) {
	peak := absf(left)
	if absf(right) > peak {
		peak = absf(right)
	}
	target := float32(1.0)
	if peak > 32767 {
		target = 32767 / peak
	}
	m.currentGain += (target - m.currentGain) * 0.01
	return left * m.currentGain, right * m.currentGain
}

// SetChannelVolume sets a channel's volume in 0..1.
func (m *AudioMixer) SetChannelVolume(channel int, volume float32) {
	if channel < 0 || channel >= len(m.channels) {
		return
	}
	m.channels[channel].volume = clampf(volume, 0, 1)
}

// SetChannelPan sets a channel's pan in -1 (left) .. +1 (right).
func (m *AudioMixer) SetChannelPan(channel int, pan float32) {
	if channel < 0 || channel >= len(m.channels) {
		return
	}
	m.channels[channel].pan = clampf(pan, -1, 1)
}

// SetChannelMute mutes or unmutes a channel.
func (m *AudioMixer) SetChannelMute(channel int, muted bool) {
	if channel < 0 || channel >= len(m.channels) {
		return
	}
	m.channels[channel].muted = muted
}

// SetMasterVolume sets the master volume in 0..1.
func (m *AudioMixer) SetMasterVolume(volume float32) {
	m.masterVolume = clampf(volume, 0, 1)
}

// SetAutoGainControl enables or disables the AGC, resetting its gain.
func (m *AudioMixer) SetAutoGainControl(enabled bool) {
	m.agcEnabled = enabled
	m.currentGain = 1.0
}

func clampSample(s float32) int16 {
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return int16(s)
}

func clampf(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
