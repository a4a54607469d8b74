package ui

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/sanoemu/sano/sano"
)

// audio pulls interleaved stereo frames from the emulator's mixer on the
// portaudio callback thread. That callback is the only cross-thread boundary
// in the system; it reads through the mixer, never into the frame loop.
type audio struct {
	stream *portaudio.Stream
	emu    *sano.Emulator
	rec    *wavRecorder
}

func newAudio(emu *sano.Emulator, rec *wavRecorder) *audio {
	return &audio{emu: emu, rec: rec}
}

func (a *audio) start() error {
	portaudio.Initialize()
	cb := func(out []int16) {
		a.emu.GenerateSamples(out, len(out)/2)
		if a.rec != nil {
			a.rec.write(out)
		}
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(sano.AudioSampleRate), 0, cb)
	if err != nil {
		return fmt.Errorf("Failed to open the audio stream: %w", err)
	}
	a.stream = stream
	if err := stream.Start(); err != nil {
		return fmt.Errorf("Failed to start the audio stream: %w", err)
	}
	return nil
}

func (a *audio) terminate() {
	portaudio.Terminate()
	a.stream.Close()
}
