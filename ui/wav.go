package ui

import (
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/golang/glog"

	"github.com/sanoemu/sano/sano"
)

// wavRecorder captures the mixer output to a 32 kHz 16-bit stereo WAV file.
type wavRecorder struct {
	file *os.File
	enc  *wav.Encoder
}

func newWAVRecorder(path string) (*wavRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc := wav.NewEncoder(f, sano.AudioSampleRate, 16, 2, 1)
	return &wavRecorder{file: f, enc: enc}, nil
}

func (r *wavRecorder) write(samples []int16) {
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 2, SampleRate: sano.AudioSampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := r.enc.Write(buf); err != nil {
		glog.Errorf("WAV write failed: %v", err)
	}
}

func (r *wavRecorder) close() {
	if err := r.enc.Close(); err != nil {
		glog.Errorf("WAV close failed: %v", err)
	}
	r.file.Close()
}
