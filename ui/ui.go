package ui

import (
	"fmt"
	"time"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/golang/glog"

	"github.com/sanoemu/sano/sano"
)

// keyState tracks edges so held keys toggle once.
type keyState struct {
	pause bool
	reset bool
}

func mainLoop(window *glfw.Window, emu *sano.Emulator, program uint32) {
	var keys keyState
	frames := 0
	lastTitle := time.Now()

	for range time.Tick(time.Second / sano.FrameRate) {
		emu.RunFrame()
		frames++

		updateTexture(program, emu.Framebuffer())
		window.SwapBuffers()
		glfw.PollEvents()

		pause := window.GetKey(glfw.KeyP) == glfw.Press
		if pause && !keys.pause {
			if emu.IsPaused() {
				emu.Resume()
			} else {
				emu.Pause()
			}
		}
		keys.pause = pause

		reset := window.GetKey(glfw.KeyR) == glfw.Press
		if reset && !keys.reset {
			emu.Reset()
		}
		keys.reset = reset

		if window.GetKey(glfw.KeyEscape) == glfw.Press {
			window.SetShouldClose(true)
		}

		if time.Since(lastTitle) >= time.Second {
			window.SetTitle(statusTitle(emu, frames))
			frames = 0
			lastTitle = time.Now()
		}

		if window.ShouldClose() {
			emu.Stop()
			return
		}
	}
}

func statusTitle(emu *sano.Emulator, fps int) string {
	switch {
	case emu.IsPaused():
		return "SANo | Paused"
	case !emu.ROMLoaded():
		return "SANo | No ROM loaded"
	default:
		return fmt.Sprintf("SANo | FPS: %d", fps)
	}
}

// Start opens the host window and drives the emulator at 60 Hz until the
// window closes. With audioEnabled the mixer output plays through the default
// portaudio device; recordPath additionally captures it to a WAV file.
func Start(emu *sano.Emulator, width, height int, audioEnabled bool, recordPath string) {
	if err := glfw.Init(); err != nil {
		glog.Fatalln(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	window, err := glfw.CreateWindow(width, height, "SANo", nil, nil)
	if err != nil {
		glog.Fatalln(err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glog.Fatalln(err)
	}

	program, err := newProgram()
	if err != nil {
		glog.Fatalln(err)
	}
	gl.UseProgram(program)

	var rec *wavRecorder
	if recordPath != "" {
		rec, err = newWAVRecorder(recordPath)
		if err != nil {
			glog.Errorf("Failed to open WAV recorder: %v", err)
			rec = nil
		} else {
			defer rec.close()
		}
	}

	if audioEnabled {
		a := newAudio(emu, rec)
		if err := a.start(); err != nil {
			// The emulator continues without audio.
			glog.Errorf("Audio unavailable: %v", err)
		} else {
			defer a.terminate()
		}
	}

	mainLoop(window, emu, program)
}
