package main

import (
	"flag"
	"io/ioutil"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/golang/glog"

	"github.com/sanoemu/sano/sano"
	"github.com/sanoemu/sano/ui"
	"github.com/sanoemu/sano/w65c816"
)

var (
	path       = flag.String("path", "", "path to SANo ROM file")
	save       = flag.String("save", "", "path to save RAM file (loaded if present, written on exit)")
	scale      = flag.Int("scale", 3, "window scale factor")
	audio      = flag.Bool("audio", true, "enable audio output")
	record     = flag.String("record", "", "capture mixer output to a WAV file")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

// readFile reads file as bytes
func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := ioutil.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func init() {
	runtime.LockOSThread()
}

func main() {
	flag.Parse()
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			glog.Fatal("Failed to create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			glog.Fatal("Failed to start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}
	if *path == "" {
		glog.Fatalln("No ROM given, use -path")
	}
	buf, err := readFile(*path)
	if err != nil {
		glog.Fatalln("Failed to read: " + *path)
	}

	emu := sano.NewEmulator()

	mainCPU, err := w65c816.New(emu.MainBus())
	if err != nil {
		glog.Fatalln("Failed to create main CPU: ", err)
	}
	graphicsCPU, err := w65c816.New(emu.GraphicsBus())
	if err != nil {
		glog.Fatalln("Failed to create graphics CPU: ", err)
	}
	soundCPU, err := w65c816.New(emu.SoundBus())
	if err != nil {
		glog.Fatalln("Failed to create sound CPU: ", err)
	}
	emu.AttachCPUs(mainCPU, graphicsCPU, soundCPU)

	if err := emu.LoadROM(buf); err != nil {
		glog.Fatalln("Failed to load ROM: ", err)
	}
	if *save != "" {
		emu.Cartridge().CreateSaveRAM()
		if data, err := readFile(*save); err == nil {
			if err := emu.Cartridge().LoadSaveRAM(data); err != nil {
				glog.Errorf("Failed to load save RAM: %v", err)
			}
		}
	}

	emu.Reset()
	if err := emu.Run(); err != nil {
		glog.Fatalln(err)
	}

	ui.Start(emu, sano.Width**scale, sano.Height**scale, *audio, *record)

	if *save != "" {
		if data := emu.Cartridge().SaveRAM(); data != nil {
			if err := ioutil.WriteFile(*save, data, 0644); err != nil {
				glog.Errorf("Failed to write save RAM: %v", err)
			}
		}
	}
	glog.Flush()
}
