package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mlempinen/pianola"
	"github.com/mlempinen/pianola/engine"
	"github.com/mlempinen/pianola/oto"
	"github.com/mlempinen/pianola/version"
)

// midiInput is what main needs from a MIDI source; the cgo build backs it
// with the rtmidi driver, the pure-Go build with a stub that refuses -live.
type midiInput interface {
	TryToOpenBy(namePrefix string, takeFirst bool) error
	Close()
}

func main() {
	loop := flag.Bool("l", false, "Loop playback until interrupted.")
	volume := flag.Float64("volume", -1, "Playback volume between 0 and 1. Overrides the configured volume.")
	mute := flag.Bool("mute", false, "Run without an audio device; playback advances silently.")
	wavOut := flag.Bool("w", false, "Render the input file to a .wav file instead of playing it.")
	rawOut := flag.Bool("r", false, "Render the input file to a raw float32 buffer on disk.")
	pcm := flag.Bool("c", false, "Convert audio to 16-bit signed PCM when rendering.")
	directory := flag.String("o", "", "Directory where to place rendered files. Defaults to the working directory.")
	live := flag.Bool("live", false, "Open a MIDI input device and play live until interrupted.")
	record := flag.String("record", "", "Capture live or replayed input to the given .json or .yml file.")
	versionFlag := flag.Bool("v", false, "Print version.")
	help := flag.Bool("h", false, "Show help.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if (flag.NArg() == 0 && !*live) || *help {
		flag.Usage()
		os.Exit(0)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync()

	configPath, err := pianola.ConfigPath()
	var cfg pianola.Config
	if err == nil {
		cfg, err = pianola.LoadConfig(configPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config, using defaults: %v\n", err)
		cfg = pianola.DefaultConfig()
	}
	if *volume >= 0 {
		cfg.Audio.Volume = float32(min(*volume, 1))
	}

	rendering := *wavOut || *rawOut
	var backend pianola.OutputBackend
	if *mute || rendering {
		backend = pianola.NewNullBackend()
	} else {
		backend, err = oto.NewBackend(cfg.Audio.SampleRate)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not open audio device: %v\n", err)
			os.Exit(1)
		}
	}

	broker := engine.NewBroker()
	eng, err := engine.NewEngine(broker, backend, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not start engine: %v\n", err)
		os.Exit(1)
	}
	defer eng.Close()

	if rendering {
		retval := 0
		for _, filename := range flag.Args() {
			if err := render(filename, *directory, *wavOut, *rawOut, *pcm); err != nil {
				fmt.Fprintf(os.Stderr, "could not render %v: %v\n", filename, err)
				retval = 1
			}
		}
		os.Exit(retval)
	}

	if *live {
		midiContext := newMIDIContext(broker)
		defer midiContext.Close()
		prefix := cfg.MIDI.InputDevice
		takeFirst := prefix == "auto" || prefix == ""
		if takeFirst {
			prefix = ""
		}
		if err := midiContext.TryToOpenBy(prefix, takeFirst); err != nil {
			fmt.Fprintf(os.Stderr, "could not open MIDI input: %v\n", err)
			os.Exit(1)
		}
	}

	if *record != "" {
		engine.TrySend(broker.ToEngine, any(engine.StartCaptureMsg{}))
	}
	engine.TrySend(broker.ToEngine, any(engine.LoopMsg{Enabled: *loop}))

	list := &playlist{broker: broker, paths: flag.Args()}
	list.startNext()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()
	idle := 0
	for {
		select {
		case <-interrupt:
			finish(eng, broker, *record)
			return
		case now := <-ticker.C:
			eng.Update(now)
			playing, replaying := drainUI(broker)
			if playing || replaying {
				idle = 0
				continue
			}
			// one spare cycle so a freshly dispatched item has a chance
			// to reach the engine before we judge it finished
			if idle++; idle < 2 {
				continue
			}
			idle = 0
			if !list.startNext() && !*live {
				finish(eng, broker, *record)
				return
			}
		}
	}
}

// playlist feeds the positional arguments to the engine one at a time, so
// several files play back to back instead of each load clobbering the
// previous one. Recordings that fail to load are skipped with a message.
type playlist struct {
	broker *engine.Broker
	paths  []string
}

// startNext dispatches the next playable item, reporting false when the
// playlist is exhausted.
func (p *playlist) startNext() bool {
	for len(p.paths) > 0 {
		filename := p.paths[0]
		p.paths = p.paths[1:]
		if isRecordingPath(filename) {
			rec, err := pianola.LoadRecording(filename)
			if err != nil {
				fmt.Fprintf(os.Stderr, "could not load recording %v: %v\n", filename, err)
				continue
			}
			engine.TrySend(p.broker.ToEngine, any(engine.StartReplayMsg{Recording: rec}))
			return true
		}
		engine.TrySend(p.broker.ToEngine, any(engine.LoadMsg{Path: filename}))
		engine.TrySend(p.broker.ToEngine, any(engine.PlayMsg{}))
		return true
	}
	return false
}

// drainUI consumes pending state snapshots, printing progress for the last
// one, and reports whether the engine is still busy.
func drainUI(broker *engine.Broker) (playing, replaying bool) {
	var last *engine.MsgToUI
	for {
		select {
		case msg := <-broker.ToUI:
			last = &msg
		default:
			if last == nil {
				return false, false
			}
			if last.Status != "" {
				fmt.Fprintln(os.Stderr, last.Status)
			}
			if last.Playing {
				fmt.Fprintf(os.Stderr, "\r%v / %v", last.Position.Round(time.Second), last.Length.Round(time.Second))
			}
			return last.Playing, last.Replaying
		}
	}
}

// finish stops the engine and, when capturing, seals the capture and writes
// it to the requested path.
func finish(eng *engine.Engine, broker *engine.Broker, recordPath string) {
	fmt.Fprintln(os.Stderr)
	if recordPath == "" {
		return
	}
	engine.TrySend(broker.ToEngine, any(engine.StopCaptureMsg{}))
	eng.Update(time.Now())
	for {
		select {
		case msg := <-broker.ToUI:
			if rec, ok := msg.Data.(*pianola.Recording); ok {
				if err := rec.Save(recordPath); err != nil {
					fmt.Fprintf(os.Stderr, "could not save recording: %v\n", err)
					return
				}
				fmt.Fprintf(os.Stderr, "recording saved to %v\n", recordPath)
				return
			}
		default:
			return
		}
	}
}

func render(filename, directory string, wavOut, rawOut, pcm bool) error {
	seq, err := pianola.ReadSequenceFile(filename)
	if err != nil {
		return err
	}
	buffer, err := pianola.RenderSequence(seq, pianola.NewWaveBank())
	if err != nil {
		return err
	}
	output := func(extension string, contents []byte) error {
		_, name := filepath.Split(filename)
		dir := directory
		if dir == "" {
			if dir, err = os.Getwd(); err != nil {
				return fmt.Errorf("could not get working directory, specify the output directory explicitly: %w", err)
			}
		}
		name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("could not create output directory %v: %w", dir, err)
		}
		f := filepath.Join(dir, name)
		if err := os.WriteFile(f, contents, 0644); err != nil {
			return fmt.Errorf("could not write file %v: %w", f, err)
		}
		return nil
	}
	if wavOut {
		wav, err := pianola.Wav(buffer, pcm)
		if err != nil {
			return fmt.Errorf("could not generate .wav file: %w", err)
		}
		if err := output(".wav", wav); err != nil {
			return err
		}
	}
	if rawOut {
		raw, err := pianola.Raw(buffer, pcm)
		if err != nil {
			return fmt.Errorf("could not generate .raw file: %w", err)
		}
		if err := output(".raw", raw); err != nil {
			return err
		}
	}
	return nil
}

func isRecordingPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yml", ".yaml":
		return true
	}
	return false
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Pianola command line utility for playing .mid files and captured recordings.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
