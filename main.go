// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"ledviz/cmd"
	"ledviz/internal/audio"
	"ledviz/internal/config"
	"ledviz/internal/control"
	"ledviz/internal/effect"
	"ledviz/internal/log"
	"ledviz/internal/profile"
	"ledviz/internal/transport"
	"ledviz/internal/tui"
	"ledviz/internal/visualizer"
	"ledviz/pkg/build"
)

const (
	testPatternInterval = 200 * time.Millisecond
	previewLogFile      = "ledviz.log"
)

// main is the entry point for the visualizer.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load the configuration
//   - Execute one-off commands if requested
//   - Open the device sinks, the audio source and the pipeline
//
// 2. Concurrent Phase (Hot Path):
//   - Capture loop driving the pipeline once per block
//   - Websocket control plane
//   - Terminal preview, if enabled
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals, the end of a replayed file or quitting the preview
//   - Stop recording if active
//   - Close the audio source and the sinks
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
	if opts == nil {
		return
	}

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	opts.Apply(cfg)
	configureLogging(cfg)

	// Handle one-off commands that don't require the pipeline to be running.
	if opts.Command != cmd.CommandRun {
		if err := executeCommand(opts, cfg); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	if err := run(cfg, opts); err != nil {
		log.Fatalf("%v", err)
	}
}

func configureLogging(cfg *config.Config) {
	if cfg.Debug {
		log.SetLevel(log.LevelDebug)
		return
	}
	level, ok := log.ParseLevel(cfg.LogLevel)
	if !ok {
		log.Warnf("unknown log level %q, using %s", cfg.LogLevel, level)
	}
	log.SetLevel(level)
}

func run(cfg *config.Config, opts *cmd.Options) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A replayed file dictates the sample rate the pipeline is built for.
	var source audio.Source
	if cfg.Audio.InputFile != "" {
		f, err := audio.OpenFile(cfg.Audio.InputFile, time.Second/time.Duration(cfg.Audio.FPS), opts.Loop)
		if err != nil {
			return err
		}
		cfg.Audio.MicRate = f.SampleRate()
		source = f
	}

	sinks := make(map[string]visualizer.Sink, len(cfg.Devices))
	for _, dc := range cfg.Devices {
		sink, err := transport.New(dc)
		if err != nil {
			return fmt.Errorf("device %q: %w", dc.Name, err)
		}
		defer sink.Close()
		sinks[dc.Name] = sink
	}

	profiles, err := profile.NewStore(cfg.ProfilesDir)
	if err != nil {
		return err
	}
	o, err := visualizer.New(cfg, sinks, visualizer.Options{Profiles: profiles})
	if err != nil {
		return err
	}

	if source == nil {
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
		mic, err := audio.OpenMic(cfg.Audio, o.SamplesPerFrame())
		if err != nil {
			return err
		}
		source = mic
	}

	engine := audio.NewEngine(source, o.SamplesPerFrame(), func(block []int16) {
		o.ProcessFrame(block)
	})
	o.SetOverflowSource(engine.Overflows)

	if cfg.Recording.Enabled {
		if err := engine.StartRecording(audio.RecordingPath(cfg.Recording.OutputDir, time.Now())); err != nil {
			engine.Close()
			return err
		}
	}

	if opts.Preview {
		// The preview owns the terminal.
		f, err := os.OpenFile(previewLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			engine.Close()
			return err
		}
		defer f.Close()
		log.SetOutput(f)
		defer log.SetOutput(os.Stderr)
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return engine.Run(gctx)
	})
	if cfg.Control.Enabled {
		srv := control.NewServer(o, cfg.Control.Address, cfg.Control.PreviewEvery)
		g.Go(func() error { return srv.ListenAndServe(gctx) })
	}
	if opts.Preview {
		g.Go(func() error {
			defer stop()
			return tui.Run(gctx, o, cfg.Control.PreviewEvery)
		})
	}

	log.Infof("running %d devices; press Ctrl+C to stop", len(cfg.Devices))
	runErr := g.Wait()

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if err := engine.Close(); err != nil {
		log.Errorf("Error closing audio engine: %v", err)
	}
	stats := o.Stats()
	log.Infof("stopped after %d frames (%d overflows, %d send failures)", stats.Frames, stats.Overflows, stats.SendFails)
	return runErr
}

// executeCommand handles one-off commands that don't require the pipeline
// to be running.
func executeCommand(opts *cmd.Options, cfg *config.Config) error {
	switch opts.Command {
	case cmd.CommandList:
		if err := audio.Initialize(); err != nil {
			return err
		}
		defer audio.Terminate()
		return audio.ListDevices(os.Stdout)

	case cmd.CommandEffects:
		return printEffects(os.Stdout)

	case cmd.CommandInitConfig:
		if _, err := os.Stat(opts.Target); err == nil {
			return fmt.Errorf("%s already exists", opts.Target)
		}
		if err := config.Save(opts.Target, cfg); err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", opts.Target)
		return nil

	case cmd.CommandTest:
		dc, ok := cfg.Device(opts.Target)
		if !ok {
			return fmt.Errorf("%w: %s", visualizer.ErrUnknownDevice, opts.Target)
		}
		sink, err := transport.New(*dc)
		if err != nil {
			return err
		}
		defer sink.Close()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Printf("Scrolling a red, green and blue pixel along %s. Press Ctrl+C to stop.\n", dc.Name)
		return transport.TestPattern(ctx, sink, dc.Pixels, testPatternInterval)
	}
	return fmt.Errorf("unknown command %q", opts.Command)
}

func printEffects(w io.Writer) error {
	set := effect.NewSet()
	schemas := set.Schemas(effect.Params{Pixels: config.DefaultPixels, Bands: config.DefaultFFTBins})
	reactive, nonReactive := set.Split()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, group := range []struct {
		title string
		names []string
	}{{"Reactive effects", reactive}, {"Non-reactive effects", nonReactive}} {
		fmt.Fprintf(tw, "%s\n", group.title)
		for _, name := range group.names {
			var keys []string
			for _, spec := range schemas[name] {
				keys = append(keys, fmt.Sprintf("%s=%v", spec.Key, spec.Default))
			}
			fmt.Fprintf(tw, "  %s\t%s\n", name, strings.Join(keys, " "))
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
