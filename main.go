// ABOUTME: Entry point for the noise pomodoro timer
// ABOUTME: Parses CLI flags and wires the timer, audio, TUI and remote control
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harperreed/noise-pomodoro/internal/app"
	"github.com/harperreed/noise-pomodoro/internal/discovery"
	"github.com/harperreed/noise-pomodoro/internal/remote"
	"github.com/harperreed/noise-pomodoro/internal/timer"
	"github.com/harperreed/noise-pomodoro/internal/ui"
	"github.com/harperreed/noise-pomodoro/internal/version"
	"github.com/harperreed/noise-pomodoro/pkg/audio"
	"github.com/harperreed/noise-pomodoro/pkg/audio/generate"
	"github.com/harperreed/noise-pomodoro/pkg/audio/output"
)

var (
	workDuration  = flag.Duration("work", timer.DefaultWorkSeconds*time.Second, "Work interval length")
	breakDuration = flag.Duration("break", timer.DefaultBreakSeconds*time.Second, "Break interval length")
	amplitude     = flag.Float64("amplitude", audio.DefaultAmplitude, "White noise amplitude (0 < a <= 0.3)")
	sampleRate    = flag.Int("sample-rate", audio.DefaultSampleRate, "Output sample rate in Hz")
	chimeFreq     = flag.Float64("chime-freq", generate.DefaultToneFrequency, "Completion chime frequency in Hz")
	chimeDuration = flag.Duration("chime-duration", generate.DefaultToneDuration, "Completion chime length")
	noise         = flag.Bool("noise", true, "Play white noise during work intervals")
	backend       = flag.String("backend", "oto", "Audio backend: oto, malgo or null")
	logFile       = flag.String("log-file", "noise-pomodoro.log", "Log file path")
	noTUI         = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	listen        = flag.String("listen", "", "Remote control address, e.g. :8930 (empty disables)")
	enableMDNS    = flag.Bool("mdns", false, "Advertise the remote control via mDNS (requires -listen)")
	name          = flag.String("name", "", "Friendly name (default: hostname-noise-pomodoro)")
	start         = flag.String("start", "", "Start an interval immediately: work or break")
)

func main() {
	flag.Parse()

	useTUI := !*noTUI

	// Set up logging
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	// Determine friendly name
	pomodoroName := *name
	if pomodoroName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		pomodoroName = fmt.Sprintf("%s-noise-pomodoro", hostname)
	}

	log.Printf("Starting %s: %s", version.String(), pomodoroName)

	var startKind timer.Kind
	if *start != "" {
		startKind, err = timer.ParseKind(*start)
		if err != nil {
			log.Fatalf("Invalid -start: %v", err)
		}
	}

	dev, err := output.New(*backend)
	if err != nil {
		log.Fatalf("Failed to create audio output: %v", err)
	}

	config := app.DefaultConfig()
	config.WorkDuration = *workDuration
	config.BreakDuration = *breakDuration
	config.NoiseEnabled = *noise
	config.Engine.Profile = audio.NoiseProfile{
		SampleRate: *sampleRate,
		Amplitude:  *amplitude,
	}
	config.Engine.ChimeFrequency = *chimeFreq
	config.Engine.ChimeDuration = *chimeDuration

	pomodoro, err := app.New(dev, config)
	if err != nil {
		log.Fatalf("Failed to create pomodoro: %v", err)
	}

	if !useTUI {
		pomodoro.Subscribe(logListener())
	}

	// Remote control
	var remoteServer *remote.Server
	var mdnsManager *discovery.Manager
	if *listen != "" {
		remoteServer = remote.New(remote.Config{
			Addr: *listen,
			Name: pomodoroName,
		}, pomodoro)

		if err := remoteServer.Start(); err != nil {
			log.Fatalf("Failed to start remote control: %v", err)
		}
		pomodoro.Subscribe(remoteServer.Listener())

		if *enableMDNS {
			mdnsManager = discovery.NewManager(discovery.Config{
				ServiceName: pomodoroName,
				Port:        remoteServer.Port(),
				Path:        remote.DefaultPath,
			})
			if err := mdnsManager.Advertise(); err != nil {
				log.Printf("mDNS advertisement failed: %v", err)
			}
		}
	} else if *enableMDNS {
		log.Printf("Ignoring -mdns without -listen")
	}

	// TUI
	var tui *ui.TUI
	tuiDone := make(chan struct{})
	var tuiQuit, tuiExit <-chan struct{}
	if useTUI {
		tui = ui.NewTUI(pomodoro, pomodoro.Snapshot())
		pomodoro.Subscribe(tui.Listener())
		tuiQuit = tui.QuitChan()
		tuiExit = tuiDone

		go func() {
			defer close(tuiDone)
			if err := tui.Start(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
	} else {
		close(tuiDone)
	}

	if startKind != 0 {
		if err := pomodoro.StartInterval(startKind); err != nil {
			log.Printf("Failed to start %s interval: %v", startKind, err)
		}
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for quit signal from TUI or OS
	select {
	case <-tuiQuit:
		log.Printf("Received quit signal from TUI")
	case <-tuiExit:
		log.Printf("TUI exited")
	case sig := <-sigChan:
		log.Printf("Received %v signal, shutting down", sig)
	}

	if tui != nil {
		tui.Stop()
	}
	<-tuiDone

	if err := pomodoro.Close(); err != nil {
		log.Printf("Error closing pomodoro: %v", err)
	}
	if remoteServer != nil {
		remoteServer.Stop()
	}
	if mdnsManager != nil {
		mdnsManager.Stop()
	}

	log.Printf("Pomodoro stopped")
}

// logListener reports progress to the log when running without the TUI
func logListener() app.Listener {
	return app.Listener{
		OnTick: func(s app.Status) {
			if s.Running && s.Remaining%60 == 0 {
				log.Printf("%s: %s remaining (noise %v, engine %s)",
					s.Kind, timer.FormatRemaining(s.Remaining), s.NoiseEnabled, s.Engine)
			}
		},
		OnIntervalComplete: func(s app.Status) {
			log.Printf("%s interval complete", s.Kind)
		},
	}
}
