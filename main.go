// ABOUTME: Entry point for the audio sink node
// ABOUTME: Parses CLI flags, loads env config, and wires receiver, engine, and TUI
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/dcam0050/DoraROSBridge/internal/config"
	"github.com/dcam0050/DoraROSBridge/internal/discovery"
	"github.com/dcam0050/DoraROSBridge/internal/logging"
	"github.com/dcam0050/DoraROSBridge/internal/protocol"
	"github.com/dcam0050/DoraROSBridge/internal/receiver"
	"github.com/dcam0050/DoraROSBridge/internal/ui"
	"github.com/dcam0050/DoraROSBridge/internal/version"
	"github.com/dcam0050/DoraROSBridge/pkg/audio/output"
	"github.com/dcam0050/DoraROSBridge/pkg/playback"
)

var (
	serverAddr    = flag.String("server", "", "Manual source address (skip mDNS)")
	port          = flag.Int("port", 8927, "Source port used when -server has none")
	name          = flag.String("name", "", "Sink friendly name (default: hostname-audio-sink)")
	backend       = flag.String("backend", "malgo", "Output backend: malgo, oto, or portaudio")
	bufferSeconds = flag.Int("buffer-seconds", 5, "Playback buffer bound in seconds")
	logFile       = flag.String("log-file", "audio-sink.log", "Log file path (TUI mode)")
	noTUI         = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	streamLogs    = flag.Bool("stream-logs", false, "Alias for -no-tui")
)

func main() {
	flag.Parse()

	useTUI := !(*noTUI || *streamLogs)

	// TUI mode owns the terminal, so logs go to a file; otherwise zap's
	// default stderr stream is fine
	if useTUI {
		if _, err := logging.InitFile(*logFile); err != nil {
			fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
			os.Exit(1)
		}
	} else {
		logging.Init()
	}

	cfg := config.Load()

	sinkName := *name
	if sinkName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		sinkName = fmt.Sprintf("%s-audio-sink", hostname)
	}

	log.Printf("%s v%s starting: %s", version.Product, version.Version, sinkName)

	out, err := backendOutput(*backend)
	if err != nil {
		log.Fatalf("%v", err)
	}

	// TUI setup
	var tuiProg *tea.Program
	var volumeCtrl *ui.VolumeControl

	if useTUI {
		volumeCtrl = ui.NewVolumeControl()
		tuiProg, err = ui.Run(volumeCtrl)
		if err != nil {
			log.Fatalf("Failed to start TUI: %v", err)
		}
		go tuiProg.Run()
	}

	updateTUI := func(msg ui.StatusMsg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	// Find a source: explicit address wins, otherwise browse mDNS
	var sourceAddress string
	if *serverAddr == "" {
		log.Printf("Starting source discovery...")
		disc := discovery.NewManager(discovery.Config{
			ServiceName: sinkName,
			Port:        *port,
		})
		disc.Browse()

		select {
		case source := <-disc.Sources():
			sourceAddress = fmt.Sprintf("%s:%d", source.Host, source.Port)
			log.Printf("Discovered source at %s", sourceAddress)
		case <-time.After(10 * time.Second):
			log.Fatalf("No source found after 10 seconds")
		}
		disc.Stop()
	} else {
		sourceAddress = *serverAddr
		if !strings.Contains(sourceAddress, ":") {
			sourceAddress = fmt.Sprintf("%s:%d", sourceAddress, *port)
		}
	}

	// The engine is created lazily when AUDIO_SAMPLE_RATE=0, adopting the
	// first packet's declared rate
	var engMu sync.Mutex
	var eng *playback.Engine

	newEngine := func(sampleRate int) *playback.Engine {
		return playback.NewEngine(playback.Config{
			SampleRate:       sampleRate,
			PacketChannels:   cfg.Channels,
			BufferSeconds:    *bufferSeconds,
			AnalyzeOnly:      !cfg.EnablePlayback,
			EnableDebug:      cfg.EnableDebug,
			DebugMaxEntries:  cfg.DebugMaxEntries,
			DebugFile:        cfg.DebugFile,
			WavTapFile:       cfg.WavFile,
			WavTapMaxSeconds: cfg.WavMaxSeconds,
			Output:           out,
			OnStateChange: func(state playback.State) {
				updateTUI(ui.StatusMsg{State: state.String()})
			},
			OnError: func(err error) {
				log.Printf("Playback error: %v", err)
			},
		})
	}

	if cfg.SampleRate > 0 {
		eng = newEngine(cfg.SampleRate)
		if err := eng.Start(); err != nil {
			log.Fatalf("Failed to start playback: %v", err)
		}
	} else {
		log.Printf("AUDIO_SAMPLE_RATE=0: adopting the first packet's rate")
	}

	recv := receiver.New(receiver.Config{
		ServerAddr: sourceAddress,
		SinkID:     uuid.New().String(),
		Name:       sinkName,
	})
	if err := recv.Connect(); err != nil {
		log.Fatalf("Connection failed: %v", err)
	}

	log.Printf("Connected to source: %s", sourceAddress)

	// Ingest loop: first packet may have to start a lazily created engine
	go func() {
		for {
			select {
			case hello := <-recv.Hello:
				connected := true
				updateTUI(ui.StatusMsg{
					Connected:  &connected,
					SourceName: hello.Name,
					Format:     hello.Format,
					SampleRate: hello.SampleRate,
					Channels:   hello.Channels,
				})
			case pkt := <-recv.Packets:
				engMu.Lock()
				if eng == nil {
					rate := pkt.SampleRate
					if rate <= 0 {
						rate = 48000
					}
					log.Printf("First packet declares %d Hz, starting playback", rate)
					eng = newEngine(rate)
					if err := eng.Start(); err != nil {
						engMu.Unlock()
						log.Fatalf("Failed to start playback: %v", err)
					}
				}
				e := eng
				engMu.Unlock()
				e.Ingest(pkt)
			}
		}
	}()

	currentEngine := func() *playback.Engine {
		engMu.Lock()
		defer engMu.Unlock()
		return eng
	}

	if volumeCtrl != nil {
		go handleVolumeControl(currentEngine, volumeCtrl)
	}

	go statsUpdateLoop(currentEngine, recv, updateTUI)

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if volumeCtrl != nil {
		select {
		case <-volumeCtrl.Quit:
			log.Printf("Received quit signal from TUI")
		case <-sigChan:
			log.Printf("Shutdown signal received")
		}
	} else {
		<-sigChan
		log.Printf("Shutdown signal received")
	}

	recv.Close()

	if e := currentEngine(); e != nil {
		if err := e.Stop(); err != nil {
			log.Printf("Error stopping playback: %v", err)
		}
	}

	log.Printf("Sink stopped")
}

// backendOutput maps a backend name to its output implementation
func backendOutput(name string) (output.Output, error) {
	switch name {
	case "malgo":
		return output.NewMalgo(), nil
	case "oto":
		return output.NewOto(), nil
	case "portaudio":
		return output.NewPortAudio(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (expected malgo, oto, or portaudio)", name)
	}
}

// handleVolumeControl forwards TUI volume changes to the engine
func handleVolumeControl(currentEngine func() *playback.Engine, volumeCtrl *ui.VolumeControl) {
	for {
		select {
		case vol := <-volumeCtrl.Changes:
			if eng := currentEngine(); eng != nil {
				log.Printf("Volume change: %d%%", vol)
				eng.SetVolume(vol)
			}
		case muted := <-volumeCtrl.Mutes:
			if eng := currentEngine(); eng != nil {
				log.Printf("Mute: %v", muted)
				eng.SetMuted(muted)
			}
		case <-volumeCtrl.Quit:
			return
		}
	}
}

// statsUpdateLoop periodically refreshes the TUI and reports state upstream
func statsUpdateLoop(currentEngine func() *playback.Engine, recv *receiver.Receiver, updateTUI func(ui.StatusMsg)) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	reportTicker := time.NewTicker(time.Second)
	defer reportTicker.Stop()

	for {
		select {
		case <-ticker.C:
			eng := currentEngine()
			if eng == nil {
				continue
			}
			stats := eng.Stats()

			msg := ui.StatusMsg{
				Packets:     int64(stats.Packets),
				BufferedMs:  int(stats.BufferedSeconds * 1000),
				Underruns:   stats.Underruns,
				Dropped:     stats.Evicted,
				Malformed:   stats.Malformed,
				Unsupported: stats.Unsupported,
			}
			if records := eng.Records(); len(records) > 0 {
				msg.MeasuredRate = records[len(records)-1].MeasuredRate
			}
			updateTUI(msg)

		case <-reportTicker.C:
			eng := currentEngine()
			if eng == nil || !recv.IsConnected() {
				continue
			}
			stats := eng.Stats()

			recv.SendState(protocol.SinkState{
				State:      stats.State.String(),
				Volume:     stats.Volume,
				Muted:      stats.Muted,
				BufferedMs: int(stats.BufferedSeconds * 1000),
				Underruns:  stats.Underruns,
				Dropped:    stats.Evicted,
			})
		}
	}
}
