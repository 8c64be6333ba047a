// ABOUTME: Entry point for the audio source node
// ABOUTME: Parses CLI flags and starts the WebSocket streaming server
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dcam0050/DoraROSBridge/internal/server"
	"github.com/dcam0050/DoraROSBridge/internal/version"
)

var (
	port      = flag.Int("port", 8927, "WebSocket server port")
	name      = flag.String("name", "", "Source friendly name (default: hostname-audio-source)")
	logFile   = flag.String("log-file", "audio-source.log", "Log file path")
	debug     = flag.Bool("debug", false, "Enable debug logging")
	noMDNS    = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	audioFile = flag.String("audio", "", "Audio file to stream (WAV, MP3, FLAC, OGG). If not specified, plays test tone")
)

func main() {
	flag.Parse()

	// Set up logging (both file and console)
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	// Log to both file and stdout
	multiWriter := io.MultiWriter(os.Stdout, f)
	log.SetOutput(multiWriter)

	// Determine source name
	sourceName := *name
	if sourceName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		sourceName = fmt.Sprintf("%s-audio-source", hostname)
	}

	log.Printf("%s v%s", version.Manufacturer, version.Version)
	log.Printf("Starting audio source: %s on port %d", sourceName, *port)
	if *debug {
		log.Printf("Debug logging enabled")
	}
	log.Printf("Logging to: %s", *logFile)
	log.Printf("Press Ctrl-C to stop")

	// Create server
	config := server.Config{
		Port:       *port,
		Name:       sourceName,
		EnableMDNS: !*noMDNS,
		Debug:      *debug,
		AudioFile:  *audioFile,
	}

	srv := server.New(config)

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("\nReceived %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	// Start server
	if err := srv.Start(); err != nil {
		log.Fatalf("Source error: %v", err)
	}

	log.Printf("Source stopped")
}
