// ABOUTME: WebSocket server for the audio source side
// ABOUTME: Manages sink connections, handshakes, and frame broadcast
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/dcam0050/DoraROSBridge/internal/discovery"
	"github.com/dcam0050/DoraROSBridge/internal/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Config holds server configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool
	Debug      bool
	AudioFile  string // Path to audio file to stream (WAV, MP3, FLAC, OGG). Empty = test tone
}

// Server streams audio frames to connected sinks
type Server struct {
	config   Config
	sourceID string

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// HTTP server
	httpServer *http.Server
	mux        *http.ServeMux

	// Sink management
	sinks   map[string]*Sink
	sinksMu sync.RWMutex

	// Audio streaming
	source   Source
	streamer *Streamer

	// mDNS discovery
	mdnsManager *discovery.Manager

	// Control
	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Sink represents a connected sink
type Sink struct {
	ID   string
	Name string
	Conn *websocket.Conn

	// Last reported playback state
	State     string
	Volume    int
	Muted     bool
	Underruns uint64
	Dropped   uint64

	// Output channel for messages
	sendChan chan interface{}

	mu sync.RWMutex
}

// New creates a new server instance
func New(config Config) *Server {
	mux := http.NewServeMux()

	return &Server{
		config:   config,
		sourceID: uuid.New().String(),
		mux:      mux,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Non-browser sinks send no Origin header. This server is
				// meant for trusted local networks only.
				return true
			},
		},
		sinks:    make(map[string]*Sink),
		stopChan: make(chan struct{}),
	}
}

// Start runs the server until Stop is called or the listener fails
func (s *Server) Start() error {
	log.Printf("Source starting: %s (ID: %s)", s.config.Name, s.sourceID)

	source, err := NewSource(s.config.AudioFile)
	if err != nil {
		return fmt.Errorf("failed to open audio source: %w", err)
	}
	s.source = source
	s.streamer = NewStreamer(source, s.Broadcast)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	s.mux.HandleFunc("/audio", s.handleWebSocket)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.streamer.Run()
	}()

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("WebSocket server listening on %s", addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Source shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	// Reject new connections while tearing down
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	s.streamer.Stop()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	if err := s.source.Close(); err != nil {
		log.Printf("Error closing audio source: %v", err)
	}

	// Shutdown does not touch hijacked WebSocket connections; close them
	// so the per-sink goroutines can exit before wg.Wait
	s.sinksMu.RLock()
	for _, sink := range s.sinks {
		sink.Conn.Close()
	}
	s.sinksMu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	log.Printf("Source stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// handleWebSocket upgrades incoming connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)

	s.handleConnection(conn)
}

// handleConnection manages one sink connection. The source announces its
// stream first; the sink acknowledges with sink/hello.
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		log.Printf("Rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	hello := protocol.Message{
		Type: "source/hello",
		Payload: protocol.SourceHello{
			SourceID:   s.sourceID,
			Name:       s.config.Name,
			Version:    protocol.ProtocolVersion,
			Format:     "S16LE",
			SampleRate: s.source.SampleRate(),
			Channels:   s.source.Channels(),
		},
	}
	data, err := json.Marshal(hello)
	if err != nil {
		log.Printf("Error marshaling source hello: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("Error sending source hello: %v", err)
		return
	}

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, data, err = conn.ReadMessage()
	if err != nil {
		log.Printf("Error reading sink hello: %v", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	if msg.Type != "sink/hello" {
		log.Printf("Expected sink/hello, got %s", msg.Type)
		return
	}

	helloData, err := json.Marshal(msg.Payload)
	if err != nil {
		log.Printf("Error marshaling hello payload: %v", err)
		return
	}

	var sinkHello protocol.SinkHello
	if err := json.Unmarshal(helloData, &sinkHello); err != nil {
		log.Printf("Error unmarshaling sink hello: %v", err)
		return
	}

	if sinkHello.SinkID == "" {
		log.Printf("Sink hello missing SinkID")
		return
	}
	if sinkHello.Name == "" {
		log.Printf("Sink hello missing Name")
		return
	}

	log.Printf("Sink hello: %s (ID: %s)", sinkHello.Name, sinkHello.SinkID)

	sink := &Sink{
		ID:       sinkHello.SinkID,
		Name:     sinkHello.Name,
		Conn:     conn,
		State:    "stopped",
		Volume:   100,
		sendChan: make(chan interface{}, 100),
	}

	// Register atomically, rejecting duplicate IDs
	s.sinksMu.Lock()
	if existing, exists := s.sinks[sink.ID]; exists {
		s.sinksMu.Unlock()
		log.Printf("Sink ID %s already connected (name: %s), rejecting duplicate", sink.ID, existing.Name)

		errorMsg := protocol.Message{
			Type: "source/error",
			Payload: map[string]string{
				"error":   "duplicate_sink_id",
				"message": "Sink ID already connected",
			},
		}
		if data, err := json.Marshal(errorMsg); err == nil {
			conn.WriteMessage(websocket.TextMessage, data)
		}
		return
	}
	s.sinks[sink.ID] = sink
	s.sinksMu.Unlock()

	defer func() {
		s.sinksMu.Lock()
		delete(s.sinks, sink.ID)
		s.sinksMu.Unlock()
		close(sink.sendChan)
		log.Printf("Sink disconnected: %s", sink.Name)
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sinkWriter(sink)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		s.handleSinkMessage(sink, data)
	}
}

// sinkWriter drains the sink's send queue onto the wire
func (s *Server) sinkWriter(sink *Sink) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-sink.sendChan:
			if !ok {
				return
			}

			switch v := msg.(type) {
			case []byte:
				sink.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := sink.Conn.WriteMessage(websocket.BinaryMessage, v); err != nil {
					log.Printf("Error writing binary message: %v", err)
					return
				}
			default:
				data, err := json.Marshal(v)
				if err != nil {
					log.Printf("Error marshaling message: %v", err)
					continue
				}
				sink.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := sink.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
					log.Printf("Error writing text message: %v", err)
					return
				}
			}

		case <-ticker.C:
			if err := sink.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

// handleSinkMessage processes messages from sinks
func (s *Server) handleSinkMessage(sink *Sink, data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	switch msg.Type {
	case "sink/update":
		s.handleSinkUpdate(sink, msg.Payload)
	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// handleSinkUpdate records state reported by a sink
func (s *Server) handleSinkUpdate(sink *Sink, payload interface{}) {
	stateData, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshaling state payload: %v", err)
		return
	}

	var state protocol.SinkState
	if err := json.Unmarshal(stateData, &state); err != nil {
		log.Printf("Error unmarshaling sink state: %v", err)
		return
	}

	sink.mu.Lock()
	sink.State = state.State
	sink.Volume = state.Volume
	sink.Muted = state.Muted
	sink.Underruns = state.Underruns
	sink.Dropped = state.Dropped
	sink.mu.Unlock()

	if s.config.Debug {
		log.Printf("[DEBUG] Sink %s state: %s (vol: %d, muted: %v, underruns: %d)",
			sink.Name, state.State, state.Volume, state.Muted, state.Underruns)
	}
}

// Broadcast queues a binary frame for every connected sink
func (s *Server) Broadcast(frame []byte) {
	s.sinksMu.RLock()
	defer s.sinksMu.RUnlock()

	for _, sink := range s.sinks {
		if err := s.sendBinary(sink, frame); err != nil {
			log.Printf("Dropping frame for %s: %v", sink.Name, err)
		}
	}
}

// sendBinary queues binary data for a sink
func (s *Server) sendBinary(sink *Sink, data []byte) error {
	select {
	case sink.sendChan <- data:
		return nil
	default:
		return fmt.Errorf("sink send buffer full")
	}
}

// SinkCount returns the number of connected sinks
func (s *Server) SinkCount() int {
	s.sinksMu.RLock()
	defer s.sinksMu.RUnlock()
	return len(s.sinks)
}
