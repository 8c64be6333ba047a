// ABOUTME: WebSocket receiver for the sink side of the audio stream
// ABOUTME: Handles connection, handshake, and routing of frames to a packet channel
package receiver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/dcam0050/DoraROSBridge/internal/protocol"
	"github.com/dcam0050/DoraROSBridge/pkg/audio"
	"github.com/gorilla/websocket"
)

// Config holds receiver configuration
type Config struct {
	ServerAddr string // host:port of the audio source
	SinkID     string
	Name       string
}

// Receiver is a WebSocket client that consumes an audio stream. Decoded
// packets are delivered on Packets; the source's announcement on Hello.
type Receiver struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex

	Packets chan audio.Packet
	Hello   chan protocol.SourceHello

	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a receiver. Connect must be called before packets flow.
func New(config Config) *Receiver {
	ctx, cancel := context.WithCancel(context.Background())

	return &Receiver{
		config:  config,
		Packets: make(chan audio.Packet, 100),
		Hello:   make(chan protocol.SourceHello, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Connect establishes the WebSocket connection and performs the handshake.
// The source speaks first: it announces its stream with source/hello and the
// sink acknowledges with sink/hello.
func (r *Receiver) Connect() error {
	u := url.URL{Scheme: "ws", Host: r.config.ServerAddr, Path: "/audio"}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	r.mu.Lock()
	r.conn = conn
	r.connected = true
	r.mu.Unlock()

	if err := r.handshake(); err != nil {
		r.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go r.readMessages()

	return nil
}

// handshake waits for source/hello and acknowledges with sink/hello
func (r *Receiver) handshake() error {
	r.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := r.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read source/hello: %w", err)
	}
	r.conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse source/hello: %w", err)
	}

	if msg.Type != "source/hello" {
		return fmt.Errorf("expected source/hello, got %s", msg.Type)
	}

	payloadBytes, _ := json.Marshal(msg.Payload)
	var hello protocol.SourceHello
	if err := json.Unmarshal(payloadBytes, &hello); err != nil {
		return fmt.Errorf("failed to parse source/hello payload: %w", err)
	}

	log.Printf("Source: %s (format=%s rate=%d channels=%d)",
		hello.Name, hello.Format, hello.SampleRate, hello.Channels)

	ack := protocol.Message{
		Type: "sink/hello",
		Payload: protocol.SinkHello{
			SinkID:  r.config.SinkID,
			Name:    r.config.Name,
			Version: protocol.ProtocolVersion,
		},
	}
	if err := r.sendJSON(ack); err != nil {
		return fmt.Errorf("failed to send sink/hello: %w", err)
	}

	select {
	case r.Hello <- hello:
	default:
	}

	return nil
}

// sendJSON sends a JSON control message
func (r *Receiver) sendJSON(msg protocol.Message) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.connected {
		return fmt.Errorf("not connected")
	}

	return r.conn.WriteJSON(msg)
}

// readMessages reads and routes incoming messages until the connection drops
func (r *Receiver) readMessages() {
	defer r.Close()

	for {
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		messageType, data, err := r.conn.ReadMessage()
		if err != nil {
			log.Printf("Read error: %v", err)
			return
		}

		if messageType == websocket.BinaryMessage {
			r.handleBinaryMessage(data)
		} else if messageType == websocket.TextMessage {
			r.handleJSONMessage(data)
		}
	}
}

// handleBinaryMessage decodes an audio frame and queues it for the engine
func (r *Receiver) handleBinaryMessage(data []byte) {
	pkt, err := protocol.DecodeAudioFrame(data)
	if err != nil {
		log.Printf("Dropping bad frame: %v", err)
		return
	}
	pkt.Received = time.Now()

	select {
	case r.Packets <- pkt:
	case <-r.ctx.Done():
	}
}

// handleJSONMessage routes JSON control messages
func (r *Receiver) handleJSONMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	switch msg.Type {
	case "source/hello":
		// Mid-stream re-announcement; refresh the pending hello
		payloadBytes, _ := json.Marshal(msg.Payload)
		var hello protocol.SourceHello
		if err := json.Unmarshal(payloadBytes, &hello); err != nil {
			log.Printf("Failed to parse source/hello payload: %v", err)
			return
		}
		select {
		case r.Hello <- hello:
		default:
		}

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// SendState sends a sink/update message with current playback state
func (r *Receiver) SendState(state protocol.SinkState) error {
	return r.sendJSON(protocol.Message{
		Type:    "sink/update",
		Payload: state,
	})
}

// Close closes the connection
func (r *Receiver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connected {
		r.connected = false
		r.cancel()
		r.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (r *Receiver) IsConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.connected
}
