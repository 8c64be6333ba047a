// ABOUTME: Control message definitions for the audio streaming protocol
// ABOUTME: Defines the JSON envelope and handshake/state payload structs
package protocol

// ProtocolVersion is the protocol revision spoken by this build.
const ProtocolVersion = 1

// Message is the top-level wrapper for all JSON control messages.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// SourceHello is sent by an audio source to open a session. The format
// fields describe the source's default stream; each binary frame may still
// override them.
type SourceHello struct {
	SourceID   string `json:"source_id"`
	Name       string `json:"name"`
	Version    int    `json:"version"`
	Format     string `json:"format,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// SinkHello is the sink's acknowledgement of a source/hello.
type SinkHello struct {
	SinkID  string `json:"sink_id"`
	Name    string `json:"name"`
	Version int    `json:"version"`
}

// SinkState reports the sink's playback state (sent as sink/update).
type SinkState struct {
	State      string `json:"state"`  // "stopped", "starting", "running", "stopping"
	Volume     int    `json:"volume"` // 0-100
	Muted      bool   `json:"muted"`
	BufferedMs int    `json:"buffered_ms"`
	Underruns  uint64 `json:"underruns"`
	Dropped    uint64 `json:"dropped"`
}
