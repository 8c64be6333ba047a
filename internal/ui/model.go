// ABOUTME: Bubbletea model for the sink TUI
// ABOUTME: Defines application state and update logic
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// Connection
	connected  bool
	sourceName string

	// Stream
	format     string
	sampleRate int
	channels   int

	// Playback
	state  string
	volume int
	muted  bool

	// Stats
	packets    int64
	bufferedMs int
	underruns  uint64
	dropped    uint64

	// Debug
	showDebug    bool
	malformed    uint64
	unsupported  uint64
	measuredRate float64

	// Controls
	volumeCtrl *VolumeControl

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderStreamInfo()
	s += m.renderControls()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders connection and playback state
func (m Model) renderHeader() string {
	connStatus := "Disconnected"
	if m.connected {
		connStatus = fmt.Sprintf("Connected to %s", m.sourceName)
	}

	return fmt.Sprintf(`┌─ Audio Sink ─────────────────────────────────────┐
│ Status: %-41s│
│ State:  %-41s│
├──────────────────────────────────────────────────┤
`, truncate(connStatus, 41), truncate(m.state, 41))
}

// renderStreamInfo renders the current stream format
func (m Model) renderStreamInfo() string {
	if !m.connected || m.format == "" {
		return "│ No stream                                        │\n"
	}

	info := fmt.Sprintf("%s %dHz %s", m.format, m.sampleRate, channelName(m.channels))
	return fmt.Sprintf("│ Format: %-41s│\n", truncate(info, 41))
}

// renderControls renders volume and buffer status
func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " muted"
	}

	volumeBar := renderBar(m.volume, 100, 10)
	volume := fmt.Sprintf("[%s] %d%%%s", volumeBar, m.volume, muteIcon)
	buffer := fmt.Sprintf("%dms", m.bufferedMs)

	return fmt.Sprintf("│ Volume: %-41s│\n│ Buffer: %-41s│\n",
		volume, buffer)
}

// renderStats renders playback statistics
func (m Model) renderStats() string {
	stats := fmt.Sprintf("RX: %d  Underruns: %d  Dropped: %d",
		m.packets, m.underruns, m.dropped)

	return fmt.Sprintf(`├──────────────────────────────────────────────────┤
│ Stats:  %-41s│
`, truncate(stats, 41))
}

// renderDebug renders diagnostics from the stats collector
func (m Model) renderDebug() string {
	debug := fmt.Sprintf("malformed=%d unsupported=%d rate=%.0fHz",
		m.malformed, m.unsupported, m.measuredRate)

	return fmt.Sprintf("│ Debug:  %-41s│\n", truncate(debug, 41))
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ ↑/↓:Volume  m:Mute  d:Debug  q:Quit              │
└──────────────────────────────────────────────────┘
`
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.volumeCtrl != nil {
			select {
			case m.volumeCtrl.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "up":
		m.volume += 5
		if m.volume > 100 {
			m.volume = 100
		}
		m.pushVolume()
	case "down":
		m.volume -= 5
		if m.volume < 0 {
			m.volume = 0
		}
		m.pushVolume()
	case "m":
		m.muted = !m.muted
		if m.volumeCtrl != nil {
			select {
			case m.volumeCtrl.Mutes <- m.muted:
			default:
			}
		}
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// pushVolume forwards the current volume to the control channel
func (m Model) pushVolume() {
	if m.volumeCtrl == nil {
		return
	}
	select {
	case m.volumeCtrl.Changes <- m.volume:
	default:
	}
}

// applyStatus updates model from a status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Connected != nil {
		m.connected = *msg.Connected
	}
	if msg.SourceName != "" {
		m.sourceName = msg.SourceName
	}
	if msg.Format != "" {
		m.format = msg.Format
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Volume != 0 {
		m.volume = msg.Volume
	}
	if msg.Packets != 0 {
		m.packets = msg.Packets
		m.bufferedMs = msg.BufferedMs
		m.underruns = msg.Underruns
		m.dropped = msg.Dropped
		m.malformed = msg.Malformed
		m.unsupported = msg.Unsupported
		m.measuredRate = msg.MeasuredRate
	}
}

// StatusMsg updates TUI state. Zero-valued fields are skipped so callers can
// send partial updates; the stats group is applied together once packets flow.
type StatusMsg struct {
	Connected    *bool
	SourceName   string
	Format       string
	SampleRate   int
	Channels     int
	State        string
	Volume       int
	Packets      int64
	BufferedMs   int
	Underruns    uint64
	Dropped      uint64
	Malformed    uint64
	Unsupported  uint64
	MeasuredRate float64
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}
