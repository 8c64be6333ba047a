// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the sink UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// VolumeControl carries user input from the TUI back to the engine
type VolumeControl struct {
	Changes chan int  // new volume, 0-100
	Mutes   chan bool // new mute state
	Quit    chan struct{}
}

// NewVolumeControl creates a new volume control handler
func NewVolumeControl() *VolumeControl {
	return &VolumeControl{
		Changes: make(chan int, 10),
		Mutes:   make(chan bool, 10),
		Quit:    make(chan struct{}, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(volCtrl *VolumeControl) Model {
	return Model{
		volume:     100,
		state:      "stopped",
		volumeCtrl: volCtrl,
	}
}

// Run starts the TUI
func Run(volCtrl *VolumeControl) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(volCtrl), tea.WithAltScreen())
	return p, nil
}
