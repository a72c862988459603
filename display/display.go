// Package display provides the panels the simulator reports its state to.
//
// The core only produces text: each unit replaces the content of its panel
// with a list of lines. Renderers decide how the panels reach the user.
package display

import "sync"

// Panel identifies one display area.
type Panel int

// Display panels, left to right.
const (
	PanelIssue Panel = iota
	PanelRegisters
	PanelInteger
	PanelFloat
	NumPanels
)

var panelTitles = [NumPanels]string{
	"Instruction Issue unit",
	"Integer Working Register File",
	"Integer unit",
	"Float unit",
}

// Title returns the heading of the panel.
func (p Panel) Title() string {
	if p < 0 || p >= NumPanels {
		return "unknown"
	}
	return panelTitles[p]
}

// Display receives panel updates. Implementations must be safe for
// concurrent use; every unit reports from its own goroutine.
type Display interface {
	// Show replaces the content of a panel.
	Show(p Panel, lines []string)
}

// Discard is a Display that drops every update.
type Discard struct{}

// Show implements Display.
func (Discard) Show(Panel, []string) {}

// Recorder is a Display that keeps the latest content of each panel and
// counts updates.
type Recorder struct {
	mu      sync.Mutex
	panels  [NumPanels][]string
	updates [NumPanels]int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Show implements Display.
func (r *Recorder) Show(p Panel, lines []string) {
	if p < 0 || p >= NumPanels {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.panels[p] = append([]string(nil), lines...)
	r.updates[p]++
}

// Lines returns the latest content of a panel.
func (r *Recorder) Lines(p Panel) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.panels[p]...)
}

// Updates returns how many times a panel has been shown.
func (r *Recorder) Updates(p Panel) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.updates[p]
}
