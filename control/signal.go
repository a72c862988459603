// Package control turns operator keystrokes into simulator control signals.
package control

// Signal is an operator request to the simulator.
type Signal int

// Control signals.
const (
	// Terminate stops the clock and every unit.
	Terminate Signal = iota
	// TogglePause pauses a running clock or resumes a paused one.
	TogglePause
)

// Keys recognized by Decode.
const (
	KeyCtrlC  byte = 3
	KeyEscape byte = 27
	KeySpace  byte = ' '
)

// String returns the signal name.
func (s Signal) String() string {
	switch s {
	case Terminate:
		return "terminate"
	case TogglePause:
		return "toggle-pause"
	default:
		return "unknown"
	}
}

// Decode maps a keystroke to a signal. Keys without a binding report false.
func Decode(b byte) (Signal, bool) {
	switch b {
	case KeyEscape, KeyCtrlC:
		return Terminate, true
	case KeySpace:
		return TogglePause, true
	default:
		return 0, false
	}
}
