package display

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

const (
	ansiHome       = "\x1b[H"
	ansiClear      = "\x1b[2J"
	ansiHideCursor = "\x1b[?25l"
	ansiShowCursor = "\x1b[?25h"

	defaultWidth = 120
)

// Text renders panels as text. On a terminal it redraws all panels side by
// side on every update; otherwise it appends each update as
// "[title] line" records.
type Text struct {
	mu     sync.Mutex
	w      io.Writer
	redraw bool
	width  int
	panels [NumPanels][]string
	closed bool

	newline string
}

// NewText creates a text renderer writing to w. Redrawing is enabled only
// when w is a terminal and plain is false.
func NewText(w io.Writer, plain bool) *Text {
	t := &Text{w: w, width: defaultWidth, newline: "\n"}

	if f, ok := w.(*os.File); ok && !plain && term.IsTerminal(int(f.Fd())) {
		t.redraw = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			t.width = width
		}
		fmt.Fprint(w, ansiHideCursor, ansiClear)
	}

	return t
}

// SetRaw selects CRLF line endings for a terminal in raw mode, where a bare
// line feed no longer returns the cursor to the first column.
func (t *Text) SetRaw(raw bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if raw {
		t.newline = "\r\n"
	} else {
		t.newline = "\n"
	}
}

// Show implements Display.
func (t *Text) Show(p Panel, lines []string) {
	if p < 0 || p >= NumPanels {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}

	t.panels[p] = append([]string(nil), lines...)

	if t.redraw {
		t.draw()
		return
	}

	for _, line := range lines {
		fmt.Fprintf(t.w, "[%s] %s%s", p.Title(), line, t.newline)
	}
}

// draw paints every panel as one column.
func (t *Text) draw() {
	colWidth := t.width / int(NumPanels)
	if colWidth < 8 {
		colWidth = 8
	}

	var b strings.Builder
	b.WriteString(ansiHome)
	b.WriteString(ansiClear)

	rows := 0
	for p := Panel(0); p < NumPanels; p++ {
		b.WriteString(cell("+----"+p.Title(), colWidth))
		if len(t.panels[p]) > rows {
			rows = len(t.panels[p])
		}
	}
	b.WriteString("\r\n")

	for row := 0; row < rows; row++ {
		for p := Panel(0); p < NumPanels; p++ {
			var s string
			if row < len(t.panels[p]) {
				s = "| " + t.panels[p][row]
			} else {
				s = "|"
			}
			b.WriteString(cell(s, colWidth))
		}
		b.WriteString("\r\n")
	}

	fmt.Fprint(t.w, b.String())
}

// cell pads or truncates s to exactly width runes.
func cell(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width-1]) + " "
	}
	return s + strings.Repeat(" ", width-len(r))
}

// Close tears the display down. Later updates are dropped.
func (t *Text) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if t.redraw {
		_, err := fmt.Fprint(t.w, ansiShowCursor, "\r\n")
		return err
	}
	return nil
}

// RawWriter translates line feeds to CRLF for a terminal in raw mode.
type RawWriter struct {
	W io.Writer
}

// Write implements io.Writer.
func (r RawWriter) Write(p []byte) (int, error) {
	if _, err := r.W.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
