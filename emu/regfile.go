// Package emu provides the architectural state shared by the pipeline units.
package emu

import (
	"fmt"
	"sync"

	"github.com/sarchlab/sparcsim/insts"
)

// RegFile represents the integer working register file.
// It holds the 32 registers of the current window and the index of that
// window. All methods are safe for concurrent use; the clock reads the file
// for the status dump while units may write it.
type RegFile struct {
	mu sync.RWMutex

	// R holds the registers of the current window.
	R [insts.NumRegs]int64

	// Window is the index of the register window currently displayed.
	Window int
}

// ReadReg reads a register value. Out-of-range registers (including the
// NoReg sentinel) read as 0.
func (r *RegFile) ReadReg(reg uint8) int64 {
	if int(reg) >= insts.NumRegs {
		return 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.R[reg]
}

// WriteReg writes a value to a register. Writes to out-of-range registers
// are ignored.
func (r *RegFile) WriteReg(reg uint8, value int64) {
	if int(reg) >= insts.NumRegs {
		return
	}

	r.mu.Lock()
	r.R[reg] = value
	r.mu.Unlock()
}

// SetWindow selects the register window.
func (r *RegFile) SetWindow(w int) {
	r.mu.Lock()
	r.Window = w
	r.mu.Unlock()
}

// Snapshot returns a consistent copy of the registers and the window index.
func (r *RegFile) Snapshot() ([insts.NumRegs]int64, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.R, r.Window
}

// Dump renders the register file as display lines: a header naming the
// window followed by one "[index] value" line per register.
func (r *RegFile) Dump() []string {
	regs, window := r.Snapshot()

	lines := make([]string, 0, len(regs)+2)
	lines = append(lines,
		fmt.Sprintf("Register Window #%d", window),
		"--------------------",
	)
	for i, v := range regs {
		lines = append(lines, fmt.Sprintf("[%d] %d", i, v))
	}

	return lines
}
