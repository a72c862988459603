// Package loader provides assembly source loading for the simulator.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// InstructionSize is the size in bytes that one source line occupies in the
// simulated instruction address space.
const InstructionSize = 4

// Program represents a loaded assembly source ready for fetching.
type Program struct {
	// Path is the file the program was read from.
	Path string
	// Lines holds the non-blank source lines in file order.
	Lines []string
}

// Load reads an assembly source file. Blank lines are skipped and trailing
// carriage returns are dropped.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer func() { _ = f.Close() }()

	prog, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read source file %s: %w", path, err)
	}
	prog.Path = path

	return prog, nil
}

// Parse reads assembly source lines from r.
func Parse(r io.Reader) (*Program, error) {
	prog := &Program{}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		prog.Lines = append(prog.Lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return prog, nil
}

// NewReader returns a reader positioned at the first line.
func (p *Program) NewReader() *LineReader {
	return &LineReader{prog: p}
}

// LineReader hands out program lines one at a time.
// It is not safe for concurrent use; the issue unit is its only reader.
type LineReader struct {
	prog *Program
	next int
}

// ReadLine returns the next source line, or io.EOF once the program is
// exhausted.
func (r *LineReader) ReadLine() (string, error) {
	if r.next >= len(r.prog.Lines) {
		return "", io.EOF
	}

	line := r.prog.Lines[r.next]
	r.next++

	return line, nil
}
