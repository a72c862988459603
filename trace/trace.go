// Package trace builds the diagnostic trace log of a simulation run.
//
// The trace records every stage execution, clock pulse and decode warning.
// Entries are written straight to the destination without buffering so the
// file follows the simulation in real time.
package trace

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// DefaultPath is the trace file used when none is given.
const DefaultPath = "stderr.out"

// Field keys shared by all trace entries.
const (
	FieldUnit  = "unit"
	FieldStage = "stage"
	FieldCycle = "cycle"
)

// New creates a trace logger writing to w. Verbose enables debug entries
// such as instruction cache probes.
func New(w io.Writer, verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})

	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}

	return l
}

// Open creates a trace logger for path. "-" selects stderr; otherwise the
// file is truncated. The returned closer releases the file.
func Open(path string, verbose bool) (*logrus.Logger, io.Closer, error) {
	if path == "-" {
		return New(os.Stderr, verbose), nopCloser{}, nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create trace file: %w", err)
	}

	return New(f, verbose), f, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

// ForUnit returns a logger tagged with a unit name.
func ForUnit(l logrus.FieldLogger, unit string) logrus.FieldLogger {
	return l.WithField(FieldUnit, unit)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
