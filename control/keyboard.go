package control

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/sarchlab/sparcsim/trace"
)

// Keyboard reads keystrokes and emits the signals they are bound to.
//
// When the input is a terminal it is switched to raw mode so that single
// keys arrive without waiting for Enter, and Ctrl-C arrives as a byte
// instead of raising SIGINT. Stop restores the terminal.
type Keyboard struct {
	in  io.Reader
	log logrus.FieldLogger

	signals  chan Signal
	stopCh   chan struct{}
	stopOnce sync.Once

	fd       int
	oldState *term.State
}

// KeyboardOption is a functional option for configuring the Keyboard.
type KeyboardOption func(*Keyboard)

// WithLogger sets the trace logger.
func WithLogger(l logrus.FieldLogger) KeyboardOption {
	return func(k *Keyboard) {
		k.log = l
	}
}

// NewKeyboard creates a keyboard reading from in.
func NewKeyboard(in io.Reader, opts ...KeyboardOption) *Keyboard {
	k := &Keyboard{
		in:      in,
		signals: make(chan Signal),
		stopCh:  make(chan struct{}),
		fd:      -1,
	}

	for _, opt := range opts {
		opt(k)
	}

	if k.log == nil {
		k.log = trace.Discard()
	}

	return k
}

// Signals returns the channel signals are delivered on. It is closed when
// the input ends or reading fails.
func (k *Keyboard) Signals() <-chan Signal {
	return k.signals
}

// Raw reports whether the input terminal is in raw mode.
func (k *Keyboard) Raw() bool {
	return k.oldState != nil
}

// Start puts a terminal input into raw mode and begins reading.
func (k *Keyboard) Start() error {
	if f, ok := k.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fd := int(f.Fd())
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("failed to set raw mode: %w", err)
		}
		k.fd = fd
		k.oldState = oldState
	}

	go k.read()

	return nil
}

func (k *Keyboard) read() {
	defer close(k.signals)

	buf := make([]byte, 1)
	for {
		n, err := k.in.Read(buf)
		if n > 0 {
			if sig, ok := Decode(buf[0]); ok {
				k.log.WithField("key", buf[0]).Info("control ", sig)
				select {
				case k.signals <- sig:
				case <-k.stopCh:
					return
				}
			}
		}
		if err != nil {
			if err != io.EOF {
				k.log.WithError(err).Warn("keyboard read failed")
			}
			return
		}
	}
}

// Stop stops delivering signals and restores the terminal. A read already
// blocked on the input is abandoned.
func (k *Keyboard) Stop() {
	k.stopOnce.Do(func() {
		close(k.stopCh)
		if k.oldState != nil {
			_ = term.Restore(k.fd, k.oldState)
			k.oldState = nil
		}
	})
}
