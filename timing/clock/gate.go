package clock

import (
	"context"
	"sync"
)

// gate is the run/pause switch of the clock. While closed, wait blocks.
// The zero value is open.
type gate struct {
	mu     sync.Mutex
	closed bool
	resume chan struct{}
}

func (g *gate) close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	g.closed = true
	g.resume = make(chan struct{})
}

func (g *gate) open() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.closed {
		return
	}
	g.closed = false
	close(g.resume)
}

// toggle flips the gate and reports whether it is now closed.
func (g *gate) toggle() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		g.closed = false
		close(g.resume)
		return false
	}
	g.closed = true
	g.resume = make(chan struct{})
	return true
}

func (g *gate) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.closed
}

// wait returns nil once the gate is open, or an error if ctx is done or
// stop is closed first.
func (g *gate) wait(ctx context.Context, stop <-chan struct{}) error {
	for {
		g.mu.Lock()
		if !g.closed {
			g.mu.Unlock()
			return nil
		}
		resume := g.resume
		g.mu.Unlock()

		select {
		case <-resume:
		case <-stop:
			return ErrStopped
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
