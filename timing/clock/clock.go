// Package clock provides the shared clock that advances all pipeline units
// in lockstep.
//
// Units subscribe once at start-up and then call Tick in their loop. Every
// pulse is delivered to every subscriber, and a pulse is not complete until
// each subscriber has taken it, so a unit can never miss a cycle or run
// ahead of the others.
//
// Usage:
//
//	clk := clock.New(clock.WithPeriod(time.Second))
//	sub := clk.Subscribe()
//	go clk.Run(ctx)
//	for {
//		cycle, err := sub.Tick(ctx)
//		...
//	}
package clock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sparcsim/trace"
)

// DefaultPeriod is the wall-clock length of one cycle.
const DefaultPeriod = time.Second

// ErrStopped is returned by Tick and Pulse once the clock has stopped.
var ErrStopped = errors.New("clock stopped")

// PulseHook runs on the clock goroutine just before a pulse is broadcast.
type PulseHook func(cycle uint64)

// Option configures a Clock.
type Option func(c *Clock)

// WithPeriod sets the time quantum between pulses.
func WithPeriod(d time.Duration) Option {
	return func(c *Clock) {
		c.period = d
	}
}

// WithMaxCycles stops the clock after n pulses. Zero means no limit.
func WithMaxCycles(n uint64) Option {
	return func(c *Clock) {
		c.maxCycles = n
	}
}

// WithPulseHook registers a hook run before every pulse, typically the
// register file status dump.
func WithPulseHook(h PulseHook) Option {
	return func(c *Clock) {
		c.hooks = append(c.hooks, h)
	}
}

// WithLogger sets the trace logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Clock) {
		c.log = l
	}
}

// Clock broadcasts numbered pulses to its subscribers.
type Clock struct {
	period    time.Duration
	maxCycles uint64
	hooks     []PulseHook
	log       logrus.FieldLogger

	subMu sync.Mutex
	subs  []*Subscription

	pulseMu sync.Mutex
	cycleMu sync.Mutex
	cycle   uint64

	gate gate

	stopOnce sync.Once
	stopped  chan struct{}
}

// New creates a clock. The default period is one second.
func New(opts ...Option) *Clock {
	c := &Clock{
		period:  DefaultPeriod,
		stopped: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = trace.Discard()
	}

	return c
}

// Period returns the time quantum between pulses.
func (c *Clock) Period() time.Duration {
	return c.period
}

// Cycle returns the index of the next pulse, which equals the number of
// pulses broadcast so far.
func (c *Clock) Cycle() uint64 {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	return c.cycle
}

// Subscribe registers a new pulse receiver. Subscribe before the clock
// starts so that no pulse is missed.
func (c *Clock) Subscribe() *Subscription {
	sub := &Subscription{
		clock:  c,
		pulses: make(chan uint64),
		done:   make(chan struct{}),
	}

	c.subMu.Lock()
	c.subs = append(c.subs, sub)
	c.subMu.Unlock()

	return sub
}

func (c *Clock) subscribers() []*Subscription {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	live := c.subs[:0]
	for _, s := range c.subs {
		if !s.closed() {
			live = append(live, s)
		}
	}
	c.subs = live

	return append([]*Subscription(nil), live...)
}

// Pulse broadcasts one pulse to every subscriber and advances the cycle
// counter. It returns once every live subscriber has taken the pulse.
func (c *Clock) Pulse(ctx context.Context) (uint64, error) {
	c.pulseMu.Lock()
	defer c.pulseMu.Unlock()

	select {
	case <-c.stopped:
		return 0, ErrStopped
	default:
	}

	cycle := c.Cycle()

	c.log.WithField("cycle", cycle).Infof("{%d}<--clock", cycle)
	for _, h := range c.hooks {
		h(cycle)
	}

	for _, sub := range c.subscribers() {
		select {
		case sub.pulses <- cycle:
		case <-sub.done:
		case <-c.stopped:
			return cycle, ErrStopped
		case <-ctx.Done():
			return cycle, ctx.Err()
		}
	}

	c.cycleMu.Lock()
	c.cycle++
	c.cycleMu.Unlock()

	return cycle, nil
}

// Run emits one pulse per period until ctx is done, the clock is stopped,
// or the cycle limit is reached. While paused no pulse is emitted. When Run
// returns, the clock is stopped and every subscriber is released.
func (c *Clock) Run(ctx context.Context) error {
	defer c.Stop()

	for {
		if c.maxCycles > 0 && c.Cycle() >= c.maxCycles {
			return nil
		}

		if err := c.gate.wait(ctx, c.stopped); err != nil {
			return nil
		}

		select {
		case <-time.After(c.period):
		case <-c.stopped:
			return nil
		case <-ctx.Done():
			return nil
		}

		// A pause requested during the sleep holds back this pulse.
		if err := c.gate.wait(ctx, c.stopped); err != nil {
			return nil
		}

		if _, err := c.Pulse(ctx); err != nil {
			return nil
		}
	}
}

// Pause freezes the clock. Pulses already delivered are unaffected.
func (c *Clock) Pause() {
	c.gate.close()
	c.log.Info("clock paused")
}

// Resume lets a paused clock continue from the same cycle.
func (c *Clock) Resume() {
	c.gate.open()
	c.log.Info("clock resumed")
}

// TogglePause pauses a running clock or resumes a paused one, and reports
// whether the clock is now paused.
func (c *Clock) TogglePause() bool {
	if c.gate.toggle() {
		c.log.Info("clock paused")
		return true
	}
	c.log.Info("clock resumed")
	return false
}

// Paused reports whether the clock is paused.
func (c *Clock) Paused() bool {
	return c.gate.isClosed()
}

// Stop halts the clock and releases every subscriber with ErrStopped.
// It is idempotent and safe to call from any goroutine.
func (c *Clock) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopped)
	})
}

// Done returns a channel closed when the clock stops.
func (c *Clock) Done() <-chan struct{} {
	return c.stopped
}

// Subscription receives the pulses of one clock.
type Subscription struct {
	clock  *Clock
	pulses chan uint64

	closeOnce sync.Once
	done      chan struct{}
}

// Tick blocks until the next pulse and returns its cycle index.
func (s *Subscription) Tick(ctx context.Context) (uint64, error) {
	select {
	case cycle := <-s.pulses:
		return cycle, nil
	case <-s.done:
		return 0, ErrStopped
	case <-s.clock.stopped:
		return 0, ErrStopped
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Close detaches the subscription; the clock no longer waits for it.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Subscription) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
