// Package core provides the clock-synchronized front-end model.
// It wires the clock, the issue and integer units, the group queue and the
// register file together and runs them as concurrent contexts.
package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/sparcsim/control"
	"github.com/sarchlab/sparcsim/display"
	"github.com/sarchlab/sparcsim/emu"
	"github.com/sarchlab/sparcsim/timing/cache"
	"github.com/sarchlab/sparcsim/timing/clock"
	"github.com/sarchlab/sparcsim/timing/config"
	"github.com/sarchlab/sparcsim/timing/pipeline"
	"github.com/sarchlab/sparcsim/trace"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the number of clock pulses broadcast.
	Cycles uint64
	// Issue holds issue unit statistics.
	Issue pipeline.IssueStats
	// Integer holds integer unit statistics.
	Integer pipeline.IntegerStats
	// ICache holds instruction cache statistics.
	ICache cache.Statistics
	// Queued is the number of groups waiting in the queue.
	Queued int
}

// Option is a functional option for configuring the Core.
type Option func(*Core)

// WithConfig sets the simulation parameters.
func WithConfig(cfg *config.SimConfig) Option {
	return func(c *Core) {
		c.cfg = cfg.Clone()
	}
}

// WithDisplay sets the display collaborator.
func WithDisplay(d display.Display) Option {
	return func(c *Core) {
		c.display = d
	}
}

// WithLogger sets the trace logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Core) {
		c.log = l
	}
}

// Core represents the simulated front end.
type Core struct {
	cfg     *config.SimConfig
	display display.Display
	log     logrus.FieldLogger

	regFile *emu.RegFile
	clock   *clock.Clock
	queue   *pipeline.GroupQueue
	icache  *cache.Cache
	issue   *pipeline.IssueUnit
	integer *pipeline.IntegerUnit

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewCore creates a core fetching from source and dumping regFile on every
// clock pulse.
func NewCore(regFile *emu.RegFile, source pipeline.LineSource, opts ...Option) *Core {
	c := &Core{
		cfg:     config.DefaultSimConfig(),
		display: display.Discard{},
		regFile: regFile,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.log == nil {
		c.log = trace.Discard()
	}

	c.clock = clock.New(
		clock.WithPeriod(c.cfg.ClockPeriod()),
		clock.WithMaxCycles(c.cfg.MaxCycles),
		clock.WithLogger(trace.ForUnit(c.log, "CLK")),
		clock.WithPulseHook(c.dumpRegisters),
	)
	c.queue = pipeline.NewGroupQueue(c.cfg.QueueCapacity)
	c.icache = cache.New(c.cfg.ICache)
	c.issue = pipeline.NewIssueUnit(source, c.queue,
		pipeline.WithFetchWidth(c.cfg.FetchWidth),
		pipeline.WithICache(c.icache),
		pipeline.WithIssueDisplay(c.display),
		pipeline.WithIssueLogger(c.log),
	)
	c.integer = pipeline.NewIntegerUnit(
		pipeline.WithIntegerDisplay(c.display),
		pipeline.WithIntegerLogger(c.log),
	)

	return c
}

func (c *Core) dumpRegisters(uint64) {
	c.display.Show(display.PanelRegisters, c.regFile.Dump())
}

// Clock returns the core's clock.
func (c *Core) Clock() *clock.Clock {
	return c.clock
}

// Queue returns the group queue between the units.
func (c *Core) Queue() *pipeline.GroupQueue {
	return c.queue
}

// IssueUnit returns the instruction issue unit.
func (c *Core) IssueUnit() *pipeline.IssueUnit {
	return c.issue
}

// IntegerUnit returns the integer execution unit.
func (c *Core) IntegerUnit() *pipeline.IntegerUnit {
	return c.integer
}

// Run starts the clock and both units and blocks until the clock stops,
// ctx is done, or a unit fails. The first unit error is returned. A core
// runs at most once.
func (c *Core) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	// Every run starts from a cold instruction cache.
	c.icache.Reset()

	// Subscribe before the clock starts so no unit misses the first pulse.
	issueSub := c.clock.Subscribe()
	integerSub := c.clock.Subscribe()

	c.display.Show(display.PanelRegisters, c.regFile.Dump())
	c.display.Show(display.PanelFloat, nil)

	c.log.WithFields(logrus.Fields{
		"period":      c.clock.Period(),
		"max_cycles":  c.cfg.MaxCycles,
		"fetch_width": c.cfg.FetchWidth,
	}).Info("simulation started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.clock.Run(gctx)
	})
	g.Go(func() error {
		return c.issue.Run(gctx, issueSub)
	})
	g.Go(func() error {
		return c.integer.Run(gctx, integerSub)
	})

	err := g.Wait()
	if err != nil {
		c.log.WithError(err).Error("simulation failed")
		return fmt.Errorf("simulation: %w", err)
	}

	c.log.WithField("cycles", c.clock.Cycle()).Info("simulation finished")

	return nil
}

// TogglePause pauses or resumes the clock and reports whether it is now
// paused.
func (c *Core) TogglePause() bool {
	return c.clock.TogglePause()
}

// Shutdown stops the clock and every unit. It is safe to call from any
// goroutine, more than once, and before Run.
func (c *Core) Shutdown() {
	c.clock.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
}

// HandleSignal applies an operator control signal.
func (c *Core) HandleSignal(sig control.Signal) {
	c.log.WithField("signal", sig.String()).Info("control signal")

	switch sig {
	case control.Terminate:
		c.Shutdown()
	case control.TogglePause:
		c.TogglePause()
	}
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	return Stats{
		Cycles:  c.clock.Cycle(),
		Issue:   c.issue.Stats(),
		Integer: c.integer.Stats(),
		ICache:  c.icache.Stats(),
		Queued:  c.queue.Len(),
	}
}
