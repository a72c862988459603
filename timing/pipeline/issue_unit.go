package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sparcsim/display"
	"github.com/sarchlab/sparcsim/insts"
	"github.com/sarchlab/sparcsim/loader"
	"github.com/sarchlab/sparcsim/timing/cache"
	"github.com/sarchlab/sparcsim/trace"
)

// IssueStage is a stage of the instruction issue unit.
type IssueStage int

// Issue unit stages, in execution order.
const (
	StageAddressGeneration IssueStage = iota // A
	StagePreliminaryFetch                    // P
	StageFetch                               // F
	StageBranchTarget                        // B
	StageGroupFormation                      // I
	StageGroupStaging                        // J
	StageDispatch                            // D
	NumIssueStages
)

var issueStageNames = [NumIssueStages]string{
	"Address generation",
	"Preliminary fetch",
	"Instruction fetch",
	"Branch target computation",
	"Instruction group formation",
	"Instruction group staging",
	"Dispatch and register access",
}

// String returns the stage name.
func (s IssueStage) String() string {
	if s < 0 || s >= NumIssueStages {
		return "unknown"
	}
	return issueStageNames[s]
}

// issueStages maps each stage to its behavior.
var issueStages = [NumIssueStages]func(u *IssueUnit) error{
	StageAddressGeneration: (*IssueUnit).addressGeneration,
	StagePreliminaryFetch:  (*IssueUnit).preliminaryFetch,
	StageFetch:             (*IssueUnit).fetch,
	StageBranchTarget:      (*IssueUnit).branchTarget,
	StageGroupFormation:    (*IssueUnit).groupFormation,
	StageGroupStaging:      (*IssueUnit).groupStaging,
	StageDispatch:          (*IssueUnit).dispatch,
}

// LineSource supplies assembly source lines. ReadLine returns io.EOF once
// the source is exhausted.
type LineSource interface {
	ReadLine() (string, error)
}

// IssueStats holds issue unit statistics.
type IssueStats struct {
	// Steps is the number of stages executed.
	Steps uint64
	// Fetched is the number of source lines fetched.
	Fetched uint64
	// Decoded is the number of instructions decoded.
	Decoded uint64
	// GroupsFormed is the number of sealed groups enqueued.
	GroupsFormed uint64
	// GroupsDropped is the number of sealed groups lost to a full queue.
	GroupsDropped uint64
}

// IssueUnitOption is a functional option for configuring the IssueUnit.
type IssueUnitOption func(*IssueUnit)

// WithFetchWidth sets how many lines one Fetch stage reads.
func WithFetchWidth(n int) IssueUnitOption {
	return func(u *IssueUnit) {
		if n > 0 && n <= GroupSize {
			u.fetchWidth = n
		}
	}
}

// WithICache enables instruction cache probing in the prefetch stage.
func WithICache(c *cache.Cache) IssueUnitOption {
	return func(u *IssueUnit) {
		u.icache = c
	}
}

// WithIssueDisplay sets where the queue dump is shown.
func WithIssueDisplay(d display.Display) IssueUnitOption {
	return func(u *IssueUnit) {
		u.display = d
	}
}

// WithIssueLogger sets the trace logger.
func WithIssueLogger(l logrus.FieldLogger) IssueUnitOption {
	return func(u *IssueUnit) {
		u.log = l
	}
}

// IssueUnit fetches source lines, decodes them and forms instruction groups.
// It executes one stage per Step and cycles through its seven stages in a
// fixed order, starting at address generation.
type IssueUnit struct {
	mu sync.Mutex

	source  LineSource
	queue   *GroupQueue
	decoder *insts.Decoder
	icache  *cache.Cache
	display display.Display
	log     logrus.FieldLogger

	fetchWidth int
	stage      IssueStage
	cycle      uint64
	halted     error
	stats      IssueStats

	// fetchAddr is the address of the next line to fetch.
	fetchAddr uint64
	exhausted bool

	// pending holds the lines fetched but not yet formed into groups.
	pending []*insts.Instruction
	// current is the group being formed; nil when the last one was sealed.
	current     *Group
	nextGroupID uint64
}

// NewIssueUnit creates an issue unit reading from source and producing
// groups into queue.
func NewIssueUnit(source LineSource, queue *GroupQueue, opts ...IssueUnitOption) *IssueUnit {
	u := &IssueUnit{
		source:     source,
		queue:      queue,
		decoder:    insts.NewDecoder(),
		display:    display.Discard{},
		fetchWidth: GroupSize,
		stage:      StageAddressGeneration,
	}

	for _, opt := range opts {
		opt(u)
	}

	if u.log == nil {
		u.log = trace.Discard()
	}
	u.log = trace.ForUnit(u.log, "IIU")

	return u
}

// Stage returns the stage the next Step will execute.
func (u *IssueUnit) Stage() IssueStage {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.stage
}

// Stats returns issue unit statistics.
func (u *IssueUnit) Stats() IssueStats {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.stats
}

// Halted returns the fatal error that stopped the unit, or nil.
func (u *IssueUnit) Halted() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.halted
}

// Exhausted reports whether the source has run out of lines.
func (u *IssueUnit) Exhausted() bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.exhausted
}

// Pending returns the fetched instructions awaiting group formation.
func (u *IssueUnit) Pending() []*insts.Instruction {
	u.mu.Lock()
	defer u.mu.Unlock()

	return append([]*insts.Instruction(nil), u.pending...)
}

// CurrentGroup returns the group being formed, or nil.
func (u *IssueUnit) CurrentGroup() *Group {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.current
}

// Queue returns the queue the unit produces into.
func (u *IssueUnit) Queue() *GroupQueue {
	return u.queue
}

// Step executes the current stage, shows the queue, and advances to the
// next stage. After a fatal error the unit stays on the failing stage and
// every later Step returns ErrUnitHalted.
func (u *IssueUnit) Step() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.halted != nil {
		return fmt.Errorf("%w: %v", ErrUnitHalted, u.halted)
	}

	stage := u.stage
	u.log.WithFields(logrus.Fields{
		trace.FieldStage: stage.String(),
		trace.FieldCycle: u.cycle,
	}).Info("[IIU]: ", stage)

	err := issueStages[stage](u)
	u.stats.Steps++
	u.display.Show(display.PanelIssue, u.queue.Dump())

	if err != nil {
		u.halted = err
		u.log.WithError(err).Error("issue unit halted")
		return err
	}

	u.stage = (stage + 1) % NumIssueStages

	return nil
}

// Run executes one stage per clock pulse until the clock stops, ctx is
// done, or a stage fails.
func (u *IssueUnit) Run(ctx context.Context, t Ticker) error {
	err := runStages(ctx, t, func(cycle uint64) error {
		u.mu.Lock()
		u.cycle = cycle
		u.mu.Unlock()

		return u.Step()
	})
	if err != nil {
		return fmt.Errorf("issue unit: %w", err)
	}
	return nil
}

func (u *IssueUnit) addressGeneration() error {
	u.fetchAddr = u.stats.Fetched * loader.InstructionSize
	u.log.Debugf("fetch address 0x%x", u.fetchAddr)
	return nil
}

func (u *IssueUnit) preliminaryFetch() error {
	if u.icache == nil || u.exhausted {
		return nil
	}

	for i := 0; i < u.fetchWidth; i++ {
		addr := u.fetchAddr + uint64(i)*loader.InstructionSize
		result := u.icache.Access(addr)
		u.log.WithFields(logrus.Fields{
			"addr":    fmt.Sprintf("0x%x", addr),
			"hit":     result.Hit,
			"latency": result.Latency,
		}).Debug("icache probe")
	}

	return nil
}

// fetch reads up to fetchWidth lines. At end of input nothing is fetched
// and the pending slots are left as they are.
func (u *IssueUnit) fetch() error {
	if u.exhausted {
		return nil
	}

	for len(u.pending) < u.fetchWidth {
		line, err := u.source.ReadLine()
		if errors.Is(err, io.EOF) {
			u.exhausted = true
			u.log.Info("end of input")
			break
		}
		if err != nil {
			return fmt.Errorf("fetch: %w", err)
		}

		u.pending = append(u.pending, insts.NewPending(line))
		u.stats.Fetched++
	}

	return nil
}

func (u *IssueUnit) branchTarget() error {
	return nil
}

// groupFormation decodes the pending lines in fetch order and steers them
// into groups. Sealed groups go to the queue; an unsealed group carries
// over to the next batch.
func (u *IssueUnit) groupFormation() error {
	for i, inst := range u.pending {
		if err := u.decoder.DecodeInto(inst); err != nil {
			u.pending = u.pending[i:]
			u.log.WithError(err).Warn("decode failed")
			return err
		}
		u.stats.Decoded++

		if u.current == nil {
			u.current = NewGroup(u.nextGroupID)
			u.nextGroupID++
		}

		pipe, err := u.current.Add(inst)
		if err != nil {
			u.pending = u.pending[i:]
			return fmt.Errorf("group %d: %w", u.current.ID, err)
		}
		u.log.WithField("pipe", pipe.String()).Info("steered ", inst.Text)

		if u.current.Sealed() {
			u.enqueue(u.current)
			u.current = nil
		}
	}

	u.pending = u.pending[:0]

	return nil
}

// enqueue hands a sealed group to the queue. A full queue drops the group.
func (u *IssueUnit) enqueue(g *Group) {
	if err := u.queue.Enqueue(g); err != nil {
		u.stats.GroupsDropped++
		u.log.WithError(err).WithField("group", g.ID).Warn("[IIU] queue is full")
		return
	}
	u.stats.GroupsFormed++
}

func (u *IssueUnit) groupStaging() error {
	return nil
}

func (u *IssueUnit) dispatch() error {
	return nil
}
