package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/sparcsim/display"
	"github.com/sarchlab/sparcsim/trace"
)

// IntegerStage is a stage of the integer execution unit.
type IntegerStage int

// Integer unit stages, in execution order.
const (
	StageExecute                  IntegerStage = iota // E
	StageDataCacheAccess                              // C
	StageMemoryBypass                                 // M
	StageWorkingRegisterFileWrite                     // W
	StagePipeExtend                                   // X
	StageTrap                                         // T
	StageDone                                         // D
	NumIntegerStages
)

var integerStageNames = [NumIntegerStages]string{
	"Integer execution",
	"Data cache access",
	"Memory bypass",
	"Working register file write",
	"Pipe extend",
	"Trap",
	"Done",
}

// String returns the stage name.
func (s IntegerStage) String() string {
	if s < 0 || s >= NumIntegerStages {
		return "unknown"
	}
	return integerStageNames[s]
}

// IntegerStats holds integer unit statistics.
type IntegerStats struct {
	// Steps is the number of stages executed.
	Steps uint64
}

// IntegerUnitOption is a functional option for configuring the IntegerUnit.
type IntegerUnitOption func(*IntegerUnit)

// WithIntegerDisplay sets where the unit reports its stage.
func WithIntegerDisplay(d display.Display) IntegerUnitOption {
	return func(u *IntegerUnit) {
		u.display = d
	}
}

// WithIntegerLogger sets the trace logger.
func WithIntegerLogger(l logrus.FieldLogger) IntegerUnitOption {
	return func(u *IntegerUnit) {
		u.log = l
	}
}

// IntegerUnit advances through execute, cache access, bypass, write-back,
// pipe extend, trap and done, one stage per Step.
//
// The stages only report themselves for now. The unit is the consumer of
// the groups the issue unit queues, but nothing dequeues them yet.
type IntegerUnit struct {
	mu sync.Mutex

	display display.Display
	log     logrus.FieldLogger

	stage IntegerStage
	cycle uint64
	stats IntegerStats
}

// NewIntegerUnit creates an integer unit positioned at the execute stage.
func NewIntegerUnit(opts ...IntegerUnitOption) *IntegerUnit {
	u := &IntegerUnit{
		display: display.Discard{},
		stage:   StageExecute,
	}

	for _, opt := range opts {
		opt(u)
	}

	if u.log == nil {
		u.log = trace.Discard()
	}
	u.log = trace.ForUnit(u.log, "IU")

	return u
}

// Stage returns the stage the next Step will execute.
func (u *IntegerUnit) Stage() IntegerStage {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.stage
}

// Stats returns integer unit statistics.
func (u *IntegerUnit) Stats() IntegerStats {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.stats
}

// Step executes the current stage and advances to the next one.
func (u *IntegerUnit) Step() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	stage := u.stage
	u.log.WithFields(logrus.Fields{
		trace.FieldStage: stage.String(),
		trace.FieldCycle: u.cycle,
	}).Info("[IU]: ", stage)

	u.stats.Steps++
	u.display.Show(display.PanelInteger, []string{
		fmt.Sprintf("cycle %d", u.cycle),
		stage.String(),
	})

	u.stage = (stage + 1) % NumIntegerStages

	return nil
}

// Run executes one stage per clock pulse until the clock stops or ctx is
// done.
func (u *IntegerUnit) Run(ctx context.Context, t Ticker) error {
	err := runStages(ctx, t, func(cycle uint64) error {
		u.mu.Lock()
		u.cycle = cycle
		u.mu.Unlock()

		return u.Step()
	})
	if err != nil {
		return fmt.Errorf("integer unit: %w", err)
	}
	return nil
}
