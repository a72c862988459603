package pipeline

import (
	"context"
	"errors"

	"github.com/sarchlab/sparcsim/timing/clock"
)

// ErrUnitHalted is returned by Step once a unit has hit a fatal error.
var ErrUnitHalted = errors.New("unit halted")

// Ticker delivers clock pulses to a unit.
type Ticker interface {
	Tick(ctx context.Context) (uint64, error)
}

// runStages waits for a pulse and executes one stage, forever. It returns
// nil when the clock stops or ctx is done, and the stage error otherwise.
func runStages(ctx context.Context, t Ticker, step func(cycle uint64) error) error {
	if sub, ok := t.(*clock.Subscription); ok {
		defer sub.Close()
	}

	for {
		cycle, err := t.Tick(ctx)
		if err != nil {
			if errors.Is(err, clock.ErrStopped) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := step(cycle); err != nil {
			return err
		}
	}
}
