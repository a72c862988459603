// Package pipeline provides the front-end pipeline units and the group queue
// that connects them.
package pipeline

import (
	"errors"

	"github.com/sarchlab/sparcsim/insts"
)

// Pipe identifies the execution pipe a group slot is steered to.
type Pipe uint8

// Execution pipes.
const (
	PipeNone Pipe = iota
	PipeA0        // Integer ALU 0
	PipeA1        // Integer ALU 1
	PipeBR        // Branch
	PipeMS        // Memory / special
	PipeFGM       // Floating-point / graphics multiply
	PipeFGA       // Floating-point / graphics add
)

// pipeOrder is the order in which group slots are assigned.
var pipeOrder = [...]Pipe{PipeA0, PipeA1, PipeBR, PipeMS, PipeFGM, PipeFGA}

// String returns the pipe tag.
func (p Pipe) String() string {
	switch p {
	case PipeA0:
		return "A0"
	case PipeA1:
		return "A1"
	case PipeBR:
		return "BR"
	case PipeMS:
		return "MS"
	case PipeFGM:
		return "FGM"
	case PipeFGA:
		return "FGA"
	default:
		return "NONE"
	}
}

// GroupSize is the number of slots in an instruction group.
const GroupSize = 4

// Group errors.
var (
	ErrGroupSealed = errors.New("group is sealed")
	ErrGroupFull   = errors.New("group is full")
)

// Slot is one position of a group.
type Slot struct {
	Inst *insts.Instruction
	Pipe Pipe
}

// Empty reports whether the slot holds no instruction.
func (s Slot) Empty() bool {
	return s.Inst == nil
}

// Group is a bundle of instructions formed in one decode pass.
//
// Slots are filled in pipe order A0, A1, BR, MS, FGM, FGA. Once both
// integer pipes are taken the group is sealed and accepts nothing more.
type Group struct {
	// ID numbers groups in formation order.
	ID uint64

	slots  [GroupSize]Slot
	n      int
	sealed bool
}

// NewGroup creates an empty group.
func NewGroup(id uint64) *Group {
	return &Group{ID: id}
}

// Add places inst in the next free slot and returns the pipe it was
// steered to.
func (g *Group) Add(inst *insts.Instruction) (Pipe, error) {
	if g.sealed {
		return PipeNone, ErrGroupSealed
	}
	if g.n == GroupSize {
		return PipeNone, ErrGroupFull
	}

	pipe := pipeOrder[g.n]
	g.slots[g.n] = Slot{Inst: inst, Pipe: pipe}
	g.n++

	if g.uses(PipeA0) && g.uses(PipeA1) {
		g.sealed = true
	}

	return pipe, nil
}

func (g *Group) uses(p Pipe) bool {
	for i := 0; i < g.n; i++ {
		if g.slots[i].Pipe == p {
			return true
		}
	}
	return false
}

// Seal closes the group to further instructions.
func (g *Group) Seal() {
	g.sealed = true
}

// Sealed reports whether the group accepts more instructions.
func (g *Group) Sealed() bool {
	return g.sealed
}

// Len returns the number of occupied slots.
func (g *Group) Len() int {
	return g.n
}

// Slot returns slot i. Unoccupied and out-of-range slots are empty with
// pipe NONE.
func (g *Group) Slot(i int) Slot {
	if i < 0 || i >= GroupSize {
		return Slot{}
	}
	return g.slots[i]
}

// Slots returns the occupied slots in order.
func (g *Group) Slots() []Slot {
	return append([]Slot(nil), g.slots[:g.n]...)
}
