package pipeline

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultQueueCapacity is the number of groups the queue holds.
const DefaultQueueCapacity = 4

// Queue errors.
var (
	ErrQueueFull  = errors.New("group queue is full")
	ErrQueueEmpty = errors.New("group queue is empty")
	ErrNilGroup   = errors.New("nil group")
)

// GroupQueue is a bounded FIFO of groups awaiting execution. It is the only
// state shared between units and is safe for concurrent use.
type GroupQueue struct {
	mu       sync.Mutex
	groups   []*Group
	capacity int
}

// NewGroupQueue creates a queue holding at most capacity groups.
func NewGroupQueue(capacity int) *GroupQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}

	return &GroupQueue{
		groups:   make([]*Group, 0, capacity),
		capacity: capacity,
	}
}

// Enqueue appends g and seals it. Enqueueing a group that is already queued
// succeeds without adding it again. A full queue is left unchanged and
// ErrQueueFull is returned.
func (q *GroupQueue) Enqueue(g *Group) error {
	if g == nil {
		return ErrNilGroup
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, queued := range q.groups {
		if queued == g {
			return nil
		}
	}

	if len(q.groups) >= q.capacity {
		return fmt.Errorf("%w: capacity %d", ErrQueueFull, q.capacity)
	}

	g.Seal()
	q.groups = append(q.groups, g)

	return nil
}

// Dequeue removes and returns the oldest group.
func (q *GroupQueue) Dequeue() (*Group, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.groups) == 0 {
		return nil, ErrQueueEmpty
	}

	g := q.groups[0]
	q.groups[0] = nil
	q.groups = q.groups[1:]

	return g, nil
}

// Len returns the number of queued groups.
func (q *GroupQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.groups)
}

// Cap returns the queue capacity.
func (q *GroupQueue) Cap() int {
	return q.capacity
}

// Full reports whether another group would overflow the queue.
func (q *GroupQueue) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.groups) >= q.capacity
}

// Snapshot returns the queued groups, oldest first.
func (q *GroupQueue) Snapshot() []*Group {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]*Group(nil), q.groups...)
}

// Dump renders the queue as display lines, one per queued instruction:
// "<group index>] <source text> <pipe>".
func (q *GroupQueue) Dump() []string {
	var lines []string
	for i, g := range q.Snapshot() {
		for _, s := range g.Slots() {
			lines = append(lines, fmt.Sprintf("%d] %s %s", i, s.Inst.Text, s.Pipe))
		}
	}
	return lines
}
