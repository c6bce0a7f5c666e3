package scheduler

import (
	"time"
)

type eventKind int

// Completions sort first.
const (
	completedEvent eventKind = iota
	readyEvent
)

func (k eventKind) String() string {
	if k == completedEvent {
		return "completed"
	}
	return "ready"
}

type event struct {
	at   time.Duration
	kind eventKind
	// step is the program-wide index; it orders by (track, position).
	step int
	gen  uint64
	seq  uint64
}

// eventQueue is a min-heap of events implementing heap.Interface.
type eventQueue []event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	a, b := q[i], q[j]
	if a.at != b.at {
		return a.at < b.at
	}
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	if a.step != b.step {
		return a.step < b.step
	}
	return a.seq < b.seq
}

func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *eventQueue) Push(x any) { *q = append(*q, x.(event)) }

func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}
