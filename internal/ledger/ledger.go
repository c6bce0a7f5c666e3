// Package ledger tracks which steps hold which task over which interval of
// logical time, and enforces the per-task concurrency limits.
//
// A hold is an interval [Start, End) on one task. TryAcquire admits a new
// hold only if the number of overlapping holds stays within the limit at
// every instant of the requested interval, so holds placed in the future by
// an earlier planning pass are respected. A zero-length request is checked
// at its start instant; zero-length holds occupy no instant.
//
// The ledger is not safe for concurrent use. It is owned by one scheduler.
package ledger

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/specialistvlad/tempogrid/internal/program"
)

var (
	// ErrUnknownTask is returned for a task without a constraint.
	ErrUnknownTask = errors.New("unknown task")
	// ErrHoldExists is returned when a holder acquires a task twice.
	ErrHoldExists = errors.New("hold already exists")
	// ErrNoHold is returned when a holder has no hold on a task.
	ErrNoHold = errors.New("no such hold")
)

// Hold is one holder's occupation of a task.
type Hold struct {
	Holder   string
	Start    time.Duration
	End      time.Duration
	Released bool
}

func (h Hold) overlaps(start, end time.Duration) bool {
	if h.Start == h.End {
		return false
	}
	if start == end {
		return h.Start <= start && start < h.End
	}
	return h.Start < end && start < h.End
}

type pool struct {
	limit int
	usage int
	holds map[string]*Hold
}

// Ledger is the resource ledger of a scheduling session.
type Ledger struct {
	pools map[string]*pool
	// tasks keeps declaration order.
	tasks []string
}

// New creates a ledger with one pool per constraint.
func New(constraints []program.ResourceConstraint) *Ledger {
	l := &Ledger{pools: make(map[string]*pool, len(constraints))}
	for _, c := range constraints {
		if _, exists := l.pools[c.Task]; exists {
			continue
		}
		l.pools[c.Task] = &pool{limit: c.MaxConcurrent, holds: make(map[string]*Hold)}
		l.tasks = append(l.tasks, c.Task)
	}
	return l
}

func (l *Ledger) pool(task string) (*pool, error) {
	p, ok := l.pools[task]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}
	return p, nil
}

// TryAcquire records a hold on task for [start, end) and increments the
// task's usage in the same call. When the limit would be exceeded no hold is
// recorded, ok is false and retry is the earliest end among the conflicting
// holds; no start between start and retry can succeed.
func (l *Ledger) TryAcquire(task, holder string, start, end time.Duration) (ok bool, retry time.Duration, err error) {
	p, err := l.pool(task)
	if err != nil {
		return false, 0, err
	}
	if _, exists := p.holds[holder]; exists {
		return false, 0, fmt.Errorf("%w: %q on %q", ErrHoldExists, holder, task)
	}

	var conflicts []*Hold
	for _, h := range p.holds {
		if h.overlaps(start, end) {
			conflicts = append(conflicts, h)
		}
	}

	if peak(conflicts, start, end)+1 > p.limit {
		retry = conflicts[0].End
		for _, h := range conflicts[1:] {
			retry = min(retry, h.End)
		}
		return false, retry, nil
	}

	p.holds[holder] = &Hold{Holder: holder, Start: start, End: end}
	p.usage++
	return true, 0, nil
}

// peak returns the largest number of holds active at one instant of
// [start, end), or at start for an empty interval.
func peak(holds []*Hold, start, end time.Duration) int {
	if start == end {
		return len(holds)
	}

	type edge struct {
		at    time.Duration
		delta int
	}
	edges := make([]edge, 0, 2*len(holds))
	for _, h := range holds {
		edges = append(edges, edge{max(h.Start, start), +1}, edge{min(h.End, end), -1})
	}
	// Ends sort before starts at the same instant: [a, b) and [b, c) do not
	// overlap.
	slices.SortFunc(edges, func(a, b edge) int {
		if a.at != b.at {
			if a.at < b.at {
				return -1
			}
			return 1
		}
		return a.delta - b.delta
	})

	cur, best := 0, 0
	for _, e := range edges {
		cur += e.delta
		best = max(best, cur)
	}
	return best
}

// Release closes holder's hold on task at the given instant and decrements
// usage.
func (l *Ledger) Release(task, holder string, at time.Duration) error {
	p, err := l.pool(task)
	if err != nil {
		return err
	}
	h, ok := p.holds[holder]
	if !ok {
		return fmt.Errorf("%w: %q on %q", ErrNoHold, holder, task)
	}
	if h.Released {
		return nil
	}
	h.End = at
	h.Released = true
	p.usage--
	return nil
}

// Extend moves the end of holder's hold and reopens it if it was released.
// It does not check the limit; the caller retracts later holds first.
func (l *Ledger) Extend(task, holder string, end time.Duration) error {
	p, err := l.pool(task)
	if err != nil {
		return err
	}
	h, ok := p.holds[holder]
	if !ok {
		return fmt.Errorf("%w: %q on %q", ErrNoHold, holder, task)
	}
	h.End = end
	if h.Released {
		h.Released = false
		p.usage++
	}
	return nil
}

// Drop removes holder's hold on task. Dropping a missing hold is a no-op.
func (l *Ledger) Drop(task, holder string) error {
	p, err := l.pool(task)
	if err != nil {
		return err
	}
	h, ok := p.holds[holder]
	if !ok {
		return nil
	}
	if !h.Released {
		p.usage--
	}
	delete(p.holds, holder)
	return nil
}

// Overflow returns the holders that must give up their holds on task for the
// limit to hold over [start, end) once keep occupies that interval. At the
// first instant over the limit the active hold that started last is chosen,
// then the check repeats. Holders for which ignore reports true are left out
// as if already dropped. The ledger is not modified.
func (l *Ledger) Overflow(task, keep string, start, end time.Duration, ignore func(holder string) bool) ([]string, error) {
	p, err := l.pool(task)
	if err != nil {
		return nil, err
	}
	claim := &Hold{Holder: keep, Start: start, End: end}
	active := []*Hold{claim}
	for _, h := range p.holds {
		if h.Holder == keep || (ignore != nil && ignore(h.Holder)) || !h.overlaps(start, end) {
			continue
		}
		active = append(active, h)
	}

	var evicted []string
	for {
		at, over := firstOver(active, start, end, p.limit)
		if !over {
			return evicted, nil
		}
		victim := -1
		for i, h := range active {
			if h == claim || h.Start > at || at >= h.End {
				continue
			}
			if victim < 0 || h.Start > active[victim].Start ||
				(h.Start == active[victim].Start && h.Holder > active[victim].Holder) {
				victim = i
			}
		}
		if victim < 0 {
			return evicted, nil
		}
		evicted = append(evicted, active[victim].Holder)
		active = slices.Delete(active, victim, victim+1)
	}
}

// firstOver returns the first instant of [start, end) at which more than
// limit of holds are active.
func firstOver(holds []*Hold, start, end time.Duration, limit int) (time.Duration, bool) {
	type edge struct {
		at    time.Duration
		delta int
	}
	edges := make([]edge, 0, 2*len(holds))
	for _, h := range holds {
		if h.Start == h.End {
			continue
		}
		edges = append(edges, edge{max(h.Start, start), +1}, edge{min(h.End, end), -1})
	}
	slices.SortFunc(edges, func(a, b edge) int {
		if a.at != b.at {
			if a.at < b.at {
				return -1
			}
			return 1
		}
		return a.delta - b.delta
	})

	cur := 0
	for _, e := range edges {
		cur += e.delta
		if cur > limit {
			return e.at, true
		}
	}
	return 0, false
}

// Usage returns the number of unreleased holds on task.
func (l *Ledger) Usage(task string) int {
	if p, ok := l.pools[task]; ok {
		return p.usage
	}
	return 0
}

// Limit returns the concurrency limit of task, or 0 for an unknown task.
func (l *Ledger) Limit(task string) int {
	if p, ok := l.pools[task]; ok {
		return p.limit
	}
	return 0
}

// Tasks returns the constrained tasks in declaration order.
func (l *Ledger) Tasks() []string {
	return slices.Clone(l.tasks)
}

// Holds returns copies of the holds on task ordered by start, then holder.
func (l *Ledger) Holds(task string) []Hold {
	p, ok := l.pools[task]
	if !ok {
		return nil
	}
	out := make([]Hold, 0, len(p.holds))
	for _, h := range p.holds {
		out = append(out, *h)
	}
	slices.SortFunc(out, func(a, b Hold) int {
		if a.Start != b.Start {
			if a.Start < b.Start {
				return -1
			}
			return 1
		}
		if a.Holder < b.Holder {
			return -1
		}
		if a.Holder > b.Holder {
			return 1
		}
		return 0
	})
	return out
}

// Peak returns the largest number of holds on task active at one instant.
func (l *Ledger) Peak(task string) int {
	p, ok := l.pools[task]
	if !ok {
		return 0
	}
	var (
		holds  []*Hold
		lo, hi time.Duration
	)
	for _, h := range p.holds {
		if h.Start == h.End {
			continue
		}
		if len(holds) == 0 || h.Start < lo {
			lo = h.Start
		}
		if len(holds) == 0 || h.End > hi {
			hi = h.End
		}
		holds = append(holds, h)
	}
	if len(holds) == 0 {
		return 0
	}
	return peak(holds, lo, hi)
}

// Clone returns a deep copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{
		pools: make(map[string]*pool, len(l.pools)),
		tasks: slices.Clone(l.tasks),
	}
	for task, p := range l.pools {
		cp := &pool{limit: p.limit, usage: p.usage, holds: make(map[string]*Hold, len(p.holds))}
		for holder, h := range p.holds {
			hc := *h
			cp.holds[holder] = &hc
		}
		c.pools[task] = cp
	}
	return c
}
