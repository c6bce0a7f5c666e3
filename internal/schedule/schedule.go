// Package schedule provides read-only views of a planned schedule: ordered
// entries, per-track timelines, the critical path and resource utilization.
package schedule

import (
	"slices"
	"time"

	"github.com/specialistvlad/tempogrid/internal/depgraph"
	"github.com/specialistvlad/tempogrid/internal/ledger"
	"github.com/specialistvlad/tempogrid/internal/program"
	"github.com/specialistvlad/tempogrid/internal/scheduler"
)

// Entry is one step's place in the schedule.
type Entry struct {
	Step         *program.Step
	TrackID      string
	State        scheduler.State
	Scheduled    bool
	ReadyAt      time.Duration
	PlannedStart time.Duration
	PlannedEnd   time.Duration
	Provisional  bool
	Confirmed    bool
	WaitedOn     string
}

// Schedule is an immutable snapshot of a scheduler's plan.
type Schedule struct {
	Program  *program.Program
	Warnings []scheduler.Warning
	// StartedAt is set once the manual start signal was received.
	StartedAt *time.Duration

	// byIndex holds one entry per step in program order.
	byIndex []Entry
	graph   *depgraph.Graph
	ledger  *ledger.Ledger
}

// From takes a snapshot of s.
func From(s *scheduler.Scheduler) *Schedule {
	p := s.Program()
	out := &Schedule{
		Program:  p,
		Warnings: s.Warnings(),
		byIndex:  make([]Entry, p.Len()),
		graph:    s.Graph(),
		ledger:   s.Ledger(),
	}
	if at, ok := s.Started(); ok {
		out.StartedAt = &at
	}

	for i := 0; i < p.Len(); i++ {
		step := p.StepAt(i)
		e := Entry{Step: step, TrackID: p.TrackOf(step).ID}
		if ss, ok := s.Step(step.ID); ok {
			e.State = ss.State
			e.Scheduled = ss.Scheduled()
			e.ReadyAt = ss.ReadyAt
			e.PlannedStart = ss.PlannedStart
			e.PlannedEnd = ss.PlannedEnd
			e.Provisional = ss.Provisional
			e.Confirmed = ss.Confirmed
			e.WaitedOn = ss.WaitedOn
		}
		out.byIndex[i] = e
	}
	return out
}

// compareEntries orders scheduled entries by start, then program order, with
// unscheduled entries last.
func compareEntries(a, b Entry) int {
	switch {
	case a.Scheduled != b.Scheduled:
		if a.Scheduled {
			return -1
		}
		return 1
	case a.Scheduled && a.PlannedStart != b.PlannedStart:
		if a.PlannedStart < b.PlannedStart {
			return -1
		}
		return 1
	}
	return a.Step.Index - b.Step.Index
}

// Entries returns every step ordered by planned start, track and position.
// Unscheduled steps come last in program order.
func (s *Schedule) Entries() []Entry {
	out := slices.Clone(s.byIndex)
	slices.SortStableFunc(out, compareEntries)
	return out
}

// Entry returns the entry of the step with the given id.
func (s *Schedule) Entry(id string) (Entry, bool) {
	step, ok := s.Program.Step(id)
	if !ok {
		return Entry{}, false
	}
	return s.byIndex[step.Index], true
}

// Timeline is the ordered entries of one track.
type Timeline struct {
	Track   *program.Track
	Entries []Entry
}

// Timelines returns one timeline per track in track order.
func (s *Schedule) Timelines() []Timeline {
	out := make([]Timeline, 0, len(s.Program.Tracks))
	for _, track := range s.Program.Tracks {
		tl := Timeline{Track: track}
		for _, step := range track.Steps {
			tl.Entries = append(tl.Entries, s.byIndex[step.Index])
		}
		slices.SortStableFunc(tl.Entries, compareEntries)
		out = append(out, tl)
	}
	return out
}

// Makespan returns the latest planned end.
func (s *Schedule) Makespan() time.Duration {
	var end time.Duration
	for _, e := range s.byIndex {
		if e.Scheduled {
			end = max(end, e.PlannedEnd)
		}
	}
	return end
}

// Path is a chain of dependent steps, source first.
type Path struct {
	Steps []string
	Start time.Duration
	End   time.Duration
}

// Length returns the time the path spans.
func (p Path) Length() time.Duration { return p.End - p.Start }

// CriticalPath walks back from the scheduled sink with the latest planned
// end, always through the latest-ending predecessor. Ties go to program
// order.
func (s *Schedule) CriticalPath() Path {
	cur := -1
	for _, i := range s.graph.Sinks() {
		e := s.byIndex[i]
		if !e.Scheduled {
			continue
		}
		if cur < 0 || e.PlannedEnd > s.byIndex[cur].PlannedEnd {
			cur = i
		}
	}
	if cur < 0 {
		return Path{}
	}

	path := Path{End: s.byIndex[cur].PlannedEnd}
	var rev []int
	for cur >= 0 {
		rev = append(rev, cur)
		next := -1
		for _, p := range s.graph.Preds(cur) {
			e := s.byIndex[p]
			if !e.Scheduled {
				continue
			}
			if next < 0 || e.PlannedEnd > s.byIndex[next].PlannedEnd {
				next = p
			}
		}
		cur = next
	}

	slices.Reverse(rev)
	for _, i := range rev {
		path.Steps = append(path.Steps, s.byIndex[i].Step.ID)
	}
	path.Start = s.byIndex[rev[0]].PlannedStart
	return path
}

// Interval is one step's hold on a task.
type Interval struct {
	StepID string
	Start  time.Duration
	End    time.Duration
}

// Utilization describes how one task is used.
type Utilization struct {
	Task      string
	Limit     int
	Peak      int
	Intervals []Interval
}

// Exceeded reports whether the task's peak concurrency is over its limit.
func (u Utilization) Exceeded() bool { return u.Peak > u.Limit }

// Utilization returns per-task usage in constraint declaration order.
func (s *Schedule) Utilization() []Utilization {
	tasks := s.ledger.Tasks()
	out := make([]Utilization, 0, len(tasks))
	for _, task := range tasks {
		u := Utilization{
			Task:  task,
			Limit: s.ledger.Limit(task),
			Peak:  s.ledger.Peak(task),
		}
		for _, h := range s.ledger.Holds(task) {
			u.Intervals = append(u.Intervals, Interval{StepID: h.Holder, Start: h.Start, End: h.End})
		}
		out = append(out, u)
	}
	return out
}

// Exceeded returns the tasks whose peak concurrency is over the limit.
func (s *Schedule) Exceeded() []string {
	var out []string
	for _, u := range s.Utilization() {
		if u.Exceeded() {
			out = append(out, u.Task)
		}
	}
	return out
}
