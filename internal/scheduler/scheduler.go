package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/depgraph"
	"github.com/specialistvlad/tempogrid/internal/ledger"
	"github.com/specialistvlad/tempogrid/internal/program"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Scheduler plans one program and applies live events to the plan. It is not
// safe for concurrent use; share snapshots produced by Replan instead.
type Scheduler struct {
	prog   *program.Program
	graph  *depgraph.Graph
	ledger *ledger.Ledger
	opts   options

	// steps is filled lazily as steps are discovered, keyed by step index.
	steps map[int]*ScheduledStep
	// gen is bumped when a step's pending events become stale.
	gen   []uint64
	queue eventQueue
	seq   uint64

	// elapsed holds confirmed durations by step index.
	elapsed map[int]time.Duration

	planned  bool
	started  bool
	startAt  time.Duration
	warnings []Warning
}

// New creates a scheduler for p. Call Plan before applying events.
func New(p *program.Program, opts ...Option) *Scheduler {
	return &Scheduler{
		prog:    p,
		graph:   depgraph.New(p),
		ledger:  ledger.New(p.Constraints),
		opts:    newOptions(opts),
		steps:   make(map[int]*ScheduledStep),
		gen:     make([]uint64, p.Len()),
		elapsed: make(map[int]time.Duration),
	}
}

// Program returns the program being scheduled.
func (s *Scheduler) Program() *program.Program { return s.prog }

// Graph returns the program's dependency graph.
func (s *Scheduler) Graph() *depgraph.Graph { return s.graph }

// Ledger returns a copy of the resource ledger.
func (s *Scheduler) Ledger() *ledger.Ledger { return s.ledger.Clone() }

// Started reports whether the manual start signal was received, and when.
func (s *Scheduler) Started() (time.Duration, bool) { return s.startAt, s.started }

// Warnings returns every warning recorded so far.
func (s *Scheduler) Warnings() []Warning { return slices.Clone(s.warnings) }

// Step returns a copy of the scheduled state of the step with the given id.
// ok is false if the step is unknown or has not been reached.
func (s *Scheduler) Step(id string) (ScheduledStep, bool) {
	step, ok := s.prog.Step(id)
	if !ok {
		return ScheduledStep{}, false
	}
	ss, ok := s.steps[step.Index]
	if !ok {
		return ScheduledStep{}, false
	}
	return *ss, true
}

// Steps returns copies of every reached step in program order.
func (s *Scheduler) Steps() []ScheduledStep {
	out := make([]ScheduledStep, 0, len(s.steps))
	for i := 0; i < s.prog.Len(); i++ {
		if ss, ok := s.steps[i]; ok {
			out = append(out, *ss)
		}
	}
	return out
}

// Plan computes the initial schedule. Steps behind a manual trigger stay
// unscheduled until Start.
func (s *Scheduler) Plan(ctx context.Context) (err error) {
	ctx, span := s.opts.tracer.Start(ctx, "scheduler.Plan", trace.WithAttributes(
		attribute.String("program.id", s.prog.ID),
		attribute.Int("program.steps", s.prog.Len()),
	))
	defer func() { endSpan(span, err) }()

	if s.planned {
		return ErrAlreadyPlanned
	}
	s.planned = true

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Plan: seeding ready events.", "program", s.prog.ID, "sources", len(s.graph.Sources()))

	for _, i := range s.graph.Sources() {
		step := s.prog.StepAt(i)
		switch t := step.Trigger.(type) {
		case program.ProgramStart:
			s.pushReady(i, 0)
		case program.ProgramStartOffset:
			s.pushReady(i, t.Offset)
		case program.Manual:
			logger.Debug("Plan: step waits for the start signal.", "step", step.ID)
		case program.AfterStep:
			// The referenced step does not exist; the deadlock check reports it.
		}
	}

	if err := s.drain(ctx); err != nil {
		return err
	}
	return s.checkDeadlock(ctx)
}

// Start delivers the manual start signal at the given instant. A second
// signal is ignored with a warning.
func (s *Scheduler) Start(ctx context.Context, at time.Duration) (err error) {
	ctx, span := s.opts.tracer.Start(ctx, "scheduler.Start", trace.WithAttributes(
		attribute.String("program.id", s.prog.ID),
		attribute.Float64("start.seconds", at.Seconds()),
	))
	defer func() { endSpan(span, err) }()

	if !s.planned {
		return ErrNotPlanned
	}
	if s.started {
		s.warn(ctx, Warning{
			Kind:    WarnAlreadyStarted,
			Message: fmt.Sprintf("program already started at %s", s.startAt),
		})
		return nil
	}
	s.started = true
	s.startAt = at

	for _, i := range s.graph.Sources() {
		if _, ok := s.prog.StepAt(i).Trigger.(program.Manual); ok {
			s.pushReady(i, at)
		}
	}

	if err := s.drain(ctx); err != nil {
		return err
	}
	return s.checkDeadlock(ctx)
}

// pushReady creates the step's record if needed, stamps ReadyAt and queues a
// ready event.
func (s *Scheduler) pushReady(i int, at time.Duration) {
	ss := s.record(i)
	ss.ReadyAt = at
	s.push(event{at: at, kind: readyEvent, step: i})
}

func (s *Scheduler) push(ev event) {
	ev.gen = s.gen[ev.step]
	ev.seq = s.seq
	s.seq++
	heap.Push(&s.queue, ev)
}

func (s *Scheduler) record(i int) *ScheduledStep {
	ss, ok := s.steps[i]
	if !ok {
		ss = &ScheduledStep{Step: s.prog.StepAt(i)}
		s.steps[i] = ss
	}
	return ss
}

// drain processes events until the queue is empty.
func (s *Scheduler) drain(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	for s.queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev := heap.Pop(&s.queue).(event)
		if ev.gen != s.gen[ev.step] {
			logger.Debug("Discarding stale event.", "step", s.prog.StepAt(ev.step).ID, "kind", ev.kind, "at", ev.at)
			continue
		}

		var err error
		switch ev.kind {
		case readyEvent:
			err = s.onReady(ctx, ev)
		case completedEvent:
			err = s.onCompleted(ctx, ev)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) onReady(ctx context.Context, ev event) error {
	ss := s.record(ev.step)
	step := ss.Step
	ss.State = Ready

	length, variable := s.length(ev.step)
	end := ev.at + length

	if step.Task != "" {
		ok, retry, err := s.ledger.TryAcquire(step.Task, step.ID, ev.at, end)
		if err != nil {
			return fmt.Errorf("step %q: %w", step.ID, err)
		}
		if !ok {
			ctxlog.FromContext(ctx).Debug("Step deferred on task.", "step", step.ID, "task", step.Task, "at", ev.at, "retry", retry)
			ss.WaitedOn = step.Task
			s.push(event{at: retry, kind: readyEvent, step: ev.step})
			return nil
		}
	}

	start := ev.at
	ss.State = Running
	ss.PlannedStart = start
	ss.ActualStart = &start
	ss.PlannedEnd = end
	ss.ActualEnd = nil
	ss.Provisional = variable && !ss.Confirmed
	ctxlog.FromContext(ctx).Debug("Step admitted.", "step", step.ID, "start", start, "end", end, "provisional", ss.Provisional)

	s.push(event{at: end, kind: completedEvent, step: ev.step})
	return nil
}

// length returns the duration used for step i and whether it is variable.
func (s *Scheduler) length(i int) (time.Duration, bool) {
	switch d := s.prog.StepAt(i).Duration.(type) {
	case program.Fixed:
		return d.Length, false
	case program.Variable:
		if e, ok := s.elapsed[i]; ok {
			return e, true
		}
		return d.Default, true
	default:
		return 0, false
	}
}

func (s *Scheduler) onCompleted(ctx context.Context, ev event) error {
	ss := s.steps[ev.step]
	step := ss.Step
	ss.State = Completed
	if ss.ActualEnd == nil {
		end := ev.at
		ss.ActualEnd = &end
	}
	if step.Task != "" {
		if err := s.ledger.Release(step.Task, step.ID, ev.at); err != nil {
			return fmt.Errorf("step %q: %w", step.ID, err)
		}
	}
	ctxlog.FromContext(ctx).Debug("Step completed.", "step", step.ID, "at", ev.at)

	for _, succ := range s.graph.Succs(ev.step) {
		if next, ok := s.steps[succ]; ok && next.State != Pending {
			continue
		}
		if at, ok := s.predecessorsDone(succ); ok {
			s.pushReady(succ, at)
		}
	}
	return nil
}

// predecessorsDone reports whether every predecessor of i has completed, and
// the latest of their ends.
func (s *Scheduler) predecessorsDone(i int) (time.Duration, bool) {
	var latest time.Duration
	for _, p := range s.graph.Preds(i) {
		ps, ok := s.steps[p]
		if !ok || ps.State != Completed {
			return 0, false
		}
		latest = max(latest, *ps.ActualEnd)
	}
	return latest, true
}

// checkDeadlock reports every step that is neither completed nor waiting,
// directly or transitively, on the manual start signal.
func (s *Scheduler) checkDeadlock(ctx context.Context) error {
	var waiting []bool
	if !s.started {
		var manual []int
		for _, i := range s.graph.Sources() {
			if _, ok := s.prog.StepAt(i).Trigger.(program.Manual); ok {
				manual = append(manual, i)
			}
		}
		waiting = s.graph.Descendants(manual...)
	}

	var unreachable []string
	for i := 0; i < s.prog.Len(); i++ {
		if waiting != nil && waiting[i] {
			continue
		}
		if ss, ok := s.steps[i]; !ok || ss.State != Completed {
			unreachable = append(unreachable, s.prog.StepAt(i).ID)
		}
	}
	if len(unreachable) > 0 {
		ctxlog.FromContext(ctx).Debug("Deadlock detected.", "steps", unreachable)
		return &DeadlockError{Unreachable: unreachable}
	}
	return nil
}

func (s *Scheduler) warn(ctx context.Context, w Warning) {
	ctxlog.FromContext(ctx).Warn("Replan warning.", "kind", w.Kind.String(), "step", w.StepID, "trigger", w.TriggerName, "message", w.Message)
	trace.SpanFromContext(ctx).AddEvent("scheduler.warning", trace.WithAttributes(
		attribute.String("warning.kind", w.Kind.String()),
		attribute.String("warning.message", w.Message),
	))
	s.warnings = append(s.warnings, w)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
