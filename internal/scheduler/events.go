package scheduler

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/program"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Event is a live update applied to a planned schedule.
//
// The set of implementations is closed: Confirmation and StartSignal.
type Event interface {
	apply(ctx context.Context, s *Scheduler) error
}

// Confirmation reports the real elapsed time of the variable-duration step
// confirmed by TriggerName.
type Confirmation struct {
	TriggerName string
	Elapsed     time.Duration
}

// StartSignal starts the steps waiting on a manual trigger at At.
type StartSignal struct {
	At time.Duration
}

func (c Confirmation) apply(ctx context.Context, s *Scheduler) error { return s.Confirm(ctx, c) }

func (e StartSignal) apply(ctx context.Context, s *Scheduler) error { return s.Start(ctx, e.At) }

// Apply applies ev to the scheduler in place.
func (s *Scheduler) Apply(ctx context.Context, ev Event) error {
	return ev.apply(ctx, s)
}

// Replan applies ev to a copy of s and returns the copy together with the
// warnings the event produced. s is never modified.
func Replan(ctx context.Context, s *Scheduler, ev Event) (*Scheduler, []Warning, error) {
	next := s.Clone()
	before := len(next.warnings)
	if err := next.Apply(ctx, ev); err != nil {
		return nil, nil, err
	}
	return next, slices.Clone(next.warnings[before:]), nil
}

// Clone returns an independent copy. The program and graph are shared; they
// are immutable.
func (s *Scheduler) Clone() *Scheduler {
	c := &Scheduler{
		prog:     s.prog,
		graph:    s.graph,
		ledger:   s.ledger.Clone(),
		opts:     s.opts,
		steps:    make(map[int]*ScheduledStep, len(s.steps)),
		gen:      slices.Clone(s.gen),
		queue:    slices.Clone(s.queue),
		seq:      s.seq,
		elapsed:  maps.Clone(s.elapsed),
		planned:  s.planned,
		started:  s.started,
		startAt:  s.startAt,
		warnings: slices.Clone(s.warnings),
	}
	for i, ss := range s.steps {
		cp := *ss
		c.steps[i] = &cp
	}
	return c
}

// Confirm records the real elapsed time of a running variable-duration step
// and replans the steps it affects. Unknown trigger names, steps that have
// not started and repeated confirmations are ignored with a warning.
func (s *Scheduler) Confirm(ctx context.Context, c Confirmation) (err error) {
	ctx, span := s.opts.tracer.Start(ctx, "scheduler.Confirm", trace.WithAttributes(
		attribute.String("program.id", s.prog.ID),
		attribute.String("trigger.name", c.TriggerName),
		attribute.Float64("elapsed.seconds", c.Elapsed.Seconds()),
	))
	defer func() { endSpan(span, err) }()

	if !s.planned {
		return ErrNotPlanned
	}

	step, ok := s.prog.StepByTrigger(c.TriggerName)
	if !ok {
		s.warn(ctx, Warning{
			Kind:        WarnUnknownTrigger,
			TriggerName: c.TriggerName,
			Message:     fmt.Sprintf("no step is confirmed by %q", c.TriggerName),
		})
		return nil
	}
	span.SetAttributes(attribute.String("step.id", step.ID))

	ss, ok := s.steps[step.Index]
	switch {
	case !ok || ss.ActualStart == nil:
		s.warn(ctx, Warning{
			Kind:        WarnNotStarted,
			StepID:      step.ID,
			TriggerName: c.TriggerName,
			Message:     fmt.Sprintf("step %q has not started", step.ID),
		})
		return nil
	case ss.Confirmed:
		s.warn(ctx, Warning{
			Kind:        WarnAlreadyConfirmed,
			StepID:      step.ID,
			TriggerName: c.TriggerName,
			Message:     fmt.Sprintf("step %q was already confirmed", step.ID),
		})
		return nil
	}

	v := step.Duration.(program.Variable)
	elapsed := c.Elapsed
	if elapsed < 0 {
		s.warn(ctx, Warning{
			Kind:        WarnOutOfRange,
			StepID:      step.ID,
			TriggerName: c.TriggerName,
			Message:     fmt.Sprintf("negative elapsed time %s ignored", elapsed),
		})
		return nil
	}
	if !v.Within(elapsed) {
		msg := fmt.Sprintf("elapsed %s outside [%s, %s]", elapsed, v.Min, v.Max)
		if !s.opts.verbatim {
			elapsed = v.Clamp(elapsed)
			msg += fmt.Sprintf(", clamped to %s", elapsed)
		}
		s.warn(ctx, Warning{Kind: WarnOutOfRange, StepID: step.ID, TriggerName: c.TriggerName, Message: msg})
	}

	oldEnd := ss.PlannedEnd
	newEnd := *ss.ActualStart + elapsed
	ctxlog.FromContext(ctx).Debug("Confirm: replanning.", "step", step.ID, "old_end", oldEnd, "new_end", newEnd)

	downstream := s.graph.Descendants(step.Index)
	roots := []int{step.Index}
	if step.Task != "" && newEnd > oldEnd {
		evicted, err := s.ledger.Overflow(step.Task, step.ID, oldEnd, newEnd, func(holder string) bool {
			other, ok := s.prog.Step(holder)
			return ok && downstream[other.Index]
		})
		if err != nil {
			return fmt.Errorf("step %q: %w", step.ID, err)
		}
		for _, holder := range evicted {
			if other, ok := s.prog.Step(holder); ok {
				roots = append(roots, other.Index)
			}
		}
	}

	s.elapsed[step.Index] = elapsed
	s.gen[step.Index]++
	ss.State = Running
	ss.PlannedEnd = newEnd
	ss.ActualEnd = &newEnd
	ss.Confirmed = true
	ss.Provisional = false

	if err := s.retract(ctx, step.Index, roots); err != nil {
		return err
	}
	if step.Task != "" {
		if err := s.ledger.Extend(step.Task, step.ID, newEnd); err != nil {
			return fmt.Errorf("step %q: %w", step.ID, err)
		}
	}
	s.push(event{at: newEnd, kind: completedEvent, step: step.Index})

	if err := s.drain(ctx); err != nil {
		return err
	}
	return s.checkDeadlock(ctx)
}

// retract resets the downstream closure of roots, except step i, which keeps
// its start and must already be marked running. Roots other than i are steps
// displaced from i's task; they and any affected step whose predecessors are
// still complete are requeued at their previous ready time. Every other step
// keeps its interval.
func (s *Scheduler) retract(ctx context.Context, i int, roots []int) error {
	target := s.prog.StepAt(i)
	affected := s.graph.Descendants(roots...)

	readyAt := make(map[int]time.Duration)
	for j, hit := range affected {
		if !hit || j == i {
			continue
		}
		ss, ok := s.steps[j]
		if !ok {
			continue
		}
		if task := ss.Step.Task; task != "" {
			if err := s.ledger.Drop(task, ss.Step.ID); err != nil {
				return fmt.Errorf("step %q: %w", ss.Step.ID, err)
			}
		}
		s.gen[j]++
		readyAt[j] = ss.ReadyAt
		*ss = ScheduledStep{Step: ss.Step, Confirmed: ss.Confirmed}
	}
	ctxlog.FromContext(ctx).Debug("Retracted affected steps.", "step", target.ID, "displaced", len(roots)-1, "count", len(readyAt))

	for j := range affected {
		at, ok := readyAt[j]
		if !ok {
			continue
		}
		if len(s.graph.Preds(j)) > 0 {
			if _, done := s.predecessorsDone(j); !done {
				continue
			}
		}
		s.pushReady(j, at)
	}
	return nil
}
