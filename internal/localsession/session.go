// Package localsession provides a concrete implementation of the
// session.Session and session.SessionFactory interfaces for in-process use.
//
// A Session runs one goroutine that owns the scheduler. Events submitted from
// any goroutine are applied in arrival order through scheduler.Replan, and
// every result is published as an immutable snapshot through an atomic
// pointer, so readers never observe a half-applied event.
package localsession

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/program"
	"github.com/specialistvlad/tempogrid/internal/schedule"
	"github.com/specialistvlad/tempogrid/internal/scheduler"
	"github.com/specialistvlad/tempogrid/internal/session"
)

// SessionFactory implements session.SessionFactory for local runs.
type SessionFactory struct {
	// Recorder, if set, persists every applied event before it is published.
	Recorder session.Recorder
	// Observers are notified of every published snapshot.
	Observers []session.Observer
	// SchedulerOptions are passed to scheduler.New.
	SchedulerOptions []scheduler.Option
}

// NewSession plans p and starts the session's event loop.
func (f *SessionFactory) NewSession(ctx context.Context, p *program.Program) (session.Session, error) {
	return New(ctx, p, f)
}

type request struct {
	ctx   context.Context
	ev    scheduler.Event
	reply chan response
}

type response struct {
	snap session.Snapshot
	err  error
}

type state struct {
	sched *scheduler.Scheduler
	snap  session.Snapshot
}

// Session implements session.Session for local runs.
type Session struct {
	programID string
	recorder  session.Recorder
	observers []session.Observer

	requests  chan request
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	current atomic.Pointer[state]
}

// New plans p and starts the session's event loop. f may be nil.
func New(ctx context.Context, p *program.Program, f *SessionFactory) (*Session, error) {
	if f == nil {
		f = &SessionFactory{}
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("localsession.New called.", "program", p.ID)

	sched := scheduler.New(p, f.SchedulerOptions...)
	if err := sched.Plan(ctx); err != nil {
		return nil, fmt.Errorf("failed to plan program %q: %w", p.ID, err)
	}

	s := &Session{
		programID: p.ID,
		recorder:  f.Recorder,
		observers: f.Observers,
		requests:  make(chan request),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	s.current.Store(&state{
		sched: sched,
		snap:  session.Snapshot{Schedule: schedule.From(sched)},
	})

	go s.loop()
	return s, nil
}

// Snapshot returns the latest published schedule.
func (s *Session) Snapshot() session.Snapshot {
	return s.current.Load().snap
}

// Submit hands ev to the event loop and waits for the resulting snapshot.
func (s *Session) Submit(ctx context.Context, ev scheduler.Event) (session.Snapshot, error) {
	req := request{ctx: ctx, ev: ev, reply: make(chan response, 1)}
	select {
	case s.requests <- req:
	case <-s.quit:
		return session.Snapshot{}, session.ErrClosed
	case <-ctx.Done():
		return session.Snapshot{}, ctx.Err()
	}

	select {
	case resp := <-req.reply:
		return resp.snap, resp.err
	case <-ctx.Done():
		return session.Snapshot{}, ctx.Err()
	}
}

func (s *Session) loop() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		case req := <-s.requests:
			snap, err := s.apply(req.ctx, req.ev)
			req.reply <- response{snap: snap, err: err}
		}
	}
}

// apply runs on the loop goroutine only.
func (s *Session) apply(ctx context.Context, ev scheduler.Event) (session.Snapshot, error) {
	logger := ctxlog.FromContext(ctx)
	cur := s.current.Load()

	next, warnings, err := scheduler.Replan(ctx, cur.sched, ev)
	if err != nil {
		logger.Error("Failed to apply event.", "program", s.programID, "event", fmt.Sprintf("%+v", ev), "error", err)
		return cur.snap, fmt.Errorf("failed to apply %T: %w", ev, err)
	}

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, s.programID, ev); err != nil {
			return cur.snap, fmt.Errorf("failed to record %T: %w", ev, err)
		}
	}

	snap := session.Snapshot{
		Version:  cur.snap.Version + 1,
		Schedule: schedule.From(next),
		Warnings: warnings,
	}
	s.current.Store(&state{sched: next, snap: snap})
	logger.Debug("Published snapshot.", "program", s.programID, "version", snap.Version, "warnings", len(warnings))

	for _, observe := range s.observers {
		observe(ctx, snap)
	}
	return snap, nil
}

// Close stops the event loop and waits for it to exit.
func (s *Session) Close(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("localsession.Session.Close called.", "program", s.programID)

	s.closeOnce.Do(func() { close(s.quit) })
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
