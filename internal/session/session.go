// Package session defines the core interfaces for creating and managing a
// live scheduling session. It abstracts away where the session runs.
package session

import (
	"context"
	"errors"

	"github.com/specialistvlad/tempogrid/internal/program"
	"github.com/specialistvlad/tempogrid/internal/schedule"
	"github.com/specialistvlad/tempogrid/internal/scheduler"
)

// ErrClosed is returned when submitting to a closed session.
var ErrClosed = errors.New("session closed")

// SessionFactory creates a Session for one program.
type SessionFactory interface {
	NewSession(ctx context.Context, p *program.Program) (Session, error)
}

// Session owns the schedule of one program and applies live events to it one
// at a time.
type Session interface {
	// Snapshot returns the latest published schedule. It never blocks.
	Snapshot() Snapshot
	// Submit applies ev and returns the snapshot it produced.
	Submit(ctx context.Context, ev scheduler.Event) (Snapshot, error)
	// Close stops the session. It accepts a context to bound the wait for
	// the event loop to finish.
	Close(ctx context.Context) error
}

// Snapshot is an immutable published state of a session.
type Snapshot struct {
	// Version increases by one with every applied event; the initial plan
	// is version 0.
	Version  uint64
	Schedule *schedule.Schedule
	// Warnings are the warnings produced by the event that led to this
	// snapshot.
	Warnings []scheduler.Warning
}

// Recorder persists applied events, e.g. to a journal.
type Recorder interface {
	Record(ctx context.Context, programID string, ev scheduler.Event) error
}

// Observer is notified of every published snapshot after the initial plan.
type Observer func(ctx context.Context, snap Snapshot)
