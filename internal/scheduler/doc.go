// Package scheduler turns a validated program into a timed schedule and keeps
// it current as live events arrive.
//
// # How It Works
//
// Planning is a discrete-event simulation over a logical clock measured from
// the program epoch. Two kinds of events drive it:
//
//   - ready: a step's predecessors have all completed (or its trigger fired)
//     and it asks the ledger for its task over [t, t+duration).
//   - completed: a running step ends, releases its task and readies the
//     successors whose predecessors are now all complete.
//
// Events are ordered by (time, kind, track index, step index, sequence).
// Completions come before ready events at the same instant so a slot freed at
// t is visible to a step becoming ready at t. A step the ledger turns away is
// requeued at the instant the ledger names, never polled.
//
// # Live Updates
//
// A Confirmation reports the real elapsed time of a variable-duration step.
// Values outside [min, max] are clamped and flagged unless
// WithUnclampedConfirmations is set. The scheduler retracts the confirmed
// step's stale completion and everything downstream of it. Every other hold
// stays pinned in the ledger, so unrelated steps keep their times. The one
// exception is a longer step whose extra time would put its task over the
// limit: the holds the ledger names in Overflow are displaced and replanned
// along with their dependents. A StartSignal releases the steps waiting on a
// manual start.
//
// Replan is the pure form of Apply: it works on a clone and leaves its input
// untouched, which is what lets a session publish immutable snapshots.
package scheduler
