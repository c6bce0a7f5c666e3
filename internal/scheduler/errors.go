package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrResourceDeadlock is wrapped by DeadlockError.
	ErrResourceDeadlock = errors.New("resource deadlock")
	// ErrAlreadyPlanned is returned by a second call to Plan.
	ErrAlreadyPlanned = errors.New("schedule already planned")
	// ErrNotPlanned is returned when an event is applied before Plan.
	ErrNotPlanned = errors.New("schedule not planned")
)

// DeadlockError reports steps that can never be scheduled.
type DeadlockError struct {
	Unreachable []string
}

func (e *DeadlockError) Error() string {
	return fmt.Sprintf("%s: %d step(s) can never start: %s", ErrResourceDeadlock, len(e.Unreachable), strings.Join(e.Unreachable, ", "))
}

func (e *DeadlockError) Unwrap() error { return ErrResourceDeadlock }
