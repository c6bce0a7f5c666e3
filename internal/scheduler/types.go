package scheduler

import (
	"fmt"
	"time"

	"github.com/specialistvlad/tempogrid/internal/program"
)

// State is the lifecycle state of a scheduled step.
type State int

const (
	Pending State = iota
	Ready
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ScheduledStep is the engine's view of one step.
type ScheduledStep struct {
	Step  *program.Step
	State State
	// ReadyAt is when the step's trigger was satisfied.
	ReadyAt      time.Duration
	PlannedStart time.Duration
	PlannedEnd   time.Duration
	ActualStart  *time.Duration
	ActualEnd    *time.Duration
	// Provisional is set while PlannedEnd is an estimate from a variable
	// default.
	Provisional bool
	Confirmed   bool
	// WaitedOn names the task the step was deferred on, if it had to wait.
	WaitedOn string
}

// Scheduled reports whether the step has been given a start time.
func (s ScheduledStep) Scheduled() bool {
	return s.ActualStart != nil
}

// WarningKind classifies a Warning.
type WarningKind int

const (
	// WarnOutOfRange: a confirmed elapsed time lies outside [min, max].
	WarnOutOfRange WarningKind = iota
	// WarnUnknownTrigger: no step is confirmed by the trigger name.
	WarnUnknownTrigger
	// WarnNotStarted: the confirmed step has not been admitted yet.
	WarnNotStarted
	// WarnAlreadyConfirmed: the step was confirmed before.
	WarnAlreadyConfirmed
	// WarnAlreadyStarted: a second start signal.
	WarnAlreadyStarted
)

func (k WarningKind) String() string {
	switch k {
	case WarnOutOfRange:
		return "out-of-range"
	case WarnUnknownTrigger:
		return "unknown-trigger"
	case WarnNotStarted:
		return "not-started"
	case WarnAlreadyConfirmed:
		return "already-confirmed"
	case WarnAlreadyStarted:
		return "already-started"
	default:
		return fmt.Sprintf("WarningKind(%d)", int(k))
	}
}

// Warning is a non-fatal problem met while applying a live event.
type Warning struct {
	Kind        WarningKind
	StepID      string
	TriggerName string
	Message     string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}
