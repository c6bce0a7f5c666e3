package validate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateStepID             = errors.New("duplicate step id")
	ErrDanglingTriggerReference    = errors.New("dangling trigger reference")
	ErrUnknownTaskReference        = errors.New("unknown task reference")
	ErrInvalidResourceLimit        = errors.New("invalid resource limit")
	ErrCyclicDependency            = errors.New("cyclic dependency")
	ErrMissingField                = errors.New("missing field")
	ErrUnknownTriggerType          = errors.New("unknown trigger type")
	ErrUnknownDurationType         = errors.New("unknown duration type")
	ErrInvalidDuration             = errors.New("invalid duration")
	ErrDuplicateResourceConstraint = errors.New("duplicate resource constraint")
	ErrDuplicateTriggerName        = errors.New("duplicate trigger name")
	ErrInvalidProgramTrigger       = errors.New("invalid program trigger")
)

// Violation is a single problem found in a document.
type Violation struct {
	// Kind is one of the sentinel errors above.
	Kind error
	// Path locates the offending element, e.g. "tracks[1].steps[0]".
	Path string
	Msg  string
	// Members lists the step identifiers forming a cycle.
	Members []string
}

func (v *Violation) Error() string {
	var b strings.Builder
	b.WriteString(v.Kind.Error())
	if v.Path != "" {
		b.WriteString(" at ")
		b.WriteString(v.Path)
	}
	if v.Msg != "" {
		b.WriteString(": ")
		b.WriteString(v.Msg)
	}
	return b.String()
}

func (v *Violation) Unwrap() error { return v.Kind }

// Error carries every violation found in a document.
type Error struct {
	ProgramID  string
	Violations []*Violation
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "program %q is invalid (%d violation", e.ProgramID, len(e.Violations))
	if len(e.Violations) != 1 {
		b.WriteString("s")
	}
	b.WriteString(")")
	for _, v := range e.Violations {
		b.WriteString("\n  - ")
		b.WriteString(v.Error())
	}
	return b.String()
}

// Unwrap exposes the violations to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, len(e.Violations))
	for i, v := range e.Violations {
		out[i] = v
	}
	return out
}

// Of returns the violations of the given kind.
func (e *Error) Of(kind error) []*Violation {
	var out []*Violation
	for _, v := range e.Violations {
		if errors.Is(v, kind) {
			out = append(out, v)
		}
	}
	return out
}
