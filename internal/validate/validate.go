// Package validate turns a parsed document into a program, collecting every
// structural violation in one pass.
package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/tempogrid/internal/ctxlog"
	"github.com/specialistvlad/tempogrid/internal/depgraph"
	"github.com/specialistvlad/tempogrid/internal/document"
	"github.com/specialistvlad/tempogrid/internal/program"
)

type checker struct {
	violations []*Violation
}

func (c *checker) add(kind error, path, format string, args ...any) *Violation {
	v := &Violation{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...)}
	c.violations = append(c.violations, v)
	return v
}

// Validate checks doc and builds the program it describes. A step without a
// start trigger follows the previous step of its track, or starts with the
// program when it is the first. On failure the error is a *Error holding
// every violation.
func Validate(ctx context.Context, doc *document.Document) (*program.Program, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Validating program.", "program", doc.ProgramID, "tracks", len(doc.Tracks), "constraints", len(doc.ResourceConstraints))

	c := &checker{}

	if doc.ProgramID == "" {
		c.add(ErrMissingField, "programId", "program identifier is required")
	}
	if doc.Name == "" {
		c.add(ErrMissingField, "name", "program name is required")
	}

	meta := program.Meta{
		ID:              doc.ProgramID,
		Name:            doc.Name,
		Description:     doc.Description,
		Version:         doc.Version,
		EnvironmentType: doc.EnvironmentType,
		Actors:          doc.Actors,
		StartTrigger:    program.ProgramStart{},
	}
	if doc.StartTrigger != nil {
		if doc.StartTrigger.Type == document.TriggerAfterStep {
			c.add(ErrInvalidProgramTrigger, "startTrigger", "a program cannot start after a step")
		} else if t := c.trigger("startTrigger", doc.StartTrigger); t != nil {
			meta.StartTrigger = t
		}
	}

	constraints := c.constraints(doc.ResourceConstraints)
	known := make(map[string]bool, len(constraints))
	for _, rc := range constraints {
		known[rc.Task] = true
	}

	tracks := c.tracks(doc.Tracks, known)
	p := program.New(meta, tracks, constraints)

	for _, step := range p.Steps() {
		after, ok := step.Trigger.(program.AfterStep)
		if !ok {
			continue
		}
		if _, exists := p.Step(after.StepID); !exists {
			c.add(ErrDanglingTriggerReference, stepPath(step), "step %q starts after unknown step %q", step.ID, after.StepID)
		}
	}

	for _, members := range depgraph.New(p).Cycles() {
		v := c.add(ErrCyclicDependency, "", "%s", strings.Join(append(members, members[0]), " -> "))
		v.Members = members
	}

	if len(c.violations) > 0 {
		logger.Debug("Program is invalid.", "program", doc.ProgramID, "violations", len(c.violations))
		return nil, &Error{ProgramID: doc.ProgramID, Violations: c.violations}
	}

	logger.Debug("Program validated.", "program", p.ID, "steps", p.Len())
	return p, nil
}

func (c *checker) constraints(in []document.ResourceConstraint) []program.ResourceConstraint {
	out := make([]program.ResourceConstraint, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, rc := range in {
		path := fmt.Sprintf("resourceConstraints[%d]", i)
		switch {
		case rc.Task == "":
			c.add(ErrMissingField, path, "task is required")
			continue
		case seen[rc.Task]:
			c.add(ErrDuplicateResourceConstraint, path, "task %q is already constrained", rc.Task)
			continue
		}
		seen[rc.Task] = true
		if rc.MaxConcurrent < 1 {
			c.add(ErrInvalidResourceLimit, path, "maxConcurrent for %q must be at least 1, got %d", rc.Task, rc.MaxConcurrent)
		}
		out = append(out, program.ResourceConstraint{
			Task:          rc.Task,
			MaxConcurrent: rc.MaxConcurrent,
			Description:   rc.Description,
		})
	}
	return out
}

func (c *checker) tracks(in []document.Track, knownTasks map[string]bool) []*program.Track {
	out := make([]*program.Track, 0, len(in))
	stepIDs := make(map[string]string)
	triggerNames := make(map[string]string)

	for ti, dt := range in {
		trackPath := fmt.Sprintf("tracks[%d]", ti)
		if dt.TrackID == "" {
			c.add(ErrMissingField, trackPath, "trackId is required")
		}
		track := &program.Track{
			ID:          dt.TrackID,
			Name:        dt.Name,
			Description: dt.Description,
		}

		for si, ds := range dt.Steps {
			path := fmt.Sprintf("%s.steps[%d]", trackPath, si)
			step := &program.Step{
				ID:          ds.StepID,
				Name:        ds.Name,
				Description: ds.Description,
				Task:        ds.Task,
			}

			switch first, dup := stepIDs[ds.StepID]; {
			case ds.StepID == "":
				c.add(ErrMissingField, path, "stepId is required")
			case dup:
				c.add(ErrDuplicateStepID, path, "step %q is already defined at %s", ds.StepID, first)
			default:
				stepIDs[ds.StepID] = path
			}

			switch {
			case ds.StartTrigger != nil:
				step.Trigger = c.trigger(path+".startTrigger", ds.StartTrigger)
			case si > 0:
				step.Trigger = program.AfterStep{StepID: dt.Steps[si-1].StepID}
			default:
				step.Trigger = program.ProgramStart{}
			}

			step.Duration = c.duration(path+".duration", ds.Duration)
			if v, ok := step.Duration.(program.Variable); ok {
				if first, dup := triggerNames[v.TriggerName]; dup {
					c.add(ErrDuplicateTriggerName, path, "trigger name %q is already used at %s", v.TriggerName, first)
				} else {
					triggerNames[v.TriggerName] = path
				}
			}

			if ds.Task != "" && !knownTasks[ds.Task] {
				c.add(ErrUnknownTaskReference, path, "task %q has no resource constraint", ds.Task)
			}

			track.Steps = append(track.Steps, step)
		}
		out = append(out, track)
	}
	return out
}

// trigger converts t, returning nil when it is invalid.
func (c *checker) trigger(path string, t *document.Trigger) program.Trigger {
	switch t.Type {
	case document.TriggerProgramStart:
		return program.ProgramStart{}
	case document.TriggerAfterStep:
		if t.StepID == "" {
			c.add(ErrMissingField, path, "afterStep requires stepId")
			return nil
		}
		return program.AfterStep{StepID: t.StepID}
	case document.TriggerProgramStartOffset:
		if t.OffsetSeconds == nil {
			c.add(ErrMissingField, path, "programStartOffset requires offsetSeconds")
			return nil
		}
		if *t.OffsetSeconds < 0 {
			c.add(ErrInvalidDuration, path, "offsetSeconds must not be negative, got %g", *t.OffsetSeconds)
			return nil
		}
		return program.ProgramStartOffset{Offset: program.Seconds(*t.OffsetSeconds)}
	case document.TriggerManual:
		return program.Manual{}
	case "":
		c.add(ErrMissingField, path, "trigger type is required")
		return nil
	default:
		c.add(ErrUnknownTriggerType, path, "%q", t.Type)
		return nil
	}
}

// duration converts d, returning nil when it is invalid.
func (c *checker) duration(path string, d *document.Duration) program.Duration {
	if d == nil {
		c.add(ErrMissingField, path, "duration is required")
		return nil
	}

	switch d.Type {
	case document.DurationFixed:
		if d.Seconds == nil {
			c.add(ErrInvalidDuration, path, "fixed duration requires seconds")
			return nil
		}
		if *d.Seconds < 0 {
			c.add(ErrInvalidDuration, path, "seconds must not be negative, got %g", *d.Seconds)
			return nil
		}
		return program.Fixed{Length: program.Seconds(*d.Seconds)}

	case document.DurationVariable:
		if d.MinSeconds == nil || d.MaxSeconds == nil || d.DefaultSeconds == nil {
			c.add(ErrInvalidDuration, path, "variable duration requires minSeconds, maxSeconds and defaultSeconds")
			return nil
		}
		if d.TriggerName == "" {
			c.add(ErrInvalidDuration, path, "variable duration requires triggerName")
			return nil
		}
		minS, maxS, defS := *d.MinSeconds, *d.MaxSeconds, *d.DefaultSeconds
		if minS < 0 || minS > defS || defS > maxS {
			c.add(ErrInvalidDuration, path, "expected 0 <= minSeconds <= defaultSeconds <= maxSeconds, got %g, %g, %g", minS, defS, maxS)
			return nil
		}
		return program.Variable{
			Min:         program.Seconds(minS),
			Max:         program.Seconds(maxS),
			Default:     program.Seconds(defS),
			TriggerName: d.TriggerName,
		}

	case "":
		c.add(ErrMissingField, path, "duration type is required")
		return nil
	default:
		c.add(ErrUnknownDurationType, path, "%q", d.Type)
		return nil
	}
}

func stepPath(s *program.Step) string {
	return fmt.Sprintf("tracks[%d].steps[%d]", s.TrackIndex, s.Position)
}
