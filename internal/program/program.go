// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package program

// Program is the root of a validated, immutable program.
type Program struct {
	ID              string
	Name            string
	Description     string
	Version         string
	EnvironmentType string
	// Actors is the number of people or operators available. It is carried
	// for renderers; the engine models contention only through tasks.
	Actors       int
	StartTrigger Trigger
	Tracks       []*Track
	// Constraints keeps declaration order for deterministic output.
	Constraints []ResourceConstraint

	steps       []*Step
	byID        map[string]*Step
	byTrigger   map[string]*Step
	constraints map[string]ResourceConstraint
}

// Track is an ordered sequence of steps that runs in parallel with other tracks.
type Track struct {
	ID          string
	Name        string
	Description string
	// Index is the position of the track within the program.
	Index int
	Steps []*Step
}

// Step is an atomic unit of work owned by exactly one track.
type Step struct {
	ID          string
	Name        string
	Description string
	// Task is the resource tag occupied while running. Empty means none.
	Task     string
	Trigger  Trigger
	Duration Duration

	// Index is the program-wide order (track-major, then Position).
	Index int
	// TrackIndex is the owning track's Index.
	TrackIndex int
	// Position is the step's place within its track.
	Position int
}

// ResourceConstraint limits how many steps may hold a task at once.
type ResourceConstraint struct {
	Task          string
	MaxConcurrent int
	Description   string
}

// Meta holds the descriptive, program-level fields.
type Meta struct {
	ID              string
	Name            string
	Description     string
	Version         string
	EnvironmentType string
	Actors          int
	StartTrigger    Trigger
}

// New assembles a Program and fills in the derived indices: step order,
// track and position numbers, and lookup tables. Duplicate identifiers keep
// the first occurrence; the validator reports them before a program escapes.
func New(meta Meta, tracks []*Track, constraints []ResourceConstraint) *Program {
	p := &Program{
		ID:              meta.ID,
		Name:            meta.Name,
		Description:     meta.Description,
		Version:         meta.Version,
		EnvironmentType: meta.EnvironmentType,
		Actors:          meta.Actors,
		StartTrigger:    meta.StartTrigger,
		Tracks:          tracks,
		Constraints:     constraints,
		byID:            make(map[string]*Step),
		byTrigger:       make(map[string]*Step),
		constraints:     make(map[string]ResourceConstraint, len(constraints)),
	}
	if p.StartTrigger == nil {
		p.StartTrigger = ProgramStart{}
	}

	for ti, track := range tracks {
		track.Index = ti
		for si, step := range track.Steps {
			step.TrackIndex = ti
			step.Position = si
			step.Index = len(p.steps)
			p.steps = append(p.steps, step)

			if _, exists := p.byID[step.ID]; !exists {
				p.byID[step.ID] = step
			}
			if v, ok := step.Duration.(Variable); ok && v.TriggerName != "" {
				if _, exists := p.byTrigger[v.TriggerName]; !exists {
					p.byTrigger[v.TriggerName] = step
				}
			}
		}
	}
	for _, c := range constraints {
		if _, exists := p.constraints[c.Task]; !exists {
			p.constraints[c.Task] = c
		}
	}
	return p
}

// Len returns the number of steps in the program.
func (p *Program) Len() int { return len(p.steps) }

// Steps returns every step in program order.
func (p *Program) Steps() []*Step {
	out := make([]*Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// StepAt returns the step with the given program-wide index.
func (p *Program) StepAt(i int) *Step { return p.steps[i] }

// Step looks up a step by identifier.
func (p *Program) Step(id string) (*Step, bool) {
	s, ok := p.byID[id]
	return s, ok
}

// StepByTrigger looks up the variable-duration step confirmed by name.
func (p *Program) StepByTrigger(name string) (*Step, bool) {
	s, ok := p.byTrigger[name]
	return s, ok
}

// Constraint returns the resource constraint declared for task.
func (p *Program) Constraint(task string) (ResourceConstraint, bool) {
	c, ok := p.constraints[task]
	return c, ok
}

// TrackOf returns the track that owns s.
func (p *Program) TrackOf(s *Step) *Track {
	return p.Tracks[s.TrackIndex]
}

// Before reports whether a precedes b in program order. It is the
// (track index, step index) tie-break used throughout the engine.
func Before(a, b *Step) bool {
	if a.TrackIndex != b.TrackIndex {
		return a.TrackIndex < b.TrackIndex
	}
	return a.Position < b.Position
}
