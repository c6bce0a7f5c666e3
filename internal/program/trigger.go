// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package program

import (
	"fmt"
	"time"
)

// Trigger is the condition that makes a step eligible to begin.
//
// The set of implementations is closed: ProgramStart, AfterStep,
// ProgramStartOffset and Manual.
type Trigger interface {
	fmt.Stringer
	trigger()
}

// ProgramStart makes a step ready at the program epoch.
type ProgramStart struct{}

// AfterStep makes a step ready when the referenced step completes.
type AfterStep struct {
	StepID string
}

// ProgramStartOffset makes a step ready at epoch + Offset.
type ProgramStartOffset struct {
	Offset time.Duration
}

// Manual makes a step ready only on an explicit external start signal.
type Manual struct{}

func (ProgramStart) trigger()       {}
func (AfterStep) trigger()          {}
func (ProgramStartOffset) trigger() {}
func (Manual) trigger()             {}

func (ProgramStart) String() string { return "programStart" }

func (t AfterStep) String() string { return fmt.Sprintf("afterStep(%s)", t.StepID) }

func (t ProgramStartOffset) String() string {
	return fmt.Sprintf("programStartOffset(%s)", t.Offset)
}

func (Manual) String() string { return "manual" }
