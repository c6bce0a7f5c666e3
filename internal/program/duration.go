// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package program

import (
	"fmt"
	"math"
	"time"
)

// Duration is how long a step occupies its track and task.
//
// The set of implementations is closed: Fixed and Variable.
type Duration interface {
	fmt.Stringer
	// Planned is the length the scheduler uses before any confirmation.
	Planned() time.Duration
	duration()
}

// Fixed is a literal duration.
type Fixed struct {
	Length time.Duration
}

// Variable is planned with Default and finalized when a confirmation named
// TriggerName arrives. Min and Max are advisory bounds.
type Variable struct {
	Min         time.Duration
	Max         time.Duration
	Default     time.Duration
	TriggerName string
}

func (Fixed) duration()    {}
func (Variable) duration() {}

// Planned implements Duration.
func (d Fixed) Planned() time.Duration { return d.Length }

// Planned implements Duration.
func (d Variable) Planned() time.Duration { return d.Default }

func (d Fixed) String() string { return fmt.Sprintf("fixed(%s)", d.Length) }

func (d Variable) String() string {
	return fmt.Sprintf("variable(%s..%s, default %s, %q)", d.Min, d.Max, d.Default, d.TriggerName)
}

// Within reports whether elapsed lies inside [Min, Max].
func (d Variable) Within(elapsed time.Duration) bool {
	return elapsed >= d.Min && elapsed <= d.Max
}

// Clamp forces elapsed into [Min, Max].
func (d Variable) Clamp(elapsed time.Duration) time.Duration {
	return min(max(elapsed, d.Min), d.Max)
}

// Seconds converts document seconds into logical time, rounded to the
// nearest nanosecond.
func Seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}
