package testutil

import (
	"github.com/specialistvlad/tempogrid/internal/document"
)

// BreakfastJSON is the two-track breakfast program used across tests.
const BreakfastJSON = `{
  "programId": "breakfast-schedule",
  "name": "Breakfast Schedule",
  "description": "Coordinated breakfast preparation for eggs and bacon",
  "version": "1.0.0",
  "environmentType": "kitchen",
  "actors": 2,
  "startTrigger": {"type": "manual"},
  "tracks": [
    {
      "trackId": "scrambled-eggs",
      "name": "Scrambled Eggs",
      "steps": [
        {
          "stepId": "eggs-crack-whisk",
          "name": "Crack and Whisk Eggs",
          "startTrigger": {"type": "programStart"},
          "duration": {"type": "fixed", "seconds": 60},
          "task": "prep-work"
        },
        {
          "stepId": "eggs-cook",
          "name": "Cook Eggs",
          "startTrigger": {"type": "afterStep", "stepId": "eggs-crack-whisk"},
          "duration": {"type": "variable", "minSeconds": 120, "maxSeconds": 180, "defaultSeconds": 150, "triggerName": "eggs-done"},
          "task": "stove-burner"
        }
      ]
    },
    {
      "trackId": "bacon",
      "name": "Bacon",
      "steps": [
        {
          "stepId": "bacon-prep",
          "name": "Prepare Bacon",
          "startTrigger": {"type": "programStart"},
          "duration": {"type": "fixed", "seconds": 60},
          "task": "prep-work"
        },
        {
          "stepId": "bacon-cook",
          "name": "Cook Bacon",
          "startTrigger": {"type": "afterStep", "stepId": "bacon-prep"},
          "duration": {"type": "variable", "minSeconds": 480, "maxSeconds": 720, "defaultSeconds": 600, "triggerName": "bacon-done"},
          "task": "stove-burner"
        }
      ]
    }
  ],
  "resourceConstraints": [
    {"task": "stove-burner", "maxConcurrent": 2, "description": "Stove burners available"},
    {"task": "prep-work", "maxConcurrent": 2, "description": "Preparation workspace"}
  ]
}`

// Sec returns a pointer to s, for optional document fields.
func Sec(s float64) *float64 { return &s }

// ProgramStart returns a programStart trigger.
func ProgramStart() *document.Trigger {
	return &document.Trigger{Type: document.TriggerProgramStart}
}

// After returns an afterStep trigger referencing id.
func After(id string) *document.Trigger {
	return &document.Trigger{Type: document.TriggerAfterStep, StepID: id}
}

// Offset returns a programStartOffset trigger.
func Offset(seconds float64) *document.Trigger {
	return &document.Trigger{Type: document.TriggerProgramStartOffset, OffsetSeconds: Sec(seconds)}
}

// Manual returns a manual trigger.
func Manual() *document.Trigger {
	return &document.Trigger{Type: document.TriggerManual}
}

// Fixed returns a fixed duration.
func Fixed(seconds float64) *document.Duration {
	return &document.Duration{Type: document.DurationFixed, Seconds: Sec(seconds)}
}

// Variable returns a variable duration.
func Variable(minS, maxS, defS float64, name string) *document.Duration {
	return &document.Duration{
		Type:           document.DurationVariable,
		MinSeconds:     Sec(minS),
		MaxSeconds:     Sec(maxS),
		DefaultSeconds: Sec(defS),
		TriggerName:    name,
	}
}

// Step builds a document step.
func Step(id, task string, trigger *document.Trigger, d *document.Duration) document.Step {
	return document.Step{StepID: id, Task: task, StartTrigger: trigger, Duration: d}
}

// Named sets the display name of a step.
func Named(name string, step document.Step) document.Step {
	step.Name = name
	return step
}

// Breakfast returns the breakfast program as a document value, equivalent to
// BreakfastJSON.
func Breakfast() *document.Document {
	return &document.Document{
		ProgramID:       "breakfast-schedule",
		Name:            "Breakfast Schedule",
		Description:     "Coordinated breakfast preparation for eggs and bacon",
		Version:         "1.0.0",
		EnvironmentType: "kitchen",
		Actors:          2,
		StartTrigger:    Manual(),
		Tracks: []document.Track{
			{
				TrackID: "scrambled-eggs",
				Name:    "Scrambled Eggs",
				Steps: []document.Step{
					Named("Crack and Whisk Eggs", Step("eggs-crack-whisk", "prep-work", ProgramStart(), Fixed(60))),
					Named("Cook Eggs", Step("eggs-cook", "stove-burner", After("eggs-crack-whisk"), Variable(120, 180, 150, "eggs-done"))),
				},
			},
			{
				TrackID: "bacon",
				Name:    "Bacon",
				Steps: []document.Step{
					Named("Prepare Bacon", Step("bacon-prep", "prep-work", ProgramStart(), Fixed(60))),
					Named("Cook Bacon", Step("bacon-cook", "stove-burner", After("bacon-prep"), Variable(480, 720, 600, "bacon-done"))),
				},
			},
		},
		ResourceConstraints: []document.ResourceConstraint{
			{Task: "stove-burner", MaxConcurrent: 2, Description: "Stove burners available"},
			{Task: "prep-work", MaxConcurrent: 2, Description: "Preparation workspace"},
		},
	}
}
