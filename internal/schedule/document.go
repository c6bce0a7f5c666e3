package schedule

import (
	"time"
)

// Document is the JSON form of a schedule. Times are seconds from the
// program epoch.
type Document struct {
	ProgramID        string           `json:"programId"`
	Name             string           `json:"name"`
	Description      string           `json:"description,omitempty"`
	Version          string           `json:"version,omitempty"`
	EnvironmentType  string           `json:"environmentType,omitempty"`
	Actors           int              `json:"actors,omitempty"`
	StartedAtSeconds *float64         `json:"startedAtSeconds,omitempty"`
	MakespanSeconds  float64          `json:"makespanSeconds"`
	Entries          []EntryDoc       `json:"entries"`
	Tracks           []TimelineDoc    `json:"tracks"`
	CriticalPath     PathDoc          `json:"criticalPath"`
	Utilization      []UtilizationDoc `json:"utilization"`
	Warnings         []WarningDoc     `json:"warnings,omitempty"`
}

// EntryDoc is the JSON form of an Entry. Start and end are null for steps
// that were never scheduled.
type EntryDoc struct {
	StepID       string   `json:"stepId"`
	Name         string   `json:"name,omitempty"`
	TrackID      string   `json:"trackId"`
	Task         string   `json:"task,omitempty"`
	State        string   `json:"state"`
	PlannedStart *float64 `json:"plannedStart"`
	PlannedEnd   *float64 `json:"plannedEnd"`
	Provisional  bool     `json:"provisional,omitempty"`
	Confirmed    bool     `json:"confirmed,omitempty"`
	WaitedOn     string   `json:"waitedOn,omitempty"`
}

// TimelineDoc is the JSON form of a Timeline.
type TimelineDoc struct {
	TrackID string     `json:"trackId"`
	Name    string     `json:"name,omitempty"`
	Entries []EntryDoc `json:"entries"`
}

// PathDoc is the JSON form of a Path.
type PathDoc struct {
	Steps         []string `json:"steps"`
	StartSeconds  float64  `json:"startSeconds"`
	EndSeconds    float64  `json:"endSeconds"`
	LengthSeconds float64  `json:"lengthSeconds"`
}

// IntervalDoc is the JSON form of an Interval.
type IntervalDoc struct {
	StepID       string  `json:"stepId"`
	StartSeconds float64 `json:"startSeconds"`
	EndSeconds   float64 `json:"endSeconds"`
}

// UtilizationDoc is the JSON form of a Utilization.
type UtilizationDoc struct {
	Task      string        `json:"task"`
	Limit     int           `json:"limit"`
	Peak      int           `json:"peak"`
	Exceeded  bool          `json:"exceeded"`
	Intervals []IntervalDoc `json:"intervals"`
}

// WarningDoc is the JSON form of a scheduler warning.
type WarningDoc struct {
	Kind        string `json:"kind"`
	StepID      string `json:"stepId,omitempty"`
	TriggerName string `json:"triggerName,omitempty"`
	Message     string `json:"message"`
}

func seconds(d time.Duration) float64 { return d.Seconds() }

func entryDoc(e Entry) EntryDoc {
	doc := EntryDoc{
		StepID:      e.Step.ID,
		Name:        e.Step.Name,
		TrackID:     e.TrackID,
		Task:        e.Step.Task,
		State:       e.State.String(),
		Provisional: e.Provisional,
		Confirmed:   e.Confirmed,
		WaitedOn:    e.WaitedOn,
	}
	if e.Scheduled {
		start, end := seconds(e.PlannedStart), seconds(e.PlannedEnd)
		doc.PlannedStart = &start
		doc.PlannedEnd = &end
	}
	return doc
}

// Document builds the JSON form of the schedule.
func (s *Schedule) Document() Document {
	p := s.Program
	doc := Document{
		ProgramID:       p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Version:         p.Version,
		EnvironmentType: p.EnvironmentType,
		Actors:          p.Actors,
		MakespanSeconds: seconds(s.Makespan()),
		Entries:         []EntryDoc{},
		Tracks:          []TimelineDoc{},
		Utilization:     []UtilizationDoc{},
	}
	if s.StartedAt != nil {
		at := seconds(*s.StartedAt)
		doc.StartedAtSeconds = &at
	}

	for _, e := range s.Entries() {
		doc.Entries = append(doc.Entries, entryDoc(e))
	}
	for _, tl := range s.Timelines() {
		td := TimelineDoc{TrackID: tl.Track.ID, Name: tl.Track.Name, Entries: []EntryDoc{}}
		for _, e := range tl.Entries {
			td.Entries = append(td.Entries, entryDoc(e))
		}
		doc.Tracks = append(doc.Tracks, td)
	}

	path := s.CriticalPath()
	doc.CriticalPath = PathDoc{
		Steps:         path.Steps,
		StartSeconds:  seconds(path.Start),
		EndSeconds:    seconds(path.End),
		LengthSeconds: seconds(path.Length()),
	}
	if doc.CriticalPath.Steps == nil {
		doc.CriticalPath.Steps = []string{}
	}

	for _, u := range s.Utilization() {
		ud := UtilizationDoc{
			Task:      u.Task,
			Limit:     u.Limit,
			Peak:      u.Peak,
			Exceeded:  u.Exceeded(),
			Intervals: []IntervalDoc{},
		}
		for _, iv := range u.Intervals {
			ud.Intervals = append(ud.Intervals, IntervalDoc{
				StepID:       iv.StepID,
				StartSeconds: seconds(iv.Start),
				EndSeconds:   seconds(iv.End),
			})
		}
		doc.Utilization = append(doc.Utilization, ud)
	}

	for _, w := range s.Warnings {
		doc.Warnings = append(doc.Warnings, WarningDoc{
			Kind:        w.Kind.String(),
			StepID:      w.StepID,
			TriggerName: w.TriggerName,
			Message:     w.Message,
		})
	}
	return doc
}
