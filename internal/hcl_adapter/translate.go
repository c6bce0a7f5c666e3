package hcl_adapter

import (
	"github.com/specialistvlad/tempogrid/internal/document"
)

// translateProgram maps the decoded HCL blocks onto the format-neutral
// document model. Semantic checks are left to the validator so that every
// format reports the same violations.
func translateProgram(p *programBlock) *document.Document {
	doc := &document.Document{
		ProgramID:       p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Version:         p.Version,
		EnvironmentType: p.EnvironmentType,
		Actors:          p.Actors,
		StartTrigger:    translateTrigger(p.StartTrigger),
		Tracks:          make([]document.Track, 0, len(p.Tracks)),
	}
	for _, r := range p.Resources {
		doc.ResourceConstraints = append(doc.ResourceConstraints, document.ResourceConstraint{
			Task:          r.Task,
			MaxConcurrent: r.MaxConcurrent,
			Description:   r.Description,
		})
	}
	for _, t := range p.Tracks {
		doc.Tracks = append(doc.Tracks, translateTrack(t))
	}
	return doc
}

func translateTrack(t *trackBlock) document.Track {
	track := document.Track{
		TrackID:     t.ID,
		Name:        t.Name,
		Description: t.Description,
		Steps:       make([]document.Step, 0, len(t.Steps)),
	}
	for _, s := range t.Steps {
		track.Steps = append(track.Steps, document.Step{
			StepID:       s.ID,
			Name:         s.Name,
			Description:  s.Description,
			Task:         s.Task,
			StartTrigger: translateTrigger(s.StartTrigger),
			Duration:     translateDuration(s.Duration),
		})
	}
	return track
}

func translateTrigger(t *triggerBlock) *document.Trigger {
	if t == nil {
		return nil
	}
	return &document.Trigger{
		Type:          t.Type,
		StepID:        t.Step,
		OffsetSeconds: t.OffsetSeconds,
	}
}

func translateDuration(d *durationBlock) *document.Duration {
	if d == nil {
		return nil
	}
	return &document.Duration{
		Type:           d.Type,
		Seconds:        d.Seconds,
		MinSeconds:     d.MinSeconds,
		MaxSeconds:     d.MaxSeconds,
		DefaultSeconds: d.DefaultSeconds,
		TriggerName:    d.TriggerName,
	}
}
