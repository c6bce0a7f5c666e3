package document

// Trigger type tags accepted in documents.
const (
	TriggerProgramStart       = "programStart"
	TriggerAfterStep          = "afterStep"
	TriggerProgramStartOffset = "programStartOffset"
	TriggerManual             = "manual"
)

// Duration type tags accepted in documents.
const (
	DurationFixed    = "fixed"
	DurationVariable = "variable"
)

// Document is the parsed program document.
type Document struct {
	ProgramID           string               `json:"programId" yaml:"programId"`
	Name                string               `json:"name" yaml:"name"`
	Description         string               `json:"description,omitempty" yaml:"description,omitempty"`
	Version             string               `json:"version,omitempty" yaml:"version,omitempty"`
	EnvironmentType     string               `json:"environmentType,omitempty" yaml:"environmentType,omitempty"`
	Actors              int                  `json:"actors,omitempty" yaml:"actors,omitempty"`
	StartTrigger        *Trigger             `json:"startTrigger,omitempty" yaml:"startTrigger,omitempty"`
	Tracks              []Track              `json:"tracks" yaml:"tracks"`
	ResourceConstraints []ResourceConstraint `json:"resourceConstraints" yaml:"resourceConstraints"`
}

// Track is a document track.
type Track struct {
	TrackID     string `json:"trackId" yaml:"trackId"`
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []Step `json:"steps" yaml:"steps"`
}

// Step is a document step.
type Step struct {
	StepID       string    `json:"stepId" yaml:"stepId"`
	Name         string    `json:"name,omitempty" yaml:"name,omitempty"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
	Task         string    `json:"task,omitempty" yaml:"task,omitempty"`
	StartTrigger *Trigger  `json:"startTrigger,omitempty" yaml:"startTrigger,omitempty"`
	Duration     *Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// Trigger is a tagged start trigger. StepID is used by afterStep and
// OffsetSeconds by programStartOffset.
type Trigger struct {
	Type          string   `json:"type" yaml:"type"`
	StepID        string   `json:"stepId,omitempty" yaml:"stepId,omitempty"`
	OffsetSeconds *float64 `json:"offsetSeconds,omitempty" yaml:"offsetSeconds,omitempty"`
}

// Duration is a tagged duration. Seconds is used by fixed; the remaining
// fields by variable.
type Duration struct {
	Type           string   `json:"type" yaml:"type"`
	Seconds        *float64 `json:"seconds,omitempty" yaml:"seconds,omitempty"`
	MinSeconds     *float64 `json:"minSeconds,omitempty" yaml:"minSeconds,omitempty"`
	MaxSeconds     *float64 `json:"maxSeconds,omitempty" yaml:"maxSeconds,omitempty"`
	DefaultSeconds *float64 `json:"defaultSeconds,omitempty" yaml:"defaultSeconds,omitempty"`
	TriggerName    string   `json:"triggerName,omitempty" yaml:"triggerName,omitempty"`
}

// ResourceConstraint is a document resource limit.
type ResourceConstraint struct {
	Task          string `json:"task" yaml:"task"`
	MaxConcurrent int    `json:"maxConcurrent" yaml:"maxConcurrent"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty"`
}
