package hcl_adapter

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// variablesRoot is decoded first, without an evaluation context, so that
// declared defaults are known before the program block is evaluated.
type variablesRoot struct {
	Variables []*variableBlock `hcl:"variable,block"`
	Remain    hcl.Body         `hcl:",remain"`
}

type variableBlock struct {
	Name        string    `hcl:"name,label"`
	Description string    `hcl:"description,optional"`
	Default     cty.Value `hcl:"default,optional"`
}

type programRoot struct {
	Programs []*programBlock `hcl:"program,block"`
}

type programBlock struct {
	ID              string           `hcl:"id,label"`
	Name            string           `hcl:"name,optional"`
	Description     string           `hcl:"description,optional"`
	Version         string           `hcl:"version,optional"`
	EnvironmentType string           `hcl:"environment_type,optional"`
	Actors          int              `hcl:"actors,optional"`
	StartTrigger    *triggerBlock    `hcl:"start_trigger,block"`
	Resources       []*resourceBlock `hcl:"resource,block"`
	Tracks          []*trackBlock    `hcl:"track,block"`
}

type resourceBlock struct {
	Task          string `hcl:"task,label"`
	MaxConcurrent int    `hcl:"max_concurrent"`
	Description   string `hcl:"description,optional"`
}

type trackBlock struct {
	ID          string       `hcl:"id,label"`
	Name        string       `hcl:"name,optional"`
	Description string       `hcl:"description,optional"`
	Steps       []*stepBlock `hcl:"step,block"`
}

type stepBlock struct {
	ID           string         `hcl:"id,label"`
	Name         string         `hcl:"name,optional"`
	Description  string         `hcl:"description,optional"`
	Task         string         `hcl:"task,optional"`
	StartTrigger *triggerBlock  `hcl:"start_trigger,block"`
	Duration     *durationBlock `hcl:"duration,block"`
}

type triggerBlock struct {
	Type          string   `hcl:"type,label"`
	Step          string   `hcl:"step,optional"`
	OffsetSeconds *float64 `hcl:"offset_seconds,optional"`
}

type durationBlock struct {
	Type           string   `hcl:"type,label"`
	Seconds        *float64 `hcl:"seconds,optional"`
	MinSeconds     *float64 `hcl:"min_seconds,optional"`
	MaxSeconds     *float64 `hcl:"max_seconds,optional"`
	DefaultSeconds *float64 `hcl:"default_seconds,optional"`
	TriggerName    string   `hcl:"trigger_name,optional"`
}
