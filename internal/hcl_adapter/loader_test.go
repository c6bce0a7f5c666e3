package hcl_adapter

import (
	"testing"

	"github.com/specialistvlad/tempogrid/internal/document"
	"github.com/specialistvlad/tempogrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const breakfastHCL = `
program "breakfast-schedule" {
  name             = "Breakfast Schedule"
  description      = "Coordinated breakfast preparation for eggs and bacon"
  version          = "1.0.0"
  environment_type = "kitchen"
  actors           = 2

  start_trigger "manual" {}

  resource "stove-burner" {
    max_concurrent = 2
    description    = "Stove burners available"
  }

  resource "prep-work" {
    max_concurrent = 2
    description    = "Preparation workspace"
  }

  track "scrambled-eggs" {
    name = "Scrambled Eggs"

    step "eggs-crack-whisk" {
      name = "Crack and Whisk Eggs"
      task = "prep-work"
      start_trigger "programStart" {}
      duration "fixed" {
        seconds = 60
      }
    }

    step "eggs-cook" {
      name = "Cook Eggs"
      task = "stove-burner"
      start_trigger "afterStep" {
        step = "eggs-crack-whisk"
      }
      duration "variable" {
        min_seconds     = 120
        max_seconds     = 180
        default_seconds = 150
        trigger_name    = "eggs-done"
      }
    }
  }

  track "bacon" {
    name = "Bacon"

    step "bacon-prep" {
      name = "Prepare Bacon"
      task = "prep-work"
      start_trigger "programStart" {}
      duration "fixed" {
        seconds = 60
      }
    }

    step "bacon-cook" {
      name = "Cook Bacon"
      task = "stove-burner"
      start_trigger "afterStep" {
        step = "bacon-prep"
      }
      duration "variable" {
        min_seconds     = 480
        max_seconds     = 720
        default_seconds = 600
        trigger_name    = "bacon-done"
      }
    }
  }
}
`

func TestLoader_Breakfast(t *testing.T) {
	ctx, _ := testutil.Context(t)

	doc, err := NewLoader(nil).Decode(ctx, "breakfast.hcl", []byte(breakfastHCL))
	require.NoError(t, err)
	assert.Equal(t, testutil.Breakfast(), doc)
}

const variablesHCL = `
variable "egg_time" {
  default = 150
}

variable "burner" {}

program "eggs" {
  track "main" {
    step "cook" {
      task = var.burner
      start_trigger "programStartOffset" {
        offset_seconds = 30
      }
      duration "variable" {
        min_seconds     = 120
        max_seconds     = 180
        default_seconds = var.egg_time
        trigger_name    = "eggs-done"
      }
    }
  }
}
`

func TestLoader_Variables(t *testing.T) {
	ctx, _ := testutil.Context(t)

	t.Run("defaults and supplied values", func(t *testing.T) {
		doc, err := NewLoader(map[string]string{"burner": "stove"}).Decode(ctx, "eggs.hcl", []byte(variablesHCL))
		require.NoError(t, err)

		step := doc.Tracks[0].Steps[0]
		assert.Equal(t, "stove", step.Task)
		require.NotNil(t, step.Duration.DefaultSeconds)
		assert.Equal(t, 150.0, *step.Duration.DefaultSeconds)
		require.NotNil(t, step.StartTrigger.OffsetSeconds)
		assert.Equal(t, 30.0, *step.StartTrigger.OffsetSeconds)
		assert.Equal(t, document.TriggerProgramStartOffset, step.StartTrigger.Type)
	})

	t.Run("supplied value overrides default", func(t *testing.T) {
		doc, err := NewLoader(map[string]string{"burner": "stove", "egg_time": "165"}).Decode(ctx, "eggs.hcl", []byte(variablesHCL))
		require.NoError(t, err)
		assert.Equal(t, 165.0, *doc.Tracks[0].Steps[0].Duration.DefaultSeconds)
	})

	t.Run("missing value", func(t *testing.T) {
		_, err := NewLoader(nil).Decode(ctx, "eggs.hcl", []byte(variablesHCL))
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"burner"`)
	})
}

func TestLoader_ProgramBlockCount(t *testing.T) {
	ctx, _ := testutil.Context(t)

	_, err := NewLoader(nil).Decode(ctx, "empty.hcl", []byte(`variable "x" { default = 1 }`))
	assert.ErrorIs(t, err, ErrProgramBlock)

	_, err = NewLoader(nil).Decode(ctx, "two.hcl", []byte("program \"a\" {}\nprogram \"b\" {}\n"))
	assert.ErrorIs(t, err, ErrProgramBlock)
}

func TestLoader_SyntaxError(t *testing.T) {
	ctx, _ := testutil.Context(t)

	_, err := NewLoader(nil).Decode(ctx, "broken.hcl", []byte(`program "a" {`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.hcl")
}

func TestParseVar(t *testing.T) {
	testCases := []struct {
		raw  string
		want cty.Value
	}{
		{"150", cty.NumberIntVal(150)},
		{"true", cty.True},
		{"false", cty.False},
		{"stove", cty.StringVal("stove")},
	}
	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got := ParseVar(tc.raw)
			require.Equal(t, tc.want.Type(), got.Type())
			assert.True(t, got.Equals(tc.want).True(), "got %#v", got)
		})
	}
}
