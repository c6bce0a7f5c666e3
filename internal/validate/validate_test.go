package validate_test

import (
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/tempogrid/internal/document"
	"github.com/specialistvlad/tempogrid/internal/program"
	"github.com/specialistvlad/tempogrid/internal/testutil"
	"github.com/specialistvlad/tempogrid/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func single(steps ...document.Step) *document.Document {
	return &document.Document{
		ProgramID: "p",
		Name:      "P",
		Tracks:    []document.Track{{TrackID: "main", Steps: steps}},
		ResourceConstraints: []document.ResourceConstraint{
			{Task: "stove", MaxConcurrent: 1},
		},
	}
}

func requireViolations(t *testing.T, err error) *validate.Error {
	t.Helper()
	require.Error(t, err)
	var verr *validate.Error
	require.True(t, errors.As(err, &verr), "expected *validate.Error, got %T", err)
	return verr
}

func TestValidate_Breakfast(t *testing.T) {
	ctx, _ := testutil.Context(t)

	p, err := validate.Validate(ctx, testutil.Breakfast())
	require.NoError(t, err)

	assert.Equal(t, "breakfast-schedule", p.ID)
	assert.Equal(t, program.Manual{}, p.StartTrigger)
	assert.Equal(t, 4, p.Len())

	cook, ok := p.Step("bacon-cook")
	require.True(t, ok)
	assert.Equal(t, program.AfterStep{StepID: "bacon-prep"}, cook.Trigger)
	assert.Equal(t, program.Variable{
		Min:         480 * time.Second,
		Max:         720 * time.Second,
		Default:     600 * time.Second,
		TriggerName: "bacon-done",
	}, cook.Duration)

	byTrigger, ok := p.StepByTrigger("eggs-done")
	require.True(t, ok)
	assert.Equal(t, "eggs-cook", byTrigger.ID)
}

func TestValidate_ImplicitTriggers(t *testing.T) {
	ctx, _ := testutil.Context(t)

	doc := single(
		testutil.Step("first", "", nil, testutil.Fixed(1)),
		testutil.Step("second", "", nil, testutil.Fixed(1)),
	)
	p, err := validate.Validate(ctx, doc)
	require.NoError(t, err)

	first, _ := p.Step("first")
	second, _ := p.Step("second")
	assert.Equal(t, program.ProgramStart{}, first.Trigger)
	assert.Equal(t, program.AfterStep{StepID: "first"}, second.Trigger)
}

func TestValidate_CyclicDependency(t *testing.T) {
	ctx, _ := testutil.Context(t)

	doc := single(
		testutil.Step("stepA", "", testutil.After("stepB"), testutil.Fixed(1)),
		testutil.Step("stepB", "", testutil.After("stepA"), testutil.Fixed(1)),
	)
	_, err := validate.Validate(ctx, doc)
	verr := requireViolations(t, err)

	assert.ErrorIs(t, err, validate.ErrCyclicDependency)
	cycles := verr.Of(validate.ErrCyclicDependency)
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []string{"stepA", "stepB"}, cycles[0].Members)
	assert.Contains(t, err.Error(), "stepA -> stepB -> stepA")
}

func TestValidate_Violations(t *testing.T) {
	testCases := []struct {
		name string
		doc  *document.Document
		kind error
	}{
		{
			name: "duplicate step id",
			doc: single(
				testutil.Step("a", "", nil, testutil.Fixed(1)),
				testutil.Step("a", "", nil, testutil.Fixed(1)),
			),
			kind: validate.ErrDuplicateStepID,
		},
		{
			name: "dangling reference",
			doc:  single(testutil.Step("a", "", testutil.After("ghost"), testutil.Fixed(1))),
			kind: validate.ErrDanglingTriggerReference,
		},
		{
			name: "unknown task",
			doc:  single(testutil.Step("a", "oven", nil, testutil.Fixed(1))),
			kind: validate.ErrUnknownTaskReference,
		},
		{
			name: "zero limit",
			doc: &document.Document{
				ProgramID: "p", Name: "P",
				ResourceConstraints: []document.ResourceConstraint{{Task: "stove", MaxConcurrent: 0}},
			},
			kind: validate.ErrInvalidResourceLimit,
		},
		{
			name: "duplicate constraint",
			doc: &document.Document{
				ProgramID: "p", Name: "P",
				ResourceConstraints: []document.ResourceConstraint{
					{Task: "stove", MaxConcurrent: 1},
					{Task: "stove", MaxConcurrent: 2},
				},
			},
			kind: validate.ErrDuplicateResourceConstraint,
		},
		{
			name: "missing program id",
			doc:  &document.Document{Name: "P"},
			kind: validate.ErrMissingField,
		},
		{
			name: "missing duration",
			doc:  single(testutil.Step("a", "", nil, nil)),
			kind: validate.ErrMissingField,
		},
		{
			name: "unknown trigger type",
			doc:  single(testutil.Step("a", "", &document.Trigger{Type: "whenever"}, testutil.Fixed(1))),
			kind: validate.ErrUnknownTriggerType,
		},
		{
			name: "unknown duration type",
			doc:  single(testutil.Step("a", "", nil, &document.Duration{Type: "forever"})),
			kind: validate.ErrUnknownDurationType,
		},
		{
			name: "negative fixed duration",
			doc:  single(testutil.Step("a", "", nil, testutil.Fixed(-1))),
			kind: validate.ErrInvalidDuration,
		},
		{
			name: "default above max",
			doc:  single(testutil.Step("a", "", nil, testutil.Variable(1, 2, 3, "done"))),
			kind: validate.ErrInvalidDuration,
		},
		{
			name: "variable without trigger name",
			doc:  single(testutil.Step("a", "", nil, testutil.Variable(1, 3, 2, ""))),
			kind: validate.ErrInvalidDuration,
		},
		{
			name: "duplicate trigger name",
			doc: single(
				testutil.Step("a", "", nil, testutil.Variable(1, 3, 2, "done")),
				testutil.Step("b", "", nil, testutil.Variable(1, 3, 2, "done")),
			),
			kind: validate.ErrDuplicateTriggerName,
		},
		{
			name: "program starting after a step",
			doc: &document.Document{
				ProgramID: "p", Name: "P",
				StartTrigger: testutil.After("a"),
			},
			kind: validate.ErrInvalidProgramTrigger,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := testutil.Context(t)

			p, err := validate.Validate(ctx, tc.doc)
			assert.Nil(t, p)
			verr := requireViolations(t, err)
			assert.ErrorIs(t, err, tc.kind)
			assert.NotEmpty(t, verr.Of(tc.kind))
		})
	}
}

func TestValidate_CollectsEveryViolation(t *testing.T) {
	ctx, _ := testutil.Context(t)

	doc := single(
		testutil.Step("a", "oven", testutil.After("ghost"), testutil.Fixed(1)),
		testutil.Step("a", "", nil, testutil.Fixed(1)),
	)
	doc.ResourceConstraints = append(doc.ResourceConstraints, document.ResourceConstraint{Task: "sink", MaxConcurrent: -1})

	_, err := validate.Validate(ctx, doc)
	verr := requireViolations(t, err)

	assert.ErrorIs(t, err, validate.ErrUnknownTaskReference)
	assert.ErrorIs(t, err, validate.ErrDanglingTriggerReference)
	assert.ErrorIs(t, err, validate.ErrDuplicateStepID)
	assert.ErrorIs(t, err, validate.ErrInvalidResourceLimit)
	assert.Len(t, verr.Violations, 4)
	assert.Contains(t, err.Error(), "4 violations")
}

func TestValidate_OffsetTrigger(t *testing.T) {
	ctx, _ := testutil.Context(t)

	p, err := validate.Validate(ctx, single(testutil.Step("a", "", testutil.Offset(1.5), testutil.Fixed(1))))
	require.NoError(t, err)
	a, _ := p.Step("a")
	assert.Equal(t, program.ProgramStartOffset{Offset: 1500 * time.Millisecond}, a.Trigger)
}
