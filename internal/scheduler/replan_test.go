package scheduler_test

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/specialistvlad/tempogrid/internal/document"
	"github.com/specialistvlad/tempogrid/internal/program"
	"github.com/specialistvlad/tempogrid/internal/scheduler"
	"github.com/specialistvlad/tempogrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func confirm(name string, seconds float64) scheduler.Confirmation {
	return scheduler.Confirmation{TriggerName: name, Elapsed: time.Duration(seconds * float64(time.Second))}
}

func TestReplan_ExtendsConfirmedStep(t *testing.T) {
	ctx, _ := testutil.Context(t)
	orig := plan(t, testutil.Breakfast())

	next, warnings, err := scheduler.Replan(ctx, orig, confirm("eggs-done", 170))
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, [2]time.Duration{60 * sec, 230 * sec}, window(t, next, "eggs-cook"))
	assert.Equal(t, [2]time.Duration{60 * sec, 660 * sec}, window(t, next, "bacon-cook"))

	eggs, _ := next.Step("eggs-cook")
	assert.True(t, eggs.Confirmed)
	assert.False(t, eggs.Provisional)
	assert.Equal(t, scheduler.Completed, eggs.State)
	require.NotNil(t, eggs.ActualEnd)
	assert.Equal(t, 230*sec, *eggs.ActualEnd)

	// The input is untouched.
	assert.Equal(t, [2]time.Duration{60 * sec, 210 * sec}, window(t, orig, "eggs-cook"))
	before, _ := orig.Step("eggs-cook")
	assert.True(t, before.Provisional)
	assert.False(t, before.Confirmed)
}

func TestReplan_Locality(t *testing.T) {
	testCases := []struct {
		name     string
		elapsed  float64
		eggs     [2]time.Duration
		pancakes [2]time.Duration
	}{
		{
			name:     "longer than planned",
			elapsed:  170,
			eggs:     [2]time.Duration{60 * sec, 230 * sec},
			pancakes: [2]time.Duration{230 * sec, 350 * sec},
		},
		{
			// pancakes-cook does not depend on eggs-cook, so it keeps its slot.
			name:     "shorter than planned",
			elapsed:  130,
			eggs:     [2]time.Duration{60 * sec, 190 * sec},
			pancakes: [2]time.Duration{210 * sec, 330 * sec},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := testutil.Context(t)
			orig := plan(t, withPancakes())

			next, _, err := scheduler.Replan(ctx, orig, confirm("eggs-done", tc.elapsed))
			require.NoError(t, err)

			assert.Equal(t, tc.eggs, window(t, next, "eggs-cook"))
			assert.Equal(t, tc.pancakes, window(t, next, "pancakes-cook"))
			for _, id := range []string{"eggs-crack-whisk", "bacon-prep", "bacon-cook"} {
				assert.Equal(t, window(t, orig, id), window(t, next, id), "%s moved", id)
			}

			l := next.Ledger()
			assert.LessOrEqual(t, l.Peak("stove-burner"), l.Limit("stove-burner"))
		})
	}
}

// singleBurner has one burner shared by a variable step and a fixed step
// that waits for it, plus a dependent of the variable step.
func singleBurner() *document.Document {
	return &document.Document{
		ProgramID: "burner",
		Name:      "Burner",
		Tracks: []document.Track{
			{TrackID: "sauce", Steps: []document.Step{
				testutil.Step("sauce-simmer", "burner", testutil.ProgramStart(), testutil.Variable(60, 140, 100, "sauce-done")),
				testutil.Step("sauce-plate", "", nil, testutil.Fixed(10)),
			}},
			{TrackID: "rice", Steps: []document.Step{
				testutil.Step("rice-boil", "burner", testutil.ProgramStart(), testutil.Fixed(50)),
				testutil.Step("rice-rest", "", nil, testutil.Fixed(5)),
			}},
		},
		ResourceConstraints: []document.ResourceConstraint{{Task: "burner", MaxConcurrent: 1}},
	}
}

func TestReplan_UnrelatedStepOnSameTaskStaysPut(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	orig := plan(t, singleBurner())
	require.Equal(t, [2]time.Duration{0, 100 * sec}, window(t, orig, "sauce-simmer"))
	require.Equal(t, [2]time.Duration{100 * sec, 150 * sec}, window(t, orig, "rice-boil"))

	// --- Act ---
	next, _, err := scheduler.Replan(ctx, orig, confirm("sauce-done", 70))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, [2]time.Duration{0, 70 * sec}, window(t, next, "sauce-simmer"))
	assert.Equal(t, [2]time.Duration{70 * sec, 80 * sec}, window(t, next, "sauce-plate"))
	assert.Equal(t, [2]time.Duration{100 * sec, 150 * sec}, window(t, next, "rice-boil"))
	assert.Equal(t, [2]time.Duration{150 * sec, 155 * sec}, window(t, next, "rice-rest"))
}

func TestReplan_DisplacesOnlyOverflowingHolds(t *testing.T) {
	// --- Arrange ---
	ctx, _ := testutil.Context(t)
	doc := singleBurner()
	doc.Tracks = append(doc.Tracks, document.Track{TrackID: "tea", Steps: []document.Step{
		testutil.Step("tea-kettle", "burner", testutil.Offset(200), testutil.Fixed(20)),
	}})
	orig := plan(t, doc)
	require.Equal(t, [2]time.Duration{200 * sec, 220 * sec}, window(t, orig, "tea-kettle"))

	// --- Act ---
	next, _, err := scheduler.Replan(ctx, orig, confirm("sauce-done", 120))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, [2]time.Duration{0, 120 * sec}, window(t, next, "sauce-simmer"))
	assert.Equal(t, [2]time.Duration{120 * sec, 170 * sec}, window(t, next, "rice-boil"), "overlaps the longer hold")
	assert.Equal(t, [2]time.Duration{170 * sec, 175 * sec}, window(t, next, "rice-rest"))
	assert.Equal(t, [2]time.Duration{200 * sec, 220 * sec}, window(t, next, "tea-kettle"))

	l := next.Ledger()
	assert.Equal(t, 1, l.Peak("burner"))
}

// randomProgram builds an acyclic program whose steps reference only earlier
// steps, spread over two constrained tasks.
func randomProgram(r *rand.Rand) *document.Document {
	doc := &document.Document{
		ProgramID: "random",
		Name:      "Random",
		ResourceConstraints: []document.ResourceConstraint{
			{Task: "a", MaxConcurrent: 1 + r.IntN(2)},
			{Task: "b", MaxConcurrent: 1 + r.IntN(2)},
		},
	}
	tasks := []string{"", "a", "b"}
	var earlier []string
	for ti := range 1 + r.IntN(3) {
		track := document.Track{TrackID: fmt.Sprintf("t%d", ti)}
		for si := range 1 + r.IntN(4) {
			id := fmt.Sprintf("t%d-s%d", ti, si)
			var trigger *document.Trigger
			switch {
			case si == 0 && r.IntN(2) == 0:
				trigger = testutil.ProgramStart()
			case si == 0:
				trigger = testutil.Offset(float64(r.IntN(50)))
			case len(earlier) > 0 && r.IntN(3) == 0:
				trigger = testutil.After(earlier[r.IntN(len(earlier))])
			}
			var d *document.Duration
			if r.IntN(2) == 0 {
				d = testutil.Variable(10, 100, float64(10+r.IntN(91)), id+"-done")
			} else {
				d = testutil.Fixed(float64(10 + r.IntN(50)))
			}
			track.Steps = append(track.Steps, testutil.Step(id, tasks[r.IntN(len(tasks))], trigger, d))
			earlier = append(earlier, id)
		}
		doc.Tracks = append(doc.Tracks, track)
	}
	return doc
}

func TestReplan_LocalityOnRandomPrograms(t *testing.T) {
	ctx, _ := testutil.Context(t)

	for seed := range uint64(300) {
		r := rand.New(rand.NewPCG(seed, 1))
		orig := plan(t, randomProgram(r))
		p := orig.Program()

		for _, before := range orig.Steps() {
			v, ok := before.Step.Duration.(program.Variable)
			if !ok {
				continue
			}
			elapsed := 10 + r.IntN(91)
			next, _, err := scheduler.Replan(ctx, orig, confirm(v.TriggerName, float64(elapsed)))
			require.NoError(t, err, "seed %d", seed)

			oldEnd := before.PlannedEnd
			newEnd := before.PlannedStart + time.Duration(elapsed)*sec
			roots := []int{before.Step.Index}
			if task := before.Step.Task; task != "" && newEnd > oldEnd {
				for _, other := range orig.Steps() {
					if other.Step.Task == task && other.PlannedStart < newEnd && oldEnd < other.PlannedEnd {
						roots = append(roots, other.Step.Index)
					}
				}
			}
			movable := orig.Graph().Descendants(roots...)

			for _, after := range next.Steps() {
				if movable[after.Step.Index] {
					continue
				}
				was, _ := orig.Step(after.Step.ID)
				assert.Equal(t, [2]time.Duration{was.PlannedStart, was.PlannedEnd},
					[2]time.Duration{after.PlannedStart, after.PlannedEnd},
					"seed %d: confirming %s at %ds moved %s", seed, before.Step.ID, elapsed, after.Step.ID)
			}
			l := next.Ledger()
			for _, task := range l.Tasks() {
				assert.LessOrEqual(t, l.Peak(task), l.Limit(task), "seed %d: %s over its limit", seed, task)
			}
			assert.Len(t, next.Steps(), p.Len())
		}
	}
}

func TestReplan_ShiftsDownstreamSteps(t *testing.T) {
	ctx, _ := testutil.Context(t)
	doc := testutil.Breakfast()
	doc.Tracks[0].Steps = append(doc.Tracks[0].Steps, testutil.Step("eggs-serve", "", nil, testutil.Fixed(30)))
	orig := plan(t, doc)
	require.Equal(t, [2]time.Duration{210 * sec, 240 * sec}, window(t, orig, "eggs-serve"))

	next, _, err := scheduler.Replan(ctx, orig, confirm("eggs-done", 170))
	require.NoError(t, err)
	assert.Equal(t, [2]time.Duration{230 * sec, 260 * sec}, window(t, next, "eggs-serve"))

	serve, _ := next.Step("eggs-serve")
	assert.Equal(t, 230*sec, serve.ReadyAt)
}

func TestConfirm_OutOfRange(t *testing.T) {
	t.Run("clamped and flagged", func(t *testing.T) {
		ctx, _ := testutil.Context(t)
		s := plan(t, testutil.Breakfast())

		require.NoError(t, s.Confirm(ctx, confirm("eggs-done", 200)))
		assert.Equal(t, [2]time.Duration{60 * sec, 240 * sec}, window(t, s, "eggs-cook"))

		warnings := s.Warnings()
		require.Len(t, warnings, 1)
		assert.Equal(t, scheduler.WarnOutOfRange, warnings[0].Kind)
		assert.Equal(t, "eggs-cook", warnings[0].StepID)
		assert.Contains(t, warnings[0].Message, "clamped")
	})

	t.Run("below min clamped", func(t *testing.T) {
		ctx, _ := testutil.Context(t)
		s := plan(t, testutil.Breakfast())

		require.NoError(t, s.Confirm(ctx, confirm("eggs-done", 90)))
		assert.Equal(t, [2]time.Duration{60 * sec, 180 * sec}, window(t, s, "eggs-cook"))
		require.Len(t, s.Warnings(), 1)
	})

	t.Run("unclamped", func(t *testing.T) {
		ctx, _ := testutil.Context(t)
		s := plan(t, testutil.Breakfast(), scheduler.WithUnclampedConfirmations())

		require.NoError(t, s.Confirm(ctx, confirm("eggs-done", 200)))
		assert.Equal(t, [2]time.Duration{60 * sec, 260 * sec}, window(t, s, "eggs-cook"))
		require.Len(t, s.Warnings(), 1)
		assert.Equal(t, scheduler.WarnOutOfRange, s.Warnings()[0].Kind)
		assert.NotContains(t, s.Warnings()[0].Message, "clamped")
	})

	t.Run("negative ignored", func(t *testing.T) {
		ctx, _ := testutil.Context(t)
		s := plan(t, testutil.Breakfast())

		require.NoError(t, s.Confirm(ctx, confirm("eggs-done", -5)))
		assert.Equal(t, [2]time.Duration{60 * sec, 210 * sec}, window(t, s, "eggs-cook"))
		require.Len(t, s.Warnings(), 1)
		assert.Equal(t, scheduler.WarnOutOfRange, s.Warnings()[0].Kind)
	})
}

func TestConfirm_IgnoredWithWarning(t *testing.T) {
	ctx, _ := testutil.Context(t)
	s := plan(t, testutil.Breakfast())
	before := s.Steps()

	next, warnings, err := scheduler.Replan(ctx, s, confirm("toast-done", 10))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, scheduler.WarnUnknownTrigger, warnings[0].Kind)
	assert.Equal(t, "toast-done", warnings[0].TriggerName)
	assert.Equal(t, before, next.Steps())

	next, _, err = scheduler.Replan(ctx, next, confirm("bacon-done", 600))
	require.NoError(t, err)
	next, warnings, err = scheduler.Replan(ctx, next, confirm("bacon-done", 610))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, scheduler.WarnAlreadyConfirmed, warnings[0].Kind)
	assert.Equal(t, [2]time.Duration{60 * sec, 660 * sec}, window(t, next, "bacon-cook"))
	assert.Len(t, next.Warnings(), 2)
}

func manualProgram() *document.Document {
	return &document.Document{
		ProgramID:    "cafe",
		Name:         "Cafe",
		StartTrigger: testutil.Manual(),
		Tracks: []document.Track{
			{TrackID: "guest", Steps: []document.Step{
				testutil.Step("welcome", "", testutil.Manual(), testutil.Variable(10, 30, 20, "welcome-done")),
				testutil.Step("coffee", "machine", nil, testutil.Fixed(60)),
			}},
			{TrackID: "setup", Steps: []document.Step{
				testutil.Step("preheat", "machine", testutil.ProgramStart(), testutil.Fixed(100)),
			}},
		},
		ResourceConstraints: []document.ResourceConstraint{{Task: "machine", MaxConcurrent: 1}},
	}
}

func TestStart_Manual(t *testing.T) {
	ctx, _ := testutil.Context(t)
	s := plan(t, manualProgram())

	assert.Equal(t, [2]time.Duration{0, 100 * sec}, window(t, s, "preheat"))
	_, reached := s.Step("welcome")
	assert.False(t, reached)
	_, started := s.Started()
	assert.False(t, started)

	s, warnings, err := scheduler.Replan(ctx, s, confirm("welcome-done", 20))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, scheduler.WarnNotStarted, warnings[0].Kind)

	s, warnings, err = scheduler.Replan(ctx, s, scheduler.StartSignal{At: 50 * sec})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	at, started := s.Started()
	assert.True(t, started)
	assert.Equal(t, 50*sec, at)
	assert.Equal(t, [2]time.Duration{50 * sec, 70 * sec}, window(t, s, "welcome"))
	assert.Equal(t, [2]time.Duration{100 * sec, 160 * sec}, window(t, s, "coffee"))

	coffee, _ := s.Step("coffee")
	assert.Equal(t, "machine", coffee.WaitedOn)

	s, warnings, err = scheduler.Replan(ctx, s, scheduler.StartSignal{At: 80 * sec})
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, scheduler.WarnAlreadyStarted, warnings[0].Kind)

	s, _, err = scheduler.Replan(ctx, s, confirm("welcome-done", 25))
	require.NoError(t, err)
	assert.Equal(t, [2]time.Duration{50 * sec, 75 * sec}, window(t, s, "welcome"))
	assert.Equal(t, [2]time.Duration{100 * sec, 160 * sec}, window(t, s, "coffee"))
}

func TestTracing(t *testing.T) {
	ctx, _ := testutil.Context(t)
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("scheduler-test")

	s := scheduler.New(build(t, testutil.Breakfast()), scheduler.WithTracer(tracer))
	require.NoError(t, s.Plan(ctx))
	require.NoError(t, s.Apply(ctx, confirm("nope", 1)))
	require.Error(t, s.Plan(ctx))

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	assert.Equal(t, "scheduler.Plan", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, "scheduler.Confirm", spans[1].Name())
	require.Len(t, spans[1].Events(), 1)
	assert.Equal(t, "scheduler.warning", spans[1].Events()[0].Name)

	assert.Equal(t, "scheduler.Plan", spans[2].Name())
	assert.Equal(t, codes.Error, spans[2].Status().Code)
}
