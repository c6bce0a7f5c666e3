package ledger

import (
	"testing"
	"time"

	"github.com/specialistvlad/tempogrid/internal/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const s = time.Second

func newLedger(limits map[string]int) *Ledger {
	var cs []program.ResourceConstraint
	for _, task := range []string{"stove", "prep", "oven"} {
		if n, ok := limits[task]; ok {
			cs = append(cs, program.ResourceConstraint{Task: task, MaxConcurrent: n})
		}
	}
	return New(cs)
}

func mustAcquire(t *testing.T, l *Ledger, task, holder string, start, end time.Duration) {
	t.Helper()
	ok, _, err := l.TryAcquire(task, holder, start, end)
	require.NoError(t, err)
	require.True(t, ok, "acquire %s on %s [%s, %s)", holder, task, start, end)
}

func TestTryAcquire_RespectsLimit(t *testing.T) {
	l := newLedger(map[string]int{"stove": 2})

	mustAcquire(t, l, "stove", "eggs", 60*s, 210*s)
	mustAcquire(t, l, "stove", "bacon", 60*s, 660*s)
	assert.Equal(t, 2, l.Usage("stove"))

	ok, retry, err := l.TryAcquire("stove", "pancakes", 60*s, 120*s)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 210*s, retry)
	assert.Equal(t, 2, l.Usage("stove"), "failed acquire must not change usage")

	require.NoError(t, l.Release("stove", "eggs", 210*s))
	mustAcquire(t, l, "stove", "pancakes", 210*s, 270*s)
}

func TestTryAcquire_FutureHolds(t *testing.T) {
	l := newLedger(map[string]int{"oven": 1})
	mustAcquire(t, l, "oven", "roast", 100*s, 200*s)

	t.Run("fits before", func(t *testing.T) {
		c := l.Clone()
		mustAcquire(t, c, "oven", "bread", 0, 100*s)
	})

	t.Run("overlaps future hold", func(t *testing.T) {
		c := l.Clone()
		ok, retry, err := c.TryAcquire("oven", "bread", 50*s, 150*s)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 200*s, retry)
	})
}

func TestTryAcquire_AdjacentIntervalsDoNotOverlap(t *testing.T) {
	l := newLedger(map[string]int{"stove": 1})
	mustAcquire(t, l, "stove", "a", 0, 10*s)
	mustAcquire(t, l, "stove", "b", 10*s, 20*s)
	mustAcquire(t, l, "stove", "c", 20*s, 20*s)
	assert.Equal(t, 1, l.Peak("stove"))
}

func TestTryAcquire_PeakNotSum(t *testing.T) {
	l := newLedger(map[string]int{"stove": 2})
	mustAcquire(t, l, "stove", "a", 0, 10*s)
	mustAcquire(t, l, "stove", "b", 20*s, 30*s)

	// a and b never run together, so one more slot is free across both.
	mustAcquire(t, l, "stove", "c", 5*s, 25*s)

	ok, retry, err := l.TryAcquire("stove", "d", 0, 30*s)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 10*s, retry)
}

func TestTryAcquire_ZeroLengthRequest(t *testing.T) {
	l := newLedger(map[string]int{"stove": 1})
	mustAcquire(t, l, "stove", "a", 0, 10*s)

	ok, retry, err := l.TryAcquire("stove", "blip", 5*s, 5*s)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 10*s, retry)

	mustAcquire(t, l, "stove", "blip", 10*s, 10*s)
}

func TestTryAcquire_Errors(t *testing.T) {
	l := newLedger(map[string]int{"stove": 1})

	_, _, err := l.TryAcquire("grill", "a", 0, s)
	assert.ErrorIs(t, err, ErrUnknownTask)

	mustAcquire(t, l, "stove", "a", 0, s)
	_, _, err = l.TryAcquire("stove", "a", 2*s, 3*s)
	assert.ErrorIs(t, err, ErrHoldExists)

	assert.ErrorIs(t, l.Release("stove", "ghost", s), ErrNoHold)
	assert.ErrorIs(t, l.Extend("stove", "ghost", s), ErrNoHold)
}

func TestReleaseExtendDrop(t *testing.T) {
	l := newLedger(map[string]int{"stove": 2})
	mustAcquire(t, l, "stove", "eggs", 60*s, 210*s)

	require.NoError(t, l.Release("stove", "eggs", 200*s))
	require.NoError(t, l.Release("stove", "eggs", 200*s), "second release is a no-op")
	assert.Equal(t, 0, l.Usage("stove"))
	assert.Equal(t, []Hold{{Holder: "eggs", Start: 60 * s, End: 200 * s, Released: true}}, l.Holds("stove"))

	require.NoError(t, l.Extend("stove", "eggs", 240*s))
	assert.Equal(t, 1, l.Usage("stove"))
	assert.Equal(t, []Hold{{Holder: "eggs", Start: 60 * s, End: 240 * s}}, l.Holds("stove"))

	require.NoError(t, l.Drop("stove", "eggs"))
	require.NoError(t, l.Drop("stove", "eggs"))
	assert.Equal(t, 0, l.Usage("stove"))
	assert.Empty(t, l.Holds("stove"))
}

func TestClone_Independent(t *testing.T) {
	l := newLedger(map[string]int{"stove": 1, "prep": 2})
	mustAcquire(t, l, "stove", "a", 0, 10*s)

	c := l.Clone()
	require.NoError(t, c.Release("stove", "a", 5*s))
	mustAcquire(t, c, "prep", "b", 0, s)

	assert.Equal(t, 1, l.Usage("stove"))
	assert.Equal(t, 10*s, l.Holds("stove")[0].End)
	assert.Empty(t, l.Holds("prep"))
	assert.Equal(t, []string{"stove", "prep"}, c.Tasks())
}

func TestLimitAndUnknownTask(t *testing.T) {
	l := newLedger(map[string]int{"stove": 2})
	assert.Equal(t, 2, l.Limit("stove"))
	assert.Equal(t, 0, l.Limit("grill"))
	assert.Equal(t, 0, l.Usage("grill"))
	assert.Nil(t, l.Holds("grill"))
	assert.Equal(t, 0, l.Peak("grill"))
}

func TestOverflow(t *testing.T) {
	testCases := []struct {
		name   string
		holds  map[string][2]time.Duration
		ignore func(string) bool
		want   []string
	}{
		{
			name: "displaces the hold that started last",
			holds: map[string][2]time.Duration{
				"bacon":    {60 * s, 660 * s},
				"pancakes": {210 * s, 330 * s},
				"tea":      {400 * s, 420 * s},
			},
			want: []string{"pancakes"},
		},
		{
			name: "ignored holders are left out",
			holds: map[string][2]time.Duration{
				"bacon":    {60 * s, 660 * s},
				"pancakes": {210 * s, 330 * s},
			},
			ignore: func(holder string) bool { return holder == "pancakes" },
		},
		{
			name: "only holds active at the overflow",
			holds: map[string][2]time.Duration{
				"bacon":  {60 * s, 215 * s},
				"toast":  {212 * s, 220 * s},
				"kettle": {225 * s, 240 * s},
			},
			want: []string{"toast"},
		},
		{
			name: "within the limit",
			holds: map[string][2]time.Duration{
				"kettle": {225 * s, 240 * s},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			l := newLedger(map[string]int{"stove": 2})
			mustAcquire(t, l, "stove", "eggs", 60*s, 210*s)
			for holder, w := range tc.holds {
				mustAcquire(t, l, "stove", holder, w[0], w[1])
			}
			before := l.Holds("stove")

			// --- Act ---
			got, err := l.Overflow("stove", "eggs", 210*s, 230*s, tc.ignore)

			// --- Assert ---
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, before, l.Holds("stove"), "the ledger is not modified")
		})
	}

	_, err := newLedger(nil).Overflow("stove", "eggs", 0, s, nil)
	assert.ErrorIs(t, err, ErrUnknownTask)
}
