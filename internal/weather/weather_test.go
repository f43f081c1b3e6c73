package weather

import (
	"testing"

	"github.com/talgya/mayorsim/internal/entropy"
)

func TestTablesCoverEveryCondition(t *testing.T) {
	for _, c := range conditions {
		row, ok := transitions[c]
		if !ok {
			t.Errorf("no transition row for %s", c)
			continue
		}
		total := 0.0
		for _, next := range conditions {
			total += row[next]
		}
		if total <= 0 {
			t.Errorf("transition row for %s has no weight", c)
		}
		if _, ok := durations[c]; !ok {
			t.Errorf("no duration range for %s", c)
		}
		if _, ok := modifiers[c]; !ok {
			t.Errorf("no modifier for %s", c)
		}
		if Describe(c) == "" {
			t.Errorf("no description for %s", c)
		}
	}
}

func TestDurationRangesSane(t *testing.T) {
	for c, d := range durations {
		if d[0] < 1 || d[1] < d[0] {
			t.Errorf("%s duration range [%d,%d] invalid", c, d[0], d[1])
		}
	}
}

func TestAdvanceCountsDownBeforeChanging(t *testing.T) {
	c := NewController(3)
	rng := entropy.NewSeeded(1)

	start := c.DaysLeft
	for i := 0; i < start-1; i++ {
		if c.Advance(rng) {
			t.Fatalf("condition changed with %d days left", c.DaysLeft)
		}
		if c.Current != Clear {
			t.Fatalf("condition drifted to %s mid-stay", c.Current)
		}
	}

	// The final day triggers a new draw; whatever comes next must have a
	// duration inside its configured range.
	c.Advance(rng)
	d := durations[c.Current]
	if c.DaysLeft < d[0] || c.DaysLeft > d[1] {
		t.Errorf("%s got %d days, range [%d,%d]", c.Current, c.DaysLeft, d[0], d[1])
	}
}

func TestAdvanceDeterministic(t *testing.T) {
	a := NewController(3)
	b := NewController(3)
	ra := entropy.NewSeeded(99)
	rb := entropy.NewSeeded(99)

	for i := 0; i < 200; i++ {
		a.Advance(ra)
		b.Advance(rb)
		if a.Current != b.Current || a.DaysLeft != b.DaysLeft {
			t.Fatalf("tick %d diverged: %s/%d vs %s/%d", i, a.Current, a.DaysLeft, b.Current, b.DaysLeft)
		}
	}
}

func TestModifierMatchesCondition(t *testing.T) {
	c := NewController(3)
	c.Restore(Storm, 2)
	got := c.Modifier()
	if got != modifiers[Storm] {
		t.Errorf("Modifier() = %+v, want %+v", got, modifiers[Storm])
	}
}

func TestRestoreRejectsUnknownCondition(t *testing.T) {
	c := NewController(3)
	c.Restore(Condition("volcano"), -5)
	if c.Current != Clear {
		t.Errorf("unknown condition restored as %s, want clear", c.Current)
	}
	if c.DaysLeft != 0 {
		t.Errorf("negative days restored as %d, want 0", c.DaysLeft)
	}
}

func TestSnowNeverFollowsHeatwave(t *testing.T) {
	c := NewController(0)
	rng := entropy.NewSeeded(5)
	for i := 0; i < 500; i++ {
		prev := c.Current
		c.Advance(rng)
		if prev == Heatwave && c.Current == Snow {
			t.Fatal("zero-weight transition heatwave -> snow occurred")
		}
	}
}
