package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/talgya/mayorsim/internal/econ"
)

func TestDisabledClientIsUnavailable(t *testing.T) {
	var c *Client // NewClient("") returns nil
	if c.Enabled() {
		t.Fatal("nil client reports enabled")
	}

	sum := CitySummary{GridWidth: 8, GridHeight: 8}
	if _, err := GenerateGoal(context.Background(), c, sum); !errors.Is(err, ErrAdvisoryUnavailable) {
		t.Errorf("GenerateGoal: got %v, want ErrAdvisoryUnavailable", err)
	}
	if _, err := GenerateEvent(context.Background(), c, sum); !errors.Is(err, ErrAdvisoryUnavailable) {
		t.Errorf("GenerateEvent: got %v, want ErrAdvisoryUnavailable", err)
	}
	if _, err := ProposeAction(context.Background(), c, sum); !errors.Is(err, ErrAdvisoryUnavailable) {
		t.Errorf("ProposeAction: got %v, want ErrAdvisoryUnavailable", err)
	}
}

func TestNewClientEmptyKey(t *testing.T) {
	if c := NewClient(""); c != nil {
		t.Error("empty key should produce a nil client")
	}
	if c := NewClient("sk-test"); !c.Enabled() {
		t.Error("keyed client should be enabled")
	}
}

func TestGoalSchema(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{
			"valid population goal",
			`{"description": "Grow to 200", "target_type": "population", "target_value": 200, "reward": 300}`,
			true,
		},
		{
			"unknown target type",
			`{"description": "x", "target_type": "fame", "target_value": 10, "reward": 100}`,
			false,
		},
		{
			"zero target value",
			`{"description": "x", "target_type": "money", "target_value": 0, "reward": 100}`,
			false,
		},
		{
			"missing reward",
			`{"description": "x", "target_type": "money", "target_value": 10}`,
			false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePayload(goalSchema, []byte(tc.raw))
			if (err == nil) != tc.ok {
				t.Errorf("got %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestEventSchemaRequiresTwoChoices(t *testing.T) {
	one := `{"title": "t", "description": "d", "type": "weird", "choices": [
		{"label": "a", "effect_text": "", "effect": {}}
	]}`
	if err := validatePayload(eventSchema, []byte(one)); err == nil {
		t.Error("single-choice event passed validation")
	}

	two := `{"title": "t", "description": "d", "type": "weird", "choices": [
		{"label": "a", "effect_text": "", "effect": {"money": 10}},
		{"label": "b", "effect_text": "", "effect": {"money": -10}}
	]}`
	if err := validatePayload(eventSchema, []byte(two)); err != nil {
		t.Errorf("two-choice event rejected: %v", err)
	}
}

func TestActionSchema(t *testing.T) {
	good := `{"action": "WAIT"}`
	if err := validatePayload(actionSchema, []byte(good)); err != nil {
		t.Errorf("bare wait rejected: %v", err)
	}
	bad := `{"action": "EXPLODE"}`
	if err := validatePayload(actionSchema, []byte(bad)); err == nil {
		t.Error("unknown action passed validation")
	}
}

func TestClampEffect(t *testing.T) {
	e := clampEffect(econ.Effect{
		Money:      9000,
		Population: -400,
		Happiness:  -99,
		Education:  45,
		Safety:     5,
	})
	if e.Money != 500 {
		t.Errorf("money = %.0f, want 500", e.Money)
	}
	if e.Population != -50 {
		t.Errorf("population = %d, want -50", e.Population)
	}
	if e.Happiness != -10 {
		t.Errorf("happiness = %.0f, want -10", e.Happiness)
	}
	if e.Education != 10 {
		t.Errorf("education = %.0f, want 10", e.Education)
	}
	if e.Safety != 5 {
		t.Errorf("safety = %.0f, want 5", e.Safety)
	}
}

func TestFormatSummary(t *testing.T) {
	s := CitySummary{
		Day:        12,
		Money:      1234,
		Population: 40,
		Housing:    48,
		TaxRate:    0.15,
		Weather:    "steady rain",
		Disaster:   "fire (ACTIVE)",
		GoalActive: "Grow the population to 60 residents",
		GridWidth:  16,
		GridHeight: 16,
		Buildings:  map[string]int{"road": 5, "residential": 4},
	}

	out := formatSummary(s)
	for _, want := range []string{
		"day 12",
		"1234",
		"40 / 48 housing",
		"steady rain",
		"fire (ACTIVE)",
		"Grow the population to 60 residents",
		"road: 5",
		"residential: 4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestFallbackGazette(t *testing.T) {
	data := &GazetteData{
		Day:        7,
		Population: 30,
		Money:      1500,
		Happiness:  62,
		Weather:    "clear skies",
		Headlines:  []string{"Population passes 100 residents."},
	}

	// A nil client always falls back to the plain digest.
	issue := GenerateGazette(context.Background(), nil, data)
	if issue.Day != 7 {
		t.Errorf("issue day = %d, want 7", issue.Day)
	}
	if !strings.Contains(issue.Content, "GRIDSIDE GAZETTE") {
		t.Errorf("fallback missing masthead:\n%s", issue.Content)
	}
	if !strings.Contains(issue.Content, "Population passes 100 residents.") {
		t.Errorf("fallback missing headline:\n%s", issue.Content)
	}
}
