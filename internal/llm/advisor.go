// Advisory generation: goals, narrative events, and build actions.
// Each call takes a city summary, returns a typed payload or
// ErrAdvisoryUnavailable, and clamps whatever the model sends inside
// safe bounds before it reaches the simulation.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/talgya/mayorsim/internal/catalog"
	"github.com/talgya/mayorsim/internal/econ"
	"github.com/talgya/mayorsim/internal/event"
	"github.com/talgya/mayorsim/internal/mayor"
)

// CitySummary is the compact city-state digest sent with every
// advisory request.
type CitySummary struct {
	Day          int
	Money        float64
	Population   int
	Housing      int
	TaxRate      float64
	Happiness    float64
	Education    float64
	Safety       float64
	Unemployment float64
	Weather      string
	Disaster     string
	GridWidth    int
	GridHeight   int
	Buildings    map[string]int // wire tag -> count
	GoalActive   string         // description of the active goal, if any
}

const goalSystemPrompt = `You are the strategic advisor to the mayor of a small simulated city. Given the city's current state, propose ONE achievable medium-term goal.

Respond with ONLY a JSON object (no markdown fences, no prose):
{
  "description": "Grow the population to 200 residents",
  "target_type": "population",
  "target_value": 200,
  "building_type": "",
  "reward": 300
}

Rules:
- "target_type" must be one of: "population", "money", "building_count".
- For "building_count", set "building_type" to one of: road, residential, commercial, industrial, park, school, hospital, police_station, power_plant.
- The target must be beyond the current value but reachable within a few in-game weeks.
- "reward" is the payout in city money, between 50 and 1000.`

const eventSystemPrompt = `You write short narrative decision events for a city simulation. Given the city's state, invent ONE event with exactly two choices. Keep the writing grounded in everyday city life with the occasional odd happening.

Respond with ONLY a JSON object (no markdown fences, no prose):
{
  "title": "...",
  "description": "...",
  "type": "weird",
  "choices": [
    {"label": "...", "effect_text": "...", "effect": {"money": -100, "population": 0, "happiness": 3, "education": 0, "safety": 0}},
    {"label": "...", "effect_text": "...", "effect": {"money": 0, "population": 0, "happiness": -2, "education": 0, "safety": 0}}
  ]
}

Rules:
- "type" must be one of: "weird", "disaster", "opportunity".
- Exactly two choices; every effect field between -500 and 500 for money, -10 and 10 otherwise.
- Effects should trade off against each other; no strictly dominant choice.`

const actionSystemPrompt = `You are the AI mayor of a small simulated city. Given the city's state and grid, propose ONE action: build something, demolish something, or wait.

Respond with ONLY a JSON object (no markdown fences, no prose):
{
  "action": "BUILD",
  "building_type": "residential",
  "x": 3,
  "y": 4,
  "reasoning": "housing is full and residents keep arriving"
}

Rules:
- "action" must be one of: "BUILD", "DEMOLISH", "WAIT".
- For BUILD, "building_type" must be one of: road, residential, commercial, industrial, park, school, hospital, police_station, power_plant, and (x, y) must be inside the grid.
- Waiting is a fine choice when money is short.`

// GenerateGoal asks the advisory service for a new objective.
func GenerateGoal(ctx context.Context, c *Client, sum CitySummary) (*mayor.Goal, error) {
	raw, err := completeJSON(ctx, c, goalSystemPrompt, formatSummary(sum), 400)
	if err != nil {
		return nil, err
	}
	if err := validatePayload(goalSchema, raw); err != nil {
		return nil, fmt.Errorf("%w: goal %v", ErrAdvisoryUnavailable, err)
	}

	var payload struct {
		Description  string  `json:"description"`
		TargetType   string  `json:"target_type"`
		TargetValue  float64 `json:"target_value"`
		BuildingType string  `json:"building_type"`
		Reward       float64 `json:"reward"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: parse goal: %v", ErrAdvisoryUnavailable, err)
	}

	goal := &mayor.Goal{
		Description: payload.Description,
		Target:      mayor.TargetType(payload.TargetType),
		TargetValue: payload.TargetValue,
		Reward:      clampF(payload.Reward, 50, 1000),
	}
	if goal.Target == mayor.TargetBuildingCount {
		bt, ok := catalog.FromString(payload.BuildingType)
		if !ok {
			return nil, fmt.Errorf("%w: unknown building type %q", ErrAdvisoryUnavailable, payload.BuildingType)
		}
		goal.BuildingType = bt
	}
	return goal, nil
}

// GenerateEvent asks the advisory service for a narrative event.
func GenerateEvent(ctx context.Context, c *Client, sum CitySummary) (*event.GameEvent, error) {
	raw, err := completeJSON(ctx, c, eventSystemPrompt, formatSummary(sum), 600)
	if err != nil {
		return nil, err
	}
	if err := validatePayload(eventSchema, raw); err != nil {
		return nil, fmt.Errorf("%w: event %v", ErrAdvisoryUnavailable, err)
	}

	var payload struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Type        string `json:"type"`
		Choices     []struct {
			Label      string      `json:"label"`
			EffectText string      `json:"effect_text"`
			Effect     econ.Effect `json:"effect"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: parse event: %v", ErrAdvisoryUnavailable, err)
	}

	ev := &event.GameEvent{
		Title:       payload.Title,
		Description: payload.Description,
		Kind:        event.Kind(payload.Type),
	}
	for i := 0; i < 2; i++ {
		c := payload.Choices[i]
		ev.Choices[i] = event.Choice{
			Label:      c.Label,
			EffectText: c.EffectText,
			Effect:     clampEffect(c.Effect),
		}
	}
	return ev, nil
}

// ProposeAction asks the advisory service for a build action.
func ProposeAction(ctx context.Context, c *Client, sum CitySummary) (*mayor.Action, error) {
	raw, err := completeJSON(ctx, c, actionSystemPrompt, formatSummary(sum), 300)
	if err != nil {
		return nil, err
	}
	if err := validatePayload(actionSchema, raw); err != nil {
		return nil, fmt.Errorf("%w: action %v", ErrAdvisoryUnavailable, err)
	}

	var payload struct {
		Action       string `json:"action"`
		BuildingType string `json:"building_type"`
		X            int    `json:"x"`
		Y            int    `json:"y"`
		Reasoning    string `json:"reasoning"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: parse action: %v", ErrAdvisoryUnavailable, err)
	}

	action := &mayor.Action{
		Kind:      mayor.ActionKind(payload.Action),
		X:         payload.X,
		Y:         payload.Y,
		Reasoning: payload.Reasoning,
	}
	if action.Kind == mayor.ActionBuild {
		bt, ok := catalog.FromString(payload.BuildingType)
		if !ok {
			return nil, fmt.Errorf("%w: unknown building type %q", ErrAdvisoryUnavailable, payload.BuildingType)
		}
		action.BuildingType = bt
	}
	if action.Kind != mayor.ActionWait {
		if action.X < 0 || action.X >= sum.GridWidth || action.Y < 0 || action.Y >= sum.GridHeight {
			return nil, fmt.Errorf("%w: action coordinates (%d,%d) outside grid", ErrAdvisoryUnavailable, action.X, action.Y)
		}
	}
	return action, nil
}

// completeJSON runs a completion and strips any markdown fences the
// model wraps around the JSON anyway.
func completeJSON(ctx context.Context, c *Client, system, user string, maxTokens int) ([]byte, error) {
	resp, err := c.Complete(ctx, system, user, maxTokens)
	if err != nil {
		return nil, err
	}

	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	// Tolerate stray prose around the object.
	start := strings.Index(resp, "{")
	end := strings.LastIndex(resp, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrAdvisoryUnavailable)
	}
	return []byte(resp[start : end+1]), nil
}

// formatSummary renders the city digest as the user prompt.
func formatSummary(s CitySummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## City State (day %d)\n", s.Day)
	fmt.Fprintf(&b, "Money: %.0f | Population: %d / %d housing | Tax rate: %.0f%%\n",
		s.Money, s.Population, s.Housing, s.TaxRate*100)
	fmt.Fprintf(&b, "Happiness: %.0f | Education: %.0f | Safety: %.0f | Unemployment: %.0f%%\n",
		s.Happiness, s.Education, s.Safety, s.Unemployment*100)
	fmt.Fprintf(&b, "Weather: %s\n", s.Weather)
	if s.Disaster != "" {
		fmt.Fprintf(&b, "Active disaster: %s\n", s.Disaster)
	}
	if s.GoalActive != "" {
		fmt.Fprintf(&b, "Current goal: %s\n", s.GoalActive)
	}

	fmt.Fprintf(&b, "\n## Grid (%dx%d)\n", s.GridWidth, s.GridHeight)
	if len(s.Buildings) == 0 {
		b.WriteString("The grid is empty.\n")
	}
	for _, tag := range []string{"road", "residential", "commercial", "industrial", "park", "school", "hospital", "police_station", "power_plant"} {
		if n := s.Buildings[tag]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", tag, n)
		}
	}
	return b.String()
}

func clampEffect(e econ.Effect) econ.Effect {
	e.Money = clampF(e.Money, -500, 500)
	e.Happiness = clampF(e.Happiness, -10, 10)
	e.Education = clampF(e.Education, -10, 10)
	e.Safety = clampF(e.Safety, -10, 10)
	if e.Population > 50 {
		e.Population = 50
	}
	if e.Population < -50 {
		e.Population = -50
	}
	return e
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
