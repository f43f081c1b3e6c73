// Package weather runs the city's weather as a Markov process over a
// fixed transition table and maps each condition to simulation modifiers.
package weather

import (
	"github.com/talgya/mayorsim/internal/entropy"
)

// Condition is the active weather state.
type Condition string

const (
	Clear    Condition = "clear"
	Rain     Condition = "rain"
	Storm    Condition = "storm"
	Snow     Condition = "snow"
	Heatwave Condition = "heatwave"
	Fog      Condition = "fog"
)

// conditions lists all states in a fixed order so weighted selection is
// deterministic for a given random stream.
var conditions = []Condition{Clear, Rain, Storm, Snow, Heatwave, Fog}

// transitions biases the next pick given the current condition.
// Rows need not sum to anything; weights are relative.
var transitions = map[Condition]map[Condition]float64{
	Clear:    {Clear: 5, Rain: 2, Storm: 0.5, Snow: 0.5, Heatwave: 1, Fog: 1},
	Rain:     {Clear: 3, Rain: 4, Storm: 2, Snow: 0.5, Heatwave: 0.2, Fog: 1.5},
	Storm:    {Clear: 2, Rain: 4, Storm: 2, Snow: 0.5, Heatwave: 0.1, Fog: 1},
	Snow:     {Clear: 2, Rain: 1, Storm: 0.5, Snow: 4, Heatwave: 0, Fog: 1.5},
	Heatwave: {Clear: 4, Rain: 1, Storm: 1, Snow: 0, Heatwave: 3, Fog: 0.3},
	Fog:      {Clear: 3, Rain: 2, Storm: 0.5, Snow: 1, Heatwave: 0.5, Fog: 3},
}

// durations gives the min and max days a condition lasts.
var durations = map[Condition][2]int{
	Clear:    {3, 8},
	Rain:     {1, 4},
	Storm:    {1, 2},
	Snow:     {2, 5},
	Heatwave: {2, 5},
	Fog:      {1, 3},
}

// Modifier is the adjustment a condition applies each tick.
type Modifier struct {
	IncomeFactor   float64 // multiplies commercial/industrial income
	HappinessDelta float64 // additive pull on the happiness target
	DisasterRisk   float64 // multiplies the disaster onset chance
}

// modifiers maps each condition to its simulation effect.
var modifiers = map[Condition]Modifier{
	Clear:    {IncomeFactor: 1.0, HappinessDelta: 2, DisasterRisk: 1.0},
	Rain:     {IncomeFactor: 0.95, HappinessDelta: -1, DisasterRisk: 1.2},
	Storm:    {IncomeFactor: 0.8, HappinessDelta: -4, DisasterRisk: 2.5},
	Snow:     {IncomeFactor: 0.85, HappinessDelta: -1, DisasterRisk: 1.5},
	Heatwave: {IncomeFactor: 0.9, HappinessDelta: -3, DisasterRisk: 1.8},
	Fog:      {IncomeFactor: 0.97, HappinessDelta: -1, DisasterRisk: 1.1},
}

// Controller advances the weather each tick.
type Controller struct {
	Current  Condition
	DaysLeft int

	selfBias float64
}

// NewController starts in clear weather.
func NewController(selfBias float64) *Controller {
	return &Controller{
		Current:  Clear,
		DaysLeft: durations[Clear][0],
		selfBias: selfBias,
	}
}

// Restore resets the controller to a saved state.
func (c *Controller) Restore(current Condition, daysLeft int) {
	if _, ok := transitions[current]; !ok {
		current = Clear
	}
	if daysLeft < 0 {
		daysLeft = 0
	}
	c.Current = current
	c.DaysLeft = daysLeft
}

// Advance runs one tick. Returns true if the condition changed.
func (c *Controller) Advance(rng entropy.Source) bool {
	c.DaysLeft--
	if c.DaysLeft > 0 {
		return false
	}

	next := c.pickNext(rng)
	changed := next != c.Current
	c.Current = next

	d := durations[next]
	c.DaysLeft = d[0]
	if span := d[1] - d[0]; span > 0 {
		c.DaysLeft += rng.Intn(span + 1)
	}
	return changed
}

// pickNext draws a weighted choice from the transition row, with the
// configured extra bias toward staying put.
func (c *Controller) pickNext(rng entropy.Source) Condition {
	row := transitions[c.Current]

	total := 0.0
	for _, cond := range conditions {
		w := row[cond]
		if cond == c.Current {
			w += c.selfBias
		}
		total += w
	}

	roll := rng.Float64() * total
	for _, cond := range conditions {
		w := row[cond]
		if cond == c.Current {
			w += c.selfBias
		}
		roll -= w
		if roll < 0 {
			return cond
		}
	}
	return c.Current
}

// Modifier returns the active condition's simulation effect.
func (c *Controller) Modifier() Modifier {
	return modifiers[c.Current]
}

// Describe returns a short in-world description of a condition.
func Describe(cond Condition) string {
	switch cond {
	case Clear:
		return "clear skies"
	case Rain:
		return "steady rain"
	case Storm:
		return "a violent storm"
	case Snow:
		return "heavy snowfall"
	case Heatwave:
		return "a sweltering heatwave"
	case Fog:
		return "thick fog"
	default:
		return "fair weather"
	}
}
