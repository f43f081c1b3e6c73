// Package disaster runs the large-scale negative event state machine:
// onset, warning, active damage, and aftermath for one disaster slot.
package disaster

import (
	"fmt"
	"strings"

	"github.com/talgya/mayorsim/internal/catalog"
	"github.com/talgya/mayorsim/internal/entropy"
	"github.com/talgya/mayorsim/internal/grid"
	"github.com/talgya/mayorsim/internal/news"
)

// Type identifies the kind of disaster.
type Type string

const (
	Earthquake Type = "earthquake" // positioned
	Fire       Type = "fire"       // positioned
	Flood      Type = "flood"      // global
	Blackout   Type = "blackout"   // global
	Epidemic   Type = "epidemic"   // global
)

// Stage is the lifecycle phase of an active disaster.
type Stage string

const (
	StageWarning   Stage = "WARNING"
	StageActive    Stage = "ACTIVE"
	StageAftermath Stage = "AFTERMATH"
)

// allTypes in fixed order for deterministic random selection.
var allTypes = []Type{Earthquake, Fire, Flood, Blackout, Epidemic}

// profile is the per-type severity and duration model.
type profile struct {
	activeDays    int
	positioned    bool
	incomeFactor  float64
	popLossFrac   float64 // fraction of population lost per active day
	happinessHit  float64
	weight        float64 // relative onset likelihood
}

var profiles = map[Type]profile{
	Earthquake: {activeDays: 2, positioned: true, incomeFactor: 0.5, popLossFrac: 0.015, happinessHit: -15, weight: 1},
	Fire:       {activeDays: 3, positioned: true, incomeFactor: 0.7, popLossFrac: 0.008, happinessHit: -10, weight: 2},
	Flood:      {activeDays: 4, positioned: false, incomeFactor: 0.6, popLossFrac: 0.005, happinessHit: -8, weight: 1.5},
	Blackout:   {activeDays: 2, positioned: false, incomeFactor: 0.3, popLossFrac: 0, happinessHit: -6, weight: 1.5},
	Epidemic:   {activeDays: 6, positioned: false, incomeFactor: 0.75, popLossFrac: 0.01, happinessHit: -12, weight: 1},
}

// Position is a grid coordinate for positioned disaster types.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Active is the single live disaster. Nil position for global types.
type Active struct {
	Type     Type      `json:"type"`
	Position *Position `json:"position,omitempty"`
	StartDay int       `json:"start_day"`
	Duration int       `json:"duration"` // active days
	Stage    Stage     `json:"stage"`
	DaysLeft int       `json:"days_left"` // remaining days in the current stage
	Severity float64   `json:"severity"`  // 0.5-1.5, scales damage
}

// Modifier is the adjustment applied to the simulator while ACTIVE.
type Modifier struct {
	IncomeFactor   float64
	PopulationLoss float64 // fraction of population lost this tick
	HappinessDelta float64
}

// Controller owns the one disaster slot.
type Controller struct {
	Current *Active

	baseChance   float64
	warningDays  int
	cooldownDays int
}

// NewController creates an idle controller.
func NewController(baseChance float64, warningDays, cooldownDays int) *Controller {
	return &Controller{
		baseChance:   baseChance,
		warningDays:  warningDays,
		cooldownDays: cooldownDays,
	}
}

// Restore resets the slot to a saved state (nil clears it).
func (c *Controller) Restore(a *Active) {
	c.Current = a
}

// Trigger starts a disaster of the given type at the given day.
// A request while one is already live is a silent no-op.
func (c *Controller) Trigger(t Type, day int, g *grid.Grid, rng entropy.Source) *Active {
	if c.Current != nil {
		return nil
	}
	p, ok := profiles[t]
	if !ok {
		return nil
	}
	c.Current = c.spawn(t, p, day, g, rng)
	return c.Current
}

// Advance runs one tick: rolls for onset (scaled by the weather risk
// factor) and steps the stage machine. Returns feed drafts for any
// transition this tick.
func (c *Controller) Advance(day int, riskFactor float64, g *grid.Grid, rng entropy.Source) []news.Draft {
	var drafts []news.Draft

	if c.Current == nil {
		if rng.Float64() < c.baseChance*riskFactor {
			t := c.pickType(rng)
			c.Current = c.spawn(t, profiles[t], day, g, rng)
			drafts = append(drafts, news.Draft{
				Text: fmt.Sprintf("Early warnings of %s. Officials urge residents to prepare.", describe(c.Current)),
				Type: news.Negative,
			})
		}
		return drafts
	}

	a := c.Current
	a.DaysLeft--
	if a.DaysLeft > 0 {
		return drafts
	}

	switch a.Stage {
	case StageWarning:
		a.Stage = StageActive
		a.DaysLeft = a.Duration
		drafts = append(drafts, news.Draft{
			Text: fmt.Sprintf("%s strikes the city.", capitalize(describe(a))),
			Type: news.Negative,
		})
	case StageActive:
		a.Stage = StageAftermath
		a.DaysLeft = c.cooldownDays
		drafts = append(drafts, news.Draft{
			Text: fmt.Sprintf("The worst of %s has passed. Recovery efforts begin.", describe(a)),
			Type: news.Neutral,
		})
	case StageAftermath:
		drafts = append(drafts, news.Draft{
			Text: fmt.Sprintf("The city has recovered from %s after %d days.", describe(a), day-a.StartDay),
			Type: news.Positive,
		})
		c.Current = nil
	}
	return drafts
}

// Modifier returns the simulator adjustment for the current tick.
// Zero-effect modifier unless a disaster is ACTIVE.
func (c *Controller) Modifier(g *grid.Grid) Modifier {
	if c.Current == nil || c.Current.Stage != StageActive {
		return Modifier{IncomeFactor: 1}
	}

	a := c.Current
	p := profiles[a.Type]

	m := Modifier{
		IncomeFactor:   1 - (1-p.incomeFactor)*a.Severity,
		HappinessDelta: p.happinessHit * a.Severity,
	}

	// Positioned disasters only cost population when they hit occupied
	// ground; global ones always do.
	loss := p.popLossFrac * a.Severity
	if p.positioned && a.Position != nil {
		if tile := g.At(a.Position.X, a.Position.Y); tile == nil || tile.Building == catalog.None {
			loss = 0
		}
	}
	m.PopulationLoss = loss
	return m
}

func (c *Controller) spawn(t Type, p profile, day int, g *grid.Grid, rng entropy.Source) *Active {
	a := &Active{
		Type:     t,
		StartDay: day,
		Duration: p.activeDays,
		Stage:    StageWarning,
		DaysLeft: c.warningDays,
		Severity: 0.75 + rng.Float64()*0.5,
	}
	if p.positioned {
		pos := &Position{X: rng.Intn(g.Width), Y: rng.Intn(g.Height)}
		a.Position = pos
		// Prime land concentrates people and value, so hits there hurt more.
		if tile := g.At(pos.X, pos.Y); tile != nil {
			a.Severity *= 0.7 + 0.6*tile.LandValue
		}
	}
	return a
}

func (c *Controller) pickType(rng entropy.Source) Type {
	total := 0.0
	for _, t := range allTypes {
		total += profiles[t].weight
	}
	roll := rng.Float64() * total
	for _, t := range allTypes {
		roll -= profiles[t].weight
		if roll < 0 {
			return t
		}
	}
	return allTypes[len(allTypes)-1]
}

// FromString maps a wire tag to a disaster type.
func FromString(name string) (Type, bool) {
	for _, t := range allTypes {
		if string(t) == name {
			return t, true
		}
	}
	return "", false
}

func describe(a *Active) string {
	switch a.Type {
	case Earthquake:
		if a.Position != nil {
			return fmt.Sprintf("an earthquake near (%d,%d)", a.Position.X, a.Position.Y)
		}
		return "an earthquake"
	case Fire:
		if a.Position != nil {
			return fmt.Sprintf("a fire around (%d,%d)", a.Position.X, a.Position.Y)
		}
		return "a fire"
	case Flood:
		return "citywide flooding"
	case Blackout:
		return "a rolling blackout"
	case Epidemic:
		return "an epidemic"
	default:
		return "a disaster"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
