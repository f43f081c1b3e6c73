// Package mayor is the AI goal and action planner: it keeps one active
// objective tied to measurable city targets and, when AI control is on,
// proposes one build/demolish/wait action per planning interval.
// Advisory-sourced proposals replace the local heuristics when they
// arrive in time; the heuristics are always available as fallback.
package mayor

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/mayorsim/internal/catalog"
	"github.com/talgya/mayorsim/internal/econ"
	"github.com/talgya/mayorsim/internal/entropy"
	"github.com/talgya/mayorsim/internal/grid"
)

// TargetType is the measurable field a goal tracks.
type TargetType string

const (
	TargetPopulation    TargetType = "population"
	TargetMoney         TargetType = "money"
	TargetBuildingCount TargetType = "building_count"
)

// Goal is the single active objective. Lifecycle:
// none -> active -> completed -> claimed -> none.
type Goal struct {
	ID           string               `json:"id"`
	Description  string               `json:"description"`
	Target       TargetType           `json:"target"`
	TargetValue  float64              `json:"target_value"`
	BuildingType catalog.BuildingType `json:"building_type,omitempty"`
	Reward       float64              `json:"reward"`
	Completed    bool                 `json:"completed"`
}

// ActionKind is the planner's proposed mutation.
type ActionKind string

const (
	ActionBuild    ActionKind = "BUILD"
	ActionDemolish ActionKind = "DEMOLISH"
	ActionWait     ActionKind = "WAIT"
)

// Action is one proposed grid mutation for the simulation to validate
// and apply. A rejected BUILD is recorded as a failed attempt rather
// than retried, so an unplaceable proposal cannot loop.
type Action struct {
	Kind          ActionKind           `json:"action"`
	BuildingType  catalog.BuildingType `json:"building_type,omitempty"`
	X             int                  `json:"x,omitempty"`
	Y             int                  `json:"y,omitempty"`
	Reasoning     string               `json:"reasoning,omitempty"`
	FailedAttempt bool                 `json:"failed_attempt,omitempty"`
}

// Planner holds the goal slot and planning state.
type Planner struct {
	Current    *Goal
	LastAction *Action

	intervalDays int
	lastPlanDay  int
}

// NewPlanner creates an idle planner.
func NewPlanner(intervalDays int) *Planner {
	return &Planner{intervalDays: intervalDays}
}

// Restore reinstates a saved goal (nil clears the slot).
func (p *Planner) Restore(g *Goal) {
	p.Current = g
	p.LastAction = nil
}

// Clear drops all planner state (city reset).
func (p *Planner) Clear() {
	p.Current = nil
	p.LastAction = nil
	p.lastPlanDay = 0
}

// GenerateGoal fills an empty goal slot with a locally derived
// objective. No-op while a goal is active.
func (p *Planner) GenerateGoal(stats econ.CityStats, g *grid.Grid, rng entropy.Source) *Goal {
	if p.Current != nil {
		return nil
	}

	var goal Goal
	switch rng.Intn(3) {
	case 0:
		target := float64(stats.Population)*1.5 + 20
		goal = Goal{
			Target:      TargetPopulation,
			TargetValue: float64(int(target)),
			Reward:      200 + float64(stats.Population),
		}
		goal.Description = fmt.Sprintf("Grow the population to %d residents", int(goal.TargetValue))
	case 1:
		target := stats.Money*1.4 + 500
		goal = Goal{
			Target:      TargetMoney,
			TargetValue: float64(int(target)),
			Reward:      150 + stats.Money*0.1,
		}
		goal.Description = fmt.Sprintf("Build the treasury up to %d", int(goal.TargetValue))
	default:
		// Pick a capped or under-represented service building.
		candidates := []catalog.BuildingType{catalog.Park, catalog.School, catalog.PoliceStation, catalog.Hospital}
		bt := candidates[rng.Intn(len(candidates))]
		count := g.Count(bt) + 1 + rng.Intn(2)
		goal = Goal{
			Target:       TargetBuildingCount,
			TargetValue:  float64(count),
			BuildingType: bt,
			Reward:       100 + catalog.Get(bt).Cost*0.5,
		}
		goal.Description = fmt.Sprintf("Have %d %s buildings in the city", count, catalog.Name(bt))
	}

	goal.ID = uuid.NewString()
	p.Current = &goal
	return p.Current
}

// AcceptExternalGoal installs an advisory-sourced goal if the slot is
// free and the payload is sane.
func (p *Planner) AcceptExternalGoal(goal *Goal) error {
	if p.Current != nil {
		return fmt.Errorf("a goal is already active")
	}
	if goal == nil || goal.Description == "" || goal.TargetValue <= 0 {
		return fmt.Errorf("malformed external goal")
	}
	switch goal.Target {
	case TargetPopulation, TargetMoney, TargetBuildingCount:
	default:
		return fmt.Errorf("unknown goal target %q", goal.Target)
	}
	if goal.Target == TargetBuildingCount && !catalog.Valid(goal.BuildingType) {
		return fmt.Errorf("unknown goal building type")
	}
	if goal.Reward < 0 {
		goal.Reward = 0
	}
	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}
	goal.Completed = false
	p.Current = goal
	return nil
}

// CheckCompletion flips the goal to completed when the monitored
// condition is met. Returns true on the completing tick only.
func (p *Planner) CheckCompletion(stats econ.CityStats, g *grid.Grid) bool {
	goal := p.Current
	if goal == nil || goal.Completed {
		return false
	}

	met := false
	switch goal.Target {
	case TargetPopulation:
		met = float64(stats.Population) >= goal.TargetValue
	case TargetMoney:
		met = stats.Money >= goal.TargetValue
	case TargetBuildingCount:
		met = float64(g.Count(goal.BuildingType)) >= goal.TargetValue
	}

	if met {
		goal.Completed = true
	}
	return met
}

// Claim returns the reward for a completed goal and clears the slot.
func (p *Planner) Claim() (float64, error) {
	if p.Current == nil {
		return 0, fmt.Errorf("no active goal")
	}
	if !p.Current.Completed {
		return 0, fmt.Errorf("goal not yet completed")
	}
	reward := p.Current.Reward
	p.Current = nil
	return reward, nil
}

// ShouldPlan reports whether a new action proposal is due this tick.
func (p *Planner) ShouldPlan(day int) bool {
	return day-p.lastPlanDay >= p.intervalDays
}

// MarkPlanned consumes the current planning interval for an action
// sourced outside the local heuristics.
func (p *Planner) MarkPlanned(day int) {
	p.lastPlanDay = day
}

// ProposeAction derives one heuristic action toward the active goal.
// Marks the planning interval as consumed.
func (p *Planner) ProposeAction(stats econ.CityStats, g *grid.Grid, rng entropy.Source) Action {
	p.lastPlanDay = stats.Day

	// Deep unhappiness next to heavy industry: tear one plant down.
	if stats.Happiness < 25 && g.Count(catalog.Industrial) > 0 {
		if x, y, ok := findBuilding(g, catalog.Industrial); ok {
			return Action{
				Kind:      ActionDemolish,
				X:         x,
				Y:         y,
				Reasoning: "removing an industrial site to relieve unhappiness",
			}
		}
	}

	want := p.wantedBuilding(stats, g)
	if want == catalog.None {
		return Action{Kind: ActionWait, Reasoning: "nothing worth building right now"}
	}

	cfg := catalog.Get(want)
	if cfg.Cost > stats.Money {
		return Action{Kind: ActionWait, Reasoning: fmt.Sprintf("saving up for a %s", cfg.Name)}
	}
	if cfg.MaxCount > 0 && g.Count(want) >= cfg.MaxCount {
		return Action{Kind: ActionWait, Reasoning: fmt.Sprintf("city already has enough %s buildings", cfg.Name)}
	}

	x, y, ok := findSite(g, want, rng)
	if !ok {
		return Action{Kind: ActionWait, Reasoning: "no suitable site available"}
	}

	return Action{
		Kind:         ActionBuild,
		BuildingType: want,
		X:            x,
		Y:            y,
		Reasoning:    fmt.Sprintf("building a %s toward the current goal", cfg.Name),
	}
}

// RecordResult stores the outcome of the last applied action. Rejected
// builds are kept as failed attempts and not retried this interval.
func (p *Planner) RecordResult(a Action, err error) {
	if err != nil {
		a.FailedAttempt = true
		a.Reasoning = fmt.Sprintf("%s (rejected: %v)", a.Reasoning, err)
	}
	p.LastAction = &a
}

// wantedBuilding picks what to build next: roads first, then the goal's
// building type, then whatever the city is shortest of.
func (p *Planner) wantedBuilding(stats econ.CityStats, g *grid.Grid) catalog.BuildingType {
	if g.Count(catalog.Road) == 0 {
		return catalog.Road
	}

	if goal := p.Current; goal != nil && !goal.Completed {
		switch goal.Target {
		case TargetBuildingCount:
			return goal.BuildingType
		case TargetPopulation:
			return catalog.Residential
		case TargetMoney:
			return catalog.Commercial
		}
	}

	// No goal: balance housing against jobs.
	if stats.HousingCapacity <= stats.Population {
		return catalog.Residential
	}
	if stats.Jobs.Unemployment > 0.3 {
		return catalog.Commercial
	}
	if stats.Happiness < 40 {
		return catalog.Park
	}
	return catalog.None
}

// findBuilding returns the first tile holding the given building type.
func findBuilding(g *grid.Grid, bt catalog.BuildingType) (int, int, bool) {
	fx, fy, found := 0, 0, false
	g.Tiles(func(t *grid.Tile) {
		if !found && t.Building == bt {
			fx, fy, found = t.X, t.Y, true
		}
	})
	return fx, fy, found
}

// findSite scans for a placeable tile, preferring road-adjacent spots
// with high land value. Roads prefer extending the existing network.
func findSite(g *grid.Grid, want catalog.BuildingType, rng entropy.Source) (int, int, bool) {
	bestX, bestY := -1, -1
	bestScore := -1.0

	g.Tiles(func(t *grid.Tile) {
		if t.Building != catalog.None {
			return
		}
		score := t.LandValue
		if g.HasRoadAccess(t.X, t.Y) {
			if want == catalog.Road {
				score += 0.5 // extend the network
			} else {
				score += 2 // connected sites are worth far more
			}
		} else if want != catalog.Road {
			score -= 1
		}
		// Small jitter so equal sites do not always tie the same way.
		score += rng.Float64() * 0.05
		if score > bestScore {
			bestScore = score
			bestX, bestY = t.X, t.Y
		}
	})

	if bestX < 0 {
		return 0, 0, false
	}
	return bestX, bestY, true
}
