// Simulation ties every city system together and runs them each tick.
// All mutation of city state is serialized through one mutex: the tick
// step and the player/AI commands never overlap.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/mayorsim/internal/catalog"
	"github.com/talgya/mayorsim/internal/config"
	"github.com/talgya/mayorsim/internal/disaster"
	"github.com/talgya/mayorsim/internal/econ"
	"github.com/talgya/mayorsim/internal/entropy"
	"github.com/talgya/mayorsim/internal/event"
	"github.com/talgya/mayorsim/internal/grid"
	"github.com/talgya/mayorsim/internal/llm"
	"github.com/talgya/mayorsim/internal/mayor"
	"github.com/talgya/mayorsim/internal/news"
	"github.com/talgya/mayorsim/internal/weather"
)

// Simulation is the explicit city context passed through every tick.
type Simulation struct {
	mu sync.Mutex

	cfg    config.Tuning
	seed   int64
	seedFn func() int64 // fresh seeds for city resets
	rng    entropy.Source

	Grid      *grid.Grid
	Stats     econ.CityStats
	Weather   *weather.Controller
	Disasters *disaster.Controller
	Events    *event.Engine
	Planner   *mayor.Planner
	News      *news.Log

	AIEnabled bool

	advisory *AdvisoryBroker

	// pendingEffect is a resolved narrative event's payload, consumed
	// by the next tick.
	pendingEffect *econ.Effect

	// constructionSpent accumulates prepaid placement costs between
	// ticks for the budget breakdown.
	constructionSpent float64
}

// NewSimulation builds a fresh city from a seed. seedFn supplies seeds
// for subsequent resets; nil reuses the original seed.
func NewSimulation(cfg config.Tuning, seed int64, seedFn func() int64, broker *AdvisoryBroker) *Simulation {
	if seedFn == nil {
		seedFn = func() int64 { return seed }
	}
	s := &Simulation{
		cfg:      cfg,
		seed:     seed,
		seedFn:   seedFn,
		advisory: broker,
	}
	s.initState(seed)
	return s
}

// initState builds all per-session state. Callers hold the lock (or
// are the constructor).
func (s *Simulation) initState(seed int64) {
	s.seed = seed
	s.rng = entropy.NewSeeded(seed)
	s.Grid = grid.New(s.cfg.GridWidth, s.cfg.GridHeight, seed)
	s.Stats = econ.NewCityStats(s.cfg.StartingMoney, s.cfg.StartingTaxRate, s.cfg.LoanInterestRate, s.cfg.StartingSharePrice)
	s.Weather = weather.NewController(s.cfg.WeatherSelfBias)
	s.Disasters = disaster.NewController(s.cfg.DisasterBaseChance, s.cfg.DisasterWarningDays, s.cfg.DisasterCooldownDays)
	s.Events = event.NewEngine(s.cfg.EventChance, s.cfg.EventCooldownDays)
	s.Planner = mayor.NewPlanner(s.cfg.PlanningIntervalDays)
	// The feed outlives city resets so stream subscribers keep their
	// channels; only its items are session state.
	if s.News == nil {
		s.News = news.NewLog()
	} else {
		s.News.Reset()
	}
	s.pendingEffect = nil
	s.constructionSpent = 0
}

// Seed returns the session seed.
func (s *Simulation) Seed() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seed
}

// TickDay advances the city by one day. Wired to Engine.OnTick.
func (s *Simulation) TickDay(tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Advisory responses land first, at the tick boundary.
	s.applyAdvisory()

	var drafts []news.Draft

	// Weather and disasters gate the simulator's modifiers, so they
	// advance before the economy.
	if s.Weather.Advance(s.rng) {
		drafts = append(drafts, news.Draft{
			Text: fmt.Sprintf("The forecast shifts: %s ahead.", weather.Describe(s.Weather.Current)),
			Type: news.Neutral,
		})
	}
	wmod := s.Weather.Modifier()
	drafts = append(drafts, s.Disasters.Advance(s.Stats.Day, wmod.DisasterRisk, s.Grid, s.rng)...)
	dmod := s.Disasters.Modifier(s.Grid)

	if err := econ.Validate(s.Stats); err != nil {
		// A bad snapshot here is a programming error from a prior
		// tick; clamp and carry on rather than corrupting further.
		slog.Error("pre-tick validation failed", "error", err)
		s.Stats.TaxRate = clamp01(s.Stats.TaxRate)
	}

	in := econ.TickInputs{
		Weather:      wmod,
		Disaster:     dmod,
		EventEffect:  s.pendingEffect,
		Construction: s.constructionSpent,
	}
	s.pendingEffect = nil
	s.constructionSpent = 0

	next, econDrafts := econ.Advance(s.Stats, s.Grid, in, s.rng, s.cfg)
	s.Stats = next
	drafts = append(drafts, econDrafts...)

	drafts = append(drafts, s.tickGoal()...)
	drafts = append(drafts, s.tickEvents()...)
	drafts = append(drafts, s.tickAI()...)

	s.News.Publish(s.Stats.Day, drafts...)

	slog.Debug("day complete",
		"day", s.Stats.Day,
		"money", fmt.Sprintf("%.0f", s.Stats.Money),
		"population", s.Stats.Population,
		"happiness", fmt.Sprintf("%.0f", s.Stats.Happiness),
		"weather", s.Weather.Current,
	)
}

// tickGoal keeps the single goal slot filled and watches completion.
func (s *Simulation) tickGoal() []news.Draft {
	var drafts []news.Draft

	if s.Planner.Current == nil {
		if s.advisory.Enabled() && !s.advisory.Busy(PurposeGoal) {
			s.advisory.Request(PurposeGoal, s.summaryLocked())
		} else if !s.advisory.Enabled() {
			if goal := s.Planner.GenerateGoal(s.Stats, s.Grid, s.rng); goal != nil {
				drafts = append(drafts, news.Draft{
					Text: fmt.Sprintf("City hall sets a new objective: %s.", lowerFirst(goal.Description)),
					Type: news.Neutral,
				})
			}
		}
	}

	if s.Planner.CheckCompletion(s.Stats, s.Grid) {
		goal := s.Planner.Current
		drafts = append(drafts, news.Draft{
			Text: fmt.Sprintf("Objective complete: %s. A reward of %s awaits.", lowerFirst(goal.Description), news.Money(goal.Reward)),
			Type: news.Positive,
		})
		if s.AIEnabled {
			// The AI mayor claims its own rewards.
			if reward, err := s.Planner.Claim(); err == nil {
				s.Stats.Money += reward
				drafts = append(drafts, news.Draft{
					Text: fmt.Sprintf("The AI mayor claims a %s reward for the city.", news.Money(reward)),
					Type: news.Positive,
				})
			}
		}
	}
	return drafts
}

// tickEvents rolls for narrative events and requests AI-sourced ones.
func (s *Simulation) tickEvents() []news.Draft {
	if s.Events.Pending() != nil {
		return nil
	}
	if s.rng.Float64() >= s.cfg.EventChance {
		return nil
	}

	if s.advisory.Enabled() && !s.advisory.Busy(PurposeEvent) {
		s.advisory.Request(PurposeEvent, s.summaryLocked())
		return nil
	}

	if ev := s.Events.RaiseScripted(s.Stats.Day, s.rng); ev != nil {
		return []news.Draft{{
			Text: fmt.Sprintf("Decision required: %s", ev.Title),
			Type: news.Neutral,
		}}
	}
	return nil
}

// tickAI proposes and applies one action per planning interval when AI
// control is on.
func (s *Simulation) tickAI() []news.Draft {
	if !s.AIEnabled || !s.Planner.ShouldPlan(s.Stats.Day) {
		return nil
	}

	if s.advisory.Enabled() {
		if !s.advisory.Busy(PurposeAction) {
			s.advisory.Request(PurposeAction, s.summaryLocked())
			// The interval is spent when the request goes out, not
			// when the response lands.
			s.Planner.MarkPlanned(s.Stats.Day)
		}
		return nil
	}

	action := s.Planner.ProposeAction(s.Stats, s.Grid, s.rng)
	return s.applyAction(action)
}

// applyAction validates and applies a proposed action against the grid
// and treasury. Rejections become failed attempts, not retries.
func (s *Simulation) applyAction(action mayor.Action) []news.Draft {
	var drafts []news.Draft
	var err error

	switch action.Kind {
	case mayor.ActionBuild:
		err = s.placeLocked(action.X, action.Y, action.BuildingType)
		if err == nil {
			drafts = append(drafts, news.Draft{
				Text: fmt.Sprintf("The AI mayor builds a %s at (%d,%d).", catalog.Name(action.BuildingType), action.X, action.Y),
				Type: news.Neutral,
			})
		}
	case mayor.ActionDemolish:
		err = s.demolishLocked(action.X, action.Y)
		if err == nil {
			drafts = append(drafts, news.Draft{
				Text: fmt.Sprintf("The AI mayor clears the lot at (%d,%d).", action.X, action.Y),
				Type: news.Neutral,
			})
		}
	case mayor.ActionWait:
		// Nothing to do.
	}

	if err != nil {
		slog.Debug("ai action rejected", "action", action.Kind, "error", err)
	}
	s.Planner.RecordResult(action, err)
	return drafts
}

// applyAdvisory folds completed advisory responses into the city at
// the tick boundary, falling back to local heuristics on failure.
func (s *Simulation) applyAdvisory() {
	for _, res := range s.advisory.Drain() {
		switch res.Purpose {
		case PurposeGoal:
			goal := res.Goal
			if res.Err != nil {
				slog.Debug("advisory goal failed, using heuristic", "error", res.Err)
				goal = s.Planner.GenerateGoal(s.Stats, s.Grid, s.rng)
			} else if err := s.Planner.AcceptExternalGoal(goal); err != nil {
				slog.Debug("advisory goal rejected", "error", err)
				goal = nil
			}
			if goal != nil {
				s.News.Publish(s.Stats.Day, news.Draft{
					Text: fmt.Sprintf("City hall sets a new objective: %s.", lowerFirst(goal.Description)),
					Type: news.Neutral,
				})
			}

		case PurposeEvent:
			ev := res.Event
			if res.Err != nil {
				slog.Debug("advisory event failed, using scripted", "error", res.Err)
				ev = s.Events.RaiseScripted(s.Stats.Day, s.rng)
			} else if err := s.Events.AcceptExternal(ev); err != nil {
				slog.Debug("advisory event rejected", "error", err)
				ev = s.Events.RaiseScripted(s.Stats.Day, s.rng)
			}
			if ev != nil {
				s.News.Publish(s.Stats.Day, news.Draft{
					Text: fmt.Sprintf("Decision required: %s", ev.Title),
					Type: news.Neutral,
				})
			}

		case PurposeAction:
			if !s.AIEnabled {
				continue
			}
			action := res.Action
			if res.Err != nil {
				slog.Debug("advisory action failed, using heuristic", "error", res.Err)
				a := s.Planner.ProposeAction(s.Stats, s.Grid, s.rng)
				action = &a
			}
			s.News.Publish(s.Stats.Day, s.applyAction(*action)...)
		}
	}
}

// summaryLocked builds the advisory city digest. Callers hold the lock.
func (s *Simulation) summaryLocked() llm.CitySummary {
	sum := llm.CitySummary{
		Day:          s.Stats.Day,
		Money:        s.Stats.Money,
		Population:   s.Stats.Population,
		Housing:      s.Stats.HousingCapacity,
		TaxRate:      s.Stats.TaxRate,
		Happiness:    s.Stats.Happiness,
		Education:    s.Stats.Education,
		Safety:       s.Stats.Safety,
		Unemployment: s.Stats.Jobs.Unemployment,
		Weather:      weather.Describe(s.Weather.Current),
		GridWidth:    s.Grid.Width,
		GridHeight:   s.Grid.Height,
		Buildings:    make(map[string]int),
	}
	for _, bt := range catalog.All() {
		if n := s.Grid.Count(bt); n > 0 {
			sum.Buildings[catalog.String(bt)] = n
		}
	}
	if a := s.Disasters.Current; a != nil {
		sum.Disaster = fmt.Sprintf("%s (%s)", a.Type, a.Stage)
	}
	if g := s.Planner.Current; g != nil {
		sum.GoalActive = g.Description
	}
	return sum
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	c := s[0]
	if c >= 'A' && c <= 'Z' {
		return string(c+32) + s[1:]
	}
	return s
}
