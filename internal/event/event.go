// Package event surfaces narrative decision points: at most one pending
// event with exactly two choices, scripted or AI-sourced, whose chosen
// effect lands on the next simulation tick.
package event

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/mayorsim/internal/econ"
	"github.com/talgya/mayorsim/internal/entropy"
	"github.com/talgya/mayorsim/internal/news"
)

// Kind classifies a narrative event.
type Kind string

const (
	Weird       Kind = "weird"
	Disaster    Kind = "disaster"
	Opportunity Kind = "opportunity"
)

var (
	ErrNoPendingEvent = errors.New("no pending event")
	ErrEventPending   = errors.New("an event is already pending")
	ErrBadChoice      = errors.New("choice index must be 0 or 1")
)

// Choice is one of an event's two options.
type Choice struct {
	Label      string      `json:"label"`
	EffectText string      `json:"effect_text"`
	Effect     econ.Effect `json:"effect"`
}

// GameEvent is a pending decision point. Destroyed once resolved.
type GameEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Kind        Kind      `json:"kind"`
	Choices     [2]Choice `json:"choices"`
}

// Engine owns the single pending event slot and the scripted pool.
type Engine struct {
	pending *GameEvent

	chance       float64
	cooldownDays int
	lastRaised   map[string]int // scripted template title -> day last used
}

// NewEngine creates an engine drawing from the scripted pool.
func NewEngine(chance float64, cooldownDays int) *Engine {
	return &Engine{
		chance:       chance,
		cooldownDays: cooldownDays,
		lastRaised:   make(map[string]int),
	}
}

// Pending returns the current undecided event, or nil.
func (e *Engine) Pending() *GameEvent {
	return e.pending
}

// MaybeRaise rolls for a scripted event. No-op while one is pending.
// Returns the raised event, or nil.
func (e *Engine) MaybeRaise(day int, rng entropy.Source) *GameEvent {
	if e.pending != nil {
		return nil
	}
	if rng.Float64() >= e.chance {
		return nil
	}
	return e.RaiseScripted(day, rng)
}

// RaiseScripted draws an off-cooldown event from the fixed pool.
// Used directly as the fallback when an advisory event never arrives.
func (e *Engine) RaiseScripted(day int, rng entropy.Source) *GameEvent {
	if e.pending != nil {
		return nil
	}

	var eligible []GameEvent
	for _, tmpl := range scriptedPool {
		if last, ok := e.lastRaised[tmpl.Title]; ok && day-last < e.cooldownDays {
			continue
		}
		eligible = append(eligible, tmpl)
	}
	if len(eligible) == 0 {
		return nil
	}

	ev := eligible[rng.Intn(len(eligible))]
	ev.ID = uuid.NewString()
	e.lastRaised[ev.Title] = day
	e.pending = &ev
	return e.pending
}

// AcceptExternal installs an advisory-sourced event. Rejected while one
// is already pending or if the payload is malformed.
func (e *Engine) AcceptExternal(ev *GameEvent) error {
	if e.pending != nil {
		return ErrEventPending
	}
	if ev == nil || ev.Title == "" || ev.Choices[0].Label == "" || ev.Choices[1].Label == "" {
		return fmt.Errorf("malformed external event")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	switch ev.Kind {
	case Weird, Disaster, Opportunity:
	default:
		ev.Kind = Weird
	}
	e.pending = ev
	return nil
}

// Resolve applies exactly one of the two choices, clearing the slot.
// The returned effect is handed to the simulator for the next tick.
func (e *Engine) Resolve(choice int) (econ.Effect, news.Draft, error) {
	if e.pending == nil {
		return econ.Effect{}, news.Draft{}, ErrNoPendingEvent
	}
	if choice != 0 && choice != 1 {
		return econ.Effect{}, news.Draft{}, ErrBadChoice
	}

	ev := e.pending
	e.pending = nil
	c := ev.Choices[choice]

	tone := news.Neutral
	if c.Effect.Money > 0 || c.Effect.Happiness > 0 {
		tone = news.Positive
	} else if c.Effect.Money < 0 || c.Effect.Happiness < 0 {
		tone = news.Negative
	}

	draft := news.Draft{
		Text: fmt.Sprintf("%s — the city chose to %s. %s", ev.Title, lowerFirst(c.Label), c.EffectText),
		Type: tone,
	}
	return c.Effect, draft, nil
}

// Clear drops any pending event (city reset).
func (e *Engine) Clear() {
	e.pending = nil
}

// Restore reinstates a previously pending event from a saved session.
func (e *Engine) Restore(ev *GameEvent) {
	e.pending = ev
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
