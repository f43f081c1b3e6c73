package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/mayorsim/internal/catalog"
	"github.com/talgya/mayorsim/internal/disaster"
	"github.com/talgya/mayorsim/internal/econ"
	"github.com/talgya/mayorsim/internal/grid"
	"github.com/talgya/mayorsim/internal/news"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoLoan            = errors.New("no outstanding loan")
	ErrNoShares          = errors.New("no shares held")
	ErrDisasterConflict  = errors.New("a disaster is already in progress")
)

// taxRates are the presets CycleTax steps through.
var taxRates = []float64{0.05, 0.10, 0.15, 0.20, 0.25, 0.30}

// Place validates and places a building, debiting its cost. The debit
// and the grid mutation happen under one lock acquisition.
func (s *Simulation) Place(x, y int, t catalog.BuildingType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placeLocked(x, y, t)
}

func (s *Simulation) placeLocked(x, y int, t catalog.BuildingType) error {
	if err := s.Grid.Place(x, y, t, s.Stats.Money); err != nil {
		return err
	}
	cost := catalog.Get(t).Cost
	s.Stats.Money -= cost
	s.constructionSpent += cost
	return nil
}

// Demolish clears a tile. Demolition is free.
func (s *Simulation) Demolish(x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.demolishLocked(x, y)
}

func (s *Simulation) demolishLocked(x, y int) error {
	return s.Grid.Demolish(x, y)
}

// CycleTax steps the tax rate to the next preset, wrapping around.
func (s *Simulation) CycleTax() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := taxRates[0]
	for i, r := range taxRates {
		if s.Stats.TaxRate < r-1e-9 {
			next = r
			break
		}
		if i == len(taxRates)-1 {
			next = taxRates[0]
		}
	}
	s.Stats.TaxRate = next
	s.News.Publish(s.Stats.Day, news.Draft{
		Text: fmt.Sprintf("City hall adjusts the tax rate to %.0f%%.", next*100),
		Type: news.Neutral,
	})
	return next
}

// TakeLoan adds the fixed loan amount to both treasury and principal.
// Multiple loans stack into one principal.
func (s *Simulation) TakeLoan() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Stats.Money += s.cfg.LoanAmount
	s.Stats.LoanPrincipal += s.cfg.LoanAmount
	s.News.Publish(s.Stats.Day, news.Draft{
		Text: fmt.Sprintf("The city takes out a %s loan from the regional bank.", news.Money(s.cfg.LoanAmount)),
		Type: news.Neutral,
	})
	return nil
}

// RepayLoan pays down as much principal as the treasury can afford.
func (s *Simulation) RepayLoan() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Stats.LoanPrincipal <= 0 {
		return ErrNoLoan
	}
	if s.Stats.Money <= 0 {
		return ErrInsufficientFunds
	}

	payment := s.Stats.LoanPrincipal
	if payment > s.Stats.Money {
		payment = s.Stats.Money
	}
	s.Stats.Money -= payment
	s.Stats.LoanPrincipal -= payment

	draft := news.Draft{
		Text: fmt.Sprintf("The city pays %s toward its debt.", news.Money(payment)),
		Type: news.Neutral,
	}
	if s.Stats.LoanPrincipal <= 0 {
		s.Stats.LoanPrincipal = 0
		draft = news.Draft{
			Text: "The city is debt-free. The regional bank sends a fruit basket.",
			Type: news.Positive,
		}
	}
	s.News.Publish(s.Stats.Day, draft)
	return nil
}

// BuyShares buys one share of the city index at the current price.
func (s *Simulation) BuyShares() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Stats.Money < s.Stats.SharePrice {
		return ErrInsufficientFunds
	}
	s.Stats.Money -= s.Stats.SharePrice
	s.Stats.ShareCostBasis += s.Stats.SharePrice
	s.Stats.SharesHeld++
	return nil
}

// SellShares liquidates the whole position at the current price.
func (s *Simulation) SellShares() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Stats.SharesHeld <= 0 {
		return ErrNoShares
	}

	proceeds := float64(s.Stats.SharesHeld) * s.Stats.SharePrice
	gain := proceeds - s.Stats.ShareCostBasis
	s.Stats.Money += proceeds
	s.Stats.SharesHeld = 0
	s.Stats.ShareCostBasis = 0

	tone := news.Positive
	verb := "a profit"
	if gain < 0 {
		tone = news.Negative
		verb = "a loss"
		gain = -gain
	}
	s.News.Publish(s.Stats.Day, news.Draft{
		Text: fmt.Sprintf("The city sells its market position for %s, booking %s of %s.", news.Money(proceeds), verb, news.Money(gain)),
		Type: tone,
	})
	return nil
}

// ResolveEvent applies the chosen branch of the pending event. The
// effect payload lands on the next tick.
func (s *Simulation) ResolveEvent(choice int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	effect, draft, err := s.Events.Resolve(choice)
	if err != nil {
		return err
	}
	s.pendingEffect = &effect
	s.News.Publish(s.Stats.Day, draft)
	return nil
}

// ClaimGoal pays out a completed goal's reward.
func (s *Simulation) ClaimGoal() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reward, err := s.Planner.Claim()
	if err != nil {
		return err
	}
	s.Stats.Money += reward
	s.News.Publish(s.Stats.Day, news.Draft{
		Text: fmt.Sprintf("The mayor claims a %s reward for meeting the city objective.", news.Money(reward)),
		Type: news.Positive,
	})
	return nil
}

// ToggleAI flips AI mayor control and returns the new state.
func (s *Simulation) ToggleAI() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.AIEnabled = !s.AIEnabled
	text := "The AI mayor takes office. Citizens are cautiously optimistic."
	if !s.AIEnabled {
		text = "The AI mayor steps down. City hall returns to manual control."
	}
	s.News.Publish(s.Stats.Day, news.Draft{Text: text, Type: news.Neutral})
	slog.Info("ai control toggled", "enabled", s.AIEnabled)
	return s.AIEnabled
}

// TriggerDisaster force-starts a disaster of the named type.
func (s *Simulation) TriggerDisaster(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := disaster.FromString(name)
	if !ok {
		return fmt.Errorf("unknown disaster type %q", name)
	}
	if s.Disasters.Current != nil {
		return ErrDisasterConflict
	}
	a := s.Disasters.Trigger(t, s.Stats.Day, s.Grid, s.rng)
	if a == nil {
		return ErrDisasterConflict
	}
	s.News.Publish(s.Stats.Day, news.Draft{
		Text: fmt.Sprintf("Emergency services report signs of an imminent %s.", name),
		Type: news.Negative,
	})
	return nil
}

// ResetCity discards the session and starts over with a fresh seed.
// In-flight advisory requests are cancelled; their late responses fail
// the token check and are dropped.
func (s *Simulation) ResetCity() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.advisory.CancelAll()
	seed := s.seedFn()
	s.initState(seed)
	s.News.Publish(0, news.Draft{
		Text: "A new city is founded on open ground. Day one.",
		Type: news.Positive,
	})
	slog.Info("city reset", "seed", seed)
}

// Snapshot is a consistent read of the mutable city state for the API
// layer and persistence.
type Snapshot struct {
	Seed      int64
	Stats     econ.CityStats
	Tiles     []grid.Tile
	Weather   weatherState
	Disaster  *disaster.Active
	AIEnabled bool
}

type weatherState struct {
	Current  string
	DaysLeft int
}

// Snapshot copies the mutable state under the lock.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Seed:      s.seed,
		Stats:     s.Stats,
		Tiles:     s.Grid.Snapshot(),
		Weather:   weatherState{Current: string(s.Weather.Current), DaysLeft: s.Weather.DaysLeft},
		AIEnabled: s.AIEnabled,
	}
	if s.Disasters.Current != nil {
		a := *s.Disasters.Current
		snap.Disaster = &a
	}
	return snap
}

// WithLock runs fn while holding the simulation lock. The API layer
// uses it for reads that need multiple subsystems in one consistent
// view.
func (s *Simulation) WithLock(fn func(*Simulation)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}
