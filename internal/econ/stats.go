// Package econ advances the city's economic state one tick at a time.
// CityStats is the authoritative per-tick snapshot; Advance replaces it
// wholesale each tick and is deterministic given its inputs and random
// source.
package econ

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSimulationInput marks out-of-range or NaN inputs, caught by
// the validation layer before Advance runs.
var ErrInvalidSimulationInput = errors.New("invalid simulation input")

// EconomicEvent is the active citywide economic condition.
type EconomicEvent string

const (
	EventNone      EconomicEvent = "none"
	EventBoom      EconomicEvent = "boom"
	EventRecession EconomicEvent = "recession"
	EventStrike    EconomicEvent = "strike"
	EventAudit     EconomicEvent = "audit"
)

// IncomeDetails are the categorized income sub-totals.
type IncomeDetails struct {
	Tax      float64 `json:"tax"`
	Business float64 `json:"business"`
	Export   float64 `json:"export"`
}

// ExpenseDetails are the categorized expense sub-totals.
// Construction is prepaid at placement time; it appears here for
// reporting but is never deducted a second time by the tick.
type ExpenseDetails struct {
	Services     float64 `json:"services"`
	Welfare      float64 `json:"welfare"`
	Construction float64 `json:"construction"`
}

// Budget is the per-tick income/expense breakdown.
type Budget struct {
	Income         float64        `json:"income"`
	Expenses       float64        `json:"expenses"`
	IncomeDetails  IncomeDetails  `json:"income_details"`
	ExpenseDetails ExpenseDetails `json:"expense_details"`
}

// Demographics splits the population by age band.
// Children + Adults + Seniors always equals Population.
type Demographics struct {
	Children int `json:"children"`
	Adults   int `json:"adults"`
	Seniors  int `json:"seniors"`
}

// Jobs is the employment breakdown.
type Jobs struct {
	Commercial   int     `json:"commercial"`
	Industrial   int     `json:"industrial"`
	Total        int     `json:"total"`
	Unemployment float64 `json:"unemployment"` // 0-1
}

// CityStats is the full city snapshot for one tick.
type CityStats struct {
	Money           float64 `json:"money"`
	Population      int     `json:"population"`
	Day             int     `json:"day"`
	HousingCapacity int     `json:"housing_capacity"`
	TaxRate         float64 `json:"tax_rate"` // 0-1

	Happiness float64 `json:"happiness"` // 0-100
	Education float64 `json:"education"` // 0-100
	Safety    float64 `json:"safety"`    // 0-100

	Budget       Budget       `json:"budget"`
	Demographics Demographics `json:"demographics"`
	Jobs         Jobs         `json:"jobs"`

	ShadowEconomy float64 `json:"shadow_economy"` // 0-1
	SupplyLevel   float64 `json:"supply_level"`   // 0-1

	LoanPrincipal    float64 `json:"loan_principal"`
	LoanInterestRate float64 `json:"loan_interest_rate"`

	EconomicEvent EconomicEvent `json:"economic_event"`
	EventDaysLeft int           `json:"event_days_left"`

	SharePrice     float64 `json:"share_price"`
	SharesHeld     int     `json:"shares_held"`
	ShareCostBasis float64 `json:"share_cost_basis"` // average cost per held share

	// OneTime itemizes this tick's one-off money effects (fines, event
	// payouts) that sit outside the income/expense reconciliation.
	OneTime float64 `json:"one_time"`
}

// NewCityStats returns the starting snapshot for a fresh session.
func NewCityStats(money, taxRate, loanRate, sharePrice float64) CityStats {
	return CityStats{
		Money:            money,
		Day:              0,
		TaxRate:          taxRate,
		Happiness:        60,
		Education:        40,
		Safety:           50,
		SupplyLevel:      1,
		LoanInterestRate: loanRate,
		EconomicEvent:    EventNone,
		SharePrice:       sharePrice,
	}
}

// Validate rejects snapshots no tick should ever be run from. A NaN
// here means a programming error upstream, not bad player input.
func Validate(s CityStats) error {
	for name, v := range map[string]float64{
		"money":       s.Money,
		"tax_rate":    s.TaxRate,
		"happiness":   s.Happiness,
		"share_price": s.SharePrice,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidSimulationInput, name, v)
		}
	}
	if s.TaxRate < 0 || s.TaxRate > 1 {
		return fmt.Errorf("%w: tax rate %.3f outside [0,1]", ErrInvalidSimulationInput, s.TaxRate)
	}
	if s.Population < 0 {
		return fmt.Errorf("%w: negative population %d", ErrInvalidSimulationInput, s.Population)
	}
	return nil
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
