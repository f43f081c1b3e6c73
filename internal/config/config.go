// Package config holds the tunable simulation parameters.
// Every stochastic rate and moving-average weight lives here rather than
// as a hard-coded constant, so balance changes never touch simulation code.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds all simulation balance parameters.
type Tuning struct {
	// Grid dimensions for a new session.
	GridWidth  int `yaml:"grid_width"`
	GridHeight int `yaml:"grid_height"`

	// Starting state.
	StartingMoney   float64 `yaml:"starting_money"`
	StartingTaxRate float64 `yaml:"starting_tax_rate"`

	// Moving-average pull weights for the 0-100 city indicators.
	// Each tick the indicator moves weight*(target-current) toward its target.
	HappinessWeight float64 `yaml:"happiness_weight"`
	EducationWeight float64 `yaml:"education_weight"`
	SafetyWeight    float64 `yaml:"safety_weight"`

	// Demographics aging fractions per tick.
	ChildToAdultRate  float64 `yaml:"child_to_adult_rate"`
	AdultToSeniorRate float64 `yaml:"adult_to_senior_rate"`
	BirthRate         float64 `yaml:"birth_rate"` // per unit of housing surplus

	// Loans.
	LoanInterestRate float64 `yaml:"loan_interest_rate"` // annual, accrued per day
	LoanAmount       float64 `yaml:"loan_amount"`

	// Investment.
	StartingSharePrice float64 `yaml:"starting_share_price"`
	ShareDriftStdDev   float64 `yaml:"share_drift_std_dev"`

	// Economic event onset probability per tick and duration range (days).
	EconomicEventChance  float64 `yaml:"economic_event_chance"`
	EconomicEventMinDays int     `yaml:"economic_event_min_days"`
	EconomicEventMaxDays int     `yaml:"economic_event_max_days"`
	AuditFine            float64 `yaml:"audit_fine"`

	// Shadow economy drift per tick.
	ShadowDrift float64 `yaml:"shadow_drift"`

	// Disaster model.
	DisasterBaseChance   float64 `yaml:"disaster_base_chance"` // per tick, scaled by weather risk
	DisasterWarningDays  int     `yaml:"disaster_warning_days"`
	DisasterCooldownDays int     `yaml:"disaster_cooldown_days"`

	// Weather.
	WeatherSelfBias float64 `yaml:"weather_self_bias"` // extra weight on staying in the current condition

	// Scripted event cadence.
	EventChance       float64 `yaml:"event_chance"`
	EventCooldownDays int     `yaml:"event_cooldown_days"`

	// AI planner.
	PlanningIntervalDays int `yaml:"planning_interval_days"`

	// Gazette requests allowed per client per hour.
	GazettePerHour int `yaml:"gazette_per_hour"`
}

// Default returns the documented baseline tuning.
func Default() Tuning {
	return Tuning{
		GridWidth:  16,
		GridHeight: 16,

		StartingMoney:   2000,
		StartingTaxRate: 0.15,

		HappinessWeight: 0.08,
		EducationWeight: 0.05,
		SafetyWeight:    0.06,

		ChildToAdultRate:  0.004,
		AdultToSeniorRate: 0.002,
		BirthRate:         0.02,

		LoanInterestRate: 0.08,
		LoanAmount:       1000,

		StartingSharePrice: 100,
		ShareDriftStdDev:   0.03,

		EconomicEventChance:  0.01,
		EconomicEventMinDays: 3,
		EconomicEventMaxDays: 10,
		AuditFine:            250,

		ShadowDrift: 0.01,

		DisasterBaseChance:   0.002,
		DisasterWarningDays:  2,
		DisasterCooldownDays: 3,

		WeatherSelfBias: 3.0,

		EventChance:       0.03,
		EventCooldownDays: 5,

		PlanningIntervalDays: 3,

		GazettePerHour: 30,
	}
}

// Load reads tuning from a YAML file, filling unset fields with defaults.
// A missing file is not an error; defaults are returned as-is.
func Load(path string) (Tuning, error) {
	t := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return t, fmt.Errorf("read tuning file: %w", err)
	}

	if err := yaml.Unmarshal(data, &t); err != nil {
		return Default(), fmt.Errorf("parse tuning file: %w", err)
	}

	if err := t.Validate(); err != nil {
		return Default(), fmt.Errorf("invalid tuning: %w", err)
	}
	return t, nil
}

// Validate rejects tunings that would break simulation invariants.
func (t Tuning) Validate() error {
	if t.GridWidth < 4 || t.GridHeight < 4 {
		return fmt.Errorf("grid must be at least 4x4, got %dx%d", t.GridWidth, t.GridHeight)
	}
	if t.StartingTaxRate < 0 || t.StartingTaxRate > 1 {
		return fmt.Errorf("starting tax rate %.2f outside [0,1]", t.StartingTaxRate)
	}
	if t.DisasterBaseChance < 0 || t.DisasterBaseChance > 1 {
		return fmt.Errorf("disaster base chance %.4f outside [0,1]", t.DisasterBaseChance)
	}
	if t.EconomicEventMinDays > t.EconomicEventMaxDays {
		return fmt.Errorf("economic event duration range inverted")
	}
	if t.PlanningIntervalDays < 1 {
		return fmt.Errorf("planning interval must be at least 1 day")
	}
	if t.GazettePerHour < 1 {
		return fmt.Errorf("gazette rate must allow at least 1 request per hour")
	}
	return nil
}
