package econ

import (
	"errors"
	"math"
	"testing"

	"github.com/talgya/mayorsim/internal/catalog"
	"github.com/talgya/mayorsim/internal/config"
	"github.com/talgya/mayorsim/internal/disaster"
	"github.com/talgya/mayorsim/internal/entropy"
	"github.com/talgya/mayorsim/internal/grid"
	"github.com/talgya/mayorsim/internal/weather"
)

// scriptedSource feeds predetermined values, then settles on neutral
// ones, so a test can steer exactly one branch of the tick.
type scriptedSource struct {
	floats []float64
	ints   []int
}

func (s *scriptedSource) Float64() float64 {
	if len(s.floats) > 0 {
		v := s.floats[0]
		s.floats = s.floats[1:]
		return v
	}
	return 0.5
}

func (s *scriptedSource) Intn(n int) int {
	if len(s.ints) > 0 {
		v := s.ints[0] % n
		s.ints = s.ints[1:]
		return v
	}
	return 0
}

func neutralInputs() TickInputs {
	return TickInputs{
		Weather:  weather.Modifier{IncomeFactor: 1, HappinessDelta: 0, DisasterRisk: 1},
		Disaster: disaster.Modifier{IncomeFactor: 1},
	}
}

func testTown(t *testing.T) *grid.Grid {
	t.Helper()
	g := grid.New(8, 8, 42)
	g.Restore(4, 0, catalog.Road)
	g.Restore(4, 1, catalog.Road)
	g.Restore(4, 2, catalog.Road)
	g.Restore(3, 0, catalog.Residential)
	g.Restore(5, 0, catalog.Residential)
	g.Restore(3, 1, catalog.Commercial)
	g.Restore(5, 1, catalog.Industrial)
	return g
}

func TestAdvanceDeterministic(t *testing.T) {
	cfg := config.Default()
	run := func() CityStats {
		g := testTown(t)
		rng := entropy.NewSeeded(77)
		s := NewCityStats(cfg.StartingMoney, cfg.StartingTaxRate, cfg.LoanInterestRate, cfg.StartingSharePrice)
		for i := 0; i < 100; i++ {
			s, _ = Advance(s, g, neutralInputs(), rng, cfg)
		}
		return s
	}

	a, b := run(), run()
	if a != b {
		t.Errorf("identical seeds diverged:\n%+v\n%+v", a, b)
	}
}

func TestDemographicsSumToPopulation(t *testing.T) {
	cfg := config.Default()
	g := testTown(t)
	rng := entropy.NewSeeded(9)
	s := NewCityStats(cfg.StartingMoney, cfg.StartingTaxRate, cfg.LoanInterestRate, cfg.StartingSharePrice)

	for i := 0; i < 300; i++ {
		s, _ = Advance(s, g, neutralInputs(), rng, cfg)
		d := s.Demographics
		if sum := d.Children + d.Adults + d.Seniors; sum != s.Population {
			t.Fatalf("tick %d: bands sum to %d, population %d", i, sum, s.Population)
		}
		if s.Population > s.HousingCapacity {
			t.Fatalf("tick %d: population %d exceeds housing %d", i, s.Population, s.HousingCapacity)
		}
	}
}

func TestMoneyReconciliation(t *testing.T) {
	cfg := config.Default()
	cfg.EconomicEventChance = 0
	g := testTown(t)
	rng := entropy.NewSeeded(5)
	s := NewCityStats(cfg.StartingMoney, cfg.StartingTaxRate, cfg.LoanInterestRate, cfg.StartingSharePrice)

	for i := 0; i < 50; i++ {
		prev := s
		s, _ = Advance(s, g, neutralInputs(), rng, cfg)
		want := prev.Money + s.Budget.Income - s.Budget.Expenses
		if math.Abs(s.Money-want) > 1e-9 {
			t.Fatalf("tick %d: money %.6f, want %.6f", i, s.Money, want)
		}
	}
}

func TestConstructionPrepayNotDeductedTwice(t *testing.T) {
	cfg := config.Default()
	cfg.EconomicEventChance = 0
	g := testTown(t)
	rng := entropy.NewSeeded(5)
	s := NewCityStats(cfg.StartingMoney, cfg.StartingTaxRate, cfg.LoanInterestRate, cfg.StartingSharePrice)

	in := neutralInputs()
	in.Construction = 350

	next, _ := Advance(s, g, in, rng, cfg)
	if next.Budget.ExpenseDetails.Construction != 350 {
		t.Errorf("construction in breakdown = %.0f, want 350", next.Budget.ExpenseDetails.Construction)
	}

	// Construction appears in Expenses but was already debited at
	// placement; the settled money must not subtract it again.
	want := s.Money + next.Budget.Income - next.Budget.Expenses + 350
	if math.Abs(next.Money-want) > 1e-9 {
		t.Errorf("money %.6f, want %.6f", next.Money, want)
	}
}

func TestTaxRevenueFormula(t *testing.T) {
	cfg := config.Default()
	cfg.EconomicEventChance = 0
	g := grid.New(8, 8, 1) // empty grid: no business or export income

	s := NewCityStats(2000, 0.15, 0.08, 100)
	s.Population = 100
	s.Demographics = Demographics{Adults: 100}

	next, _ := Advance(s, g, neutralInputs(), entropy.NewSeeded(1), cfg)

	// 100 residents * 2.0 * 15%, no shadow economy, no disaster.
	if math.Abs(next.Budget.IncomeDetails.Tax-30) > 1e-9 {
		t.Errorf("tax income = %.4f, want 30", next.Budget.IncomeDetails.Tax)
	}
	if next.Budget.IncomeDetails.Business != 0 || next.Budget.IncomeDetails.Export != 0 {
		t.Errorf("empty grid earned business/export: %+v", next.Budget.IncomeDetails)
	}
}

func TestRoadAccessGatesHousing(t *testing.T) {
	cfg := config.Default()
	cfg.EconomicEventChance = 0
	full := catalog.Get(catalog.Residential).Population

	// Connected: full housing.
	g := grid.New(8, 8, 1)
	g.Restore(4, 4, catalog.Road)
	g.Restore(3, 4, catalog.Residential)
	s := NewCityStats(2000, 0.15, 0.08, 100)
	next, _ := Advance(s, g, neutralInputs(), entropy.NewSeeded(1), cfg)
	if next.HousingCapacity != full {
		t.Errorf("connected housing = %d, want %d", next.HousingCapacity, full)
	}

	// Unconnected: half housing.
	g2 := grid.New(8, 8, 1)
	g2.Restore(3, 4, catalog.Residential)
	next2, _ := Advance(s, g2, neutralInputs(), entropy.NewSeeded(1), cfg)
	if next2.HousingCapacity != full/2 {
		t.Errorf("unconnected housing = %d, want %d", next2.HousingCapacity, full/2)
	}
}

func TestAuditOnsetFinesAndFreezes(t *testing.T) {
	cfg := config.Default()
	g := testTown(t)

	s := NewCityStats(2000, 0.15, 0.08, 100)

	// Force the event roll to succeed and land on the audit.
	rng := &scriptedSource{floats: []float64{0}, ints: []int{3}}
	next, drafts := Advance(s, g, neutralInputs(), rng, cfg)

	if next.EconomicEvent != EventAudit {
		t.Fatalf("event = %s, want audit", next.EconomicEvent)
	}
	if math.Abs(next.Money-(s.Money-cfg.AuditFine)) > 1e-9 {
		t.Errorf("money %.2f, want %.2f (fine only)", next.Money, s.Money-cfg.AuditFine)
	}
	if len(drafts) == 0 {
		t.Error("audit onset produced no feed draft")
	}

	// Subsequent audit days freeze the treasury entirely.
	prev := next
	rng2 := &scriptedSource{}
	after, _ := Advance(prev, g, neutralInputs(), rng2, cfg)
	if after.EconomicEvent != EventAudit {
		t.Fatalf("audit ended early: %s", after.EconomicEvent)
	}
	if after.Money != prev.Money {
		t.Errorf("frozen money moved: %.2f -> %.2f", prev.Money, after.Money)
	}
}

func TestStrikeZeroesBusinessIncome(t *testing.T) {
	cfg := config.Default()
	g := testTown(t)

	s := NewCityStats(2000, 0.15, 0.08, 100)
	s.EconomicEvent = EventStrike
	s.EventDaysLeft = 5

	next, _ := Advance(s, g, neutralInputs(), &scriptedSource{}, cfg)
	if next.Budget.IncomeDetails.Business != 0 || next.Budget.IncomeDetails.Export != 0 {
		t.Errorf("strike left business income: %+v", next.Budget.IncomeDetails)
	}
}

func TestEventEffectApplied(t *testing.T) {
	cfg := config.Default()
	cfg.EconomicEventChance = 0
	g := testTown(t)

	s := NewCityStats(2000, 0.15, 0.08, 100)
	s.Demographics = Demographics{Adults: 10}
	s.Population = 10

	in := neutralInputs()
	in.EventEffect = &Effect{Money: 300, Population: 5, Happiness: 4}

	next, _ := Advance(s, g, in, entropy.NewSeeded(1), cfg)
	if next.OneTime != 300 {
		t.Errorf("one-time money = %.0f, want 300", next.OneTime)
	}
	want := s.Money + next.Budget.Income - next.Budget.Expenses + 300
	if math.Abs(next.Money-want) > 1e-9 {
		t.Errorf("money %.4f, want %.4f", next.Money, want)
	}
}

func TestClampStatsBounds(t *testing.T) {
	cfg := config.Default()
	cfg.EconomicEventChance = 0
	g := testTown(t)

	s := NewCityStats(2000, 0.15, 0.08, 100)
	s.Happiness = 99.9
	s.ShadowEconomy = 0.999

	in := neutralInputs()
	in.EventEffect = &Effect{Happiness: 10, Education: 10, Safety: 10}

	next, _ := Advance(s, g, in, entropy.NewSeeded(1), cfg)
	for name, v := range map[string]float64{
		"happiness": next.Happiness,
		"education": next.Education,
		"safety":    next.Safety,
	} {
		if v < 0 || v > 100 {
			t.Errorf("%s = %.2f outside [0,100]", name, v)
		}
	}
	if next.ShadowEconomy < 0 || next.ShadowEconomy > 1 {
		t.Errorf("shadow economy = %.3f outside [0,1]", next.ShadowEconomy)
	}
	if next.SharePrice < 1 {
		t.Errorf("share price %.2f below floor", next.SharePrice)
	}
}

func TestLoanAccruesDailyInterest(t *testing.T) {
	cfg := config.Default()
	cfg.EconomicEventChance = 0
	g := grid.New(8, 8, 1)

	s := NewCityStats(2000, 0.15, 0.08, 100)
	s.LoanPrincipal = 1000
	s.LoanInterestRate = 0.08

	next, _ := Advance(s, g, neutralInputs(), entropy.NewSeeded(1), cfg)
	want := 1000 * (1 + 0.08/365)
	if math.Abs(next.LoanPrincipal-want) > 1e-9 {
		t.Errorf("principal %.6f, want %.6f", next.LoanPrincipal, want)
	}
}

func TestValidate(t *testing.T) {
	good := NewCityStats(2000, 0.15, 0.08, 100)
	if err := Validate(good); err != nil {
		t.Fatalf("fresh stats invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*CityStats)
	}{
		{"nan money", func(s *CityStats) { s.Money = math.NaN() }},
		{"inf share price", func(s *CityStats) { s.SharePrice = math.Inf(1) }},
		{"tax above one", func(s *CityStats) { s.TaxRate = 1.2 }},
		{"negative tax", func(s *CityStats) { s.TaxRate = -0.1 }},
		{"negative population", func(s *CityStats) { s.Population = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := good
			tc.mutate(&s)
			if err := Validate(s); !errors.Is(err, ErrInvalidSimulationInput) {
				t.Errorf("got %v, want ErrInvalidSimulationInput", err)
			}
		})
	}
}
