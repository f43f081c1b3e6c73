package econ

import (
	"fmt"

	"github.com/talgya/mayorsim/internal/catalog"
	"github.com/talgya/mayorsim/internal/config"
	"github.com/talgya/mayorsim/internal/disaster"
	"github.com/talgya/mayorsim/internal/entropy"
	"github.com/talgya/mayorsim/internal/grid"
	"github.com/talgya/mayorsim/internal/news"
	"github.com/talgya/mayorsim/internal/weather"
)

// Effect is a narrative event's numeric payload, applied once on the
// tick after the player resolves the event.
type Effect struct {
	Money      float64 `json:"money"`
	Population int     `json:"population"`
	Happiness  float64 `json:"happiness"`
	Education  float64 `json:"education"`
	Safety     float64 `json:"safety"`
}

// TickInputs gathers everything outside CityStats and the grid that
// shapes one tick.
type TickInputs struct {
	Weather  weather.Modifier
	Disaster disaster.Modifier

	// EventEffect is the resolved narrative event payload, if any.
	EventEffect *Effect

	// Construction is money already debited for placements since the
	// previous tick, reported in the budget breakdown.
	Construction float64
}

// gridTotals aggregates per-building contributions, gated by road access.
type gridTotals struct {
	housing        int
	commercialJobs int
	industrialJobs int
	happinessBonus float64
	educationBonus float64
	safetyBonus    float64
}

// Advance computes the next CityStats from the previous one. Pure:
// identical inputs and random source produce identical output.
// Callers validate prev with Validate before invoking.
func Advance(prev CityStats, g *grid.Grid, in TickInputs, rng entropy.Source, cfg config.Tuning) (CityStats, []news.Draft) {
	next := prev
	next.Day = prev.Day + 1
	next.OneTime = 0
	var drafts []news.Draft

	// 1. Grid contributions, scaled by road access.
	totals := sumGrid(g)
	next.HousingCapacity = totals.housing

	// 2. Revenue and service costs.
	pop := float64(prev.Population)
	tax := pop * 2.0 * prev.TaxRate
	business := 0.0
	export := 0.0
	g.Tiles(func(t *grid.Tile) {
		if t.Building == catalog.None || !g.HasRoadAccess(t.X, t.Y) {
			return
		}
		c := catalog.Get(t.Building)
		switch t.Building {
		case catalog.Commercial:
			business += c.Income
		case catalog.Industrial, catalog.PowerPlant:
			export += c.Income
		default:
			business += c.Income * 0.25 // residential rents and the like
		}
	})

	services := pop * 0.20
	welfare := pop * 0.10 * (1 + prev.Jobs.Unemployment)

	// 3. Economic event and weather/disaster modifiers.
	next.EconomicEvent, next.EventDaysLeft = advanceEconomicEvent(prev, rng, cfg, &drafts)
	if next.EconomicEvent == EventAudit && prev.EconomicEvent != EventAudit {
		next.OneTime -= cfg.AuditFine
		drafts = append(drafts, news.Draft{
			Text: fmt.Sprintf("Federal auditors fine the city %s for irregular books.", news.Money(cfg.AuditFine)),
			Type: news.Negative,
		})
	}

	revenueFactor := in.Weather.IncomeFactor * in.Disaster.IncomeFactor
	switch next.EconomicEvent {
	case EventBoom:
		revenueFactor *= 1.5
	case EventRecession:
		revenueFactor /= 1.5
	case EventStrike:
		business = 0
		export = 0
	}

	// The shadow economy siphons a slice of taxable activity.
	tax *= (1 - prev.ShadowEconomy*0.5) * in.Disaster.IncomeFactor
	business *= revenueFactor * prev.SupplyLevel
	export *= revenueFactor * prev.SupplyLevel

	next.Budget = Budget{
		Income:   tax + business + export,
		Expenses: services + welfare + in.Construction,
		IncomeDetails: IncomeDetails{
			Tax:      tax,
			Business: business,
			Export:   export,
		},
		ExpenseDetails: ExpenseDetails{
			Services:     services,
			Welfare:      welfare,
			Construction: in.Construction,
		},
	}

	// 4. Demographics: age bands shift, births fill housing surplus.
	next.Demographics, next.Population = ageDemographics(prev, totals.housing, in.Disaster, rng, cfg, &drafts)

	// 5. Indicators pull toward coverage-derived targets.
	jobs := totals.commercialJobs + totals.industrialJobs
	next.Jobs = Jobs{
		Commercial: totals.commercialJobs,
		Industrial: totals.industrialJobs,
		Total:      jobs,
	}
	workers := next.Demographics.Adults
	if workers > 0 && jobs < workers {
		next.Jobs.Unemployment = clamp(float64(workers-jobs)/float64(workers), 0, 1)
	}

	next.Happiness = pull(prev.Happiness, happinessTarget(totals, next, in), cfg.HappinessWeight)
	next.Education = pull(prev.Education, 25+totals.educationBonus*3, cfg.EducationWeight)
	next.Safety = pull(prev.Safety, 40+totals.safetyBonus*3-prev.ShadowEconomy*30, cfg.SafetyWeight)

	// 6. Loans, shares, shadow economy, supply drift.
	if prev.LoanPrincipal > 0 {
		next.LoanPrincipal = prev.LoanPrincipal * (1 + prev.LoanInterestRate/365)
	}
	next.SharePrice = nextSharePrice(prev, next.EconomicEvent, rng, cfg, &drafts)

	shadowPull := prev.Jobs.Unemployment*0.02 - (prev.Safety/100)*0.01
	next.ShadowEconomy = clamp(prev.ShadowEconomy+shadowPull+(rng.Float64()-0.5)*2*cfg.ShadowDrift, 0, 1)

	supplyTarget := 1.0
	if next.EconomicEvent == EventStrike || in.Disaster.IncomeFactor < 0.8 {
		supplyTarget = 0.5
	}
	next.SupplyLevel = clamp(prev.SupplyLevel+0.1*(supplyTarget-prev.SupplyLevel), 0, 1)

	// 7. Apply the resolved narrative event, then settle money.
	if in.EventEffect != nil {
		applyEffect(&next, in.EventEffect)
	}

	// Construction was prepaid at placement; add it back so it is not
	// deducted twice. An audit freezes the operating budget entirely.
	if next.EconomicEvent == EventAudit {
		next.Money = prev.Money + next.OneTime
	} else {
		next.Money = prev.Money + next.Budget.Income - next.Budget.Expenses + in.Construction + next.OneTime
	}

	drafts = append(drafts, thresholdNews(prev, next)...)
	clampStats(&next)
	return next, drafts
}

// sumGrid totals per-building contributions across the grid.
func sumGrid(g *grid.Grid) gridTotals {
	var t gridTotals
	g.Tiles(func(tile *grid.Tile) {
		if tile.Building == catalog.None {
			return
		}
		c := catalog.Get(tile.Building)
		road := g.HasRoadAccess(tile.X, tile.Y)

		if road {
			t.housing += c.Population
			t.happinessBonus += c.HappinessBonus
			t.educationBonus += c.EducationBonus
			t.safetyBonus += c.SafetyBonus
			switch tile.Building {
			case catalog.Commercial:
				t.commercialJobs += c.Jobs
			case catalog.Industrial, catalog.PowerPlant:
				t.industrialJobs += c.Jobs
			default:
				t.commercialJobs += c.Jobs
			}
		} else {
			// Unconnected buildings house fewer people and earn nothing.
			t.housing += c.Population / 2
		}
	})
	return t
}

// ageDemographics shifts age bands, spawns children into housing
// surplus, and applies disaster losses. Children+Adults+Seniors always
// equals the returned population.
func ageDemographics(prev CityStats, housing int, dis disaster.Modifier, rng entropy.Source, cfg config.Tuning, drafts *[]news.Draft) (Demographics, int) {
	d := prev.Demographics

	// Seed the first residents once housing exists.
	if prev.Population == 0 && housing > 0 {
		adults := housing / 2
		if adults > 0 {
			d = Demographics{Adults: adults}
			*drafts = append(*drafts, news.Draft{
				Text: fmt.Sprintf("The first %d residents move in.", adults),
				Type: news.Positive,
			})
		}
		return d, d.Children + d.Adults + d.Seniors
	}

	aging := int(float64(d.Children) * cfg.ChildToAdultRate)
	retiring := int(float64(d.Adults) * cfg.AdultToSeniorRate)
	d.Children -= aging
	d.Adults += aging - retiring
	d.Seniors += retiring

	// Births proportional to housing surplus.
	if surplus := housing - prev.Population; surplus > 0 {
		births := int(float64(surplus) * cfg.BirthRate)
		if births == 0 && rng.Float64() < float64(surplus)*cfg.BirthRate {
			births = 1
		}
		d.Children += births
	}

	// Disaster losses come out of every band proportionally.
	if dis.PopulationLoss > 0 {
		d.Children -= int(float64(d.Children) * dis.PopulationLoss)
		d.Adults -= int(float64(d.Adults) * dis.PopulationLoss)
		d.Seniors -= int(float64(d.Seniors) * dis.PopulationLoss)
	}

	if d.Children < 0 {
		d.Children = 0
	}
	if d.Adults < 0 {
		d.Adults = 0
	}
	if d.Seniors < 0 {
		d.Seniors = 0
	}

	// Clamp to capacity, trimming children first (last in, first out).
	pop := d.Children + d.Adults + d.Seniors
	if pop > housing {
		over := pop - housing
		trim := over
		if trim > d.Children {
			trim = d.Children
		}
		d.Children -= trim
		over -= trim
		if over > 0 {
			if over > d.Adults {
				over = d.Adults
			}
			d.Adults -= over
		}
		pop = d.Children + d.Adults + d.Seniors
	}

	return d, pop
}

// happinessTarget derives the happiness pull target from coverage,
// unemployment, the shadow economy, and active weather/disasters.
func happinessTarget(t gridTotals, next CityStats, in TickInputs) float64 {
	target := 50.0 +
		t.happinessBonus*2 -
		next.Jobs.Unemployment*40 -
		next.ShadowEconomy*10 +
		in.Weather.HappinessDelta +
		in.Disaster.HappinessDelta

	if next.TaxRate > 0.3 {
		target -= (next.TaxRate - 0.3) * 50
	}
	return target
}

// pull moves current toward target by the configured weight.
func pull(current, target, weight float64) float64 {
	return clamp(current+weight*(target-current), 0, 100)
}

func applyEffect(s *CityStats, e *Effect) {
	s.OneTime += e.Money
	s.Happiness = clamp(s.Happiness+e.Happiness, 0, 100)
	s.Education = clamp(s.Education+e.Education, 0, 100)
	s.Safety = clamp(s.Safety+e.Safety, 0, 100)

	if e.Population != 0 {
		d := &s.Demographics
		d.Adults += e.Population
		if d.Adults < 0 {
			d.Adults = 0
		}
		s.Population = d.Children + d.Adults + d.Seniors
	}
}

// thresholdNews reports notable band crossings between two snapshots.
func thresholdNews(prev, next CityStats) []news.Draft {
	var drafts []news.Draft

	if prev.Happiness >= 30 && next.Happiness < 30 {
		drafts = append(drafts, news.Draft{Text: "Public mood sours: happiness has fallen to critical levels.", Type: news.Negative})
	}
	if prev.Happiness < 70 && next.Happiness >= 70 {
		drafts = append(drafts, news.Draft{Text: "Residents report the city has never felt better.", Type: news.Positive})
	}
	if prev.Jobs.Unemployment < 0.25 && next.Jobs.Unemployment >= 0.25 {
		drafts = append(drafts, news.Draft{Text: "Unemployment spikes past one in four workers.", Type: news.Negative})
	}
	if prev.Money >= 0 && next.Money < 0 {
		drafts = append(drafts, news.Draft{Text: "The city treasury has run dry.", Type: news.Negative})
	}
	if prev.Population < 100 && next.Population >= 100 {
		drafts = append(drafts, news.Draft{Text: "Population passes 100 residents.", Type: news.Positive})
	}
	if prev.Population < 500 && next.Population >= 500 {
		drafts = append(drafts, news.Draft{Text: "Population passes 500 residents.", Type: news.Positive})
	}
	return drafts
}

// clampStats bounds every percentage and fraction field after a tick so
// no single bad value can propagate.
func clampStats(s *CityStats) {
	s.Happiness = clamp(s.Happiness, 0, 100)
	s.Education = clamp(s.Education, 0, 100)
	s.Safety = clamp(s.Safety, 0, 100)
	s.ShadowEconomy = clamp(s.ShadowEconomy, 0, 1)
	s.SupplyLevel = clamp(s.SupplyLevel, 0, 1)
	s.Jobs.Unemployment = clamp(s.Jobs.Unemployment, 0, 1)
	s.TaxRate = clamp(s.TaxRate, 0, 1)
	if s.SharePrice < 1 {
		s.SharePrice = 1
	}
	if s.LoanPrincipal < 0 {
		s.LoanPrincipal = 0
	}
}
