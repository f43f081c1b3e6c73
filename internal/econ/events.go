package econ

import (
	"math"

	"github.com/talgya/mayorsim/internal/config"
	"github.com/talgya/mayorsim/internal/entropy"
	"github.com/talgya/mayorsim/internal/news"
)

// economicEvents in fixed order for deterministic selection.
var economicEvents = []EconomicEvent{EventBoom, EventRecession, EventStrike, EventAudit}

// advanceEconomicEvent decrements the active event or rolls for a new
// one. Emits onset and all-clear drafts.
func advanceEconomicEvent(prev CityStats, rng entropy.Source, cfg config.Tuning, drafts *[]news.Draft) (EconomicEvent, int) {
	if prev.EconomicEvent != EventNone {
		left := prev.EventDaysLeft - 1
		if left > 0 {
			return prev.EconomicEvent, left
		}
		*drafts = append(*drafts, news.Draft{
			Text: eventEndText(prev.EconomicEvent),
			Type: news.Neutral,
		})
		return EventNone, 0
	}

	if rng.Float64() >= cfg.EconomicEventChance {
		return EventNone, 0
	}

	ev := economicEvents[rng.Intn(len(economicEvents))]
	days := cfg.EconomicEventMinDays
	if span := cfg.EconomicEventMaxDays - cfg.EconomicEventMinDays; span > 0 {
		days += rng.Intn(span + 1)
	}

	*drafts = append(*drafts, news.Draft{
		Text: eventStartText(ev),
		Type: eventTone(ev),
	})
	return ev, days
}

// nextSharePrice walks the share price, with drift from the active
// economic event. Recessions can crash it outright.
func nextSharePrice(prev CityStats, ev EconomicEvent, rng entropy.Source, cfg config.Tuning, drafts *[]news.Draft) float64 {
	drift := 0.0
	switch ev {
	case EventBoom:
		drift = 0.01
	case EventRecession:
		drift = -0.015
		if rng.Float64() < 0.05 {
			*drafts = append(*drafts, news.Draft{
				Text: "Markets crash: the city index loses a third of its value overnight.",
				Type: news.Negative,
			})
			return math.Max(prev.SharePrice*0.66, 1)
		}
	}

	step := (rng.Float64() - 0.5) * 2 * cfg.ShareDriftStdDev
	price := prev.SharePrice * (1 + drift + step)
	return math.Max(price, 1)
}

func eventStartText(ev EconomicEvent) string {
	switch ev {
	case EventBoom:
		return "An economic boom sweeps the city: business is thriving."
	case EventRecession:
		return "Recession hits: revenues shrink and markets slide."
	case EventStrike:
		return "A general strike halts commercial and industrial activity."
	case EventAudit:
		return "Federal auditors arrive to inspect the city's books."
	default:
		return "The economy shifts."
	}
}

func eventEndText(ev EconomicEvent) string {
	switch ev {
	case EventBoom:
		return "The boom cools off; business returns to normal."
	case EventRecession:
		return "The recession ends as markets steady."
	case EventStrike:
		return "The strike is settled; workers return to their posts."
	case EventAudit:
		return "The audit concludes and the books are unfrozen."
	default:
		return "The economy settles."
	}
}

func eventTone(ev EconomicEvent) news.Type {
	if ev == EventBoom {
		return news.Positive
	}
	return news.Negative
}
