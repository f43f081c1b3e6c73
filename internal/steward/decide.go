package steward

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/talgya/mayorsim/internal/llm"
)

const systemPrompt = `You are the Steward, an autonomous caretaker of Gridside — a small simulated city run by its player and an optional AI mayor.

Your role: observe city health and recommend zero or one gentle intervention per cycle. You are a caretaker, not a player. You keep the city alive and the story moving; you do not run it.

## Core Values (in priority order)

1. ANTI-BANKRUPTCY — When the treasury is underwater and debt is mounting, steady the finances (a loan buys time; a tax change shifts the trend).

2. ANTI-STAGNATION — A city where nothing has happened for many days gets dull. A disaster drill injects stakes. Only do this when the city is healthy enough to absorb it.

3. RESPECT FOR PLAY — Use the lightest touch possible. The player and the AI mayor make the real decisions. When in doubt, do nothing.

## Available Actions

- "none" — No intervention needed. This is the RIGHT choice most of the time.
- "takeLoan" — Borrow from the regional bank (only when the treasury is in real trouble).
- "repayLoan" — Pay down debt (only when the treasury comfortably covers it).
- "cycleTax" — Step the tax rate to the next preset.
- "triggerDisaster" — Start a disaster drill (requires "disaster": one of earthquake, fire, flood, blackout, epidemic).

## Response Format

Respond with ONLY valid JSON (no markdown, no explanation outside the JSON):
{
  "action": "none",
  "rationale": "Brief explanation of your assessment and why this action (or inaction) is appropriate.",
  "disaster": ""
}

## Important Rules

- Respond ONLY with JSON. No prose, no markdown fences.
- "action" must be one of: "none", "takeLoan", "repayLoan", "cycleTax", "triggerDisaster".
- "disaster" is only read for triggerDisaster.
- Consider the recent feed, not just the numbers. A city mid-crisis does not need another one.`

// Decision is the advisory model's recommended action.
type Decision struct {
	Action    string `json:"action"`
	Rationale string `json:"rationale"`
	Disaster  string `json:"disaster,omitempty"`
}

// Decide sends the snapshot and health digest to the advisory model
// and returns a guardrail-checked Decision.
func Decide(client *llm.Client, snap *CitySnapshot, health *CityHealth, mem *CycleMemory) (*Decision, error) {
	prompt := formatSnapshot(snap, health)
	if recent := mem.FormatForPrompt(); recent != "" {
		prompt += "\n" + recent
	}

	slog.Debug("steward prompt", "length", len(prompt))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	resp, err := client.Complete(ctx, systemPrompt, prompt, 512)
	if err != nil {
		return nil, fmt.Errorf("advisory call: %w", err)
	}

	// Strip markdown fences if the model wraps them anyway.
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var decision Decision
	if err := json.Unmarshal([]byte(resp), &decision); err != nil {
		return nil, fmt.Errorf("parse decision (raw: %s): %w", resp, err)
	}

	if err := enforceGuardrails(&decision, snap, health); err != nil {
		return nil, fmt.Errorf("guardrail violation: %w", err)
	}

	return &decision, nil
}

// enforceGuardrails validates the decision against hard limits the
// model is not trusted to respect.
func enforceGuardrails(d *Decision, snap *CitySnapshot, health *CityHealth) error {
	switch d.Action {
	case "none", "cycleTax":
		return nil

	case "takeLoan":
		if snap.Stats.Money > 500 {
			return fmt.Errorf("takeLoan refused: treasury at %.0f is not in trouble", snap.Stats.Money)
		}
		return nil

	case "repayLoan":
		if snap.Stats.LoanPrincipal <= 0 {
			return fmt.Errorf("repayLoan refused: no outstanding debt")
		}
		if snap.Stats.Money < snap.Stats.LoanPrincipal*1.5 {
			return fmt.Errorf("repayLoan refused: treasury %.0f cannot comfortably cover debt %.0f",
				snap.Stats.Money, snap.Stats.LoanPrincipal)
		}
		return nil

	case "triggerDisaster":
		if health.CrisisLevel != "HEALTHY" {
			return fmt.Errorf("triggerDisaster refused: city is %s", health.CrisisLevel)
		}
		if health.DisasterActive {
			return fmt.Errorf("triggerDisaster refused: a disaster is already in progress")
		}
		if d.Disaster == "" {
			return fmt.Errorf("triggerDisaster requires a disaster type")
		}
		return nil

	default:
		return fmt.Errorf("unknown action %q", d.Action)
	}
}

// formatSnapshot builds a concise prompt from the city snapshot.
func formatSnapshot(snap *CitySnapshot, health *CityHealth) string {
	var b strings.Builder

	s := snap.Stats
	fmt.Fprintf(&b, "## City State (day %d)\n", s.Day)
	fmt.Fprintf(&b, "Treasury: %.0f | Loan: %.0f | Tax rate: %.0f%%\n", s.Money, s.LoanPrincipal, s.TaxRate*100)
	fmt.Fprintf(&b, "Population: %d / %d housing | Unemployment: %.0f%%\n",
		s.Population, s.HousingCapacity, s.Jobs.Unemployment*100)
	fmt.Fprintf(&b, "Happiness: %.0f | Education: %.0f | Safety: %.0f\n", s.Happiness, s.Education, s.Safety)
	fmt.Fprintf(&b, "Weather: %s | AI mayor: %v\n", snap.Status.Weather, snap.Status.AIEnabled)
	if snap.Status.Disaster != nil {
		fmt.Fprintf(&b, "Active disaster: %s (%s)\n", snap.Status.Disaster.Type, snap.Status.Disaster.Stage)
	}
	if s.EconomicEvent != "none" && s.EconomicEvent != "" {
		fmt.Fprintf(&b, "Economic condition: %s (%d days left)\n", s.EconomicEvent, s.EventDaysLeft)
	}

	fmt.Fprintf(&b, "\n## Health Assessment\n")
	fmt.Fprintf(&b, "Crisis level: %s | Debt pressure: %.1f | Quiet days: %d\n",
		health.CrisisLevel, health.DebtPressure, health.QuietDays)

	if len(snap.News) > 0 {
		fmt.Fprintf(&b, "\n## Recent Feed\n")
		for _, item := range snap.News {
			fmt.Fprintf(&b, "- day %d: %s\n", item.Day, item.Text)
		}
	}

	return b.String()
}
