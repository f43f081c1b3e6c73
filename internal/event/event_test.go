package event

import (
	"errors"
	"testing"

	"github.com/talgya/mayorsim/internal/econ"
	"github.com/talgya/mayorsim/internal/entropy"
	"github.com/talgya/mayorsim/internal/news"
)

func TestRaiseScriptedFillsSlot(t *testing.T) {
	e := NewEngine(1, 5)
	rng := entropy.NewSeeded(1)

	ev := e.RaiseScripted(1, rng)
	if ev == nil {
		t.Fatal("RaiseScripted returned nil on an empty slot")
	}
	if ev.ID == "" {
		t.Error("raised event has no id")
	}
	if ev.Choices[0].Label == "" || ev.Choices[1].Label == "" {
		t.Error("raised event missing choices")
	}
	if e.Pending() != ev {
		t.Error("Pending does not return the raised event")
	}

	// The slot is exclusive.
	if again := e.RaiseScripted(1, rng); again != nil {
		t.Error("raised a second event while one was pending")
	}
}

func TestMaybeRaiseRespectsChance(t *testing.T) {
	e := NewEngine(0, 5)
	if ev := e.MaybeRaise(1, entropy.NewSeeded(1)); ev != nil {
		t.Error("zero chance raised an event")
	}

	e = NewEngine(1, 5)
	if ev := e.MaybeRaise(1, entropy.NewSeeded(1)); ev == nil {
		t.Error("certain chance raised nothing")
	}
}

func TestCooldownFiltersTemplates(t *testing.T) {
	e := NewEngine(1, 1000)
	rng := entropy.NewSeeded(1)

	seen := make(map[string]bool)
	for day := 1; ; day++ {
		ev := e.RaiseScripted(day, rng)
		if ev == nil {
			break
		}
		if seen[ev.Title] {
			t.Fatalf("template %q raised twice inside its cooldown", ev.Title)
		}
		seen[ev.Title] = true
		if _, _, err := e.Resolve(0); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}
	if len(seen) == 0 {
		t.Fatal("no events raised at all")
	}
}

func TestResolve(t *testing.T) {
	e := NewEngine(1, 5)
	e.Restore(&GameEvent{
		ID:    "t1",
		Title: "Test Event",
		Kind:  Weird,
		Choices: [2]Choice{
			{Label: "Pay up", EffectText: "Money leaves.", Effect: econ.Effect{Money: -100, Happiness: -1}},
			{Label: "Refuse", EffectText: "Nothing happens.", Effect: econ.Effect{}},
		},
	})

	effect, draft, err := e.Resolve(0)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if effect.Money != -100 {
		t.Errorf("effect money = %.0f, want -100", effect.Money)
	}
	if draft.Type != news.Negative {
		t.Errorf("draft tone = %s, want negative", draft.Type)
	}
	if e.Pending() != nil {
		t.Error("slot not cleared after Resolve")
	}

	if _, _, err := e.Resolve(0); !errors.Is(err, ErrNoPendingEvent) {
		t.Errorf("second resolve: got %v, want ErrNoPendingEvent", err)
	}
}

func TestResolveBadChoice(t *testing.T) {
	e := NewEngine(1, 5)
	e.RaiseScripted(1, entropy.NewSeeded(1))

	for _, choice := range []int{-1, 2, 7} {
		if _, _, err := e.Resolve(choice); !errors.Is(err, ErrBadChoice) {
			t.Errorf("Resolve(%d): got %v, want ErrBadChoice", choice, err)
		}
	}
	if e.Pending() == nil {
		t.Error("bad choice cleared the slot")
	}
}

func TestAcceptExternal(t *testing.T) {
	valid := func() *GameEvent {
		return &GameEvent{
			Title: "Visiting Dignitary",
			Kind:  Opportunity,
			Choices: [2]Choice{
				{Label: "Host a banquet"},
				{Label: "Send regrets"},
			},
		}
	}

	e := NewEngine(1, 5)
	if err := e.AcceptExternal(valid()); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}
	if e.Pending().ID == "" {
		t.Error("accepted event got no id")
	}

	if err := e.AcceptExternal(valid()); !errors.Is(err, ErrEventPending) {
		t.Errorf("second accept: got %v, want ErrEventPending", err)
	}

	e.Clear()
	malformed := []*GameEvent{
		nil,
		{Kind: Weird, Choices: [2]Choice{{Label: "a"}, {Label: "b"}}},                 // no title
		{Title: "x", Kind: Weird, Choices: [2]Choice{{Label: ""}, {Label: "b"}}},     // missing choice
	}
	for i, ev := range malformed {
		if err := e.AcceptExternal(ev); err == nil {
			t.Errorf("malformed event %d accepted", i)
		}
	}

	// Unknown kinds are coerced rather than rejected.
	odd := valid()
	odd.Kind = Kind("mysterious")
	if err := e.AcceptExternal(odd); err != nil {
		t.Fatalf("odd kind rejected: %v", err)
	}
	if e.Pending().Kind != Weird {
		t.Errorf("odd kind coerced to %s, want weird", e.Pending().Kind)
	}
}
