package event

import "github.com/talgya/mayorsim/internal/econ"

// scriptedPool is the fixed event library used when no advisory event
// is available. IDs are assigned at raise time.
var scriptedPool = []GameEvent{
	{
		Title:       "Traveling Circus",
		Description: "A traveling circus asks to set up on the edge of town for a week.",
		Kind:        Opportunity,
		Choices: [2]Choice{
			{
				Label:      "Welcome them",
				EffectText: "Ticket revenue flows in and spirits lift.",
				Effect:     econ.Effect{Money: 150, Happiness: 6},
			},
			{
				Label:      "Turn them away",
				EffectText: "The streets stay quiet, and a little dull.",
				Effect:     econ.Effect{Happiness: -2},
			},
		},
	},
	{
		Title:       "Mystery Benefactor",
		Description: "An anonymous donor offers a large sum, no questions asked.",
		Kind:        Weird,
		Choices: [2]Choice{
			{
				Label:      "Accept the gift",
				EffectText: "The treasury swells, though rumors swirl.",
				Effect:     econ.Effect{Money: 400, Safety: -3},
			},
			{
				Label:      "Decline politely",
				EffectText: "The city's reputation for probity grows.",
				Effect:     econ.Effect{Safety: 2, Happiness: 1},
			},
		},
	},
	{
		Title:       "Water Main Break",
		Description: "A major water main has burst under the commercial district.",
		Kind:        Disaster,
		Choices: [2]Choice{
			{
				Label:      "Emergency repairs",
				EffectText: "Crews work overnight; the bill is steep.",
				Effect:     econ.Effect{Money: -200, Happiness: 2},
			},
			{
				Label:      "Patch it cheaply",
				EffectText: "The leak slows, but trust in city hall erodes.",
				Effect:     econ.Effect{Money: -50, Happiness: -4},
			},
		},
	},
	{
		Title:       "Tech Startup Pitch",
		Description: "A startup wants tax incentives to open an office downtown.",
		Kind:        Opportunity,
		Choices: [2]Choice{
			{
				Label:      "Grant the incentives",
				EffectText: "New jobs arrive, at a cost to the treasury.",
				Effect:     econ.Effect{Money: -100, Population: 8, Education: 2},
			},
			{
				Label:      "Refuse",
				EffectText: "The startup takes its office elsewhere.",
				Effect:     econ.Effect{},
			},
		},
	},
	{
		Title:       "Strange Lights",
		Description: "Residents report strange lights hovering over the industrial zone.",
		Kind:        Weird,
		Choices: [2]Choice{
			{
				Label:      "Investigate publicly",
				EffectText: "It was a weather balloon. Probably. Tourists arrive anyway.",
				Effect:     econ.Effect{Money: 80, Happiness: 3},
			},
			{
				Label:      "Ignore the reports",
				EffectText: "Conspiracy pamphlets multiply.",
				Effect:     econ.Effect{Happiness: -3, Safety: -2},
			},
		},
	},
	{
		Title:       "Teachers' Petition",
		Description: "Teachers petition for new classroom materials across the district.",
		Kind:        Opportunity,
		Choices: [2]Choice{
			{
				Label:      "Fund the materials",
				EffectText: "Classrooms brighten and test scores follow.",
				Effect:     econ.Effect{Money: -120, Education: 5, Happiness: 2},
			},
			{
				Label:      "Defer to next year",
				EffectText: "The petition returns, with more signatures.",
				Effect:     econ.Effect{Education: -2, Happiness: -2},
			},
		},
	},
	{
		Title:       "Rat Infestation",
		Description: "An unusual number of rats has been spotted near the market square.",
		Kind:        Disaster,
		Choices: [2]Choice{
			{
				Label:      "Hire exterminators",
				EffectText: "The rats retreat; the invoices do not.",
				Effect:     econ.Effect{Money: -90, Happiness: 1},
			},
			{
				Label:      "Adopt a hundred cats",
				EffectText: "The cats work for free, and the city adores them.",
				Effect:     econ.Effect{Money: -20, Happiness: 4, Safety: -1},
			},
		},
	},
}
