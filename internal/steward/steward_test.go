package steward

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/talgya/mayorsim/internal/econ"
	"github.com/talgya/mayorsim/internal/news"
)

func healthySnapshot() *CitySnapshot {
	stats := econ.NewCityStats(2000, 0.15, 0.08, 100)
	stats.Day = 20
	return &CitySnapshot{
		Status: CityStatus{Day: 20, Weather: "clear"},
		Stats:  stats,
		News:   []news.Item{{ID: "n", Day: 19, Text: "x", Type: news.Neutral}},
	}
}

func TestTriageCrisisLevels(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CitySnapshot)
		want   string
	}{
		{"healthy city", func(s *CitySnapshot) {}, "HEALTHY"},
		{"deep in debt and broke", func(s *CitySnapshot) {
			s.Stats.Money = -100
			s.Stats.LoanPrincipal = 5000
		}, "CRITICAL"},
		{"broke without heavy debt", func(s *CitySnapshot) {
			s.Stats.Money = -50
		}, "WARNING"},
		{"miserable residents", func(s *CitySnapshot) {
			s.Stats.Happiness = 20
		}, "WARNING"},
		{"mass unemployment", func(s *CitySnapshot) {
			s.Stats.Jobs.Unemployment = 0.5
		}, "WARNING"},
		{"heavy debt pressure", func(s *CitySnapshot) {
			s.Stats.Money = 100
			s.Stats.LoanPrincipal = 1000
		}, "WATCH"},
		{"sliding happiness", func(s *CitySnapshot) {
			s.Stats.Happiness = 35
		}, "WATCH"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap := healthySnapshot()
			tc.mutate(snap)
			if got := Triage(snap); got.CrisisLevel != tc.want {
				t.Errorf("crisis = %s, want %s", got.CrisisLevel, tc.want)
			}
		})
	}
}

func TestTriageQuietDays(t *testing.T) {
	snap := healthySnapshot()
	snap.Status.Day = 30
	snap.News = []news.Item{{ID: "n", Day: 22, Text: "x", Type: news.Neutral}}
	if got := Triage(snap).QuietDays; got != 8 {
		t.Errorf("quiet days = %d, want 8", got)
	}

	snap.News = nil
	if got := Triage(snap).QuietDays; got != 30 {
		t.Errorf("empty feed quiet days = %d, want 30", got)
	}
}

func TestGuardrails(t *testing.T) {
	tests := []struct {
		name     string
		decision Decision
		mutate   func(*CitySnapshot)
		ok       bool
	}{
		{"none always passes", Decision{Action: "none"}, func(s *CitySnapshot) {}, true},
		{"cycleTax always passes", Decision{Action: "cycleTax"}, func(s *CitySnapshot) {}, true},
		{"unknown action", Decision{Action: "sellCityHall"}, func(s *CitySnapshot) {}, false},
		{
			"loan refused when flush",
			Decision{Action: "takeLoan"},
			func(s *CitySnapshot) { s.Stats.Money = 2000 },
			false,
		},
		{
			"loan allowed when broke",
			Decision{Action: "takeLoan"},
			func(s *CitySnapshot) { s.Stats.Money = -200 },
			true,
		},
		{
			"repay refused without debt",
			Decision{Action: "repayLoan"},
			func(s *CitySnapshot) {},
			false,
		},
		{
			"repay refused when tight",
			Decision{Action: "repayLoan"},
			func(s *CitySnapshot) {
				s.Stats.LoanPrincipal = 1000
				s.Stats.Money = 1200
			},
			false,
		},
		{
			"repay allowed when comfortable",
			Decision{Action: "repayLoan"},
			func(s *CitySnapshot) {
				s.Stats.LoanPrincipal = 1000
				s.Stats.Money = 2000
			},
			true,
		},
		{
			"drill refused without type",
			Decision{Action: "triggerDisaster"},
			func(s *CitySnapshot) {},
			false,
		},
		{
			"drill refused mid-crisis",
			Decision{Action: "triggerDisaster", Disaster: "fire"},
			func(s *CitySnapshot) { s.Stats.Money = -100 },
			false,
		},
		{
			"drill allowed when healthy",
			Decision{Action: "triggerDisaster", Disaster: "fire"},
			func(s *CitySnapshot) {},
			true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap := healthySnapshot()
			tc.mutate(snap)
			health := Triage(snap)
			d := tc.decision
			err := enforceGuardrails(&d, snap, health)
			if (err == nil) != tc.ok {
				t.Errorf("got %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestGuardrailDisasterConflict(t *testing.T) {
	snap := healthySnapshot()
	snap.Status.Disaster = &struct {
		Type  string `json:"type"`
		Stage string `json:"stage"`
	}{Type: "flood", Stage: "ACTIVE"}

	d := Decision{Action: "triggerDisaster", Disaster: "fire"}
	if err := enforceGuardrails(&d, snap, Triage(snap)); err == nil {
		t.Error("drill allowed during an active disaster")
	}
}

func TestCycleMemoryRing(t *testing.T) {
	mem := &CycleMemory{}
	for day := 1; day <= maxRecords+5; day++ {
		mem.Record(CycleRecord{Day: day, Action: "none", CrisisLevel: "HEALTHY"})
	}
	if len(mem.Records) != maxRecords {
		t.Fatalf("ring holds %d records, want %d", len(mem.Records), maxRecords)
	}
	if mem.Records[0].Day != 6 {
		t.Errorf("oldest record day = %d, want 6", mem.Records[0].Day)
	}

	prompt := mem.FormatForPrompt()
	if strings.Count(prompt, "- Day") != promptRecords {
		t.Errorf("prompt lists %d cycles, want %d:\n%s", strings.Count(prompt, "- Day"), promptRecords, prompt)
	}
}

func TestFormatForPromptEmpty(t *testing.T) {
	mem := &CycleMemory{}
	if got := mem.FormatForPrompt(); got != "" {
		t.Errorf("empty memory produced %q", got)
	}
}

func TestObserve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/v1/status":
			json.NewEncoder(w).Encode(CityStatus{Name: "Gridside", Day: 4, Weather: "rain"})
		case r.URL.Path == "/api/v1/stats":
			json.NewEncoder(w).Encode(map[string]any{"money": 1750.0, "day": 4})
		case r.URL.Path == "/api/v1/news":
			json.NewEncoder(w).Encode([]news.Item{{ID: "n1", Day: 3, Text: "x", Type: news.Neutral}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	snap, err := NewObserver(srv.URL).Observe()
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if snap.Status.Name != "Gridside" || snap.Status.Day != 4 {
		t.Errorf("status = %+v", snap.Status)
	}
	if snap.Stats.Money != 1750 {
		t.Errorf("stats money = %.0f, want 1750", snap.Stats.Money)
	}
	if len(snap.News) != 1 || snap.News[0].ID != "n1" {
		t.Errorf("news = %+v", snap.News)
	}
}

func TestActSendsCommand(t *testing.T) {
	var gotAuth string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(CommandResult{Success: true})
	}))
	defer srv.Close()

	actor := NewActor(srv.URL, "secret")
	result, err := actor.Act(&Decision{Action: "triggerDisaster", Disaster: "fire"})
	if err != nil {
		t.Fatalf("Act: %v", err)
	}
	if !result.Success {
		t.Error("result not successful")
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotBody["command"] != "triggerDisaster" || gotBody["disaster"] != "fire" {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestActSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "a disaster is already in progress"}`, http.StatusConflict)
	}))
	defer srv.Close()

	if _, err := NewActor(srv.URL, "k").Act(&Decision{Action: "cycleTax"}); err == nil {
		t.Fatal("conflict response not surfaced as error")
	}
}
