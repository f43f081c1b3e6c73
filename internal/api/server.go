// Package api provides the HTTP API for the city renderer.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/talgya/mayorsim/internal/catalog"
	"github.com/talgya/mayorsim/internal/config"
	"github.com/talgya/mayorsim/internal/engine"
	"github.com/talgya/mayorsim/internal/event"
	"github.com/talgya/mayorsim/internal/grid"
	"github.com/talgya/mayorsim/internal/llm"
	"github.com/talgya/mayorsim/internal/mayor"
	"github.com/talgya/mayorsim/internal/news"
	"github.com/talgya/mayorsim/internal/persistence"
	"github.com/talgya/mayorsim/internal/weather"
)

const maxSSEConns = 4

// Server serves the city state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	LLM      *llm.Client
	DB       *persistence.DB
	Cfg      config.Tuning
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
	RelayKey string // Bearer token for SSE stream endpoint. Empty = streaming disabled.

	// Active SSE connection count (atomic).
	sseConns int32

	// Cached gazette (regenerated at most once per sim-day).
	gazetteMu      sync.Mutex
	cachedGazette  *llm.Gazette
	lastGazetteDay int
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	gazetteLimiter := NewRateLimiter(s.Cfg.GazettePerHour, time.Hour)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/catalog", s.handleCatalog)
	mux.HandleFunc("/api/v1/grid", s.handleGrid)
	mux.HandleFunc("/api/v1/stats", s.handleStats)
	mux.HandleFunc("/api/v1/news", s.handleNews)
	mux.HandleFunc("/api/v1/goal", s.handleGoal)
	mux.HandleFunc("/api/v1/event", s.handleEvent)
	mux.HandleFunc("/api/v1/weather", s.handleWeather)
	mux.HandleFunc("/api/v1/disaster", s.handleDisaster)
	mux.HandleFunc("/api/v1/gazette", RateLimitMiddleware(gazetteLimiter, s.handleGazette))

	// SSE streaming endpoint (GET, requires the relay bearer token).
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Control endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/place", s.adminOnly(s.handlePlace))
	mux.HandleFunc("/api/v1/demolish", s.adminOnly(s.handleDemolish))
	mux.HandleFunc("/api/v1/command", s.adminOnly(s.handleCommand))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "relay_auth", s.RelayKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "control endpoints disabled (no CITYSIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}

			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	seed := s.Sim.Seed()

	var status map[string]any
	s.Sim.WithLock(func(sim *engine.Simulation) {
		status = map[string]any{
			"name":       "Gridside",
			"tick":       s.Eng.Tick(),
			"day":        sim.Stats.Day,
			"speed":      s.Eng.Speed(),
			"running":    s.Eng.IsRunning(),
			"seed":       seed,
			"ai_enabled": sim.AIEnabled,
			"population": sim.Stats.Population,
			"money":      sim.Stats.Money,
			"happiness":  sim.Stats.Happiness,
			"weather":    weather.Describe(sim.Weather.Current),
			"advisory":   s.LLM.Enabled(),
		}
		if a := sim.Disasters.Current; a != nil {
			status["disaster"] = map[string]any{"type": a.Type, "stage": a.Stage}
		}
	})
	writeJSON(w, status)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Type           string  `json:"type"`
		Name           string  `json:"name"`
		Cost           float64 `json:"cost"`
		Housing        int     `json:"housing"`
		Income         float64 `json:"income"`
		Jobs           int     `json:"jobs"`
		HappinessBonus float64 `json:"happiness_bonus"`
		EducationBonus float64 `json:"education_bonus"`
		SafetyBonus    float64 `json:"safety_bonus"`
		MaxCount       int     `json:"max_count,omitempty"`
		Demolishable   bool    `json:"demolishable"`
	}

	var result []entry
	for _, bt := range catalog.All() {
		cfg := catalog.Get(bt)
		result = append(result, entry{
			Type:           catalog.String(bt),
			Name:           cfg.Name,
			Cost:           cfg.Cost,
			Housing:        cfg.Population,
			Income:         cfg.Income,
			Jobs:           cfg.Jobs,
			HappinessBonus: cfg.HappinessBonus,
			EducationBonus: cfg.EducationBonus,
			SafetyBonus:    cfg.SafetyBonus,
			MaxCount:       cfg.MaxCount,
			Demolishable:   cfg.Demolishable,
		})
	}
	writeJSON(w, result)
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	type tileEntry struct {
		X         int     `json:"x"`
		Y         int     `json:"y"`
		Building  string  `json:"building,omitempty"`
		LandValue float64 `json:"land_value"`
		RoadLink  bool    `json:"road_link,omitempty"`
	}

	var width, height int
	var tiles []tileEntry
	s.Sim.WithLock(func(sim *engine.Simulation) {
		width, height = sim.Grid.Width, sim.Grid.Height
		tiles = make([]tileEntry, 0, width*height)
		sim.Grid.Tiles(func(t *grid.Tile) {
			entry := tileEntry{X: t.X, Y: t.Y, LandValue: t.LandValue}
			if t.Building != catalog.None {
				entry.Building = catalog.String(t.Building)
				entry.RoadLink = sim.Grid.HasRoadAccess(t.X, t.Y)
			}
			tiles = append(tiles, entry)
		})
	})

	writeJSON(w, map[string]any{
		"width":  width,
		"height": height,
		"tiles":  tiles,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	writeJSON(w, snap.Stats)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	var items []news.Item
	s.Sim.WithLock(func(sim *engine.Simulation) {
		items = sim.News.Recent(limit)
	})
	if items == nil {
		items = []news.Item{}
	}
	writeJSON(w, items)
}

func (s *Server) handleGoal(w http.ResponseWriter, r *http.Request) {
	var goal *mayor.Goal
	var lastAction *mayor.Action
	s.Sim.WithLock(func(sim *engine.Simulation) {
		if g := sim.Planner.Current; g != nil {
			copied := *g
			goal = &copied
		}
		if a := sim.Planner.LastAction; a != nil {
			copied := *a
			lastAction = &copied
		}
	})
	writeJSON(w, map[string]any{
		"goal":        goal,
		"last_action": lastAction,
	})
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var pending *event.GameEvent
	s.Sim.WithLock(func(sim *engine.Simulation) {
		if ev := sim.Events.Pending(); ev != nil {
			copied := *ev
			pending = &copied
		}
	})
	writeJSON(w, map[string]any{"event": pending})
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	var result map[string]any
	s.Sim.WithLock(func(sim *engine.Simulation) {
		mod := sim.Weather.Modifier()
		result = map[string]any{
			"condition":       string(sim.Weather.Current),
			"description":     weather.Describe(sim.Weather.Current),
			"days_left":       sim.Weather.DaysLeft,
			"income_factor":   mod.IncomeFactor,
			"happiness_delta": mod.HappinessDelta,
		}
	})
	writeJSON(w, result)
}

func (s *Server) handleDisaster(w http.ResponseWriter, r *http.Request) {
	snap := s.Sim.Snapshot()
	writeJSON(w, map[string]any{"disaster": snap.Disaster})
}

func (s *Server) handleGazette(w http.ResponseWriter, r *http.Request) {
	s.gazetteMu.Lock()
	defer s.gazetteMu.Unlock()

	data := &llm.GazetteData{}
	s.Sim.WithLock(func(sim *engine.Simulation) {
		data.Day = sim.Stats.Day
		data.Population = sim.Stats.Population
		data.Money = sim.Stats.Money
		data.Happiness = sim.Stats.Happiness
		data.TaxRate = sim.Stats.TaxRate
		data.Weather = weather.Describe(sim.Weather.Current)
		if a := sim.Disasters.Current; a != nil {
			data.Disaster = fmt.Sprintf("%s, %s stage", a.Type, a.Stage)
		}
		if g := sim.Planner.Current; g != nil {
			data.Goal = g.Description
		}
		for _, item := range sim.News.Recent(15) {
			data.Headlines = append(data.Headlines, item.Text)
		}
	})

	// Return cached issue if still from today.
	if s.cachedGazette != nil && s.lastGazetteDay == data.Day {
		writeJSON(w, s.cachedGazette)
		return
	}

	issue := llm.GenerateGazette(r.Context(), s.LLM, data)
	s.cachedGazette = issue
	s.lastGazetteDay = data.Day
	writeJSON(w, issue)
}

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		X        int    `json:"x"`
		Y        int    `json:"y"`
		Building string `json:"building"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	bt, ok := catalog.FromString(req.Building)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown building type %q", req.Building), http.StatusBadRequest)
		return
	}

	if err := s.Sim.Place(req.X, req.Y, bt); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

func (s *Server) handleDemolish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := s.Sim.Demolish(req.X, req.Y); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

// handleCommand dispatches the renderer's one-shot commands.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Command  string `json:"command"`
		Choice   *int   `json:"choice,omitempty"`
		Disaster string `json:"disaster,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	var err error
	details := map[string]any{"success": true}

	switch req.Command {
	case "cycleTax":
		details["tax_rate"] = s.Sim.CycleTax()
	case "takeLoan":
		err = s.Sim.TakeLoan()
	case "repayLoan":
		err = s.Sim.RepayLoan()
	case "buyShares":
		err = s.Sim.BuyShares()
	case "sellShares":
		err = s.Sim.SellShares()
	case "resolveEvent":
		if req.Choice == nil {
			http.Error(w, "choice required for resolveEvent", http.StatusBadRequest)
			return
		}
		err = s.Sim.ResolveEvent(*req.Choice)
	case "claimGoal":
		err = s.Sim.ClaimGoal()
	case "toggleAi":
		details["ai_enabled"] = s.Sim.ToggleAI()
	case "triggerDisaster":
		if req.Disaster == "" {
			http.Error(w, "disaster required for triggerDisaster", http.StatusBadRequest)
			return
		}
		err = s.Sim.TriggerDisaster(req.Disaster)
	case "resetCity":
		s.Sim.ResetCity()
	default:
		http.Error(w, "unknown command (use: cycleTax, takeLoan, repayLoan, buyShares, sellShares, resolveEvent, claimGoal, toggleAi, triggerDisaster, resetCity)", http.StatusBadRequest)
		return
	}

	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, details)
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 100 {
			http.Error(w, "speed must be 0-100", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	if err := s.DB.SaveSession(s.Sim.ExportState(s.Eng.Tick())); err != nil {
		slog.Error("snapshot save failed", "error", err)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]any{
		"tick":    s.Eng.Tick(),
		"message": "snapshot saved",
	})
}

// writeCommandError maps simulation errors to HTTP status codes.
func writeCommandError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, engine.ErrDisasterConflict), errors.Is(err, event.ErrEventPending):
		status = http.StatusConflict
	case errors.Is(err, grid.ErrCapacityExceeded):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

// handleStream provides an SSE endpoint streaming the live news feed.
// Requires bearer token auth and limits concurrent connections.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	// Auth uses the separate relay key, not the admin key.
	if s.RelayKey == "" {
		http.Error(w, "streaming disabled (no relay key)", http.StatusForbidden)
		return
	}
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.RelayKey {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	// Connection limit.
	current := atomic.AddInt32(&s.sseConns, 1)
	if current > maxSSEConns {
		atomic.AddInt32(&s.sseConns, -1)
		http.Error(w, "too many SSE connections", http.StatusServiceUnavailable)
		return
	}
	defer atomic.AddInt32(&s.sseConns, -1)

	// SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	var subID int
	var ch <-chan news.Item
	var catchUp []news.Item
	s.Sim.WithLock(func(sim *engine.Simulation) {
		subID, ch = sim.News.Subscribe()
		catchUp = sim.News.Recent(50)
	})
	defer s.Sim.WithLock(func(sim *engine.Simulation) {
		sim.News.Unsubscribe(subID)
	})

	for _, item := range catchUp {
		writeSSEItem(w, item)
	}
	flusher.Flush()

	slog.Info("SSE client connected", "sub_id", subID)

	// Stream loop with heartbeat.
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case item, ok := <-ch:
			if !ok {
				return
			}
			writeSSEItem(w, item)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			slog.Info("SSE client disconnected", "sub_id", subID)
			return
		}
	}
}

// writeSSEItem writes a single feed item in SSE format.
func writeSSEItem(w http.ResponseWriter, item news.Item) {
	data, err := json.Marshal(item)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", item.Type, data)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
