// Command citysim runs the Gridside city simulation server.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/talgya/mayorsim/internal/api"
	"github.com/talgya/mayorsim/internal/config"
	"github.com/talgya/mayorsim/internal/engine"
	"github.com/talgya/mayorsim/internal/entropy"
	"github.com/talgya/mayorsim/internal/llm"
	"github.com/talgya/mayorsim/internal/persistence"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Gridside — City Simulation Server")

	dbPath := envOrDefault("CITYSIM_DB", "data/gridside.db")
	configPath := envOrDefault("CITYSIM_CONFIG", "config/tuning.yaml")
	apiPort := envIntOrDefault("CITYSIM_PORT", 8080)

	// ── Tuning ────────────────────────────────────────────────────────
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load tuning config", "path", configPath, "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll("data", 0755)
	db, err := persistence.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", dbPath)

	// ── Entropy ───────────────────────────────────────────────────────
	// Session seeds come from the randomness service when configured;
	// everything downstream is deterministic from the seed.
	entropyClient := entropy.NewClient(os.Getenv("RANDOM_ORG_KEY"))
	seedFn := entropyClient.SessionSeed

	// ── Advisory Client ───────────────────────────────────────────────
	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	llmClient := llm.NewClient(anthropicKey)
	if llmClient.Enabled() {
		slog.Info("advisory client enabled")
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set — advisory features disabled (heuristics and fallbacks apply)")
	}
	broker := engine.NewAdvisoryBroker(llmClient)

	// ── Load or Create Session ────────────────────────────────────────
	var sim *engine.Simulation
	var startTick uint64

	saved, err := db.LoadSession()
	switch {
	case err == nil:
		sim = engine.NewSimulation(cfg, saved.Seed, seedFn, broker)
		sim.RestoreState(saved)
		startTick = saved.Tick
		slog.Info("session restored", "day", saved.Stats.Day, "tick", startTick, "seed", saved.Seed)
	case err == persistence.ErrNoSession:
		seed := seedFn()
		sim = engine.NewSimulation(cfg, seed, seedFn, broker)
		slog.Info("new city founded", "seed", seed)
	default:
		slog.Error("failed to load session", "error", err)
		os.Exit(1)
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.SetTick(startTick)

	eng.OnTick = func(tick uint64) {
		sim.TickDay(tick)
		// Auto-save every 10 days.
		if tick%10 == 0 {
			if err := db.SaveSession(sim.ExportState(tick)); err != nil {
				slog.Error("auto-save failed", "error", err)
			}
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("CITYSIM_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("CITYSIM_ADMIN_KEY not set — control POST endpoints will be disabled")
	}
	relayKey := os.Getenv("CITYSIM_RELAY_KEY")

	apiServer := &api.Server{
		Sim:      sim,
		Eng:      eng,
		LLM:      llmClient,
		DB:       db,
		Cfg:      cfg,
		Port:     apiPort,
		AdminKey: adminKey,
		RelayKey: relayKey,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Printf("\nGridside is open: %dx%d grid, day %d.\n", cfg.GridWidth, cfg.GridHeight, sim.Snapshot().Stats.Day)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", apiPort)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run()

	// Final save on shutdown.
	slog.Info("final save...")
	if err := db.SaveSession(sim.ExportState(eng.Tick())); err != nil {
		slog.Error("final save failed", "error", err)
	}

	fmt.Println("Simulation stopped. Session saved.")
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
