// Command steward runs the autonomous caretaker for a citysim instance.
// It observes city state, decides on at most one intervention per cycle
// via the advisory model, and acts through the command API.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/talgya/mayorsim/internal/llm"
	"github.com/talgya/mayorsim/internal/steward"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment.
	apiURL := envOrDefault("CITYSIM_API_URL", "http://localhost:8080")
	adminKey := os.Getenv("CITYSIM_ADMIN_KEY")
	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	intervalMin := envIntOrDefault("STEWARD_INTERVAL", 60)

	if adminKey == "" {
		slog.Error("CITYSIM_ADMIN_KEY is required")
		os.Exit(1)
	}
	if anthropicKey == "" {
		slog.Error("ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}

	interval := time.Duration(intervalMin) * time.Minute

	slog.Info("Gridside Steward starting",
		"api_url", apiURL,
		"interval", interval,
	)

	observer := steward.NewObserver(apiURL)
	actor := steward.NewActor(apiURL, adminKey)
	llmClient := llm.NewClient(anthropicKey)
	memory := steward.LoadMemory()

	// Wait for the citysim API to be ready before first cycle.
	// systemd After= only ensures process start, not HTTP readiness.
	slog.Info("waiting for citysim API...")
	waitForAPI(apiURL)

	// Run first cycle immediately.
	runCycle(observer, actor, llmClient, memory)

	// Timer loop.
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			runCycle(observer, actor, llmClient, memory)
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			fmt.Println("Steward stopped.")
			return
		}
	}
}

// runCycle executes one observe -> decide -> act cycle.
func runCycle(observer *steward.Observer, actor *steward.Actor, llmClient *llm.Client, memory *steward.CycleMemory) {
	slog.Info("steward cycle starting")

	// Observe.
	snap, err := observer.Observe()
	if err != nil {
		slog.Error("observation failed", "error", err)
		return
	}
	health := steward.Triage(snap)
	slog.Info("observation complete",
		"day", snap.Stats.Day,
		"money", fmt.Sprintf("%.0f", snap.Stats.Money),
		"population", snap.Stats.Population,
		"crisis", health.CrisisLevel,
	)

	// Decide.
	decision, err := steward.Decide(llmClient, snap, health, memory)
	if err != nil {
		slog.Error("decision failed", "error", err)
		return
	}
	slog.Info("decision made",
		"action", decision.Action,
		"rationale", decision.Rationale,
	)

	memory.Record(steward.CycleRecord{
		Day:         snap.Stats.Day,
		Action:      decision.Action,
		Money:       snap.Stats.Money,
		Happiness:   snap.Stats.Happiness,
		CrisisLevel: health.CrisisLevel,
		Rationale:   decision.Rationale,
	})
	memory.Save()

	// Act.
	if decision.Action == "none" {
		slog.Info("steward cycle complete: no intervention")
		return
	}

	result, err := actor.Act(decision)
	if err != nil {
		slog.Error("intervention failed", "error", err)
		return
	}

	slog.Info("intervention executed",
		"command", decision.Action,
		"success", result.Success,
	)
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

// waitForAPI polls the citysim status endpoint with exponential backoff
// until it responds. Exits after 5 minutes if the API never becomes ready.
func waitForAPI(apiURL string) {
	backoff := 2 * time.Second
	maxBackoff := 30 * time.Second
	deadline := time.Now().Add(5 * time.Minute)

	for {
		resp, err := http.Get(apiURL + "/api/v1/status")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == 200 {
				slog.Info("citysim API is ready")
				return
			}
		}
		if time.Now().After(deadline) {
			slog.Error("citysim API did not become ready within 5 minutes")
			os.Exit(1)
		}
		slog.Info("citysim not ready, retrying...", "backoff", backoff)
		time.Sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
