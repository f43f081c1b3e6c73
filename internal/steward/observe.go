// Package steward implements the autonomous city caretaker daemon.
// It observes city state via the public API, decides on at most one
// guarded intervention per cycle via the advisory model, and acts
// through the authenticated command endpoint.
package steward

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talgya/mayorsim/internal/econ"
	"github.com/talgya/mayorsim/internal/news"
)

// CitySnapshot holds all data collected during an observation cycle.
type CitySnapshot struct {
	Status CityStatus     `json:"status"`
	Stats  econ.CityStats `json:"stats"`
	News   []news.Item    `json:"news"`
}

// CityStatus mirrors GET /api/v1/status.
type CityStatus struct {
	Name       string  `json:"name"`
	Tick       uint64  `json:"tick"`
	Day        int     `json:"day"`
	Speed      float64 `json:"speed"`
	Running    bool    `json:"running"`
	AIEnabled  bool    `json:"ai_enabled"`
	Population int     `json:"population"`
	Money      float64 `json:"money"`
	Happiness  float64 `json:"happiness"`
	Weather    string  `json:"weather"`
	Disaster   *struct {
		Type  string `json:"type"`
		Stage string `json:"stage"`
	} `json:"disaster,omitempty"`
}

// Observer fetches city state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Observe fetches the status, stats, and news endpoints.
func (o *Observer) Observe() (*CitySnapshot, error) {
	snap := &CitySnapshot{}

	if err := o.fetchJSON("/api/v1/status", &snap.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if err := o.fetchJSON("/api/v1/stats", &snap.Stats); err != nil {
		return nil, fmt.Errorf("fetch stats: %w", err)
	}
	if err := o.fetchJSON("/api/v1/news?limit=20", &snap.News); err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}

	return snap, nil
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(path string, target any) error {
	resp, err := o.HTTPClient.Get(o.BaseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
