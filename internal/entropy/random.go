// Package entropy provides the injectable random source used by every
// stochastic simulation component. One Source per session, seeded once,
// so that identical seeds reproduce identical runs.
package entropy

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"io"
	"log/slog"
	mrand "math/rand"
	"net/http"
	"time"
)

// Source is the random stream consumed by the simulator, weather,
// disaster, and event systems. Implementations must be deterministic
// for a given seed.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// seeded wraps math/rand behind the Source interface.
type seeded struct {
	rng *mrand.Rand
}

// NewSeeded returns a deterministic Source for the given seed.
func NewSeeded(seed int64) Source {
	return &seeded{rng: mrand.New(mrand.NewSource(seed))}
}

func (s *seeded) Float64() float64 { return s.rng.Float64() }
func (s *seeded) Intn(n int) int   { return s.rng.Intn(n) }

// Client fetches true-random session seeds from random.org.
// The seed is fetched once at session start; the run itself stays
// deterministic. Returns nil if apiKey is empty.
type Client struct {
	apiKey string
	client *http.Client
}

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey: apiKey,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// SessionSeed returns a seed for a new session. Uses random.org when the
// client is configured, falling back to crypto/rand on any failure.
func (c *Client) SessionSeed() int64 {
	if c == nil {
		return cryptoSeed()
	}

	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateIntegers",
		"params": map[string]any{
			"apiKey": c.apiKey,
			"n":      1,
			"min":    0,
			"max":    1000000000,
		},
		"id": 1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		slog.Debug("random.org marshal failed", "error", err)
		return cryptoSeed()
	}

	resp, err := c.client.Post("https://api.random.org/json-rpc/4/invoke", "application/json", bytes.NewReader(body))
	if err != nil {
		slog.Debug("random.org fetch failed", "error", err)
		return cryptoSeed()
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Debug("random.org read failed", "error", err)
		return cryptoSeed()
	}

	var result struct {
		Result struct {
			Random struct {
				Data []int64 `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		slog.Debug("random.org parse failed", "error", err)
		return cryptoSeed()
	}

	if result.Error != nil {
		slog.Debug("random.org API error", "error", result.Error.Message)
		return cryptoSeed()
	}

	if len(result.Result.Random.Data) == 0 {
		return cryptoSeed()
	}

	slog.Debug("session seed from random.org")
	return result.Result.Random.Data[0]
}

// cryptoSeed generates a seed from crypto/rand as fallback.
func cryptoSeed() int64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// Should never happen; fall back to wall clock.
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
}
