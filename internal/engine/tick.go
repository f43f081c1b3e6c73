// Package engine drives the simulation: a fixed-interval clock ticks
// the city forward one day at a time, and the Simulation context folds
// every subsystem into a single coherent snapshot per tick.
package engine

import (
	"log/slog"
	"math"
	"sync/atomic"
	"time"
)

// Engine is the driving clock. One tick advances the city by one day.
// Tick, speed, and the running flag are shared with the API handlers
// and the shutdown path, so they live behind atomics.
type Engine struct {
	tick    atomic.Uint64
	speed   atomic.Uint64 // float64 bits
	running atomic.Bool

	Interval time.Duration // Base tick interval

	// OnTick runs once per tick with the new tick number.
	OnTick func(tick uint64)
}

// NewEngine creates a clock with default settings.
func NewEngine() *Engine {
	e := &Engine{Interval: time.Second}
	e.SetSpeed(1.0)
	return e
}

// Tick returns the current tick counter (monotonic).
func (e *Engine) Tick() uint64 { return e.tick.Load() }

// SetTick seeds the counter, for resumed sessions.
func (e *Engine) SetTick(t uint64) { e.tick.Store(t) }

// Speed returns the current speed multiplier. 1.0 = real-time.
func (e *Engine) Speed() float64 { return math.Float64frombits(e.speed.Load()) }

// SetSpeed changes the multiplier. 0 pauses the clock.
func (e *Engine) SetSpeed(s float64) { e.speed.Store(math.Float64bits(s)) }

// IsRunning reports whether the loop is live.
func (e *Engine) IsRunning() bool { return e.running.Load() }

// Run starts the loop. Blocks until Stop is called.
func (e *Engine) Run() {
	e.running.Store(true)
	slog.Info("simulation engine started", "tick", e.Tick(), "speed", e.Speed())

	for e.running.Load() {
		speed := e.Speed()
		if speed <= 0 {
			// Paused. Sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		tick := e.tick.Add(1)
		if e.OnTick != nil {
			e.OnTick(tick)
		}

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation engine stopped", "tick", e.Tick())
}

// Stop halts the loop after the current tick completes.
func (e *Engine) Stop() {
	e.running.Store(false)
}
