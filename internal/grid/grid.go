// Package grid owns the city tile array: occupancy, placement
// validation, and road-access queries. The grid never touches money;
// the caller pairs a successful Place with the matching debit so the
// two read as one transaction.
package grid

import (
	"errors"
	"fmt"

	"github.com/talgya/mayorsim/internal/catalog"
)

// Placement and demolition failures, surfaced to the caller as rejected
// actions with no state change.
var (
	ErrInvalidPlacement  = errors.New("invalid placement")
	ErrCapacityExceeded  = errors.New("building capacity exceeded")
	ErrNothingToDemolish = errors.New("nothing to demolish")
)

// Tile is one cell of the city grid. Identity is (X, Y); only Building
// ever changes.
type Tile struct {
	X         int                  `json:"x"`
	Y         int                  `json:"y"`
	Building  catalog.BuildingType `json:"building"`
	LandValue float64              `json:"land_value"` // 0-1, fixed at generation
}

// Grid is the fixed-size 2D tile array for one game session.
type Grid struct {
	Width  int
	Height int
	tiles  [][]Tile

	counts map[catalog.BuildingType]int
}

// New creates an empty grid with per-tile land values derived from
// layered simplex noise, deterministic for the given seed.
func New(width, height int, seed int64) *Grid {
	g := &Grid{
		Width:  width,
		Height: height,
		tiles:  make([][]Tile, height),
		counts: make(map[catalog.BuildingType]int),
	}

	values := landValues(width, height, seed)
	for y := 0; y < height; y++ {
		g.tiles[y] = make([]Tile, width)
		for x := 0; x < width; x++ {
			g.tiles[y][x] = Tile{X: x, Y: y, Building: catalog.None, LandValue: values[y][x]}
		}
	}
	return g
}

// InRange reports whether (x, y) lies on the grid.
func (g *Grid) InRange(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// At returns the tile at (x, y), or nil if out of range.
func (g *Grid) At(x, y int) *Tile {
	if !g.InRange(x, y) {
		return nil
	}
	return &g.tiles[y][x]
}

// Place puts a building of the given type on an empty tile.
// money is the caller's available balance; the debit itself is the
// caller's responsibility.
func (g *Grid) Place(x, y int, t catalog.BuildingType, money float64) error {
	if t == catalog.None || !catalog.Valid(t) {
		return fmt.Errorf("%w: unknown building type %d", ErrInvalidPlacement, t)
	}
	if !g.InRange(x, y) {
		return fmt.Errorf("%w: (%d,%d) out of range", ErrInvalidPlacement, x, y)
	}

	tile := &g.tiles[y][x]
	if tile.Building != catalog.None {
		return fmt.Errorf("%w: (%d,%d) already occupied by %s", ErrInvalidPlacement, x, y, catalog.Name(tile.Building))
	}

	cfg := catalog.Get(t)
	if cfg.Cost > money {
		return fmt.Errorf("%w: %s costs %.0f, have %.0f", ErrInvalidPlacement, cfg.Name, cfg.Cost, money)
	}
	if cfg.MaxCount > 0 && g.counts[t] >= cfg.MaxCount {
		return fmt.Errorf("%w: at most %d of %s", ErrCapacityExceeded, cfg.MaxCount, cfg.Name)
	}

	tile.Building = t
	g.counts[t]++
	return nil
}

// Demolish clears the tile at (x, y).
func (g *Grid) Demolish(x, y int) error {
	if !g.InRange(x, y) {
		return fmt.Errorf("%w: (%d,%d) out of range", ErrNothingToDemolish, x, y)
	}

	tile := &g.tiles[y][x]
	if tile.Building == catalog.None {
		return fmt.Errorf("%w: (%d,%d) is empty", ErrNothingToDemolish, x, y)
	}
	if !catalog.Get(tile.Building).Demolishable {
		return fmt.Errorf("%w: %s cannot be demolished", ErrNothingToDemolish, catalog.Name(tile.Building))
	}

	g.counts[tile.Building]--
	tile.Building = catalog.None
	return nil
}

// Restore sets a tile's building without validation. Used when loading
// a saved session; callers must only feed previously valid state.
func (g *Grid) Restore(x, y int, t catalog.BuildingType) {
	if !g.InRange(x, y) || !catalog.Valid(t) {
		return
	}
	tile := &g.tiles[y][x]
	if tile.Building != catalog.None {
		g.counts[tile.Building]--
	}
	tile.Building = t
	if t != catalog.None {
		g.counts[t]++
	}
}

// Count returns the number of placed buildings of the given type.
func (g *Grid) Count(t catalog.BuildingType) int {
	return g.counts[t]
}

// HasRoadAccess reports whether the tile at (x, y) touches a road.
// Computed on demand so it always reflects the current grid.
func (g *Grid) HasRoadAccess(x, y int) bool {
	neighbors := [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}}
	for _, n := range neighbors {
		if tile := g.At(n[0], n[1]); tile != nil && tile.Building == catalog.Road {
			return true
		}
	}
	return false
}

// Tiles iterates all tiles in row-major order.
func (g *Grid) Tiles(fn func(t *Tile)) {
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			fn(&g.tiles[y][x])
		}
	}
}

// Snapshot returns a deep copy of all tiles in row-major order, safe to
// hand to the API or persistence layer.
func (g *Grid) Snapshot() []Tile {
	out := make([]Tile, 0, g.Width*g.Height)
	for y := 0; y < g.Height; y++ {
		out = append(out, g.tiles[y]...)
	}
	return out
}
