package grid

import (
	"errors"
	"testing"

	"github.com/talgya/mayorsim/internal/catalog"
)

func TestPlaceDemolishRoundTrip(t *testing.T) {
	g := New(8, 8, 42)
	before := *g.At(3, 4)

	if err := g.Place(3, 4, catalog.Residential, 1000); err != nil {
		t.Fatalf("Place: %v", err)
	}
	if g.At(3, 4).Building != catalog.Residential {
		t.Fatalf("tile not occupied after Place")
	}
	if g.Count(catalog.Residential) != 1 {
		t.Fatalf("count = %d after Place, want 1", g.Count(catalog.Residential))
	}

	if err := g.Demolish(3, 4); err != nil {
		t.Fatalf("Demolish: %v", err)
	}

	after := *g.At(3, 4)
	if after != before {
		t.Errorf("tile differs after round trip: before %+v, after %+v", before, after)
	}
	if g.Count(catalog.Residential) != 0 {
		t.Errorf("count = %d after Demolish, want 0", g.Count(catalog.Residential))
	}
}

func TestPlaceRejections(t *testing.T) {
	g := New(8, 8, 42)
	if err := g.Place(2, 2, catalog.Park, 1000); err != nil {
		t.Fatalf("setup: %v", err)
	}

	tests := []struct {
		name  string
		x, y  int
		bt    catalog.BuildingType
		money float64
		want  error
	}{
		{"out of range x", 8, 0, catalog.Road, 1000, ErrInvalidPlacement},
		{"negative y", 0, -1, catalog.Road, 1000, ErrInvalidPlacement},
		{"occupied tile", 2, 2, catalog.Road, 1000, ErrInvalidPlacement},
		{"unaffordable", 0, 0, catalog.PowerPlant, 100, ErrInvalidPlacement},
		{"empty type", 1, 1, catalog.None, 1000, ErrInvalidPlacement},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := g.Place(tc.x, tc.y, tc.bt, tc.money)
			if !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}

	// Rejections must leave the grid untouched.
	if g.Count(catalog.Road) != 0 {
		t.Errorf("rejected placements changed the road count")
	}
}

func TestPlaceCapacity(t *testing.T) {
	g := New(8, 8, 42)
	max := catalog.Get(catalog.PowerPlant).MaxCount

	for i := 0; i < max; i++ {
		if err := g.Place(i, 0, catalog.PowerPlant, 1e9); err != nil {
			t.Fatalf("plant %d: %v", i, err)
		}
	}
	err := g.Place(max, 0, catalog.PowerPlant, 1e9)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("got %v, want ErrCapacityExceeded", err)
	}

	// Demolition frees a slot.
	if err := g.Demolish(0, 0); err != nil {
		t.Fatalf("Demolish: %v", err)
	}
	if err := g.Place(max, 0, catalog.PowerPlant, 1e9); err != nil {
		t.Errorf("placement after demolition: %v", err)
	}
}

func TestDemolishRejections(t *testing.T) {
	g := New(8, 8, 42)

	if err := g.Demolish(20, 0); !errors.Is(err, ErrNothingToDemolish) {
		t.Errorf("out of range: got %v", err)
	}
	if err := g.Demolish(1, 1); !errors.Is(err, ErrNothingToDemolish) {
		t.Errorf("empty tile: got %v", err)
	}
}

func TestHasRoadAccess(t *testing.T) {
	g := New(8, 8, 42)
	if err := g.Place(4, 4, catalog.Road, 1000); err != nil {
		t.Fatalf("setup: %v", err)
	}

	tests := []struct {
		name string
		x, y int
		want bool
	}{
		{"west neighbor", 3, 4, true},
		{"east neighbor", 5, 4, true},
		{"north neighbor", 4, 3, true},
		{"south neighbor", 4, 5, true},
		{"diagonal", 3, 3, false},
		{"two away", 6, 4, false},
		{"the road itself", 4, 4, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := g.HasRoadAccess(tc.x, tc.y); got != tc.want {
				t.Errorf("HasRoadAccess(%d,%d) = %v, want %v", tc.x, tc.y, got, tc.want)
			}
		})
	}
}

func TestRoadAccessReflectsDemolition(t *testing.T) {
	g := New(8, 8, 42)
	g.Place(4, 4, catalog.Road, 1000)
	g.Place(3, 4, catalog.Residential, 1000)

	if !g.HasRoadAccess(3, 4) {
		t.Fatal("expected road access before demolition")
	}
	g.Demolish(4, 4)
	if g.HasRoadAccess(3, 4) {
		t.Error("road access should disappear with the road")
	}
}

func TestLandValuesDeterministic(t *testing.T) {
	a := New(8, 8, 7)
	b := New(8, 8, 7)
	c := New(8, 8, 8)

	same, diff := true, false
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			va, vb, vc := a.At(x, y).LandValue, b.At(x, y).LandValue, c.At(x, y).LandValue
			if va < 0 || va > 1 {
				t.Fatalf("land value %.3f at (%d,%d) outside [0,1]", va, x, y)
			}
			if va != vb {
				same = false
			}
			if va != vc {
				diff = true
			}
		}
	}
	if !same {
		t.Error("same seed produced different land values")
	}
	if !diff {
		t.Error("different seeds produced identical land values")
	}
}

func TestRestoreMaintainsCounts(t *testing.T) {
	g := New(8, 8, 42)
	g.Restore(1, 1, catalog.School)
	g.Restore(2, 2, catalog.School)
	if g.Count(catalog.School) != 2 {
		t.Fatalf("count = %d, want 2", g.Count(catalog.School))
	}

	// Overwriting a restored tile adjusts both counts.
	g.Restore(2, 2, catalog.Park)
	if g.Count(catalog.School) != 1 || g.Count(catalog.Park) != 1 {
		t.Errorf("counts after overwrite: school=%d park=%d", g.Count(catalog.School), g.Count(catalog.Park))
	}

	// Out-of-range restores are ignored.
	g.Restore(99, 99, catalog.Road)
	if g.Count(catalog.Road) != 0 {
		t.Error("out-of-range restore changed counts")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	g := New(4, 4, 1)
	snap := g.Snapshot()
	if len(snap) != 16 {
		t.Fatalf("snapshot has %d tiles, want 16", len(snap))
	}
	snap[0].Building = catalog.PowerPlant
	if g.At(0, 0).Building != catalog.None {
		t.Error("mutating the snapshot changed the grid")
	}
}
