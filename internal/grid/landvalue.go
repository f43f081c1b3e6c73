// Land value generation using layered simplex noise.
// Each tile gets a fixed 0-1 desirability score at session start; it
// scales disaster severity and feeds the AI planner's site choice.
package grid

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// landValues samples multi-octave noise across the grid and normalizes
// the result to [0, 1].
func landValues(width, height int, seed int64) [][]float64 {
	noise := opensimplex.NewNormalized(seed)

	values := make([][]float64, height)
	minV, maxV := 1.0, 0.0
	for y := 0; y < height; y++ {
		values[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			v := octaveNoise(noise, float64(x), float64(y), 3, 0.15, 0.5)
			values[y][x] = v
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
	}

	// Stretch to the full range so every map has both cheap and prime land.
	span := maxV - minV
	if span < 1e-9 {
		return values
	}
	for y := range values {
		for x := range values[y] {
			values[y][x] = (values[y][x] - minV) / span
		}
	}
	return values
}

// octaveNoise layers multiple noise frequencies for natural variation.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
