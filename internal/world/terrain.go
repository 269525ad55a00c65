package world

import "math"

// Octaves of the height field. Each octave is sin(f*x)*cos(f*z)*amplitude.
var octaves = [...]struct {
	frequency float64
	amplitude float64
}{
	{0.01, 10}, // coarse hills
	{0.03, 4},  // medium rolls
	{0.1, 0.6}, // fine bumps
}

// heightScale flattens the summed octaves so slopes stay walkable.
const heightScale = 0.5

// Height returns the terrain elevation at world-space (x, z).
//
// It is the only terrain formula in the module: world generation places
// objects with it and the player and NPC controllers ground against it.
// Height is pure and safe for concurrent use.
func Height(x, z float64) float64 {
	var h float64
	for _, o := range octaves {
		h += math.Sin(x*o.frequency) * math.Cos(z*o.frequency) * o.amplitude
	}
	return h * heightScale
}

// MaxAmplitude is the largest absolute value Height can return.
func MaxAmplitude() float64 {
	var a float64
	for _, o := range octaves {
		a += o.amplitude
	}
	return a * heightScale
}

// Slope returns the steepest finite-difference gradient magnitude at (x, z)
// sampled with step h.
func Slope(x, z, h float64) float64 {
	dx := (Height(x+h, z) - Height(x-h, z)) / (2 * h)
	dz := (Height(x, z+h) - Height(x, z-h)) / (2 * h)
	return math.Sqrt(dx*dx + dz*dz)
}
