// Package noise provides deterministic 2D gradient noise for terrain heights.
//
// Nothing in this package keeps mutable state, so every function and Source is
// safe to call from any number of goroutines.
package noise

import (
	"math"
)

// Gradient returns 2D gradient noise at (x, z) in [-1, 1].
//
// The gradient at each integer lattice corner is derived from a hash of the
// corner coordinates instead of a permutation table.
func Gradient(x, z float64) float64 {
	fx, fz := math.Floor(x), math.Floor(z)
	ix, iz := int64(fx), int64(fz)
	dx, dz := x-fx, z-fz

	n00 := dotGrad(ix, iz, dx, dz)
	n10 := dotGrad(ix+1, iz, dx-1, dz)
	n01 := dotGrad(ix, iz+1, dx, dz-1)
	n11 := dotGrad(ix+1, iz+1, dx-1, dz-1)

	u, v := smooth(dx), smooth(dz)
	nx0 := lerp(n00, n10, u)
	nx1 := lerp(n01, n11, u)
	// unit gradients bound the raw value by sqrt(2)/2
	return lerp(nx0, nx1, v) * math.Sqrt2
}

// Octaved sums octaves of Gradient. Frequency starts at 1/divisor and doubles
// every octave while the amplitude starts at 1 and halves.
func Octaved(x, z float64, octaves int, divisor float64) float64 {
	var (
		total = 0.0
		freq  = 1.0
		amp   = 1.0
	)
	for i := 0; i < octaves; i++ {
		total += Gradient(x*freq/divisor, z*freq/divisor) * amp
		freq *= 2
		amp *= 0.5
	}
	return total
}

func dotGrad(ix, iz int64, dx, dz float64) float64 {
	gx, gz := gradient(ix, iz)
	return gx*dx + gz*dz
}

func gradient(ix, iz int64) (float64, float64) {
	angle := float64(hash(ix, iz)) / (1 << 32) * 2 * math.Pi
	return math.Cos(angle), math.Sin(angle)
}

// hash mixes a lattice coordinate into 32 well distributed bits.
func hash(ix, iz int64) uint32 {
	h := uint64(ix)*0x9e3779b97f4a7c15 ^ uint64(iz)*0xc2b2ae3d27d4eb4f
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return uint32(h)
}

// smooth is the 3v²-2v³ fade curve.
func smooth(v float64) float64 {
	return v * v * (3 - 2*v)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
