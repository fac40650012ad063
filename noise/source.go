package noise

import (
	"strings"

	"github.com/ojrac/opensimplex-go"
	"github.com/pkg/errors"
)

// Source samples a terrain height field before height scaling.
type Source interface {
	Sample(x, z float64) float64
}

const (
	KindGradient = "gradient"
	KindSimplex  = "simplex"
)

var ErrUnknownKind = errors.New("noise: unknown source kind")

// NewSource returns the source registered under kind. An empty kind selects
// the hash gradient noise.
func NewSource(kind string, seed int64, octaves int, divisor float64) (Source, error) {
	switch strings.ToLower(kind) {
	case "", KindGradient:
		return Fractal{Octaves: octaves, Divisor: divisor}, nil
	case KindSimplex:
		return NewSimplex(seed, octaves, divisor), nil
	}
	return nil, errors.Wrapf(ErrUnknownKind, "%q", kind)
}

// Fractal is the octave sum of Gradient.
type Fractal struct {
	Octaves int
	Divisor float64
}

func (f Fractal) Sample(x, z float64) float64 {
	return Octaved(x, z, f.Octaves, f.Divisor)
}

// Simplex is an octave sum over seeded OpenSimplex noise. The underlying
// permutation tables are only read after construction.
type Simplex struct {
	noise   opensimplex.Noise
	octaves int
	divisor float64
}

func NewSimplex(seed int64, octaves int, divisor float64) *Simplex {
	return &Simplex{
		noise:   opensimplex.New(seed),
		octaves: octaves,
		divisor: divisor,
	}
}

func (s *Simplex) Sample(x, z float64) float64 {
	var (
		total = 0.0
		freq  = 1.0
		amp   = 1.0
	)
	for i := 0; i < s.octaves; i++ {
		total += s.noise.Eval2(x*freq/s.divisor, z*freq/s.divisor) * amp
		freq *= 2
		amp *= 0.5
	}
	return total
}
