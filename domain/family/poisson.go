package family

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Poisson models counts with rate exp(location). The exponential link
// keeps the rate positive for any real signal value.
type Poisson struct{}

func (Poisson) Name() string { return "poisson" }

func (Poisson) LogDensity(y, location float64, _ []float64) float64 {
	lg, _ := math.Lgamma(y + 1)
	return y*location - math.Exp(location) - lg
}

func (Poisson) Score(y, location float64, _ []float64) float64 {
	return y - math.Exp(location)
}

// Scaling is the Fisher information exp(location), so the scaled score
// becomes y*exp(-location) - 1.
func (Poisson) Scaling(location float64, _ []float64) float64 {
	return math.Exp(location)
}

func (Poisson) Mean(location float64) float64 {
	return math.Exp(location)
}

func (Poisson) Sample(location float64, _ []float64, rng *rand.Rand) float64 {
	return distuv.Poisson{Lambda: math.Exp(location), Src: rng}.Rand()
}

func (Poisson) ExtraLatent() []ShapeSpec { return nil }
