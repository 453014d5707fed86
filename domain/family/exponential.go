package family

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Exponential models positive waiting times with mean exp(location),
// i.e. rate exp(-location).
type Exponential struct{}

func (Exponential) Name() string { return "exponential" }

func (Exponential) LogDensity(y, location float64, _ []float64) float64 {
	return -location - y*math.Exp(-location)
}

func (Exponential) Score(y, location float64, _ []float64) float64 {
	return y*math.Exp(-location) - 1
}

// Scaling is one: the Fisher information of the exponential under the
// log-mean parameterization is constant.
func (Exponential) Scaling(float64, []float64) float64 { return 1 }

func (Exponential) Mean(location float64) float64 {
	return math.Exp(location)
}

func (Exponential) Sample(location float64, _ []float64, rng *rand.Rand) float64 {
	return distuv.Exponential{Rate: math.Exp(-location), Src: rng}.Rand()
}

func (Exponential) ExtraLatent() []ShapeSpec { return nil }
