package family

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"gasx/domain/model"
)

// Normal models real-valued observations with mean equal to the signal
// and one extra latent scale parameter (kept positive via exp).
type Normal struct{}

func (Normal) Name() string { return "normal" }

func (Normal) LogDensity(y, location float64, shape []float64) float64 {
	return distuv.Normal{Mu: location, Sigma: shape[0]}.LogProb(y)
}

func (Normal) Score(y, location float64, shape []float64) float64 {
	return (y - location) / (shape[0] * shape[0])
}

// Scaling is the Fisher information 1/sigma^2, so the scaled score is
// the plain residual y - location.
func (Normal) Scaling(_ float64, shape []float64) float64 {
	return 1.0 / (shape[0] * shape[0])
}

func (Normal) Mean(location float64) float64 { return location }

func (Normal) Sample(location float64, shape []float64, rng *rand.Rand) float64 {
	return distuv.Normal{Mu: location, Sigma: shape[0], Src: rng}.Rand()
}

func (Normal) ExtraLatent() []ShapeSpec {
	return []ShapeSpec{{Name: "Normal Scale", Transform: model.TransformExp}}
}
