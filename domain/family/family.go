// Package family defines the conditional-distribution capability set a
// score-driven model needs from its observation distribution: log-density,
// score, scaling and a sampler. One concrete implementation per
// distribution; no inheritance chain, just this interface and a registry.
package family

import (
	"fmt"
	"math/rand/v2"

	"gasx/domain/model"
)

// ShapeSpec declares an extra shape parameter a family contributes to
// the latent variable set (e.g. the Normal scale).
type ShapeSpec struct {
	Name      string
	Transform model.Transform
}

// Family is the conditional likelihood contract. The location argument
// is the score-driven signal theta_t; shape holds the family's extra
// parameters in natural space, in the order declared by ExtraLatent.
type Family interface {
	Name() string

	// LogDensity evaluates log p(y | location, shape).
	LogDensity(y, location float64, shape []float64) float64

	// Score is the first derivative of LogDensity with respect to the
	// location parameter.
	Score(y, location float64, shape []float64) float64

	// Scaling is the factor dividing the score to form the scaled score
	// that drives the state update. Typically the Fisher information at
	// the location, or one for unit scaling. Always >= 0.
	Scaling(location float64, shape []float64) float64

	// Mean is the predicted observation value at a location (the
	// inverse link), used for point forecasts.
	Mean(location float64) float64

	// Sample draws one observation conditioned on the location.
	Sample(location float64, shape []float64, rng *rand.Rand) float64

	// ExtraLatent declares the family's extra shape parameters.
	ExtraLatent() []ShapeSpec
}

// New resolves a family by name. Unknown names fail fast.
func New(name string) (Family, error) {
	switch name {
	case "poisson":
		return Poisson{}, nil
	case "normal", "gaussian":
		return Normal{}, nil
	case "exponential":
		return Exponential{}, nil
	default:
		return nil, fmt.Errorf("unknown family %q", name)
	}
}
