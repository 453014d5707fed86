package model

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Prior is the log-density contribution of a single latent variable,
// evaluated in unconstrained space. Penalized-ML and the Bayesian
// estimators add it to the data log-likelihood.
type Prior interface {
	LogPDF(x float64) float64
}

// NormalPrior is a Gaussian prior on the unconstrained value.
type NormalPrior struct {
	Mu    float64
	Sigma float64
}

func (p NormalPrior) LogPDF(x float64) float64 {
	return distuv.Normal{Mu: p.Mu, Sigma: p.Sigma}.LogProb(x)
}

// FlatPrior contributes nothing; with flat priors on every variable
// PML collapses to plain MLE.
type FlatPrior struct{}

func (FlatPrior) LogPDF(float64) float64 { return 0 }

// DefaultPrior is the weakly informative prior assigned to every latent
// variable at construction time unless the caller adjusts it.
func DefaultPrior() Prior {
	return NormalPrior{Mu: 0, Sigma: 3}
}

// finite reports whether x is a usable real number.
func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
