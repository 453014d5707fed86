package model

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// UncertaintyKind describes the post-estimation representation attached
// to a latent variable set.
type UncertaintyKind string

const (
	// UncertaintyNone marks an unfitted set.
	UncertaintyNone UncertaintyKind = "none"
	// UncertaintyPoint is a bare point estimate (MLE/PML without usable
	// standard errors).
	UncertaintyPoint UncertaintyKind = "point"
	// UncertaintyGaussian is an independent Gaussian approximation per
	// variable (Laplace, BBVI, or MLE with Hessian standard errors).
	UncertaintyGaussian UncertaintyKind = "gaussian"
	// UncertaintyEnsemble is a joint posterior draw ensemble (M-H).
	UncertaintyEnsemble UncertaintyKind = "ensemble"
)

// LatentVariable is one scalar parameter of the model.
//
// Mean, Std and Draws live in unconstrained optimizer space; Value is
// the natural-space estimate obtained through the transform.
type LatentVariable struct {
	Name      string
	Transform Transform
	Prior     Prior

	// Start is the unconstrained-space starting point for estimators.
	Start float64

	// Written back by estimators.
	Mean  float64
	Value float64
	Std   float64 // zero when standard errors are unavailable
	Draws []float64
}

// LatentVariableSet is the ordered parameter collection shared by the
// recursion, every estimator and prediction. Order is significant: it
// fixes the layout of the theta vectors passed around.
//
// The set is built once at model construction and never resized. It is
// exclusively owned by the model object; estimators receive it as a
// mutable handle and write converged values back into it.
type LatentVariableSet struct {
	Vars []*LatentVariable

	kind UncertaintyKind
}

// NewLatentVariableSet creates an empty set.
func NewLatentVariableSet() *LatentVariableSet {
	return &LatentVariableSet{kind: UncertaintyNone}
}

// Add appends a latent variable with the default prior and a zero
// starting point.
func (s *LatentVariableSet) Add(name string, tr Transform) *LatentVariable {
	lv := &LatentVariable{
		Name:      name,
		Transform: tr,
		Prior:     DefaultPrior(),
	}
	s.Vars = append(s.Vars, lv)
	return lv
}

// Len returns the number of latent variables.
func (s *LatentVariableSet) Len() int { return len(s.Vars) }

// Names returns the variable names in layout order.
func (s *LatentVariableSet) Names() []string {
	names := make([]string, len(s.Vars))
	for i, lv := range s.Vars {
		names[i] = lv.Name
	}
	return names
}

// Kind returns the current uncertainty representation.
func (s *LatentVariableSet) Kind() UncertaintyKind { return s.kind }

// StartVector returns the unconstrained starting point for estimators.
func (s *LatentVariableSet) StartVector() []float64 {
	x := make([]float64, len(s.Vars))
	for i, lv := range s.Vars {
		x[i] = lv.Start
	}
	return x
}

// MeanVector returns the fitted unconstrained point estimate.
func (s *LatentVariableSet) MeanVector() []float64 {
	x := make([]float64, len(s.Vars))
	for i, lv := range s.Vars {
		x[i] = lv.Mean
	}
	return x
}

// Values returns the fitted natural-space values.
func (s *LatentVariableSet) Values() []float64 {
	x := make([]float64, len(s.Vars))
	for i, lv := range s.Vars {
		x[i] = lv.Value
	}
	return x
}

// LogPrior sums the prior log-densities at an unconstrained theta.
func (s *LatentVariableSet) LogPrior(theta []float64) float64 {
	total := 0.0
	for i, lv := range s.Vars {
		total += lv.Prior.LogPDF(theta[i])
	}
	return total
}

// AdjustPrior replaces the prior of the variable at index i.
func (s *LatentVariableSet) AdjustPrior(i int, p Prior) error {
	if i < 0 || i >= len(s.Vars) {
		return fmt.Errorf("latent variable index %d out of range [0,%d)", i, len(s.Vars))
	}
	s.Vars[i].Prior = p
	return nil
}

// SetPoint writes back a point estimate in unconstrained space.
func (s *LatentVariableSet) SetPoint(theta []float64) {
	for i, lv := range s.Vars {
		lv.Mean = theta[i]
		lv.Value = lv.Transform.Apply(theta[i])
		lv.Std = 0
		lv.Draws = nil
	}
	s.kind = UncertaintyPoint
}

// SetGaussian writes back an independent Gaussian approximation
// (mean, std per variable, unconstrained space). A non-positive or
// non-finite std is stored as zero, marking it unavailable.
func (s *LatentVariableSet) SetGaussian(mean, std []float64) {
	for i, lv := range s.Vars {
		lv.Mean = mean[i]
		lv.Value = lv.Transform.Apply(mean[i])
		if i < len(std) && finite(std[i]) && std[i] > 0 {
			lv.Std = std[i]
		} else {
			lv.Std = 0
		}
		lv.Draws = nil
	}
	s.kind = UncertaintyGaussian
}

// SetEnsemble writes back a posterior draw ensemble. draws[k] is one
// joint unconstrained theta vector; draws for each variable stay
// aligned by index so joint resampling remains coherent. The point
// estimate becomes the ensemble mean.
func (s *LatentVariableSet) SetEnsemble(draws [][]float64) {
	n := len(draws)
	for i, lv := range s.Vars {
		col := make([]float64, n)
		sum := 0.0
		for k := 0; k < n; k++ {
			col[k] = draws[k][i]
			sum += draws[k][i]
		}
		lv.Draws = col
		lv.Mean = sum / float64(n)
		lv.Value = lv.Transform.Apply(lv.Mean)

		sq := 0.0
		for _, v := range col {
			d := v - lv.Mean
			sq += d * d
		}
		if n > 1 {
			lv.Std = math.Sqrt(sq / float64(n-1))
		}
	}
	s.kind = UncertaintyEnsemble
}

// Draw samples one joint unconstrained theta vector from the fitted
// uncertainty representation. Point estimates return the mean vector,
// a Gaussian approximation draws each variable independently, and an
// ensemble picks one retained chain index.
func (s *LatentVariableSet) Draw(rng *rand.Rand) []float64 {
	theta := make([]float64, len(s.Vars))
	switch s.kind {
	case UncertaintyEnsemble:
		if n := len(s.Vars[0].Draws); n > 0 {
			k := rng.IntN(n)
			for i, lv := range s.Vars {
				theta[i] = lv.Draws[k]
			}
			return theta
		}
		fallthrough
	case UncertaintyGaussian:
		for i, lv := range s.Vars {
			theta[i] = lv.Mean + lv.Std*rng.NormFloat64()
		}
	default:
		for i, lv := range s.Vars {
			theta[i] = lv.Mean
		}
	}
	return theta
}

// AllFinite reports whether every fitted value is a usable real number.
func (s *LatentVariableSet) AllFinite() bool {
	for _, lv := range s.Vars {
		if !finite(lv.Value) {
			return false
		}
	}
	return true
}
