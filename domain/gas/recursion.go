// Package gas implements the score-driven state recursion at the heart
// of a GASX model: a latent signal that evolves deterministically from
// lagged signal values, lagged scaled scores of the observation
// likelihood, and an exogenous regression term.
package gas

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"gasx/domain/core"
	"gasx/domain/family"
	"gasx/domain/model"
)

// Recursion computes the latent signal path and its log-likelihood for
// a parameter vector. The first observation of the raw series is kept
// as a fixed conditioning point and never modeled; all lag references
// before the modeled window read as zero, which makes the likelihood
// exactly reproducible for a given theta.
type Recursion struct {
	fam family.Family

	y     []float64 // modeled response: raw series minus the conditioning point
	x     *mat.Dense // design rows aligned with y
	ar    int
	sc    int
	nbeta int
}

// Path is the latent state trajectory produced alongside a likelihood
// evaluation: the signal and the scaled score at each modeled step.
type Path struct {
	Signal []float64
	Scores []float64
}

// Coeffs is a theta vector unpacked into its layout blocks. Shape
// values are already mapped to natural space.
type Coeffs struct {
	Beta  []float64
	AR    []float64
	SC    []float64
	Shape []float64
}

// NewRecursion builds a recursion over a raw response series and its
// aligned design matrix. Layout of theta vectors is fixed as
// [beta..., ar..., sc..., family shape...].
func NewRecursion(y []float64, x *mat.Dense, ar, sc int, fam family.Family) (*Recursion, error) {
	if ar < 0 || sc < 0 {
		return nil, fmt.Errorf("lag orders must be non-negative, got ar=%d sc=%d", ar, sc)
	}
	rows, cols := x.Dims()
	if rows != len(y) {
		return nil, fmt.Errorf("design matrix has %d rows for %d observations", rows, len(y))
	}
	minObs := 2 + ar + sc + cols
	if len(y) < minObs {
		return nil, fmt.Errorf("%w: need at least %d observations, got %d",
			core.ErrInsufficientData, minObs, len(y))
	}

	// Drop the conditioning point.
	my := make([]float64, len(y)-1)
	copy(my, y[1:])
	mx := mat.DenseCopyOf(x.Slice(1, rows, 0, cols))

	return &Recursion{fam: fam, y: my, x: mx, ar: ar, sc: sc, nbeta: cols}, nil
}

// Family returns the observation distribution.
func (r *Recursion) Family() family.Family { return r.fam }

// Obs returns the number of modeled observations (raw length minus the
// conditioning point).
func (r *Recursion) Obs() int { return len(r.y) }

// ModelY returns the modeled response series.
func (r *Recursion) ModelY() []float64 { return r.y }

// DesignRow returns design-matrix row t of the modeled window.
func (r *Recursion) DesignRow(t int) []float64 {
	row := make([]float64, r.nbeta)
	mat.Row(row, t, r.x)
	return row
}

// NumLatent returns the closed-form latent variable count:
// intercept + regressors + ar + sc + family shape parameters.
func (r *Recursion) NumLatent() int {
	return r.nbeta + r.ar + r.sc + len(r.fam.ExtraLatent())
}

// BuildLatentVariables creates the latent variable set matching the
// theta layout. betaNames must supply one name per design column.
func (r *Recursion) BuildLatentVariables(betaNames []string) (*model.LatentVariableSet, error) {
	if len(betaNames) != r.nbeta {
		return nil, fmt.Errorf("got %d beta names for %d design columns", len(betaNames), r.nbeta)
	}
	lvs := model.NewLatentVariableSet()
	for _, name := range betaNames {
		lvs.Add(name, model.TransformIdentity)
	}
	for i := 1; i <= r.ar; i++ {
		lvs.Add(fmt.Sprintf("AR(%d)", i), model.TransformIdentity)
	}
	for i := 1; i <= r.sc; i++ {
		lvs.Add(fmt.Sprintf("SC(%d)", i), model.TransformIdentity)
	}
	for _, spec := range r.fam.ExtraLatent() {
		lvs.Add(spec.Name, spec.Transform)
	}
	return lvs, nil
}

// Unpack splits theta into layout blocks, mapping family shape values
// into natural space.
func (r *Recursion) Unpack(theta []float64) Coeffs {
	specs := r.fam.ExtraLatent()
	c := Coeffs{
		Beta:  theta[:r.nbeta],
		AR:    theta[r.nbeta : r.nbeta+r.ar],
		SC:    theta[r.nbeta+r.ar : r.nbeta+r.ar+r.sc],
		Shape: make([]float64, len(specs)),
	}
	off := r.nbeta + r.ar + r.sc
	for i, spec := range specs {
		c.Shape[i] = spec.Transform.Apply(theta[off+i])
	}
	return c
}

// StepSignal computes the signal at the next step given the regression
// row and the signal/score histories (most recent value last). Lags
// reaching before the histories read as zero.
func StepSignal(c Coeffs, xrow, signals, scores []float64) float64 {
	v := 0.0
	for j, b := range c.Beta {
		v += b * xrow[j]
	}
	for i, phi := range c.AR {
		if k := len(signals) - 1 - i; k >= 0 {
			v += phi * signals[k]
		}
	}
	for i, kappa := range c.SC {
		if k := len(scores) - 1 - i; k >= 0 {
			v += kappa * scores[k]
		}
	}
	return v
}

// ScaledScore forms the score of the observation likelihood divided by
// the family's scaling factor.
func (r *Recursion) ScaledScore(c Coeffs, y, signal float64) float64 {
	scale := r.fam.Scaling(signal, c.Shape)
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		return math.NaN()
	}
	return r.fam.Score(y, signal, c.Shape) / scale
}

// LogLikelihood evaluates the total log-likelihood and the latent path
// at theta. A non-finite log-density at any step aborts the evaluation
// with ErrDivergentRecursion; estimators treat that as an objective of
// -Inf rather than a crash.
func (r *Recursion) LogLikelihood(theta []float64) (float64, *Path, error) {
	return r.window(theta, 0, len(r.y))
}

// LogLikelihoodWindow evaluates the recursion on a contiguous slice of
// the modeled series as if it were the full sample (zero pre-history),
// rescaled by Obs/length so the value stays an unbiased estimate of the
// full-data log-likelihood. Used by mini-batch BBVI.
func (r *Recursion) LogLikelihoodWindow(theta []float64, start, length int) (float64, *Path, error) {
	total, path, err := r.window(theta, start, length)
	if err != nil {
		return total, path, err
	}
	return total * float64(len(r.y)) / float64(length), path, nil
}

func (r *Recursion) window(theta []float64, start, length int) (float64, *Path, error) {
	if len(theta) != r.NumLatent() {
		return 0, nil, fmt.Errorf("theta has %d entries, expected %d", len(theta), r.NumLatent())
	}
	c := r.Unpack(theta)

	path := &Path{
		Signal: make([]float64, 0, length),
		Scores: make([]float64, 0, length),
	}
	total := 0.0
	for t := start; t < start+length; t++ {
		xrow := make([]float64, r.nbeta)
		mat.Row(xrow, t, r.x)
		sig := StepSignal(c, xrow, path.Signal, path.Scores)

		lp := r.fam.LogDensity(r.y[t], sig, c.Shape)
		if math.IsNaN(lp) || math.IsInf(lp, 0) {
			return math.Inf(-1), nil, core.NewDivergenceError(t)
		}
		total += lp

		score := r.ScaledScore(c, r.y[t], sig)
		if math.IsNaN(score) {
			return math.Inf(-1), nil, core.NewDivergenceError(t)
		}
		path.Signal = append(path.Signal, sig)
		path.Scores = append(path.Scores, score)
	}
	return total, path, nil
}
