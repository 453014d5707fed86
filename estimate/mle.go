package estimate

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"gasx/domain/core"
	"gasx/domain/gas"
	"gasx/domain/model"
)

var negInf = math.Inf(-1)

// fitML maximizes the log-likelihood (MLE) or log-posterior (PML) in
// unconstrained space and writes the optimum back into the latent
// variable set. Standard errors come from the inverse Hessian at the
// optimum; when inversion fails they are reported unavailable instead
// of propagating NaNs. forceGaussian makes the Gaussian approximation
// the stored uncertainty representation even when the caller asked for
// a bare point fit (used by Laplace).
func fitML(rec *gas.Recursion, lvs *model.LatentVariableSet, usePriors, forceGaussian bool) (*FitResult, error) {
	objective := logPosterior(rec, lvs, usePriors)
	negObjective := func(theta []float64) float64 { return -objective(theta) }

	x0 := lvs.StartVector()
	xOpt, converged := minimize(negObjective, x0)

	res := &FitResult{}
	if !converged {
		res.Warnings = append(res.Warnings, errNonConvergence)
	}

	std, seErr := hessianStd(negObjective, xOpt)
	if seErr != nil {
		res.SEUnavailable = true
		res.Warnings = append(res.Warnings, core.ErrDegenerateUncertainty.Error())
		if forceGaussian {
			lvs.SetGaussian(xOpt, make([]float64, len(xOpt)))
		} else {
			lvs.SetPoint(xOpt)
		}
	} else {
		lvs.SetGaussian(xOpt, std)
	}

	ll, _, err := rec.LogLikelihood(xOpt)
	if err != nil {
		// The optimizer should never settle on a divergent point, but a
		// non-converged run can. Report the best objective we have.
		ll = negInf
	}
	res.LogLikelihood = ll
	return res, nil
}

// minimize runs a quasi-Newton search with a Nelder-Mead fallback.
// It always returns the best iterate found, converged or not.
func minimize(f func([]float64) float64, x0 []float64) (x []float64, converged bool) {
	problem := optimize.Problem{
		Func: f,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, f, x, nil)
		},
	}

	result, err := optimize.Minimize(problem, x0, nil, &optimize.BFGS{})
	if err == nil && result != nil && allFinite(result.X) {
		return result.X, true
	}

	best := x0
	if result != nil && allFinite(result.X) && result.F < f(x0) {
		best = result.X
	}

	result, err = optimize.Minimize(problem, best, nil, &optimize.NelderMead{})
	if err == nil && result != nil && allFinite(result.X) {
		return result.X, true
	}
	if result != nil && allFinite(result.X) && result.F < f(best) {
		best = result.X
	}
	return best, false
}

// hessianStd derives per-parameter standard deviations from the inverse
// Hessian of the negative objective at the optimum. Clipped to be
// non-negative; a singular or indefinite Hessian is an error the caller
// downgrades to "standard errors unavailable".
func hessianStd(negObjective func([]float64) float64, xOpt []float64) ([]float64, error) {
	n := len(xOpt)
	hess := mat.NewSymDense(n, nil)
	fd.Hessian(hess, negObjective, xOpt, nil)

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if !finite(hess.At(i, j)) {
				return nil, core.ErrDegenerateUncertainty
			}
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(hess); !ok {
		return nil, core.ErrDegenerateUncertainty
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil, core.ErrDegenerateUncertainty
	}

	std := make([]float64, n)
	for i := 0; i < n; i++ {
		v := cov.At(i, i)
		if v < 0 || !finite(v) {
			return nil, core.ErrDegenerateUncertainty
		}
		std[i] = math.Sqrt(v)
	}
	return std, nil
}

// covariance returns the full inverse-Hessian covariance at the
// optimum, used by M-H proposal calibration.
func covariance(negObjective func([]float64) float64, xOpt []float64) (*mat.SymDense, error) {
	n := len(xOpt)
	hess := mat.NewSymDense(n, nil)
	fd.Hessian(hess, negObjective, xOpt, nil)

	var chol mat.Cholesky
	if ok := chol.Factorize(hess); !ok {
		return nil, core.ErrDegenerateUncertainty
	}
	var cov mat.SymDense
	if err := chol.InverseTo(&cov); err != nil {
		return nil, core.ErrDegenerateUncertainty
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if !finite(cov.At(i, j)) {
				return nil, core.ErrDegenerateUncertainty
			}
		}
	}
	return &cov, nil
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func allFinite(xs []float64) bool {
	for _, x := range xs {
		if !finite(x) {
			return false
		}
	}
	return true
}
