package estimate

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"gasx/domain/core"
	"gasx/domain/gas"
	"gasx/domain/model"
)

// rejectionWarnStretch is the length of an all-rejected run that
// triggers a degenerate-scale quality warning.
const rejectionWarnStretch = 500

// fitMetropolis runs a Gaussian random-walk Metropolis-Hastings chain
// in unconstrained space. The chain starts at the penalized-ML optimum
// and the proposal is calibrated from the Laplace covariance, scaled by
// 2.38/sqrt(d), so acceptance stays reasonable without manual tuning.
// The first half of the chain is discarded as burn-in and the remainder
// is retained as the posterior ensemble.
func fitMetropolis(rec *gas.Recursion, lvs *model.LatentVariableSet, opts Options) (*FitResult, error) {
	res := &FitResult{}
	d := lvs.Len()

	objective := logPosterior(rec, lvs, true)
	negObjective := func(theta []float64) float64 { return -objective(theta) }

	x0, converged := minimize(negObjective, lvs.StartVector())
	if !converged {
		res.Warnings = append(res.Warnings, "chain start: "+errNonConvergence)
	}

	propChol, err := proposalCholesky(negObjective, x0, d)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0xda3e39cb94b95bdb))

	current := make([]float64, d)
	copy(current, x0)
	currentLP := objective(current)

	draws := make([][]float64, 0, opts.NSims)
	proposal := make([]float64, d)
	z := make([]float64, d)

	accepted := 0
	rejectStreak := 0
	degenerate := false

	for i := 0; i < opts.NSims; i++ {
		for j := range z {
			z[j] = rng.NormFloat64()
		}
		for j := 0; j < d; j++ {
			step := 0.0
			for k := 0; k <= j; k++ {
				step += propChol.At(j, k) * z[k]
			}
			proposal[j] = current[j] + step
		}

		propLP := objective(proposal)
		// Rejected proposals, including divergent ones, are absorbed
		// here; they never abort the chain.
		if propLP-currentLP > math.Log(rng.Float64()) {
			copy(current, proposal)
			currentLP = propLP
			accepted++
			rejectStreak = 0
		} else {
			rejectStreak++
			if rejectStreak >= rejectionWarnStretch {
				degenerate = true
			}
		}

		draw := make([]float64, d)
		copy(draw, current)
		draws = append(draws, draw)
	}

	if degenerate {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("degenerate proposal scale: %d consecutive rejections", rejectionWarnStretch))
	}
	res.AcceptanceRate = float64(accepted) / float64(opts.NSims)

	burn := opts.NSims / 2
	lvs.SetEnsemble(draws[burn:])

	ll, _, llErr := rec.LogLikelihood(lvs.MeanVector())
	if llErr != nil {
		ll = negInf
	}
	res.LogLikelihood = ll
	return res, nil
}

// proposalCholesky calibrates the random-walk step from the Laplace
// covariance at the mode. When the Hessian is unusable it falls back to
// a small isotropic step, reported as a warning rather than a failure.
func proposalCholesky(negObjective func([]float64) float64, xOpt []float64, d int) (*mat.TriDense, error) {
	scale := 2.38 / math.Sqrt(float64(d))

	cov, err := covariance(negObjective, xOpt)
	if err == nil {
		scaled := mat.NewSymDense(d, nil)
		for i := 0; i < d; i++ {
			for j := i; j < d; j++ {
				scaled.SetSym(i, j, cov.At(i, j)*scale*scale)
			}
		}
		var chol mat.Cholesky
		if chol.Factorize(scaled) {
			l := mat.NewTriDense(d, mat.Lower, nil)
			chol.LTo(l)
			return l, nil
		}
	}

	if err == nil {
		err = core.ErrDegenerateUncertainty
	}
	l := mat.NewTriDense(d, mat.Lower, nil)
	for i := 0; i < d; i++ {
		l.SetTri(i, i, 0.1*scale)
	}
	return l, fmt.Errorf("proposal fallback to isotropic scale: %v", err)
}
