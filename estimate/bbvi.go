package estimate

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"gasx/domain/gas"
	"gasx/domain/model"
)

const (
	// Monte Carlo samples per BBVI iteration.
	bbviSamples = 12
	// Central-difference step for the pathwise gradient.
	bbviFDStep = 1e-4
	// Initial variational log-std per latent variable.
	bbviInitLogStd = -3.0
)

// adamState is the explicit optimizer state threaded through the
// stochastic loop: first/second moment accumulators and the step count.
type adamState struct {
	m, v []float64
	t    int
}

func newAdamState(n int) *adamState {
	return &adamState{m: make([]float64, n), v: make([]float64, n)}
}

// step applies one Adam update with a decaying base rate and returns
// the updated parameters in place.
func (s *adamState) step(params, grad []float64) {
	const (
		beta1 = 0.9
		beta2 = 0.999
		eps   = 1e-8
		lr0   = 0.05
		decay = 0.005
	)
	s.t++
	lr := lr0 / (1.0 + decay*float64(s.t))
	for i := range params {
		s.m[i] = beta1*s.m[i] + (1-beta1)*grad[i]
		s.v[i] = beta2*s.v[i] + (1-beta2)*grad[i]*grad[i]
		mHat := s.m[i] / (1 - math.Pow(beta1, float64(s.t)))
		vHat := s.v[i] / (1 - math.Pow(beta2, float64(s.t)))
		params[i] += lr * mHat / (math.Sqrt(vHat) + eps)
	}
}

// fitBBVI approximates the posterior with an independent Gaussian per
// latent variable, updated by reparameterized pathwise gradients of the
// ELBO. Mini-batching evaluates the likelihood on a random contiguous
// block rescaled to stay unbiased. Non-finite sample evaluations are
// skipped for the gradient step but counted as warnings.
func fitBBVI(rec *gas.Recursion, lvs *model.LatentVariableSet, opts Options) (*FitResult, error) {
	d := lvs.Len()
	res := &FitResult{}

	mean := lvs.StartVector()
	if opts.MapStart {
		// Seed the variational mean at the penalized-ML optimum.
		warm := logPosterior(rec, lvs, true)
		negWarm := func(theta []float64) float64 { return -warm(theta) }
		xOpt, converged := minimize(negWarm, mean)
		mean = xOpt
		if !converged {
			res.Warnings = append(res.Warnings, "map start: "+errNonConvergence)
		}
	}
	logStd := make([]float64, d)
	for i := range logStd {
		logStd[i] = bbviInitLogStd
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	obs := rec.Obs()

	// Log-posterior, optionally on a mini-batch window refreshed every
	// iteration.
	batch := opts.MiniBatch
	var start int
	logPost := func(theta []float64) float64 {
		var (
			ll  float64
			err error
		)
		if batch > 0 {
			ll, _, err = rec.LogLikelihoodWindow(theta, start, batch)
		} else {
			ll, _, err = rec.LogLikelihood(theta)
		}
		if err != nil {
			return negInf
		}
		return ll + lvs.LogPrior(theta)
	}

	state := newAdamState(2 * d)
	params := make([]float64, 2*d)
	copy(params, mean)
	copy(params[d:], logStd)

	skipped := 0
	if opts.RecordELBO {
		res.ELBO = make([]float64, 0, opts.Iterations)
	}

	theta := make([]float64, d)
	grad := make([]float64, 2*d)
	gradTheta := make([]float64, d)
	shifted := make([]float64, d)

	for iter := 0; iter < opts.Iterations; iter++ {
		if batch > 0 {
			start = rng.IntN(obs - batch + 1)
		}
		mean = params[:d]
		logStd = params[d:]

		for i := range grad {
			grad[i] = 0
		}
		elboSum := 0.0
		used := 0

		for s := 0; s < bbviSamples; s++ {
			for i := 0; i < d; i++ {
				theta[i] = mean[i] + math.Exp(logStd[i])*rng.NormFloat64()
			}

			lp := logPost(theta)
			if !finite(lp) {
				skipped++
				continue
			}

			// Pathwise gradient of log p at the sampled theta via
			// central differences.
			ok := true
			for j := 0; j < d; j++ {
				copy(shifted, theta)
				shifted[j] = theta[j] + bbviFDStep
				up := logPost(shifted)
				shifted[j] = theta[j] - bbviFDStep
				down := logPost(shifted)
				if !finite(up) || !finite(down) {
					ok = false
					break
				}
				gradTheta[j] = (up - down) / (2 * bbviFDStep)
			}
			if !ok {
				skipped++
				continue
			}

			lq := 0.0
			for i := 0; i < d; i++ {
				sd := math.Exp(logStd[i])
				lq += distuv.Normal{Mu: mean[i], Sigma: sd}.LogProb(theta[i])
				grad[i] += gradTheta[i]
				// d theta_i / d logStd_i = sd * eps = theta_i - mean_i;
				// the +1 is the entropy gradient of the variational family.
				grad[d+i] += gradTheta[i]*(theta[i]-mean[i]) + 1
			}
			elboSum += lp - lq
			used++
		}

		if used > 0 {
			inv := 1.0 / float64(used)
			for i := range grad {
				grad[i] *= inv
			}
			state.step(params, grad)
		}
		if opts.RecordELBO {
			if used > 0 {
				res.ELBO = append(res.ELBO, elboSum/float64(used))
			} else {
				res.ELBO = append(res.ELBO, negInf)
			}
		}
	}

	mean = params[:d]
	std := make([]float64, d)
	for i := 0; i < d; i++ {
		std[i] = math.Exp(params[d+i])
	}
	lvs.SetGaussian(mean, std)

	if skipped > 0 {
		res.Warnings = append(res.Warnings, warnSkippedSamples(skipped))
	}

	ll, _, err := rec.LogLikelihood(mean)
	if err != nil {
		ll = negInf
	}
	res.LogLikelihood = ll
	return res, nil
}
