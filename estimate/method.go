// Package estimate provides the four interchangeable inference
// procedures that turn a state recursion plus a latent variable set
// into a fitted model: MLE/PML point estimation, Laplace approximation,
// black-box variational inference, and Metropolis-Hastings sampling.
package estimate

import (
	"fmt"
	"time"

	"gasx/domain/core"
	"gasx/domain/gas"
	"gasx/domain/model"
)

// Method selects an estimation procedure. The string values are part of
// the public fit surface.
type Method string

const (
	MLE        Method = "MLE"
	PML        Method = "PML"
	Laplace    Method = "Laplace"
	BBVI       Method = "BBVI"
	Metropolis Method = "M-H"
)

// ParseMethod resolves a method name, failing fast on unknown tags.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MLE, PML, Laplace, BBVI, Metropolis:
		return Method(s), nil
	default:
		return "", core.NewMethodError(s, "unknown method")
	}
}

// Options carries method-specific settings. Zero values select the
// defaults from DefaultOptions.
type Options struct {
	// BBVI settings.
	Iterations int
	MiniBatch  int
	RecordELBO bool
	MapStart   bool

	// M-H settings.
	NSims int

	// Seed makes every stochastic procedure reproducible.
	Seed uint64
}

// DefaultOptions returns the defaults used when the caller passes no
// overrides: BBVI warm-started at the PML optimum, no mini-batching.
func DefaultOptions() Options {
	return Options{
		Iterations: 1000,
		MapStart:   true,
		NSims:      10000,
		Seed:       1,
	}
}

// validate rejects incompatible method/option combinations before any
// computation runs.
func (o Options) validate(m Method, obs int) error {
	switch m {
	case BBVI:
		if o.Iterations <= 0 {
			return core.NewMethodError(string(m), "iterations must be positive")
		}
		if o.MiniBatch < 0 || o.MiniBatch >= obs {
			if o.MiniBatch != 0 {
				return core.NewMethodError(string(m), "mini-batch size must be in (0, observations)")
			}
		}
	case Metropolis:
		if o.NSims <= 0 {
			return core.NewMethodError(string(m), "nsims must be positive")
		}
		if o.MiniBatch != 0 {
			return core.NewMethodError(string(m), "mini-batch is only supported by BBVI")
		}
		if o.RecordELBO {
			return core.NewMethodError(string(m), "ELBO recording is only supported by BBVI")
		}
	default:
		if o.MiniBatch != 0 {
			return core.NewMethodError(string(m), "mini-batch is only supported by BBVI")
		}
		if o.RecordELBO {
			return core.NewMethodError(string(m), "ELBO recording is only supported by BBVI")
		}
	}
	return nil
}

// FitResult summarizes one successful estimator run. It is immutable
// once returned; fitting again replaces it wholesale.
type FitResult struct {
	RunID  core.RunID
	Method Method

	// LogLikelihood is the data log-likelihood at the point estimate.
	LogLikelihood float64

	// ELBO is the recorded trajectory, present only for BBVI runs with
	// RecordELBO set.
	ELBO []float64

	// SEUnavailable marks a failed Hessian inversion: estimation still
	// succeeded but standard errors could not be derived.
	SEUnavailable bool

	// AcceptanceRate is the M-H proposal acceptance fraction, zero for
	// the other methods.
	AcceptanceRate float64

	Warnings []string
	Runtime  time.Duration
	Obs      int
}

// Fit resolves the method tag once and runs the matching estimator.
// The latent variable set is the caller's mutable handle: converged
// values and the uncertainty representation are written back into it.
func Fit(m Method, rec *gas.Recursion, lvs *model.LatentVariableSet, opts Options) (*FitResult, error) {
	if err := opts.validate(m, rec.Obs()); err != nil {
		return nil, err
	}

	started := time.Now()
	var (
		res *FitResult
		err error
	)
	switch m {
	case MLE:
		res, err = fitML(rec, lvs, false, false)
	case PML:
		res, err = fitML(rec, lvs, true, false)
	case Laplace:
		res, err = fitLaplace(rec, lvs)
	case BBVI:
		res, err = fitBBVI(rec, lvs, opts)
	case Metropolis:
		res, err = fitMetropolis(rec, lvs, opts)
	default:
		return nil, core.NewMethodError(string(m), "unknown method")
	}
	if err != nil {
		return nil, err
	}
	res.RunID = core.NewRunID()
	res.Method = m
	res.Runtime = time.Since(started)
	res.Obs = rec.Obs()
	return res, nil
}

var errNonConvergence = core.ErrOptimizerNonConvergence.Error()

func warnSkippedSamples(n int) string {
	return fmt.Sprintf("bbvi: %d non-finite sample evaluations skipped", n)
}

// logPosterior builds the objective shared by every estimator: data
// log-likelihood plus (optionally) the latent priors, with recursion
// divergence absorbed as -Inf.
func logPosterior(rec *gas.Recursion, lvs *model.LatentVariableSet, usePriors bool) func(theta []float64) float64 {
	return func(theta []float64) float64 {
		ll, _, err := rec.LogLikelihood(theta)
		if err != nil {
			return negInf
		}
		if usePriors {
			ll += lvs.LogPrior(theta)
		}
		return ll
	}
}
