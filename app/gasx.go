// Package app exposes the public model surface: construct a GASX model
// from a formula, a dataset, lag orders and a family, then fit,
// forecast, sample and diagnose it.
package app

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"gasx/domain/family"
	"gasx/domain/gas"
	"gasx/domain/model"
	"gasx/estimate"
	"gasx/forecast"
	"gasx/internal/dataset"
	"gasx/internal/formula"
)

// GASX is a score-driven time-series model with exogenous regressors.
//
// The latent variable set is created once at construction and owned
// exclusively by the model; each Fit call mutates it in place and
// replaces the previous result. Concurrent Fit calls on the same model
// are not supported and must be serialized by the caller.
type GASX struct {
	Formula string
	AR      int
	SC      int

	fam  family.Family
	spec *formula.Spec
	rec  *gas.Recursion
	lvs  *model.LatentVariableSet
	fit  *estimate.FitResult

	// Seed drives every stochastic procedure; Sims sizes interval
	// simulations (zero means the forecast default).
	Seed uint64
	Sims int
}

// NewGASX builds a model. The latent variable count follows the closed
// form: intercept + regressors + ar + sc + family shape parameters.
func NewGASX(formulaStr string, data *dataset.Table, ar, sc int, fam family.Family) (*GASX, error) {
	spec, err := formula.Parse(formulaStr)
	if err != nil {
		return nil, err
	}
	y, x, err := spec.Build(data)
	if err != nil {
		return nil, err
	}
	rec, err := gas.NewRecursion(y, x, ar, sc, fam)
	if err != nil {
		return nil, err
	}
	lvs, err := rec.BuildLatentVariables(spec.ColumnNames())
	if err != nil {
		return nil, err
	}
	return &GASX{
		Formula: formulaStr,
		AR:      ar,
		SC:      sc,
		fam:     fam,
		spec:    spec,
		rec:     rec,
		lvs:     lvs,
		Seed:    1,
	}, nil
}

// LatentVariables returns the model's latent variable set.
func (m *GASX) LatentVariables() *model.LatentVariableSet { return m.lvs }

// Result returns the latest fit result, nil before the first fit.
func (m *GASX) Result() *estimate.FitResult { return m.fit }

// Recursion exposes the underlying state recursion.
func (m *GASX) Recursion() *gas.Recursion { return m.rec }

// Fit estimates the latent variables with the named method. A nil opts
// selects the defaults. Unknown methods and incompatible options fail
// before any computation runs.
func (m *GASX) Fit(method string, opts *estimate.Options) (*estimate.FitResult, error) {
	parsed, err := estimate.ParseMethod(method)
	if err != nil {
		return nil, err
	}
	o := estimate.DefaultOptions()
	if opts != nil {
		o = *opts
	}
	if o.Seed == 0 {
		o.Seed = m.Seed
	}
	res, err := estimate.Fit(parsed, m.rec, m.lvs, o)
	if err != nil {
		return nil, err
	}
	m.fit = res
	return res, nil
}

// Predict forecasts h steps past the fitted sample. oos must contain
// the formula's columns with at least h rows of future regressor
// values.
func (m *GASX) Predict(h int, oos *dataset.Table, intervals bool) (*forecast.Table, error) {
	if err := m.requireFit(); err != nil {
		return nil, err
	}
	_, x, err := m.spec.Build(oos)
	if err != nil {
		return nil, err
	}
	return m.forecaster().Predict(h, x, intervals)
}

// PredictIS produces one-step-ahead forecasts over the last h observed
// points.
func (m *GASX) PredictIS(h int, intervals bool) (*forecast.Table, error) {
	if err := m.requireFit(); err != nil {
		return nil, err
	}
	return m.forecaster().PredictIS(h, intervals)
}

// Sample draws nsims posterior predictive in-sample paths, one column
// per modeled observation.
func (m *GASX) Sample(nsims int) (*mat.Dense, error) {
	if err := m.requireFit(); err != nil {
		return nil, err
	}
	return m.forecaster().Sample(nsims)
}

// PPC computes the posterior predictive p-value with nsims simulated
// paths.
func (m *GASX) PPC(nsims int) (float64, error) {
	if err := m.requireFit(); err != nil {
		return 0, err
	}
	return m.forecaster().PPC(nsims)
}

func (m *GASX) forecaster() *forecast.Forecaster {
	return &forecast.Forecaster{
		Rec:       m.rec,
		LVS:       m.lvs,
		PointName: m.spec.Response,
		Sims:      m.Sims,
		Seed:      m.Seed,
	}
}

func (m *GASX) requireFit() error {
	if m.fit == nil {
		return fmt.Errorf("model has not been fitted")
	}
	return nil
}
