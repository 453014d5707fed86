package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Numerical failure inside the state recursion. Estimators absorb this
	// as an objective of -Inf; it must never escape a fit call as a crash.
	ErrDivergentRecursion = errors.New("divergent recursion: non-finite log-likelihood")

	// Estimation quality issues. Both are recoverable: the fit still returns.
	ErrOptimizerNonConvergence = errors.New("optimizer did not converge")
	ErrDegenerateUncertainty   = errors.New("hessian inversion failed, standard errors unavailable")

	// Structural misconfiguration. These fail fast, before any computation.
	ErrInvalidMethodOption       = errors.New("invalid fit method or option combination")
	ErrInsufficientExogenousData = errors.New("forecast horizon exceeds supplied exogenous rows")
	ErrInsufficientData          = errors.New("insufficient data for analysis")
)

// Error constructors with context
func NewMethodError(method string, reason string) error {
	return fmt.Errorf("%w: method %q: %s", ErrInvalidMethodOption, method, reason)
}

func NewHorizonError(h, supplied int) error {
	return fmt.Errorf("%w: need %d rows, got %d", ErrInsufficientExogenousData, h, supplied)
}

func NewDivergenceError(t int) error {
	return fmt.Errorf("%w: at time index %d", ErrDivergentRecursion, t)
}

// Error checking helpers
func IsDivergence(err error) bool {
	return errors.Is(err, ErrDivergentRecursion)
}

func IsRecoverable(err error) bool {
	return errors.Is(err, ErrOptimizerNonConvergence) ||
		errors.Is(err, ErrDegenerateUncertainty)
}

func IsStructural(err error) bool {
	return errors.Is(err, ErrInvalidMethodOption) ||
		errors.Is(err, ErrInsufficientExogenousData) ||
		errors.Is(err, ErrInsufficientData)
}
