package estimate

import (
	"gasx/domain/gas"
	"gasx/domain/model"
)

// fitLaplace is mechanically "PML plus a mandatory Gaussian
// approximation": mode at the penalized optimum, covariance from the
// inverse negative Hessian. The stored Gaussian is the representation
// default prediction intervals draw from when no sampling-based
// estimator was used.
func fitLaplace(rec *gas.Recursion, lvs *model.LatentVariableSet) (*FitResult, error) {
	return fitML(rec, lvs, true, true)
}
