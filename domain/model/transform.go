package model

import "math"

// Transform maps an unconstrained optimizer variable to its natural
// parameter space. Every transform is monotonic and invertible:
// estimators always work in unconstrained space, display values and
// simulation inputs are always natural.
type Transform string

const (
	TransformIdentity Transform = "identity"
	TransformExp      Transform = "exp"
	TransformLogit    Transform = "logit"
)

// Apply maps an unconstrained value into natural space.
func (tr Transform) Apply(x float64) float64 {
	switch tr {
	case TransformExp:
		return math.Exp(x)
	case TransformLogit:
		return 1.0 / (1.0 + math.Exp(-x))
	default:
		return x
	}
}

// Invert maps a natural-space value back to unconstrained space.
func (tr Transform) Invert(v float64) float64 {
	switch tr {
	case TransformExp:
		return math.Log(v)
	case TransformLogit:
		return math.Log(v / (1.0 - v))
	default:
		return v
	}
}
