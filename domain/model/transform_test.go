package model

import (
	"math"
	"testing"
)

func TestTransform_ApplyInvertRoundTrip(t *testing.T) {
	cases := []struct {
		tr Transform
		xs []float64
	}{
		{TransformIdentity, []float64{-5, 0, 2.5}},
		{TransformExp, []float64{-3, 0, 1.7}},
		{TransformLogit, []float64{-4, 0, 3}},
	}
	for _, c := range cases {
		for _, x := range c.xs {
			got := c.tr.Invert(c.tr.Apply(x))
			if math.Abs(got-x) > 1e-10 {
				t.Errorf("%s: round trip of %v gave %v", c.tr, x, got)
			}
		}
	}
}

func TestTransformExp_AlwaysPositive(t *testing.T) {
	for _, x := range []float64{-50, -1, 0, 1, 50} {
		if v := TransformExp.Apply(x); v <= 0 {
			t.Errorf("exp transform of %v gave non-positive %v", x, v)
		}
	}
}

func TestTransformLogit_BoundedUnitInterval(t *testing.T) {
	for _, x := range []float64{-30, -1, 0, 1, 30} {
		v := TransformLogit.Apply(x)
		if v <= 0 || v >= 1 {
			t.Errorf("logit transform of %v gave out-of-range %v", x, v)
		}
	}
}
