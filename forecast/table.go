// Package forecast produces point forecasts, one-step-ahead in-sample
// forecasts, simulation-based prediction intervals, posterior
// predictive samples and the PPC p-value for a fitted model.
package forecast

import (
	"math"
	"sort"
)

// Fixed interval column names. These strings are part of the public
// compatibility surface; downstream consumers select columns by them.
const (
	Interval1  = "1% Prediction Interval"
	Interval5  = "5% Prediction Interval"
	Interval95 = "95% Prediction Interval"
	Interval99 = "99% Prediction Interval"
)

// Table is a small column-ordered result frame: one row per forecast
// step.
type Table struct {
	Columns []string
	Values  [][]float64 // Values[row][col]
}

// Rows returns the number of forecast steps.
func (t *Table) Rows() int { return len(t.Values) }

// Column returns the values of a named column, or nil when absent.
func (t *Table) Column(name string) []float64 {
	for j, c := range t.Columns {
		if c == name {
			out := make([]float64, len(t.Values))
			for i := range t.Values {
				out[i] = t.Values[i][j]
			}
			return out
		}
	}
	return nil
}

// HasNaN reports whether any cell is NaN.
func (t *Table) HasNaN() bool {
	for _, row := range t.Values {
		for _, v := range row {
			if math.IsNaN(v) {
				return true
			}
		}
	}
	return false
}

// quantile returns the empirical q-quantile (0 <= q <= 1) using linear
// interpolation between order statistics.
func quantile(samples []float64, q float64) float64 {
	n := len(samples)
	if n == 0 {
		return math.NaN()
	}

	tmp := make([]float64, n)
	copy(tmp, samples)
	sort.Float64s(tmp)

	if q <= 0 {
		return tmp[0]
	}
	if q >= 1 {
		return tmp[n-1]
	}

	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return tmp[lo]
	}
	w := pos - float64(lo)
	return tmp[lo]*(1.0-w) + tmp[hi]*w
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
