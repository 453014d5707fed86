// Package formula turns a model formula string ("y ~ x1 + x2") and a
// tabular dataset into a response vector and a design matrix. Column
// order is stable across calls on the same formula, so fitted
// coefficients stay aligned between fit and predict.
package formula

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"gasx/internal/dataset"
)

// InterceptName is the design-matrix column name for the implicit
// constant term.
const InterceptName = "Constant"

// Spec is a parsed formula: one response, ordered regressors, and an
// implicit leading intercept column.
type Spec struct {
	Response   string
	Regressors []string
}

// Parse splits a formula of the form "y ~ x1 + x2". "y ~ 1" declares a
// response with no exogenous regressors beyond the intercept.
func Parse(input string) (*Spec, error) {
	parts := strings.Split(input, "~")
	if len(parts) != 2 {
		return nil, fmt.Errorf("formula %q: expected exactly one ~", input)
	}
	response := strings.TrimSpace(parts[0])
	if response == "" {
		return nil, fmt.Errorf("formula %q: empty response", input)
	}

	var regressors []string
	for _, term := range strings.Split(parts[1], "+") {
		term = strings.TrimSpace(term)
		if term == "" {
			return nil, fmt.Errorf("formula %q: empty term", input)
		}
		if term == "1" {
			continue // intercept is implicit
		}
		regressors = append(regressors, term)
	}
	return &Spec{Response: response, Regressors: regressors}, nil
}

// ColumnNames returns the design-matrix column names in layout order.
func (s *Spec) ColumnNames() []string {
	names := make([]string, 0, len(s.Regressors)+1)
	names = append(names, InterceptName)
	return append(names, s.Regressors...)
}

// Build evaluates the spec against a table, returning the response
// vector and the design matrix (leading intercept column of ones).
func (s *Spec) Build(t *dataset.Table) (y []float64, x *mat.Dense, err error) {
	yCol, ok := t.Column(s.Response)
	if !ok {
		return nil, nil, fmt.Errorf("response column %q not in dataset", s.Response)
	}

	rows := t.Rows()
	cols := len(s.Regressors) + 1
	x = mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		x.Set(i, 0, 1.0)
	}
	for j, name := range s.Regressors {
		col, ok := t.Column(name)
		if !ok {
			return nil, nil, fmt.Errorf("regressor column %q not in dataset", name)
		}
		for i := 0; i < rows; i++ {
			x.Set(i, j+1, col[i])
		}
	}

	y = make([]float64, rows)
	copy(y, yCol)
	return y, x, nil
}
