package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	if !IsDivergence(NewDivergenceError(17)) {
		t.Error("divergence constructor should classify as divergence")
	}
	if !IsStructural(NewMethodError("EM", "unknown method")) {
		t.Error("method errors are structural")
	}
	if !IsStructural(NewHorizonError(5, 2)) {
		t.Error("horizon errors are structural")
	}
	if !IsRecoverable(ErrOptimizerNonConvergence) || !IsRecoverable(ErrDegenerateUncertainty) {
		t.Error("quality warnings are recoverable")
	}
	if IsStructural(ErrDivergentRecursion) {
		t.Error("divergence is not structural")
	}
}

func TestErrorWrappingSurvivesContext(t *testing.T) {
	err := fmt.Errorf("fit failed: %w", NewDivergenceError(3))
	if !errors.Is(err, ErrDivergentRecursion) {
		t.Error("wrapped divergence should still match the sentinel")
	}
}
