package forecast

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/mat"

	"gasx/domain/family"
	"gasx/domain/gas"
	"gasx/estimate"
)

// fittedForecaster fits a model on a reproducible series and wraps it
// in a forecaster with a small simulation count to keep tests fast.
func fittedForecaster(t *testing.T, fam family.Family, n, ar, sc int) *Forecaster {
	t.Helper()
	rng := rand.New(rand.NewPCG(21, 23))
	y := make([]float64, n)
	for i := range y {
		switch fam.Name() {
		case "poisson":
			y[i] = math.Floor(3 + 3*rng.Float64())
		default:
			y[i] = 2 + 0.3*rng.NormFloat64()
		}
	}
	x := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
	}

	rec, err := gas.NewRecursion(y, x, ar, sc, fam)
	if err != nil {
		t.Fatalf("recursion: %v", err)
	}
	lvs, err := rec.BuildLatentVariables([]string{"Constant"})
	if err != nil {
		t.Fatalf("latent variables: %v", err)
	}
	if _, err := estimate.Fit(estimate.Laplace, rec, lvs, estimate.DefaultOptions()); err != nil {
		t.Fatalf("fit: %v", err)
	}
	return &Forecaster{Rec: rec, LVS: lvs, PointName: "y", Sims: 300, Seed: 7}
}

func onesDesign(rows int) *mat.Dense {
	x := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		x.Set(i, 0, 1)
	}
	return x
}

func TestPredict_PointOnly(t *testing.T) {
	f := fittedForecaster(t, family.Normal{}, 60, 1, 1)

	table, err := f.Predict(5, onesDesign(5), false)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if table.Rows() != 5 {
		t.Fatalf("rows: got %d want 5", table.Rows())
	}
	if len(table.Columns) != 1 || table.Columns[0] != "y" {
		t.Fatalf("columns: %v", table.Columns)
	}
	if table.HasNaN() {
		t.Fatal("point forecast contains NaN")
	}
}

func TestPredict_LagTermsMoveTheForecast(t *testing.T) {
	f := fittedForecaster(t, family.Normal{}, 60, 1, 1)

	table, err := f.Predict(6, onesDesign(6), false)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	point := table.Column("y")
	allEqual := true
	for _, v := range point[1:] {
		if v != point[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		t.Errorf("with lag terms the forecast should vary across steps: %v", point)
	}
}

func TestPredict_IntervalBandsNested(t *testing.T) {
	f := fittedForecaster(t, family.Normal{}, 60, 1, 1)

	table, err := f.Predict(4, onesDesign(4), true)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if table.HasNaN() {
		t.Fatal("interval forecast contains NaN")
	}
	want := []string{"y", Interval1, Interval5, Interval95, Interval99}
	for i, name := range want {
		if table.Columns[i] != name {
			t.Fatalf("columns: got %v want %v", table.Columns, want)
		}
	}
	assertStrictNesting(t, table)
}

// assertStrictNesting checks the interval bands widen strictly at every
// forecast step.
func assertStrictNesting(t *testing.T, table *Table) {
	t.Helper()
	q1 := table.Column(Interval1)
	q5 := table.Column(Interval5)
	q95 := table.Column(Interval95)
	q99 := table.Column(Interval99)
	for k := range q1 {
		if !(q1[k] < q5[k] && q5[k] < q95[k] && q95[k] < q99[k]) {
			t.Fatalf("bands not strictly nested at step %d: %v %v %v %v", k, q1[k], q5[k], q95[k], q99[k])
		}
	}
}

// A count model with lag terms must keep its simulated bands strictly
// ordered: unstable posterior draws would pin the low percentiles to
// zero while inflating the high ones.
func TestPredict_PoissonBandsStrictlyNested(t *testing.T) {
	n := 200
	rng := rand.New(rand.NewPCG(29, 31))
	y := make([]float64, n)
	for i := range y {
		y[i] = math.Floor(16 + 8*rng.Float64())
	}
	rec, err := gas.NewRecursion(y, onesDesign(n), 1, 1, family.Poisson{})
	if err != nil {
		t.Fatalf("recursion: %v", err)
	}
	lvs, err := rec.BuildLatentVariables([]string{"Constant"})
	if err != nil {
		t.Fatalf("latent variables: %v", err)
	}
	if _, err := estimate.Fit(estimate.Laplace, rec, lvs, estimate.DefaultOptions()); err != nil {
		t.Fatalf("fit: %v", err)
	}
	f := &Forecaster{Rec: rec, LVS: lvs, PointName: "y", Sims: 1000, Seed: 7}

	oos, err := f.Predict(10, onesDesign(10), true)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	assertStrictNesting(t, oos)

	is, err := f.PredictIS(10, true)
	if err != nil {
		t.Fatalf("predict-is: %v", err)
	}
	assertStrictNesting(t, is)
}

func TestPredict_HorizonExceedsExogenousRows(t *testing.T) {
	f := fittedForecaster(t, family.Normal{}, 60, 1, 1)
	if _, err := f.Predict(5, onesDesign(3), false); err == nil {
		t.Fatal("horizon beyond supplied rows should fail")
	}
	if _, err := f.Predict(0, onesDesign(3), false); err == nil {
		t.Fatal("zero horizon should fail")
	}
}

func TestPredict_DegenerateZeroDrawBands(t *testing.T) {
	f := fittedForecaster(t, family.Normal{}, 60, 1, 1)
	f.Sims = -1

	table, err := f.Predict(3, onesDesign(3), true)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	point := table.Column("y")
	for _, name := range []string{Interval1, Interval5, Interval95, Interval99} {
		band := table.Column(name)
		for k := range band {
			if band[k] != point[k] {
				t.Fatalf("degenerate band %s should collapse onto the point forecast", name)
			}
		}
	}
}

func TestPredictIS(t *testing.T) {
	f := fittedForecaster(t, family.Poisson{}, 60, 1, 1)

	table, err := f.PredictIS(8, true)
	if err != nil {
		t.Fatalf("predict-is: %v", err)
	}
	if table.Rows() != 8 {
		t.Fatalf("rows: got %d want 8", table.Rows())
	}
	if table.HasNaN() {
		t.Fatal("in-sample forecast contains NaN")
	}

	if _, err := f.PredictIS(f.Rec.Obs()+1, false); err == nil {
		t.Fatal("horizon beyond the fitted sample should fail")
	}
}

func TestSample_Dimensions(t *testing.T) {
	f := fittedForecaster(t, family.Normal{}, 50, 1, 1)

	sims, err := f.Sample(25)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	rows, cols := sims.Dims()
	if rows != 25 || cols != f.Rec.Obs() {
		t.Fatalf("dims: got %dx%d want 25x%d", rows, cols, f.Rec.Obs())
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if math.IsNaN(sims.At(i, j)) {
				t.Fatalf("sample contains NaN at %d,%d", i, j)
			}
		}
	}
}

func TestPPC_InUnitInterval(t *testing.T) {
	f := fittedForecaster(t, family.Normal{}, 50, 1, 1)

	p, err := f.PPC(200)
	if err != nil {
		t.Fatalf("ppc: %v", err)
	}
	if p < 0 || p > 1 {
		t.Fatalf("ppc p-value out of range: %v", p)
	}
}

func TestQuantile_Interpolates(t *testing.T) {
	samples := []float64{4, 1, 3, 2}
	if got := quantile(samples, 0.5); got != 2.5 {
		t.Errorf("median: got %v want 2.5", got)
	}
	if got := quantile(samples, 0); got != 1 {
		t.Errorf("min: got %v", got)
	}
	if got := quantile(samples, 1); got != 4 {
		t.Errorf("max: got %v", got)
	}
	if got := quantile(nil, 0.5); !math.IsNaN(got) {
		t.Errorf("empty sample should give NaN, got %v", got)
	}
}

func TestLatentUncertaintyWidensEnsembleForecast(t *testing.T) {
	f := fittedForecaster(t, family.Normal{}, 60, 1, 1)

	// Force a wide Gaussian approximation and verify the simulated
	// bands react to parameter uncertainty, not just observation noise.
	means := f.LVS.MeanVector()
	wide := make([]float64, len(means))
	for i := range wide {
		wide[i] = 0.5
	}
	narrow := make([]float64, len(means))
	for i := range narrow {
		narrow[i] = 1e-6
	}

	f.LVS.SetGaussian(means, narrow)
	narrowTable, err := f.Predict(3, onesDesign(3), true)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	f.LVS.SetGaussian(means, wide)
	wideTable, err := f.Predict(3, onesDesign(3), true)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}

	narrowSpread := narrowTable.Column(Interval99)[0] - narrowTable.Column(Interval1)[0]
	wideSpread := wideTable.Column(Interval99)[0] - wideTable.Column(Interval1)[0]
	if wideSpread <= narrowSpread {
		t.Errorf("wider parameter uncertainty should widen the bands: %v vs %v", wideSpread, narrowSpread)
	}
}
