package estimate

import (
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"gasx/domain/core"
	"gasx/domain/family"
	"gasx/domain/gas"
	"gasx/domain/model"
)

// newTestModel builds a recursion plus latent set over a reproducible
// series with an intercept-only design.
func newTestModel(t *testing.T, fam family.Family, n, ar, sc int) (*gas.Recursion, *model.LatentVariableSet) {
	t.Helper()
	rng := rand.New(rand.NewPCG(11, 13))
	y := make([]float64, n)
	for i := range y {
		switch fam.Name() {
		case "poisson":
			y[i] = math.Floor(3 + 3*rng.Float64())
		case "exponential":
			y[i] = 2 + rng.Float64()
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
	return rec, lvs
}

func TestParseMethod(t *testing.T) {
	for _, name := range []string{"MLE", "PML", "Laplace", "BBVI", "M-H"} {
		if _, err := ParseMethod(name); err != nil {
			t.Errorf("method %q should parse: %v", name, err)
		}
	}
	_, err := ParseMethod("EM")
	if err == nil {
		t.Fatal("unknown method should fail fast")
	}
	if !core.IsStructural(err) {
		t.Errorf("expected a structural error, got %v", err)
	}
}

func TestOptions_IncompatibleCombinations(t *testing.T) {
	rec, lvs := newTestModel(t, family.Normal{}, 40, 1, 1)

	opts := DefaultOptions()
	opts.MiniBatch = 10
	if _, err := Fit(MLE, rec, lvs, opts); err == nil {
		t.Error("mini-batch with MLE should fail before fitting")
	}

	opts = DefaultOptions()
	opts.RecordELBO = true
	if _, err := Fit(Metropolis, rec, lvs, opts); err == nil {
		t.Error("ELBO recording with M-H should fail before fitting")
	}

	opts = DefaultOptions()
	opts.MiniBatch = rec.Obs() + 5
	if _, err := Fit(BBVI, rec, lvs, opts); err == nil {
		t.Error("mini-batch larger than the sample should fail")
	}
}

func TestFit_MLEProducesFiniteEstimates(t *testing.T) {
	rec, lvs := newTestModel(t, family.Normal{}, 60, 1, 1)

	res, err := Fit(MLE, rec, lvs, DefaultOptions())
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if !lvs.AllFinite() {
		t.Fatalf("non-finite latent values: %v", lvs.Values())
	}
	if math.IsNaN(res.LogLikelihood) {
		t.Fatal("log-likelihood is NaN")
	}
	if res.RunID == "" {
		t.Error("fit result should carry a run id")
	}
	if res.Obs != rec.Obs() {
		t.Errorf("obs: got %d want %d", res.Obs, rec.Obs())
	}
	if k := lvs.Kind(); k != model.UncertaintyGaussian && k != model.UncertaintyPoint {
		t.Errorf("unexpected uncertainty kind %s", k)
	}
}

func TestFit_PMLShiftsTowardPrior(t *testing.T) {
	// No lag terms, so the intercept alone carries the level and the
	// prior's pull on it is unambiguous.
	recA, lvsA := newTestModel(t, family.Poisson{}, 60, 0, 0)
	if _, err := Fit(MLE, recA, lvsA, DefaultOptions()); err != nil {
		t.Fatalf("mle: %v", err)
	}

	recB, lvsB := newTestModel(t, family.Poisson{}, 60, 0, 0)
	// A near-degenerate prior pins the intercept close to zero.
	if err := lvsB.AdjustPrior(0, model.NormalPrior{Mu: 0, Sigma: 0.01}); err != nil {
		t.Fatalf("adjust prior: %v", err)
	}
	if _, err := Fit(PML, recB, lvsB, DefaultOptions()); err != nil {
		t.Fatalf("pml: %v", err)
	}

	if math.Abs(lvsB.Values()[0]) >= math.Abs(lvsA.Values()[0]) {
		t.Errorf("tight prior should shrink the intercept: MLE %v vs PML %v",
			lvsA.Values()[0], lvsB.Values()[0])
	}
}

func TestFit_LaplaceAlwaysGaussian(t *testing.T) {
	rec, lvs := newTestModel(t, family.Normal{}, 60, 1, 1)

	if _, err := Fit(Laplace, rec, lvs, DefaultOptions()); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if lvs.Kind() != model.UncertaintyGaussian {
		t.Fatalf("laplace must store a gaussian approximation, got %s", lvs.Kind())
	}
}

func TestFit_BBVI(t *testing.T) {
	rec, lvs := newTestModel(t, family.Normal{}, 60, 1, 1)

	opts := DefaultOptions()
	opts.Iterations = 150
	res, err := Fit(BBVI, rec, lvs, opts)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if lvs.Kind() != model.UncertaintyGaussian {
		t.Fatalf("bbvi must store a gaussian approximation, got %s", lvs.Kind())
	}
	for _, lv := range lvs.Vars {
		if lv.Std <= 0 {
			t.Fatalf("bbvi std must be positive, got %v for %s", lv.Std, lv.Name)
		}
	}
	if !lvs.AllFinite() {
		t.Fatalf("non-finite latent values: %v", lvs.Values())
	}
	if math.IsNaN(res.LogLikelihood) {
		t.Fatal("log-likelihood is NaN")
	}
}

func TestFit_BBVIELBORises(t *testing.T) {
	rec, lvs := newTestModel(t, family.Normal{}, 60, 1, 1)

	opts := DefaultOptions()
	opts.Iterations = 500
	opts.RecordELBO = true
	opts.MapStart = false
	res, err := Fit(BBVI, rec, lvs, opts)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if len(res.ELBO) != opts.Iterations {
		t.Fatalf("elbo trajectory length: got %d want %d", len(res.ELBO), opts.Iterations)
	}
	first, last := res.ELBO[0], res.ELBO[len(res.ELBO)-1]
	if !(last > first) {
		t.Errorf("elbo should rise from a cold start: first %v last %v", first, last)
	}
}

func TestFit_BBVIMiniBatch(t *testing.T) {
	rec, lvs := newTestModel(t, family.Normal{}, 80, 1, 1)

	opts := DefaultOptions()
	opts.Iterations = 100
	opts.MiniBatch = 20
	if _, err := Fit(BBVI, rec, lvs, opts); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if !lvs.AllFinite() {
		t.Fatalf("non-finite latent values: %v", lvs.Values())
	}
}

func TestFit_MetropolisEnsemble(t *testing.T) {
	rec, lvs := newTestModel(t, family.Poisson{}, 60, 1, 1)

	opts := DefaultOptions()
	opts.NSims = 2000
	res, err := Fit(Metropolis, rec, lvs, opts)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if lvs.Kind() != model.UncertaintyEnsemble {
		t.Fatalf("m-h must store an ensemble, got %s", lvs.Kind())
	}
	wantDraws := opts.NSims - opts.NSims/2
	for _, lv := range lvs.Vars {
		if len(lv.Draws) != wantDraws {
			t.Fatalf("retained draws: got %d want %d", len(lv.Draws), wantDraws)
		}
	}
	if !lvs.AllFinite() {
		t.Fatalf("non-finite latent values: %v", lvs.Values())
	}
	if math.IsNaN(res.LogLikelihood) {
		t.Fatal("log-likelihood is NaN")
	}
	if res.AcceptanceRate <= 0 || res.AcceptanceRate > 1 {
		t.Errorf("acceptance rate out of range: %v", res.AcceptanceRate)
	}
	for _, w := range res.Warnings {
		if strings.Contains(w, "acceptance rate") {
			t.Errorf("acceptance rate belongs in the result, not warnings: %q", w)
		}
	}
}

func TestFit_SeedReproducibility(t *testing.T) {
	recA, lvsA := newTestModel(t, family.Normal{}, 60, 1, 1)
	recB, lvsB := newTestModel(t, family.Normal{}, 60, 1, 1)

	opts := DefaultOptions()
	opts.Iterations = 80
	opts.Seed = 99
	if _, err := Fit(BBVI, recA, lvsA, opts); err != nil {
		t.Fatalf("fit A: %v", err)
	}
	if _, err := Fit(BBVI, recB, lvsB, opts); err != nil {
		t.Fatalf("fit B: %v", err)
	}
	for i := range lvsA.Vars {
		if lvsA.Vars[i].Mean != lvsB.Vars[i].Mean {
			t.Fatalf("same seed should reproduce the fit: %v vs %v",
				lvsA.Vars[i].Mean, lvsB.Vars[i].Mean)
		}
	}
}
