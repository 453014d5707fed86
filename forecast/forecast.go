package forecast

import (
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"gasx/domain/core"
	"gasx/domain/gas"
	"gasx/domain/model"
)

// DefaultSims is the number of simulated paths behind interval bands
// when the caller does not override it.
const DefaultSims = 2000

// Forecaster propagates a fitted model forward by Monte Carlo
// simulation through the state recursion.
type Forecaster struct {
	Rec *gas.Recursion
	LVS *model.LatentVariableSet

	// PointName labels the point-forecast column, normally the response
	// variable name.
	PointName string

	// Sims is the simulated path count for interval bands; zero means
	// DefaultSims. A negative value requests the degenerate zero-draw
	// mode in which every band collapses onto the point forecast.
	Sims int
	Seed uint64
}

func (f *Forecaster) sims() int {
	if f.Sims == 0 {
		return DefaultSims
	}
	return f.Sims
}

// Predict extends the recursion h steps past the fitted sample,
// consuming one exogenous design row per step. The point forecast is
// the deterministic propagation with future scaled scores at their
// expected value of zero. With intervals enabled, simulated future
// paths (parameter draw per path, sampled observation per step feeding
// the score recursion) produce 1/5/95/99-percentile bands.
func (f *Forecaster) Predict(h int, oosX *mat.Dense, intervals bool) (*Table, error) {
	if h < 1 {
		return nil, fmt.Errorf("horizon must be >= 1, got %d", h)
	}
	rows, _ := oosX.Dims()
	if rows < h {
		return nil, core.NewHorizonError(h, rows)
	}

	theta := f.LVS.MeanVector()
	_, hist, err := f.Rec.LogLikelihood(theta)
	if err != nil {
		return nil, fmt.Errorf("point forecast: %w", err)
	}

	c := f.Rec.Unpack(theta)
	point := make([]float64, h)
	signals := append([]float64(nil), hist.Signal...)
	scores := append([]float64(nil), hist.Scores...)
	for k := 0; k < h; k++ {
		xrow := rowOf(oosX, k)
		sig := gas.StepSignal(c, xrow, signals, scores)
		signals = append(signals, sig)
		scores = append(scores, 0)
		point[k] = f.Rec.Family().Mean(sig)
	}

	if !intervals {
		return &Table{
			Columns: []string{f.PointName},
			Values:  columnize(point),
		}, nil
	}

	sims, err := f.simulate(h, func(c gas.Coeffs, hist *gas.Path, rng *rand.Rand, out []float64) error {
		signals := append([]float64(nil), hist.Signal...)
		scores := append([]float64(nil), hist.Scores...)
		for k := 0; k < h; k++ {
			sig := gas.StepSignal(c, rowOf(oosX, k), signals, scores)
			if !finite(sig) {
				return core.NewDivergenceError(k)
			}
			y := f.Rec.Family().Sample(sig, c.Shape, rng)
			score := f.Rec.ScaledScore(c, y, sig)
			if !finite(y) || math.IsNaN(score) {
				return core.NewDivergenceError(k)
			}
			signals = append(signals, sig)
			scores = append(scores, score)
			out[k] = y
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f.bandTable(point, sims), nil
}

// PredictIS produces genuinely one-step-ahead forecasts over the last h
// already-observed points, reusing the existing fit. Because the state
// is deterministic given history, the one-step-ahead signal for index t
// is the fitted signal at t, which never conditions on the observation
// being forecast.
func (f *Forecaster) PredictIS(h int, intervals bool) (*Table, error) {
	if h < 1 {
		return nil, fmt.Errorf("horizon must be >= 1, got %d", h)
	}
	obs := f.Rec.Obs()
	if h > obs {
		return nil, fmt.Errorf("%w: horizon %d exceeds %d fitted observations",
			core.ErrInsufficientData, h, obs)
	}

	theta := f.LVS.MeanVector()
	_, hist, err := f.Rec.LogLikelihood(theta)
	if err != nil {
		return nil, fmt.Errorf("in-sample forecast: %w", err)
	}

	point := make([]float64, h)
	for k := 0; k < h; k++ {
		point[k] = f.Rec.Family().Mean(hist.Signal[obs-h+k])
	}

	if !intervals {
		return &Table{
			Columns: []string{f.PointName},
			Values:  columnize(point),
		}, nil
	}

	sims, err := f.simulate(h, func(c gas.Coeffs, hist *gas.Path, rng *rand.Rand, out []float64) error {
		for k := 0; k < h; k++ {
			y := f.Rec.Family().Sample(hist.Signal[obs-h+k], c.Shape, rng)
			if !finite(y) {
				return core.NewDivergenceError(k)
			}
			out[k] = y
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return f.bandTable(point, sims), nil
}

// simulate fans nsims independent paths across workers. Each path gets
// a child seed derived from the master seed up front and writes only
// its own row, so results do not depend on scheduling order. A
// negative Sims setting short-circuits to zero paths.
func (f *Forecaster) simulate(h int, step func(c gas.Coeffs, hist *gas.Path, rng *rand.Rand, out []float64) error) ([][]float64, error) {
	n := f.sims()
	if n < 0 {
		return nil, nil
	}

	master := rand.New(rand.NewPCG(f.Seed, f.Seed^0xa0761d6478bd642f))
	seeds := make([]uint64, n)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	sims := make([][]float64, n)
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for p := 0; p < n; p++ {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seeds[p], seeds[p]^0xe7037ed1a0b428db))
			out := make([]float64, h)
			if err := f.runPath(f.stableDraw(rng), rng, out, step); err != nil {
				// A draw that diverges anyway, on history or going
				// forward, falls back to the point estimate for this
				// path.
				if err := f.runPath(f.LVS.MeanVector(), rng, out, step); err != nil {
					return err
				}
			}
			sims[p] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sims, nil
}

// stableDrawAttempts caps redraws before falling back to the point
// estimate.
const stableDrawAttempts = 50

// stableDraw samples parameter vectors until the absolute AR weights
// sum below one. Draws outside that region make forward paths grow
// geometrically instead of fluctuating around the fitted level.
func (f *Forecaster) stableDraw(rng *rand.Rand) []float64 {
	for i := 0; i < stableDrawAttempts; i++ {
		theta := f.LVS.Draw(rng)
		sum := 0.0
		for _, phi := range f.Rec.Unpack(theta).AR {
			sum += math.Abs(phi)
		}
		if sum < 1 {
			return theta
		}
	}
	return f.LVS.MeanVector()
}

// runPath evaluates the recursion on history at theta and hands the
// resulting state to the forward step.
func (f *Forecaster) runPath(theta []float64, rng *rand.Rand, out []float64, step func(c gas.Coeffs, hist *gas.Path, rng *rand.Rand, out []float64) error) error {
	_, hist, err := f.Rec.LogLikelihood(theta)
	if err != nil {
		return err
	}
	return step(f.Rec.Unpack(theta), hist, rng, out)
}

// bandTable assembles the interval table: nested percentile bands by
// construction of order statistics, or all bands collapsed onto the
// point forecast for a degenerate zero-draw request.
func (f *Forecaster) bandTable(point []float64, sims [][]float64) *Table {
	h := len(point)
	t := &Table{
		Columns: []string{f.PointName, Interval1, Interval5, Interval95, Interval99},
		Values:  make([][]float64, h),
	}
	for k := 0; k < h; k++ {
		if len(sims) == 0 {
			t.Values[k] = []float64{point[k], point[k], point[k], point[k], point[k]}
			continue
		}
		vals := make([]float64, len(sims))
		for p := range sims {
			vals[p] = sims[p][k]
		}
		t.Values[k] = []float64{
			point[k],
			quantile(vals, 0.01),
			quantile(vals, 0.05),
			quantile(vals, 0.95),
			quantile(vals, 0.99),
		}
	}
	return t
}

func rowOf(m *mat.Dense, i int) []float64 {
	_, cols := m.Dims()
	row := make([]float64, cols)
	mat.Row(row, i, m)
	return row
}

func columnize(point []float64) [][]float64 {
	out := make([][]float64, len(point))
	for i, v := range point {
		out[i] = []float64{v}
	}
	return out
}
