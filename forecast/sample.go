package forecast

import (
	"fmt"
	"math/rand/v2"
	"runtime"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Sample draws nsims full historical-length posterior predictive paths:
// one parameter draw per path, the fitted signal on observed history,
// and one sampled observation per modeled time index. The result is an
// nsims x (T-1) matrix; the fixed initial conditioning point is never
// simulated.
func (f *Forecaster) Sample(nsims int) (*mat.Dense, error) {
	if nsims < 1 {
		return nil, fmt.Errorf("nsims must be >= 1, got %d", nsims)
	}
	obs := f.Rec.Obs()

	master := rand.New(rand.NewPCG(f.Seed, f.Seed^0x8ebc6af09c88c6e3))
	seeds := make([]uint64, nsims)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	out := mat.NewDense(nsims, obs, nil)
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for p := 0; p < nsims; p++ {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seeds[p], seeds[p]^0x589965cc75374cc3))
			theta := f.LVS.Draw(rng)
			_, hist, err := f.Rec.LogLikelihood(theta)
			if err != nil {
				theta = f.LVS.MeanVector()
				if _, hist, err = f.Rec.LogLikelihood(theta); err != nil {
					return err
				}
			}
			c := f.Rec.Unpack(theta)
			for t := 0; t < obs; t++ {
				out.Set(p, t, f.Rec.Family().Sample(hist.Signal[t], c.Shape, rng))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// PPC computes a posterior predictive check p-value: the proportion of
// simulated paths whose discrepancy statistic meets or exceeds the
// observed one. The discrepancy is the sample mean. The proportion is
// well defined even when every simulated discrepancy ties the observed
// value, returning a boundary proportion instead of dividing by zero.
func (f *Forecaster) PPC(nsims int) (float64, error) {
	sims, err := f.Sample(nsims)
	if err != nil {
		return 0, err
	}

	observed, err := stats.Mean(f.Rec.ModelY())
	if err != nil {
		return 0, err
	}

	obs := f.Rec.Obs()
	row := make([]float64, obs)
	exceed := 0
	for p := 0; p < nsims; p++ {
		mat.Row(row, p, sims)
		m, err := stats.Mean(row)
		if err != nil {
			return 0, err
		}
		if m >= observed {
			exceed++
		}
	}
	return float64(exceed) / float64(nsims), nil
}
