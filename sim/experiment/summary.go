package experiment

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SuccessTolerance is the residual energy per spin below which a run counts
// as having found the ground state.
const SuccessTolerance = 1e-9

// TauSummary aggregates every run at one τ. Residual statistics are NaN when
// the ground energy is unknown.
type TauSummary struct {
	Tau                int
	MeanMinEnergy      float64
	MeanResidual       float64
	MedianResidual     float64
	SuccessProbability float64
}

// Summarize reduces each run to its minimum over replicas and aggregates the
// runs per τ.
func Summarize(res *Results, taus []int, groundEnergy float64, hasGround bool) ([]TauSummary, error) {
	if len(taus) != res.Taus() {
		return nil, fmt.Errorf("have %d taus for %d result columns", len(taus), res.Taus())
	}
	if res.Runs() == 0 {
		return nil, fmt.Errorf("no runs to summarize")
	}
	out := make([]TauSummary, len(taus))
	minima := make([]float64, res.Runs())
	residuals := make([]float64, res.Runs())
	replicas := make([]float64, res.Replicas())
	for t, tau := range taus {
		for run := range minima {
			for k := range replicas {
				replicas[k] = res.At(run, t, k)
			}
			minima[run] = floats.Min(replicas)
		}
		s := TauSummary{
			Tau:                tau,
			MeanMinEnergy:      stat.Mean(minima, nil),
			MeanResidual:       math.NaN(),
			MedianResidual:     math.NaN(),
			SuccessProbability: math.NaN(),
		}
		if hasGround {
			successes := 0
			for run, e := range minima {
				residuals[run] = math.Abs(e - groundEnergy)
				if residuals[run] <= SuccessTolerance {
					successes++
				}
			}
			s.MeanResidual = stat.Mean(residuals, nil)
			sorted := append([]float64(nil), residuals...)
			sort.Float64s(sorted)
			s.MedianResidual = stat.Quantile(0.5, stat.Empirical, sorted, nil)
			s.SuccessProbability = float64(successes) / float64(len(minima))
		}
		out[t] = s
	}
	return out, nil
}
