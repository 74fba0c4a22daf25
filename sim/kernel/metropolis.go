// Package kernel is the reference update kernel: single-spin-flip Metropolis
// sweeps for simulated annealing and Suzuki-Trotter path-integral sweeps for
// quantum annealing. The annealing drivers in package sim depend only on the
// sim.UpdateKernel interface; this package registers itself on import.
package kernel

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/anneal-sim/anneal-sim/sim/model"
	"github.com/anneal-sim/anneal-sim/sim/schedule"
)

// Metropolis implements sim.UpdateKernel. Each sweep visits every spin once
// in an order freshly shuffled from rng.
type Metropolis struct{}

// NewMetropolis returns the reference kernel.
func NewMetropolis() *Metropolis { return &Metropolis{} }

// ClassicalSweep flips spin i with probability min(1, exp(-ΔE/T)),
// ΔE = 2 s_i h_i. A non-positive temperature accepts only moves with ΔE ≤ 0.
func (m *Metropolis) ClassicalSweep(sched schedule.Schedule, sweepsPerStep int, spins model.Spins, j model.Representation, rng *rand.Rand) error {
	if err := checkRepresentation(j, len(spins)); err != nil {
		return err
	}
	order := identity(len(spins))
	for _, temp := range sched.All() {
		for sweep := 0; sweep < sweepsPerStep; sweep++ {
			shuffle(order, rng)
			for _, i := range order {
				de := 2 * float64(spins[i]) * j.LocalField(i, spins)
				if acceptThermal(de, temp, rng) {
					spins[i] = -spins[i]
				}
			}
		}
	}
	return nil
}

// QuantumSweep samples the Suzuki-Trotter action
//
//	S = Σ_k E(s^k)/(P·T) - J⊥ Σ_k Σ_i s_i^k s_i^(k+1),  J⊥ = -½ ln tanh(Γ/(P·T))
//
// with periodic boundary in the Trotter direction. For P = 1 the inter-slice
// term vanishes and the sweep is classical at temperature T.
func (m *Metropolis) QuantumSweep(sched schedule.Schedule, sweepsPerStep, replicas int, temperature float64, spinCount int, confs []model.Spins, j model.Representation, rng *rand.Rand) error {
	if err := checkRepresentation(j, spinCount); err != nil {
		return err
	}
	if replicas < 1 || len(confs) != replicas {
		return fmt.Errorf("have %d replica configurations, want %d", len(confs), replicas)
	}
	for k, conf := range confs {
		if len(conf) != spinCount {
			return fmt.Errorf("replica %d has %d spins, want %d", k, len(conf), spinCount)
		}
	}
	if temperature <= 0 {
		return fmt.Errorf("slice temperature must be positive, got %g", temperature)
	}

	pt := float64(replicas) * temperature
	order := identity(spinCount)
	for _, field := range sched.All() {
		jperp := CouplingStrength(field, pt)
		for sweep := 0; sweep < sweepsPerStep; sweep++ {
			for slice := 0; slice < replicas; slice++ {
				conf := confs[slice]
				up := confs[(slice+1)%replicas]
				down := confs[(slice+replicas-1)%replicas]
				shuffle(order, rng)
				for _, i := range order {
					s := float64(conf[i])
					delta := 2 * s * j.LocalField(i, conf) / pt
					// skip cancelling neighbors: J⊥ is +Inf at Γ = 0 and Inf·0 is NaN
					if nb := up[i] + down[i]; replicas > 1 && nb != 0 {
						delta += 2 * jperp * s * float64(nb)
					}
					if delta <= 0 || rng.Float64() < math.Exp(-delta) {
						conf[i] = -conf[i]
					}
				}
			}
		}
	}
	return nil
}

// CouplingStrength returns the ferromagnetic inter-slice coupling
// J⊥ = -½ ln tanh(Γ/(P·T)) in units of the action. It grows without bound as Γ → 0.
func CouplingStrength(field, pt float64) float64 {
	return -0.5 * math.Log(math.Tanh(field/pt))
}

func acceptThermal(de, temp float64, rng *rand.Rand) bool {
	if de <= 0 {
		return true
	}
	if temp <= 0 {
		return false
	}
	return rng.Float64() < math.Exp(-de/temp)
}

func checkRepresentation(j model.Representation, n int) error {
	switch j.(type) {
	case *model.NeighborTable, *model.DenseCouplings:
	default:
		return fmt.Errorf("%w: no sweep for coupling representation %T", model.ErrUnsupportedTopology, j)
	}
	if j.NumSpins() != n {
		return fmt.Errorf("coupling representation has %d spins, configuration has %d", j.NumSpins(), n)
	}
	return nil
}

func identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func shuffle(order []int, rng *rand.Rand) {
	rng.Shuffle(len(order), func(a, b int) { order[a], order[b] = order[b], order[a] })
}
