package sim

import (
	"math/rand"

	"github.com/anneal-sim/anneal-sim/sim/model"
	"github.com/anneal-sim/anneal-sim/sim/schedule"
)

// UpdateKernel performs Monte Carlo sweeps. It is supplied by an independently
// optimized package (sim/kernel registers the reference implementation) and is
// the only code that mutates spin configurations during an anneal.
//
// Both entry points mutate their configurations in place and are pure
// functions of their arguments plus the state of rng. Implementations must
// not retain references to the slices after returning.
type UpdateKernel interface {
	// ClassicalSweep runs sweepsPerStep Metropolis sweeps at each temperature in sched.
	ClassicalSweep(sched schedule.Schedule, sweepsPerStep int, spins model.Spins, j model.Representation, rng *rand.Rand) error

	// QuantumSweep jointly evolves replicas Trotter slices at the given
	// temperature, running sweepsPerStep sweeps at each transverse field in sched.
	QuantumSweep(sched schedule.Schedule, sweepsPerStep, replicas int, temperature float64, spinCount int, confs []model.Spins, j model.Representation, rng *rand.Rand) error
}

// NewUpdateKernelFunc creates the registered update kernel.
// Set by sim/kernel's init(); nil until that package is imported.
var NewUpdateKernelFunc func() UpdateKernel

// defaultKernel resolves the registered kernel.
func defaultKernel() UpdateKernel {
	if NewUpdateKernelFunc == nil {
		panic("sim: no update kernel registered; import github.com/anneal-sim/anneal-sim/sim/kernel")
	}
	return NewUpdateKernelFunc()
}
