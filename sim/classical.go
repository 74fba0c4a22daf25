package sim

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/anneal-sim/anneal-sim/sim/model"
	"github.com/anneal-sim/anneal-sim/sim/schedule"
)

// ClassicalConfig parameterizes simulated annealing.
type ClassicalConfig struct {
	TStart        float64 // initial (and warmup) temperature
	TEnd          float64 // final temperature
	SweepsPerStep int     // sweeps per schedule entry
	WarmupSweeps  int     // sweeps at TStart before each anneal; not counted in τ
	// Topology, when non-zero, must match the model's topology.
	Topology model.Topology
}

// Validate checks parameter ranges.
func (c ClassicalConfig) Validate() error {
	if c.TStart <= 0 {
		return fmt.Errorf("start temperature must be positive, got %g", c.TStart)
	}
	if c.TEnd < 0 {
		return fmt.Errorf("end temperature must be non-negative, got %g", c.TEnd)
	}
	if c.SweepsPerStep < 1 {
		return fmt.Errorf("sweeps per step must be >= 1, got %d", c.SweepsPerStep)
	}
	if c.WarmupSweeps < 0 {
		return fmt.Errorf("warmup sweeps must be >= 0, got %d", c.WarmupSweeps)
	}
	return nil
}

// checkTopology enforces that the kernel will receive a representation it understands.
func checkTopology(m model.Model, selector model.Topology) error {
	top := m.Topology()
	if !top.Valid() || m.Couplings() == nil || m.Couplings().Topology() != top {
		return fmt.Errorf("%w: model %s reports %s", model.ErrUnsupportedTopology, m.Name(), top)
	}
	if selector != 0 && selector != top {
		return fmt.Errorf("%w: %s selector for %s model %s", model.ErrUnsupportedTopology, selector, top, m.Name())
	}
	return nil
}

// ClassicalAnnealer drives simulated annealing on one spin configuration.
// It exclusively owns its configuration for the duration of a run.
type ClassicalAnnealer struct {
	model     model.Model
	cfg       ClassicalConfig
	kernel    UpdateKernel
	spins     model.Spins
	spinRNG   *rand.Rand
	kernelRNG *rand.Rand
	sweeps    int64
}

// NewClassicalAnnealer validates cfg and the model topology before any kernel call.
// A nil kernel selects the registered NewUpdateKernelFunc.
func NewClassicalAnnealer(m model.Model, cfg ClassicalConfig, kernel UpdateKernel, rng *PartitionedRNG) (*ClassicalAnnealer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkTopology(m, cfg.Topology); err != nil {
		return nil, err
	}
	if kernel == nil {
		kernel = defaultKernel()
	}
	a := &ClassicalAnnealer{
		model:     m,
		cfg:       cfg,
		kernel:    kernel,
		spinRNG:   rng.ForSubsystem(SubsystemSpins),
		kernelRNG: rng.ForSubsystem(SubsystemKernel),
	}
	a.spins = model.RandomSpins(m.NumSpins(), a.spinRNG)
	return a, nil
}

// Randomize redraws every spin from a fair coin.
func (a *ClassicalAnnealer) Randomize() {
	a.spins.Randomize(a.spinRNG)
}

// Warmup runs WarmupSweeps sweeps at the constant start temperature.
func (a *ClassicalAnnealer) Warmup() error {
	if a.cfg.WarmupSweeps == 0 {
		return nil
	}
	warm, err := schedule.Constant(a.cfg.TStart, a.cfg.WarmupSweeps)
	if err != nil {
		return err
	}
	return a.sweep(warm, 1)
}

// Anneal runs SweepsPerStep sweeps per entry of sched. An empty schedule is a no-op.
func (a *ClassicalAnnealer) Anneal(sched schedule.Schedule) error {
	return a.sweep(sched, a.cfg.SweepsPerStep)
}

func (a *ClassicalAnnealer) sweep(sched schedule.Schedule, sweepsPerStep int) error {
	if sched.Len() == 0 {
		return nil
	}
	if err := a.kernel.ClassicalSweep(sched, sweepsPerStep, a.spins, a.model.Couplings(), a.kernelRNG); err != nil {
		return fmt.Errorf("classical sweep: %w", err)
	}
	a.sweeps += int64(sched.Len()) * int64(sweepsPerStep)
	return nil
}

// Run performs one independent anneal of length τ from a fresh random
// configuration and returns the final energy per spin.
func (a *ClassicalAnnealer) Run(tau int) (float64, error) {
	sched, err := schedule.Linear(a.cfg.TStart, a.cfg.TEnd, tau)
	if err != nil {
		return 0, err
	}
	a.Randomize()
	if err := a.Warmup(); err != nil {
		return 0, err
	}
	if err := a.Anneal(sched); err != nil {
		return 0, err
	}
	return a.EnergyPerSpin(), nil
}

// RunTaus performs one Run per τ and returns one energy per spin for each.
func (a *ClassicalAnnealer) RunTaus(taus []int) ([]float64, error) {
	if err := schedule.ValidateTaus(taus); err != nil {
		return nil, err
	}
	energies := make([]float64, len(taus))
	for i, tau := range taus {
		e, err := a.Run(tau)
		if err != nil {
			return nil, fmt.Errorf("tau %d: %w", tau, err)
		}
		energies[i] = e
		logrus.Debugf("SA tau=%d: final energy per site %.6f", tau, e)
	}
	return energies, nil
}

// Spins returns a copy of the current configuration.
func (a *ClassicalAnnealer) Spins() model.Spins { return a.spins.Clone() }

// EnergyPerSpin evaluates the current configuration.
func (a *ClassicalAnnealer) EnergyPerSpin() float64 {
	return model.EnergyPerSpin(a.model, a.spins)
}

// Sweeps returns the number of sweeps executed so far, warmup included.
func (a *ClassicalAnnealer) Sweeps() int64 { return a.sweeps }
