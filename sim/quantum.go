package sim

import (
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/anneal-sim/anneal-sim/sim/model"
	"github.com/anneal-sim/anneal-sim/sim/schedule"
)

// QuantumConfig parameterizes path-integral quantum annealing.
type QuantumConfig struct {
	Replicas      int     // P, number of Trotter slices
	PT            float64 // P·T, held constant; slice temperature is PT/P
	FieldStart    float64 // Γ0
	FieldEnd      float64 // ΓT
	SweepsPerStep int     // sweeps per schedule entry

	// Classical pre-annealing ramps the temperature from PreAnnealTemperature
	// down to PT/P over PreAnnealSteps entries of PreAnnealSweeps sweeps each.
	PreAnnealTemperature float64
	PreAnnealSteps       int
	PreAnnealSweeps      int

	// Topology, when non-zero, must match the model's topology.
	Topology model.Topology
}

// Temperature returns the per-slice temperature PT/P.
func (c QuantumConfig) Temperature() float64 {
	return c.PT / float64(c.Replicas)
}

// Validate checks parameter ranges.
func (c QuantumConfig) Validate() error {
	if c.Replicas < 1 {
		return fmt.Errorf("replica count must be >= 1, got %d", c.Replicas)
	}
	if c.PT <= 0 {
		return fmt.Errorf("PT must be positive, got %g", c.PT)
	}
	if c.FieldStart <= 0 || c.FieldEnd <= 0 {
		return fmt.Errorf("transverse field must stay positive, got %g -> %g", c.FieldStart, c.FieldEnd)
	}
	if c.SweepsPerStep < 1 {
		return fmt.Errorf("sweeps per step must be >= 1, got %d", c.SweepsPerStep)
	}
	if c.PreAnnealSteps < 0 || c.PreAnnealSweeps < 0 {
		return fmt.Errorf("pre-anneal steps and sweeps must be >= 0, got %d and %d", c.PreAnnealSteps, c.PreAnnealSweeps)
	}
	if c.PreAnnealSteps > 0 && c.PreAnnealTemperature <= 0 {
		return fmt.Errorf("pre-anneal temperature must be positive, got %g", c.PreAnnealTemperature)
	}
	return nil
}

// QuantumResult summarizes one τ: the energy per spin of every replica under
// the classical model, plus their minimum and mean.
type QuantumResult struct {
	ReplicaEnergies []float64
	Min             float64
	Mean            float64
}

func summarizeReplicas(energies []float64) QuantumResult {
	return QuantumResult{
		ReplicaEnergies: energies,
		Min:             floats.Min(energies),
		Mean:            stat.Mean(energies, nil),
	}
}

// QuantumAnnealer drives path-integral Monte Carlo annealing over P replicas.
type QuantumAnnealer struct {
	model     model.Model
	cfg       QuantumConfig
	kernel    UpdateKernel
	spins     model.Spins // post-warmup configuration broadcast to every replica
	spinRNG   *rand.Rand
	kernelRNG *rand.Rand
	sweeps    int64
}

// NewQuantumAnnealer validates cfg and the model topology before any kernel call.
// A nil kernel selects the registered NewUpdateKernelFunc.
func NewQuantumAnnealer(m model.Model, cfg QuantumConfig, kernel UpdateKernel, rng *PartitionedRNG) (*QuantumAnnealer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkTopology(m, cfg.Topology); err != nil {
		return nil, err
	}
	if kernel == nil {
		kernel = defaultKernel()
	}
	q := &QuantumAnnealer{
		model:     m,
		cfg:       cfg,
		kernel:    kernel,
		spinRNG:   rng.ForSubsystem(SubsystemSpins),
		kernelRNG: rng.ForSubsystem(SubsystemKernel),
	}
	q.spins = model.RandomSpins(m.NumSpins(), q.spinRNG)
	return q, nil
}

// Randomize redraws the shared starting configuration.
func (q *QuantumAnnealer) Randomize() {
	q.spins.Randomize(q.spinRNG)
}

// PreAnneal cools the shared configuration classically from the pre-anneal
// temperature to the slice temperature.
func (q *QuantumAnnealer) PreAnneal() error {
	if q.cfg.PreAnnealSteps == 0 || q.cfg.PreAnnealSweeps == 0 {
		return nil
	}
	sched, err := schedule.Linear(q.cfg.PreAnnealTemperature, q.cfg.Temperature(), q.cfg.PreAnnealSteps)
	if err != nil {
		return err
	}
	before := q.EnergyPerSpin()
	if err := q.kernel.ClassicalSweep(sched, q.cfg.PreAnnealSweeps, q.spins, q.model.Couplings(), q.kernelRNG); err != nil {
		return fmt.Errorf("pre-anneal sweep: %w", err)
	}
	q.sweeps += int64(sched.Len()) * int64(q.cfg.PreAnnealSweeps)
	logrus.Debugf("pre-anneal: energy per site %.6f -> %.6f", before, q.EnergyPerSpin())
	return nil
}

// Anneal evolves P fresh copies of the post-warmup configuration over sched
// and evaluates each replica with the model's classical energy.
// The shared configuration is not modified.
func (q *QuantumAnnealer) Anneal(sched schedule.Schedule) (QuantumResult, error) {
	confs := model.Broadcast(q.spins, q.cfg.Replicas)
	if sched.Len() > 0 {
		err := q.kernel.QuantumSweep(sched, q.cfg.SweepsPerStep, q.cfg.Replicas, q.cfg.Temperature(),
			q.model.NumSpins(), confs, q.model.Couplings(), q.kernelRNG)
		if err != nil {
			return QuantumResult{}, fmt.Errorf("quantum sweep: %w", err)
		}
		q.sweeps += int64(sched.Len()) * int64(q.cfg.SweepsPerStep)
	}
	energies := make([]float64, len(confs))
	for k, conf := range confs {
		energies[k] = model.EnergyPerSpin(q.model, conf)
	}
	return summarizeReplicas(energies), nil
}

// RunTaus randomizes and pre-anneals once, then runs one independent
// transverse-field anneal per τ from the same post-warmup configuration.
func (q *QuantumAnnealer) RunTaus(taus []int) ([]QuantumResult, error) {
	batch, err := schedule.LinearBatch(q.cfg.FieldStart, q.cfg.FieldEnd, taus)
	if err != nil {
		return nil, err
	}
	q.Randomize()
	if err := q.PreAnneal(); err != nil {
		return nil, err
	}
	results := make([]QuantumResult, len(batch))
	for i, sched := range batch {
		res, err := q.Anneal(sched)
		if err != nil {
			return nil, fmt.Errorf("tau %d: %w", taus[i], err)
		}
		results[i] = res
		logrus.Debugf("PIQMC tau=%d: min energy per site %.6f, mean %.6f", taus[i], res.Min, res.Mean)
	}
	return results, nil
}

// Spins returns a copy of the shared post-warmup configuration.
func (q *QuantumAnnealer) Spins() model.Spins { return q.spins.Clone() }

// EnergyPerSpin evaluates the shared configuration.
func (q *QuantumAnnealer) EnergyPerSpin() float64 {
	return model.EnergyPerSpin(q.model, q.spins)
}

// Sweeps returns the number of sweeps executed so far, pre-annealing included.
func (q *QuantumAnnealer) Sweeps() int64 { return q.sweeps }
