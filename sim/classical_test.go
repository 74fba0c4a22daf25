package sim

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anneal-sim/anneal-sim/sim/internal/testutil"
	"github.com/anneal-sim/anneal-sim/sim/model"
	"github.com/anneal-sim/anneal-sim/sim/schedule"
)

// countingKernel records calls and leaves configurations untouched.
type countingKernel struct {
	classical int
	quantum   int
}

func (k *countingKernel) ClassicalSweep(schedule.Schedule, int, model.Spins, model.Representation, *rand.Rand) error {
	k.classical++
	return nil
}

func (k *countingKernel) QuantumSweep(schedule.Schedule, int, int, float64, int, []model.Spins, model.Representation, *rand.Rand) error {
	k.quantum++
	return nil
}

// bogusModel reports a topology no kernel handles.
type bogusModel struct{ *model.SK }

func (bogusModel) Topology() model.Topology { return model.Topology(42) }

func ringModel(t *testing.T) *model.EdwardsAnderson {
	t.Helper()
	couplings, gs := testutil.WriteRing2x2(t, t.TempDir())
	m, err := model.LoadEdwardsAnderson(model.Lattice{Rows: 2, Cols: 2, Boundary: model.BoundaryOpen}, couplings, gs)
	require.NoError(t, err)
	return m
}

func skModel(t *testing.T, n int, seed int64) *model.SK {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	j := model.NewDenseCouplings(n)
	for i := 0; i < n; i++ {
		for k := i + 1; k < n; k++ {
			require.NoError(t, j.Set(i, k, rng.NormFloat64()))
		}
	}
	j.Symmetrize()
	return model.NewSK(j)
}

func defaultClassical() ClassicalConfig {
	return ClassicalConfig{TStart: 3, TEnd: 1e-8, SweepsPerStep: 5, WarmupSweeps: 20}
}

func TestClassicalConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ClassicalConfig)
	}{
		{"zero start temperature", func(c *ClassicalConfig) { c.TStart = 0 }},
		{"negative end temperature", func(c *ClassicalConfig) { c.TEnd = -1 }},
		{"zero sweeps per step", func(c *ClassicalConfig) { c.SweepsPerStep = 0 }},
		{"negative warmup", func(c *ClassicalConfig) { c.WarmupSweeps = -1 }},
	}
	require.NoError(t, defaultClassical().Validate())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultClassical()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestNewClassicalAnnealer_UnsupportedTopologyBeforeKernel(t *testing.T) {
	// GIVEN a model reporting an unknown topology and a counting kernel
	kernel := &countingKernel{}
	m := bogusModel{skModel(t, 4, 1)}

	// WHEN an annealer is built
	_, err := NewClassicalAnnealer(m, defaultClassical(), kernel, NewPartitionedRNG(1))

	// THEN it fails and the kernel was never invoked
	assert.True(t, errors.Is(err, model.ErrUnsupportedTopology), "got %v", err)
	assert.Zero(t, kernel.classical)
}

func TestNewClassicalAnnealer_SelectorMismatch(t *testing.T) {
	cfg := defaultClassical()
	cfg.Topology = model.TopologyLattice2D
	_, err := NewClassicalAnnealer(skModel(t, 4, 1), cfg, &countingKernel{}, NewPartitionedRNG(1))
	assert.True(t, errors.Is(err, model.ErrUnsupportedTopology), "got %v", err)

	cfg.Topology = model.TopologyFullyConnected
	_, err = NewClassicalAnnealer(skModel(t, 4, 1), cfg, &countingKernel{}, NewPartitionedRNG(1))
	assert.NoError(t, err)
}

func TestClassicalAnnealer_EmptyScheduleKeepsWarmupState(t *testing.T) {
	// GIVEN an annealer after warmup
	a, err := NewClassicalAnnealer(skModel(t, 20, 2), defaultClassical(), nil, NewPartitionedRNG(7))
	require.NoError(t, err)
	a.Randomize()
	require.NoError(t, a.Warmup())
	spins, energy, sweeps := a.Spins(), a.EnergyPerSpin(), a.Sweeps()

	// WHEN an empty schedule is annealed
	require.NoError(t, a.Anneal(schedule.Empty()))

	// THEN nothing changed
	assert.Equal(t, spins, a.Spins())
	assert.Equal(t, energy, a.EnergyPerSpin())
	assert.Equal(t, sweeps, a.Sweeps())
}

func TestClassicalAnnealer_SweepAccounting(t *testing.T) {
	kernel := &countingKernel{}
	a, err := NewClassicalAnnealer(skModel(t, 4, 1), defaultClassical(), kernel, NewPartitionedRNG(1))
	require.NoError(t, err)

	_, err = a.Run(8)
	require.NoError(t, err)

	// warmup (one call) plus the anneal (one call)
	assert.Equal(t, 2, kernel.classical)
	assert.Equal(t, int64(20+8*5), a.Sweeps())
}

func TestClassicalAnnealer_RingReachesGroundState(t *testing.T) {
	// GIVEN the 2x2 ring whose ground state has energy -1 per spin
	m := ringModel(t)
	cfg := ClassicalConfig{TStart: 3, TEnd: 1e-8, SweepsPerStep: 5, WarmupSweeps: 10}

	// WHEN annealed from several seeds with τ = 64
	for seed := int64(1); seed <= 10; seed++ {
		a, err := NewClassicalAnnealer(m, cfg, nil, NewPartitionedRNG(RunKey(seed, 1)))
		require.NoError(t, err)
		e, err := a.Run(64)
		require.NoError(t, err)

		// THEN every run ends in the ground state
		assert.Equal(t, -1.0, e, "seed %d", seed)
	}
}

func TestClassicalAnnealer_RunTaus(t *testing.T) {
	a, err := NewClassicalAnnealer(ringModel(t), defaultClassical(), nil, NewPartitionedRNG(3))
	require.NoError(t, err)

	energies, err := a.RunTaus([]int{2, 4, 8})
	require.NoError(t, err)
	assert.Len(t, energies, 3)
	for _, e := range energies {
		assert.GreaterOrEqual(t, e, -1.0)
	}

	_, err = a.RunTaus([]int{0})
	assert.Error(t, err)
}

func TestClassicalAnnealer_Reproducible(t *testing.T) {
	run := func() []float64 {
		a, err := NewClassicalAnnealer(skModel(t, 16, 4), defaultClassical(), nil, NewPartitionedRNG(RunKey(9, 3)))
		require.NoError(t, err)
		energies, err := a.RunTaus([]int{2, 4, 8, 16})
		require.NoError(t, err)
		return energies
	}
	assert.Equal(t, run(), run())
}
