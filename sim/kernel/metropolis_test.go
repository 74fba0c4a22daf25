package kernel

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anneal-sim/anneal-sim/sim"
	"github.com/anneal-sim/anneal-sim/sim/model"
	"github.com/anneal-sim/anneal-sim/sim/schedule"
)

// ferroChain returns a neighbor table for an open n-spin chain with J = +1.
func ferroChain(t *testing.T, n int) *model.NeighborTable {
	t.Helper()
	c := model.NewSparseCouplings(n)
	for i := 0; i+1 < n; i++ {
		require.NoError(t, c.Set(i, i+1, 1))
	}
	table, err := model.BuildNeighborTable(n, c, 2)
	require.NoError(t, err)
	return table
}

func denseFerro(t *testing.T, n int) *model.DenseCouplings {
	t.Helper()
	c := model.NewDenseCouplings(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			require.NoError(t, c.Set(i, j, 1))
		}
	}
	c.Symmetrize()
	return c
}

type fakeRepresentation struct{ n int }

func (f fakeRepresentation) Topology() model.Topology            { return model.Topology(99) }
func (f fakeRepresentation) NumSpins() int                       { return f.n }
func (f fakeRepresentation) LocalField(int, model.Spins) float64 { return 0 }

func TestRegister_SetsFactory(t *testing.T) {
	require.NotNil(t, sim.NewUpdateKernelFunc)
	assert.IsType(t, &Metropolis{}, sim.NewUpdateKernelFunc())
}

func TestClassicalSweep_UnsupportedRepresentation(t *testing.T) {
	// GIVEN a representation no sweep understands
	spins := model.AllUp(3)
	before := spins.Clone()
	sched, _ := schedule.Constant(1, 5)

	// WHEN either sweep is invoked
	err := NewMetropolis().ClassicalSweep(sched, 1, spins, fakeRepresentation{3}, rand.New(rand.NewSource(1)))
	// THEN it fails before touching the configuration
	assert.True(t, errors.Is(err, model.ErrUnsupportedTopology), "got %v", err)
	assert.Equal(t, before, spins)

	err = NewMetropolis().QuantumSweep(sched, 1, 1, 1, 3, []model.Spins{spins}, fakeRepresentation{3}, rand.New(rand.NewSource(1)))
	assert.True(t, errors.Is(err, model.ErrUnsupportedTopology), "got %v", err)
}

func TestClassicalSweep_SizeMismatch(t *testing.T) {
	sched, _ := schedule.Constant(1, 1)
	err := NewMetropolis().ClassicalSweep(sched, 1, model.AllUp(3), ferroChain(t, 4), rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestClassicalSweep_EmptyScheduleIsNoOp(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	spins := model.RandomSpins(10, rng)
	before := spins.Clone()
	require.NoError(t, NewMetropolis().ClassicalSweep(schedule.Empty(), 5, spins, ferroChain(t, 10), rng))
	assert.Equal(t, before, spins)
}

func TestClassicalSweep_ZeroTemperatureNeverRaisesEnergy(t *testing.T) {
	// GIVEN a random configuration on a dense ferromagnet
	rng := rand.New(rand.NewSource(11))
	j := denseFerro(t, 12)
	spins := model.RandomSpins(12, rng)
	start := j.Energy(spins)

	// WHEN greedy sweeps run
	sched, _ := schedule.Constant(0, 3)
	require.NoError(t, NewMetropolis().ClassicalSweep(sched, 1, spins, j, rng))

	// THEN energy did not increase and all spins aligned (the only local minima)
	assert.LessOrEqual(t, j.Energy(spins), start)
	assert.InDelta(t, -0.5*12*11, j.Energy(spins), 1e-9)
	assert.True(t, spins.Valid())
}

func TestClassicalSweep_HighTemperatureMixes(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	spins := model.AllUp(200)
	sched, _ := schedule.Constant(1e6, 1)
	require.NoError(t, NewMetropolis().ClassicalSweep(sched, 1, spins, ferroChain(t, 200), rng))
	down := 0
	for _, s := range spins {
		if s == -1 {
			down++
		}
	}
	// nearly every move is accepted at T = 1e6
	assert.Greater(t, down, 150)
}

func TestClassicalSweep_DeterministicForSeed(t *testing.T) {
	run := func() model.Spins {
		rng := rand.New(rand.NewSource(77))
		spins := model.RandomSpins(30, rng)
		sched, _ := schedule.Linear(3, 0.1, 20)
		require.NoError(t, NewMetropolis().ClassicalSweep(sched, 2, spins, ferroChain(t, 30), rng))
		return spins
	}
	assert.Equal(t, run(), run())
}

func TestQuantumSweep_ValidatesReplicas(t *testing.T) {
	sched, _ := schedule.Constant(1, 1)
	rng := rand.New(rand.NewSource(1))
	j := ferroChain(t, 4)

	err := NewMetropolis().QuantumSweep(sched, 1, 3, 0.1, 4, model.Broadcast(model.AllUp(4), 2), j, rng)
	assert.Error(t, err, "replica count mismatch")
	err = NewMetropolis().QuantumSweep(sched, 1, 1, 0.1, 4, []model.Spins{model.AllUp(3)}, j, rng)
	assert.Error(t, err, "short replica")
	err = NewMetropolis().QuantumSweep(sched, 1, 1, 0, 4, []model.Spins{model.AllUp(4)}, j, rng)
	assert.Error(t, err, "zero temperature")
}

func TestQuantumSweep_SmallFieldAnnealsToGroundState(t *testing.T) {
	// GIVEN 8 replicas of a random configuration on a ferromagnetic chain
	rng := rand.New(rand.NewSource(21))
	n, p := 16, 8
	j := ferroChain(t, n)
	confs := model.Broadcast(model.RandomSpins(n, rng), p)

	// WHEN the field is ramped down at low PT
	sched, err := schedule.Linear(3.0, 1e-8, 400)
	require.NoError(t, err)
	require.NoError(t, NewMetropolis().QuantumSweep(sched, 2, p, 0.05/float64(p), n, confs, j, rng))

	// THEN at least one replica reaches the aligned ground state
	c := model.NewSparseCouplings(n)
	for i := 0; i+1 < n; i++ {
		require.NoError(t, c.Set(i, i+1, 1))
	}
	best := 0.0
	for _, conf := range confs {
		assert.True(t, conf.Valid())
		if e := c.Energy(conf); e < best {
			best = e
		}
	}
	assert.Equal(t, -float64(n-1), best)
}

func TestQuantumSweep_ZeroFieldWithCancellingNeighbors(t *testing.T) {
	// GIVEN a free spin on 3 slices whose Trotter neighbors disagree on slice 0
	free, err := model.BuildNeighborTable(1, model.NewSparseCouplings(1), 1)
	require.NoError(t, err)
	confs := []model.Spins{{1}, {1}, {-1}}
	sched, err := schedule.Constant(0, 1)
	require.NoError(t, err)
	require.True(t, math.IsInf(CouplingStrength(0, 1), 1))

	// WHEN one sweep runs at zero transverse field
	require.NoError(t, NewMetropolis().QuantumSweep(sched, 1, 3, 1.0/3, 1, confs, free, rand.New(rand.NewSource(1))))

	// THEN the zero-cost move on slice 0 is accepted and the slices align
	for k, conf := range confs {
		assert.Equal(t, model.Spins{-1}, conf, "slice %d", k)
	}
}

func TestCouplingStrength(t *testing.T) {
	// J⊥ is positive and shrinks as the field grows
	weak := CouplingStrength(0.01, 1)
	strong := CouplingStrength(3, 1)
	assert.Greater(t, weak, strong)
	assert.Greater(t, strong, 0.0)
}
