package checkpoint

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleCheckpoint(runs int) *Checkpoint {
	prov := NewProvenance("EA_2x2_P4_PIQMC_realization1_Energies")
	prov.Family = "EA"
	prov.Algorithm = "PIQMC"
	prov.Taus = []int{2, 4}
	prov.Replicas = 2
	prov.RunsTarget = 5
	prov.RunsCompleted = runs
	prov.Seed = 1
	prov.Params = map[string]float64{"PT": 1, "gamma_0": 3}
	data := make([]float64, runs*2*2)
	for i := range data {
		data[i] = -float64(i) / 8
	}
	return &Checkpoint{Shape: []int{runs, 2, 2}, Data: data, Provenance: prov}
}

func TestStores_RoundTripAndOverwrite(t *testing.T) {
	for _, kind := range []string{BackendFile, BackendSQLite, BackendBadger} {
		t.Run(kind, func(t *testing.T) {
			ctx := context.Background()
			dir := filepath.Join(t.TempDir(), "results")
			name := "EA_2x2_P4_PIQMC_realization1_Energies"

			// GIVEN an empty store
			store, err := Open(ctx, kind, dir, name)
			require.NoError(t, err)
			_, found, err := store.Load(ctx)
			require.NoError(t, err)
			assert.False(t, found)

			// WHEN two successive checkpoints are saved
			require.NoError(t, store.Save(ctx, sampleCheckpoint(1)))
			want := sampleCheckpoint(3)
			require.NoError(t, store.Save(ctx, want))
			require.NoError(t, store.Close())

			// THEN a reopened store returns the latest one
			store, err = Open(ctx, kind, dir, name)
			require.NoError(t, err)
			defer store.Close()
			got, found, err := store.Load(ctx)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, want.Shape, got.Shape)
			assert.Equal(t, want.Data, got.Data)
			assert.Equal(t, 3, got.Runs())
			assert.Equal(t, want.Provenance.ExperimentID, got.Provenance.ExperimentID)
			assert.Equal(t, want.Provenance.Taus, got.Provenance.Taus)
			assert.Equal(t, want.Provenance.Params, got.Provenance.Params)
			assert.True(t, want.Provenance.CreatedAt.Equal(got.Provenance.CreatedAt))
		})
	}
}

func TestStores_NamesAreIndependent(t *testing.T) {
	for _, kind := range []string{BackendSQLite, BackendBadger} {
		t.Run(kind, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			a, err := Open(ctx, kind, dir, "a")
			require.NoError(t, err)
			require.NoError(t, a.Save(ctx, sampleCheckpoint(2)))
			require.NoError(t, a.Close())

			b, err := Open(ctx, kind, dir, "b")
			require.NoError(t, err)
			defer b.Close()
			_, found, err := b.Load(ctx)
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestFileStore_WritesNPYAndSidecar(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, "SK_N100_SA_realization1_numwarmup2000_Energies")
	require.NoError(t, store.Save(context.Background(), sampleCheckpoint(2)))

	assert.FileExists(t, filepath.Join(dir, "SK_N100_SA_realization1_numwarmup2000_Energies.npy"))
	sidecar, err := os.ReadFile(store.ProvenancePath())
	require.NoError(t, err)
	assert.Contains(t, string(sidecar), "runs_completed: 2")

	// no temporary files are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFileStore_CorruptArrayIsAnError(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, "x")
	require.NoError(t, os.WriteFile(store.ArrayPath(), []byte("\x93NUMPY garbage"), 0o644))

	_, found, err := store.Load(context.Background())
	assert.Error(t, err)
	assert.False(t, found)
}

func TestFileStore_MissingSidecarStillLoads(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, "x")
	b, err := EncodeNPY([]int{1, 2}, []float64{-1, -0.5})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.ArrayPath(), b, 0o644))

	cp, found, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []float64{-1, -0.5}, cp.Data)
	assert.Empty(t, cp.Provenance.ExperimentID)
}

func TestCheckpoint_Validate(t *testing.T) {
	assert.Error(t, (&Checkpoint{Shape: []int{2}, Data: []float64{1, 2}}).Validate())
	assert.Error(t, (&Checkpoint{Shape: []int{2, 2}, Data: []float64{1, 2}}).Validate())
	assert.NoError(t, (&Checkpoint{Shape: []int{1, 2}, Data: []float64{1, 2}}).Validate())

	err := NewFileStore(t.TempDir(), "x").Save(context.Background(), &Checkpoint{Shape: []int{3, 3}})
	assert.Error(t, err)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), "redis", t.TempDir(), "x")
	assert.Error(t, err)
	assert.False(t, IsValidBackend("redis"))
	assert.True(t, IsValidBackend(""))
}
