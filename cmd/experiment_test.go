package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anneal-sim/anneal-sim/sim/checkpoint"
	"github.com/anneal-sim/anneal-sim/sim/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeRing writes the open 2x2 lattice with J = -1 on every bond and its
// checkerboard ground state.
func writeRing(t *testing.T, dir string) (couplings, groundState string) {
	t.Helper()
	couplings = writeFile(t, dir, "ring.txt", "1 2 -1\n3 4 -1\n1 3 -1\n2 4 -1\n")
	groundState = writeFile(t, dir, "ring_gs.txt", "1\n4\n")
	return couplings, groundState
}

// writeFerroSK writes a 4-spin fully connected ferromagnet.
func writeFerroSK(t *testing.T, dir string) string {
	return writeFile(t, dir, "sk.txt", "1 2 1\n1 3 1\n1 4 1\n2 3 1\n2 4 1\n3 4 1\n")
}

func run(t *testing.T, use string, args ...string) (string, error) {
	t.Helper()
	cmd := newSummaryCmd()
	if use != "summary" {
		cmd = newExperimentCmd(use)
	}
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSACommand_RingEndToEnd(t *testing.T) {
	// GIVEN the 2x2 ring on disk
	dir := t.TempDir()
	couplings, gs := writeRing(t, dir)
	results := filepath.Join(dir, "results")
	args := []string{"--model", "ea", "--rows", "2", "--cols", "2", "--couplings", couplings, "--ground-state", gs,
		"--results-dir", results, "--numruns", "3", "--tau-schedule", "2,64", "--num-warmup", "10"}

	// WHEN sa runs
	out, err := run(t, "sa", args...)
	require.NoError(t, err)

	// THEN a 3 x 2 checkpoint is written under results/EA/SA and summarized
	name := "EA_2x2_SA_realization1_numwarmup10_Energies"
	store := checkpoint.NewFileStore(filepath.Join(results, "EA", "SA"), name)
	cp, found, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []int{3, 2}, cp.Shape)
	assert.Equal(t, -1.0, cp.Provenance.Params[groundEnergyParam])
	assert.Equal(t, "SA", cp.Provenance.Algorithm)
	for _, e := range cp.Data {
		assert.GreaterOrEqual(t, e, -1.0)
	}
	assert.Contains(t, out, name)
	assert.Contains(t, out, "P(success)")

	// AND a second invocation reuses the checkpoint unchanged
	_, err = run(t, "sa", args...)
	require.NoError(t, err)
	again, _, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cp.Data, again.Data)
	assert.Equal(t, cp.Provenance.ExperimentID, again.Provenance.ExperimentID)

	// AND the summary command reads it back
	out, err = run(t, "summary", "--dir", filepath.Join(results, "EA", "SA"), "--name", name)
	require.NoError(t, err)
	assert.Contains(t, out, "3 runs")
	assert.Contains(t, out, "64")
	assert.Contains(t, out, "P(success)")
}

func TestPIQMCCommand_SQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	couplings, gs := writeRing(t, dir)
	results := filepath.Join(dir, "results")

	out, err := run(t, "piqmc", "--model", "ea", "--rows", "2", "--cols", "2", "--couplings", couplings, "--ground-state", gs,
		"--results-dir", results, "--numruns", "2", "--tau-schedule", "4,16", "--P", "4",
		"--preanneal-steps", "5", "--preanneal-mcsteps", "5", "--checkpoint-backend", "sqlite",
		"--metrics-file", filepath.Join(dir, "anneal.prom"))
	require.NoError(t, err)

	name := "EA_2x2_P4_PIQMC_realization1_Energies"
	assert.Contains(t, out, name)
	assert.FileExists(t, filepath.Join(results, "EA", "PIQMC", checkpoint.SQLiteFile))
	assert.FileExists(t, filepath.Join(dir, "anneal.prom"))

	store, err := checkpoint.Open(context.Background(), checkpoint.BackendSQLite, filepath.Join(results, "EA", "PIQMC"), name)
	require.NoError(t, err)
	defer store.Close()
	cp, found, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []int{2, 2, 4}, cp.Shape)
	assert.Equal(t, 4.0, cp.Provenance.Params["P"])
}

func TestSACommand_YAMLConfigWithFlagOverride(t *testing.T) {
	// GIVEN a YAML file for a 4-spin SK model asking for 5 runs
	dir := t.TempDir()
	couplings := writeFerroSK(t, dir)
	results := filepath.Join(dir, "results")
	cfg := writeFile(t, dir, "exp.yaml", "model: sk\nn: 4\nnumruns: 5\ntau_schedule: [2, 4]\nnum_warmup: 5\n"+
		"couplings: "+couplings+"\nresults_dir: "+results+"\ncheckpoint_backend: badger\n")

	// WHEN --numruns overrides it
	_, err := run(t, "sa", "--config", cfg, "--numruns", "2")
	require.NoError(t, err)

	// THEN the flag wins and the YAML fields are honoured
	store, err := checkpoint.Open(context.Background(), checkpoint.BackendBadger, filepath.Join(results, "SK", "SA"),
		"SK_N4_SA_realization1_numwarmup5_Energies")
	require.NoError(t, err)
	defer store.Close()
	cp, found, err := store.Load(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []int{2, 2}, cp.Shape)
	assert.Equal(t, []int{2, 4}, cp.Provenance.Taus)
	_, hasGround := cp.Provenance.Params[groundEnergyParam]
	assert.False(t, hasGround, "SK has no known ground state")
}

func TestSACommand_LatticeSelectorMismatch(t *testing.T) {
	dir := t.TempDir()
	couplings, gs := writeRing(t, dir)
	_, err := run(t, "sa", "--rows", "2", "--cols", "2", "--couplings", couplings, "--ground-state", gs,
		"--results-dir", filepath.Join(dir, "results"), "--lattice", "FullyConnected", "--numruns", "1", "--tau-schedule", "2")
	assert.True(t, errors.Is(err, model.ErrUnsupportedTopology), "got %v", err)

	// nothing was written
	_, statErr := os.Stat(filepath.Join(dir, "results"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSACommand_MalformedCouplings(t *testing.T) {
	dir := t.TempDir()
	_, gs := writeRing(t, dir)
	bad := writeFile(t, dir, "bad.txt", "1 2 -1\n3 x -1\n")
	_, err := run(t, "sa", "--rows", "2", "--cols", "2", "--couplings", bad, "--ground-state", gs,
		"--results-dir", filepath.Join(dir, "results"), "--numruns", "1", "--tau-schedule", "2")
	assert.True(t, errors.Is(err, model.ErrDataFormat), "got %v", err)
}

func TestSummaryCommand_MissingCheckpoint(t *testing.T) {
	_, err := run(t, "summary", "--dir", t.TempDir(), "--name", "nothing")
	assert.Error(t, err)
	_, err = run(t, "summary", "--dir", t.TempDir())
	assert.Error(t, err)
}
