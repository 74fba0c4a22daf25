package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_RunCompleted(t *testing.T) {
	// GIVEN a recorder for SK simulated annealing
	r := NewRecorder("SK", "SA")

	// WHEN two runs complete
	r.RunCompleted(2*time.Second, 1000, -0.7)
	r.RunCompleted(3*time.Second, 500, -0.75)

	// THEN counters accumulate and the gauge holds the latest value
	assert.Equal(t, 2.0, testutil.ToFloat64(r.runsCompleted.WithLabelValues("SK", "SA")))
	assert.Equal(t, 1500.0, testutil.ToFloat64(r.sweeps.WithLabelValues("SK", "SA")))
	assert.Equal(t, -0.75, testutil.ToFloat64(r.lastMinEnergy.WithLabelValues("SK", "SA")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.runDuration))
}

func TestRecorder_CheckpointSaved(t *testing.T) {
	r := NewRecorder("EA", "PIQMC")
	r.CheckpointSaved(nil)
	r.CheckpointSaved(nil)
	r.CheckpointSaved(errors.New("disk full"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.checkpointWrites.WithLabelValues("EA", "PIQMC")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.checkpointWriteErrors.WithLabelValues("EA", "PIQMC")))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder("Wishart", "PIQMC")
	r.RunCompleted(time.Second, 10, -1)
	path := filepath.Join(t.TempDir(), "anneal.prom")

	require.NoError(t, r.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(b)
	assert.Contains(t, text, `anneal_runs_completed_total{algorithm="PIQMC",family="Wishart"} 1`)
	assert.True(t, strings.Contains(text, "anneal_last_run_min_energy_per_spin"))
}

func TestRecorder_NilIsNoOp(t *testing.T) {
	var r *Recorder
	r.RunCompleted(time.Second, 1, 0)
	r.CheckpointSaved(nil)
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
	assert.Nil(t, r.Registry())
}
