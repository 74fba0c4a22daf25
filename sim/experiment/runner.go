package experiment

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/anneal-sim/anneal-sim/sim"
	"github.com/anneal-sim/anneal-sim/sim/checkpoint"
	"github.com/anneal-sim/anneal-sim/sim/metrics"
	"github.com/anneal-sim/anneal-sim/sim/schedule"
)

// ErrConfigMismatch reports a checkpoint produced under a different
// configuration than the one being run.
var ErrConfigMismatch = errors.New("checkpoint was produced by a different configuration")

// RunOutput is what one run produces: τ × replicas energies per spin and the
// number of sweeps it took.
type RunOutput struct {
	Energies [][]float64
	Sweeps   int64
}

// AnnealFunc performs 1-based run number run using only rng for randomness.
type AnnealFunc func(ctx context.Context, run int, rng *sim.PartitionedRNG) (RunOutput, error)

// Runner executes runs 1..Runs, resuming after the last checkpointed run.
type Runner struct {
	Name     string
	Runs     int
	Taus     []int
	Replicas int
	Seed     int64

	Store  checkpoint.Store
	Anneal AnnealFunc

	// Provenance is the template saved with every checkpoint. Name, the run
	// counts and the timestamps are filled in by the runner.
	Provenance checkpoint.Provenance

	Metrics     *metrics.Recorder // optional
	MetricsFile string            // optional textfile written after each checkpoint
}

// Validate checks the runner is fully configured.
func (r *Runner) Validate() error {
	if r.Runs < 1 {
		return fmt.Errorf("number of runs must be >= 1, got %d", r.Runs)
	}
	if err := schedule.ValidateTaus(r.Taus); err != nil {
		return err
	}
	if r.Replicas < 1 {
		return fmt.Errorf("replicas must be >= 1, got %d", r.Replicas)
	}
	if r.Store == nil {
		return errors.New("checkpoint store is required")
	}
	if r.Anneal == nil {
		return errors.New("anneal function is required")
	}
	return nil
}

// Run loads the checkpoint, computes the missing runs and returns the full
// array. Each completed run is saved before the next one starts. Cancellation
// is observed between runs.
func (r *Runner) Run(ctx context.Context) (*Results, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	results := NewResults(r.Runs, len(r.Taus), r.Replicas)
	prov := r.provenance()

	completed, err := r.resume(ctx, results, &prov)
	if err != nil {
		return nil, err
	}
	if completed >= r.Runs {
		logrus.Infof("%s: all %d runs already checkpointed", r.Name, r.Runs)
		return results, nil
	}
	if completed > 0 {
		logrus.Infof("%s: resuming after run %d of %d", r.Name, completed, r.Runs)
	}

	for run := completed + 1; run <= r.Runs; run++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		start := time.Now()
		out, err := r.Anneal(ctx, run, sim.NewPartitionedRNG(sim.RunKey(r.Seed, run)))
		if err != nil {
			return results, fmt.Errorf("run %d: %w", run, err)
		}
		if err := results.SetRun(run-1, out.Energies); err != nil {
			return results, fmt.Errorf("run %d: %w", run, err)
		}
		elapsed := time.Since(start)

		prov.RunsCompleted = run
		prov.UpdatedAt = time.Now().UTC()
		err = r.Store.Save(ctx, results.Checkpoint(run, prov))
		r.Metrics.CheckpointSaved(err)
		if err != nil {
			return results, fmt.Errorf("checkpoint after run %d: %w", run, err)
		}

		best := runMinimum(out.Energies)
		r.Metrics.RunCompleted(elapsed, out.Sweeps, best)
		if err := r.Metrics.WriteTextfile(r.MetricsFile); err != nil {
			logrus.Warnf("write metrics textfile %s: %v", r.MetricsFile, err)
		}
		logrus.Infof("%s: run %d/%d done in %s (%s sweeps), min energy per site %.6f",
			r.Name, run, r.Runs, elapsed.Round(time.Millisecond), humanize.Comma(out.Sweeps), best)
	}
	return results, nil
}

// resume copies a usable checkpoint into results and returns the number of
// completed runs. Unreadable or shape-incompatible checkpoints are ignored.
// A checkpoint whose provenance records a different τ list, replica count,
// seed or parameter set is refused with ErrConfigMismatch so its rows are
// never mixed with, or overwritten by, rows from another configuration.
func (r *Runner) resume(ctx context.Context, results *Results, prov *checkpoint.Provenance) (int, error) {
	cp, found, err := r.Store.Load(ctx)
	if err != nil {
		logrus.Warnf("%s: cannot load checkpoint, running from scratch: %v", r.Name, err)
		return 0, nil
	}
	if !found {
		logrus.Infof("%s: no checkpoint, running from scratch", r.Name)
		return 0, nil
	}
	rows, err := results.Restore(cp)
	if err != nil {
		logrus.Warnf("%s: ignoring checkpoint: %v", r.Name, err)
		return 0, nil
	}
	if err := sameConfiguration(&cp.Provenance, prov); err != nil {
		return 0, fmt.Errorf("%s: %w: %v; use another results directory or remove the checkpoint", r.Name, ErrConfigMismatch, err)
	}
	if cp.Provenance.ExperimentID != "" {
		prov.ExperimentID = cp.Provenance.ExperimentID
		prov.CreatedAt = cp.Provenance.CreatedAt
	}
	// the array is authoritative; the sidecar may lag or lead it by one save
	prov.RunsCompleted = rows
	return rows, nil
}

// sameConfiguration compares the fields a stored provenance records against
// the current run. Fields absent from the stored record are not compared.
func sameConfiguration(stored, current *checkpoint.Provenance) error {
	if len(stored.Taus) > 0 && !slices.Equal(stored.Taus, current.Taus) {
		return fmt.Errorf("taus %v, now %v", stored.Taus, current.Taus)
	}
	if stored.Replicas > 0 && stored.Replicas != current.Replicas {
		return fmt.Errorf("%d replicas, now %d", stored.Replicas, current.Replicas)
	}
	if stored.ExperimentID != "" && stored.Seed != current.Seed {
		return fmt.Errorf("seed %d, now %d", stored.Seed, current.Seed)
	}
	if len(stored.Params) > 0 && !maps.Equal(stored.Params, current.Params) {
		return fmt.Errorf("parameters %v, now %v", stored.Params, current.Params)
	}
	return nil
}

func (r *Runner) provenance() checkpoint.Provenance {
	prov := r.Provenance
	fresh := checkpoint.NewProvenance(r.Name)
	if prov.ExperimentID == "" {
		prov.ExperimentID = fresh.ExperimentID
	}
	if prov.CreatedAt.IsZero() {
		prov.CreatedAt = fresh.CreatedAt
	}
	prov.Name = r.Name
	prov.Taus = append([]int(nil), r.Taus...)
	prov.Replicas = r.Replicas
	prov.RunsTarget = r.Runs
	prov.Seed = r.Seed
	return prov
}

func runMinimum(energies [][]float64) float64 {
	best := energies[0][0]
	for _, row := range energies {
		best = min(best, floats.Min(row))
	}
	return best
}
