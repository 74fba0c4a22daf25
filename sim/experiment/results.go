// Package experiment runs batches of independent annealing runs, checkpointing
// after each one so an interrupted batch resumes where it stopped.
package experiment

import (
	"fmt"

	"github.com/anneal-sim/anneal-sim/sim/checkpoint"
)

// Results is a dense (runs, taus, replicas) array of final energies per spin.
// Row r holds run r+1.
type Results struct {
	runs, taus, replicas int
	data                 []float64
}

// NewResults allocates a zeroed array.
func NewResults(runs, taus, replicas int) *Results {
	return &Results{
		runs:     runs,
		taus:     taus,
		replicas: replicas,
		data:     make([]float64, runs*taus*replicas),
	}
}

// FromCheckpoint wraps a stored array. A 2-D array has one replica per τ.
func FromCheckpoint(cp *checkpoint.Checkpoint) (*Results, error) {
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	replicas := 1
	if len(cp.Shape) == 3 {
		replicas = cp.Shape[2]
	}
	r := &Results{runs: cp.Shape[0], taus: cp.Shape[1], replicas: replicas}
	r.data = append([]float64(nil), cp.Data...)
	return r, nil
}

func (r *Results) Runs() int     { return r.runs }
func (r *Results) Taus() int     { return r.taus }
func (r *Results) Replicas() int { return r.replicas }

// At returns the energy of a 0-based (run, tau, replica) cell.
func (r *Results) At(run, tau, replica int) float64 {
	return r.data[r.offset(run, tau, replica)]
}

func (r *Results) offset(run, tau, replica int) int {
	return (run*r.taus+tau)*r.replicas + replica
}

// SetRun stores one run's τ × replicas energies into 0-based row run.
func (r *Results) SetRun(run int, energies [][]float64) error {
	if run < 0 || run >= r.runs {
		return fmt.Errorf("run index %d outside [0, %d)", run, r.runs)
	}
	if len(energies) != r.taus {
		return fmt.Errorf("run has %d tau entries, want %d", len(energies), r.taus)
	}
	for t, row := range energies {
		if len(row) != r.replicas {
			return fmt.Errorf("tau entry %d has %d replicas, want %d", t, len(row), r.replicas)
		}
		copy(r.data[r.offset(run, t, 0):], row)
	}
	return nil
}

// Shape returns the persisted shape of the first rows runs. The replica axis
// is omitted when there is exactly one replica.
func (r *Results) Shape(rows int) []int {
	if r.replicas == 1 {
		return []int{rows, r.taus}
	}
	return []int{rows, r.taus, r.replicas}
}

// Checkpoint copies the first rows runs into a checkpoint.
func (r *Results) Checkpoint(rows int, prov checkpoint.Provenance) *checkpoint.Checkpoint {
	n := rows * r.taus * r.replicas
	return &checkpoint.Checkpoint{
		Shape:      r.Shape(rows),
		Data:       append([]float64(nil), r.data[:n]...),
		Provenance: prov,
	}
}

// Restore copies a stored prefix of runs into r and returns how many rows it
// holds, capped at r.Runs(). The trailing dimensions must match.
func (r *Results) Restore(cp *checkpoint.Checkpoint) (int, error) {
	if err := cp.Validate(); err != nil {
		return 0, err
	}
	want := r.Shape(cp.Runs())
	if len(cp.Shape) != len(want) {
		return 0, fmt.Errorf("checkpoint shape %v does not match (runs, %v)", cp.Shape, want[1:])
	}
	for i := 1; i < len(want); i++ {
		if cp.Shape[i] != want[i] {
			return 0, fmt.Errorf("checkpoint shape %v does not match (runs, %v)", cp.Shape, want[1:])
		}
	}
	rows := min(cp.Runs(), r.runs)
	copy(r.data, cp.Data[:rows*r.taus*r.replicas])
	return rows, nil
}
