// Package checkpoint persists experiment result arrays so a long batch of
// annealing runs can be interrupted and resumed. Three backends share one
// payload format: a NumPy .npy array of energies plus a YAML provenance record.
package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Store loads and saves the checkpoint of a single named experiment.
type Store interface {
	// Load returns the stored checkpoint. found is false when nothing has been
	// saved yet; err is non-nil when something exists but cannot be decoded.
	Load(ctx context.Context) (cp *Checkpoint, found bool, err error)
	// Save atomically replaces the stored checkpoint.
	Save(ctx context.Context, cp *Checkpoint) error
	Close() error
}

// Checkpoint is a C-ordered array of energies per spin, shaped
// (runs, taus) or (runs, taus, replicas), with the first axis holding only
// completed runs.
type Checkpoint struct {
	Shape      []int
	Data       []float64
	Provenance Provenance
}

// Provenance is the human-readable record stored next to the array.
type Provenance struct {
	ExperimentID  string             `yaml:"experiment_id"`
	Name          string             `yaml:"name"`
	Family        string             `yaml:"family"`
	Algorithm     string             `yaml:"algorithm"`
	Taus          []int              `yaml:"taus"`
	Replicas      int                `yaml:"replicas"`
	RunsTarget    int                `yaml:"runs_target"`
	RunsCompleted int                `yaml:"runs_completed"`
	Seed          int64              `yaml:"seed"`
	Realization   int                `yaml:"realization"`
	Params        map[string]float64 `yaml:"params,omitempty"`
	CreatedAt     time.Time          `yaml:"created_at"`
	UpdatedAt     time.Time          `yaml:"updated_at"`
}

// NewProvenance starts a record with a fresh experiment id.
func NewProvenance(name string) Provenance {
	now := time.Now().UTC()
	return Provenance{
		ExperimentID: uuid.NewString(),
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Runs returns the number of completed runs held in the array.
func (c *Checkpoint) Runs() int {
	if len(c.Shape) == 0 {
		return 0
	}
	return c.Shape[0]
}

// Validate checks that Data matches Shape.
func (c *Checkpoint) Validate() error {
	if len(c.Shape) < 2 || len(c.Shape) > 3 {
		return fmt.Errorf("checkpoint must be 2- or 3-dimensional, got shape %v", c.Shape)
	}
	size := 1
	for _, d := range c.Shape {
		if d < 0 {
			return fmt.Errorf("negative dimension in shape %v", c.Shape)
		}
		size *= d
	}
	if size != len(c.Data) {
		return fmt.Errorf("shape %v holds %d values, have %d", c.Shape, size, len(c.Data))
	}
	return nil
}

// encode renders the array and provenance payloads shared by every backend.
func encode(cp *Checkpoint) (array, provenance []byte, err error) {
	if err := cp.Validate(); err != nil {
		return nil, nil, err
	}
	array, err = EncodeNPY(cp.Shape, cp.Data)
	if err != nil {
		return nil, nil, err
	}
	provenance, err = yaml.Marshal(cp.Provenance)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal provenance: %w", err)
	}
	return array, provenance, nil
}

// decode reverses encode. A nil provenance payload yields an empty record.
func decode(array, provenance []byte) (*Checkpoint, error) {
	shape, data, err := DecodeNPY(array)
	if err != nil {
		return nil, err
	}
	cp := &Checkpoint{Shape: shape, Data: data}
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	if len(provenance) > 0 {
		if err := yaml.Unmarshal(provenance, &cp.Provenance); err != nil {
			return nil, fmt.Errorf("parse provenance: %w", err)
		}
	}
	return cp, nil
}
