package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/anneal-sim/anneal-sim/sim/checkpoint"
	"github.com/anneal-sim/anneal-sim/sim/experiment"
	"github.com/anneal-sim/anneal-sim/sim/model"
	"github.com/anneal-sim/anneal-sim/sim/schedule"
)

// Model selectors accepted by --model.
const (
	modelEA      = "ea"
	modelSK      = "sk"
	modelWishart = "wishart"
)

// ExperimentConfig is the merged configuration of one sa or piqmc invocation:
// per-family defaults, overlaid by an optional YAML file, overlaid by flags
// that were set explicitly.
type ExperimentConfig struct {
	Model   string `yaml:"model" validate:"required,oneof=ea sk wishart"`
	Seed    int    `yaml:"seed" validate:"gte=1"`
	Taus    []int  `yaml:"tau_schedule" validate:"required,min=1,dive,gte=1"`
	MCSteps int    `yaml:"mcsteps" validate:"gte=1"`
	NumRuns int    `yaml:"numruns" validate:"gte=1"`

	Rows     int     `yaml:"rows" validate:"gte=0"`
	Cols     int     `yaml:"cols" validate:"gte=0"`
	N        int     `yaml:"n" validate:"gte=0"`
	Alpha    float64 `yaml:"alpha" validate:"gte=0"`
	Boundary string  `yaml:"boundary" validate:"boundary"`
	Lattice  string  `yaml:"lattice" validate:"omitempty,topology"`

	Couplings   string `yaml:"couplings"`
	GroundState string `yaml:"ground_state"`

	// Simulated annealing
	T0        float64 `yaml:"T_0" validate:"gte=0"`
	TFinal    float64 `yaml:"T_final" validate:"gte=0"`
	NumWarmup int     `yaml:"num_warmup" validate:"gte=0"`

	// Path-integral quantum annealing
	P                    int     `yaml:"P" validate:"gte=0"`
	PT                   float64 `yaml:"PT" validate:"gte=0"`
	Gamma0               float64 `yaml:"gamma_0" validate:"gte=0"`
	GammaT               float64 `yaml:"gamma_T" validate:"gte=0"`
	PreannealTemperature float64 `yaml:"preanneal_temperature" validate:"gte=0"`
	PreannealSteps       int     `yaml:"preanneal_steps" validate:"gte=0"`
	PreannealSweeps      int     `yaml:"preanneal_mcsteps" validate:"gte=0"`

	DataDir           string `yaml:"data_dir" validate:"required"`
	ResultsDir        string `yaml:"results_dir" validate:"required"`
	CheckpointBackend string `yaml:"checkpoint_backend" validate:"backend"`
	MetricsFile       string `yaml:"metrics_file"`
}

var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("boundary", func(fl validator.FieldLevel) bool {
		return model.IsValidBoundary(fl.Field().String())
	})
	_ = configValidate.RegisterValidation("backend", func(fl validator.FieldLevel) bool {
		return checkpoint.IsValidBackend(fl.Field().String())
	})
	_ = configValidate.RegisterValidation("topology", func(fl validator.FieldLevel) bool {
		_, err := model.ParseTopology(fl.Field().String())
		return err == nil
	})
}

// DefaultExperimentConfig returns the per-family defaults. SA ignores the
// PIQMC fields and vice versa.
func DefaultExperimentConfig(modelName string) ExperimentConfig {
	cfg := ExperimentConfig{
		Model:                modelName,
		Seed:                 1,
		MCSteps:              5,
		Boundary:             string(model.BoundaryOpen),
		T0:                   3.0,
		TFinal:               1e-8,
		NumWarmup:            2000,
		PT:                   1.0,
		Gamma0:               3.0,
		GammaT:               1e-8,
		PreannealTemperature: 3.0,
		PreannealSteps:       60,
		PreannealSweeps:      100,
		DataDir:              "data",
		ResultsDir:           "results",
		CheckpointBackend:    checkpoint.BackendFile,
	}
	switch modelName {
	case modelEA:
		cfg.Rows, cfg.Cols = 40, 40
		cfg.Taus = schedule.PowersOfTwo(1, 13)
		cfg.NumRuns = 25
		cfg.P = 20
	case modelSK:
		cfg.N = 100
		cfg.Taus = schedule.PowersOfTwo(1, 14)
		cfg.T0 = 2.0
		cfg.Gamma0 = 2.0
		cfg.NumRuns = 50
		cfg.P = 100
	case modelWishart:
		cfg.N = 32
		cfg.Alpha = 0.5
		cfg.Taus = schedule.PowersOfTwo(1, 14)
		cfg.NumRuns = 50
		cfg.P = 100
	}
	return cfg
}

// decodeConfig strictly parses YAML into cfg, leaving absent keys untouched.
func decodeConfig(data []byte, cfg *ExperimentConfig) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse experiment config: %w", err)
	}
	return nil
}

// loadExperimentConfig builds the defaults for the model named by modelFlag
// (when set) or by the YAML file, then overlays the file.
func loadExperimentConfig(path, modelFlag string) (ExperimentConfig, error) {
	var data []byte
	modelName := modelFlag
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return ExperimentConfig{}, fmt.Errorf("read experiment config: %w", err)
		}
		var peek ExperimentConfig
		if err := decodeConfig(data, &peek); err != nil {
			return ExperimentConfig{}, fmt.Errorf("%s: %w", path, err)
		}
		if modelName == "" {
			modelName = peek.Model
		}
	}
	if modelName == "" {
		modelName = modelEA
	}
	cfg := DefaultExperimentConfig(modelName)
	if data != nil {
		if err := decodeConfig(data, &cfg); err != nil {
			return ExperimentConfig{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.Model = modelName
	return cfg, nil
}

// Validate checks field ranges and the requirements of the chosen algorithm and model.
func (c *ExperimentConfig) Validate(algorithm string) error {
	if err := configValidate.Struct(c); err != nil {
		return err
	}
	if err := schedule.ValidateTaus(c.Taus); err != nil {
		return err
	}
	switch c.Model {
	case modelEA:
		if c.Rows < 1 || c.Cols < 1 {
			return fmt.Errorf("EA lattice needs rows and cols >= 1, got %dx%d", c.Rows, c.Cols)
		}
	case modelSK, modelWishart:
		if c.N < 2 {
			return fmt.Errorf("%s model needs n >= 2, got %d", c.Model, c.N)
		}
	}
	switch algorithm {
	case experiment.AlgorithmSA:
		if c.T0 <= 0 {
			return fmt.Errorf("T_0 must be positive, got %g", c.T0)
		}
	case experiment.AlgorithmPIQMC:
		if c.P < 1 {
			return fmt.Errorf("P must be >= 1, got %d", c.P)
		}
		if c.PT <= 0 || c.Gamma0 <= 0 || c.GammaT <= 0 {
			return fmt.Errorf("PT, gamma_0 and gamma_T must be positive")
		}
		if c.PreannealSteps > 0 && c.PreannealTemperature <= 0 {
			return fmt.Errorf("preanneal_temperature must be positive, got %g", c.PreannealTemperature)
		}
	default:
		return fmt.Errorf("unknown algorithm %q", algorithm)
	}
	return nil
}

// family maps the --model selector to a model family name.
func (c *ExperimentConfig) family() string {
	switch c.Model {
	case modelSK:
		return model.FamilySK
	case modelWishart:
		return model.FamilyWishart
	default:
		return model.FamilyEdwardsAnderson
	}
}

// couplingsPath returns the explicit couplings file or the data-directory default.
func (c *ExperimentConfig) couplingsPath() string {
	if c.Couplings != "" {
		return c.Couplings
	}
	switch c.Model {
	case modelSK:
		return filepath.Join(c.DataDir, fmt.Sprintf("SK_N%d", c.N), fmt.Sprintf("%d_SK_seed%d.txt", c.N, c.Seed))
	case modelWishart:
		return filepath.Join(c.DataDir, fmt.Sprintf("wishart_N%d", c.N),
			fmt.Sprintf("wpe_size%d_alpha%s_realization%d.txt", c.N, strconv.FormatFloat(c.Alpha, 'g', -1, 64), c.Seed))
	default:
		size := fmt.Sprintf("%dx%d", c.Rows, c.Cols)
		return filepath.Join(c.DataDir, size, fmt.Sprintf("%s_uniform_seed%d.txt", size, c.Seed))
	}
}

// groundStatePath returns the explicit ground-state file or the EA data-directory default.
func (c *ExperimentConfig) groundStatePath() string {
	if c.GroundState != "" {
		return c.GroundState
	}
	return filepath.Join(c.DataDir, fmt.Sprintf("EA_%dx%d", c.Rows, c.Cols), fmt.Sprintf("gs_seed%d.txt", c.Seed))
}

// checkpointName names this experiment's checkpoint.
func (c *ExperimentConfig) checkpointName(algorithm string) (string, error) {
	return experiment.CheckpointName(experiment.NameParams{
		Family:      c.family(),
		Algorithm:   algorithm,
		Rows:        c.Rows,
		Cols:        c.Cols,
		N:           c.N,
		Alpha:       c.Alpha,
		Replicas:    c.P,
		Realization: c.Seed,
		Warmup:      c.NumWarmup,
	})
}
