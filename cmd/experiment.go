package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anneal-sim/anneal-sim/sim"
	"github.com/anneal-sim/anneal-sim/sim/checkpoint"
	"github.com/anneal-sim/anneal-sim/sim/experiment"
	"github.com/anneal-sim/anneal-sim/sim/metrics"
	"github.com/anneal-sim/anneal-sim/sim/model"

	// registers the Metropolis update kernel
	_ "github.com/anneal-sim/anneal-sim/sim/kernel"
)

// groundEnergyParam is the provenance key holding the ground energy per spin when known.
const groundEnergyParam = "ground_energy_per_spin"

// experimentFlags binds one command's flags; only flags the user set override
// the defaults and the YAML file.
type experimentFlags struct {
	configPath string
	values     ExperimentConfig
}

// flagOverrides copies an explicitly set flag from src into dst.
var flagOverrides = map[string]func(dst, src *ExperimentConfig){
	"model":                 func(d, s *ExperimentConfig) { d.Model = s.Model },
	"seed":                  func(d, s *ExperimentConfig) { d.Seed = s.Seed },
	"tau-schedule":          func(d, s *ExperimentConfig) { d.Taus = s.Taus },
	"mcsteps":               func(d, s *ExperimentConfig) { d.MCSteps = s.MCSteps },
	"numruns":               func(d, s *ExperimentConfig) { d.NumRuns = s.NumRuns },
	"rows":                  func(d, s *ExperimentConfig) { d.Rows = s.Rows },
	"cols":                  func(d, s *ExperimentConfig) { d.Cols = s.Cols },
	"n":                     func(d, s *ExperimentConfig) { d.N = s.N },
	"alpha":                 func(d, s *ExperimentConfig) { d.Alpha = s.Alpha },
	"boundary":              func(d, s *ExperimentConfig) { d.Boundary = s.Boundary },
	"lattice":               func(d, s *ExperimentConfig) { d.Lattice = s.Lattice },
	"couplings":             func(d, s *ExperimentConfig) { d.Couplings = s.Couplings },
	"ground-state":          func(d, s *ExperimentConfig) { d.GroundState = s.GroundState },
	"T-0":                   func(d, s *ExperimentConfig) { d.T0 = s.T0 },
	"T-final":               func(d, s *ExperimentConfig) { d.TFinal = s.TFinal },
	"num-warmup":            func(d, s *ExperimentConfig) { d.NumWarmup = s.NumWarmup },
	"P":                     func(d, s *ExperimentConfig) { d.P = s.P },
	"PT":                    func(d, s *ExperimentConfig) { d.PT = s.PT },
	"gamma-0":               func(d, s *ExperimentConfig) { d.Gamma0 = s.Gamma0 },
	"gamma-T":               func(d, s *ExperimentConfig) { d.GammaT = s.GammaT },
	"preanneal-temperature": func(d, s *ExperimentConfig) { d.PreannealTemperature = s.PreannealTemperature },
	"preanneal-steps":       func(d, s *ExperimentConfig) { d.PreannealSteps = s.PreannealSteps },
	"preanneal-mcsteps":     func(d, s *ExperimentConfig) { d.PreannealSweeps = s.PreannealSweeps },
	"data-dir":              func(d, s *ExperimentConfig) { d.DataDir = s.DataDir },
	"results-dir":           func(d, s *ExperimentConfig) { d.ResultsDir = s.ResultsDir },
	"checkpoint-backend":    func(d, s *ExperimentConfig) { d.CheckpointBackend = s.CheckpointBackend },
	"metrics-file":          func(d, s *ExperimentConfig) { d.MetricsFile = s.MetricsFile },
}

// newExperimentCmd builds the sa or piqmc command.
func newExperimentCmd(use string) *cobra.Command {
	algorithm := experiment.AlgorithmSA
	short := "Run a batch of simulated annealing runs"
	if use == "piqmc" {
		algorithm = experiment.AlgorithmPIQMC
		short = "Run a batch of path-integral quantum Monte Carlo annealing runs"
	}
	flags := &experimentFlags{}
	cmd := &cobra.Command{
		Use:          use,
		Short:        short,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd, algorithm)
			if err != nil {
				return err
			}
			return runExperiment(cmd.Context(), cmd, algorithm, cfg)
		},
	}

	f := cmd.Flags()
	v := &flags.values
	f.StringVar(&flags.configPath, "config", "", "YAML experiment file; explicitly set flags take precedence")
	f.StringVar(&v.Model, "model", "", "Model family: ea, sk or wishart (default ea)")
	f.IntVar(&v.Seed, "seed", 1, "Disorder realization; also seeds every run")
	f.IntSliceVar(&v.Taus, "tau-schedule", nil, "Annealing lengths τ (default powers of two per family)")
	f.IntVar(&v.MCSteps, "mcsteps", 5, "Monte Carlo sweeps per schedule step")
	f.IntVar(&v.NumRuns, "numruns", 0, "Independent annealing runs (default per family)")
	f.IntVar(&v.Rows, "rows", 40, "EA lattice rows")
	f.IntVar(&v.Cols, "cols", 40, "EA lattice columns")
	f.IntVar(&v.N, "n", 0, "Number of spins for sk and wishart (default per family)")
	f.Float64Var(&v.Alpha, "alpha", 0.5, "Wishart planted-ensemble alpha")
	f.StringVar(&v.Boundary, "boundary", "open", "EA lattice boundary: open or periodic")
	f.StringVar(&v.Lattice, "lattice", "", "Require the coupling topology: 2D or FullyConnected")
	f.StringVar(&v.Couplings, "couplings", "", "Couplings file (default derived from --data-dir)")
	f.StringVar(&v.GroundState, "ground-state", "", "EA ground-state file (default derived from --data-dir)")
	f.StringVar(&v.DataDir, "data-dir", "data", "Directory holding the input files")
	f.StringVar(&v.ResultsDir, "results-dir", "results", "Directory receiving checkpoints")
	f.StringVar(&v.CheckpointBackend, "checkpoint-backend", checkpoint.BackendFile, "Checkpoint store: file, sqlite or badger")
	f.StringVar(&v.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after every run")

	if algorithm == experiment.AlgorithmSA {
		f.Float64Var(&v.T0, "T-0", 3.0, "Initial and warmup temperature (default per family)")
		f.Float64Var(&v.TFinal, "T-final", 1e-8, "Final temperature")
		f.IntVar(&v.NumWarmup, "num-warmup", 2000, "Warmup sweeps at T-0 before each anneal")
	} else {
		f.IntVar(&v.P, "P", 0, "Trotter slices (default per family)")
		f.Float64Var(&v.PT, "PT", 1.0, "Product of P and the slice temperature")
		f.Float64Var(&v.Gamma0, "gamma-0", 3.0, "Initial transverse field (default per family)")
		f.Float64Var(&v.GammaT, "gamma-T", 1e-8, "Final transverse field")
		f.Float64Var(&v.PreannealTemperature, "preanneal-temperature", 3.0, "Classical pre-annealing start temperature")
		f.IntVar(&v.PreannealSteps, "preanneal-steps", 60, "Classical pre-annealing schedule length")
		f.IntVar(&v.PreannealSweeps, "preanneal-mcsteps", 100, "Sweeps per pre-annealing step")
	}
	return cmd
}

// resolve merges defaults, the YAML file and explicitly set flags, then validates.
func (f *experimentFlags) resolve(cmd *cobra.Command, algorithm string) (ExperimentConfig, error) {
	modelFlag := ""
	if cmd.Flags().Changed("model") {
		modelFlag = strings.ToLower(f.values.Model)
	}
	cfg, err := loadExperimentConfig(f.configPath, modelFlag)
	if err != nil {
		return ExperimentConfig{}, err
	}
	for name, apply := range flagOverrides {
		if cmd.Flags().Changed(name) {
			apply(&cfg, &f.values)
		}
	}
	cfg.Model = strings.ToLower(cfg.Model)
	if err := cfg.Validate(algorithm); err != nil {
		return ExperimentConfig{}, fmt.Errorf("invalid experiment configuration: %w", err)
	}
	return cfg, nil
}

// runExperiment loads the model, runs or resumes the batch and prints its summary.
func runExperiment(ctx context.Context, cmd *cobra.Command, algorithm string, cfg ExperimentConfig) error {
	m, err := loadModel(&cfg)
	if err != nil {
		return err
	}
	selector, err := topologySelector(&cfg)
	if err != nil {
		return err
	}
	anneal, replicas, params, err := newAnnealFunc(algorithm, m, &cfg, selector)
	if err != nil {
		return err
	}

	name, err := cfg.checkpointName(algorithm)
	if err != nil {
		return err
	}
	dir := experiment.Directory(cfg.ResultsDir, m.Name(), algorithm)
	store, err := checkpoint.Open(ctx, cfg.CheckpointBackend, dir, name)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logrus.Warnf("close checkpoint store: %v", err)
		}
	}()

	ground, hasGround := m.GroundEnergy()
	if hasGround {
		params[groundEnergyParam] = ground
	}
	prov := checkpoint.Provenance{
		Family:      m.Name(),
		Algorithm:   algorithm,
		Realization: cfg.Seed,
		Params:      params,
	}

	logrus.Infof("Starting %s %s experiment %s: %d spins, %d runs, taus=%v, backend=%s",
		m.Name(), algorithm, name, m.NumSpins(), cfg.NumRuns, cfg.Taus, cfg.CheckpointBackend)
	runner := &experiment.Runner{
		Name:        name,
		Runs:        cfg.NumRuns,
		Taus:        cfg.Taus,
		Replicas:    replicas,
		Seed:        int64(cfg.Seed),
		Store:       store,
		Anneal:      anneal,
		Provenance:  prov,
		Metrics:     metrics.NewRecorder(m.Name(), algorithm),
		MetricsFile: cfg.MetricsFile,
	}
	results, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	summary, err := experiment.Summarize(results, cfg.Taus, ground, hasGround)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(name, summary, hasGround))
	logrus.Info("Experiment complete.")
	return nil
}

// newAnnealFunc wires the driver for algorithm to the runner. It builds one
// annealer up front so configuration and topology errors surface before any run.
func newAnnealFunc(algorithm string, m model.Model, cfg *ExperimentConfig, selector model.Topology) (experiment.AnnealFunc, int, map[string]float64, error) {
	switch algorithm {
	case experiment.AlgorithmSA:
		ccfg := sim.ClassicalConfig{
			TStart:        cfg.T0,
			TEnd:          cfg.TFinal,
			SweepsPerStep: cfg.MCSteps,
			WarmupSweeps:  cfg.NumWarmup,
			Topology:      selector,
		}
		if _, err := sim.NewClassicalAnnealer(m, ccfg, nil, sim.NewPartitionedRNG(0)); err != nil {
			return nil, 0, nil, err
		}
		params := map[string]float64{
			"mcsteps": float64(cfg.MCSteps), "T_0": cfg.T0, "T_final": cfg.TFinal, "num_warmup": float64(cfg.NumWarmup),
		}
		anneal := func(ctx context.Context, run int, rng *sim.PartitionedRNG) (experiment.RunOutput, error) {
			a, err := sim.NewClassicalAnnealer(m, ccfg, nil, rng)
			if err != nil {
				return experiment.RunOutput{}, err
			}
			energies, err := a.RunTaus(cfg.Taus)
			if err != nil {
				return experiment.RunOutput{}, err
			}
			out := experiment.RunOutput{Energies: make([][]float64, len(energies)), Sweeps: a.Sweeps()}
			for i, e := range energies {
				out.Energies[i] = []float64{e}
			}
			return out, nil
		}
		return anneal, 1, params, nil

	case experiment.AlgorithmPIQMC:
		qcfg := sim.QuantumConfig{
			Replicas:             cfg.P,
			PT:                   cfg.PT,
			FieldStart:           cfg.Gamma0,
			FieldEnd:             cfg.GammaT,
			SweepsPerStep:        cfg.MCSteps,
			PreAnnealTemperature: cfg.PreannealTemperature,
			PreAnnealSteps:       cfg.PreannealSteps,
			PreAnnealSweeps:      cfg.PreannealSweeps,
			Topology:             selector,
		}
		if _, err := sim.NewQuantumAnnealer(m, qcfg, nil, sim.NewPartitionedRNG(0)); err != nil {
			return nil, 0, nil, err
		}
		params := map[string]float64{
			"mcsteps": float64(cfg.MCSteps), "P": float64(cfg.P), "PT": cfg.PT, "q_temperature": qcfg.Temperature(),
			"gamma_0": cfg.Gamma0, "gamma_T": cfg.GammaT, "preanneal_temperature": cfg.PreannealTemperature,
			"preanneal_steps": float64(cfg.PreannealSteps), "preanneal_mcsteps": float64(cfg.PreannealSweeps),
		}
		anneal := func(ctx context.Context, run int, rng *sim.PartitionedRNG) (experiment.RunOutput, error) {
			q, err := sim.NewQuantumAnnealer(m, qcfg, nil, rng)
			if err != nil {
				return experiment.RunOutput{}, err
			}
			results, err := q.RunTaus(cfg.Taus)
			if err != nil {
				return experiment.RunOutput{}, err
			}
			out := experiment.RunOutput{Energies: make([][]float64, len(results)), Sweeps: q.Sweeps()}
			for i, r := range results {
				out.Energies[i] = r.ReplicaEnergies
			}
			return out, nil
		}
		return anneal, cfg.P, params, nil
	}
	return nil, 0, nil, fmt.Errorf("unknown algorithm %q", algorithm)
}
