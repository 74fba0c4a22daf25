package cmd

import (
	"fmt"

	"github.com/anneal-sim/anneal-sim/sim/model"
)

// loadModel reads the couplings (and, for EA, the planted ground state) named by cfg.
func loadModel(cfg *ExperimentConfig) (model.Model, error) {
	var (
		m   model.Model
		err error
	)
	switch cfg.Model {
	case modelEA:
		l := model.Lattice{Rows: cfg.Rows, Cols: cfg.Cols, Boundary: model.Boundary(cfg.Boundary)}
		m, err = asModel(model.LoadEdwardsAnderson(l, cfg.couplingsPath(), cfg.groundStatePath()))
	case modelSK:
		m, err = asModel(model.LoadSK(cfg.N, cfg.couplingsPath()))
	case modelWishart:
		m, err = asModel(model.LoadWishart(cfg.N, cfg.couplingsPath()))
	default:
		err = fmt.Errorf("unknown model %q", cfg.Model)
	}
	return m, err
}

// asModel keeps a failed load from becoming a non-nil interface holding a nil pointer.
func asModel[M model.Model](m M, err error) (model.Model, error) {
	if err != nil {
		return nil, err
	}
	return m, nil
}

// topologySelector returns the explicit --lattice override, or zero to accept the model's own.
func topologySelector(cfg *ExperimentConfig) (model.Topology, error) {
	if cfg.Lattice == "" {
		return 0, nil
	}
	return model.ParseTopology(cfg.Lattice)
}
