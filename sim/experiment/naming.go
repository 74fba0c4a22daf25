package experiment

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/anneal-sim/anneal-sim/sim/model"
)

// Algorithm names used in checkpoint names and directories.
const (
	AlgorithmSA    = "SA"
	AlgorithmPIQMC = "PIQMC"
)

// NameParams identifies a checkpoint.
type NameParams struct {
	Family      string
	Algorithm   string
	Rows, Cols  int     // EA lattice
	N           int     // SK and Wishart size
	Alpha       float64 // Wishart
	Replicas    int     // PIQMC
	Realization int
	Warmup      int // SA
}

// CheckpointName returns the stem shared by every backend, e.g.
// EA_40x40_P20_PIQMC_realization1_Energies,
// Wishart_N32_alpha0.5_P100_PIQMC_realization1_Energies or
// SK_N100_SA_realization1_numwarmup2000_Energies.
func CheckpointName(p NameParams) (string, error) {
	var size string
	switch p.Family {
	case model.FamilyEdwardsAnderson:
		size = fmt.Sprintf("%dx%d", p.Rows, p.Cols)
	case model.FamilySK:
		size = fmt.Sprintf("N%d", p.N)
	case model.FamilyWishart:
		size = fmt.Sprintf("N%d_alpha%s", p.N, strconv.FormatFloat(p.Alpha, 'g', -1, 64))
	default:
		return "", fmt.Errorf("unknown model family %q", p.Family)
	}
	// The replica count sets the array's last axis, so it must be in the name.
	if p.Algorithm == AlgorithmPIQMC {
		if p.Replicas < 1 {
			return "", fmt.Errorf("PIQMC checkpoint needs a replica count, got %d", p.Replicas)
		}
		size += fmt.Sprintf("_P%d", p.Replicas)
	}

	switch p.Algorithm {
	case AlgorithmSA:
		return fmt.Sprintf("%s_%s_SA_realization%d_numwarmup%d_Energies", p.Family, size, p.Realization, p.Warmup), nil
	case AlgorithmPIQMC:
		return fmt.Sprintf("%s_%s_PIQMC_realization%d_Energies", p.Family, size, p.Realization), nil
	default:
		return "", fmt.Errorf("unknown algorithm %q", p.Algorithm)
	}
}

// Directory returns <resultsDir>/<family>/<algorithm>.
func Directory(resultsDir, family, algorithm string) string {
	return filepath.Join(resultsDir, family, algorithm)
}
