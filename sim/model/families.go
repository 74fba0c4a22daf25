package model

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Family names, used in checkpoint names and on the command line.
const (
	FamilyEdwardsAnderson = "EA"
	FamilyWishart         = "Wishart"
	FamilySK              = "SK"
)

// === EdwardsAnderson ===

// EdwardsAnderson is a 2D nearest-neighbor spin glass with a known ground state.
// Couplings are held once per pair; the update kernel sweeps a NeighborTable.
type EdwardsAnderson struct {
	lattice      Lattice
	couplings    *SparseCouplings
	neighbors    *NeighborTable
	groundState  Spins
	groundEnergy float64 // per spin
}

// NewEdwardsAnderson validates that every coupling joins lattice neighbors,
// builds the neighbor table, and evaluates the ground-state energy.
func NewEdwardsAnderson(l Lattice, couplings *SparseCouplings, groundState Spins) (*EdwardsAnderson, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	n := l.NumSpins()
	if couplings.NumSpins() != n {
		return nil, fmt.Errorf("coupling store holds %d spins, lattice %dx%d has %d", couplings.NumSpins(), l.Rows, l.Cols, n)
	}
	if len(groundState) != n || !groundState.Valid() {
		return nil, &DataFormatError{Source: "ground state", Reason: fmt.Sprintf("need %d spins of ±1, got %d", n, len(groundState))}
	}
	var bad error
	couplings.Each(func(p Pair, _ float64) {
		if bad == nil && !l.Adjacent(p.I, p.J) {
			bad = &DataFormatError{Source: "couplings", Reason: fmt.Sprintf("pair (%d,%d) is not a %s-boundary lattice bond", p.I+1, p.J+1, l.Boundary)}
		}
	})
	if bad != nil {
		return nil, bad
	}
	nbs, err := BuildNeighborTable(n, couplings, LatticeMaxDegree)
	if err != nil {
		return nil, err
	}
	m := &EdwardsAnderson{
		lattice:     l,
		couplings:   couplings,
		neighbors:   nbs,
		groundState: groundState.Clone(),
	}
	m.groundEnergy = m.Energy(m.groundState) / float64(n)
	logrus.Infof("EA %dx%d (%s): true ground-state energy per site %.6f", l.Rows, l.Cols, l.Boundary, m.groundEnergy)
	return m, nil
}

func (m *EdwardsAnderson) Name() string              { return FamilyEdwardsAnderson }
func (m *EdwardsAnderson) NumSpins() int             { return m.lattice.NumSpins() }
func (m *EdwardsAnderson) Energy(s Spins) float64    { return m.couplings.Energy(s) }
func (m *EdwardsAnderson) Topology() Topology        { return TopologyLattice2D }
func (m *EdwardsAnderson) Couplings() Representation { return m.neighbors }

// GroundEnergy returns the planted ground-state energy per spin.
func (m *EdwardsAnderson) GroundEnergy() (float64, bool) { return m.groundEnergy, true }

// Lattice returns the geometry.
func (m *EdwardsAnderson) Lattice() Lattice { return m.lattice }

// GroundState returns a copy of the reference configuration.
func (m *EdwardsAnderson) GroundState() Spins { return m.groundState.Clone() }

// NeighborTable returns the kernel table.
func (m *EdwardsAnderson) NeighborTable() *NeighborTable { return m.neighbors }

// === dense families ===

type dense struct {
	j *DenseCouplings
}

func (d dense) NumSpins() int             { return d.j.NumSpins() }
func (d dense) Energy(s Spins) float64    { return d.j.Energy(s) }
func (d dense) Topology() Topology        { return TopologyFullyConnected }
func (d dense) Couplings() Representation { return d.j }

// Wishart is a dense planted-solution model: the all-up configuration is a ground state.
type Wishart struct {
	dense
	groundEnergy float64
}

// NewWishart wraps a symmetric coupling matrix.
func NewWishart(j *DenseCouplings) *Wishart {
	j.Symmetrize()
	w := &Wishart{dense: dense{j: j}}
	w.groundEnergy = w.Energy(AllUp(j.NumSpins())) / float64(j.NumSpins())
	logrus.Infof("Wishart N=%d: planted ground-state energy per site %.6f", j.NumSpins(), w.groundEnergy)
	return w
}

func (w *Wishart) Name() string { return FamilyWishart }

// GroundEnergy returns the planted energy per spin.
func (w *Wishart) GroundEnergy() (float64, bool) { return w.groundEnergy, true }

// SK is the fully connected Sherrington-Kirkpatrick model. No ground truth is known.
type SK struct {
	dense
}

// NewSK wraps a coupling store, symmetrizing it first.
func NewSK(j *DenseCouplings) *SK {
	j.Symmetrize()
	return &SK{dense: dense{j: j}}
}

func (m *SK) Name() string { return FamilySK }

// GroundEnergy always reports false.
func (m *SK) GroundEnergy() (float64, bool) { return 0, false }
