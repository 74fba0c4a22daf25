package model

import "fmt"

// Topology selects which coupling representation a model hands to the update kernel.
// The set is closed: a Topology value obtained from ParseTopology or a model
// constructor is always one of the constants below.
type Topology int

const (
	// TopologyLattice2D is a sparse nearest-neighbor lattice served by a NeighborTable.
	TopologyLattice2D Topology = iota + 1
	// TopologyFullyConnected is an all-to-all model served by DenseCouplings.
	TopologyFullyConnected
)

// topologyNames maps accepted selector strings, using the names of the original run scripts.
var topologyNames = map[string]Topology{
	"2D":             TopologyLattice2D,
	"FullyConnected": TopologyFullyConnected,
}

// ParseTopology resolves a lattice selector. Unknown selectors fail with ErrUnsupportedTopology.
func ParseTopology(name string) (Topology, error) {
	t, ok := topologyNames[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q; valid: 2D, FullyConnected", ErrUnsupportedTopology, name)
	}
	return t, nil
}

// Valid reports whether t is one of the declared constants.
func (t Topology) Valid() bool {
	return t == TopologyLattice2D || t == TopologyFullyConnected
}

func (t Topology) String() string {
	switch t {
	case TopologyLattice2D:
		return "2D"
	case TopologyFullyConnected:
		return "FullyConnected"
	default:
		return fmt.Sprintf("Topology(%d)", int(t))
	}
}

// Representation is the kernel-facing view of a model's couplings.
// Implementations: *NeighborTable (lattice) and *DenseCouplings (fully connected).
type Representation interface {
	Topology() Topology
	// NumSpins returns N.
	NumSpins() int
	// LocalField returns Σ_j J_ij s_j, the field acting on spin i.
	LocalField(i int, s Spins) float64
}

// Model is the common contract of the three spin-glass families.
type Model interface {
	// Name is the family label used in checkpoint names ("EA", "SK", "Wishart").
	Name() string
	NumSpins() int
	// Energy returns the total energy of s under the model's couplings.
	Energy(s Spins) float64
	Topology() Topology
	// Couplings returns the representation the update kernel sweeps over.
	// It is selected at construction and never changes.
	Couplings() Representation
	// GroundEnergy returns the reference energy per spin, if the family has one.
	GroundEnergy() (float64, bool)
}

// EnergyPerSpin is the reported unit for run records.
func EnergyPerSpin(m Model, s Spins) float64 {
	return m.Energy(s) / float64(m.NumSpins())
}
