package model

import "fmt"

// Neighbor is one slot of a NeighborTable row.
type Neighbor struct {
	Index int32
	Value float64
}

// NeighborTable is a fixed-capacity adjacency list for sparse models.
// Row i holds Degree(i) live entries followed by zero padding up to MaxDegree.
type NeighborTable struct {
	n         int
	maxDegree int
	entries   []Neighbor // n*maxDegree, row-major
	degree    []int
}

// BuildNeighborTable derives the table from a single-pair store. Each stored
// pair (i,j,v) produces (j,v) in row i and (i,v) in row j. Pairs are visited
// in insertion order, so the result is deterministic.
func BuildNeighborTable(n int, couplings *SparseCouplings, maxDegree int) (*NeighborTable, error) {
	if maxDegree < 1 {
		return nil, fmt.Errorf("max degree must be positive, got %d", maxDegree)
	}
	if couplings.NumSpins() != n {
		return nil, fmt.Errorf("coupling store holds %d spins, want %d", couplings.NumSpins(), n)
	}
	t := &NeighborTable{
		n:         n,
		maxDegree: maxDegree,
		entries:   make([]Neighbor, n*maxDegree),
		degree:    make([]int, n),
	}
	var err error
	couplings.Each(func(p Pair, v float64) {
		if err != nil {
			return
		}
		if err = t.add(p.I, p.J, v); err != nil {
			return
		}
		err = t.add(p.J, p.I, v)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (t *NeighborTable) add(row, neighbor int, v float64) error {
	d := t.degree[row]
	if d >= t.maxDegree {
		return fmt.Errorf("%w: spin %d has more than %d neighbors", ErrDegreeExceeded, row, t.maxDegree)
	}
	t.entries[row*t.maxDegree+d] = Neighbor{Index: int32(neighbor), Value: v}
	t.degree[row] = d + 1
	return nil
}

// NumSpins returns N.
func (t *NeighborTable) NumSpins() int { return t.n }

// MaxDegree returns the row capacity D.
func (t *NeighborTable) MaxDegree() int { return t.maxDegree }

// Degree returns the number of live entries in row i.
func (t *NeighborTable) Degree(i int) int { return t.degree[i] }

// Row returns the live entries of row i. The slice aliases the table; do not modify.
func (t *NeighborTable) Row(i int) []Neighbor {
	start := i * t.maxDegree
	return t.entries[start : start+t.degree[i]]
}

// Slot returns entry k of row i, including padding (k < MaxDegree).
func (t *NeighborTable) Slot(i, k int) Neighbor {
	return t.entries[i*t.maxDegree+k]
}

// Topology implements Representation.
func (t *NeighborTable) Topology() Topology { return TopologyLattice2D }

// LocalField implements Representation.
func (t *NeighborTable) LocalField(i int, s Spins) float64 {
	var h float64
	for _, nb := range t.Row(i) {
		h += nb.Value * float64(s[nb.Index])
	}
	return h
}
