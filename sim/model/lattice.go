package model

import "fmt"

// Boundary selects the lattice boundary condition.
type Boundary string

const (
	BoundaryOpen     Boundary = "open"
	BoundaryPeriodic Boundary = "periodic"
)

// LatticeMaxDegree is the neighbor-table capacity of a 2D nearest-neighbor lattice.
const LatticeMaxDegree = 4

// IsValidBoundary reports whether b names a supported boundary condition.
func IsValidBoundary(b string) bool {
	return Boundary(b) == BoundaryOpen || Boundary(b) == BoundaryPeriodic
}

// Lattice is a rows×cols 2D grid; spin (r, c) has index r*Cols + c.
type Lattice struct {
	Rows     int
	Cols     int
	Boundary Boundary
}

// NumSpins returns Rows*Cols.
func (l Lattice) NumSpins() int { return l.Rows * l.Cols }

// Validate checks the geometry.
func (l Lattice) Validate() error {
	if l.Rows < 1 || l.Cols < 1 {
		return fmt.Errorf("lattice must be at least 1x1, got %dx%d", l.Rows, l.Cols)
	}
	if !IsValidBoundary(string(l.Boundary)) {
		return fmt.Errorf("unknown boundary %q; valid: open, periodic", l.Boundary)
	}
	return nil
}

// Adjacent reports whether spins i and j are nearest neighbors under the boundary condition.
func (l Lattice) Adjacent(i, j int) bool {
	ri, ci := i/l.Cols, i%l.Cols
	rj, cj := j/l.Cols, j%l.Cols
	dr, dc := absInt(ri-rj), absInt(ci-cj)
	if l.Boundary == BoundaryPeriodic {
		if l.Rows > 2 && dr == l.Rows-1 {
			dr = 1
		}
		if l.Cols > 2 && dc == l.Cols-1 {
			dc = 1
		}
	}
	return dr+dc == 1
}

// Bonds lists every nearest-neighbor pair once, row-major.
func (l Lattice) Bonds() []Pair {
	var bonds []Pair
	seen := make(map[Pair]bool)
	addBond := func(i, j int) {
		p := NewPair(i, j)
		if i != j && !seen[p] {
			seen[p] = true
			bonds = append(bonds, p)
		}
	}
	for r := 0; r < l.Rows; r++ {
		for c := 0; c < l.Cols; c++ {
			i := r*l.Cols + c
			if c+1 < l.Cols {
				addBond(i, i+1)
			} else if l.Boundary == BoundaryPeriodic && l.Cols > 2 {
				addBond(i, r*l.Cols)
			}
			if r+1 < l.Rows {
				addBond(i, i+l.Cols)
			} else if l.Boundary == BoundaryPeriodic && l.Rows > 2 {
				addBond(i, c)
			}
		}
	}
	return bonds
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
