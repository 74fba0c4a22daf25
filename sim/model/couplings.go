package model

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Pair is an unordered spin pair normalized so that I < J.
type Pair struct {
	I, J int
}

// NewPair normalizes (i, j) into ascending order.
func NewPair(i, j int) Pair {
	if i > j {
		i, j = j, i
	}
	return Pair{I: i, J: j}
}

func checkPair(n, i, j int) error {
	if i == j {
		return fmt.Errorf("%w: self-coupling (%d,%d)", ErrInvalidIndex, i, j)
	}
	if i < 0 || j < 0 || i >= n || j >= n {
		return fmt.Errorf("%w: pair (%d,%d) outside [0,%d)", ErrInvalidIndex, i, j, n)
	}
	return nil
}

// === SparseCouplings ===

// SparseCouplings is the single-pair coupling store: every undirected pair is
// held exactly once, so Energy applies no scaling factor.
// Iteration order is the order in which pairs were first set.
type SparseCouplings struct {
	n      int
	values map[Pair]float64
	order  []Pair
}

// NewSparseCouplings creates an empty store for n spins.
func NewSparseCouplings(n int) *SparseCouplings {
	return &SparseCouplings{n: n, values: make(map[Pair]float64)}
}

// NumSpins returns N.
func (c *SparseCouplings) NumSpins() int { return c.n }

// Len returns the number of stored pairs.
func (c *SparseCouplings) Len() int { return len(c.order) }

// Set records the coupling of (i, j). Setting an existing pair overwrites its value.
func (c *SparseCouplings) Set(i, j int, value float64) error {
	if err := checkPair(c.n, i, j); err != nil {
		return err
	}
	p := NewPair(i, j)
	if _, ok := c.values[p]; !ok {
		c.order = append(c.order, p)
	}
	c.values[p] = value
	return nil
}

// Get returns the coupling of (i, j) and whether it is stored.
func (c *SparseCouplings) Get(i, j int) (float64, bool) {
	v, ok := c.values[NewPair(i, j)]
	return v, ok
}

// Each calls fn for every stored pair in insertion order.
func (c *SparseCouplings) Each(fn func(p Pair, value float64)) {
	for _, p := range c.order {
		fn(p, c.values[p])
	}
}

// Energy returns -Σ_(i,j) J_ij s_i s_j over stored pairs.
func (c *SparseCouplings) Energy(s Spins) float64 {
	var e float64
	for _, p := range c.order {
		e -= c.values[p] * float64(s[p.I]) * float64(s[p.J])
	}
	return e
}

// === DenseCouplings ===

// DenseCouplings is the doubled-pair coupling store: an N×N matrix in which
// each undirected pair appears at (i,j) and (j,i) once symmetrized.
// Energy is therefore -½ sᵀJs.
type DenseCouplings struct {
	j         *mat.Dense
	symmetric bool
}

// NewDenseCouplings creates an all-zero N×N store.
func NewDenseCouplings(n int) *DenseCouplings {
	return &DenseCouplings{j: mat.NewDense(n, n, nil), symmetric: true}
}

// NewDenseCouplingsFromMatrix copies a pre-built symmetric matrix.
// Asymmetric input fails with a DataFormatError. Diagonal entries are dropped
// (they would be self-couplings) with a warning.
func NewDenseCouplingsFromMatrix(source string, m mat.Matrix) (*DenseCouplings, error) {
	r, cols := m.Dims()
	if r != cols {
		return nil, dataFormatErrorf(source, 0, "coupling matrix is %dx%d, want square", r, cols)
	}
	c := NewDenseCouplings(r)
	dropped := 0
	for i := 0; i < r; i++ {
		if m.At(i, i) != 0 {
			dropped++
		}
		for k := i + 1; k < r; k++ {
			upper, lower := m.At(i, k), m.At(k, i)
			if upper != lower {
				return nil, dataFormatErrorf(source, i+1, "matrix not symmetric at (%d,%d): %g != %g", i+1, k+1, upper, lower)
			}
			c.j.Set(i, k, upper)
		}
	}
	if dropped > 0 {
		logrus.Warnf("%s: dropped %d non-zero diagonal couplings", source, dropped)
	}
	c.Symmetrize()
	return c, nil
}

// NumSpins returns N.
func (c *DenseCouplings) NumSpins() int {
	n, _ := c.j.Dims()
	return n
}

// Set records J_ij into the upper triangle. Call Symmetrize before use.
func (c *DenseCouplings) Set(i, j int, value float64) error {
	if err := checkPair(c.NumSpins(), i, j); err != nil {
		return err
	}
	p := NewPair(i, j)
	c.j.Set(p.I, p.J, value)
	c.symmetric = false
	return nil
}

// At returns J_ij.
func (c *DenseCouplings) At(i, j int) float64 {
	p := NewPair(i, j)
	return c.j.At(p.I, p.J)
}

// Symmetrize mirrors every upper-triangular entry into the lower triangle.
// It is idempotent.
func (c *DenseCouplings) Symmetrize() {
	n := c.NumSpins()
	for i := 0; i < n; i++ {
		for k := i + 1; k < n; k++ {
			c.j.Set(k, i, c.j.At(i, k))
		}
	}
	c.symmetric = true
}

// Symmetric reports whether the lower triangle mirrors the upper one.
func (c *DenseCouplings) Symmetric() bool { return c.symmetric }

// Row returns row i of the symmetrized matrix. The slice aliases the store; do not modify.
func (c *DenseCouplings) Row(i int) []float64 {
	c.ensureSymmetric()
	return c.j.RawRowView(i)
}

// Energy returns -½ sᵀJs.
func (c *DenseCouplings) Energy(s Spins) float64 {
	c.ensureSymmetric()
	v := spinVector(s)
	return -0.5 * mat.Inner(v, c.j, v)
}

// Topology implements Representation.
func (c *DenseCouplings) Topology() Topology { return TopologyFullyConnected }

// LocalField implements Representation.
func (c *DenseCouplings) LocalField(i int, s Spins) float64 {
	var h float64
	for k, v := range c.Row(i) {
		h += v * float64(s[k])
	}
	return h
}

func (c *DenseCouplings) ensureSymmetric() {
	if !c.symmetric {
		c.Symmetrize()
	}
}

func spinVector(s Spins) *mat.VecDense {
	data := make([]float64, len(s))
	for i, v := range s {
		data[i] = float64(v)
	}
	return mat.NewVecDense(len(s), data)
}
