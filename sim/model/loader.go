package model

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Input files are whitespace-delimited text. Coupling rows are
// "row col value" with 1-based indices; ground-state files list the
// 1-based indices of up spins. Blank lines and lines starting with '#'
// are skipped. Any other malformed row fails the whole load.

type lineScanner struct {
	source string
	sc     *bufio.Scanner
	line   int
}

func newLineScanner(r io.Reader, source string) *lineScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &lineScanner{source: source, sc: sc}
}

// next returns the fields of the next non-empty line, or nil at EOF.
func (ls *lineScanner) next() ([]string, error) {
	for ls.sc.Scan() {
		ls.line++
		text := strings.TrimSpace(ls.sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		return strings.Fields(text), nil
	}
	if err := ls.sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", ls.source, err)
	}
	return nil, nil
}

// parseIndex accepts "3" and numpy-style "3.0", rejecting fractional values.
func (ls *lineScanner) parseIndex(field string, n int) (int, error) {
	f, err := strconv.ParseFloat(field, 64)
	if err != nil || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, dataFormatErrorf(ls.source, ls.line, "index %q is not an integer", field)
	}
	idx := int(f) - 1
	if idx < 0 || idx >= n {
		return 0, dataFormatErrorf(ls.source, ls.line, "index %s outside [1,%d]", field, n)
	}
	return idx, nil
}

func (ls *lineScanner) parseValue(field string) (float64, error) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, dataFormatErrorf(ls.source, ls.line, "value %q is not a finite number", field)
	}
	return v, nil
}

// PairEntry is one parsed coupling row, already 0-indexed.
type PairEntry struct {
	I, J  int
	Value float64
}

// ReadPairEntries parses "row col value" triplets for an n-spin system.
// Self-loops and out-of-range indices are DataFormatErrors.
func ReadPairEntries(r io.Reader, source string, n int) ([]PairEntry, error) {
	ls := newLineScanner(r, source)
	var entries []PairEntry
	for {
		fields, err := ls.next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			return entries, nil
		}
		if len(fields) != 3 {
			return nil, dataFormatErrorf(source, ls.line, "want 3 columns (row col value), got %d", len(fields))
		}
		i, err := ls.parseIndex(fields[0], n)
		if err != nil {
			return nil, err
		}
		j, err := ls.parseIndex(fields[1], n)
		if err != nil {
			return nil, err
		}
		if i == j {
			return nil, dataFormatErrorf(source, ls.line, "self-coupling on spin %d", i+1)
		}
		v, err := ls.parseValue(fields[2])
		if err != nil {
			return nil, err
		}
		entries = append(entries, PairEntry{I: i, J: j, Value: v})
	}
}

// ReadSparseCouplings loads a single-pair store. A pair listed twice must carry
// the same value both times.
func ReadSparseCouplings(r io.Reader, source string, n int) (*SparseCouplings, error) {
	entries, err := ReadPairEntries(r, source, n)
	if err != nil {
		return nil, err
	}
	c := NewSparseCouplings(n)
	for _, e := range entries {
		if prev, ok := c.Get(e.I, e.J); ok && prev != e.Value {
			return nil, dataFormatErrorf(source, 0, "pair (%d,%d) listed with conflicting values %g and %g", e.I+1, e.J+1, prev, e.Value)
		}
		if err := c.Set(e.I, e.J, e.Value); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ReadDenseCouplings loads triplets into a dense store and symmetrizes it.
func ReadDenseCouplings(r io.Reader, source string, n int) (*DenseCouplings, error) {
	entries, err := ReadPairEntries(r, source, n)
	if err != nil {
		return nil, err
	}
	c := NewDenseCouplings(n)
	seen := make(map[Pair]float64, len(entries))
	for _, e := range entries {
		p := NewPair(e.I, e.J)
		if prev, ok := seen[p]; ok && prev != e.Value {
			return nil, dataFormatErrorf(source, 0, "pair (%d,%d) listed with conflicting values %g and %g", p.I+1, p.J+1, prev, e.Value)
		}
		seen[p] = e.Value
		if err := c.Set(e.I, e.J, e.Value); err != nil {
			return nil, err
		}
	}
	c.Symmetrize()
	return c, nil
}

// ReadGroundState parses a list of 1-based up-spin indices; all other spins are down.
// Rows may hold one or more indices.
func ReadGroundState(r io.Reader, source string, n int) (Spins, error) {
	ls := newLineScanner(r, source)
	s := make(Spins, n)
	for i := range s {
		s[i] = -1
	}
	for {
		fields, err := ls.next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			return s, nil
		}
		for _, f := range fields {
			idx, err := ls.parseIndex(f, n)
			if err != nil {
				return nil, err
			}
			s[idx] = 1
		}
	}
}

// ReadMatrix parses a whitespace-delimited square matrix, one row per line.
func ReadMatrix(r io.Reader, source string) (*mat.Dense, error) {
	ls := newLineScanner(r, source)
	var rows [][]float64
	for {
		fields, err := ls.next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			break
		}
		if len(rows) > 0 && len(fields) != len(rows[0]) {
			return nil, dataFormatErrorf(source, ls.line, "row has %d columns, want %d", len(fields), len(rows[0]))
		}
		row := make([]float64, len(fields))
		for k, f := range fields {
			if row[k], err = ls.parseValue(f); err != nil {
				return nil, err
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, dataFormatErrorf(source, 0, "empty matrix")
	}
	n := len(rows)
	if len(rows[0]) != n {
		return nil, dataFormatErrorf(source, 0, "matrix is %dx%d, want square", n, len(rows[0]))
	}
	data := make([]float64, 0, n*n)
	for _, row := range rows {
		data = append(data, row...)
	}
	return mat.NewDense(n, n, data), nil
}

// === file helpers ===

func withFile[T any](path string, fn func(io.Reader) (T, error)) (T, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return fn(f)
}

// LoadEdwardsAnderson reads the coupling and ground-state files of an EA instance.
func LoadEdwardsAnderson(l Lattice, couplingsPath, groundStatePath string) (*EdwardsAnderson, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	n := l.NumSpins()
	j, err := withFile(couplingsPath, func(r io.Reader) (*SparseCouplings, error) {
		return ReadSparseCouplings(r, couplingsPath, n)
	})
	if err != nil {
		return nil, err
	}
	gs, err := withFile(groundStatePath, func(r io.Reader) (Spins, error) {
		return ReadGroundState(r, groundStatePath, n)
	})
	if err != nil {
		return nil, err
	}
	return NewEdwardsAnderson(l, j, gs)
}

// LoadSK reads a triplet coupling file for an n-spin SK instance.
func LoadSK(n int, couplingsPath string) (*SK, error) {
	j, err := withFile(couplingsPath, func(r io.Reader) (*DenseCouplings, error) {
		return ReadDenseCouplings(r, couplingsPath, n)
	})
	if err != nil {
		return nil, err
	}
	return NewSK(j), nil
}

// LoadWishart reads a full N×N coupling matrix. n must match the file.
func LoadWishart(n int, matrixPath string) (*Wishart, error) {
	m, err := withFile(matrixPath, func(r io.Reader) (*mat.Dense, error) {
		return ReadMatrix(r, matrixPath)
	})
	if err != nil {
		return nil, err
	}
	if rows, _ := m.Dims(); rows != n {
		return nil, dataFormatErrorf(matrixPath, 0, "matrix has %d spins, want %d", rows, n)
	}
	j, err := NewDenseCouplingsFromMatrix(matrixPath, m)
	if err != nil {
		return nil, err
	}
	return NewWishart(j), nil
}
