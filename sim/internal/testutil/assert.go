// Package testutil provides shared test infrastructure for the annealing
// packages: float assertions and on-disk model fixtures.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// WriteFile writes content to dir/name, creating parent directories, and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Ring2x2 is the open 2x2 lattice with J = -1 on all four bonds, in the
// 1-based "i j J" coupling format. Its ground state is the checkerboard.
const Ring2x2 = `# 2x2 ring
1 2 -1
3 4 -1
1 3 -1
2 4 -1
`

// Ring2x2GroundState lists the up spins (1-based) of the checkerboard ground state.
const Ring2x2GroundState = "1\n4\n"

// WriteRing2x2 writes the ring couplings and ground state under dir and
// returns their paths.
func WriteRing2x2(t *testing.T, dir string) (couplings, groundState string) {
	t.Helper()
	return WriteFile(t, dir, "ring_couplings.txt", Ring2x2),
		WriteFile(t, dir, "ring_gs.txt", Ring2x2GroundState)
}
