package sim_test

// Blank import triggers sim/kernel's init(), which registers NewUpdateKernelFunc.
// This allows package sim's internal test files to build annealers with the
// default kernel without directly importing sim/kernel (which would create an import cycle).
import _ "github.com/anneal-sim/anneal-sim/sim/kernel"
