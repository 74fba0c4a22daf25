// register.go wires the Metropolis kernel into the sim package's registration
// variable (NewUpdateKernelFunc). This init() runs when any package imports
// sim/kernel, breaking the import cycle between sim/ (interface owner) and
// sim/kernel/ (implementation). Production code imports sim/kernel directly;
// test code in package sim uses kernel_import_test.go for the blank import.
package kernel

import "github.com/anneal-sim/anneal-sim/sim"

func init() {
	sim.NewUpdateKernelFunc = func() sim.UpdateKernel {
		return NewMetropolis()
	}
}
