// Package sim provides the annealing drivers for Ising spin glasses.
//
// # Reading Guide
//
// Start with these three files to understand an anneal:
//   - kernel.go: the UpdateKernel boundary, the only code that flips spins
//   - classical.go: simulated annealing (warmup, linear temperature ramp)
//   - quantum.go: path-integral annealing over P Trotter replicas
//
// # Architecture
//
// The sim package defines the drivers and the kernel interface; everything
// else lives in sub-packages:
//   - sim/model/: coupling stores, neighbor tables, EA/SK/Wishart models, input loaders
//   - sim/schedule/: linear temperature and transverse-field schedules, τ lists
//   - sim/kernel/: reference Metropolis and Suzuki-Trotter sweeps
//   - sim/experiment/: resumable batches of runs, checkpoint naming, summaries
//   - sim/checkpoint/: file (.npy + YAML), sqlite and badger checkpoint stores
//   - sim/metrics/: Prometheus collectors written to a textfile
//
// sim/kernel registers its implementation via an init() function that sets
// the package-level factory variable NewUpdateKernelFunc.
//
// # Randomness
//
// Every run owns a PartitionedRNG keyed by RunKey(seed, run), so a run's
// trajectory depends only on the experiment seed and its run number. Initial
// configurations and kernel sweeps draw from separate subsystem streams.
package sim
