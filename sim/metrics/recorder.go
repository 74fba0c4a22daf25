// Package metrics exposes experiment progress as Prometheus collectors on a
// private registry. Batch jobs have no scrape endpoint, so the registry is
// written to a node-exporter textfile after each checkpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "anneal"

// Recorder tracks one experiment. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry
	labels   prometheus.Labels

	runsCompleted         *prometheus.CounterVec
	runDuration           *prometheus.HistogramVec
	sweeps                *prometheus.CounterVec
	checkpointWrites      *prometheus.CounterVec
	checkpointWriteErrors *prometheus.CounterVec
	lastMinEnergy         *prometheus.GaugeVec
}

// NewRecorder registers the experiment collectors labelled with family and algorithm.
func NewRecorder(family, algorithm string) *Recorder {
	labelNames := []string{"family", "algorithm"}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		labels:   prometheus.Labels{"family": family, "algorithm": algorithm},
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_completed_total",
			Help:      "Independent annealing runs completed, resumed runs excluded",
		}, labelNames),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of one run over every tau",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, labelNames),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sweeps_total",
			Help:      "Monte Carlo sweeps executed, warmup included",
		}, labelNames),
		checkpointWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "checkpoint_writes_total",
			Help:      "Successful checkpoint saves",
		}, labelNames),
		checkpointWriteErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "checkpoint_write_errors_total",
			Help:      "Failed checkpoint saves",
		}, labelNames),
		lastMinEnergy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_min_energy_per_spin",
			Help:      "Lowest energy per spin reached by the most recent run",
		}, labelNames),
	}
	r.registry.MustRegister(
		r.runsCompleted,
		r.runDuration,
		r.sweeps,
		r.checkpointWrites,
		r.checkpointWriteErrors,
		r.lastMinEnergy,
	)
	return r
}

// Registry returns the private registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RunCompleted records one finished run.
func (r *Recorder) RunCompleted(duration time.Duration, sweeps int64, minEnergyPerSpin float64) {
	if r == nil {
		return
	}
	r.runsCompleted.With(r.labels).Inc()
	r.runDuration.With(r.labels).Observe(duration.Seconds())
	r.sweeps.With(r.labels).Add(float64(sweeps))
	r.lastMinEnergy.With(r.labels).Set(minEnergyPerSpin)
}

// CheckpointSaved records the outcome of one checkpoint save.
func (r *Recorder) CheckpointSaved(err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.checkpointWriteErrors.With(r.labels).Inc()
		return
	}
	r.checkpointWrites.With(r.labels).Inc()
}

// WriteTextfile atomically writes every collector in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
