// Package metrics records run metrics in a Prometheus registry and can dump
// them in the text exposition format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"pibarrier/core"
)

// Recorder holds all Prometheus metrics of a process. It implements
// core.Observer.
type Recorder struct {
	registry *prometheus.Registry

	RunsTotal       *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	RoundsTotal     prometheus.Counter
	IterationsTotal prometheus.Counter
	InterruptsTotal prometheus.Counter
	WorkersFinished *prometheus.CounterVec
	LastPi          prometheus.Gauge
}

var _ core.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder on its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pi_runs_total",
				Help: "Total number of runs by implementation and outcome",
			},
			[]string{"impl", "outcome"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pi_run_duration_seconds",
				Help:    "Run duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 12),
			},
			[]string{"impl"},
		),
		RoundsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pi_checkpoint_rounds_total",
				Help: "Total number of completed checkpoint rounds",
			},
		),
		IterationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pi_worker_iterations_total",
				Help: "Total number of series terms summed by all workers",
			},
		),
		InterruptsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "pi_interrupts_total",
				Help: "Total number of runs stopped by an interrupt",
			},
		),
		WorkersFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pi_workers_finished_total",
				Help: "Total number of workers that published a result, by stop reason",
			},
			[]string{"reason"},
		),
		LastPi: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pi_last_approximation",
				Help: "Value of pi produced by the last successful run",
			},
		),
	}

	r.registry.MustRegister(
		r.RunsTotal,
		r.RunDuration,
		r.RoundsTotal,
		r.IterationsTotal,
		r.InterruptsTotal,
		r.WorkersFinished,
		r.LastPi,
	)
	return r
}

// Registry returns the registry the metrics are registered on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) RoundCompleted(uint64, bool) {
	r.RoundsTotal.Inc()
}

func (r *Recorder) WorkerFinished(st core.WorkerState) {
	r.IterationsTotal.Add(float64(st.Iterations))
	r.WorkersFinished.WithLabelValues(st.Reason.String()).Inc()
}

func (r *Recorder) RunFinished(impl string, res core.Result, err error) {
	if err != nil {
		r.RunsTotal.WithLabelValues(impl, "error").Inc()
		return
	}
	r.RunsTotal.WithLabelValues(impl, "success").Inc()
	r.RunDuration.WithLabelValues(impl).Observe(res.Elapsed.Seconds())
	r.LastPi.Set(res.Pi)
	if res.Interrupted {
		r.InterruptsTotal.Inc()
	}
}

// WriteFile writes all metrics to path in the text exposition format.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
