package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for simulations_total.
const (
	OutcomeOK               = "ok"
	OutcomeValidationError  = "validation_error"
	OutcomeResourceError    = "resource_error"
	OutcomeComputationError = "computation_error"
	OutcomeInternalError    = "internal_error"
)

// SimulationCollector bundles the Prometheus metrics of the simulation
// pipeline and exposes them over HTTP.
type SimulationCollector struct {
	gatherer prometheus.Gatherer

	Simulations    *prometheus.CounterVec
	StageDurations *prometheus.HistogramVec
	UVWSamples     prometheus.Histogram
	StoredRuns     prometheus.Gauge
}

// NewSimulationCollector registers the simulation metrics against reg,
// defaulting to the global Prometheus registry when nil.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	simulations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulations_total",
		Help: "Total number of simulation requests, labeled by outcome.",
	}, []string{"outcome"}), "simulations_total")
	if err != nil {
		return nil, err
	}

	stages, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simulation_stage_duration_seconds",
		Help:    "Duration of each simulation pipeline stage in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"stage"}), "simulation_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	samples, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "simulation_uvw_samples",
		Help:    "Number of uvw samples (with conjugates) gridded per simulation.",
		Buckets: prometheus.ExponentialBuckets(10, 4, 10),
	}), "simulation_uvw_samples")
	if err != nil {
		return nil, err
	}

	runs, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "simulation_history_runs",
		Help: "Number of simulation runs held in the history store.",
	}), "simulation_history_runs")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		gatherer:       gatherer,
		Simulations:    simulations,
		StageDurations: stages,
		UVWSamples:     samples,
		StoredRuns:     runs,
	}, nil
}

// ObserveStage records how long a pipeline stage took.
func (c *SimulationCollector) ObserveStage(stage string, d time.Duration) {
	if c == nil || c.StageDurations == nil {
		return
	}
	c.StageDurations.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordOutcome counts a finished simulation.
func (c *SimulationCollector) RecordOutcome(outcome string) {
	if c == nil || c.Simulations == nil {
		return
	}
	c.Simulations.WithLabelValues(outcome).Inc()
}

// ObserveSamples records the number of gridded uvw samples.
func (c *SimulationCollector) ObserveSamples(n int) {
	if c == nil || c.UVWSamples == nil {
		return
	}
	c.UVWSamples.Observe(float64(n))
}

// SetStoredRuns updates the history gauge.
func (c *SimulationCollector) SetStoredRuns(n int) {
	if c == nil || c.StoredRuns == nil {
		return
	}
	c.StoredRuns.Set(float64(n))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimulationCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
