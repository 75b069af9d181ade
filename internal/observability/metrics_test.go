package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSimulationCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimulationCollector(reg)
	require.NoError(t, err)

	collector.RecordOutcome(OutcomeOK)
	collector.RecordOutcome(OutcomeOK)
	collector.RecordOutcome(OutcomeValidationError)
	collector.ObserveStage("psf", 20*time.Millisecond)
	collector.ObserveSamples(2520)
	collector.SetStoredRuns(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.Simulations.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Simulations.WithLabelValues(OutcomeValidationError)))
	assert.Equal(t, 4.0, testutil.ToFloat64(collector.StoredRuns))
	assert.Equal(t, uint64(1), histogramSampleCount(t, reg, "simulation_stage_duration_seconds", map[string]string{"stage": "psf"}))
	assert.Equal(t, uint64(1), histogramSampleCount(t, reg, "simulation_uvw_samples", nil))
}

func TestSimulationCollectorReregisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewSimulationCollector(reg)
	require.NoError(t, err)
	second, err := NewSimulationCollector(reg)
	require.NoError(t, err)

	first.RecordOutcome(OutcomeOK)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.Simulations.WithLabelValues(OutcomeOK)))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *SimulationCollector
	c.RecordOutcome(OutcomeOK)
	c.ObserveStage("uvw", time.Second)
	c.ObserveSamples(1)
	c.SetStoredRuns(1)
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewSimulationCollector(reg)
	require.NoError(t, err)
	collector.RecordOutcome(OutcomeComputationError)
	collector.ObserveStage("convolve", time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	for _, metric := range []string{
		"simulations_total",
		"simulation_stage_duration_seconds",
		"simulation_history_runs",
	} {
		assert.True(t, strings.Contains(body, metric), "expected %q in /metrics output", metric)
	}
}

func TestInitTracingDisabled(t *testing.T) {
	tracing, err := InitTracing(context.Background(), TracingConfig{Enabled: false}, nil)
	require.NoError(t, err)
	require.NotNil(t, tracing)
	tracing.Close()

	_, span := Tracer().Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestInitTracingStdout(t *testing.T) {
	tracing, err := InitTracing(context.Background(), TracingConfig{Enabled: true, ServiceName: "test", SampleRatio: 1}, nil)
	require.NoError(t, err)
	defer tracing.Close()

	_, span := Tracer().Start(context.Background(), "sampled")
	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.SpanContext().IsSampled())
	span.End()
}

func TestInitTracingRejectsUnknownExporter(t *testing.T) {
	_, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, nil)
	assert.Error(t, err)
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
