// Package simulation runs the observation pipeline for one request: resolve
// the array and sky model, locate the telescope, form baselines, synthesise
// uvw coverage, compute the dirty beam and convolve it with the sky.
package simulation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/radioastro101/backend/internal/catalog"
	"github.com/radioastro101/backend/internal/imaging"
	"github.com/radioastro101/backend/internal/interferometry"
	"github.com/radioastro101/backend/internal/logging"
	"github.com/radioastro101/backend/internal/models"
	"github.com/radioastro101/backend/internal/observability"
)

// Request limits.
const (
	MaxSynthesisHours     = 12.0
	MaxIntegrationSeconds = 36000.0
	MaxWavelengthMeters   = 10.0
	DefaultMaxSamples     = 2_000_000
)

// Pipeline stages, used as span names and metric labels.
const (
	stageResolve   = "resolve"
	stageLocate    = "locate"
	stageBaselines = "baselines"
	stageUVW       = "uvw"
	stagePSF       = "psf"
	stageConvolve  = "convolve"
)

const (
	opValidate           = "validate request"
	historyRecordTimeout = 2 * time.Second
)

// Resolver turns array and sky model names into inputs.
type Resolver interface {
	ResolveArray(name string) (*catalog.Array, error)
	ResolveSky(name string) (*imaging.Grid, error)
}

// Recorder stores finished runs.
type Recorder interface {
	Record(ctx context.Context, run models.RunSummary) error
	Count(ctx context.Context) (int, error)
}

// Options configures a Controller.
type Options struct {
	Resolver Resolver
	// History is optional.
	History Recorder
	// Metrics is optional.
	Metrics *observability.SimulationCollector
	Logger  logging.Logger
	// Kernel is the default kernel name: "gridding" or "direct".
	Kernel  string
	Epsilon float64
	// AllowKernelOverride honours SimulationRequest.Kernel. Otherwise every
	// run uses Kernel.
	AllowKernelOverride bool
	// MaxSamples caps the uvw samples (conjugates included) of one run.
	MaxSamples int
}

// Controller executes simulations. It is safe for concurrent use.
type Controller struct {
	resolver   Resolver
	history    Recorder
	metrics    *observability.SimulationCollector
	log        logging.Logger
	kernel     string
	override   bool
	epsilon    float64
	maxSamples int
	now        func() time.Time
}

// NewController validates opts and returns a Controller.
func NewController(opts Options) (*Controller, error) {
	if opts.Resolver == nil {
		return nil, fmt.Errorf("simulation: resolver is required")
	}
	if _, err := imaging.NewKernel(opts.Kernel, opts.Epsilon); err != nil {
		return nil, fmt.Errorf("simulation: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Noop()
	}
	if opts.Epsilon <= 0 {
		opts.Epsilon = imaging.DefaultEpsilon
	}
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = DefaultMaxSamples
	}

	return &Controller{
		resolver:   opts.Resolver,
		history:    opts.History,
		metrics:    opts.Metrics,
		log:        opts.Logger,
		kernel:     opts.Kernel,
		override:   opts.AllowKernelOverride,
		epsilon:    opts.Epsilon,
		maxSamples: opts.MaxSamples,
		now:        time.Now,
	}, nil
}

// ValidateRequest checks the user parameters before any work is done.
func ValidateRequest(req models.SimulationRequest) error {
	const op = opValidate

	switch {
	case req.Array == "":
		return interferometry.Validationf(op, "array is required")
	case req.SkyModel == "":
		return interferometry.Validationf(op, "sky model is required")
	case !finite(req.SynthesisTime) || req.SynthesisTime < 0 || req.SynthesisTime > MaxSynthesisHours:
		return interferometry.Validationf(op, "synthesis time must lie in [0, %g] hours, got %v", MaxSynthesisHours, req.SynthesisTime)
	case !finite(req.IntegrationTime) || req.IntegrationTime <= 0 || req.IntegrationTime > MaxIntegrationSeconds:
		return interferometry.Validationf(op, "integration time must lie in (0, %g] seconds, got %v", MaxIntegrationSeconds, req.IntegrationTime)
	case !finite(req.Wavelength) || req.Wavelength <= 0 || req.Wavelength > MaxWavelengthMeters:
		return interferometry.Validationf(op, "wavelength must lie in (0, %g] metres, got %v", MaxWavelengthMeters, req.Wavelength)
	case !req.Zenith && (!finite(req.Declination) || req.Declination < -90 || req.Declination > 90):
		return interferometry.Validationf(op, "declination must lie in [-90, 90] degrees, got %v", req.Declination)
	case !finite(req.CellSize) || req.CellSize < 0:
		return interferometry.Validationf(op, "cell size must be a non-negative number of radians, got %v", req.CellSize)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Run executes the whole pipeline for req.
func (c *Controller) Run(ctx context.Context, req models.SimulationRequest) (result *models.SimulationResult, err error) {
	ctx, span := observability.Tracer().Start(ctx, "simulation.run")
	defer span.End()
	log := logging.FromContext(ctx, c.log)
	started := c.now()

	defer func() {
		outcome := Outcome(err)
		c.metrics.RecordOutcome(outcome)
		span.SetAttributes(attribute.String("outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	kernel, err := imaging.NewKernel(c.kernelFor(req), c.epsilon)
	if err != nil {
		return nil, interferometry.Validationf(opValidate, "%v", err)
	}
	span.SetAttributes(
		attribute.String("array", req.Array),
		attribute.String("sky_model", req.SkyModel),
		attribute.String("kernel", kernel.Name()),
	)

	var (
		array *catalog.Array
		sky   *imaging.Grid
	)
	err = c.stage(ctx, stageResolve, func(context.Context) error {
		var err error
		if array, err = c.resolver.ResolveArray(req.Array); err != nil {
			return err
		}
		sky, err = c.resolver.ResolveSky(req.SkyModel)
		return err
	})
	if err != nil {
		return nil, err
	}

	var (
		location interferometry.Location
		rotated  []interferometry.Vec3
	)
	err = c.stage(ctx, stageLocate, func(context.Context) error {
		var err error
		if location, err = interferometry.LocateTelescope(array.Positions); err != nil {
			return err
		}
		rotated = interferometry.RotateToMeridian(array.Positions, location.Longitude)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var baselines []interferometry.Baseline
	err = c.stage(ctx, stageBaselines, func(context.Context) error {
		baselines = interferometry.FormBaselines(rotated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	obs := interferometry.Observation{
		Declination:     interferometry.Degrees(req.Declination),
		SynthesisTime:   interferometry.Hours(req.SynthesisTime),
		IntegrationTime: interferometry.Seconds(req.IntegrationTime),
		Zenith:          req.Zenith,
	}
	steps := len(obs.HourAngles())
	if expected := 2 * steps * len(baselines); expected > c.maxSamples {
		return nil, interferometry.Validationf(opValidate,
			"observation needs %d uvw samples, the limit is %d; lengthen the integration time or shorten the synthesis", expected, c.maxSamples)
	}

	var full, snapshot []interferometry.Sample
	err = c.stage(ctx, stageUVW, func(context.Context) error {
		samples, err := interferometry.Synthesize(baselines, location, obs)
		if err != nil {
			return err
		}
		snap := obs
		snap.Snapshot = true
		snapSamples, err := interferometry.Synthesize(baselines, location, snap)
		if err != nil {
			return err
		}
		full = interferometry.WithConjugates(samples)
		snapshot = interferometry.WithConjugates(snapSamples)
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.metrics.ObserveSamples(len(full))

	var beam *imaging.Beam
	err = c.stage(ctx, stagePSF, func(ctx context.Context) error {
		var err error
		beam, err = imaging.DirtyBeam(ctx, interferometry.Coordinates(full), interferometry.Meters(req.Wavelength),
			sky.Rows, sky.Cols, imaging.PSFOptions{
				CellSize: interferometry.Radians(req.CellSize),
				Kernel:   kernel,
			})
		return err
	})
	if err != nil {
		return nil, err
	}

	var dirty *imaging.Grid
	err = c.stage(ctx, stageConvolve, func(context.Context) error {
		var err error
		dirty, err = imaging.Convolve(beam.Grid, sky)
		return err
	})
	if err != nil {
		return nil, err
	}

	dec := interferometry.Degrees(req.Declination)
	if req.Zenith {
		dec = location.Latitude.Degrees()
	}
	elapsed := c.now().Sub(started)

	result = &models.SimulationResult{
		Request: req,
		Metadata: models.SimulationMetadata{
			ID:        uuid.New().String(),
			CreatedAt: started.UTC(),
			Location: models.TelescopeLocation{
				Longitude: float64(location.Longitude.Degrees()),
				Latitude:  float64(location.Latitude.Degrees()),
				Height:    float64(location.Height),
			},
			Antennas:        len(array.Positions),
			Baselines:       len(baselines),
			Integrations:    steps,
			Samples:         len(full),
			SnapshotSamples: len(snapshot),
			CellSize:        float64(beam.CellSize),
			Frequency:       beam.Frequency,
			Kernel:          kernel.Name(),
			ElapsedMs:       elapsed.Milliseconds(),
			Declination:     float64(dec),
			Zenith:          req.Zenith,
		},
		DirtyImage:  dirty,
		DirtyBeam:   beam.Grid,
		SkyModel:    sky,
		Antennas:    antennaPoints(array.Positions),
		UVW:         uvPoints(full, req.Wavelength),
		UVWSnapshot: uvPoints(snapshot, req.Wavelength),
	}

	log.Info(ctx, "simulation complete",
		logging.String("id", result.Metadata.ID),
		logging.String("array", req.Array),
		logging.String("sky_model", req.SkyModel),
		logging.Int("baselines", len(baselines)),
		logging.Int("samples", len(full)),
		logging.String("kernel", kernel.Name()),
		logging.Duration("elapsed", elapsed),
	)
	c.record(ctx, result)
	return result, nil
}

func (c *Controller) kernelFor(req models.SimulationRequest) string {
	if c.override && req.Kernel != "" {
		return req.Kernel
	}
	return c.kernel
}

// stage runs fn inside a child span, timing it and stopping early when ctx
// is done.
func (c *Controller) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return interferometry.Computationf(name, "interrupted: %w", err)
	}

	ctx, span := observability.Tracer().Start(ctx, "simulation."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	c.metrics.ObserveStage(name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// record stores the run summary; failures are logged and do not fail the run.
func (c *Controller) record(ctx context.Context, result *models.SimulationResult) {
	if c.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyRecordTimeout)
	defer cancel()

	log := logging.FromContext(ctx, c.log)
	if err := c.history.Record(ctx, result.Summary()); err != nil {
		log.Warn(ctx, "failed to record simulation run", logging.String("id", result.Metadata.ID), logging.Err(err))
		return
	}
	if n, err := c.history.Count(ctx); err == nil {
		c.metrics.SetStoredRuns(n)
	}
}

// Outcome maps an error to its simulations_total label.
func Outcome(err error) string {
	if err == nil {
		return observability.OutcomeOK
	}
	switch interferometry.KindOf(err) {
	case interferometry.KindValidation:
		return observability.OutcomeValidationError
	case interferometry.KindResource:
		return observability.OutcomeResourceError
	case interferometry.KindComputation:
		return observability.OutcomeComputationError
	default:
		return observability.OutcomeInternalError
	}
}

func antennaPoints(positions []interferometry.Vec3) models.Points {
	p := models.NewPoints(len(positions))
	for _, pos := range positions {
		p.Add(pos.X, pos.Y)
	}
	return p
}

// uvPoints returns (u, v) in wavelengths.
func uvPoints(samples []interferometry.Sample, wavelength float64) models.Points {
	p := models.NewPoints(len(samples))
	for _, s := range samples {
		p.Add(s.U/wavelength, s.V/wavelength)
	}
	return p
}
