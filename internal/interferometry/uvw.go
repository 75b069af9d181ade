package interferometry

import (
	"math"
)

// UVW is a baseline projected onto the plane of the sky (u, v) and the line
// of sight (w), in metres.
type UVW struct {
	U, V, W float64
}

// Neg returns the Hermitian counterpart (-u, -v, -w).
func (s UVW) Neg() UVW {
	return UVW{U: -s.U, V: -s.V, W: -s.W}
}

// Sample is one uvw point together with the baseline and hour angle that
// produced it.
type Sample struct {
	UVW
	Pair      AntennaPair
	HourAngle Radians
}

// Observation describes how the array tracks its target.
type Observation struct {
	Declination     Degrees
	SynthesisTime   Hours
	IntegrationTime Seconds
	// Snapshot computes a single projection at hour angle zero.
	Snapshot bool
	// Zenith overrides the declination with the telescope latitude.
	Zenith bool
}

// Validate checks the observation parameters.
func (o Observation) Validate() error {
	const op = "validate observation"
	if !(o.IntegrationTime > 0) || math.IsInf(float64(o.IntegrationTime), 0) {
		return Validationf(op, "integration time must be a positive number of seconds, got %v", float64(o.IntegrationTime))
	}
	if o.SynthesisTime < 0 || math.IsNaN(float64(o.SynthesisTime)) || math.IsInf(float64(o.SynthesisTime), 0) {
		return Validationf(op, "synthesis time must be a non-negative number of hours, got %v", float64(o.SynthesisTime))
	}
	if !o.Zenith && (o.Declination < -90 || o.Declination > 90 || math.IsNaN(float64(o.Declination))) {
		return Validationf(op, "declination must lie in [-90, 90] degrees, got %v", float64(o.Declination))
	}
	return nil
}

// IntegrationCount returns floor(T*3600/I), the number of hour-angle steps of
// a full synthesis.
func (o Observation) IntegrationCount() int {
	return int(math.Floor(float64(o.SynthesisTime.Seconds()) / float64(o.IntegrationTime)))
}

// HourAngles returns the hour angles the observation samples. A snapshot,
// and any synthesis too short for one integration, is a single sample at
// hour angle zero.
func (o Observation) HourAngles() []Radians {
	n := o.IntegrationCount()
	if o.Snapshot || n == 0 {
		return []Radians{0}
	}

	half := float64(o.SynthesisTime) / 2
	angles := make([]Radians, n)
	if n == 1 {
		angles[0] = Hours(-half).Radians()
		return angles
	}
	step := (2 * half) / float64(n-1)
	for k := range angles {
		angles[k] = Hours(-half + float64(k)*step).Radians()
	}
	return angles
}

// Project rotates a baseline into the uvw frame for hour angle h and
// declination dec.
func Project(b Vec3, h, dec Radians) UVW {
	sinH, cosH := math.Sin(float64(h)), math.Cos(float64(h))
	sinD, cosD := math.Sin(float64(dec)), math.Cos(float64(dec))

	return UVW{
		U: sinH*b.X + cosH*b.Y,
		V: -sinD*cosH*b.X + sinH*sinD*b.Y + cosD*b.Z,
		W: cosH*cosD*b.X - cosD*sinH*b.Y + sinD*b.Z,
	}
}

// Synthesize projects every baseline at every hour angle of the observation.
// Samples are ordered by time step, then by baseline.
func Synthesize(baselines []Baseline, loc Location, obs Observation) ([]Sample, error) {
	if err := obs.Validate(); err != nil {
		return nil, err
	}

	dec := obs.Declination.Radians()
	if obs.Zenith {
		dec = loc.Latitude
	}

	angles := obs.HourAngles()
	samples := make([]Sample, 0, len(angles)*len(baselines))
	for _, h := range angles {
		for _, b := range baselines {
			samples = append(samples, Sample{
				UVW:       Project(b.Vector, h, dec),
				Pair:      b.Pair,
				HourAngle: h,
			})
		}
	}
	return samples, nil
}

// WithConjugates returns the samples followed by their Hermitian
// counterparts, making the point set symmetric about the origin.
func WithConjugates(samples []Sample) []Sample {
	out := make([]Sample, 0, 2*len(samples))
	out = append(out, samples...)
	for _, s := range samples {
		out = append(out, Sample{
			UVW:       s.Neg(),
			Pair:      AntennaPair{I: s.Pair.J, J: s.Pair.I},
			HourAngle: s.HourAngle,
		})
	}
	return out
}

// Coordinates strips the bookkeeping from samples.
func Coordinates(samples []Sample) []UVW {
	out := make([]UVW, len(samples))
	for i, s := range samples {
		out[i] = s.UVW
	}
	return out
}
