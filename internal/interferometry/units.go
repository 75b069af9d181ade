// units.go - Typed physical quantities used across the pipeline
package interferometry

import "math"

// SpeedOfLight in metres per second.
const SpeedOfLight = 299792458.0

// Meters is a length in metres.
type Meters float64

// Radians is an angle in radians.
type Radians float64

// Degrees is an angle in degrees.
type Degrees float64

// Hours is a duration (or hour angle) in hours.
type Hours float64

// Seconds is a duration in seconds.
type Seconds float64

// Radians converts degrees to radians.
func (d Degrees) Radians() Radians {
	return Radians(float64(d) * math.Pi / 180)
}

// Degrees converts radians to degrees.
func (r Radians) Degrees() Degrees {
	return Degrees(float64(r) * 180 / math.Pi)
}

// Radians converts an hour angle to radians (15 degrees per hour).
func (h Hours) Radians() Radians {
	return Degrees(float64(h) * 360 / 24).Radians()
}

// Seconds converts hours to seconds.
func (h Hours) Seconds() Seconds {
	return Seconds(float64(h) * 3600)
}

// Frequency returns the observing frequency in Hz for a wavelength.
func (m Meters) Frequency() float64 {
	return SpeedOfLight / float64(m)
}
