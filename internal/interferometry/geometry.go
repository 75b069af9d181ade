package interferometry

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// WGS-84 ellipsoid parameters.
const (
	wgs84A  = 6378137.0
	wgs84F  = 1.0 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)
)

// Vec3 is a Cartesian vector in metres. Antenna positions are geocentric
// (ECEF/ITRF); baselines are differences of meridian-rotated positions.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Scale returns v multiplied by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Location is the geodetic position of a telescope on the WGS-84 ellipsoid.
type Location struct {
	Longitude Radians
	Latitude  Radians
	Height    Meters
}

// RotateToMeridian rotates geocentric antenna positions about the polar axis
// by the telescope longitude so that X lies in the local meridian plane.
func RotateToMeridian(positions []Vec3, lon Radians) []Vec3 {
	if len(positions) == 0 {
		return []Vec3{}
	}

	c, s := math.Cos(float64(lon)), math.Sin(float64(lon))
	r := mat.NewDense(3, 3, []float64{
		c, s, 0,
		-s, c, 0,
		0, 0, 1,
	})

	p := mat.NewDense(len(positions), 3, flatten(positions))

	// Rows of P·Rᵀ are (R·p)ᵀ.
	var out mat.Dense
	out.Mul(p, r.T())

	rotated := make([]Vec3, len(positions))
	for i := range rotated {
		rotated[i] = Vec3{X: out.At(i, 0), Y: out.At(i, 1), Z: out.At(i, 2)}
	}
	return rotated
}

// Centroid returns the arithmetic mean of the positions.
func Centroid(positions []Vec3) Vec3 {
	var sum Vec3
	for _, p := range positions {
		sum = sum.Add(p)
	}
	return sum.Scale(1 / float64(len(positions)))
}

// LocateTelescope derives the telescope location from the centroid of its
// antenna positions.
func LocateTelescope(positions []Vec3) (Location, error) {
	if len(positions) == 0 {
		return Location{}, Validationf("locate telescope", "array has no antennas")
	}
	return ECEFToGeodetic(Centroid(positions)), nil
}

// ECEFToGeodetic converts geocentric coordinates (metres) to WGS-84 geodetic
// coordinates using Bowring's iteration.
func ECEFToGeodetic(p Vec3) Location {
	lon := math.Atan2(p.Y, p.X)
	rho := math.Hypot(p.X, p.Y)

	lat := math.Atan2(p.Z, rho*(1-wgs84E2))
	for i := 0; i < 6; i++ {
		sinLat := math.Sin(lat)
		n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(p.Z+wgs84E2*n*sinLat, rho)
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var h float64
	if math.Abs(cosLat) > 1e-10 {
		h = rho/cosLat - n
	} else {
		h = math.Abs(p.Z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	return Location{Longitude: Radians(lon), Latitude: Radians(lat), Height: Meters(h)}
}

// GeodeticToECEF converts a WGS-84 geodetic location to geocentric metres.
func GeodeticToECEF(loc Location) Vec3 {
	lat, lon, h := float64(loc.Latitude), float64(loc.Longitude), float64(loc.Height)
	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return Vec3{
		X: (n + h) * cosLat * math.Cos(lon),
		Y: (n + h) * cosLat * math.Sin(lon),
		Z: (n*(1-wgs84E2) + h) * sinLat,
	}
}

// ENUToECEF places local east/north/up offsets (metres) around a site into
// geocentric coordinates.
func ENUToECEF(site Location, offsets []Vec3) []Vec3 {
	origin := GeodeticToECEF(site)
	sinLat, cosLat := math.Sin(float64(site.Latitude)), math.Cos(float64(site.Latitude))
	sinLon, cosLon := math.Sin(float64(site.Longitude)), math.Cos(float64(site.Longitude))

	out := make([]Vec3, len(offsets))
	for i, o := range offsets {
		e, n, u := o.X, o.Y, o.Z
		out[i] = origin.Add(Vec3{
			X: -sinLon*e - sinLat*cosLon*n + cosLat*cosLon*u,
			Y: cosLon*e - sinLat*sinLon*n + cosLat*sinLon*u,
			Z: cosLat*n + sinLat*u,
		})
	}
	return out
}

func flatten(vs []Vec3) []float64 {
	data := make([]float64, 0, 3*len(vs))
	for _, v := range vs {
		data = append(data, v.X, v.Y, v.Z)
	}
	return data
}
