package interferometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotateToMeridian_PreservesNorms(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	positions := make([]Vec3, 50)
	for i := range positions {
		positions[i] = Vec3{
			X: (rng.Float64() - 0.5) * 1e7,
			Y: (rng.Float64() - 0.5) * 1e7,
			Z: (rng.Float64() - 0.5) * 1e7,
		}
	}

	for _, lon := range []Radians{0, 0.3, -1.2, math.Pi, 2.5} {
		rotated := RotateToMeridian(positions, lon)
		require.Len(t, rotated, len(positions))
		for i := range positions {
			assert.InDelta(t, positions[i].Norm(), rotated[i].Norm(), 1e-6*positions[i].Norm())
			assert.Equal(t, positions[i].Z, rotated[i].Z, "rotation about the polar axis keeps Z")
		}
	}
}

func TestRotateToMeridian_AlignsMeridian(t *testing.T) {
	lon := Degrees(21.44).Radians()
	p := Vec3{X: math.Cos(float64(lon)) * 5e6, Y: math.Sin(float64(lon)) * 5e6, Z: 1e6}

	rotated := RotateToMeridian([]Vec3{p}, lon)

	assert.InDelta(t, 5e6, rotated[0].X, 1e-6)
	assert.InDelta(t, 0, rotated[0].Y, 1e-6)
}

func TestRotateToMeridian_Empty(t *testing.T) {
	assert.Empty(t, RotateToMeridian(nil, 1))
}

func TestGeodeticRoundTrip(t *testing.T) {
	cases := []Location{
		{Longitude: Degrees(6.604).Radians(), Latitude: Degrees(52.915).Radians(), Height: 16},
		{Longitude: Degrees(21.443).Radians(), Latitude: Degrees(-30.713).Radians(), Height: 1038},
		{Longitude: Degrees(-107.618).Radians(), Latitude: Degrees(34.079).Radians(), Height: 2124},
		{Longitude: 0, Latitude: 0, Height: 0},
	}

	for _, want := range cases {
		got := ECEFToGeodetic(GeodeticToECEF(want))
		assert.InDelta(t, float64(want.Longitude), float64(got.Longitude), 1e-9)
		assert.InDelta(t, float64(want.Latitude), float64(got.Latitude), 1e-9)
		assert.InDelta(t, float64(want.Height), float64(got.Height), 1e-3)
	}
}

func TestLocateTelescope(t *testing.T) {
	site := Location{Longitude: Degrees(21.443).Radians(), Latitude: Degrees(-30.713).Radians()}
	positions := ENUToECEF(site, []Vec3{{X: -10}, {X: 10}, {Y: -10}, {Y: 10}})

	loc, err := LocateTelescope(positions)
	require.NoError(t, err)
	assert.InDelta(t, float64(site.Longitude), float64(loc.Longitude), 1e-9)
	assert.InDelta(t, float64(site.Latitude), float64(loc.Latitude), 1e-9)
}

func TestLocateTelescope_NoAntennas(t *testing.T) {
	_, err := LocateTelescope(nil)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestENUToECEF_PreservesSeparations(t *testing.T) {
	site := Location{Longitude: Degrees(-107.6).Radians(), Latitude: Degrees(34.1).Radians(), Height: 2100}
	offsets := []Vec3{{X: 0, Y: 0, Z: 0}, {X: 300, Y: 400, Z: 0}, {X: 0, Y: 0, Z: 12}}
	positions := ENUToECEF(site, offsets)

	assert.InDelta(t, 500, positions[1].Sub(positions[0]).Norm(), 1e-6)
	assert.InDelta(t, 12, positions[2].Sub(positions[0]).Norm(), 1e-6)
}
