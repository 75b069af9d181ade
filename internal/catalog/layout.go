package catalog

import (
	"math"

	"github.com/radioastro101/backend/internal/interferometry"
	"github.com/radioastro101/backend/internal/models"
)

func siteLocation(s models.Site) interferometry.Location {
	return interferometry.Location{
		Latitude:  interferometry.Degrees(s.Latitude).Radians(),
		Longitude: interferometry.Degrees(s.Longitude).Radians(),
		Height:    interferometry.Meters(s.Height),
	}
}

// enuPoint returns the local offset r metres from the site along azimuth
// az (degrees east of north).
func enuPoint(r, az float64) interferometry.Vec3 {
	a := float64(interferometry.Degrees(az).Radians())
	return interferometry.Vec3{X: r * math.Sin(a), Y: r * math.Cos(a)}
}

// armOffsets lays out stations along radial arms. Station k of n sits at
// Inner + (Outer-Inner)*(k/(n-1))^Exponent and is rotated by a share of
// Twist proportional to k/(n-1).
func armOffsets(l *models.ArmsLayout) []interferometry.Vec3 {
	exp := l.Exponent
	if exp <= 0 {
		exp = 1
	}

	offsets := make([]interferometry.Vec3, 0, len(l.Azimuths)*l.PerArm+1)
	if l.Centre {
		offsets = append(offsets, interferometry.Vec3{})
	}
	for _, az := range l.Azimuths {
		for k := 0; k < l.PerArm; k++ {
			frac := 0.0
			if l.PerArm > 1 {
				frac = float64(k) / float64(l.PerArm-1)
			}
			r := l.Inner + (l.Outer-l.Inner)*math.Pow(frac, exp)
			offsets = append(offsets, enuPoint(r, az+l.Twist*frac))
		}
	}
	return offsets
}

// lineOffsets spaces Count stations evenly along one azimuth, centred on
// the site.
func lineOffsets(l *models.LineLayout) []interferometry.Vec3 {
	offsets := make([]interferometry.Vec3, l.Count)
	mid := float64(l.Count-1) / 2
	for i := range offsets {
		offsets[i] = enuPoint((float64(i)-mid)*l.Spacing, l.Azimuth)
	}
	return offsets
}

func vecs(rows [][3]float64) []interferometry.Vec3 {
	out := make([]interferometry.Vec3, len(rows))
	for i, r := range rows {
		out[i] = interferometry.Vec3{X: r[0], Y: r[1], Z: r[2]}
	}
	return out
}
