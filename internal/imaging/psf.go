package imaging

import (
	"context"
	"math"

	"github.com/radioastro101/backend/internal/interferometry"
)

// PSFOptions tunes DirtyBeam. The zero value selects the default cell size
// and the gridding kernel at DefaultEpsilon.
type PSFOptions struct {
	// CellSize is the pixel size in radians. Zero derives it from the
	// longest uvw component.
	CellSize interferometry.Radians
	// Epsilon is the requested accuracy of the default gridding kernel.
	Epsilon float64
	// Kernel overrides the transform used to grid the samples.
	Kernel Kernel
}

// Beam is a dirty beam together with the sampling it was computed at.
type Beam struct {
	*Grid
	CellSize  interferometry.Radians
	Frequency float64
}

// DefaultCellSize returns 1/(2·max|component|) over all samples, in the
// units of the samples' reciprocal. It is infinite when every sample is zero.
func DefaultCellSize(samples []interferometry.UVW) float64 {
	var longest float64
	for _, s := range samples {
		longest = math.Max(longest, math.Abs(s.U))
		longest = math.Max(longest, math.Abs(s.V))
		longest = math.Max(longest, math.Abs(s.W))
	}
	return 1 / (2 * longest)
}

// DirtyBeam grids unit-weight, zero-phase visibilities at every sample
// (metres) and returns the real nx x ny response centred at (nx/2, ny/2).
// The w term is ignored.
func DirtyBeam(ctx context.Context, samples []interferometry.UVW, wavelength interferometry.Meters, nx, ny int, opts PSFOptions) (*Beam, error) {
	const op = "dirty beam"

	if len(samples) == 0 {
		return nil, interferometry.Computationf(op, "no uvw samples; the array needs at least two antennas")
	}
	if !(wavelength > 0) || math.IsInf(float64(wavelength), 0) {
		return nil, interferometry.Computationf(op, "wavelength must be positive and finite, got %v", float64(wavelength))
	}
	if nx <= 0 || ny <= 0 || nx%2 != 0 || ny%2 != 0 {
		return nil, interferometry.Computationf(op, "image dimensions must be positive and even, got %dx%d", nx, ny)
	}

	cell := float64(opts.CellSize)
	if cell == 0 {
		cell = DefaultCellSize(samples)
	}
	if !(cell > 0) || math.IsInf(cell, 0) {
		return nil, interferometry.Computationf(op, "cell size is not finite; all uvw samples are zero")
	}

	kernel := opts.Kernel
	if kernel == nil {
		eps := opts.Epsilon
		if eps == 0 {
			eps = DefaultEpsilon
		}
		kernel = GriddingKernel{Epsilon: eps}
	}

	freq := wavelength.Frequency()
	scale := freq / interferometry.SpeedOfLight
	vis := make([]Visibility, len(samples))
	for i, s := range samples {
		vis[i] = Visibility{U: s.U * scale, V: s.V * scale, Value: 1}
	}

	grid, err := kernel.Dirty(ctx, vis, nx, ny, cell)
	if err != nil {
		if ctx.Err() != nil {
			return nil, interferometry.Computationf(op, "%s kernel interrupted: %w", kernel.Name(), err)
		}
		return nil, err
	}

	return &Beam{Grid: grid, CellSize: interferometry.Radians(cell), Frequency: freq}, nil
}
