package imaging

import (
	"github.com/radioastro101/backend/internal/interferometry"
)

// Convolve circularly convolves the sky with the beam through the 2D FFT
// and re-centres the result: fftshift(Re(ifft2(fft2(sky)·fft2(beam)))).
// A unit impulse at the beam centre reproduces the sky.
func Convolve(beam, sky *Grid) (*Grid, error) {
	if beam == nil || sky == nil {
		return nil, interferometry.Computationf("convolve", "missing beam or sky model")
	}
	if !beam.SameShape(sky) {
		return nil, interferometry.Computationf("convolve", "beam is %dx%d but sky model is %dx%d",
			beam.Rows, beam.Cols, sky.Rows, sky.Cols)
	}

	rows, cols := sky.Rows, sky.Cols
	a := toComplex(sky)
	b := toComplex(beam)
	fft2(a, rows, cols, true)
	fft2(b, rows, cols, true)
	for i := range a {
		a[i] *= b[i]
	}
	fft2(a, rows, cols, false)

	norm := float64(rows * cols)
	out := NewGrid(rows, cols)
	for i, v := range a {
		out.Data[i] = real(v) / norm
	}
	return FFTShift(out), nil
}
