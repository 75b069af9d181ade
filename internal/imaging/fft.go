package imaging

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// fft2 transforms a row-major rows x cols complex array in place: rows
// first, then columns. The forward direction uses exp(-2πi jk/n); the
// backward direction uses exp(+2πi jk/n) and is not normalised.
func fft2(a []complex128, rows, cols int, forward bool) {
	rowFFT := fourier.NewCmplxFFT(cols)
	colFFT := fourier.NewCmplxFFT(rows)

	for r := 0; r < rows; r++ {
		row := a[r*cols : (r+1)*cols]
		if forward {
			rowFFT.Coefficients(row, row)
		} else {
			rowFFT.Sequence(row, row)
		}
	}

	col := make([]complex128, rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			col[r] = a[r*cols+c]
		}
		if forward {
			colFFT.Coefficients(col, col)
		} else {
			colFFT.Sequence(col, col)
		}
		for r := 0; r < rows; r++ {
			a[r*cols+c] = col[r]
		}
	}
}

// toComplex widens a real grid to complex storage.
func toComplex(g *Grid) []complex128 {
	out := make([]complex128, len(g.Data))
	for i, v := range g.Data {
		out[i] = complex(v, 0)
	}
	return out
}

// FFTShift moves the zero-frequency element of an even-sized grid to its
// centre.
func FFTShift(g *Grid) *Grid {
	out := NewGrid(g.Rows, g.Cols)
	hr, hc := g.Rows/2, g.Cols/2
	for r := 0; r < g.Rows; r++ {
		rr := (r + hr) % g.Rows
		for c := 0; c < g.Cols; c++ {
			out.Set(rr, (c+hc)%g.Cols, g.At(r, c))
		}
	}
	return out
}

// mod returns i modulo n in [0, n).
func mod(i, n int) int {
	r := i % n
	if r < 0 {
		r += n
	}
	return r
}
