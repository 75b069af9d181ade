package imaging

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/mat"
)

// DefaultEpsilon is the requested accuracy of the gridding kernel.
const DefaultEpsilon = 1e-5

// Visibility is a complex sample at (u, v) measured in wavelengths.
type Visibility struct {
	U, V  float64
	Value complex128
}

// Kernel turns irregular uv samples into an nx x ny image whose pixel (x, y)
// sits at direction cosines l = (x - nx/2)·cell, m = (y - ny/2)·cell:
//
//	I(x, y) = Re Σ_k V_k · exp(2πi (u_k·l + v_k·m))
//
// Implementations trade exactness for speed.
type Kernel interface {
	Name() string
	Dirty(ctx context.Context, vis []Visibility, nx, ny int, cell float64) (*Grid, error)
}

// NewKernel returns the kernel registered under name ("gridding" or
// "direct").
func NewKernel(name string, epsilon float64) (Kernel, error) {
	switch name {
	case "", "gridding":
		return GriddingKernel{Epsilon: epsilon}, nil
	case "direct":
		return DirectKernel{}, nil
	default:
		return nil, fmt.Errorf("unknown kernel: %s", name)
	}
}

// checkEvery is how many samples are processed between context checks.
const checkEvery = 4096

// GriddingKernel evaluates the transform with a type-1 non-uniform FFT:
// samples are spread onto a 2x oversampled periodic grid with an
// "exponential of semicircle" kernel, transformed, cropped and divided by
// the kernel's Fourier transform. Accuracy is governed by Epsilon.
type GriddingKernel struct {
	Epsilon float64
}

// Name returns "gridding".
func (GriddingKernel) Name() string { return "gridding" }

// Support returns the kernel width in grid cells needed for the requested
// accuracy.
func (k GriddingKernel) Support() int {
	eps := k.Epsilon
	if !(eps > 0) {
		eps = DefaultEpsilon
	}
	w := int(math.Ceil(math.Log10(10 / eps)))
	if w < 2 {
		w = 2
	}
	if w > 16 {
		w = 16
	}
	return w
}

// Dirty implements Kernel.
func (k GriddingKernel) Dirty(ctx context.Context, vis []Visibility, nx, ny int, cell float64) (*Grid, error) {
	w := k.Support()
	es := esKernel{width: w, beta: 2.30 * float64(w)}
	mx, my := 2*nx, 2*ny

	grid := make([]complex128, mx*my)
	wx := make([]float64, w)
	wy := make([]float64, w)
	half := float64(w) / 2

	for n, s := range vis {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		gx := s.U * cell * float64(mx)
		gy := s.V * cell * float64(my)
		x0 := int(math.Ceil(gx - half))
		y0 := int(math.Ceil(gy - half))
		for i := 0; i < w; i++ {
			wx[i] = es.eval((float64(x0+i) - gx) / half)
			wy[i] = es.eval((float64(y0+i) - gy) / half)
		}

		for i := 0; i < w; i++ {
			if wx[i] == 0 {
				continue
			}
			row := mod(x0+i, mx) * my
			vx := s.Value * complex(wx[i], 0)
			for j := 0; j < w; j++ {
				grid[row+mod(y0+j, my)] += vx * complex(wy[j], 0)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fft2(grid, mx, my, false)

	cx := es.correction(nx, mx)
	cy := es.correction(ny, my)

	out := NewGrid(nx, ny)
	for x := 0; x < nx; x++ {
		row := mod(x-nx/2, mx) * my
		for y := 0; y < ny; y++ {
			out.Set(x, y, real(grid[row+mod(y-ny/2, my)])*cx[x]*cy[y])
		}
	}
	return out, nil
}

// esKernel is φ(z) = exp(β(√(1-z²) - 1)) on |z| ≤ 1.
type esKernel struct {
	width int
	beta  float64
}

func (k esKernel) eval(z float64) float64 {
	if z < -1 || z > 1 {
		return 0
	}
	return math.Exp(k.beta * (math.Sqrt(1-z*z) - 1))
}

// correction returns the deconvolution factors for output indices
// j = x - n/2, x in [0, n), on a grid of m cells: 2 / (W·Q(π·W·j/m)) with
// Q(κ) = ∫ φ(z) cos(κz) dz over [-1, 1].
func (k esKernel) correction(n, m int) []float64 {
	out := make([]float64, n)
	nodes := 4*k.width + 32
	for x := 0; x < n; x++ {
		kappa := math.Pi * float64(k.width) * float64(x-n/2) / float64(m)
		q := quad.Fixed(func(z float64) float64 {
			return k.eval(z) * math.Cos(kappa*z)
		}, -1, 1, nodes, quad.Legendre{}, 0)
		out[x] = 2 / (float64(k.width) * q)
	}
	return out
}

// DirectKernel evaluates the transform exactly. The exponential separates
// into per-axis factors, so each block of samples reduces to two real
// matrix products: Re(EXᵀ·EY) with EX = exp(2πi u l), EY = exp(2πi v m).
// Cost grows with samples x pixels; use it as a reference or for small
// inputs.
type DirectKernel struct{}

// Name returns "direct".
func (DirectKernel) Name() string { return "direct" }

// directBlock bounds the number of samples held in memory at once.
const directBlock = 1024

// Dirty implements Kernel.
func (DirectKernel) Dirty(ctx context.Context, vis []Visibility, nx, ny int, cell float64) (*Grid, error) {
	acc := mat.NewDense(nx, ny, nil)

	for start := 0; start < len(vis); start += directBlock {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + directBlock
		if end > len(vis) {
			end = len(vis)
		}
		block := vis[start:end]
		k := len(block)

		// a1 = Re(V)·cos - Im(V)·sin, a2 = Re(V)·sin + Im(V)·cos along l;
		// Re(V·e^{iα}·e^{iβ}) = a1·cos β - a2·sin β.
		a1 := mat.NewDense(k, nx, nil)
		a2 := mat.NewDense(k, nx, nil)
		cy := mat.NewDense(k, ny, nil)
		sy := mat.NewDense(k, ny, nil)
		for i, s := range block {
			vr, vi := real(s.Value), imag(s.Value)
			for x := 0; x < nx; x++ {
				alpha := 2 * math.Pi * s.U * float64(x-nx/2) * cell
				sin, cos := math.Sincos(alpha)
				a1.Set(i, x, vr*cos-vi*sin)
				a2.Set(i, x, vr*sin+vi*cos)
			}
			for y := 0; y < ny; y++ {
				beta := 2 * math.Pi * s.V * float64(y-ny/2) * cell
				sin, cos := math.Sincos(beta)
				cy.Set(i, y, cos)
				sy.Set(i, y, sin)
			}
		}

		var re, im mat.Dense
		re.Mul(a1.T(), cy)
		im.Mul(a2.T(), sy)
		re.Sub(&re, &im)
		acc.Add(acc, &re)
	}

	out := NewGrid(nx, ny)
	for x := 0; x < nx; x++ {
		for y := 0; y < ny; y++ {
			out.Set(x, y, acc.At(x, y))
		}
	}
	return out, nil
}
