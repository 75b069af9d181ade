// Package imaging forms dirty beams and dirty images from uv coverage.
package imaging

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Grid is a dense row-major 2D grid of real values. Sky models, dirty beams
// and dirty images all share this representation.
type Grid struct {
	Rows int       `json:"rows" msgpack:"rows"`
	Cols int       `json:"cols" msgpack:"cols"`
	Data []float64 `json:"data" msgpack:"data"`
}

// NewGrid allocates a zeroed rows x cols grid.
func NewGrid(rows, cols int) *Grid {
	return &Grid{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// At returns the value at (r, c).
func (g *Grid) At(r, c int) float64 {
	return g.Data[r*g.Cols+c]
}

// Set stores v at (r, c).
func (g *Grid) Set(r, c int, v float64) {
	g.Data[r*g.Cols+c] = v
}

// Row returns the r-th row, sharing storage with the grid.
func (g *Grid) Row(r int) []float64 {
	return g.Data[r*g.Cols : (r+1)*g.Cols]
}

// Max returns the largest value in the grid.
func (g *Grid) Max() float64 {
	if len(g.Data) == 0 {
		return 0
	}
	return floats.Max(g.Data)
}

// Min returns the smallest value in the grid.
func (g *Grid) Min() float64 {
	if len(g.Data) == 0 {
		return 0
	}
	return floats.Min(g.Data)
}

// Sum returns the sum of all values.
func (g *Grid) Sum() float64 {
	return floats.Sum(g.Data)
}

// SameShape reports whether both grids have identical dimensions.
func (g *Grid) SameShape(other *Grid) bool {
	return g.Rows == other.Rows && g.Cols == other.Cols
}

// Clone returns a deep copy.
func (g *Grid) Clone() *Grid {
	out := NewGrid(g.Rows, g.Cols)
	copy(out.Data, g.Data)
	return out
}

func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d)", g.Rows, g.Cols)
}
