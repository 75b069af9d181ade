package skymodel

import (
	"math"

	"github.com/radioastro101/backend/internal/imaging"
	"github.com/radioastro101/backend/internal/interferometry"
)

// Kind names how a sky model is produced.
type Kind string

const (
	KindFile     Kind = "file"
	KindPoint    Kind = "point"
	KindGaussian Kind = "gaussian"
	KindEllipses Kind = "ellipses"
)

// Peak is the brightest value a generated model reaches, matching an 8-bit
// grayscale image.
const Peak = 255.0

// Component is one elliptical Gaussian. Offsets are in pixels from the
// image centre (rows down, columns right); widths are standard deviations
// in pixels; Angle rotates the major axis from the row axis.
type Component struct {
	Row       float64                `yaml:"row" json:"row"`
	Col       float64                `yaml:"col" json:"col"`
	Major     float64                `yaml:"major" json:"major"`
	Minor     float64                `yaml:"minor" json:"minor"`
	Angle     interferometry.Degrees `yaml:"angle" json:"angle"`
	Amplitude float64                `yaml:"amplitude" json:"amplitude"`
}

// Spec describes a sky model. File models are read from Path; the others
// are generated at Rows x Cols.
type Spec struct {
	Kind       Kind        `yaml:"kind" json:"kind"`
	Path       string      `yaml:"path,omitempty" json:"path,omitempty"`
	Rows       int         `yaml:"rows,omitempty" json:"rows,omitempty"`
	Cols       int         `yaml:"cols,omitempty" json:"cols,omitempty"`
	Sigma      float64     `yaml:"sigma,omitempty" json:"sigma,omitempty"`
	Components []Component `yaml:"components,omitempty" json:"components,omitempty"`
}

// Generate renders a procedural sky model. Odd sizes are trimmed to even
// and a zero size falls back to defaultSize.
func Generate(spec Spec, defaultSize int) (*imaging.Grid, error) {
	const op = "generate sky model"

	rows, cols := spec.Rows, spec.Cols
	if rows == 0 {
		rows = defaultSize
	}
	if cols == 0 {
		cols = defaultSize
	}
	rows -= rows % 2
	cols -= cols % 2
	if rows < MinSize || cols < MinSize {
		return nil, interferometry.Validationf(op, "sky model size %dx%d is too small", rows, cols)
	}

	g := imaging.NewGrid(rows, cols)
	switch spec.Kind {
	case KindPoint:
		g.Set(rows/2, cols/2, Peak)
		return g, nil

	case KindGaussian:
		if !(spec.Sigma > 0) {
			return nil, interferometry.Validationf(op, "gaussian sky model needs a positive sigma, got %v", spec.Sigma)
		}
		addGaussian(g, Component{Major: spec.Sigma, Minor: spec.Sigma, Amplitude: 1})

	case KindEllipses:
		if len(spec.Components) == 0 {
			return nil, interferometry.Validationf(op, "ellipses sky model has no components")
		}
		for i, c := range spec.Components {
			if !(c.Major > 0) || !(c.Minor > 0) {
				return nil, interferometry.Validationf(op, "component %d needs positive widths", i)
			}
			if c.Amplitude == 0 {
				c.Amplitude = 1
			}
			addGaussian(g, c)
		}

	case KindFile:
		return nil, interferometry.Validationf(op, "file sky models are loaded, not generated")

	default:
		return nil, interferometry.Validationf(op, "unknown sky model kind %q", spec.Kind)
	}

	normalise(g)
	return g, nil
}

func addGaussian(g *imaging.Grid, c Component) {
	sin, cos := math.Sincos(float64(c.Angle.Radians()))
	cr := float64(g.Rows/2) + c.Row
	cc := float64(g.Cols/2) + c.Col

	for r := 0; r < g.Rows; r++ {
		row := g.Row(r)
		dr := float64(r) - cr
		for col := range row {
			dc := float64(col) - cc
			a := (dr*cos + dc*sin) / c.Major
			b := (-dr*sin + dc*cos) / c.Minor
			row[col] += c.Amplitude * math.Exp(-0.5*(a*a+b*b))
		}
	}
}

// normalise scales non-negative content so its maximum is Peak.
func normalise(g *imaging.Grid) {
	max := g.Max()
	if max <= 0 {
		return
	}
	scale := Peak / max
	for i, v := range g.Data {
		g.Data[i] = math.Max(v*scale, 0)
	}
}
