// Package skymodel turns raster images and procedural descriptions into
// grayscale sky brightness grids with even dimensions.
package skymodel

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"

	// Registered decoders for the formats accepted as sky models.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/radioastro101/backend/internal/imaging"
	"github.com/radioastro101/backend/internal/interferometry"
)

const (
	// MinSize is the smallest accepted edge length after trimming.
	MinSize = 2
	// DefaultMaxSize bounds each edge of a decoded image when no limit is given.
	DefaultMaxSize = 2048
)

// Load decodes a PNG, JPEG or GIF image and returns its grayscale luma as a
// grid, trimmed to even dimensions. Images with an edge longer than maxSize
// are rejected from their header before any pixels are decoded; maxSize <= 0
// means DefaultMaxSize.
func Load(r io.Reader, maxSize int) (*imaging.Grid, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, interferometry.Resourcef("load sky model", "read image: %v", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, interferometry.Validationf("load sky model", "decode image: %v", err)
	}
	if cfg.Width > maxSize || cfg.Height > maxSize {
		return nil, interferometry.Validationf("load sky model", "%s image is too large: %dx%d exceeds %d pixels per edge",
			format, cfg.Width, cfg.Height, maxSize)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, interferometry.Validationf("load sky model", "decode image: %v", err)
	}

	g := FromImage(img)
	if g.Rows < MinSize || g.Cols < MinSize {
		return nil, interferometry.Validationf("load sky model", "%s image is too small: %dx%d after trimming", format, g.Rows, g.Cols)
	}
	return g, nil
}

// LoadBytes is Load over an in-memory image.
func LoadBytes(data []byte, maxSize int) (*imaging.Grid, error) {
	return Load(bytes.NewReader(data), maxSize)
}

// LoadFile reads a sky model from disk.
func LoadFile(path string, maxSize int) (*imaging.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, interferometry.Resourcef("load sky model", "sky model file not found: %s", path)
		}
		return nil, interferometry.Resourcef("load sky model", "open %s: %v", path, err)
	}
	defer f.Close()

	g, err := Load(f, maxSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// FromImage converts img to 8-bit luma values (ITU-R 601 weights) with row
// index = image y and column index = image x, then trims it to even
// dimensions.
func FromImage(img image.Image) *imaging.Grid {
	b := img.Bounds()
	g := imaging.NewGrid(b.Dy(), b.Dx())
	for y := 0; y < g.Rows; y++ {
		row := g.Row(y)
		for x := 0; x < g.Cols; x++ {
			row[x] = float64(luma(img, b.Min.X+x, b.Min.Y+y))
		}
	}
	return TrimEven(g)
}

func luma(img image.Image, x, y int) uint8 {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8((19595*r + 38470*g + 7471*b + 1<<15) >> 24)
}

// TrimEven drops the last row when the row count is odd and the last column
// when the column count is odd. Even grids are returned unchanged.
func TrimEven(g *imaging.Grid) *imaging.Grid {
	rows, cols := g.Rows-g.Rows%2, g.Cols-g.Cols%2
	if rows == g.Rows && cols == g.Cols {
		return g
	}

	out := imaging.NewGrid(rows, cols)
	for r := 0; r < rows; r++ {
		copy(out.Row(r), g.Row(r)[:cols])
	}
	return out
}
