package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radioastro101/backend/internal/interferometry"
	"github.com/radioastro101/backend/internal/models"
	"github.com/radioastro101/backend/internal/skymodel"
)

const kat7Table = `# KAT-7 antenna positions, ITRF metres
NAME X Y Z
ANT1 5109224.29 2006790.35 -3239100.65
ANT2 5109247.72 2006736.97 -3239096.14

ANT3 5109244.58 2006729.53 -3239044.27
`

func TestParseAntennaTable(t *testing.T) {
	table, err := ParseAntennaTable(strings.NewReader(kat7Table))
	require.NoError(t, err)

	assert.Equal(t, []string{"NAME", "X", "Y", "Z"}, table.Columns)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"ANT1", "ANT2", "ANT3"}, table.Names)
	assert.Equal(t, interferometry.Vec3{X: 5109247.72, Y: 2006736.97, Z: -3239096.14}, table.Positions[1])
}

func TestParseAntennaTableColumnOrder(t *testing.T) {
	table, err := ParseAntennaTable(strings.NewReader("z y x\n3 2 1\n"))
	require.NoError(t, err)
	assert.Equal(t, interferometry.Vec3{X: 1, Y: 2, Z: 3}, table.Positions[0])
	assert.Empty(t, table.Names)
}

func TestParseAntennaTableErrors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantLine int
	}{
		{"missing column", "X Y\n1 2\n", 1},
		{"short row", "X Y Z\n1 2 3\n4 5\n", 3},
		{"not a number", "X Y Z\n1 2 three\n", 2},
		{"header only", "X Y Z\n", 0},
		{"empty", "# nothing here\n\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAntennaTable(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, interferometry.IsValidation(err), "got %v", err)

			var pe *models.ParseError
			if tt.wantLine > 0 {
				require.True(t, errors.As(err, &pe))
				assert.Equal(t, tt.wantLine, pe.Line)
			} else {
				assert.False(t, errors.As(err, &pe))
			}
		})
	}
}

func TestParseAntennaFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kat-7.itrf")
	require.NoError(t, os.WriteFile(path, []byte(kat7Table), 0644))

	table, err := ParseAntennaFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())

	_, err = ParseAntennaFile(filepath.Join(dir, "missing.itrf"))
	require.Error(t, err)
	assert.True(t, interferometry.IsResource(err))
}

const catalogYAML = `
arrays:
  - name: wsrt
    label: Westerbork
    kind: line
    site: {latitude: 52.9145, longitude: 6.6031, height: 16}
    line: {count: 14, spacing: 144, azimuth: 90}
  - name: tiny
    label: Tiny
    kind: enu
    site: {latitude: 0, longitude: 0, height: 0}
    offsets:
      - [0, 0, 0]
      - [100, 0, 0]
sky_models:
  - name: gaussian_source
    label: Gaussian source
    kind: gaussian
    sigma: 12
    rows: 256
    cols: 256
  - name: m31
    label: Andromeda
    kind: ellipses
    components:
      - {major: 70, minor: 18, angle: 38, amplitude: 1}
`

func TestParseCatalogFromReader(t *testing.T) {
	cat, err := ParseCatalogFromReader(strings.NewReader(catalogYAML))
	require.NoError(t, err)

	require.Len(t, cat.Arrays, 2)
	assert.Equal(t, models.ArrayKindLine, cat.Arrays[0].Kind)
	require.NotNil(t, cat.Arrays[0].Line)
	assert.Equal(t, 14, cat.Arrays[0].Line.Count)
	assert.Equal(t, 52.9145, cat.Arrays[0].Site.Latitude)
	assert.Equal(t, [3]float64{100, 0, 0}, cat.Arrays[1].Offsets[1])

	require.Len(t, cat.SkyModels, 2)
	assert.Equal(t, skymodel.KindGaussian, cat.SkyModels[0].Kind)
	assert.Equal(t, 12.0, cat.SkyModels[0].Sigma)
	assert.Equal(t, 256, cat.SkyModels[0].Rows)
	require.Len(t, cat.SkyModels[1].Components, 1)
	assert.Equal(t, interferometry.Degrees(38), cat.SkyModels[1].Components[0].Angle)
}

func TestParseCatalogRejectsBadPresets(t *testing.T) {
	tests := map[string]string{
		"duplicate array": "arrays:\n  - {name: a, kind: line, line: {count: 2, spacing: 1}}\n  - {name: a, kind: line, line: {count: 2, spacing: 1}}\n",
		"unknown kind":    "arrays:\n  - {name: a, kind: spiral}\n",
		"itrf no file":    "arrays:\n  - {name: a, kind: itrf}\n",
		"arms no layout":  "arrays:\n  - {name: a, kind: arms}\n",
		"sky no path":     "sky_models:\n  - {name: s, kind: file}\n",
		"sky bad kind":    "sky_models:\n  - {name: s, kind: galaxy}\n",
		"bad yaml":        "arrays: [\n",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalogFromReader(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestParseCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0644))

	cat, err := ParseCatalog(path)
	require.NoError(t, err)
	assert.Len(t, cat.Arrays, 2)

	_, err = ParseCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
