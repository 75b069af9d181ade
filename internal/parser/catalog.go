package parser

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/radioastro101/backend/internal/models"
	"github.com/radioastro101/backend/internal/skymodel"
)

// ParseCatalog parses a YAML preset catalogue of arrays and sky models.
func ParseCatalog(filePath string) (*models.Catalog, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseCatalogFromReader(file)
}

// ParseCatalogFromReader parses a catalogue from an io.Reader and checks
// that every preset is named once and carries the layout its kind needs.
func ParseCatalogFromReader(r io.Reader) (*models.Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var cat models.Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, err
	}

	if err := validateCatalog(&cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func validateCatalog(cat *models.Catalog) error {
	seen := make(map[string]struct{})
	for i, a := range cat.Arrays {
		if a.Name == "" {
			return fmt.Errorf("arrays[%d]: missing name", i)
		}
		if _, dup := seen["array:"+a.Name]; dup {
			return fmt.Errorf("arrays[%d]: duplicate name %q", i, a.Name)
		}
		seen["array:"+a.Name] = struct{}{}

		switch a.Kind {
		case models.ArrayKindITRF:
			if a.File == "" {
				return fmt.Errorf("array %q: itrf preset needs a file", a.Name)
			}
		case models.ArrayKindENU:
			if len(a.Offsets) == 0 {
				return fmt.Errorf("array %q: enu preset needs offsets", a.Name)
			}
		case models.ArrayKindArms:
			if a.Arms == nil || len(a.Arms.Azimuths) == 0 || a.Arms.PerArm < 1 {
				return fmt.Errorf("array %q: arms preset needs azimuths and per_arm", a.Name)
			}
			if a.Arms.Outer < a.Arms.Inner {
				return fmt.Errorf("array %q: outer radius below inner radius", a.Name)
			}
		case models.ArrayKindLine:
			if a.Line == nil || a.Line.Count < 1 || a.Line.Spacing <= 0 {
				return fmt.Errorf("array %q: line preset needs count and spacing", a.Name)
			}
		default:
			return fmt.Errorf("array %q: unknown kind %q", a.Name, a.Kind)
		}
	}

	for i, s := range cat.SkyModels {
		if s.Name == "" {
			return fmt.Errorf("sky_models[%d]: missing name", i)
		}
		if _, dup := seen["sky:"+s.Name]; dup {
			return fmt.Errorf("sky_models[%d]: duplicate name %q", i, s.Name)
		}
		seen["sky:"+s.Name] = struct{}{}

		switch s.Kind {
		case skymodel.KindFile:
			if s.Path == "" {
				return fmt.Errorf("sky model %q: file preset needs a path", s.Name)
			}
		case skymodel.KindPoint, skymodel.KindGaussian, skymodel.KindEllipses:
		default:
			return fmt.Errorf("sky model %q: unknown kind %q", s.Name, s.Kind)
		}
	}
	return nil
}
