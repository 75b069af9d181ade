package models

import "github.com/radioastro101/backend/internal/skymodel"

// ArrayKind names how a preset array's antenna positions are produced.
type ArrayKind string

const (
	ArrayKindITRF ArrayKind = "itrf"
	ArrayKindENU  ArrayKind = "enu"
	ArrayKindArms ArrayKind = "arms"
	ArrayKindLine ArrayKind = "line"
)

// Catalog is the YAML preset catalogue of arrays and sky models.
type Catalog struct {
	Arrays    []ArrayPreset `json:"arrays" yaml:"arrays"`
	SkyModels []SkyPreset   `json:"skyModels" yaml:"sky_models"`
}

// Site is a geodetic reference position in degrees and metres.
type Site struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Height    float64 `json:"height" yaml:"height"`
}

// ArmsLayout places antennas along radial arms with power-law spacing:
// r_k = Inner + (Outer-Inner)·(k/(PerArm-1))^Exponent, rotated by Twist
// degrees at the outermost station.
type ArmsLayout struct {
	Azimuths []float64 `json:"azimuths" yaml:"azimuths"`
	PerArm   int       `json:"perArm" yaml:"per_arm"`
	Inner    float64   `json:"inner" yaml:"inner"`
	Outer    float64   `json:"outer" yaml:"outer"`
	Exponent float64   `json:"exponent,omitempty" yaml:"exponent,omitempty"`
	Twist    float64   `json:"twist,omitempty" yaml:"twist,omitempty"`
	Centre   bool      `json:"centre,omitempty" yaml:"centre,omitempty"`
}

// LineLayout places Count antennas Spacing metres apart along Azimuth
// degrees east of north, centred on the site.
type LineLayout struct {
	Count   int     `json:"count" yaml:"count"`
	Spacing float64 `json:"spacing" yaml:"spacing"`
	Azimuth float64 `json:"azimuth" yaml:"azimuth"`
}

// ArrayPreset describes a selectable antenna array.
type ArrayPreset struct {
	Name  string    `json:"name" yaml:"name"`
	Label string    `json:"label" yaml:"label"`
	Kind  ArrayKind `json:"kind" yaml:"kind"`
	// File is an ITRF table, relative to the data directory.
	File    string       `json:"file,omitempty" yaml:"file,omitempty"`
	Site    Site         `json:"site" yaml:"site"`
	Offsets [][3]float64 `json:"offsets,omitempty" yaml:"offsets,omitempty"`
	Arms    *ArmsLayout  `json:"arms,omitempty" yaml:"arms,omitempty"`
	Line    *LineLayout  `json:"line,omitempty" yaml:"line,omitempty"`
}

// SkyPreset describes a selectable sky model.
type SkyPreset struct {
	Name          string `json:"name" yaml:"name"`
	Label         string `json:"label" yaml:"label"`
	skymodel.Spec `yaml:",inline"`
}

// CatalogEntry is the API view of a preset.
type CatalogEntry struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Kind     string `json:"kind"`
	Antennas int    `json:"antennas,omitempty"`
	Rows     int    `json:"rows,omitempty"`
	Cols     int    `json:"cols,omitempty"`
}

// CatalogView lists the presets offered to clients.
type CatalogView struct {
	Arrays    []CatalogEntry  `json:"arrays"`
	SkyModels []CatalogEntry  `json:"skyModels"`
	Defaults  RequestDefaults `json:"defaults"`
}
