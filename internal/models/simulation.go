package models

import (
	"time"

	"github.com/radioastro101/backend/internal/imaging"
)

// UploadPrefix marks an array or sky model reference that names an
// uploaded file rather than a preset: "upload:<fileId>".
const UploadPrefix = "upload:"

// SimulationRequest carries the user's observation parameters.
type SimulationRequest struct {
	Array           string  `json:"array" msgpack:"array"`
	SkyModel        string  `json:"skyModel" msgpack:"skyModel"`
	SynthesisTime   float64 `json:"synthesisTime" msgpack:"synthesisTime"`     // hours
	IntegrationTime float64 `json:"integrationTime" msgpack:"integrationTime"` // seconds
	Wavelength      float64 `json:"wavelength" msgpack:"wavelength"`           // metres
	Declination     float64 `json:"declination" msgpack:"declination"`         // degrees
	Zenith          bool    `json:"zenith" msgpack:"zenith"`
	// CellSize in radians; zero derives it from the uv coverage.
	CellSize float64 `json:"cellSize,omitempty" msgpack:"cellSize,omitempty"`
	// Kernel overrides the configured kernel ("gridding" or "direct") when the
	// server allows it.
	Kernel string `json:"kernel,omitempty" msgpack:"kernel,omitempty"`
}

// RequestDefaults are the values the front end starts from.
type RequestDefaults struct {
	Array           string  `json:"array"`
	SkyModel        string  `json:"skyModel"`
	SynthesisTime   float64 `json:"synthesisTime"`
	IntegrationTime float64 `json:"integrationTime"`
	Wavelength      float64 `json:"wavelength"`
	Declination     float64 `json:"declination"`
}

// DefaultRequest returns the starting parameters of the front end.
func DefaultRequest() RequestDefaults {
	return RequestDefaults{
		Array:           "kat-7",
		SkyModel:        "gaussian_source",
		SynthesisTime:   1,
		IntegrationTime: 60,
		Wavelength:      0.1,
		Declination:     35,
	}
}

// Points is a columnar 2D point set.
type Points struct {
	X []float64 `json:"x" msgpack:"x"`
	Y []float64 `json:"y" msgpack:"y"`
}

// NewPoints allocates room for n points.
func NewPoints(n int) Points {
	return Points{X: make([]float64, 0, n), Y: make([]float64, 0, n)}
}

// Add appends one point.
func (p *Points) Add(x, y float64) {
	p.X = append(p.X, x)
	p.Y = append(p.Y, y)
}

// Len returns the number of points.
func (p Points) Len() int {
	return len(p.X)
}

// TelescopeLocation is the array centroid in degrees.
type TelescopeLocation struct {
	Longitude float64 `json:"longitude" msgpack:"longitude"`
	Latitude  float64 `json:"latitude" msgpack:"latitude"`
	Height    float64 `json:"height" msgpack:"height"`
}

// SimulationMetadata summarises a run.
type SimulationMetadata struct {
	ID              string            `json:"id" msgpack:"id"`
	CreatedAt       time.Time         `json:"createdAt" msgpack:"createdAt"`
	Location        TelescopeLocation `json:"location" msgpack:"location"`
	Antennas        int               `json:"antennas" msgpack:"antennas"`
	Baselines       int               `json:"baselines" msgpack:"baselines"`
	Integrations    int               `json:"integrations" msgpack:"integrations"`
	Samples         int               `json:"samples" msgpack:"samples"`
	SnapshotSamples int               `json:"snapshotSamples" msgpack:"snapshotSamples"`
	CellSize        float64           `json:"cellSize" msgpack:"cellSize"`   // radians
	Frequency       float64           `json:"frequency" msgpack:"frequency"` // Hz
	Kernel          string            `json:"kernel" msgpack:"kernel"`
	ElapsedMs       int64             `json:"elapsedMs" msgpack:"elapsedMs"`
	// Declination actually tracked, in degrees; the latitude when Zenith is set.
	Declination float64 `json:"declination" msgpack:"declination"`
	Zenith      bool    `json:"zenith" msgpack:"zenith"`
}

// SimulationResult is everything the front end plots.
type SimulationResult struct {
	Request     SimulationRequest  `json:"request" msgpack:"request"`
	Metadata    SimulationMetadata `json:"metadata" msgpack:"metadata"`
	DirtyImage  *imaging.Grid      `json:"dirtyImage" msgpack:"dirtyImage"`
	DirtyBeam   *imaging.Grid      `json:"dirtyBeam" msgpack:"dirtyBeam"`
	SkyModel    *imaging.Grid      `json:"skyModel" msgpack:"skyModel"`
	Antennas    Points             `json:"antennas" msgpack:"antennas"`
	UVW         Points             `json:"uvw" msgpack:"uvw"`
	UVWSnapshot Points             `json:"uvwSnapshot" msgpack:"uvwSnapshot"`
}

// RunSummary is a stored record of a finished simulation.
type RunSummary struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"createdAt"`
	Array           string    `json:"array"`
	SkyModel        string    `json:"skyModel"`
	SynthesisTime   float64   `json:"synthesisTime"`
	IntegrationTime float64   `json:"integrationTime"`
	Wavelength      float64   `json:"wavelength"`
	Declination     float64   `json:"declination"`
	Zenith          bool      `json:"zenith"`
	Antennas        int       `json:"antennas"`
	Baselines       int       `json:"baselines"`
	Samples         int       `json:"samples"`
	CellSize        float64   `json:"cellSize"`
	Kernel          string    `json:"kernel"`
	ImageRows       int       `json:"imageRows"`
	ImageCols       int       `json:"imageCols"`
	BeamPeak        float64   `json:"beamPeak"`
	ImagePeak       float64   `json:"imagePeak"`
	ElapsedMs       int64     `json:"elapsedMs"`
}

// Summary condenses a result into a history record.
func (r *SimulationResult) Summary() RunSummary {
	s := RunSummary{
		ID:              r.Metadata.ID,
		CreatedAt:       r.Metadata.CreatedAt,
		Array:           r.Request.Array,
		SkyModel:        r.Request.SkyModel,
		SynthesisTime:   r.Request.SynthesisTime,
		IntegrationTime: r.Request.IntegrationTime,
		Wavelength:      r.Request.Wavelength,
		Declination:     r.Metadata.Declination,
		Zenith:          r.Metadata.Zenith,
		Antennas:        r.Metadata.Antennas,
		Baselines:       r.Metadata.Baselines,
		Samples:         r.Metadata.Samples,
		CellSize:        r.Metadata.CellSize,
		Kernel:          r.Metadata.Kernel,
		ElapsedMs:       r.Metadata.ElapsedMs,
	}
	if r.DirtyImage != nil {
		s.ImageRows, s.ImageCols = r.DirtyImage.Rows, r.DirtyImage.Cols
		s.ImagePeak = r.DirtyImage.Max()
	}
	if r.DirtyBeam != nil {
		s.BeamPeak = r.DirtyBeam.Max()
	}
	return s
}
