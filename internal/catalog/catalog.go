// Package catalog resolves array and sky model names, whether built-in
// presets, files in the data directory or uploads, into antenna positions
// and sky brightness grids.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/radioastro101/backend/internal/imaging"
	"github.com/radioastro101/backend/internal/interferometry"
	"github.com/radioastro101/backend/internal/logging"
	"github.com/radioastro101/backend/internal/models"
	"github.com/radioastro101/backend/internal/parser"
	"github.com/radioastro101/backend/internal/skymodel"
	"github.com/radioastro101/backend/internal/storage"
)

//go:embed presets.yaml
var presetsYAML []byte

// DefaultSkySize is the edge length of generated sky models without an
// explicit size.
const DefaultSkySize = 256

var skyExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}

// Array is a resolved antenna array.
type Array struct {
	Name      string
	Label     string
	Positions []interferometry.Vec3
}

// Options configures a Catalog.
type Options struct {
	// DataDir holds telescopes/*.itrf and sky_models/* files. Optional.
	DataDir string
	// Presets replaces the built-in catalogue when set.
	Presets *models.Catalog
	// Uploads resolves "upload:<id>" references. Optional.
	Uploads        storage.Store
	DefaultSkySize int
	// MaxSkySize bounds each edge of image sky models. Zero means
	// skymodel.DefaultMaxSize.
	MaxSkySize int
	Logger     logging.Logger
}

// Catalog holds the presets and caches resolved preset arrays and sky
// models.
type Catalog struct {
	dataDir  string
	uploads  storage.Store
	skySize  int
	maxSky   int
	log      logging.Logger
	defaults models.RequestDefaults

	mu      sync.RWMutex
	arrays  map[string]models.ArrayPreset
	skies   map[string]models.SkyPreset
	order   []string
	skyList []string

	arrayCache map[string][]interferometry.Vec3
	skyCache   map[string]*imaging.Grid
}

// LoadPresets parses the built-in preset catalogue.
func LoadPresets() (*models.Catalog, error) {
	return parser.ParseCatalogFromReader(bytes.NewReader(presetsYAML))
}

// New builds a catalogue from the presets plus whatever the data directory
// provides.
func New(opts Options) (*Catalog, error) {
	presets := opts.Presets
	if presets == nil {
		var err error
		if presets, err = LoadPresets(); err != nil {
			return nil, fmt.Errorf("load presets: %w", err)
		}
	}
	if opts.Logger == nil {
		opts.Logger = logging.Noop()
	}
	if opts.DefaultSkySize <= 0 {
		opts.DefaultSkySize = DefaultSkySize
	}

	c := &Catalog{
		dataDir:    opts.DataDir,
		uploads:    opts.Uploads,
		skySize:    opts.DefaultSkySize,
		maxSky:     opts.MaxSkySize,
		log:        opts.Logger,
		defaults:   models.DefaultRequest(),
		arrays:     make(map[string]models.ArrayPreset),
		skies:      make(map[string]models.SkyPreset),
		arrayCache: make(map[string][]interferometry.Vec3),
		skyCache:   make(map[string]*imaging.Grid),
	}
	for _, a := range presets.Arrays {
		c.addArray(a)
	}
	for _, s := range presets.SkyModels {
		c.addSky(s)
	}

	if err := c.scanDataDir(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) addArray(a models.ArrayPreset) {
	if _, exists := c.arrays[a.Name]; !exists {
		c.order = append(c.order, a.Name)
	}
	c.arrays[a.Name] = a
}

func (c *Catalog) addSky(s models.SkyPreset) {
	if _, exists := c.skies[s.Name]; !exists {
		c.skyList = append(c.skyList, s.Name)
	}
	c.skies[s.Name] = s
}

// scanDataDir registers telescopes/<name>.itrf and sky_models/<name>.<img>.
func (c *Catalog) scanDataDir() error {
	if c.dataDir == "" {
		return nil
	}
	ctx := context.Background()

	telescopes, err := readDir(filepath.Join(c.dataDir, "telescopes"))
	if err != nil {
		return err
	}
	for _, name := range telescopes {
		if filepath.Ext(name) != ".itrf" {
			continue
		}
		preset := strings.TrimSuffix(name, ".itrf")
		c.addArray(models.ArrayPreset{
			Name:  preset,
			Label: preset,
			Kind:  models.ArrayKindITRF,
			File:  filepath.Join("telescopes", name),
		})
		c.log.Debug(ctx, "registered telescope file", logging.String("array", preset))
	}

	skies, err := readDir(filepath.Join(c.dataDir, "sky_models"))
	if err != nil {
		return err
	}
	for _, name := range skies {
		ext := strings.ToLower(filepath.Ext(name))
		if !skyExtensions[ext] {
			continue
		}
		preset := strings.TrimSuffix(name, filepath.Ext(name))
		c.addSky(models.SkyPreset{
			Name:  preset,
			Label: preset,
			Spec:  skymodel.Spec{Kind: skymodel.KindFile, Path: filepath.Join("sky_models", name)},
		})
		c.log.Debug(ctx, "registered sky model file", logging.String("sky_model", preset))
	}

	c.log.Info(ctx, "catalogue loaded",
		logging.Int("arrays", len(c.arrays)),
		logging.Int("sky_models", len(c.skies)),
		logging.String("data_dir", c.dataDir),
	)
	return nil
}

func readDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (c *Catalog) dataPath(p string) string {
	if filepath.IsAbs(p) || c.dataDir == "" {
		return p
	}
	return filepath.Join(c.dataDir, p)
}

func uploadID(name string) (string, bool) {
	if !strings.HasPrefix(name, models.UploadPrefix) {
		return "", false
	}
	return strings.TrimPrefix(name, models.UploadPrefix), true
}

// ResolveArray returns the antenna positions for a preset name or an
// "upload:<id>" reference.
func (c *Catalog) ResolveArray(name string) (*Array, error) {
	const op = "resolve array"

	if id, ok := uploadID(name); ok {
		table, err := openUpload(c, op, id, models.FileKindAntennas, parser.ParseAntennaTable)
		if err != nil {
			return nil, err
		}
		return &Array{Name: name, Label: name, Positions: table.Positions}, nil
	}

	c.mu.RLock()
	preset, ok := c.arrays[name]
	cached := c.arrayCache[name]
	c.mu.RUnlock()
	if !ok {
		return nil, interferometry.Resourcef(op, "unknown array %q", name)
	}
	if cached == nil {
		var err error
		if cached, err = c.buildArray(preset); err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.arrayCache[name] = cached
		c.mu.Unlock()
	}

	positions := make([]interferometry.Vec3, len(cached))
	copy(positions, cached)
	return &Array{Name: preset.Name, Label: preset.Label, Positions: positions}, nil
}

func (c *Catalog) buildArray(p models.ArrayPreset) ([]interferometry.Vec3, error) {
	switch p.Kind {
	case models.ArrayKindITRF:
		table, err := parser.ParseAntennaFile(c.dataPath(p.File))
		if err != nil {
			return nil, fmt.Errorf("array %s: %w", p.Name, err)
		}
		return table.Positions, nil
	case models.ArrayKindENU:
		return interferometry.ENUToECEF(siteLocation(p.Site), vecs(p.Offsets)), nil
	case models.ArrayKindArms:
		return interferometry.ENUToECEF(siteLocation(p.Site), armOffsets(p.Arms)), nil
	case models.ArrayKindLine:
		return interferometry.ENUToECEF(siteLocation(p.Site), lineOffsets(p.Line)), nil
	default:
		return nil, interferometry.Validationf("resolve array", "array %s: unknown kind %q", p.Name, p.Kind)
	}
}

// ResolveSky returns the sky brightness grid for a preset name or an
// "upload:<id>" reference. The grid is a private copy.
func (c *Catalog) ResolveSky(name string) (*imaging.Grid, error) {
	const op = "resolve sky model"

	if id, ok := uploadID(name); ok {
		return openUpload(c, op, id, models.FileKindSkyModel, c.loadSky)
	}

	c.mu.RLock()
	preset, ok := c.skies[name]
	cached := c.skyCache[name]
	c.mu.RUnlock()
	if !ok {
		return nil, interferometry.Resourcef(op, "unknown sky model %q", name)
	}
	if cached == nil {
		var err error
		if preset.Kind == skymodel.KindFile {
			cached, err = skymodel.LoadFile(c.dataPath(preset.Path), c.maxSky)
		} else {
			cached, err = skymodel.Generate(preset.Spec, c.skySize)
		}
		if err != nil {
			return nil, fmt.Errorf("sky model %s: %w", name, err)
		}
		c.mu.Lock()
		c.skyCache[name] = cached
		c.mu.Unlock()
	}
	return cached.Clone(), nil
}

func (c *Catalog) loadSky(r io.Reader) (*imaging.Grid, error) {
	return skymodel.Load(r, c.maxSky)
}

// openUpload checks the upload's kind and decodes it with decode.
func openUpload[T any](c *Catalog, op, id string, kind models.FileKind, decode func(r io.Reader) (T, error)) (T, error) {
	var zero T
	if c.uploads == nil {
		return zero, interferometry.Resourcef(op, "uploads are not available")
	}
	info, err := c.uploads.Get(id)
	if err != nil {
		return zero, err
	}
	if info.Kind != kind {
		return zero, interferometry.Validationf(op, "file %s holds %s, not %s", id, info.Kind, kind)
	}
	rc, err := c.uploads.Open(id)
	if err != nil {
		return zero, err
	}
	defer rc.Close()
	return decode(rc)
}

// View lists the presets in catalogue order.
func (c *Catalog) View() models.CatalogView {
	c.mu.RLock()
	arrayNames := append([]string(nil), c.order...)
	skyNames := append([]string(nil), c.skyList...)
	c.mu.RUnlock()

	view := models.CatalogView{
		Arrays:    make([]models.CatalogEntry, 0, len(arrayNames)),
		SkyModels: make([]models.CatalogEntry, 0, len(skyNames)),
		Defaults:  c.defaults,
	}
	for _, name := range arrayNames {
		c.mu.RLock()
		p := c.arrays[name]
		c.mu.RUnlock()

		entry := models.CatalogEntry{Name: p.Name, Label: p.Label, Kind: string(p.Kind)}
		if arr, err := c.ResolveArray(name); err == nil {
			entry.Antennas = len(arr.Positions)
		} else {
			c.log.Warn(context.Background(), "array preset unavailable", logging.String("array", name), logging.Err(err))
		}
		view.Arrays = append(view.Arrays, entry)
	}
	for _, name := range skyNames {
		c.mu.RLock()
		p := c.skies[name]
		c.mu.RUnlock()

		entry := models.CatalogEntry{Name: p.Name, Label: p.Label, Kind: string(p.Kind)}
		if p.Kind != skymodel.KindFile {
			entry.Rows, entry.Cols = evenOr(p.Rows, c.skySize), evenOr(p.Cols, c.skySize)
		}
		view.SkyModels = append(view.SkyModels, entry)
	}
	return view
}

func evenOr(n, fallback int) int {
	if n == 0 {
		n = fallback
	}
	return n - n%2
}
