// Package config provides XML-based configuration management for air-gapped deployment.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/radioastro101/backend/internal/history"
	"github.com/radioastro101/backend/internal/logging"
	"github.com/radioastro101/backend/internal/observability"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"RadioAstro101"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Imaging configuration
	Imaging ImagingConfig `xml:"Imaging"`

	// Security configuration
	Security SecurityConfig `xml:"Security"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port           int    `xml:"Port"`
	BindAddress    string `xml:"BindAddress"`
	EnableCORS     bool   `xml:"EnableCORS"`
	AllowOrigins   string `xml:"AllowOrigins"`
	ReadTimeout    int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout   int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout    int    `xml:"IdleTimeoutSeconds"`
	RequestTimeout int    `xml:"RequestTimeoutSeconds"`
	BodyLimit      string `xml:"BodyLimit"`
}

// StorageConfig contains file storage settings. UploadsDirectory and
// HistoryDatabase are relative to DataDirectory unless absolute.
type StorageConfig struct {
	DataDirectory    string `xml:"DataDirectory"`
	UploadsDirectory string `xml:"UploadsDirectory"`
	HistoryDatabase  string `xml:"HistoryDatabase"`
	// CatalogFile replaces the built-in presets when set.
	CatalogFile       string `xml:"CatalogFile"`
	EnablePersistence bool   `xml:"EnablePersistence"`
}

// ImagingConfig contains pipeline settings
type ImagingConfig struct {
	DefaultSkySize int     `xml:"DefaultSkySize"`
	Epsilon        float64 `xml:"Epsilon"`
	Kernel         string  `xml:"Kernel"`
	MaxSamples     int     `xml:"MaxSamples"`
	// MaxSkySize bounds each edge of image sky models, in pixels.
	MaxSkySize     int     `xml:"MaxSkySize"`

	// AllowKernelOverride lets a request pick its own kernel.
	AllowKernelOverride bool `xml:"AllowKernelOverride"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	AllowFileDeletion bool   `xml:"AllowFileDeletion"`
	AllowedFileTypes  string `xml:"AllowedFileTypes"`
}

// TracingConfig contains OpenTelemetry settings
type TracingConfig struct {
	Enabled     bool    `xml:"Enabled"`
	ServiceName string  `xml:"ServiceName"`
	Exporter    string  `xml:"Exporter"`
	Endpoint    string  `xml:"Endpoint"`
	SampleRatio float64 `xml:"SampleRatio"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel                string        `xml:"LogLevel"`
	LogFormat               string        `xml:"LogFormat"`
	EnableRequestLogging    bool          `xml:"EnableRequestLogging"`
	EnableMetrics           bool          `xml:"EnableMetrics"`
	DuckDBThreads           int           `xml:"DuckDBThreads"`
	DuckDBMemoryLimit       string        `xml:"DuckDBMemoryLimit"`
	WebSocketMaxMessageSize int           `xml:"WebSocketMaxMessageSizeKB"`
	Tracing                 TracingConfig `xml:"Tracing"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:           8089,
			BindAddress:    "0.0.0.0",
			EnableCORS:     true,
			AllowOrigins:   "*",
			ReadTimeout:    30,
			WriteTimeout:   120,
			IdleTimeout:    120,
			RequestTimeout: 90,
			BodyLimit:      "32M",
		},
		Storage: StorageConfig{
			DataDirectory:     "./data",
			UploadsDirectory:  "uploads",
			HistoryDatabase:   "history.duckdb",
			EnablePersistence: true,
		},
		Imaging: ImagingConfig{
			DefaultSkySize: 256,
			Epsilon:        1e-5,
			Kernel:         "gridding",
			MaxSamples:     2000000,
			MaxSkySize:     2048,
		},
		Security: SecurityConfig{
			AllowFileDeletion: true,
			AllowedFileTypes:  ".itrf,.txt,.png,.jpg,.jpeg,.gif",
		},
		Advanced: AdvancedConfig{
			LogLevel:                "info",
			LogFormat:               "json",
			EnableRequestLogging:    true,
			EnableMetrics:           true,
			DuckDBThreads:           2,
			DuckDBMemoryLimit:       "256MB",
			WebSocketMaxMessageSize: 64,
			Tracing: TracingConfig{
				Enabled:     false,
				ServiceName: "radioastro101",
				Exporter:    "stdout",
				Endpoint:    "localhost:4317",
				SampleRatio: 1,
			},
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := xml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()
	config.Imaging.Kernel = strings.ToLower(strings.TrimSpace(config.Imaging.Kernel))

	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- Radio Interferometry 101 Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	switch strings.ToLower(c.Imaging.Kernel) {
	case "", "gridding", "direct":
	default:
		return fmt.Errorf("invalid Imaging/Kernel %q: want gridding or direct", c.Imaging.Kernel)
	}
	if c.Imaging.Epsilon < 0 || c.Imaging.Epsilon >= 1 {
		return fmt.Errorf("invalid Imaging/Epsilon %g: want a value in (0, 1)", c.Imaging.Epsilon)
	}
	if c.Imaging.DefaultSkySize < 0 || c.Imaging.DefaultSkySize%2 != 0 {
		return fmt.Errorf("invalid Imaging/DefaultSkySize %d: want a positive even size", c.Imaging.DefaultSkySize)
	}
	if c.Imaging.MaxSkySize < 2 {
		return fmt.Errorf("invalid Imaging/MaxSkySize %d: want at least 2", c.Imaging.MaxSkySize)
	}
	if c.Imaging.DefaultSkySize > c.Imaging.MaxSkySize {
		return fmt.Errorf("invalid Imaging/DefaultSkySize %d: exceeds MaxSkySize %d", c.Imaging.DefaultSkySize, c.Imaging.MaxSkySize)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid Server/Port %d", c.Server.Port)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR override
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		c.Advanced.LogFormat = format
	}
	if kernel := os.Getenv("PSF_KERNEL"); kernel != "" {
		c.Imaging.Kernel = kernel
	}

	// OTLP endpoint implies the otlp exporter
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		c.Advanced.Tracing.Enabled = true
		c.Advanced.Tracing.Exporter = "otlp"
		c.Advanced.Tracing.Endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.UploadsDirectory) {
		c.Storage.UploadsDirectory = filepath.Join(c.Storage.DataDirectory, c.Storage.UploadsDirectory)
	}
	if c.Storage.HistoryDatabase != "" && !filepath.IsAbs(c.Storage.HistoryDatabase) {
		c.Storage.HistoryDatabase = filepath.Join(c.Storage.DataDirectory, c.Storage.HistoryDatabase)
	}
	if c.Storage.CatalogFile != "" && !filepath.IsAbs(c.Storage.CatalogFile) {
		c.Storage.CatalogFile = filepath.Join(configDir, c.Storage.CatalogFile)
	}
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetUploadDir returns the absolute uploads directory path
func (c *AppConfig) GetUploadDir() string {
	return c.Storage.UploadsDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// HistoryOptions returns the run store settings; without persistence the
// history lives in memory.
func (c *AppConfig) HistoryOptions() history.Config {
	cfg := history.Config{
		Threads:     c.Advanced.DuckDBThreads,
		MemoryLimit: c.Advanced.DuckDBMemoryLimit,
	}
	if c.Storage.EnablePersistence {
		cfg.Path = c.Storage.HistoryDatabase
	}
	return cfg
}

// LoggerConfig returns the logger settings.
func (c *AppConfig) LoggerConfig() logging.Config {
	return logging.Config{
		Level:  c.Advanced.LogLevel,
		Format: c.Advanced.LogFormat,
	}
}

// TracerConfig returns the tracer settings.
func (c *AppConfig) TracerConfig() observability.TracingConfig {
	t := c.Advanced.Tracing
	return observability.TracingConfig{
		Enabled:     t.Enabled,
		ServiceName: t.ServiceName,
		Exporter:    t.Exporter,
		Endpoint:    t.Endpoint,
		SampleRatio: t.SampleRatio,
	}
}

// AllowedExtensions returns the lower-case upload extensions.
func (c *AppConfig) AllowedExtensions() map[string]bool {
	exts := make(map[string]bool)
	for _, ext := range strings.Split(c.Security.AllowedFileTypes, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" {
			exts[ext] = true
		}
	}
	return exts
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.UploadsDirectory,
		filepath.Join(c.Storage.DataDirectory, "telescopes"),
		filepath.Join(c.Storage.DataDirectory, "sky_models"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
