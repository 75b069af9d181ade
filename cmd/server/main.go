package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mdobak/go-xerrors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/radioastro101/backend/internal/api"
	"github.com/radioastro101/backend/internal/catalog"
	"github.com/radioastro101/backend/internal/config"
	"github.com/radioastro101/backend/internal/history"
	"github.com/radioastro101/backend/internal/logging"
	"github.com/radioastro101/backend/internal/models"
	"github.com/radioastro101/backend/internal/observability"
	"github.com/radioastro101/backend/internal/parser"
	"github.com/radioastro101/backend/internal/simulation"
	"github.com/radioastro101/backend/internal/storage"
	"github.com/radioastro101/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const configFileName = "RadioAstro101.config"

func main() {
	_ = godotenv.Load()

	if err := run(); err != nil {
		logging.NewFromEnv().Error(context.Background(), "server stopped", logging.Any("error", xerrors.New(err)))
		os.Exit(1)
	}
}

func run() error {
	configPath, err := resolveConfigPath()
	if err != nil {
		return err
	}

	// Load XML configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logging.New(cfg.LoggerConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	tracerCfg := cfg.TracerConfig()
	tracerCfg.ServiceVersion = Version
	tracing, err := observability.InitTracing(ctx, tracerCfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialise tracing: %w", err)
	}
	defer tracing.Close()

	var metrics *observability.SimulationCollector
	if cfg.Advanced.EnableMetrics {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		if metrics, err = observability.NewSimulationCollector(registry); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	// Initialize storage
	fileStore, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	runs, err := history.Open(cfg.HistoryOptions(), log)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer runs.Close()
	if n, err := runs.Count(ctx); err == nil {
		metrics.SetStoredRuns(n)
	}

	var presets *models.Catalog
	if cfg.Storage.CatalogFile != "" {
		if presets, err = parser.ParseCatalog(cfg.Storage.CatalogFile); err != nil {
			return fmt.Errorf("failed to load catalog %s: %w", cfg.Storage.CatalogFile, err)
		}
	}
	cat, err := catalog.New(catalog.Options{
		DataDir:        cfg.GetDataDir(),
		Presets:        presets,
		Uploads:        fileStore,
		DefaultSkySize: cfg.Imaging.DefaultSkySize,
		MaxSkySize:     cfg.Imaging.MaxSkySize,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("failed to build catalog: %w", err)
	}

	controller, err := simulation.NewController(simulation.Options{
		Resolver:   cat,
		History:    runs,
		Metrics:    metrics,
		Logger:     log,
		Kernel:     cfg.Imaging.Kernel,
		Epsilon:    cfg.Imaging.Epsilon,
		MaxSamples: cfg.Imaging.MaxSamples,

		AllowKernelOverride: cfg.Imaging.AllowKernelOverride,
	})
	if err != nil {
		return err
	}

	// Check if running in embedded mode (frontend built into binary)
	embeddedMode := web.HasEmbeddedFiles()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, log, cfg.Advanced.EnableRequestLogging)

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			ctx := c.Request().Context()
			logging.FromContext(ctx, log).Error(ctx, "panic recovered",
				logging.Err(err), logging.String("stack", string(stack)))
			return err
		},
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/api/ws/")
		},
		ErrorMessage: "Request timeout - simulation took too long",
	}))

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 1 && origins[0] == "" {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:  origins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
			ExposeHeaders: []string{echo.HeaderXRequestID},
		}))
	}

	deps := &api.Dependencies{
		Catalog:   cat,
		Simulator: controller,
		History:   runs,
		Store:     fileStore,
		Files: api.FileOptions{
			AllowDeletion:     cfg.Security.AllowFileDeletion,
			AllowedExtensions: cfg.AllowedExtensions(),
			MaxSkySize:        cfg.Imaging.MaxSkySize,
		},
		Logger:                log,
		Version:               Version,
		WebSocketMaxMessageKB: cfg.Advanced.WebSocketMaxMessageSize,
	}
	if metrics != nil {
		deps.Metrics = metrics.Handler()
	}
	handlers := api.NewHandlers(deps)
	api.RegisterRoutes(e, handlers)
	api.RegisterWebSocketRoutes(e, handlers)

	// Register embedded frontend if available
	if embeddedMode {
		if err := web.RegisterStaticRoutes(e); err != nil {
			log.Warn(ctx, "failed to register static routes", logging.Err(err))
		}
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      e,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	log.Info(ctx, "server starting",
		logging.String("version", Version),
		logging.String("build_time", BuildTime),
		logging.String("config", configPath),
		logging.String("listen", cfg.GetServerAddr()),
		logging.String("data_dir", cfg.GetDataDir()),
		logging.String("kernel", cfg.Imaging.Kernel),
		logging.Bool("embedded_frontend", embeddedMode),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// resolveConfigPath prefers RADIOASTRO_CONFIG and otherwise keeps the config
// next to the executable.
func resolveConfigPath() (string, error) {
	if p := os.Getenv("RADIOASTRO_CONFIG"); p != "" {
		return p, nil
	}
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	return filepath.Join(filepath.Dir(exePath), configFileName), nil
}
