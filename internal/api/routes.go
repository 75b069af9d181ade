// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/radioastro101/backend/internal/logging"
	"github.com/radioastro101/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Catalog   CatalogProvider
	Simulator Simulator
	History   RunHistory
	Store     storage.Store
	Files     FileOptions
	Logger    logging.Logger
	Version   string
	// WebSocketMaxMessageKB bounds client messages on /api/ws/simulate.
	WebSocketMaxMessageKB int
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

// Handlers holds all handler instances
type Handlers struct {
	Health     HealthHandler
	Catalog    CatalogHandler
	Simulation SimulationHandler
	Files      FileHandler
	WebSocket  *WebSocketHandler
	Metrics    http.Handler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:     NewHealthHandler(deps.Version),
		Catalog:    NewCatalogHandler(deps.Catalog),
		Simulation: NewSimulationHandler(deps.Simulator, deps.History, deps.Logger),
		Files:      NewFileHandler(deps.Store, deps.Files, deps.Logger),
		WebSocket:  NewWebSocketHandler(deps.Simulator, deps.WebSocketMaxMessageKB, deps.Logger),
		Metrics:    deps.Metrics,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/api/health", handlers.Health.HandleHealth)

	e.GET("/api/catalog", handlers.Catalog.HandleGetCatalog)

	// Simulation routes
	e.POST("/api/simulate", handlers.Simulation.HandleSimulate)
	e.GET("/api/runs", handlers.Simulation.HandleListRuns)
	e.GET("/api/runs/:id", handlers.Simulation.HandleGetRun)

	// File upload routes
	fileGroup := e.Group("/api/files")
	fileGroup.POST("/antennas", handlers.Files.HandleUploadAntennas)
	fileGroup.POST("/skymodels", handlers.Files.HandleUploadSkyModel)
	fileGroup.GET("/recent", handlers.Files.HandleGetRecentFiles)
	fileGroup.GET("/:id", handlers.Files.HandleGetFile)
	fileGroup.DELETE("/:id", handlers.Files.HandleDeleteFile)
	fileGroup.PUT("/:id", handlers.Files.HandleRenameFile)

	if handlers.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(handlers.Metrics))
	}
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/api/ws/simulate", handlers.WebSocket.HandleWebSocket)
}

// SetupMiddleware configures the error handler and request-scoped logging
func SetupMiddleware(e *echo.Echo, log logging.Logger, logRequests bool) {
	e.HTTPErrorHandler = ErrorHandler(log)
	e.Use(RequestLogger(log, logRequests))
}
