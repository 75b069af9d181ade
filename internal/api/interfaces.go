// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/radioastro101/backend/internal/models"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// CatalogHandler lists the selectable arrays and sky models
type CatalogHandler interface {
	HandleGetCatalog(c echo.Context) error
}

// SimulationHandler runs the imaging pipeline and serves past runs
type SimulationHandler interface {
	HandleSimulate(c echo.Context) error
	HandleListRuns(c echo.Context) error
	HandleGetRun(c echo.Context) error
}

// FileHandler handles antenna table and sky image uploads
type FileHandler interface {
	HandleUploadAntennas(c echo.Context) error
	HandleUploadSkyModel(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
	HandleRenameFile(c echo.Context) error
}

// CatalogProvider is the part of the catalogue the API reads.
type CatalogProvider interface {
	View() models.CatalogView
}

// Simulator runs one simulation request.
// This allows mocking in tests
type Simulator interface {
	Run(ctx context.Context, req models.SimulationRequest) (*models.SimulationResult, error)
}

// RunHistory lists stored simulation runs.
type RunHistory interface {
	List(ctx context.Context, limit int) ([]models.RunSummary, error)
	Get(ctx context.Context, id string) (*models.RunSummary, error)
}
