// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/screenplay-dashboard/backend/internal/models"
)

// JobHandler handles upload job operations
type JobHandler interface {
	HandleCreateJob(c echo.Context) error
	HandleUploadJob(c echo.Context) error
	HandleListJobs(c echo.Context) error
	HandleGetJob(c echo.Context) error
	HandlePatchJob(c echo.Context) error
	HandleDeleteJob(c echo.Context) error
	HandleClearCompleted(c echo.Context) error
	HandleActiveJob(c echo.Context) error
	HandleJobStats(c echo.Context) error
	HandleSetProcessing(c echo.Context) error
	HandleExportJobs(c echo.Context) error
	HandleJobEvents(c echo.Context) error
	HandleDownloadScript(c echo.Context) error
	HandleListScripts(c echo.Context) error
}

// CatalogHandler handles category catalog operations
type CatalogHandler interface {
	HandleGetCatalog(c echo.Context) error
	HandleUpdateCatalog(c echo.Context) error
	Current() *models.CategoryCatalog
}

// ArchiveHandler handles analysis archive operations
type ArchiveHandler interface {
	HandleQueryArchive(c echo.Context) error
	HandleExportArchive(c echo.Context) error
	HandleArchiveStats(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}
