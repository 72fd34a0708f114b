// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"

	"github.com/screenplay-dashboard/backend/internal/archive"
	"github.com/screenplay-dashboard/backend/internal/models"
	"github.com/screenplay-dashboard/backend/internal/registry"
	"github.com/screenplay-dashboard/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Registry         *registry.Registry
	Scripts          storage.Store
	Archive          *archive.Store // nil disables archive endpoints
	Catalog          *models.CategoryCatalog
	CatalogPath      string
	AllowedFileTypes []string
	AllowJobDeletion bool
	Version          string
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Jobs    JobHandler
	Catalog CatalogHandler
	Archive ArchiveHandler

	allowJobDeletion bool
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	catalogHandler := NewCatalogHandler(deps.Catalog, deps.CatalogPath)

	return &Handlers{
		Health:  NewHealthHandler(deps.Version),
		Jobs:    NewJobHandler(deps.Registry, deps.Scripts, deps.Archive, catalogHandler, deps.AllowedFileTypes),
		Catalog: catalogHandler,
		Archive: NewArchiveHandler(deps.Archive),

		allowJobDeletion: deps.AllowJobDeletion,
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/health", handlers.Health.HandleHealth)
	e.GET("/api/health", handlers.Health.HandleHealth)

	// Upload job routes
	jobGroup := e.Group("/api/jobs")
	jobGroup.POST("", handlers.Jobs.HandleCreateJob)
	jobGroup.POST("/upload", handlers.Jobs.HandleUploadJob)
	jobGroup.GET("", handlers.Jobs.HandleListJobs)
	jobGroup.GET("/active", handlers.Jobs.HandleActiveJob)
	jobGroup.GET("/stats", handlers.Jobs.HandleJobStats)
	jobGroup.GET("/export", handlers.Jobs.HandleExportJobs)
	jobGroup.PUT("/processing", handlers.Jobs.HandleSetProcessing)
	jobGroup.DELETE("/completed", handlers.Jobs.HandleClearCompleted)
	jobGroup.GET("/:id", handlers.Jobs.HandleGetJob)
	jobGroup.PATCH("/:id", handlers.Jobs.HandlePatchJob)
	jobGroup.GET("/:id/script", handlers.Jobs.HandleDownloadScript)
	jobGroup.GET("/:id/events", handlers.Jobs.HandleJobEvents)

	// Job deletion is opt-in via config
	if handlers.allowJobDeletion {
		jobGroup.DELETE("/:id", handlers.Jobs.HandleDeleteJob)
	}

	// Stored script listing
	e.GET("/api/scripts", handlers.Jobs.HandleListScripts)

	// Category catalog routes
	catalogGroup := e.Group("/api/categories")
	catalogGroup.GET("", handlers.Catalog.HandleGetCatalog)
	catalogGroup.PUT("", handlers.Catalog.HandleUpdateCatalog)

	// Analysis archive routes
	archiveGroup := e.Group("/api/archive")
	archiveGroup.GET("", handlers.Archive.HandleQueryArchive)
	archiveGroup.GET("/export", handlers.Archive.HandleExportArchive)
	archiveGroup.GET("/stats", handlers.Archive.HandleArchiveStats)
}

// RegisterWebSocketRoutes registers the watch feed WebSocket route
func RegisterWebSocketRoutes(e *echo.Echo, wsh *WebSocketHandler) {
	e.GET("/ws", wsh.HandleWebSocket)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler
}
