package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/screenplay-dashboard/backend/internal/api"
	"github.com/screenplay-dashboard/backend/internal/archive"
	"github.com/screenplay-dashboard/backend/internal/catalog"
	"github.com/screenplay-dashboard/backend/internal/config"
	"github.com/screenplay-dashboard/backend/internal/models"
	"github.com/screenplay-dashboard/backend/internal/registry"
	"github.com/screenplay-dashboard/backend/internal/storage"
	"github.com/screenplay-dashboard/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Get the executable's directory for config resolution
	exePath, err := os.Executable()
	if err != nil {
		fmt.Printf("Failed to get executable path: %v\n", err)
		os.Exit(1)
	}
	exeDir := filepath.Dir(exePath)

	// Load XML configuration
	configPath := filepath.Join(exeDir, "ScreenplayDashboard.config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}

	// Initialize the job registry; a nil store keeps it in-memory only
	var regStore registry.Store
	if cfg.Storage.EnablePersistence {
		regStore = registry.NewFileStore(cfg.GetRegistryPath())
	}
	reg := registry.New(regStore)
	if cfg.Storage.EnablePersistence && reg.Len() > 0 {
		fmt.Printf("Restored %d completed job(s) from %s\n", reg.Len(), cfg.GetRegistryPath())
	}

	// Initialize script storage
	scripts, err := storage.NewScriptStore(cfg.GetScriptsDir())
	if err != nil {
		fmt.Printf("Failed to initialize script storage: %v\n", err)
		os.Exit(1)
	}

	// Drop stored scripts whose jobs did not survive the restart
	validIDs := make([]string, 0, reg.Len())
	for _, job := range reg.Jobs() {
		validIDs = append(validIDs, job.ID)
	}
	if removed := scripts.CleanupOrphaned(validIDs); removed > 0 {
		fmt.Printf("Removed %d orphaned script(s) on startup\n", removed)
	}

	// Open the analysis archive. A broken archive disables the archive
	// endpoints but never blocks uploads.
	var arch *archive.Store
	if cfg.Storage.EnableArchive {
		arch, err = archive.NewStore(cfg.GetArchivePath())
		if err != nil {
			fmt.Printf("Warning: failed to open archive, continuing without it: %v\n", err)
			arch = nil
		} else {
			defer arch.Close()
			backfillArchive(arch, reg)
		}
	}

	// Load the category catalog, writing the defaults on first run
	catalogPath := cfg.GetCatalogPath()
	cat := catalog.Load(catalogPath)
	if _, statErr := os.Stat(catalogPath); os.IsNotExist(statErr) {
		if err := catalog.Save(cat, catalogPath); err != nil {
			fmt.Printf("Warning: failed to write default catalog: %v\n", err)
		} else {
			fmt.Printf("Wrote default category catalog to %s\n", catalogPath)
		}
	}

	// Check if the built frontend is available for serving
	staticMode := web.HasStaticFiles(cfg.Advanced.StaticDirectory)

	e := echo.New()
	api.SetupMiddleware(e)

	// Configure middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			// Skip logging if disabled in config
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/health" ||
				path == "/ws" ||
				strings.HasSuffix(path, "/events")
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
		LogLevel:          0,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/ws" ||
				strings.HasSuffix(path, "/events") ||
				strings.HasSuffix(path, "/upload") ||
				c.Request().Header.Get("Accept") == "text/event-stream"
		},
		ErrorMessage: "Request timeout - operation took too long",
	}))

	// Compression middleware; streaming endpoints manage their own framing
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/ws" ||
				c.Request().Header.Get("Accept") == "text/event-stream"
		},
	}))

	// Body limit middleware
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// CORS configuration
	if cfg.Server.EnableCORS {
		if staticMode {
			// When serving the built frontend, use config settings
			origins := strings.Split(cfg.Server.AllowOrigins, ",")
			for i := range origins {
				origins[i] = strings.TrimSpace(origins[i])
			}
			if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
				origins = []string{"*"}
			}
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: origins,
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
			}))
		} else {
			// Development mode - only allow localhost
			e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
				AllowOrigins: []string{
					"http://localhost:5173", "http://127.0.0.1:5173",
					"http://localhost:5174", "http://127.0.0.1:5174",
					"http://localhost:3000", "http://127.0.0.1:3000",
				},
				AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
				AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
			}))
		}
	}

	// Initialize API handlers
	handlers := api.NewHandlers(&api.Dependencies{
		Registry:         reg,
		Scripts:          scripts,
		Archive:          arch,
		Catalog:          cat,
		CatalogPath:      catalogPath,
		AllowedFileTypes: cfg.GetAllowedFileTypes(),
		AllowJobDeletion: cfg.Security.AllowJobDeletion,
		Version:          Version,
	})
	api.RegisterRoutes(e, handlers)
	api.RegisterWebSocketRoutes(e, api.NewWebSocketHandler(reg))

	// Serve the built frontend if available
	if staticMode {
		web.RegisterStaticRoutes(e, cfg.Advanced.StaticDirectory)
		fmt.Printf("Serving frontend from %s\n", cfg.Advanced.StaticDirectory)
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Print startup banner
	mode := "Development (API only)"
	if staticMode {
		mode = "Dashboard (API + frontend)"
	}
	archiveState := "disabled"
	if arch != nil {
		archiveState = cfg.GetArchivePath()
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Screenplay Analysis Dashboard Server            ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Mode:       %-45s║\n", mode)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("║  Archive:   %-46s║\n", archiveState)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	if staticMode {
		fmt.Printf("Open http://localhost:%d in your browser\n\n", cfg.Server.Port)
	}

	e.Logger.Fatal(e.StartServer(s))
}

// backfillArchive records restored completed jobs that predate the archive
// database, so a freshly enabled or recreated archive catches up on startup.
func backfillArchive(arch *archive.Store, reg *registry.Registry) {
	var entries []models.ArchiveEntry
	for _, job := range reg.Jobs() {
		if job.Status == models.JobStatusComplete {
			entries = append(entries, models.EntryFromJob(job))
		}
	}
	if len(entries) == 0 {
		return
	}
	added, err := arch.ImportEntries(entries)
	if err != nil {
		fmt.Printf("Warning: archive backfill failed: %v\n", err)
		return
	}
	if added > 0 {
		fmt.Printf("Backfilled %d completed job(s) into the archive\n", added)
	}
}
