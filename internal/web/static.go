// Package web serves the built frontend for air-gapped deployment.
package web

import (
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
)

// GetFileSystem returns the static file tree rooted at dir.
func GetFileSystem(dir string) fs.FS {
	return os.DirFS(dir)
}

// HasStaticFiles reports whether a built frontend exists in dir.
func HasStaticFiles(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "index.html"))
	return err == nil && !info.IsDir()
}

// RegisterStaticRoutes registers the frontend static file routes with Echo.
// The API routes should be registered before calling this function.
func RegisterStaticRoutes(e *echo.Echo, dir string) {
	staticFS := GetFileSystem(dir)

	// Create a file server over the static directory
	fileServer := http.FileServer(http.FS(staticFS))

	// Serve static files for all non-API routes
	e.GET("/*", func(c echo.Context) error {
		requestPath := c.Request().URL.Path

		// Clean the path
		requestPath = path.Clean(requestPath)
		if requestPath == "." {
			requestPath = "/"
		}

		// Try to open the file directly first
		file, err := staticFS.Open(strings.TrimPrefix(requestPath, "/"))
		if err != nil {
			// File not found - this is likely a frontend route (SPA)
			// Serve index.html and let the frontend router handle it
			return serveIndexHTML(c, staticFS)
		}
		defer file.Close()

		// Check if it's a directory
		stat, err := file.Stat()
		if err != nil {
			return serveIndexHTML(c, staticFS)
		}

		if stat.IsDir() {
			// Try to serve index.html from the directory
			indexPath := path.Join(requestPath, "index.html")
			indexFile, err := staticFS.Open(strings.TrimPrefix(indexPath, "/"))
			if err != nil {
				// No index.html, serve the main index.html (SPA fallback)
				return serveIndexHTML(c, staticFS)
			}
			indexFile.Close()
			// Serve the directory's index.html through the file server
			fileServer.ServeHTTP(c.Response(), c.Request())
			return nil
		}

		// It's a file, serve it directly
		fileServer.ServeHTTP(c.Response(), c.Request())
		return nil
	})
}

// serveIndexHTML serves the main index.html for SPA routing
func serveIndexHTML(c echo.Context, staticFS fs.FS) error {
	indexFile, err := staticFS.Open("index.html")
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "index.html not found")
	}
	defer indexFile.Close()

	content, err := io.ReadAll(indexFile)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read index.html")
	}

	return c.HTMLBlob(http.StatusOK, content)
}
