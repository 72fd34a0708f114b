// handlers_catalog.go - Category catalog operation handlers
package api

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/screenplay-dashboard/backend/internal/catalog"
	"github.com/screenplay-dashboard/backend/internal/models"
)

// CatalogHandlerImpl implements the CatalogHandler interface
type CatalogHandlerImpl struct {
	mu      sync.RWMutex
	current *models.CategoryCatalog
	path    string
}

// NewCatalogHandler creates a new catalog handler serving the given catalog.
// Updates are persisted to path before they become active.
func NewCatalogHandler(initial *models.CategoryCatalog, path string) CatalogHandler {
	return &CatalogHandlerImpl{
		current: initial,
		path:    path,
	}
}

// Current returns the active catalog (used by other handlers)
func (h *CatalogHandlerImpl) Current() *models.CategoryCatalog {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// HandleGetCatalog returns the active category catalog
func (h *CatalogHandlerImpl) HandleGetCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Current())
}

// HandleUpdateCatalog replaces the category catalog from base64 YAML. A
// catalog that fails validation or cannot be written never becomes active.
func (h *CatalogHandlerImpl) HandleUpdateCatalog(c echo.Context) error {
	var req updateCatalogRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if err := req.validate(); err != nil {
		return err
	}

	// Decode base64 content
	decoded, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return NewBadRequestError("invalid base64 data", err)
	}

	parsed, err := catalog.ParseFromBytes(decoded)
	if err != nil {
		return NewBadRequestError("invalid catalog YAML", err)
	}

	if err := catalog.Validate(parsed); err != nil {
		return NewBadRequestError(err.Error(), nil)
	}

	if err := catalog.Save(parsed, h.path); err != nil {
		return NewInternalError("failed to save catalog", err)
	}

	h.mu.Lock()
	h.current = parsed
	h.mu.Unlock()

	fmt.Printf("[API] Catalog updated: %d categories (default: %s)\n", len(parsed.Categories), parsed.DefaultCategory)

	return c.JSON(http.StatusOK, models.CatalogInfo{
		Path:            h.path,
		CategoryCount:   len(parsed.Categories),
		DefaultCategory: parsed.DefaultCategory,
	})
}

// Request/Response types

type updateCatalogRequest struct {
	Data string `json:"data"` // Base64-encoded YAML
}

func (r *updateCatalogRequest) validate() error {
	if r.Data == "" {
		return NewValidationError("data")
	}
	return nil
}
