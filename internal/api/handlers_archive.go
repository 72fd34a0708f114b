// handlers_archive.go - Analysis archive operation handlers
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/screenplay-dashboard/backend/internal/archive"
)

// ArchiveHandlerImpl implements the ArchiveHandler interface
type ArchiveHandlerImpl struct {
	archive *archive.Store
}

// NewArchiveHandler creates a new archive handler instance. A nil store
// makes every endpoint answer 503.
func NewArchiveHandler(arch *archive.Store) ArchiveHandler {
	return &ArchiveHandlerImpl{archive: arch}
}

// HandleQueryArchive returns archived analyses with search, category filter
// and pagination
func (h *ArchiveHandlerImpl) HandleQueryArchive(c echo.Context) error {
	if h.archive == nil {
		return NewServiceUnavailableError("archive is disabled")
	}

	params := archive.QueryParams{
		Search:   c.QueryParam("search"),
		Category: c.QueryParam("category"),
	}
	page, pageSize := paginationParams(c)

	entries, total, err := h.archive.Query(c.Request().Context(), params, page, pageSize)
	if err != nil {
		return NewInternalError("archive query failed", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"entries":  entries,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// HandleExportArchive returns the matching archive entries as msgpack
func (h *ArchiveHandlerImpl) HandleExportArchive(c echo.Context) error {
	if h.archive == nil {
		return NewServiceUnavailableError("archive is disabled")
	}

	params := archive.QueryParams{
		Search:   c.QueryParam("search"),
		Category: c.QueryParam("category"),
	}
	page, pageSize := paginationParams(c)

	entries, total, err := h.archive.Query(c.Request().Context(), params, page, pageSize)
	if err != nil {
		return NewInternalError("archive query failed", err)
	}

	data, err := msgpack.Marshal(map[string]interface{}{
		"entries":    entries,
		"total":      total,
		"page":       page,
		"pageSize":   pageSize,
		"exportedAt": time.Now().UnixMilli(),
	})
	if err != nil {
		return NewInternalError("failed to encode export", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleArchiveStats returns archive counters
func (h *ArchiveHandlerImpl) HandleArchiveStats(c echo.Context) error {
	if h.archive == nil {
		return NewServiceUnavailableError("archive is disabled")
	}

	return c.JSON(http.StatusOK, h.archive.Stats())
}

// Helper functions

// paginationParams reads page and pageSize query params with the usual
// defaults and caps
func paginationParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("pageSize"))
	if pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}
	return page, pageSize
}
