// handlers_jobs.go - Upload job operation handlers
package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/screenplay-dashboard/backend/internal/archive"
	"github.com/screenplay-dashboard/backend/internal/models"
	"github.com/screenplay-dashboard/backend/internal/registry"
	"github.com/screenplay-dashboard/backend/internal/storage"
)

// JobHandlerImpl implements the JobHandler interface
type JobHandlerImpl struct {
	registry    *registry.Registry
	scripts     storage.Store
	archive     *archive.Store
	catalog     CatalogHandler
	allowedExts []string
}

// NewJobHandler creates a new job handler instance. The archive may be nil
// when archiving is disabled.
func NewJobHandler(reg *registry.Registry, scripts storage.Store, arch *archive.Store, catalog CatalogHandler, allowedExts []string) JobHandler {
	return &JobHandlerImpl{
		registry:    reg,
		scripts:     scripts,
		archive:     arch,
		catalog:     catalog,
		allowedExts: allowedExts,
	}
}

// HandleCreateJob registers a new upload job from a JSON request. The
// screenplay content may be included as base64; jobs created without content
// are tracked anyway so the pipeline can attach a file later.
func (h *JobHandlerImpl) HandleCreateJob(c echo.Context) error {
	var req createJobRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if err := req.validate(); err != nil {
		return err
	}

	if !extensionAllowed(req.Filename, h.allowedExts) {
		return NewBadRequestError(fmt.Sprintf("file type %q is not allowed", filepath.Ext(req.Filename)), nil)
	}

	// Decode base64 content before creating the job so a bad payload
	// leaves no trace in the registry
	var decoded []byte
	if req.Data != "" {
		var err error
		decoded, err = base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			return NewBadRequestError("invalid base64 data", err)
		}
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = h.defaultCategory()
	}

	id := h.registry.CreateJob(req.Filename, category)

	if len(decoded) > 0 {
		if err := h.scripts.SaveBytes(id, req.Filename, decoded); err != nil {
			h.registry.RemoveJob(id)
			return NewInternalError("failed to store script", err)
		}
	}

	job, ok := h.registry.Job(id)
	if !ok {
		return NewInternalError("job vanished during creation", nil)
	}

	return c.JSON(http.StatusCreated, job)
}

// HandleUploadJob registers a new upload job from a multipart form upload
func (h *JobHandlerImpl) HandleUploadJob(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	if !extensionAllowed(file.Filename, h.allowedExts) {
		return NewBadRequestError(fmt.Sprintf("file type %q is not allowed", filepath.Ext(file.Filename)), nil)
	}

	category := strings.TrimSpace(c.FormValue("category"))
	if category == "" {
		category = h.defaultCategory()
	}

	src, err := file.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	id := h.registry.CreateJob(file.Filename, category)

	if _, err := h.scripts.Save(id, file.Filename, src); err != nil {
		h.registry.RemoveJob(id)
		return NewInternalError("failed to store script", err)
	}

	job, ok := h.registry.Job(id)
	if !ok {
		return NewInternalError("job vanished during creation", nil)
	}

	return c.JSON(http.StatusCreated, job)
}

// HandleListJobs returns every tracked job in insertion order plus the
// advisory processing flag
func (h *JobHandlerImpl) HandleListJobs(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"jobs":       h.registry.Jobs(),
		"processing": h.registry.IsProcessing(),
	})
}

// HandleGetJob returns a single job by ID
func (h *JobHandlerImpl) HandleGetJob(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	job, ok := h.registry.Job(id)
	if !ok {
		return NewNotFoundError("job", id)
	}

	return c.JSON(http.StatusOK, job)
}

// HandlePatchJob applies a partial update reported by the pipeline worker
func (h *JobHandlerImpl) HandlePatchJob(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	if _, ok := h.registry.Job(id); !ok {
		return NewNotFoundError("job", id)
	}

	var patch models.JobPatch
	if err := c.Bind(&patch); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	if patch.Status != nil && !patch.Status.IsValid() {
		return NewBadRequestError(fmt.Sprintf("invalid status %q", *patch.Status), nil)
	}
	if patch.Progress != nil && (*patch.Progress < 0 || *patch.Progress > 100) {
		return NewBadRequestError("progress must be between 0 and 100", nil)
	}

	h.registry.UpdateJob(id, patch)

	job, ok := h.registry.Job(id)
	if !ok {
		return NewNotFoundError("job", id)
	}

	// Completed analyses flow into the permanent archive
	if job.Status == models.JobStatusComplete {
		h.recordInArchive(job)
	}

	return c.JSON(http.StatusOK, job)
}

// HandleDeleteJob removes a job along with its stored script and archive row
func (h *JobHandlerImpl) HandleDeleteJob(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	job, ok := h.registry.Job(id)
	if !ok {
		return NewNotFoundError("job", id)
	}

	h.registry.RemoveJob(id)

	if h.scripts.IsStored(id) {
		if err := h.scripts.Delete(id); err != nil {
			fmt.Printf("[API] Warning: could not delete script for job %s: %v\n", id[:8], err)
		}
	}
	if h.archive != nil {
		if err := h.archive.Remove(id); err != nil {
			fmt.Printf("[API] Warning: could not remove archive entry for job %s: %v\n", id[:8], err)
		}
	}

	fmt.Printf("[API] Deleted job %s (%s)\n", id[:8], job.Filename)

	return c.NoContent(http.StatusNoContent)
}

// HandleClearCompleted removes every finished job and sweeps scripts that no
// longer belong to a tracked job
func (h *JobHandlerImpl) HandleClearCompleted(c echo.Context) error {
	removed := h.registry.ClearCompleted()

	ids := make([]string, 0, h.registry.Len())
	for _, job := range h.registry.Jobs() {
		ids = append(ids, job.ID)
	}
	scriptsRemoved := h.scripts.CleanupOrphaned(ids)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"removed":        removed,
		"remaining":      h.registry.Len(),
		"scriptsRemoved": scriptsRemoved,
	})
}

// HandleActiveJob returns the job currently being parsed or analyzed. The
// response always carries status 200; a missing active job is a null payload,
// not an error.
func (h *JobHandlerImpl) HandleActiveJob(c echo.Context) error {
	job, ok := h.registry.ActiveJob()
	if !ok {
		return c.JSON(http.StatusOK, map[string]interface{}{"active": nil})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"active": job})
}

// HandleJobStats returns registry counters plus script store statistics
func (h *JobHandlerImpl) HandleJobStats(c echo.Context) error {
	stats := h.registry.Stats()
	stats["scripts"] = h.scripts.Stats()

	return c.JSON(http.StatusOK, stats)
}

// HandleSetProcessing sets the advisory batch-processing flag
func (h *JobHandlerImpl) HandleSetProcessing(c echo.Context) error {
	var req processingRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	h.registry.SetProcessing(req.Processing)

	return c.JSON(http.StatusOK, map[string]bool{
		"processing": h.registry.IsProcessing(),
	})
}

// HandleExportJobs returns the full jobs snapshot as msgpack
func (h *JobHandlerImpl) HandleExportJobs(c echo.Context) error {
	jobs := h.registry.Jobs()

	data, err := msgpack.Marshal(map[string]interface{}{
		"jobs":       jobs,
		"total":      len(jobs),
		"processing": h.registry.IsProcessing(),
		"exportedAt": time.Now().UnixMilli(),
	})
	if err != nil {
		return NewInternalError("failed to encode export", err)
	}

	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleJobEvents streams job progress via SSE until the job reaches a
// terminal status or the client disconnects
func (h *JobHandlerImpl) HandleJobEvents(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	job, ok := h.registry.Job(id)
	if !ok {
		h.sendSSEError(c, "job not found")
		return nil
	}

	// Send initial status
	h.sendSSEData(c, job)
	if job.Status.IsTerminal() {
		return nil
	}

	lastStatus := job.Status
	lastProgress := job.Progress

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	timeout := time.NewTimer(30 * time.Minute)
	defer timeout.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil

		case <-ticker.C:
			job, ok := h.registry.Job(id)
			if !ok {
				h.sendSSEError(c, "job removed")
				return nil
			}

			if job.Status == lastStatus && job.Progress == lastProgress {
				continue
			}
			lastStatus = job.Status
			lastProgress = job.Progress

			h.sendSSEData(c, job)

			if job.Status.IsTerminal() {
				return nil
			}

		case <-timeout.C:
			h.sendSSEError(c, "stream timeout")
			return nil
		}
	}
}

// HandleDownloadScript serves the stored screenplay file as an attachment
func (h *JobHandlerImpl) HandleDownloadScript(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("id")
	}

	job, ok := h.registry.Job(id)
	if !ok {
		return NewNotFoundError("job", id)
	}

	path, ok := h.scripts.Path(id)
	if !ok {
		return NewNotFoundError("script", id)
	}

	return c.Attachment(path, job.Filename)
}

// HandleListScripts lists the screenplay files currently on disk
func (h *JobHandlerImpl) HandleListScripts(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"scripts": h.scripts.List(),
	})
}

// Helper functions

func (h *JobHandlerImpl) defaultCategory() string {
	if h.catalog == nil {
		return ""
	}
	cat := h.catalog.Current()
	if cat == nil {
		return ""
	}
	return cat.DefaultCategory
}

func (h *JobHandlerImpl) recordInArchive(job models.UploadJob) {
	if h.archive == nil {
		return
	}
	if err := h.archive.Record(models.EntryFromJob(job)); err != nil {
		fmt.Printf("[API] Warning: could not archive job %s: %v\n", job.ID[:8], err)
	}
}

func (h *JobHandlerImpl) sendSSEData(c echo.Context, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}

func (h *JobHandlerImpl) sendSSEError(c echo.Context, message string) {
	h.sendSSEData(c, map[string]string{"error": message})
}

// extensionAllowed reports whether the filename's extension is in the allow
// list. An empty list allows everything.
func extensionAllowed(filename string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// Request/Response types

type createJobRequest struct {
	Filename string `json:"filename"`
	Category string `json:"category"`
	Data     string `json:"data"` // Base64-encoded content, optional
}

func (r *createJobRequest) validate() error {
	if r.Filename == "" {
		return NewValidationError("filename")
	}
	return nil
}

type processingRequest struct {
	Processing bool `json:"processing"`
}
