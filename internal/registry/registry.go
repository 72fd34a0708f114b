package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/screenplay-dashboard/backend/internal/models"
)

// Store persists the registry's completed jobs between runs.
type Store interface {
	Load() ([]models.UploadJob, error)
	Save(jobs []models.UploadJob) error
}

// Registry tracks upload jobs in insertion order as they move through the
// parse/analyze pipeline. All methods are safe for concurrent use. A nil
// store disables persistence.
type Registry struct {
	mu         sync.RWMutex
	jobs       []*models.UploadJob
	processing bool
	rev        uint64
	store      Store
}

// New creates a registry. Persisted completed jobs are restored in stored
// order; a failed load starts the registry empty.
func New(store Store) *Registry {
	r := &Registry{store: store}
	if store == nil {
		return r
	}

	jobs, err := store.Load()
	if err != nil {
		fmt.Printf("[Registry] Warning: could not restore jobs: %v\n", err)
		return r
	}
	for i := range jobs {
		job := jobs[i]
		r.jobs = append(r.jobs, &job)
	}
	if len(jobs) > 0 {
		fmt.Printf("[Registry] Restored %d completed job(s)\n", len(jobs))
	}
	return r
}

// CreateJob registers a new pending job and returns its ID.
func (r *Registry) CreateJob(filename, category string) string {
	job := models.NewUploadJob(uuid.New().String(), filename, category)

	r.mu.Lock()
	r.jobs = append(r.jobs, job)
	r.rev++
	r.persistLocked()
	r.mu.Unlock()

	fmt.Printf("[Registry %s] Created job for %s (category: %s)\n", shortID(job.ID), filename, category)
	return job.ID
}

// UpdateJob merges the non-nil patch fields into the job. Unknown IDs are
// ignored. Reaching complete or error stamps CompletedAt; leaving a
// terminal state (retry flows) clears it again. Status transitions are not
// validated, the pipeline owns ordering discipline.
func (r *Registry) UpdateJob(id string, patch models.JobPatch) {
	r.mu.Lock()
	job := r.findLocked(id)
	if job == nil {
		r.mu.Unlock()
		return
	}

	if patch.Filename != nil {
		job.Filename = *patch.Filename
	}
	if patch.Category != nil {
		job.Category = *patch.Category
	}
	if patch.Status != nil {
		job.Status = *patch.Status
	}
	if patch.Progress != nil {
		job.Progress = *patch.Progress
	}
	if patch.Error != nil {
		job.Error = *patch.Error
	}
	if patch.Result != nil {
		job.Result = patch.Result
	}

	// Error text belongs to the error state and results to the complete
	// state; a retry reset drops both along with the completion stamp.
	if job.Status != models.JobStatusError {
		job.Error = ""
	}
	if job.Status != models.JobStatusComplete {
		job.Result = nil
	}
	if job.Status.IsTerminal() {
		if job.CompletedAt == nil {
			now := time.Now()
			job.CompletedAt = &now
		}
	} else {
		job.CompletedAt = nil
	}

	status := job.Status
	errMsg := job.Error
	filename := job.Filename
	r.rev++
	r.persistLocked()
	r.mu.Unlock()

	switch status {
	case models.JobStatusComplete:
		fmt.Printf("[Registry %s] Job complete: %s\n", shortID(id), filename)
	case models.JobStatusError:
		fmt.Printf("[Registry %s] Job failed: %s\n", shortID(id), errMsg)
	}
}

// RemoveJob deletes the job. Unknown IDs are ignored.
func (r *Registry) RemoveJob(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, job := range r.jobs {
		if job.ID == id {
			r.jobs = append(r.jobs[:i], r.jobs[i+1:]...)
			r.rev++
			r.persistLocked()
			return
		}
	}
}

// ClearCompleted removes every finished job, complete and error alike,
// preserving the order of the survivors. Returns the number removed.
func (r *Registry) ClearCompleted() int {
	r.mu.Lock()
	kept := r.jobs[:0]
	for _, job := range r.jobs {
		if !job.Status.IsTerminal() {
			kept = append(kept, job)
		}
	}
	removed := len(r.jobs) - len(kept)
	r.jobs = kept
	if removed > 0 {
		r.rev++
		r.persistLocked()
	}
	r.mu.Unlock()

	if removed > 0 {
		fmt.Printf("[Registry] Cleared %d finished job(s)\n", removed)
	}
	return removed
}

// SetProcessing sets the advisory batch flag. It has no effect on any job.
func (r *Registry) SetProcessing(flag bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.processing != flag {
		r.processing = flag
		r.rev++
	}
}

// IsProcessing reports the advisory batch flag.
func (r *Registry) IsProcessing() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.processing
}

// Job returns a copy of the job with the given ID.
func (r *Registry) Job(id string) (models.UploadJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if job := r.findLocked(id); job != nil {
		return *job, true
	}
	return models.UploadJob{}, false
}

// Jobs returns a snapshot of all jobs in registry order.
func (r *Registry) Jobs() []models.UploadJob {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.UploadJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		out = append(out, *job)
	}
	return out
}

// ActiveJob returns the first job in registry order currently being
// parsed or analyzed.
func (r *Registry) ActiveJob() (models.UploadJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, job := range r.jobs {
		if job.Status.IsActive() {
			return *job, true
		}
	}
	return models.UploadJob{}, false
}

// PendingCount returns the number of jobs still waiting for the pipeline.
func (r *Registry) PendingCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, job := range r.jobs {
		if job.Status == models.JobStatusPending {
			count++
		}
	}
	return count
}

// Len returns the total number of jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Revision returns a counter that increases with every effective mutation.
// Pollers use it to detect change without diffing snapshots.
func (r *Registry) Revision() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rev
}

// Stats returns registry statistics for the stats endpoint.
func (r *Registry) Stats() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byStatus := make(map[string]int)
	pending := 0
	active := false
	for _, job := range r.jobs {
		byStatus[string(job.Status)]++
		if job.Status == models.JobStatusPending {
			pending++
		}
		if job.Status.IsActive() {
			active = true
		}
	}

	return map[string]interface{}{
		"total":      len(r.jobs),
		"pending":    pending,
		"active":     active,
		"processing": r.processing,
		"byStatus":   byStatus,
	}
}

// findLocked returns the live job for id. Callers hold r.mu.
func (r *Registry) findLocked(id string) *models.UploadJob {
	for _, job := range r.jobs {
		if job.ID == id {
			return job
		}
	}
	return nil
}

// persistLocked rewrites the durable snapshot with the complete jobs.
// Pending, active, and error jobs are session-scoped and not persisted.
// Callers hold r.mu.
func (r *Registry) persistLocked() {
	if r.store == nil {
		return
	}

	completed := make([]models.UploadJob, 0)
	for _, job := range r.jobs {
		if job.Status == models.JobStatusComplete {
			completed = append(completed, *job)
		}
	}
	if err := r.store.Save(completed); err != nil {
		fmt.Printf("[Registry] Warning: could not persist jobs: %v\n", err)
	}
}

// shortID returns a truncated ID for log messages.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
