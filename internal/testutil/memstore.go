package testutil

import (
	"sync"

	"github.com/screenplay-dashboard/backend/internal/models"
	"github.com/screenplay-dashboard/backend/internal/registry"
)

// MemStore is an in-memory registry.Store. It records every snapshot it is
// asked to save so tests can assert on persistence behavior.
type MemStore struct {
	mu        sync.Mutex
	jobs      []models.UploadJob
	saveCount int

	LoadErr error // injected failure for Load
	SaveErr error // injected failure for Save
}

var _ registry.Store = (*MemStore)(nil)

// NewMemStore creates a store optionally seeded with jobs to restore.
func NewMemStore(seed ...models.UploadJob) *MemStore {
	return &MemStore{jobs: seed}
}

func (s *MemStore) Load() ([]models.UploadJob, error) {
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.UploadJob, len(s.jobs))
	copy(out, s.jobs)
	return out, nil
}

func (s *MemStore) Save(jobs []models.UploadJob) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make([]models.UploadJob, len(jobs))
	copy(s.jobs, jobs)
	s.saveCount++
	return nil
}

// LastSaved returns the most recently saved snapshot.
func (s *MemStore) LastSaved() []models.UploadJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.UploadJob, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// SaveCount returns how many times Save was called.
func (s *MemStore) SaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveCount
}
