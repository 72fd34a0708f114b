package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/screenplay-dashboard/backend/internal/models"
)

// FileStore persists jobs as a single JSON file, rewritten whole on every
// save. The write goes to a temp file first and is renamed into place so a
// crash never leaves a half-written snapshot.
type FileStore struct {
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the snapshot. A missing file is a first run, not an error.
func (s *FileStore) Load() ([]models.UploadJob, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}

	var jobs []models.UploadJob
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to parse registry file: %w", err)
	}
	return jobs, nil
}

// Save replaces the snapshot with the given jobs.
func (s *FileStore) Save(jobs []models.UploadJob) error {
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode jobs: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace registry file: %w", err)
	}
	return nil
}
