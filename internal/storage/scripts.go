package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/screenplay-dashboard/backend/internal/models"
)

// Store keeps the raw screenplay bytes for upload jobs. The registry is
// the ID authority; stores never mint IDs of their own.
type Store interface {
	Save(id, name string, r io.Reader) (int64, error)
	SaveBytes(id, name string, data []byte) error
	Path(id string) (string, bool)
	IsStored(id string) bool
	Delete(id string) error
	List() []models.ScriptFile
	CleanupOrphaned(validIDs []string) int
	Stats() map[string]interface{}
}

const scriptPrefix = "script_"

// ScriptStore persists screenplay files on disk as script_<jobID><ext>.
// Existing files are picked up on construction so stored scripts survive
// restarts.
type ScriptStore struct {
	mu         sync.RWMutex
	scriptsDir string
	files      map[string]string // job ID -> stored filename
}

var _ Store = (*ScriptStore)(nil)

// NewScriptStore creates the store, creating the directory if needed and
// scanning it for previously stored scripts.
func NewScriptStore(scriptsDir string) (*ScriptStore, error) {
	if err := os.MkdirAll(scriptsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scripts directory: %w", err)
	}

	s := &ScriptStore{
		scriptsDir: scriptsDir,
		files:      make(map[string]string),
	}
	s.scanExisting()
	return s, nil
}

// scanExisting indexes script_<id><ext> files already on disk.
func (s *ScriptStore) scanExisting() {
	entries, err := os.ReadDir(s.scriptsDir)
	if err != nil {
		fmt.Printf("[ScriptStore] Warning: could not scan %s: %v\n", s.scriptsDir, err)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, scriptPrefix) {
			continue
		}
		base := strings.TrimPrefix(name, scriptPrefix)
		id := strings.TrimSuffix(base, filepath.Ext(base))
		if id == "" {
			continue
		}
		s.files[id] = name
	}

	if len(s.files) > 0 {
		fmt.Printf("[ScriptStore] Found %d stored script(s) in %s\n", len(s.files), s.scriptsDir)
	}
}

// Save streams the screenplay to disk, replacing any prior file for the
// job. The extension of the original filename is kept.
func (s *ScriptStore) Save(id, name string, r io.Reader) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(id)

	stored := scriptPrefix + id + filepath.Ext(name)
	path := filepath.Join(s.scriptsDir, stored)
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create script file: %w", err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("failed to write script file: %w", err)
	}

	s.files[id] = stored
	return n, nil
}

// SaveBytes stores an in-memory screenplay, replacing any prior file.
func (s *ScriptStore) SaveBytes(id, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(id)

	stored := scriptPrefix + id + filepath.Ext(name)
	path := filepath.Join(s.scriptsDir, stored)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write script file: %w", err)
	}

	s.files[id] = stored
	return nil
}

// removeLocked drops any prior stored file for the job. Callers hold s.mu.
func (s *ScriptStore) removeLocked(id string) {
	if stored, ok := s.files[id]; ok {
		os.Remove(filepath.Join(s.scriptsDir, stored))
		delete(s.files, id)
	}
}

// Path returns the on-disk path for the job's script. The file system is
// rechecked so a file deleted out from under us drops out of the cache.
func (s *ScriptStore) Path(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.files[id]
	if !ok {
		return "", false
	}
	path := filepath.Join(s.scriptsDir, stored)
	if _, err := os.Stat(path); err != nil {
		delete(s.files, id)
		return "", false
	}
	return path, true
}

// IsStored reports whether a script exists for the job.
func (s *ScriptStore) IsStored(id string) bool {
	_, ok := s.Path(id)
	return ok
}

// Delete removes the stored script for the job.
func (s *ScriptStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.files[id]
	if !ok {
		return fmt.Errorf("no stored script for job %s", id)
	}
	if err := os.Remove(filepath.Join(s.scriptsDir, stored)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete script file: %w", err)
	}
	delete(s.files, id)
	return nil
}

// List returns metadata for every stored script, newest first.
func (s *ScriptStore) List() []models.ScriptFile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ScriptFile, 0, len(s.files))
	for id, stored := range s.files {
		info, err := os.Stat(filepath.Join(s.scriptsDir, stored))
		if err != nil {
			continue
		}
		out = append(out, models.ScriptFile{
			ID:         id,
			Name:       stored,
			Size:       info.Size(),
			UploadedAt: info.ModTime(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})
	return out
}

// CleanupOrphaned deletes stored scripts whose job ID is not in validIDs
// and returns how many were removed. Run at startup against the registry:
// only completed jobs survive a restart, so scripts for jobs lost with the
// session get swept here.
func (s *ScriptStore) CleanupOrphaned(validIDs []string) int {
	valid := make(map[string]struct{}, len(validIDs))
	for _, id := range validIDs {
		valid[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, stored := range s.files {
		if _, ok := valid[id]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.scriptsDir, stored)); err != nil && !os.IsNotExist(err) {
			fmt.Printf("[ScriptStore] Warning: could not remove orphan %s: %v\n", stored, err)
			continue
		}
		delete(s.files, id)
		removed++
	}

	if removed > 0 {
		fmt.Printf("[ScriptStore] Cleaned up %d orphaned script(s)\n", removed)
	}
	return removed
}

// Stats returns storage statistics.
func (s *ScriptStore) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totalSize int64
	for _, stored := range s.files {
		if info, err := os.Stat(filepath.Join(s.scriptsDir, stored)); err == nil {
			totalSize += info.Size()
		}
	}

	return map[string]interface{}{
		"scriptCount": len(s.files),
		"totalSize":   totalSize,
		"scriptsDir":  s.scriptsDir,
	}
}
