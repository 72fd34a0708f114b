package testutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/screenplay-dashboard/backend/internal/models"
	"github.com/screenplay-dashboard/backend/internal/storage"
)

// MockScriptStore is an in-memory storage.Store for handler tests.
type MockScriptStore struct {
	mu    sync.RWMutex
	names map[string]string // id -> original filename
	data  map[string][]byte
	dir   string // when set, files are written for real so Path works

	SaveErr error // injected failure for Save and SaveBytes
}

var _ storage.Store = (*MockScriptStore)(nil)

// NewMockScriptStore creates a purely in-memory store. Path returns a
// placeholder that does not exist on disk.
func NewMockScriptStore() *MockScriptStore {
	return &MockScriptStore{
		names: make(map[string]string),
		data:  make(map[string][]byte),
	}
}

// NewMockScriptStoreInDir creates a store that also writes real files to
// dir, for tests that read the stored script back (downloads).
func NewMockScriptStoreInDir(dir string) *MockScriptStore {
	s := NewMockScriptStore()
	s.dir = dir
	return s
}

func (m *MockScriptStore) Save(id, name string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	if err := m.SaveBytes(id, name, data); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

func (m *MockScriptStore) SaveBytes(id, name string, data []byte) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[id] = name
	m.data[id] = append([]byte(nil), data...)

	if m.dir != "" {
		if err := os.WriteFile(m.storedPath(id, name), data, 0644); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockScriptStore) storedPath(id, name string) string {
	return filepath.Join(m.dir, "script_"+id+filepath.Ext(name))
}

func (m *MockScriptStore) Path(id string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name, ok := m.names[id]
	if !ok {
		return "", false
	}
	if m.dir != "" {
		return m.storedPath(id, name), true
	}
	return "/mock/scripts/script_" + id + filepath.Ext(name), true
}

func (m *MockScriptStore) IsStored(id string) bool {
	_, ok := m.Path(id)
	return ok
}

func (m *MockScriptStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, ok := m.names[id]
	if !ok {
		return fmt.Errorf("no stored script for job %s", id)
	}
	if m.dir != "" {
		os.Remove(m.storedPath(id, name))
	}
	delete(m.names, id)
	delete(m.data, id)
	return nil
}

func (m *MockScriptStore) List() []models.ScriptFile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ScriptFile, 0, len(m.names))
	for id, name := range m.names {
		out = append(out, models.ScriptFile{
			ID:         id,
			Name:       "script_" + id + filepath.Ext(name),
			Size:       int64(len(m.data[id])),
			UploadedAt: time.Now(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MockScriptStore) CleanupOrphaned(validIDs []string) int {
	valid := make(map[string]struct{}, len(validIDs))
	for _, id := range validIDs {
		valid[id] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, name := range m.names {
		if _, ok := valid[id]; ok {
			continue
		}
		if m.dir != "" {
			os.Remove(m.storedPath(id, name))
		}
		delete(m.names, id)
		delete(m.data, id)
		removed++
	}
	return removed
}

func (m *MockScriptStore) Stats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var totalSize int64
	for _, data := range m.data {
		totalSize += int64(len(data))
	}
	return map[string]interface{}{
		"scriptCount": len(m.names),
		"totalSize":   totalSize,
		"scriptsDir":  m.dir,
	}
}

// AddScript seeds a stored script directly.
func (m *MockScriptStore) AddScript(id, name string, data []byte) {
	m.SaveBytes(id, name, data)
}

// ScriptData returns the stored bytes for a job.
func (m *MockScriptStore) ScriptData(id string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[id]
}

// ScriptCount returns the number of stored scripts.
func (m *MockScriptStore) ScriptCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.names)
}
