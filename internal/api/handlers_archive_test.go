// handlers_archive_test.go - Tests for analysis archive handlers
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/screenplay-dashboard/backend/internal/archive"
	"github.com/screenplay-dashboard/backend/internal/models"
)

func newTestArchiveHandler(t *testing.T) (ArchiveHandler, *archive.Store) {
	t.Helper()

	store, err := archive.NewStore(filepath.Join(t.TempDir(), "archive.duckdb"))
	if err != nil {
		t.Fatalf("Failed to create archive store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewArchiveHandler(store), store
}

func seedArchive(t *testing.T, store *archive.Store) {
	t.Helper()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	entries := []models.ArchiveEntry{
		{ID: "job-1", Filename: "moonrise.pdf", Category: "blacklist-2024", Title: "Moonrise", Author: "R. Vance", AnalysisPath: "/analysis/moonrise.json", PageCount: 104, WordCount: 21050, CompletedAt: base},
		{ID: "job-2", Filename: "harbor.txt", Category: "randoms", Title: "Harbor Lights", Author: "T. Adeyemi", AnalysisPath: "/analysis/harbor.json", PageCount: 98, WordCount: 19400, CompletedAt: base.Add(time.Hour)},
		{ID: "job-3", Filename: "static.fountain", Category: "randoms", Title: "Static", Author: "R. Vance", AnalysisPath: "/analysis/static.json", PageCount: 112, WordCount: 23800, CompletedAt: base.Add(2 * time.Hour)},
	}
	for _, e := range entries {
		if err := store.Record(e); err != nil {
			t.Fatalf("Failed to seed archive: %v", err)
		}
	}
}

func TestArchiveHandler_HandleQueryArchive(t *testing.T) {
	handler, store := newTestArchiveHandler(t)
	seedArchive(t, store)

	query := func(t *testing.T, target string) (int, []models.ArchiveEntry) {
		t.Helper()

		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), rec)

		if err := handler.HandleQueryArchive(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}

		var response struct {
			Entries []models.ArchiveEntry `json:"entries"`
			Total   int                   `json:"total"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		return response.Total, response.Entries
	}

	t.Run("returns everything by default", func(t *testing.T) {
		total, entries := query(t, "/api/archive")
		if total != 3 {
			t.Errorf("expected total 3, got %d", total)
		}
		if len(entries) != 3 {
			t.Errorf("expected 3 entries, got %d", len(entries))
		}
		// Newest analysis first
		if entries[0].ID != "job-3" {
			t.Errorf("expected job-3 first, got %s", entries[0].ID)
		}
	})

	t.Run("search matches author case-insensitively", func(t *testing.T) {
		total, _ := query(t, "/api/archive?search=vance")
		if total != 2 {
			t.Errorf("expected 2 matches, got %d", total)
		}
	})

	t.Run("category filter", func(t *testing.T) {
		total, entries := query(t, "/api/archive?category=randoms")
		if total != 2 {
			t.Errorf("expected 2 matches, got %d", total)
		}
		for _, e := range entries {
			if e.Category != "randoms" {
				t.Errorf("unexpected category %s", e.Category)
			}
		}
	})

	t.Run("pagination", func(t *testing.T) {
		total, entries := query(t, "/api/archive?page=2&pageSize=2")
		if total != 3 {
			t.Errorf("expected total 3, got %d", total)
		}
		if len(entries) != 1 {
			t.Errorf("expected 1 entry on page 2, got %d", len(entries))
		}
	})
}

func TestArchiveHandler_HandleExportArchive(t *testing.T) {
	handler, store := newTestArchiveHandler(t)
	seedArchive(t, store)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/archive/export", nil), rec)

	if err := handler.HandleExportArchive(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/msgpack" {
		t.Errorf("expected application/msgpack, got %s", ct)
	}

	var payload map[string]interface{}
	if err := msgpack.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode msgpack: %v", err)
	}
	entries, ok := payload["entries"].([]interface{})
	if !ok {
		t.Fatalf("unexpected entries type %T", payload["entries"])
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 entries, got %d", len(entries))
	}
}

func TestArchiveHandler_HandleArchiveStats(t *testing.T) {
	handler, store := newTestArchiveHandler(t)
	seedArchive(t, store)

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/archive/stats", nil), rec)

	if err := handler.HandleArchiveStats(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var stats map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if stats["entryCount"].(float64) != 3 {
		t.Errorf("expected entryCount 3, got %v", stats["entryCount"])
	}
}

func TestArchiveHandler_Disabled(t *testing.T) {
	handler := NewArchiveHandler(nil)
	e := echo.New()

	endpoints := []struct {
		name   string
		invoke func(c echo.Context) error
	}{
		{"query", handler.HandleQueryArchive},
		{"export", handler.HandleExportArchive},
		{"stats", handler.HandleArchiveStats},
	}

	for _, ep := range endpoints {
		t.Run(ep.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/archive", nil), rec)

			err := ep.invoke(c)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			apiErr, ok := err.(*APIError)
			if !ok {
				t.Fatalf("expected APIError, got %T", err)
			}
			if apiErr.Status != http.StatusServiceUnavailable {
				t.Errorf("expected status 503, got %d", apiErr.Status)
			}
			if apiErr.Code != "SERVICE_UNAVAILABLE" {
				t.Errorf("expected SERVICE_UNAVAILABLE, got %s", apiErr.Code)
			}
		})
	}
}

func TestPaginationParams(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantPage     int
		wantPageSize int
	}{
		{
			name:         "defaults",
			query:        "",
			wantPage:     1,
			wantPageSize: 50,
		},
		{
			name:         "explicit values",
			query:        "?page=3&pageSize=100",
			wantPage:     3,
			wantPageSize: 100,
		},
		{
			name:         "zero page clamps to first",
			query:        "?page=0&pageSize=10",
			wantPage:     1,
			wantPageSize: 10,
		},
		{
			name:         "oversized pageSize falls back",
			query:        "?pageSize=5000",
			wantPage:     1,
			wantPageSize: 50,
		},
		{
			name:         "garbage values fall back",
			query:        "?page=abc&pageSize=xyz",
			wantPage:     1,
			wantPageSize: 50,
		},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := fmt.Sprintf("/api/archive%s", tt.query)
			c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())

			page, pageSize := paginationParams(c)
			if page != tt.wantPage {
				t.Errorf("expected page %d, got %d", tt.wantPage, page)
			}
			if pageSize != tt.wantPageSize {
				t.Errorf("expected pageSize %d, got %d", tt.wantPageSize, pageSize)
			}
		})
	}
}
