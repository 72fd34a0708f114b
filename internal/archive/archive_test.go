package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/screenplay-dashboard/backend/internal/models"
)

func createTestArchive(t *testing.T) (*Store, func()) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "archive.duckdb")

	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create archive: %v", err)
	}

	cleanup := func() {
		store.Close()
	}
	return store, cleanup
}

func testEntry(id, filename, title, author, category string, completed time.Time) models.ArchiveEntry {
	return models.ArchiveEntry{
		ID:           id,
		Filename:     filename,
		Category:     category,
		Title:        title,
		Author:       author,
		AnalysisPath: "/analysis/" + id + ".json",
		PageCount:    110,
		WordCount:    24000,
		CompletedAt:  completed,
	}
}

func TestNewStore(t *testing.T) {
	t.Run("creates the database file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "archive.duckdb")

		store, err := NewStore(dbPath)
		if err != nil {
			t.Fatalf("Failed to create archive: %v", err)
		}
		defer store.Close()

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			t.Error("Expected database file to be created")
		}
	})

	t.Run("reopens an existing archive", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "archive.duckdb")

		store1, err := NewStore(dbPath)
		if err != nil {
			t.Fatalf("Failed to create archive: %v", err)
		}
		if err := store1.Record(testEntry("e1", "a.pdf", "A", "Author", "randoms", time.Now())); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		store1.Close()

		store2, err := NewStore(dbPath)
		if err != nil {
			t.Fatalf("Failed to reopen archive: %v", err)
		}
		defer store2.Close()

		count, err := store2.Count()
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 entry after reopen, got %d", count)
		}
	})
}

func TestRecord(t *testing.T) {
	t.Run("stores an entry", func(t *testing.T) {
		store, cleanup := createTestArchive(t)
		defer cleanup()

		completed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		if err := store.Record(testEntry("e1", "script.pdf", "Neon Nights", "J. Doe", "blacklist-2024", completed)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}

		entries, total, err := store.Query(context.Background(), QueryParams{}, 1, 10)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if total != 1 || len(entries) != 1 {
			t.Fatalf("Expected 1 entry, got total=%d len=%d", total, len(entries))
		}

		e := entries[0]
		if e.ID != "e1" || e.Filename != "script.pdf" {
			t.Errorf("Unexpected entry identity: %+v", e)
		}
		if e.Title != "Neon Nights" || e.Author != "J. Doe" {
			t.Errorf("Unexpected entry metadata: %+v", e)
		}
		if e.PageCount != 110 || e.WordCount != 24000 {
			t.Errorf("Unexpected counts: %+v", e)
		}
		if !e.CompletedAt.Equal(completed) {
			t.Errorf("Expected completedAt %v, got %v", completed, e.CompletedAt)
		}
	})

	t.Run("upserts on the same id", func(t *testing.T) {
		store, cleanup := createTestArchive(t)
		defer cleanup()

		if err := store.Record(testEntry("e1", "script.pdf", "First Title", "A", "randoms", time.Now())); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if err := store.Record(testEntry("e1", "script.pdf", "Second Title", "A", "randoms", time.Now())); err != nil {
			t.Fatalf("Second Record failed: %v", err)
		}

		count, err := store.Count()
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 entry after upsert, got %d", count)
		}

		entries, _, err := store.Query(context.Background(), QueryParams{}, 1, 10)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if entries[0].Title != "Second Title" {
			t.Errorf("Expected updated title, got %s", entries[0].Title)
		}
	})

	t.Run("archives a completed job", func(t *testing.T) {
		store, cleanup := createTestArchive(t)
		defer cleanup()

		now := time.Now()
		job := models.UploadJob{
			ID:          "job-1",
			Filename:    "pilot.fountain",
			Category:    "randoms",
			Status:      models.JobStatusComplete,
			Progress:    100,
			Result:      &models.AnalysisResult{Title: "Pilot", Author: "R. Chen", AnalysisPath: "/a/pilot.json"},
			CreatedAt:   now.Add(-time.Minute),
			CompletedAt: &now,
		}

		if err := store.Record(models.EntryFromJob(job)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}

		entries, _, err := store.Query(context.Background(), QueryParams{Search: "Pilot"}, 1, 10)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(entries) != 1 || entries[0].Author != "R. Chen" {
			t.Errorf("Job not archived as expected: %+v", entries)
		}
	})
}

func TestImportEntries(t *testing.T) {
	t.Run("bulk loads entries", func(t *testing.T) {
		store, cleanup := createTestArchive(t)
		defer cleanup()

		base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		entries := []models.ArchiveEntry{
			testEntry("e1", "a.pdf", "A", "X", "randoms", base),
			testEntry("e2", "b.pdf", "B", "Y", "randoms", base.Add(time.Hour)),
			testEntry("e3", "c.pdf", "C", "Z", "blacklist-2024", base.Add(2*time.Hour)),
		}

		n, err := store.ImportEntries(entries)
		if err != nil {
			t.Fatalf("ImportEntries failed: %v", err)
		}
		if n != 3 {
			t.Errorf("Expected 3 imported, got %d", n)
		}

		count, err := store.Count()
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if count != 3 {
			t.Errorf("Expected 3 entries, got %d", count)
		}
	})

	t.Run("skips ids already archived", func(t *testing.T) {
		store, cleanup := createTestArchive(t)
		defer cleanup()

		base := time.Now()
		if err := store.Record(testEntry("e1", "a.pdf", "A", "X", "randoms", base)); err != nil {
			t.Fatalf("Record failed: %v", err)
		}

		n, err := store.ImportEntries([]models.ArchiveEntry{
			testEntry("e1", "a.pdf", "A", "X", "randoms", base),
			testEntry("e2", "b.pdf", "B", "Y", "randoms", base),
		})
		if err != nil {
			t.Fatalf("ImportEntries failed: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 imported, got %d", n)
		}
	})

	t.Run("handles empty input", func(t *testing.T) {
		store, cleanup := createTestArchive(t)
		defer cleanup()

		n, err := store.ImportEntries(nil)
		if err != nil {
			t.Fatalf("ImportEntries failed: %v", err)
		}
		if n != 0 {
			t.Errorf("Expected 0 imported, got %d", n)
		}
	})
}

func TestQuery(t *testing.T) {
	populate := func(t *testing.T, store *Store) {
		t.Helper()
		base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		entries := []models.ArchiveEntry{
			testEntry("e1", "neon_nights.pdf", "Neon Nights", "Jordan Doe", "blacklist-2024", base),
			testEntry("e2", "quiet_harbor.pdf", "Quiet Harbor", "Sam Lee", "blacklist-2024", base.Add(time.Hour)),
			testEntry("e3", "last_train.txt", "Last Train Home", "Jordan Doe", "randoms", base.Add(2*time.Hour)),
		}
		if _, err := store.ImportEntries(entries); err != nil {
			t.Fatalf("ImportEntries failed: %v", err)
		}
	}

	t.Run("searches filename, title and author", func(t *testing.T) {
		store, cleanup := createTestArchive(t)
		defer cleanup()
		populate(t, store)

		// Case-insensitive match on author.
		entries, total, err := store.Query(context.Background(), QueryParams{Search: "jordan"}, 1, 10)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if total != 2 || len(entries) != 2 {
			t.Errorf("Expected 2 matches for author search, got total=%d len=%d", total, len(entries))
		}

		// Match on filename.
		_, total, err = store.Query(context.Background(), QueryParams{Search: "harbor"}, 1, 10)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if total != 1 {
			t.Errorf("Expected 1 match for filename search, got %d", total)
		}
	})

	t.Run("filters by category", func(t *testing.T) {
		store, cleanup := createTestArchive(t)
		defer cleanup()
		populate(t, store)

		entries, total, err := store.Query(context.Background(), QueryParams{Category: "blacklist-2024"}, 1, 10)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if total != 2 {
			t.Errorf("Expected 2 entries in blacklist-2024, got %d", total)
		}
		for _, e := range entries {
			if e.Category != "blacklist-2024" {
				t.Errorf("Expected category blacklist-2024, got %s", e.Category)
			}
		}
	})

	t.Run("combines search and category", func(t *testing.T) {
		store, cleanup := createTestArchive(t)
		defer cleanup()
		populate(t, store)

		_, total, err := store.Query(context.Background(), QueryParams{Search: "jordan", Category: "randoms"}, 1, 10)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if total != 1 {
			t.Errorf("Expected 1 match, got %d", total)
		}
	})

	t.Run("returns newest first with pagination", func(t *testing.T) {
		store, cleanup := createTestArchive(t)
		defer cleanup()
		populate(t, store)

		page1, total, err := store.Query(context.Background(), QueryParams{}, 1, 2)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if total != 3 || len(page1) != 2 {
			t.Fatalf("Expected total 3 with 2 on page 1, got total=%d len=%d", total, len(page1))
		}
		if page1[0].ID != "e3" || page1[1].ID != "e2" {
			t.Errorf("Expected newest first [e3 e2], got [%s %s]", page1[0].ID, page1[1].ID)
		}

		page2, _, err := store.Query(context.Background(), QueryParams{}, 2, 2)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if len(page2) != 1 || page2[0].ID != "e1" {
			t.Errorf("Expected [e1] on page 2, got %+v", page2)
		}
	})

	t.Run("handles an empty archive", func(t *testing.T) {
		store, cleanup := createTestArchive(t)
		defer cleanup()

		entries, total, err := store.Query(context.Background(), QueryParams{}, 1, 10)
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		if total != 0 || len(entries) != 0 {
			t.Errorf("Expected empty result, got total=%d len=%d", total, len(entries))
		}
	})
}

func TestRemove(t *testing.T) {
	store, cleanup := createTestArchive(t)
	defer cleanup()

	if err := store.Record(testEntry("e1", "a.pdf", "A", "X", "randoms", time.Now())); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := store.Remove("e1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	count, err := store.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 entries after Remove, got %d", count)
	}
}

func TestStats(t *testing.T) {
	store, cleanup := createTestArchive(t)
	defer cleanup()

	if err := store.Record(testEntry("e1", "a.pdf", "A", "X", "randoms", time.Now())); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	stats := store.Stats()
	if stats["entryCount"] != 1 {
		t.Errorf("Expected entryCount 1, got %v", stats["entryCount"])
	}
	if stats["dbPath"] == "" {
		t.Error("Expected dbPath in stats")
	}
}
