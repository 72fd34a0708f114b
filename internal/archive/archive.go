package archive

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"
	"time"

	"github.com/marcboeker/go-duckdb"

	"github.com/screenplay-dashboard/backend/internal/models"
)

// Store indexes completed analyses in a DuckDB file. Jobs leave the
// registry when the user clears them; the archive keeps the permanent,
// searchable record of everything that was ever analyzed.
type Store struct {
	db     *sql.DB
	dbPath string

	// Cache for total counts by filter to avoid repeated COUNT queries.
	countCache   map[string]int
	countCacheMu sync.RWMutex
}

// QueryParams defines filters for archive queries.
type QueryParams struct {
	Search   string // ILIKE match over filename, title, author
	Category string
}

// NewStore opens (or creates) the archive database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='256MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS screenplays (
			id            VARCHAR PRIMARY KEY,
			filename      VARCHAR NOT NULL,
			category      VARCHAR,
			title         VARCHAR,
			author        VARCHAR,
			analysis_path VARCHAR,
			page_count    INTEGER,
			word_count    INTEGER,
			completed_at  BIGINT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create archive table: %w", err)
	}

	s := &Store{
		db:         db,
		dbPath:     dbPath,
		countCache: make(map[string]int),
	}

	if count, err := s.Count(); err == nil && count > 0 {
		fmt.Printf("[Archive] Opened %s with %d entries\n", dbPath, count)
	}
	return s, nil
}

// Record upserts one completed analysis.
func (s *Store) Record(e models.ArchiveEntry) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO screenplays
			(id, filename, category, title, author, analysis_path, page_count, word_count, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Filename, e.Category, e.Title, e.Author, e.AnalysisPath,
		e.PageCount, e.WordCount, e.CompletedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record entry: %w", err)
	}

	s.clearCountCache()
	return nil
}

// ImportEntries bulk-loads entries with the native Appender, skipping IDs
// already archived. Returns the number actually inserted. Used at startup
// to backfill from the registry's persisted completed jobs.
func (s *Store) ImportEntries(entries []models.ArchiveEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	existing := make(map[string]struct{})
	rows, err := s.db.Query("SELECT id FROM screenplays")
	if err != nil {
		return 0, fmt.Errorf("failed to read existing ids: %w", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err == nil {
			existing[id] = struct{}{}
		}
	}
	rows.Close()

	fresh := make([]models.ArchiveEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := existing[e.ID]; !ok {
			fresh = append(fresh, e)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return 0, fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(driver.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "screenplays")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		for i, e := range fresh {
			err := appender.AppendRow(
				e.ID,
				e.Filename,
				e.Category,
				e.Title,
				e.Author,
				e.AnalysisPath,
				int32(e.PageCount),
				int32(e.WordCount),
				e.CompletedAt.UnixMilli(),
			)
			if err != nil {
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
		}

		return appender.Flush()
	})
	if err != nil {
		return 0, fmt.Errorf("appender error: %w", err)
	}

	s.clearCountCache()
	fmt.Printf("[Archive] Imported %d entries (%d already present)\n", len(fresh), len(entries)-len(fresh))
	return len(fresh), nil
}

// Query returns filtered entries, newest first, with the total match count.
func (s *Store) Query(ctx context.Context, params QueryParams, page, pageSize int) ([]models.ArchiveEntry, int, error) {
	where, args := buildWhereClause(params)

	cacheKey := where
	for _, a := range args {
		cacheKey += fmt.Sprintf("|%v", a)
	}
	if cacheKey == "" {
		cacheKey = "__total__"
	}

	s.countCacheMu.RLock()
	total, found := s.countCache[cacheKey]
	s.countCacheMu.RUnlock()

	if !found {
		countQuery := "SELECT COUNT(*) FROM screenplays"
		if where != "" {
			countQuery += " WHERE " + where
		}
		if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count query failed: %w", err)
		}

		s.countCacheMu.Lock()
		s.countCache[cacheKey] = total
		s.countCacheMu.Unlock()
	}

	if total == 0 {
		return []models.ArchiveEntry{}, 0, nil
	}

	query := `
		SELECT id, filename, category, title, author, analysis_path, page_count, word_count, completed_at
		FROM screenplays
	`
	if where != "" {
		query += " WHERE " + where
	}
	offset := (page - 1) * pageSize
	query += fmt.Sprintf(" ORDER BY completed_at DESC, id LIMIT %d OFFSET %d", pageSize, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	entries := make([]models.ArchiveEntry, 0, pageSize)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// Remove deletes one entry.
func (s *Store) Remove(id string) error {
	if _, err := s.db.Exec("DELETE FROM screenplays WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to remove entry: %w", err)
	}
	s.clearCountCache()
	return nil
}

// Count returns the total number of archived entries.
func (s *Store) Count() (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM screenplays").Scan(&count); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return count, nil
}

// Stats returns archive statistics.
func (s *Store) Stats() map[string]interface{} {
	count, err := s.Count()
	if err != nil {
		count = -1
	}
	return map[string]interface{}{
		"entryCount": count,
		"dbPath":     s.dbPath,
	}
}

// Close closes the database. The archive file is kept.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) clearCountCache() {
	s.countCacheMu.Lock()
	s.countCache = make(map[string]int)
	s.countCacheMu.Unlock()
}

func buildWhereClause(params QueryParams) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if params.Search != "" {
		pattern := "%" + params.Search + "%"
		clauses = append(clauses, "(filename ILIKE ? OR title ILIKE ? OR author ILIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}
	if params.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, params.Category)
	}

	if len(clauses) == 0 {
		return "", nil
	}

	where := clauses[0]
	for i := 1; i < len(clauses); i++ {
		where += " AND " + clauses[i]
	}
	return where, args
}

func scanEntry(rows *sql.Rows) (models.ArchiveEntry, error) {
	var id, filename string
	var category, title, author, analysisPath sql.NullString
	var pageCount, wordCount sql.NullInt32
	var completedMs int64

	err := rows.Scan(&id, &filename, &category, &title, &author, &analysisPath,
		&pageCount, &wordCount, &completedMs)
	if err != nil {
		return models.ArchiveEntry{}, err
	}

	return models.ArchiveEntry{
		ID:           id,
		Filename:     filename,
		Category:     category.String,
		Title:        title.String,
		Author:       author.String,
		AnalysisPath: analysisPath.String,
		PageCount:    int(pageCount.Int32),
		WordCount:    int(wordCount.Int32),
		CompletedAt:  time.UnixMilli(completedMs),
	}, nil
}
