package models

import "time"

// ArchiveEntry is one completed analysis in the archive index.
type ArchiveEntry struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	Category     string    `json:"category"`
	Title        string    `json:"title,omitempty"`
	Author       string    `json:"author,omitempty"`
	AnalysisPath string    `json:"analysisPath,omitempty"`
	PageCount    int       `json:"pageCount,omitempty"`
	WordCount    int       `json:"wordCount,omitempty"`
	CompletedAt  time.Time `json:"completedAt"`
}

// EntryFromJob builds an archive entry from a completed job. Jobs without
// a result still archive with the file metadata alone.
func EntryFromJob(job UploadJob) ArchiveEntry {
	e := ArchiveEntry{
		ID:       job.ID,
		Filename: job.Filename,
		Category: job.Category,
	}
	if job.Result != nil {
		e.Title = job.Result.Title
		e.Author = job.Result.Author
		e.AnalysisPath = job.Result.AnalysisPath
		e.PageCount = job.Result.PageCount
		e.WordCount = job.Result.WordCount
	}
	if job.CompletedAt != nil {
		e.CompletedAt = *job.CompletedAt
	} else {
		e.CompletedAt = job.CreatedAt
	}
	return e
}
