package models

import "time"

// JobStatus represents the status of an upload job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusParsing   JobStatus = "parsing"
	JobStatusAnalyzing JobStatus = "analyzing"
	JobStatusComplete  JobStatus = "complete"
	JobStatusError     JobStatus = "error"
)

// IsTerminal reports whether the status is a final state (complete or error).
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusComplete || s == JobStatusError
}

// IsActive reports whether the pipeline is currently working the job.
func (s JobStatus) IsActive() bool {
	return s == JobStatusParsing || s == JobStatusAnalyzing
}

// IsValid reports whether s is one of the known states.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusParsing, JobStatusAnalyzing, JobStatusComplete, JobStatusError:
		return true
	}
	return false
}

// UploadJob tracks a screenplay upload through the parse/analyze pipeline.
type UploadJob struct {
	ID          string          `json:"id"`
	Filename    string          `json:"filename"`
	Category    string          `json:"category"`
	Status      JobStatus       `json:"status"`
	Progress    int             `json:"progress"` // 0-100
	Error       string          `json:"error,omitempty"`
	Result      *AnalysisResult `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// AnalysisResult holds the pipeline output for a completed job.
type AnalysisResult struct {
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	AnalysisPath string `json:"analysisPath,omitempty"`
	PageCount    int    `json:"pageCount,omitempty"`
	WordCount    int    `json:"wordCount,omitempty"`
}

// JobPatch is a partial update to an UploadJob. Nil fields are left unchanged.
type JobPatch struct {
	Filename *string         `json:"filename,omitempty"`
	Category *string         `json:"category,omitempty"`
	Status   *JobStatus      `json:"status,omitempty"`
	Progress *int            `json:"progress,omitempty"`
	Error    *string         `json:"error,omitempty"`
	Result   *AnalysisResult `json:"result,omitempty"`
}

// NewUploadJob creates a job in pending status with zero progress.
func NewUploadJob(id, filename, category string) *UploadJob {
	return &UploadJob{
		ID:        id,
		Filename:  filename,
		Category:  category,
		Status:    JobStatusPending,
		Progress:  0,
		CreatedAt: time.Now(),
	}
}
