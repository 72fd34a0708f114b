package models

import "time"

// ScriptFile holds metadata for a stored screenplay upload.
type ScriptFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}
