package models

import "time"

// FileRecord represents a file seen either on local disk or in a remote listing
type FileRecord struct {
	Path       string    `json:"path"`
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
}
