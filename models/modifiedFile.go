package models

import "time"

// ModifiedFile is a file whose local copy is newer than the remote one
type ModifiedFile struct {
	LocalPath        string
	RemotePath       string
	Name             string
	LocalModifiedAt  time.Time
	RemoteModifiedAt time.Time
}
