package models

import "time"

// Folder groups the requests built from one folder type template.
type Folder struct {
	ID   string
	Name string
	// RequestedTypeIDs is the set of document types required across the folder.
	RequestedTypeIDs []string
	// CompletedAt reflects aggregate completion of the folder's requests;
	// it cascades from request completion and is cleared when any document
	// in the folder is invalidated.
	CompletedAt *time.Time
}

// IsComplete reports whether every request in the folder is completed.
// An empty folder is not considered complete.
func (f *Folder) IsComplete(requests []*Request) bool {
	if len(requests) == 0 {
		return false
	}
	for _, r := range requests {
		if r.CompletedAt == nil {
			return false
		}
	}
	return true
}
