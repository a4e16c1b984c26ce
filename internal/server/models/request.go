package models

import "time"

// Request is one collection request sent to an end user: a set of required
// document types plus the documents uploaded against them.
type Request struct {
	ID string
	// FolderID is the owning folder, empty for standalone requests.
	FolderID string
	// Email is the recipient the request (and any invalidation notice) goes to.
	Email     string
	ExpiresAt *time.Time
	// RequestedTypeIDs is the set of document types the user must provide.
	RequestedTypeIDs []string

	AcceptedAt *time.Time
	RejectedAt *time.Time
	// CompletedAt is set only while every requested type has at least one
	// VALID document; any invalidation clears it.
	CompletedAt *time.Time
}

// IsComplete reports whether every requested document type has at least one
// document whose derived status is VALID among docs.
func (r *Request) IsComplete(docs []*Document) bool {
	for _, typeID := range r.RequestedTypeIDs {
		found := false
		for _, d := range docs {
			if d.TypeID == typeID && d.Status() == StatusValid {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
