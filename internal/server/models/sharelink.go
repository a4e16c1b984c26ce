package models

import "time"

// ShareLink grants an external, unauthenticated user permission to upload a
// replacement document for a specific request. The token is a 64-char random
// hex string; expired links are never reused.
type ShareLink struct {
	ID        string
	RequestID string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsActive reports whether the link is still usable at the given instant.
func (l *ShareLink) IsActive(now time.Time) bool {
	return l.ExpiresAt.After(now)
}
