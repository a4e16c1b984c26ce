package models

import "time"

// Outbox e-mail delivery states.
const (
	OutboxPending = "pending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

// OutboxEmail is an invalidation notice queued inside the same transaction
// that committed the state change. A separate dispatcher delivers it, so mail
// provider downtime can never be mistaken for a failed state transition.
type OutboxEmail struct {
	ID        string
	Recipient string
	Reason    string
	UploadURL string
	Status    string
	Attempts  int
	LastError string
	CreatedAt time.Time
	SentAt    *time.Time
}
