// Package outbox persists queued e-mail notifications. Rows are enqueued in
// the same transaction as the state change they announce and delivered later
// by the dispatcher.
package outbox

import (
	"context"
	"time"

	"github.com/documo/documo/internal/server/models"
)

// Repository is the persistence contract for the e-mail outbox.
type Repository interface {
	Enqueue(ctx context.Context, email *models.OutboxEmail) error
	// SelectPending returns up to limit undelivered messages, oldest first.
	SelectPending(ctx context.Context, limit int) ([]*models.OutboxEmail, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, attempts int, lastError string) error
	// Abandon moves a message to the failed state; it will not be retried.
	Abandon(ctx context.Context, id string, lastError string) error
}
