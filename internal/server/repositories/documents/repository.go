// Package documents persists document metadata rows. The encrypted content
// itself lives in object storage; only the pointer, the plaintext hash and
// the wrapped key are stored here.
package documents

import (
	"context"
	"time"

	"github.com/documo/documo/internal/server/models"
)

// Repository is the persistence contract for documents.
type Repository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	ListByRequest(ctx context.Context, requestID string) ([]*models.Document, error)
	// UpdateValidation rewrites the validation verdict fields in one shot.
	// Passing nil clears a timestamp; validationErrors always overwrites.
	UpdateValidation(ctx context.Context, id string, validatedAt, invalidatedAt *time.Time, validationErrors []string) error
	// MarkError records an unrecoverable processing failure.
	MarkError(ctx context.Context, id string, at time.Time, message string) error
}
