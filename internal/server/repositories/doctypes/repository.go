// Package doctypes persists the document-type lookup table: for each
// collectable kind of document, its label, accepted MIME types and size cap.
package doctypes

import (
	"context"

	"github.com/documo/documo/internal/server/models"
)

// Repository is the persistence contract for document types.
type Repository interface {
	Create(ctx context.Context, dt *models.DocumentType) error
	GetByID(ctx context.Context, id string) (*models.DocumentType, error)
	List(ctx context.Context) ([]*models.DocumentType, error)
}
