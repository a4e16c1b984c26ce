// Package folders persists document folders and their completion state.
package folders

import (
	"context"
	"time"

	"github.com/documo/documo/internal/server/models"
)

// Repository is the persistence contract for folders.
type Repository interface {
	Create(ctx context.Context, folder *models.Folder) error
	GetByID(ctx context.Context, id string) (*models.Folder, error)
	// UpdateCompletion sets or clears completed_at. nil clears.
	UpdateCompletion(ctx context.Context, id string, completedAt *time.Time) error
}
