// Package requests persists collection requests and their completion state.
package requests

import (
	"context"
	"time"

	"github.com/documo/documo/internal/server/models"
)

// Repository is the persistence contract for requests.
type Repository interface {
	Create(ctx context.Context, req *models.Request) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	ListByFolder(ctx context.Context, folderID string) ([]*models.Request, error)
	// UpdateCompletion sets or clears completed_at. nil clears.
	UpdateCompletion(ctx context.Context, id string, completedAt *time.Time) error
}
