// Package sharelinks persists tokenized upload links for requests.
package sharelinks

import (
	"context"
	"time"

	"github.com/documo/documo/internal/server/models"
)

// Repository is the persistence contract for share links.
type Repository interface {
	Create(ctx context.Context, link *models.ShareLink) error
	// FindActive returns the newest link for the request whose expiry is
	// after now, or common.ErrNotFound. Expired links are never returned.
	FindActive(ctx context.Context, requestID string, now time.Time) (*models.ShareLink, error)
	// GetByToken resolves a live token, or common.ErrNotFound.
	GetByToken(ctx context.Context, token string, now time.Time) (*models.ShareLink, error)
}
