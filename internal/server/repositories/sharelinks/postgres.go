package sharelinks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/documo/documo/internal/common"
	"github.com/documo/documo/internal/dbx"
	"github.com/documo/documo/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a share link row.
func (r *PostgresRepository) Create(ctx context.Context, link *models.ShareLink) error {
	query := `
		INSERT INTO share_links (id, request_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, link.ID, link.RequestID, link.Token,
		link.ExpiresAt, link.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindActive returns the newest non-expired link for the request.
func (r *PostgresRepository) FindActive(ctx context.Context, requestID string, now time.Time) (*models.ShareLink, error) {
	query := `
		SELECT id, request_id, token, expires_at, created_at FROM share_links
		WHERE request_id = $1 AND expires_at > $2
		ORDER BY created_at DESC LIMIT 1
	`
	return r.selectOne(ctx, query, requestID, now)
}

// GetByToken resolves a live token.
func (r *PostgresRepository) GetByToken(ctx context.Context, token string, now time.Time) (*models.ShareLink, error) {
	query := `
		SELECT id, request_id, token, expires_at, created_at FROM share_links
		WHERE token = $1 AND expires_at > $2
	`
	return r.selectOne(ctx, query, token, now)
}

func (r *PostgresRepository) selectOne(ctx context.Context, query string, args ...any) (*models.ShareLink, error) {
	var link models.ShareLink
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&link.ID, &link.RequestID, &link.Token, &link.ExpiresAt, &link.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select share link: %w", err)
	}
	return &link, nil
}
