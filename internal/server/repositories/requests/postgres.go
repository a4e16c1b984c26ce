package requests

import (
	"context"
	"database/sql"
	"encoding/json"
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

const requestColumns = `id, folder_id, email, expires_at, requested_type_ids,
		accepted_at, rejected_at, completed_at`

// Create inserts a request row.
func (r *PostgresRepository) Create(ctx context.Context, req *models.Request) error {
	types, err := json.Marshal(req.RequestedTypeIDs)
	if err != nil {
		return fmt.Errorf("encode requested types: %w", err)
	}

	query := `
		INSERT INTO requests (id, folder_id, email, expires_at, requested_type_ids)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, req.ID, nullableString(req.FolderID), req.Email,
		nullableTime(req.ExpiresAt), types); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns the request or common.ErrNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`

	req, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select request: %w", err)
	}
	return req, nil
}

// ListByFolder returns all requests belonging to a folder.
func (r *PostgresRepository) ListByFolder(ctx context.Context, folderID string) ([]*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE folder_id = $1`

	rows, err := r.db.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to select requests: %w", err)
	}
	defer rows.Close()

	var result []*models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateCompletion sets or clears completed_at. Exactly one row must be affected.
func (r *PostgresRepository) UpdateCompletion(ctx context.Context, id string, completedAt *time.Time) error {
	query := `UPDATE requests SET completed_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, nullableTime(completedAt))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.Request, error) {
	var (
		req       models.Request
		folderID  sql.NullString
		expires   sql.NullTime
		accepted  sql.NullTime
		rejected  sql.NullTime
		completed sql.NullTime
		types     []byte
	)

	err := row.Scan(&req.ID, &folderID, &req.Email, &expires, &types,
		&accepted, &rejected, &completed)
	if err != nil {
		return nil, err
	}

	req.FolderID = folderID.String
	if len(types) > 0 {
		if err := json.Unmarshal(types, &req.RequestedTypeIDs); err != nil {
			return nil, fmt.Errorf("decode requested types: %w", err)
		}
	}
	if expires.Valid {
		req.ExpiresAt = &expires.Time
	}
	if accepted.Valid {
		req.AcceptedAt = &accepted.Time
	}
	if rejected.Valid {
		req.RejectedAt = &rejected.Time
	}
	if completed.Valid {
		req.CompletedAt = &completed.Time
	}
	return &req, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
