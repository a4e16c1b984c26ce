package folders

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

// Create inserts a folder row.
func (r *PostgresRepository) Create(ctx context.Context, folder *models.Folder) error {
	types, err := json.Marshal(folder.RequestedTypeIDs)
	if err != nil {
		return fmt.Errorf("encode requested types: %w", err)
	}

	query := `INSERT INTO folders (id, name, requested_type_ids) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, folder.ID, folder.Name, types); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns the folder or common.ErrNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Folder, error) {
	query := `SELECT id, name, requested_type_ids, completed_at FROM folders WHERE id = $1`

	var (
		folder    models.Folder
		types     []byte
		completed sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&folder.ID, &folder.Name, &types, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select folder: %w", err)
	}

	if len(types) > 0 {
		if err := json.Unmarshal(types, &folder.RequestedTypeIDs); err != nil {
			return nil, fmt.Errorf("decode requested types: %w", err)
		}
	}
	if completed.Valid {
		folder.CompletedAt = &completed.Time
	}
	return &folder, nil
}

// UpdateCompletion sets or clears completed_at. Exactly one row must be affected.
func (r *PostgresRepository) UpdateCompletion(ctx context.Context, id string, completedAt *time.Time) error {
	var arg any
	if completedAt != nil {
		arg = *completedAt
	}

	query := `UPDATE folders SET completed_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, arg)
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
