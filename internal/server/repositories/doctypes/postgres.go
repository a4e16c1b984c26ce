package doctypes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

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

// Create inserts a document type.
func (r *PostgresRepository) Create(ctx context.Context, dt *models.DocumentType) error {
	mimes, err := json.Marshal(dt.AllowedMimeTypes)
	if err != nil {
		return fmt.Errorf("encode mime types: %w", err)
	}

	query := `INSERT INTO document_types (id, label, allowed_mime_types, max_size) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, dt.ID, dt.Label, mimes, dt.MaxSize); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns the document type or common.ErrNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.DocumentType, error) {
	query := `SELECT id, label, allowed_mime_types, max_size FROM document_types WHERE id = $1`

	dt, err := scanDocumentType(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select document type: %w", err)
	}
	return dt, nil
}

// List returns all document types ordered by label.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.DocumentType, error) {
	query := `SELECT id, label, allowed_mime_types, max_size FROM document_types ORDER BY label`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select document types: %w", err)
	}
	defer rows.Close()

	var result []*models.DocumentType
	for rows.Next() {
		dt, err := scanDocumentType(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, dt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocumentType(row rowScanner) (*models.DocumentType, error) {
	var (
		dt    models.DocumentType
		mimes []byte
	)
	if err := row.Scan(&dt.ID, &dt.Label, &mimes, &dt.MaxSize); err != nil {
		return nil, err
	}
	if len(mimes) > 0 {
		if err := json.Unmarshal(mimes, &dt.AllowedMimeTypes); err != nil {
			return nil, fmt.Errorf("decode mime types: %w", err)
		}
	}
	return &dt, nil
}
