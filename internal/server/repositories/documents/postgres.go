package documents

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

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const documentColumns = `id, request_id, type_id, file_name, mime_type, original_size,
		url, hash, wrapped_key, validation_errors, uploaded_at, validated_at,
		invalidated_at, error_at, error_message, updated_at`

// Create inserts a new document row. Validation timestamps start null.
func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) error {
	verrs, err := marshalErrors(doc.ValidationErrors)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (id, request_id, type_id, file_name, mime_type, original_size,
			url, hash, wrapped_key, validation_errors, uploaded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = r.db.ExecContext(ctx, query,
		doc.ID, doc.RequestID, doc.TypeID, doc.FileName, doc.MimeType, doc.OriginalSize,
		doc.URL, doc.Hash, doc.WrappedKey, verrs, doc.UploadedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID returns the document or common.ErrNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	doc, err := scanDocument(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select document: %w", err)
	}
	return doc, nil
}

// ListByRequest returns all documents uploaded against a request, oldest first.
func (r *PostgresRepository) ListByRequest(ctx context.Context, requestID string) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE request_id = $1 ORDER BY uploaded_at`

	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateValidation rewrites the verdict fields. Exactly one row must be affected.
func (r *PostgresRepository) UpdateValidation(ctx context.Context, id string, validatedAt, invalidatedAt *time.Time, validationErrors []string) error {
	verrs, err := marshalErrors(validationErrors)
	if err != nil {
		return err
	}

	query := `
		UPDATE documents
		SET validated_at = $2, invalidated_at = $3, validation_errors = $4, updated_at = now()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, nullableTime(validatedAt), nullableTime(invalidatedAt), verrs)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

// MarkError records an unrecoverable failure timestamp and message.
func (r *PostgresRepository) MarkError(ctx context.Context, id string, at time.Time, message string) error {
	query := `UPDATE documents SET error_at = $2, error_message = $3, updated_at = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, at, message)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc          models.Document
		verrs        []byte
		validatedAt  sql.NullTime
		invalidated  sql.NullTime
		errorAt      sql.NullTime
		errorMessage sql.NullString
	)

	err := row.Scan(&doc.ID, &doc.RequestID, &doc.TypeID, &doc.FileName, &doc.MimeType,
		&doc.OriginalSize, &doc.URL, &doc.Hash, &doc.WrappedKey, &verrs, &doc.UploadedAt,
		&validatedAt, &invalidated, &errorAt, &errorMessage, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(verrs) > 0 {
		if err := json.Unmarshal(verrs, &doc.ValidationErrors); err != nil {
			return nil, fmt.Errorf("decode validation errors: %w", err)
		}
	}
	if validatedAt.Valid {
		doc.ValidatedAt = &validatedAt.Time
	}
	if invalidated.Valid {
		doc.InvalidatedAt = &invalidated.Time
	}
	if errorAt.Valid {
		doc.ErrorAt = &errorAt.Time
	}
	doc.ErrorMessage = errorMessage.String

	return &doc, nil
}

func marshalErrors(errs []string) ([]byte, error) {
	if errs == nil {
		errs = []string{}
	}
	b, err := json.Marshal(errs)
	if err != nil {
		return nil, fmt.Errorf("encode validation errors: %w", err)
	}
	return b, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
