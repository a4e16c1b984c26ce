package outbox

import (
	"context"
	"database/sql"
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

// Enqueue inserts a pending message.
func (r *PostgresRepository) Enqueue(ctx context.Context, email *models.OutboxEmail) error {
	query := `
		INSERT INTO outbox_emails (id, recipient, reason, upload_url, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.ExecContext(ctx, query, email.ID, email.Recipient, email.Reason,
		email.UploadURL, models.OutboxPending, 0, email.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// SelectPending returns undelivered messages, oldest first. FOR UPDATE SKIP
// LOCKED keeps concurrent dispatchers from double-sending.
func (r *PostgresRepository) SelectPending(ctx context.Context, limit int) ([]*models.OutboxEmail, error) {
	query := `
		SELECT id, recipient, reason, upload_url, status, attempts, last_error, created_at
		FROM outbox_emails
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select outbox emails: %w", err)
	}
	defer rows.Close()

	var result []*models.OutboxEmail
	for rows.Next() {
		var (
			item    models.OutboxEmail
			lastErr sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.Recipient, &item.Reason, &item.UploadURL,
			&item.Status, &item.Attempts, &lastErr, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.LastError = lastErr.String
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkSent flags a message as delivered.
func (r *PostgresRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE outbox_emails SET status = 'sent', sent_at = $2 WHERE id = $1`
	return r.exec(ctx, query, id, at)
}

// MarkFailed records a delivery failure; the row stays pending for retry
// until attempts reach the dispatcher's cap.
func (r *PostgresRepository) MarkFailed(ctx context.Context, id string, attempts int, lastError string) error {
	query := `UPDATE outbox_emails SET attempts = $2, last_error = $3 WHERE id = $1`
	return r.exec(ctx, query, id, attempts, lastError)
}

// Abandon gives up on a message for good.
func (r *PostgresRepository) Abandon(ctx context.Context, id string, lastError string) error {
	query := `UPDATE outbox_emails SET status = 'failed', last_error = $2 WHERE id = $1`
	return r.exec(ctx, query, id, lastError)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
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
