package documents

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/documo/documo/internal/common"
	"github.com/documo/documo/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`INSERT INTO documents .*`).
		WithArgs("d1", "r1", "identity", "passport.pdf", "application/pdf", int64(1024),
			"docs/2026/d1", "abc123", []byte("wrapped"), []byte("[]"), now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Document{
		ID:           "d1",
		RequestID:    "r1",
		TypeID:       "identity",
		FileName:     "passport.pdf",
		MimeType:     "application/pdf",
		OriginalSize: 1024,
		URL:          "docs/2026/d1",
		Hash:         "abc123",
		WrappedKey:   []byte("wrapped"),
		UploadedAt:   now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM documents WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestGetByID_ScansTimestampsAndErrors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	cols := []string{"id", "request_id", "type_id", "file_name", "mime_type", "original_size",
		"url", "hash", "wrapped_key", "validation_errors", "uploaded_at", "validated_at",
		"invalidated_at", "error_at", "error_message", "updated_at"}

	mock.ExpectQuery(`SELECT .* FROM documents WHERE id = \$1`).
		WithArgs("d1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"d1", "r1", "identity", "passport.pdf", "application/pdf", int64(1024),
			"docs/2026/d1", "abc123", []byte("wrapped"), []byte(`["Document illisible"]`),
			now, nil, now, nil, nil, now))

	doc, err := repo.GetByID(context.Background(), "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Status() != models.StatusInvalid {
		t.Errorf("want INVALID, got %s", doc.Status())
	}
	if len(doc.ValidationErrors) != 1 || doc.ValidationErrors[0] != "Document illisible" {
		t.Errorf("unexpected validation errors: %v", doc.ValidationErrors)
	}
	if doc.ValidatedAt != nil || doc.InvalidatedAt == nil {
		t.Errorf("timestamps scanned wrong: validatedAt=%v invalidatedAt=%v", doc.ValidatedAt, doc.InvalidatedAt)
	}
}

func TestUpdateValidation_ClearsAndSets(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`UPDATE documents\s+SET validated_at = \$2, invalidated_at = \$3, validation_errors = \$4, updated_at = now\(\)\s+WHERE id = \$1`).
		WithArgs("d1", now, nil, []byte("[]")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateValidation(context.Background(), "d1", &now, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateValidation_MissingRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE documents .*`).
		WithArgs("ghost", nil, nil, []byte(`["r"]`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateValidation(context.Background(), "ghost", nil, nil, []string{"r"})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestMarkError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	q := regexp.MustCompile(`UPDATE documents SET error_at = \$2, error_message = \$3, updated_at = \$2 WHERE id = \$1`)
	mock.ExpectExec(q.String()).
		WithArgs("d1", now, "storage unreachable").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkError(context.Background(), "d1", now, "storage unreachable"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
