// Package models defines server-side data models persisted in the database.
package models

import "time"

// DocumentStatus is the derived lifecycle stage of a document. It is never
// stored: Status() computes it from the timestamp fields, so the enum and
// the timestamps cannot drift apart.
type DocumentStatus string

const (
	// StatusPending: no file uploaded yet for this required type.
	StatusPending DocumentStatus = "PENDING"
	// StatusUploading / StatusValidating are client-side transient stages;
	// a persisted document never derives them.
	StatusUploading  DocumentStatus = "UPLOADING"
	StatusValidating DocumentStatus = "VALIDATING"
	// StatusUploaded: file stored, validation not yet recorded.
	StatusUploaded DocumentStatus = "UPLOADED"
	StatusValid    DocumentStatus = "VALID"
	StatusInvalid  DocumentStatus = "INVALID"
	StatusError    DocumentStatus = "ERROR"
)

// Document describes one uploaded file inside a request. The content itself
// lives encrypted in object storage; the row only carries metadata, the
// plaintext hash recorded before encryption, and the wrapped per-document key.
type Document struct {
	// ID is the document's opaque identifier.
	ID string
	// RequestID links the document to its owning request.
	RequestID string
	// TypeID references the document type the file was uploaded for.
	TypeID string

	FileName     string
	MimeType     string
	OriginalSize int64
	// URL locates the encrypted blob in object storage.
	URL string
	// Hash is the lowercase-hex SHA-256 of the plaintext, computed client-side
	// before encryption.
	Hash string
	// WrappedKey is the document encryption key, wrapped under the
	// organization master key. Raw key material is never persisted.
	WrappedKey []byte

	// ValidationErrors is the ordered list of rule violations recorded for
	// the document, or the single invalidation reason.
	ValidationErrors []string

	// Lifecycle timestamps. At most one of ValidatedAt/InvalidatedAt is
	// non-nil at any time.
	UploadedAt    time.Time
	ValidatedAt   *time.Time
	InvalidatedAt *time.Time
	ErrorAt       *time.Time
	ErrorMessage  string

	UpdatedAt time.Time
}

// Status derives the document's lifecycle stage. Precedence: an error beats
// an invalidation, which beats a validation; a stored file with no verdict is
// UPLOADED; otherwise the slot is still PENDING.
func (d *Document) Status() DocumentStatus {
	switch {
	case d.ErrorAt != nil:
		return StatusError
	case d.InvalidatedAt != nil:
		return StatusInvalid
	case d.ValidatedAt != nil:
		return StatusValid
	case d.URL != "":
		return StatusUploaded
	default:
		return StatusPending
	}
}
