// Package upload drives the end-to-end upload pipeline: encrypt, persist,
// report progress, validate, finalize. Plaintext never leaves the process;
// only the envelope travels to blob storage.
package upload

import (
	"context"
	"fmt"
	"strings"

	"github.com/documo/documo/internal/client/api"
	"github.com/documo/documo/internal/client/validation"
	"github.com/documo/documo/internal/common"
	"github.com/documo/documo/internal/cryptox"
)

// Stage is a client-only transient state reported while an upload runs. It is
// never persisted; the server derives its own statuses from timestamps.
type Stage string

const (
	StageUploading  Stage = "UPLOADING"
	StageValidating Stage = "VALIDATING"
)

// Progress is one observation of a running upload. Percent is an
// observability signal only, not a correctness gate.
type Progress struct {
	Stage   Stage
	Percent int
}

// serverAPI is the slice of the API client the uploader needs.
type serverAPI interface {
	GetDocumentType(ctx context.Context, id string) (*api.DocumentType, error)
	CreateDocument(ctx context.Context, params api.CreateDocumentParams) (*api.Document, string, error)
	PutBlob(ctx context.Context, url string, ciphertext []byte) error
	ReportValidationResult(ctx context.Context, documentID string, isValid bool, errs []string) error
	MarkError(ctx context.Context, documentID, message string) error
}

// Uploader encrypts and submits documents for one collection request. Each
// call gets its own progress callback, so concurrent uploads never share
// mutable state.
type Uploader struct {
	api       serverAPI
	masterKey []byte
}

func NewUploader(client serverAPI, masterKey []byte) *Uploader {
	return &Uploader{api: client, masterKey: masterKey}
}

// Input describes one upload.
type Input struct {
	RequestID string
	TypeID    string
	File      validation.Candidate
	// Key is the data encryption key; when nil a fresh one is generated.
	Key []byte
	// OnProgress, when set, receives stage transitions and transfer progress.
	OnProgress func(Progress)
}

// Upload runs the pipeline and returns the created document. A validation
// failure is recorded server-side and returned as an error wrapping
// common.ErrValidation with every defect in the message. Unexpected failures
// after creation mark the document errored before returning.
func (u *Uploader) Upload(ctx context.Context, in Input) (*api.Document, error) {
	report := in.OnProgress
	if report == nil {
		report = func(Progress) {}
	}

	report(Progress{Stage: StageUploading, Percent: 0})

	key := in.Key
	if key == nil {
		var err error
		key, err = cryptox.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("generating key: %w", err)
		}
		defer common.WipeByteArray(key)
	}

	envelope, err := cryptox.Encrypt(in.File.Content, key)
	if err != nil {
		return nil, fmt.Errorf("encrypting content: %w", err)
	}

	wrappedKey, err := cryptox.WrapKey(key, u.masterKey)
	if err != nil {
		return nil, fmt.Errorf("wrapping key: %w", err)
	}

	doc, putURL, err := u.api.CreateDocument(ctx, api.CreateDocumentParams{
		RequestID:    in.RequestID,
		TypeID:       in.TypeID,
		FileName:     in.File.Name,
		MimeType:     in.File.MimeType,
		OriginalSize: in.File.Size,
		Hash:         cryptox.Hash(in.File.Content),
		WrappedKey:   wrappedKey,
	})
	if err != nil {
		return nil, fmt.Errorf("registering document: %w", err)
	}

	if err := u.api.PutBlob(ctx, putURL, envelope); err != nil {
		u.markError(ctx, doc.ID, err)
		return nil, fmt.Errorf("storing ciphertext: %w", err)
	}
	report(Progress{Stage: StageUploading, Percent: 100})

	report(Progress{Stage: StageValidating, Percent: 0})

	docType, err := u.api.GetDocumentType(ctx, in.TypeID)
	if err != nil {
		u.markError(ctx, doc.ID, err)
		return nil, fmt.Errorf("loading validation rules: %w", err)
	}

	result := validation.Validate(validation.Rules{
		Label:            docType.Label,
		AllowedMimeTypes: docType.AllowedMimeTypes,
		MaxSize:          docType.MaxSize,
	}, doc.Hash, in.File)

	if !result.IsValid {
		if err := u.api.ReportValidationResult(ctx, doc.ID, false, result.Errors); err != nil {
			return nil, fmt.Errorf("recording validation failure: %w", err)
		}
		return nil, fmt.Errorf("%s: %w", strings.Join(result.Errors, "; "), common.ErrValidation)
	}

	if err := u.api.ReportValidationResult(ctx, doc.ID, true, nil); err != nil {
		u.markError(ctx, doc.ID, err)
		return nil, fmt.Errorf("finalizing document: %w", err)
	}
	report(Progress{Stage: StageValidating, Percent: 100})

	return doc, nil
}

// markError is best effort: the original failure is what the caller needs.
func (u *Uploader) markError(ctx context.Context, documentID string, cause error) {
	_ = u.api.MarkError(ctx, documentID, cause.Error())
}
