// Package services implements the server-side business logic: the document
// lifecycle cascades, ciphertext blob presigning, and the e-mail outbox
// dispatcher.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/documo/documo/internal/common"
	"github.com/documo/documo/internal/dbx"
	"github.com/documo/documo/internal/logging"
	sc "github.com/documo/documo/internal/server/config"
	"github.com/documo/documo/internal/server/models"
	"github.com/documo/documo/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// BlobStore presigns object-storage access for ciphertext blobs.
type BlobStore interface {
	PresignedPutURL(ctx context.Context) (key string, url string, err error)
	PresignedGetURL(ctx context.Context, key string) (string, error)
}

// DocumentService owns every mutation of document, request and folder
// lifecycle state after creation. Each validate/invalidate call is one
// transaction scoped to a single document-request-folder triple, so cascades
// on unrelated triples interleave freely.
type DocumentService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	blobs  BlobStore
	config *sc.Config
	logger logging.Logger

	// seams for deterministic tests
	now   func() time.Time
	newID func() string
}

func NewDocumentService(db *sql.DB, repos repomanager.RepositoryManager, blobs BlobStore, config *sc.Config, logger logging.Logger) *DocumentService {
	return &DocumentService{
		db:     db,
		repos:  repos,
		blobs:  blobs,
		config: config,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// CreateDocumentInput carries the metadata the client computed before
// encryption: names and sizes of the plaintext, its hash, and the wrapped key.
type CreateDocumentInput struct {
	RequestID    string
	TypeID       string
	FileName     string
	MimeType     string
	OriginalSize int64
	Hash         string
	WrappedKey   []byte
}

// CreateDocument allocates a document row pointing at a fresh blob key and
// returns the row along with a presigned PUT URL for the ciphertext. The
// plaintext never reaches the server.
func (s *DocumentService) CreateDocument(ctx context.Context, in CreateDocumentInput) (*models.Document, string, error) {
	if in.RequestID == "" || in.TypeID == "" {
		return nil, "", fmt.Errorf("request and type are required: %w", common.ErrValidation)
	}

	if _, err := s.repos.Requests(s.db).GetByID(ctx, in.RequestID); err != nil {
		return nil, "", fmt.Errorf("loading request: %w", err)
	}
	if _, err := s.repos.DocumentTypes(s.db).GetByID(ctx, in.TypeID); err != nil {
		return nil, "", fmt.Errorf("loading document type: %w", err)
	}

	key, putURL, err := s.blobs.PresignedPutURL(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("presigning upload: %w", err)
	}

	now := s.now()
	doc := &models.Document{
		ID:           s.newID(),
		RequestID:    in.RequestID,
		TypeID:       in.TypeID,
		FileName:     in.FileName,
		MimeType:     in.MimeType,
		OriginalSize: in.OriginalSize,
		URL:          key,
		Hash:         in.Hash,
		WrappedKey:   in.WrappedKey,
		UploadedAt:   now,
		UpdatedAt:    now,
	}

	if err := s.repos.Documents(s.db).Create(ctx, doc); err != nil {
		return nil, "", fmt.Errorf("saving document: %w", err)
	}

	return doc, putURL, nil
}

// Validate accepts a document: sets validatedAt, clears any invalidation, and
// closes the owning request and folder when every requested type now has a
// valid document. Silent on the e-mail side. Idempotent.
func (s *DocumentService) Validate(ctx context.Context, documentID string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		docs := s.repos.Documents(tx)

		doc, err := docs.GetByID(ctx, documentID)
		if err != nil {
			return fmt.Errorf("loading document: %w", err)
		}

		now := s.now()
		if err := docs.UpdateValidation(ctx, doc.ID, &now, nil, nil); err != nil {
			return fmt.Errorf("updating document: %w", err)
		}

		return s.closeCompletion(ctx, tx, doc.RequestID, now)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "document validated", "document_id", documentID)
	return nil
}

// Invalidate rejects a document with a mandatory reason. The owning request
// and folder are reopened unconditionally, a share link is reused or minted,
// and an invalidation notice is enqueued for the recipient. Retrying with the
// same reason reaches the same end state and never mints a second live link.
func (s *DocumentService) Invalidate(ctx context.Context, documentID, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("invalidation reason is required: %w", common.ErrValidation)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		docs := s.repos.Documents(tx)
		reqs := s.repos.Requests(tx)
		links := s.repos.ShareLinks(tx)

		doc, err := docs.GetByID(ctx, documentID)
		if err != nil {
			return fmt.Errorf("loading document: %w", err)
		}

		now := s.now()

		// A retry with the identical reason is a no-op on the document and
		// sends no second notice; the link check below still runs so a
		// partially applied earlier call converges.
		alreadyApplied := doc.InvalidatedAt != nil &&
			len(doc.ValidationErrors) == 1 && doc.ValidationErrors[0] == reason

		if !alreadyApplied {
			if err := docs.UpdateValidation(ctx, doc.ID, nil, &now, []string{reason}); err != nil {
				return fmt.Errorf("updating document: %w", err)
			}
		}

		req, err := reqs.GetByID(ctx, doc.RequestID)
		if err != nil {
			return fmt.Errorf("loading request: %w", err)
		}

		// A single invalidation reopens the whole request and its folder.
		if err := reqs.UpdateCompletion(ctx, req.ID, nil); err != nil {
			return fmt.Errorf("reopening request: %w", err)
		}
		if req.FolderID != "" {
			if err := s.repos.Folders(tx).UpdateCompletion(ctx, req.FolderID, nil); err != nil {
				return fmt.Errorf("reopening folder: %w", err)
			}
		}

		link, err := links.FindActive(ctx, req.ID, now)
		if errors.Is(err, common.ErrNotFound) {
			link, err = s.mintShareLink(ctx, tx, req.ID, now)
		}
		if err != nil {
			return fmt.Errorf("resolving share link: %w", err)
		}

		if !alreadyApplied {
			notice := &models.OutboxEmail{
				ID:        s.newID(),
				Recipient: req.Email,
				Reason:    reason,
				UploadURL: s.uploadURL(link.Token),
				CreatedAt: now,
			}
			if err := s.repos.Outbox(tx).Enqueue(ctx, notice); err != nil {
				return fmt.Errorf("enqueueing notice: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "document invalidated", "document_id", documentID, "reason", reason)
	return nil
}

// RecordValidationFailure stores the client-side validator's verdict for a
// freshly uploaded document. Unlike Invalidate it never notifies anyone: the
// uploader is still there, looking at the error list.
func (s *DocumentService) RecordValidationFailure(ctx context.Context, documentID string, validationErrors []string) error {
	if len(validationErrors) == 0 {
		return fmt.Errorf("at least one validation error is required: %w", common.ErrValidation)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		docs := s.repos.Documents(tx)

		doc, err := docs.GetByID(ctx, documentID)
		if err != nil {
			return fmt.Errorf("loading document: %w", err)
		}

		now := s.now()
		if err := docs.UpdateValidation(ctx, doc.ID, nil, &now, validationErrors); err != nil {
			return fmt.Errorf("updating document: %w", err)
		}

		req, err := s.repos.Requests(tx).GetByID(ctx, doc.RequestID)
		if err != nil {
			return fmt.Errorf("loading request: %w", err)
		}
		if err := s.repos.Requests(tx).UpdateCompletion(ctx, req.ID, nil); err != nil {
			return fmt.Errorf("reopening request: %w", err)
		}
		if req.FolderID != "" {
			if err := s.repos.Folders(tx).UpdateCompletion(ctx, req.FolderID, nil); err != nil {
				return fmt.Errorf("reopening folder: %w", err)
			}
		}
		return nil
	})
}

// MarkError records an unrecoverable processing failure on a document.
func (s *DocumentService) MarkError(ctx context.Context, documentID, message string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repos.Documents(tx).MarkError(ctx, documentID, s.now(), message)
	})
}

// DownloadURL returns a presigned GET URL for a document's ciphertext blob.
func (s *DocumentService) DownloadURL(ctx context.Context, documentID string) (string, error) {
	doc, err := s.repos.Documents(s.db).GetByID(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("loading document: %w", err)
	}
	if doc.URL == "" {
		return "", fmt.Errorf("document has no stored content: %w", common.ErrConfiguration)
	}
	return s.blobs.PresignedGetURL(ctx, doc.URL)
}

// closeCompletion re-derives request and folder completion after a document
// became valid. Completion timestamps are only ever set here; clearing
// happens in the invalidation paths.
func (s *DocumentService) closeCompletion(ctx context.Context, tx dbx.DBTX, requestID string, now time.Time) error {
	reqs := s.repos.Requests(tx)

	req, err := reqs.GetByID(ctx, requestID)
	if err != nil {
		return fmt.Errorf("loading request: %w", err)
	}

	all, err := s.repos.Documents(tx).ListByRequest(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if req.IsComplete(all) && req.CompletedAt == nil {
		if err := reqs.UpdateCompletion(ctx, req.ID, &now); err != nil {
			return fmt.Errorf("completing request: %w", err)
		}
	}

	if req.FolderID == "" {
		return nil
	}

	folder, err := s.repos.Folders(tx).GetByID(ctx, req.FolderID)
	if err != nil {
		return fmt.Errorf("loading folder: %w", err)
	}

	siblings, err := reqs.ListByFolder(ctx, folder.ID)
	if err != nil {
		return fmt.Errorf("listing folder requests: %w", err)
	}

	if folder.IsComplete(siblings) && folder.CompletedAt == nil {
		if err := s.repos.Folders(tx).UpdateCompletion(ctx, folder.ID, &now); err != nil {
			return fmt.Errorf("completing folder: %w", err)
		}
	}

	return nil
}

func (s *DocumentService) mintShareLink(ctx context.Context, tx dbx.DBTX, requestID string, now time.Time) (*models.ShareLink, error) {
	token, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, err
	}

	link := &models.ShareLink{
		ID:        s.newID(),
		RequestID: requestID,
		Token:     token,
		ExpiresAt: now.Add(s.config.ShareLinkValidityDuration),
		CreatedAt: now,
	}
	if err := s.repos.ShareLinks(tx).Create(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *DocumentService) uploadURL(token string) string {
	return fmt.Sprintf("%s/upload/%s", strings.TrimRight(s.config.PublicBaseURL, "/"), token)
}
