package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/documo/documo/internal/server/models"
	"github.com/documo/documo/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// RequestService serves the read side of requests and folders and creates
// new ones from folder-type templates.
type RequestService struct {
	db    *sql.DB
	repos repomanager.RepositoryManager

	now   func() time.Time
	newID func() string
}

func NewRequestService(db *sql.DB, repos repomanager.RepositoryManager) *RequestService {
	return &RequestService{db: db, repos: repos, now: time.Now, newID: uuid.NewString}
}

// RequestView is a request with its documents; document statuses are derived
// on the way out.
type RequestView struct {
	Request   *models.Request
	Documents []*models.Document
}

// GetRequest loads a request and its documents.
func (s *RequestService) GetRequest(ctx context.Context, id string) (*RequestView, error) {
	req, err := s.repos.Requests(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading request: %w", err)
	}

	docs, err := s.repos.Documents(s.db).ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	return &RequestView{Request: req, Documents: docs}, nil
}

// ResolveShareToken maps a live share token to the request it grants upload
// access for. Expired or unknown tokens yield common.ErrNotFound.
func (s *RequestService) ResolveShareToken(ctx context.Context, token string) (*RequestView, error) {
	link, err := s.repos.ShareLinks(s.db).GetByToken(ctx, token, s.now())
	if err != nil {
		return nil, fmt.Errorf("resolving share token: %w", err)
	}
	return s.GetRequest(ctx, link.RequestID)
}

// CreateRequest registers a new collection request.
func (s *RequestService) CreateRequest(ctx context.Context, folderID, email string, requestedTypeIDs []string, expiresAt *time.Time) (*models.Request, error) {
	req := &models.Request{
		ID:               s.newID(),
		FolderID:         folderID,
		Email:            email,
		ExpiresAt:        expiresAt,
		RequestedTypeIDs: requestedTypeIDs,
	}
	if err := s.repos.Requests(s.db).Create(ctx, req); err != nil {
		return nil, fmt.Errorf("saving request: %w", err)
	}
	return req, nil
}

// ListDocumentTypes returns the document-type lookup table.
func (s *RequestService) ListDocumentTypes(ctx context.Context) ([]*models.DocumentType, error) {
	return s.repos.DocumentTypes(s.db).List(ctx)
}

// GetDocumentType returns one document type.
func (s *RequestService) GetDocumentType(ctx context.Context, id string) (*models.DocumentType, error) {
	return s.repos.DocumentTypes(s.db).GetByID(ctx, id)
}
