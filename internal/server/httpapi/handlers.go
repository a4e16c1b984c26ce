// Package httpapi exposes the document-collection API over HTTP. Operator
// endpoints sit behind bearer-token auth; uploader endpoints are reached
// through share links and stay public.
package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/documo/documo/internal/common"
	"github.com/documo/documo/internal/logging"
	"github.com/documo/documo/internal/server/auth"
	"github.com/documo/documo/internal/server/models"
	"github.com/documo/documo/internal/server/services"
	"github.com/gin-gonic/gin"
)

// DocumentAPI is the slice of the document service the handlers need.
type DocumentAPI interface {
	CreateDocument(ctx context.Context, in services.CreateDocumentInput) (*models.Document, string, error)
	Validate(ctx context.Context, documentID string) error
	Invalidate(ctx context.Context, documentID, reason string) error
	RecordValidationFailure(ctx context.Context, documentID string, validationErrors []string) error
	MarkError(ctx context.Context, documentID, message string) error
	DownloadURL(ctx context.Context, documentID string) (string, error)
}

// RequestAPI is the slice of the request service the handlers need.
type RequestAPI interface {
	GetRequest(ctx context.Context, id string) (*services.RequestView, error)
	ResolveShareToken(ctx context.Context, token string) (*services.RequestView, error)
	CreateRequest(ctx context.Context, folderID, email string, requestedTypeIDs []string, expiresAt *time.Time) (*models.Request, error)
	ListDocumentTypes(ctx context.Context) ([]*models.DocumentType, error)
	GetDocumentType(ctx context.Context, id string) (*models.DocumentType, error)
}

type Handler struct {
	documents DocumentAPI
	requests  RequestAPI
	logger    logging.Logger

	secretKey     []byte
	tokenValidity time.Duration
}

func NewHandler(documents DocumentAPI, requests RequestAPI, logger logging.Logger, secretKey []byte, tokenValidity time.Duration) *Handler {
	return &Handler{
		documents:     documents,
		requests:      requests,
		logger:        logger,
		secretKey:     secretKey,
		tokenValidity: tokenValidity,
	}
}

type issueTokenRequest struct {
	OperatorID string `json:"operatorId" binding:"required"`
	Secret     string `json:"secret" binding:"required"`
}

// IssueToken handles POST /auth/token: it exchanges the shared deployment
// secret for a short-lived operator bearer token.
func (h *Handler) IssueToken(c *gin.Context) {
	var body issueTokenRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if subtle.ConstantTimeCompare([]byte(body.Secret), h.secretKey) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	token, err := auth.GenerateToken(body.OperatorID, h.secretKey, h.tokenValidity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// ---- wire types ------------------------------------------------------------

type documentResponse struct {
	ID               string     `json:"id"`
	RequestID        string     `json:"requestId"`
	TypeID           string     `json:"typeId"`
	FileName         string     `json:"fileName"`
	MimeType         string     `json:"mimeType"`
	OriginalSize     int64      `json:"originalSize"`
	Hash             string     `json:"hash"`
	WrappedKey       []byte     `json:"wrappedKey,omitempty"`
	Status           string     `json:"status"`
	ValidationErrors []string   `json:"validationErrors,omitempty"`
	UploadedAt       time.Time  `json:"uploadedAt"`
	ValidatedAt      *time.Time `json:"validatedAt,omitempty"`
	InvalidatedAt    *time.Time `json:"invalidatedAt,omitempty"`
	ErrorMessage     string     `json:"errorMessage,omitempty"`
}

func toDocumentResponse(doc *models.Document) documentResponse {
	return documentResponse{
		ID:               doc.ID,
		RequestID:        doc.RequestID,
		TypeID:           doc.TypeID,
		FileName:         doc.FileName,
		MimeType:         doc.MimeType,
		OriginalSize:     doc.OriginalSize,
		Hash:             doc.Hash,
		WrappedKey:       doc.WrappedKey,
		Status:           string(doc.Status()),
		ValidationErrors: doc.ValidationErrors,
		UploadedAt:       doc.UploadedAt,
		ValidatedAt:      doc.ValidatedAt,
		InvalidatedAt:    doc.InvalidatedAt,
		ErrorMessage:     doc.ErrorMessage,
	}
}

type requestResponse struct {
	ID               string             `json:"id"`
	FolderID         string             `json:"folderId"`
	Email            string             `json:"email"`
	RequestedTypeIDs []string           `json:"requestedTypeIds"`
	CompletedAt      *time.Time         `json:"completedAt,omitempty"`
	ExpiresAt        *time.Time         `json:"expiresAt,omitempty"`
	Documents        []documentResponse `json:"documents"`
}

func toRequestResponse(view *services.RequestView) requestResponse {
	docs := make([]documentResponse, 0, len(view.Documents))
	for _, d := range view.Documents {
		docs = append(docs, toDocumentResponse(d))
	}
	return requestResponse{
		ID:               view.Request.ID,
		FolderID:         view.Request.FolderID,
		Email:            view.Request.Email,
		RequestedTypeIDs: view.Request.RequestedTypeIDs,
		CompletedAt:      view.Request.CompletedAt,
		ExpiresAt:        view.Request.ExpiresAt,
		Documents:        docs,
	}
}

type documentTypeResponse struct {
	ID               string   `json:"id"`
	Label            string   `json:"label"`
	AllowedMimeTypes []string `json:"allowedMimeTypes"`
	MaxSize          int64    `json:"maxSize"`
}

func toDocumentTypeResponse(dt *models.DocumentType) documentTypeResponse {
	return documentTypeResponse{
		ID:               dt.ID,
		Label:            dt.Label,
		AllowedMimeTypes: dt.AllowedMimeTypes,
		MaxSize:          dt.MaxSize,
	}
}

// writeError maps service errors onto HTTP statuses.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, common.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, common.ErrConfiguration):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// ---- uploader endpoints ----------------------------------------------------

// ResolveShare handles GET /share/:token.
func (h *Handler) ResolveShare(c *gin.Context) {
	view, err := h.requests.ResolveShareToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequestResponse(view))
}

type createDocumentRequest struct {
	RequestID    string `json:"requestId" binding:"required"`
	TypeID       string `json:"typeId" binding:"required"`
	FileName     string `json:"fileName"`
	MimeType     string `json:"mimeType"`
	OriginalSize int64  `json:"originalSize"`
	Hash         string `json:"hash"`
	WrappedKey   []byte `json:"wrappedKey"`
}

// CreateDocument handles POST /documents. The response carries a presigned
// PUT URL; the ciphertext goes straight to blob storage, not through here.
func (h *Handler) CreateDocument(c *gin.Context) {
	var body createDocumentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, putURL, err := h.documents.CreateDocument(c.Request.Context(), services.CreateDocumentInput{
		RequestID:    body.RequestID,
		TypeID:       body.TypeID,
		FileName:     body.FileName,
		MimeType:     body.MimeType,
		OriginalSize: body.OriginalSize,
		Hash:         body.Hash,
		WrappedKey:   body.WrappedKey,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"document":  toDocumentResponse(doc),
		"uploadUrl": putURL,
	})
}

type validationResultRequest struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// ReportValidationResult handles POST /documents/:id/validation-result: the
// upload pipeline's automatic verdict. A passing verdict runs the same
// cascade as an operator validation.
func (h *Handler) ReportValidationResult(c *gin.Context) {
	var body validationResultRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	if body.IsValid {
		err = h.documents.Validate(c.Request.Context(), c.Param("id"))
	} else {
		err = h.documents.RecordValidationFailure(c.Request.Context(), c.Param("id"), body.Errors)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type markErrorRequest struct {
	Message string `json:"message" binding:"required"`
}

// MarkError handles POST /documents/:id/error.
func (h *Handler) MarkError(c *gin.Context) {
	var body markErrorRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.documents.MarkError(c.Request.Context(), c.Param("id"), body.Message); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListDocumentTypes handles GET /document-types.
func (h *Handler) ListDocumentTypes(c *gin.Context) {
	types, err := h.requests.ListDocumentTypes(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]documentTypeResponse, 0, len(types))
	for _, dt := range types {
		out = append(out, toDocumentTypeResponse(dt))
	}
	c.JSON(http.StatusOK, out)
}

// GetDocumentType handles GET /document-types/:id.
func (h *Handler) GetDocumentType(c *gin.Context) {
	dt, err := h.requests.GetDocumentType(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDocumentTypeResponse(dt))
}

// ---- operator endpoints ----------------------------------------------------

type createRequestRequest struct {
	FolderID         string     `json:"folderId"`
	Email            string     `json:"email" binding:"required,email"`
	RequestedTypeIDs []string   `json:"requestedTypeIds" binding:"required,min=1"`
	ExpiresAt        *time.Time `json:"expiresAt"`
}

// CreateRequest handles POST /requests.
func (h *Handler) CreateRequest(c *gin.Context) {
	var body createRequestRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := h.requests.CreateRequest(c.Request.Context(), body.FolderID, body.Email, body.RequestedTypeIDs, body.ExpiresAt)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toRequestResponse(&services.RequestView{Request: req}))
}

// GetRequest handles GET /requests/:id.
func (h *Handler) GetRequest(c *gin.Context) {
	view, err := h.requests.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toRequestResponse(view))
}

// ValidateDocument handles POST /documents/:id/validate.
func (h *Handler) ValidateDocument(c *gin.Context) {
	if err := h.documents.Validate(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type invalidateRequest struct {
	Reason string `json:"reason"`
}

// InvalidateDocument handles POST /documents/:id/invalidate. A missing or
// blank reason is a 400.
func (h *Handler) InvalidateDocument(c *gin.Context) {
	var body invalidateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.documents.Invalidate(c.Request.Context(), c.Param("id"), body.Reason); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadDocument handles GET /documents/:id/download and returns a
// presigned GET URL for the ciphertext.
func (h *Handler) DownloadDocument(c *gin.Context) {
	url, err := h.documents.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
