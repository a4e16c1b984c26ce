// Package api is the HTTP client for the Documo server. It mirrors the wire
// types of the API and maps HTTP failures onto the shared sentinel errors so
// callers can branch with errors.Is.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/documo/documo/internal/common"
)

// Document is the wire representation of a stored document.
type Document struct {
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

// RequestView is a collection request with its documents.
type RequestView struct {
	ID               string     `json:"id"`
	FolderID         string     `json:"folderId"`
	Email            string     `json:"email"`
	RequestedTypeIDs []string   `json:"requestedTypeIds"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
	Documents        []Document `json:"documents"`
}

// DocumentType carries the validation rules for one kind of document.
type DocumentType struct {
	ID               string   `json:"id"`
	Label            string   `json:"label"`
	AllowedMimeTypes []string `json:"allowedMimeTypes"`
	MaxSize          int64    `json:"maxSize"`
}

// CreateDocumentParams is the metadata sent when registering an upload.
type CreateDocumentParams struct {
	RequestID    string `json:"requestId"`
	TypeID       string `json:"typeId"`
	FileName     string `json:"fileName"`
	MimeType     string `json:"mimeType"`
	OriginalSize int64  `json:"originalSize"`
	Hash         string `json:"hash"`
	WrappedKey   []byte `json:"wrappedKey"`
}

// Client talks to the Documo HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken stores an operator bearer token for subsequent calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

// IssueToken exchanges the deployment secret for an operator token and
// installs it on the client.
func (c *Client) IssueToken(ctx context.Context, operatorID, secret string) error {
	var resp struct {
		Token string `json:"token"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/auth/token",
		map[string]string{"operatorId": operatorID, "secret": secret}, &resp)
	if err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

// ResolveShare resolves a share token into the request it grants access to.
func (c *Client) ResolveShare(ctx context.Context, token string) (*RequestView, error) {
	view := &RequestView{}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/share/"+token, nil, view); err != nil {
		return nil, err
	}
	return view, nil
}

// GetDocumentType fetches the validation rules for one document type.
func (c *Client) GetDocumentType(ctx context.Context, id string) (*DocumentType, error) {
	dt := &DocumentType{}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/document-types/"+id, nil, dt); err != nil {
		return nil, err
	}
	return dt, nil
}

// CreateDocument registers an upload and returns the created document along
// with a presigned PUT URL for the ciphertext.
func (c *Client) CreateDocument(ctx context.Context, params CreateDocumentParams) (*Document, string, error) {
	var resp struct {
		Document  Document `json:"document"`
		UploadURL string   `json:"uploadUrl"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/documents", params, &resp); err != nil {
		return nil, "", err
	}
	return &resp.Document, resp.UploadURL, nil
}

// ReportValidationResult reports the local validator's verdict.
func (c *Client) ReportValidationResult(ctx context.Context, documentID string, isValid bool, errs []string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/documents/"+documentID+"/validation-result",
		map[string]any{"isValid": isValid, "errors": errs}, nil)
}

// MarkError reports an unrecoverable processing failure.
func (c *Client) MarkError(ctx context.Context, documentID, message string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/documents/"+documentID+"/error",
		map[string]string{"message": message}, nil)
}

// Validate accepts a document (operator only).
func (c *Client) Validate(ctx context.Context, documentID string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/documents/"+documentID+"/validate", nil, nil)
}

// Invalidate rejects a document with a reason (operator only).
func (c *Client) Invalidate(ctx context.Context, documentID, reason string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/documents/"+documentID+"/invalidate",
		map[string]string{"reason": reason}, nil)
}

// GetRequest loads a request with its documents (operator only).
func (c *Client) GetRequest(ctx context.Context, id string) (*RequestView, error) {
	view := &RequestView{}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/requests/"+id, nil, view); err != nil {
		return nil, err
	}
	return view, nil
}

// DownloadURL asks for a presigned GET URL for a document's ciphertext
// (operator only).
func (c *Client) DownloadURL(ctx context.Context, documentID string) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/documents/"+documentID+"/download", nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// PutBlob uploads the ciphertext to a presigned URL.
func (c *Client) PutBlob(ctx context.Context, url string, ciphertext []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(ciphertext))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("blob upload: %v: %w", err, common.ErrTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("blob upload: status %d: %w", resp.StatusCode, common.ErrTransient)
	}
	return nil
}

// FetchBlob downloads ciphertext from a presigned URL.
func (c *Client) FetchBlob(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blob fetch: %v: %w", err, common.ErrTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blob fetch: status %d: %w", resp.StatusCode, common.ErrTransient)
	}
	return io.ReadAll(resp.Body)
}

// doJSON performs one API round-trip: marshals body when present, decodes
// into out when non-nil, and maps error statuses onto sentinel errors.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %v: %w", method, path, err, common.ErrTransient)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func statusError(code int) error {
	switch {
	case code >= 200 && code <= 299:
		return nil
	case code == http.StatusNotFound:
		return common.ErrNotFound
	case code == http.StatusBadRequest:
		return common.ErrValidation
	case code == http.StatusUnauthorized:
		return common.ErrUnauthorized
	case code == http.StatusConflict:
		return common.ErrConfiguration
	case code >= 500:
		return common.ErrTransient
	default:
		return fmt.Errorf("unexpected status %d: %w", code, common.ErrInternal)
	}
}
