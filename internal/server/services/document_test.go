package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/documo/documo/internal/common"
	"github.com/documo/documo/internal/dbx"
	"github.com/documo/documo/internal/logging"
	sc "github.com/documo/documo/internal/server/config"
	"github.com/documo/documo/internal/server/models"
	"github.com/documo/documo/internal/server/repositories/doctypes"
	"github.com/documo/documo/internal/server/repositories/documents"
	"github.com/documo/documo/internal/server/repositories/folders"
	"github.com/documo/documo/internal/server/repositories/outbox"
	"github.com/documo/documo/internal/server/repositories/requests"
	"github.com/documo/documo/internal/server/repositories/sharelinks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- in-memory fakes -------------------------------------------------------

type fakeStore struct {
	documents map[string]*models.Document
	requests  map[string]*models.Request
	folders   map[string]*models.Folder
	doctypes  map[string]*models.DocumentType
	links     []*models.ShareLink
	outbox    []*models.OutboxEmail
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		documents: map[string]*models.Document{},
		requests:  map[string]*models.Request{},
		folders:   map[string]*models.Folder{},
		doctypes:  map[string]*models.DocumentType{},
	}
}

type fakeDocuments struct{ s *fakeStore }

func (r *fakeDocuments) Create(_ context.Context, doc *models.Document) error {
	r.s.documents[doc.ID] = doc
	return nil
}

func (r *fakeDocuments) GetByID(_ context.Context, id string) (*models.Document, error) {
	doc, ok := r.s.documents[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return doc, nil
}

func (r *fakeDocuments) ListByRequest(_ context.Context, requestID string) ([]*models.Document, error) {
	var result []*models.Document
	for _, d := range r.s.documents {
		if d.RequestID == requestID {
			result = append(result, d)
		}
	}
	return result, nil
}

func (r *fakeDocuments) UpdateValidation(_ context.Context, id string, validatedAt, invalidatedAt *time.Time, validationErrors []string) error {
	doc, ok := r.s.documents[id]
	if !ok {
		return common.ErrNotFound
	}
	doc.ValidatedAt = validatedAt
	doc.InvalidatedAt = invalidatedAt
	doc.ValidationErrors = validationErrors
	return nil
}

func (r *fakeDocuments) MarkError(_ context.Context, id string, at time.Time, message string) error {
	doc, ok := r.s.documents[id]
	if !ok {
		return common.ErrNotFound
	}
	doc.ErrorAt = &at
	doc.ErrorMessage = message
	return nil
}

type fakeRequests struct{ s *fakeStore }

func (r *fakeRequests) Create(_ context.Context, req *models.Request) error {
	r.s.requests[req.ID] = req
	return nil
}

func (r *fakeRequests) GetByID(_ context.Context, id string) (*models.Request, error) {
	req, ok := r.s.requests[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return req, nil
}

func (r *fakeRequests) ListByFolder(_ context.Context, folderID string) ([]*models.Request, error) {
	var result []*models.Request
	for _, req := range r.s.requests {
		if req.FolderID == folderID {
			result = append(result, req)
		}
	}
	return result, nil
}

func (r *fakeRequests) UpdateCompletion(_ context.Context, id string, completedAt *time.Time) error {
	req, ok := r.s.requests[id]
	if !ok {
		return common.ErrNotFound
	}
	req.CompletedAt = completedAt
	return nil
}

type fakeFolders struct{ s *fakeStore }

func (r *fakeFolders) Create(_ context.Context, folder *models.Folder) error {
	r.s.folders[folder.ID] = folder
	return nil
}

func (r *fakeFolders) GetByID(_ context.Context, id string) (*models.Folder, error) {
	folder, ok := r.s.folders[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return folder, nil
}

func (r *fakeFolders) UpdateCompletion(_ context.Context, id string, completedAt *time.Time) error {
	folder, ok := r.s.folders[id]
	if !ok {
		return common.ErrNotFound
	}
	folder.CompletedAt = completedAt
	return nil
}

type fakeDocTypes struct{ s *fakeStore }

func (r *fakeDocTypes) Create(_ context.Context, dt *models.DocumentType) error {
	r.s.doctypes[dt.ID] = dt
	return nil
}

func (r *fakeDocTypes) GetByID(_ context.Context, id string) (*models.DocumentType, error) {
	dt, ok := r.s.doctypes[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return dt, nil
}

func (r *fakeDocTypes) List(_ context.Context) ([]*models.DocumentType, error) {
	var result []*models.DocumentType
	for _, dt := range r.s.doctypes {
		result = append(result, dt)
	}
	return result, nil
}

type fakeShareLinks struct{ s *fakeStore }

func (r *fakeShareLinks) Create(_ context.Context, link *models.ShareLink) error {
	r.s.links = append(r.s.links, link)
	return nil
}

func (r *fakeShareLinks) FindActive(_ context.Context, requestID string, now time.Time) (*models.ShareLink, error) {
	var newest *models.ShareLink
	for _, l := range r.s.links {
		if l.RequestID == requestID && l.IsActive(now) {
			if newest == nil || l.CreatedAt.After(newest.CreatedAt) {
				newest = l
			}
		}
	}
	if newest == nil {
		return nil, common.ErrNotFound
	}
	return newest, nil
}

func (r *fakeShareLinks) GetByToken(_ context.Context, token string, now time.Time) (*models.ShareLink, error) {
	for _, l := range r.s.links {
		if l.Token == token && l.IsActive(now) {
			return l, nil
		}
	}
	return nil, common.ErrNotFound
}

type fakeOutbox struct{ s *fakeStore }

func (r *fakeOutbox) Enqueue(_ context.Context, email *models.OutboxEmail) error {
	email.Status = models.OutboxPending
	r.s.outbox = append(r.s.outbox, email)
	return nil
}

func (r *fakeOutbox) SelectPending(_ context.Context, limit int) ([]*models.OutboxEmail, error) {
	var result []*models.OutboxEmail
	for _, e := range r.s.outbox {
		if e.Status == models.OutboxPending && len(result) < limit {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *fakeOutbox) MarkSent(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(e *models.OutboxEmail) {
		e.Status = models.OutboxSent
		e.SentAt = &at
	})
}

func (r *fakeOutbox) MarkFailed(_ context.Context, id string, attempts int, lastError string) error {
	return r.update(id, func(e *models.OutboxEmail) {
		e.Attempts = attempts
		e.LastError = lastError
	})
}

func (r *fakeOutbox) Abandon(_ context.Context, id string, lastError string) error {
	return r.update(id, func(e *models.OutboxEmail) {
		e.Status = models.OutboxFailed
		e.LastError = lastError
	})
}

func (r *fakeOutbox) update(id string, fn func(*models.OutboxEmail)) error {
	for _, e := range r.s.outbox {
		if e.ID == id {
			fn(e)
			return nil
		}
	}
	return common.ErrNotFound
}

type fakeRepoManager struct{ s *fakeStore }

func (m *fakeRepoManager) Documents(dbx.DBTX) documents.Repository   { return &fakeDocuments{m.s} }
func (m *fakeRepoManager) Requests(dbx.DBTX) requests.Repository    { return &fakeRequests{m.s} }
func (m *fakeRepoManager) Folders(dbx.DBTX) folders.Repository      { return &fakeFolders{m.s} }
func (m *fakeRepoManager) DocumentTypes(dbx.DBTX) doctypes.Repository {
	return &fakeDocTypes{m.s}
}
func (m *fakeRepoManager) ShareLinks(dbx.DBTX) sharelinks.Repository { return &fakeShareLinks{m.s} }
func (m *fakeRepoManager) Outbox(dbx.DBTX) outbox.Repository         { return &fakeOutbox{m.s} }
func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}

type fakeBlobs struct{ n int }

func (b *fakeBlobs) PresignedPutURL(context.Context) (string, string, error) {
	b.n++
	key := fmt.Sprintf("documents/test/%d", b.n)
	return key, "https://blobs.local/put/" + key, nil
}

func (b *fakeBlobs) PresignedGetURL(_ context.Context, key string) (string, error) {
	return "https://blobs.local/get/" + key, nil
}

// ---- harness ---------------------------------------------------------------

type harness struct {
	svc   *DocumentService
	store *fakeStore
	mock  sqlmock.Sqlmock
	db    *sql.DB
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := newFakeStore()
	cfg := &sc.Config{}
	cfg.LoadDefaults()

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))

	svc := NewDocumentService(db, &fakeRepoManager{store}, &fakeBlobs{}, cfg, logger)

	ids := 0
	svc.newID = func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}

	return &harness{svc: svc, store: store, mock: mock, db: db}
}

// expectTx queues expectations for n service transactions; the fakes ignore
// the transactional handle, so only begin/commit cross the mock.
func (h *harness) expectTx(n int) {
	for i := 0; i < n; i++ {
		h.mock.ExpectBegin()
		h.mock.ExpectCommit()
	}
}

func (h *harness) seedRequestWithDocument() (reqID, docID string) {
	now := time.Now()
	h.store.folders["f1"] = &models.Folder{ID: "f1", RequestedTypeIDs: []string{"identity"}}
	h.store.requests["r1"] = &models.Request{
		ID:               "r1",
		FolderID:         "f1",
		Email:            "user@example.com",
		RequestedTypeIDs: []string{"identity"},
	}
	h.store.documents["d1"] = &models.Document{
		ID:         "d1",
		RequestID:  "r1",
		TypeID:     "identity",
		FileName:   "passport.pdf",
		MimeType:   "application/pdf",
		URL:        "documents/test/d1",
		Hash:       "abc",
		UploadedAt: now,
	}
	return "r1", "d1"
}

// ---- tests -----------------------------------------------------------------

func TestValidate_CascadesCompletion(t *testing.T) {
	h := newHarness(t)
	_, docID := h.seedRequestWithDocument()
	h.expectTx(1)

	require.NoError(t, h.svc.Validate(context.Background(), docID))

	doc := h.store.documents[docID]
	assert.Equal(t, models.StatusValid, doc.Status())
	assert.NotNil(t, doc.ValidatedAt)
	assert.Nil(t, doc.InvalidatedAt)
	assert.Empty(t, doc.ValidationErrors)

	assert.NotNil(t, h.store.requests["r1"].CompletedAt, "request should be completed")
	assert.NotNil(t, h.store.folders["f1"].CompletedAt, "folder should be completed")
	assert.Empty(t, h.store.outbox, "validate sends no mail")
}

func TestValidate_IncompleteRequestStaysOpen(t *testing.T) {
	h := newHarness(t)
	h.seedRequestWithDocument()
	h.store.requests["r1"].RequestedTypeIDs = []string{"identity", "bank"}
	h.expectTx(1)

	require.NoError(t, h.svc.Validate(context.Background(), "d1"))

	assert.Nil(t, h.store.requests["r1"].CompletedAt, "missing type must keep request open")
	assert.Nil(t, h.store.folders["f1"].CompletedAt)
}

func TestValidate_NotFound(t *testing.T) {
	h := newHarness(t)
	h.mock.ExpectBegin()
	h.mock.ExpectRollback()

	err := h.svc.Validate(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestInvalidate_ReopensAndNotifies(t *testing.T) {
	h := newHarness(t)
	_, docID := h.seedRequestWithDocument()
	h.expectTx(2)

	require.NoError(t, h.svc.Validate(context.Background(), docID))
	require.NoError(t, h.svc.Invalidate(context.Background(), docID, "Document illisible"))

	doc := h.store.documents[docID]
	assert.Equal(t, models.StatusInvalid, doc.Status())
	assert.Nil(t, doc.ValidatedAt, "validatedAt and invalidatedAt are mutually exclusive")
	assert.NotNil(t, doc.InvalidatedAt)
	assert.Equal(t, []string{"Document illisible"}, doc.ValidationErrors)

	assert.Nil(t, h.store.requests["r1"].CompletedAt, "request must reopen")
	assert.Nil(t, h.store.folders["f1"].CompletedAt, "folder must reopen")

	require.Len(t, h.store.links, 1)
	require.Len(t, h.store.outbox, 1)
	notice := h.store.outbox[0]
	assert.Equal(t, "user@example.com", notice.Recipient)
	assert.Equal(t, "Document illisible", notice.Reason)
	assert.Contains(t, notice.UploadURL, h.store.links[0].Token)
}

func TestInvalidate_Idempotent(t *testing.T) {
	h := newHarness(t)
	_, docID := h.seedRequestWithDocument()
	h.expectTx(2)

	require.NoError(t, h.svc.Invalidate(context.Background(), docID, "blurry scan"))
	require.NoError(t, h.svc.Invalidate(context.Background(), docID, "blurry scan"))

	assert.Len(t, h.store.links, 1, "retry must not mint a second live link")
	assert.Len(t, h.store.outbox, 1, "retry must not enqueue a second notice")
	assert.Nil(t, h.store.requests["r1"].CompletedAt)
	assert.Nil(t, h.store.folders["f1"].CompletedAt)
}

func TestInvalidate_ReusesActiveLink(t *testing.T) {
	h := newHarness(t)
	_, docID := h.seedRequestWithDocument()

	now := time.Now()
	existing := &models.ShareLink{
		ID: "l0", RequestID: "r1", Token: "livetoken",
		ExpiresAt: now.Add(time.Hour), CreatedAt: now.Add(-time.Hour),
	}
	h.store.links = append(h.store.links, existing)
	h.expectTx(1)

	require.NoError(t, h.svc.Invalidate(context.Background(), docID, "wrong document"))

	assert.Len(t, h.store.links, 1, "active link must be reused")
	assert.Contains(t, h.store.outbox[0].UploadURL, "livetoken")
}

func TestInvalidate_ExpiredLinkNotReused(t *testing.T) {
	h := newHarness(t)
	_, docID := h.seedRequestWithDocument()

	now := time.Now()
	h.store.links = append(h.store.links, &models.ShareLink{
		ID: "l0", RequestID: "r1", Token: "stale",
		ExpiresAt: now.Add(-time.Minute), CreatedAt: now.Add(-48 * time.Hour),
	})
	h.expectTx(1)

	require.NoError(t, h.svc.Invalidate(context.Background(), docID, "expired upload"))

	require.Len(t, h.store.links, 2, "expired link must not be reused")
	fresh := h.store.links[1]
	assert.True(t, fresh.IsActive(now))
	assert.Contains(t, h.store.outbox[0].UploadURL, fresh.Token)
}

func TestInvalidate_RequiresReason(t *testing.T) {
	h := newHarness(t)

	err := h.svc.Invalidate(context.Background(), "d1", "   ")
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, h.store.outbox)
}

func TestRecordValidationFailure(t *testing.T) {
	h := newHarness(t)
	_, docID := h.seedRequestWithDocument()
	h.expectTx(1)

	errs := []string{
		"Invalid file type: text/plain. Allowed types: application/pdf",
		"File too large: 9000000 bytes. Maximum size: 5000000 bytes",
	}
	require.NoError(t, h.svc.RecordValidationFailure(context.Background(), docID, errs))

	doc := h.store.documents[docID]
	assert.Equal(t, models.StatusInvalid, doc.Status())
	assert.Equal(t, errs, doc.ValidationErrors)
	assert.Empty(t, h.store.outbox, "upload-time failures notify nobody")
	assert.Empty(t, h.store.links)
}

func TestMarkError_TakesPrecedence(t *testing.T) {
	h := newHarness(t)
	_, docID := h.seedRequestWithDocument()
	h.expectTx(2)

	require.NoError(t, h.svc.Invalidate(context.Background(), docID, "first verdict"))
	require.NoError(t, h.svc.MarkError(context.Background(), docID, "blob storage unreachable"))

	doc := h.store.documents[docID]
	assert.Equal(t, models.StatusError, doc.Status(), "error beats invalidated")
	assert.Equal(t, "blob storage unreachable", doc.ErrorMessage)
}

func TestCreateDocument(t *testing.T) {
	h := newHarness(t)
	h.seedRequestWithDocument()
	h.store.doctypes["identity"] = &models.DocumentType{
		ID: "identity", Label: "Identity document",
		AllowedMimeTypes: []string{"application/pdf"}, MaxSize: 5_000_000,
	}

	doc, putURL, err := h.svc.CreateDocument(context.Background(), CreateDocumentInput{
		RequestID:    "r1",
		TypeID:       "identity",
		FileName:     "id.pdf",
		MimeType:     "application/pdf",
		OriginalSize: 1234,
		Hash:         "cafe",
		WrappedKey:   []byte("wrapped"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.NotEmpty(t, doc.URL, "document must point at its blob key")
	assert.Contains(t, putURL, doc.URL)
	assert.Equal(t, models.StatusUploaded, doc.Status())
	assert.Same(t, doc, h.store.documents[doc.ID])
}

func TestCreateDocument_UnknownType(t *testing.T) {
	h := newHarness(t)
	h.seedRequestWithDocument()

	_, _, err := h.svc.CreateDocument(context.Background(), CreateDocumentInput{
		RequestID: "r1", TypeID: "unknown",
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDownloadURL(t *testing.T) {
	h := newHarness(t)
	_, docID := h.seedRequestWithDocument()

	url, err := h.svc.DownloadURL(context.Background(), docID)
	require.NoError(t, err)
	assert.Equal(t, "https://blobs.local/get/documents/test/d1", url)
}

func TestDownloadURL_NoContent(t *testing.T) {
	h := newHarness(t)
	_, docID := h.seedRequestWithDocument()
	h.store.documents[docID].URL = ""

	_, err := h.svc.DownloadURL(context.Background(), docID)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}
