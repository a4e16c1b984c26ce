package upload

import (
	"context"
	"errors"
	"testing"

	"github.com/documo/documo/internal/client/api"
	"github.com/documo/documo/internal/client/validation"
	"github.com/documo/documo/internal/common"
	"github.com/documo/documo/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	docType *api.DocumentType

	created   *api.CreateDocumentParams
	blob      []byte
	verdicts  map[string]bool
	errors    []string
	markedErr string

	putBlobErr error
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		docType: &api.DocumentType{
			ID: "identity", Label: "Identity document",
			AllowedMimeTypes: []string{"application/pdf"}, MaxSize: 5_000_000,
		},
		verdicts: map[string]bool{},
	}
}

func (f *fakeServer) GetDocumentType(_ context.Context, id string) (*api.DocumentType, error) {
	return f.docType, nil
}

func (f *fakeServer) CreateDocument(_ context.Context, params api.CreateDocumentParams) (*api.Document, string, error) {
	f.created = &params
	return &api.Document{
		ID: "d1", RequestID: params.RequestID, TypeID: params.TypeID,
		Hash: params.Hash, WrappedKey: params.WrappedKey,
	}, "https://blobs.local/put/key", nil
}

func (f *fakeServer) PutBlob(_ context.Context, url string, ciphertext []byte) error {
	if f.putBlobErr != nil {
		return f.putBlobErr
	}
	f.blob = ciphertext
	return nil
}

func (f *fakeServer) ReportValidationResult(_ context.Context, id string, isValid bool, errs []string) error {
	f.verdicts[id] = isValid
	f.errors = errs
	return nil
}

func (f *fakeServer) MarkError(_ context.Context, id, message string) error {
	f.markedErr = message
	return nil
}

var testMasterKey = make([]byte, cryptox.KeySize)

func pdfCandidate(content []byte) validation.Candidate {
	return validation.Candidate{
		Name: "id.pdf", MimeType: "application/pdf",
		Size: int64(len(content)), Content: content,
	}
}

func TestUpload_Success(t *testing.T) {
	server := newFakeServer()
	uploader := NewUploader(server, testMasterKey)

	content := []byte("%PDF-1.4 plaintext body")
	var seen []Progress

	doc, err := uploader.Upload(context.Background(), Input{
		RequestID:  "r1",
		TypeID:     "identity",
		File:       pdfCandidate(content),
		OnProgress: func(p Progress) { seen = append(seen, p) },
	})
	require.NoError(t, err)
	require.NotNil(t, doc)

	// stages in order, transfer reported 0 to 100
	require.Len(t, seen, 4)
	assert.Equal(t, Progress{StageUploading, 0}, seen[0])
	assert.Equal(t, Progress{StageUploading, 100}, seen[1])
	assert.Equal(t, Progress{StageValidating, 0}, seen[2])
	assert.Equal(t, Progress{StageValidating, 100}, seen[3])

	assert.True(t, server.verdicts["d1"])
	assert.Equal(t, cryptox.Hash(content), server.created.Hash)

	// the stored blob is an envelope, never the plaintext
	assert.NotEqual(t, content, server.blob)
	assert.Greater(t, len(server.blob), len(content))

	// round trip through the wrapped key recovers the plaintext
	dek, err := cryptox.UnwrapKey(server.created.WrappedKey, testMasterKey)
	require.NoError(t, err)
	plain, err := cryptox.Decrypt(server.blob, dek)
	require.NoError(t, err)
	assert.Equal(t, content, plain)
}

func TestUpload_ValidationFailure(t *testing.T) {
	server := newFakeServer()
	uploader := NewUploader(server, testMasterKey)

	_, err := uploader.Upload(context.Background(), Input{
		RequestID: "r1",
		TypeID:    "identity",
		File: validation.Candidate{
			Name: "huge.txt", MimeType: "text/plain",
			Size: 9_000_000, Content: []byte("text"),
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "Invalid file type: text/plain")
	assert.Contains(t, err.Error(), "File too large: 9000000 bytes")

	// verdict recorded server-side matches the returned error
	valid, reported := server.verdicts["d1"]
	assert.True(t, reported)
	assert.False(t, valid)
	assert.Len(t, server.errors, 2)
	assert.Empty(t, server.markedErr, "validation failure is not an error state")
}

func TestUpload_BlobFailureMarksError(t *testing.T) {
	server := newFakeServer()
	server.putBlobErr = errors.New("connection reset")
	uploader := NewUploader(server, testMasterKey)

	_, err := uploader.Upload(context.Background(), Input{
		RequestID: "r1",
		TypeID:    "identity",
		File:      pdfCandidate([]byte("%PDF-1.4")),
	})
	require.Error(t, err)
	assert.Contains(t, server.markedErr, "connection reset")
	assert.Empty(t, server.verdicts, "no verdict after a failed transfer")
}

func TestUpload_ProvidedKeyIsUsed(t *testing.T) {
	server := newFakeServer()
	uploader := NewUploader(server, testMasterKey)

	key, err := cryptox.GenerateKey()
	require.NoError(t, err)

	content := []byte("%PDF-1.4 with caller key")
	_, err = uploader.Upload(context.Background(), Input{
		RequestID: "r1", TypeID: "identity",
		File: pdfCandidate(content),
		Key:  key,
	})
	require.NoError(t, err)

	plain, err := cryptox.Decrypt(server.blob, key)
	require.NoError(t, err)
	assert.Equal(t, content, plain)
}
