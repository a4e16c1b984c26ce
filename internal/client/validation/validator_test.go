package validation

import (
	"testing"

	"github.com/documo/documo/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdfRules = Rules{
	Label:            "Identity document",
	AllowedMimeTypes: []string{"application/pdf", "image/jpeg"},
	MaxSize:          5_000_000,
}

func TestValidate_Passes(t *testing.T) {
	content := []byte("%PDF-1.4 fake")
	res := Validate(pdfRules, "", Candidate{
		Name: "id.pdf", MimeType: "application/pdf",
		Size: int64(len(content)), Content: content,
	})

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.Equal(t, cryptox.Hash(content), res.Hash)
}

func TestValidate_WrongType(t *testing.T) {
	res := Validate(pdfRules, "", Candidate{
		Name: "notes.txt", MimeType: "text/plain", Size: 10, Content: []byte("0123456789"),
	})

	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Invalid file type: text/plain. Allowed types: application/pdf, image/jpeg", res.Errors[0])
}

func TestValidate_TooLarge(t *testing.T) {
	res := Validate(pdfRules, "", Candidate{
		Name: "big.pdf", MimeType: "application/pdf", Size: 9_000_000, Content: []byte("x"),
	})

	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "File too large: 9000000 bytes. Maximum size: 5000000 bytes", res.Errors[0])
}

func TestValidate_IntegrityMismatch(t *testing.T) {
	res := Validate(pdfRules, cryptox.Hash([]byte("original")), Candidate{
		Name: "id.pdf", MimeType: "application/pdf", Size: 8, Content: []byte("tampered"),
	})

	assert.False(t, res.IsValid)
	assert.Contains(t, res.Errors, "File integrity check failed")
}

func TestValidate_AccumulatesAllErrors(t *testing.T) {
	res := Validate(pdfRules, cryptox.Hash([]byte("original")), Candidate{
		Name: "huge.txt", MimeType: "text/plain", Size: 9_000_000, Content: []byte("changed"),
	})

	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 3, "every failing check must report, not just the first")
	assert.Equal(t, "File integrity check failed", res.Errors[2])
}

func TestValidate_MatchingHashOnlyOtherErrors(t *testing.T) {
	content := []byte("same bytes")
	res := Validate(pdfRules, cryptox.Hash(content), Candidate{
		Name: "huge.txt", MimeType: "text/plain", Size: 9_000_000, Content: content,
	})

	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 2)
	assert.NotContains(t, res.Errors, "File integrity check failed")
}
