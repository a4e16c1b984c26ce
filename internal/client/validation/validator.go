// Package validation checks a candidate file against the rules of its
// document type. All checks run regardless of earlier failures, so one call
// reports every defect at once.
package validation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/documo/documo/internal/cryptox"
)

// Rules are the constraints attached to a document type.
type Rules struct {
	Label            string
	AllowedMimeTypes []string
	MaxSize          int64
}

// Candidate is the file under validation. Size is the declared size from the
// picker; Content is the actual plaintext.
type Candidate struct {
	Name     string
	MimeType string
	Size     int64
	Content  []byte
}

// Result carries the verdict, the accumulated error list and the computed
// plaintext hash, which callers record for later integrity checks.
type Result struct {
	IsValid bool
	Errors  []string
	Hash    string
}

// Validate runs the type, size and integrity checks. recordedHash is the hash
// stored for the document earlier; when empty, the integrity check is skipped
// and the freshly computed hash becomes the record.
func Validate(rules Rules, recordedHash string, c Candidate) Result {
	var errs []string

	if !slices.Contains(rules.AllowedMimeTypes, c.MimeType) {
		errs = append(errs, fmt.Sprintf("Invalid file type: %s. Allowed types: %s",
			c.MimeType, strings.Join(rules.AllowedMimeTypes, ", ")))
	}

	if c.Size > rules.MaxSize {
		errs = append(errs, fmt.Sprintf("File too large: %d bytes. Maximum size: %d bytes",
			c.Size, rules.MaxSize))
	}

	hash := cryptox.Hash(c.Content)
	if recordedHash != "" && recordedHash != hash {
		errs = append(errs, "File integrity check failed")
	}

	return Result{
		IsValid: len(errs) == 0,
		Errors:  errs,
		Hash:    hash,
	}
}
