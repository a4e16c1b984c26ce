package models

// DocumentType is reference data describing one kind of collectable document:
// its label, the MIME types it accepts and the maximum size in bytes.
type DocumentType struct {
	ID               string
	Label            string
	AllowedMimeTypes []string
	MaxSize          int64
}
