// Package common defines shared constants and sentinel errors used across
// client and server layers of Documo. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation marks a document that violates one or more validation
	// rules (wrong MIME type, oversized, hash mismatch). The wrapping error
	// carries the full list of violations.
	ErrValidation = errors.New("validation failed")

	// ErrIntegrity marks an AEAD authentication failure: the ciphertext was
	// fetched fine but does not verify under the given key. Retrying without
	// new key material is pointless, which is why this is kept distinct from
	// ErrTransient.
	ErrIntegrity = errors.New("integrity check failed")

	// ErrTransient marks network or storage failures that are safe to retry.
	ErrTransient = errors.New("transient failure")

	// ErrConfiguration marks an operation attempted on a document that lacks
	// the fields the operation needs (no blob URL, no key material).
	ErrConfiguration = errors.New("missing configuration")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
