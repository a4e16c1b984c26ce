// Package cryptox implements the document encryption primitives: per-document
// AES-256-GCM keys, the nonce-prefixed ciphertext envelope, SHA-256 content
// hashing, and wrapping of document keys under a master key derived from an
// organization passphrase.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/documo/documo/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the size of a document encryption key (AES-256).
	KeySize = 32
	// NonceSize is the GCM nonce length prepended to every envelope.
	NonceSize = 12
)

// GenerateKey produces a fresh 256-bit symmetric key suitable for
// encrypting and decrypting one document's content.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("key generation: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext under key with AES-GCM and a fresh random 12-byte
// nonce, and returns the envelope nonce||ciphertext. The nonce is not secret;
// prepending it is what lets Decrypt recover it later. Two calls with the
// same inputs produce different envelopes because the nonce is never reused.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}

	// envelope = nonce || ciphertext
	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt splits the first 12 bytes of envelope as the nonce, authenticates
// and decrypts the remainder. A failed authentication tag (tampered data or
// wrong key) is reported as common.ErrIntegrity so callers can tell it apart
// from I/O failures.
func Decrypt(envelope, key []byte) ([]byte, error) {
	if len(envelope) < NonceSize {
		return nil, fmt.Errorf("envelope shorter than nonce: %w", common.ErrIntegrity)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce, ciphertext := envelope[:NonceSize], envelope[NonceSize:]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("open envelope: %w", common.ErrIntegrity)
	}

	return plaintext, nil
}

// Hash computes the SHA-256 digest of content as a lowercase hex string.
// Used for the pre-upload integrity record, never for encryption.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// DeriveMasterKey derives a 256-bit master key from an organization
// passphrase with argon2id. The same passphrase and salt always yield the
// same key.
func DeriveMasterKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// WrapKey encrypts a document key under the master key, so the database
// never stores raw key material next to the blob pointer.
func WrapKey(dek, masterKey []byte) ([]byte, error) {
	return Encrypt(dek, masterKey)
}

// UnwrapKey recovers a document key wrapped by WrapKey. A wrong master key
// surfaces as common.ErrIntegrity.
func UnwrapKey(wrapped, masterKey []byte) ([]byte, error) {
	return Decrypt(wrapped, masterKey)
}
