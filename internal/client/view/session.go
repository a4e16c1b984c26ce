// Package view manages decrypted-view sessions: fetch the ciphertext, unwrap
// the key, decrypt, and hand out a revocable plaintext file handle.
package view

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/documo/documo/internal/client/api"
	"github.com/documo/documo/internal/common"
	"github.com/documo/documo/internal/cryptox"
)

// blobSource is the slice of the API client the session needs.
type blobSource interface {
	DownloadURL(ctx context.Context, documentID string) (string, error)
	FetchBlob(ctx context.Context, url string) ([]byte, error)
}

// Session is a stateful per-document view. Decrypted plaintext lives in a
// mode-0600 temp file until Revoke releases it; handles are scarce and must
// not leak past the session.
type Session struct {
	source    blobSource
	masterKey []byte
	doc       api.Document

	mu         sync.Mutex
	objectPath string
	loading    bool
	lastErr    error
	revoked    bool
}

func NewSession(source blobSource, masterKey []byte, doc api.Document) *Session {
	return &Session{source: source, masterKey: masterKey, doc: doc}
}

// Decrypt materializes the plaintext. It is a no-op when a handle already
// exists or another decrypt is in flight. Failures are remembered: the caller
// sees them through Err and must clear them explicitly before retrying.
func (s *Session) Decrypt(ctx context.Context) error {
	s.mu.Lock()
	if s.revoked {
		s.mu.Unlock()
		return fmt.Errorf("session is revoked: %w", common.ErrConfiguration)
	}
	if s.objectPath != "" || s.loading {
		s.mu.Unlock()
		return nil
	}
	if len(s.doc.WrappedKey) == 0 {
		err := fmt.Errorf("document has no key material: %w", common.ErrConfiguration)
		s.lastErr = err
		s.mu.Unlock()
		return err
	}
	s.loading = true
	s.mu.Unlock()

	path, err := s.materialize(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err
		return err
	}
	if s.revoked {
		// revoked mid-flight; do not leak the handle
		os.Remove(path)
		return fmt.Errorf("session is revoked: %w", common.ErrConfiguration)
	}
	s.objectPath = path
	s.lastErr = nil
	return nil
}

func (s *Session) materialize(ctx context.Context) (string, error) {
	url, err := s.source.DownloadURL(ctx, s.doc.ID)
	if err != nil {
		return "", fmt.Errorf("resolving ciphertext location: %w", err)
	}

	envelope, err := s.source.FetchBlob(ctx, url)
	if err != nil {
		return "", fmt.Errorf("fetching ciphertext: %w", err)
	}

	key, err := cryptox.UnwrapKey(s.doc.WrappedKey, s.masterKey)
	if err != nil {
		return "", fmt.Errorf("unwrapping key: %w", err)
	}
	defer common.WipeByteArray(key)

	plain, err := cryptox.Decrypt(envelope, key)
	if err != nil {
		return "", fmt.Errorf("decrypting content: %w", err)
	}

	if s.doc.Hash != "" && cryptox.Hash(plain) != s.doc.Hash {
		return "", fmt.Errorf("plaintext digest mismatch: %w", common.ErrIntegrity)
	}

	f, err := os.CreateTemp("", "documo-view-*")
	if err != nil {
		return "", fmt.Errorf("allocating view handle: %w", err)
	}
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if _, err := f.Write(plain); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}

	return f.Name(), nil
}

// MaybeDecrypt triggers a decrypt when the session is idle, has no handle yet
// and no remembered failure. A terminal error never re-triggers without an
// explicit ClearError.
func (s *Session) MaybeDecrypt(ctx context.Context) {
	s.mu.Lock()
	idle := !s.revoked && !s.loading && s.objectPath == "" && s.lastErr == nil
	s.mu.Unlock()

	if idle {
		_ = s.Decrypt(ctx)
	}
}

// ObjectPath returns the plaintext handle, if materialized.
func (s *Session) ObjectPath() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objectPath, s.objectPath != ""
}

// Err returns the remembered failure from the last decrypt attempt.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ClearError resets the failure state so a caller-initiated retry can run.
func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = nil
}

// Loading reports whether a decrypt is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Revoke releases the plaintext handle and closes the session for good.
func (s *Session) Revoke() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.revoked = true
	if s.objectPath == "" {
		return nil
	}

	err := os.Remove(s.objectPath)
	s.objectPath = ""
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
