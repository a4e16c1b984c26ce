// Package mail sends notification e-mails to request recipients.
package mail

import "context"

// InvalidationEmail carries everything the invalidation notice needs: the
// recipient, the operator's reason and the re-upload URL built from the
// request's share link.
type InvalidationEmail struct {
	To        string
	Reason    string
	UploadURL string
}

// Notifier delivers notification e-mails. Implementations must be safe for
// concurrent use; delivery failures are reported, never swallowed.
type Notifier interface {
	SendDocumentInvalidated(ctx context.Context, email InvalidationEmail) error
}
