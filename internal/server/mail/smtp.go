package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPNotifier sends mail through a plain SMTP relay.
type SMTPNotifier struct {
	addr string
	from string
}

// NewSMTPNotifier constructs a notifier for the given relay address
// (host:port) and sender.
func NewSMTPNotifier(addr, from string) *SMTPNotifier {
	return &SMTPNotifier{addr: addr, from: from}
}

// sendMail is a seam for tests.
var sendMail = smtp.SendMail

// SendDocumentInvalidated sends the invalidation notice. The body always
// shows the reason the operator gave and the link to upload a replacement.
func (n *SMTPNotifier) SendDocumentInvalidated(ctx context.Context, email InvalidationEmail) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", email.To)
	b.WriteString("Subject: A document you submitted was rejected\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "One of your documents was rejected for the following reason:\r\n\r\n")
	fmt.Fprintf(&b, "    %s\r\n\r\n", email.Reason)
	fmt.Fprintf(&b, "Please upload a replacement here: %s\r\n", email.UploadURL)

	if err := sendMail(n.addr, nil, n.from, []string{email.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
