package mail

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendDocumentInvalidated(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotBody []byte

	orig := sendMail
	t.Cleanup(func() { sendMail = orig })
	sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotBody = addr, from, to, msg
		return nil
	}

	n := NewSMTPNotifier("relay:25", "no-reply@documo.local")
	err := n.SendDocumentInvalidated(context.Background(), InvalidationEmail{
		To:        "user@example.com",
		Reason:    "Document illisible",
		UploadURL: "https://documo.local/upload/tok",
	})
	require.NoError(t, err)

	assert.Equal(t, "relay:25", gotAddr)
	assert.Equal(t, "no-reply@documo.local", gotFrom)
	assert.Equal(t, []string{"user@example.com"}, gotTo)
	assert.Contains(t, string(gotBody), "Document illisible")
	assert.Contains(t, string(gotBody), "https://documo.local/upload/tok")
}

func TestSendDocumentInvalidated_RelayError(t *testing.T) {
	orig := sendMail
	t.Cleanup(func() { sendMail = orig })
	sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		return errors.New("connection refused")
	}

	n := NewSMTPNotifier("relay:25", "no-reply@documo.local")
	err := n.SendDocumentInvalidated(context.Background(), InvalidationEmail{To: "user@example.com"})
	assert.ErrorContains(t, err, "connection refused")
}
