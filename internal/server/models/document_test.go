package models

import (
	"testing"
	"time"
)

func ts(t time.Time) *time.Time { return &t }

func TestDocumentStatus_Precedence(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		doc  Document
		want DocumentStatus
	}{
		{"no file yet", Document{}, StatusPending},
		{"uploaded, no verdict", Document{URL: "s3://bucket/key"}, StatusUploaded},
		{"validated", Document{URL: "s3://bucket/key", ValidatedAt: ts(now)}, StatusValid},
		{"invalidated", Document{URL: "s3://bucket/key", InvalidatedAt: ts(now)}, StatusInvalid},
		{"invalidated beats validated", Document{URL: "u", ValidatedAt: ts(now), InvalidatedAt: ts(now)}, StatusInvalid},
		{"error beats invalidated", Document{URL: "u", InvalidatedAt: ts(now), ErrorAt: ts(now)}, StatusError},
		{"error beats everything", Document{URL: "u", ValidatedAt: ts(now), InvalidatedAt: ts(now), ErrorAt: ts(now)}, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.doc.Status(); got != tt.want {
				t.Errorf("Status() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestRequestIsComplete(t *testing.T) {
	now := time.Now()
	req := &Request{ID: "r1", RequestedTypeIDs: []string{"identity", "bank"}}

	valid := func(typeID string) *Document {
		return &Document{RequestID: "r1", TypeID: typeID, URL: "u", ValidatedAt: ts(now)}
	}

	if req.IsComplete(nil) {
		t.Errorf("empty document set should not complete a request")
	}
	if req.IsComplete([]*Document{valid("identity")}) {
		t.Errorf("missing type should not complete a request")
	}
	if req.IsComplete([]*Document{valid("identity"), {TypeID: "bank", URL: "u"}}) {
		t.Errorf("merely uploaded document should not complete a request")
	}
	if !req.IsComplete([]*Document{valid("identity"), valid("bank")}) {
		t.Errorf("all types valid should complete the request")
	}

	// an invalidated duplicate does not spoil completion if a valid one exists
	docs := []*Document{valid("identity"), valid("bank"), {TypeID: "bank", URL: "u", InvalidatedAt: ts(now)}}
	if !req.IsComplete(docs) {
		t.Errorf("extra invalid document should not block completion")
	}
}

func TestFolderIsComplete(t *testing.T) {
	now := time.Now()

	f := &Folder{ID: "f1"}
	if f.IsComplete(nil) {
		t.Errorf("folder with no requests should not be complete")
	}
	if f.IsComplete([]*Request{{CompletedAt: ts(now)}, {}}) {
		t.Errorf("folder with an open request should not be complete")
	}
	if !f.IsComplete([]*Request{{CompletedAt: ts(now)}, {CompletedAt: ts(now)}}) {
		t.Errorf("folder with all requests completed should be complete")
	}
}

func TestShareLinkIsActive(t *testing.T) {
	now := time.Now()
	link := ShareLink{ExpiresAt: now.Add(time.Hour)}
	if !link.IsActive(now) {
		t.Errorf("future expiry should be active")
	}
	if link.IsActive(now.Add(2 * time.Hour)) {
		t.Errorf("past expiry should be inactive")
	}
}
