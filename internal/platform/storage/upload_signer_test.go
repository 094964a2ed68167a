package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/printlane/api/internal/services"
)

func newUploadTestSigner(t *testing.T) *BatchUploadSigner {
	t.Helper()

	client, err := NewClient(&fakeSigner{email: "uploads@example.iam.gserviceaccount.com"},
		WithClock(func() time.Time { return time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC) }))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	signer, err := NewBatchUploadSigner(UploadSignerDeps{
		Client:              client,
		Bucket:              "printlane-uploads",
		AllowedContentTypes: []string{"image/jpeg", "image/jpg", "image/png", "application/pdf"},
		MaxSizeBytes:        10 << 20,
		Expiry:              10 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewBatchUploadSigner: %v", err)
	}
	return signer
}

func TestBatchUploadSignerRequiresDependencies(t *testing.T) {
	if _, err := NewBatchUploadSigner(UploadSignerDeps{Bucket: "bucket"}); err == nil {
		t.Fatalf("expected error for missing client")
	}

	client, err := NewClient(&fakeSigner{email: "uploads@example.iam.gserviceaccount.com"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := NewBatchUploadSigner(UploadSignerDeps{Client: client, Bucket: "  "}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
}

func TestBatchUploadSignerSignsAdmittedFile(t *testing.T) {
	signer := newUploadTestSigner(t)

	res, err := signer.SignUpload(context.Background(), services.SignUploadRequest{
		OwnerID:     "owner-1",
		BatchID:     "batch-1",
		ItemID:      "item-1",
		FileName:    "aadhaar-front.jpg",
		ContentType: "image/jpeg",
		SizeBytes:   512_000,
	})
	if err != nil {
		t.Fatalf("SignUpload: %v", err)
	}

	if res.ItemID != "item-1" {
		t.Fatalf("unexpected item id: %s", res.ItemID)
	}
	if res.Method != "PUT" {
		t.Fatalf("unexpected method: %s", res.Method)
	}
	if !strings.Contains(res.URL, "uploads/owner-1/batch-1/item-1/aadhaar-front.jpg") {
		t.Fatalf("unexpected object path in url: %s", res.URL)
	}
	if res.Headers["Content-Type"] != "image/jpeg" {
		t.Fatalf("unexpected headers: %v", res.Headers)
	}
	if res.Headers["x-goog-content-length-range"] != "0,512000" {
		t.Fatalf("expected declared size as upper bound, got %v", res.Headers)
	}
	expected := time.Date(2026, 2, 10, 12, 10, 0, 0, time.UTC)
	if !res.ExpiresAt.Equal(expected) {
		t.Fatalf("unexpected expiry: %v", res.ExpiresAt)
	}
}

func TestBatchUploadSignerRejectsDisallowedContentType(t *testing.T) {
	signer := newUploadTestSigner(t)

	_, err := signer.SignUpload(context.Background(), services.SignUploadRequest{
		OwnerID:     "owner-1",
		BatchID:     "batch-1",
		ItemID:      "item-2",
		FileName:    "notes.txt",
		ContentType: "text/plain",
		SizeBytes:   1024,
	})
	if !errors.Is(err, errContentTypeDenied) {
		t.Fatalf("expected errContentTypeDenied, got %v", err)
	}
}

func TestBatchUploadSignerRejectsTraversalFileName(t *testing.T) {
	signer := newUploadTestSigner(t)

	_, err := signer.SignUpload(context.Background(), services.SignUploadRequest{
		OwnerID:     "owner-1",
		BatchID:     "batch-1",
		ItemID:      "item-3",
		FileName:    "../escape.png",
		ContentType: "image/png",
		SizeBytes:   1024,
	})
	if err == nil {
		t.Fatalf("expected error for traversal file name")
	}
}
