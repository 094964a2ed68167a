package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/printlane/api/internal/domain"
	"github.com/printlane/api/internal/platform/textutil"
	"github.com/printlane/api/internal/services"
)

const defaultUploadExpiry = 10 * time.Minute

// UploadSignerDeps wires the signed URL client into the batch upload flow.
type UploadSignerDeps struct {
	Client *Client
	Bucket string

	// AllowedContentTypes restricts what admitted files may declare. Empty means any type.
	AllowedContentTypes []string
	// MaxSizeBytes caps the upload size enforced by the signed URL. Zero disables the cap.
	MaxSizeBytes int64
	// Expiry bounds how long the signed URL stays valid. Defaults to ten minutes.
	Expiry time.Duration
}

// BatchUploadSigner issues signed PUT URLs for admitted batch files.
type BatchUploadSigner struct {
	client  *Client
	bucket  string
	allowed []string
	maxSize int64
	expiry  time.Duration
}

// NewBatchUploadSigner validates dependencies and returns a signer.
func NewBatchUploadSigner(deps UploadSignerDeps) (*BatchUploadSigner, error) {
	if deps.Client == nil {
		return nil, errors.New("storage: signed url client is required")
	}
	if strings.TrimSpace(deps.Bucket) == "" {
		return nil, errors.New("storage: upload bucket is required")
	}

	expiry := deps.Expiry
	if expiry <= 0 {
		expiry = defaultUploadExpiry
	}

	return &BatchUploadSigner{
		client:  deps.Client,
		bucket:  strings.TrimSpace(deps.Bucket),
		allowed: deps.AllowedContentTypes,
		maxSize: deps.MaxSizeBytes,
		expiry:  expiry,
	}, nil
}

// SignUpload builds the object path for the admitted file and signs a PUT URL for it.
func (s *BatchUploadSigner) SignUpload(ctx context.Context, req services.SignUploadRequest) (domain.SignedUploadResponse, error) {
	object, err := BuildObjectPath(PurposeBatchUpload, PathParams{
		OwnerID:  req.OwnerID,
		BatchID:  req.BatchID,
		ItemID:   req.ItemID,
		FileName: req.FileName,
	})
	if err != nil {
		return domain.SignedUploadResponse{}, fmt.Errorf("storage: build upload path: %w", err)
	}

	maxSize := s.maxSize
	if req.SizeBytes > 0 && (maxSize == 0 || req.SizeBytes < maxSize) {
		maxSize = req.SizeBytes
	}

	result, err := s.client.SignedURL(ctx, s.bucket, object, SignedURLOptions{
		Upload: &UploadOptions{
			Method:              httpMethodPut,
			ContentType:         req.ContentType,
			AllowedContentTypes: s.allowed,
			MaxSize:             maxSize,
			ExpiresIn:           s.expiry,
		},
	})
	if err != nil {
		return domain.SignedUploadResponse{}, err
	}

	return domain.SignedUploadResponse{
		ItemID:    req.ItemID,
		URL:       result.URL,
		ExpiresAt: result.ExpiresAt,
		Method:    result.Method,
		Headers:   textutil.NormalizeStringMap(result.Headers),
	}, nil
}

var _ services.UploadSigner = (*BatchUploadSigner)(nil)
