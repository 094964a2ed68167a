package services

import (
	"errors"
	"fmt"
	"strings"

	domain "github.com/printlane/api/internal/domain"
)

const (
	defaultMaxUploadSize  = int64(50 * 1024 * 1024) // 50 MiB
	defaultMaxQueueLength = 200
)

// ErrBatchLimitExceeded rejects an incoming batch whose admission would overflow
// the processing queue. Batch rejection is all-or-nothing: none of the incoming
// files are admitted, including individually valid ones.
var ErrBatchLimitExceeded = errors.New("admission: batch limit exceeded")

// admittedContentTypes is the closed set of upload types the pipeline accepts.
var admittedContentTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/jpg":       {},
	"image/png":       {},
	"application/pdf": {},
}

// AdmissionGuard applies the file-type, size, and batch-size gates in front of
// the upload pipeline. It is stateless; the current queue length is an input.
type AdmissionGuard struct {
	maxSizeBytes   int64
	maxQueueLength int
}

// AdmissionGuardConfig overrides the default ceilings; zero values keep defaults.
type AdmissionGuardConfig struct {
	MaxSizeBytes   int64
	MaxQueueLength int
}

// NewAdmissionGuard constructs the guard with the configured ceilings.
func NewAdmissionGuard(cfg AdmissionGuardConfig) *AdmissionGuard {
	maxSize := cfg.MaxSizeBytes
	if maxSize <= 0 {
		maxSize = defaultMaxUploadSize
	}
	maxQueue := cfg.MaxQueueLength
	if maxQueue <= 0 {
		maxQueue = defaultMaxQueueLength
	}
	return &AdmissionGuard{maxSizeBytes: maxSize, maxQueueLength: maxQueue}
}

// AcceptType reports whether the content type is one of the admitted upload types.
func (g *AdmissionGuard) AcceptType(contentType string) bool {
	_, ok := admittedContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
	return ok
}

// AcceptSize reports whether the file size is positive and under the ceiling.
func (g *AdmissionGuard) AcceptSize(sizeBytes int64) bool {
	return sizeBytes > 0 && sizeBytes <= g.maxSizeBytes
}

// AcceptBatch reports whether admitting incomingCount files on top of the
// already queued items stays within the queue ceiling.
func (g *AdmissionGuard) AcceptBatch(incomingCount, queuedCount int) bool {
	if incomingCount < 0 || queuedCount < 0 {
		return false
	}
	return incomingCount+queuedCount <= g.maxQueueLength
}

// FilterResult reports the per-file admission decisions for one upload gesture.
type FilterResult struct {
	Admitted []FileDescriptor
	Rejected []RejectedFile
}

// FilterBatch runs the full admission sequence: each file passes the type and
// size gates individually (invalid files are dropped with a reason), then the
// valid subset is checked against the batch ceiling. A batch-limit violation
// returns ErrBatchLimitExceeded and admits nothing.
func (g *AdmissionGuard) FilterBatch(files []FileDescriptor, queuedCount int) (FilterResult, error) {
	result := FilterResult{}

	for _, file := range files {
		switch {
		case !g.AcceptType(file.ContentType):
			result.Rejected = append(result.Rejected, RejectedFile{
				File:    file,
				Reason:  domain.AdmissionInvalidType,
				Message: fmt.Sprintf("%s: content type %q is not supported", file.Name, file.ContentType),
			})
		case !g.AcceptSize(file.SizeBytes):
			result.Rejected = append(result.Rejected, RejectedFile{
				File:    file,
				Reason:  domain.AdmissionTooLarge,
				Message: fmt.Sprintf("%s: file exceeds the %d byte limit", file.Name, g.maxSizeBytes),
			})
		default:
			result.Admitted = append(result.Admitted, file)
		}
	}

	if len(result.Admitted) > 0 && !g.AcceptBatch(len(result.Admitted), queuedCount) {
		return FilterResult{Rejected: result.Rejected}, fmt.Errorf(
			"%w: %d incoming plus %d queued exceeds limit of %d",
			ErrBatchLimitExceeded, len(result.Admitted), queuedCount, g.maxQueueLength,
		)
	}

	return result, nil
}
