package repositories

import (
	"context"
	"time"

	domain "github.com/printlane/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// BatchRepository persists document batches with optimistic locking guarantees.
// Update compares the stored UpdatedAt against expectedUpdatedAt and must return
// a conflict RepositoryError when they differ.
type BatchRepository interface {
	Insert(ctx context.Context, batch domain.DocumentBatch) (domain.DocumentBatch, error)
	Update(ctx context.Context, batch domain.DocumentBatch, expectedUpdatedAt time.Time) (domain.DocumentBatch, error)
	FindByID(ctx context.Context, batchID string) (domain.DocumentBatch, error)
	ListByOwner(ctx context.Context, ownerID string, pager domain.Pagination) (domain.CursorPage[domain.DocumentBatch], error)
}

// PrintJobRepository persists print jobs and their status transitions.
type PrintJobRepository interface {
	Insert(ctx context.Context, job domain.PrintJob) (domain.PrintJob, error)
	FindByID(ctx context.Context, jobID string) (domain.PrintJob, error)
	UpdateStatus(ctx context.Context, jobID string, update PrintJobStatusUpdate) (domain.PrintJob, error)
}

// PrintJobStatusUpdate carries the fields mutated during a status transition.
type PrintJobStatusUpdate struct {
	Status      domain.PrintJobStatus
	SheetRefs   []string
	Error       string
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
