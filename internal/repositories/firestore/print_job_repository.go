package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/printlane/api/internal/domain"
	pfirestore "github.com/printlane/api/internal/platform/firestore"
	"github.com/printlane/api/internal/repositories"
)

const printJobCollection = "printJobs"

// PrintJobRepository persists print jobs within Firestore.
type PrintJobRepository struct {
	base *pfirestore.BaseRepository[printJobDocument]
}

var _ repositories.PrintJobRepository = (*PrintJobRepository)(nil)

// NewPrintJobRepository constructs a Firestore-backed print job repository.
func NewPrintJobRepository(provider *pfirestore.Provider) (*PrintJobRepository, error) {
	if provider == nil {
		return nil, errors.New("print job repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[printJobDocument](provider, printJobCollection, nil, nil)
	return &PrintJobRepository{base: base}, nil
}

type printJobDocument struct {
	BatchID     string         `firestore:"batchId"`
	OwnerUID    string         `firestore:"ownerUid"`
	Layout      layoutDocument `firestore:"layout"`
	Status      string         `firestore:"status"`
	SheetRefs   []string       `firestore:"sheetRefs,omitempty"`
	Error       string         `firestore:"error,omitempty"`
	CreatedAt   time.Time      `firestore:"createdAt"`
	UpdatedAt   time.Time      `firestore:"updatedAt"`
	CompletedAt *time.Time     `firestore:"completedAt,omitempty"`
}

// Insert stores a new job document keyed by the job identifier.
func (r *PrintJobRepository) Insert(ctx context.Context, job domain.PrintJob) (domain.PrintJob, error) {
	if r == nil || r.base == nil {
		return domain.PrintJob{}, errors.New("print job repository not initialised")
	}
	jobID := strings.TrimSpace(job.ID)
	if jobID == "" {
		return domain.PrintJob{}, errors.New("print job repository: job id is required")
	}

	doc := encodePrintJob(job)
	if _, err := r.base.Set(ctx, jobID, doc); err != nil {
		return domain.PrintJob{}, err
	}

	saved := job
	saved.ID = jobID
	return saved, nil
}

// FindByID loads a job by identifier.
func (r *PrintJobRepository) FindByID(ctx context.Context, jobID string) (domain.PrintJob, error) {
	if r == nil || r.base == nil {
		return domain.PrintJob{}, errors.New("print job repository not initialised")
	}
	id := strings.TrimSpace(jobID)
	if id == "" {
		return domain.PrintJob{}, errors.New("print job repository: job id is required")
	}

	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.PrintJob{}, err
	}
	return decodePrintJob(doc.ID, doc.Data), nil
}

// UpdateStatus applies a status transition as a partial update.
func (r *PrintJobRepository) UpdateStatus(ctx context.Context, jobID string, update repositories.PrintJobStatusUpdate) (domain.PrintJob, error) {
	if r == nil || r.base == nil {
		return domain.PrintJob{}, errors.New("print job repository not initialised")
	}
	id := strings.TrimSpace(jobID)
	if id == "" {
		return domain.PrintJob{}, errors.New("print job repository: job id is required")
	}

	updates := []firestore.Update{
		{Path: "status", Value: string(update.Status)},
		{Path: "updatedAt", Value: update.UpdatedAt.UTC()},
	}
	if len(update.SheetRefs) > 0 {
		updates = append(updates, firestore.Update{Path: "sheetRefs", Value: update.SheetRefs})
	}
	if strings.TrimSpace(update.Error) == "" {
		updates = append(updates, firestore.Update{Path: "error", Value: firestore.Delete})
	} else {
		updates = append(updates, firestore.Update{Path: "error", Value: strings.TrimSpace(update.Error)})
	}
	if update.CompletedAt != nil {
		completedAt := update.CompletedAt.UTC()
		updates = append(updates, firestore.Update{Path: "completedAt", Value: completedAt})
	}

	if _, err := r.base.Update(ctx, id, updates); err != nil {
		return domain.PrintJob{}, err
	}

	return r.FindByID(ctx, id)
}

func encodePrintJob(job domain.PrintJob) printJobDocument {
	doc := printJobDocument{
		BatchID:  strings.TrimSpace(job.BatchID),
		OwnerUID: strings.TrimSpace(job.OwnerID),
		Layout: layoutDocument{
			LayoutType:   string(job.Layout.LayoutType),
			TotalPages:   job.Layout.TotalPages,
			SlotsPerPage: job.Layout.SlotsPerPage,
		},
		Status:    string(job.Status),
		SheetRefs: job.SheetRefs,
		Error:     strings.TrimSpace(job.Error),
		CreatedAt: job.CreatedAt.UTC(),
		UpdatedAt: job.UpdatedAt.UTC(),
	}
	if job.CompletedAt != nil {
		completedAt := job.CompletedAt.UTC()
		doc.CompletedAt = &completedAt
	}
	return doc
}

func decodePrintJob(id string, doc printJobDocument) domain.PrintJob {
	job := domain.PrintJob{
		ID:      id,
		BatchID: doc.BatchID,
		OwnerID: doc.OwnerUID,
		Layout: domain.LayoutPlan{
			LayoutType:   domain.LayoutType(doc.Layout.LayoutType),
			TotalPages:   doc.Layout.TotalPages,
			SlotsPerPage: doc.Layout.SlotsPerPage,
		},
		Status:    domain.PrintJobStatus(doc.Status),
		SheetRefs: doc.SheetRefs,
		Error:     doc.Error,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	if doc.CompletedAt != nil {
		completedAt := *doc.CompletedAt
		job.CompletedAt = &completedAt
	}
	return job
}
