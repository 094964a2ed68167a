package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/printlane/api/internal/domain"
	"github.com/printlane/api/internal/repositories"
)

const defaultWatchInterval = 2 * time.Second

var (
	errPrintJobRepositoryRequired = errors.New("print job service: repository is required")
	errPrintJobPublisherRequired  = errors.New("print job service: publisher is required")
)

// ErrPrintJobInvalidInput indicates the caller supplied invalid input.
var ErrPrintJobInvalidInput = errors.New("print job service: invalid input")

// ErrPrintJobNotFound indicates the requested job does not exist for the caller.
var ErrPrintJobNotFound = errors.New("print job service: not found")

// ErrPrintJobUnavailable indicates the persistence or dispatch backend failed.
var ErrPrintJobUnavailable = errors.New("print job service: unavailable")

// ErrPrintJobTerminal indicates a render event arrived for a job already in a terminal state.
var ErrPrintJobTerminal = errors.New("print job service: job already terminal")

// PrintJobServiceDeps wires persistence, dispatch, and ambient dependencies.
type PrintJobServiceDeps struct {
	Repository    repositories.PrintJobRepository
	Publisher     RenderJobPublisher
	Clock         func() time.Time
	Logger        func(ctx context.Context, event string, fields map[string]any)
	IDGenerator   func() string
	WatchInterval time.Duration
}

type printJobService struct {
	repo      repositories.PrintJobRepository
	publisher RenderJobPublisher
	now       func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
	interval  time.Duration
}

// NewPrintJobService constructs a PrintJobService enforcing dependency validation.
func NewPrintJobService(deps PrintJobServiceDeps) (PrintJobService, error) {
	if deps.Repository == nil {
		return nil, errPrintJobRepositoryRequired
	}
	if deps.Publisher == nil {
		return nil, errPrintJobPublisherRequired
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	interval := deps.WatchInterval
	if interval <= 0 {
		interval = defaultWatchInterval
	}

	return &printJobService{
		repo:      deps.Repository,
		publisher: deps.Publisher,
		now:       func() time.Time { return clock().UTC() },
		newID:     newID,
		logger:    logger,
		interval:  interval,
	}, nil
}

// CreateJob persists a queued job for a finalized batch and dispatches the
// render request. Rasterization happens externally; the service only tracks it.
func (s *printJobService) CreateJob(ctx context.Context, cmd CreatePrintJobCommand) (PrintJob, error) {
	owner := strings.TrimSpace(cmd.OwnerID)
	if owner == "" {
		return PrintJob{}, fmt.Errorf("%w: owner id is required", ErrPrintJobInvalidInput)
	}
	batchID := strings.TrimSpace(cmd.BatchID)
	if batchID == "" {
		return PrintJob{}, fmt.Errorf("%w: batch id is required", ErrPrintJobInvalidInput)
	}
	if cmd.Plan.TotalPages < 0 || cmd.Plan.SlotsPerPage <= 0 {
		return PrintJob{}, fmt.Errorf("%w: layout plan is malformed", ErrPrintJobInvalidInput)
	}

	now := s.now()
	job := PrintJob{
		ID:        s.newID(),
		BatchID:   batchID,
		OwnerID:   owner,
		Layout:    cmd.Plan,
		Status:    domain.PrintJobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	saved, err := s.repo.Insert(ctx, job)
	if err != nil {
		return PrintJob{}, s.translateRepoError(err)
	}

	messageID, err := s.publisher.PublishRenderJob(ctx, RenderJobMessage{
		JobID:        saved.ID,
		BatchID:      saved.BatchID,
		OwnerID:      saved.OwnerID,
		LayoutType:   string(saved.Layout.LayoutType),
		TotalPages:   saved.Layout.TotalPages,
		SlotsPerPage: saved.Layout.SlotsPerPage,
	})
	if err != nil {
		s.logger(ctx, "printjob.dispatch_failed", map[string]any{
			"jobId": saved.ID,
			"error": err.Error(),
		})
		failed, updateErr := s.repo.UpdateStatus(ctx, saved.ID, repositories.PrintJobStatusUpdate{
			Status:    domain.PrintJobFailed,
			Error:     "render dispatch failed",
			UpdatedAt: s.now(),
		})
		if updateErr != nil {
			return PrintJob{}, s.translateRepoError(updateErr)
		}
		return failed, ErrPrintJobUnavailable
	}

	s.logger(ctx, "printjob.dispatched", map[string]any{
		"jobId":     saved.ID,
		"batchId":   saved.BatchID,
		"messageId": messageID,
		"pages":     saved.Layout.TotalPages,
	})

	return saved, nil
}

func (s *printJobService) GetJob(ctx context.Context, ownerID, jobID string) (PrintJob, error) {
	return s.loadOwnedJob(ctx, ownerID, jobID)
}

// RecordRenderEvent applies a renderer callback. Terminal states are immutable:
// late or duplicate events after completion/failure are refused.
func (s *printJobService) RecordRenderEvent(ctx context.Context, cmd RenderEventCommand) (PrintJob, error) {
	jobID := strings.TrimSpace(cmd.JobID)
	if jobID == "" {
		return PrintJob{}, fmt.Errorf("%w: job id is required", ErrPrintJobInvalidInput)
	}
	switch cmd.Status {
	case domain.PrintJobRendering, domain.PrintJobCompleted, domain.PrintJobFailed:
	default:
		return PrintJob{}, fmt.Errorf("%w: status %q is not a renderer event", ErrPrintJobInvalidInput, cmd.Status)
	}

	job, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return PrintJob{}, s.translateRepoError(err)
	}
	if job.Status.Terminal() {
		return PrintJob{}, fmt.Errorf("%w: job %s is %s", ErrPrintJobTerminal, job.ID, job.Status)
	}

	now := s.now()
	update := repositories.PrintJobStatusUpdate{
		Status:    cmd.Status,
		SheetRefs: cmd.SheetRefs,
		Error:     strings.TrimSpace(cmd.Error),
		UpdatedAt: now,
	}
	if cmd.Status.Terminal() {
		update.CompletedAt = &now
	}

	saved, err := s.repo.UpdateStatus(ctx, jobID, update)
	if err != nil {
		return PrintJob{}, s.translateRepoError(err)
	}

	s.logger(ctx, "printjob.status", map[string]any{
		"jobId":  saved.ID,
		"status": string(saved.Status),
	})

	return saved, nil
}

// Watch returns a subscription that delivers status changes until the job
// reaches a terminal state or the context is cancelled. The channel closes in
// either case; the polling loop never outlives the caller.
func (s *printJobService) Watch(ctx context.Context, ownerID, jobID string) (<-chan PrintJobUpdate, error) {
	job, err := s.loadOwnedJob(ctx, ownerID, jobID)
	if err != nil {
		return nil, err
	}

	updates := make(chan PrintJobUpdate, 1)

	go func() {
		defer close(updates)

		last := job
		if !deliver(ctx, updates, PrintJobUpdate{Job: last, Terminal: last.Status.Terminal()}) {
			return
		}
		if last.Status.Terminal() {
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			current, err := s.repo.FindByID(ctx, job.ID)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				s.logger(ctx, "printjob.watch_poll_failed", map[string]any{
					"jobId": job.ID,
					"error": err.Error(),
				})
				continue
			}

			if current.Status == last.Status && current.UpdatedAt.Equal(last.UpdatedAt) {
				continue
			}
			last = current

			if !deliver(ctx, updates, PrintJobUpdate{Job: current, Terminal: current.Status.Terminal()}) {
				return
			}
			if current.Status.Terminal() {
				return
			}
		}
	}()

	return updates, nil
}

func deliver(ctx context.Context, ch chan<- PrintJobUpdate, update PrintJobUpdate) bool {
	select {
	case ch <- update:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *printJobService) loadOwnedJob(ctx context.Context, ownerID, jobID string) (PrintJob, error) {
	owner := strings.TrimSpace(ownerID)
	if owner == "" {
		return PrintJob{}, fmt.Errorf("%w: owner id is required", ErrPrintJobInvalidInput)
	}
	id := strings.TrimSpace(jobID)
	if id == "" {
		return PrintJob{}, fmt.Errorf("%w: job id is required", ErrPrintJobInvalidInput)
	}

	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return PrintJob{}, s.translateRepoError(err)
	}
	if job.OwnerID != owner {
		return PrintJob{}, fmt.Errorf("%w: job %q", ErrPrintJobNotFound, id)
	}
	return job, nil
}

func (s *printJobService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrPrintJobNotFound
		case repoErr.IsUnavailable():
			return ErrPrintJobUnavailable
		}
		return ErrPrintJobUnavailable
	}
	return ErrPrintJobUnavailable
}
