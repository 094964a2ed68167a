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

var (
	errBatchRepositoryRequired = errors.New("batch service: repository is required")
	errBatchEngineRequired     = errors.New("batch service: pairing engine is required")
)

// ErrBatchInvalidInput indicates the caller supplied invalid input.
var ErrBatchInvalidInput = errors.New("batch service: invalid input")

// ErrBatchNotFound indicates the requested batch or item does not exist for the caller.
var ErrBatchNotFound = errors.New("batch service: not found")

// ErrBatchConflict indicates the batch changed underneath a concurrent update.
var ErrBatchConflict = errors.New("batch service: conflict")

// ErrBatchUnavailable indicates the batch service cannot fulfil the request due to backend issues.
var ErrBatchUnavailable = errors.New("batch service: unavailable")

// ErrBatchWrongState indicates an operation arrived in a wizard step that does not allow it.
var ErrBatchWrongState = errors.New("batch service: operation not allowed in current state")

// BatchServiceDeps wires the repository, gate, engine, and ambient dependencies.
type BatchServiceDeps struct {
	Repository  repositories.BatchRepository
	Guard       *AdmissionGuard
	Engine      *PairingEngine
	Signer      UploadSigner
	Clock       func() time.Time
	Logger      func(ctx context.Context, event string, fields map[string]any)
	IDGenerator func() string
}

type batchService struct {
	repo   repositories.BatchRepository
	guard  *AdmissionGuard
	engine *PairingEngine
	signer UploadSigner
	now    func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewBatchService constructs a BatchService enforcing dependency validation.
func NewBatchService(deps BatchServiceDeps) (BatchService, error) {
	if deps.Repository == nil {
		return nil, errBatchRepositoryRequired
	}
	if deps.Engine == nil {
		return nil, errBatchEngineRequired
	}

	guard := deps.Guard
	if guard == nil {
		guard = NewAdmissionGuard(AdmissionGuardConfig{})
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

	return &batchService{
		repo:   deps.Repository,
		guard:  guard,
		engine: deps.Engine,
		signer: deps.Signer,
		now:    func() time.Time { return clock().UTC() },
		newID:  newID,
		logger: logger,
	}, nil
}

func (s *batchService) CreateBatch(ctx context.Context, ownerID string) (DocumentBatch, error) {
	owner := strings.TrimSpace(ownerID)
	if owner == "" {
		return DocumentBatch{}, fmt.Errorf("%w: owner id is required", ErrBatchInvalidInput)
	}

	now := s.now()
	batch := DocumentBatch{
		ID:        s.newID(),
		OwnerID:   owner,
		Status:    domain.BatchCollecting,
		Items:     []BatchItem{},
		Paired:    []Pair{},
		Unpaired:  []PairCandidate{},
		Singles:   []Document{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	saved, err := s.repo.Insert(ctx, batch)
	if err != nil {
		return DocumentBatch{}, s.translateRepoError(err)
	}

	s.logger(ctx, "batch.created", map[string]any{"batchId": saved.ID, "ownerId": owner})
	return saved, nil
}

func (s *batchService) GetBatch(ctx context.Context, ownerID, batchID string) (DocumentBatch, error) {
	return s.loadOwnedBatch(ctx, ownerID, batchID)
}

func (s *batchService) ListBatches(ctx context.Context, ownerID string, pager Pagination) (domain.CursorPage[DocumentBatch], error) {
	owner := strings.TrimSpace(ownerID)
	if owner == "" {
		return domain.CursorPage[DocumentBatch]{}, fmt.Errorf("%w: owner id is required", ErrBatchInvalidInput)
	}
	page, err := s.repo.ListByOwner(ctx, owner, pager)
	if err != nil {
		return domain.CursorPage[DocumentBatch]{}, s.translateRepoError(err)
	}
	return page, nil
}

// AdmitFiles runs the admission gate and queues the admitted files as batch
// items, issuing a signed upload URL for each. Individually invalid files are
// dropped with reasons; a batch-limit violation admits nothing.
func (s *batchService) AdmitFiles(ctx context.Context, cmd AdmitFilesCommand) (AdmissionOutcome, error) {
	batch, err := s.loadOwnedBatch(ctx, cmd.OwnerID, cmd.BatchID)
	if err != nil {
		return AdmissionOutcome{}, err
	}
	if batch.Status != domain.BatchCollecting {
		return AdmissionOutcome{}, fmt.Errorf("%w: batch %s is no longer collecting uploads", ErrBatchWrongState, batch.ID)
	}
	if len(cmd.Files) == 0 {
		return AdmissionOutcome{}, fmt.Errorf("%w: no files submitted", ErrBatchInvalidInput)
	}

	filtered, err := s.guard.FilterBatch(cmd.Files, len(batch.Items))
	if err != nil {
		s.logger(ctx, "batch.admission_rejected", map[string]any{
			"batchId":  batch.ID,
			"incoming": len(cmd.Files),
			"queued":   len(batch.Items),
		})
		return AdmissionOutcome{}, err
	}

	now := s.now()
	uploads := make([]SignedUploadResponse, 0, len(filtered.Admitted))
	for _, file := range filtered.Admitted {
		item := BatchItem{
			ID:          s.newID(),
			FileName:    strings.TrimSpace(file.Name),
			ContentType: strings.ToLower(strings.TrimSpace(file.ContentType)),
			SizeBytes:   file.SizeBytes,
			Status:      domain.BatchItemQueued,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if s.signer != nil {
			signed, err := s.signer.SignUpload(ctx, SignUploadRequest{
				OwnerID:     batch.OwnerID,
				BatchID:     batch.ID,
				ItemID:      item.ID,
				FileName:    item.FileName,
				ContentType: item.ContentType,
				SizeBytes:   item.SizeBytes,
			})
			if err != nil {
				s.logger(ctx, "batch.sign_upload_failed", map[string]any{
					"batchId": batch.ID,
					"itemId":  item.ID,
					"error":   err.Error(),
				})
				return AdmissionOutcome{}, ErrBatchUnavailable
			}
			signed.ItemID = item.ID
			uploads = append(uploads, signed)
		} else {
			uploads = append(uploads, SignedUploadResponse{ItemID: item.ID})
		}

		batch.Items = append(batch.Items, item)
	}

	saved, err := s.persist(ctx, batch)
	if err != nil {
		return AdmissionOutcome{}, err
	}

	s.logger(ctx, "batch.files_admitted", map[string]any{
		"batchId":  saved.ID,
		"admitted": len(filtered.Admitted),
		"rejected": len(filtered.Rejected),
	})

	return AdmissionOutcome{Batch: saved, Admitted: uploads, Rejected: filtered.Rejected}, nil
}

// RecordClassification applies one classifier result or failure to its batch
// item. The pipeline processes items one at a time so a failure is isolated to
// that item: it is marked failed and the rest of the batch proceeds.
func (s *batchService) RecordClassification(ctx context.Context, cmd RecordClassificationCommand) (DocumentBatch, error) {
	batch, err := s.loadOwnedBatch(ctx, cmd.OwnerID, cmd.BatchID)
	if err != nil {
		return DocumentBatch{}, err
	}

	idx := indexOfItem(batch.Items, cmd.ItemID)
	if idx < 0 {
		return DocumentBatch{}, fmt.Errorf("%w: item %q", ErrBatchNotFound, cmd.ItemID)
	}

	now := s.now()
	item := &batch.Items[idx]

	if failure := strings.TrimSpace(cmd.Failure); failure != "" {
		item.Status = domain.BatchItemFailed
		item.FailureReason = failure
		item.Document = nil
		item.UpdatedAt = now
		s.logger(ctx, "batch.item_failed", map[string]any{
			"batchId": batch.ID,
			"itemId":  item.ID,
			"reason":  failure,
		})
		return s.persist(ctx, batch)
	}

	if cmd.Result == nil {
		return DocumentBatch{}, fmt.Errorf("%w: classification result or failure is required", ErrBatchInvalidInput)
	}

	docID := strings.TrimSpace(cmd.Result.ID)
	if docID == "" {
		docID = item.ID
	}
	rotation := cmd.Result.Rotation
	if !rotation.Valid() {
		rotation = domain.Rotation0
	}

	doc := Document{
		ID:           docID,
		Type:         domain.ResolveDocumentType(cmd.Result.DetectedType),
		QualityScore: clampScore(cmd.Result.QualityScore),
		Rotation:     rotation,
		ImageRef:     strings.TrimSpace(cmd.Result.ImageRef),
		CreatedAt:    now,
	}

	item.Status = domain.BatchItemClassified
	item.FailureReason = ""
	item.Document = &doc
	item.UpdatedAt = now

	return s.persist(ctx, batch)
}

// SeedPairing applies the external auto-pairing result to the classified items
// and moves the batch into the review stage. Failed items are excluded.
func (s *batchService) SeedPairing(ctx context.Context, cmd SeedPairingCommand) (DocumentBatch, error) {
	batch, err := s.loadOwnedBatch(ctx, cmd.OwnerID, cmd.BatchID)
	if err != nil {
		return DocumentBatch{}, err
	}
	if batch.Status == domain.BatchFinalized {
		return DocumentBatch{}, fmt.Errorf("%w: batch %s is already finalized", ErrBatchWrongState, batch.ID)
	}

	classified := make([]ClassifiedDocument, 0, len(batch.Items))
	for _, item := range batch.Items {
		if item.Status != domain.BatchItemClassified || item.Document == nil {
			continue
		}
		classified = append(classified, ClassifiedDocument{
			ID:           item.Document.ID,
			DetectedType: item.Document.Type.Tag,
			QualityScore: item.Document.QualityScore,
			Rotation:     item.Document.Rotation,
			ImageRef:     item.Document.ImageRef,
		})
	}

	outcome, err := s.engine.Seed(ctx, classified, cmd.Auto)
	if err != nil {
		return DocumentBatch{}, err
	}

	batch.Paired = outcome.Paired
	batch.Unpaired = outcome.Unpaired
	batch.Singles = outcome.Singles
	batch.Selection = domain.PairingSelection{}
	batch.Status = domain.BatchReviewing
	batch.Layout = nil

	return s.persist(ctx, batch)
}

func (s *batchService) SelectCandidate(ctx context.Context, cmd SelectCandidateCommand) (SelectOutcome, error) {
	batch, err := s.loadReviewingBatch(ctx, cmd.OwnerID, cmd.BatchID)
	if err != nil {
		return SelectOutcome{}, err
	}

	pair, selectErr := s.engine.Select(ctx, &batch, cmd.DocumentID)
	if selectErr != nil {
		if errors.Is(selectErr, ErrPairingNotFound) {
			// No-op on state; surface the warning without persisting.
			return SelectOutcome{}, selectErr
		}
		// Incompatible attempt: the selection was cleared, so persist that.
		if _, persistErr := s.persist(ctx, batch); persistErr != nil {
			return SelectOutcome{}, persistErr
		}
		return SelectOutcome{}, selectErr
	}

	saved, err := s.persist(ctx, batch)
	if err != nil {
		return SelectOutcome{}, err
	}
	return SelectOutcome{Batch: saved, Pair: pair}, nil
}

func (s *batchService) PairDocuments(ctx context.Context, cmd PairDocumentsCommand) (DocumentBatch, error) {
	batch, err := s.loadReviewingBatch(ctx, cmd.OwnerID, cmd.BatchID)
	if err != nil {
		return DocumentBatch{}, err
	}

	if _, err := s.engine.Pair(ctx, &batch, cmd.FrontID, cmd.BackID); err != nil {
		return DocumentBatch{}, err
	}

	return s.persist(ctx, batch)
}

func (s *batchService) UnpairDocuments(ctx context.Context, cmd UnpairCommand) (DocumentBatch, error) {
	batch, err := s.loadReviewingBatch(ctx, cmd.OwnerID, cmd.BatchID)
	if err != nil {
		return DocumentBatch{}, err
	}

	if _, err := s.engine.Unpair(ctx, &batch, cmd.PairID); err != nil {
		return DocumentBatch{}, err
	}

	return s.persist(ctx, batch)
}

// RotateDocument updates the only mutable field of a classified document.
func (s *batchService) RotateDocument(ctx context.Context, cmd RotateDocumentCommand) (DocumentBatch, error) {
	if !cmd.Rotation.Valid() {
		return DocumentBatch{}, fmt.Errorf("%w: rotation must be 0, 90, 180, or 270", ErrBatchInvalidInput)
	}

	batch, err := s.loadOwnedBatch(ctx, cmd.OwnerID, cmd.BatchID)
	if err != nil {
		return DocumentBatch{}, err
	}
	if batch.Status == domain.BatchFinalized {
		return DocumentBatch{}, fmt.Errorf("%w: batch %s is already finalized", ErrBatchWrongState, batch.ID)
	}

	if !rotateDocumentInBatch(&batch, strings.TrimSpace(cmd.DocumentID), cmd.Rotation) {
		return DocumentBatch{}, fmt.Errorf("%w: document %q", ErrBatchNotFound, cmd.DocumentID)
	}

	return s.persist(ctx, batch)
}

func (s *batchService) FinalizeBatch(ctx context.Context, ownerID, batchID string) (FinalizedBatch, error) {
	batch, err := s.loadReviewingBatch(ctx, ownerID, batchID)
	if err != nil {
		return FinalizedBatch{}, err
	}

	snapshot, err := s.engine.Finalize(ctx, &batch)
	if err != nil {
		return FinalizedBatch{}, err
	}

	batch.Status = domain.BatchFinalized
	batch.Selection = domain.PairingSelection{}
	if _, err := s.persist(ctx, batch); err != nil {
		return FinalizedBatch{}, err
	}

	s.logger(ctx, "batch.finalized", map[string]any{
		"batchId": batch.ID,
		"paired":  len(snapshot.Paired),
		"singles": len(snapshot.Singles),
	})

	return snapshot, nil
}

// PlanBatchLayout computes and stores the layout plan. A nil layout applies the
// default heuristic; a user override always recomputes.
func (s *batchService) PlanBatchLayout(ctx context.Context, cmd PlanLayoutCommand) (LayoutPlan, error) {
	batch, err := s.loadOwnedBatch(ctx, cmd.OwnerID, cmd.BatchID)
	if err != nil {
		return LayoutPlan{}, err
	}
	if batch.Status != domain.BatchFinalized {
		return LayoutPlan{}, fmt.Errorf("%w: batch %s is not finalized", ErrBatchWrongState, batch.ID)
	}

	layout := DefaultLayoutType(len(batch.Paired), len(batch.Singles))
	if cmd.Layout != nil {
		layout = *cmd.Layout
	}

	plan, err := PlanLayout(len(batch.Paired), len(batch.Singles), layout)
	if err != nil {
		return LayoutPlan{}, fmt.Errorf("%w: %v", ErrBatchInvalidInput, err)
	}

	batch.Layout = &plan
	if _, err := s.persist(ctx, batch); err != nil {
		return LayoutPlan{}, err
	}

	return plan, nil
}

func (s *batchService) loadOwnedBatch(ctx context.Context, ownerID, batchID string) (DocumentBatch, error) {
	owner := strings.TrimSpace(ownerID)
	if owner == "" {
		return DocumentBatch{}, fmt.Errorf("%w: owner id is required", ErrBatchInvalidInput)
	}
	id := strings.TrimSpace(batchID)
	if id == "" {
		return DocumentBatch{}, fmt.Errorf("%w: batch id is required", ErrBatchInvalidInput)
	}

	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return DocumentBatch{}, s.translateRepoError(err)
	}
	if batch.OwnerID != owner {
		return DocumentBatch{}, fmt.Errorf("%w: batch %q", ErrBatchNotFound, id)
	}
	return batch, nil
}

func (s *batchService) loadReviewingBatch(ctx context.Context, ownerID, batchID string) (DocumentBatch, error) {
	batch, err := s.loadOwnedBatch(ctx, ownerID, batchID)
	if err != nil {
		return DocumentBatch{}, err
	}
	if batch.Status != domain.BatchReviewing {
		return DocumentBatch{}, fmt.Errorf("%w: batch %s is not in review", ErrBatchWrongState, batch.ID)
	}
	return batch, nil
}

func (s *batchService) persist(ctx context.Context, batch DocumentBatch) (DocumentBatch, error) {
	expected := batch.UpdatedAt
	batch.UpdatedAt = s.now()
	saved, err := s.repo.Update(ctx, batch, expected)
	if err != nil {
		return DocumentBatch{}, s.translateRepoError(err)
	}
	return saved, nil
}

func (s *batchService) translateRepoError(err error) error {
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
			return ErrBatchNotFound
		case repoErr.IsConflict():
			return ErrBatchConflict
		case repoErr.IsUnavailable():
			return ErrBatchUnavailable
		}
	}
	return ErrBatchUnavailable
}

func indexOfItem(items []BatchItem, itemID string) int {
	target := strings.TrimSpace(itemID)
	if target == "" {
		return -1
	}
	for i, item := range items {
		if item.ID == target {
			return i
		}
	}
	return -1
}

func rotateDocumentInBatch(batch *DocumentBatch, documentID string, rotation Rotation) bool {
	if documentID == "" {
		return false
	}
	found := false
	apply := func(doc *Document) {
		if doc != nil && doc.ID == documentID {
			doc.Rotation = rotation
			found = true
		}
	}

	for i := range batch.Items {
		apply(batch.Items[i].Document)
	}
	for i := range batch.Paired {
		apply(&batch.Paired[i].Front)
		apply(&batch.Paired[i].Back)
	}
	for i := range batch.Unpaired {
		apply(&batch.Unpaired[i].Document)
	}
	for i := range batch.Singles {
		apply(&batch.Singles[i])
	}
	return found
}
