package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domain "github.com/printlane/api/internal/domain"
	"github.com/printlane/api/internal/repositories"
)

type stubRepoError struct {
	notFound bool
	conflict bool
}

func (e *stubRepoError) Error() string    { return "stub repository error" }
func (e *stubRepoError) IsNotFound() bool { return e.notFound }
func (e *stubRepoError) IsConflict() bool { return e.conflict }
func (e *stubRepoError) IsUnavailable() bool {
	return !e.notFound && !e.conflict
}

type stubBatchRepository struct {
	batches map[string]DocumentBatch
	updates int
}

func newStubBatchRepository() *stubBatchRepository {
	return &stubBatchRepository{batches: map[string]DocumentBatch{}}
}

func (r *stubBatchRepository) Insert(_ context.Context, batch DocumentBatch) (DocumentBatch, error) {
	r.batches[batch.ID] = batch
	return batch, nil
}

func (r *stubBatchRepository) Update(_ context.Context, batch DocumentBatch, expectedUpdatedAt time.Time) (DocumentBatch, error) {
	stored, ok := r.batches[batch.ID]
	if !ok {
		return DocumentBatch{}, &stubRepoError{notFound: true}
	}
	if !stored.UpdatedAt.Equal(expectedUpdatedAt) {
		return DocumentBatch{}, &stubRepoError{conflict: true}
	}
	r.batches[batch.ID] = batch
	r.updates++
	return batch, nil
}

func (r *stubBatchRepository) FindByID(_ context.Context, batchID string) (DocumentBatch, error) {
	batch, ok := r.batches[batchID]
	if !ok {
		return DocumentBatch{}, &stubRepoError{notFound: true}
	}
	return batch, nil
}

func (r *stubBatchRepository) ListByOwner(_ context.Context, ownerID string, _ Pagination) (domain.CursorPage[DocumentBatch], error) {
	page := domain.CursorPage[DocumentBatch]{}
	for _, batch := range r.batches {
		if batch.OwnerID == ownerID {
			page.Items = append(page.Items, batch)
		}
	}
	return page, nil
}

var _ repositories.BatchRepository = (*stubBatchRepository)(nil)

type stubSigner struct {
	fail  bool
	calls []SignUploadRequest
}

func (s *stubSigner) SignUpload(_ context.Context, req SignUploadRequest) (SignedUploadResponse, error) {
	if s.fail {
		return SignedUploadResponse{}, errors.New("signer unavailable")
	}
	s.calls = append(s.calls, req)
	return SignedUploadResponse{
		ItemID: req.ItemID,
		URL:    "https://storage.example.com/" + req.ItemID,
		Method: "PUT",
	}, nil
}

func newTestBatchService(t *testing.T, repo repositories.BatchRepository, signer UploadSigner) BatchService {
	t.Helper()
	seq := 0
	svc, err := NewBatchService(BatchServiceDeps{
		Repository: repo,
		Engine:     newTestEngine(),
		Signer:     signer,
		Clock:      func() time.Time { return time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC) },
		IDGenerator: func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		},
	})
	if err != nil {
		t.Fatalf("NewBatchService: %v", err)
	}
	return svc
}

func TestNewBatchServiceValidatesDeps(t *testing.T) {
	if _, err := NewBatchService(BatchServiceDeps{Engine: newTestEngine()}); err == nil {
		t.Fatalf("expected error without repository")
	}
	if _, err := NewBatchService(BatchServiceDeps{Repository: newStubBatchRepository()}); err == nil {
		t.Fatalf("expected error without engine")
	}
}

func TestCreateBatchStartsCollecting(t *testing.T) {
	repo := newStubBatchRepository()
	svc := newTestBatchService(t, repo, nil)

	batch, err := svc.CreateBatch(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	if batch.Status != domain.BatchCollecting {
		t.Fatalf("new batch must start collecting, got %s", batch.Status)
	}
	if batch.ID == "" || batch.OwnerID != "user-1" {
		t.Fatalf("unexpected batch identity %+v", batch)
	}

	if _, err := svc.CreateBatch(context.Background(), "  "); !errors.Is(err, ErrBatchInvalidInput) {
		t.Fatalf("expected ErrBatchInvalidInput for blank owner, got %v", err)
	}
}

func TestGetBatchEnforcesOwnership(t *testing.T) {
	repo := newStubBatchRepository()
	svc := newTestBatchService(t, repo, nil)

	batch, err := svc.CreateBatch(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	if _, err := svc.GetBatch(context.Background(), "user-2", batch.ID); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("foreign owner must see not found, got %v", err)
	}
	if _, err := svc.GetBatch(context.Background(), "user-1", "missing"); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("missing batch must be not found, got %v", err)
	}
}

func TestAdmitFilesQueuesItemsAndSignsUploads(t *testing.T) {
	repo := newStubBatchRepository()
	signer := &stubSigner{}
	svc := newTestBatchService(t, repo, signer)

	batch, err := svc.CreateBatch(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	outcome, err := svc.AdmitFiles(context.Background(), AdmitFilesCommand{
		OwnerID: "user-1",
		BatchID: batch.ID,
		Files: []FileDescriptor{
			{Name: "front.jpg", ContentType: "image/jpeg", SizeBytes: 5000},
			{Name: "notes.txt", ContentType: "text/plain", SizeBytes: 100},
		},
	})
	if err != nil {
		t.Fatalf("AdmitFiles: %v", err)
	}

	if len(outcome.Admitted) != 1 {
		t.Fatalf("expected 1 signed upload, got %d", len(outcome.Admitted))
	}
	if outcome.Admitted[0].URL == "" {
		t.Fatalf("expected a signed URL for the admitted item")
	}
	if len(outcome.Rejected) != 1 || outcome.Rejected[0].Reason != domain.AdmissionInvalidType {
		t.Fatalf("expected the text file rejected, got %+v", outcome.Rejected)
	}
	if len(outcome.Batch.Items) != 1 || outcome.Batch.Items[0].Status != domain.BatchItemQueued {
		t.Fatalf("admitted file must be queued, got %+v", outcome.Batch.Items)
	}
	if len(signer.calls) != 1 || signer.calls[0].FileName != "front.jpg" {
		t.Fatalf("unexpected signer calls %+v", signer.calls)
	}
}

func TestAdmitFilesBatchLimitAdmitsNothing(t *testing.T) {
	repo := newStubBatchRepository()
	svc := newTestBatchService(t, repo, nil)

	batch, err := svc.CreateBatch(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}

	files := make([]FileDescriptor, 201)
	for i := range files {
		files[i] = FileDescriptor{Name: "doc.jpg", ContentType: "image/jpeg", SizeBytes: 100}
	}

	if _, err := svc.AdmitFiles(context.Background(), AdmitFilesCommand{
		OwnerID: "user-1",
		BatchID: batch.ID,
		Files:   files,
	}); !errors.Is(err, ErrBatchLimitExceeded) {
		t.Fatalf("expected ErrBatchLimitExceeded, got %v", err)
	}

	stored, _ := repo.FindByID(context.Background(), batch.ID)
	if len(stored.Items) != 0 {
		t.Fatalf("rejected batch must not queue items, got %d", len(stored.Items))
	}
}

func TestAdmitFilesRequiresCollectingState(t *testing.T) {
	repo := newStubBatchRepository()
	svc := newTestBatchService(t, repo, nil)

	batch, _ := svc.CreateBatch(context.Background(), "user-1")
	stored := repo.batches[batch.ID]
	stored.Status = domain.BatchReviewing
	repo.batches[batch.ID] = stored

	if _, err := svc.AdmitFiles(context.Background(), AdmitFilesCommand{
		OwnerID: "user-1",
		BatchID: batch.ID,
		Files:   []FileDescriptor{{Name: "a.jpg", ContentType: "image/jpeg", SizeBytes: 10}},
	}); !errors.Is(err, ErrBatchWrongState) {
		t.Fatalf("expected ErrBatchWrongState, got %v", err)
	}
}

func admitAndClassify(t *testing.T, svc BatchService, repo *stubBatchRepository, batchID string, tags ...string) []string {
	t.Helper()

	files := make([]FileDescriptor, len(tags))
	for i := range tags {
		files[i] = FileDescriptor{Name: fmt.Sprintf("doc-%d.jpg", i), ContentType: "image/jpeg", SizeBytes: 100}
	}
	if _, err := svc.AdmitFiles(context.Background(), AdmitFilesCommand{OwnerID: "user-1", BatchID: batchID, Files: files}); err != nil {
		t.Fatalf("AdmitFiles: %v", err)
	}

	stored := repo.batches[batchID]
	itemIDs := make([]string, 0, len(tags))
	for _, item := range stored.Items[len(stored.Items)-len(tags):] {
		itemIDs = append(itemIDs, item.ID)
	}

	for i, itemID := range itemIDs {
		if _, err := svc.RecordClassification(context.Background(), RecordClassificationCommand{
			OwnerID: "user-1",
			BatchID: batchID,
			ItemID:  itemID,
			Result:  &ClassifiedDocument{ID: itemID, DetectedType: tags[i], QualityScore: 80},
		}); err != nil {
			t.Fatalf("RecordClassification(%s): %v", itemID, err)
		}
	}
	return itemIDs
}

func TestRecordClassificationFailureIsIsolated(t *testing.T) {
	repo := newStubBatchRepository()
	svc := newTestBatchService(t, repo, nil)

	batch, _ := svc.CreateBatch(context.Background(), "user-1")
	if _, err := svc.AdmitFiles(context.Background(), AdmitFilesCommand{
		OwnerID: "user-1",
		BatchID: batch.ID,
		Files: []FileDescriptor{
			{Name: "a.jpg", ContentType: "image/jpeg", SizeBytes: 100},
			{Name: "b.jpg", ContentType: "image/jpeg", SizeBytes: 100},
		},
	}); err != nil {
		t.Fatalf("AdmitFiles: %v", err)
	}

	stored := repo.batches[batch.ID]
	failedID, okID := stored.Items[0].ID, stored.Items[1].ID

	updated, err := svc.RecordClassification(context.Background(), RecordClassificationCommand{
		OwnerID: "user-1",
		BatchID: batch.ID,
		ItemID:  failedID,
		Failure: "classifier timeout",
	})
	if err != nil {
		t.Fatalf("RecordClassification failure: %v", err)
	}
	if updated.Items[0].Status != domain.BatchItemFailed || updated.Items[0].FailureReason != "classifier timeout" {
		t.Fatalf("failure not recorded: %+v", updated.Items[0])
	}

	updated, err = svc.RecordClassification(context.Background(), RecordClassificationCommand{
		OwnerID: "user-1",
		BatchID: batch.ID,
		ItemID:  okID,
		Result:  &ClassifiedDocument{DetectedType: "pan_card", QualityScore: 90},
	})
	if err != nil {
		t.Fatalf("RecordClassification result: %v", err)
	}
	if updated.Items[1].Status != domain.BatchItemClassified || updated.Items[1].Document == nil {
		t.Fatalf("classification not recorded: %+v", updated.Items[1])
	}
}

func TestSeedPairingMovesBatchToReview(t *testing.T) {
	repo := newStubBatchRepository()
	svc := newTestBatchService(t, repo, nil)

	batch, _ := svc.CreateBatch(context.Background(), "user-1")
	ids := admitAndClassify(t, svc, repo, batch.ID, "aadhaar_front", "aadhaar_back", "pan_card")

	updated, err := svc.SeedPairing(context.Background(), SeedPairingCommand{
		OwnerID: "user-1",
		BatchID: batch.ID,
		Auto: AutoPairResult{
			Paired: []domain.AutoPair{{FrontID: ids[0], BackID: ids[1], Confidence: 90}},
		},
	})
	if err != nil {
		t.Fatalf("SeedPairing: %v", err)
	}
	if updated.Status != domain.BatchReviewing {
		t.Fatalf("expected reviewing status, got %s", updated.Status)
	}
	if len(updated.Paired) != 1 || len(updated.Unpaired) != 0 || len(updated.Singles) != 1 {
		t.Fatalf("unexpected partition: paired=%d unpaired=%d singles=%d",
			len(updated.Paired), len(updated.Unpaired), len(updated.Singles))
	}
}

func TestSelectCandidatePersistsOnlyOnStateChange(t *testing.T) {
	repo := newStubBatchRepository()
	svc := newTestBatchService(t, repo, nil)

	batch, _ := svc.CreateBatch(context.Background(), "user-1")
	ids := admitAndClassify(t, svc, repo, batch.ID, "aadhaar_front", "voter_id_back")
	if _, err := svc.SeedPairing(context.Background(), SeedPairingCommand{
		OwnerID: "user-1", BatchID: batch.ID,
	}); err != nil {
		t.Fatalf("SeedPairing: %v", err)
	}

	updatesBefore := repo.updates
	if _, err := svc.SelectCandidate(context.Background(), SelectCandidateCommand{
		OwnerID: "user-1", BatchID: batch.ID, DocumentID: "ghost",
	}); !errors.Is(err, ErrPairingNotFound) {
		t.Fatalf("expected ErrPairingNotFound, got %v", err)
	}
	if repo.updates != updatesBefore {
		t.Fatalf("unknown selection must not persist")
	}

	outcome, err := svc.SelectCandidate(context.Background(), SelectCandidateCommand{
		OwnerID: "user-1", BatchID: batch.ID, DocumentID: ids[0],
	})
	if err != nil {
		t.Fatalf("SelectCandidate: %v", err)
	}
	if outcome.Pair != nil {
		t.Fatalf("single click must not complete a pair")
	}
	if outcome.Batch.Selection.FrontID != ids[0] {
		t.Fatalf("selection not persisted: %+v", outcome.Batch.Selection)
	}

	// The second click targets an incompatible back; the cleared selection is
	// persisted even though the attempt fails.
	if _, err := svc.SelectCandidate(context.Background(), SelectCandidateCommand{
		OwnerID: "user-1", BatchID: batch.ID, DocumentID: ids[1],
	}); !errors.Is(err, ErrIncompatiblePair) {
		t.Fatalf("expected ErrIncompatiblePair, got %v", err)
	}
	stored := repo.batches[batch.ID]
	if !stored.Selection.Empty() {
		t.Fatalf("cleared selection must be persisted, got %+v", stored.Selection)
	}
}

func TestPairUnpairRoundTrip(t *testing.T) {
	repo := newStubBatchRepository()
	svc := newTestBatchService(t, repo, nil)

	batch, _ := svc.CreateBatch(context.Background(), "user-1")
	ids := admitAndClassify(t, svc, repo, batch.ID, "aadhaar_front", "aadhaar_back")
	if _, err := svc.SeedPairing(context.Background(), SeedPairingCommand{OwnerID: "user-1", BatchID: batch.ID}); err != nil {
		t.Fatalf("SeedPairing: %v", err)
	}

	updated, err := svc.PairDocuments(context.Background(), PairDocumentsCommand{
		OwnerID: "user-1", BatchID: batch.ID, FrontID: ids[0], BackID: ids[1],
	})
	if err != nil {
		t.Fatalf("PairDocuments: %v", err)
	}
	if len(updated.Paired) != 1 || len(updated.Unpaired) != 0 {
		t.Fatalf("pair not applied: %+v", updated)
	}

	updated, err = svc.UnpairDocuments(context.Background(), UnpairCommand{
		OwnerID: "user-1", BatchID: batch.ID, PairID: updated.Paired[0].ID,
	})
	if err != nil {
		t.Fatalf("UnpairDocuments: %v", err)
	}
	if len(updated.Paired) != 0 || len(updated.Unpaired) != 2 {
		t.Fatalf("unpair not applied: %+v", updated)
	}
}

func TestRotateDocumentUpdatesEveryPool(t *testing.T) {
	repo := newStubBatchRepository()
	svc := newTestBatchService(t, repo, nil)

	batch, _ := svc.CreateBatch(context.Background(), "user-1")
	ids := admitAndClassify(t, svc, repo, batch.ID, "aadhaar_front", "pan_card")
	if _, err := svc.SeedPairing(context.Background(), SeedPairingCommand{OwnerID: "user-1", BatchID: batch.ID}); err != nil {
		t.Fatalf("SeedPairing: %v", err)
	}

	updated, err := svc.RotateDocument(context.Background(), RotateDocumentCommand{
		OwnerID: "user-1", BatchID: batch.ID, DocumentID: ids[1], Rotation: domain.Rotation90,
	})
	if err != nil {
		t.Fatalf("RotateDocument: %v", err)
	}
	if updated.Singles[0].Rotation != domain.Rotation90 {
		t.Fatalf("single not rotated: %+v", updated.Singles[0])
	}

	if _, err := svc.RotateDocument(context.Background(), RotateDocumentCommand{
		OwnerID: "user-1", BatchID: batch.ID, DocumentID: ids[0], Rotation: Rotation(45),
	}); !errors.Is(err, ErrBatchInvalidInput) {
		t.Fatalf("expected ErrBatchInvalidInput for 45 degrees, got %v", err)
	}
	if _, err := svc.RotateDocument(context.Background(), RotateDocumentCommand{
		OwnerID: "user-1", BatchID: batch.ID, DocumentID: "ghost", Rotation: domain.Rotation180,
	}); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound for unknown document, got %v", err)
	}
}

func TestFinalizeBatchRequiresEmptyUnpairedPool(t *testing.T) {
	repo := newStubBatchRepository()
	svc := newTestBatchService(t, repo, nil)

	batch, _ := svc.CreateBatch(context.Background(), "user-1")
	ids := admitAndClassify(t, svc, repo, batch.ID, "aadhaar_front", "aadhaar_back")
	if _, err := svc.SeedPairing(context.Background(), SeedPairingCommand{OwnerID: "user-1", BatchID: batch.ID}); err != nil {
		t.Fatalf("SeedPairing: %v", err)
	}

	_, err := svc.FinalizeBatch(context.Background(), "user-1", batch.ID)
	var pending *PendingPairsError
	if !errors.As(err, &pending) {
		t.Fatalf("expected PendingPairsError, got %v", err)
	}

	if _, err := svc.PairDocuments(context.Background(), PairDocumentsCommand{
		OwnerID: "user-1", BatchID: batch.ID, FrontID: ids[0], BackID: ids[1],
	}); err != nil {
		t.Fatalf("PairDocuments: %v", err)
	}

	snapshot, err := svc.FinalizeBatch(context.Background(), "user-1", batch.ID)
	if err != nil {
		t.Fatalf("FinalizeBatch: %v", err)
	}
	if len(snapshot.Paired) != 1 {
		t.Fatalf("expected 1 pair in snapshot, got %d", len(snapshot.Paired))
	}

	stored := repo.batches[batch.ID]
	if stored.Status != domain.BatchFinalized {
		t.Fatalf("batch must be finalized, got %s", stored.Status)
	}
}

func TestPlanBatchLayoutDefaultsAndOverrides(t *testing.T) {
	repo := newStubBatchRepository()
	svc := newTestBatchService(t, repo, nil)

	batch, _ := svc.CreateBatch(context.Background(), "user-1")
	ids := admitAndClassify(t, svc, repo, batch.ID, "aadhaar_front", "aadhaar_back")
	if _, err := svc.SeedPairing(context.Background(), SeedPairingCommand{
		OwnerID: "user-1", BatchID: batch.ID,
		Auto: AutoPairResult{Paired: []domain.AutoPair{{FrontID: ids[0], BackID: ids[1], Confidence: 90}}},
	}); err != nil {
		t.Fatalf("SeedPairing: %v", err)
	}

	// Planning before finalization is a wizard-order violation.
	if _, err := svc.PlanBatchLayout(context.Background(), PlanLayoutCommand{
		OwnerID: "user-1", BatchID: batch.ID,
	}); !errors.Is(err, ErrBatchWrongState) {
		t.Fatalf("expected ErrBatchWrongState before finalize, got %v", err)
	}

	if _, err := svc.FinalizeBatch(context.Background(), "user-1", batch.ID); err != nil {
		t.Fatalf("FinalizeBatch: %v", err)
	}

	plan, err := svc.PlanBatchLayout(context.Background(), PlanLayoutCommand{OwnerID: "user-1", BatchID: batch.ID})
	if err != nil {
		t.Fatalf("PlanBatchLayout: %v", err)
	}
	if plan.LayoutType != domain.LayoutID || plan.TotalPages != 1 {
		t.Fatalf("pure-pair batch should default to id layout with 1 page, got %+v", plan)
	}

	override := domain.LayoutDocument
	plan, err = svc.PlanBatchLayout(context.Background(), PlanLayoutCommand{
		OwnerID: "user-1", BatchID: batch.ID, Layout: &override,
	})
	if err != nil {
		t.Fatalf("PlanBatchLayout override: %v", err)
	}
	if plan.LayoutType != domain.LayoutDocument || plan.TotalPages != 1 {
		t.Fatalf("override must recompute the plan, got %+v", plan)
	}

	stored := repo.batches[batch.ID]
	if stored.Layout == nil || stored.Layout.LayoutType != domain.LayoutDocument {
		t.Fatalf("stored layout must reflect the override, got %+v", stored.Layout)
	}
}

func TestBatchServiceTranslatesConflict(t *testing.T) {
	repo := newStubBatchRepository()
	svc := newTestBatchService(t, repo, nil)

	batch, _ := svc.CreateBatch(context.Background(), "user-1")

	// A concurrent writer between load and update surfaces as a conflict.
	conflictRepo := &conflictOnUpdateRepository{stubBatchRepository: repo}
	svcConflict := newTestBatchService(t, conflictRepo, nil)

	if _, err := svcConflict.AdmitFiles(context.Background(), AdmitFilesCommand{
		OwnerID: "user-1",
		BatchID: batch.ID,
		Files:   []FileDescriptor{{Name: "a.jpg", ContentType: "image/jpeg", SizeBytes: 10}},
	}); !errors.Is(err, ErrBatchConflict) {
		t.Fatalf("expected ErrBatchConflict, got %v", err)
	}
}

type conflictOnUpdateRepository struct {
	*stubBatchRepository
}

func (r *conflictOnUpdateRepository) Update(context.Context, DocumentBatch, time.Time) (DocumentBatch, error) {
	return DocumentBatch{}, &stubRepoError{conflict: true}
}
