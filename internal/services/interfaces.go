package services

import (
	"context"

	domain "github.com/printlane/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination           = domain.Pagination
	Rotation             = domain.Rotation
	Side                 = domain.Side
	DocumentCategory     = domain.DocumentCategory
	DocumentType         = domain.DocumentType
	Document             = domain.Document
	PairCandidate        = domain.PairCandidate
	UnpairedReason       = domain.UnpairedReason
	Pair                 = domain.Pair
	PairMethod           = domain.PairMethod
	PairingSelection     = domain.PairingSelection
	CropInteraction      = domain.CropInteraction
	ImageMetrics         = domain.ImageMetrics
	CropBoxMetrics       = domain.CropBoxMetrics
	CropRectangle        = domain.CropRectangle
	LayoutType           = domain.LayoutType
	LayoutPlan           = domain.LayoutPlan
	FileDescriptor       = domain.FileDescriptor
	RejectedFile         = domain.RejectedFile
	BatchItem            = domain.BatchItem
	BatchItemStatus      = domain.BatchItemStatus
	DocumentBatch        = domain.DocumentBatch
	ClassifiedDocument   = domain.ClassifiedDocument
	AutoPairResult       = domain.AutoPairResult
	FinalizedBatch       = domain.FinalizedBatch
	PrintJob             = domain.PrintJob
	PrintJobStatus       = domain.PrintJobStatus
	SignedUploadResponse = domain.SignedUploadResponse
	SystemHealthReport   = domain.SystemHealthReport
)

// BatchService is the orchestrating controller for the document wizard. It owns
// the explicit DocumentBatch state object: every operation loads the batch,
// applies one transition, persists, and returns the updated snapshot.
type BatchService interface {
	CreateBatch(ctx context.Context, ownerID string) (DocumentBatch, error)
	GetBatch(ctx context.Context, ownerID, batchID string) (DocumentBatch, error)
	ListBatches(ctx context.Context, ownerID string, pager Pagination) (domain.CursorPage[DocumentBatch], error)
	AdmitFiles(ctx context.Context, cmd AdmitFilesCommand) (AdmissionOutcome, error)
	RecordClassification(ctx context.Context, cmd RecordClassificationCommand) (DocumentBatch, error)
	SeedPairing(ctx context.Context, cmd SeedPairingCommand) (DocumentBatch, error)
	SelectCandidate(ctx context.Context, cmd SelectCandidateCommand) (SelectOutcome, error)
	PairDocuments(ctx context.Context, cmd PairDocumentsCommand) (DocumentBatch, error)
	UnpairDocuments(ctx context.Context, cmd UnpairCommand) (DocumentBatch, error)
	RotateDocument(ctx context.Context, cmd RotateDocumentCommand) (DocumentBatch, error)
	FinalizeBatch(ctx context.Context, ownerID, batchID string) (FinalizedBatch, error)
	PlanBatchLayout(ctx context.Context, cmd PlanLayoutCommand) (LayoutPlan, error)
}

// AdmitFilesCommand carries the candidate descriptors for one upload gesture.
type AdmitFilesCommand struct {
	OwnerID string
	BatchID string
	Files   []FileDescriptor
}

// AdmissionOutcome reports the per-file decisions plus signed upload URLs for admitted items.
type AdmissionOutcome struct {
	Batch    DocumentBatch
	Admitted []SignedUploadResponse
	Rejected []RejectedFile
}

// RecordClassificationCommand records one classifier result (or failure) for a batch item.
// Failures are isolated to the item; they never abort the remainder of the batch.
type RecordClassificationCommand struct {
	OwnerID string
	BatchID string
	ItemID  string
	Result  *ClassifiedDocument
	Failure string
}

// SeedPairingCommand applies the external auto-pairing result to a classified batch.
type SeedPairingCommand struct {
	OwnerID string
	BatchID string
	Auto    AutoPairResult
}

// SelectCandidateCommand records a review-stage click on an unpaired candidate.
type SelectCandidateCommand struct {
	OwnerID    string
	BatchID    string
	DocumentID string
}

// SelectOutcome reports the state after a selection click. Pair is non-nil when
// the click completed a manual match.
type SelectOutcome struct {
	Batch DocumentBatch
	Pair  *Pair
}

// PairDocumentsCommand requests an explicit manual pair, front then back.
type PairDocumentsCommand struct {
	OwnerID string
	BatchID string
	FrontID string
	BackID  string
}

// UnpairCommand dissolves an existing pair back into the unpaired pool.
type UnpairCommand struct {
	OwnerID string
	BatchID string
	PairID  string
}

// RotateDocumentCommand updates the review-stage rotation of a classified document.
type RotateDocumentCommand struct {
	OwnerID    string
	BatchID    string
	DocumentID string
	Rotation   Rotation
}

// PlanLayoutCommand computes (and stores) the layout plan for a batch. A nil
// Layout applies the default selection heuristic.
type PlanLayoutCommand struct {
	OwnerID string
	BatchID string
	Layout  *LayoutType
}

// PrintJobService dispatches render requests for finalized batches and tracks
// their status through to a terminal state.
type PrintJobService interface {
	CreateJob(ctx context.Context, cmd CreatePrintJobCommand) (PrintJob, error)
	GetJob(ctx context.Context, ownerID, jobID string) (PrintJob, error)
	RecordRenderEvent(ctx context.Context, cmd RenderEventCommand) (PrintJob, error)
	Watch(ctx context.Context, ownerID, jobID string) (<-chan PrintJobUpdate, error)
}

// CreatePrintJobCommand creates a job for a finalized batch with its chosen plan.
type CreatePrintJobCommand struct {
	OwnerID string
	BatchID string
	Plan    LayoutPlan
}

// RenderEventCommand applies a status callback from the external renderer.
type RenderEventCommand struct {
	JobID     string
	Status    PrintJobStatus
	SheetRefs []string
	Error     string
}

// PrintJobUpdate is one observed status change delivered to a watcher.
type PrintJobUpdate struct {
	Job      PrintJob
	Terminal bool
}

// RenderJobPublisher dispatches render requests to the external rasterizer.
type RenderJobPublisher interface {
	PublishRenderJob(ctx context.Context, message RenderJobMessage) (string, error)
}

// RenderJobMessage is the payload published for the external renderer.
type RenderJobMessage struct {
	JobID        string `json:"jobId"`
	BatchID      string `json:"batchId"`
	OwnerID      string `json:"ownerId"`
	LayoutType   string `json:"layoutType"`
	TotalPages   int    `json:"totalPages"`
	SlotsPerPage int    `json:"slotsPerPage"`
}

// UploadSigner issues signed PUT URLs so admitted files can be uploaded directly to storage.
type UploadSigner interface {
	SignUpload(ctx context.Context, req SignUploadRequest) (SignedUploadResponse, error)
}

// SignUploadRequest describes the object a signed upload URL should target.
type SignUploadRequest struct {
	OwnerID     string
	BatchID     string
	ItemID      string
	FileName    string
	ContentType string
	SizeBytes   int64
}
