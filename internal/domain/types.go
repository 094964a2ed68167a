package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// Rotation is the review-stage orientation applied to a document image, in degrees clockwise.
type Rotation int

const (
	// Rotation0 leaves the image as captured.
	Rotation0 Rotation = 0
	// Rotation90 rotates the image a quarter turn clockwise.
	Rotation90 Rotation = 90
	// Rotation180 turns the image upside down.
	Rotation180 Rotation = 180
	// Rotation270 rotates the image a quarter turn counter-clockwise.
	Rotation270 Rotation = 270
)

// Valid reports whether the rotation is one of the four supported orientations.
func (r Rotation) Valid() bool {
	switch r {
	case Rotation0, Rotation90, Rotation180, Rotation270:
		return true
	}
	return false
}

// Side identifies which face of a two-sided document an image shows.
type Side string

const (
	// SideFront marks the front face of a two-sided document.
	SideFront Side = "front"
	// SideBack marks the back face of a two-sided document.
	SideBack Side = "back"
	// SideNone applies to single documents that have no pairable faces.
	SideNone Side = "none"
)

// DocumentCategory splits documents into those requiring front/back pairing and standalone ones.
type DocumentCategory string

const (
	// CategoryIDCard marks documents that must be paired front+back before printing.
	CategoryIDCard DocumentCategory = "id_card"
	// CategorySingleDocument marks documents printed standalone.
	CategorySingleDocument DocumentCategory = "single_document"
)

// DocumentType is the closed tagged variant describing a classified document.
// Side, category, and base type are structural fields resolved once from the
// classifier's wire tag; downstream code never re-derives them from the tag.
type DocumentType struct {
	Tag      string
	BaseType string
	Side     Side
	Category DocumentCategory
}

// Document is an uploaded item after backend classification. Immutable except
// Rotation, which the review stage may change before printing.
type Document struct {
	ID           string
	Type         DocumentType
	QualityScore int
	Rotation     Rotation
	ImageRef     string
	CreatedAt    time.Time
}

// UnpairedReason explains why the automatic matcher left an ID-card side unmatched.
type UnpairedReason string

const (
	// ReasonNoMatch means no counterpart was found for the side.
	ReasonNoMatch UnpairedReason = "no_match"
	// ReasonLowConfidence means a counterpart existed but the match score was below threshold.
	ReasonLowConfidence UnpairedReason = "low_confidence"
	// ReasonMultipleCandidates means several counterparts were plausible and none was chosen.
	ReasonMultipleCandidates UnpairedReason = "multiple_candidates"
)

// PairCandidate is an ID-card document awaiting a manual match.
type PairCandidate struct {
	Document Document
	Reason   UnpairedReason
}

// PairMethod records whether a pair came from the automatic matcher or a manual two-click match.
type PairMethod string

const (
	// PairMethodAuto marks pairs produced by the external automatic matcher.
	PairMethodAuto PairMethod = "auto"
	// PairMethodManual marks pairs created by the user in the review stage.
	PairMethodManual PairMethod = "manual"
)

// Pair joins the front and back faces of one physical ID card.
type Pair struct {
	ID         string
	Front      Document
	Back       Document
	Confidence int
	Method     PairMethod
	CreatedAt  time.Time
}

// PairingSelection tracks the in-progress manual match: at most one pending id per side.
type PairingSelection struct {
	FrontID string
	BackID  string
}

// Empty reports whether no side is currently selected.
func (s PairingSelection) Empty() bool {
	return s.FrontID == "" && s.BackID == ""
}

// CropInteraction captures the pointer-driven pan/zoom state of the capture stage.
type CropInteraction struct {
	Zoom float64
	PanX float64
	PanY float64
}

// ImageMetrics describes the source image as rendered (pre-zoom) plus its natural pixel size.
type ImageMetrics struct {
	DisplayWidth  float64
	DisplayHeight float64
	NaturalWidth  float64
	NaturalHeight float64
}

// CropBoxMetrics is the fixed on-screen crop window; its aspect ratio is the caller's policy.
type CropBoxMetrics struct {
	Width  float64
	Height float64
}

// CropRectangle is the normalized crop region relative to the natural image
// size. Fractions may fall outside [0,1] when the crop window has been dragged
// off the visible image; the consuming render stage decides whether to reject.
type CropRectangle struct {
	X             float64
	Y             float64
	Width         float64
	Height        float64
	NaturalWidth  float64
	NaturalHeight float64
	Zoom          float64
}

// LayoutType selects the page-arrangement policy for a print job.
type LayoutType string

const (
	// LayoutID prints two actual-size ID units per page; a front+back pair shares one slot.
	LayoutID LayoutType = "id"
	// LayoutDocument prints one full-page document per page.
	LayoutDocument LayoutType = "document"
)

// LayoutPlan is the computed page arrangement handed to the preview renderer.
type LayoutPlan struct {
	LayoutType   LayoutType
	TotalPages   int
	SlotsPerPage int
}

// FileDescriptor describes a candidate upload before it enters the pipeline.
type FileDescriptor struct {
	Name        string
	ContentType string
	SizeBytes   int64
}

// AdmissionReason categorises why a file or batch was refused at the gate.
type AdmissionReason string

const (
	// AdmissionInvalidType rejects unsupported content types.
	AdmissionInvalidType AdmissionReason = "invalid_type"
	// AdmissionTooLarge rejects files over the size ceiling.
	AdmissionTooLarge AdmissionReason = "too_large"
	// AdmissionBatchLimit rejects an incoming batch that would overflow the queue.
	AdmissionBatchLimit AdmissionReason = "batch_limit_exceeded"
)

// RejectedFile pairs a refused descriptor with its human-readable reason.
type RejectedFile struct {
	File    FileDescriptor
	Reason  AdmissionReason
	Message string
}

// BatchItemStatus tracks an uploaded item through the sequential processing pipeline.
type BatchItemStatus string

const (
	// BatchItemQueued means the item passed admission and awaits upload.
	BatchItemQueued BatchItemStatus = "queued"
	// BatchItemUploaded means the file bytes have landed in storage.
	BatchItemUploaded BatchItemStatus = "uploaded"
	// BatchItemClassified means the external classifier returned a result.
	BatchItemClassified BatchItemStatus = "classified"
	// BatchItemFailed means classification failed; the failure is isolated to this item.
	BatchItemFailed BatchItemStatus = "failed"
)

// BatchItem is one admitted upload inside a document batch.
type BatchItem struct {
	ID            string
	FileName      string
	ContentType   string
	SizeBytes     int64
	Status        BatchItemStatus
	FailureReason string
	Document      *Document
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// BatchStatus enumerates wizard-step states of a document batch.
type BatchStatus string

const (
	// BatchCollecting means uploads are still being admitted.
	BatchCollecting BatchStatus = "collecting"
	// BatchReviewing means classification is done and pairing review is in progress.
	BatchReviewing BatchStatus = "reviewing"
	// BatchFinalized means pairing is resolved and the batch is print-ready.
	BatchFinalized BatchStatus = "finalized"
)

// DocumentBatch is the explicit state object owned by the batch controller.
// Each wizard step receives it by reference and hands back the updated value;
// nothing about batch state is ambient.
type DocumentBatch struct {
	ID        string
	OwnerID   string
	Status    BatchStatus
	Items     []BatchItem
	Paired    []Pair
	Unpaired  []PairCandidate
	Singles   []Document
	Selection PairingSelection
	Layout    *LayoutPlan
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClassifiedDocument is the boundary record received from the external classifier.
type ClassifiedDocument struct {
	ID           string
	DetectedType string
	QualityScore int
	Rotation     Rotation
	ImageRef     string
}

// AutoPairResult is the pre-computed matching supplied by the external matcher.
// The core consumes it as given and never re-derives automatic matches.
type AutoPairResult struct {
	Paired   []AutoPair
	Unpaired []AutoUnpaired
}

// AutoPair references two classified document ids joined by the external matcher.
type AutoPair struct {
	FrontID    string
	BackID     string
	Confidence int
}

// AutoUnpaired references a classified document id the external matcher left unmatched.
type AutoUnpaired struct {
	DocumentID string
	Reason     UnpairedReason
}

// FinalizedBatch is the read-only snapshot handed to the print-setup stage.
type FinalizedBatch struct {
	BatchID string
	Paired  []Pair
	Singles []Document
}

// PrintJobStatus enumerates terminal and non-terminal print job states.
type PrintJobStatus string

const (
	// PrintJobQueued means the render request has been dispatched.
	PrintJobQueued PrintJobStatus = "queued"
	// PrintJobRendering means the external renderer picked up the job.
	PrintJobRendering PrintJobStatus = "rendering"
	// PrintJobCompleted is a terminal state: sheets are rendered and printable.
	PrintJobCompleted PrintJobStatus = "completed"
	// PrintJobFailed is a terminal state: rendering failed and user action is required.
	PrintJobFailed PrintJobStatus = "failed"
)

// Terminal reports whether the status ends the watch contract.
func (s PrintJobStatus) Terminal() bool {
	return s == PrintJobCompleted || s == PrintJobFailed
}

// PrintJob tracks one dispatched render+print request for a finalized batch.
type PrintJob struct {
	ID          string
	BatchID     string
	OwnerID     string
	Layout      LayoutPlan
	Status      PrintJobStatus
	SheetRefs   []string
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// SignedUploadResponse returns signed URL payloads for admitted uploads.
type SignedUploadResponse struct {
	ItemID    string
	URL       string
	ExpiresAt time.Time
	Method    string
	Headers   map[string]string
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}
