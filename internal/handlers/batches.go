package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/printlane/api/internal/domain"
	"github.com/printlane/api/internal/platform/auth"
	"github.com/printlane/api/internal/platform/httpx"
	"github.com/printlane/api/internal/platform/pagination"
	"github.com/printlane/api/internal/services"
)

const maxBatchRequestBody = 256 * 1024
const (
	defaultBatchPageSize = 20
	maxBatchPageSize     = 100
)

// BatchHandlers exposes the document batch wizard endpoints for authenticated users.
type BatchHandlers struct {
	authn        *auth.Authenticator
	batches      services.BatchService
	admitLimiter rateLimiter
}

// BatchOption customises the batch handlers.
type BatchOption func(*BatchHandlers)

// WithAdmitRateLimit throttles upload admission per owner to limit requests per window.
func WithAdmitRateLimit(limit int, window time.Duration) BatchOption {
	return func(h *BatchHandlers) {
		h.admitLimiter = newSimpleRateLimiter(limit, window, nil)
	}
}

// NewBatchHandlers constructs a new BatchHandlers instance.
func NewBatchHandlers(authn *auth.Authenticator, batches services.BatchService, opts ...BatchOption) *BatchHandlers {
	h := &BatchHandlers{
		authn:   authn,
		batches: batches,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /batches endpoints.
func (h *BatchHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.listBatches)
	r.Post("/", h.createBatch)
	r.Get("/{batchID}", h.getBatch)
	r.Post("/{batchID}/files", h.admitFiles)
	r.Post("/{batchID}/items/{itemID}/classification", h.recordClassification)
	r.Post("/{batchID}/pairing", h.seedPairing)
	r.Post("/{batchID}/pairing/selection", h.selectCandidate)
	r.Post("/{batchID}/pairs", h.pairDocuments)
	r.Delete("/{batchID}/pairs/{pairID}", h.unpairDocuments)
	r.Post("/{batchID}/documents/{documentID}/rotation", h.rotateDocument)
	r.Post("/{batchID}/finalize", h.finalizeBatch)
	r.Post("/{batchID}/layout", h.planLayout)
}

func (h *BatchHandlers) listBatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultBatchPageSize,
		MaxPageSize:     maxBatchPageSize,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.batches.ListBatches(ctx, ownerID, services.Pagination{
		PageSize:  params.PageSize,
		PageToken: params.PageToken,
	})
	if err != nil {
		h.writeBatchError(ctx, w, err)
		return
	}

	items := make([]batchPayload, 0, len(page.Items))
	for _, batch := range page.Items {
		items = append(items, toBatchPayload(batch))
	}

	writeJSONResponse(w, http.StatusOK, batchListPayload{
		Batches:       items,
		NextPageToken: page.NextPageToken,
	})
}

func (h *BatchHandlers) createBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	batch, err := h.batches.CreateBatch(ctx, ownerID)
	if err != nil {
		h.writeBatchError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toBatchPayload(batch))
}

func (h *BatchHandlers) getBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	batch, err := h.batches.GetBatch(ctx, ownerID, chi.URLParam(r, "batchID"))
	if err != nil {
		h.writeBatchError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toBatchPayload(batch))
}

func (h *BatchHandlers) admitFiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	if h.admitLimiter != nil && !h.admitLimiter.Allow(ownerID) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many upload requests", http.StatusTooManyRequests))
		return
	}

	var req admitFilesRequest
	if !decodeBatchRequest(w, r, &req) {
		return
	}

	files := make([]services.FileDescriptor, 0, len(req.Files))
	for _, file := range req.Files {
		files = append(files, services.FileDescriptor{
			Name:        file.Name,
			ContentType: file.ContentType,
			SizeBytes:   file.SizeBytes,
		})
	}

	outcome, err := h.batches.AdmitFiles(ctx, services.AdmitFilesCommand{
		OwnerID: ownerID,
		BatchID: chi.URLParam(r, "batchID"),
		Files:   files,
	})
	if err != nil {
		h.writeBatchError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toAdmissionPayload(outcome))
}

func (h *BatchHandlers) recordClassification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	var req classificationRequest
	if !decodeBatchRequest(w, r, &req) {
		return
	}

	cmd := services.RecordClassificationCommand{
		OwnerID: ownerID,
		BatchID: chi.URLParam(r, "batchID"),
		ItemID:  chi.URLParam(r, "itemID"),
		Failure: strings.TrimSpace(req.Failure),
	}
	if req.Document != nil {
		cmd.Result = &services.ClassifiedDocument{
			ID:           req.Document.ID,
			DetectedType: req.Document.DetectedType,
			QualityScore: req.Document.QualityScore,
			Rotation:     services.Rotation(req.Document.Rotation),
			ImageRef:     req.Document.ImageRef,
		}
	}

	batch, err := h.batches.RecordClassification(ctx, cmd)
	if err != nil {
		h.writeBatchError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toBatchPayload(batch))
}

func (h *BatchHandlers) seedPairing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	var req seedPairingRequest
	if !decodeBatchRequest(w, r, &req) {
		return
	}

	auto := services.AutoPairResult{
		Paired:   make([]domain.AutoPair, 0, len(req.Paired)),
		Unpaired: make([]domain.AutoUnpaired, 0, len(req.Unpaired)),
	}
	for _, pair := range req.Paired {
		auto.Paired = append(auto.Paired, domain.AutoPair{
			FrontID:    pair.FrontID,
			BackID:     pair.BackID,
			Confidence: pair.Confidence,
		})
	}
	for _, unpaired := range req.Unpaired {
		auto.Unpaired = append(auto.Unpaired, domain.AutoUnpaired{
			DocumentID: unpaired.DocumentID,
			Reason:     domain.UnpairedReason(unpaired.Reason),
		})
	}

	batch, err := h.batches.SeedPairing(ctx, services.SeedPairingCommand{
		OwnerID: ownerID,
		BatchID: chi.URLParam(r, "batchID"),
		Auto:    auto,
	})
	if err != nil {
		h.writeBatchError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toBatchPayload(batch))
}

func (h *BatchHandlers) selectCandidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	var req selectCandidateRequest
	if !decodeBatchRequest(w, r, &req) {
		return
	}

	outcome, err := h.batches.SelectCandidate(ctx, services.SelectCandidateCommand{
		OwnerID:    ownerID,
		BatchID:    chi.URLParam(r, "batchID"),
		DocumentID: strings.TrimSpace(req.DocumentID),
	})
	if err != nil {
		h.writeBatchError(ctx, w, err)
		return
	}

	payload := selectOutcomePayload{Batch: toBatchPayload(outcome.Batch)}
	if outcome.Pair != nil {
		pair := toPairPayload(*outcome.Pair)
		payload.Pair = &pair
	}

	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *BatchHandlers) pairDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	var req pairDocumentsRequest
	if !decodeBatchRequest(w, r, &req) {
		return
	}

	batch, err := h.batches.PairDocuments(ctx, services.PairDocumentsCommand{
		OwnerID: ownerID,
		BatchID: chi.URLParam(r, "batchID"),
		FrontID: strings.TrimSpace(req.FrontID),
		BackID:  strings.TrimSpace(req.BackID),
	})
	if err != nil {
		h.writeBatchError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toBatchPayload(batch))
}

func (h *BatchHandlers) unpairDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	batch, err := h.batches.UnpairDocuments(ctx, services.UnpairCommand{
		OwnerID: ownerID,
		BatchID: chi.URLParam(r, "batchID"),
		PairID:  chi.URLParam(r, "pairID"),
	})
	if err != nil {
		h.writeBatchError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toBatchPayload(batch))
}

func (h *BatchHandlers) rotateDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	var req rotateDocumentRequest
	if !decodeBatchRequest(w, r, &req) {
		return
	}

	batch, err := h.batches.RotateDocument(ctx, services.RotateDocumentCommand{
		OwnerID:    ownerID,
		BatchID:    chi.URLParam(r, "batchID"),
		DocumentID: chi.URLParam(r, "documentID"),
		Rotation:   services.Rotation(req.Rotation),
	})
	if err != nil {
		h.writeBatchError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toBatchPayload(batch))
}

func (h *BatchHandlers) finalizeBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	finalized, err := h.batches.FinalizeBatch(ctx, ownerID, chi.URLParam(r, "batchID"))
	if err != nil {
		h.writeBatchError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toFinalizedPayload(finalized))
}

func (h *BatchHandlers) planLayout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ownerID, ok := h.resolveOwner(w, r)
	if !ok {
		return
	}

	var req planLayoutRequest
	if !decodeBatchRequest(w, r, &req) {
		return
	}

	cmd := services.PlanLayoutCommand{
		OwnerID: ownerID,
		BatchID: chi.URLParam(r, "batchID"),
	}
	if req.LayoutType != nil {
		layout := services.LayoutType(strings.TrimSpace(*req.LayoutType))
		cmd.Layout = &layout
	}

	plan, err := h.batches.PlanBatchLayout(ctx, cmd)
	if err != nil {
		h.writeBatchError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toLayoutPlanPayload(plan))
}

// resolveOwner extracts the caller identity and applies the staff override query.
func (h *BatchHandlers) resolveOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	if h.batches == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "batch service unavailable", http.StatusServiceUnavailable))
		return "", false
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return "", false
	}

	ownerID := strings.TrimSpace(identity.UID)
	requestedOwner := firstNonEmpty(
		strings.TrimSpace(r.URL.Query().Get("user")),
		strings.TrimSpace(r.URL.Query().Get("user_id")),
	)
	if requestedOwner != "" && !strings.EqualFold(requestedOwner, ownerID) {
		if !identity.HasAnyRole(auth.RoleStaff, auth.RoleAdmin) {
			httpx.WriteError(ctx, w, httpx.NewError("forbidden", "insufficient permissions", http.StatusForbidden))
			return "", false
		}
		ownerID = requestedOwner
	}

	return ownerID, true
}

func (h *BatchHandlers) writeBatchError(ctx context.Context, w http.ResponseWriter, err error) {
	var pending *services.PendingPairsError
	switch {
	case errors.As(err, &pending):
		httpx.WriteError(ctx, w, httpx.NewError("pending_pairs", err.Error(), http.StatusUnprocessableEntity).
			WithDetails(map[string]any{"remaining": pending.Remaining}))
	case errors.Is(err, services.ErrBatchInvalidInput),
		errors.Is(err, services.ErrPairingData),
		errors.Is(err, services.ErrLayoutInvalidInput),
		errors.Is(err, services.ErrCropInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrBatchNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("batch_not_found", "batch not found", http.StatusNotFound))
	case errors.Is(err, services.ErrPairingNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("pair_not_found", "pair or candidate not found", http.StatusNotFound))
	case errors.Is(err, services.ErrBatchConflict):
		httpx.WriteError(ctx, w, httpx.NewError("batch_conflict", "batch was modified concurrently", http.StatusConflict))
	case errors.Is(err, services.ErrBatchWrongState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_state", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrIncompatiblePair):
		httpx.WriteError(ctx, w, httpx.NewError("incompatible_pair", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrBatchLimitExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("batch_limit_exceeded", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrBatchUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "batch service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}

func decodeBatchRequest(w http.ResponseWriter, r *http.Request, target any) bool {
	ctx := r.Context()

	reader := http.MaxBytesReader(w, r.Body, maxBatchRequestBody)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest))
		return false
	}
	if decoder.More() {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid request body: extraneous data", http.StatusBadRequest))
		return false
	}
	return true
}

type admitFilesRequest struct {
	Files []fileDescriptorPayload `json:"files"`
}

type fileDescriptorPayload struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

type classificationRequest struct {
	Document *classifiedDocumentPayload `json:"document"`
	Failure  string                     `json:"failure"`
}

type classifiedDocumentPayload struct {
	ID           string `json:"id"`
	DetectedType string `json:"detected_type"`
	QualityScore int    `json:"quality_score"`
	Rotation     int    `json:"rotation"`
	ImageRef     string `json:"image_ref"`
}

type seedPairingRequest struct {
	Paired   []autoPairPayload     `json:"paired"`
	Unpaired []autoUnpairedPayload `json:"unpaired"`
}

type autoPairPayload struct {
	FrontID    string `json:"front_id"`
	BackID     string `json:"back_id"`
	Confidence int    `json:"confidence"`
}

type autoUnpairedPayload struct {
	DocumentID string `json:"document_id"`
	Reason     string `json:"reason"`
}

type selectCandidateRequest struct {
	DocumentID string `json:"document_id"`
}

type pairDocumentsRequest struct {
	FrontID string `json:"front_id"`
	BackID  string `json:"back_id"`
}

type rotateDocumentRequest struct {
	Rotation int `json:"rotation"`
}

type planLayoutRequest struct {
	LayoutType *string `json:"layout_type"`
}

type batchListPayload struct {
	Batches       []batchPayload `json:"batches"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

type batchPayload struct {
	ID        string                 `json:"id"`
	OwnerID   string                 `json:"owner_id"`
	Status    string                 `json:"status"`
	Items     []batchItemPayload     `json:"items"`
	Paired    []pairPayload          `json:"paired"`
	Unpaired  []pairCandidatePayload `json:"unpaired"`
	Singles   []documentPayload      `json:"singles"`
	Selection *selectionPayload      `json:"selection,omitempty"`
	Layout    *layoutPlanPayload     `json:"layout,omitempty"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt string                 `json:"updated_at"`
}

type batchItemPayload struct {
	ID            string           `json:"id"`
	FileName      string           `json:"file_name"`
	ContentType   string           `json:"content_type"`
	SizeBytes     int64            `json:"size_bytes"`
	Status        string           `json:"status"`
	FailureReason string           `json:"failure_reason,omitempty"`
	Document      *documentPayload `json:"document,omitempty"`
	CreatedAt     string           `json:"created_at"`
	UpdatedAt     string           `json:"updated_at"`
}

type documentPayload struct {
	ID           string              `json:"id"`
	Type         documentTypePayload `json:"type"`
	QualityScore int                 `json:"quality_score"`
	Rotation     int                 `json:"rotation"`
	ImageRef     string              `json:"image_ref"`
	CreatedAt    string              `json:"created_at"`
}

type documentTypePayload struct {
	Tag      string `json:"tag"`
	BaseType string `json:"base_type"`
	Side     string `json:"side"`
	Category string `json:"category"`
}

type pairPayload struct {
	ID         string          `json:"id"`
	Front      documentPayload `json:"front"`
	Back       documentPayload `json:"back"`
	Confidence int             `json:"confidence"`
	Method     string          `json:"method"`
	CreatedAt  string          `json:"created_at"`
}

type pairCandidatePayload struct {
	Document documentPayload `json:"document"`
	Reason   string          `json:"reason"`
}

type selectionPayload struct {
	FrontID string `json:"front_id,omitempty"`
	BackID  string `json:"back_id,omitempty"`
}

type layoutPlanPayload struct {
	LayoutType   string `json:"layout_type"`
	TotalPages   int    `json:"total_pages"`
	SlotsPerPage int    `json:"slots_per_page"`
}

type admissionPayload struct {
	Batch    batchPayload          `json:"batch"`
	Admitted []signedUploadPayload `json:"admitted"`
	Rejected []rejectedFilePayload `json:"rejected"`
}

type signedUploadPayload struct {
	ItemID    string            `json:"item_id"`
	URL       string            `json:"url"`
	ExpiresAt string            `json:"expires_at"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
}

type rejectedFilePayload struct {
	File    fileDescriptorPayload `json:"file"`
	Reason  string                `json:"reason"`
	Message string                `json:"message"`
}

type selectOutcomePayload struct {
	Batch batchPayload `json:"batch"`
	Pair  *pairPayload `json:"pair,omitempty"`
}

type finalizedBatchPayload struct {
	BatchID string            `json:"batch_id"`
	Paired  []pairPayload     `json:"paired"`
	Singles []documentPayload `json:"singles"`
}

func toBatchPayload(batch services.DocumentBatch) batchPayload {
	payload := batchPayload{
		ID:        batch.ID,
		OwnerID:   batch.OwnerID,
		Status:    string(batch.Status),
		Items:     make([]batchItemPayload, 0, len(batch.Items)),
		Paired:    make([]pairPayload, 0, len(batch.Paired)),
		Unpaired:  make([]pairCandidatePayload, 0, len(batch.Unpaired)),
		Singles:   make([]documentPayload, 0, len(batch.Singles)),
		CreatedAt: formatTime(batch.CreatedAt),
		UpdatedAt: formatTime(batch.UpdatedAt),
	}

	for _, item := range batch.Items {
		payload.Items = append(payload.Items, toBatchItemPayload(item))
	}
	for _, pair := range batch.Paired {
		payload.Paired = append(payload.Paired, toPairPayload(pair))
	}
	for _, candidate := range batch.Unpaired {
		payload.Unpaired = append(payload.Unpaired, pairCandidatePayload{
			Document: toDocumentPayload(candidate.Document),
			Reason:   string(candidate.Reason),
		})
	}
	for _, single := range batch.Singles {
		payload.Singles = append(payload.Singles, toDocumentPayload(single))
	}

	if !batch.Selection.Empty() {
		payload.Selection = &selectionPayload{
			FrontID: batch.Selection.FrontID,
			BackID:  batch.Selection.BackID,
		}
	}
	if batch.Layout != nil {
		layout := toLayoutPlanPayload(*batch.Layout)
		payload.Layout = &layout
	}

	return payload
}

func toBatchItemPayload(item services.BatchItem) batchItemPayload {
	payload := batchItemPayload{
		ID:            item.ID,
		FileName:      item.FileName,
		ContentType:   item.ContentType,
		SizeBytes:     item.SizeBytes,
		Status:        string(item.Status),
		FailureReason: item.FailureReason,
		CreatedAt:     formatTime(item.CreatedAt),
		UpdatedAt:     formatTime(item.UpdatedAt),
	}
	if item.Document != nil {
		doc := toDocumentPayload(*item.Document)
		payload.Document = &doc
	}
	return payload
}

func toDocumentPayload(doc services.Document) documentPayload {
	return documentPayload{
		ID: doc.ID,
		Type: documentTypePayload{
			Tag:      doc.Type.Tag,
			BaseType: doc.Type.BaseType,
			Side:     string(doc.Type.Side),
			Category: string(doc.Type.Category),
		},
		QualityScore: doc.QualityScore,
		Rotation:     int(doc.Rotation),
		ImageRef:     doc.ImageRef,
		CreatedAt:    formatTime(doc.CreatedAt),
	}
}

func toPairPayload(pair services.Pair) pairPayload {
	return pairPayload{
		ID:         pair.ID,
		Front:      toDocumentPayload(pair.Front),
		Back:       toDocumentPayload(pair.Back),
		Confidence: pair.Confidence,
		Method:     string(pair.Method),
		CreatedAt:  formatTime(pair.CreatedAt),
	}
}

func toLayoutPlanPayload(plan services.LayoutPlan) layoutPlanPayload {
	return layoutPlanPayload{
		LayoutType:   string(plan.LayoutType),
		TotalPages:   plan.TotalPages,
		SlotsPerPage: plan.SlotsPerPage,
	}
}

func toAdmissionPayload(outcome services.AdmissionOutcome) admissionPayload {
	payload := admissionPayload{
		Batch:    toBatchPayload(outcome.Batch),
		Admitted: make([]signedUploadPayload, 0, len(outcome.Admitted)),
		Rejected: make([]rejectedFilePayload, 0, len(outcome.Rejected)),
	}
	for _, admitted := range outcome.Admitted {
		payload.Admitted = append(payload.Admitted, signedUploadPayload{
			ItemID:    admitted.ItemID,
			URL:       admitted.URL,
			ExpiresAt: formatTime(admitted.ExpiresAt),
			Method:    admitted.Method,
			Headers:   admitted.Headers,
		})
	}
	for _, rejected := range outcome.Rejected {
		payload.Rejected = append(payload.Rejected, rejectedFilePayload{
			File: fileDescriptorPayload{
				Name:        rejected.File.Name,
				ContentType: rejected.File.ContentType,
				SizeBytes:   rejected.File.SizeBytes,
			},
			Reason:  string(rejected.Reason),
			Message: rejected.Message,
		})
	}
	return payload
}

func toFinalizedPayload(finalized services.FinalizedBatch) finalizedBatchPayload {
	payload := finalizedBatchPayload{
		BatchID: finalized.BatchID,
		Paired:  make([]pairPayload, 0, len(finalized.Paired)),
		Singles: make([]documentPayload, 0, len(finalized.Singles)),
	}
	for _, pair := range finalized.Paired {
		payload.Paired = append(payload.Paired, toPairPayload(pair))
	}
	for _, single := range finalized.Singles {
		payload.Singles = append(payload.Singles, toDocumentPayload(single))
	}
	return payload
}
