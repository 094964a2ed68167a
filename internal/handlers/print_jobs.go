package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/printlane/api/internal/platform/auth"
	"github.com/printlane/api/internal/platform/httpx"
	"github.com/printlane/api/internal/services"
)

const maxPrintJobRequestBody = 64 * 1024

// PrintJobHandlers exposes render job dispatch and status tracking endpoints.
type PrintJobHandlers struct {
	authn *auth.Authenticator
	jobs  services.PrintJobService
}

// NewPrintJobHandlers constructs a new PrintJobHandlers instance.
func NewPrintJobHandlers(authn *auth.Authenticator, jobs services.PrintJobService) *PrintJobHandlers {
	return &PrintJobHandlers{
		authn: authn,
		jobs:  jobs,
	}
}

// Routes registers the /print-jobs endpoints.
func (h *PrintJobHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/", h.createJob)
	r.Get("/{jobID}", h.getJob)
	r.Get("/{jobID}/events", h.watchJob)
}

type createPrintJobRequest struct {
	BatchID string            `json:"batch_id"`
	Layout  layoutPlanPayload `json:"layout"`
}

type printJobPayload struct {
	ID          string            `json:"id"`
	BatchID     string            `json:"batch_id"`
	OwnerID     string            `json:"owner_id"`
	Layout      layoutPlanPayload `json:"layout"`
	Status      string            `json:"status"`
	SheetRefs   []string          `json:"sheet_refs,omitempty"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
	CompletedAt string            `json:"completed_at,omitempty"`
}

type printJobUpdatePayload struct {
	Job      printJobPayload `json:"job"`
	Terminal bool            `json:"terminal"`
}

func (h *PrintJobHandlers) createJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	reader := http.MaxBytesReader(w, r.Body, maxPrintJobRequestBody)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()

	var req createPrintJobRequest
	if err := decoder.Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest))
		return
	}

	job, err := h.jobs.CreateJob(ctx, services.CreatePrintJobCommand{
		OwnerID: identity.UID,
		BatchID: strings.TrimSpace(req.BatchID),
		Plan: services.LayoutPlan{
			LayoutType:   services.LayoutType(req.Layout.LayoutType),
			TotalPages:   req.Layout.TotalPages,
			SlotsPerPage: req.Layout.SlotsPerPage,
		},
	})
	if err != nil {
		h.writePrintJobError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, toPrintJobPayload(job))
}

func (h *PrintJobHandlers) getJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	job, err := h.jobs.GetJob(ctx, identity.UID, chi.URLParam(r, "jobID"))
	if err != nil {
		h.writePrintJobError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toPrintJobPayload(job))
}

// watchJob streams job updates as server-sent events until the job reaches a
// terminal state or the client disconnects.
func (h *PrintJobHandlers) watchJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	flusher, flushable := w.(http.Flusher)
	if !flushable {
		httpx.WriteError(ctx, w, httpx.NewError("streaming_unsupported", "response writer does not support streaming", http.StatusInternalServerError))
		return
	}

	updates, err := h.jobs.Watch(ctx, identity.UID, chi.URLParam(r, "jobID"))
	if err != nil {
		h.writePrintJobError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case update, open := <-updates:
			if !open {
				return
			}
			payload, err := json.Marshal(printJobUpdatePayload{
				Job:      toPrintJobPayload(update.Job),
				Terminal: update.Terminal,
			})
			if err != nil {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			if update.Terminal {
				return
			}
		}
	}
}

func (h *PrintJobHandlers) requireIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	ctx := r.Context()
	if h.jobs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "print job service unavailable", http.StatusServiceUnavailable))
		return nil, false
	}

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func (h *PrintJobHandlers) writePrintJobError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrPrintJobInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPrintJobNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("job_not_found", "print job not found", http.StatusNotFound))
	case errors.Is(err, services.ErrPrintJobTerminal):
		httpx.WriteError(ctx, w, httpx.NewError("job_terminal", "print job already reached a terminal state", http.StatusConflict))
	case errors.Is(err, services.ErrBatchNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("batch_not_found", "batch not found", http.StatusNotFound))
	case errors.Is(err, services.ErrBatchWrongState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_state", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrPrintJobUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "print job service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}

func toPrintJobPayload(job services.PrintJob) printJobPayload {
	payload := printJobPayload{
		ID:        job.ID,
		BatchID:   job.BatchID,
		OwnerID:   job.OwnerID,
		Layout:    toLayoutPlanPayload(job.Layout),
		Status:    string(job.Status),
		SheetRefs: cloneStrings(job.SheetRefs),
		Error:     job.Error,
		CreatedAt: formatTime(job.CreatedAt),
		UpdatedAt: formatTime(job.UpdatedAt),
	}
	if job.CompletedAt != nil {
		payload.CompletedAt = formatTime(*job.CompletedAt)
	}
	return payload
}
