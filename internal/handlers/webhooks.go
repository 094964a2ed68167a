package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/printlane/api/internal/platform/httpx"
	"github.com/printlane/api/internal/services"
)

const maxWebhookRequestBody = 128 * 1024

// WebhookHandlers receives signed callbacks from the external render service.
// Signature verification happens in middleware before these handlers run.
type WebhookHandlers struct {
	jobs services.PrintJobService
}

// NewWebhookHandlers constructs a new WebhookHandlers instance.
func NewWebhookHandlers(jobs services.PrintJobService) *WebhookHandlers {
	return &WebhookHandlers{jobs: jobs}
}

// Routes registers the /webhooks endpoints.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/render", h.renderEvent)
}

type renderEventRequest struct {
	JobID     string   `json:"job_id"`
	Status    string   `json:"status"`
	SheetRefs []string `json:"sheet_refs"`
	Error     string   `json:"error"`
}

func (h *WebhookHandlers) renderEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.jobs == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "print job service unavailable", http.StatusServiceUnavailable))
		return
	}

	reader := http.MaxBytesReader(w, r.Body, maxWebhookRequestBody)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()

	var req renderEventRequest
	if err := decoder.Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest))
		return
	}

	job, err := h.jobs.RecordRenderEvent(ctx, services.RenderEventCommand{
		JobID:     strings.TrimSpace(req.JobID),
		Status:    services.PrintJobStatus(strings.TrimSpace(req.Status)),
		SheetRefs: cloneStrings(req.SheetRefs),
		Error:     strings.TrimSpace(req.Error),
	})
	if err != nil {
		h.writeWebhookError(w, r, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, toPrintJobPayload(job))
}

func (h *WebhookHandlers) writeWebhookError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrPrintJobInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPrintJobNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("job_not_found", "print job not found", http.StatusNotFound))
	case errors.Is(err, services.ErrPrintJobTerminal):
		httpx.WriteError(ctx, w, httpx.NewError("job_terminal", "print job already reached a terminal state", http.StatusConflict))
	case errors.Is(err, services.ErrPrintJobUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "print job service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
	}
}
