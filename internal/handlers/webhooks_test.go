package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domain "github.com/printlane/api/internal/domain"
	"github.com/printlane/api/internal/services"
)

func TestWebhookHandlers_RenderEvent_Success(t *testing.T) {
	var captured services.RenderEventCommand
	stub := &stubPrintJobService{
		recordFn: func(_ context.Context, cmd services.RenderEventCommand) (services.PrintJob, error) {
			captured = cmd
			return services.PrintJob{
				ID:        cmd.JobID,
				Status:    cmd.Status,
				SheetRefs: cmd.SheetRefs,
			}, nil
		},
	}

	handler := NewWebhookHandlers(stub)
	body := `{"job_id":"job-1","status":"completed","sheet_refs":["prints/u/job-1/sheet-1.pdf"],"error":""}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/render", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	handler.renderEvent(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	if captured.JobID != "job-1" || captured.Status != domain.PrintJobCompleted {
		t.Fatalf("unexpected command: %+v", captured)
	}
	if len(captured.SheetRefs) != 1 {
		t.Fatalf("unexpected sheet refs: %+v", captured.SheetRefs)
	}

	var payload printJobPayload
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if payload.Status != string(domain.PrintJobCompleted) {
		t.Fatalf("expected completed status, got %s", payload.Status)
	}
}

func TestWebhookHandlers_RenderEvent_TerminalConflict(t *testing.T) {
	stub := &stubPrintJobService{
		recordFn: func(context.Context, services.RenderEventCommand) (services.PrintJob, error) {
			return services.PrintJob{}, services.ErrPrintJobTerminal
		},
	}

	handler := NewWebhookHandlers(stub)
	body := `{"job_id":"job-1","status":"rendering","sheet_refs":null,"error":""}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/render", strings.NewReader(body))
	res := httptest.NewRecorder()

	handler.renderEvent(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", res.Code)
	}

	var bodyMap map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &bodyMap); err != nil {
		t.Fatalf("failed to parse error: %v", err)
	}
	if bodyMap["error"] != "job_terminal" {
		t.Fatalf("expected error code job_terminal, got %v", bodyMap["error"])
	}
}

func TestWebhookHandlers_RenderEvent_MalformedBody(t *testing.T) {
	handler := NewWebhookHandlers(&stubPrintJobService{})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/render", strings.NewReader(`{"job_id":`))
	res := httptest.NewRecorder()

	handler.renderEvent(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Code)
	}
}
