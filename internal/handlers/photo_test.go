package handlers

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPhotoHandlers_ComputeCrop_Success(t *testing.T) {
	handler := NewPhotoHandlers(nil)

	body := `{
        "interaction": {"zoom": 1, "pan_x": 0, "pan_y": 0},
        "image": {"display_width": 400, "display_height": 300, "natural_width": 4000, "natural_height": 3000},
        "crop_box": {"width": 200, "height": 150}
    }`
	req := authedRequest(http.MethodPost, "/photo/crop", body)
	res := httptest.NewRecorder()

	handler.computeCrop(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}

	var payload cropRectanglePayload
	if err := json.Unmarshal(res.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	// A centered crop box half the display size covers the middle 50% of the image.
	if math.Abs(payload.X-0.25) > 1e-9 || math.Abs(payload.Y-0.25) > 1e-9 {
		t.Fatalf("expected centered origin (0.25, 0.25), got (%v, %v)", payload.X, payload.Y)
	}
	if math.Abs(payload.Width-0.5) > 1e-9 || math.Abs(payload.Height-0.5) > 1e-9 {
		t.Fatalf("expected half extent, got (%v, %v)", payload.Width, payload.Height)
	}
	if !payload.WithinBounds {
		t.Fatalf("expected crop within bounds")
	}
}

func TestPhotoHandlers_ComputeCrop_InvalidZoom(t *testing.T) {
	handler := NewPhotoHandlers(nil)

	body := `{
        "interaction": {"zoom": 99, "pan_x": 0, "pan_y": 0},
        "image": {"display_width": 400, "display_height": 300, "natural_width": 4000, "natural_height": 3000},
        "crop_box": {"width": 200, "height": 150}
    }`
	req := authedRequest(http.MethodPost, "/photo/crop", body)
	res := httptest.NewRecorder()

	handler.computeCrop(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Code)
	}

	var bodyMap map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &bodyMap); err != nil {
		t.Fatalf("failed to parse error: %v", err)
	}
	if bodyMap["error"] != "invalid_request" {
		t.Fatalf("expected error code invalid_request, got %v", bodyMap["error"])
	}
}

func TestPhotoHandlers_ComputeCrop_MalformedBody(t *testing.T) {
	handler := NewPhotoHandlers(nil)

	req := authedRequest(http.MethodPost, "/photo/crop", `{"interaction":`)
	res := httptest.NewRecorder()

	handler.computeCrop(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", res.Code)
	}
}
