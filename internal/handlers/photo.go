package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/printlane/api/internal/platform/auth"
	"github.com/printlane/api/internal/platform/httpx"
	"github.com/printlane/api/internal/services"
)

const maxPhotoRequestBody = 64 * 1024

// PhotoHandlers exposes the stateless passport-photo geometry endpoints.
type PhotoHandlers struct {
	authn *auth.Authenticator
}

// NewPhotoHandlers constructs a new PhotoHandlers instance.
func NewPhotoHandlers(authn *auth.Authenticator) *PhotoHandlers {
	return &PhotoHandlers{authn: authn}
}

// Routes registers the /photo endpoints.
func (h *PhotoHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/crop", h.computeCrop)
}

type computeCropRequest struct {
	Interaction cropInteractionPayload `json:"interaction"`
	Image       imageMetricsPayload    `json:"image"`
	CropBox     cropBoxPayload         `json:"crop_box"`
}

type cropInteractionPayload struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"pan_x"`
	PanY float64 `json:"pan_y"`
}

type imageMetricsPayload struct {
	DisplayWidth  float64 `json:"display_width"`
	DisplayHeight float64 `json:"display_height"`
	NaturalWidth  float64 `json:"natural_width"`
	NaturalHeight float64 `json:"natural_height"`
}

type cropBoxPayload struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type cropRectanglePayload struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	NaturalWidth  float64 `json:"natural_width"`
	NaturalHeight float64 `json:"natural_height"`
	Zoom          float64 `json:"zoom"`
	WithinBounds  bool    `json:"within_bounds"`
}

func (h *PhotoHandlers) computeCrop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reader := http.MaxBytesReader(w, r.Body, maxPhotoRequestBody)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()

	var req computeCropRequest
	if err := decoder.Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest))
		return
	}

	rect, err := services.ComputeCrop(
		services.CropInteraction{
			Zoom: req.Interaction.Zoom,
			PanX: req.Interaction.PanX,
			PanY: req.Interaction.PanY,
		},
		services.ImageMetrics{
			DisplayWidth:  req.Image.DisplayWidth,
			DisplayHeight: req.Image.DisplayHeight,
			NaturalWidth:  req.Image.NaturalWidth,
			NaturalHeight: req.Image.NaturalHeight,
		},
		services.CropBoxMetrics{
			Width:  req.CropBox.Width,
			Height: req.CropBox.Height,
		},
	)
	if err != nil {
		if errors.Is(err, services.ErrCropInvalidInput) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal server error", http.StatusInternalServerError))
		return
	}

	writeJSONResponse(w, http.StatusOK, cropRectanglePayload{
		X:             rect.X,
		Y:             rect.Y,
		Width:         rect.Width,
		Height:        rect.Height,
		NaturalWidth:  rect.NaturalWidth,
		NaturalHeight: rect.NaturalHeight,
		Zoom:          rect.Zoom,
		WithinBounds:  services.ValidCropRectangle(rect),
	})
}
