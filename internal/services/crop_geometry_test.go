package services

import (
	"errors"
	"math"
	"testing"
)

const cropEpsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= cropEpsilon
}

func TestComputeCropIdentity(t *testing.T) {
	// Zoom 1, no pan, crop box covering the whole display selects the full image.
	rect, err := ComputeCrop(
		CropInteraction{Zoom: 1},
		ImageMetrics{DisplayWidth: 400, DisplayHeight: 300, NaturalWidth: 4000, NaturalHeight: 3000},
		CropBoxMetrics{Width: 400, Height: 300},
	)
	if err != nil {
		t.Fatalf("ComputeCrop: %v", err)
	}
	if !almostEqual(rect.X, 0) || !almostEqual(rect.Y, 0) {
		t.Fatalf("expected origin (0,0), got (%g,%g)", rect.X, rect.Y)
	}
	if !almostEqual(rect.Width, 1) || !almostEqual(rect.Height, 1) {
		t.Fatalf("expected full extent, got (%g,%g)", rect.Width, rect.Height)
	}
	if rect.NaturalWidth != 4000 || rect.NaturalHeight != 3000 {
		t.Fatalf("natural dimensions not carried through: %+v", rect)
	}
}

func TestComputeCropZoomShrinksWindow(t *testing.T) {
	// Zoom 2 with centered image: the crop window covers half the extent, centered.
	rect, err := ComputeCrop(
		CropInteraction{Zoom: 2},
		ImageMetrics{DisplayWidth: 400, DisplayHeight: 300, NaturalWidth: 800, NaturalHeight: 600},
		CropBoxMetrics{Width: 400, Height: 300},
	)
	if err != nil {
		t.Fatalf("ComputeCrop: %v", err)
	}
	if !almostEqual(rect.Width, 0.5) || !almostEqual(rect.Height, 0.5) {
		t.Fatalf("expected half extent at zoom 2, got (%g,%g)", rect.Width, rect.Height)
	}
	if !almostEqual(rect.X, 0.25) || !almostEqual(rect.Y, 0.25) {
		t.Fatalf("expected centered window at (0.25,0.25), got (%g,%g)", rect.X, rect.Y)
	}
}

func TestComputeCropPanShiftsWindowOpposite(t *testing.T) {
	// Panning the image right moves the crop window left over the image.
	base, err := ComputeCrop(
		CropInteraction{Zoom: 1},
		ImageMetrics{DisplayWidth: 400, DisplayHeight: 300, NaturalWidth: 800, NaturalHeight: 600},
		CropBoxMetrics{Width: 200, Height: 150},
	)
	if err != nil {
		t.Fatalf("ComputeCrop: %v", err)
	}

	panned, err := ComputeCrop(
		CropInteraction{Zoom: 1, PanX: 40},
		ImageMetrics{DisplayWidth: 400, DisplayHeight: 300, NaturalWidth: 800, NaturalHeight: 600},
		CropBoxMetrics{Width: 200, Height: 150},
	)
	if err != nil {
		t.Fatalf("ComputeCrop: %v", err)
	}

	if !almostEqual(panned.X, base.X-0.1) {
		t.Fatalf("expected pan of 40px to shift X by -0.1, base %g panned %g", base.X, panned.X)
	}
	if !almostEqual(panned.Y, base.Y) {
		t.Fatalf("expected Y unchanged, base %g panned %g", base.Y, panned.Y)
	}
}

func TestComputeCropAllowsOutOfRangeFractions(t *testing.T) {
	// Dragging the crop window off the image is a legal interaction state.
	rect, err := ComputeCrop(
		CropInteraction{Zoom: 1, PanX: 500},
		ImageMetrics{DisplayWidth: 400, DisplayHeight: 300, NaturalWidth: 800, NaturalHeight: 600},
		CropBoxMetrics{Width: 200, Height: 150},
	)
	if err != nil {
		t.Fatalf("ComputeCrop: %v", err)
	}
	if rect.X >= 0 {
		t.Fatalf("expected negative X for far pan, got %g", rect.X)
	}
	if ValidCropRectangle(rect) {
		t.Fatalf("expected out-of-range rectangle to fail validation")
	}
}

func TestComputeCropInvalidInputs(t *testing.T) {
	validImage := ImageMetrics{DisplayWidth: 400, DisplayHeight: 300, NaturalWidth: 800, NaturalHeight: 600}
	validBox := CropBoxMetrics{Width: 200, Height: 150}

	cases := []struct {
		name        string
		interaction CropInteraction
		image       ImageMetrics
		box         CropBoxMetrics
	}{
		{"zero natural size", CropInteraction{Zoom: 1}, ImageMetrics{DisplayWidth: 400, DisplayHeight: 300}, validBox},
		{"zero display size", CropInteraction{Zoom: 1}, ImageMetrics{NaturalWidth: 800, NaturalHeight: 600}, validBox},
		{"zero crop box", CropInteraction{Zoom: 1}, validImage, CropBoxMetrics{}},
		{"zoom below range", CropInteraction{Zoom: 0.4}, validImage, validBox},
		{"zoom above range", CropInteraction{Zoom: 3.1}, validImage, validBox},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ComputeCrop(tc.interaction, tc.image, tc.box); !errors.Is(err, ErrCropInvalidInput) {
				t.Fatalf("expected ErrCropInvalidInput, got %v", err)
			}
		})
	}
}

func TestComputeCropZoomBoundariesAccepted(t *testing.T) {
	image := ImageMetrics{DisplayWidth: 400, DisplayHeight: 300, NaturalWidth: 800, NaturalHeight: 600}
	box := CropBoxMetrics{Width: 200, Height: 150}

	for _, zoom := range []float64{MinZoom, MaxZoom} {
		if _, err := ComputeCrop(CropInteraction{Zoom: zoom}, image, box); err != nil {
			t.Fatalf("zoom %g should be accepted: %v", zoom, err)
		}
	}
}

func TestValidCropRectangle(t *testing.T) {
	if !ValidCropRectangle(CropRectangle{X: 0, Y: 0, Width: 1, Height: 1}) {
		t.Fatalf("full-extent rectangle must validate")
	}
	if !ValidCropRectangle(CropRectangle{X: 0.2, Y: 0.3, Width: 0.5, Height: 0.4}) {
		t.Fatalf("interior rectangle must validate")
	}
	if ValidCropRectangle(CropRectangle{X: 0.6, Y: 0, Width: 0.5, Height: 0.5}) {
		t.Fatalf("rectangle crossing the right edge must not validate")
	}
	if ValidCropRectangle(CropRectangle{X: -0.1, Y: 0, Width: 0.5, Height: 0.5}) {
		t.Fatalf("rectangle with negative origin must not validate")
	}
	if ValidCropRectangle(CropRectangle{X: 0, Y: 0, Width: 0, Height: 0.5}) {
		t.Fatalf("degenerate rectangle must not validate")
	}
}
