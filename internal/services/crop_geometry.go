package services

import (
	"errors"
	"fmt"
)

const (
	// MinZoom is the lowest zoom factor the capture stage offers.
	MinZoom = 0.5
	// MaxZoom is the highest zoom factor the capture stage offers.
	MaxZoom = 3.0
	// ZoomStep is the zoom increment per wheel/slider tick.
	ZoomStep = 0.1
)

// ErrCropInvalidInput indicates the crop computation was invoked with unusable metrics.
var ErrCropInvalidInput = errors.New("crop: invalid input")

// ComputeCrop converts pointer-driven pan/zoom state into a normalized crop
// rectangle against the image's natural pixel size.
//
// The image sits centered in its container, displaced by (panX, panY) and
// scaled by zoom about its own center; the crop window stays centered and never
// moves. That means the whole computation is a single coordinate-space
// inversion per axis: find the crop window's offset from the image's scaled
// top-left edge, divide by zoom to return to unscaled display pixels, then
// divide by the display size to normalize.
//
// The resulting fractions may legitimately fall outside [0,1] when the user has
// dragged the crop window off the visible image; rejecting that is the
// consuming render stage's decision, not this function's. The function is pure
// and side-effect free, so callers may run it on every pointer event.
func ComputeCrop(interaction CropInteraction, image ImageMetrics, box CropBoxMetrics) (CropRectangle, error) {
	if image.NaturalWidth <= 0 || image.NaturalHeight <= 0 {
		return CropRectangle{}, fmt.Errorf("%w: natural dimensions are required before cropping", ErrCropInvalidInput)
	}
	if image.DisplayWidth <= 0 || image.DisplayHeight <= 0 {
		return CropRectangle{}, fmt.Errorf("%w: display dimensions must be positive", ErrCropInvalidInput)
	}
	if box.Width <= 0 || box.Height <= 0 {
		return CropRectangle{}, fmt.Errorf("%w: crop box dimensions must be positive", ErrCropInvalidInput)
	}
	if interaction.Zoom < MinZoom || interaction.Zoom > MaxZoom {
		return CropRectangle{}, fmt.Errorf("%w: zoom %.2f outside [%.1f, %.1f]", ErrCropInvalidInput, interaction.Zoom, MinZoom, MaxZoom)
	}

	zoom := interaction.Zoom

	// Both the image and the crop window are centered in the same container, so
	// the container size cancels out and only the centers matter.
	originX := cropAxisOrigin(interaction.PanX, image.DisplayWidth, box.Width, zoom)
	originY := cropAxisOrigin(interaction.PanY, image.DisplayHeight, box.Height, zoom)

	return CropRectangle{
		X:             originX / image.DisplayWidth,
		Y:             originY / image.DisplayHeight,
		Width:         box.Width / zoom / image.DisplayWidth,
		Height:        box.Height / zoom / image.DisplayHeight,
		NaturalWidth:  image.NaturalWidth,
		NaturalHeight: image.NaturalHeight,
		Zoom:          zoom,
	}, nil
}

// cropAxisOrigin computes the crop origin along one axis in unscaled image
// display pixels. The scaled image edge sits at pan - displaySize*zoom/2 from
// the shared center; the crop window edge sits at -boxSize/2.
func cropAxisOrigin(pan, displaySize, boxSize, zoom float64) float64 {
	imageEdge := pan - (displaySize*zoom)/2
	cropEdge := -boxSize / 2
	return (cropEdge - imageEdge) / zoom
}

// ValidCropRectangle reports whether the rectangle lies fully within the image.
// The capture stage uses it to gate the render request, per the contract that
// out-of-range fractions are rejected rather than clamped.
func ValidCropRectangle(rect CropRectangle) bool {
	if rect.Width <= 0 || rect.Height <= 0 {
		return false
	}
	if rect.X < 0 || rect.Y < 0 {
		return false
	}
	return rect.X+rect.Width <= 1 && rect.Y+rect.Height <= 1
}
