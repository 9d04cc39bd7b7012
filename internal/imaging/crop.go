package imaging

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	pipelineerrors "github.com/ironsheep/idphoto-mcp/internal/errors"
	"github.com/ironsheep/idphoto-mcp/internal/geometry"
)

const (
	// CandidatePadding is the fraction of a detected rectangle's own width
	// and height added on each side before cropping.
	CandidatePadding = 0.5

	// MinManualSide is the exclusive lower bound, in source pixels, for both
	// sides of a manual selection.
	MinManualSide = 20
)

// CropSpec describes the rectangle that was actually extracted.
type CropSpec struct {
	// Source is the rectangle that was chosen (detected or drawn).
	Source geometry.Rect `json:"source"`

	// Padding is the ratio applied to Source before clipping.
	Padding float64 `json:"padding"`

	// Rect is the final, clipped extraction rectangle. It always lies
	// inside the image.
	Rect geometry.Rect `json:"rect"`
}

// PaddedCropRect computes the extraction rectangle for a detected candidate.
//
// The candidate is expanded by padding × its own size on every side, then the
// origin is clamped to be non-negative and the extent is clamped so the
// rectangle never passes the right or bottom edge:
//
//	x = max(0, rx - w*p)        width  = min(imageW - x, w + 2*w*p)
//	y = max(0, ry - h*p)        height = min(imageH - y, h + 2*h*p)
//
// Fractional results are snapped inward to the pixel grid. An error is
// returned if the source rectangle is degenerate or the padded rectangle
// does not overlap the image.
func PaddedCropRect(r geometry.Rect, imageW, imageH int, padding float64) (geometry.Rect, error) {
	if !r.Valid() {
		return geometry.Rect{}, pipelineerrors.NewInvalidInputError(
			"crop rectangle must have positive width and height",
			map[string]interface{}{"rect": r.String()},
		)
	}

	padX := float64(r.Width) * padding
	padY := float64(r.Height) * padding

	if float64(r.X+r.Width)+padX <= 0 || float64(r.Y+r.Height)+padY <= 0 ||
		float64(r.X)-padX >= float64(imageW) || float64(r.Y)-padY >= float64(imageH) {
		return geometry.Rect{}, pipelineerrors.NewInvalidInputError(
			"crop rectangle lies outside the image",
			map[string]interface{}{"rect": r.String(), "image_width": imageW, "image_height": imageH},
		)
	}

	x := math.Max(0, float64(r.X)-padX)
	y := math.Max(0, float64(r.Y)-padY)
	w := math.Min(float64(imageW)-x, float64(r.Width)+2*padX)
	h := math.Min(float64(imageH)-y, float64(r.Height)+2*padY)

	// Flooring the origin can only grow the room to the right of it, so the
	// truncated extent still fits.
	out := geometry.Rect{
		X:      int(math.Floor(x)),
		Y:      int(math.Floor(y)),
		Width:  int(w),
		Height: int(h),
	}
	if !out.Valid() {
		return geometry.Rect{}, pipelineerrors.NewInvalidInputError(
			"crop rectangle collapses after clipping",
			map[string]interface{}{"rect": r.String()},
		)
	}
	return out, nil
}

// CropCandidate extracts a detected candidate with CandidatePadding applied.
//
// The returned image is a fresh pixel copy sized to the clipped rectangle.
func CropCandidate(img image.Image, r geometry.Rect) (*image.NRGBA, CropSpec, error) {
	b := img.Bounds()
	rect, err := PaddedCropRect(r, b.Dx(), b.Dy(), CandidatePadding)
	if err != nil {
		return nil, CropSpec{}, err
	}
	return extract(img, rect), CropSpec{Source: r, Padding: CandidatePadding, Rect: rect}, nil
}

// CropManual extracts a user-drawn selection exactly, without padding.
//
// Both sides must exceed MinManualSide pixels, otherwise a SelectionTooSmall
// error is returned. The selection is clipped to the image bounds before
// copying.
func CropManual(img image.Image, r geometry.Rect) (*image.NRGBA, CropSpec, error) {
	if r.Width <= MinManualSide || r.Height <= MinManualSide {
		return nil, CropSpec{}, pipelineerrors.NewSelectionTooSmallError(r.Width, r.Height, MinManualSide)
	}

	b := img.Bounds()
	rect := r.Clip(b.Dx(), b.Dy())
	if !rect.Valid() {
		return nil, CropSpec{}, pipelineerrors.NewInvalidInputError(
			"selection lies outside the image",
			map[string]interface{}{"rect": r.String()},
		)
	}
	return extract(img, rect), CropSpec{Source: r, Padding: 0, Rect: rect}, nil
}

// ManualRect converts a drag gesture from display coordinates into a source
// rectangle. The drag may go in any direction. displayScale is the number of
// source pixels per display pixel; values <= 0 are treated as 1.
func ManualRect(start, end geometry.Point, displayScale float64) geometry.Rect {
	if displayScale <= 0 {
		displayScale = 1
	}
	return geometry.Rect{
		X:      int(math.Floor(math.Min(start.X, end.X) * displayScale)),
		Y:      int(math.Floor(math.Min(start.Y, end.Y) * displayScale)),
		Width:  int(math.Abs(end.X-start.X) * displayScale),
		Height: int(math.Abs(end.Y-start.Y) * displayScale),
	}
}

// CropRegion copies a rectangle, given relative to the image origin, into a
// new image. The rectangle is clipped to the image bounds.
func CropRegion(img image.Image, r geometry.Rect) *image.NRGBA {
	b := img.Bounds()
	return extract(img, r.Clip(b.Dx(), b.Dy()))
}

// extract copies r (relative to the image origin) into a new image whose
// bounds start at (0,0).
func extract(img image.Image, r geometry.Rect) *image.NRGBA {
	return imaging.Crop(img, r.ImageRect().Add(img.Bounds().Min))
}
