package detection

import (
	"context"
	"fmt"
	"image"

	"github.com/ironsheep/idphoto-mcp/internal/config"
	"github.com/ironsheep/idphoto-mcp/internal/geometry"
)

// Detector proposes rectangles that may contain a portrait photo.
//
// Rectangles are returned in the coordinate system of img, with the origin
// at img's top-left corner regardless of img.Bounds().Min. A detector may
// return rectangles in any order and may return none.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]geometry.Rect, error)
}

// DetectorFunc adapts an ordinary function to the Detector interface.
type DetectorFunc func(ctx context.Context, img image.Image) ([]geometry.Rect, error)

// Detect calls f(ctx, img).
func (f DetectorFunc) Detect(ctx context.Context, img image.Image) ([]geometry.Rect, error) {
	return f(ctx, img)
}

// New builds the detector selected by cfg.Detector.
//
// # Errors
//
//   - Returns error for an unknown backend name
//   - Returns error if the cascade backend cannot load its classifier, or
//     the binary was built without the gocv tag
func New(cfg *config.Config) (Detector, error) {
	switch cfg.Detector {
	case config.DetectorEdges, "":
		return NewEdgeDetector(), nil
	case config.DetectorHTTP:
		return NewHTTPDetector(cfg.InferenceURL), nil
	case config.DetectorCascade:
		return NewCascadeDetector(cfg.CascadePath)
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.Detector)
	}
}
