//go:build gocv

package detection

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ironsheep/idphoto-mcp/internal/geometry"
)

// CascadeDetector finds faces with an OpenCV Haar cascade. The padding that
// the crop stage adds around each candidate turns a face box into a
// portrait-sized crop.
//
// OpenCV classifiers are not safe for concurrent use, so calls are
// serialized.
type CascadeDetector struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
}

// NewCascadeDetector loads a cascade classifier from an XML file.
func NewCascadeDetector(path string) (Detector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade classifier from %s", path)
	}
	return &CascadeDetector{classifier: classifier}, nil
}

// Detect implements Detector.
func (d *CascadeDetector) Detect(ctx context.Context, img image.Image) ([]geometry.Rect, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	d.mu.Lock()
	found := d.classifier.DetectMultiScale(mat)
	d.mu.Unlock()

	rects := make([]geometry.Rect, 0, len(found))
	for _, r := range found {
		rects = append(rects, geometry.FromImageRect(r))
	}
	return rects, nil
}

// Close releases the classifier.
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.Close()
}
