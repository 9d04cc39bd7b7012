//go:build !gocv

package detection

import "errors"

// ErrCascadeNotEnabled is returned when the cascade backend is requested but
// OpenCV support was not compiled in. Rebuild with -tags gocv to enable it.
var ErrCascadeNotEnabled = errors.New("cascade detector not enabled; rebuild with -tags gocv")

// NewCascadeDetector always fails without the gocv build tag.
func NewCascadeDetector(path string) (Detector, error) {
	return nil, ErrCascadeNotEnabled
}
