//go:build !cgo

package ocr

import (
	"context"
	"errors"
	"image"
)

const backendName = "none (built without cgo)"

// ErrUnavailable is returned when the binary was built without Tesseract.
var ErrUnavailable = errors.New("tesseract OCR requires a cgo build")

// Tesseract is a placeholder that always fails in builds without cgo.
type Tesseract struct {
	language string
}

// NewTesseract always returns ErrUnavailable without cgo.
func NewTesseract(language, tessdataPrefix string) (*Tesseract, error) {
	return nil, ErrUnavailable
}

// Recognize always returns ErrUnavailable.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) (*Result, error) {
	return nil, ErrUnavailable
}

// Language returns the configured Tesseract language code.
func (t *Tesseract) Language() string {
	return t.language
}

// TesseractVersion always returns ErrUnavailable without cgo.
func TesseractVersion() (string, error) {
	return "", ErrUnavailable
}

// GetOCRInfo reports that OCR is unavailable.
func GetOCRInfo(language, tessdataPrefix string) Info {
	return Info{
		Available: false,
		Error:     ErrUnavailable.Error(),
		Backend:   backendName,
		Language:  language,
	}
}
